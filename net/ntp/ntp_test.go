package ntp

import (
	"testing"
	"time"
)

func TestTime64Conversion(t *testing.T) {
	ts := time.Date(2024, 8, 25, 21, 3, 24, 500_000_000, time.UTC)
	t64 := Time64FromTime(ts)
	ts2 := TimeFromTime64(t64)
	d := ts2.Sub(ts)
	if d < -time.Nanosecond || d > time.Nanosecond {
		t.Errorf("Time64 conversion: got %v, want %v", ts2, ts)
	}
}

func TestTime64Ordering(t *testing.T) {
	a := Time64{Seconds: 1, Fraction: 2}
	b := Time64{Seconds: 1, Fraction: 3}
	c := Time64{Seconds: 2, Fraction: 0}
	if !a.Before(b) || !b.Before(c) || b.Before(a) {
		t.Error("unexpected Time64.Before behavior")
	}
	if !c.After(b) || !b.After(a) || a.After(b) {
		t.Error("unexpected Time64.After behavior")
	}
}

func TestLVMAccessors(t *testing.T) {
	var p Packet
	p.SetLeapIndicator(LeapIndicatorUnknown)
	p.SetVersion(VersionMax)
	p.SetMode(ModeClient)
	if l := p.LeapIndicator(); l != LeapIndicatorUnknown {
		t.Errorf("LeapIndicator: got %d, want %d", l, LeapIndicatorUnknown)
	}
	if v := p.Version(); v != VersionMax {
		t.Errorf("Version: got %d, want %d", v, VersionMax)
	}
	if m := p.Mode(); m != ModeClient {
		t.Errorf("Mode: got %d, want %d", m, ModeClient)
	}
}

func TestDecodeRequest(t *testing.T) {
	var req Packet
	req.SetVersion(VersionMax)
	req.SetMode(ModeClient)
	req.TransmitTime = Time64FromTime(time.Date(2024, 8, 25, 21, 3, 24, 0, time.UTC))

	var b []byte
	EncodePacket(&b, &req)
	if len(b) != PacketLen {
		t.Fatalf("EncodePacket: got %d bytes, want %d", len(b), PacketLen)
	}

	var p Packet
	if err := DecodePacket(&p, b); err != nil {
		t.Fatalf("DecodePacket: %v", err)
	}
	if p != req {
		t.Errorf("DecodePacket: got %+v, want %+v", p, req)
	}
	if err := ValidateRequest(&p); err != nil {
		t.Errorf("ValidateRequest: %v", err)
	}

	if err := DecodePacket(&p, b[:PacketLen-1]); err == nil {
		t.Error("DecodePacket: expected error for short buffer")
	}
}

func TestValidateRequestRejectsServerMode(t *testing.T) {
	var p Packet
	p.SetVersion(VersionMax)
	p.SetMode(ModeServer)
	if err := ValidateRequest(&p); err == nil {
		t.Error("ValidateRequest: expected error for server mode packet")
	}
}

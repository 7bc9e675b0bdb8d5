package server

import (
	"log/slog"
	"net"
	"testing"
	"time"

	"example.com/nist-sync/net/daytime"
	"example.com/nist-sync/net/ntp"
)

func TestHandleRequest(t *testing.T) {
	rxt := time.Date(2024, 8, 25, 21, 3, 24, 0, time.UTC)
	txt := rxt.Add(10 * time.Microsecond)

	var req ntp.Packet
	req.SetVersion(ntp.VersionMax)
	req.SetMode(ntp.ModeClient)
	req.Poll = 6
	req.TransmitTime = ntp.Time64FromTime(rxt.Add(-time.Millisecond))

	resp := handleRequest(&req, rxt, txt)

	if resp.Mode() != ntp.ModeServer {
		t.Errorf("response mode = %d, want %d", resp.Mode(), ntp.ModeServer)
	}
	if resp.Stratum != ntpServerStratum {
		t.Errorf("response stratum = %d, want %d", resp.Stratum, ntpServerStratum)
	}
	if resp.OriginTime != req.TransmitTime {
		t.Error("response origin time does not echo request transmit time")
	}
	if resp.ReceiveTime != ntp.Time64FromTime(rxt) {
		t.Error("unexpected response receive time")
	}
	if resp.ReceiveTime.After(resp.TransmitTime) {
		t.Error("response receive time after transmit time")
	}
}

type pipeClock struct{ now time.Time }

func (c *pipeClock) Now() time.Time               { return c.now }
func (c *pipeClock) SetTime(t time.Time) error    { return nil }
func (c *pipeClock) Sleep(duration time.Duration) {}

func TestServeDaytimeConn(t *testing.T) {
	lclk := &pipeClock{now: time.Date(2024, 8, 25, 21, 3, 24, 0, time.UTC)}

	srv, cli := net.Pipe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		serveDaytimeConn(slog.New(slog.DiscardHandler), newDaytimeServerMetrics(), lclk, srv)
	}()

	buf := make([]byte, daytime.MaxResponseLen)
	_ = cli.SetReadDeadline(time.Now().Add(5 * time.Second))
	n, err := cli.Read(buf)
	if err != nil {
		t.Fatalf("failed to read response: %v", err)
	}
	cli.Close()
	<-done

	ts, err := daytime.ParseResponse(buf[:n])
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	want := time.Date(2024, 8, 25, 21, 3, 24, 0, time.UTC)
	if !ts.Equal(want) {
		t.Errorf("served time %v, want %v", ts, want)
	}
}

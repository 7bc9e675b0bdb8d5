package daytime

import (
	"testing"
	"time"
)

func TestParseResponse(t *testing.T) {
	// Response captured from time.nist.gov.
	b := []byte("\n60547 24-08-25 21:03:24 50 0 0 718.5 UTC(NIST) *\n")
	ts, err := ParseResponse(b)
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	want := time.Date(2024, 8, 25, 21, 3, 24, 718_500_000, time.UTC)
	if !ts.Equal(want) {
		t.Errorf("ParseResponse: got %v, want %v", ts, want)
	}
}

func TestParseResponseZeroAdvance(t *testing.T) {
	b := []byte("\n60547 24-08-25 00:00:00 50 0 0 0.0 UTC(NIST) *\n")
	ts, err := ParseResponse(b)
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	want := time.Date(2024, 8, 25, 0, 0, 0, 0, time.UTC)
	if !ts.Equal(want) {
		t.Errorf("ParseResponse: got %v, want %v", ts, want)
	}
}

func TestParseResponseMalformed(t *testing.T) {
	cases := []struct {
		name string
		b    []byte
	}{
		{"empty", []byte("")},
		{"truncated", []byte("\n60547 24-08-25 21:03:24\n")},
		{"bad date", []byte("\n60547 2024/08/25 21:03:24 50 0 0 718.5 UTC(NIST) *\n")},
		{"bad time", []byte("\n60547 24-08-25 21h03 50 0 0 718.5 UTC(NIST) *\n")},
		{"bad advance", []byte("\n60547 24-08-25 21:03:24 50 0 0 fast UTC(NIST) *\n")},
	}
	for _, c := range cases {
		_, err := ParseResponse(c.b)
		if err == nil {
			t.Errorf("ParseResponse(%s): expected error", c.name)
		}
	}
}

func TestFormatResponse(t *testing.T) {
	ts := time.Date(2024, 8, 25, 21, 3, 24, 0, time.UTC)
	ts2, err := ParseResponse(FormatResponse(ts, 0))
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if !ts2.Equal(ts) {
		t.Errorf("round trip: got %v, want %v", ts2, ts)
	}
}

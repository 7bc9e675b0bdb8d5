package timebase

import (
	"time"
)

// LocalClock provides the two OS-level capabilities the synchronization loop
// depends on: reading the local time and stepping the system clock.
// Implementations must be safe for use from a single goroutine; the loop is
// the sole writer of the system clock.
type LocalClock interface {
	Now() time.Time
	SetTime(t time.Time) error
	Sleep(duration time.Duration)
}

var lclk LocalClock

func RegisterClock(c LocalClock) {
	if c == nil {
		panic("local clock must not be nil")
	}
	if lclk != nil {
		panic("local clock already registered")
	}
	lclk = c
}

func registered() LocalClock {
	if lclk == nil {
		panic("no local clock registered")
	}
	return lclk
}

func Now() time.Time {
	return registered().Now()
}

func Sleep(duration time.Duration) {
	registered().Sleep(duration)
}

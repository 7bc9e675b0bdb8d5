//go:build !linux

package clocks

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"example.com/nist-sync/core/timebase"
)

// SystemClock on non-Linux platforms can read the local time but not step
// the system clock; SetTime only records the requested value.
type SystemClock struct {
	Log *slog.Logger
}

var _ timebase.LocalClock = (*SystemClock)(nil)

var errNotSupported = errors.New("setting the system clock is not supported on this platform")

func NewSystemClock(log *slog.Logger) *SystemClock {
	return &SystemClock{Log: log}
}

func (c *SystemClock) Now() time.Time {
	return time.Now().UTC()
}

func (c *SystemClock) SetTime(t time.Time) error {
	c.Log.LogAttrs(context.Background(), slog.LevelInfo,
		"setting system clock not supported on this platform", slog.Time("to", t))
	return errNotSupported
}

func (c *SystemClock) Sleep(duration time.Duration) {
	c.Log.LogAttrs(context.Background(), slog.LevelDebug,
		"sleeping", slog.Duration("duration", duration))
	time.Sleep(duration)
}

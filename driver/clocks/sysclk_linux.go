//go:build linux

package clocks

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sys/unix"

	"example.com/nist-sync/core/timebase"
)

// SystemClock drives the Linux system clock via clock_settime on
// CLOCK_REALTIME. Stepping the clock requires CAP_SYS_TIME; without it
// SetTime reports EPERM.
type SystemClock struct {
	Log *slog.Logger
}

var _ timebase.LocalClock = (*SystemClock)(nil)

func NewSystemClock(log *slog.Logger) *SystemClock {
	return &SystemClock{Log: log}
}

func (c *SystemClock) Now() time.Time {
	return time.Now().UTC()
}

func (c *SystemClock) SetTime(t time.Time) error {
	c.Log.LogAttrs(context.Background(), slog.LevelDebug,
		"setting system clock", slog.Time("to", t))
	ts := unix.NsecToTimespec(t.UnixNano())
	return unix.ClockSettime(unix.CLOCK_REALTIME, &ts)
}

func (c *SystemClock) Sleep(duration time.Duration) {
	c.Log.LogAttrs(context.Background(), slog.LevelDebug,
		"sleeping", slog.Duration("duration", duration))
	time.Sleep(duration)
}

package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"example.com/nist-sync/base/metrics"
	"example.com/nist-sync/core/client"
	"example.com/nist-sync/core/timebase"
)

const (
	DefaultInterval = 3600 * time.Second
	DefaultTimeout  = 5 * time.Second
)

// ErrClockApply wraps errors from the system clock setter, typically a
// missing CAP_SYS_TIME.
var ErrClockApply = errors.New("failed to apply time to system clock")

type Config struct {
	Interval time.Duration
	Timeout  time.Duration
}

// Outcome records the result of the most recent tick, for observability
// only. Time is zero when the tick failed.
type Outcome struct {
	At   time.Time
	Time time.Time
	Err  error
}

// Controller drives the periodic tick cycle: fetch time from the authority,
// apply it to the local clock, sleep until the next tick. All per-tick
// errors are recorded and swallowed; the loop terminates only when the
// context passed to Run is canceled.
type Controller struct {
	log  *slog.Logger
	cfg  Config
	src  client.TimeSource
	lclk timebase.LocalClock
	last atomic.Pointer[Outcome]
}

type syncMetrics struct {
	ticks       prometheus.Counter
	applies     prometheus.Counter
	fetchErrs   prometheus.Counter
	applyErrs   prometheus.Counter
	lastSuccess prometheus.Gauge
}

var mtrcs = &syncMetrics{
	ticks: promauto.NewCounter(prometheus.CounterOpts{
		Name: metrics.SyncTicksN,
		Help: metrics.SyncTicksH,
	}),
	applies: promauto.NewCounter(prometheus.CounterOpts{
		Name: metrics.SyncAppliesN,
		Help: metrics.SyncAppliesH,
	}),
	fetchErrs: promauto.NewCounter(prometheus.CounterOpts{
		Name: metrics.SyncFetchErrsN,
		Help: metrics.SyncFetchErrsH,
	}),
	applyErrs: promauto.NewCounter(prometheus.CounterOpts{
		Name: metrics.SyncApplyErrsN,
		Help: metrics.SyncApplyErrsH,
	}),
	lastSuccess: promauto.NewGauge(prometheus.GaugeOpts{
		Name: metrics.SyncLastSuccessN,
		Help: metrics.SyncLastSuccessH,
	}),
}

func NewController(log *slog.Logger, cfg Config, src client.TimeSource,
	lclk timebase.LocalClock) *Controller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Controller{log: log, cfg: cfg, src: src, lclk: lclk}
}

// Run blocks until ctx is done, performing one tick immediately and then
// one per interval. The sleep between ticks is interruptible: cancellation
// is honored promptly, not at the next tick boundary. Run returns ctx.Err().
func (c *Controller) Run(ctx context.Context) error {
	c.log.LogAttrs(ctx, slog.LevelInfo, "starting clock synchronization",
		slog.Duration("interval", c.cfg.Interval))

	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			c.log.LogAttrs(ctx, slog.LevelInfo, "stopping clock synchronization")
			return ctx.Err()
		case <-timer.C:
		}
		c.tick(ctx)
		timer.Reset(c.cfg.Interval)
	}
}

// LastOutcome returns the result of the most recent tick, or false if no
// tick has completed yet.
func (c *Controller) LastOutcome() (Outcome, bool) {
	o := c.last.Load()
	if o == nil {
		return Outcome{}, false
	}
	return *o, true
}

func (c *Controller) tick(ctx context.Context) {
	mtrcs.ticks.Inc()

	fetchCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	ts, err := c.src.FetchTime(fetchCtx)
	cancel()
	at := c.lclk.Now()
	if err != nil {
		mtrcs.fetchErrs.Inc()
		c.log.LogAttrs(ctx, slog.LevelInfo, "failed to fetch time",
			slog.Any("error", err))
		c.last.Store(&Outcome{At: at, Err: err})
		return
	}

	err = c.lclk.SetTime(ts)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrClockApply, err)
		mtrcs.applyErrs.Inc()
		c.log.LogAttrs(ctx, slog.LevelError, "failed to set system clock",
			slog.Time("to", ts), slog.Any("error", err))
		c.last.Store(&Outcome{At: at, Err: err})
		return
	}

	mtrcs.applies.Inc()
	mtrcs.lastSuccess.Set(float64(ts.Unix()))
	c.log.LogAttrs(ctx, slog.LevelInfo, "system clock synchronized",
		slog.Time("to", ts))
	c.last.Store(&Outcome{At: at, Time: ts})
}

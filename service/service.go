package service

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"

	"example.com/nist-sync/core/client"
	"example.com/nist-sync/core/sync"
	"example.com/nist-sync/core/timebase"
)

// Run drives the synchronization loop as a long-running background service.
// It blocks until the process receives SIGINT or SIGTERM, which is delivered
// to the loop as cancellation; the loop acknowledges it promptly and Run
// returns nil. Any other termination cause is reported as an error.
func Run(log *slog.Logger, cfg sync.Config, src client.TimeSource,
	lclk timebase.LocalClock) error {
	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctl := sync.NewController(log, cfg, src, lclk)
	err := ctl.Run(ctx)
	if errors.Is(err, context.Canceled) {
		log.LogAttrs(ctx, slog.LevelInfo, "received stop signal, exiting")
		return nil
	}
	return err
}

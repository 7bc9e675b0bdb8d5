package benchmark

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"example.com/nist-sync/core/client"
)

// RunBenchmark measures fetch latency against a time authority with
// concurrent clients and prints an hdrhistogram percentile report. newSource
// must return an independent TimeSource per goroutine.
func RunBenchmark(newSource func(log *slog.Logger) client.TimeSource, log *slog.Logger) {
	const numClientGoroutine = 8
	const numRequestPerClient = 100

	ctx := context.Background()
	dlog := slog.New(slog.DiscardHandler)

	var mu sync.Mutex
	hg := hdrhistogram.New(1, 10_000_000, 5)
	sg := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(numClientGoroutine)

	for range numClientGoroutine {
		go func() {
			defer wg.Done()
			h := hdrhistogram.New(1, 10_000_000, 5)
			c := newSource(dlog)
			<-sg
			for range numRequestPerClient {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				t0 := time.Now()
				_, err := c.FetchTime(ctx)
				cancel()
				if err != nil {
					dlog.LogAttrs(ctx, slog.LevelInfo,
						"failed to fetch time",
						slog.Any("error", err),
					)
					continue
				}
				_ = h.RecordValue(time.Since(t0).Microseconds())
			}
			mu.Lock()
			defer mu.Unlock()
			hg.Merge(h)
		}()
	}
	t0 := time.Now()
	close(sg)
	wg.Wait()
	log.LogAttrs(ctx, slog.LevelInfo, "time elapsed",
		slog.Duration("duration", time.Since(t0)))
	_, _ = hg.PercentilesPrint(os.Stdout, 1, 1.0)
}

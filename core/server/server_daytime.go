package server

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"example.com/nist-sync/base/logbase"
	"example.com/nist-sync/base/metrics"
	"example.com/nist-sync/core/timebase"
	"example.com/nist-sync/net/daytime"
)

const daytimeWriteTimeout = 5 * time.Second

type daytimeServerMetrics struct {
	connsAccepted prometheus.Counter
	reqsServed    prometheus.Counter
}

var newDaytimeServerMetrics = sync.OnceValue(func() *daytimeServerMetrics {
	return &daytimeServerMetrics{
		connsAccepted: promauto.NewCounter(prometheus.CounterOpts{
			Name: metrics.DaytimeServerConnsAcceptedN,
			Help: metrics.DaytimeServerConnsAcceptedH,
		}),
		reqsServed: promauto.NewCounter(prometheus.CounterOpts{
			Name: metrics.DaytimeServerReqsServedN,
			Help: metrics.DaytimeServerReqsServedH,
		}),
	}
})

func serveDaytimeConn(log *slog.Logger, mtrcs *daytimeServerMetrics,
	lclk timebase.LocalClock, conn net.Conn) {
	defer conn.Close()
	err := conn.SetWriteDeadline(time.Now().Add(daytimeWriteTimeout))
	if err != nil {
		log.LogAttrs(context.Background(), slog.LevelError,
			"failed to set write deadline", slog.Any("error", err))
		return
	}
	_, err = conn.Write(daytime.FormatResponse(lclk.Now(), 0))
	if err != nil {
		log.LogAttrs(context.Background(), slog.LevelInfo,
			"failed to write response", slog.Any("error", err))
		return
	}
	mtrcs.reqsServed.Inc()
}

func runDaytimeServer(ctx context.Context, log *slog.Logger,
	mtrcs *daytimeServerMetrics, lclk timebase.LocalClock, lis net.Listener) {
	defer lis.Close()
	for {
		conn, err := lis.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.LogAttrs(ctx, slog.LevelError, "failed to accept connection",
				slog.Any("error", err))
			continue
		}
		mtrcs.connsAccepted.Inc()
		go serveDaytimeConn(log, mtrcs, lclk, conn)
	}
}

// StartDaytimeServer serves the local clock over the daytime protocol so
// that other machines can use this host as their time authority.
func StartDaytimeServer(ctx context.Context, log *slog.Logger,
	lclk timebase.LocalClock, localHost *net.TCPAddr) {
	log.LogAttrs(ctx, slog.LevelInfo, "daytime server listening",
		slog.Any("ip", localHost.IP),
		slog.Int("port", localHost.Port),
	)

	mtrcs := newDaytimeServerMetrics()

	lis, err := net.ListenTCP("tcp", localHost)
	if err != nil {
		logbase.FatalContext(ctx, log, "failed to listen for connections",
			slog.Any("error", err))
	}
	go func() {
		<-ctx.Done()
		lis.Close()
	}()
	go runDaytimeServer(ctx, log, mtrcs, lclk, lis)
}

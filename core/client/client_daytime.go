package client

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"example.com/nist-sync/base/metrics"
	"example.com/nist-sync/net/daytime"
)

// DaytimeClient fetches the current time from a NIST daytime service
// (RFC 867) over TCP.
type DaytimeClient struct {
	Log        *slog.Logger
	RemoteAddr string
}

var _ TimeSource = (*DaytimeClient)(nil)

type daytimeClientMetrics struct {
	reqsSent      prometheus.Counter
	respsAccepted prometheus.Counter
}

var newDaytimeClientMetrics = sync.OnceValue(func() *daytimeClientMetrics {
	return &daytimeClientMetrics{
		reqsSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: metrics.DaytimeClientReqsSentN,
			Help: metrics.DaytimeClientReqsSentH,
		}),
		respsAccepted: promauto.NewCounter(prometheus.CounterOpts{
			Name: metrics.DaytimeClientRespsAcceptedN,
			Help: metrics.DaytimeClientRespsAcceptedH,
		}),
	}
})

func (c *DaytimeClient) FetchTime(ctx context.Context) (time.Time, error) {
	mtrcs := newDaytimeClientMetrics()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.RemoteAddr)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		err = conn.SetDeadline(deadline)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %v", ErrNetwork, err)
		}
	}
	mtrcs.reqsSent.Inc()

	// The server sends one line and closes the connection.
	buf := make([]byte, daytime.MaxResponseLen)
	n, err := conn.Read(buf)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	ts, err := daytime.ParseResponse(buf[:n])
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrParse, err)
	}
	mtrcs.respsAccepted.Inc()

	c.Log.LogAttrs(ctx, slog.LevelDebug, "received daytime response",
		slog.String("from", c.RemoteAddr),
		slog.Time("time", ts),
	)

	return ts, nil
}

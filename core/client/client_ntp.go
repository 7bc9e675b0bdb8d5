package client

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/beevik/ntp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"example.com/nist-sync/base/metrics"
)

const ntpDefaultTimeout = 5 * time.Second

// NTPClient fetches the current time from an NTP server. The server's clock
// offset relative to the local clock is measured with a single query and
// applied to the local time to obtain the authoritative timestamp.
type NTPClient struct {
	Log        *slog.Logger
	RemoteAddr string
}

var _ TimeSource = (*NTPClient)(nil)

type ntpClientMetrics struct {
	reqsSent      prometheus.Counter
	respsAccepted prometheus.Counter
}

var newNTPClientMetrics = sync.OnceValue(func() *ntpClientMetrics {
	return &ntpClientMetrics{
		reqsSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: metrics.NTPClientReqsSentN,
			Help: metrics.NTPClientReqsSentH,
		}),
		respsAccepted: promauto.NewCounter(prometheus.CounterOpts{
			Name: metrics.NTPClientRespsAcceptedN,
			Help: metrics.NTPClientRespsAcceptedH,
		}),
	}
})

func (c *NTPClient) FetchTime(ctx context.Context) (time.Time, error) {
	mtrcs := newNTPClientMetrics()

	opt := ntp.QueryOptions{Timeout: ntpDefaultTimeout}
	if deadline, ok := ctx.Deadline(); ok {
		opt.Timeout = time.Until(deadline)
	}
	host := c.RemoteAddr
	if h, p, err := net.SplitHostPort(c.RemoteAddr); err == nil {
		port, err := strconv.Atoi(p)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %v", ErrNetwork, err)
		}
		host, opt.Port = h, port
	}

	mtrcs.reqsSent.Inc()
	resp, err := ntp.QueryWithOptions(host, opt)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	err = resp.Validate()
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrParse, err)
	}
	mtrcs.respsAccepted.Inc()

	ts := time.Now().Add(resp.ClockOffset).UTC()
	c.Log.LogAttrs(ctx, slog.LevelDebug, "received NTP response",
		slog.String("from", c.RemoteAddr),
		slog.Duration("clock offset", resp.ClockOffset),
		slog.Time("time", ts),
	)

	return ts, nil
}

package server

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/libp2p/go-reuseport"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"example.com/nist-sync/base/logbase"
	"example.com/nist-sync/base/metrics"
	"example.com/nist-sync/core/timebase"
	"example.com/nist-sync/net/ntp"
)

const (
	ntpServerNumGoroutine = 4

	// Stratum advertised in responses. This host follows an external
	// authority, so it serves as a secondary source.
	ntpServerStratum = 2
)

type ntpServerMetrics struct {
	pktsReceived prometheus.Counter
	reqsAccepted prometheus.Counter
	reqsServed   prometheus.Counter
}

var newNTPServerMetrics = sync.OnceValue(func() *ntpServerMetrics {
	return &ntpServerMetrics{
		pktsReceived: promauto.NewCounter(prometheus.CounterOpts{
			Name: metrics.NTPServerPktsReceivedN,
			Help: metrics.NTPServerPktsReceivedH,
		}),
		reqsAccepted: promauto.NewCounter(prometheus.CounterOpts{
			Name: metrics.NTPServerReqsAcceptedN,
			Help: metrics.NTPServerReqsAcceptedH,
		}),
		reqsServed: promauto.NewCounter(prometheus.CounterOpts{
			Name: metrics.NTPServerReqsServedN,
			Help: metrics.NTPServerReqsServedH,
		}),
	}
})

func handleRequest(ntpreq *ntp.Packet, rxt, txt time.Time) (ntpresp ntp.Packet) {
	ntpresp.SetVersion(ntp.VersionMax)
	ntpresp.SetMode(ntp.ModeServer)
	ntpresp.SetLeapIndicator(ntp.LeapIndicatorNoWarning)
	ntpresp.Stratum = ntpServerStratum
	ntpresp.Poll = ntpreq.Poll
	ntpresp.Precision = -20
	ntpresp.ReferenceTime = ntp.Time64FromTime(rxt)
	ntpresp.OriginTime = ntpreq.TransmitTime
	ntpresp.ReceiveTime = ntp.Time64FromTime(rxt)
	ntpresp.TransmitTime = ntp.Time64FromTime(txt)
	return ntpresp
}

func runNTPServer(log *slog.Logger, mtrcs *ntpServerMetrics,
	lclk timebase.LocalClock, conn *net.UDPConn) {
	defer conn.Close()
	ctx := context.Background()
	buf := make([]byte, 2048)
	for {
		buf = buf[:cap(buf)]
		n, srcAddr, err := conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			log.LogAttrs(ctx, slog.LevelError, "failed to read packet",
				slog.Any("error", err))
			continue
		}
		rxt := lclk.Now()
		buf = buf[:n]
		mtrcs.pktsReceived.Inc()

		var ntpreq ntp.Packet
		err = ntp.DecodePacket(&ntpreq, buf)
		if err != nil {
			log.LogAttrs(ctx, slog.LevelInfo, "failed to decode packet payload",
				slog.Any("error", err))
			continue
		}
		err = ntp.ValidateRequest(&ntpreq)
		if err != nil {
			log.LogAttrs(ctx, slog.LevelInfo, "unexpected request",
				slog.Any("error", err))
			continue
		}
		mtrcs.reqsAccepted.Inc()

		ntpresp := handleRequest(&ntpreq, rxt, lclk.Now())
		ntp.EncodePacket(&buf, &ntpresp)

		_, err = conn.WriteToUDPAddrPort(buf, srcAddr)
		if err != nil {
			log.LogAttrs(ctx, slog.LevelError, "failed to write packet",
				slog.Any("error", err))
			continue
		}
		mtrcs.reqsServed.Inc()
	}
}

// StartNTPServer answers NTP client requests with timestamps from the local
// clock.
func StartNTPServer(ctx context.Context, log *slog.Logger,
	lclk timebase.LocalClock, localHost *net.UDPAddr) {
	log.LogAttrs(ctx, slog.LevelInfo, "NTP server listening",
		slog.Any("ip", localHost.IP),
		slog.Int("port", localHost.Port),
	)

	mtrcs := newNTPServerMetrics()

	if ntpServerNumGoroutine == 1 {
		conn, err := net.ListenUDP("udp", localHost)
		if err != nil {
			logbase.FatalContext(ctx, log, "failed to listen for packets",
				slog.Any("error", err))
		}
		go runNTPServer(log, mtrcs, lclk, conn)
	} else {
		for i := ntpServerNumGoroutine; i > 0; i-- {
			conn, err := reuseport.ListenPacket("udp", localHost.String())
			if err != nil {
				logbase.FatalContext(ctx, log, "failed to listen for packets",
					slog.Any("error", err))
			}
			go runNTPServer(log, mtrcs, lclk, conn.(*net.UDPConn))
		}
	}
}

// NIST time synchronization service

package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/mmcloughlin/profile"
	"github.com/pelletier/go-toml/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/nist-sync/base/logbase"
	"example.com/nist-sync/base/timemath"

	"example.com/nist-sync/benchmark"

	"example.com/nist-sync/core/client"
	"example.com/nist-sync/core/server"
	"example.com/nist-sync/core/sync"
	"example.com/nist-sync/core/timebase"

	"example.com/nist-sync/driver/clocks"

	"example.com/nist-sync/net/daytime"
	"example.com/nist-sync/net/ntp"

	"example.com/nist-sync/service"
)

const (
	logLevelQuiet = iota
	logLevelDefault
	logLevelVerbose

	protocolDaytime = "daytime"
	protocolNTP     = "ntp"

	toolQueryTimeout  = 5 * time.Second
	toolQueryInterval = 8 * time.Second
)

type svcConfig struct {
	LocalAddr        string  `toml:"local_address,omitempty"`
	LocalMetricsAddr string  `toml:"local_metrics_address,omitempty"`
	RemoteAddr       string  `toml:"remote_address,omitempty"`
	Protocol         string  `toml:"protocol,omitempty"`
	SyncInterval     float64 `toml:"sync_interval,omitempty"`
	SyncTimeout      float64 `toml:"sync_timeout,omitempty"`
}

func initLogger(logLevel int) {
	var h slog.Handler
	if logLevel == logLevelQuiet {
		h = slog.DiscardHandler
	} else {
		var (
			addSource   bool
			level       slog.Leveler
			replaceAttr func(groups []string, a slog.Attr) slog.Attr
		)
		if logLevel == logLevelVerbose {
			_, f, _, ok := runtime.Caller(0)
			var basepath string
			if ok {
				basepath = filepath.Dir(f)
			}
			addSource = true
			level = slog.LevelDebug
			replaceAttr = func(groups []string, a slog.Attr) slog.Attr {
				if a.Key == slog.SourceKey {
					source := a.Value.Any().(*slog.Source)
					if basepath == "" {
						source.File = filepath.Base(source.File)
					} else {
						relpath, err := filepath.Rel(basepath, source.File)
						if err != nil {
							source.File = filepath.Base(source.File)
						} else {
							source.File = relpath
						}
					}
				}
				return a
			}
		}
		h = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			AddSource:   addSource,
			Level:       level,
			ReplaceAttr: replaceAttr,
		})
	}
	slog.SetDefault(slog.New(h))
}

func showInfo() {
	bi, ok := debug.ReadBuildInfo()
	if ok {
		fmt.Print(bi.String())
	}
}

func runMonitor(cfg svcConfig) {
	if cfg.LocalMetricsAddr != "" {
		http.Handle("/metrics", promhttp.Handler())
		err := http.ListenAndServe(cfg.LocalMetricsAddr, nil)
		logbase.Fatal(slog.Default(), "failed to serve metrics", slog.Any("error", err))
	} else {
		select {}
	}
}

func loadConfig(configFile string) svcConfig {
	raw, err := os.ReadFile(configFile)
	if err != nil {
		logbase.Fatal(slog.Default(), "failed to load configuration", slog.Any("error", err))
	}
	var cfg svcConfig
	err = toml.NewDecoder(bytes.NewReader(raw)).DisallowUnknownFields().Decode(&cfg)
	if err != nil {
		logbase.Fatal(slog.Default(), "failed to decode configuration", slog.Any("error", err))
	}
	return cfg
}

func localAddress(cfg svcConfig) net.IP {
	if cfg.LocalAddr == "" {
		return nil
	}
	ip := net.ParseIP(cfg.LocalAddr)
	if ip == nil {
		logbase.Fatal(slog.Default(), "failed to parse local address")
	}
	return ip
}

func remoteAddress(cfg svcConfig) string {
	if cfg.RemoteAddr == "" {
		logbase.Fatal(slog.Default(), "remote_address not specified in config")
	}
	return cfg.RemoteAddr
}

func protocol(cfg svcConfig) string {
	p := cfg.Protocol
	if p == "" {
		p = protocolDaytime
	} else if p != protocolDaytime && p != protocolNTP {
		logbase.Fatal(slog.Default(), "invalid protocol value specified in config")
	}
	return p
}

func syncConfig(cfg svcConfig) sync.Config {
	if cfg.SyncInterval < 0 || cfg.SyncTimeout < 0 {
		logbase.Fatal(slog.Default(), "invalid sync configuration specified in config")
	}

	syncCfg := sync.Config{
		Interval: timemath.Duration(cfg.SyncInterval),
		Timeout:  timemath.Duration(cfg.SyncTimeout),
	}

	if syncCfg.Interval == 0 {
		syncCfg.Interval = sync.DefaultInterval
	}
	if syncCfg.Timeout == 0 {
		syncCfg.Timeout = sync.DefaultTimeout
	}

	return syncCfg
}

// defaultPort appends port to addr if addr does not already carry one.
func defaultPort(addr string, port int) string {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return net.JoinHostPort(addr, strconv.Itoa(port))
	}
	return addr
}

func newTimeSource(log *slog.Logger, prtcl, remoteAddr string) client.TimeSource {
	switch prtcl {
	case protocolDaytime:
		return &client.DaytimeClient{
			Log:        log,
			RemoteAddr: defaultPort(remoteAddr, daytime.ServerPort),
		}
	case protocolNTP:
		return &client.NTPClient{
			Log:        log,
			RemoteAddr: remoteAddr,
		}
	}
	panic("unexpected protocol value")
}

func runSync(configFile string) {
	log := slog.Default()

	cfg := loadConfig(configFile)
	src := newTimeSource(log, protocol(cfg), remoteAddress(cfg))

	lclk := clocks.NewSystemClock(log)
	timebase.RegisterClock(lclk)

	go runMonitor(cfg)

	err := service.Run(log, syncConfig(cfg), src, lclk)
	if err != nil {
		logbase.Fatal(log, "synchronization terminated", slog.Any("error", err))
	}
}

func runServer(configFile string) {
	ctx := context.Background()
	log := slog.Default()

	cfg := loadConfig(configFile)
	ip := localAddress(cfg)

	lclk := clocks.NewSystemClock(log)
	timebase.RegisterClock(lclk)

	server.StartDaytimeServer(ctx, log, lclk, &net.TCPAddr{IP: ip, Port: daytime.ServerPort})
	server.StartNTPServer(ctx, log, lclk, &net.UDPAddr{IP: ip, Port: ntp.ServerPort})

	runMonitor(cfg)
}

func runTool(remoteAddr, prtcl string, periodic, set bool) {
	log := slog.Default()

	lclk := clocks.NewSystemClock(log)
	timebase.RegisterClock(lclk)

	c := newTimeSource(log, prtcl, remoteAddr)

	for {
		ctx, cancel := context.WithTimeout(context.Background(), toolQueryTimeout)
		ts, err := c.FetchTime(ctx)
		cancel()
		if err != nil {
			log.LogAttrs(ctx, slog.LevelInfo, "failed to fetch time",
				slog.String("remote", remoteAddr), slog.Any("error", err))
		} else {
			off := ts.Sub(lclk.Now())
			fmt.Printf("%s,%+.3f\n", ts.UTC().Format(time.RFC3339), off.Seconds())
			if set {
				err = lclk.SetTime(ts)
				if err != nil {
					log.LogAttrs(ctx, slog.LevelError, "failed to set system clock",
						slog.Any("error", err))
				}
			}
		}
		if !periodic {
			break
		}
		lclk.Sleep(toolQueryInterval)
	}
}

func runBenchmark(configFile string, profiling bool) {
	log := slog.Default()

	cfg := loadConfig(configFile)
	prtcl := protocol(cfg)
	remoteAddr := remoteAddress(cfg)

	if profiling {
		defer profile.Start(profile.CPUProfile).Stop()
	}

	benchmark.RunBenchmark(func(log *slog.Logger) client.TimeSource {
		return newTimeSource(log, prtcl, remoteAddr)
	}, log)
}

func exitWithUsage() {
	fmt.Println("<usage>")
	os.Exit(1)
}

func main() {
	var (
		quiet         bool
		verbose       bool
		configFile    string
		remoteAddrStr string
		protocolStr   string
		periodic      bool
		set           bool
		profiling     bool
	)

	infoFlags := flag.NewFlagSet("info", flag.ExitOnError)
	syncFlags := flag.NewFlagSet("sync", flag.ExitOnError)
	serverFlags := flag.NewFlagSet("server", flag.ExitOnError)
	toolFlags := flag.NewFlagSet("tool", flag.ExitOnError)
	benchmarkFlags := flag.NewFlagSet("benchmark", flag.ExitOnError)

	syncFlags.BoolVar(&quiet, "quiet", false, "Disable logging")
	syncFlags.BoolVar(&verbose, "verbose", false, "Verbose logging")
	syncFlags.StringVar(&configFile, "config", "", "Config file")

	serverFlags.BoolVar(&quiet, "quiet", false, "Disable logging")
	serverFlags.BoolVar(&verbose, "verbose", false, "Verbose logging")
	serverFlags.StringVar(&configFile, "config", "", "Config file")

	toolFlags.BoolVar(&quiet, "quiet", false, "Disable logging")
	toolFlags.BoolVar(&verbose, "verbose", false, "Verbose logging")
	toolFlags.StringVar(&remoteAddrStr, "remote", "", "Remote address")
	toolFlags.StringVar(&protocolStr, "protocol", protocolDaytime, "Time authority protocol (daytime or ntp)")
	toolFlags.BoolVar(&periodic, "periodic", false, "Perform periodic time queries")
	toolFlags.BoolVar(&set, "set", false, "Apply the fetched time to the system clock")

	benchmarkFlags.BoolVar(&quiet, "quiet", false, "Disable logging")
	benchmarkFlags.BoolVar(&verbose, "verbose", false, "Verbose logging")
	benchmarkFlags.StringVar(&configFile, "config", "", "Config file")
	benchmarkFlags.BoolVar(&profiling, "profile", false, "Enable CPU profiling")

	logLevel := func() int {
		if quiet && verbose {
			exitWithUsage()
		}
		if quiet {
			return logLevelQuiet
		}
		if verbose {
			return logLevelVerbose
		}
		return logLevelDefault
	}

	if len(os.Args) < 2 {
		exitWithUsage()
	}

	switch os.Args[1] {
	case infoFlags.Name():
		err := infoFlags.Parse(os.Args[2:])
		if err != nil || infoFlags.NArg() != 0 {
			exitWithUsage()
		}
		showInfo()
	case syncFlags.Name():
		err := syncFlags.Parse(os.Args[2:])
		if err != nil || syncFlags.NArg() != 0 {
			exitWithUsage()
		}
		if configFile == "" {
			exitWithUsage()
		}
		initLogger(logLevel())
		runSync(configFile)
	case serverFlags.Name():
		err := serverFlags.Parse(os.Args[2:])
		if err != nil || serverFlags.NArg() != 0 {
			exitWithUsage()
		}
		if configFile == "" {
			exitWithUsage()
		}
		initLogger(logLevel())
		runServer(configFile)
	case toolFlags.Name():
		err := toolFlags.Parse(os.Args[2:])
		if err != nil || toolFlags.NArg() != 0 {
			exitWithUsage()
		}
		if remoteAddrStr == "" {
			exitWithUsage()
		}
		if protocolStr != protocolDaytime && protocolStr != protocolNTP {
			exitWithUsage()
		}
		initLogger(logLevel())
		runTool(remoteAddrStr, protocolStr, periodic, set)
	case benchmarkFlags.Name():
		err := benchmarkFlags.Parse(os.Args[2:])
		if err != nil || benchmarkFlags.NArg() != 0 {
			exitWithUsage()
		}
		if configFile == "" {
			exitWithUsage()
		}
		initLogger(logLevel())
		runBenchmark(configFile, profiling)
	default:
		exitWithUsage()
	}
}

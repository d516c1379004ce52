package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/geometeo/weather-client/internal/cache"
	"github.com/geometeo/weather-client/internal/config"
	"github.com/geometeo/weather-client/internal/observability"
	"github.com/geometeo/weather-client/internal/orchestrator"
	"github.com/geometeo/weather-client/internal/rtt"
	"github.com/geometeo/weather-client/internal/runner"
	"github.com/geometeo/weather-client/internal/store"
	"github.com/geometeo/weather-client/internal/transport"
)

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	var timeouts transport.TimeoutSource
	var estimator *rtt.Estimator
	if cfg.AdaptiveTimeout {
		estimator = rtt.New(rtt.Config{
			Min:       cfg.TimeoutMin,
			Max:       cfg.TimeoutMax,
			Initial:   cfg.TimeoutInitial,
			IdleDecay: cfg.TimeoutIdleDecay,
		})
		timeouts = estimator
		observability.RegisterAdaptiveTimeoutGauge(estimator.Timeout)
		logger.Info("adaptive timeout enabled",
			zap.Duration("min", cfg.TimeoutMin), zap.Duration("max", cfg.TimeoutMax))
	} else {
		timeouts = transport.FixedTimeout(cfg.RequestTimeout)
		logger.Info("fixed request timeout", zap.Duration("timeout", cfg.RequestTimeout))
	}

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}

	client, err := transport.NewClient(cfg.EndpointURL, timeouts, limiter)
	if err != nil {
		logger.Fatal("transport", zap.Error(err))
	}

	var reportCache cache.Cache
	var cachePing func() error
	switch cfg.CacheBackend {
	case "memcached":
		mc, err := cache.NewMemcachedCache(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
		if err != nil {
			logger.Fatal("memcached cache", zap.Error(err))
		}
		defer func() { _ = mc.Close() }()
		reportCache = mc
		cachePing = mc.Ping
		logger.Info("cache backend: memcached", zap.String("addrs", cfg.MemcachedAddrs))
	default:
		reportCache = cache.NewInMemoryCache()
		logger.Info("cache backend: in_memory")
	}

	orch := orchestrator.New(reportCache, client, orchestrator.Config{
		RetryMax:       cfg.RetryMax,
		RetryBaseDelay: cfg.RetryBaseDelay,
		CacheTTL:       cfg.CacheTTL,
	}, logger)

	view := newTerminalView(os.Stdout)
	lastCity := store.NewFileStore(cfg.StateFile)
	run := runner.New(orch, view, lastCity, logger)

	if cfg.DebugAddr != "" {
		debugSrv := &http.Server{
			Addr:         cfg.DebugAddr,
			Handler:      newDebugRouter(estimator, cachePing),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("debug listener", zap.String("addr", cfg.DebugAddr))
			if err := debugSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("debug listener failed", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = debugSrv.Shutdown(shutdownCtx)
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, ok := run.Bootstrap(ctx); ok {
		logger.Debug("bootstrapped from persisted city")
	}

	fmt.Println(`enter a city name, "lat,lon" coordinates, or "quit"`)
	promptLoop(ctx, run, os.Stdin, os.Stdout)
	flush(logger)
}

// lookupRunner is the slice of the runner the prompt loop drives.
type lookupRunner interface {
	Submit(ctx context.Context, input string) orchestrator.Outcome
	MapClick(ctx context.Context, lat, lon float64) orchestrator.Outcome
}

// promptLoop reads input lines until EOF, "quit" or context cancellation.
// Reads happen on their own goroutine so a signal ends the loop even while it
// is blocked waiting for input.
func promptLoop(ctx context.Context, run lookupRunner, in io.Reader, out io.Writer) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	fmt.Fprint(out, "> ")
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			line = strings.TrimSpace(line)
			switch {
			case line == "":
			case line == "quit" || line == "exit":
				return
			default:
				submit(ctx, run, line)
			}
			fmt.Fprint(out, "> ")
		}
	}
}

// submit routes one input line: coordinates go through the map-click trigger,
// anything else through form submission.
func submit(ctx context.Context, run lookupRunner, line string) {
	if lat, lon, ok := parseLatLon(line); ok {
		run.MapClick(ctx, lat, lon)
		return
	}
	run.Submit(ctx, line)
}

// parseLatLon accepts "lat,lon" with both parts numeric.
func parseLatLon(s string) (float64, float64, bool) {
	parts := strings.SplitN(s, ",", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lon, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return lat, lon, true
}

func flush(logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = observability.FlushTelemetry(ctx, logger)
}

// Package main implements saltevents, a consumer for the salt-api event
// stream. It logs every event and can forward them to NATS.
package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/c360/saltstreams/config"
	"github.com/c360/saltstreams/event"
	"github.com/c360/saltstreams/health"
	"github.com/c360/saltstreams/metric"
	"github.com/c360/saltstreams/natsbridge"
	"github.com/c360/saltstreams/stream"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "saltevents"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	cli, err := parseFlags(args, stderr)
	if err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	if err := validateFlags(cli); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	if cli.ShowVersion {
		_, _ = fmt.Fprintf(stdout, "%s version %s\n", appName, Version)
		return nil
	}
	if cli.ShowHelp {
		return nil
	}

	cfg, err := loadConfiguration(cli)
	if err != nil {
		return err
	}

	logger := setupLogger(stdout, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	if cli.Validate {
		logger.Info("Configuration is valid")
		_, _ = fmt.Fprint(stdout, cfg.String())
		return nil
	}

	logger.Info("Starting saltevents",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cli.ConfigPath,
		"salt_url", cfg.Salt.URL)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return runStream(ctx, cfg, cli, logger)
}

// loadConfiguration loads the optional config file, environment and flag
// overrides, and validates the result
func loadConfiguration(cli *CLIConfig) (*config.Config, error) {
	loader := config.NewLoader()
	if cli.ConfigPath != "" {
		loader.AddLayer(cli.ConfigPath)
	}

	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	applyOverrides(cli, cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func runStream(ctx context.Context, cfg *config.Config, cli *CLIConfig, logger *slog.Logger) error {
	registry := metric.NewMetricsRegistry()
	monitor := health.NewMonitor()
	monitor.Update(streamComponent, health.FromStream(streamComponent, stream.StateConnecting, 0, ""))

	streamHealth := &healthListener{monitor: monitor}
	listeners := []stream.Listener{newEventLogger(logger, cli.TagPrefix), streamHealth}

	var stops []func(context.Context) error
	defer func() { stopAll(cli.ShutdownTimeout, stops) }()

	if cfg.Metrics.Enabled {
		server := metric.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, registry)
		server.SetHealthHandler(monitor.Handler(appName))
		if cfg.Metrics.EventHistory > 0 {
			history := newEventHistory(cfg.Metrics.EventHistory)
			server.Handle("/events", history)
			listeners = append(listeners, history)
		}
		if err := server.Start(); err != nil {
			return fmt.Errorf("start metrics server: %w", err)
		}
		logger.Info("Metrics server listening", "address", server.Address(), "path", cfg.Metrics.Path)
		stops = append(stops, server.Stop)
	}

	if cfg.NATS.Enabled {
		bridge, closeBridge, err := setupBridge(ctx, cfg, registry, monitor, logger)
		if err != nil {
			return err
		}
		stops = append(stops, closeBridge)
		listeners = append(listeners, bridge)
	}

	es, err := stream.Connect(ctx, cfg.Stream(),
		stream.WithLogger(logger),
		stream.WithMetrics(registry),
		stream.WithListeners(listeners...),
	)
	if err != nil {
		return fmt.Errorf("connect event stream: %w", err)
	}
	streamHealth.opened()

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
		_ = es.Close()
	case <-es.Done():
	}

	waitCtx, waitCancel := context.WithTimeout(context.Background(), cli.ShutdownTimeout)
	defer waitCancel()
	if err := es.Wait(waitCtx); err != nil {
		return fmt.Errorf("wait for event stream: %w", err)
	}

	code, reason, _ := es.CloseStatus()
	if ctx.Err() == nil && code != stream.CloseNormal && code != stream.CloseGoingAway {
		return fmt.Errorf("event stream closed: %d %s", code, reason)
	}

	logger.Info("saltevents shutdown complete")
	return nil
}

// setupBridge connects to NATS and returns the forwarding listener and a
// function that drains the connection
func setupBridge(
	ctx context.Context,
	cfg *config.Config,
	registry *metric.MetricsRegistry,
	monitor *health.Monitor,
	logger *slog.Logger,
) (*natsbridge.Listener, func(context.Context) error, error) {
	opts := append(cfg.NATSOptions(),
		natsbridge.WithClientLogger(logger),
		natsbridge.WithClientMetrics(registry),
		natsbridge.WithStatusCallback(func(status natsbridge.ConnectionStatus) {
			monitor.Update(natsComponent, health.FromNATS(natsComponent, status))
		}),
	)
	client, err := natsbridge.NewClient(cfg.NATS.URL, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("create NATS client: %w", err)
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.ConnectWithBackoff(connectCtx, cfg.NATS.ConnectBackoff); err != nil {
		return nil, nil, fmt.Errorf("connect to NATS: %w", err)
	}

	bridgeOpts := append(cfg.BridgeOptions(),
		natsbridge.WithLogger(logger),
		natsbridge.WithMetrics(registry),
	)
	bridge, err := natsbridge.NewListener(client, cfg.NATS.SubjectPrefix, bridgeOpts...)
	if err != nil {
		closeErr := client.Close(context.Background())
		return nil, nil, stderrors.Join(fmt.Errorf("create NATS bridge: %w", err), closeErr)
	}

	logger.Info("Forwarding events to NATS",
		"url", cfg.NATS.URL, "prefix", cfg.NATS.SubjectPrefix, "encoding", cfg.NATS.Encoding)
	return bridge, client.Close, nil
}

const (
	streamComponent = "event_stream"
	natsComponent   = "nats"
)

// healthListener reports the event stream state to the health monitor
type healthListener struct {
	monitor *health.Monitor

	mu     sync.Mutex
	closed bool
}

func (h *healthListener) opened() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.closed {
		h.monitor.Update(streamComponent, health.FromStream(streamComponent, stream.StateOpen, 0, ""))
	}
}

func (h *healthListener) Notify(event.Envelope) {}

func (h *healthListener) StreamClosed(code int, reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	h.monitor.Update(streamComponent, health.FromStream(streamComponent, stream.StateClosed, code, reason))
}

// stopAll runs the shutdown steps concurrently under one deadline
func stopAll(timeout time.Duration, stops []func(context.Context) error) {
	if len(stops) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var g errgroup.Group
	for _, stop := range stops {
		g.Go(func() error { return stop(ctx) })
	}
	if err := g.Wait(); err != nil {
		slog.Warn("Shutdown step failed", "error", err)
	}
}

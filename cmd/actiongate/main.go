// Package main implements the entry point for the actiongate gateway.
// Actiongate terminates web action HTTP traffic, authorizes and
// throttles callers, and bridges requests to invokers over NATS.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/redis/go-redis/v9"

	"github.com/c360/actiongate/config"
	"github.com/c360/actiongate/entitlement"
	"github.com/c360/actiongate/gateway"
	"github.com/c360/actiongate/invoke"
	"github.com/c360/actiongate/metric"
	"github.com/c360/actiongate/natsclient"
	"github.com/c360/actiongate/store"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "actiongate"
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

	if err := run(); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	cliCfg, logger, shouldExit, err := initializeCLI()
	if shouldExit || err != nil {
		return err
	}

	cfg, err := config.Load(cliCfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cliCfg.Validate {
		slog.Info("Configuration is valid")
		return nil
	}

	ctx := context.Background()
	plog := &printfLogger{logger: logger}
	registry := metric.NewRegistry()

	natsClient, err := connectNATS(ctx, cfg, plog, registry.Metrics)
	if err != nil {
		return err
	}
	defer func() { _ = natsClient.Close(context.Background()) }()

	auth, entities, err := buildStores(ctx, cfg, natsClient, plog)
	if err != nil {
		return err
	}

	throttle, redisClient := buildThrottle(cfg, plog, registry.Metrics)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	invoker := invoke.New(natsClient, invoke.Options{
		Subject:         cfg.Invoker.Subject,
		MaxBlockingWait: cfg.Invoker.MaxBlockingWait,
	}, plog)

	server, err := gateway.NewServer(gateway.Options{
		Auth:        auth,
		Entities:    entities,
		Throttle:    throttle,
		Invoker:     invoker,
		Metrics:     registry.Metrics,
		Logger:      plog,
		Port:        cfg.HTTP.Port,
		MaxBodySize: cfg.HTTP.MaxBodySize,
		ReadTimeout: cfg.HTTP.ReadTimeout,
		IdleTimeout: cfg.HTTP.IdleTimeout,
	})
	if err != nil {
		return fmt.Errorf("create gateway server: %w", err)
	}

	checks := []metric.HealthChecker{natsHealth{client: natsClient}}
	if redisClient != nil {
		checks = append(checks, redisHealth{client: redisClient})
	}
	opsServer := metric.NewServer(cfg.Ops.Port, cfg.Ops.Path, registry, checks...)

	return runServers(ctx, server, opsServer, cliCfg.ShutdownTimeout)
}

// initializeCLI parses flags and sets up logging
func initializeCLI() (*CLIConfig, *slog.Logger, bool, error) {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return nil, nil, false, fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil, nil, true, nil
	}

	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil, nil, true, nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	slog.Info("Starting actiongate (web action gateway)",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath)

	return cliCfg, logger, false, nil
}

// connectNATS creates and connects the NATS client, mirroring the
// connection state into the metrics gauge.
func connectNATS(
	ctx context.Context,
	cfg *config.Config,
	logger natsclient.Logger,
	metrics *metric.Metrics,
) (*natsclient.Client, error) {
	opts := []natsclient.ClientOption{
		natsclient.WithClientName(cfg.NATS.Name),
		natsclient.WithMaxReconnects(cfg.NATS.MaxReconnects),
		natsclient.WithReconnectWait(cfg.NATS.ReconnectWait),
		natsclient.WithLogger(logger),
	}
	if cfg.NATS.Username != "" {
		opts = append(opts, natsclient.WithCredentials(cfg.NATS.Username, cfg.NATS.Password))
	}
	if cfg.NATS.Token != "" {
		opts = append(opts, natsclient.WithToken(cfg.NATS.Token))
	}

	client, err := natsclient.NewClient(cfg.NATS.URLs[0], opts...)
	if err != nil {
		return nil, fmt.Errorf("create NATS client: %w", err)
	}

	client.OnHealthChange(func(healthy bool) {
		if healthy {
			metrics.NATSConnected.Set(1)
		} else {
			metrics.NATSConnected.Set(0)
		}
	})

	slog.Info("Connecting to NATS", "url", cfg.NATS.URLs[0])
	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Connect(connCtx); err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	metrics.NATSConnected.Set(1)

	return client, nil
}

// buildStores opens the identity and entity KV buckets and wraps them
// in the lookup stores.
func buildStores(
	ctx context.Context,
	cfg *config.Config,
	client *natsclient.Client,
	logger natsclient.Logger,
) (store.AuthStore, store.EntityStore, error) {
	identityBucket, err := client.KeyValueBucket(ctx, jetstream.KeyValueConfig{
		Bucket: store.IdentityBucket,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open identity bucket: %w", err)
	}

	entityBucket, err := client.KeyValueBucket(ctx, jetstream.KeyValueConfig{
		Bucket: store.EntityBucket,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open entity bucket: %w", err)
	}

	auth := store.NewAuthStore(
		client.NewKVStore(identityBucket), logger,
		store.WithIdentityCacheTTL(cfg.Store.IdentityCacheTTL))
	entities := store.NewEntityStore(client.NewKVStore(entityBucket), logger)

	return auth, entities, nil
}

// buildThrottle picks the shared Redis provider when an address is
// configured, otherwise process-local counters.
func buildThrottle(
	cfg *config.Config,
	logger entitlement.Logger,
	metrics *metric.Metrics,
) (entitlement.Provider, *redis.Client) {
	limits := entitlement.Limits{
		InvocationsPerMinute:  cfg.Throttle.InvocationsPerMinute,
		ConcurrentInvocations: cfg.Throttle.ConcurrentInvocations,
	}

	if cfg.Throttle.RedisAddr == "" {
		slog.Info("Throttling with process-local counters (no Redis configured)")
		metrics.RedisHealthy.Set(0)
		return entitlement.NewLocalProvider(limits), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Throttle.RedisAddr,
		Password: cfg.Throttle.RedisPassword,
		DB:       cfg.Throttle.RedisDB,
	})
	slog.Info("Throttling with shared Redis counters", "addr", cfg.Throttle.RedisAddr)
	metrics.RedisHealthy.Set(1)

	return entitlement.NewRedisProvider(client, limits, logger), client
}

// runServers starts both listeners and handles shutdown signals.
func runServers(
	ctx context.Context,
	server *gateway.Server,
	opsServer *metric.Server,
	shutdownTimeout time.Duration,
) error {
	signalCtx, signalCancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	errCh := make(chan error, 2)
	go func() {
		if err := server.Start(); err != nil {
			errCh <- fmt.Errorf("gateway server: %w", err)
		}
	}()
	go func() {
		if err := opsServer.Start(); err != nil {
			errCh <- fmt.Errorf("ops server: %w", err)
		}
	}()

	slog.Info("actiongate started (web action surfaces ready)")

	select {
	case <-signalCtx.Done():
		slog.Info("Received shutdown signal")
	case err := <-errCh:
		slog.Error("Server failed", "error", err)
		_ = opsServer.Stop()
		return err
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Error draining gateway server", "error", err)
		_ = opsServer.Stop()
		return err
	}
	if err := opsServer.Stop(); err != nil {
		slog.Error("Error stopping ops server", "error", err)
		return err
	}

	slog.Info("actiongate shutdown complete")
	return nil
}

// natsHealth reports NATS connectivity to the health probe.
type natsHealth struct {
	client *natsclient.Client
}

func (h natsHealth) Name() string  { return "nats" }
func (h natsHealth) Healthy() bool { return h.client.IsHealthy() }

// redisHealth reports throttle store reachability to the health probe.
type redisHealth struct {
	client *redis.Client
}

func (h redisHealth) Name() string { return "redis" }

func (h redisHealth) Healthy() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return h.client.Ping(ctx).Err() == nil
}

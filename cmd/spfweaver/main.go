// spfweaver flattens a domain's SPF policy into address-only TXT records.
// It reads the unflattened seed record from a zone file, recursively expands
// every mechanism that costs a DNS lookup, aggregates the collected networks,
// and publishes the chunked result to one or more targets (local zone files,
// SFTP, RFC 2136 dynamic updates).
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"sync"
	"syscall"
	"time"

	"gitlab.bluewillows.net/root/spfweaver/internal/config"
	"gitlab.bluewillows.net/root/spfweaver/internal/health"
	"gitlab.bluewillows.net/root/spfweaver/internal/metrics"
	"gitlab.bluewillows.net/root/spfweaver/internal/resolver"
	"gitlab.bluewillows.net/root/spfweaver/internal/zone"
	"gitlab.bluewillows.net/root/spfweaver/pkg/provider"
	"gitlab.bluewillows.net/root/spfweaver/pkg/spf"
	"gitlab.bluewillows.net/root/spfweaver/providers/rfc2136"
	"gitlab.bluewillows.net/root/spfweaver/providers/sftp"
	"gitlab.bluewillows.net/root/spfweaver/providers/zonefile"
)

// Version and BuildDate are set via ldflags during build.
// Example: -ldflags="-X main.Version=v1.0.0 -X main.BuildDate=2026-08-24"
var (
	Version   = "dev"
	BuildDate = "unknown"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file (YAML or TOML)")
	watch := flag.Bool("watch", false, "re-flatten periodically and serve health endpoints")
	dryRun := flag.Bool("dry-run", false, "render the record set to stdout without publishing")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 1 {
		usage()
		return errors.New("expected exactly one seed zone file argument")
	}
	seedPath := flag.Arg(0)

	// Load configuration first, fail fast on validation errors
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if *dryRun {
		cfg.DryRun = true
	}

	// Set up structured logging
	logger := setupLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	// Set build info metrics
	metrics.SetBuildInfo(Version, runtime.Version())

	domain := zone.DomainFromPath(seedPath)

	logger.Info("spfweaver starting",
		slog.String("version", Version),
		slog.String("build_date", BuildDate),
		slog.String("go_version", runtime.Version()),
		slog.String("domain", domain),
		slog.Bool("dry_run", cfg.DryRun),
		slog.Bool("watch", *watch),
	)

	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	res := resolver.New(resolver.Config{
		Nameservers: cfg.Nameservers,
		Timeout:     cfg.DNSTimeout,
		Retries:     cfg.DNSRetries,
	})

	// Initialize provider registry
	registry := provider.NewRegistry()
	registry.RegisterFactory("zonefile", zonefile.Factory(logger))
	registry.RegisterFactory("sftp", sftp.Factory(logger))
	registry.RegisterFactory("rfc2136", rfc2136.Factory(logger))
	if err := createProviderInstances(registry, cfg, filepath.Dir(seedPath)); err != nil {
		return err
	}
	defer closeProviders(registry, logger)

	r := &runner{
		cfg:       cfg,
		flattener: spf.New(res, spf.WithLogger(logger)),
		registry:  registry,
		logger:    logger,
		seedPath:  seedPath,
		domain:    domain,
	}

	if !*watch {
		return r.runOnce(ctx)
	}

	return runWatch(ctx, cancel, r)
}

// runWatch re-flattens on a timer and serves health and metrics endpoints
// until a shutdown signal arrives. Individual run failures are reported via
// /ready and metrics, not by exiting.
func runWatch(ctx context.Context, cancel context.CancelFunc, r *runner) error {
	logger := r.logger

	healthServer := health.New(r.cfg.HealthPort, health.WithLogger(logger))

	// Register provider health checkers for /ready endpoint
	for _, inst := range r.registry.All() {
		inst := inst // capture for closure
		healthServer.RegisterChecker("provider:"+inst.Name(), func(ctx context.Context) error {
			if err := inst.Ping(ctx); err != nil {
				metrics.ProviderHealthy.WithLabelValues(inst.Name()).Set(0)
				return err
			}
			metrics.ProviderHealthy.WithLabelValues(inst.Name()).Set(1)
			return nil
		})
	}
	healthServer.RegisterChecker("flatten", r.lastRunError)
	healthServer.RegisterDegradedChecker("flatten", r.lastRunWarnings)

	if err := healthServer.Start(); err != nil {
		return fmt.Errorf("starting health server: %w", err)
	}

	// Initial run; in watch mode a failure is reported, not fatal
	if err := r.runOnce(ctx); err != nil {
		logger.Error("flatten run failed", slog.String("error", err.Error()))
	}

	go func() {
		ticker := time.NewTicker(r.cfg.WatchInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				logger.Debug("periodic flatten triggered",
					slog.Duration("interval", r.cfg.WatchInterval),
				)
				if err := r.runOnce(ctx); err != nil {
					logger.Error("flatten run failed", slog.String("error", err.Error()))
				}
			}
		}
	}()

	logger.Info("spfweaver watching",
		slog.Duration("interval", r.cfg.WatchInterval),
		slog.Int("providers", len(r.registry.All())),
		slog.Int("health_port", r.cfg.HealthPort),
	)

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	logger.Info("received shutdown signal", slog.String("signal", sig.String()))

	logger.Info("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("health server shutdown error", slog.String("error", err.Error()))
	}

	logger.Info("spfweaver shutdown complete")
	return nil
}

// runner holds the state of the flatten-and-publish loop. The last run's
// outcome feeds the /ready endpoint in watch mode.
type runner struct {
	cfg       *config.Config
	flattener *spf.Flattener
	registry  *provider.Registry
	logger    *slog.Logger
	seedPath  string
	domain    string

	mu           sync.Mutex
	lastErr      error
	lastWarnings int
	ran          bool

	// lastPublished is the rendered output of the last successful publish.
	// Identical output is not republished in watch mode.
	lastPublished []byte
}

// runOnce performs one full flatten-and-publish cycle and records the
// outcome for health reporting and metrics.
func (r *runner) runOnce(ctx context.Context) error {
	start := time.Now()
	warnings, err := r.flattenAndPublish(ctx)
	metrics.FlattenDuration.Observe(time.Since(start).Seconds())

	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.FlattenRunsTotal.WithLabelValues(status).Inc()

	r.mu.Lock()
	r.lastErr = err
	r.lastWarnings = warnings
	r.ran = true
	r.mu.Unlock()

	return err
}

func (r *runner) flattenAndPublish(ctx context.Context) (warnings int, err error) {
	seed, err := zone.SeedRecord(r.seedPath, r.domain)
	if err != nil {
		return 0, err
	}

	result, err := r.flattener.Flatten(ctx, r.domain, seed)
	if err != nil {
		return 0, fmt.Errorf("flattening %s: %w", r.domain, err)
	}

	metrics.FlattenLookupsUsed.Set(float64(result.Lookups))
	metrics.FlattenWarningsTotal.Add(float64(result.Warnings))

	records, err := spf.BuildRecords(r.domain, result.Tokens, result.Terminators)
	if err != nil {
		return result.Warnings, err
	}

	r.logger.Info("flattening complete",
		slog.String("domain", r.domain),
		slog.Int("tokens", len(result.Tokens)),
		slog.Int("records", len(records)),
		slog.Int("lookups", result.Lookups),
		slog.Int("warnings", result.Warnings),
	)

	ttl := uint32(r.cfg.TTL)

	if r.cfg.DryRun {
		if _, err := os.Stdout.Write(zone.Render(r.domain, ttl, records)); err != nil {
			return result.Warnings, fmt.Errorf("writing rendered records: %w", err)
		}
		r.logger.Info("dry run, nothing published", slog.String("domain", r.domain))
		return result.Warnings, nil
	}

	set := toProviderRecords(records, ttl)

	rendered := zone.RenderSet(r.domain, set)
	r.mu.Lock()
	unchanged := bytes.Equal(rendered, r.lastPublished)
	r.mu.Unlock()
	if unchanged {
		r.logger.Debug("record set unchanged, skipping publish", slog.String("domain", r.domain))
		return result.Warnings, nil
	}

	var errs []error
	for _, inst := range r.registry.All() {
		if err := inst.Publish(ctx, r.domain, set); err != nil {
			metrics.PublishErrorsTotal.WithLabelValues(inst.Name()).Inc()
			r.logger.Error("publish failed",
				slog.String("provider", inst.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, err)
			continue
		}
		metrics.RecordsPublishedTotal.WithLabelValues(inst.Name()).Add(float64(len(set)))
		r.logger.Info("record set published",
			slog.String("provider", inst.Name()),
			slog.String("domain", r.domain),
			slog.Int("records", len(set)),
		)
	}

	if len(errs) > 0 {
		return result.Warnings, errors.Join(errs...)
	}

	r.mu.Lock()
	r.lastPublished = rendered
	r.mu.Unlock()
	return result.Warnings, nil
}

// lastRunError reports the most recent run's failure, if any.
func (r *runner) lastRunError(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.ran {
		return nil
	}
	return r.lastErr
}

// lastRunWarnings reports a degraded state when the most recent run skipped
// mechanisms with warnings.
func (r *runner) lastRunWarnings(_ context.Context) (bool, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lastWarnings == 0 {
		return false, ""
	}
	return true, fmt.Sprintf("last run produced %d warnings", r.lastWarnings)
}

// toProviderRecords converts the chunked records into publishable ones,
// splitting each record's content into TXT character-strings.
func toProviderRecords(records []spf.Record, ttl uint32) []provider.Record {
	out := make([]provider.Record, 0, len(records))
	for _, r := range records {
		out = append(out, provider.Record{
			Name:    r.Name,
			TTL:     ttl,
			Strings: r.Strings(),
		})
	}
	return out
}

// createProviderInstances builds the configured publish targets. When no
// provider is configured, a local zonefile target writing next to the seed
// file is created so that a bare invocation still produces output (the
// output path override takes precedence).
func createProviderInstances(registry *provider.Registry, cfg *config.Config, seedDir string) error {
	for _, inst := range cfg.Providers {
		if err := registry.CreateInstance(inst.Name, inst.TypeName, inst.ProviderConfig); err != nil {
			return fmt.Errorf("creating provider %s: %w", inst.Name, err)
		}
	}

	if len(cfg.Providers) == 0 && !cfg.DryRun {
		providerCfg := map[string]string{"DIR": seedDir}
		if cfg.Output != "" {
			providerCfg = map[string]string{"PATH": cfg.Output}
		}
		if err := registry.CreateInstance("output", "zonefile", providerCfg); err != nil {
			return fmt.Errorf("creating default output provider: %w", err)
		}
	}

	return nil
}

// closeProviders releases provider resources that hold connections.
func closeProviders(registry *provider.Registry, logger *slog.Logger) {
	for _, inst := range registry.All() {
		closer, ok := inst.(io.Closer)
		if !ok {
			continue
		}
		if err := closer.Close(); err != nil {
			logger.Warn("closing provider",
				slog.String("provider", inst.Name()),
				slog.String("error", err.Error()),
			)
		}
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [flags] <seed-zone-file>\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "The seed zone file must contain a TXT record at %s.<domain>\n", zone.SeedLabel)
	fmt.Fprintf(os.Stderr, "holding the unflattened SPF policy. The domain is derived from the\n")
	fmt.Fprintf(os.Stderr, "file name (example.com.zone flattens example.com).\n\nFlags:\n")
	flag.PrintDefaults()
}

func setupLogger(level, format string) *slog.Logger {
	logLevel := parseLogLevel(level)

	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	}

	return slog.New(handler)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

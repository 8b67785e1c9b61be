// Package cli provides common initialization shared by cmd/fintrack,
// cmd/ledger-worker and cmd/fintrack-cli.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fintrack/internal/aggregate"
	"fintrack/internal/backend"
	"fintrack/internal/cache"
	"fintrack/internal/config"
	"fintrack/internal/dashboard"
	applog "fintrack/internal/log"

	"github.com/joho/godotenv"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// makes it the slog default.
func SetupLogger(cfg *config.Config, component string) *applog.Logger {
	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: component,
		Output:    os.Stdout,
	})
	applog.SetDefault(logger)
	return logger
}

// Bootstrap loads .env and the configuration, sets up logging and runs
// validate. The process exits when validation fails.
func Bootstrap(component string, validate func(*config.Config) error) (*config.Config, *applog.Logger) {
	LoadEnvFile()
	cfg := config.Load()
	logger := SetupLogger(cfg, component)
	if validate != nil {
		if err := validate(cfg); err != nil {
			logger.Error("Configuration validation failed",
				applog.NewFields().WithError(err, applog.ErrorTypeConfiguration).ToSlice()...)
			os.Exit(1)
		}
	}
	return cfg, logger
}

// InitBackend creates the configured store or exits the process.
func InitBackend(ctx context.Context, logger *applog.Logger, cfg backend.Config) *backend.BackendResult {
	res, err := backend.NewFactory(logger).CreateBackend(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize backend",
			append(applog.NewFields().WithError(err, applog.ErrorTypeDatabase).ToSlice(),
				applog.FieldBackend, cfg.Type.String())...)
		os.Exit(1)
	}
	return res
}

// BuildDashboard wires the aggregation engine, the tax estimate and the
// summary cache over store. The cache is registered with manager when both
// are present.
func BuildDashboard(cfg *config.Config, store backend.Store, logger *applog.Logger, manager *cache.Manager) *dashboard.Service {
	engine := aggregate.New(store, store,
		aggregate.WithTaxEstimator(aggregate.TaxEstimatorForRate(cfg.TaxFlatRate)))

	opts := []dashboard.Option{dashboard.WithLogger(logger)}
	if cfg.SummaryCacheSize > 0 && cfg.SummaryCacheTTL > 0 {
		summaries := cache.NewLRUCache[dashboard.SummaryView](cfg.SummaryCacheSize, cfg.SummaryCacheTTL)
		if manager != nil {
			manager.Register(summaries)
		}
		opts = append(opts, dashboard.WithSummaryCache(summaries))
	}
	return dashboard.New(engine, store, opts...)
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(logger *applog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// GracefulShutdown runs cleanup with a deadline of timeout.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- cleanup(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			logger.Error("Shutdown error",
				applog.NewFields().WithOperation(applog.OpShutdown).WithError(err, applog.ErrorTypeInternal).ToSlice()...)
			return
		}
		logger.Info("Shutdown complete")
	case <-ctx.Done():
		logger.Warn("Shutdown timeout reached")
	}
}

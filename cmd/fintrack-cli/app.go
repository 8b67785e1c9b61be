package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"fintrack/internal/backend"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/core"
	"fintrack/internal/dashboard"
	applog "fintrack/internal/log"

	"github.com/charmbracelet/glamour"
)

// app is the configuration and logger shared by every subcommand. Logs go
// to stderr so reports on stdout stay clean.
type app struct {
	cfg    *config.Config
	logger *applog.Logger
}

func loadApp() (*app, error) {
	cli.LoadEnvFile()
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: applog.ComponentCLI,
		Output:    os.Stderr,
	})
	applog.SetDefault(logger)
	return &app{cfg: cfg, logger: logger}, nil
}

// openBackend opens the configured primary store.
func (a *app) openBackend(ctx context.Context) (*backend.BackendResult, error) {
	bc, err := backend.FromAppConfig(a.cfg)
	if err != nil {
		return nil, err
	}
	return backend.NewFactory(a.logger).CreateBackend(ctx, bc)
}

// dashboard opens the primary store and builds an uncached dashboard over
// it. The returned cleanup closes the store.
func (a *app) dashboard(ctx context.Context) (*dashboard.Service, func(), error) {
	res, err := a.openBackend(ctx)
	if err != nil {
		return nil, nil, err
	}
	svc := cli.BuildDashboard(a.cfg, res.Store, a.logger, nil)
	return svc, func() {
		if err := res.Close(); err != nil {
			a.logger.Warn("Failed to close backend", "error", err)
		}
	}, nil
}

// output writes v as indented JSON when asJSON is set, the raw Markdown when
// raw is set, and a glamour rendering otherwise.
func output(v any, md string, asJSON, raw bool) error {
	switch {
	case asJSON:
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case raw:
		_, err := fmt.Fprint(os.Stdout, md)
		return err
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return fmt.Errorf("creating markdown renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return fmt.Errorf("rendering markdown: %w", err)
	}
	_, err = fmt.Fprint(os.Stdout, out)
	return err
}

// selector resolves -preset into a (kind, year, month) selector. An empty
// preset keeps the explicit flags.
func selector(preset string, kind core.PeriodKind, year, month int, now time.Time) (core.PeriodKind, int, int, error) {
	if preset == "" {
		return kind, year, month, nil
	}
	p, err := core.ParsePreset(preset)
	if err != nil {
		return "", 0, 0, err
	}
	period := p.Resolve(now)
	return period.Kind, period.Year(), period.Month(), nil
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"fintrack/internal/backend"
	"fintrack/internal/cache"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	apphttp "fintrack/internal/http"
	applog "fintrack/internal/log"
)

func main() {
	cfg, logger := cli.Bootstrap(applog.ComponentApp, (*config.Config).Validate)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	res := cli.InitBackend(ctx, logger, backendCfg)

	cacheManager := cache.NewManager(logger)
	svc := cli.BuildDashboard(cfg, res.Store, logger, cacheManager)
	cacheManager.StartCleanup(time.Minute)

	srv := apphttp.NewServer(apphttp.ServerConfig{
		Addr:           ":" + cfg.Port,
		IdentityHeader: cfg.IdentityHeader,
		StoreTimeout:   cfg.StoreTimeout,
		RateLimitRPM:   cfg.RateLimitRPM,
	}, svc, res.Store, logger)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting fintrack server",
			"port", cfg.Port,
			applog.FieldBackend, res.Type.String(),
			"identity_header", cfg.IdentityHeader)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	exitCode := 0
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			logger.Error("Server error", "error", err, "port", cfg.Port)
			exitCode = 1
		}
	}

	cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) error {
		err := srv.Shutdown(ctx)
		cacheManager.Stop()
		return errors.Join(err, res.Close())
	})
	logger.Info("Server stopped")
	os.Exit(exitCode)
}

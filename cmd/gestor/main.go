package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"gestor/internal/backend"
	"gestor/internal/cli"
	"gestor/internal/clock"
	apphttp "gestor/internal/http"
	"gestor/internal/log"
	"gestor/internal/services"
)

func main() {
	cfg := cli.LoadConfig()
	logger := cli.SetupLogger(cfg)
	cli.MustValidate(logger, cfg.ValidateServer)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger.Logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to create backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	wall := clock.NewReal()
	reports := services.NewReportService(result.Backend, result.Backend, wall, logger)
	srv := apphttp.NewServer(apphttp.Config{
		Addr:           ":" + cfg.Port,
		JWTSecret:      cfg.JWTSecret,
		ReportTimeout:  cfg.ReportTimeout,
		CacheTTL:       cfg.ReportCacheTTL,
		CacheSize:      cfg.ReportCacheSize,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	}, reports, result.Backend, wall, logger)

	_, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	started := wall.Now()
	logger.Info("Starting gestor server",
		log.FieldOperation, log.OpStartup,
		"port", cfg.Port,
		"backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		closeBackend(logger, result)
		os.Exit(1)
	}

	<-done
	closeBackend(logger, result)
	logger.Info("Server stopped gracefully", "uptime", wall.Now().Sub(started).Round(time.Second).String())
}

func closeBackend(logger *log.Logger, result *backend.BackendResult) {
	if result.Cleanup == nil {
		return
	}
	if err := result.Cleanup(); err != nil {
		logger.Error("Failed to close backend", log.FieldError, err)
	}
}

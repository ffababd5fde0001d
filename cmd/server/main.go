package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/netutil"

	httpadapter "github.com/kem-osh/write-wellspring/internal/adapters/http"
	"github.com/kem-osh/write-wellspring/internal/bootstrap"
	"github.com/kem-osh/write-wellspring/internal/config"
	"github.com/kem-osh/write-wellspring/internal/observability/logging"
	"github.com/kem-osh/write-wellspring/internal/observability/metrics"
)

const serviceName = "wellspring-server"

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_load_failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, serviceName, logger)
	if err != nil {
		logger.Error("bootstrap_failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer app.Close()

	httpMetrics := metrics.NewHTTPServerMetrics(serviceName)
	router := httpadapter.NewRouter(cfg, app.Uploads, app.Documents).Handler()
	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      httpMetrics.Middleware(router),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	gatherers := prometheus.Gatherers{app.Pipeline.Registry(), httpMetrics.Registry()}
	metricsServer := &http.Server{
		Addr:        ":" + cfg.MetricsPort,
		Handler:     promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{}),
		ReadTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("metrics_listening", slog.String("port", cfg.MetricsPort))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics_server_failed", slog.Any("error", err))
		}
	}()

	go func() {
		listener, err := net.Listen("tcp", server.Addr)
		if err != nil {
			logger.Error("api_listen_failed", slog.Any("error", err))
			stop()
			return
		}
		if cfg.APIMaxConnections > 0 {
			listener = netutil.LimitListener(listener, cfg.APIMaxConnections)
		}
		logger.Info("api_listening", slog.String("port", cfg.APIPort))
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api_server_failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("api_shutdown_error", slog.Any("error", err))
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("metrics_shutdown_error", slog.Any("error", err))
	}

	drainCtx, cancelDrain := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelDrain()
	if err := app.Uploads.Drain(drainCtx); err != nil {
		logger.Warn("upload_drain_timeout", slog.Any("error", err))
	}
}

// cmd/worker-relay/main.go
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"worker-relay/internal/assistant"
	"worker-relay/internal/common/admin"
	"worker-relay/internal/common/config"
	commonhttp "worker-relay/internal/common/http"
	"worker-relay/internal/common/logger"
	"worker-relay/internal/common/observability"
	"worker-relay/internal/relay"
)

func main() {
	zapLog := logger.New("info", "json")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog = logger.New(cfg.Logging.Level, cfg.Logging.Format).With(
		zap.String("service", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)
	if cfg.EnvFile != "" {
		zapLog.Info("loaded environment file", zap.String("path", cfg.EnvFile))
	}

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	// --- Assistant client ---
	assistantCfg := assistant.LoadConfig(cfg)
	httpClient := commonhttp.NewClient(
		config.GetDuration(cfg.OpenAI.RequestTimeout),
		cfg.App.Name+"/"+cfg.App.Version,
	)
	asker := assistant.NewClient(
		assistantCfg,
		assistant.NewOpenAIAPI(assistantCfg, httpClient),
		&assistantLoggerAdapter{log},
	).WithRecorder(obs)

	handler := relay.NewHandler(relay.LoadConfig(), asker, &relayLoggerAdapter{log}).WithRecorder(obs)

	// --- Health & Metrics Server ---
	adminServer := admin.NewServer(prometheus.DefaultGatherer)
	var adminHTTP *http.Server
	if cfg.AdminEnabled() {
		adminHTTP = &http.Server{
			Addr:              cfg.Server.AdminAddress,
			Handler:           adminServer.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.Server.AdminAddress))
			if err := adminHTTP.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				zapLog.Error("Health/Metrics server failed", zap.Error(err))
			}
		}()
	}

	// --- Relay Server ---
	server := &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           handler,
		ReadHeaderTimeout: config.GetDuration(cfg.Server.ReadHeaderTimeout),
		IdleTimeout:       config.GetDuration(cfg.Server.IdleTimeout),
	}

	listener, err := net.Listen("tcp", server.Addr)
	if err != nil {
		zapLog.Fatal("relay listen failed", zap.String("address", server.Addr), zap.Error(err))
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(listener)
	}()
	adminServer.SetReady(true)
	zapLog.Info("Worker relay listening",
		zap.String("address", server.Addr),
		zap.String("route", relay.Route),
		zap.Duration("pollInterval", assistantCfg.PollInterval),
	)

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		zapLog.Info("Shutdown signal received, draining requests...", zap.String("signal", sig.String()))
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("relay server failed", zap.Error(err))
		}
	}
	adminServer.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down relay server", zap.Error(err))
	}
	if adminHTTP != nil {
		if err := adminHTTP.Shutdown(shutdownCtx); err != nil {
			zapLog.Error("Error shutting down Health/Metrics server", zap.Error(err))
		}
	}

	zapLog.Info("Worker relay stopped gracefully")
}

// Logger adapters for packages that have their own Logger interfaces
type relayLoggerAdapter struct {
	logger.Logger
}

func (a *relayLoggerAdapter) With(fields map[string]interface{}) relay.Logger {
	return &relayLoggerAdapter{a.Logger.With(fields)}
}

type assistantLoggerAdapter struct {
	logger.Logger
}

func (a *assistantLoggerAdapter) With(fields map[string]interface{}) assistant.Logger {
	return &assistantLoggerAdapter{a.Logger.With(fields)}
}

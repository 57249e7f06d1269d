package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/kirillkom/docudesk/internal/adapters/http"
	"github.com/kirillkom/docudesk/internal/bootstrap"
	"github.com/kirillkom/docudesk/internal/config"
	"github.com/kirillkom/docudesk/internal/observability/logging"
	"github.com/kirillkom/docudesk/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logging.NewJSONLogger("api", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	serverMetrics := metrics.NewHTTPServerMetrics("api")

	router := httpadapter.NewRouter(cfg, app.IngestUC, app.AnalyzeUC, app.LibraryUC, app.OCRToolUC, serverMetrics).Handler()
	mux := http.NewServeMux()
	mux.Handle("/", router)
	mux.Handle("/metrics", serverMetrics.Handler())

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("api listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("api server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("api shutdown failed", "error", err)
	}
}

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/docudesk/internal/bootstrap"
	"github.com/kirillkom/docudesk/internal/config"
	"github.com/kirillkom/docudesk/internal/core/domain"
	"github.com/kirillkom/docudesk/internal/observability/logging"
	"github.com/kirillkom/docudesk/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logging.NewJSONLogger("worker", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	app.Notifier.SetFailureHook(func(event string) {
		workerMetrics.RecordNotificationFailure("worker", event)
	})
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		slog.Info("worker metrics listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("worker metrics server failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	slog.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeStages(ctx, func(handlerCtx context.Context, task domain.PipelineTask) error {
		if task.EnqueuedAt > 0 {
			workerMetrics.ObserveQueueLag("worker", time.Since(time.Unix(task.EnqueuedAt, 0)))
		}

		processCtx, cancel := context.WithTimeout(handlerCtx, 10*time.Minute)
		defer cancel()

		workerMetrics.StartStage()
		start := time.Now()
		err := app.ProcessUC.ProcessTask(processCtx, task)
		workerMetrics.FinishStage("worker", "ocr", time.Since(start), err)
		if task.Cascade {
			workerMetrics.RecordCascade("worker", err)
		}
		return err
	})
	if err != nil {
		slog.Error("worker subscribe failed", "error", err)
		os.Exit(1)
	}
}

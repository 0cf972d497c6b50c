package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mpetrenko/taxmate/internal/bootstrap"
	"github.com/mpetrenko/taxmate/internal/config"
	"github.com/mpetrenko/taxmate/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, "worker", cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", workerMetrics.Handler())
	metricsMux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: metricsMux,
	}
	go func() {
		app.Logger.Info("worker_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.Logger.Error("worker_metrics_server_error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	app.Logger.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeDocumentUploaded(ctx, func(handlerCtx context.Context, documentID string) error {
		processCtx, cancel := context.WithTimeout(handlerCtx, cfg.WorkerProcessTimeout)
		defer cancel()

		if cfg.WorkerQueueLagEnabled {
			if doc, err := app.Docs.GetByID(processCtx, documentID); err == nil {
				workerMetrics.ObserveQueueLag("worker", time.Since(doc.CreatedAt))
			}
		}

		workerMetrics.StartDocument()
		start := time.Now()
		// The empty user id marks the system itself as the caller; ownership
		// checks are skipped for queue-driven processing.
		_, err := app.ProcessUC.Process(processCtx, "", documentID)
		workerMetrics.FinishDocument("worker", time.Since(start), err)
		return err
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}

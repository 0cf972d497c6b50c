package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/mpetrenko/taxmate/internal/adapters/http"
	"github.com/mpetrenko/taxmate/internal/bootstrap"
	"github.com/mpetrenko/taxmate/internal/config"
	"github.com/mpetrenko/taxmate/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, "api", cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	traffic := httpadapter.NewTrafficControl(
		cfg.RateLimitRPS,
		cfg.RateLimitBurst,
		cfg.MaxConcurrent,
		time.Duration(cfg.GateTimeoutMillis)*time.Millisecond,
	)
	router := httpadapter.NewRouter(
		app.UploadUC,
		app.ProcessUC,
		app.MonitorUC,
		app.ReturnSvc,
		app.ReturnSvc,
		app.Docs,
		app.Exporter,
		traffic,
		cfg.DevMode,
	)

	httpMetrics := metrics.NewHTTPServerMetrics("api")
	mux := http.NewServeMux()
	mux.Handle("/metrics", httpMetrics.Handler())
	mux.Handle("/", httpMetrics.Middleware("api", router.Handler()))

	server := &http.Server{
		Addr:        ":" + cfg.APIPort,
		Handler:     mux,
		ReadTimeout: 30 * time.Second,
		// Write timeout would sever long-lived status streams; per-request
		// deadlines come from the client context instead.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		app.Logger.Info("api_listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("api server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		app.Logger.Error("api_shutdown_error", "error", err)
	}
}

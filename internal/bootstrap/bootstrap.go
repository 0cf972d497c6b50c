package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mpetrenko/taxmate/internal/config"
	"github.com/mpetrenko/taxmate/internal/core/ports"
	"github.com/mpetrenko/taxmate/internal/core/usecase"
	"github.com/mpetrenko/taxmate/internal/infrastructure/duplicate"
	"github.com/mpetrenko/taxmate/internal/infrastructure/fulltext"
	"github.com/mpetrenko/taxmate/internal/infrastructure/llm/ollama"
	"github.com/mpetrenko/taxmate/internal/infrastructure/ocr"
	"github.com/mpetrenko/taxmate/internal/infrastructure/queue/nats"
	"github.com/mpetrenko/taxmate/internal/infrastructure/report"
	"github.com/mpetrenko/taxmate/internal/infrastructure/repository/postgres"
	"github.com/mpetrenko/taxmate/internal/infrastructure/resilience"
	"github.com/mpetrenko/taxmate/internal/infrastructure/storage/localfs"
	"github.com/mpetrenko/taxmate/internal/observability/logging"
)

// App wires the whole dependency graph once; the api and worker binaries pick
// the pieces they need.
type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue ports.MessageQueue
	Docs  ports.DocumentRepository

	UploadUC  ports.DocumentUploader
	ProcessUC ports.DocumentProcessor
	MonitorUC ports.StatusMonitor
	ReturnSvc *usecase.ReturnServiceUseCase
	Exporter  ports.ReturnExporter

	closeFn func()
}

func New(ctx context.Context, service string, cfg config.Config) (*App, error) {
	logger := logging.NewJSONLogger(service, cfg.LogLevel)
	slog.SetDefault(logger)

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	docs := postgres.NewDocumentRepository(db)
	income := postgres.NewIncomeEntryRepository(db)
	returns := postgres.NewTaxReturnRepository(db)
	uow := postgres.NewUnitOfWork(db)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts: cfg.RetryMaxAttempts,
		BreakerEnabled:   cfg.BreakerEnabled,
	})

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	extractor := ocr.New(cfg.OCRServiceURL, storage, executor)
	classifier := ollama.NewStateClassifier(ollama.New(cfg.OllamaURL, cfg.OllamaModel), executor)
	duplicates := duplicate.New(cfg.DuplicateServiceURL, executor)
	sniffer := fulltext.NewSniffer(storage)

	detector := usecase.NewStateDetector(classifier, logger)
	mapper := usecase.NewTaxMapper()
	recalc := usecase.NewRecalculator(usecase.NewCalculator())

	processUC := usecase.NewProcessDocumentUseCase(
		uow, docs, returns, income,
		extractor, sniffer, detector, duplicates, mapper, recalc,
		logger,
	)
	uploadUC := usecase.NewUploadDocumentUseCase(docs, returns, storage, queue, logger)
	monitorUC := usecase.NewStatusMonitorUseCase(docs, returns, usecase.MonitorConfig{
		PollInterval: time.Duration(cfg.MonitorPollSeconds) * time.Second,
		MaxPolls:     cfg.MonitorMaxPolls,
	}, logger)
	returnSvc := usecase.NewReturnServiceUseCase(uow, docs, income, returns, recalc, processUC, logger)

	return &App{
		Config: cfg,
		Logger: logger,

		Queue: queue,
		Docs:  docs,

		UploadUC:  uploadUC,
		ProcessUC: processUC,
		MonitorUC: monitorUC,
		ReturnSvc: returnSvc,
		Exporter:  report.NewXLSXExporter(),

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

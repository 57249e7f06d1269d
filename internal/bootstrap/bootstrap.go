package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kirillkom/docudesk/internal/config"
	"github.com/kirillkom/docudesk/internal/core/domain"
	"github.com/kirillkom/docudesk/internal/core/ports"
	"github.com/kirillkom/docudesk/internal/core/usecase"
	"github.com/kirillkom/docudesk/internal/infrastructure/extractor/docextract"
	"github.com/kirillkom/docudesk/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/docudesk/internal/infrastructure/notify/shoutrrr"
	"github.com/kirillkom/docudesk/internal/infrastructure/ocr/remote"
	"github.com/kirillkom/docudesk/internal/infrastructure/queue/nats"
	"github.com/kirillkom/docudesk/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/docudesk/internal/infrastructure/resilience"
	"github.com/kirillkom/docudesk/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/docudesk/internal/infrastructure/storage/miniodrive"
)

type App struct {
	Config config.Config

	Queue       *nats.Queue
	Docs        ports.DocumentRepository
	Connections ports.ConnectionRepository
	Notifier    *shoutrrr.Notifier

	IngestUC  ports.DocumentIngestor
	AnalyzeUC ports.DocumentAnalysisService
	LibraryUC ports.DocumentLibrary
	ProcessUC ports.StageProcessor
	OCRToolUC ports.OCRToolService

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	docs := postgres.NewDocumentRepository(db)
	analyses := postgres.NewAnalysisRepository(db)
	activities := postgres.NewActivityRepository(db)
	connections := postgres.NewConnectionRepository(db)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: resilience.NewExecutor(resilience.DefaultConfig()),
	})
	if err != nil {
		return nil, fmt.Errorf("init pipeline queue: %w", err)
	}

	// Separate breaker and per-attempt timeout per external capability.
	ocrExecutor := executorWithTimeout(cfg.OCRTimeoutSeconds)
	analyzeExecutor := executorWithTimeout(cfg.AnalyzeTimeoutSeconds)

	var drive ports.DriveStore
	driveStatus := domain.ConnectionDisconnected
	if cfg.DriveEndpoint != "" {
		driveCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.DriveTimeoutSeconds)*time.Second)
		d, err := miniodrive.New(driveCtx, miniodrive.Config{
			Endpoint:  cfg.DriveEndpoint,
			AccessKey: cfg.DriveAccessKey,
			SecretKey: cfg.DriveSecretKey,
			Bucket:    cfg.DriveBucket,
			UseSSL:    cfg.DriveUseSSL,
		})
		cancel()
		if err != nil {
			// Drive is optional: processing works without the remote copy.
			slog.Warn("drive storage unavailable", "endpoint", cfg.DriveEndpoint, "error", err)
			driveStatus = domain.ConnectionError
		} else {
			drive = d
			driveStatus = domain.ConnectionConnected
		}
	}

	notifier, err := shoutrrr.New(splitURLs(cfg.NotifyURLs), shoutrrr.Settings{
		Enabled:     cfg.NotifyEnabled,
		OnUpload:    cfg.NotifyOnUpload,
		OnOCRDone:   cfg.NotifyOnOCRComplete,
		OnAnalysis:  cfg.NotifyOnAnalysisDone,
		ServiceName: cfg.NotifyServiceName,
		Timeout:     time.Duration(cfg.NotifyTimeoutSeconds) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("init notifier: %w", err)
	}

	recognizer := remote.New(cfg.OCRServiceURL, time.Duration(cfg.OCRTimeoutSeconds)*time.Second, ocrExecutor)
	extractor := docextract.New(storage, recognizer)

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, time.Duration(cfg.AnalyzeTimeoutSeconds)*time.Second)
	analyzer := ollama.NewAnalyzer(ollamaClient, analyzeExecutor)

	locks := usecase.NewDocumentLocks()
	ingestUC := usecase.NewIngestUseCase(docs, activities, storage, drive, queue, cfg.MaxUploadBytes, cfg.OCRLanguage)
	analyzeUC := usecase.NewAnalyzeUseCase(docs, analyses, activities, analyzer, notifier, locks, cfg.AnalyzeMaxInputChars)
	processUC := usecase.NewPipelineUseCase(docs, activities, extractor, analyzeUC, notifier, locks)
	libraryUC := usecase.NewLibraryUseCase(docs, analyses, activities, connections, storage)

	recordConnections(ctx, connections, activities, cfg, driveStatus)

	return &App{
		Config: cfg,

		Queue:       queue,
		Docs:        docs,
		Connections: connections,
		Notifier:    notifier,

		IngestUC:  ingestUC,
		AnalyzeUC: analyzeUC,
		LibraryUC: libraryUC,
		ProcessUC: processUC,
		OCRToolUC: processUC,

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

func executorWithTimeout(seconds int) *resilience.Executor {
	cfg := resilience.DefaultConfig()
	if seconds > 0 {
		cfg.CallTimeout = time.Duration(seconds) * time.Second
	}
	return resilience.NewExecutor(cfg)
}

// recordConnections publishes integration state for the dashboard.
// Failures here never block startup.
func recordConnections(ctx context.Context, connections ports.ConnectionRepository, activities ports.ActivityRepository, cfg config.Config, driveStatus domain.ConnectionStatus) {
	upsert := func(connType, name string, status domain.ConnectionStatus) {
		if _, err := connections.Upsert(ctx, connType, name, status); err != nil {
			slog.Warn("record connection state failed", "name", name, "error", err)
			return
		}
		activity := &domain.Activity{
			Type:        domain.ActivityIntegration,
			Description: fmt.Sprintf("%s %s", name, status),
			CreatedAt:   time.Now().UTC(),
		}
		if err := activities.Create(ctx, activity); err != nil {
			slog.Warn("record integration activity failed", "name", name, "error", err)
		}
	}

	upsert("drive", "minio", driveStatus)

	notifyStatus := domain.ConnectionDisconnected
	if cfg.NotifyEnabled && cfg.NotifyURLs != "" {
		notifyStatus = domain.ConnectionConnected
	}
	upsert("notifier", "shoutrrr", notifyStatus)

	upsert("ocr", "ocr-service", domain.ConnectionConnected)
	upsert("llm", "ollama", domain.ConnectionConnected)
}

func splitURLs(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

package ports

import (
	"context"
	"io"

	"github.com/kirillkom/docudesk/internal/core/domain"
)

// DocumentIngestor is the inbound contract for upload orchestration and
// stage scheduling.
type DocumentIngestor interface {
	Upload(ctx context.Context, filename, mimeType string, size int64, body io.Reader, opts domain.UploadOptions) (*domain.Document, error)
	ScheduleOCR(ctx context.Context, documentID int64, language string) error
	ImportFromDrive(ctx context.Context, objectKey string) (*domain.Document, error)
}

// StageProcessor is the inbound contract for queued pipeline stages.
type StageProcessor interface {
	ProcessTask(ctx context.Context, task domain.PipelineTask) error
}

// OCRToolService is the ad-hoc recognition surface: either a transient
// upload that is recognized and discarded, or a re-run against a stored
// document. Neither form chains into analysis.
type OCRToolService interface {
	RecognizeUpload(ctx context.Context, filename, mimeType string, data []byte, language string) (string, error)
	RecognizeDocument(ctx context.Context, documentID int64, language string) (string, error)
}

// DocumentAnalysisService runs the synchronous analysis stage.
type DocumentAnalysisService interface {
	Analyze(ctx context.Context, documentID int64, prompt string) (*domain.Analysis, error)
}

// DocumentLibrary is the read/delete surface behind the dashboard.
type DocumentLibrary interface {
	GetDocument(ctx context.Context, id int64) (*domain.Document, error)
	ListDocuments(ctx context.Context, limit int) ([]domain.Document, error)
	SearchDocuments(ctx context.Context, query string, limit int) ([]domain.Document, error)
	DeleteDocument(ctx context.Context, id int64) error
	AnalysesByDocument(ctx context.Context, documentID int64) ([]domain.Analysis, error)
	RecentAnalyses(ctx context.Context, limit int) ([]domain.Analysis, error)
	RecentActivities(ctx context.Context, limit int) ([]domain.Activity, error)
	Connections(ctx context.Context) ([]domain.ServiceConnection, error)
	Stats(ctx context.Context) (domain.Stats, error)
}

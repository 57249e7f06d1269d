package ports

import (
	"context"
	"io"

	"github.com/kirillkom/docudesk/internal/core/domain"
)

// DocumentRepository persists and reads document state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id int64) (*domain.Document, error)
	ListRecent(ctx context.Context, limit int) ([]domain.Document, error)
	SearchByKeyword(ctx context.Context, query string, limit int) ([]domain.Document, error)
	UpdateStatus(ctx context.Context, id int64, status domain.DocumentStatus) error
	SaveOCRResult(ctx context.Context, id int64, content string) error
	MarkAnalyzed(ctx context.Context, id int64) error
	SetDriveID(ctx context.Context, id int64, driveID string) error
	Delete(ctx context.Context, id int64) error
	Stats(ctx context.Context) (domain.Stats, error)
}

// AnalysisRepository persists immutable analysis records.
type AnalysisRepository interface {
	Create(ctx context.Context, analysis *domain.Analysis) error
	ListByDocument(ctx context.Context, documentID int64) ([]domain.Analysis, error)
	ListRecent(ctx context.Context, limit int) ([]domain.Analysis, error)
}

// ActivityRepository appends and reads the audit trail.
type ActivityRepository interface {
	Create(ctx context.Context, activity *domain.Activity) error
	ListRecent(ctx context.Context, limit int) ([]domain.Activity, error)
}

// ConnectionRepository tracks external integration state.
type ConnectionRepository interface {
	Upsert(ctx context.Context, connType, name string, status domain.ConnectionStatus) (*domain.ServiceConnection, error)
	List(ctx context.Context) ([]domain.ServiceConnection, error)
}

// ObjectStorage stores source documents locally.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
}

// DriveStore is the remote storage capability. Upload failures on the
// upload path are non-fatal to local processing.
type DriveStore interface {
	Upload(ctx context.Context, key string, data io.Reader, size int64, contentType string) (string, error)
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)
	Stat(ctx context.Context, objectKey string) (DriveObjectInfo, error)
}

// DriveObjectInfo is remote object metadata used by drive import.
type DriveObjectInfo struct {
	Key         string
	Name        string
	ContentType string
	SizeBytes   int64
}

// PipelineQueue carries fire-and-forget stage tasks to the worker.
type PipelineQueue interface {
	PublishStage(ctx context.Context, task domain.PipelineTask) error
	SubscribeStages(ctx context.Context, handler func(context.Context, domain.PipelineTask) error) error
}

// TextExtractor produces text for a stored document, given an OCR
// language hint. The recognition algorithm itself is a black box.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document, language string) (string, error)
	ExtractBytes(ctx context.Context, filename, mimeType string, data []byte, language string) (string, error)
}

// DocumentAnalyzer produces analysis text for extracted content with an
// optional user instruction.
type DocumentAnalyzer interface {
	Analyze(ctx context.Context, content, instruction string) (string, error)
	Model() string
}

// Notifier delivers best-effort event notifications.
type Notifier interface {
	Notify(ctx context.Context, event domain.NotificationEvent) error
}

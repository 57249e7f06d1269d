package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/docudesk/internal/core/domain"
	"github.com/kirillkom/docudesk/internal/core/ports"
)

// IngestUseCase is the entry point of the document pipeline: direct
// uploads, drive imports, and OCR re-run scheduling. Stage execution
// itself happens in the worker; this side only persists the pending
// document and publishes tasks.
type IngestUseCase struct {
	docs       ports.DocumentRepository
	activities ports.ActivityRepository
	storage    ports.ObjectStorage
	drive      ports.DriveStore
	queue      ports.PipelineQueue

	maxUploadBytes  int64
	defaultLanguage string
}

func NewIngestUseCase(
	docs ports.DocumentRepository,
	activities ports.ActivityRepository,
	storage ports.ObjectStorage,
	drive ports.DriveStore,
	queue ports.PipelineQueue,
	maxUploadBytes int64,
	defaultLanguage string,
) *IngestUseCase {
	return &IngestUseCase{
		docs:            docs,
		activities:      activities,
		storage:         storage,
		drive:           drive,
		queue:           queue,
		maxUploadBytes:  maxUploadBytes,
		defaultLanguage: defaultLanguage,
	}
}

func (uc *IngestUseCase) Upload(
	ctx context.Context,
	filename, mimeType string,
	size int64,
	body io.Reader,
	opts domain.UploadOptions,
) (*domain.Document, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload", errors.New("filename is required"))
	}
	if size <= 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload", errors.New("empty file"))
	}
	if size > uc.maxUploadBytes {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload",
			fmt.Errorf("file size %d exceeds limit %d", size, uc.maxUploadBytes))
	}

	storageKey := fmt.Sprintf("%s_%s", uuid.NewString(), sanitizeFilename(filename))
	if err := uc.storage.Save(ctx, storageKey, io.LimitReader(body, uc.maxUploadBytes)); err != nil {
		return nil, fmt.Errorf("save upload: %w", err)
	}

	now := time.Now().UTC()
	doc := &domain.Document{
		Name:      filename,
		MimeType:  mimeType,
		SizeBytes: size,
		Status:    domain.StatusPending,
		URL:       storageKey,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.docs.Create(ctx, doc); err != nil {
		// No document row means nothing references the stored file.
		if removeErr := uc.storage.Remove(ctx, storageKey); removeErr != nil {
			slog.Warn("remove orphaned upload failed", "key", storageKey, "error", removeErr)
		}
		return nil, fmt.Errorf("create document: %w", err)
	}

	// Drive storage is independent of the local pipeline: a failed
	// remote upload never blocks processing.
	if opts.StoreInDrive {
		uc.storeInDrive(ctx, doc)
	}

	uc.recordActivity(ctx, domain.ActivityUpload, "Document uploaded", doc)

	if opts.RunOCR {
		task := domain.PipelineTask{
			DocumentID: doc.ID,
			Cascade:    opts.RunAnalysis,
			Language:   uc.language(opts.Language),
			EnqueuedAt: now.Unix(),
		}
		if err := uc.queue.PublishStage(ctx, task); err != nil {
			return nil, fmt.Errorf("publish pipeline task: %w", err)
		}
	}

	return doc, nil
}

// ScheduleOCR enqueues a standalone OCR re-run. It never cascades into
// analysis, regardless of how the document was originally uploaded.
func (uc *IngestUseCase) ScheduleOCR(ctx context.Context, documentID int64, language string) error {
	doc, err := uc.docs.GetByID(ctx, documentID)
	if err != nil {
		return err
	}
	if doc.URL == "" {
		return domain.WrapError(domain.ErrPrecondition, "schedule ocr", errors.New("document has no stored file"))
	}

	task := domain.PipelineTask{
		DocumentID: doc.ID,
		Cascade:    false,
		Language:   uc.language(language),
		EnqueuedAt: time.Now().UTC().Unix(),
	}
	if err := uc.queue.PublishStage(ctx, task); err != nil {
		return fmt.Errorf("publish pipeline task: %w", err)
	}
	return nil
}

// ImportFromDrive copies a remote object into local storage and creates
// a pending document. Processing is not auto-triggered.
func (uc *IngestUseCase) ImportFromDrive(ctx context.Context, objectKey string) (*domain.Document, error) {
	if strings.TrimSpace(objectKey) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "drive import", errors.New("object key is required"))
	}
	if uc.drive == nil {
		return nil, domain.WrapError(domain.ErrPrecondition, "drive import", errors.New("drive storage is not configured"))
	}

	info, err := uc.drive.Stat(ctx, objectKey)
	if err != nil {
		return nil, fmt.Errorf("stat drive object: %w", err)
	}

	reader, err := uc.drive.Download(ctx, objectKey)
	if err != nil {
		return nil, fmt.Errorf("download drive object: %w", err)
	}
	defer reader.Close()

	storageKey := fmt.Sprintf("%s_%s", uuid.NewString(), sanitizeFilename(info.Name))
	if err := uc.storage.Save(ctx, storageKey, reader); err != nil {
		return nil, fmt.Errorf("save imported object: %w", err)
	}

	now := time.Now().UTC()
	doc := &domain.Document{
		Name:      info.Name,
		MimeType:  info.ContentType,
		SizeBytes: info.SizeBytes,
		Status:    domain.StatusPending,
		URL:       storageKey,
		DriveID:   objectKey,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.docs.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create imported document: %w", err)
	}

	uc.recordActivity(ctx, domain.ActivityUpload, "Document imported from drive", doc)
	return doc, nil
}

func (uc *IngestUseCase) storeInDrive(ctx context.Context, doc *domain.Document) {
	if uc.drive == nil {
		slog.Warn("drive store skipped: no drive configured", "document_id", doc.ID)
		return
	}
	reader, err := uc.storage.Open(ctx, doc.URL)
	if err != nil {
		slog.Warn("drive store skipped: open local copy", "document_id", doc.ID, "error", err)
		return
	}
	defer reader.Close()

	driveID, err := uc.drive.Upload(ctx, doc.URL, reader, doc.SizeBytes, doc.MimeType)
	if err != nil {
		slog.Warn("drive store failed", "document_id", doc.ID, "error", err)
		return
	}
	if err := uc.docs.SetDriveID(ctx, doc.ID, driveID); err != nil {
		slog.Warn("persist drive id failed", "document_id", doc.ID, "error", err)
		return
	}
	doc.DriveID = driveID
}

func (uc *IngestUseCase) recordActivity(ctx context.Context, kind domain.ActivityType, description string, doc *domain.Document) {
	activity := &domain.Activity{
		Type:         kind,
		Description:  description,
		DocumentID:   doc.ID,
		DocumentName: doc.Name,
		CreatedAt:    time.Now().UTC(),
	}
	if err := uc.activities.Create(ctx, activity); err != nil {
		slog.Warn("record activity failed", "type", kind, "document_id", doc.ID, "error", err)
	}
}

func (uc *IngestUseCase) language(requested string) string {
	if strings.TrimSpace(requested) != "" {
		return requested
	}
	return uc.defaultLanguage
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		return "document.bin"
	}
	return base
}

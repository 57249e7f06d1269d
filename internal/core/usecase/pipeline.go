package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kirillkom/docudesk/internal/core/domain"
	"github.com/kirillkom/docudesk/internal/core/ports"
)

// PipelineUseCase executes queued pipeline stages in the worker. One
// task means one OCR stage, optionally cascading into analysis when the
// task was produced by an upload that requested both. The same stage
// logic backs the ad-hoc OCR endpoint.
type PipelineUseCase struct {
	docs       ports.DocumentRepository
	activities ports.ActivityRepository
	extractor  ports.TextExtractor
	analyze    *AnalyzeUseCase
	notifier   ports.Notifier
	locks      *DocumentLocks
}

func NewPipelineUseCase(
	docs ports.DocumentRepository,
	activities ports.ActivityRepository,
	extractor ports.TextExtractor,
	analyze *AnalyzeUseCase,
	notifier ports.Notifier,
	locks *DocumentLocks,
) *PipelineUseCase {
	return &PipelineUseCase{
		docs:       docs,
		activities: activities,
		extractor:  extractor,
		analyze:    analyze,
		notifier:   notifier,
		locks:      locks,
	}
}

// ProcessTask runs the OCR stage for one task. Stage failures are
// terminal for the task: the document moves to error and the chain
// stops, with no activity row for the failed stage.
func (uc *PipelineUseCase) ProcessTask(ctx context.Context, task domain.PipelineTask) error {
	release := uc.locks.Acquire(task.DocumentID)
	defer release()

	doc, err := uc.docs.GetByID(ctx, task.DocumentID)
	if err != nil {
		return fmt.Errorf("fetch document: %w", err)
	}

	text, err := uc.ocrStage(ctx, doc, task.Language)
	if err != nil {
		return err
	}

	if !task.Cascade {
		return nil
	}

	doc.Content = text
	if _, err := uc.analyze.runStage(ctx, doc, ""); err != nil {
		return fmt.Errorf("analysis cascade: %w", err)
	}
	return nil
}

// RecognizeUpload runs text extraction on a transient upload. Nothing
// is persisted: no document row, no activity, no notification.
func (uc *PipelineUseCase) RecognizeUpload(ctx context.Context, filename, mimeType string, data []byte, language string) (string, error) {
	text, err := uc.extractor.ExtractBytes(ctx, filename, mimeType, data, language)
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, "recognize upload", errors.New("empty extracted text"))
	}
	return text, nil
}

// RecognizeDocument re-runs the OCR stage for a stored document,
// persisting content and flags like the queued stage does. It never
// cascades into analysis.
func (uc *PipelineUseCase) RecognizeDocument(ctx context.Context, documentID int64, language string) (string, error) {
	release := uc.locks.Acquire(documentID)
	defer release()

	doc, err := uc.docs.GetByID(ctx, documentID)
	if err != nil {
		return "", fmt.Errorf("fetch document: %w", err)
	}
	return uc.ocrStage(ctx, doc, language)
}

// ocrStage runs OCR for a stored document and records the outcome. The
// caller must hold the document lock.
func (uc *PipelineUseCase) ocrStage(ctx context.Context, doc *domain.Document, language string) (string, error) {
	if doc.URL == "" {
		return "", domain.WrapError(domain.ErrPrecondition, "ocr stage", errors.New("document has no stored file"))
	}

	if err := uc.docs.UpdateStatus(ctx, doc.ID, domain.StatusAnalyzing); err != nil {
		return "", fmt.Errorf("set status=analyzing: %w", err)
	}

	text, err := uc.runOCR(ctx, doc, language)
	if err != nil {
		if statusErr := uc.docs.UpdateStatus(ctx, doc.ID, domain.StatusError); statusErr != nil {
			slog.Error("mark error status failed", "document_id", doc.ID, "error", statusErr)
		}
		return "", err
	}

	if err := uc.docs.SaveOCRResult(ctx, doc.ID, text); err != nil {
		return "", fmt.Errorf("save ocr result: %w", err)
	}

	activity := &domain.Activity{
		Type:         domain.ActivityOCR,
		Description:  "OCR processing completed",
		DocumentID:   doc.ID,
		DocumentName: doc.Name,
		CreatedAt:    time.Now().UTC(),
	}
	if err := uc.activities.Create(ctx, activity); err != nil {
		slog.Warn("record ocr activity failed", "document_id", doc.ID, "error", err)
	}

	notifyBestEffort(ctx, uc.notifier, domain.NotificationEvent{
		Type:         domain.NotifyOCRComplete,
		DocumentName: doc.Name,
	})
	return text, nil
}

func (uc *PipelineUseCase) runOCR(ctx context.Context, doc *domain.Document, language string) (string, error) {
	text, err := uc.extractor.Extract(ctx, doc, language)
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, "ocr stage", errors.New("empty extracted text"))
	}
	return text, nil
}

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

// AnalyzeUseCase runs the analysis stage synchronously: the caller waits
// for the generated analysis or the error.
type AnalyzeUseCase struct {
	docs       ports.DocumentRepository
	analyses   ports.AnalysisRepository
	activities ports.ActivityRepository
	analyzer   ports.DocumentAnalyzer
	notifier   ports.Notifier
	locks      *DocumentLocks

	maxInputChars int
}

func NewAnalyzeUseCase(
	docs ports.DocumentRepository,
	analyses ports.AnalysisRepository,
	activities ports.ActivityRepository,
	analyzer ports.DocumentAnalyzer,
	notifier ports.Notifier,
	locks *DocumentLocks,
	maxInputChars int,
) *AnalyzeUseCase {
	return &AnalyzeUseCase{
		docs:          docs,
		analyses:      analyses,
		activities:    activities,
		analyzer:      analyzer,
		notifier:      notifier,
		locks:         locks,
		maxInputChars: maxInputChars,
	}
}

func (uc *AnalyzeUseCase) Analyze(ctx context.Context, documentID int64, prompt string) (*domain.Analysis, error) {
	release := uc.locks.Acquire(documentID)
	defer release()

	doc, err := uc.docs.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return uc.runStage(ctx, doc, prompt)
}

// runStage executes the analysis stage against a loaded document. The
// caller must hold the document lock. The content precondition is
// checked before any state transition so a rejected request leaves the
// document untouched.
func (uc *AnalyzeUseCase) runStage(ctx context.Context, doc *domain.Document, prompt string) (*domain.Analysis, error) {
	if strings.TrimSpace(doc.Content) == "" {
		return nil, domain.WrapError(domain.ErrPrecondition, "analyze", errors.New("document has no content to analyze"))
	}

	if err := uc.docs.UpdateStatus(ctx, doc.ID, domain.StatusAnalyzing); err != nil {
		return nil, fmt.Errorf("set status=analyzing: %w", err)
	}

	input := doc.Content
	if uc.maxInputChars > 0 && len(input) > uc.maxInputChars {
		input = input[:uc.maxInputChars]
	}

	result, err := uc.analyzer.Analyze(ctx, input, prompt)
	if err != nil {
		if statusErr := uc.docs.UpdateStatus(ctx, doc.ID, domain.StatusError); statusErr != nil {
			slog.Error("mark error status failed", "document_id", doc.ID, "error", statusErr)
		}
		return nil, fmt.Errorf("analyze document: %w", err)
	}

	analysis := &domain.Analysis{
		DocumentID: doc.ID,
		Title:      fmt.Sprintf("Analysis of %s", doc.Name),
		Content:    result,
		Model:      uc.analyzer.Model(),
		CreatedAt:  time.Now().UTC(),
	}
	if err := uc.analyses.Create(ctx, analysis); err != nil {
		if statusErr := uc.docs.UpdateStatus(ctx, doc.ID, domain.StatusError); statusErr != nil {
			slog.Error("mark error status failed", "document_id", doc.ID, "error", statusErr)
		}
		return nil, fmt.Errorf("create analysis: %w", err)
	}

	if err := uc.docs.MarkAnalyzed(ctx, doc.ID); err != nil {
		return nil, fmt.Errorf("mark document analyzed: %w", err)
	}

	activity := &domain.Activity{
		Type:         domain.ActivityAnalysis,
		Description:  "AI analysis completed",
		DocumentID:   doc.ID,
		DocumentName: doc.Name,
		CreatedAt:    time.Now().UTC(),
	}
	if err := uc.activities.Create(ctx, activity); err != nil {
		slog.Warn("record analysis activity failed", "document_id", doc.ID, "error", err)
	}

	notifyBestEffort(ctx, uc.notifier, domain.NotificationEvent{
		Type:         domain.NotifyAnalysisComplete,
		DocumentName: doc.Name,
	})

	return analysis, nil
}

// notifyBestEffort delivers a notification and swallows any failure.
// Notification outcome never affects document state or caller results.
func notifyBestEffort(ctx context.Context, notifier ports.Notifier, event domain.NotificationEvent) {
	if notifier == nil {
		return
	}
	if err := notifier.Notify(ctx, event); err != nil {
		slog.Warn("notification failed", "event", event.Type, "document", event.DocumentName, "error", err)
	}
}

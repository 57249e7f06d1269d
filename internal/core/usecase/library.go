package usecase

import (
	"context"
	"log/slog"

	"github.com/kirillkom/docudesk/internal/core/domain"
	"github.com/kirillkom/docudesk/internal/core/ports"
)

// LibraryUseCase is the read/delete surface of the dashboard.
type LibraryUseCase struct {
	docs        ports.DocumentRepository
	analyses    ports.AnalysisRepository
	activities  ports.ActivityRepository
	connections ports.ConnectionRepository
	storage     ports.ObjectStorage
}

func NewLibraryUseCase(
	docs ports.DocumentRepository,
	analyses ports.AnalysisRepository,
	activities ports.ActivityRepository,
	connections ports.ConnectionRepository,
	storage ports.ObjectStorage,
) *LibraryUseCase {
	return &LibraryUseCase{
		docs:        docs,
		analyses:    analyses,
		activities:  activities,
		connections: connections,
		storage:     storage,
	}
}

func (uc *LibraryUseCase) GetDocument(ctx context.Context, id int64) (*domain.Document, error) {
	return uc.docs.GetByID(ctx, id)
}

func (uc *LibraryUseCase) ListDocuments(ctx context.Context, limit int) ([]domain.Document, error) {
	return uc.docs.ListRecent(ctx, limit)
}

func (uc *LibraryUseCase) SearchDocuments(ctx context.Context, query string, limit int) ([]domain.Document, error) {
	return uc.docs.SearchByKeyword(ctx, query, limit)
}

// DeleteDocument removes the document together with its analyses and
// referencing activities. The stored file is removed best-effort: the
// database cascade is the source of truth.
func (uc *LibraryUseCase) DeleteDocument(ctx context.Context, id int64) error {
	doc, err := uc.docs.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := uc.docs.Delete(ctx, id); err != nil {
		return err
	}
	if doc.URL != "" {
		if err := uc.storage.Remove(ctx, doc.URL); err != nil {
			slog.Warn("remove stored file failed", "document_id", id, "key", doc.URL, "error", err)
		}
	}
	return nil
}

func (uc *LibraryUseCase) AnalysesByDocument(ctx context.Context, documentID int64) ([]domain.Analysis, error) {
	if _, err := uc.docs.GetByID(ctx, documentID); err != nil {
		return nil, err
	}
	return uc.analyses.ListByDocument(ctx, documentID)
}

func (uc *LibraryUseCase) RecentAnalyses(ctx context.Context, limit int) ([]domain.Analysis, error) {
	return uc.analyses.ListRecent(ctx, limit)
}

func (uc *LibraryUseCase) RecentActivities(ctx context.Context, limit int) ([]domain.Activity, error) {
	return uc.activities.ListRecent(ctx, limit)
}

func (uc *LibraryUseCase) Connections(ctx context.Context) ([]domain.ServiceConnection, error) {
	return uc.connections.List(ctx)
}

func (uc *LibraryUseCase) Stats(ctx context.Context) (domain.Stats, error) {
	return uc.docs.Stats(ctx)
}

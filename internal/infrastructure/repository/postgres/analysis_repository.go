package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kirillkom/docudesk/internal/core/domain"
)

type AnalysisRepository struct {
	db *sql.DB
}

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

func (r *AnalysisRepository) Create(ctx context.Context, analysis *domain.Analysis) error {
	err := r.db.QueryRowContext(ctx, `
INSERT INTO analyses (document_id, title, content, model, created_at)
VALUES ($1,$2,$3,$4,$5)
RETURNING id
`, analysis.DocumentID, analysis.Title, analysis.Content, analysis.Model, analysis.CreatedAt).Scan(&analysis.ID)
	if err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}
	return nil
}

func (r *AnalysisRepository) ListByDocument(ctx context.Context, documentID int64) ([]domain.Analysis, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, document_id, title, content, model, created_at
FROM analyses
WHERE document_id = $1
ORDER BY created_at DESC
`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list analyses by document: %w", err)
	}
	defer rows.Close()

	return collectAnalyses(rows)
}

func (r *AnalysisRepository) ListRecent(ctx context.Context, limit int) ([]domain.Analysis, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, document_id, title, content, model, created_at
FROM analyses
ORDER BY created_at DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent analyses: %w", err)
	}
	defer rows.Close()

	return collectAnalyses(rows)
}

func collectAnalyses(rows *sql.Rows) ([]domain.Analysis, error) {
	out := make([]domain.Analysis, 0)
	for rows.Next() {
		var a domain.Analysis
		if err := rows.Scan(&a.ID, &a.DocumentID, &a.Title, &a.Content, &a.Model, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate analyses: %w", err)
	}
	return out, nil
}

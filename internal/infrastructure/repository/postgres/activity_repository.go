package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kirillkom/docudesk/internal/core/domain"
)

type ActivityRepository struct {
	db *sql.DB
}

func NewActivityRepository(db *sql.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

func (r *ActivityRepository) Create(ctx context.Context, activity *domain.Activity) error {
	// document_id is NULL for activities not tied to a document
	// (integration events).
	var documentID any
	if activity.DocumentID != 0 {
		documentID = activity.DocumentID
	}

	err := r.db.QueryRowContext(ctx, `
INSERT INTO activities (type, description, document_id, document_name, created_at)
VALUES ($1,$2,$3,$4,$5)
RETURNING id
`, string(activity.Type), activity.Description, documentID, activity.DocumentName, activity.CreatedAt).Scan(&activity.ID)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

func (r *ActivityRepository) ListRecent(ctx context.Context, limit int) ([]domain.Activity, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, type, description, document_id, document_name, created_at
FROM activities
ORDER BY created_at DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent activities: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Activity, 0)
	for rows.Next() {
		var a domain.Activity
		var kind string
		var documentID sql.NullInt64
		if err := rows.Scan(&a.ID, &kind, &a.Description, &documentID, &a.DocumentName, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		a.Type = domain.ActivityType(kind)
		a.DocumentID = documentID.Int64
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activities: %w", err)
	}
	return out, nil
}

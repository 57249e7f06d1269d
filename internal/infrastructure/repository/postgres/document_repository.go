package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/docudesk/internal/core/domain"
)

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

const documentColumns = `id, name, mime_type, size_bytes, status, ocr_processed, ai_analyzed, content, url, drive_id, created_at, updated_at`

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	err := r.db.QueryRowContext(ctx, `
INSERT INTO documents (name, mime_type, size_bytes, status, ocr_processed, ai_analyzed, content, url, drive_id, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
RETURNING id
`,
		doc.Name, doc.MimeType, doc.SizeBytes, string(doc.Status), doc.OCRProcessed, doc.AIAnalyzed,
		doc.Content, doc.URL, doc.DriveID, doc.CreatedAt, doc.UpdatedAt,
	).Scan(&doc.ID)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id int64) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+documentColumns+`
FROM documents
WHERE id = $1
`, id)

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("id %d", id))
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	return doc, nil
}

func (r *DocumentRepository) ListRecent(ctx context.Context, limit int) ([]domain.Document, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+documentColumns+`
FROM documents
ORDER BY created_at DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	return collectDocuments(rows)
}

func (r *DocumentRepository) SearchByKeyword(ctx context.Context, query string, limit int) ([]domain.Document, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+documentColumns+`
FROM documents
WHERE name ILIKE '%' || $1 || '%' OR content ILIKE '%' || $1 || '%'
ORDER BY created_at DESC
LIMIT $2
`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}
	defer rows.Close()

	return collectDocuments(rows)
}

func (r *DocumentRepository) UpdateStatus(ctx context.Context, id int64, status domain.DocumentStatus) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE documents
SET status = $2, updated_at = $3
WHERE id = $1
`, id, string(status), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	return requireRow(res, "update document status", id)
}

// SaveOCRResult stores the extracted text and completes the OCR stage
// in one statement.
func (r *DocumentRepository) SaveOCRResult(ctx context.Context, id int64, content string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE documents
SET content = $2, ocr_processed = TRUE, status = $3, updated_at = $4
WHERE id = $1
`, id, content, string(domain.StatusProcessed), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save ocr result: %w", err)
	}
	return requireRow(res, "save ocr result", id)
}

func (r *DocumentRepository) MarkAnalyzed(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE documents
SET ai_analyzed = TRUE, status = $2, updated_at = $3
WHERE id = $1
`, id, string(domain.StatusProcessed), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark document analyzed: %w", err)
	}
	return requireRow(res, "mark document analyzed", id)
}

func (r *DocumentRepository) SetDriveID(ctx context.Context, id int64, driveID string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE documents
SET drive_id = $2, updated_at = $3
WHERE id = $1
`, id, driveID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set drive id: %w", err)
	}
	return requireRow(res, "set drive id", id)
}

// Delete removes the document together with its analyses and the
// activities that reference it, in one transaction.
func (r *DocumentRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM analyses WHERE document_id = $1`, id); err != nil {
		return fmt.Errorf("delete analyses: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM activities WHERE document_id = $1`, id); err != nil {
		return fmt.Errorf("delete activities: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if err := requireRow(res, "delete document", id); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete tx: %w", err)
	}
	return nil
}

func (r *DocumentRepository) Stats(ctx context.Context) (domain.Stats, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT
	COUNT(*),
	COUNT(*) FILTER (WHERE ocr_processed),
	COALESCE(SUM(size_bytes), 0),
	(SELECT COUNT(*) FROM analyses)
FROM documents
`)

	var stats domain.Stats
	if err := row.Scan(&stats.Documents, &stats.OCRProcessed, &stats.StorageBytes, &stats.Analyses); err != nil {
		return domain.Stats{}, fmt.Errorf("scan stats: %w", err)
	}
	return stats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*domain.Document, error) {
	var doc domain.Document
	var status string

	err := row.Scan(
		&doc.ID, &doc.Name, &doc.MimeType, &doc.SizeBytes, &status, &doc.OCRProcessed,
		&doc.AIAnalyzed, &doc.Content, &doc.URL, &doc.DriveID, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	doc.Status = domain.DocumentStatus(status)
	return &doc, nil
}

func collectDocuments(rows *sql.Rows) ([]domain.Document, error) {
	out := make([]domain.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}

// requireRow converts a zero-rows-affected update into a domain
// not-found error.
func requireRow(res sql.Result, op string, id int64) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrDocumentNotFound, op, fmt.Errorf("id %d", id))
	}
	return nil
}

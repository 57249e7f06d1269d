package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kirillkom/docudesk/internal/core/domain"
)

type ConnectionRepository struct {
	db *sql.DB
}

func NewConnectionRepository(db *sql.DB) *ConnectionRepository {
	return &ConnectionRepository{db: db}
}

// Upsert records the current state of one integration, keyed by name.
func (r *ConnectionRepository) Upsert(ctx context.Context, connType, name string, status domain.ConnectionStatus) (*domain.ServiceConnection, error) {
	now := time.Now().UTC()
	conn := domain.ServiceConnection{
		Type:   connType,
		Name:   name,
		Status: status,
	}

	err := r.db.QueryRowContext(ctx, `
INSERT INTO service_connections (type, name, status, created_at, updated_at)
VALUES ($1,$2,$3,$4,$4)
ON CONFLICT (name)
DO UPDATE SET type = EXCLUDED.type, status = EXCLUDED.status, updated_at = EXCLUDED.updated_at
RETURNING id, created_at, updated_at
`, connType, name, string(status), now).Scan(&conn.ID, &conn.CreatedAt, &conn.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert connection: %w", err)
	}
	return &conn, nil
}

func (r *ConnectionRepository) List(ctx context.Context) ([]domain.ServiceConnection, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, type, name, status, created_at, updated_at
FROM service_connections
ORDER BY name
`)
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ServiceConnection, 0)
	for rows.Next() {
		var conn domain.ServiceConnection
		var status string
		if err := rows.Scan(&conn.ID, &conn.Type, &conn.Name, &status, &conn.CreatedAt, &conn.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan connection: %w", err)
		}
		conn.Status = domain.ConnectionStatus(status)
		out = append(out, conn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate connections: %w", err)
	}
	return out, nil
}

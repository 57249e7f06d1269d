package domain

import "time"

type ConnectionStatus string

const (
	ConnectionConnected    ConnectionStatus = "connected"
	ConnectionDisconnected ConnectionStatus = "disconnected"
	ConnectionError        ConnectionStatus = "error"
)

// ServiceConnection tracks the state of one external integration
// (drive storage, notifier). Process-wide, independent of documents.
type ServiceConnection struct {
	ID        int64            `json:"id"`
	Type      string           `json:"type"`
	Name      string           `json:"name"`
	Status    ConnectionStatus `json:"status"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Stats is the dashboard aggregate over all stored documents.
type Stats struct {
	Documents    int64 `json:"documents"`
	OCRProcessed int64 `json:"ocr_processed"`
	Analyses     int64 `json:"analyses"`
	StorageBytes int64 `json:"storage_bytes"`
}

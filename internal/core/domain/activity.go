package domain

import "time"

type ActivityType string

const (
	ActivityUpload       ActivityType = "upload"
	ActivityOCR          ActivityType = "ocr"
	ActivityAnalysis     ActivityType = "analysis"
	ActivityNotification ActivityType = "notification"
	ActivityIntegration  ActivityType = "integration"
)

// Activity is an append-only audit record of a pipeline event.
// DocumentName is denormalized from the document at write time; rows
// referencing a document are removed with it on cascade delete.
type Activity struct {
	ID           int64        `json:"id"`
	Type         ActivityType `json:"type"`
	Description  string       `json:"description"`
	DocumentID   int64        `json:"document_id,omitempty"`
	DocumentName string       `json:"document_name,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}

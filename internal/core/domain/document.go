package domain

import "time"

type DocumentStatus string

const (
	StatusPending   DocumentStatus = "pending"
	StatusAnalyzing DocumentStatus = "analyzing"
	StatusProcessed DocumentStatus = "processed"
	StatusError     DocumentStatus = "error"
)

type Document struct {
	ID           int64          `json:"id"`
	Name         string         `json:"name"`
	MimeType     string         `json:"mime_type"`
	SizeBytes    int64          `json:"size_bytes"`
	Status       DocumentStatus `json:"status"`
	OCRProcessed bool           `json:"ocr_processed"`
	AIAnalyzed   bool           `json:"ai_analyzed"`
	Content      string         `json:"content,omitempty"`
	URL          string         `json:"url"`
	DriveID      string         `json:"drive_id,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// UploadOptions control which pipeline stages an upload schedules.
type UploadOptions struct {
	StoreInDrive bool
	RunOCR       bool
	RunAnalysis  bool
	Language     string
}

// PipelineTask is one queued unit of background pipeline work. Cascade is
// set only by the combined upload path: a standalone OCR trigger never
// chains into analysis.
type PipelineTask struct {
	DocumentID int64  `json:"document_id"`
	Cascade    bool   `json:"cascade"`
	Language   string `json:"language,omitempty"`
	EnqueuedAt int64  `json:"enqueued_at_unix,omitempty"`
}

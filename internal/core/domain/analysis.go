package domain

import "time"

// Analysis is one AI-generated interpretation of a document's content.
// Rows are immutable after creation.
type Analysis struct {
	ID         int64     `json:"id"`
	DocumentID int64     `json:"document_id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Model      string    `json:"model"`
	CreatedAt  time.Time `json:"created_at"`
}

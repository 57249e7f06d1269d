package docextract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/kirillkom/docudesk/internal/core/domain"
	"github.com/kirillkom/docudesk/internal/core/ports"
)

// TextRecognizer is the OCR capability the extractor falls back to for
// scans and image-only PDFs.
type TextRecognizer interface {
	Recognize(ctx context.Context, filename string, data []byte, language string) (string, error)
}

// Extractor turns a stored document into text. Plain text passes
// through, PDFs with a text layer are read directly, everything else
// goes through the OCR service.
type Extractor struct {
	storage    ports.ObjectStorage
	recognizer TextRecognizer
}

func New(storage ports.ObjectStorage, recognizer TextRecognizer) *Extractor {
	return &Extractor{storage: storage, recognizer: recognizer}
}

func (e *Extractor) Extract(ctx context.Context, doc *domain.Document, language string) (string, error) {
	reader, err := e.storage.Open(ctx, doc.URL)
	if err != nil {
		return "", fmt.Errorf("open source document: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read source document: %w", err)
	}
	return e.ExtractBytes(ctx, doc.Name, doc.MimeType, raw, language)
}

// ExtractBytes extracts text from in-memory content. Serves the ad-hoc
// OCR endpoint, where the file is never persisted.
func (e *Extractor) ExtractBytes(ctx context.Context, filename, mimeType string, raw []byte, language string) (string, error) {
	switch {
	case isTextMime(mimeType):
		if !utf8.Valid(raw) {
			return "", domain.WrapError(domain.ErrInvalidInput, "extract text",
				fmt.Errorf("invalid text encoding: %s", filename))
		}
		return string(raw), nil

	case mimeType == "application/pdf":
		if text, err := extractPDFText(raw); err == nil && strings.TrimSpace(text) != "" {
			return text, nil
		} else if err != nil {
			slog.Debug("pdf text layer unavailable, falling back to ocr",
				"file", filename, "error", err)
		}
		return e.recognize(ctx, filename, mimeType, raw, language)

	default:
		return e.recognize(ctx, filename, mimeType, raw, language)
	}
}

func (e *Extractor) recognize(ctx context.Context, filename, mimeType string, raw []byte, language string) (string, error) {
	if e.recognizer == nil {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract text",
			fmt.Errorf("no ocr backend for %s (%s)", filename, mimeType))
	}
	return e.recognizer.Recognize(ctx, filename, raw, language)
}

func extractPDFText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var out strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		out.WriteString(text)
		out.WriteString("\n")
	}
	return out.String(), nil
}

func isTextMime(mimeType string) bool {
	if strings.HasPrefix(mimeType, "text/") {
		return true
	}
	switch mimeType {
	case "application/json", "application/xml", "application/x-yaml":
		return true
	default:
		return false
	}
}

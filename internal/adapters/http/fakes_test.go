package httpadapter

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/kirillkom/docudesk/internal/config"
	"github.com/kirillkom/docudesk/internal/core/domain"
)

type ingestFake struct {
	uploadErr  error
	ocrErr     error
	importErr  error
	lastOpts   domain.UploadOptions
	ocrID      int64
	ocrLang    string
	importedKy string
}

func (f *ingestFake) Upload(_ context.Context, filename, mimeType string, size int64, body io.Reader, opts domain.UploadOptions) (*domain.Document, error) {
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	if _, err := io.ReadAll(body); err != nil {
		return nil, err
	}
	f.lastOpts = opts

	now := time.Now().UTC()
	return &domain.Document{
		ID:        1,
		Name:      filename,
		MimeType:  mimeType,
		SizeBytes: size,
		Status:    domain.StatusPending,
		URL:       "key_" + filename,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (f *ingestFake) ScheduleOCR(_ context.Context, id int64, language string) error {
	if f.ocrErr != nil {
		return f.ocrErr
	}
	f.ocrID = id
	f.ocrLang = language
	return nil
}

func (f *ingestFake) ImportFromDrive(_ context.Context, objectKey string) (*domain.Document, error) {
	if f.importErr != nil {
		return nil, f.importErr
	}
	f.importedKy = objectKey
	return &domain.Document{ID: 2, Name: "imported.pdf", Status: domain.StatusPending}, nil
}

type analyzeFake struct {
	err error
}

func (f *analyzeFake) Analyze(_ context.Context, documentID int64, _ string) (*domain.Analysis, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Analysis{ID: 1, DocumentID: documentID, Title: "Analysis", Content: "result"}, nil
}

type libraryFake struct {
	getErr    error
	deleteErr error
	doc       domain.Document
}

func (f *libraryFake) GetDocument(_ context.Context, id int64) (*domain.Document, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	doc := f.doc
	doc.ID = id
	return &doc, nil
}

func (f *libraryFake) ListDocuments(context.Context, int) ([]domain.Document, error) {
	return []domain.Document{}, nil
}

func (f *libraryFake) SearchDocuments(context.Context, string, int) ([]domain.Document, error) {
	return []domain.Document{}, nil
}

func (f *libraryFake) DeleteDocument(context.Context, int64) error { return f.deleteErr }

func (f *libraryFake) AnalysesByDocument(context.Context, int64) ([]domain.Analysis, error) {
	return []domain.Analysis{}, nil
}

func (f *libraryFake) RecentAnalyses(context.Context, int) ([]domain.Analysis, error) {
	return []domain.Analysis{}, nil
}

func (f *libraryFake) RecentActivities(context.Context, int) ([]domain.Activity, error) {
	return []domain.Activity{}, nil
}

func (f *libraryFake) Connections(context.Context) ([]domain.ServiceConnection, error) {
	return []domain.ServiceConnection{}, nil
}

func (f *libraryFake) Stats(context.Context) (domain.Stats, error) {
	return domain.Stats{Documents: 3}, nil
}

type ocrToolFake struct {
	text        string
	uploadErr   error
	documentErr error

	uploadedName string
	uploadedMime string
	uploadedLang string
	documentID   int64
	documentLang string
}

func (f *ocrToolFake) RecognizeUpload(_ context.Context, filename, mimeType string, _ []byte, language string) (string, error) {
	f.uploadedName = filename
	f.uploadedMime = mimeType
	f.uploadedLang = language
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	return f.text, nil
}

func (f *ocrToolFake) RecognizeDocument(_ context.Context, documentID int64, language string) (string, error) {
	f.documentID = documentID
	f.documentLang = language
	if f.documentErr != nil {
		return "", f.documentErr
	}
	return f.text, nil
}

func newTestHandler(cfg config.Config, ingest *ingestFake, analyze *analyzeFake, library *libraryFake) http.Handler {
	return newTestHandlerWithOCR(cfg, ingest, analyze, library, nil)
}

func newTestHandlerWithOCR(cfg config.Config, ingest *ingestFake, analyze *analyzeFake, library *libraryFake, ocr *ocrToolFake) http.Handler {
	if cfg.MaxUploadBytes == 0 {
		cfg.MaxUploadBytes = 10 << 20
	}
	if ingest == nil {
		ingest = &ingestFake{}
	}
	if analyze == nil {
		analyze = &analyzeFake{}
	}
	if library == nil {
		library = &libraryFake{}
	}
	if ocr == nil {
		ocr = &ocrToolFake{}
	}
	return NewRouter(cfg, ingest, analyze, library, ocr, nil).Handler()
}

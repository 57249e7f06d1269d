package httpadapter

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kirillkom/docudesk/internal/config"
)

func multipartUpload(t *testing.T, filename string, content []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			t.Fatalf("WriteField() error = %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return &body, writer.FormDataContentType()
}

func TestHealthzEndpoint(t *testing.T) {
	handler := newTestHandler(config.Config{}, nil, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
}

func TestUploadDocumentSuccessForwardsOptions(t *testing.T) {
	ingest := &ingestFake{}
	handler := newTestHandler(config.Config{}, ingest, nil, nil)

	body, contentType := multipartUpload(t, "file.txt", []byte("hello"), map[string]string{
		"storeInDrive": "true",
		"runOcr":       "true",
		"runAnalysis":  "true",
		"language":     "rus",
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/documents", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", res.Code, res.Body.String())
	}
	if !ingest.lastOpts.StoreInDrive || !ingest.lastOpts.RunOCR || !ingest.lastOpts.RunAnalysis {
		t.Fatalf("expected all options forwarded, got %+v", ingest.lastOpts)
	}
	if ingest.lastOpts.Language != "rus" {
		t.Fatalf("expected language forwarded, got %q", ingest.lastOpts.Language)
	}

	var docResp map[string]any
	if err := json.NewDecoder(res.Body).Decode(&docResp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if docResp["status"] != "pending" {
		t.Fatalf("unexpected response: %+v", docResp)
	}
}

func TestUploadDocumentMissingMultipartField(t *testing.T) {
	handler := newTestHandler(config.Config{}, nil, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/documents", bytes.NewBufferString("plain-text"))
	req.Header.Set("Content-Type", "text/plain")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestUploadDocumentRejectsOversizeBeforeIngest(t *testing.T) {
	ingest := &ingestFake{}
	handler := newTestHandler(config.Config{MaxUploadBytes: 8}, ingest, nil, nil)

	body, contentType := multipartUpload(t, "big.bin", []byte("way more than eight bytes"), nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/documents", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestTriggerOCRAcknowledgesQueuedTask(t *testing.T) {
	ingest := &ingestFake{}
	handler := newTestHandler(config.Config{}, ingest, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/documents/7/ocr",
		bytes.NewBufferString(`{"language":"deu"}`))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", res.Code, res.Body.String())
	}
	if ingest.ocrID != 7 || ingest.ocrLang != "deu" {
		t.Fatalf("unexpected schedule call: id=%d lang=%q", ingest.ocrID, ingest.ocrLang)
	}
}

func TestDriveImport(t *testing.T) {
	ingest := &ingestFake{}
	handler := newTestHandler(config.Config{}, ingest, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/drive/import",
		bytes.NewBufferString(`{"object_key":"inbox/contract.pdf"}`))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", res.Code, res.Body.String())
	}
	if ingest.importedKy != "inbox/contract.pdf" {
		t.Fatalf("unexpected import key %q", ingest.importedKy)
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	handler := newTestHandler(config.Config{}, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/search", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestDocumentIDMustBeNumeric(t *testing.T) {
	handler := newTestHandler(config.Config{}, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/documents/not-a-number", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

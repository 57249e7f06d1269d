package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/kirillkom/docudesk/internal/core/domain"
)

type pipelineHarness struct {
	docs       *docRepoFake
	analyses   *analysisRepoFake
	activities *activityRepoFake
	extractor  *extractorFake
	analyzer   *analyzerFake
	notifier   *notifierFake
	uc         *PipelineUseCase
}

func newPipelineHarness(docs ...*domain.Document) *pipelineHarness {
	h := &pipelineHarness{
		docs:       newDocRepoFake(docs...),
		analyses:   &analysisRepoFake{},
		activities: &activityRepoFake{},
		extractor:  &extractorFake{text: "recognized text"},
		analyzer:   &analyzerFake{result: "generated summary"},
		notifier:   &notifierFake{},
	}
	locks := NewDocumentLocks()
	analyze := NewAnalyzeUseCase(h.docs, h.analyses, h.activities, h.analyzer, h.notifier, locks, 16000)
	h.uc = NewPipelineUseCase(h.docs, h.activities, h.extractor, analyze, h.notifier, locks)
	return h
}

func task(id int64, cascade bool) domain.PipelineTask {
	return domain.PipelineTask{DocumentID: id, Cascade: cascade, Language: "eng"}
}

func TestProcessTaskRunsOCRStage(t *testing.T) {
	h := newPipelineHarness(&domain.Document{ID: 1, Name: "scan.pdf", URL: "key_scan.pdf"})

	if err := h.uc.ProcessTask(context.Background(), task(1, false)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(h.docs.ocrSaves) != 1 || h.docs.ocrSaves[0] != "recognized text" {
		t.Fatalf("expected saved OCR text, got %v", h.docs.ocrSaves)
	}
	doc, _ := h.docs.GetByID(context.Background(), 1)
	if doc.Status != domain.StatusProcessed || !doc.OCRProcessed {
		t.Fatalf("expected processed document, got status=%q ocr=%v", doc.Status, doc.OCRProcessed)
	}
	if got := h.activities.ofType(domain.ActivityOCR); len(got) != 1 {
		t.Fatalf("expected one OCR activity, got %d", len(got))
	}
	if len(h.notifier.events) != 1 || h.notifier.events[0].Type != domain.NotifyOCRComplete {
		t.Fatalf("expected OCR-complete notification, got %v", h.notifier.events)
	}
	if len(h.analyses.created) != 0 {
		t.Fatal("non-cascading task must not run analysis")
	}
}

func TestProcessTaskCascadesIntoAnalysis(t *testing.T) {
	h := newPipelineHarness(&domain.Document{ID: 2, Name: "invoice.pdf", URL: "key_invoice.pdf"})

	if err := h.uc.ProcessTask(context.Background(), task(2, true)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(h.analyses.created) != 1 {
		t.Fatalf("expected one analysis from the cascade, got %d", len(h.analyses.created))
	}
	if h.analyzer.input != "recognized text" {
		t.Fatalf("cascade must analyze the freshly extracted text, got %q", h.analyzer.input)
	}
	if len(h.docs.analyzedIDs) != 1 {
		t.Fatal("expected document marked analyzed")
	}
	ocr := h.activities.ofType(domain.ActivityOCR)
	analysis := h.activities.ofType(domain.ActivityAnalysis)
	if len(ocr) != 1 || len(analysis) != 1 {
		t.Fatalf("expected one activity per stage, got ocr=%d analysis=%d", len(ocr), len(analysis))
	}
	if len(h.notifier.events) != 2 {
		t.Fatalf("expected a notification per stage, got %d", len(h.notifier.events))
	}
}

func TestProcessTaskOCRFailureStopsChain(t *testing.T) {
	h := newPipelineHarness(&domain.Document{ID: 3, Name: "broken.pdf", URL: "key_broken.pdf"})
	h.extractor.err = errors.New("ocr service unreachable")

	err := h.uc.ProcessTask(context.Background(), task(3, true))
	if err == nil {
		t.Fatal("expected OCR failure to surface")
	}
	doc, _ := h.docs.GetByID(context.Background(), 3)
	if doc.Status != domain.StatusError {
		t.Fatalf("expected error status, got %q", doc.Status)
	}
	if len(h.activities.entries) != 0 {
		t.Fatal("failed stage must not record an activity")
	}
	if len(h.analyses.created) != 0 {
		t.Fatal("cascade must not run after OCR failure")
	}
	if len(h.notifier.events) != 0 {
		t.Fatal("expected no completion notification after failure")
	}
}

func TestProcessTaskRejectsEmptyExtractedText(t *testing.T) {
	h := newPipelineHarness(&domain.Document{ID: 4, Name: "blank.png", URL: "key_blank.png"})
	h.extractor.text = "   \n  "

	err := h.uc.ProcessTask(context.Background(), task(4, false))
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
	doc, _ := h.docs.GetByID(context.Background(), 4)
	if doc.Status != domain.StatusError {
		t.Fatalf("expected error status, got %q", doc.Status)
	}
}

func TestProcessTaskRequiresStoredFile(t *testing.T) {
	h := newPipelineHarness(&domain.Document{ID: 5, Name: "nofile.pdf"})

	err := h.uc.ProcessTask(context.Background(), task(5, false))
	if !domain.IsKind(err, domain.ErrPrecondition) {
		t.Fatalf("expected precondition error, got %v", err)
	}
	if len(h.docs.statusCalls) != 0 {
		t.Fatalf("expected no status transition, got %v", h.docs.statusCalls)
	}
}

func TestProcessTaskCascadeAnalysisFailureMarksError(t *testing.T) {
	h := newPipelineHarness(&domain.Document{ID: 6, Name: "doc.pdf", URL: "key_doc.pdf"})
	h.analyzer.err = errors.New("ollama timeout")

	err := h.uc.ProcessTask(context.Background(), task(6, true))
	if err == nil {
		t.Fatal("expected cascade failure to surface")
	}
	doc, _ := h.docs.GetByID(context.Background(), 6)
	if doc.Status != domain.StatusError {
		t.Fatalf("expected error status after failed cascade, got %q", doc.Status)
	}
	// OCR itself succeeded, so its result and activity survive.
	if len(h.docs.ocrSaves) != 1 {
		t.Fatal("expected OCR result to be persisted before the failed cascade")
	}
	if got := h.activities.ofType(domain.ActivityOCR); len(got) != 1 {
		t.Fatalf("expected the OCR activity to survive, got %d", len(got))
	}
	if got := h.activities.ofType(domain.ActivityAnalysis); len(got) != 0 {
		t.Fatal("expected no analysis activity after failure")
	}
}

func TestRecognizeDocumentPersistsResultWithoutCascade(t *testing.T) {
	h := newPipelineHarness(&domain.Document{ID: 8, Name: "rescan.pdf", URL: "key_rescan.pdf"})

	text, err := h.uc.RecognizeDocument(context.Background(), 8, "eng")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "recognized text" {
		t.Fatalf("expected extracted text returned, got %q", text)
	}
	if len(h.docs.ocrSaves) != 1 {
		t.Fatalf("expected saved OCR text, got %v", h.docs.ocrSaves)
	}
	doc, _ := h.docs.GetByID(context.Background(), 8)
	if doc.Status != domain.StatusProcessed || !doc.OCRProcessed {
		t.Fatalf("expected processed document, got status=%q ocr=%v", doc.Status, doc.OCRProcessed)
	}
	if got := h.activities.ofType(domain.ActivityOCR); len(got) != 1 {
		t.Fatalf("expected one OCR activity, got %d", len(got))
	}
	if len(h.notifier.events) != 1 || h.notifier.events[0].Type != domain.NotifyOCRComplete {
		t.Fatalf("expected OCR-complete notification, got %v", h.notifier.events)
	}
	if len(h.analyses.created) != 0 {
		t.Fatal("on-demand recognition must never run analysis")
	}
}

func TestRecognizeDocumentRequiresStoredFile(t *testing.T) {
	h := newPipelineHarness(&domain.Document{ID: 9, Name: "nofile.pdf"})

	_, err := h.uc.RecognizeDocument(context.Background(), 9, "")
	if !domain.IsKind(err, domain.ErrPrecondition) {
		t.Fatalf("expected precondition error, got %v", err)
	}
}

func TestRecognizeUploadPersistsNothing(t *testing.T) {
	h := newPipelineHarness()

	text, err := h.uc.RecognizeUpload(context.Background(), "adhoc.png", "image/png", []byte("pixels"), "rus")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "recognized text" {
		t.Fatalf("expected extracted text returned, got %q", text)
	}
	if h.extractor.bytesCalls != 1 || h.extractor.language != "rus" {
		t.Fatalf("expected one byte extraction with language, got calls=%d lang=%q",
			h.extractor.bytesCalls, h.extractor.language)
	}
	if len(h.docs.ocrSaves) != 0 || len(h.docs.statusCalls) != 0 {
		t.Fatal("transient recognition must not touch the document store")
	}
	if len(h.activities.entries) != 0 || len(h.notifier.events) != 0 {
		t.Fatal("transient recognition must not record activity or notify")
	}
}

func TestRecognizeUploadRejectsEmptyText(t *testing.T) {
	h := newPipelineHarness()
	h.extractor.text = "  \n "

	_, err := h.uc.RecognizeUpload(context.Background(), "blank.png", "image/png", []byte("pixels"), "")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}

func TestProcessTaskPassesLanguageToExtractor(t *testing.T) {
	h := newPipelineHarness(&domain.Document{ID: 7, Name: "scan.pdf", URL: "key_scan.pdf"})

	tsk := task(7, false)
	tsk.Language = "rus"
	if err := h.uc.ProcessTask(context.Background(), tsk); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.extractor.language != "rus" {
		t.Fatalf("expected task language forwarded, got %q", h.extractor.language)
	}
}

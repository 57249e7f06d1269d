package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"

	"github.com/kirillkom/docudesk/internal/core/domain"
	"github.com/kirillkom/docudesk/internal/core/ports"
)

type docRepoFake struct {
	mu sync.Mutex

	nextID      int64
	docs        map[int64]*domain.Document
	createErr   error
	getErr      error
	statusCalls []domain.DocumentStatus
	ocrSaves    []string
	analyzedIDs []int64
	driveIDs    map[int64]string
	deletedIDs  []int64
	stats       domain.Stats
}

func newDocRepoFake(docs ...*domain.Document) *docRepoFake {
	f := &docRepoFake{
		nextID:   100,
		docs:     make(map[int64]*domain.Document),
		driveIDs: make(map[int64]string),
	}
	for _, d := range docs {
		f.docs[d.ID] = d
	}
	return f
}

func (f *docRepoFake) Create(_ context.Context, doc *domain.Document) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	doc.ID = f.nextID
	f.docs[doc.ID] = doc
	return nil
}

func (f *docRepoFake) GetByID(_ context.Context, id int64) (*domain.Document, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", errNotFound)
	}
	copyDoc := *doc
	return &copyDoc, nil
}

func (f *docRepoFake) ListRecent(context.Context, int) ([]domain.Document, error) { return nil, nil }

func (f *docRepoFake) SearchByKeyword(context.Context, string, int) ([]domain.Document, error) {
	return nil, nil
}

func (f *docRepoFake) UpdateStatus(_ context.Context, id int64, status domain.DocumentStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls = append(f.statusCalls, status)
	if doc, ok := f.docs[id]; ok {
		doc.Status = status
	}
	return nil
}

func (f *docRepoFake) SaveOCRResult(_ context.Context, id int64, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ocrSaves = append(f.ocrSaves, content)
	if doc, ok := f.docs[id]; ok {
		doc.Content = content
		doc.OCRProcessed = true
		doc.Status = domain.StatusProcessed
	}
	return nil
}

func (f *docRepoFake) MarkAnalyzed(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.analyzedIDs = append(f.analyzedIDs, id)
	if doc, ok := f.docs[id]; ok {
		doc.AIAnalyzed = true
		doc.Status = domain.StatusProcessed
	}
	return nil
}

func (f *docRepoFake) SetDriveID(_ context.Context, id int64, driveID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.driveIDs[id] = driveID
	return nil
}

func (f *docRepoFake) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedIDs = append(f.deletedIDs, id)
	delete(f.docs, id)
	return nil
}

func (f *docRepoFake) Stats(context.Context) (domain.Stats, error) { return f.stats, nil }

type activityRepoFake struct {
	mu      sync.Mutex
	err     error
	entries []domain.Activity
}

func (f *activityRepoFake) Create(_ context.Context, activity *domain.Activity) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, *activity)
	return nil
}

func (f *activityRepoFake) ListRecent(context.Context, int) ([]domain.Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Activity(nil), f.entries...), nil
}

func (f *activityRepoFake) ofType(kind domain.ActivityType) []domain.Activity {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Activity
	for _, a := range f.entries {
		if a.Type == kind {
			out = append(out, a)
		}
	}
	return out
}

type analysisRepoFake struct {
	mu      sync.Mutex
	err     error
	created []domain.Analysis
}

func (f *analysisRepoFake) Create(_ context.Context, analysis *domain.Analysis) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	analysis.ID = int64(len(f.created) + 1)
	f.created = append(f.created, *analysis)
	return nil
}

func (f *analysisRepoFake) ListByDocument(context.Context, int64) ([]domain.Analysis, error) {
	return append([]domain.Analysis(nil), f.created...), nil
}

func (f *analysisRepoFake) ListRecent(context.Context, int) ([]domain.Analysis, error) {
	return append([]domain.Analysis(nil), f.created...), nil
}

type connectionRepoFake struct {
	upserted []domain.ServiceConnection
	listed   []domain.ServiceConnection
}

func (f *connectionRepoFake) Upsert(_ context.Context, connType, name string, status domain.ConnectionStatus) (*domain.ServiceConnection, error) {
	conn := domain.ServiceConnection{Type: connType, Name: name, Status: status}
	f.upserted = append(f.upserted, conn)
	return &conn, nil
}

func (f *connectionRepoFake) List(context.Context) ([]domain.ServiceConnection, error) {
	return append([]domain.ServiceConnection(nil), f.listed...), nil
}

type storageFake struct {
	mu      sync.Mutex
	saveErr error
	openErr error
	files   map[string][]byte
	removed []string
}

func newStorageFake() *storageFake {
	return &storageFake{files: make(map[string][]byte)}
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[key] = raw
	return nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.files[key]
	if !ok {
		return nil, errNotFound
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

func (f *storageFake) Remove(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, key)
	delete(f.files, key)
	return nil
}

type driveFake struct {
	uploadErr   error
	statErr     error
	downloadErr error
	uploaded    []string
	object      ports.DriveObjectInfo
	content     string
}

func (f *driveFake) Upload(_ context.Context, key string, _ io.Reader, _ int64, _ string) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	f.uploaded = append(f.uploaded, key)
	return "drive-" + key, nil
}

func (f *driveFake) Download(context.Context, string) (io.ReadCloser, error) {
	if f.downloadErr != nil {
		return nil, f.downloadErr
	}
	return io.NopCloser(bytes.NewReader([]byte(f.content))), nil
}

func (f *driveFake) Stat(context.Context, string) (ports.DriveObjectInfo, error) {
	if f.statErr != nil {
		return ports.DriveObjectInfo{}, f.statErr
	}
	return f.object, nil
}

type queueFake struct {
	err       error
	published []domain.PipelineTask
}

func (f *queueFake) PublishStage(_ context.Context, task domain.PipelineTask) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, task)
	return nil
}

func (f *queueFake) SubscribeStages(context.Context, func(context.Context, domain.PipelineTask) error) error {
	return nil
}

type extractorFake struct {
	text       string
	err        error
	language   string
	bytesCalls int
}

func (f *extractorFake) Extract(_ context.Context, _ *domain.Document, language string) (string, error) {
	f.language = language
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func (f *extractorFake) ExtractBytes(_ context.Context, _, _ string, _ []byte, language string) (string, error) {
	f.bytesCalls++
	f.language = language
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type analyzerFake struct {
	result      string
	err         error
	input       string
	instruction string
}

func (f *analyzerFake) Analyze(_ context.Context, content string, instruction string) (string, error) {
	f.input = content
	f.instruction = instruction
	if f.err != nil {
		return "", f.err
	}
	return f.result, nil
}

func (f *analyzerFake) Model() string { return "llama3.1:8b" }

type notifierFake struct {
	mu     sync.Mutex
	err    error
	events []domain.NotificationEvent
}

func (f *notifierFake) Notify(_ context.Context, event domain.NotificationEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return f.err
}

var errNotFound = errors.New("no rows")

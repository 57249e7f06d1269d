package httpadapter

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/docudesk/internal/config"
	"github.com/kirillkom/docudesk/internal/core/domain"
	"github.com/kirillkom/docudesk/internal/core/ports"
	"github.com/kirillkom/docudesk/internal/observability/metrics"
)

type Router struct {
	cfg     config.Config
	ingest  ports.DocumentIngestor
	analyze ports.DocumentAnalysisService
	library ports.DocumentLibrary
	ocr     ports.OCRToolService
	metrics *metrics.HTTPServerMetrics
}

func NewRouter(
	cfg config.Config,
	ingest ports.DocumentIngestor,
	analyze ports.DocumentAnalysisService,
	library ports.DocumentLibrary,
	ocr ports.OCRToolService,
	serverMetrics *metrics.HTTPServerMetrics,
) *Router {
	return &Router{
		cfg:     cfg,
		ingest:  ingest,
		analyze: analyze,
		library: library,
		ocr:     ocr,
		metrics: serverMetrics,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/stats", rt.stats)
	mux.HandleFunc("/v1/documents", rt.documents)
	mux.HandleFunc("/v1/documents/", rt.documentSubtree)
	mux.HandleFunc("/v1/analyses/recent", rt.recentAnalyses)
	mux.HandleFunc("/v1/activities/recent", rt.recentActivities)
	mux.HandleFunc("/v1/connections", rt.connections)
	mux.HandleFunc("/v1/drive/import", rt.driveImport)
	mux.HandleFunc("/v1/ocr/process", rt.ocrProcess)
	mux.HandleFunc("/v1/search", rt.search)

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight,
		time.Duration(rt.cfg.APIQueueWaitMillis)*time.Millisecond)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware("api", handler)
	}
	return withRequestID(withAccessLog(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) stats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	stats, err := rt.library.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (rt *Router) documents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		rt.listDocuments(w, r)
	case http.MethodPost:
		rt.uploadDocument(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (rt *Router) listDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := rt.library.ListDocuments(r.Context(), rt.limit(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	// Cap the multipart parse itself, not just the file part.
	r.Body = http.MaxBytesReader(w, r.Body, rt.cfg.MaxUploadBytes+1<<20)

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	if fileHeader.Size > rt.cfg.MaxUploadBytes {
		if rt.metrics != nil {
			rt.metrics.RecordUploadRejected("api", "too_large")
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file exceeds upload limit"})
		return
	}

	opts := domain.UploadOptions{
		StoreInDrive: formBool(r, "storeInDrive"),
		RunOCR:       formBool(r, "runOcr"),
		RunAnalysis:  formBool(r, "runAnalysis"),
		Language:     r.FormValue("language"),
	}

	doc, err := rt.ingest.Upload(
		r.Context(),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		fileHeader.Size,
		file,
		opts,
	)
	if err != nil {
		if rt.metrics != nil && domain.IsKind(err, domain.ErrInvalidInput) {
			rt.metrics.RecordUploadRejected("api", "invalid")
		}
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordUpload("api", opts.RunOCR, opts.RunAnalysis, doc.SizeBytes)
	}

	writeJSON(w, http.StatusCreated, doc)
}

// documentSubtree routes /v1/documents/{id} and its nested operations.
func (rt *Router) documentSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	idPart, action, _ := strings.Cut(rest, "/")

	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id must be a positive integer"})
		return
	}

	switch action {
	case "":
		rt.documentByID(w, r, id)
	case "ocr":
		rt.triggerOCR(w, r, id)
	case "analyze":
		rt.triggerAnalysis(w, r, id)
	case "analyses":
		rt.documentAnalyses(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

func (rt *Router) documentByID(w http.ResponseWriter, r *http.Request, id int64) {
	switch r.Method {
	case http.MethodGet:
		doc, err := rt.library.GetDocument(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, doc)
	case http.MethodDelete:
		if err := rt.library.DeleteDocument(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		if rt.metrics != nil {
			rt.metrics.RecordDelete("api")
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		methodNotAllowed(w)
	}
}

// triggerOCR acknowledges the request once the task is queued. The OCR
// stage itself runs in the worker.
func (rt *Router) triggerOCR(w http.ResponseWriter, r *http.Request, id int64) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	// Body is optional: an empty body means default language.
	var req struct {
		Language string `json:"language"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	if err := rt.ingest.ScheduleOCR(r.Context(), id, req.Language); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (rt *Router) triggerAnalysis(w http.ResponseWriter, r *http.Request, id int64) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req struct {
		Prompt string `json:"prompt"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	start := time.Now()
	analysis, err := rt.analyze.Analyze(r.Context(), id, req.Prompt)
	if rt.metrics != nil {
		outputChars := 0
		if analysis != nil {
			outputChars = len(analysis.Content)
		}
		rt.metrics.RecordAnalysis("api", time.Since(start), outputChars, err)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

func (rt *Router) documentAnalyses(w http.ResponseWriter, r *http.Request, id int64) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	analyses, err := rt.library.AnalysesByDocument(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analyses)
}

func (rt *Router) recentAnalyses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	analyses, err := rt.library.RecentAnalyses(r.Context(), rt.limit(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analyses)
}

func (rt *Router) recentActivities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	activities, err := rt.library.RecentActivities(r.Context(), rt.limit(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, activities)
}

func (rt *Router) connections(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	connections, err := rt.library.Connections(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, connections)
}

func (rt *Router) driveImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req struct {
		ObjectKey string `json:"object_key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	doc, err := rt.ingest.ImportFromDrive(r.Context(), req.ObjectKey)
	if rt.metrics != nil {
		rt.metrics.RecordDriveImport("api", err)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

// ocrProcess runs recognition on demand: over a transient upload that
// is discarded afterwards, or over an already stored document.
func (rt *Router) ocrProcess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, rt.cfg.MaxUploadBytes+1<<20)

	file, fileHeader, err := r.FormFile("file")
	switch {
	case err == nil:
		defer file.Close()
		if fileHeader.Size > rt.cfg.MaxUploadBytes {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file exceeds upload limit"})
			return
		}
		data, readErr := io.ReadAll(file)
		if readErr != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable multipart file"})
			return
		}
		text, ocrErr := rt.ocr.RecognizeUpload(r.Context(), fileHeader.Filename,
			fileHeader.Header.Get("Content-Type"), data, r.FormValue("language"))
		if ocrErr != nil {
			writeError(w, ocrErr)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"text": text})

	case r.FormValue("document_id") != "":
		id, parseErr := strconv.ParseInt(r.FormValue("document_id"), 10, 64)
		if parseErr != nil || id <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id must be a positive integer"})
			return
		}
		text, ocrErr := rt.ocr.RecognizeDocument(r.Context(), id, r.FormValue("language"))
		if ocrErr != nil {
			writeError(w, ocrErr)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"text": text})

	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "either a file or a document id is required"})
	}
}

func (rt *Router) search(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query parameter 'q' is required"})
		return
	}
	docs, err := rt.library.SearchDocuments(r.Context(), query, rt.limit(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

func (rt *Router) limit(r *http.Request) int {
	limit := rt.cfg.DefaultListLimit
	if limit <= 0 {
		limit = 5
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	return limit
}

func formBool(r *http.Request, field string) bool {
	switch strings.ToLower(r.FormValue(field)) {
	case "true", "1", "yes":
		return true
	default:
		return false
	}
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}

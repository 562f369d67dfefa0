// Package chi exposes the matching engine over HTTP.
package chi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"

	chirouter "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/krippilippa/matchagig-fast/internal/domain"
	"github.com/krippilippa/matchagig-fast/internal/usecase/health"
	"github.com/krippilippa/matchagig-fast/internal/usecase/ingest"
	matchuc "github.com/krippilippa/matchagig-fast/internal/usecase/match"
)

// Error codes surfaced to clients.
const (
	codeBadRequest       = "bad_request"
	codeValidationFailed = "validation_failed"
	codeNotFound         = "resume_not_found"
	codeNoText           = "no_extractable_text"
	codeEmbeddingError   = "embedding_provider_error"
	codeSearchError      = "search_provider_error"
	codeExtractionError  = "extraction_provider_error"
	codeInternalError    = "internal_error"
)

// Ingester stores one resume.
type Ingester interface {
	Ingest(ctx context.Context, in ingest.Input) (ingest.Result, error)
}

// Matcher runs one matching request.
type Matcher interface {
	Search(ctx context.Context, q matchuc.Query) (domain.Matrix, error)
}

// PillCompiler compiles a job description into pills.
type PillCompiler interface {
	Compile(ctx context.Context, jobDescription string) ([]domain.Pill, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) health.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server holds the HTTP handlers.
type Server struct {
	ingester      Ingester
	matcher       Matcher
	pills         PillCompiler
	health        HealthChecker
	filesDir      string
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. filesDir is the blob store root served
// under /files.
func NewServer(
	ingester Ingester,
	matcher Matcher,
	pills PillCompiler,
	healthSvc HealthChecker,
	filesDir string,
	logger *zap.Logger,
) *Server {
	s := &Server{
		ingester: ingester,
		matcher:  matcher,
		pills:    pills,
		health:   healthSvc,
		filesDir: filesDir,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrValidation, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrResumeNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrNoExtractableText, http.StatusUnprocessableEntity, codeNoText),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeEmbeddingError),
		sentinelHandler(domain.ErrSearchProviderError, http.StatusBadGateway, codeSearchError),
		sentinelHandler(domain.ErrExtractionProviderError, http.StatusBadGateway, codeExtractionError),
	}
	return s
}

// Routes mounts all handlers on the router.
func (s *Server) Routes(r chirouter.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Post("/resumes", s.IngestResume)
	r.Post("/pillpack/compile", s.CompilePills)
	r.Post("/search/pills", s.SearchPills)
	r.Post("/search/pills/weighted", s.SearchPillsWeighted)
	r.Post("/search/resume/details", s.ResumeDetails)
	if s.filesDir != "" {
		fs := http.StripPrefix("/files/", http.FileServer(http.Dir(s.filesDir)))
		r.Get("/files/*", fs.ServeHTTP)
	}
}

type ingestRequest struct {
	Name         string `json:"name"`
	Text         string `json:"text"`
	SourceBase64 string `json:"source_base64,omitempty"`
	SourceExt    string `json:"source_ext,omitempty"`
}

// IngestResume handles POST /resumes.
func (s *Server) IngestResume(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	var source []byte
	if req.SourceBase64 != "" {
		var err error
		source, err = base64.StdEncoding.DecodeString(req.SourceBase64)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeValidationFailed, "source_base64 is not valid base64")
			return
		}
	}

	res, err := s.ingester.Ingest(r.Context(), ingest.Input{
		Name:      req.Name,
		Text:      req.Text,
		Source:    source,
		SourceExt: req.SourceExt,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	status := http.StatusCreated
	if res.AlreadyIngested {
		status = http.StatusOK
	}
	writeJSON(w, status, res)
}

type compileRequest struct {
	JobDescription string `json:"jd"`
}

type compileResponse struct {
	Pills []pillDTO `json:"pills"`
}

type pillDTO struct {
	Pill   string   `json:"pill"`
	Weight *float64 `json:"weight,omitempty"`
}

// CompilePills handles POST /pillpack/compile.
func (s *Server) CompilePills(w http.ResponseWriter, r *http.Request) {
	var req compileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	pills, err := s.pills.Compile(r.Context(), req.JobDescription)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	out := make([]pillDTO, len(pills))
	for i, p := range pills {
		weight := p.Weight
		out[i] = pillDTO{Pill: p.Text, Weight: &weight}
	}
	writeJSON(w, http.StatusOK, compileResponse{Pills: out})
}

type searchRequest struct {
	Pills           []pillDTO           `json:"pills"`
	Synonyms        map[string][]string `json:"synonyms,omitempty"`
	TopKResumes     int                 `json:"topk_resumes,omitempty"`
	TopK            int                 `json:"top_k,omitempty"`
	Offset          int                 `json:"offset,omitempty"`
	IncludeChunkIDs bool                `json:"include_chunk_ids,omitempty"`
	ResultsPerPill  int                 `json:"results_per_pill,omitempty"`
	ResumeID        string              `json:"resume_id,omitempty"`
}

// SearchPills handles POST /search/pills.
func (s *Server) SearchPills(w http.ResponseWriter, r *http.Request) {
	s.runSearch(w, r, false, false)
}

// SearchPillsWeighted handles POST /search/pills/weighted.
func (s *Server) SearchPillsWeighted(w http.ResponseWriter, r *http.Request) {
	s.runSearch(w, r, true, false)
}

// ResumeDetails handles POST /search/resume/details.
func (s *Server) ResumeDetails(w http.ResponseWriter, r *http.Request) {
	s.runSearch(w, r, false, true)
}

func (s *Server) runSearch(w http.ResponseWriter, r *http.Request, weighted, details bool) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if details && req.ResumeID == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "resume_id is required")
		return
	}

	q, err := queryFromRequest(req, weighted, details)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	matrix, err := s.matcher.Search(r.Context(), q)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, matrixToResponse(matrix, weighted))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status == health.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"code":    code,
		"message": message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrValidation,
		domain.ErrResumeNotFound,
		domain.ErrNoExtractableText,
		domain.ErrEmbeddingProviderError,
		domain.ErrSearchProviderError,
		domain.ErrExtractionProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}

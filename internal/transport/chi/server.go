package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/domain/batch"
	"github.com/kailas-cloud/semsearch/internal/domain/kind"
	"github.com/kailas-cloud/semsearch/internal/transport/wire"
	healthuc "github.com/kailas-cloud/semsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/semsearch/internal/usecase/search"
	"github.com/kailas-cloud/semsearch/internal/version"
)

const (
	maxIndexItems = 1000
	maxBodyBytes  = 16 << 20
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the semsearch HTTP API.
type Server struct {
	indexer       Indexer
	search        Searcher
	health        HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(indexer Indexer, search Searcher, health HealthChecker, logger *zap.Logger) *Server {
	s := &Server{
		indexer: indexer,
		search:  search,
		health:  health,
		logger:  logger,
	}
	// Order matters: specific sentinels before the categories they wrap.
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadRequest, ErrorCodeVectorDimMismatch),
		sentinelHandler(domain.ErrInvalidFilter, http.StatusBadRequest, ErrorCodeInvalidFilter),
		sentinelHandler(domain.ErrValidation, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, ErrorCodeRateLimited),
		sentinelHandler(domain.ErrEmbeddingProviderError,
			http.StatusBadGateway, ErrorCodeEmbeddingProviderError),
		sentinelHandler(domain.ErrIndexUnavailable, http.StatusServiceUnavailable, ErrorCodeIndexUnavailable),
		sentinelHandler(domain.ErrCollectionUnavailable,
			http.StatusServiceUnavailable, ErrorCodeCollectionUnavailable),
		sentinelHandler(domain.ErrUpstreamUnavailable,
			http.StatusServiceUnavailable, ErrorCodeUpstreamUnavailable),
	}
	return s
}

// IndexEntities handles POST /v1/tenants/{tenantID}/index.
func (s *Server) IndexEntities(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")

	var req wire.IndexRequest
	if !s.decode(w, r, &req) {
		return
	}
	if len(req.Entities) == 0 {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "entities is required")
		return
	}
	if len(req.Entities) > maxIndexItems {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed,
			fmt.Sprintf("at most %d entities per request", maxIndexItems))
		return
	}

	entities, rejected := wire.Entities(req.Entities, tenantID)

	ctx, usage := domain.NewContextWithUsage(r.Context())
	report := batch.NewReport(rejected)
	if len(entities) > 0 {
		report.Merge(s.indexer.IndexEntities(ctx, entities))
	}

	status := http.StatusOK
	if report.Failed > 0 {
		status = http.StatusMultiStatus
	}
	setEmbeddingHeaders(w, usage)
	writeJSON(w, status, wire.FromReport(report))
}

// UnifiedSearch handles POST /v1/tenants/{tenantID}/search.
func (s *Server) UnifiedSearch(w http.ResponseWriter, r *http.Request) {
	var req wire.SearchRequest
	if !s.decode(w, r, &req) {
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	resp, err := s.search.Unified(ctx, searchuc.UnifiedQuery{
		Text:     req.Query,
		TenantID: chi.URLParam(r, "tenantID"),
		TopK:     req.TopK,
		Rerank:   req.Rerank,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, wire.FromSearch(resp))
}

// QuerySimilar handles POST /v1/tenants/{tenantID}/collections/{kind}/search.
func (s *Server) QuerySimilar(w http.ResponseWriter, r *http.Request) {
	k, ok := s.kindParam(w, r)
	if !ok {
		return
	}
	var req wire.SearchRequest
	if !s.decode(w, r, &req) {
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	resp, err := s.search.QuerySimilar(ctx, searchuc.Query{
		Kind:     k,
		Text:     req.Query,
		TenantID: chi.URLParam(r, "tenantID"),
		TopK:     req.TopK,
		Rerank:   req.Rerank,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, wire.FromSearch(resp))
}

// DeletePoint handles DELETE /v1/tenants/{tenantID}/collections/{kind}/points/{key}.
func (s *Server) DeletePoint(w http.ResponseWriter, r *http.Request) {
	k, ok := s.kindParam(w, r)
	if !ok {
		return
	}

	err := s.indexer.DeleteByID(r.Context(), k, chi.URLParam(r, "tenantID"), chi.URLParam(r, "key"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeletePoints handles POST /v1/tenants/{tenantID}/collections/{kind}/points/delete.
// The body names either entity keys or a filter.
func (s *Server) DeletePoints(w http.ResponseWriter, r *http.Request) {
	k, ok := s.kindParam(w, r)
	if !ok {
		return
	}
	var req wire.DeleteRequest
	if !s.decode(w, r, &req) {
		return
	}
	tenantID := chi.URLParam(r, "tenantID")

	var err error
	switch {
	case len(req.Keys) > 0:
		err = s.indexer.DeleteByID(r.Context(), k, tenantID, req.Keys...)
	case req.Filter != nil:
		expr, ferr := req.Filter.ToExpression()
		if ferr != nil {
			s.handleDomainError(w, ferr)
			return
		}
		err = s.indexer.DeleteByFilter(r.Context(), k, tenantID, expr)
	default:
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "keys or filter is required")
		return
	}
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:  string(report.Status),
		Version: version.String(),
		Checks:  checks,
	})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func (s *Server) kindParam(w http.ResponseWriter, r *http.Request) (kind.Kind, bool) {
	k, err := kind.Parse(chi.URLParam(r, "kind"))
	if err != nil {
		s.handleDomainError(w, err)
		return "", false
	}
	return k, true
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		wire.ErrTenantMismatch,
		domain.ErrEmptyText,
		domain.ErrVectorDimMismatch,
		domain.ErrUnknownKind,
		domain.ErrTenantRequired,
		domain.ErrInvalidFilter,
		domain.ErrValidation,
		domain.ErrRateLimited,
		domain.ErrEmbeddingProviderError,
		domain.ErrIndexUnavailable,
		domain.ErrCollectionUnavailable,
		domain.ErrUpstreamUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
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
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}

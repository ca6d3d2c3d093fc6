package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/domain/entity"
	"github.com/kailas-cloud/semsearch/internal/domain/kind"
	"github.com/kailas-cloud/semsearch/internal/domain/point"
	"github.com/kailas-cloud/semsearch/internal/domain/rerank"
	logpkg "github.com/kailas-cloud/semsearch/internal/logger"
	"github.com/kailas-cloud/semsearch/internal/metrics"
)

// Config holds query defaults.
type Config struct {
	DefaultTopK  int
	MaxTopK      int
	UnifiedKinds []kind.Kind
}

// Query is a single-kind similarity query.
type Query struct {
	Kind     kind.Kind
	Text     string
	TenantID string
	TopK     int
	Rerank   bool
}

// UnifiedQuery is a query across the unified kinds.
type UnifiedQuery struct {
	Text     string
	TenantID string
	TopK     int
	Rerank   bool
}

// Result is a ranked hit. Score is the rerank score when the hit was reranked,
// otherwise the similarity.
type Result struct {
	ID         string
	Kind       kind.Kind
	Score      float64
	Similarity float64
	Payload    map[string]any
}

// Response carries ranked results and whether a reranker ordered them.
type Response struct {
	Results  []Result
	Reranked bool
}

// Service answers similarity and unified queries.
type Service struct {
	engine   *Engine
	embedder Embedder
	reranker Reranker
	cfg      Config
	logger   *zap.Logger
}

// New creates a search service. reranker can be nil.
func New(engine *Engine, embedder Embedder, reranker Reranker, cfg Config, logger *zap.Logger) *Service {
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = 5
	}
	if cfg.MaxTopK <= 0 {
		cfg.MaxTopK = 50
	}
	if len(cfg.UnifiedKinds) == 0 {
		cfg.UnifiedKinds = []kind.Kind{kind.Product, kind.FAQ, kind.Web}
	}
	return &Service{engine: engine, embedder: embedder, reranker: reranker, cfg: cfg, logger: logger}
}

// QuerySimilar embeds the text and returns the tenant's topK most similar points of q.Kind.
func (s *Service) QuerySimilar(ctx context.Context, q Query) (Response, error) {
	if !q.Kind.IsValid() {
		return Response{}, fmt.Errorf("%w: %q", domain.ErrUnknownKind, q.Kind)
	}
	text, topK, err := s.validate(q.Text, q.TenantID, q.TopK)
	if err != nil {
		return Response{}, err
	}

	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return Response{}, fmt.Errorf("embed query: %w", err)
	}

	cands, err := s.engine.Candidates(ctx, q.Kind, vec.Embedding, q.TenantID, topK)
	if err != nil {
		return Response{}, err //nolint:wrapcheck // already classified
	}

	if !q.Rerank {
		return Response{Results: toResults(cands, topK)}, nil
	}
	results, reranked := s.rank(ctx, text, q.Kind, cands, topK)
	return Response{Results: results, Reranked: reranked}, nil
}

// Unified embeds once, queries every unified kind concurrently and merges by descending
// similarity. Each kind keeps its own order, so reranked kinds stay in rerank order while
// rerank scores are never compared with cosine scores of other kinds. Ties keep the
// configured kind order. A failing kind is skipped unless all fail.
func (s *Service) Unified(ctx context.Context, q UnifiedQuery) (Response, error) {
	text, topK, err := s.validate(q.Text, q.TenantID, q.TopK)
	if err != nil {
		return Response{}, err
	}

	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return Response{}, fmt.Errorf("embed query: %w", err)
	}

	kinds := s.cfg.UnifiedKinds
	lists := make([][]Result, len(kinds))
	reranked := make([]bool, len(kinds))
	errs := make([]error, len(kinds))

	var wg sync.WaitGroup
	for i, k := range kinds {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cands, err := s.engine.Candidates(ctx, k, vec.Embedding, q.TenantID, topK)
			if err != nil {
				errs[i] = err
				return
			}
			if q.Rerank {
				lists[i], reranked[i] = s.rank(ctx, text, k, cands, topK)
				return
			}
			lists[i] = toResults(cands, len(cands))
		}()
	}
	wg.Wait()

	var failed []error
	var anyReranked bool
	for i, k := range kinds {
		if errs[i] != nil {
			logpkg.FromContext(ctx, s.logger).Warn("Unified search kind failed", zap.String("kind", string(k)), zap.Error(errs[i]))
			failed = append(failed, errs[i])
			lists[i] = nil
			continue
		}
		anyReranked = anyReranked || reranked[i]
	}
	if len(failed) == len(kinds) {
		return Response{}, fmt.Errorf("unified search: %w: %w", domain.ErrUpstreamUnavailable, errors.Join(failed...))
	}

	return Response{Results: mergeBySimilarity(lists, topK), Reranked: anyReranked}, nil
}

// mergeBySimilarity interleaves per-kind lists without reordering any of them.
// It repeatedly takes the head with the highest similarity, the earliest list on ties.
func mergeBySimilarity(lists [][]Result, topK int) []Result {
	heads := make([]int, len(lists))
	merged := []Result{}
	for len(merged) < topK {
		best := -1
		for i, l := range lists {
			if heads[i] == len(l) {
				continue
			}
			if best < 0 || l[heads[i]].Similarity > lists[best][heads[best]].Similarity {
				best = i
			}
		}
		if best < 0 {
			break
		}
		merged = append(merged, lists[best][heads[best]])
		heads[best]++
	}
	return merged
}

// rank reranks candidates and falls back to similarity order on any reranker failure.
func (s *Service) rank(ctx context.Context, query string, k kind.Kind, cands []point.Candidate, topK int) ([]Result, bool) {
	if s.reranker == nil || len(cands) == 0 {
		return toResults(cands, topK), false
	}

	outcome := s.rerank(ctx, query, k, cands, topK)
	results, ok := applyOutcome(outcome, cands, topK)
	if !ok {
		metrics.RerankOutcomesTotal.WithLabelValues("fallback").Inc()
		return toResults(cands, topK), false
	}
	metrics.RerankOutcomesTotal.WithLabelValues("reranked").Inc()
	return results, true
}

func (s *Service) rerank(ctx context.Context, query string, k kind.Kind, cands []point.Candidate, topK int) rerank.Outcome {
	in := make([]rerank.Candidate, len(cands))
	for i, c := range cands {
		in[i] = rerank.Candidate{ID: c.ID, Text: entity.RerankText(k, c.Payload)}
	}
	res, err := s.reranker.Rerank(ctx, query, in, topK)
	if err != nil {
		logpkg.FromContext(ctx, s.logger).Warn("Rerank fell back to similarity order", zap.String("kind", string(k)), zap.Error(err))
		return rerank.NewFallback(err.Error())
	}
	return rerank.NewReranked(res)
}

// applyOutcome maps reranked ids back onto candidates. Unknown ids are ignored.
// It reports false when the outcome is a fallback or names no known candidate.
func applyOutcome(o rerank.Outcome, cands []point.Candidate, topK int) ([]Result, bool) {
	if !o.Reranked() {
		return nil, false
	}
	byID := make(map[string]point.Candidate, len(cands))
	for _, c := range cands {
		byID[c.ID] = c
	}
	out := make([]Result, 0, min(topK, len(o.Results())))
	for _, r := range o.Results() {
		c, ok := byID[r.ID]
		if !ok {
			continue
		}
		delete(byID, r.ID)
		out = append(out, Result{ID: c.ID, Kind: c.Kind, Score: r.Score, Similarity: c.Score, Payload: c.Payload})
		if len(out) == topK {
			break
		}
	}
	return out, len(out) > 0
}

func (s *Service) validate(text, tenantID string, topK int) (string, int, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", 0, domain.ErrEmptyText
	}
	if tenantID == "" {
		return "", 0, domain.ErrTenantRequired
	}
	if topK <= 0 {
		topK = s.cfg.DefaultTopK
	}
	return text, min(topK, s.cfg.MaxTopK), nil
}

func toResults(cands []point.Candidate, limit int) []Result {
	n := min(limit, len(cands))
	out := make([]Result, n)
	for i := range n {
		c := cands[i]
		out[i] = Result{ID: c.ID, Kind: c.Kind, Score: c.Score, Similarity: c.Score, Payload: c.Payload}
	}
	return out
}

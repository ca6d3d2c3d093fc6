// Package search answers tenant-scoped similarity queries, per kind and across kinds.
package search

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/domain/filter"
	"github.com/kailas-cloud/semsearch/internal/domain/kind"
	"github.com/kailas-cloud/semsearch/internal/domain/point"
	"github.com/kailas-cloud/semsearch/internal/metrics"
)

// EngineConfig tunes the candidate search.
type EngineConfig struct {
	// Oversample multiplies topK so a reranker has material to improve on.
	Oversample int
	MinScore   float64
	Timeout    time.Duration
}

// Engine runs oversampled, tenant-filtered KNN searches.
type Engine struct {
	index       Index
	collections Collections
	cfg         EngineConfig
}

// NewEngine creates a query engine.
func NewEngine(index Index, collections Collections, cfg EngineConfig) *Engine {
	if cfg.Oversample <= 0 {
		cfg.Oversample = 2
	}
	return &Engine{index: index, collections: collections, cfg: cfg}
}

// Candidates returns up to max(1, topK)*oversample points of tenantID in the collection of k,
// by descending score. The tenant filter is evaluated by the index.
func (e *Engine) Candidates(
	ctx context.Context, k kind.Kind, vector []float32, tenantID string, topK int,
) ([]point.Candidate, error) {
	if tenantID == "" {
		return nil, domain.ErrTenantRequired
	}
	spec, err := e.collections.Ensure(ctx, k)
	if err != nil {
		return nil, err //nolint:wrapcheck // already classified
	}

	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	found, err := e.index.Search(ctx, spec.Name, point.SearchRequest{
		Vector: vector,
		Filter: filter.ForTenant(tenantID),
		Limit:  max(1, topK) * e.cfg.Oversample,
	})
	if err != nil {
		metrics.SearchDuration.WithLabelValues(string(k), "error").Observe(time.Since(start).Seconds())
		return nil, fmt.Errorf("search %s: %w: %w", spec.Name, domain.ErrIndexUnavailable, err)
	}
	metrics.SearchDuration.WithLabelValues(string(k), "ok").Observe(time.Since(start).Seconds())

	out := make([]point.Candidate, 0, len(found))
	for _, c := range found {
		if c.Score < e.cfg.MinScore {
			continue
		}
		c.Kind = k
		out = append(out, c)
	}
	return out, nil
}

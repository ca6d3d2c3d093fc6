// Package indexing embeds tenant content and writes it to the vector index.
package indexing

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/domain/batch"
	"github.com/kailas-cloud/semsearch/internal/domain/entity"
	"github.com/kailas-cloud/semsearch/internal/domain/filter"
	"github.com/kailas-cloud/semsearch/internal/domain/kind"
	"github.com/kailas-cloud/semsearch/internal/domain/point"
	"github.com/kailas-cloud/semsearch/internal/domain/pointid"
	"github.com/kailas-cloud/semsearch/internal/metrics"
)

// Default upsert batch sizes per kind.
var defaultBatchSize = map[kind.Kind]int{
	kind.Product:  10,
	kind.FAQ:      10,
	kind.Web:      10,
	kind.Document: 2,
}

// Config holds batch sizes and payload text caps.
type Config struct {
	BatchSize      map[kind.Kind]int
	PayloadTextCap int
	WebTextCap     int
}

// Pipeline turns entities into points and upserts them in bounded batches.
type Pipeline struct {
	embedder    Embedder
	collections Collections
	index       Index
	cfg         Config
	logger      *zap.Logger
}

// New creates an indexing pipeline.
func New(embedder Embedder, collections Collections, index Index, cfg Config, logger *zap.Logger) *Pipeline {
	if cfg.PayloadTextCap <= 0 {
		cfg.PayloadTextCap = entity.MaxTextChars
	}
	if cfg.WebTextCap <= 0 {
		cfg.WebTextCap = 500
	}
	return &Pipeline{
		embedder:    embedder,
		collections: collections,
		index:       index,
		cfg:         cfg,
		logger:      logger,
	}
}

// IndexEntities indexes entities and reports success or a reason per entity key.
// One entity's failure never fails another batch.
func (p *Pipeline) IndexEntities(ctx context.Context, entities []entity.Entity) batch.Report {
	order, groups := groupByKind(entities)

	results := make([]batch.Result, 0, len(entities))
	for _, k := range order {
		results = append(results, p.indexGroup(ctx, k, groups[k])...)
	}

	rep := batch.NewReport(results)
	if rep.Failed > 0 {
		p.logger.Warn("Indexing finished with failures",
			zap.Int("succeeded", rep.Succeeded),
			zap.Int("failed", rep.Failed),
		)
	}
	return rep
}

func (p *Pipeline) indexGroup(ctx context.Context, k kind.Kind, group []entity.Entity) []batch.Result {
	results := make([]batch.Result, 0, len(group))

	valid := make([]entity.Entity, 0, len(group))
	texts := make([]string, 0, len(group))
	for _, e := range group {
		switch {
		case e.TenantID() == "":
			results = append(results, p.fail(e.Key(), k, domain.ErrTenantRequired))
		case !e.HasKey():
			results = append(results, p.fail(e.Key(), k, domain.ErrKeyRequired))
		case e.Text() == "":
			results = append(results, p.fail(e.Key(), k, domain.ErrEmptyText))
		default:
			valid = append(valid, e)
			texts = append(texts, e.Text())
		}
	}
	if len(valid) == 0 {
		return results
	}

	spec, err := p.collections.Ensure(ctx, k)
	if err != nil {
		for _, e := range valid {
			results = append(results, p.fail(e.Key(), k, err))
		}
		return results
	}

	size := p.batchSize(k)
	for start := 0; start < len(valid); start += size {
		end := min(start+size, len(valid))
		results = append(results, p.indexBatch(ctx, spec.Name, k, valid[start:end], texts[start:end])...)
	}
	return results
}

// indexBatch embeds and upserts one bounded batch. Any failure fails only this batch.
func (p *Pipeline) indexBatch(
	ctx context.Context, collection string, k kind.Kind, items []entity.Entity, texts []string,
) []batch.Result {
	failAll := func(err error) []batch.Result {
		out := make([]batch.Result, len(items))
		for i, e := range items {
			out[i] = p.fail(e.Key(), k, err)
		}
		return out
	}

	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		p.logger.Error("Batch embedding failed", zap.String("kind", string(k)), zap.Int("size", len(items)), zap.Error(err))
		return failAll(err)
	}
	if len(vectors) != len(items) {
		return failAll(fmt.Errorf("%w: got %d vectors for %d texts",
			domain.ErrEmbeddingProviderError, len(vectors), len(items)))
	}

	points := make([]point.Point, len(items))
	for i, e := range items {
		points[i] = point.Point{
			ID:      pointid.For(k, e.Key()),
			Vector:  vectors[i],
			Payload: e.Payload(p.textCap(k)),
		}
	}

	if err := p.index.Upsert(ctx, collection, points); err != nil {
		p.logger.Error("Batch upsert failed", zap.String("collection", collection), zap.Int("size", len(points)), zap.Error(err))
		return failAll(fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, err))
	}

	metrics.IndexedPointsTotal.WithLabelValues(string(k), "ok").Add(float64(len(items)))
	out := make([]batch.Result, len(items))
	for i, e := range items {
		out[i] = batch.NewOK(e.Key(), k)
	}
	return out
}

// DeleteByID removes the points of the given entity keys, only within tenantID.
func (p *Pipeline) DeleteByID(ctx context.Context, k kind.Kind, tenantID string, keys ...string) error {
	if tenantID == "" {
		return domain.ErrTenantRequired
	}
	if len(keys) == 0 {
		return nil
	}
	spec, err := p.collections.Ensure(ctx, k)
	if err != nil {
		return err //nolint:wrapcheck // already classified
	}

	ids := make([]string, len(keys))
	for i, key := range keys {
		ids[i] = pointid.For(k, key)
	}
	sel := point.Selector{IDs: ids, Filter: filter.ForTenant(tenantID)}
	if err := p.index.Delete(ctx, spec.Name, sel); err != nil {
		return fmt.Errorf("delete %d %s points: %w: %w", len(ids), k, domain.ErrIndexUnavailable, err)
	}
	return nil
}

// DeleteByFilter removes the tenant's points of kind k matching expr.
// tenant_id == tenantID is always added to must.
func (p *Pipeline) DeleteByFilter(ctx context.Context, k kind.Kind, tenantID string, expr filter.Expression) error {
	if tenantID == "" {
		return domain.ErrTenantRequired
	}
	spec, err := p.collections.Ensure(ctx, k)
	if err != nil {
		return err //nolint:wrapcheck // already classified
	}
	if err := expr.Restrict(spec.Filterable()); err != nil {
		return err //nolint:wrapcheck // validation error
	}

	sel := point.Selector{Filter: expr.ScopedTo(tenantID)}
	if err := p.index.Delete(ctx, spec.Name, sel); err != nil {
		return fmt.Errorf("delete %s points by filter: %w: %w", k, domain.ErrIndexUnavailable, err)
	}
	return nil
}

func (p *Pipeline) fail(key string, k kind.Kind, err error) batch.Result {
	metrics.IndexedPointsTotal.WithLabelValues(string(k), "failed").Inc()
	return batch.NewError(key, k, err)
}

func (p *Pipeline) batchSize(k kind.Kind) int {
	if n := p.cfg.BatchSize[k]; n > 0 {
		return n
	}
	if n := defaultBatchSize[k]; n > 0 {
		return n
	}
	return 10
}

func (p *Pipeline) textCap(k kind.Kind) int {
	if k == kind.Web {
		return p.cfg.WebTextCap
	}
	return p.cfg.PayloadTextCap
}

// groupByKind groups entities by kind, keeping first-seen kind order and item order.
func groupByKind(entities []entity.Entity) ([]kind.Kind, map[kind.Kind][]entity.Entity) {
	var order []kind.Kind
	groups := make(map[kind.Kind][]entity.Entity)
	for _, e := range entities {
		if e == nil {
			continue
		}
		k := e.Kind()
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], e)
	}
	return order, groups
}

// Package points stores vectors as Redis hashes indexed by RediSearch or valkey-search.
package points

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/kailas-cloud/semsearch/internal/db"
	"github.com/kailas-cloud/semsearch/internal/domain/point"
)

// Hash fields reserved by the repository.
const (
	fieldVector  = "__vector"
	fieldID      = "__id"
	fieldPayload = "__payload"

	deletePage = 500
)

// store is the consumer interface for points (ISP).
//
//nolint:interfacebloat // points repo needs hash, index and search operations
type store interface {
	Ping(ctx context.Context) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGet(ctx context.Context, key, field string) (string, error)
	Del(ctx context.Context, keys ...string) (int64, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SupportsFilterQuery() bool
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchKeys(ctx context.Context, q *db.KeysQuery) ([]string, error)
}

// HNSWConfig HNSW index parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Repo implements point.Index on a Redis-protocol store.
type Repo struct {
	store  store
	prefix string
	hnsw   HNSWConfig
}

var _ point.Index = (*Repo)(nil)

// New creates a points repository. keyPrefix namespaces every key and index.
func New(s store, keyPrefix string) *Repo {
	return &Repo{store: s, prefix: keyPrefix, hnsw: HNSWConfig{M: 16, EFConstruct: 200}}
}

// WithHNSW configures HNSW index parameters.
func (r *Repo) WithHNSW(cfg HNSWConfig) *Repo {
	if cfg.M > 0 {
		r.hnsw.M = cfg.M
	}
	if cfg.EFConstruct > 0 {
		r.hnsw.EFConstruct = cfg.EFConstruct
	}
	return r
}

// Ping checks store connectivity.
func (r *Repo) Ping(ctx context.Context) error {
	if err := r.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Collection reports whether the collection index exists.
// FT.INFO output differs between engines, so the dimension is reported as 0.
func (r *Repo) Collection(ctx context.Context, name string) (point.CollectionInfo, error) {
	ok, err := r.store.IndexExists(ctx, r.indexName(name))
	if err != nil {
		return point.CollectionInfo{}, fmt.Errorf("check index %s: %w", name, err)
	}
	if !ok {
		return point.CollectionInfo{}, db.ErrCollectionNotFound
	}
	return point.CollectionInfo{Name: name}, nil
}

// CreateCollection creates the FT index over {prefix}{name}: hashes.
func (r *Repo) CreateCollection(ctx context.Context, spec point.CollectionSpec) error {
	def, err := buildIndex(r.indexName(spec.Name), r.keyPrefix(spec.Name), spec, r.hnsw)
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return db.ErrCollectionExists
		}
		return fmt.Errorf("create index %s: %w", spec.Name, err)
	}
	return nil
}

// Upsert writes points as hashes. Each hash is replaced whole, so filter fields
// dropped from a re-indexed payload do not linger in the FT index.
func (r *Repo) Upsert(ctx context.Context, collection string, points []point.Point) error {
	if len(points) == 0 {
		return nil
	}
	items := make([]db.HashSetItem, 0, len(points))
	for i := range points {
		fields, err := buildHashFields(&points[i])
		if err != nil {
			return fmt.Errorf("encode point %s: %w", points[i].ID, err)
		}
		items = append(items, db.HashSetItem{
			Key:     r.pointKey(collection, points[i].ID),
			Fields:  fields,
			Replace: true,
		})
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("hset points: %w", err)
	}
	return nil
}

// Search runs a KNN query and returns candidates ordered by descending score.
func (r *Repo) Search(ctx context.Context, collection string, req point.SearchRequest) ([]point.Candidate, error) {
	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.indexName(collection),
		Filters:      req.Filter,
		Vector:       req.Vector,
		K:            req.Limit,
		ReturnFields: []string{fieldID, fieldPayload},
	})
	if err != nil {
		return nil, fmt.Errorf("knn search %s: %w", collection, err)
	}

	out := make([]point.Candidate, 0, len(res.Entries))
	for _, e := range res.Entries {
		c, err := parseEntry(r.keyPrefix(collection), e)
		if err != nil {
			return nil, fmt.Errorf("parse hit %s: %w", e.Key, err)
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}

// Delete removes points matched by the selector.
// Explicit ids are checked against the filter before removal so a tenant never deletes another's points.
func (r *Repo) Delete(ctx context.Context, collection string, sel point.Selector) error {
	if sel.IsEmpty() {
		return db.ErrUnsupportedSelector
	}
	if len(sel.IDs) > 0 {
		keys := make([]string, len(sel.IDs))
		for i, id := range sel.IDs {
			keys[i] = r.pointKey(collection, id)
		}
		return r.deleteMatching(ctx, keys, sel)
	}
	if !r.store.SupportsFilterQuery() {
		keys, err := r.store.Scan(ctx, r.keyPrefix(collection)+"*")
		if err != nil {
			return fmt.Errorf("scan %s: %w", collection, err)
		}
		return r.deleteMatching(ctx, keys, sel)
	}
	return r.deleteByQuery(ctx, collection, sel)
}

// deleteMatching loads each payload and deletes the keys whose payload passes the filter.
func (r *Repo) deleteMatching(ctx context.Context, keys []string, sel point.Selector) error {
	victims := make([]string, 0, len(keys))
	for _, key := range keys {
		raw, err := r.store.HGet(ctx, key, fieldPayload)
		if errors.Is(err, db.ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("load payload %s: %w", key, err)
		}
		payload, err := decodePayload(raw)
		if err != nil {
			return fmt.Errorf("decode payload %s: %w", key, err)
		}
		if sel.Filter.Matches(payload) {
			victims = append(victims, key)
		}
	}
	if len(victims) == 0 {
		return nil
	}
	if _, err := r.store.Del(ctx, victims...); err != nil {
		return fmt.Errorf("del points: %w", err)
	}
	return nil
}

// deleteByQuery pages through FT.SEARCH NOCONTENT until nothing matches.
func (r *Repo) deleteByQuery(ctx context.Context, collection string, sel point.Selector) error {
	for {
		keys, err := r.store.SearchKeys(ctx, &db.KeysQuery{
			IndexName: r.indexName(collection),
			Filters:   sel.Filter,
			Limit:     deletePage,
		})
		if err != nil {
			return fmt.Errorf("select points %s: %w", collection, err)
		}
		if len(keys) == 0 {
			return nil
		}
		n, err := r.store.Del(ctx, keys...)
		if err != nil {
			return fmt.Errorf("del points: %w", err)
		}
		if n == 0 || len(keys) < deletePage {
			return nil
		}
	}
}

// Key patterns: {prefix}{collection}:idx, {prefix}{collection}:{id}

func (r *Repo) indexName(collection string) string {
	return fmt.Sprintf("%s%s:idx", r.prefix, collection)
}

func (r *Repo) keyPrefix(collection string) string {
	return fmt.Sprintf("%s%s:", r.prefix, collection)
}

func (r *Repo) pointKey(collection, id string) string {
	return r.keyPrefix(collection) + id
}

func decodePayload(raw string) (map[string]any, error) {
	payload := map[string]any{}
	if raw == "" {
		return payload, nil
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, err //nolint:wrapcheck // callers wrap
	}
	return payload, nil
}

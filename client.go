package semsearch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/semsearch/internal/db/qdrant"
	dbRedis "github.com/kailas-cloud/semsearch/internal/db/redis"
	"github.com/kailas-cloud/semsearch/internal/domain/kind"
	"github.com/kailas-cloud/semsearch/internal/domain/point"
	"github.com/kailas-cloud/semsearch/internal/repository/points"
	openaiEmb "github.com/kailas-cloud/semsearch/internal/transport/openai"
	collectionuc "github.com/kailas-cloud/semsearch/internal/usecase/collection"
	embeddinguc "github.com/kailas-cloud/semsearch/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/semsearch/internal/usecase/health"
	"github.com/kailas-cloud/semsearch/internal/usecase/indexing"
	searchuc "github.com/kailas-cloud/semsearch/internal/usecase/search"
)

const (
	defaultDimension        = 384
	defaultKeyPrefix        = "semsearch:"
	defaultReadinessTimeout = 10 * time.Second
)

var defaultCollections = map[kind.Kind]string{
	kind.Product:  "products",
	kind.FAQ:      "faq",
	kind.Web:      "web_knowledge",
	kind.Document: "documents",
}

// Client is the semsearch SDK entry point.
type Client struct {
	closeFn     func()
	collections *collectionuc.Manager
	pipeline    *indexing.Pipeline
	search      *searchuc.Service
	health      *healthuc.Service
}

// New connects to the configured index, waits for it and ensures all collections.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o(cfg)
	}
	applyDefaults(cfg)

	if len(cfg.addrs) == 0 || cfg.addrs[0] == "" {
		return nil, errors.New("semsearch: no index address (use WithQdrant, WithRedis or WithValkey)")
	}
	embedder, err := createEmbedder(cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.readinessTimeout)
	defer cancel()

	index, closeFn, err := createIndex(ctx, cfg)
	if err != nil {
		return nil, err
	}

	c := wireClient(index, embedder, cfg)
	c.closeFn = closeFn
	if err := c.collections.EnsureCollections(ctx); err != nil {
		c.Close()
		return nil, fmt.Errorf("semsearch: ensure collections: %w", err)
	}
	return c, nil
}

func applyDefaults(cfg *clientConfig) {
	if cfg.dimension <= 0 {
		cfg.dimension = defaultDimension
	}
	if cfg.keyPrefix == "" {
		cfg.keyPrefix = defaultKeyPrefix
	}
	if cfg.readinessTimeout <= 0 {
		cfg.readinessTimeout = defaultReadinessTimeout
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}
}

func createEmbedder(cfg *clientConfig) (Embedder, error) {
	switch {
	case cfg.embedder != nil:
		return cfg.embedder, nil
	case cfg.openAI != nil:
		return openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     cfg.openAI.apiKey,
			BaseURL:    cfg.openAI.baseURL,
			Model:      cfg.openAI.model,
			Dimensions: cfg.dimension,
			Provider:   "openai",
			Logger:     cfg.logger,
		}), nil
	default:
		return nil, errors.New("semsearch: embedder not configured (use WithEmbedder or WithOpenAI)")
	}
}

func createIndex(ctx context.Context, cfg *clientConfig) (point.Index, func(), error) {
	switch cfg.driver {
	case driverQdrant:
		s, err := qdrant.NewStore(qdrant.Config{
			Addr:            cfg.addrs[0],
			HNSWM:           cfg.hnswM,
			HNSWEFConstruct: cfg.hnswEFConstruct,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("semsearch: create qdrant store: %w", err)
		}
		if err := s.WaitForReady(ctx, cfg.readinessTimeout); err != nil {
			_ = s.Close()
			return nil, nil, fmt.Errorf("semsearch: qdrant not ready: %w", err)
		}
		return s, func() { _ = s.Close() }, nil
	case driverRedis, driverValkey:
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
			Valkey:   cfg.driver == driverValkey,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("semsearch: create %s store: %w", cfg.driver, err)
		}
		if err := s.WaitForReady(ctx, cfg.readinessTimeout); err != nil {
			s.Close()
			return nil, nil, fmt.Errorf("semsearch: %s not ready: %w", cfg.driver, err)
		}
		repo := points.New(s, cfg.keyPrefix).WithHNSW(points.HNSWConfig{
			M:           cfg.hnswM,
			EFConstruct: cfg.hnswEFConstruct,
		})
		return repo, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("semsearch: unknown driver %q", cfg.driver)
	}
}

func wireClient(index point.Index, embedder Embedder, cfg *clientConfig) *Client {
	specs := make([]point.CollectionSpec, 0, len(kind.All()))
	for _, k := range kind.All() {
		name := defaultCollections[k]
		if custom, ok := cfg.collections[k]; ok && custom != "" {
			name = custom
		}
		specs = append(specs, collectionuc.NewSpec(k, name, cfg.dimension))
	}
	collections := collectionuc.New(index, specs, cfg.logger)

	client := embeddinguc.NewClient(embedder, embeddinguc.Config{Dimension: cfg.dimension})

	engine := searchuc.NewEngine(index, collections, searchuc.EngineConfig{})
	return &Client{
		closeFn:     func() {},
		collections: collections,
		pipeline:    indexing.New(client, collections, index, indexing.Config{}, cfg.logger),
		search:      searchuc.New(engine, client, cfg.reranker, searchuc.Config{}, cfg.logger),
		health:      healthuc.New(index, client, collections),
	}
}

// Close releases the index connection.
func (c *Client) Close() {
	if c.closeFn != nil {
		c.closeFn()
	}
}

// Index embeds and upserts entities. Items fail individually, see Report.Failures.
func (c *Client) Index(ctx context.Context, entities ...Entity) Report {
	return c.pipeline.IndexEntities(ctx, entities)
}

// Search runs a similarity query against one kind.
func (c *Client) Search(ctx context.Context, q Query) (SearchResponse, error) {
	res, err := c.search.QuerySimilar(ctx, q)
	if err != nil {
		return SearchResponse{}, fmt.Errorf("semsearch: search: %w", err)
	}
	return res, nil
}

// SearchAll runs a query across products, FAQ and web content and merges by score.
func (c *Client) SearchAll(ctx context.Context, q UnifiedQuery) (SearchResponse, error) {
	res, err := c.search.Unified(ctx, q)
	if err != nil {
		return SearchResponse{}, fmt.Errorf("semsearch: unified search: %w", err)
	}
	return res, nil
}

// Delete removes the points of a tenant's entities by key.
func (c *Client) Delete(ctx context.Context, k Kind, tenantID string, keys ...string) error {
	if err := c.pipeline.DeleteByID(ctx, k, tenantID, keys...); err != nil {
		return fmt.Errorf("semsearch: delete: %w", err)
	}
	return nil
}

// Health checks the index, the embedder and the collections.
func (c *Client) Health(ctx context.Context) HealthReport {
	return c.health.Check(ctx)
}

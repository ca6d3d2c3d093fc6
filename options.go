package semsearch

import (
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/semsearch/internal/domain/kind"
)

const (
	driverQdrant = "qdrant"
	driverRedis  = "redis"
	driverValkey = "valkey"
)

// Option configures the Client.
type Option func(*clientConfig)

type clientConfig struct {
	driver   string
	addrs    []string
	password string

	embedder  Embedder
	openAI    *openAIConfig
	dimension int
	reranker  Reranker

	hnswM            int
	hnswEFConstruct  int
	keyPrefix        string
	collections      map[kind.Kind]string
	readinessTimeout time.Duration

	logger *zap.Logger
}

type openAIConfig struct {
	baseURL string
	apiKey  string
	model   string
}

// WithQdrant stores vectors in Qdrant, addr is its gRPC endpoint.
func WithQdrant(addr string) Option {
	return func(c *clientConfig) {
		c.driver = driverQdrant
		c.addrs = []string{addr}
	}
}

// WithRedis stores vectors in Redis with the search module.
func WithRedis(addr, password string) Option {
	return func(c *clientConfig) {
		c.driver = driverRedis
		c.addrs = []string{addr}
		c.password = password
	}
}

// WithValkey stores vectors in Valkey with valkey-search.
func WithValkey(addr, password string) Option {
	return func(c *clientConfig) {
		c.driver = driverValkey
		c.addrs = []string{addr}
		c.password = password
	}
}

// WithEmbedder sets a custom embedding provider. Takes precedence over WithOpenAI.
func WithEmbedder(e Embedder) Option {
	return func(c *clientConfig) {
		c.embedder = e
	}
}

// WithOpenAI embeds through an OpenAI-compatible endpoint.
func WithOpenAI(baseURL, apiKey, model string) Option {
	return func(c *clientConfig) {
		c.openAI = &openAIConfig{baseURL: baseURL, apiKey: apiKey, model: model}
	}
}

// WithDimension sets the embedding dimension. Defaults to 384.
func WithDimension(dim int) Option {
	return func(c *clientConfig) {
		c.dimension = dim
	}
}

// WithReranker enables reranking for queries that ask for it.
func WithReranker(r Reranker) Option {
	return func(c *clientConfig) {
		c.reranker = r
	}
}

// WithHNSW configures HNSW index parameters (M and EF construction).
func WithHNSW(m, efConstruct int) Option {
	return func(c *clientConfig) {
		c.hnswM = m
		c.hnswEFConstruct = efConstruct
	}
}

// WithKeyPrefix sets the key namespace on Redis and Valkey. Defaults to "semsearch:".
func WithKeyPrefix(prefix string) Option {
	return func(c *clientConfig) {
		c.keyPrefix = prefix
	}
}

// WithCollectionName overrides the collection used for a kind.
func WithCollectionName(k Kind, name string) Option {
	return func(c *clientConfig) {
		if c.collections == nil {
			c.collections = make(map[kind.Kind]string)
		}
		c.collections[k] = name
	}
}

// WithReadinessTimeout bounds how long New waits for the index. Defaults to 10s.
func WithReadinessTimeout(d time.Duration) Option {
	return func(c *clientConfig) {
		c.readinessTimeout = d
	}
}

// WithLogger enables structured logging. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *clientConfig) {
		c.logger = l
	}
}

package health

import "context"

// IndexPinger checks vector index availability.
type IndexPinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// CollectionsChecker reports whether every configured collection is ensured.
type CollectionsChecker interface {
	Check(ctx context.Context) error
}

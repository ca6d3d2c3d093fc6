package chi

import (
	"context"

	"github.com/kailas-cloud/semsearch/internal/domain/batch"
	"github.com/kailas-cloud/semsearch/internal/domain/entity"
	"github.com/kailas-cloud/semsearch/internal/domain/filter"
	"github.com/kailas-cloud/semsearch/internal/domain/kind"
	healthuc "github.com/kailas-cloud/semsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/semsearch/internal/usecase/search"
)

// Indexer indexes and deletes tenant content.
type Indexer interface {
	IndexEntities(ctx context.Context, entities []entity.Entity) batch.Report
	DeleteByID(ctx context.Context, k kind.Kind, tenantID string, keys ...string) error
	DeleteByFilter(ctx context.Context, k kind.Kind, tenantID string, expr filter.Expression) error
}

// Searcher answers similarity queries.
type Searcher interface {
	QuerySimilar(ctx context.Context, q searchuc.Query) (searchuc.Response, error)
	Unified(ctx context.Context, q searchuc.UnifiedQuery) (searchuc.Response, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

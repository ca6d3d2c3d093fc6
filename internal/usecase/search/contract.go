package search

import (
	"context"

	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/domain/kind"
	"github.com/kailas-cloud/semsearch/internal/domain/point"
	"github.com/kailas-cloud/semsearch/internal/domain/rerank"
)

// Embedder vectorizes query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Index is the read side of the vector index.
type Index interface {
	Search(ctx context.Context, collection string, req point.SearchRequest) ([]point.Candidate, error)
}

// Collections resolves and ensures the collection of a kind.
type Collections interface {
	Ensure(ctx context.Context, k kind.Kind) (point.CollectionSpec, error)
}

// Reranker orders candidates by relevance to the query.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []rerank.Candidate, topN int) ([]rerank.Result, error)
}

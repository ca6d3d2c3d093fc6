package search

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/domain/kind"
	"github.com/kailas-cloud/semsearch/internal/domain/point"
	"github.com/kailas-cloud/semsearch/internal/domain/rerank"
)

// --- Mocks ---

type mockEmbedder struct {
	err   error
	calls int
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: []float32{1, 0}}, nil
}

type mockIndex struct {
	mu       sync.Mutex
	searchFn func(ctx context.Context, collection string, req point.SearchRequest) ([]point.Candidate, error)
	requests map[string]point.SearchRequest
}

func (m *mockIndex) Search(ctx context.Context, collection string, req point.SearchRequest) ([]point.Candidate, error) {
	m.mu.Lock()
	if m.requests == nil {
		m.requests = map[string]point.SearchRequest{}
	}
	m.requests[collection] = req
	m.mu.Unlock()
	if m.searchFn != nil {
		return m.searchFn(ctx, collection, req)
	}
	return nil, nil
}

type mockCollections struct{}

func (mockCollections) Ensure(_ context.Context, k kind.Kind) (point.CollectionSpec, error) {
	return point.CollectionSpec{Name: string(k), Kind: k, Dimension: 2}, nil
}

type mockReranker struct {
	mu       sync.Mutex
	rerankFn func(ctx context.Context, query string, cands []rerank.Candidate, topN int) ([]rerank.Result, error)
	got      []rerank.Candidate
}

func (m *mockReranker) Rerank(ctx context.Context, query string, cands []rerank.Candidate, topN int) ([]rerank.Result, error) {
	m.mu.Lock()
	m.got = cands
	m.mu.Unlock()
	return m.rerankFn(ctx, query, cands, topN)
}

func cand(id string, score float64) point.Candidate {
	return point.Candidate{ID: id, Score: score, Payload: map[string]any{"question": "q" + id, "answer": "a" + id}}
}

func newTestService(idx *mockIndex, rr Reranker) (*Service, *mockEmbedder) {
	emb := &mockEmbedder{}
	engine := NewEngine(idx, mockCollections{}, EngineConfig{Oversample: 2})
	return New(engine, emb, rr, Config{}, zap.NewNop()), emb
}

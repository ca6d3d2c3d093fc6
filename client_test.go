package semsearch

import (
	"context"
	"errors"
	"math"
	"slices"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/kailas-cloud/semsearch/internal/db"
	"github.com/kailas-cloud/semsearch/internal/domain/point"
	healthuc "github.com/kailas-cloud/semsearch/internal/usecase/health"
)

// --- Mocks ---

// memIndex is an in-memory cosine index.
type memIndex struct {
	mu          sync.Mutex
	collections map[string]point.CollectionSpec
	points      map[string]map[string]point.Point
	pingErr     error
}

func newMemIndex() *memIndex {
	return &memIndex{
		collections: make(map[string]point.CollectionSpec),
		points:      make(map[string]map[string]point.Point),
	}
}

func (m *memIndex) Collection(_ context.Context, name string) (point.CollectionInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	spec, ok := m.collections[name]
	if !ok {
		return point.CollectionInfo{}, db.ErrCollectionNotFound
	}
	return point.CollectionInfo{Name: name, Dimension: spec.Dimension}, nil
}

func (m *memIndex) CreateCollection(_ context.Context, spec point.CollectionSpec) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections[spec.Name] = spec
	m.points[spec.Name] = make(map[string]point.Point)
	return nil
}

func (m *memIndex) Upsert(_ context.Context, collection string, pts []point.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range pts {
		m.points[collection][p.ID] = p
	}
	return nil
}

func (m *memIndex) Search(_ context.Context, collection string, req point.SearchRequest) ([]point.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []point.Candidate
	for _, p := range m.points[collection] {
		if !req.Filter.Matches(p.Payload) {
			continue
		}
		out = append(out, point.Candidate{ID: p.ID, Score: cosine(req.Vector, p.Vector), Payload: p.Payload})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > req.Limit {
		out = out[:req.Limit]
	}
	return out, nil
}

func (m *memIndex) Delete(_ context.Context, collection string, sel point.Selector) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, p := range m.points[collection] {
		if len(sel.IDs) > 0 && !slices.Contains(sel.IDs, id) {
			continue
		}
		if sel.Filter.Matches(p.Payload) {
			delete(m.points[collection], id)
		}
	}
	return nil
}

func (m *memIndex) Ping(_ context.Context) error { return m.pingErr }

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// topicEmbedder puts one axis per topic word.
type topicEmbedder struct{}

func (topicEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	text = strings.ToLower(text)
	vec := []float32{0.01, 0.01, 0.01}
	for i, w := range []string{"refund", "shipping", "phone"} {
		if strings.Contains(text, w) {
			vec[i] = 1
		}
	}
	return EmbeddingResult{Embedding: vec, TotalTokens: 1}, nil
}

func newTestClient(t *testing.T, idx *memIndex) *Client {
	t.Helper()
	cfg := &clientConfig{dimension: 3}
	applyDefaults(cfg)
	return wireClient(idx, topicEmbedder{}, cfg)
}

// --- Tests ---

func TestNew_NoAddress(t *testing.T) {
	_, err := New(WithEmbedder(topicEmbedder{}))
	if err == nil {
		t.Fatal("expected error when no address provided")
	}
}

func TestNew_NoEmbedder(t *testing.T) {
	_, err := New(WithQdrant("localhost:6334"))
	if err == nil || !strings.Contains(err.Error(), "embedder") {
		t.Fatalf("expected embedder error, got %v", err)
	}
}

func TestCreateIndex_UnknownDriver(t *testing.T) {
	cfg := &clientConfig{driver: "unknown", addrs: []string{"localhost:1234"}}
	applyDefaults(cfg)
	_, _, err := createIndex(context.Background(), cfg)
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestClientOptions(t *testing.T) {
	cfg := &clientConfig{}

	WithValkey("localhost:6379", "secret")(cfg)
	if cfg.driver != driverValkey || cfg.addrs[0] != "localhost:6379" || cfg.password != "secret" {
		t.Errorf("unexpected valkey config: %+v", cfg)
	}

	WithQdrant("localhost:6334")(cfg)
	if cfg.driver != driverQdrant {
		t.Errorf("driver = %q, want qdrant", cfg.driver)
	}

	WithHNSW(16, 200)(cfg)
	if cfg.hnswM != 16 || cfg.hnswEFConstruct != 200 {
		t.Errorf("hnsw = (%d, %d), want (16, 200)", cfg.hnswM, cfg.hnswEFConstruct)
	}

	WithCollectionName(KindFAQ, "support_faq")(cfg)
	if cfg.collections[KindFAQ] != "support_faq" {
		t.Errorf("faq collection = %q", cfg.collections[KindFAQ])
	}

	applyDefaults(cfg)
	if cfg.dimension != defaultDimension || cfg.keyPrefix != defaultKeyPrefix || cfg.logger == nil {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestCreateEmbedder_CustomWins(t *testing.T) {
	cfg := &clientConfig{embedder: topicEmbedder{}, openAI: &openAIConfig{model: "m"}}
	e, err := createEmbedder(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := e.(topicEmbedder); !ok {
		t.Errorf("expected custom embedder, got %T", e)
	}
}

func TestClient_IndexSearchDelete(t *testing.T) {
	idx := newMemIndex()
	c := newTestClient(t, idx)
	ctx := context.Background()

	if err := c.collections.EnsureCollections(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	report := c.Index(ctx,
		FaqEntry{ID: "1", Tenant: "acme", Question: "How do refunds work?", Answer: "Refund in 14 days"},
		FaqEntry{ID: "2", Tenant: "acme", Question: "Shipping times?", Answer: "Shipping takes 3 days"},
		FaqEntry{ID: "3", Tenant: "other", Question: "Refund policy", Answer: "No refund"},
		FaqEntry{ID: "4", Tenant: "acme"},
	)
	if report.Succeeded != 3 || report.Failed != 1 {
		t.Fatalf("expected 3 ok and 1 failed, got %+v", report)
	}

	res, err := c.Search(ctx, Query{Kind: KindFAQ, TenantID: "acme", Text: "refund", TopK: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Results) != 2 {
		t.Fatalf("expected 2 acme results, got %d", len(res.Results))
	}
	if got := point.String(res.Results[0].Payload, point.FieldEntityKey); got != "1" {
		t.Errorf("expected refund entry first, got %q", got)
	}
	for _, r := range res.Results {
		if point.String(r.Payload, point.FieldTenantID) != "acme" {
			t.Errorf("result leaked from another tenant: %+v", r.Payload)
		}
	}

	if err := c.Delete(ctx, KindFAQ, "acme", "1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res, err = c.Search(ctx, Query{Kind: KindFAQ, TenantID: "acme", Text: "refund", TopK: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Results) != 1 || point.String(res.Results[0].Payload, point.FieldEntityKey) != "2" {
		t.Errorf("expected only entry 2 after delete, got %+v", res.Results)
	}

	other, err := c.Search(ctx, Query{Kind: KindFAQ, TenantID: "other", Text: "refund", TopK: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(other.Results) != 1 {
		t.Errorf("delete must not touch other tenants, got %d results", len(other.Results))
	}
}

func TestClient_SearchAll(t *testing.T) {
	c := newTestClient(t, newMemIndex())
	ctx := context.Background()

	c.Index(ctx,
		Product{ID: "p1", Tenant: "acme", Name: "Phone X"},
		FaqEntry{ID: "f1", Tenant: "acme", Question: "Phone warranty?", Answer: "One year"},
	)

	res, err := c.SearchAll(ctx, UnifiedQuery{TenantID: "acme", Text: "phone", TopK: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	kinds := map[Kind]bool{}
	for _, r := range res.Results {
		kinds[r.Kind] = true
	}
	if !kinds[KindProduct] || !kinds[KindFAQ] {
		t.Errorf("expected product and faq hits, got %+v", res.Results)
	}
}

func TestClient_SearchValidation(t *testing.T) {
	c := newTestClient(t, newMemIndex())

	_, err := c.Search(context.Background(), Query{Kind: KindFAQ, TenantID: "acme", Text: "  "})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestClient_Health(t *testing.T) {
	idx := newMemIndex()
	c := newTestClient(t, idx)
	ctx := context.Background()

	if got := c.Health(ctx).Status; got != healthuc.Healthy {
		t.Errorf("expected healthy, got %q", got)
	}

	idx.pingErr = errors.New("down")
	if got := c.Health(ctx).Status; got != healthuc.Unhealthy {
		t.Errorf("expected unhealthy, got %q", got)
	}
}

func TestClient_Close_NoIndex(t *testing.T) {
	c := &Client{}
	c.Close()
}

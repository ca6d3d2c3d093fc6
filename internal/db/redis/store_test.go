package redis

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/kailas-cloud/semsearch/internal/db"
	"github.com/kailas-cloud/semsearch/internal/domain/filter"
)

// --- client.go tests ---

func TestPing_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.Result(mock.RedisString("PONG")))

	s := NewStoreForTest(c, false)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPing_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c, false)
	if err := s.Ping(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

// --- hash.go tests ---

func TestHSetMulti_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisInt64(2)),
			mock.Result(mock.RedisInt64(2)),
		})

	s := NewStoreForTest(c, false)
	err := s.HSetMulti(context.Background(), []db.HashSetItem{
		{Key: "k1", Fields: map[string]string{"f1": "v1"}},
		{Key: "k2", Fields: map[string]string{"f2": "v2"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHSetMulti_PartialError(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisInt64(2)),
			mock.ErrorResult(context.DeadlineExceeded),
		})

	s := NewStoreForTest(c, false)
	err := s.HSetMulti(context.Background(), []db.HashSetItem{
		{Key: "k1", Fields: map[string]string{"f": "v"}},
		{Key: "k2", Fields: map[string]string{"f": "v"}},
	})
	if !isDBError(err) {
		t.Fatalf("expected db.Error, got %v", err)
	}
	if !strings.Contains(err.Error(), "k2") {
		t.Errorf("error should name the failing key: %v", err)
	}
}

func TestHSetMulti_ReplaceDeletesFirst(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(),
			mock.Match("DEL", "k1"),
			mock.Match("HSET", "k1", "f1", "v1"),
			mock.Match("HSET", "k2", "f2", "v2"),
		).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisInt64(1)),
			mock.Result(mock.RedisInt64(1)),
			mock.ErrorResult(context.DeadlineExceeded),
		})

	s := NewStoreForTest(c, false)
	err := s.HSetMulti(context.Background(), []db.HashSetItem{
		{Key: "k1", Fields: map[string]string{"f1": "v1"}, Replace: true},
		{Key: "k2", Fields: map[string]string{"f2": "v2"}},
	})
	if !isDBError(err) || !strings.Contains(err.Error(), "k2") {
		t.Fatalf("expected db.Error naming k2, got %v", err)
	}
}

func TestHSetMulti_Empty(t *testing.T) {
	s := NewStoreForTest(nil, false)
	if err := s.HSetMulti(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHGet(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("HGET", "k1", "__payload")).
		Return(mock.Result(mock.RedisBlobString(`{"a":1}`)))
	c.EXPECT().
		Do(gomock.Any(), mock.Match("HGET", "k2", "__payload")).
		Return(mock.Result(mock.RedisNil()))

	s := NewStoreForTest(c, false)
	v, err := s.HGet(context.Background(), "k1", "__payload")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != `{"a":1}` {
		t.Errorf("unexpected value: %q", v)
	}

	_, err = s.HGet(context.Background(), "k2", "__payload")
	if !errors.Is(err, db.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestDel_MultipleKeys(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("DEL", "k1", "k2")).
		Return(mock.Result(mock.RedisInt64(2)))

	s := NewStoreForTest(c, false)
	n, err := s.Del(context.Background(), "k1", "k2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted = %d, want 2", n)
	}
}

func TestDel_NoKeys(t *testing.T) {
	s := NewStoreForTest(nil, false)
	if n, err := s.Del(context.Background()); err != nil || n != 0 {
		t.Fatalf("Del() = %d, %v", n, err)
	}
}

func TestScan_MultiPage(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	first := true
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "SCAN"
		})).
		DoAndReturn(func(_ context.Context, _ rueidis.Completed) rueidis.RedisResult {
			if first {
				first = false
				return mock.Result(mock.RedisArray(
					mock.RedisInt64(42), // cursor=42 means more
					mock.RedisArray(mock.RedisString("key1")),
				))
			}
			return mock.Result(mock.RedisArray(
				mock.RedisInt64(0),
				mock.RedisArray(mock.RedisString("key2")),
			))
		}).Times(2)

	s := NewStoreForTest(c, false)
	keys, err := s.Scan(context.Background(), "prefix:*")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys, got %d", len(keys))
	}
}

// --- kv.go tests ---

func TestGet_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "mykey")).
		Return(mock.Result(mock.RedisNil()))

	s := NewStoreForTest(c, false)
	_, err := s.Get(context.Background(), "mykey")
	if !errors.Is(err, db.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestGet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "mykey")).
		Return(mock.Result(mock.RedisBlobString("value")))

	s := NewStoreForTest(c, false)
	data, err := s.Get(context.Background(), "mykey")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "value" {
		t.Errorf("unexpected data: %s", data)
	}
}

func TestSetWithTTL(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("SET", "k", "v", "EX", "3600")).
		Return(mock.Result(mock.RedisString("OK")))
	c.EXPECT().
		Do(gomock.Any(), mock.Match("SET", "k", "v")).
		Return(mock.Result(mock.RedisString("OK")))

	s := NewStoreForTest(c, false)
	if err := s.SetWithTTL(context.Background(), "k", []byte("v"), time.Hour); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.SetWithTTL(context.Background(), "k", []byte("v"), 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// --- index.go tests ---

func TestCreateIndex_Args(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	var got []string
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			got = cmd
			return cmd[0] == "FT.CREATE"
		})).
		Return(mock.Result(mock.RedisString("OK")))

	s := NewStoreForTest(c, false)
	idx, _ := db.NewIndex("semsearch:faq:idx").
		Prefix("semsearch:faq:").
		VectorHNSW("__vector", "vector", 4, 16, 200).
		Tag("tenant_id").
		Build()
	if err := s.CreateIndex(context.Background(), idx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	joined := strings.Join(got, " ")
	for _, want := range []string{
		"semsearch:faq:idx ON HASH PREFIX 1 semsearch:faq:",
		"__vector AS vector VECTOR HNSW 10 TYPE FLOAT32 DIM 4 DISTANCE_METRIC COSINE M 16 EF_CONSTRUCTION 200",
		"tenant_id TAG",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("FT.CREATE args missing %q: %s", want, joined)
		}
	}
}

func TestCreateIndex_AlreadyExists(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.CREATE"
		})).
		Return(mock.Result(mock.RedisError("Index already exists")))

	s := NewStoreForTest(c, false)
	idx := &db.IndexDefinition{
		Name:   "test:idx",
		Fields: []db.IndexField{{Name: "f", Type: db.IndexFieldTag}},
	}
	err := s.CreateIndex(context.Background(), idx)
	if !errors.Is(err, db.ErrIndexExists) {
		t.Errorf("expected ErrIndexExists, got %v", err)
	}
}

func TestCreateIndex_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.CREATE"
		})).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c, false)
	idx := &db.IndexDefinition{
		Name:   "test:idx",
		Fields: []db.IndexField{{Name: "f", Type: db.IndexFieldTag}},
	}
	if err := s.CreateIndex(context.Background(), idx); !isDBError(err) {
		t.Fatalf("expected db.Error, got %v", err)
	}
}

func TestIndexExists(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("FT.INFO", "present")).
		Return(mock.Result(mock.RedisArray()))
	c.EXPECT().
		Do(gomock.Any(), mock.Match("FT.INFO", "absent")).
		Return(mock.Result(mock.RedisError("Unknown index name")))

	s := NewStoreForTest(c, false)
	ok, err := s.IndexExists(context.Background(), "present")
	if err != nil || !ok {
		t.Fatalf("IndexExists(present) = %v, %v", ok, err)
	}
	ok, err = s.IndexExists(context.Background(), "absent")
	if err != nil || ok {
		t.Fatalf("IndexExists(absent) = %v, %v", ok, err)
	}
}

func TestDropIndex_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("FT.DROPINDEX", "idx")).
		Return(mock.Result(mock.RedisError("Unknown index name")))

	s := NewStoreForTest(c, false)
	if err := s.DropIndex(context.Background(), "idx"); !errors.Is(err, db.ErrIndexNotFound) {
		t.Errorf("expected ErrIndexNotFound, got %v", err)
	}
}

func TestBuildFieldArgs_Errors(t *testing.T) {
	if _, err := buildFieldArgs(&db.IndexField{}); err == nil {
		t.Error("expected error for empty name")
	}
	if _, err := buildFieldArgs(&db.IndexField{Name: "v", Type: db.IndexFieldVector}); err == nil {
		t.Error("expected error for zero DIM")
	}
	if _, err := buildFieldArgs(&db.IndexField{Name: "x", Type: db.IndexFieldType(99)}); err == nil {
		t.Error("expected error for unknown type")
	}
}

// --- search.go tests ---

func TestSearchKNN_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	var got []string
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			got = cmd
			return cmd[0] == "FT.SEARCH"
		})).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(1),
			mock.RedisString("semsearch:faq:abc"),
			mock.RedisArray(
				mock.RedisString("__vector_score"),
				mock.RedisString("0.1"),
				mock.RedisString("__payload"),
				mock.RedisString(`{}`),
			),
		)))

	tenant, _ := filter.NewMatch("tenant_id", "t1")
	expr, _ := filter.NewExpression([]filter.Condition{tenant}, nil, nil)

	s := NewStoreForTest(c, false)
	result, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName:    "semsearch:faq:idx",
		Filters:      expr,
		Vector:       []float32{0.1, 0.2},
		K:            10,
		ReturnFields: []string{"__id", "__payload"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(result.Entries))
	}
	// cosine distance 0.1 maps to similarity 0.9
	if s := result.Entries[0].Score; s < 0.89 || s > 0.91 {
		t.Errorf("expected score ~0.9, got %f", s)
	}
	if _, ok := result.Entries[0].Fields["__vector_score"]; ok {
		t.Error("__vector_score must be stripped from fields")
	}

	joined := strings.Join(got, " ")
	if !strings.Contains(joined, "(@tenant_id:{t1})=>[KNN 10 @vector $BLOB]") {
		t.Errorf("unexpected query: %s", joined)
	}
	if !strings.Contains(joined, "RETURN 3 __id __payload __vector_score") {
		t.Errorf("unexpected RETURN clause: %s", joined)
	}
	if !strings.Contains(joined, "SORTBY __vector_score") || !strings.Contains(joined, "LIMIT 0 10") {
		t.Errorf("missing SORTBY/LIMIT: %s", joined)
	}
}

func TestSearchKNN_ValkeySkipsSortBy(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			for _, a := range cmd {
				if a == "SORTBY" {
					return false
				}
			}
			return cmd[0] == "FT.SEARCH"
		})).
		Return(mock.Result(mock.RedisArray(mock.RedisInt64(0))))

	s := NewStoreForTest(c, true)
	result, err := s.SearchKNN(context.Background(), &db.KNNQuery{IndexName: "idx", Vector: []float32{1}, K: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Entries) != 0 {
		t.Errorf("expected 0 entries, got %d", len(result.Entries))
	}
}

func TestSearchKNN_Validation(t *testing.T) {
	s := &Store{}
	ctx := context.Background()

	if _, err := s.SearchKNN(ctx, &db.KNNQuery{Vector: []float32{0.1}, K: 10}); err == nil {
		t.Error("expected error for empty index name")
	}
	if _, err := s.SearchKNN(ctx, &db.KNNQuery{IndexName: "idx", K: 10}); err == nil {
		t.Error("expected error for empty vector")
	}
	if _, err := s.SearchKNN(ctx, &db.KNNQuery{IndexName: "idx", Vector: []float32{0.1}}); err == nil {
		t.Error("expected error for k=0")
	}
}

func TestSearchKeys(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("FT.SEARCH", "idx", "@tenant_id:{t1}", "NOCONTENT", "LIMIT", "0", "500", "DIALECT", "2")).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(2),
			mock.RedisString("p:1"),
			mock.RedisString("p:2"),
		)))

	s := NewStoreForTest(c, false)
	keys, err := s.SearchKeys(context.Background(), &db.KeysQuery{IndexName: "idx", Filters: filter.ForTenant("t1")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(keys) != 2 || keys[0] != "p:1" || keys[1] != "p:2" {
		t.Errorf("unexpected keys: %v", keys)
	}
}

func TestSearchKeys_ValkeyUnsupported(t *testing.T) {
	s := NewStoreForTest(nil, true)
	if s.SupportsFilterQuery() {
		t.Fatal("valkey store must not support filter-only queries")
	}
	if _, err := s.SearchKeys(context.Background(), &db.KeysQuery{IndexName: "idx"}); err == nil {
		t.Fatal("expected error")
	}
}

// --- Filter building tests ---

func TestBuildFilter(t *testing.T) {
	gte, lte := 10.0, 100.0
	rng, _ := filter.NewRangeFilter(nil, &gte, nil, &lte)
	price, _ := filter.NewRange("price", rng)
	cat, _ := filter.NewMatch("category_id", "books")
	red, _ := filter.NewMatch("color", "red")
	blue, _ := filter.NewMatch("color", "blue")
	draft, _ := filter.NewMatch("status", "draft")

	tests := []struct {
		name string
		must []filter.Condition
		shd  []filter.Condition
		not  []filter.Condition
		want string
	}{
		{"empty", nil, nil, nil, ""},
		{"must tag", []filter.Condition{cat}, nil, nil, "@category_id:{books}"},
		{"must numeric", []filter.Condition{price}, nil, nil, "@price:[10 100]"},
		{"should", nil, []filter.Condition{red, blue}, nil, "(@color:{red} | @color:{blue})"},
		{"combined", []filter.Condition{cat}, nil, []filter.Condition{draft}, "@category_id:{books} -@status:{draft}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr, _ := filter.NewExpression(tt.must, tt.shd, tt.not)
			if got := buildFilter(expr); got != tt.want {
				t.Errorf("buildFilter() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildFilter_EscapesTagValues(t *testing.T) {
	m, _ := filter.NewMatch("page_url", "https://a.example/x-y")
	expr, _ := filter.NewExpression([]filter.Condition{m}, nil, nil)

	want := `@page_url:{https\:\/\/a\.example\/x\-y}`
	if got := buildFilter(expr); got != want {
		t.Errorf("buildFilter() = %q, want %q", got, want)
	}
}

func TestBuildFilter_EscapesBackslashAndBrackets(t *testing.T) {
	m, _ := filter.NewMatch("tenant_id", `acme\`)
	n, _ := filter.NewMatch("source", "[a]")
	expr, _ := filter.NewExpression([]filter.Condition{m, n}, nil, nil)

	want := `@tenant_id:{acme\\} @source:{\[a\]}`
	if got := buildFilter(expr); got != want {
		t.Errorf("buildFilter() = %q, want %q", got, want)
	}
}

func TestBuildNumericFilter_Exclusive(t *testing.T) {
	gt, lt := 5.0, 100.0
	rng, _ := filter.NewRangeFilter(&gt, nil, &lt, nil)
	if got := buildNumericFilter("price", rng); got != `@price:[(5 (100]` {
		t.Errorf("unexpected filter: %q", got)
	}
}

func TestVectorToBytes(t *testing.T) {
	b := vectorToBytes([]float32{1.0, 2.0})
	if len(b) != 8 {
		t.Fatalf("expected 8 bytes, got %d", len(b))
	}
	// 1.0f little-endian is 00 00 80 3f
	if b[2] != 0x80 || b[3] != 0x3f {
		t.Errorf("unexpected encoding: % x", b[:4])
	}
}

// --- helpers ---

// isDBError is a test helper for checking wrapped db.Error.
func isDBError(err error) bool {
	var dbErr *db.Error
	return errors.As(err, &dbErr)
}

package db

import "github.com/kailas-cloud/semsearch/internal/domain/filter"

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	Filters      filter.Expression
	Vector       []float32
	K            int
	ReturnFields []string
}

// KeysQuery selects keys matching a filter without loading their fields.
type KeysQuery struct {
	IndexName string
	Filters   filter.Expression
	Limit     int
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single hit from a search. Score is cosine similarity.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}

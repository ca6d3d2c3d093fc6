// Package rerank holds relevance reranking results.
package rerank

// Candidate is a passage submitted for relevance judgment.
type Candidate struct {
	ID   string
	Text string
}

// Result is a reranked candidate id with its relevance score.
type Result struct {
	ID    string
	Score float64
}

// Outcome is either a reranked list or a fallback with its reason.
type Outcome struct {
	results  []Result
	reason   string
	reranked bool
}

// NewReranked creates a successful outcome.
func NewReranked(results []Result) Outcome {
	return Outcome{results: results, reranked: true}
}

// NewFallback creates an outcome that keeps the similarity order.
func NewFallback(reason string) Outcome {
	return Outcome{reason: reason}
}

// Reranked reports whether the reranker produced an order.
func (o Outcome) Reranked() bool { return o.reranked }

// Results returns the reranked results. Nil for a fallback.
func (o Outcome) Results() []Result { return o.results }

// Reason returns why the fallback happened.
func (o Outcome) Reason() string { return o.reason }

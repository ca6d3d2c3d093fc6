package wire

import (
	"github.com/kailas-cloud/semsearch/internal/domain/batch"
	searchuc "github.com/kailas-cloud/semsearch/internal/usecase/search"
)

// Report is the outcome of an index call.
type Report struct {
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	Failures  []Failure `json:"failures"`
}

// Failure names one entity that was not indexed.
type Failure struct {
	ID     string `json:"id"`
	Kind   string `json:"kind"`
	Reason string `json:"reason"`
}

// FromReport converts a batch report.
func FromReport(r batch.Report) Report {
	out := Report{Succeeded: r.Succeeded, Failed: r.Failed, Failures: make([]Failure, len(r.Failures))}
	for i, f := range r.Failures {
		out.Failures[i] = Failure{ID: f.ID, Kind: string(f.Kind), Reason: f.Reason}
	}
	return out
}

// SearchResponse carries ranked hits.
type SearchResponse struct {
	Results  []SearchResult `json:"results"`
	Reranked bool           `json:"reranked"`
}

// SearchResult is one ranked hit.
type SearchResult struct {
	ID         string         `json:"id"`
	Kind       string         `json:"kind"`
	Score      float64        `json:"score"`
	Similarity float64        `json:"similarity"`
	Payload    map[string]any `json:"payload"`
}

// FromSearch converts a search response.
func FromSearch(resp searchuc.Response) SearchResponse {
	out := SearchResponse{Results: make([]SearchResult, len(resp.Results)), Reranked: resp.Reranked}
	for i, r := range resp.Results {
		out.Results[i] = SearchResult{
			ID:         r.ID,
			Kind:       string(r.Kind),
			Score:      r.Score,
			Similarity: r.Similarity,
			Payload:    r.Payload,
		}
	}
	return out
}

package semsearch

import (
	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/domain/batch"
	"github.com/kailas-cloud/semsearch/internal/domain/entity"
	"github.com/kailas-cloud/semsearch/internal/domain/kind"
	"github.com/kailas-cloud/semsearch/internal/domain/rerank"
	healthuc "github.com/kailas-cloud/semsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/semsearch/internal/usecase/search"
)

// Kind is a content category with its own collection.
type Kind = kind.Kind

// Content kinds.
const (
	KindProduct  = kind.Product
	KindFAQ      = kind.FAQ
	KindWeb      = kind.Web
	KindDocument = kind.Document
)

// Indexable content.
type (
	Entity        = entity.Entity
	Product       = entity.Product
	FaqEntry      = entity.FaqEntry
	WebChunk      = entity.WebChunk
	DocumentChunk = entity.DocumentChunk
)

// Report summarizes an indexing call per item.
type Report = batch.Report

// Queries and their results.
type (
	Query          = searchuc.Query
	UnifiedQuery   = searchuc.UnifiedQuery
	SearchResponse = searchuc.Response
	SearchResult   = searchuc.Result
)

// HealthReport is the aggregated component status.
type HealthReport = healthuc.Report

// Embedder vectorizes text. Implement it to plug in a custom provider.
type Embedder = domain.Embedder

// EmbeddingResult is returned by Embedder.
type EmbeddingResult = domain.EmbeddingResult

// Reranker orders candidates by relevance to a query.
type Reranker = searchuc.Reranker

// Rerank candidates and results.
type (
	RerankCandidate = rerank.Candidate
	RerankResult    = rerank.Result
)

// Error classes, matchable with errors.Is.
var (
	ErrValidation          = domain.ErrValidation
	ErrUpstreamUnavailable = domain.ErrUpstreamUnavailable
	ErrRateLimited         = domain.ErrRateLimited
)

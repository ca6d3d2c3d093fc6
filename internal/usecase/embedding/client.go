// Package embedding turns text into vectors of the configured dimension.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/domain/entity"
)

// Config holds the validation limits of the client.
type Config struct {
	Dimension int
	MaxChars  int
	Timeout   time.Duration
}

// Client is the outermost embedding decorator.
// Input is trimmed and cut, output is dimension-checked, failures are classified.
type Client struct {
	inner domain.Embedder
	cfg   Config
}

// NewClient wraps inner with validation.
func NewClient(inner domain.Embedder, cfg Config) *Client {
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = entity.MaxTextChars
	}
	return &Client{inner: inner, cfg: cfg}
}

// Dimension returns the vector length every result has.
func (c *Client) Dimension() int { return c.cfg.Dimension }

// Embed vectorizes a single text.
func (c *Client) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	text, err := c.prepare(text)
	if err != nil {
		return domain.EmbeddingResult{}, err
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	res, err := c.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, classify(err)
	}
	if err := domain.CheckDim(res.Embedding, c.cfg.Dimension); err != nil {
		return domain.EmbeddingResult{}, err
	}
	domain.UsageFromContext(ctx).AddTokens(res.TotalTokens)
	return res, nil
}

// EmbedBatch vectorizes texts and returns one vector per input, in input order.
// Any empty text fails the whole call before a network request is made.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	prepared := make([]string, len(texts))
	for i, t := range texts {
		p, err := c.prepare(t)
		if err != nil {
			return nil, fmt.Errorf("text [%d]: %w", i, err)
		}
		prepared[i] = p
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	res, err := domain.EmbedBatch(ctx, c.inner, prepared)
	if err != nil {
		return nil, classify(err)
	}
	if len(res.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts",
			domain.ErrEmbeddingProviderError, len(res.Embeddings), len(texts))
	}
	for i, vec := range res.Embeddings {
		if err := domain.CheckDim(vec, c.cfg.Dimension); err != nil {
			return nil, fmt.Errorf("vector [%d]: %w", i, err)
		}
	}
	domain.UsageFromContext(ctx).AddTokens(res.TotalTokens)
	return res.Embeddings, nil
}

// HealthCheck forwards to the inner embedder when it supports health checks.
func (c *Client) HealthCheck(ctx context.Context) error {
	if hc, ok := c.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // passthrough
	}
	return nil
}

func (c *Client) prepare(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", domain.ErrEmptyText
	}
	return entity.Truncate(text, c.cfg.MaxChars), nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.cfg.Timeout)
}

// classify keeps validation and upstream errors as they are and marks anything else as a provider failure.
func classify(err error) error {
	if errors.Is(err, domain.ErrValidation) || errors.Is(err, domain.ErrUpstreamUnavailable) {
		return fmt.Errorf("embedding: %w", err)
	}
	return fmt.Errorf("%w: %w", domain.ErrEmbeddingProviderError, err)
}

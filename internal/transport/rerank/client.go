// Package rerank asks a chat model to order retrieval candidates by relevance.
package rerank

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/domain/entity"
	domrerank "github.com/kailas-cloud/semsearch/internal/domain/rerank"
)

const (
	maxCandidateRunes = 300
	maxOutputTokens   = 40
	temperature       = 0.1
)

// ErrNoSelection signals a model answer naming no usable candidate.
var ErrNoSelection = errors.New("reranker selected no candidates")

// Config holds the reranker settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	// RPS and Burst bound outgoing calls. RPS <= 0 disables limiting.
	RPS    float64
	Burst  int
	Logger *zap.Logger
}

// Client reranks candidates through an OpenAI-compatible chat completions endpoint.
type Client struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewClient creates a reranker client.
func NewClient(cfg *Config) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	c := &Client{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		logger:  cfg.Logger,
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if cfg.RPS > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}
	return c
}

// Rerank returns at most topN candidates, most relevant first.
// Every returned id is one of the input ids.
func (c *Client) Rerank(
	ctx context.Context, query string, candidates []domrerank.Candidate, topN int,
) ([]domrerank.Result, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	if c.limiter != nil && !c.limiter.Allow() {
		return nil, domain.ErrRateLimited
	}
	if topN <= 0 || topN > len(candidates) {
		topN = len(candidates)
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		MaxTokens:   maxOutputTokens,
		Temperature: temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(query, candidates, topN)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("rerank completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("rerank completion: empty choices: %w", ErrNoSelection)
	}

	answer := resp.Choices[0].Message.Content
	idx := parseIndices(answer, len(candidates), topN)
	if len(idx) == 0 {
		c.logger.Debug("Reranker picked nothing", zap.String("answer", answer))
		return nil, ErrNoSelection
	}

	out := make([]domrerank.Result, len(idx))
	for rank, i := range idx {
		out[rank] = domrerank.Result{
			ID:    candidates[i].ID,
			Score: 1 - float64(rank)/float64(len(idx)),
		}
	}
	return out, nil
}

func buildPrompt(query string, candidates []domrerank.Candidate, topN int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %q\n", query)
	b.WriteString("Candidate answers or products:\n")
	for i, c := range candidates {
		fmt.Fprintf(&b, "(%d): %s\n", i+1, entity.Truncate(c.Text, maxCandidateRunes))
	}
	fmt.Fprintf(&b, "Pick the %d candidates most relevant to the question, best first.\n", topN)
	b.WriteString("Answer only with their numbers separated by commas (example: 2,5,7).\n")
	b.WriteString("If none is relevant answer \"none\".")
	return b.String()
}

// parseIndices reads 1-based numbers from the answer and returns 0-based indices.
// Out-of-range and repeated numbers are dropped, and at most limit are kept.
func parseIndices(answer string, n, limit int) []int {
	seen := make(map[int]bool)
	var out []int
	num, inNum := 0, false
	flush := func() {
		if !inNum {
			return
		}
		i := num - 1
		if i >= 0 && i < n && !seen[i] && len(out) < limit {
			seen[i] = true
			out = append(out, i)
		}
		num, inNum = 0, false
	}
	for _, r := range answer {
		if r >= '0' && r <= '9' {
			if num < n+1 {
				num = num*10 + int(r-'0')
			}
			inNum = true
			continue
		}
		flush()
	}
	flush()
	return out
}

// Package embed implements the embedding client: ordered batched
// embedding with retry/backoff on transient failure and per-item
// zero-vector fallback on terminal failure, against the
// llmclient.Provider interface, with tiktoken-go token-budgeted
// batching rather than item-count batching alone.
package embed

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/pkoukk/tiktoken-go"

	"github.com/fgarofalo56/ragengine/internal/llmclient"
)

const (
	defaultBatchSize  = 100
	defaultMaxRetries = 3
	defaultDimension  = 1536
	maxTokensPerBatch = 250_000
)

// Client batches texts through a Provider, retrying transient failures
// with exponential backoff and falling back to per-item embedding (with
// zero vectors for any item that still fails) on a terminal batch error.
type Client struct {
	Provider   llmclient.Provider
	BatchSize  int
	MaxRetries int
	Dimension  int

	enc *tiktoken.Tiktoken
}

// New builds a Client with sensible defaults. The tokenizer is used
// only to keep batches under the upstream token budget; embedding still
// proceeds (just in smaller batches) if the tokenizer can't be loaded.
func New(p llmclient.Provider) *Client {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		slog.Warn("tiktoken encoding unavailable, falling back to item-count batching", "error", err)
		enc = nil
	}
	return &Client{
		Provider:   p,
		BatchSize:  defaultBatchSize,
		MaxRetries: defaultMaxRetries,
		Dimension:  defaultDimension,
		enc:        enc,
	}
}

// Embed returns one vector per text in texts, in the same order. It never
// returns an error for embedding failures — a still-failing item after
// retries/per-item fallback gets a zero vector rather than aborting the
// whole call.
func (c *Client) Embed(ctx context.Context, texts []string) [][]float32 {
	if len(texts) == 0 {
		return nil
	}

	out := make([][]float32, len(texts))
	for _, batch := range c.tokenBudgetedBatches(texts) {
		vectors, err := c.embedWithRetry(ctx, batch.texts)
		if err != nil {
			slog.Warn("batch embedding failed after retries, falling back to per-item", "error", err, "batch_size", len(batch.texts))
			vectors = c.embedPerItem(ctx, batch.texts)
		}
		for i, idx := range batch.indices {
			out[idx] = vectors[i]
		}
	}
	return out
}

type batch struct {
	texts   []string
	indices []int
}

// tokenBudgetedBatches groups texts into batches of at most c.BatchSize
// items, additionally splitting early if the running token count would
// exceed maxTokensPerBatch.
func (c *Client) tokenBudgetedBatches(texts []string) []batch {
	var batches []batch
	cur := batch{}
	curTokens := 0

	flush := func() {
		if len(cur.texts) > 0 {
			batches = append(batches, cur)
			cur = batch{}
			curTokens = 0
		}
	}

	for i, t := range texts {
		tokens := c.tokenCount(t)
		if len(cur.texts) >= c.batchSize() || (curTokens+tokens > maxTokensPerBatch && len(cur.texts) > 0) {
			flush()
		}
		cur.texts = append(cur.texts, t)
		cur.indices = append(cur.indices, i)
		curTokens += tokens
	}
	flush()
	return batches
}

func (c *Client) tokenCount(s string) int {
	if c.enc == nil {
		return len(s) / 4 // rough fallback estimate
	}
	return len(c.enc.Encode(s, nil, nil))
}

func (c *Client) batchSize() int {
	if c.BatchSize > 0 {
		return c.BatchSize
	}
	return defaultBatchSize
}

func (c *Client) maxRetries() int {
	if c.MaxRetries > 0 {
		return c.MaxRetries
	}
	return defaultMaxRetries
}

func (c *Client) dimension() int {
	if c.Dimension > 0 {
		return c.Dimension
	}
	return defaultDimension
}

func (c *Client) embedWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries(); attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * 200 * time.Millisecond
			jitter := time.Duration(rand.Int64N(int64(backoff) / 2))
			select {
			case <-time.After(backoff + jitter):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		vectors, err := c.Provider.Embed(ctx, texts)
		if err == nil {
			return vectors, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// embedPerItem retries each text individually; a text that still fails
// after retries gets a zero vector, and the failure is logged.
func (c *Client) embedPerItem(ctx context.Context, texts []string) [][]float32 {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vectors, err := c.embedWithRetry(ctx, []string{t})
		if err != nil {
			slog.Warn("per-item embedding failed, using zero vector", "error", err)
			out[i] = make([]float32, c.dimension())
			continue
		}
		out[i] = vectors[0]
	}
	return out
}

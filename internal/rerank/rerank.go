// Package rerank implements the cross-encoder reranking pass over
// retrieved results: score every candidate, sort descending, log score
// stats, against the internal/llmclient.Provider interface.
package rerank

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/fgarofalo56/ragengine/internal/llmclient"
	"github.com/fgarofalo56/ragengine/internal/ragmodel"
)

// LLMReranker scores each candidate's content against the query with an
// LLM-as-cross-encoder prompt and sorts descending by that score.
type LLMReranker struct {
	Provider llmclient.Provider
}

// New builds an LLMReranker over provider.
func New(provider llmclient.Provider) *LLMReranker {
	return &LLMReranker{Provider: provider}
}

// Rerank scores every result against query and returns them sorted
// descending by rerank score. A candidate whose scoring call fails keeps
// its original similarity as a fallback score, logged but non-fatal —
// rerank failure degrades ordering, it does not fail retrieval.
func (r *LLMReranker) Rerank(ctx context.Context, query string, results []ragmodel.SearchResult) ([]ragmodel.SearchResult, error) {
	if len(results) == 0 {
		return results, nil
	}

	type scoredResult struct {
		result ragmodel.SearchResult
		score  float64
	}
	scored := make([]scoredResult, len(results))
	for i, res := range results {
		score, err := r.Provider.Score(ctx, query, res.Content())
		if err != nil {
			slog.Warn("rerank scoring failed for candidate, keeping original similarity", "error", err, "key", res.Key())
			score = res.Similarity
		}
		scored[i] = scoredResult{result: res, score: score}
	}

	scores := make([]float64, len(scored))
	for i, s := range scored {
		scores[i] = s.score
	}
	logScoreStats(scores)

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })

	out := make([]ragmodel.SearchResult, len(scored))
	for i, s := range scored {
		s.result.Rank = i
		s.result.Strategy = fmt.Sprintf("%s+rerank", s.result.Strategy)
		out[i] = s.result
	}
	return out, nil
}

func logScoreStats(scores []float64) {
	if len(scores) == 0 {
		return
	}
	min, max, sum := scores[0], scores[0], 0.0
	for _, s := range scores {
		if s < min {
			min = s
		}
		if s > max {
			max = s
		}
		sum += s
	}
	slog.Debug("rerank score stats", "count", len(scores), "min", min, "max", max, "avg", sum/float64(len(scores)))
}

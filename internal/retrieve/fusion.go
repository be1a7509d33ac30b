package retrieve

import (
	"sort"

	"github.com/fgarofalo56/ragengine/internal/ragmodel"
)

// fuse merges vector and text result sets per the requested strategy.
func fuse(strategy FusionStrategy, vector, text []ragmodel.SearchResult, matchCount int) []ragmodel.SearchResult {
	switch strategy {
	case FusionRRF:
		return fuseRRF(vector, text, matchCount)
	case FusionWeighted:
		return fuseWeighted(vector, text, matchCount)
	case FusionMax:
		return fuseMax(vector, text, matchCount)
	default:
		return fuseOverlapFirst(vector, text, matchCount)
	}
}

// fuseOverlapFirst merges vector and text result sets by putting results
// present in both sets first (in vector-rank order), then remaining
// vector results, then remaining text results.
func fuseOverlapFirst(vector, text []ragmodel.SearchResult, matchCount int) []ragmodel.SearchResult {
	textKeys := map[string]bool{}
	for _, r := range text {
		textKeys[r.Key()] = true
	}

	var both, vectorOnly []ragmodel.SearchResult
	for _, r := range vector {
		if textKeys[r.Key()] {
			both = append(both, r)
		} else {
			vectorOnly = append(vectorOnly, r)
		}
	}

	vectorKeys := map[string]bool{}
	for _, r := range vector {
		vectorKeys[r.Key()] = true
	}
	var textOnly []ragmodel.SearchResult
	for _, r := range text {
		if !vectorKeys[r.Key()] {
			textOnly = append(textOnly, r)
		}
	}

	merged := append(append(both, vectorOnly...), textOnly...)
	return truncate(merged, matchCount)
}

// fuseRRF combines ranks via reciprocal rank fusion: score = sum over the
// sets a result appears in of 1/(k+rank).
func fuseRRF(vector, text []ragmodel.SearchResult, matchCount int) []ragmodel.SearchResult {
	const k = 60.0
	scores := map[string]float64{}
	byKey := map[string]ragmodel.SearchResult{}

	accumulate := func(set []ragmodel.SearchResult) {
		for i, r := range set {
			key := r.Key()
			scores[key] += 1.0 / (k + float64(i) + 1)
			byKey[key] = r
		}
	}
	accumulate(vector)
	accumulate(text)

	return rankByScore(scores, byKey, matchCount)
}

// fuseWeighted combines similarity scores directly: 0.7*vector + 0.3*text.
func fuseWeighted(vector, text []ragmodel.SearchResult, matchCount int) []ragmodel.SearchResult {
	const vectorWeight, textWeight = 0.7, 0.3
	scores := map[string]float64{}
	byKey := map[string]ragmodel.SearchResult{}

	for _, r := range vector {
		scores[r.Key()] += vectorWeight * r.Similarity
		byKey[r.Key()] = r
	}
	for _, r := range text {
		scores[r.Key()] += textWeight * r.Similarity
		byKey[r.Key()] = r
	}

	return rankByScore(scores, byKey, matchCount)
}

// fuseMax keeps, for each result, the better of its vector/text score.
func fuseMax(vector, text []ragmodel.SearchResult, matchCount int) []ragmodel.SearchResult {
	scores := map[string]float64{}
	byKey := map[string]ragmodel.SearchResult{}

	consider := func(set []ragmodel.SearchResult) {
		for _, r := range set {
			if existing, ok := scores[r.Key()]; !ok || r.Similarity > existing {
				scores[r.Key()] = r.Similarity
				byKey[r.Key()] = r
			}
		}
	}
	consider(vector)
	consider(text)

	return rankByScore(scores, byKey, matchCount)
}

func rankByScore(scores map[string]float64, byKey map[string]ragmodel.SearchResult, matchCount int) []ragmodel.SearchResult {
	keys := make([]string, 0, len(scores))
	for k := range scores {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return scores[keys[i]] > scores[keys[j]] })

	results := make([]ragmodel.SearchResult, 0, len(keys))
	for i, k := range keys {
		r := byKey[k]
		r.Rank = i
		r.Strategy = "hybrid"
		results = append(results, r)
	}
	return truncate(results, matchCount)
}

func truncate(results []ragmodel.SearchResult, matchCount int) []ragmodel.SearchResult {
	if matchCount > 0 && len(results) > matchCount {
		return results[:matchCount]
	}
	return results
}

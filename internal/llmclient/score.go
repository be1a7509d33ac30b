package llmclient

import (
	"strconv"
	"strings"
)

// parseScore extracts the first floating-point number from text and clamps
// it to [0,1]. Models occasionally wrap the number in a sentence despite
// the system prompt; this tolerates that rather than failing the rerank.
func parseScore(text string) float64 {
	text = strings.TrimSpace(text)

	start := -1
	for i, r := range text {
		if (r >= '0' && r <= '9') || r == '.' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			break
		}
	}
	if start < 0 {
		return 0
	}

	end := len(text)
	for i := start; i < len(text); i++ {
		r := text[i]
		if (r >= '0' && r <= '9') || r == '.' {
			continue
		}
		end = i
		break
	}

	val, err := strconv.ParseFloat(text[start:end], 64)
	if err != nil {
		return 0
	}
	if val < 0 {
		return 0
	}
	if val > 1 {
		return 1
	}
	return val
}

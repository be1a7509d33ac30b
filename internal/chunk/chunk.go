// Package chunk splits crawled markdown into size-bounded pieces, preferring
// to split at a closing code fence, then a paragraph break, then a sentence
// boundary, falling back to a whitespace boundary and finally a hard cut.
package chunk

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/fgarofalo56/ragengine/internal/ragmodel"
)

const fence = "```"

// Split splits markdown into an ordered list of non-overlapping chunks, each
// at most size runes, greedily from the start. The final chunk may be
// shorter than size. Empty input yields zero chunks.
func Split(markdown string, size int) []ragmodel.Chunk {
	if size <= 0 {
		size = 5000
	}

	runes := []rune(markdown)
	total := len(runes)
	if total == 0 {
		return nil
	}

	var chunks []ragmodel.Chunk
	start := 0
	index := 0

	for start < total {
		end := start + size
		if end >= total {
			end = total
		} else {
			end = chooseBoundary(runes, start, end)
		}

		content := strings.TrimSpace(string(runes[start:end]))
		if content != "" {
			chunks = append(chunks, ragmodel.Chunk{
				Index:    index,
				Content:  content,
				Metadata: extractMetadata(content),
			})
			index++
		}

		if end <= start {
			end = start + 1
		}
		start = end
	}

	return chunks
}

// chooseBoundary looks backward from target for, in preference order: the
// end of a fenced code block, a paragraph break, a sentence boundary, or
// whitespace. It never returns a position at or before start.
func chooseBoundary(runes []rune, start, target int) int {
	window := string(runes[start:target])

	// The helpers return byte offsets into window; convert back to runes.
	if at := lastFenceEnd(window); at > 0 {
		return start + len([]rune(window[:at]))
	}
	if at := strings.LastIndex(window, "\n\n"); at > 0 {
		return start + len([]rune(window[:at+2]))
	}
	if at := lastSentenceEnd(window); at > 0 {
		return start + len([]rune(window[:at]))
	}
	if at := lastWhitespace(window); at > 0 {
		return start + len([]rune(window[:at]))
	}
	return target
}

// lastFenceEnd returns the offset just past the last closing ``` fence
// found strictly inside window, or -1 if the window doesn't contain a
// balanced fence pair.
func lastFenceEnd(window string) int {
	count := strings.Count(window, fence)
	if count < 2 {
		return -1
	}
	// The last fence marker closes a block only if the number of fence
	// markers up to and including it is even.
	idx := -1
	pos := 0
	seen := 0
	for {
		i := strings.Index(window[pos:], fence)
		if i < 0 {
			break
		}
		abs := pos + i
		seen++
		if seen%2 == 0 {
			idx = abs + len(fence)
		}
		pos = abs + len(fence)
	}
	return idx
}

func lastSentenceEnd(window string) int {
	best := -1
	for _, terminator := range []string{". ", "! ", "? ", ".\n", "!\n", "?\n"} {
		if i := strings.LastIndex(window, terminator); i > best {
			best = i + 1
		}
	}
	if best <= 0 {
		return -1
	}
	return best
}

func lastWhitespace(window string) int {
	for i := len(window) - 1; i >= 0; i-- {
		if isWhitespace(rune(window[i])) {
			return i + 1
		}
	}
	return -1
}

func isWhitespace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

// extractMetadata computes the §4.4 per-chunk metadata: the concatenation
// of header lines and char/word counts.
func extractMetadata(content string) map[string]string {
	var headers []string
	words := 0
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			headers = append(headers, trimmed)
		}
		if trimmed != "" {
			words += len(strings.Fields(trimmed))
		}
	}

	return map[string]string{
		"headers":    strings.Join(headers, "; "),
		"char_count": strconv.Itoa(len([]rune(content))),
		"word_count": strconv.Itoa(words),
	}
}

// ContentHash returns a stable sha256 hex hash of content. The engine stores
// it with each chunk row; no ingest path compares it, so unchanged markdown
// is still re-embedded on every ingest.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

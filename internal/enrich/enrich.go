// Package enrich implements two optional enrichment passes: a contextual
// summarizer that situates a chunk within its source document, and a
// code-block extractor that pulls fenced code blocks out of markdown
// with LLM-generated summaries. Both fail soft — an LLM error degrades
// to the raw input rather than failing the ingest.
package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fgarofalo56/ragengine/internal/llmclient"
)

const (
	minCodeLen  = 300
	contextSize = 200
)

const summarySystemPrompt = `You situate a chunk of text within its source document. Given the full document and one chunk from it, write a 1-3 sentence summary of what this chunk covers in the context of the whole document. Respond with only the summary.`

// Summarize produces a short situating summary for chunk within the full
// document text and returns it prepended to the chunk content, separated by
// a blank line. The engine embeds and stores this combined text as the
// chunk's content, so the summary is also part of what queries return. On
// LLM failure it returns the chunk content unchanged.
func Summarize(ctx context.Context, provider llmclient.Provider, document, chunk string) string {
	prompt := fmt.Sprintf("Document:\n%s\n\nChunk:\n%s", truncate(document, 8000), chunk)
	summary, err := provider.Complete(ctx, summarySystemPrompt, prompt)
	if err != nil {
		slog.Warn("contextual summary failed, using raw chunk", "error", err)
		return chunk
	}
	return strings.TrimSpace(summary) + "\n\n" + chunk
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// CodeBlock is one fenced code block extracted from a document.
type CodeBlock struct {
	Index    int
	Language string
	Code     string
	Before   string
	After    string
	Summary  string
}

// EmbeddingInput is the text that should be embedded for this block,
// combining the code with its LLM summary.
func (b CodeBlock) EmbeddingInput() string {
	return b.Code + "\n\nSummary: " + b.Summary
}

const codeSummarySystemPrompt = `You summarize a code snippet in 2-3 sentences, describing what it does and, if evident from the surrounding context, why. Respond with only the summary.`

// ExtractCodeBlocks scans markdown for fenced code blocks of at least
// minCodeLen characters, records up to contextSize characters of
// surrounding context, and asks the provider for a short summary of each
// (falling back to an empty summary on LLM failure — the embedding input
// degrades to just the code).
func ExtractCodeBlocks(ctx context.Context, provider llmclient.Provider, markdown string) []CodeBlock {
	var blocks []CodeBlock
	index := 0

	pos := 0
	for {
		openIdx := strings.Index(markdown[pos:], "```")
		if openIdx < 0 {
			break
		}
		openIdx += pos

		lineEnd := strings.IndexByte(markdown[openIdx:], '\n')
		if lineEnd < 0 {
			break
		}
		lineEnd += openIdx
		language := strings.TrimSpace(markdown[openIdx+3 : lineEnd])

		closeIdx := strings.Index(markdown[lineEnd+1:], "```")
		if closeIdx < 0 {
			break
		}
		closeIdx += lineEnd + 1

		code := markdown[lineEnd+1 : closeIdx]
		fenceEnd := closeIdx + 3
		pos = fenceEnd

		if len(code) < minCodeLen {
			continue
		}

		before := markdown[max(0, openIdx-contextSize):openIdx]
		afterStart := fenceEnd
		afterEnd := min(len(markdown), fenceEnd+contextSize)
		after := markdown[afterStart:afterEnd]

		block := CodeBlock{
			Index:    index,
			Language: language,
			Code:     code,
			Before:   before,
			After:    after,
		}
		index++

		prompt := fmt.Sprintf("Language: %s\n\nContext before:\n%s\n\nCode:\n%s\n\nContext after:\n%s", language, before, code, after)
		summary, err := provider.Complete(ctx, codeSummarySystemPrompt, prompt)
		if err != nil {
			slog.Warn("code block summary failed, embedding code without summary", "error", err, "block_index", block.Index)
		} else {
			block.Summary = strings.TrimSpace(summary)
		}

		blocks = append(blocks, block)
	}

	return blocks
}

// Package llmclient provides the LLM/embedding capability the rest of the
// engine treats as an external dependency: a thin client wrapper over
// github.com/sashabaranov/go-openai for an OpenAI-compatible provider.
package llmclient

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/fgarofalo56/ragengine/internal/errs"
)

// Provider is every LLM-backed capability the engine needs: embeddings,
// contextual/code-block summaries, entity extraction, and cross-encoder
// reranking.
type Provider interface {
	// Embed returns one vector per input text, in order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Complete runs a single chat completion for prompt under system, used
	// for contextual and code-block summaries and entity extraction.
	Complete(ctx context.Context, system, prompt string) (string, error)
	// Score returns a single relevance score in [0,1] for a query/document
	// pair, used by the reranker.
	Score(ctx context.Context, query, document string) (float64, error)
}

// OpenAIProvider is the concrete Provider backed by an OpenAI-compatible
// HTTP API (OpenAI itself, or any compatible gateway reachable at baseURL).
type OpenAIProvider struct {
	client         *openai.Client
	embeddingModel string
	chatModel      string
}

// New builds an OpenAIProvider. baseURL may be empty to use the default
// OpenAI endpoint.
func New(apiKey, baseURL, embeddingModel, chatModel string) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIProvider{
		client:         openai.NewClientWithConfig(cfg),
		embeddingModel: embeddingModel,
		chatModel:      chatModel,
	}
}

func (p *OpenAIProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: texts,
		Model: openai.EmbeddingModel(p.embeddingModel),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrEmbedding, err)
	}

	vectors := make([][]float32, len(resp.Data))
	for _, d := range resp.Data {
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}

func (p *OpenAIProvider) Complete(ctx context.Context, system, prompt string) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", errs.ErrEmbedding, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion", errs.ErrEmbedding)
	}
	return resp.Choices[0].Message.Content, nil
}

const scoreSystemPrompt = `You are a relevance scorer. Given a query and a document, respond with only a number between 0 and 1 indicating how relevant the document is to the query. No other text.`

func (p *OpenAIProvider) Score(ctx context.Context, query, document string) (float64, error) {
	prompt := fmt.Sprintf("Query: %s\n\nDocument: %s\n\nRelevance score:", query, document)
	text, err := p.Complete(ctx, scoreSystemPrompt, prompt)
	if err != nil {
		return 0, err
	}
	return parseScore(text), nil
}

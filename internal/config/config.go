// Package config loads the engine's process-wide configuration from the
// environment. It is read once at startup; nothing in this package talks
// to the network or a filesystem beyond os.Getenv.
package config

import (
	"cmp"
	"fmt"
	"os"
	"strconv"

	"github.com/fgarofalo56/ragengine/pkg/paths"
)

// Transport selects how the tool-call surface is exposed.
type Transport string

const (
	TransportStdio Transport = "stdio"
	TransportSSE   Transport = "sse"
)

// Config is the engine's process-wide configuration, populated once from
// the environment at startup.
type Config struct {
	Transport Transport
	HTTPAddr  string

	// Embedding / LLM provider.
	EmbeddingAPIKey   string
	EmbeddingBaseURL  string
	EmbeddingModel    string
	ChatModel         string

	// Vector store.
	VectorStorePath string

	// Property graph store: a sqlite file of its own, opened separately
	// from the vector store (see internal/graph).
	GraphStorePath string

	// CodeWorkDir is where parse_github_repository clones repositories
	// before indexing them.
	CodeWorkDir string

	// Feature flags.
	UseContextualEmbeddings bool
	UseHybridSearch         bool
	UseAgenticRAG           bool
	UseReranking            bool
	UseKnowledgeGraph       bool
	UseGraphRAG             bool

	// Tunables.
	MaxConcurrentCrawls int
	DefaultChunkSize    int
	MinCodeBlockLen     int
	MaxRetries          int
	EmbeddingBatch      int
}

// FromEnv reads Config from the process environment, applying sensible
// defaults for every tunable.
func FromEnv() (*Config, error) {
	dataDir := paths.GetDataDir()

	cfg := &Config{
		Transport:        Transport(cmp.Or(os.Getenv("TRANSPORT"), string(TransportStdio))),
		HTTPAddr:         cmp.Or(os.Getenv("HTTP_ADDR"), ":8051"),
		EmbeddingAPIKey:  os.Getenv("EMBEDDING_API_KEY"),
		EmbeddingBaseURL: os.Getenv("EMBEDDING_BASE_URL"),
		EmbeddingModel:   cmp.Or(os.Getenv("EMBEDDING_MODEL"), "text-embedding-3-small"),
		ChatModel:        cmp.Or(os.Getenv("CHAT_MODEL"), "gpt-4o-mini"),
		VectorStorePath:  cmp.Or(os.Getenv("VECTOR_STORE_PATH"), dataDir+"/vectors.db"),
		GraphStorePath:   cmp.Or(os.Getenv("GRAPH_STORE_PATH"), dataDir+"/graph.db"),
		CodeWorkDir:      cmp.Or(os.Getenv("CODE_WORK_DIR"), dataDir+"/repos"),

		UseContextualEmbeddings: boolEnv("USE_CONTEXTUAL_EMBEDDINGS", false),
		UseHybridSearch:         boolEnv("USE_HYBRID_SEARCH", true),
		UseAgenticRAG:           boolEnv("USE_AGENTIC_RAG", false),
		UseReranking:            boolEnv("USE_RERANKING", false),
		UseKnowledgeGraph:       boolEnv("USE_KNOWLEDGE_GRAPH", false),
		UseGraphRAG:             boolEnv("USE_GRAPHRAG", false),

		MaxConcurrentCrawls: intEnv("MAX_CONCURRENT_CRAWLS", 10),
		DefaultChunkSize:    intEnv("DEFAULT_CHUNK_SIZE", 5000),
		MinCodeBlockLen:     intEnv("MIN_CODE_BLOCK_LEN", 300),
		MaxRetries:          intEnv("MAX_RETRIES", 3),
		EmbeddingBatch:      intEnv("EMBEDDING_BATCH", 20),
	}

	if cfg.Transport != TransportStdio && cfg.Transport != TransportSSE {
		return nil, fmt.Errorf("config: invalid TRANSPORT %q, must be %q or %q", cfg.Transport, TransportStdio, TransportSSE)
	}

	return cfg, nil
}

func boolEnv(key string, def bool) bool {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

func intEnv(key string, def int) int {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

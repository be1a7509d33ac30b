// Package transport exposes internal/engine's fourteen operations as MCP
// tools, both over stdio and over streamable HTTP: mcp.NewServer +
// mcp.AddTool per operation, mcp.StdioTransport{} for the CLI's default,
// mcp.NewStreamableHTTPHandler for the HTTP transport. Tool literals here
// leave InputSchema/OutputSchema nil and rely on the go-sdk's own
// reflection-based schema inference over the jsonschema-tagged
// request/response structs.
package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fgarofalo56/ragengine/internal/engine"
	"github.com/fgarofalo56/ragengine/internal/errs"
)

// Envelope is the {success, error, error_type} response shape every tool
// call returns.
type Envelope struct {
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	ErrorType string `json:"error_type,omitempty"`
}

func ok() Envelope { return Envelope{Success: true} }

func failed(err error) Envelope {
	return Envelope{Success: false, Error: err.Error(), ErrorType: errs.Type(err)}
}

// NewServer builds the MCP server for eng, with every engine operation
// registered as a tool.
func NewServer(eng *engine.Engine) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "ragengine",
		Version: "0.1.0",
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "crawl_single_page",
		Description: "Fetch and ingest exactly one URL, without following links.",
	}, crawlSinglePageHandler(eng))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "smart_crawl_url",
		Description: "Classify a URL's crawl strategy (sitemap, recursive, text file, or single page) and ingest every page it discovers.",
	}, smartCrawlURLHandler(eng))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "crawl_with_stealth_mode",
		Description: "Fetch one URL with a browser-like user agent and an optional pre-read pause, for sites that block obvious crawler traffic.",
	}, crawlWithStealthModeHandler(eng))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "crawl_with_multi_url_config",
		Description: "Crawl several URLs in one call, each with its own strategy and max depth.",
	}, crawlWithMultiURLConfigHandler(eng))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "crawl_with_memory_monitoring",
		Description: "Run a recursive crawl while throttling concurrency against a resident-memory threshold, reporting memory stats alongside the crawl result.",
	}, crawlWithMemoryMonitoringHandler(eng))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "adaptive_deep_crawl",
		Description: "Crawl a site guided by a relevance query, keeping only pages that score above a relevance threshold.",
	}, adaptiveDeepCrawlHandler(eng))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_available_sources",
		Description: "List every ingested source and its aggregate stats.",
	}, getAvailableSourcesHandler(eng))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "perform_rag_query",
		Description: "Run a retrieval-augmented query against ingested prose chunks.",
	}, performRAGQueryHandler(eng))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_code_examples",
		Description: "Search ingested code examples by semantic similarity to a query.",
	}, searchCodeExamplesHandler(eng))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "parse_github_repository",
		Description: "Clone a git repository and index its Go source into the property graph.",
	}, parseGithubRepositoryHandler(eng))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "parse_github_repositories_batch",
		Description: "Clone and index several git repositories concurrently, returning per-repository and aggregate results.",
	}, parseGithubRepositoriesBatchHandler(eng))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "check_ai_script_hallucinations",
		Description: "Validate a script's class/function references against an indexed repository's property graph, flagging likely hallucinated API usage.",
	}, checkAIScriptHallucinationsHandler(eng))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "query_knowledge_graph",
		Description: "Run one of: 'repos', 'explore <name>', 'classes <repo>', 'method <name>' against the indexed property graph.",
	}, queryKnowledgeGraphHandler(eng))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "graphrag_query",
		Description: "Run a retrieval-augmented query with knowledge-graph entity enrichment forced on, regardless of the server's default configuration.",
	}, graphragQueryHandler(eng))

	return server
}

// Serve runs server over stdio, the CLI's default transport. Stdio mode
// must never write anything non-JSON to standard output — all
// diagnostic logging in this process goes to stderr (see cmd/ragengine's
// slog setup).
func Serve(ctx context.Context, server *mcp.Server) error {
	slog.Debug("mcp server starting with stdio transport")
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("mcp server error: %w", err)
	}
	return nil
}

// ServeHTTP runs server as a streamable-HTTP MCP endpoint on ln.
func ServeHTTP(ctx context.Context, server *mcp.Server, ln net.Listener) error {
	slog.Debug("mcp server starting with streamable http transport", "addr", ln.Addr())

	httpServer := &http.Server{
		Handler: mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
			return server
		}, nil),
	}

	errCh := make(chan error, 1)
	go func() { errCh <- httpServer.Serve(ln) }()

	select {
	case <-ctx.Done():
		return httpServer.Shutdown(context.Background())
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

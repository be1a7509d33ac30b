package root

import (
	"fmt"
	"log/slog"
	"net"

	"github.com/spf13/cobra"

	"github.com/fgarofalo56/ragengine/internal/codegraph"
	"github.com/fgarofalo56/ragengine/internal/config"
	"github.com/fgarofalo56/ragengine/internal/embed"
	"github.com/fgarofalo56/ragengine/internal/engine"
	"github.com/fgarofalo56/ragengine/internal/fetch"
	"github.com/fgarofalo56/ragengine/internal/graph"
	"github.com/fgarofalo56/ragengine/internal/llmclient"
	"github.com/fgarofalo56/ragengine/internal/store"
	"github.com/fgarofalo56/ragengine/internal/transport"
	"github.com/fgarofalo56/ragengine/pkg/sqliteutil"
)

func newServeCmd() *cobra.Command {
	var (
		transportOverride string
		httpAddrOverride  string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return RuntimeError{Err: err}
			}
			if transportOverride != "" {
				cfg.Transport = config.Transport(transportOverride)
			}
			if httpAddrOverride != "" {
				cfg.HTTPAddr = httpAddrOverride
			}

			eng, err := buildEngine(cfg)
			if err != nil {
				return RuntimeError{Err: err}
			}

			server := transport.NewServer(eng)
			ctx := cmd.Context()

			switch cfg.Transport {
			case config.TransportStdio:
				if err := transport.Serve(ctx, server); err != nil {
					return RuntimeError{Err: err}
				}
			case config.TransportSSE:
				ln, err := net.Listen("tcp", cfg.HTTPAddr)
				if err != nil {
					return RuntimeError{Err: fmt.Errorf("listening on %s: %w", cfg.HTTPAddr, err)}
				}
				slog.Info("ragengine listening", "addr", ln.Addr())
				if err := transport.ServeHTTP(ctx, server, ln); err != nil {
					return RuntimeError{Err: err}
				}
			default:
				return RuntimeError{Err: fmt.Errorf("unsupported transport %q", cfg.Transport)}
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&transportOverride, "transport", "", "Transport to serve on: stdio or sse (default: $TRANSPORT or stdio)")
	cmd.Flags().StringVar(&httpAddrOverride, "http-addr", "", "Address to listen on for the sse transport (default: $HTTP_ADDR or :8051)")

	return cmd
}

// buildEngine wires every capability package into a ready-to-serve
// engine.Engine, opening both sqlite stores and running their migrations.
func buildEngine(cfg *config.Config) (*engine.Engine, error) {
	vectorDB, err := sqliteutil.OpenDB(cfg.VectorStorePath)
	if err != nil {
		return nil, fmt.Errorf("opening vector store: %w", err)
	}
	if err := store.Migrate(vectorDB); err != nil {
		return nil, fmt.Errorf("migrating vector store: %w", err)
	}

	graphDB, err := sqliteutil.OpenDB(cfg.GraphStorePath)
	if err != nil {
		return nil, fmt.Errorf("opening graph store: %w", err)
	}
	if err := graph.Migrate(graphDB); err != nil {
		return nil, fmt.Errorf("migrating graph store: %w", err)
	}

	provider := llmclient.New(cfg.EmbeddingAPIKey, cfg.EmbeddingBaseURL, cfg.EmbeddingModel, cfg.ChatModel)

	embedder := embed.New(provider)
	embedder.BatchSize = cfg.EmbeddingBatch
	embedder.MaxRetries = cfg.MaxRetries

	vectorStore := store.New(vectorDB)
	graphStore := graph.New(graphDB)
	extractor := graph.NewExtractor(provider, graphStore)
	validator := graph.NewValidator(graphStore)
	indexer := codegraph.NewIndexer(graphStore, cfg.CodeWorkDir)
	indexer.MaxRetries = cfg.MaxRetries

	fetcher := fetch.NewPoliteFetcher(fetch.NewHTTPFetcher(0), 2, "")

	return engine.New(engine.Deps{
		Config:    cfg,
		Fetcher:   fetcher,
		LLM:       provider,
		Embedder:  embedder,
		Store:     vectorStore,
		Graph:     graphStore,
		Extractor: extractor,
		Validator: validator,
		Indexer:   indexer,
	}), nil
}

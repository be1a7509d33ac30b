package root

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fgarofalo56/ragengine/pkg/logging"
	"github.com/fgarofalo56/ragengine/pkg/paths"
)

type rootFlags struct {
	debugMode   bool
	logFilePath string
	logFile     io.Closer
}

// NewRootCmd builds the ragengine command tree.
func NewRootCmd() *cobra.Command {
	var flags rootFlags

	cmd := &cobra.Command{
		Use:   "ragengine",
		Short: "ragengine - web crawling and retrieval-augmented generation server",
		Long:  "ragengine crawls and ingests documentation sites and git repositories into a local vector store and property graph, then serves retrieval tool calls over MCP.",
		Example: `  ragengine serve
  ragengine serve --transport sse --http-addr :8051`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Initialize logging before anything else so stdio transport
			// never gets polluted by a misconfigured default logger.
			if err := flags.setupLogging(); err != nil {
				slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
					Level: func() slog.Level {
						if flags.debugMode {
							return slog.LevelDebug
						}
						return slog.LevelInfo
					}(),
				})))
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if flags.logFile != nil {
				if err := flags.logFile.Close(); err != nil {
					slog.Error("failed to close log file", "error", err)
				}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.PersistentFlags().BoolVarP(&flags.debugMode, "debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&flags.logFilePath, "log-file", "", "Path to debug log file (default: <data dir>/ragengine.debug.log; only used with --debug)")

	cmd.AddCommand(newServeCmd())

	return cmd
}

// Execute runs the ragengine command tree with args against the given
// streams, returning the final error (already printed where appropriate).
func Execute(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer, args ...string) error {
	rootCmd := NewRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		return processErr(err, stderr, rootCmd)
	}
	return nil
}

func processErr(err error, stderr io.Writer, rootCmd *cobra.Command) error {
	var runtimeErr RuntimeError
	if errors.As(err, &runtimeErr) {
		fmt.Fprintln(stderr, runtimeErr.Err)
		return err
	}

	fmt.Fprintln(stderr, err)
	fmt.Fprintln(stderr)
	if strings.HasPrefix(err.Error(), "unknown command ") || strings.HasPrefix(err.Error(), "accepts ") {
		_ = rootCmd.Usage()
	}
	return err
}

// setupLogging configures slog. With --debug unset, logging is discarded
// entirely so stdio transport never writes anything to standard output;
// with it set, logs go to a rotating file under the data directory (or
// --log-file), rotated at 10MB keeping 3 backups.
func (f *rootFlags) setupLogging() error {
	if !f.debugMode {
		slog.SetDefault(slog.New(slog.DiscardHandler))
		return nil
	}

	path := cmp.Or(strings.TrimSpace(f.logFilePath), filepath.Join(paths.GetDataDir(), "ragengine.debug.log"))

	logFile, err := logging.NewRotatingFile(path)
	if err != nil {
		return err
	}
	f.logFile = logFile

	slog.SetDefault(slog.New(slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: slog.LevelDebug})))
	return nil
}

// RuntimeError wraps runtime errors to distinguish them from usage errors.
type RuntimeError struct {
	Err error
}

func (e RuntimeError) Error() string { return e.Err.Error() }
func (e RuntimeError) Unwrap() error { return e.Err }

// Package errs defines the error taxonomy surfaced at the tool-call
// boundary. Internal packages wrap one of these sentinels with context via
// fmt.Errorf("...: %w", ...); internal/transport classifies the final error
// with errors.Is to fill in the error_type field of the response envelope.
package errs

import "errors"

var (
	// ErrValidation marks a malformed or out-of-range tool call argument.
	ErrValidation = errors.New("validation error")
	// ErrFetch marks a failure to retrieve a remote resource (network,
	// timeout, non-2xx status, or robots.txt disallow).
	ErrFetch = errors.New("fetch error")
	// ErrEmbedding marks an embedding-provider failure that survived retries.
	ErrEmbedding = errors.New("embedding error")
	// ErrStore marks a failure writing to or reading from the vector store.
	ErrStore = errors.New("store error")
	// ErrGraphUnavailable marks a request for a graph operation when no
	// graph has been built for the requested source, or the graph store
	// itself could not be reached.
	ErrGraphUnavailable = errors.New("graph unavailable")
	// ErrCancellation marks a tool call aborted by context cancellation.
	ErrCancellation = errors.New("operation canceled")
)

// Type returns the taxonomy label for err, or "internal_error" if err does
// not wrap any of the known sentinels.
func Type(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrFetch):
		return "fetch_error"
	case errors.Is(err, ErrEmbedding):
		return "embedding_error"
	case errors.Is(err, ErrStore):
		return "store_error"
	case errors.Is(err, ErrGraphUnavailable):
		return "graph_unavailable"
	case errors.Is(err, ErrCancellation):
		return "cancellation_error"
	default:
		return "internal_error"
	}
}

package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestType_KnownSentinels(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{ErrValidation, "validation_error"},
		{ErrFetch, "fetch_error"},
		{ErrEmbedding, "embedding_error"},
		{ErrStore, "store_error"},
		{ErrGraphUnavailable, "graph_unavailable"},
		{ErrCancellation, "cancellation_error"},
		{errors.New("something unrelated"), "internal_error"},
		{nil, ""},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Type(c.err))
	}
}

func TestType_WrappedSentinelStillClassifies(t *testing.T) {
	wrapped := fmt.Errorf("fetching %s: %w", "https://x.test", ErrFetch)
	assert.Equal(t, "fetch_error", Type(wrapped))
}

package llmclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseScore(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"0.87", 0.87},
		{"  0.3\n", 0.3},
		{"The score is 0.42 out of 1.", 0.42},
		{"1", 1},
		{"1.5", 1},
		{"3", 1},
		{"no number here", 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, parseScore(tc.in), tc.in)
	}
}

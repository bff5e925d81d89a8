package endpoint

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonical(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"v0/bet", "/v0/bet"},
		{"/v0/bet", "/v0/bet"},
		{"bet", "/v0/bet"},
		{"/bet/", "/v0/bet"},
		{"//v0//user/[username]", "/v0/user/[username]"},
		{"/user/[username]", "/v0/user/[username]"},
		{"", "/v0"},
		{"v0", "/v0"},
		// only a leading version segment is redundant
		{"/market/v0", "/v0/market/v0"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Canonical("v0", tt.input))
		})
	}
}

func TestSplitVersion(t *testing.T) {
	version, rest, ok := SplitVersion("/v0/market/[id]")
	assert.True(t, ok)
	assert.Equal(t, "v0", version)
	assert.Equal(t, "/market/[id]", rest)

	_, rest, ok = SplitVersion("/market/[id]")
	assert.False(t, ok)
	assert.Equal(t, "/market/[id]", rest)
}

func TestParams(t *testing.T) {
	assert.Equal(t, []string{"username"}, Params("/v0/user/[username]"))
	assert.Equal(t, []string{"id", "answerId"}, Params("/v0/market/[id]/answer/[answerId]"))
	assert.Empty(t, Params("/v0/bets"))
	assert.Empty(t, Params("/v0/[]/x"))
}

func TestSubstitute(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		values   map[string]string
		expected string
	}{
		{"single", "/v0/user/[username]", map[string]string{"username": "alice"}, "/v0/user/alice"},
		{"escaped", "/v0/slug/[slug]", map[string]string{"slug": "a b/c"}, "/v0/slug/a%20b%2Fc"},
		{"partial", "/v0/market/[id]/answer/[answerId]", map[string]string{"id": "m1"}, "/v0/market/m1/answer/[answerId]"},
		{"unused values", "/v0/bets", map[string]string{"id": "x"}, "/v0/bets"},
		{"nil values", "/v0/user/[username]", nil, "/v0/user/[username]"},
		{"empty value", "/v0/user/[username]/bets", map[string]string{"username": ""}, "/v0/user/[username]/bets"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Substitute(tt.path, tt.values))
		})
	}
}

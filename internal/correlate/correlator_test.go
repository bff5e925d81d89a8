package correlate

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gomanifold/manifold/pkg/endpoint"
	mferrors "github.com/gomanifold/manifold/pkg/errors"
)

func writeSchemas(t *testing.T, files ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, f := range files {
		path := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(`{"type":"object"}`), 0644))
	}
	return root
}

func mustAliases(t *testing.T, groups [][]string) *endpoint.AliasSet {
	t.Helper()
	set, err := endpoint.NewAliasSet(groups)
	require.NoError(t, err)
	return set
}

func TestCandidate(t *testing.T) {
	tests := []struct {
		rel      string
		expected string
	}{
		{"bet.json", "/v0/bet"},
		{"user/{username}.json", "/v0/user/[username]"},
		{"user/{username}/lite.json", "/v0/user/[username]/lite"},
		{"market/{id}/positions.json", "/v0/market/[id]/positions"},
		{"{x}.json", "/v0/[x]"},
	}

	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			assert.Equal(t, tt.expected, Candidate("v0", tt.rel, ".json"))
		})
	}
}

func TestDiscoverSkipsInfrastructureFiles(t *testing.T) {
	root := writeSchemas(t,
		"bet.json",
		"__init__.json",
		"user/__init__.json",
		"user/{username}.json",
		".cache/bet.json",
		"notes.txt",
	)

	artifacts, err := New(Options{}).Discover(root)
	require.NoError(t, err)

	rels := make([]string, len(artifacts))
	for i, a := range artifacts {
		rels[i] = a.RelPath
	}
	assert.Equal(t, []string{"bet.json", "user/{username}.json"}, rels)
}

func TestDiscoverMissingRoot(t *testing.T) {
	_, err := New(Options{}).Discover(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, mferrors.ErrSourceUnavailable))
}

func TestCorrelateExactMatch(t *testing.T) {
	root := writeSchemas(t, "user/{username}.json", "bet.json")
	documented := map[string]string{
		"/v0/user/[username]": "GET",
		"/v0/bet":             "POST",
		"/v0/bets":            "GET",
	}

	result, err := New(Options{}).Correlate(root, documented)
	require.NoError(t, err)

	require.Len(t, result.Matches, 2)
	match := result.Matches["/v0/user/[username]"]
	assert.Equal(t, "GET", match.Method)
	assert.Equal(t, "user/{username}.json", match.Artifact.RelPath)
	assert.Empty(t, result.Unmatched)
	assert.Empty(t, result.Conflicted)
}

func TestCorrelateWithAlias(t *testing.T) {
	root := writeSchemas(t, "market/{id}/positions.json")
	documented := map[string]string{"/v0/market/[contractId]/positions": "GET"}

	withAlias := New(Options{Aliases: mustAliases(t, [][]string{{"id", "contractId"}})})
	result, err := withAlias.Correlate(root, documented)
	require.NoError(t, err)
	require.Contains(t, result.Matches, "/v0/market/[contractId]/positions")
	assert.Equal(t, "market/{id}/positions.json", result.Matches["/v0/market/[contractId]/positions"].Artifact.RelPath)

	withoutAlias := New(Options{Aliases: mustAliases(t, nil)})
	result, err = withoutAlias.Correlate(root, documented)
	require.NoError(t, err)
	assert.Empty(t, result.Matches)
	require.Len(t, result.Unmatched, 1)
	assert.Equal(t, "/v0/market/[id]/positions", result.Unmatched[0].Candidate)
	assert.False(t, result.Issues.HasErrors())
}

func TestCorrelateUnmatchedIsNonFatal(t *testing.T) {
	root := writeSchemas(t, "bet.json", "undocumented/thing.json")

	result, err := New(Options{}).Correlate(root, map[string]string{"/v0/bet": "POST"})
	require.NoError(t, err)

	assert.Len(t, result.Matches, 1)
	require.Len(t, result.Unmatched, 1)
	assert.Equal(t, "undocumented/thing.json", result.Unmatched[0].RelPath)
	require.Len(t, result.Issues, 1)
	assert.Equal(t, mferrors.ErrCodeUnmatchedArtifact, result.Issues[0].Code)
}

func TestCorrelateDuplicateClaimIsConflict(t *testing.T) {
	// {id} and {marketId} are both spellings of the documented [contractId]
	root := writeSchemas(t, "market/{id}.json", "market/{marketId}.json", "bet.json")
	documented := map[string]string{
		"/v0/market/[contractId]": "GET",
		"/v0/bet":                 "POST",
	}

	c := New(Options{Aliases: mustAliases(t, endpoint.DefaultAliases())})
	result, err := c.Correlate(root, documented)
	require.NoError(t, err)

	assert.NotContains(t, result.Matches, "/v0/market/[contractId]")
	assert.Contains(t, result.Matches, "/v0/bet")
	assert.Equal(t, []string{"/v0/market/[contractId]"}, result.Conflicted)

	conflicts := result.Issues.ByKind(mferrors.KindCorrelationConflict)
	require.Len(t, conflicts, 1)
	assert.Equal(t, mferrors.ErrCodeDuplicateArtifact, conflicts[0].Code)
}

func TestCorrelateEachArtifactMatchesOnce(t *testing.T) {
	root := writeSchemas(t, "market/{id}.json")
	documented := map[string]string{
		"/v0/market/[id]":       "GET",
		"/v0/market/[marketId]": "GET",
	}

	c := New(Options{Aliases: mustAliases(t, endpoint.DefaultAliases())})
	result, err := c.Correlate(root, documented)
	require.NoError(t, err)

	// the exact spelling wins over the alias spelling
	require.Len(t, result.Matches, 1)
	assert.Contains(t, result.Matches, "/v0/market/[id]")
}

func TestCorrelateAmbiguousAlias(t *testing.T) {
	root := writeSchemas(t, "market/{contractId}.json")
	documented := map[string]string{
		"/v0/market/[id]":       "GET",
		"/v0/market/[marketId]": "DELETE",
	}

	c := New(Options{Aliases: mustAliases(t, endpoint.DefaultAliases())})
	result, err := c.Correlate(root, documented)
	require.NoError(t, err)

	assert.Empty(t, result.Matches)
	require.Len(t, result.Unmatched, 1)
	require.Len(t, result.Issues, 1)
	assert.Equal(t, mferrors.ErrCodeAmbiguousAlias, result.Issues[0].Code)
}

func TestIndexLookup(t *testing.T) {
	idx := NewIndex([]string{"/v0/market/[contractId]/positions"}, mustAliases(t, endpoint.DefaultAliases()))

	for _, candidate := range []string{
		"/v0/market/[contractId]/positions",
		"/v0/market/[id]/positions",
		"/v0/market/[marketId]/positions",
	} {
		canonical, owners, ok := idx.Lookup(candidate)
		assert.True(t, ok, candidate)
		assert.Empty(t, owners)
		assert.Equal(t, "/v0/market/[contractId]/positions", canonical)
	}

	_, _, ok := idx.Lookup("/v0/market/[slug]/positions")
	assert.False(t, ok)
	assert.Equal(t, 3, idx.Len())
}

package endpoint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAliasSetRejectsOverlappingGroups(t *testing.T) {
	_, err := NewAliasSet([][]string{{"id", "marketId"}, {"marketId", "contractId"}})
	assert.Error(t, err)
}

func TestAliases(t *testing.T) {
	set, err := NewAliasSet(DefaultAliases())
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"id", "marketId", "contractId"}, set.Aliases("contractId"))
	assert.Equal(t, []string{"username"}, set.Aliases("username"))
	assert.Equal(t, 3, set.Len())
}

func TestExpandCrossProduct(t *testing.T) {
	set, err := NewAliasSet([][]string{{"a", "alpha"}, {"b", "beta"}})
	require.NoError(t, err)

	variants := set.Expand("/v0/x/[a]/y/[b]")

	assert.Len(t, variants, 4)
	assert.Contains(t, variants, "/v0/x/[a]/y/[b]")
	assert.ElementsMatch(t, []string{
		"/v0/x/[a]/y/[b]",
		"/v0/x/[a]/y/[beta]",
		"/v0/x/[alpha]/y/[b]",
		"/v0/x/[alpha]/y/[beta]",
	}, variants)
}

func TestExpandRepeatedToken(t *testing.T) {
	set, err := NewAliasSet([][]string{{"id", "marketId"}})
	require.NoError(t, err)

	// each occurrence is substituted independently
	assert.Len(t, set.Expand("/v0/[id]/[id]"), 4)
}

func TestExpandWithoutAliases(t *testing.T) {
	set, err := NewAliasSet(nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"/v0/user/[username]"}, set.Expand("/v0/user/[username]"))
	assert.Equal(t, []string{"/v0/bets"}, set.Expand("/v0/bets"))

	var nilSet *AliasSet
	assert.Equal(t, []string{"/v0/market/[id]"}, nilSet.Expand("/v0/market/[id]"))
}

func TestExpandIsDeterministic(t *testing.T) {
	set, err := NewAliasSet(DefaultAliases())
	require.NoError(t, err)

	first := set.Expand("/v0/market/[contractId]/positions")
	second := set.Expand("/v0/market/[contractId]/positions")

	assert.Equal(t, first, second)
	assert.Equal(t, []string{
		"/v0/market/[contractId]/positions",
		"/v0/market/[id]/positions",
		"/v0/market/[marketId]/positions",
	}, first)
}

func TestNewAliasSetIgnoresBlankAndDuplicateNames(t *testing.T) {
	set, err := NewAliasSet([][]string{{"id", " ", "id", "marketId"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "marketId"}, set.Aliases("id"))
}

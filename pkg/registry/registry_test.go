package registry

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mferrors "github.com/gomanifold/manifold/pkg/errors"
)

func sampleRecords() map[string]Record {
	return map[string]Record{
		"/v0/user/[username]": {
			Method:          "GET",
			ModuleLocator:   "user.username",
			ModelIdentifier: "UserUsername",
			SchemaLocation:  "user/{username}.json",
		},
		"/v0/bet":   {Method: "post"},
		"/v0/users": {Method: "GET", ModuleLocator: "users", ModelIdentifier: "Users"},
	}
}

func TestNewBuildsIndexes(t *testing.T) {
	reg, err := New(sampleRecords())
	require.NoError(t, err)

	assert.Equal(t, 3, reg.Len())
	assert.Equal(t, []string{"/v0/bet", "/v0/user/[username]", "/v0/users"}, reg.Endpoints())
	assert.Equal(t, []string{"/v0/user/[username]", "/v0/users"}, reg.ByMethod("get"))

	rec, ok := reg.Lookup("/v0/bet")
	require.True(t, ok)
	assert.Equal(t, "POST", rec.Method)
	assert.False(t, rec.HasModel())

	_, ok = reg.Lookup("/v0/nope")
	assert.False(t, ok)
}

func TestNewRejectsHalfPairedModel(t *testing.T) {
	_, err := New(map[string]Record{
		"/v0/bet": {Method: "POST", ModuleLocator: "bet"},
	})
	assert.Error(t, err)

	_, err = New(map[string]Record{
		"/v0/bet": {Method: "POST", ModelIdentifier: "Bet"},
	})
	assert.Error(t, err)
}

func TestNewRejectsMissingMethodAndRelativeKeys(t *testing.T) {
	_, err := New(map[string]Record{"/v0/bet": {}})
	assert.Error(t, err)

	_, err = New(map[string]Record{"v0/bet": {Method: "GET"}})
	assert.Error(t, err)
}

func TestEntriesFilter(t *testing.T) {
	reg, err := New(sampleRecords())
	require.NoError(t, err)

	assert.Len(t, reg.Entries(Filter{}), 3)
	assert.Len(t, reg.Entries(Filter{Method: "POST"}), 1)
	assert.Len(t, reg.Entries(Filter{WithModel: true}), 2)

	entries := reg.Entries(Filter{Prefix: "/v0/user/"})
	require.Len(t, entries, 1)
	assert.Equal(t, "/v0/user/[username]", entries[0].Endpoint)
	assert.Equal(t, "UserUsername", entries[0].ModelIdentifier)
}

func TestRegistryIsNotMutatedThroughAccessors(t *testing.T) {
	records := sampleRecords()
	reg, err := New(records)
	require.NoError(t, err)

	records["/v0/new"] = Record{Method: "GET"}
	reg.Records()["/v0/other"] = Record{Method: "GET"}
	reg.Endpoints()[0] = "/mutated"

	assert.Equal(t, 3, reg.Len())
	assert.Equal(t, "/v0/bet", reg.Endpoints()[0])
}

func TestMarshalIsDeterministic(t *testing.T) {
	first, err := New(sampleRecords())
	require.NoError(t, err)
	second, err := New(sampleRecords())
	require.NoError(t, err)

	a, err := Marshal(first)
	require.NoError(t, err)
	b, err := Marshal(second)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Contains(t, string(a), `"module_locator": "user.username"`)
	assert.Contains(t, string(a), `"/v0/bet": {
    "method": "POST"
  }`)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "endpoints.json")

	reg, err := New(sampleRecords())
	require.NoError(t, err)
	require.NoError(t, Save(path, reg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, reg.Records(), loaded.Records())

	// no temp files left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, mferrors.ErrSourceUnavailable))
}

func TestLoadInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "endpoints.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"invalid": json}`), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadFS(t *testing.T) {
	fsys := fstest.MapFS{
		"endpoints.json": {Data: []byte(`{"/v0/bets": {"method": "GET"}}`)},
	}

	reg, err := LoadFS(fsys, "endpoints.json")
	require.NoError(t, err)

	rec, ok := reg.Lookup("/v0/bets")
	require.True(t, ok)
	assert.Equal(t, "GET", rec.Method)
}

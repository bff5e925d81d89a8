package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gomanifold/manifold/pkg/endpoint"
	"github.com/gomanifold/manifold/pkg/registry"
)

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.New(map[string]registry.Record{
		"/v0/me": {Method: "GET"},
		"/v0/bet": {
			Method:          "POST",
			ModuleLocator:   "manifold.bet",
			ModelIdentifier: "Bet",
			SchemaLocation:  "bet.json",
		},
		"/v0/market/[marketId]": {
			Method:          "GET",
			ModuleLocator:   "manifold.market.market_id",
			ModelIdentifier: "MarketId",
			SchemaLocation:  "market/[marketId].json",
		},
	})
	require.NoError(t, err)
	return reg
}

func get(t *testing.T, h http.Handler, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	var body map[string]any
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestHealth(t *testing.T) {
	api := NewAPI(testRegistry(t))
	rec, body := get(t, api.Routes(), "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(3), body["endpoints"])
}

func TestListEndpoints(t *testing.T) {
	h := NewAPI(testRegistry(t)).Routes()

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"all", "", []string{"/v0/bet", "/v0/market/[marketId]", "/v0/me"}},
		{"by method", "?method=get", []string{"/v0/market/[marketId]", "/v0/me"}},
		{"by prefix", "?prefix=/v0/market", []string{"/v0/market/[marketId]"}},
		{"with model", "?with_model=true", []string{"/v0/bet", "/v0/market/[marketId]"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := get(t, h, "/endpoints"+tt.query)
			require.Equal(t, http.StatusOK, rec.Code)

			var got []string
			for _, e := range body["endpoints"].([]any) {
				got = append(got, e.(map[string]any)["endpoint"].(string))
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, float64(len(tt.want)), body["count"])
		})
	}
}

func TestListEndpointsBadFilter(t *testing.T) {
	rec, _ := get(t, NewAPI(testRegistry(t)).Routes(), "/endpoints?with_model=maybe")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResolve(t *testing.T) {
	rec, body := get(t, NewAPI(testRegistry(t)).Routes(), "/endpoints/resolve?path=bet")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/v0/bet", body["endpoint"])
	assert.Equal(t, "POST", body["method"])
	assert.Equal(t, "Bet", body["model_identifier"])
}

func TestResolveWithAliases(t *testing.T) {
	aliases, err := endpoint.NewAliasSet(endpoint.DefaultAliases())
	require.NoError(t, err)
	h := NewAPI(testRegistry(t), WithAliases(aliases)).Routes()

	rec, body := get(t, h, "/endpoints/resolve?path=/v0/market/[contractId]")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/v0/market/[marketId]", body["endpoint"])
	assert.Equal(t, []any{"marketId"}, body["params"])
}

func TestResolveErrors(t *testing.T) {
	suggest := func(target string, candidates []string) []string { return []string{"/v0/me"} }
	h := NewAPI(testRegistry(t), WithSuggestions(suggest)).Routes()

	rec, body := get(t, h, "/endpoints/resolve?path=/v0/mee")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	errBody := body["error"].(map[string]any)
	assert.Equal(t, "RUN401", errBody["code"])
	assert.Equal(t, []any{"/v0/me"}, errBody["suggestions"])

	rec, _ = get(t, h, "/endpoints/resolve?path=/bet&version=v1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = get(t, h, "/endpoints/resolve")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRawRegistryAndSwap(t *testing.T) {
	api := NewAPI(testRegistry(t))
	h := api.Routes()

	rec, body := get(t, h, "/registry")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body, "/v0/me")

	next, err := registry.New(map[string]registry.Record{"/v0/users": {Method: "GET"}})
	require.NoError(t, err)
	api.SetRegistry(next)

	_, body = get(t, h, "/health")
	assert.Equal(t, float64(1), body["endpoints"])
}

func TestEventsMountedOnlyWhenConfigured(t *testing.T) {
	rec, _ := get(t, NewAPI(testRegistry(t)).Routes(), "/events")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	events := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	rec, _ = get(t, NewAPI(testRegistry(t), WithEvents(events)).Routes(), "/events")
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestRawRegistryETag(t *testing.T) {
	h := NewAPI(testRegistry(t)).Routes()

	rec, _ := get(t, h, "/registry")
	tag := rec.Header().Get("ETag")
	require.NotEmpty(t, tag)

	req := httptest.NewRequest(http.MethodGet, "/registry", nil)
	req.Header.Set("If-None-Match", "W/"+tag)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Empty(t, rec.Body.String())

	req.Header.Set("If-None-Match", `"stale"`)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORS(t *testing.T) {
	h := NewAPI(testRegistry(t), WithCORS([]string{"https://dash.example.com", "*.internal.dev"})).Routes()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://dash.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "https://dash.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/endpoints", nil)
	req.Header.Set("Origin", "https://ops.internal.dev")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "GET, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.org")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestIsOriginAllowed(t *testing.T) {
	assert.True(t, isOriginAllowed("https://a.example.com", []string{"*"}))
	assert.True(t, isOriginAllowed("https://a.example.com", []string{"*.example.com"}))
	assert.False(t, isOriginAllowed("https://example.com", []string{"*.example.com"}))
	assert.False(t, isOriginAllowed("https://other.dev", []string{"https://a.example.com"}))
}

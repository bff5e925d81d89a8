package session

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gomanifold/manifold/pkg/endpoint"
	mferrors "github.com/gomanifold/manifold/pkg/errors"
	"github.com/gomanifold/manifold/pkg/model"
	"github.com/gomanifold/manifold/pkg/registry"
	"github.com/gomanifold/manifold/pkg/transport"
)

type UserUsername struct {
	Username string `json:"username" validate:"required"`
}

type Bet struct {
	ContractID string  `json:"contractId" validate:"required"`
	Amount     float64 `json:"amount" validate:"gte=1"`
	Outcome    string  `json:"outcome,omitempty" validate:"omitempty,oneof=YES NO"`
}

type MarketIdPositions struct {
	ID    string `json:"id" validate:"required"`
	Top   int    `json:"top,omitempty"`
	Order string `json:"order,omitempty" validate:"omitempty,oneof=shares profit"`
}

type BetsQuery struct {
	Username string `json:"username,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

// fakeTransport records requests instead of sending them.
type fakeTransport struct {
	requests []transport.Request
	response json.RawMessage
	err      error
}

func (f *fakeTransport) Do(_ context.Context, req transport.Request) (json.RawMessage, error) {
	f.requests = append(f.requests, req)
	return f.response, f.err
}

func fixture(t *testing.T) (*registry.Registry, *model.Catalog) {
	t.Helper()
	reg, err := registry.New(map[string]registry.Record{
		"/v0/user/[username]": {
			Method: "GET", ModuleLocator: "user.username", ModelIdentifier: "UserUsername",
			SchemaLocation: "user/{username}.json",
		},
		"/v0/bet":  {Method: "POST", ModuleLocator: "bet", ModelIdentifier: "Bet", SchemaLocation: "bet.json"},
		"/v0/bets": {Method: "GET"},
		"/v0/market/[contractId]/positions": {
			Method: "GET", ModuleLocator: "market.id.positions", ModelIdentifier: "MarketIdPositions",
			SchemaLocation: "market/{id}/positions.json",
		},
		"/v0/orphan": {Method: "GET", ModuleLocator: "orphan", ModelIdentifier: "Orphan", SchemaLocation: "orphan.json"},
	})
	require.NoError(t, err)

	table := model.NewTable()
	table.MustRegister("UserUsername", model.Struct[UserUsername]("UserUsername"))
	table.MustRegister("Bet", model.Struct[Bet]("Bet"))
	table.MustRegister("MarketIdPositions", model.Struct[MarketIdPositions]("MarketIdPositions"))
	return reg, model.NewCatalog(reg, model.WithTable(table))
}

func defaultAliases(t *testing.T) *endpoint.AliasSet {
	t.Helper()
	set, err := endpoint.NewAliasSet(endpoint.DefaultAliases())
	require.NoError(t, err)
	return set
}

func TestNewNormalizesEndpoint(t *testing.T) {
	reg, catalog := fixture(t)

	for _, ep := range []string{"v0/bet", "/v0/bet", "bet", "/bet/", "//v0//bet"} {
		t.Run(ep, func(t *testing.T) {
			s, err := New(reg, catalog, ep, "v0", WithTransport(&fakeTransport{}))
			require.NoError(t, err)
			assert.Equal(t, "/v0/bet", s.Endpoint())
			assert.Equal(t, "POST", s.Method())
			assert.Equal(t, Ready, s.State())
			require.NotNil(t, s.Model())
			assert.Equal(t, "Bet", s.Model().Identifier())
		})
	}
}

func TestNewUnsupportedVersion(t *testing.T) {
	reg, catalog := fixture(t)

	_, err := New(reg, catalog, "/bet", "v1")
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, mferrors.ErrUnsupportedVersion))
}

func TestNewUnresolvedEndpoint(t *testing.T) {
	reg, catalog := fixture(t)

	_, err := New(reg, catalog, "/bett", "v0", WithSuggestions(func(target string, candidates []string) []string {
		assert.Equal(t, "/v0/bett", target)
		return []string{"/v0/bet", "/v0/bets"}
	}))
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, mferrors.ErrUnresolvedEndpoint))

	var mfErr *mferrors.Error
	require.True(t, stderrors.As(err, &mfErr))
	assert.Equal(t, mferrors.ErrCodeUnresolvedEndpoint, mfErr.Code)
	assert.Equal(t, []string{"/v0/bet", "/v0/bets"}, mfErr.Suggestions)

	_, err = New(nil, nil, "/bet", "v0")
	assert.True(t, stderrors.Is(err, mferrors.ErrUnresolvedEndpoint))
}

func TestNewModelNotFound(t *testing.T) {
	reg, catalog := fixture(t)

	_, err := New(reg, catalog, "/orphan", "v0")
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, mferrors.ErrUnresolvedEndpoint))
	assert.Contains(t, err.Error(), "model not found")

	// Without a catalog no model is resolved and nothing is validated.
	s, err := New(reg, nil, "/orphan", "v0", WithTransport(&fakeTransport{}))
	require.NoError(t, err)
	assert.Nil(t, s.Model())
}

func TestPrepareSubstitutesPath(t *testing.T) {
	reg, catalog := fixture(t)

	s, err := New(reg, catalog, "/v0/user/[username]", "v0", WithAPIKey("secret"), WithTransport(&fakeTransport{}))
	require.NoError(t, err)
	assert.Equal(t, []string{"username"}, s.Params())

	req, err := s.Prepare(Request{URLParams: map[string]string{"username": "alice"}})
	require.NoError(t, err)
	assert.Equal(t, "GET", req.Method)
	assert.Equal(t, "/v0/user/alice", req.Path)
	assert.Equal(t, "secret", req.APIKey)
}

func TestPrepareUnsubstitutedParameter(t *testing.T) {
	reg, catalog := fixture(t)
	ft := &fakeTransport{}

	s, err := New(reg, catalog, "/user/[username]", "v0", WithTransport(ft))
	require.NoError(t, err)

	_, err = s.Execute(context.Background(), Request{URLParams: map[string]string{"user": "alice"}})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, mferrors.ErrUnsubstitutedParameter))
	assert.Contains(t, err.Error(), "username")
	assert.Empty(t, ft.requests, "no network action before substitution")
}

func TestPrepareEmptyParameter(t *testing.T) {
	reg, catalog := fixture(t)
	ft := &fakeTransport{}

	s, err := New(reg, catalog, "/user/[username]", "v0", WithTransport(ft))
	require.NoError(t, err)

	_, err = s.Execute(context.Background(), Request{URLParams: map[string]string{"username": ""}})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, mferrors.ErrUnsubstitutedParameter))
	assert.Contains(t, err.Error(), "username")
	assert.Empty(t, ft.requests)
}

func TestPrepareValidatesPayload(t *testing.T) {
	reg, catalog := fixture(t)
	ft := &fakeTransport{}

	s, err := New(reg, catalog, "/bet", "v0", WithTransport(ft))
	require.NoError(t, err)

	_, err = s.Execute(context.Background(), Request{Body: map[string]any{"contractId": "m1", "amount": 0}})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, mferrors.ErrInvalidPayload))
	assert.Empty(t, ft.requests)

	_, err = s.Execute(context.Background(), Request{Body: Bet{ContractID: "m1", Amount: 10, Outcome: "YES"}})
	require.NoError(t, err)
	require.Len(t, ft.requests, 1)
	assert.Equal(t, "/v0/bet", ft.requests[0].Path)
	assert.Equal(t, Bet{ContractID: "m1", Amount: 10, Outcome: "YES"}, ft.requests[0].Body)
}

func TestAliasSpellings(t *testing.T) {
	reg, catalog := fixture(t)
	ft := &fakeTransport{}

	s, err := New(reg, catalog, "/market/[id]/positions", "v0", WithAliases(defaultAliases(t)), WithTransport(ft))
	require.NoError(t, err)
	assert.Equal(t, "/v0/market/[contractId]/positions", s.Endpoint())

	req, err := s.Prepare(Request{
		URLParams: map[string]string{"id": "m 1"},
		Query:     map[string]any{"top": 5, "order": "profit"},
	})
	require.NoError(t, err)
	assert.Equal(t, "/v0/market/m%201/positions", req.Path)
	assert.Equal(t, url.Values{"top": {"5"}, "order": {"profit"}}, req.Query)

	_, err = New(reg, catalog, "/market/[id]/positions", "v0")
	assert.True(t, stderrors.Is(err, mferrors.ErrUnresolvedEndpoint), "alias spellings need the alias table")
}

func TestParamsKeyedByArtifactNames(t *testing.T) {
	reg, catalog := fixture(t)

	for _, name := range []string{"contractId", "marketId", "id"} {
		t.Run(name, func(t *testing.T) {
			ft := &fakeTransport{}
			s, err := New(reg, catalog, "/market/[contractId]/positions", "v0",
				WithAliases(defaultAliases(t)), WithTransport(ft))
			require.NoError(t, err)

			_, err = s.Execute(context.Background(), Request{
				URLParams: map[string]string{name: "m1"},
				Query:     url.Values{"top": {"5"}, "order": {"shares"}},
			})
			require.NoError(t, err)
			require.Len(t, ft.requests, 1)
			assert.Equal(t, "/v0/market/m1/positions", ft.requests[0].Path)
			assert.Equal(t, url.Values{"top": {"5"}, "order": {"shares"}}, ft.requests[0].Query)
		})
	}
}

func TestQueryStringsCoercedForValidation(t *testing.T) {
	reg, catalog := fixture(t)

	s, err := New(reg, catalog, "/market/[contractId]/positions", "v0", WithTransport(&fakeTransport{}))
	require.NoError(t, err)

	_, err = s.Prepare(Request{
		URLParams: map[string]string{"contractId": "m1"},
		Query:     url.Values{"top": {"5"}},
	})
	require.NoError(t, err)

	_, err = s.Prepare(Request{
		URLParams: map[string]string{"contractId": "m1"},
		Query:     url.Values{"top": {"five"}},
	})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, mferrors.ErrInvalidPayload))
}

func TestArtifactParams(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		location string
		want     map[string]string
	}{
		{"renamed", "/v0/market/[contractId]/positions", "market/{id}/positions.json", map[string]string{"contractId": "id"}},
		{"same spelling", "/v0/user/[username]", "user/{username}.json", nil},
		{"no params", "/v0/bet", "bet.json", nil},
		{"no location", "/v0/market/[contractId]/positions", "", nil},
		{"segment mismatch", "/v0/market/[contractId]/positions", "market/{id}.json", nil},
		{"unversioned key", "market/[contractId]", "market/{id}.json", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, artifactParams(tt.key, tt.location))
		})
	}
}

func TestQueryEncodings(t *testing.T) {
	reg, catalog := fixture(t)

	s, err := New(reg, catalog, "/bets", "v0", WithTransport(&fakeTransport{}))
	require.NoError(t, err)

	tests := []struct {
		name  string
		query any
		want  url.Values
	}{
		{"nil", nil, nil},
		{"values", url.Values{"username": {"alice"}}, url.Values{"username": {"alice"}}},
		{"string map", map[string]string{"limit": "5"}, url.Values{"limit": {"5"}}},
		{"any map with slice", map[string]any{"id": []string{"a", "b"}}, url.Values{"id": {"a", "b"}}},
		{"struct", BetsQuery{Username: "alice", Limit: 5}, url.Values{"username": {"alice"}, "limit": {"5"}}},
		{"struct pointer omitempty", &BetsQuery{Username: "alice"}, url.Values{"username": {"alice"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := s.Prepare(Request{Query: tt.query})
			require.NoError(t, err)
			assert.Equal(t, tt.want, req.Query)
		})
	}

	_, err = s.Prepare(Request{Query: 42})
	assert.Error(t, err)
}

func TestExecuteReturnsPayloadUnchanged(t *testing.T) {
	reg, catalog := fixture(t)
	ft := &fakeTransport{response: json.RawMessage(`{"id":"u1", "username":"alice"}`)}

	s, err := New(reg, catalog, "/user/[username]", "v0", WithTransport(ft))
	require.NoError(t, err)

	body, err := s.Execute(context.Background(), Request{URLParams: map[string]string{"username": "alice"}})
	require.NoError(t, err)
	assert.Equal(t, `{"id":"u1", "username":"alice"}`, string(body))
}

func TestExecuteOverHTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v0/user/alice", r.URL.Path)
		assert.Equal(t, "Key secret", r.Header.Get("Authorization"))
		w.Write([]byte(`{"username":"alice"}`))
	}))
	defer server.Close()

	reg, catalog := fixture(t)
	tr := transport.New(transport.Config{BaseURL: server.URL}, nil)

	s, err := New(reg, catalog, "/user/[username]", "v0", WithAPIKey("secret"), WithTransport(tr))
	require.NoError(t, err)

	body, err := s.Execute(context.Background(), Request{URLParams: map[string]string{"username": "alice"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"username":"alice"}`, string(body))
}

func TestSessionsShareRegistryConcurrently(t *testing.T) {
	reg, catalog := fixture(t)

	done := make(chan error, 20)
	for i := 0; i < 20; i++ {
		go func(i int) {
			s, err := New(reg, catalog, "/user/[username]", "v0", WithTransport(&fakeTransport{}))
			if err != nil {
				done <- err
				return
			}
			name := strings.Repeat("a", i+1)
			req, err := s.Prepare(Request{URLParams: map[string]string{"username": name}})
			if err == nil && req.Path != "/v0/user/"+name {
				err = stderrors.New("unexpected path " + req.Path)
			}
			done <- err
		}(i)
	}
	for i := 0; i < 20; i++ {
		assert.NoError(t, <-done)
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "uninitialized", Uninitialized.String())
	assert.Equal(t, "endpoint_normalized", EndpointNormalized.String())
	assert.Equal(t, "method_resolved", MethodResolved.String())
	assert.Equal(t, "model_resolved", ModelResolved.String())
	assert.Equal(t, "ready", Ready.String())
	assert.Equal(t, "unknown", State(42).String())
}

// Package session resolves an endpoint against the registry and dispatches
// calls to it.
//
// A Session is bound to one endpoint. Construction walks a fixed sequence
// of states (endpoint normalized, method resolved, model resolved, ready)
// and fails at the first step that cannot complete, so a Session that
// exists can always be executed. Sessions never mutate the registry or the
// model catalog and are cheap to create per call.
package session

import (
	"context"
	"encoding/json"
	"path"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/gomanifold/manifold/pkg/endpoint"
	mferrors "github.com/gomanifold/manifold/pkg/errors"
	"github.com/gomanifold/manifold/pkg/model"
	"github.com/gomanifold/manifold/pkg/registry"
	"github.com/gomanifold/manifold/pkg/transport"
)

// State is a resolution step.
type State int

const (
	Uninitialized State = iota
	EndpointNormalized
	MethodResolved
	ModelResolved
	Ready
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case EndpointNormalized:
		return "endpoint_normalized"
	case MethodResolved:
		return "method_resolved"
	case ModelResolved:
		return "model_resolved"
	case Ready:
		return "ready"
	default:
		return "unknown"
	}
}

// Request carries the caller's values for one call.
type Request struct {
	// URLParams fill the endpoint's [name] placeholders. A value may be given
	// under any alias of the placeholder name.
	URLParams map[string]string
	// Query is nil, url.Values, map[string]string, map[string]any or a struct.
	Query any
	// Body is JSON-encoded as the request body.
	Body any
}

// Session is a resolved endpoint ready for dispatch.
type Session struct {
	endpoint  string
	record    registry.Record
	model     model.Descriptor
	state     State
	apiKey    string
	transport transport.Transport
	aliases   *endpoint.AliasSet
	suggest   func(target string, candidates []string) []string
	logger    *zap.Logger
	// modelParams maps placeholder names to the model's field names where
	// the schema artifact spells a parameter differently.
	modelParams map[string]string
}

// Option configures a Session
type Option func(*Session)

// WithAPIKey sets the credential sent with every call.
func WithAPIKey(key string) Option {
	return func(s *Session) {
		s.apiKey = key
	}
}

// WithTransport sets the transport; the default is the HTTP transport
// against the public API.
func WithTransport(t transport.Transport) Option {
	return func(s *Session) {
		s.transport = t
	}
}

// WithAliases lets callers spell endpoints and URL parameters with any
// alias of the registered parameter names.
func WithAliases(aliases *endpoint.AliasSet) Option {
	return func(s *Session) {
		s.aliases = aliases
	}
}

// WithSuggestions attaches "did you mean" candidates to unresolved endpoint
// errors using fn.
func WithSuggestions(fn func(target string, candidates []string) []string) Option {
	return func(s *Session) {
		s.suggest = fn
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New resolves ep for version against reg. catalog supplies validation
// models; a nil catalog disables payload validation.
func New(reg *registry.Registry, catalog *model.Catalog, ep, version string, opts ...Option) (*Session, error) {
	s := &Session{
		state:  Uninitialized,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if version != endpoint.SupportedVersion {
		return nil, mferrors.NewUnsupportedVersion(version, endpoint.SupportedVersion)
	}
	s.endpoint = endpoint.Canonical(version, ep)
	s.state = EndpointNormalized

	key, rec, ok := s.lookup(reg)
	if !ok {
		err := mferrors.NewUnresolvedEndpoint(s.endpoint)
		if s.suggest != nil && reg != nil {
			if similar := s.suggest(s.endpoint, reg.Endpoints()); len(similar) > 0 {
				err = err.WithSuggestions(similar...)
			}
		}
		return nil, err
	}
	s.endpoint = key
	s.record = rec
	s.modelParams = artifactParams(key, rec.SchemaLocation)
	s.state = MethodResolved

	if rec.HasModel() && catalog != nil {
		d, ok := catalog.Lookup(rec.ModelIdentifier)
		if !ok {
			return nil, mferrors.NewModelNotFound(s.endpoint, rec.ModelIdentifier)
		}
		s.model = d
	}
	s.state = ModelResolved

	if s.transport == nil {
		s.transport = transport.New(transport.Config{}, s.logger)
	}
	s.state = Ready

	s.logger.Debug("session ready",
		zap.String("endpoint", s.endpoint),
		zap.String("method", rec.Method),
		zap.String("model", rec.ModelIdentifier),
	)
	return s, nil
}

// lookup finds the registry key for the normalized endpoint, trying alias
// spellings of its parameters when the exact key is absent. An alias
// spelling that hits more than one key is not resolved.
func (s *Session) lookup(reg *registry.Registry) (string, registry.Record, bool) {
	if reg == nil {
		return "", registry.Record{}, false
	}
	if rec, ok := reg.Lookup(s.endpoint); ok {
		return s.endpoint, rec, true
	}

	var hits []string
	for _, variant := range s.aliases.Expand(s.endpoint) {
		if _, ok := reg.Lookup(variant); ok {
			hits = append(hits, variant)
		}
	}
	if len(hits) != 1 {
		return "", registry.Record{}, false
	}
	rec, _ := reg.Lookup(hits[0])
	return hits[0], rec, true
}

// Endpoint returns the registry key the session resolved to.
func (s *Session) Endpoint() string { return s.endpoint }

// Method returns the HTTP method.
func (s *Session) Method() string { return s.record.Method }

// Record returns the registry record.
func (s *Session) Record() registry.Record { return s.record }

// Model returns the validation model, or nil when the endpoint has none.
func (s *Session) Model() model.Descriptor { return s.model }

// State returns the resolution state; always Ready for a constructed Session.
func (s *Session) State() State { return s.state }

// Params returns the endpoint's placeholder names.
func (s *Session) Params() []string {
	return endpoint.Params(s.endpoint)
}

// Prepare substitutes placeholders, encodes the query and validates the
// request without sending it.
func (s *Session) Prepare(req Request) (transport.Request, error) {
	values := s.pathValues(req.URLParams)
	resolved := endpoint.Substitute(s.endpoint, values)
	if remaining := endpoint.Params(resolved); len(remaining) > 0 {
		return transport.Request{}, mferrors.NewUnsubstitutedParameter(s.endpoint, remaining)
	}

	query, queryFields, err := encodeQuery(req.Query)
	if err != nil {
		return transport.Request{}, err
	}

	if s.model != nil {
		if c, ok := s.model.(model.Coercer); ok {
			queryFields = c.CoerceQuery(queryFields)
		}
		payload, err := mergePayload(s.modelValues(req.URLParams, values), queryFields, req.Body)
		if err != nil {
			return transport.Request{}, err
		}
		if err := s.model.Validate(payload); err != nil {
			return transport.Request{}, err
		}
	}

	return transport.Request{
		Method: s.record.Method,
		Path:   resolved,
		Query:  query,
		Body:   req.Body,
		APIKey: s.apiKey,
	}, nil
}

// Execute prepares req and hands it to the transport. The response payload
// is returned unchanged.
func (s *Session) Execute(ctx context.Context, req Request) (json.RawMessage, error) {
	prepared, err := s.Prepare(req)
	if err != nil {
		return nil, err
	}
	return s.transport.Do(ctx, prepared)
}

// pathValues maps each placeholder to the caller's value, accepting any
// alias spelling. An exact name always wins; among aliases the first in
// sorted order is used. Empty values do not count, so the placeholder stays
// unsubstituted.
func (s *Session) pathValues(params map[string]string) map[string]string {
	if len(params) == 0 {
		return nil
	}

	values := make(map[string]string, len(params))
	for _, name := range s.Params() {
		if v := params[name]; v != "" {
			values[name] = v
			continue
		}
		aliases := s.aliases.Aliases(name)
		sort.Strings(aliases)
		for _, alias := range aliases {
			if v := params[alias]; v != "" {
				values[name] = v
				break
			}
		}
	}
	return values
}

// modelValues keys the substituted placeholder values by the model's field
// names. Caller parameters that name no placeholder (under any alias) are
// passed through for the model to judge.
func (s *Session) modelValues(params, values map[string]string) map[string]string {
	consumed := make(map[string]bool)
	for _, name := range s.Params() {
		for _, alias := range s.aliases.Aliases(name) {
			consumed[alias] = true
		}
	}

	out := make(map[string]string, len(params))
	for k, v := range params {
		if !consumed[k] {
			out[k] = v
		}
	}
	for name, v := range values {
		if field, ok := s.modelParams[name]; ok {
			name = field
		}
		out[name] = v
	}
	return out
}

// artifactParams pairs the placeholders of a registry key with the {name}
// segments of its schema artifact path, which line up segment for segment
// after the version: "/v0/market/[contractId]/positions" and
// "market/{id}/positions.json" give {"contractId": "id"}. Only differing
// spellings are returned.
func artifactParams(key, location string) map[string]string {
	if location == "" {
		return nil
	}
	_, rest, ok := endpoint.SplitVersion(key)
	if !ok {
		return nil
	}
	keySegs := endpoint.Segments(rest)
	locSegs := strings.Split(strings.TrimSuffix(location, path.Ext(location)), "/")
	if len(keySegs) != len(locSegs) {
		return nil
	}

	var out map[string]string
	for i, seg := range keySegs {
		name, ok := endpoint.ParamName(seg)
		if !ok {
			continue
		}
		loc := locSegs[i]
		if len(loc) < 3 || loc[0] != '{' || loc[len(loc)-1] != '}' {
			continue
		}
		if field := loc[1 : len(loc)-1]; field != name {
			if out == nil {
				out = make(map[string]string)
			}
			out[name] = field
		}
	}
	return out
}

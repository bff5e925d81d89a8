package server

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/gomanifold/manifold/pkg/endpoint"
	mferrors "github.com/gomanifold/manifold/pkg/errors"
	"github.com/gomanifold/manifold/pkg/registry"
	"github.com/gomanifold/manifold/pkg/session"
)

// API serves the current registry. The registry can be swapped after a
// rebuild while requests are in flight.
type API struct {
	registry atomic.Pointer[registry.Registry]
	aliases  *endpoint.AliasSet
	suggest  func(target string, candidates []string) []string
	events   http.Handler
	origins  []string
	logger   *zap.Logger
}

// APIOption configures an API
type APIOption func(*API)

// WithAliases enables alias spellings in /resolve.
func WithAliases(aliases *endpoint.AliasSet) APIOption {
	return func(a *API) { a.aliases = aliases }
}

// WithSuggestions adds "did you mean" candidates to unresolved lookups.
func WithSuggestions(fn func(target string, candidates []string) []string) APIOption {
	return func(a *API) { a.suggest = fn }
}

// WithEvents mounts a websocket event stream at /events.
func WithEvents(h http.Handler) APIOption {
	return func(a *API) { a.events = h }
}

// WithCORS allows browsers on origins to read the API. Entries may be "*"
// or a wildcard subdomain such as "*.example.com".
func WithCORS(origins []string) APIOption {
	return func(a *API) { a.origins = origins }
}

// WithLogger sets the request logger
func WithLogger(logger *zap.Logger) APIOption {
	return func(a *API) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAPI creates the registry API.
func NewAPI(reg *registry.Registry, opts ...APIOption) *API {
	a := &API{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	a.registry.Store(reg)
	return a
}

// SetRegistry replaces the served registry.
func (a *API) SetRegistry(reg *registry.Registry) {
	a.registry.Store(reg)
}

// Registry returns the served registry.
func (a *API) Registry() *registry.Registry {
	return a.registry.Load()
}

// Routes builds the router.
func (a *API) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(a.requestLogger)
	r.Use(middleware.Recoverer)
	if len(a.origins) > 0 {
		r.Use(cors(a.origins))
	}

	r.Get("/health", a.health)
	r.Get("/registry", a.rawRegistry)
	r.Route("/endpoints", func(r chi.Router) {
		r.Get("/", a.listEndpoints)
		r.Get("/resolve", a.resolve)
	})
	if a.events != nil {
		r.Handle("/events", a.events)
	}
	return r
}

func (a *API) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		a.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

type entryJSON struct {
	Endpoint string `json:"endpoint"`
	registry.Record
}

type endpointsResponse struct {
	Count     int         `json:"count"`
	Endpoints []entryJSON `json:"endpoints"`
}

func (a *API) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"endpoints": a.Registry().Len(),
	})
}

// rawRegistry serves the registry file. Clients poll it with If-None-Match.
func (a *API) rawRegistry(w http.ResponseWriter, r *http.Request) {
	data, err := registry.Marshal(a.Registry())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	tag := etag(data)
	w.Header().Set("ETag", tag)
	if notModified(r, tag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// listEndpoints serves GET /endpoints?method=GET&prefix=/v0/market&with_model=true
func (a *API) listEndpoints(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := registry.Filter{
		Method: q.Get("method"),
		Prefix: q.Get("prefix"),
	}
	if v := q.Get("with_model"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("with_model must be a boolean: %w", err))
			return
		}
		filter.WithModel = b
	}

	entries := a.Registry().Entries(filter)
	resp := endpointsResponse{Count: len(entries), Endpoints: make([]entryJSON, len(entries))}
	for i, e := range entries {
		resp.Endpoints[i] = entryJSON{Endpoint: e.Endpoint, Record: e.Record}
	}
	writeJSON(w, http.StatusOK, resp)
}

type resolveResponse struct {
	Endpoint string   `json:"endpoint"`
	Method   string   `json:"method"`
	Params   []string `json:"params,omitempty"`
	registry.Record
}

// resolve serves GET /endpoints/resolve?path=/market/[contractId]&version=v0
func (a *API) resolve(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("path query parameter is required"))
		return
	}
	version := r.URL.Query().Get("version")
	if version == "" {
		version = endpoint.SupportedVersion
	}

	opts := []session.Option{session.WithAliases(a.aliases), session.WithLogger(a.logger)}
	if a.suggest != nil {
		opts = append(opts, session.WithSuggestions(a.suggest))
	}
	// Resolution only; no catalog, no dispatch.
	s, err := session.New(a.Registry(), nil, path, version, opts...)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	writeJSON(w, http.StatusOK, resolveResponse{
		Endpoint: s.Endpoint(),
		Method:   s.Method(),
		Params:   s.Params(),
		Record:   s.Record(),
	})
}

func statusFor(err error) int {
	switch {
	case stderrors.Is(err, mferrors.ErrUnresolvedEndpoint):
		return http.StatusNotFound
	case stderrors.Is(err, mferrors.ErrUnsupportedVersion):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	var mfErr *mferrors.Error
	if !stderrors.As(err, &mfErr) {
		mfErr = &mferrors.Error{Kind: mferrors.KindNotice, Message: err.Error()}
	}
	writeJSON(w, status, map[string]any{"error": mfErr})
}

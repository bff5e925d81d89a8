// Package registry holds the persisted endpoint registry: the mapping from a
// canonical endpoint path to its HTTP method and, once a schema artifact has
// been correlated and generated, the module locator and model identifier of
// its validation model.
//
// A Registry is built once (by the build pipeline, or by loading the registry
// file at startup) and never mutated afterwards, so it is safe to share
// between goroutines without locking.
package registry

import (
	"fmt"
	"sort"
	"strings"
)

// Record is the registry entry for one canonical endpoint.
type Record struct {
	Method          string `json:"method"`
	ModuleLocator   string `json:"module_locator,omitempty"`
	ModelIdentifier string `json:"model_identifier,omitempty"`
	// SchemaLocation is the schema artifact's path relative to the schema root.
	SchemaLocation string `json:"schema_location,omitempty"`
}

// HasModel reports whether a validation model was generated for the record.
func (r Record) HasModel() bool {
	return r.ModuleLocator != "" && r.ModelIdentifier != ""
}

// Validate checks the record's invariants: a method is present and the
// module locator and model identifier are set together or not at all.
func (r Record) Validate() error {
	if strings.TrimSpace(r.Method) == "" {
		return fmt.Errorf("method is required")
	}
	if (r.ModuleLocator == "") != (r.ModelIdentifier == "") {
		return fmt.Errorf("module_locator and model_identifier must be set together (got %q, %q)",
			r.ModuleLocator, r.ModelIdentifier)
	}
	return nil
}

// Entry pairs a record with its canonical endpoint.
type Entry struct {
	Endpoint string
	Record
}

// Filter narrows Entries queries. Zero fields do not filter.
type Filter struct {
	Method    string // exact HTTP method, case-insensitive
	Prefix    string // canonical path prefix
	WithModel bool   // only records with a generated model
}

// Registry is an immutable, indexed set of records.
type Registry struct {
	records  map[string]Record
	keys     []string
	byMethod map[string][]string
}

// New validates records and builds an immutable registry from a copy of them.
func New(records map[string]Record) (*Registry, error) {
	r := &Registry{
		records:  make(map[string]Record, len(records)),
		keys:     make([]string, 0, len(records)),
		byMethod: make(map[string][]string),
	}

	for endpoint, rec := range records {
		if !strings.HasPrefix(endpoint, "/") {
			return nil, fmt.Errorf("endpoint %q: must start with '/'", endpoint)
		}
		if err := rec.Validate(); err != nil {
			return nil, fmt.Errorf("endpoint %q: %w", endpoint, err)
		}
		rec.Method = strings.ToUpper(rec.Method)
		r.records[endpoint] = rec
		r.keys = append(r.keys, endpoint)
	}

	sort.Strings(r.keys)

	for _, endpoint := range r.keys {
		method := r.records[endpoint].Method
		r.byMethod[method] = append(r.byMethod[method], endpoint)
	}

	return r, nil
}

// Len returns the number of endpoints.
func (r *Registry) Len() int {
	return len(r.keys)
}

// Lookup returns the record for a canonical endpoint.
func (r *Registry) Lookup(endpoint string) (Record, bool) {
	rec, ok := r.records[endpoint]
	return rec, ok
}

// Endpoints returns all canonical endpoints in sorted order.
func (r *Registry) Endpoints() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// ByMethod returns the endpoints served with the given HTTP method.
func (r *Registry) ByMethod(method string) []string {
	endpoints := r.byMethod[strings.ToUpper(method)]
	out := make([]string, len(endpoints))
	copy(out, endpoints)
	return out
}

// Entries returns the entries matching f in endpoint order.
func (r *Registry) Entries(f Filter) []Entry {
	keys := r.keys
	if f.Method != "" {
		keys = r.byMethod[strings.ToUpper(f.Method)]
	}

	out := make([]Entry, 0, len(keys))
	for _, endpoint := range keys {
		rec := r.records[endpoint]
		if f.Prefix != "" && !strings.HasPrefix(endpoint, f.Prefix) {
			continue
		}
		if f.WithModel && !rec.HasModel() {
			continue
		}
		out = append(out, Entry{Endpoint: endpoint, Record: rec})
	}
	return out
}

// Records returns a copy of the underlying map.
func (r *Registry) Records() map[string]Record {
	out := make(map[string]Record, len(r.records))
	for k, v := range r.records {
		out[k] = v
	}
	return out
}

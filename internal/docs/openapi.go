package docs

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gomanifold/manifold/pkg/endpoint"
)

// OpenAPIGenerator generates an OpenAPI 3.0 skeleton: every path, method and
// path parameter, with request schemas referenced by their artifact location.
type OpenAPIGenerator struct {
	config *Config
}

// NewOpenAPIGenerator creates a new OpenAPI generator
func NewOpenAPIGenerator(config *Config) *OpenAPIGenerator {
	return &OpenAPIGenerator{
		config: config,
	}
}

// Generate writes openapi.json to the output directory.
func (g *OpenAPIGenerator) Generate(doc *Documentation) error {
	if containsPathTraversal(g.config.OutputDir) {
		return fmt.Errorf("invalid output directory: path traversal detected")
	}
	if err := os.MkdirAll(g.config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	data, err := json.MarshalIndent(g.createSpec(doc), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal OpenAPI spec: %w", err)
	}

	if err := os.WriteFile(filepath.Join(g.config.OutputDir, "openapi.json"), data, 0644); err != nil {
		return fmt.Errorf("failed to write OpenAPI spec: %w", err)
	}
	return nil
}

func (g *OpenAPIGenerator) createSpec(doc *Documentation) map[string]interface{} {
	spec := map[string]interface{}{
		"openapi": "3.0.3",
		"info": map[string]interface{}{
			"title":   doc.Title + " API",
			"version": doc.Version,
		},
		"paths": g.createPaths(doc.Groups),
	}
	if doc.BaseURL != "" {
		spec["servers"] = []map[string]interface{}{{"url": doc.BaseURL}}
	}
	return spec
}

func (g *OpenAPIGenerator) createPaths(groups []*GroupDoc) map[string]interface{} {
	paths := make(map[string]interface{})
	for _, group := range groups {
		for _, e := range group.Endpoints {
			paths[openAPIPath(e.Path)] = map[string]interface{}{
				strings.ToLower(e.Method): g.createOperation(e, group.Name),
			}
		}
	}
	return paths
}

func (g *OpenAPIGenerator) createOperation(e *EndpointDoc, group string) map[string]interface{} {
	operation := map[string]interface{}{
		"operationId": operationID(e),
		"tags":        []string{group},
		"responses": map[string]interface{}{
			"200": map[string]interface{}{"description": "Successful response"},
		},
	}

	if len(e.Params) > 0 {
		params := make([]map[string]interface{}, len(e.Params))
		for i, name := range e.Params {
			params[i] = map[string]interface{}{
				"name":     name,
				"in":       "path",
				"required": true,
				"schema":   map[string]interface{}{"type": "string"},
			}
		}
		operation["parameters"] = params
	}

	if e.HasModel() {
		operation["x-model"] = e.Module + "." + e.Model
		if e.Schema != "" && e.Method != http.MethodGet {
			operation["requestBody"] = map[string]interface{}{
				"required": true,
				"content": map[string]interface{}{
					"application/json": map[string]interface{}{
						"schema": map[string]interface{}{"$ref": e.Schema},
					},
				},
			}
		}
	}
	return operation
}

// openAPIPath rewrites [name] placeholders as {name}.
func openAPIPath(path string) string {
	segments := endpoint.Segments(path)
	for i, seg := range segments {
		if name, ok := endpoint.ParamName(seg); ok {
			segments[i] = "{" + name + "}"
		}
	}
	return "/" + strings.Join(segments, "/")
}

// operationID is the method followed by the path's segments in camel case:
// GET /v0/market/[marketId]/positions -> getMarketByMarketIdPositions.
func operationID(e *EndpointDoc) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(e.Method))

	_, rest, ok := endpoint.SplitVersion(e.Path)
	if !ok {
		rest = e.Path
	}
	for _, seg := range endpoint.Segments(rest) {
		if name, ok := endpoint.ParamName(seg); ok {
			b.WriteString("By")
			seg = name
		}
		for _, word := range strings.FieldsFunc(seg, func(r rune) bool { return r == '-' || r == '_' }) {
			b.WriteString(strings.ToUpper(word[:1]) + word[1:])
		}
	}
	return b.String()
}

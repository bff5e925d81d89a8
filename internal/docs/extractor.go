package docs

import (
	"sort"

	"github.com/gomanifold/manifold/pkg/endpoint"
	"github.com/gomanifold/manifold/pkg/registry"
)

// Extract arranges reg into groups. Groups are sorted by name; endpoints keep
// registry order within a group.
func Extract(reg *registry.Registry, config *Config) *Documentation {
	doc := &Documentation{
		Title:   config.ProjectName,
		BaseURL: config.BaseURL,
		Version: endpoint.SupportedVersion,
	}
	if doc.Title == "" {
		doc.Title = "Manifold"
	}

	groups := make(map[string]*GroupDoc)
	for _, e := range reg.Entries(registry.Filter{}) {
		doc.Total++
		if e.HasModel() {
			doc.WithModel++
		}

		name := groupName(e.Endpoint)
		g, ok := groups[name]
		if !ok {
			g = &GroupDoc{Name: name}
			groups[name] = g
			doc.Groups = append(doc.Groups, g)
		}
		g.Endpoints = append(g.Endpoints, &EndpointDoc{
			Method: e.Method,
			Path:   e.Endpoint,
			Params: endpoint.Params(e.Endpoint),
			Module: e.ModuleLocator,
			Model:  e.ModelIdentifier,
			Schema: e.SchemaLocation,
		})
	}

	sort.Slice(doc.Groups, func(i, j int) bool {
		return doc.Groups[i].Name < doc.Groups[j].Name
	})
	return doc
}

func groupName(path string) string {
	_, rest, ok := endpoint.SplitVersion(path)
	if !ok {
		rest = path
	}
	segments := endpoint.Segments(rest)
	if len(segments) == 0 {
		return "root"
	}
	if name, ok := endpoint.ParamName(segments[0]); ok {
		return name
	}
	return segments[0]
}

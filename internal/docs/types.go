// Package docs renders the endpoint registry as reference documentation:
// a markdown page and an OpenAPI 3.0 skeleton.
package docs

// Format is an output format
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatOpenAPI  Format = "openapi"
)

// Config configures documentation generation
type Config struct {
	// ProjectName titles the generated documents
	ProjectName string

	// BaseURL is the API host; the version prefix is part of each path.
	BaseURL string

	// OutputDir is the directory generated files are written to
	OutputDir string

	// Formats specifies which formats to generate
	Formats []Format
}

// Documentation is the registry arranged for rendering.
type Documentation struct {
	Title     string
	BaseURL   string
	Version   string
	Total     int
	WithModel int
	Groups    []*GroupDoc
}

// GroupDoc collects the endpoints that share a first path segment after the
// version ("market" for /v0/market/[marketId]).
type GroupDoc struct {
	Name      string
	Endpoints []*EndpointDoc
}

// EndpointDoc describes a single endpoint
type EndpointDoc struct {
	Method string
	Path   string
	Params []string
	Module string
	Model  string
	Schema string
}

// HasModel reports whether requests to the endpoint are validated.
func (e *EndpointDoc) HasModel() bool {
	return e.Model != ""
}

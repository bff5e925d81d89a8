// Package docparse extracts the endpoint list from the API's markdown
// documentation. An endpoint is declared by a level-3 heading whose first
// inline element is a code span of the form "METHOD /path"; headings whose
// remaining text reads "(deprecated)" are skipped.
package docparse

import (
	"bytes"
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"go.uber.org/zap"

	"github.com/gomanifold/manifold/pkg/endpoint"
	mferrors "github.com/gomanifold/manifold/pkg/errors"
)

const (
	endpointHeadingLevel = 3
	deprecatedMarker     = "deprecated"
)

var httpMethods = map[string]bool{
	"GET":     true,
	"POST":    true,
	"PUT":     true,
	"PATCH":   true,
	"DELETE":  true,
	"HEAD":    true,
	"OPTIONS": true,
}

// Endpoint is one documented endpoint.
type Endpoint struct {
	Method string
	Path   string // canonical form
	Line   int    // 1-based line of the heading
}

// Duplicate records a path declared by more than one heading. The later
// declaration wins in Result.Endpoints.
type Duplicate struct {
	Path     string
	Previous Endpoint
	Current  Endpoint
}

// Divergent reports whether the two declarations disagree on the method.
func (d Duplicate) Divergent() bool {
	return d.Previous.Method != d.Current.Method
}

// Result is the outcome of parsing one document.
type Result struct {
	Endpoints  map[string]Endpoint
	Duplicates []Duplicate
	Deprecated []string
}

// Parser extracts endpoints from markdown.
type Parser struct {
	version string
	logger  *zap.Logger
	md      goldmark.Markdown
}

// Option configures a Parser
type Option func(*Parser)

// WithVersion sets the version prefix used to canonicalise documented paths.
func WithVersion(version string) Option {
	return func(p *Parser) {
		p.version = version
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(p *Parser) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates a parser for the supported API version.
func New(opts ...Option) *Parser {
	p := &Parser{
		version: endpoint.SupportedVersion,
		logger:  zap.NewNop(),
		md:      goldmark.New(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseFile reads and parses the documentation at path. A missing or
// unreadable document is a SourceUnavailable error.
func (p *Parser) ParseFile(path string) (*Result, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, mferrors.NewDocsNotFound(path, err)
	}
	result := p.Parse(source)
	p.logger.Info("parsed documentation",
		zap.String("path", path),
		zap.Int("endpoints", len(result.Endpoints)),
		zap.Int("deprecated", len(result.Deprecated)),
		zap.Int("duplicates", len(result.Duplicates)),
	)
	return result, nil
}

// Parse extracts the endpoints declared in source.
func (p *Parser) Parse(source []byte) *Result {
	result := &Result{Endpoints: make(map[string]Endpoint)}
	doc := p.md.Parser().Parse(text.NewReader(source))

	// Endpoint headings are top-level blocks; no need to descend further.
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		heading, ok := node.(*ast.Heading)
		if !ok || heading.Level != endpointHeadingLevel {
			continue
		}

		ep, deprecated, ok := p.parseHeading(heading, source)
		if !ok {
			continue
		}
		if deprecated {
			p.logger.Debug("skipping deprecated endpoint", zap.String("path", ep.Path))
			result.Deprecated = append(result.Deprecated, ep.Path)
			continue
		}

		if prev, exists := result.Endpoints[ep.Path]; exists {
			p.logger.Warn("endpoint documented more than once",
				zap.String("path", ep.Path),
				zap.String("previous", prev.Method),
				zap.String("current", ep.Method),
			)
			result.Duplicates = append(result.Duplicates, Duplicate{Path: ep.Path, Previous: prev, Current: ep})
		}
		result.Endpoints[ep.Path] = ep
	}

	return result
}

// parseHeading returns the endpoint declared by heading, whether it is marked
// deprecated, and false when the heading does not declare an endpoint.
func (p *Parser) parseHeading(heading *ast.Heading, source []byte) (Endpoint, bool, bool) {
	first := heading.FirstChild()
	code, ok := first.(*ast.CodeSpan)
	if !ok {
		return Endpoint{}, false, false
	}

	fields := strings.Fields(inlineText(code, source))
	if len(fields) < 2 {
		return Endpoint{}, false, false
	}
	method := strings.ToUpper(fields[0])
	if !httpMethods[method] || !strings.HasPrefix(fields[1], "/") {
		return Endpoint{}, false, false
	}

	ep := Endpoint{
		Method: method,
		Path:   endpoint.Canonical(p.version, fields[1]),
		Line:   headingLine(heading, source),
	}

	var rest strings.Builder
	for n := code.NextSibling(); n != nil; n = n.NextSibling() {
		rest.WriteString(inlineText(n, source))
	}
	marker := strings.ToLower(strings.Trim(rest.String(), "() \t"))

	return ep, marker == deprecatedMarker, true
}

// inlineText concatenates the literal text below an inline node.
func inlineText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := node.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(source))
			if t.SoftLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

func headingLine(heading *ast.Heading, source []byte) int {
	lines := heading.Lines()
	if lines == nil || lines.Len() == 0 {
		return 0
	}
	return bytes.Count(source[:lines.At(0).Start], []byte("\n")) + 1
}

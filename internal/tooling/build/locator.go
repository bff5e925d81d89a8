package build

import (
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	mferrors "github.com/gomanifold/manifold/pkg/errors"
)

var (
	nonIdentChars = regexp.MustCompile(`[^A-Za-z0-9_]+`)
	underscoreRun = regexp.MustCompile(`_+`)
)

// reservedSegments would make a directory or file unusable as a Go package
// or source file: keywords, the main package, the directory names the go
// tool treats specially, and the package marker file's name.
var reservedSegments = map[string]bool{
	"break": true, "case": true, "chan": true, "const": true, "continue": true,
	"default": true, "defer": true, "else": true, "fallthrough": true, "for": true,
	"func": true, "go": true, "goto": true, "if": true, "import": true,
	"interface": true, "map": true, "package": true, "range": true, "return": true,
	"select": true, "struct": true, "switch": true, "type": true, "var": true,
	"main": true, "internal": true, "vendor": true, "testdata": true,
	"doc": true,
}

// Locator is where the generated model for one schema artifact lives.
type Locator struct {
	// Segments are the sanitized path segments; the last one names the file.
	Segments []string
	// ModuleLocator is the dotted module path recorded in the registry.
	ModuleLocator string
	// ModelIdentifier is the exported type name recorded in the registry.
	ModelIdentifier string
}

// Locate derives the module locator and model identifier for a schema
// artifact given its slash-separated path relative to the schema root.
// It is the single place where artifact names are turned into Go names.
func Locate(relPath string) (Locator, error) {
	rel := strings.TrimSuffix(relPath, path.Ext(relPath))
	raw := strings.Split(strings.Trim(rel, "/"), "/")

	segments := make([]string, 0, len(raw))
	for _, r := range raw {
		seg, err := sanitizeSegment(r)
		if err != nil {
			return Locator{}, mferrors.NewInvalidLocator(relPath, err.Error())
		}
		segments = append(segments, seg)
	}

	var ident strings.Builder
	for _, seg := range segments {
		for _, word := range strings.Split(seg, "_") {
			ident.WriteString(titleWord(word))
		}
	}

	return Locator{
		Segments:        segments,
		ModuleLocator:   strings.Join(segments, "."),
		ModelIdentifier: ident.String(),
	}, nil
}

func sanitizeSegment(raw string) (string, error) {
	seg := strings.TrimSuffix(strings.TrimPrefix(raw, "{"), "}")
	seg = nonIdentChars.ReplaceAllString(seg, "_")
	seg = underscoreRun.ReplaceAllString(seg, "_")
	seg = strings.Trim(seg, "_")
	seg = strings.ToLower(seg)

	if seg == "" {
		return "", fmt.Errorf("segment %q has no usable characters", raw)
	}
	if seg[0] >= '0' && seg[0] <= '9' {
		seg = "x" + seg
	}
	if reservedSegments[seg] || strings.HasSuffix(seg, "_test") {
		seg += "_"
	}
	return seg, nil
}

func titleWord(word string) string {
	if word == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(word)
	return string(unicode.ToUpper(r)) + strings.ToLower(word[size:])
}

// OutputFile is the generated Go file under modelsDir.
func (l Locator) OutputFile(modelsDir string) string {
	parts := append([]string{modelsDir}, l.Segments...)
	return filepath.Join(parts...) + ".go"
}

// PackageDirs lists modelsDir and every directory on the way to the output
// file, outermost first.
func (l Locator) PackageDirs(modelsDir string) []string {
	dirs := []string{modelsDir}
	dir := modelsDir
	for _, seg := range l.Segments[:len(l.Segments)-1] {
		dir = filepath.Join(dir, seg)
		dirs = append(dirs, dir)
	}
	return dirs
}

// Package is the Go package name of the output file.
func (l Locator) Package(rootPackage string) string {
	if len(l.Segments) < 2 {
		return rootPackage
	}
	return l.Segments[len(l.Segments)-2]
}

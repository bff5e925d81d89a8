// Package endpoint handles canonical endpoint paths: version prefixes,
// bracket-delimited path parameters, parameter substitution and the alias
// expansion used to reconcile documentation with schema-artifact names.
package endpoint

import (
	"net/url"
	"regexp"
	"strings"
)

// SupportedVersion is the only API version the registry is generated for.
const SupportedVersion = "v0"

var versionPattern = regexp.MustCompile(`^v[0-9]+$`)

// Canonical returns path in registry-key form: a single leading slash, the
// version as first segment and no empty or trailing segments. A version
// prefix already present on path is not repeated.
//
//	Canonical("v0", "v0/bet")  // "/v0/bet"
//	Canonical("v0", "/bet/")   // "/v0/bet"
func Canonical(version, path string) string {
	segments := Segments(path)
	if len(segments) > 0 && segments[0] == version {
		segments = segments[1:]
	}

	var b strings.Builder
	b.WriteString("/")
	b.WriteString(version)
	for _, seg := range segments {
		b.WriteString("/")
		b.WriteString(seg)
	}
	return b.String()
}

// Segments splits path on '/' and drops empty segments.
func Segments(path string) []string {
	parts := strings.Split(strings.TrimSpace(path), "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SplitVersion separates a leading version segment (v0, v1, ...) from the rest
// of the path. ok is false when the path carries no version segment.
func SplitVersion(path string) (version, rest string, ok bool) {
	segments := Segments(path)
	if len(segments) == 0 || !versionPattern.MatchString(segments[0]) {
		return "", "/" + strings.Join(segments, "/"), false
	}
	return segments[0], "/" + strings.Join(segments[1:], "/"), true
}

// ParamName returns the parameter name of a bracket-delimited segment.
func ParamName(segment string) (string, bool) {
	if len(segment) > 2 && strings.HasPrefix(segment, "[") && strings.HasSuffix(segment, "]") {
		name := segment[1 : len(segment)-1]
		if !strings.ContainsAny(name, "[]") {
			return name, true
		}
	}
	return "", false
}

// Params returns the parameter names of path in order of appearance.
func Params(path string) []string {
	var names []string
	for _, seg := range Segments(path) {
		if name, ok := ParamName(seg); ok {
			names = append(names, name)
		}
	}
	return names
}

// Substitute replaces every [name] segment that has a value in values with
// the path-escaped value. Segments without a value, or with an empty one, are
// left untouched; use Params on the result to find them.
func Substitute(path string, values map[string]string) string {
	if len(values) == 0 {
		return path
	}

	parts := strings.Split(path, "/")
	for i, seg := range parts {
		name, ok := ParamName(seg)
		if !ok {
			continue
		}
		if v := values[name]; v != "" {
			parts[i] = url.PathEscape(v)
		}
	}
	return strings.Join(parts, "/")
}

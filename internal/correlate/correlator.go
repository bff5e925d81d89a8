// Package correlate matches schema artifacts to documented endpoints.
//
// Each artifact's location below the schema root encodes a candidate endpoint
// (directories are path segments, {name} segments are parameters, the file
// stem is the last segment). Candidates are looked up in an Index of every
// alias spelling of the documented endpoints. Unmatched artifacts are
// reported and skipped; two artifacts claiming the same endpoint are a
// conflict and that endpoint is excluded from the registry.
package correlate

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/gomanifold/manifold/pkg/endpoint"
	mferrors "github.com/gomanifold/manifold/pkg/errors"
)

// DefaultExtension is the schema artifact file extension.
const DefaultExtension = ".json"

// DefaultExclude lists infrastructure files that are never endpoints.
var DefaultExclude = []string{"__init__.*", ".*"}

// Artifact is one schema file.
type Artifact struct {
	Path      string // filesystem path
	RelPath   string // slash-separated path relative to the schema root
	Candidate string // canonical endpoint derived from RelPath
}

// Match is an artifact correlated to a documented endpoint.
type Match struct {
	Endpoint string
	Method   string
	Artifact Artifact
}

// Result is the outcome of one correlation run.
type Result struct {
	Matches map[string]Match
	// Unmatched artifacts have no documented endpoint.
	Unmatched []Artifact
	// Conflicted endpoints were claimed by more than one artifact and must
	// not appear in the registry.
	Conflicted []string
	Issues     mferrors.List
}

// Options configures a Correlator
type Options struct {
	Version   string
	Aliases   *endpoint.AliasSet
	Extension string
	Exclude   []string
	Logger    *zap.Logger
}

// Correlator walks a schema tree and matches it against documented endpoints.
type Correlator struct {
	version   string
	aliases   *endpoint.AliasSet
	extension string
	exclude   []string
	logger    *zap.Logger
}

// New creates a correlator
func New(opts Options) *Correlator {
	c := &Correlator{
		version:   opts.Version,
		aliases:   opts.Aliases,
		extension: opts.Extension,
		exclude:   append(append([]string{}, DefaultExclude...), opts.Exclude...),
		logger:    opts.Logger,
	}
	if c.version == "" {
		c.version = endpoint.SupportedVersion
	}
	if c.extension == "" {
		c.extension = DefaultExtension
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c
}

// Candidate converts an artifact path relative to the schema root into the
// canonical endpoint it describes: "market/{id}/positions.json" becomes
// "/v0/market/[id]/positions".
func Candidate(version, relPath, extension string) string {
	trimmed := strings.TrimSuffix(filepath.ToSlash(relPath), extension)
	segments := strings.Split(trimmed, "/")
	for i, seg := range segments {
		if len(seg) > 2 && strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			segments[i] = "[" + seg[1:len(seg)-1] + "]"
		}
	}
	return endpoint.Canonical(version, strings.Join(segments, "/"))
}

// Discover lists the schema artifacts below root in lexical order, skipping
// excluded infrastructure files and hidden directories. A missing root is a
// SourceUnavailable error.
func (c *Correlator) Discover(root string) ([]Artifact, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, mferrors.NewSchemasNotFound(root, err)
	}
	if !info.IsDir() {
		return nil, mferrors.NewSchemasNotFound(root, fs.ErrInvalid)
	}

	var artifacts []Artifact
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if filepath.Ext(path) != c.extension || c.excluded(d.Name()) {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		artifacts = append(artifacts, Artifact{
			Path:      path,
			RelPath:   rel,
			Candidate: Candidate(c.version, rel, c.extension),
		})
		return nil
	})
	if err != nil {
		return nil, mferrors.NewSchemasNotFound(root, err)
	}

	return artifacts, nil
}

func (c *Correlator) excluded(name string) bool {
	for _, pattern := range c.exclude {
		if matched, _ := filepath.Match(pattern, name); matched {
			return true
		}
	}
	return false
}

// Correlate matches the artifacts below root to documented, a map from
// canonical endpoint to HTTP method.
func (c *Correlator) Correlate(root string, documented map[string]string) (*Result, error) {
	artifacts, err := c.Discover(root)
	if err != nil {
		return nil, err
	}
	return c.Match(artifacts, documented), nil
}

// Match correlates already discovered artifacts.
func (c *Correlator) Match(artifacts []Artifact, documented map[string]string) *Result {
	endpoints := make([]string, 0, len(documented))
	for ep := range documented {
		endpoints = append(endpoints, ep)
	}
	idx := NewIndex(endpoints, c.aliases)

	result := &Result{Matches: make(map[string]Match)}
	conflicted := make(map[string]bool)

	for _, a := range artifacts {
		canonical, owners, ok := idx.Lookup(a.Candidate)
		if len(owners) > 0 {
			c.logger.Warn("ambiguous schema artifact",
				zap.String("artifact", a.RelPath),
				zap.Strings("endpoints", owners),
			)
			result.Issues = append(result.Issues,
				mferrors.NewAmbiguousAlias(a.Candidate, owners).WithArtifact(a.RelPath))
			result.Unmatched = append(result.Unmatched, a)
			continue
		}
		if !ok {
			c.logger.Info("no documented endpoint for schema artifact",
				zap.String("artifact", a.RelPath),
				zap.String("candidate", a.Candidate),
			)
			result.Issues = append(result.Issues, mferrors.NewUnmatchedArtifact(a.RelPath, a.Candidate))
			result.Unmatched = append(result.Unmatched, a)
			continue
		}

		if prev, exists := result.Matches[canonical]; exists || conflicted[canonical] {
			first := prev.Artifact.RelPath
			if !exists {
				first = "an earlier artifact"
			}
			c.logger.Error("schema artifacts conflict",
				zap.String("endpoint", canonical),
				zap.String("first", first),
				zap.String("second", a.RelPath),
			)
			result.Issues = append(result.Issues, mferrors.NewDuplicateArtifact(canonical, first, a.RelPath))
			conflicted[canonical] = true
			delete(result.Matches, canonical)
			continue
		}

		c.logger.Debug("correlated schema artifact",
			zap.String("artifact", a.RelPath),
			zap.String("endpoint", canonical),
		)
		result.Matches[canonical] = Match{
			Endpoint: canonical,
			Method:   documented[canonical],
			Artifact: a,
		}
	}

	for ep := range conflicted {
		result.Conflicted = append(result.Conflicted, ep)
	}
	sort.Strings(result.Conflicted)

	return result
}

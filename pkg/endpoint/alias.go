package endpoint

import (
	"fmt"
	"sort"
	"strings"
)

// AliasSet records groups of interchangeable path-parameter names. Every
// member of a group may stand in for every other member, so a documented
// [contractId] matches a schema artifact named {id} when both are grouped.
// Aliases are purely declarative; nothing is inferred.
type AliasSet struct {
	groups map[string][]string
}

// DefaultAliases is the alias table used when configuration provides none.
// The Manifold API spells the market identifier three ways.
func DefaultAliases() [][]string {
	return [][]string{
		{"id", "marketId", "contractId"},
	}
}

// NewAliasSet builds an AliasSet from groups of names. A name listed in two
// different groups is rejected because expansion would no longer be symmetric.
func NewAliasSet(groups [][]string) (*AliasSet, error) {
	set := &AliasSet{groups: make(map[string][]string)}

	for i, group := range groups {
		members := make([]string, 0, len(group))
		seen := make(map[string]bool)
		for _, name := range group {
			name = strings.TrimSpace(name)
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			members = append(members, name)
		}

		for _, name := range members {
			if _, exists := set.groups[name]; exists {
				return nil, fmt.Errorf("alias %q appears in more than one group (group %d)", name, i+1)
			}
			set.groups[name] = members
		}
	}

	return set, nil
}

// Aliases returns every spelling of name, name itself included.
func (a *AliasSet) Aliases(name string) []string {
	if a != nil {
		if group, ok := a.groups[name]; ok {
			out := make([]string, len(group))
			copy(out, group)
			return out
		}
	}
	return []string{name}
}

// Len returns the number of names known to the set.
func (a *AliasSet) Len() int {
	if a == nil {
		return 0
	}
	return len(a.groups)
}

// Expand returns every spelling of path obtained by substituting each
// parameter occurrence, independently, with each of its aliases. The result
// is the full cross product, always contains path itself (for a path without
// empty segments), has no duplicates and is sorted.
func (a *AliasSet) Expand(path string) []string {
	leading := strings.HasPrefix(path, "/")
	segments := Segments(path)

	variants := [][]string{{}}
	for _, seg := range segments {
		options := []string{seg}
		if name, ok := ParamName(seg); ok {
			aliases := a.Aliases(name)
			options = make([]string, len(aliases))
			for i, alias := range aliases {
				options[i] = "[" + alias + "]"
			}
		}

		next := make([][]string, 0, len(variants)*len(options))
		for _, prefix := range variants {
			for _, opt := range options {
				v := make([]string, len(prefix), len(prefix)+1)
				copy(v, prefix)
				next = append(next, append(v, opt))
			}
		}
		variants = next
	}

	unique := make(map[string]struct{}, len(variants))
	for _, v := range variants {
		joined := strings.Join(v, "/")
		if leading {
			joined = "/" + joined
		}
		unique[joined] = struct{}{}
	}

	out := make([]string, 0, len(unique))
	for p := range unique {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

package ui

import (
	"sort"
	"strings"

	"github.com/gomanifold/manifold/pkg/endpoint"
)

const (
	// DefaultMaxDistance is the default maximum edit distance to consider for fuzzy matching
	DefaultMaxDistance = 3
	// DefaultMaxSuggestions is the default maximum number of suggestions to return
	DefaultMaxSuggestions = 3
)

// FuzzyMatchOptions configures fuzzy matching behavior
type FuzzyMatchOptions struct {
	MaxDistance    int  // Maximum Levenshtein distance to consider (default: 3)
	MaxSuggestions int  // Maximum number of suggestions to return (default: 3)
	CaseSensitive  bool // Whether matching is case-sensitive (default: false)
}

type suggestion struct {
	value    string
	distance int
}

// FindSimilar returns the candidates within MaxDistance edits of target,
// closest first. Ties keep lexical order so output is stable.
//
// Example:
//
//	FindSimilar("/v0/usr", []string{"/v0/user", "/v0/users", "/v0/me"}, nil)
//	// Returns: ["/v0/user", "/v0/users"]
func FindSimilar(target string, candidates []string, opts *FuzzyMatchOptions) []string {
	o := FuzzyMatchOptions{}
	if opts != nil {
		o = *opts
	}
	if o.MaxDistance == 0 {
		o.MaxDistance = DefaultMaxDistance
	}
	if o.MaxSuggestions == 0 {
		o.MaxSuggestions = DefaultMaxSuggestions
	}

	if !o.CaseSensitive {
		target = strings.ToLower(target)
	}

	var matches []suggestion
	for _, candidate := range candidates {
		cmp := candidate
		if !o.CaseSensitive {
			cmp = strings.ToLower(candidate)
		}
		if dist := LevenshteinDistance(target, cmp); dist <= o.MaxDistance {
			matches = append(matches, suggestion{value: candidate, distance: dist})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].distance != matches[j].distance {
			return matches[i].distance < matches[j].distance
		}
		return matches[i].value < matches[j].value
	})

	result := make([]string, 0, o.MaxSuggestions)
	for i := 0; i < len(matches) && i < o.MaxSuggestions; i++ {
		result = append(result, matches[i].value)
	}
	return result
}

// LevenshteinDistance returns the minimum number of single-rune insertions,
// deletions or substitutions that turn s1 into s2.
func LevenshteinDistance(s1, s2 string) int {
	a, b := []rune(s1), []rune(s2)
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}

// SuggestEndpoints proposes registered endpoints for an unresolved one.
// Parameter names are masked before comparing so "/v0/market/[marketId]"
// is close to "/v0/market/[id]"; the allowed distance grows with the path.
func SuggestEndpoints(target string, endpoints []string) []string {
	masked := make([]string, len(endpoints))
	original := make(map[string][]string, len(endpoints))
	for i, ep := range endpoints {
		masked[i] = maskParams(ep)
		original[masked[i]] = append(original[masked[i]], ep)
	}

	maxDistance := len(target) / 5
	if maxDistance < DefaultMaxDistance {
		maxDistance = DefaultMaxDistance
	}

	var out []string
	seen := make(map[string]bool)
	for _, m := range FindSimilar(maskParams(target), masked, &FuzzyMatchOptions{MaxDistance: maxDistance}) {
		for _, ep := range original[m] {
			if !seen[ep] {
				seen[ep] = true
				out = append(out, ep)
			}
		}
	}
	if len(out) > DefaultMaxSuggestions {
		out = out[:DefaultMaxSuggestions]
	}
	return out
}

func maskParams(path string) string {
	segments := endpoint.Segments(path)
	for i, seg := range segments {
		if _, ok := endpoint.ParamName(seg); ok {
			segments[i] = "[]"
		}
	}
	joined := strings.Join(segments, "/")
	if strings.HasPrefix(path, "/") {
		return "/" + joined
	}
	return joined
}

package correlate

import (
	"sort"

	"github.com/gomanifold/manifold/pkg/endpoint"
)

// Index maps every alias spelling of the documented endpoints back to the
// canonical endpoint that produced it.
type Index struct {
	variations map[string]string
	ambiguous  map[string][]string
}

// NewIndex expands each documented endpoint with aliases and records the
// reverse mapping. A documented path always maps to itself, even when it is
// also an alias spelling of another documented path. A spelling produced by
// two different endpoints is ambiguous and is not mapped at all.
func NewIndex(endpoints []string, aliases *endpoint.AliasSet) *Index {
	idx := &Index{
		variations: make(map[string]string),
		ambiguous:  make(map[string][]string),
	}

	sorted := make([]string, len(endpoints))
	copy(sorted, endpoints)
	sort.Strings(sorted)

	documented := make(map[string]bool, len(sorted))
	for _, ep := range sorted {
		documented[ep] = true
		idx.variations[ep] = ep
	}

	for _, ep := range sorted {
		for _, variation := range aliases.Expand(ep) {
			if documented[variation] {
				continue
			}
			if owners, isAmbiguous := idx.ambiguous[variation]; isAmbiguous {
				idx.ambiguous[variation] = append(owners, ep)
				continue
			}
			if owner, exists := idx.variations[variation]; exists && owner != ep {
				idx.ambiguous[variation] = []string{owner, ep}
				delete(idx.variations, variation)
				continue
			}
			idx.variations[variation] = ep
		}
	}

	return idx
}

// Lookup returns the canonical endpoint for a candidate path. When the
// candidate is ambiguous, ok is false and owners lists the endpoints it could
// belong to.
func (idx *Index) Lookup(candidate string) (canonical string, owners []string, ok bool) {
	if owners, isAmbiguous := idx.ambiguous[candidate]; isAmbiguous {
		out := make([]string, len(owners))
		copy(out, owners)
		return "", out, false
	}
	canonical, ok = idx.variations[candidate]
	return canonical, nil, ok
}

// Len returns the number of mapped spellings.
func (idx *Index) Len() int {
	return len(idx.variations)
}

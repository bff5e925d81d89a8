package docs

import "strings"

// containsPathTraversal reports whether path has a ".." component.
func containsPathTraversal(path string) bool {
	parts := strings.FieldsFunc(path, func(r rune) bool { return r == '/' || r == '\\' })
	for _, part := range parts {
		if part == ".." {
			return true
		}
	}
	return false
}

package build

import (
	"encoding/json"
	"time"

	mferrors "github.com/gomanifold/manifold/pkg/errors"
)

// Report summarizes a build run. Every non-fatal problem ends up in Issues;
// fatal ones are returned from Build instead.
type Report struct {
	RegistryPath string        `json:"registry_path"`
	Documented   int           `json:"documented"`
	Deprecated   []string      `json:"deprecated,omitempty"`
	Matched      int           `json:"matched"`
	Generated    int           `json:"generated"`
	Cached       int           `json:"cached"`
	Failed       int           `json:"failed"`
	Registered   int           `json:"registered"`
	WithModel    int           `json:"with_model"`
	Unmatched    []string      `json:"unmatched,omitempty"`
	Excluded     []string      `json:"excluded,omitempty"`
	Issues       mferrors.List `json:"issues,omitempty"`
	Duration     time.Duration `json:"duration_ns"`
}

// Add appends issues to the report.
func (r *Report) Add(issues ...*mferrors.Error) {
	r.Issues = append(r.Issues, issues...)
}

// HasErrors reports whether any issue has error severity.
func (r *Report) HasErrors() bool {
	return r.Issues.HasErrors()
}

// ToJSON renders the report for --json output.
func (r *Report) ToJSON() (string, error) {
	bytes, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/gomanifold/manifold/internal/tooling/build"
	mferrors "github.com/gomanifold/manifold/pkg/errors"
)

func sampleReport() *build.Report {
	r := &build.Report{
		RegistryPath: "endpoints.json",
		Documented:   5,
		Deprecated:   []string{"/v0/old"},
		Matched:      3,
		Generated:    2,
		Cached:       1,
		Registered:   5,
		WithModel:    3,
		Unmatched:    []string{"stray.json"},
		Duration:     1234 * time.Millisecond,
	}
	r.Add(
		mferrors.NewUnmatchedArtifact("stray.json", "/v0/stray"),
		mferrors.NewDuplicateHeading("/v0/me", "GET"),
	)
	return r
}

func TestWriteReport(t *testing.T) {
	var buf bytes.Buffer
	WriteReport(&buf, sampleReport(), ReportOptions{NoColor: true})
	out := buf.String()

	assert.Contains(t, out, "Registry build")
	assert.Contains(t, out, "endpoints.json")
	assert.Contains(t, out, "1 skipped")
	assert.Contains(t, out, "2 (1 cached)")
	assert.Contains(t, out, "5 (3 with model)")
	assert.Contains(t, out, "1.234s")
	assert.Contains(t, out, "COR203")
	assert.Contains(t, out, "✓ Registry written with 1 warning(s)")

	assert.NotContains(t, out, "COR205", "info issues are hidden without verbose")
	assert.NotContains(t, out, "Unmatched artifacts")
	assert.NotContains(t, out, "Failed")
}

func TestWriteReportVerbose(t *testing.T) {
	var buf bytes.Buffer
	WriteReport(&buf, sampleReport(), ReportOptions{NoColor: true, Verbose: true})
	out := buf.String()

	assert.Contains(t, out, "Unmatched artifacts (1):\n  stray.json")
	assert.Contains(t, out, "COR205")
}

func TestWriteReportWithErrors(t *testing.T) {
	r := sampleReport()
	r.Failed = 1
	r.Excluded = []string{"/v0/bet"}
	r.Add(mferrors.NewDivergentMethod("/v0/bet", "GET", "POST"))

	var buf bytes.Buffer
	WriteReport(&buf, r, ReportOptions{NoColor: true})
	out := buf.String()

	assert.Contains(t, out, "Failed:")
	assert.Contains(t, out, "/v0/bet")
	assert.True(t, strings.Contains(out, "Registry written with 1 error(s) and 1 warning(s)"))
}

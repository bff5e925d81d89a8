package ui

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gomanifold/manifold/internal/tooling/build"
	mferrors "github.com/gomanifold/manifold/pkg/errors"
)

// ReportOptions controls how much of a build report is printed.
type ReportOptions struct {
	NoColor bool
	// Verbose also lists unmatched artifacts and informational issues.
	Verbose bool
}

// WriteReport prints a human-readable build summary.
func WriteReport(w io.Writer, report *build.Report, opts ReportOptions) {
	Header(w, "Registry build", opts.NoColor)

	kv := NewKeyValueTable(w, opts.NoColor)
	kv.AddRow("Registry", report.RegistryPath)
	kv.AddRow("Documented", strconv.Itoa(report.Documented))
	if n := len(report.Deprecated); n > 0 {
		kv.AddRow("Deprecated", fmt.Sprintf("%d skipped", n))
	}
	kv.AddRow("Correlated", strconv.Itoa(report.Matched))
	kv.AddRow("Generated", fmt.Sprintf("%d (%d cached)", report.Generated, report.Cached))
	if report.Failed > 0 {
		kv.AddRow("Failed", strconv.Itoa(report.Failed))
	}
	kv.AddRow("Registered", fmt.Sprintf("%d (%d with model)", report.Registered, report.WithModel))
	if n := len(report.Excluded); n > 0 {
		kv.AddRow("Excluded", strings.Join(report.Excluded, ", "))
	}
	kv.AddRow("Duration", report.Duration.Round(time.Millisecond).String())
	kv.Render()

	if opts.Verbose && len(report.Unmatched) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Unmatched artifacts (%d):\n", len(report.Unmatched))
		for _, a := range report.Unmatched {
			fmt.Fprintf(w, "  %s\n", a)
		}
	}

	issues := report.Issues
	if !opts.Verbose {
		issues = issues[:0:0]
		for _, issue := range report.Issues {
			if issue.Severity != mferrors.SeverityInfo {
				issues = append(issues, issue)
			}
		}
	}
	if len(issues) > 0 {
		fmt.Fprintln(w)
		WriteIssues(w, issues, opts.NoColor)
	}

	errs, warnings, _ := report.Issues.Count()
	fmt.Fprintln(w)
	switch {
	case errs > 0:
		WriteError(w, ErrorOptions{
			Level:   ErrorLevelWarning,
			Problem: fmt.Sprintf("Registry written with %d error(s) and %d warning(s)", errs, warnings),
			NoColor: opts.NoColor,
		})
	case warnings > 0:
		WriteSuccess(w, fmt.Sprintf("Registry written with %d warning(s)", warnings), opts.NoColor)
	default:
		WriteSuccess(w, "Registry written", opts.NoColor)
	}
}

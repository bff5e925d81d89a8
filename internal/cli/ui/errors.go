package ui

import (
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	mferrors "github.com/gomanifold/manifold/pkg/errors"
)

// ErrorLevel represents the severity of an error message
type ErrorLevel int

const (
	ErrorLevelError ErrorLevel = iota
	ErrorLevelWarning
	ErrorLevelInfo
)

// ErrorOptions configures the error message formatting
type ErrorOptions struct {
	Level        ErrorLevel
	Context      string
	Problem      string
	Detail       string
	Consequence  string
	Suggestions  []string
	HelpCommands []string
	NoColor      bool
}

// FormatError creates a standardized error message with suggestions and help commands
//
// Example output:
//
//	❌ ENDPOINT NOT FOUND: /v0/usr/[username]
//	   Cannot resolve endpoint '/v0/usr/[username]'.
//
//	   Did you mean: /v0/user/[username]?
//
//	   → See all endpoints: manifold endpoints
func FormatError(opts ErrorOptions) string {
	var b strings.Builder

	headerColor, bodyColor, symbol := levelStyle(opts.Level)
	if opts.NoColor {
		headerColor.DisableColor()
		bodyColor.DisableColor()
	}

	if opts.Context != "" {
		headerColor.Fprintf(&b, "%s %s: %s\n", symbol, strings.ToUpper(opts.Context), opts.Problem)
	} else {
		headerColor.Fprintf(&b, "%s %s\n", symbol, opts.Problem)
	}

	if opts.Detail != "" {
		for _, line := range strings.Split(strings.TrimRight(opts.Detail, "\n"), "\n") {
			bodyColor.Fprintf(&b, "   %s\n", line)
		}
	}

	if opts.Consequence != "" {
		b.WriteString("\n")
		bodyColor.Fprintf(&b, "   %s\n", opts.Consequence)
	}

	if len(opts.Suggestions) > 0 {
		b.WriteString("\n")
		yellow := color.New(color.FgYellow)
		if opts.NoColor {
			yellow.DisableColor()
		}
		yellow.Fprintf(&b, "   Did you mean: %s?\n", strings.Join(opts.Suggestions, ", "))
	}

	if len(opts.HelpCommands) > 0 {
		b.WriteString("\n")
		cyan := color.New(color.FgCyan)
		if opts.NoColor {
			cyan.DisableColor()
		}
		for _, cmd := range opts.HelpCommands {
			cyan.Fprintf(&b, "   → %s\n", cmd)
		}
	}

	return b.String()
}

func levelStyle(level ErrorLevel) (header, body *color.Color, symbol string) {
	switch level {
	case ErrorLevelWarning:
		return color.New(color.FgYellow, color.Bold), color.New(color.FgYellow), "⚠️"
	case ErrorLevelInfo:
		return color.New(color.FgCyan, color.Bold), color.New(color.FgCyan), "ℹ️"
	default:
		return color.New(color.FgRed, color.Bold), color.New(color.FgRed), "❌"
	}
}

// WriteError writes a formatted error message to the writer
func WriteError(w io.Writer, opts ErrorOptions) {
	fmt.Fprint(w, FormatError(opts))
}

// FormatSuccess creates a success message
func FormatSuccess(message string, noColor bool) string {
	green := color.New(color.FgGreen, color.Bold)
	if noColor {
		green.DisableColor()
	}
	return green.Sprintf("✓ %s", message)
}

// WriteSuccess writes a success message to the writer
func WriteSuccess(w io.Writer, message string, noColor bool) {
	fmt.Fprintln(w, FormatSuccess(message, noColor))
}

// EndpointNotFoundError reports an endpoint that is not in the registry.
func EndpointNotFoundError(endpoint string, suggestions []string, noColor bool) string {
	return FormatError(ErrorOptions{
		Level:       ErrorLevelError,
		Context:     "ENDPOINT NOT FOUND",
		Problem:     endpoint,
		Detail:      fmt.Sprintf("Cannot resolve endpoint '%s'.", endpoint),
		Suggestions: suggestions,
		HelpCommands: []string{
			"See all endpoints: manifold endpoints",
			"Rebuild the registry: manifold build",
		},
		NoColor: noColor,
	})
}

// BuildError reports a build that could not produce a registry.
func BuildError(message string, suggestions []string, noColor bool) string {
	return FormatError(ErrorOptions{
		Level:       ErrorLevelError,
		Context:     "BUILD FAILED",
		Problem:     message,
		Suggestions: suggestions,
		HelpCommands: []string{
			"Refresh sources: manifold fetch",
			"Get help: manifold build --help",
		},
		NoColor: noColor,
	})
}

// ConfigError creates a standardized configuration error
func ConfigError(message string, suggestions []string, noColor bool) string {
	return FormatError(ErrorOptions{
		Level:       ErrorLevelError,
		Context:     "CONFIGURATION ERROR",
		Problem:     message,
		Suggestions: suggestions,
		HelpCommands: []string{
			"View config: cat manifold.yml",
			"Create a config: manifold init",
		},
		NoColor: noColor,
	})
}

// Warning creates a standardized warning message
func Warning(message string, suggestions []string, noColor bool) string {
	return FormatError(ErrorOptions{
		Level:       ErrorLevelWarning,
		Problem:     message,
		Suggestions: suggestions,
		NoColor:     noColor,
	})
}

// Info creates a standardized info message
func Info(message string, noColor bool) string {
	return FormatError(ErrorOptions{
		Level:   ErrorLevelInfo,
		Problem: message,
		NoColor: noColor,
	})
}

// FormatIssue renders a structured error. Errors that are not *mferrors.Error
// are shown as plain build failures.
func FormatIssue(err error, noColor bool) string {
	var mfErr *mferrors.Error
	if !stderrors.As(err, &mfErr) {
		return FormatError(ErrorOptions{Level: ErrorLevelError, Problem: err.Error(), NoColor: noColor})
	}

	opts := ErrorOptions{
		Level:       severityLevel(mfErr.Severity),
		Context:     string(mfErr.Code),
		Problem:     mfErr.Message,
		Suggestions: mfErr.Suggestions,
		NoColor:     noColor,
	}

	var detail []string
	if mfErr.Endpoint != "" {
		detail = append(detail, "endpoint: "+mfErr.Endpoint)
	}
	if mfErr.Artifact != "" {
		detail = append(detail, "artifact: "+mfErr.Artifact)
	}
	if mfErr.Err != nil {
		detail = append(detail, "cause: "+mfErr.Err.Error())
	}
	if out := strings.TrimSpace(mfErr.Output); out != "" {
		detail = append(detail, strings.Split(out, "\n")...)
	}
	opts.Detail = strings.Join(detail, "\n")

	if mfErr.Suggestion != "" {
		opts.HelpCommands = []string{mfErr.Suggestion}
	}
	return FormatError(opts)
}

// WriteIssues writes every issue in the list, most severe first.
func WriteIssues(w io.Writer, issues mferrors.List, noColor bool) {
	for _, severity := range []mferrors.Severity{mferrors.SeverityError, mferrors.SeverityWarning, mferrors.SeverityInfo} {
		for _, issue := range issues {
			if issue.Severity == severity || (severity == mferrors.SeverityError && issue.Severity == "") {
				fmt.Fprint(w, FormatIssue(issue, noColor))
			}
		}
	}
}

func severityLevel(s mferrors.Severity) ErrorLevel {
	switch s {
	case mferrors.SeverityWarning:
		return ErrorLevelWarning
	case mferrors.SeverityInfo:
		return ErrorLevelInfo
	default:
		return ErrorLevelError
	}
}

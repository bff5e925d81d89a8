// Package errors provides the structured errors shared by the registry build
// pipeline and the runtime session. Every failure carries a Kind (used for
// errors.Is matching against the sentinel values below), a stable Code, a
// Severity and optional context such as the endpoint or artifact involved.
package errors

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Kind classifies an error independently of its specific code.
type Kind string

const (
	KindSourceUnavailable      Kind = "source_unavailable"
	KindCorrelationConflict    Kind = "correlation_conflict"
	KindGenerationFailure      Kind = "generation_failure"
	KindUnresolvedEndpoint     Kind = "unresolved_endpoint"
	KindUnsupportedVersion     Kind = "unsupported_version"
	KindUnsubstitutedParameter Kind = "unsubstituted_parameter"
	KindInvalidPayload         Kind = "invalid_payload"
	KindConfiguration          Kind = "configuration"
	KindToolNotFound           Kind = "tool_not_found"
	KindToolFailed             Kind = "tool_failed"
	KindToolTimeout            Kind = "tool_timeout"
	// KindNotice is used for informational diagnostics that are not failures.
	KindNotice Kind = "notice"
)

// Severity indicates how a diagnostic affects the run.
type Severity string

const (
	// SeverityError marks a failure that aborts the run or drops a record
	SeverityError Severity = "error"
	// SeverityWarning marks a recoverable problem worth fixing
	SeverityWarning Severity = "warning"
	// SeverityInfo marks an informational note
	SeverityInfo Severity = "info"
)

// Sentinel values for errors.Is. They match any *Error of the same Kind.
var (
	ErrSourceUnavailable      = &Error{Kind: KindSourceUnavailable}
	ErrCorrelationConflict    = &Error{Kind: KindCorrelationConflict}
	ErrGenerationFailure      = &Error{Kind: KindGenerationFailure}
	ErrUnresolvedEndpoint     = &Error{Kind: KindUnresolvedEndpoint}
	ErrUnsupportedVersion     = &Error{Kind: KindUnsupportedVersion}
	ErrUnsubstitutedParameter = &Error{Kind: KindUnsubstitutedParameter}
	ErrInvalidPayload         = &Error{Kind: KindInvalidPayload}
	ErrConfiguration          = &Error{Kind: KindConfiguration}
	ErrToolNotFound           = &Error{Kind: KindToolNotFound}
	ErrToolFailed             = &Error{Kind: KindToolFailed}
	ErrToolTimeout            = &Error{Kind: KindToolTimeout}
)

// Error is a structured failure or diagnostic.
type Error struct {
	Code        ErrorCode `json:"code,omitempty"`
	Kind        Kind      `json:"kind"`
	Severity    Severity  `json:"severity,omitempty"`
	Message     string    `json:"message"`
	Endpoint    string    `json:"endpoint,omitempty"`
	Artifact    string    `json:"artifact,omitempty"`
	Suggestion  string    `json:"suggestion,omitempty"`
	Suggestions []string  `json:"suggestions,omitempty"`
	// Output holds captured stdout/stderr of an external tool.
	Output string `json:"output,omitempty"`
	Err    error  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder
	if e.Code != "" {
		fmt.Fprintf(&b, "[%s] ", e.Code)
	}
	if e.Message != "" {
		b.WriteString(e.Message)
	} else {
		b.WriteString(string(e.Kind))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if len(e.Suggestions) > 0 {
		fmt.Fprintf(&b, " (did you mean: %s?)", strings.Join(e.Suggestions, ", "))
	}
	return b.String()
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a sentinel or error of the same kind. A target
// with a Code only matches errors carrying that code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// ToJSON renders the error for machine consumption
func (e *Error) ToJSON() (string, error) {
	bytes, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// WithEndpoint sets the endpoint the error relates to
func (e *Error) WithEndpoint(endpoint string) *Error {
	e.Endpoint = endpoint
	return e
}

// WithArtifact sets the schema artifact the error relates to
func (e *Error) WithArtifact(artifact string) *Error {
	e.Artifact = artifact
	return e
}

// WithSuggestion sets a hint for fixing the error
func (e *Error) WithSuggestion(suggestion string) *Error {
	e.Suggestion = suggestion
	return e
}

// WithSuggestions sets close alternatives for an unknown name
func (e *Error) WithSuggestions(suggestions ...string) *Error {
	e.Suggestions = suggestions
	return e
}

// WithCause sets the wrapped error
func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}

func newError(code ErrorCode, kind Kind, severity Severity, message string) *Error {
	return &Error{
		Code:     code,
		Kind:     kind,
		Severity: severity,
		Message:  message,
	}
}

// NewDocsNotFound creates a SRC101 error
func NewDocsNotFound(path string, cause error) *Error {
	return newError(ErrCodeDocsNotFound, KindSourceUnavailable, SeverityError,
		fmt.Sprintf("documentation not found at %s", path)).
		WithCause(cause).
		WithSuggestion("Run 'manifold fetch' or set sources.docs in manifold.yml")
}

// NewSchemasNotFound creates a SRC102 error
func NewSchemasNotFound(path string, cause error) *Error {
	return newError(ErrCodeSchemasNotFound, KindSourceUnavailable, SeverityError,
		fmt.Sprintf("schema tree not found at %s", path)).
		WithCause(cause).
		WithSuggestion("Run 'manifold fetch' or set sources.schemas in manifold.yml")
}

// NewRegistryUnreadable creates a SRC103 error
func NewRegistryUnreadable(path string, cause error) *Error {
	return newError(ErrCodeRegistryUnreadable, KindSourceUnavailable, SeverityError,
		fmt.Sprintf("cannot read registry %s", path)).
		WithCause(cause).
		WithSuggestion("Run 'manifold build' to regenerate the registry")
}

// NewRegistryUnwritable creates a SRC104 error
func NewRegistryUnwritable(path string, cause error) *Error {
	return newError(ErrCodeRegistryUnwritable, KindSourceUnavailable, SeverityError,
		fmt.Sprintf("cannot write registry %s", path)).WithCause(cause)
}

// NewDuplicateArtifact creates a COR201 error
func NewDuplicateArtifact(endpoint, first, second string) *Error {
	return newError(ErrCodeDuplicateArtifact, KindCorrelationConflict, SeverityError,
		fmt.Sprintf("artifacts %s and %s both correlate to %s", first, second, endpoint)).
		WithEndpoint(endpoint).
		WithArtifact(second).
		WithSuggestion("Remove one of the artifacts or narrow the alias table")
}

// NewDivergentMethod creates a COR202 error
func NewDivergentMethod(endpoint, previous, current string) *Error {
	return newError(ErrCodeDivergentMethod, KindCorrelationConflict, SeverityError,
		fmt.Sprintf("%s documented as both %s and %s", endpoint, previous, current)).
		WithEndpoint(endpoint)
}

// NewDuplicateHeading creates a COR203 warning
func NewDuplicateHeading(endpoint, method string) *Error {
	return newError(ErrCodeDuplicateHeading, KindCorrelationConflict, SeverityWarning,
		fmt.Sprintf("%s %s documented more than once", method, endpoint)).
		WithEndpoint(endpoint)
}

// NewAmbiguousAlias creates a COR204 warning
func NewAmbiguousAlias(variation string, endpoints []string) *Error {
	return newError(ErrCodeAmbiguousAlias, KindCorrelationConflict, SeverityWarning,
		fmt.Sprintf("%s is an alias spelling of %s", variation, strings.Join(endpoints, " and "))).
		WithEndpoint(variation)
}

// NewUnmatchedArtifact creates a COR205 notice
func NewUnmatchedArtifact(artifact, candidate string) *Error {
	return newError(ErrCodeUnmatchedArtifact, KindNotice, SeverityInfo,
		fmt.Sprintf("no documented endpoint for %s", candidate)).
		WithArtifact(artifact).
		WithEndpoint(candidate)
}

// NewGenerationFailed creates a GEN301 error
func NewGenerationFailed(endpoint, artifact string, cause error) *Error {
	return newError(ErrCodeGenerationFailed, KindGenerationFailure, SeverityError,
		fmt.Sprintf("model generation failed for %s", artifact)).
		WithEndpoint(endpoint).
		WithArtifact(artifact).
		WithCause(cause)
}

// NewInvalidLocator creates a GEN302 error
func NewInvalidLocator(artifact, reason string) *Error {
	return newError(ErrCodeInvalidLocator, KindGenerationFailure, SeverityError,
		fmt.Sprintf("cannot derive module locator from %s: %s", artifact, reason)).
		WithArtifact(artifact)
}

// NewPackageMarkerFailed creates a GEN303 error
func NewPackageMarkerFailed(dir string, cause error) *Error {
	return newError(ErrCodePackageMarker, KindGenerationFailure, SeverityError,
		fmt.Sprintf("cannot write package marker in %s", dir)).WithCause(cause)
}

// NewUnresolvedEndpoint creates a RUN401 error
func NewUnresolvedEndpoint(endpoint string) *Error {
	return newError(ErrCodeUnresolvedEndpoint, KindUnresolvedEndpoint, SeverityError,
		fmt.Sprintf("endpoint not found: %s", endpoint)).
		WithEndpoint(endpoint).
		WithSuggestion("Run 'manifold endpoints' to list registered endpoints")
}

// NewModelNotFound creates a RUN402 error
func NewModelNotFound(endpoint, identifier string) *Error {
	return newError(ErrCodeModelNotFound, KindUnresolvedEndpoint, SeverityError,
		fmt.Sprintf("model not found: %s (endpoint %s)", identifier, endpoint)).
		WithEndpoint(endpoint).
		WithSuggestion("Register the model in the model table or provide the schema tree")
}

// NewUnsupportedVersion creates a RUN403 error
func NewUnsupportedVersion(version, supported string) *Error {
	return newError(ErrCodeUnsupportedVersion, KindUnsupportedVersion, SeverityError,
		fmt.Sprintf("unsupported API version %q (supported: %s)", version, supported))
}

// NewUnsubstitutedParameter creates a RUN404 error
func NewUnsubstitutedParameter(endpoint string, params []string) *Error {
	return newError(ErrCodeUnsubstitutedParameter, KindUnsubstitutedParameter, SeverityError,
		fmt.Sprintf("missing values for path parameters %s", strings.Join(params, ", "))).
		WithEndpoint(endpoint)
}

// NewInvalidPayload creates a RUN405 error
func NewInvalidPayload(identifier string, problems []string) *Error {
	return newError(ErrCodeInvalidPayload, KindInvalidPayload, SeverityError,
		fmt.Sprintf("%s: %s", identifier, strings.Join(problems, "; ")))
}

// NewInvalidConfig creates a CFG501 error
func NewInvalidConfig(message string) *Error {
	return newError(ErrCodeInvalidConfig, KindConfiguration, SeverityError, message)
}

// NewBuildLocked creates a CFG502 error
func NewBuildLocked(lockPath string) *Error {
	return newError(ErrCodeBuildLocked, KindConfiguration, SeverityError,
		fmt.Sprintf("another build is running (lock file %s)", lockPath)).
		WithSuggestion("Wait for the other build or remove the stale lock file")
}

// NewToolNotFound creates an EXT601 error
func NewToolNotFound(tool string, cause error) *Error {
	return newError(ErrCodeToolNotFound, KindToolNotFound, SeverityError,
		fmt.Sprintf("external tool %q not found", tool)).
		WithCause(cause).
		WithSuggestion("Install it or set codegen.command in manifold.yml")
}

// NewToolFailed creates an EXT602 error
func NewToolFailed(tool string, exitCode int, output string) *Error {
	e := newError(ErrCodeToolFailed, KindToolFailed, SeverityError,
		fmt.Sprintf("external tool %q exited with status %d", tool, exitCode))
	e.Output = output
	return e
}

// NewToolTimeout creates an EXT603 error
func NewToolTimeout(tool string, timeout time.Duration) *Error {
	return newError(ErrCodeToolTimeout, KindToolTimeout, SeverityError,
		fmt.Sprintf("external tool %q timed out after %s", tool, timeout))
}

// List is a collection of diagnostics
type List []*Error

// Error implements the error interface
func (l List) Error() string {
	if len(l) == 0 {
		return "no errors"
	}
	msgs := make([]string, len(l))
	for i, e := range l {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "\n")
}

// HasErrors returns true if the list contains any error-severity entries
func (l List) HasErrors() bool {
	for _, e := range l {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Count returns the number of entries by severity
func (l List) Count() (errors, warnings, info int) {
	for _, e := range l {
		switch e.Severity {
		case SeverityError:
			errors++
		case SeverityWarning:
			warnings++
		case SeverityInfo:
			info++
		}
	}
	return
}

// ByKind returns the entries of the given kind
func (l List) ByKind(kind Kind) List {
	var out List
	for _, e := range l {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// ToJSON returns all entries as a JSON array
func (l List) ToJSON() (string, error) {
	bytes, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/fatih/color"

	mferrors "github.com/gomanifold/manifold/pkg/errors"
)

func TestFormatError(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	tests := []struct {
		name     string
		opts     ErrorOptions
		contains []string
	}{
		{
			name: "basic error",
			opts: ErrorOptions{
				Level:   ErrorLevelError,
				Context: "endpoint not found",
				Problem: "/v0/usr",
			},
			contains: []string{"❌", "ENDPOINT NOT FOUND: /v0/usr"},
		},
		{
			name: "error with suggestions",
			opts: ErrorOptions{
				Level:       ErrorLevelError,
				Problem:     "unknown endpoint",
				Suggestions: []string{"/v0/user/[username]", "/v0/users"},
			},
			contains: []string{"Did you mean: /v0/user/[username], /v0/users?"},
		},
		{
			name: "error with help commands",
			opts: ErrorOptions{
				Level:        ErrorLevelError,
				Context:      "BUILD FAILED",
				Problem:      "documentation missing",
				HelpCommands: []string{"Refresh sources: manifold fetch"},
			},
			contains: []string{"→ Refresh sources: manifold fetch"},
		},
		{
			name: "multi-line detail",
			opts: ErrorOptions{
				Level:   ErrorLevelError,
				Problem: "generator failed",
				Detail:  "line one\nline two\n",
			},
			contains: []string{"   line one\n", "   line two\n"},
		},
		{
			name:     "warning message",
			opts:     ErrorOptions{Level: ErrorLevelWarning, Problem: "endpoint documented twice"},
			contains: []string{"⚠️", "endpoint documented twice"},
		},
		{
			name:     "info message",
			opts:     ErrorOptions{Level: ErrorLevelInfo, Problem: "registry is up to date"},
			contains: []string{"ℹ️", "registry is up to date"},
		},
		{
			name: "error with consequence",
			opts: ErrorOptions{
				Level:       ErrorLevelError,
				Problem:     "registry not written",
				Consequence: "The previous registry is still in place",
			},
			contains: []string{"The previous registry is still in place"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FormatError(tt.opts)
			for _, expected := range tt.contains {
				if !strings.Contains(result, expected) {
					t.Errorf("FormatError() output missing %q\nGot: %q", expected, result)
				}
			}
		})
	}
}

func TestEndpointNotFoundError(t *testing.T) {
	result := EndpointNotFoundError("/v0/usr/[username]", []string{"/v0/user/[username]"}, true)

	for _, expected := range []string{
		"ENDPOINT NOT FOUND",
		"Cannot resolve endpoint '/v0/usr/[username]'.",
		"Did you mean: /v0/user/[username]?",
		"manifold endpoints",
	} {
		if !strings.Contains(result, expected) {
			t.Errorf("missing %q in %q", expected, result)
		}
	}
}

func TestBuildError(t *testing.T) {
	result := BuildError("schema tree not found", nil, true)
	if !strings.Contains(result, "BUILD FAILED: schema tree not found") {
		t.Errorf("unexpected output %q", result)
	}
	if !strings.Contains(result, "manifold fetch") {
		t.Errorf("expected fetch hint in %q", result)
	}
}

func TestConfigError(t *testing.T) {
	result := ConfigError("version must be v0", nil, true)
	if !strings.Contains(result, "CONFIGURATION ERROR") || !strings.Contains(result, "manifold init") {
		t.Errorf("unexpected output %q", result)
	}
}

func TestWriteError(t *testing.T) {
	var buf bytes.Buffer
	WriteError(&buf, ErrorOptions{Level: ErrorLevelError, Problem: "boom", NoColor: true})
	if !strings.Contains(buf.String(), "❌ boom") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestFormatSuccess(t *testing.T) {
	if got := FormatSuccess("Registry written", true); got != "✓ Registry written" {
		t.Errorf("FormatSuccess() = %q", got)
	}
}

func TestWriteSuccess(t *testing.T) {
	var buf bytes.Buffer
	WriteSuccess(&buf, "done", true)
	if buf.String() != "✓ done\n" {
		t.Errorf("WriteSuccess() = %q", buf.String())
	}
}

func TestWarningAndInfo(t *testing.T) {
	if got := Warning("stale lock", []string{"rm endpoints.json.lock"}, true); !strings.Contains(got, "Did you mean: rm endpoints.json.lock?") {
		t.Errorf("Warning() = %q", got)
	}
	if got := Info("nothing to do", true); !strings.Contains(got, "ℹ️ nothing to do") {
		t.Errorf("Info() = %q", got)
	}
}

func TestFormatIssue(t *testing.T) {
	issue := mferrors.NewGenerationFailed("/v0/bet", "bet.json", errors.New("exit status 1"))
	issue.Output = "panic: bad schema\n"

	result := FormatIssue(issue, true)
	for _, expected := range []string{
		"❌ GEN301: model generation failed for bet.json",
		"endpoint: /v0/bet",
		"artifact: bet.json",
		"cause: exit status 1",
		"panic: bad schema",
	} {
		if !strings.Contains(result, expected) {
			t.Errorf("missing %q in %q", expected, result)
		}
	}

	warning := FormatIssue(mferrors.NewDuplicateHeading("/v0/me", "GET"), true)
	if !strings.HasPrefix(warning, "⚠️ COR203") {
		t.Errorf("expected warning header, got %q", warning)
	}

	plain := FormatIssue(errors.New("disk full"), true)
	if !strings.Contains(plain, "❌ disk full") {
		t.Errorf("unexpected plain output %q", plain)
	}
}

func TestWriteIssuesOrdersBySeverity(t *testing.T) {
	issues := mferrors.List{
		mferrors.NewUnmatchedArtifact("stray.json", "/v0/stray"),
		mferrors.NewDuplicateHeading("/v0/me", "GET"),
		mferrors.NewDivergentMethod("/v0/bet", "GET", "POST"),
	}

	var buf bytes.Buffer
	WriteIssues(&buf, issues, true)
	out := buf.String()

	errIdx := strings.Index(out, "COR202")
	warnIdx := strings.Index(out, "COR203")
	infoIdx := strings.Index(out, "COR205")
	if errIdx < 0 || warnIdx < 0 || infoIdx < 0 {
		t.Fatalf("missing issues in %q", out)
	}
	if !(errIdx < warnIdx && warnIdx < infoIdx) {
		t.Errorf("issues not ordered by severity: %q", out)
	}
}

package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/gomanifold/manifold/pkg/registry"
)

func TestTable(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	var buf bytes.Buffer
	table := NewTable(&buf, []string{"METHOD", "ENDPOINT"}, &TableOptions{NoColor: true})
	table.AddRow("GET", "/v0/me")
	table.AddRow("POST", "/v0/bet")
	table.Render()

	want := "METHOD  ENDPOINT\n" +
		"──────  ────────\n" +
		"GET     /v0/me\n" +
		"POST    /v0/bet\n"
	if buf.String() != want {
		t.Errorf("Render() =\n%s\nwant\n%s", buf.String(), want)
	}
	if table.Len() != 2 {
		t.Errorf("Len() = %d", table.Len())
	}
}

func TestTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	NewTable(&buf, nil, nil).Render()
	if buf.String() != "" {
		t.Errorf("expected empty output for table with no headers, got: %q", buf.String())
	}
}

func TestTableExtraCellsDropped(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, []string{"A"}, &TableOptions{NoColor: true})
	table.AddRow("x", "ignored")
	table.Render()

	if strings.Contains(buf.String(), "ignored") {
		t.Errorf("cell beyond header count rendered: %q", buf.String())
	}
}

func TestTableAlignmentMultibyte(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, []string{"NAME", "X"}, &TableOptions{NoColor: true})
	table.AddRow("héllo", "1")
	table.AddRow("a", "2")
	table.Render()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d: %q", len(lines), buf.String())
	}
	if lines[2] != "héllo  1" || lines[3] != "a      2" {
		t.Errorf("misaligned rows: %q", lines[2:])
	}
}

func TestKeyValueTable(t *testing.T) {
	var buf bytes.Buffer
	kv := NewKeyValueTable(&buf, true)
	kv.AddRow("Registry", "endpoints.json")
	kv.AddRow("Generated", "12")
	kv.Render()

	want := "Registry:  endpoints.json\nGenerated: 12\n"
	if buf.String() != want {
		t.Errorf("Render() = %q, want %q", buf.String(), want)
	}
}

func TestKeyValueTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	NewKeyValueTable(&buf, true).Render()
	if buf.String() != "" {
		t.Errorf("expected empty output, got: %q", buf.String())
	}
}

func TestDivider(t *testing.T) {
	var buf bytes.Buffer
	Divider(&buf, 5, true)
	if buf.String() != "─────\n" {
		t.Errorf("Divider() = %q", buf.String())
	}

	buf.Reset()
	Divider(&buf, 0, true)
	if strings.Count(buf.String(), "─") != 80 {
		t.Errorf("expected default width of 80")
	}
}

func TestHeader(t *testing.T) {
	var buf bytes.Buffer
	Header(&buf, "Build", true)
	if buf.String() != "Build\n─────\n" {
		t.Errorf("Header() = %q", buf.String())
	}
}

func TestPadRight(t *testing.T) {
	tests := []struct {
		input string
		width int
		want  string
	}{
		{"abc", 5, "abc  "},
		{"abcdef", 3, "abcdef"},
		{"", 2, "  "},
	}
	for _, tt := range tests {
		if got := padRight(tt.input, tt.width); got != tt.want {
			t.Errorf("padRight(%q, %d) = %q, want %q", tt.input, tt.width, got, tt.want)
		}
	}
}

func TestEndpointTable(t *testing.T) {
	var buf bytes.Buffer
	EndpointTable(&buf, []registry.Entry{
		{Endpoint: "/v0/bet", Record: registry.Record{Method: "POST", ModuleLocator: "bet", ModelIdentifier: "Bet"}},
		{Endpoint: "/v0/me", Record: registry.Record{Method: "GET"}},
	}, true)

	out := buf.String()
	for _, expected := range []string{"METHOD", "ENDPOINT", "MODEL", "/v0/bet", "bet.Bet", "/v0/me"} {
		if !strings.Contains(out, expected) {
			t.Errorf("missing %q in %q", expected, out)
		}
	}
	if !strings.Contains(out, "GET     /v0/me    -") {
		t.Errorf("expected placeholder model for /v0/me, got %q", out)
	}
}

package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desktopqa/terminal-bdd/internal/model"
	"gopkg.in/yaml.v3"
)

func sampleTree() *model.Node {
	return model.Link(&model.Node{
		Name: "gnome-terminal-server",
		Role: "application",
		Children: []*model.Node{
			{Name: "Terminal", Role: "frame", Bounds: model.Bounds{Width: 800, Height: 600}, States: model.States{Showing: true}},
		},
	})
}

func TestFprintYAML(t *testing.T) {
	result := TreeResult{App: "terminal", TS: 1707500000, Root: sampleTree()}

	var buf bytes.Buffer
	if err := Fprint(&buf, FormatYAML, result); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	if strings.Count(out, "\n") <= 1 {
		t.Errorf("YAML output should be multi-line, got:\n%s", out)
	}
	if strings.Contains(out, "parent") {
		t.Errorf("parent links must not be serialized:\n%s", out)
	}

	var decoded TreeResult
	if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid YAML: %v", err)
	}
	if decoded.App != "terminal" {
		t.Errorf("app: got %q, want %q", decoded.App, "terminal")
	}
	if len(decoded.Root.Children) != 1 || decoded.Root.Children[0].Role != "frame" {
		t.Errorf("children not preserved: %+v", decoded.Root.Children)
	}
}

func TestFprintJSON_Compact(t *testing.T) {
	result := FlatResult{App: "preferences", TS: 1, Elements: model.Flatten(sampleTree())}

	var buf bytes.Buffer
	if err := Fprint(&buf, FormatJSON, result); err != nil {
		t.Fatal(err)
	}
	if strings.Count(buf.String(), "\n") != 1 {
		t.Errorf("compact JSON should be one line, got:\n%s", buf.String())
	}

	var decoded FlatResult
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(decoded.Elements) != 1 || decoded.Elements[0].Path != "window" {
		t.Errorf("elements: got %+v", decoded.Elements)
	}
}

func TestFprintJSON_Pretty(t *testing.T) {
	PrettyOutput = true
	defer func() { PrettyOutput = false }()

	var buf bytes.Buffer
	if err := Fprint(&buf, FormatJSON, map[string]string{"a": "<b>"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "\n  ") {
		t.Errorf("pretty JSON should be indented, got:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "<b>") {
		t.Errorf("HTML must not be escaped, got:\n%s", buf.String())
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatYAML, false},
		{"yaml", FormatYAML, false},
		{"json", FormatJSON, false},
		{"agent", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.yaml")
	if err := WriteFile(path, FormatYAML, map[string]int{"passed": 3}); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(data)) != "passed: 3" {
		t.Errorf("file content = %q", data)
	}
}

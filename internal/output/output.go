package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/desktopqa/terminal-bdd/internal/model"
	"gopkg.in/yaml.v3"
)

// Format represents the output format.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// OutputFormat is the current output format, set by the root command's --format flag.
var OutputFormat Format = FormatYAML

// PrettyOutput enables pretty-printing for JSON output.
var PrettyOutput bool

// ParseFormat validates a --format value. Empty selects YAML.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatYAML:
		return FormatYAML, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unsupported format: %s (use yaml or json)", s)
}

// TreeResult is the output of `dump`.
type TreeResult struct {
	App  string      `yaml:"app"  json:"app"`
	TS   int64       `yaml:"ts"   json:"ts"`
	Root *model.Node `yaml:"root" json:"root"`
}

// FlatResult is the output of `dump --flat`.
type FlatResult struct {
	App      string           `yaml:"app"      json:"app"`
	TS       int64            `yaml:"ts"       json:"ts"`
	Elements []model.FlatNode `yaml:"elements" json:"elements"`
}

// Print serializes v to stdout in the current output format.
func Print(v interface{}) error {
	return Fprint(os.Stdout, OutputFormat, v)
}

// Fprint serializes v to w in format f.
func Fprint(w io.Writer, f Format, v interface{}) error {
	switch f {
	case FormatJSON:
		return writeJSON(w, v, PrettyOutput)
	case FormatYAML:
		return writeYAML(w, v)
	default:
		return fmt.Errorf("unsupported output format: %s", f)
	}
}

func writeJSON(w io.Writer, v interface{}, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("json encode: %w", err)
	}
	return nil
}

func writeYAML(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("yaml encode: %w", err)
	}
	return enc.Close()
}

// WriteFile serializes v into path, choosing the format from f.
func WriteFile(path string, f Format, v interface{}) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Fprint(file, f, v); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

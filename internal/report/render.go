package report

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Format selects a renderer.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatPDF  Format = "pdf"
)

// ParseFormat maps a query value to a Format. Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatYAML, FormatPDF:
		return Format(s), nil
	}
	return "", fmt.Errorf("unknown format %q", s)
}

// ContentType returns the MIME type of rendered output.
func (f Format) ContentType() string {
	switch f {
	case FormatYAML:
		return "application/yaml"
	case FormatPDF:
		return "application/pdf"
	}
	return "application/json"
}

// Render writes ts to w in format f.
func Render(w io.Writer, ts *Timesheet, f Format) error {
	switch f {
	case FormatYAML:
		return RenderYAML(w, ts)
	case FormatPDF:
		return RenderPDF(w, ts)
	}
	return RenderJSON(w, ts)
}

// RenderJSON writes ts as indented JSON.
func RenderJSON(w io.Writer, ts *Timesheet) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ts)
}

// RenderYAML writes ts as a YAML document.
func RenderYAML(w io.Writer, ts *Timesheet) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(ts); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

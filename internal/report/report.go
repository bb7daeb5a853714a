// Package report renders scan results. Text output is a newline-delimited
// stream of findings grouped by checker in execution order, stable enough to
// diff between runs; json and yaml carry the full report document.
package report

import (
	"encoding/json"
	"fmt"
	"io"

	sigyaml "sigs.k8s.io/yaml"

	"github.com/clusteraudit/clusteraudit/internal/models"
)

// Format selects the output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatText, FormatJSON, FormatYAML:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, json, or yaml)", s)
	}
}

// TextWriter streams checker results as one line per finding, in the order
// results are delivered. Call Finish once after the last result to append the
// summary line.
type TextWriter struct {
	w     io.Writer
	total int
}

func NewTextWriter(w io.Writer) *TextWriter {
	return &TextWriter{w: w}
}

func (t *TextWriter) WriteResult(res models.CheckerResult) error {
	for _, f := range res.Findings {
		if _, err := fmt.Fprintf(t.w, "[%s] %s\n", f.Nature, f.Message); err != nil {
			return err
		}
		t.total++
	}
	return nil
}

// Finish writes the trailing summary line and returns the finding count.
func (t *TextWriter) Finish() (int, error) {
	unit := "findings"
	if t.total == 1 {
		unit = "finding"
	}
	_, err := fmt.Fprintf(t.w, "%d %s\n", t.total, unit)
	return t.total, err
}

func WriteJSON(w io.Writer, rep *models.ScanReport) error {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

func WriteYAML(w io.Writer, rep *models.ScanReport) error {
	data, err := sigyaml.Marshal(rep)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// Write renders a complete report in the given format. Text output produced
// here matches what a streamed TextWriter would have produced.
func Write(w io.Writer, format Format, rep *models.ScanReport) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, rep)
	case FormatYAML:
		return WriteYAML(w, rep)
	case FormatText:
		tw := NewTextWriter(w)
		for _, res := range rep.Results {
			if err := tw.WriteResult(res); err != nil {
				return err
			}
		}
		_, err := tw.Finish()
		return err
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

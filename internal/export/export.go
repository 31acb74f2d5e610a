// Package export renders research reports for the terminal, for machines
// (JSON, YAML) and as spreadsheets.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/signal-research/internal/model"
	"github.com/sells-group/signal-research/internal/textclean"
)

// Format is an output format for Write.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format name. An empty name means text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", eris.Errorf("export: unknown format %q (want text, json or yaml)", s)
	}
}

// Write renders report to w in the given format.
func Write(w io.Writer, f Format, report *model.Report) error {
	switch f {
	case FormatJSON:
		return WriteJSON(w, report)
	case FormatYAML:
		return WriteYAML(w, report)
	case FormatText, "":
		return WriteText(w, report)
	default:
		return eris.Errorf("export: unknown format %q", f)
	}
}

// WriteJSON writes report as indented JSON.
func WriteJSON(w io.Writer, report *model.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return eris.Wrap(err, "export: encode json")
	}
	return nil
}

// WriteYAML writes report as YAML.
func WriteYAML(w io.Writer, report *model.Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(report); err != nil {
		return eris.Wrap(err, "export: encode yaml")
	}
	if err := enc.Close(); err != nil {
		return eris.Wrap(err, "export: flush yaml")
	}
	return nil
}

// WriteText writes a human-readable report: signals as bullets, noise as
// condensed one-liners, then the strategic decision.
func WriteText(w io.Writer, report *model.Report) error {
	tw := &textWriter{w: w}
	run := report.Run

	tw.printf("Query: %s\n", run.Query)
	if run.EnhancedQuery != "" && run.EnhancedQuery != run.Query {
		tw.printf("Enhanced query: %s\n", run.EnhancedQuery)
	}
	if run.ID != "" {
		tw.printf("Run: %s (%d ms, est. $%.4f)\n", run.ID, run.DurationMs, run.CostUSD)
	}
	if len(run.SourceCounts) > 0 {
		tw.printf("Sources: %s\n", sourceCounts(run.SourceCounts))
	}

	data := report.Data
	tw.printf("\nSIGNALS (%d)\n", len(data.Signals))
	for i, s := range data.Signals {
		tw.printf("\n%2d. %s [%.0f%%]\n", i+1, s.Source, s.Confidence*100)
		if s.URL != "" {
			tw.printf("    %s\n", s.URL)
		}
		for _, b := range textclean.DisplayBullets(s.Content) {
			tw.printf("    %s\n", b)
		}
	}

	tw.printf("\nNOISE (%d)\n", len(data.Noise))
	for i, n := range data.Noise {
		tw.printf("%2d. %s: %s\n", i+1, n.Source, textclean.Condense(n.Content))
	}

	tw.printf("\nSTRATEGIC DECISION\n%s\n", strings.TrimSpace(data.StrategicDecision))
	return tw.err
}

// textWriter keeps the first write error so rendering code stays linear.
type textWriter struct {
	w   io.Writer
	err error
}

func (t *textWriter) printf(format string, args ...any) {
	if t.err != nil {
		return
	}
	if _, err := fmt.Fprintf(t.w, format, args...); err != nil {
		t.err = eris.Wrap(err, "export: write text")
	}
}

func sourceCounts(counts map[model.Provider]int) string {
	keys := make([]string, 0, len(counts))
	for p := range counts {
		keys = append(keys, string(p))
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, counts[model.Provider(k)])
	}
	return strings.Join(parts, " ")
}

// Package render provides presentation-layer helpers for cmc analysis output.
// It is a pure rendering package: no scanning, no upstream calls.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/models"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/output"
)

// RenderAnalysis writes a deep-analysis result to w.
//
// Example output:
//
//	DEEP ANALYSIS
//	Risk Level: High
//
//	Key Misconfigurations (2):
//	  1. Action "*" grants every permission
//	  2. No Condition block
//
//	Potential Threats (1):
//	  1. Privilege escalation
//
//	Patched Configuration:
//	{
//	  ...
//	}
func RenderAnalysis(w io.Writer, res *models.AnalysisResult, colored bool) {
	fmt.Fprintln(w, "DEEP ANALYSIS")
	fmt.Fprintf(w, "Risk Level: %s\n", output.ColorSeverity(res.RiskLevel, colored))
	if res.Degraded {
		fmt.Fprintln(w, "Note: the analysis response could not be parsed; showing a fallback result.")
	}

	renderList(w, "Key Misconfigurations", res.KeyMisconfigs)
	renderList(w, "Potential Threats", res.PotentialThreats)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Patched Configuration:")
	fmt.Fprintln(w, PrettyPatched(res.PatchedConfig))
}

func renderList(w io.Writer, title string, items []string) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s (%d):\n", title, len(items))
	if len(items) == 0 {
		fmt.Fprintln(w, "  none")
		return
	}
	for i, item := range items {
		fmt.Fprintf(w, "  %d. %s\n", i+1, item)
	}
}

// PrettyPatched indents the patched configuration. A JSON string (the patch of
// a raw-text document) is shown unquoted.
func PrettyPatched(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}

// WriteAnalysisJSON writes {"report": ..., "analysis": ...} as indented JSON.
// A nil analysis is omitted.
func WriteAnalysisJSON(w io.Writer, report *models.ScanReport, res *models.AnalysisResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)

	out := map[string]any{"report": report}
	if res != nil {
		out["analysis"] = res
	}
	return enc.Encode(out)
}

// PatchedFileName is the default download name for a patched configuration.
func PatchedFileName(t models.ConfigType, now time.Time) string {
	return fmt.Sprintf("patched-%s-%d.json", t, now.Unix())
}

// WritePatchedConfig writes the patched configuration to path, creating or
// overwriting the file.
func WritePatchedConfig(path string, raw json.RawMessage) error {
	data := []byte(PrettyPatched(raw) + "\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write patched config %q: %w", path, err)
	}
	return nil
}

package tui

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/models"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/render"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/session"
)

// detailHeight is the fixed number of lines for the finding detail panel.
const detailHeight = 5

func renderHeader(st session.State, width int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "cmc  %s", st.Input.Label())
	if st.Scan == nil || st.Scan.Report == nil {
		b.WriteString("  (not scanned)")
		return styleHeader.Width(width - 2).Render(b.String())
	}
	r := st.Scan.Report
	fmt.Fprintf(&b, "  type: %s  format: %s\n", r.ConfigType, r.Format)
	fmt.Fprintf(&b, "Findings: %d  %s %s %s %s",
		r.Summary.TotalFindings,
		severityStyle(models.SeverityCritical).Render(fmt.Sprintf("C:%d", r.Summary.CriticalFindings)),
		severityStyle(models.SeverityHigh).Render(fmt.Sprintf("H:%d", r.Summary.HighFindings)),
		severityStyle(models.SeverityMedium).Render(fmt.Sprintf("M:%d", r.Summary.MediumFindings)),
		severityStyle(models.SeverityLow).Render(fmt.Sprintf("L:%d", r.Summary.LowFindings)),
	)
	return styleHeader.Width(width - 2).Render(b.String())
}

func renderDetail(f *models.Finding, width int) string {
	if f == nil {
		return stylePanel.Width(width).Render("No finding selected")
	}

	var b strings.Builder
	sev := severityStyle(f.Severity).Render(severityLabel(f.Severity))
	fmt.Fprintf(&b, "%s  %s  [%s]\n", sev, f.Type, f.RuleID)
	fmt.Fprintf(&b, "Location: %s\n", f.Location)
	b.WriteString(f.Description)
	return stylePanel.Width(width).Render(b.String())
}

// analysisLines returns the analysis panel body for st, one entry per line.
func analysisLines(st session.State) []string {
	switch st.Phase {
	case session.PhaseAnalyzing:
		return []string{"Analyzing..."}
	case session.PhaseFailed:
		msg := "analysis failed"
		if st.Err != nil {
			msg += ": " + st.Err.Error()
		}
		return []string{styleError.Render(msg), styleMuted.Render("press a to retry")}
	case session.PhaseCompleted:
		var buf bytes.Buffer
		render.RenderAnalysis(&buf, st.Analysis, false)
		return strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	}
	if st.CanAnalyze() {
		return []string{styleMuted.Render("press a for a deep analysis")}
	}
	return []string{styleMuted.Render("no analysis")}
}

// renderAnalysis shows height lines of lines starting at offset.
func renderAnalysis(lines []string, offset, height, width int) string {
	if offset > len(lines)-1 {
		offset = max(len(lines)-1, 0)
	}
	end := min(offset+height, len(lines))
	return stylePanel.Width(width).Render(strings.Join(lines[offset:end], "\n"))
}

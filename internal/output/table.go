package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/models"
)

// ANSI color codes for severity output (used when Colored=true).
const (
	ansiReset   = "\033[0m"
	ansiBoldRed = "\033[1;31m"
	ansiRed     = "\033[0;31m"
	ansiYellow  = "\033[0;33m"
	ansiBlue    = "\033[0;34m"
)

// TableOptions controls which columns RenderTable renders and how severity is coloured.
type TableOptions struct {
	// Colored wraps severity labels with ANSI codes. Default false (CI-safe).
	Colored bool

	// IncludeDomain adds a DOMAIN column.
	IncludeDomain bool

	// IncludeRuleID adds a RULE ID column.
	IncludeRuleID bool

	// MessageWidth caps the MESSAGE column. Zero selects 60.
	MessageWidth int
}

func severityCode(sev models.Severity) string {
	switch sev {
	case models.SeverityCritical:
		return ansiBoldRed
	case models.SeverityHigh:
		return ansiRed
	case models.SeverityMedium:
		return ansiYellow
	case models.SeverityLow:
		return ansiBlue
	}
	return ""
}

// ColorSeverity wraps a severity string with ANSI codes when colored is true.
// When colored is false the string is returned unchanged (CI-safe default).
func ColorSeverity(sev models.Severity, colored bool) string {
	s := string(sev)
	code := severityCode(sev)
	if !colored || code == "" {
		return s
	}
	return code + s + ansiReset
}

// ShortenMessage truncates msg to at most max runes, appending "..." when truncated.
// max is treated as at least 4 to guarantee space for the ellipsis.
func ShortenMessage(msg string, max int) string {
	if max < 4 {
		max = 4
	}
	runes := []rune(msg)
	if len(runes) <= max {
		return msg
	}
	return string(runes[:max-3]) + "..."
}

// severityCell returns the severity padded to width characters.
// When colored, ANSI codes wrap only the text; trailing padding spaces are plain
// so subsequent columns stay visually aligned regardless of terminal ANSI support.
func severityCell(sev models.Severity, width int, colored bool) string {
	text := string(sev)
	code := severityCode(sev)
	if !colored || code == "" {
		return fmt.Sprintf("%-*s", width, text)
	}
	spaces := width - len(text)
	if spaces < 0 {
		spaces = 0
	}
	return code + text + ansiReset + strings.Repeat(" ", spaces)
}

// truncateField shortens s to at most max runes for ID/label columns.
// A single-char ellipsis replaces the last rune when truncation occurs.
func truncateField(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}

// RenderTable writes a formatted findings table to w.
// Columns are dynamically selected based on opts; the separator line width is
// derived from the header row so all rows align correctly.
//
// Column order:
//
//	SEVERITY  [DOMAIN]  [RULE ID]  TYPE  LOCATION  MESSAGE
func RenderTable(w io.Writer, findings []models.Finding, opts TableOptions) {
	if len(findings) == 0 {
		fmt.Fprintln(w, "No findings.")
		return
	}

	const (
		wSeverity = 10
		wDomain   = 10
		wRuleID   = 28
		wType     = 34
		wLocation = 22
	)
	wMessage := opts.MessageWidth
	if wMessage <= 0 {
		wMessage = 60
	}

	var hb strings.Builder
	hb.WriteString(fmt.Sprintf("%-*s", wSeverity, "SEVERITY"))
	if opts.IncludeDomain {
		hb.WriteString(fmt.Sprintf("  %-*s", wDomain, "DOMAIN"))
	}
	if opts.IncludeRuleID {
		hb.WriteString(fmt.Sprintf("  %-*s", wRuleID, "RULE ID"))
	}
	hb.WriteString(fmt.Sprintf("  %-*s", wType, "TYPE"))
	hb.WriteString(fmt.Sprintf("  %-*s", wLocation, "LOCATION"))
	hb.WriteString(fmt.Sprintf("  %-*s", wMessage, "MESSAGE"))
	header := strings.TrimRight(hb.String(), " ")

	fmt.Fprintln(w, header)
	fmt.Fprintln(w, strings.Repeat("-", len(header)))

	for _, f := range findings {
		var rb strings.Builder
		rb.WriteString(severityCell(f.Severity, wSeverity, opts.Colored))
		if opts.IncludeDomain {
			rb.WriteString(fmt.Sprintf("  %-*s", wDomain, truncateField(f.Domain, wDomain)))
		}
		if opts.IncludeRuleID {
			rb.WriteString(fmt.Sprintf("  %-*s", wRuleID, truncateField(f.RuleID, wRuleID)))
		}
		rb.WriteString(fmt.Sprintf("  %-*s", wType, truncateField(f.Type, wType)))
		rb.WriteString(fmt.Sprintf("  %-*s", wLocation, truncateField(f.Location, wLocation)))
		rb.WriteString("  " + ShortenMessage(f.Description, wMessage))
		fmt.Fprintln(w, strings.TrimRight(rb.String(), " "))
	}
}

// RenderSummary writes the report header and per-severity counts to w.
func RenderSummary(w io.Writer, report *models.ScanReport, colored bool) {
	s := report.Summary

	fmt.Fprintf(w, "Source:   %s\n", report.Source)
	fmt.Fprintf(w, "Type:     %s\n", report.ConfigType)
	fmt.Fprintf(w, "Format:   %s\n", report.Format)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Total Findings:  %d\n", s.TotalFindings)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Severity Breakdown")
	for _, row := range []struct {
		sev   models.Severity
		count int
	}{
		{models.SeverityCritical, s.CriticalFindings},
		{models.SeverityHigh, s.HighFindings},
		{models.SeverityMedium, s.MediumFindings},
		{models.SeverityLow, s.LowFindings},
	} {
		fmt.Fprintf(w, "  %s  %d\n", severityCell(row.sev, 10, colored), row.count)
	}
}

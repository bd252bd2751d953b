package models

import (
	"strings"
	"time"
)

// Severity represents the impact level of a finding.
type Severity string

const (
	SeverityCritical Severity = "Critical"
	SeverityHigh     Severity = "High"
	SeverityMedium   Severity = "Medium"
	SeverityLow      Severity = "Low"
)

// severityRank maps Severity values to sort keys (lower = higher priority).
var severityRank = map[Severity]int{
	SeverityCritical: 0,
	SeverityHigh:     1,
	SeverityMedium:   2,
	SeverityLow:      3,
}

// Rank returns the sort key for s. Unknown or empty severities rank as Medium.
func (s Severity) Rank() int {
	if r, ok := severityRank[s]; ok {
		return r
	}
	return severityRank[SeverityMedium]
}

// Valid reports whether s is one of the four recognised severities.
func (s Severity) Valid() bool {
	_, ok := severityRank[s]
	return ok
}

// ParseSeverity maps a case-insensitive severity name to its canonical form.
// The boolean is false when name is not a recognised severity.
func ParseSeverity(name string) (Severity, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "critical":
		return SeverityCritical, true
	case "high":
		return SeverityHigh, true
	case "medium":
		return SeverityMedium, true
	case "low":
		return SeverityLow, true
	}
	return "", false
}

// Finding is a single detected misconfiguration.
// It is the atomic output unit of the rule engine.
type Finding struct {
	// RuleID is the stable identifier of the detector that emitted the finding.
	RuleID string `json:"rule_id"`

	// Domain is the detector group (rule pack) the rule belongs to.
	Domain string `json:"domain"`

	Type        string   `json:"type"`
	Description string   `json:"description"`
	Location    string   `json:"location"`
	Severity    Severity `json:"severity"`
}

// ScanSummary aggregates finding counts across severity levels.
type ScanSummary struct {
	TotalFindings    int `json:"total_findings"`
	CriticalFindings int `json:"critical_findings"`
	HighFindings     int `json:"high_findings"`
	MediumFindings   int `json:"medium_findings"`
	LowFindings      int `json:"low_findings"`
}

// ScanReport is the top-level output of one scanner run over one input.
type ScanReport struct {
	ReportID    string     `json:"report_id"`
	GeneratedAt time.Time  `json:"generated_at"`
	Source      string     `json:"source"`
	ConfigType  ConfigType `json:"config_type"`

	// Format names the decoder that produced the document: json, flat or raw.
	Format   string      `json:"format"`
	Summary  ScanSummary `json:"summary"`
	Findings []Finding   `json:"findings"`
}

package policy

import (
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/models"
)

// DomainEnabled reports whether the detector group is switched on. Groups
// absent from the policy, or present without an enabled key, are enabled.
func DomainEnabled(domain string, cfg *PolicyConfig) bool {
	if cfg == nil {
		return true
	}
	d, ok := cfg.Domains[domain]
	return !ok || d.Enabled == nil || *d.Enabled
}

// ApplyPolicy filters and rewrites findings emitted by one detector group.
// Severity overrides are applied before the domain min_severity filter.
func ApplyPolicy(findings []models.Finding, domain string, cfg *PolicyConfig) []models.Finding {
	if cfg == nil {
		return findings
	}

	if !DomainEnabled(domain, cfg) {
		return []models.Finding{}
	}

	minRank := -1
	if d, ok := cfg.Domains[domain]; ok {
		if sev, ok := models.ParseSeverity(d.MinSeverity); ok {
			minRank = sev.Rank()
		}
	}

	result := make([]models.Finding, 0, len(findings))

	for _, f := range findings {
		ruleCfg, hasRule := cfg.Rules[f.RuleID]

		// Rule-level disable
		if hasRule && ruleCfg.Enabled != nil && !*ruleCfg.Enabled {
			continue
		}

		// Severity override
		if hasRule {
			if sev, ok := models.ParseSeverity(ruleCfg.Severity); ok {
				f.Severity = sev
			}
		}

		if minRank >= 0 && f.Severity.Rank() > minRank {
			continue
		}

		result = append(result, f)
	}

	return result
}

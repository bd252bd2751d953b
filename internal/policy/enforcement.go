package policy

import (
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/models"
)

// ShouldFail reports whether any finding in findings has a severity at or above
// the configured fail_on_severity threshold for the given domain. The "all"
// enforcement entry is used when the domain has none of its own.
//
// It returns false when:
//   - cfg is nil (no policy loaded)
//   - no enforcement block is configured for domain or "all"
//   - fail_on_severity is empty or an unrecognised value
//   - findings is empty
func ShouldFail(domain string, findings []models.Finding, cfg *PolicyConfig) bool {
	if cfg == nil {
		return false
	}
	enfCfg, ok := cfg.Enforcement[domain]
	if !ok {
		enfCfg, ok = cfg.Enforcement[AllDomains]
	}
	if !ok || enfCfg.FailOnSeverity == "" {
		return false
	}
	threshold, ok := models.ParseSeverity(enfCfg.FailOnSeverity)
	if !ok {
		return false
	}
	for _, f := range findings {
		if f.Severity.Rank() <= threshold.Rank() {
			return true
		}
	}
	return false
}

// ShouldFailReport applies ShouldFail per detector group across a merged
// finding list.
func ShouldFailReport(findings []models.Finding, cfg *PolicyConfig) bool {
	if cfg == nil {
		return false
	}
	byDomain := make(map[string][]models.Finding)
	for _, f := range findings {
		byDomain[f.Domain] = append(byDomain[f.Domain], f)
	}
	for domain, fs := range byDomain {
		if ShouldFail(domain, fs, cfg) {
			return true
		}
	}
	return false
}

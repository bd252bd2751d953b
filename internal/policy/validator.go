package policy

import (
	"fmt"

	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/models"
)

// validDomains is the set of recognised detector group names.
var validDomains = map[string]struct{}{
	"aws_s3":   {},
	"aws_iam":  {},
	"gcp":      {},
	"azure":    {},
	"common":   {},
	"fallback": {},
}

const (
	domainList   = "aws_s3, aws_iam, gcp, azure, common, fallback"
	severityList = "Critical, High, Medium, Low"
)

// Validate checks cfg for semantic correctness and returns all validation errors
// found. An empty slice means the config is valid.
//
// Checks performed:
//   - version must be 1
//   - domain names must be one of the detector groups
//   - domain min_severity must be a valid severity value if set
//   - rule IDs must appear in availableRuleIDs
//   - rule severity overrides must be valid severity values if set
//   - rule params must be known for the rule and not negative
//   - enforcement keys must be a detector group or "all"
//   - enforcement fail_on_severity must be a valid severity value if set
//
// All errors are collected before returning; Validate never stops at the first error.
func Validate(cfg *PolicyConfig, availableRuleIDs []string) []error {
	if cfg == nil {
		return []error{fmt.Errorf("policy config is nil")}
	}

	knownIDs := make(map[string]struct{}, len(availableRuleIDs))
	for _, id := range availableRuleIDs {
		knownIDs[id] = struct{}{}
	}

	var errs []error

	if cfg.Version != 1 {
		errs = append(errs, fmt.Errorf("version: unsupported value %d; must be 1", cfg.Version))
	}

	for name, dcfg := range cfg.Domains {
		if _, ok := validDomains[name]; !ok {
			errs = append(errs, fmt.Errorf("domains.%s: unknown domain; valid values: %s", name, domainList))
		}
		if dcfg.MinSeverity != "" && !validSeverity(dcfg.MinSeverity) {
			errs = append(errs, fmt.Errorf("domains.%s.min_severity: invalid value %q; valid values: %s", name, dcfg.MinSeverity, severityList))
		}
	}

	for ruleID, rcfg := range cfg.Rules {
		if _, ok := knownIDs[ruleID]; !ok {
			errs = append(errs, fmt.Errorf("rules.%s: unknown rule ID", ruleID))
		}
		if rcfg.Severity != "" && !validSeverity(rcfg.Severity) {
			errs = append(errs, fmt.Errorf("rules.%s.severity: invalid value %q; valid values: %s", ruleID, rcfg.Severity, severityList))
		}
		for key, v := range rcfg.Params {
			if !knownParam(ruleID, key) {
				errs = append(errs, fmt.Errorf("rules.%s.params.%s: unknown param", ruleID, key))
			}
			if v < 0 {
				errs = append(errs, fmt.Errorf("rules.%s.params.%s: must not be negative; got %v", ruleID, key, v))
			}
		}
	}

	for domain, enfCfg := range cfg.Enforcement {
		if _, ok := validDomains[domain]; !ok && domain != AllDomains {
			errs = append(errs, fmt.Errorf("enforcement.%s: unknown domain; valid values: %s, %s", domain, domainList, AllDomains))
		}
		if enfCfg.FailOnSeverity != "" && !validSeverity(enfCfg.FailOnSeverity) {
			errs = append(errs, fmt.Errorf("enforcement.%s.fail_on_severity: invalid value %q; valid values: %s", domain, enfCfg.FailOnSeverity, severityList))
		}
	}

	return errs
}

func validSeverity(name string) bool {
	_, ok := models.ParseSeverity(name)
	return ok
}

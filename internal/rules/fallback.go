package rules

import "github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/models"

var fallbackDetectors = []PatternRule{
	{
		RuleID:      "FALLBACK_WILDCARD_GRANT",
		Type:        "Potential Misconfig",
		Severity:    models.SeverityMedium,
		Description: "A wildcard is used together with allow, permit or grant.",
		Location:    "Unknown",
		When:        All(Contains("*"), Match(`(?i)allow|permit|grant`)),
	},
	{
		RuleID:      "FALLBACK_HARDCODED_CREDENTIALS",
		Type:        "Hardcoded Credentials (String)",
		Severity:    models.SeverityCritical,
		Description: "The file contains hardcoded credentials.",
		Location:    "Configuration File",
		When:        Match(`(?i)(password|secret|api[_-]?key)\s*[:=]\s*["'][^"']+["']`),
	},
}

// FallbackRules returns the reduced string-only group used when the input
// could not be decoded at all.
func FallbackRules() []Rule { return group(DomainFallback, Unstructured(), fallbackDetectors) }

package rules

import (
	"regexp"

	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/models"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/policy"
)

var ipv4Pattern = regexp.MustCompile(`\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}`)

var commonDetectors = []PatternRule{
	{
		RuleID:      "COMMON_HARDCODED_CREDENTIALS",
		Type:        "Hardcoded Credentials",
		Severity:    models.SeverityCritical,
		Description: "The file contains a hardcoded password, secret, API key or access key.",
		Location:    "Configuration File",
		When:        Match(`(?i)"(password|secret|apiKey|accessKey)"\s*:\s*"[^"]+"`),
	},
	{
		RuleID:      "COMMON_AWS_ACCESS_KEY",
		Type:        "AWS Access Key Exposed",
		Severity:    models.SeverityCritical,
		Description: "An AWS access key ID is exposed in the file.",
		Location:    "Configuration File",
		When:        Match(`AKIA[0-9A-Z]{16}`),
	},
	{
		RuleID:      "COMMON_PRIVATE_KEY",
		Type:        "Private Key Exposed",
		Severity:    models.SeverityCritical,
		Description: "The file contains a PEM private key.",
		Location:    "Configuration File",
		When:        Match(`-----BEGIN\s+((RSA|EC)\s+)?PRIVATE\s+KEY-----`),
	},
	{
		RuleID:      "COMMON_JWT_TOKEN",
		Type:        "JWT Token Exposed",
		Severity:    models.SeverityHigh,
		Description: "The file contains a JWT token.",
		Location:    "Configuration File",
		When:        Match(`eyJ[A-Za-z0-9_=-]+\.eyJ[A-Za-z0-9_=-]+\.`),
	},
	{
		RuleID:      "COMMON_DB_CONNECTION_STRING",
		Type:        "Database Connection String Exposed",
		Severity:    models.SeverityHigh,
		Description: "A database connection string with credentials is present.",
		Location:    "Configuration File",
		When: All(
			Match(`(?i)(mongodb|mysql|postgres|postgresql|sqlserver)://`),
			Match(`(?i)password|pwd|pass`),
		),
	},
	{
		RuleID:      "COMMON_HARDCODED_IPS",
		Type:        "Multiple Hardcoded IPs",
		Severity:    models.SeverityLow,
		Description: "The file contains many hardcoded IP addresses.",
		Location:    "Configuration File",
		When:        CountAbove(ipv4Pattern, policy.ParamMaxIPs, 5),
	},
	{
		RuleID:      "COMMON_SENSITIVE_COMMENT",
		Type:        "Sensitive Info in Comments",
		Severity:    models.SeverityLow,
		Description: "A comment mentions a password, secret, key or token.",
		Location:    "Comments",
		When:        MatchSource(`(?im)^\s*(//|#).*(password|secret|key|token)`),
	},
}

// CommonRules returns the dialect-independent detector group.
func CommonRules() []Rule { return group(DomainCommon, Structured(), commonDetectors) }

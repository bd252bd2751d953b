package rules

import "github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/models"

const (
	allowEffect       = `"Effect"\s*:\s*"Allow"`
	principalWildcard = `"Principal"\s*:\s*"\*"`
	openCIDR          = `0\.0\.0\.0/0|::/0`
	conditionKey      = `"Condition"`
)

// S3 detectors run for aws-s3 documents and for any structured document
// that mentions S3.
var awsS3Scope = All(
	Structured(),
	Any(TypeIs(models.ConfigTypeAWSS3), Contains("s3", "S3", "arn:aws:s3")),
)

var awsS3Detectors = []PatternRule{
	{
		RuleID:      "S3_PUBLIC_ACCESS",
		Type:        "S3 Public Access",
		Severity:    models.SeverityHigh,
		Description: "Bucket grants a public-read or public-read-write canned ACL.",
		Location:    "ACL or Policy",
		When:        Match(`(?i)public-?read`),
	},
	{
		RuleID:      "S3_PUBLIC_PRINCIPAL",
		Type:        "S3 Public Principal",
		Severity:    models.SeverityHigh,
		Description: `Policy Principal is "*", allowing access to everyone.`,
		Location:    "Policy Principal",
		When: Any(
			Match(principalWildcard),
			Match(`"Principal"\s*:\s*\{\s*"AWS"\s*:\s*\[?\s*"\*"`),
			Match(`"Principal"\s*:\s*\{\s*"\*"\s*:`),
		),
	},
	{
		RuleID:      "S3_OPEN_IP_RANGE",
		Type:        "S3 Open IP Range",
		Severity:    models.SeverityHigh,
		Description: "An IP range is open to 0.0.0.0/0 or ::/0.",
		Location:    "Policy Condition",
		When:        Match(openCIDR),
	},
	{
		RuleID:      "S3_ENCRYPTION_DISABLED",
		Type:        "S3 Encryption Disabled",
		Severity:    models.SeverityMedium,
		Description: "Bucket encryption is not configured or is disabled.",
		Location:    "Bucket Configuration",
		When: Any(
			Match(`"ServerSideEncryptionConfiguration"\s*:\s*\{\s*\}`),
			Match(`"Encryption"\s*:\s*null`),
			All(Contains("Bucket"), Not(Match(`(?i)SSE|Encryption|KMS`))),
		),
	},
	{
		RuleID:      "S3_VERSIONING_DISABLED",
		Type:        "S3 Versioning Disabled",
		Severity:    models.SeverityMedium,
		Description: "Bucket versioning is suspended or not configured.",
		Location:    "Bucket Configuration",
		When: Any(
			Match(`"Versioning"\s*:\s*\{\s*"Status"\s*:\s*"Suspended"`),
			All(Contains("Bucket"), Not(Match(`(?i)Versioning`))),
		),
	},
	{
		RuleID:      "S3_CORS_PERMISSIVE",
		Type:        "S3 CORS Overly Permissive",
		Severity:    models.SeverityMedium,
		Description: "CORS configuration allows every origin (*).",
		Location:    "CORS Configuration",
		When:        Match(`"AllowedOrigins?"\s*:\s*\[?\s*"\*"`),
	},
	{
		RuleID:      "S3_NO_CONDITION",
		Type:        "S3 No Condition Restriction",
		Severity:    models.SeverityHigh,
		Description: "Bucket policy allows a wildcard principal without any Condition.",
		Location:    "Policy Statement",
		When:        All(Match(allowEffect), Not(Contains(conditionKey)), Match(principalWildcard)),
	},
	{
		RuleID:      "S3_LOGGING_DISABLED",
		Type:        "S3 Logging Disabled",
		Severity:    models.SeverityLow,
		Description: "Bucket access logging is not configured.",
		Location:    "Bucket Configuration",
		When:        All(Contains("Bucket"), Not(Match(`(?i)Logging|AccessLog`))),
	},
}

// AWSS3Rules returns the S3 bucket detector group.
func AWSS3Rules() []Rule { return group(DomainAWSS3, awsS3Scope, awsS3Detectors) }

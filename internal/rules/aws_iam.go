package rules

import "github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/models"

const (
	wildcardAction   = `"Action"\s*:\s*\[?\s*"\*"`
	wildcardResource = `"Resource"\s*:\s*\[?\s*"\*"`
)

// IAM detectors run for aws-iam documents and for any structured document
// carrying both Version and Statement.
var awsIAMScope = All(
	Structured(),
	Any(TypeIs(models.ConfigTypeAWSIAM), All(Contains("Version"), Contains("Statement"))),
)

var awsIAMDetectors = []PatternRule{
	{
		RuleID:      "IAM_FULL_ACCESS",
		Type:        "IAM Full Access",
		Severity:    models.SeverityHigh,
		Description: `Action is "*", granting every permission.`,
		Location:    "Policy Statement Action",
		When:        Match(wildcardAction),
	},
	{
		RuleID:      "IAM_ALL_RESOURCES",
		Type:        "IAM All Resources",
		Severity:    models.SeverityHigh,
		Description: `Resource is "*", granting access to every resource.`,
		Location:    "Policy Statement Resource",
		When:        Match(wildcardResource),
	},
	{
		RuleID:      "IAM_ADMIN_POLICY",
		Type:        "IAM Admin Policy",
		Severity:    models.SeverityHigh,
		Description: "Administrator policy allows every action on every resource.",
		Location:    "Policy Statement",
		When:        MatchCompact(`Effect.*Allow.*Action.*\*.*Resource.*\*`),
	},
	{
		RuleID:      "IAM_PASSROLE_PERMISSIVE",
		Type:        "IAM PassRole Overly Permissive",
		Severity:    models.SeverityHigh,
		Description: "iam:PassRole is granted on all resources (*).",
		Location:    "Policy Statement",
		When: All(
			Match(`(?i)"Action"\s*:\s*(\[[^\]]*)?"iam:PassRole"`),
			Match(wildcardResource),
		),
	},
	{
		RuleID:      "IAM_ASSUMEROLE_VULNERABLE",
		Type:        "IAM AssumeRole Vulnerable",
		Severity:    models.SeverityHigh,
		Description: "sts:AssumeRole is allowed on all resources or without any Condition.",
		Location:    "Policy Statement",
		When: All(
			Match(`(?i)"Action"\s*:\s*(\[[^\]]*)?"sts:AssumeRole"`),
			Any(Match(wildcardResource), Not(Contains(conditionKey))),
		),
	},
	{
		RuleID:      "IAM_NOT_ACTION",
		Type:        "IAM NotAction Usage",
		Severity:    models.SeverityMedium,
		Description: "NotAction combined with Allow can grant unintended permissions.",
		Location:    "Policy Statement",
		When:        All(Contains(`"NotAction"`), Match(allowEffect)),
	},
	{
		RuleID:      "IAM_NO_CONDITION",
		Type:        "IAM No Condition Restriction",
		Severity:    models.SeverityMedium,
		Description: "Wildcard permissions are granted without any Condition.",
		Location:    "Policy Statement",
		When: All(
			Match(allowEffect),
			Not(Contains(conditionKey)),
			Any(Match(wildcardAction), Match(wildcardResource)),
		),
	},
	{
		RuleID:      "IAM_NO_PERMISSIONS_BOUNDARY",
		Type:        "IAM No Permissions Boundary",
		Severity:    models.SeverityMedium,
		Description: "High-risk policy has no permissions boundary.",
		Location:    "Policy Document",
		When: All(
			Match(`"Version"\s*:\s*"2012-10-17"`),
			Not(Contains(`"PermissionsBoundary"`)),
			Match(wildcardAction),
		),
	},
	{
		RuleID:      "IAM_NO_MFA",
		Type:        "IAM No MFA Requirement",
		Severity:    models.SeverityMedium,
		Description: "Sensitive iam, s3 and ec2 actions are allowed without requiring MFA.",
		Location:    "Policy Statement",
		When: All(
			Match(allowEffect),
			Contains(`"Action"`),
			Match(`"iam:[A-Za-z*]`),
			Match(`"s3:[A-Za-z*]`),
			Match(`"ec2:[A-Za-z*]`),
			Not(Match(`(?s)"Condition".*"Bool".*"aws:MultiFactorAuthPresent"`)),
		),
	},
}

// AWSIAMRules returns the IAM policy detector group.
func AWSIAMRules() []Rule { return group(DomainAWSIAM, awsIAMScope, awsIAMDetectors) }

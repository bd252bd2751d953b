package rules

import (
	"fmt"
	"regexp"

	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/models"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/policy"
)

const publicMember = `(?i)allUsers|allAuthenticatedUsers`

var gcpRolePattern = regexp.MustCompile(`roles/[^"}\s]+`)

// GCP detectors run for gcp documents and for any structured document with
// service-account signatures.
var gcpScope = All(
	Structured(),
	Any(
		TypeIs(models.ConfigTypeGCP),
		Contains("service_account", "gcp", "gserviceaccount.com", `"private_key"`),
	),
)

var gcpDetectors = []PatternRule{
	{
		RuleID:      "GCP_HIGH_PRIVILEGE_ROLE",
		Type:        "GCP High Privilege Role",
		Severity:    models.SeverityHigh,
		Description: "Owner or Editor role is bound, granting excessive privileges.",
		Location:    "IAM Bindings",
		When:        Match(`(?i)roles/(owner|editor)`),
	},
	{
		RuleID:      "GCP_PUBLIC_ACCESS",
		Type:        "GCP Public Access",
		Severity:    models.SeverityHigh,
		Description: "allUsers or allAuthenticatedUsers is a member, making the resource public.",
		Location:    "IAM Bindings",
		When:        Match(publicMember),
	},
	{
		RuleID:      "GCP_SA_KEY_EXPOSED",
		Type:        "GCP Service Account Key Exposed",
		Severity:    models.SeverityCritical,
		Description: "The file contains a service account private key.",
		Location:    "Service Account Key",
		When: All(
			Contains(`"private_key"`),
			Not(Match(`"private_key"\s*:\s*(null|"")`)),
		),
	},
	{
		RuleID:      "GCP_DEFAULT_SA",
		Type:        "GCP Default Service Account",
		Severity:    models.SeverityMedium,
		Description: "The default Compute Engine or App Engine service account is in use.",
		Location:    "Service Account",
		When:        Match(`[0-9]+-compute@developer\.gserviceaccount\.com|@appspot\.gserviceaccount\.com`),
	},
	{
		RuleID:   "GCP_EXCESSIVE_ROLES",
		Type:     "GCP Excessive Role Bindings",
		Severity: models.SeverityMedium,
		Location: "IAM Bindings",
		When:     DistinctAbove(gcpRolePattern, policy.ParamMaxRoles, 5),
		Describe: func(ctx RuleContext) string {
			return fmt.Sprintf("Excessive number of roles bound (%d).", CountDistinct(gcpRolePattern, ctx.Text))
		},
	},
	{
		RuleID:      "GCP_STORAGE_PUBLIC",
		Type:        "GCP Storage Public Access",
		Severity:    models.SeverityHigh,
		Description: "Cloud Storage bucket is publicly accessible.",
		Location:    "Storage IAM",
		When:        All(Contains("storage.googleapis.com"), Match(publicMember)),
	},
	{
		RuleID:      "GCP_FIREWALL_OPEN",
		Type:        "GCP VPC Firewall Open",
		Severity:    models.SeverityHigh,
		Description: "VPC firewall rule allows traffic from any IP (0.0.0.0/0).",
		Location:    "VPC Firewall Rule",
		When: All(
			Match(`(?i)"allowed"`),
			Match(`(?i)"sourceRanges"\s*:\s*\[[^\]]*"0\.0\.0\.0/0"`),
		),
	},
}

// GCPRules returns the GCP service account and IAM detector group.
func GCPRules() []Rule { return group(DomainGCP, gcpScope, gcpDetectors) }

package rules

import "github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/models"

const wildcardSourcePrefix = `(?i)"sourceAddressPrefix"\s*:\s*"\*"`

// Azure detectors run for azure documents and for any structured document
// with NSG or Azure resource signatures.
var azureScope = All(
	Structured(),
	Any(
		TypeIs(models.ConfigTypeAzure),
		Contains("securityRules", "NSG", "azure", "Microsoft.Network"),
	),
)

var azureDetectors = []PatternRule{
	{
		RuleID:      "AZURE_OPEN_SOURCE",
		Type:        "Azure Open Source",
		Severity:    models.SeverityHigh,
		Description: `Source address is "*" or 0.0.0.0/0.`,
		Location:    "Security Rule",
		When: Any(
			Match(`(?i)"sourceAddressPrefix"\s*:\s*"(\*|0\.0\.0\.0/0)"`),
			Match(`(?i)"sourceAddressPrefixes"\s*:\s*\[[^\]]*0\.0\.0\.0`),
		),
	},
	{
		RuleID:      "AZURE_OPEN_IP_RANGE",
		Type:        "Azure Open IP Range",
		Severity:    models.SeverityHigh,
		Description: "An IP range is open to 0.0.0.0/0 or ::/0.",
		Location:    "Security Rule",
		When:        Match(openCIDR),
	},
	{
		RuleID:      "AZURE_ALLOW_ALL",
		Type:        "Azure Allow All",
		Severity:    models.SeverityHigh,
		Description: "A rule allows access from every source.",
		Location:    "Security Rule",
		When:        MatchCompact(`(?i)access.*allow.*sourceAddressPrefix.*\*`),
	},
	{
		RuleID:      "AZURE_STORAGE_PUBLIC",
		Type:        "Azure Storage Public Access",
		Severity:    models.SeverityHigh,
		Description: "Storage account allows public blob or container access.",
		Location:    "Storage Account Configuration",
		When: All(
			Contains("Microsoft.Storage"),
			Match(`"allowBlobPublicAccess"\s*:\s*true|"publicAccess"\s*:\s*"(Blob|Container)"`),
		),
	},
	{
		RuleID:      "AZURE_KEYVAULT_PERMISSIVE",
		Type:        "Azure Key Vault Overly Permissive",
		Severity:    models.SeverityHigh,
		Description: `Key Vault access policy grants "all" key or secret permissions.`,
		Location:    "Key Vault Access Policy",
		When: All(
			Contains("Microsoft.KeyVault"),
			Match(`(?is)"permissions"\s*:\s*\{.*?"(keys|secrets)"\s*:\s*\[[^\]]*"all"`),
		),
	},
	{
		RuleID:      "AZURE_RBAC_HIGH_PRIVILEGE",
		Type:        "Azure RBAC High Privilege",
		Severity:    models.SeverityHigh,
		Description: "Owner or Contributor role is assigned, granting excessive privileges.",
		Location:    "RBAC Assignment",
		When: All(
			Contains("Microsoft.Authorization"),
			Match(`(?i)"roleDefinitionName"\s*:\s*"(Owner|Contributor)"`),
		),
	},
	{
		RuleID:      "AZURE_NSG_OPEN_PORTS",
		Type:        "Azure NSG Open Port Range",
		Severity:    models.SeverityHigh,
		Description: "NSG rule allows every destination port (*).",
		Location:    "Security Rule",
		When: Any(
			Match(`(?i)"destinationPortRange"\s*:\s*"\*"`),
			Match(`"destinationPortRanges"\s*:\s*\[[^\]]*"0-65535"`),
		),
	},
	{
		RuleID:      "AZURE_NSG_ANY_PROTOCOL",
		Type:        "Azure NSG Any Protocol",
		Severity:    models.SeverityMedium,
		Description: "NSG rule allows every protocol (*).",
		Location:    "Security Rule",
		When: All(
			Match(`(?i)"protocol"\s*:\s*"\*"`),
			Match(`(?i)"access"\s*:\s*"Allow"`),
		),
	},
	{
		RuleID:      "AZURE_NSG_NO_PRIORITY",
		Type:        "Azure NSG No Priority",
		Severity:    models.SeverityLow,
		Description: "Inbound rule from any source has no priority set.",
		Location:    "Security Rule",
		When: All(
			Match(`(?i)"direction"\s*:\s*"Inbound"`),
			Match(wildcardSourcePrefix),
			Not(Contains(`"priority"`)),
		),
	},
}

// AzureRules returns the Azure NSG and resource detector group.
func AzureRules() []Rule { return group(DomainAzure, azureScope, azureDetectors) }

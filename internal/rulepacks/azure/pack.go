// Package azure provides the Azure NSG, storage, Key Vault and RBAC rule pack.
package azure

import "github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/rules"

func New() []rules.Rule {
	return rules.AzureRules()
}

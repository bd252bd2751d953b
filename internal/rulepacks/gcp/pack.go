// Package gcp provides the GCP service account and IAM binding rule pack.
package gcp

import "github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/rules"

// New returns the GCP rule pack.
func New() []rules.Rule {
	return rules.GCPRules()
}

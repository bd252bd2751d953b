// Package aws_iam provides the IAM policy document rule pack.
package aws_iam

import "github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/rules"

// New returns the IAM rule pack. HIGH rules (wildcard action/resource,
// admin policy, PassRole, AssumeRole) come first, then MEDIUM.
func New() []rules.Rule {
	return rules.AWSIAMRules()
}

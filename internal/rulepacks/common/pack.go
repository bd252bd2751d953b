// Package common provides the dialect-independent secret exposure rule pack.
// It runs against every structured document regardless of config type.
package common

import "github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/rules"

func New() []rules.Rule {
	return rules.CommonRules()
}

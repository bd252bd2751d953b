// Package fallback provides the string-only rule pack used when an input
// could not be decoded into a structured document.
package fallback

import "github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/rules"

func New() []rules.Rule {
	return rules.FallbackRules()
}

// Package policy loads the cmc.policy.yaml file and applies its rule
// toggles, severity overrides, thresholds and enforcement gates to findings.
package policy

// DefaultFileName is the policy file looked up in the working directory when
// no explicit path is configured.
const DefaultFileName = "cmc.policy.yaml"

// AllDomains is the enforcement key that applies to every detector group.
const AllDomains = "all"

type PolicyConfig struct {
	Version     int                          `yaml:"version"`
	Domains     map[string]DomainConfig      `yaml:"domains"`
	Rules       map[string]RuleConfig        `yaml:"rules"`
	Enforcement map[string]EnforcementConfig `yaml:"enforcement"`
}

type DomainConfig struct {
	// Enabled defaults to true when omitted.
	Enabled     *bool  `yaml:"enabled,omitempty"`
	MinSeverity string `yaml:"min_severity,omitempty"`
}

type RuleConfig struct {
	Enabled  *bool              `yaml:"enabled,omitempty"`
	Severity string             `yaml:"severity,omitempty"`
	Params   map[string]float64 `yaml:"params,omitempty"`
}

type EnforcementConfig struct {
	FailOnSeverity string `yaml:"fail_on_severity"`
}

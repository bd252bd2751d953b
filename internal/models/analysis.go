package models

import "encoding/json"

// AnalysisResult is the canonical output of the deep-analysis stage.
// Every field is populated before the value leaves the analysis package.
type AnalysisResult struct {
	RiskLevel        Severity `json:"riskLevel"`
	KeyMisconfigs    []string `json:"keyMisconfigs"`
	PotentialThreats []string `json:"potentialThreats"`

	// PatchedConfig is a document-shaped JSON value: an object or array for
	// structured inputs, a JSON string when the input was raw text.
	PatchedConfig json.RawMessage `json:"patchedConfig"`

	// Degraded is set when the upstream response could not be parsed and the
	// result was synthesized locally.
	Degraded bool `json:"degraded,omitempty"`
}

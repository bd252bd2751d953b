package policy

// Numeric rule params a policy file may set under rules.<ID>.params.
const (
	// ParamMaxRoles is the distinct role count GCP_EXCESSIVE_ROLES tolerates.
	ParamMaxRoles = "max_roles"
	// ParamMaxIPs is the IPv4 literal count COMMON_HARDCODED_IPS tolerates.
	ParamMaxIPs = "max_ips"
)

// RuleParams lists the params each thresholded rule reads. Validate rejects
// params not listed here.
var RuleParams = map[string][]string{
	"GCP_EXCESSIVE_ROLES":  {ParamMaxRoles},
	"COMMON_HARDCODED_IPS": {ParamMaxIPs},
}

func knownParam(ruleID, key string) bool {
	for _, p := range RuleParams[ruleID] {
		if p == key {
			return true
		}
	}
	return false
}

// GetThreshold returns rules.<ruleID>.params.<key> from cfg, or defaultValue
// when cfg is nil or the rule or param is absent.
func GetThreshold(ruleID, key string, defaultValue float64, cfg *PolicyConfig) float64 {
	if cfg == nil {
		return defaultValue
	}
	if v, ok := cfg.Rules[ruleID].Params[key]; ok {
		return v
	}
	return defaultValue
}

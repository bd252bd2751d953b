package rules

import (
	"testing"

	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/models"
)

func TestFallbackRules_RawText(t *testing.T) {
	findings := evalGroup(FallbackRules(), models.ConfigTypeUnknown, "Allow * to everyone on the bucket", nil)
	assertExactly(t, findings, "FALLBACK_WILDCARD_GRANT")

	f := findings[0]
	if f.Type != "Potential Misconfig" || f.Severity != models.SeverityMedium || f.Location != "Unknown" {
		t.Errorf("unexpected finding: %+v", f)
	}
}

func TestFallbackRules_Credentials(t *testing.T) {
	for _, text := range []string{
		`password = "hunter2" and nothing else parses`,
		`{broken secret: 'abc123'`,
		`API-KEY="sk-test-123" {`,
	} {
		findings := evalGroup(FallbackRules(), models.ConfigTypeUnknown, text, nil)
		assertFired(t, findings, "FALLBACK_HARDCODED_CREDENTIALS")
	}
}

func TestFallbackRules_StructuredSkipped(t *testing.T) {
	findings := evalGroup(FallbackRules(), models.ConfigTypeUnknown, `{"note":"allow *","password":"x"}`, nil)
	if len(findings) != 0 {
		t.Errorf("fallback group must skip structured documents, got %v", ruleIDs(findings))
	}
}

package rules

import (
	"sort"
	"testing"

	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/models"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/normalize"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/policy"
)

// evalGroup runs every rule of a group against text decoded as a document of
// type t.
func evalGroup(rs []Rule, t models.ConfigType, text string, cfg *policy.PolicyConfig) []models.Finding {
	ctx := NewRuleContext(t, normalize.Decode(text), cfg)
	var out []models.Finding
	for _, r := range rs {
		out = append(out, r.Evaluate(ctx)...)
	}
	return out
}

func ruleIDs(findings []models.Finding) []string {
	ids := make([]string, 0, len(findings))
	for _, f := range findings {
		ids = append(ids, f.RuleID)
	}
	sort.Strings(ids)
	return ids
}

func findByID(findings []models.Finding, id string) (models.Finding, bool) {
	for _, f := range findings {
		if f.RuleID == id {
			return f, true
		}
	}
	return models.Finding{}, false
}

func assertFired(t *testing.T, findings []models.Finding, ids ...string) {
	t.Helper()
	for _, id := range ids {
		if _, ok := findByID(findings, id); !ok {
			t.Errorf("expected %s to fire; got %v", id, ruleIDs(findings))
		}
	}
}

func assertNotFired(t *testing.T, findings []models.Finding, ids ...string) {
	t.Helper()
	for _, id := range ids {
		if _, ok := findByID(findings, id); ok {
			t.Errorf("expected %s not to fire; got %v", id, ruleIDs(findings))
		}
	}
}

func assertExactly(t *testing.T, findings []models.Finding, ids ...string) {
	t.Helper()
	want := append([]string(nil), ids...)
	sort.Strings(want)
	got := ruleIDs(findings)
	if len(got) != len(want) {
		t.Fatalf("fired %v; want %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("fired %v; want %v", got, want)
		}
	}
}

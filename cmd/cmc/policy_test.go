package main

import (
	"strings"
	"testing"
)

func TestPolicyValidateCmd_OK(t *testing.T) {
	dir := isolateEnv(t)
	writeFile(t, dir, "cmc.policy.yaml", `version: 1
domains:
  common:
    min_severity: Medium
rules:
  IAM_NO_PERMISSIONS_BOUNDARY:
    enabled: false
  GCP_EXCESSIVE_ROLES:
    params:
      max_roles: 8
enforcement:
  all:
    fail_on_severity: Critical
`)

	out, _, err := execute(t, newTestApp(goodMockAWS(), goodMockKube()), "", "policy", "validate")
	if err != nil {
		t.Fatalf("validate returned error: %v", err)
	}
	if strings.TrimSpace(out) != "cmc.policy.yaml: OK" {
		t.Errorf("got %q", out)
	}
}

func TestPolicyValidateCmd_Errors(t *testing.T) {
	dir := isolateEnv(t)
	path := writeFile(t, dir, "p.yaml", `version: 1
domains:
  kubernetes:
    enabled: true
rules:
  IAM_FULL_ACCESS:
    severity: urgent
`)

	out, _, err := execute(t, newTestApp(goodMockAWS(), goodMockKube()), "", "policy", "validate", path)
	if exitCode(err) != ExitInvalidInput {
		t.Fatalf("exit code: got %d (%v); want %d", exitCode(err), err, ExitInvalidInput)
	}
	for _, want := range []string{"domains.kubernetes: unknown domain", `rules.IAM_FULL_ACCESS.severity: invalid value "urgent"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q;\ngot:\n%s", want, out)
		}
	}
}

func TestPolicyValidateCmd_Missing(t *testing.T) {
	isolateEnv(t)

	_, _, err := execute(t, newTestApp(goodMockAWS(), goodMockKube()), "", "policy", "validate")
	if exitCode(err) != ExitInvalidInput {
		t.Errorf("missing policy: exit %d (%v); want %d", exitCode(err), err, ExitInvalidInput)
	}
}

func TestPolicyRulesCmd(t *testing.T) {
	isolateEnv(t)

	out, _, err := execute(t, newTestApp(goodMockAWS(), goodMockKube()), "", "policy", "rules")
	if err != nil {
		t.Fatalf("rules returned error: %v", err)
	}
	for _, want := range []string{"aws_iam:\n", "  IAM_FULL_ACCESS\n", "gcp:\n", "  GCP_SA_KEY_EXPOSED\n", "fallback:\n"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

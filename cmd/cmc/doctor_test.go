package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/config"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/policy"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/providers/aws/common"
	kube "github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/providers/kubernetes"
)

func configuredLLM() config.LLMConfig {
	c := config.Default().LLM
	c.APIKey = "sk-test"
	return c
}

// runDoctorInTmp runs runDoctor from a fresh temp directory (no policy file)
// and returns the captured output, the DoctorResult and any rendering error.
func runDoctorInTmp(t *testing.T, awsP common.AWSClientProvider, kubeP kube.KubeClientProvider, format string, require ...string) (string, DoctorResult, error) {
	t.Helper()
	isolateEnv(t)

	var buf bytes.Buffer
	result, err := runDoctor(context.Background(), doctorOptions{
		aws:        awsP,
		kube:       kubeP,
		policyPath: policy.DefaultFileName,
		llm:        configuredLLM(),
		require:    require,
	}, &buf, format)
	return buf.String(), result, err
}

// ── table format tests ────────────────────────────────────────────────────────

func TestDoctorAllOK(t *testing.T) {
	out, result, err := runDoctorInTmp(t, goodMockAWS(), goodMockKube(), "table", checkAWS, checkKubernetes, checkLLM)
	if err != nil {
		t.Fatalf("unexpected render error: %v", err)
	}
	if !result.OverallHealthy {
		t.Error("expected OverallHealthy=true")
	}
	for _, want := range []string{
		"Credentials: OK",
		"STS Identity: OK (Account: 123456789012)",
		"Kubeconfig: OK",
		"Current Context: OK (prod-eks)",
		"API Reachable: OK",
		"Provider: OK (openai)",
		"Overall: HEALTHY (required: aws, kubernetes, llm)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q;\ngot:\n%s", want, out)
		}
	}
}

func TestDoctorAWSCredentialsFail(t *testing.T) {
	awsP := &mockAWSProvider{profileErr: errors.New("no credentials configured")}

	out, result, err := runDoctorInTmp(t, awsP, goodMockKube(), "table")
	if err != nil {
		t.Fatalf("unexpected render error: %v", err)
	}
	if !result.OverallHealthy {
		t.Error("AWS is optional unless required")
	}
	if !strings.Contains(out, "Credentials: FAIL (no credentials configured)") {
		t.Errorf("expected 'Credentials: FAIL'; got:\n%s", out)
	}

	_, result, _ = runDoctorInTmp(t, awsP, goodMockKube(), "table", checkAWS)
	if result.OverallHealthy {
		t.Error("expected OverallHealthy=false with --require aws")
	}
}

func TestDoctorKubernetesFail(t *testing.T) {
	out, result, err := runDoctorInTmp(t, goodMockAWS(), &failKubeProvider{}, "table", checkKubernetes)
	if err != nil {
		t.Fatalf("unexpected render error: %v", err)
	}
	if result.OverallHealthy {
		t.Error("expected OverallHealthy=false")
	}
	if !strings.Contains(out, "Kubeconfig: FAIL") {
		t.Errorf("expected 'Kubeconfig: FAIL'; got:\n%s", out)
	}
}

func TestDoctorPolicyMissing(t *testing.T) {
	out, result, err := runDoctorInTmp(t, goodMockAWS(), goodMockKube(), "table")
	if err != nil {
		t.Fatalf("unexpected render error: %v", err)
	}
	if !result.OverallHealthy {
		t.Error("expected OverallHealthy=true (missing policy is not a failure)")
	}
	if !strings.Contains(out, "cmc.policy.yaml present: Not found (optional)") {
		t.Errorf("expected 'Not found (optional)'; got:\n%s", out)
	}
}

func TestDoctorPolicyInvalid(t *testing.T) {
	dir := isolateEnv(t)
	path := writeFile(t, dir, "cmc.policy.yaml", "version: 1\nrules:\n  NOT_A_RULE:\n    enabled: false\n")

	var buf bytes.Buffer
	result, err := runDoctor(context.Background(), doctorOptions{
		aws:        goodMockAWS(),
		kube:       goodMockKube(),
		policyPath: path,
		llm:        configuredLLM(),
	}, &buf, "table")
	if err != nil {
		t.Fatalf("unexpected render error: %v", err)
	}
	if result.OverallHealthy || result.Policy.Valid || !result.Policy.Present {
		t.Errorf("invalid policy must make the environment unhealthy; got %+v", result.Policy)
	}
	if !strings.Contains(buf.String(), "Policy valid: FAIL (rules.NOT_A_RULE: unknown rule ID)") {
		t.Errorf("expected the validation error; got:\n%s", buf.String())
	}
}

func TestDoctorLLMNotConfigured(t *testing.T) {
	isolateEnv(t)
	var buf bytes.Buffer
	result, err := runDoctor(context.Background(), doctorOptions{
		aws:        goodMockAWS(),
		kube:       goodMockKube(),
		policyPath: policy.DefaultFileName,
		llm:        config.Default().LLM,
		require:    []string{checkLLM},
	}, &buf, "table")
	if err != nil {
		t.Fatalf("unexpected render error: %v", err)
	}
	if result.OverallHealthy || result.LLM.Configured {
		t.Error("missing API key must fail --require llm")
	}
	if !strings.Contains(buf.String(), "Provider: FAIL (no API key") {
		t.Errorf("expected the missing key message; got:\n%s", buf.String())
	}
}

func TestDoctorDiscoversProfiles(t *testing.T) {
	dir := isolateEnv(t)
	writeFile(t, dir, "aws-credentials", "[default]\naws_access_key_id = x\n\n[prod]\naws_access_key_id = y\n")

	var buf bytes.Buffer
	result, _ := runDoctor(context.Background(), doctorOptions{
		aws:        goodMockAWS(),
		kube:       goodMockKube(),
		policyPath: filepath.Join(dir, policy.DefaultFileName),
		llm:        configuredLLM(),
	}, &buf, "table")
	if strings.Join(result.AWS.Profiles, ",") != "default,prod" {
		t.Errorf("profiles: got %v", result.AWS.Profiles)
	}
	if !strings.Contains(buf.String(), "Profiles: OK (default, prod)") {
		t.Errorf("expected the profile list; got:\n%s", buf.String())
	}
}

// ── json format tests ─────────────────────────────────────────────────────────

func TestDoctorJSON(t *testing.T) {
	out, _, err := runDoctorInTmp(t, goodMockAWS(), goodMockKube(), "json")
	if err != nil {
		t.Fatalf("unexpected render error: %v", err)
	}
	var decoded DoctorResult
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, out)
	}
	if !decoded.AWS.Credentials || decoded.AWS.AccountID != "123456789012" {
		t.Errorf("aws section: %+v", decoded.AWS)
	}
	if !decoded.Kubernetes.APIReachable || decoded.Kubernetes.Context != "prod-eks" {
		t.Errorf("kubernetes section: %+v", decoded.Kubernetes)
	}
	if !decoded.LLM.Configured || decoded.LLM.Model != "gpt-4o-mini" {
		t.Errorf("llm section: %+v", decoded.LLM)
	}
	if !decoded.OverallHealthy {
		t.Error("expected overall_healthy=true")
	}
}

// ── command tests ─────────────────────────────────────────────────────────────

func TestDoctorCmd_ProfileAndContextForwarded(t *testing.T) {
	isolateEnv(t)
	awsP := goodMockAWS()
	kubeP := goodMockKube()

	_, _, err := execute(t, newTestApp(awsP, kubeP), "", "doctor", "--profile", "staging", "--context", "dev")
	if err != nil {
		t.Fatalf("doctor returned error: %v", err)
	}
	if awsP.lastProfile != "staging" {
		t.Errorf("profile: got %q; want staging", awsP.lastProfile)
	}
	if kubeP.calledWithCtx != "dev" {
		t.Errorf("context: got %q; want dev", kubeP.calledWithCtx)
	}
}

func TestDoctorCmd_UnhealthyExitCode(t *testing.T) {
	isolateEnv(t)

	_, _, err := execute(t, newTestApp(goodMockAWS(), &failKubeProvider{}), "", "doctor", "--require", "kubernetes")
	var uerr *UnhealthyError
	if !errors.As(err, &uerr) {
		t.Fatalf("want UnhealthyError; got %v", err)
	}
	if exitCode(err) != ExitPolicyFail {
		t.Errorf("exit code: got %d; want %d", exitCode(err), ExitPolicyFail)
	}
}

func TestDoctorCmd_InvalidRequire(t *testing.T) {
	isolateEnv(t)

	_, _, err := execute(t, newTestApp(goodMockAWS(), goodMockKube()), "", "doctor", "--require", "gcp")
	if exitCode(err) != ExitInvalidInput {
		t.Errorf("exit code: got %d (%v); want %d", exitCode(err), err, ExitInvalidInput)
	}
}

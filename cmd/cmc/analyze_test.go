package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/config"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/llm"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/models"
)

const analysisContent = `{"riskLevel":"High","keyMisconfigs":["Action * grants every permission"],` +
	`"potentialThreats":["Privilege escalation"],` +
	`"patchedConfig":{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Action":"s3:GetObject","Resource":"arn:aws:s3:::site/*"}]}}`

// fakeLLM answers every completion with content, or fails with err.
type fakeLLM struct {
	content string
	err     error
	calls   int
}

func (f *fakeLLM) Complete(context.Context, llm.ChatRequest) (string, error) {
	f.calls++
	return f.content, f.err
}

func (f *fakeLLM) IsAvailable() bool { return true }

func withLLM(a *app, client llm.LLMClient) *app {
	a.newLLMClient = func(config.LLMConfig) llm.LLMClient { return client }
	return a
}

func TestAnalyzeCmd_Table(t *testing.T) {
	dir := isolateEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	path := writeFile(t, dir, "policy.json", adminPolicy)
	client := &fakeLLM{content: analysisContent}

	out, _, err := execute(t, withLLM(newTestApp(goodMockAWS(), goodMockKube()), client), "", "analyze", path)
	if err != nil {
		t.Fatalf("analyze returned error: %v", err)
	}
	if client.calls != 1 {
		t.Errorf("want exactly one upstream call; got %d", client.calls)
	}
	for _, want := range []string{
		"IAM_FULL_ACCESS",
		"DEEP ANALYSIS",
		"Risk Level: High",
		"1. Privilege escalation",
		`"Action": "s3:GetObject"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q;\ngot:\n%s", want, out)
		}
	}
}

func TestAnalyzeCmd_JSONAndPatchedOut(t *testing.T) {
	dir := isolateEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	path := writeFile(t, dir, "policy.json", adminPolicy)
	outPath := filepath.Join(dir, "hardened.json")

	out, stderr, err := execute(t, withLLM(newTestApp(goodMockAWS(), goodMockKube()), &fakeLLM{content: analysisContent}), "",
		"analyze", "--format", "json", "--patched-out", outPath, path)
	if err != nil {
		t.Fatalf("analyze returned error: %v", err)
	}

	var payload struct {
		Report   models.ScanReport     `json:"report"`
		Analysis models.AnalysisResult `json:"analysis"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("stdout is not JSON: %v\n%s", err, out)
	}
	if payload.Report.Summary.TotalFindings != 5 || payload.Analysis.RiskLevel != models.SeverityHigh {
		t.Errorf("unexpected payload: %+v", payload)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("patched config not written: %v", err)
	}
	if !strings.Contains(string(data), "s3:GetObject") {
		t.Errorf("unexpected patched config:\n%s", data)
	}
	if !strings.Contains(stderr, "Patched configuration written to "+outPath) {
		t.Errorf("stderr missing write notice; got %q", stderr)
	}

	input, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(input) != adminPolicy {
		t.Error("input document must not be modified")
	}
	if _, err := os.Stat(filepath.Join(dir, "patched-aws-iam-1768478400.json")); err == nil {
		t.Error("--patched-out with a path must not use the default name")
	}
}

func TestAnalyzeCmd_PatchedOutDefaultName(t *testing.T) {
	dir := isolateEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	path := writeFile(t, dir, "policy.json", adminPolicy)

	_, _, err := execute(t, withLLM(newTestApp(goodMockAWS(), goodMockKube()), &fakeLLM{content: analysisContent}), "",
		"analyze", path, "--patched-out-auto")
	if err != nil {
		t.Fatalf("analyze returned error: %v", err)
	}
	// 2026-01-15T12:00:00Z from the test clock.
	if _, err := os.Stat(filepath.Join(dir, "patched-aws-iam-1768478400.json")); err != nil {
		t.Errorf("default patched file missing: %v", err)
	}
}

func TestAnalyzeCmd_PatchedOutFlagsExclusive(t *testing.T) {
	dir := isolateEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	path := writeFile(t, dir, "policy.json", adminPolicy)
	client := &fakeLLM{content: analysisContent}

	_, _, err := execute(t, withLLM(newTestApp(goodMockAWS(), goodMockKube()), client), "",
		"analyze", "--patched-out", filepath.Join(dir, "out.json"), "--patched-out-auto", path)
	if exitCode(err) != ExitInvalidInput {
		t.Fatalf("want exit %d; got %d (%v)", ExitInvalidInput, exitCode(err), err)
	}
	if client.calls != 0 {
		t.Errorf("no upstream call expected; got %d", client.calls)
	}
}

func TestAnalyzeCmd_NotConfigured(t *testing.T) {
	dir := isolateEnv(t)
	path := writeFile(t, dir, "policy.json", adminPolicy)
	client := &fakeLLM{content: analysisContent}

	out, _, err := execute(t, withLLM(newTestApp(goodMockAWS(), goodMockKube()), client), "", "analyze", path)
	if !errors.Is(err, llm.ErrServiceNotConfigured) {
		t.Fatalf("want ErrServiceNotConfigured; got %v", err)
	}
	if exitCode(err) != ExitInvalidInput {
		t.Errorf("exit code: got %d; want %d", exitCode(err), ExitInvalidInput)
	}
	if client.calls != 0 {
		t.Errorf("no upstream call expected without an API key; got %d", client.calls)
	}
	if !strings.Contains(out, "IAM_FULL_ACCESS") {
		t.Errorf("findings must still be printed; got:\n%s", out)
	}
}

func TestAnalyzeCmd_UpstreamError(t *testing.T) {
	dir := isolateEnv(t)
	path := writeFile(t, dir, "policy.json", adminPolicy)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided"}}`))
	}))
	defer srv.Close()

	t.Setenv("OPENAI_API_KEY", "sk-bad")
	t.Setenv("CMC_LLM_BASE_URL", srv.URL)

	_, _, err := execute(t, newTestApp(goodMockAWS(), goodMockKube()), "", "analyze", path)
	var upstream *llm.UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("want *llm.UpstreamError; got %v", err)
	}
	if upstream.StatusCode != http.StatusUnauthorized {
		t.Errorf("status: got %d; want 401", upstream.StatusCode)
	}
	if exitCode(err) != ExitRuntimeError {
		t.Errorf("exit code: got %d; want %d", exitCode(err), ExitRuntimeError)
	}
}

func TestAnalyzeCmd_RequiresOneDocument(t *testing.T) {
	dir := isolateEnv(t)
	path := writeFile(t, dir, "policy.json", adminPolicy)

	_, _, err := execute(t, newTestApp(goodMockAWS(), goodMockKube()), "", "analyze", path, "--text", adminPolicy)
	if exitCode(err) != ExitInvalidInput {
		t.Errorf("file plus --text: exit %d (%v); want %d", exitCode(err), err, ExitInvalidInput)
	}
}

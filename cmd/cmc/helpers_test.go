package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	k8sclient "k8s.io/client-go/kubernetes"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/providers/aws/common"
	kube "github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/providers/kubernetes"
)

const adminPolicy = `{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Action":"*","Resource":"*"}]}`

// ── AWS mock ──────────────────────────────────────────────────────────────────

type mockAWSProvider struct {
	profileResult *common.ProfileConfig
	profileErr    error
	lastProfile   string // records the profile name passed to LoadProfile
	lastRegion    string // records the region passed to ClientsForRegion
}

func (m *mockAWSProvider) LoadProfile(_ context.Context, profile string) (*common.ProfileConfig, error) {
	m.lastProfile = profile
	return m.profileResult, m.profileErr
}

func (m *mockAWSProvider) LoadAllProfiles(_ context.Context) ([]*common.ProfileConfig, error) {
	if m.profileResult != nil {
		return []*common.ProfileConfig{m.profileResult}, nil
	}
	return nil, m.profileErr
}

func (m *mockAWSProvider) ConfigForRegion(_ *common.ProfileConfig, region string) aws.Config {
	return aws.Config{Region: region}
}

func (m *mockAWSProvider) ClientsForRegion(cfg *common.ProfileConfig, region string) *common.ClientSet {
	m.lastRegion = region
	return cfg.Clients
}

// fakeIAM serves role trust policies by role name.
type fakeIAM struct {
	trust map[string]string
}

func (f *fakeIAM) GetPolicy(context.Context, *iam.GetPolicyInput, ...func(*iam.Options)) (*iam.GetPolicyOutput, error) {
	return nil, errors.New("NoSuchEntity")
}

func (f *fakeIAM) GetPolicyVersion(context.Context, *iam.GetPolicyVersionInput, ...func(*iam.Options)) (*iam.GetPolicyVersionOutput, error) {
	return nil, errors.New("NoSuchEntity")
}

func (f *fakeIAM) GetRole(_ context.Context, in *iam.GetRoleInput, _ ...func(*iam.Options)) (*iam.GetRoleOutput, error) {
	doc, ok := f.trust[aws.ToString(in.RoleName)]
	if !ok {
		return nil, errors.New("NoSuchEntity: role not found")
	}
	return &iam.GetRoleOutput{Role: &iamtypes.Role{AssumeRolePolicyDocument: aws.String(doc)}}, nil
}

func goodMockAWS() *mockAWSProvider {
	return &mockAWSProvider{
		profileResult: &common.ProfileConfig{
			ProfileName: "default",
			AccountID:   "123456789012",
			Region:      "us-east-1",
			Clients:     &common.ClientSet{IAM: &fakeIAM{}},
		},
	}
}

// ── Kubernetes mocks ──────────────────────────────────────────────────────────

// testKubeProvider implements kube.KubeClientProvider backed by a pre-built
// fake clientset. It records the context name passed to ClientsetForContext so
// tests can assert the flag is forwarded correctly.
type testKubeProvider struct {
	clientset     k8sclient.Interface
	info          kube.ClusterInfo
	calledWithCtx string
}

func (p *testKubeProvider) ClientsetForContext(contextName string) (k8sclient.Interface, kube.ClusterInfo, error) {
	p.calledWithCtx = contextName
	return p.clientset, p.info, nil
}

type failKubeProvider struct{}

func (p *failKubeProvider) ClientsetForContext(_ string) (k8sclient.Interface, kube.ClusterInfo, error) {
	return nil, kube.ClusterInfo{}, errors.New("kubeconfig not found")
}

func goodMockKube() *testKubeProvider {
	return &testKubeProvider{
		clientset: fake.NewSimpleClientset(),
		info:      kube.ClusterInfo{ContextName: "prod-eks"},
	}
}

// ── helpers ───────────────────────────────────────────────────────────────────

// isolateEnv points every config, credential and kubeconfig lookup at an
// empty temp directory and makes it the working directory.
func isolateEnv(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmp, "xdg"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(tmp, "aws-credentials"))
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(tmp, "aws-config"))
	t.Setenv("KUBECONFIG", filepath.Join(tmp, "kubeconfig"))
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("CMC_LLM_API_KEY", "")
	t.Setenv("NO_COLOR", "")
	t.Chdir(tmp)
	return tmp
}

// newTestApp returns an app wired to the given fakes with a fixed clock.
func newTestApp(awsP common.AWSClientProvider, kubeP kube.KubeClientProvider) *app {
	a := newApp()
	a.awsProvider = func(string) common.AWSClientProvider { return awsP }
	a.kubeProvider = func(string) kube.KubeClientProvider { return kubeP }
	a.isTerminal = func(io.Writer) bool { return false }
	a.now = func() time.Time { return time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC) }
	return a
}

// execute runs the root command with args and returns stdout, stderr and the
// command error.
func execute(t *testing.T, a *app, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmdFor(a)
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

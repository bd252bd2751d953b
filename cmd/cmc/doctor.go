package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/config"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/engine"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/policy"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/providers/aws/common"
	kube "github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/providers/kubernetes"
)

// Checks that --require can make mandatory. The policy check always is.
const (
	checkAWS        = "aws"
	checkKubernetes = "kubernetes"
	checkLLM        = "llm"
)

// DoctorResult is the structured output of cmc doctor. It can be serialised to
// JSON via --format=json or rendered as a human-readable table (default).
type DoctorResult struct {
	Config struct {
		Path string `json:"path,omitempty"`
	} `json:"config"`

	AWS struct {
		Profile     string   `json:"profile,omitempty"`
		Profiles    []string `json:"profiles,omitempty"`
		Credentials bool     `json:"credentials_ok"`
		AccountID   string   `json:"account_id,omitempty"`
		Region      string   `json:"region,omitempty"`
		Error       string   `json:"error,omitempty"`
	} `json:"aws"`

	Kubernetes struct {
		KubeconfigOK bool   `json:"kubeconfig_ok"`
		Context      string `json:"context,omitempty"`
		APIReachable bool   `json:"api_reachable"`
		Error        string `json:"error,omitempty"`
	} `json:"kubernetes"`

	Policy struct {
		Path    string   `json:"path"`
		Present bool     `json:"present"`
		Valid   bool     `json:"valid"`
		Errors  []string `json:"errors,omitempty"`
	} `json:"policy"`

	LLM struct {
		Provider   string `json:"provider"`
		Model      string `json:"model,omitempty"`
		BaseURL    string `json:"base_url,omitempty"`
		Configured bool   `json:"configured"`
		Error      string `json:"error,omitempty"`
	} `json:"llm"`

	Required       []string `json:"required,omitempty"`
	OverallHealthy bool     `json:"overall_healthy"`
}

// doctorOptions carries everything collectDoctorResult inspects.
type doctorOptions struct {
	aws         common.AWSClientProvider
	kube        kube.KubeClientProvider
	profile     string
	kubeContext string
	policyPath  string
	configPath  string
	llm         config.LLMConfig
	require     []string
}

func newDoctorCmd(a *app) *cobra.Command {
	var (
		format      string
		profile     string
		kubeContext string
		kubeconfig  string
		require     []string
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run environment diagnostics",
		Long: `Check the configuration, AWS credentials, Kubernetes access, the policy file and
the LLM settings.

Only the policy check fails the command by default; name the live sources and
features you depend on with --require (aws, kubernetes, llm).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, r := range require {
				switch r {
				case checkAWS, checkKubernetes, checkLLM:
				default:
					return invalidf("invalid --require %q (must be aws, kubernetes or llm)", r)
				}
			}
			if profile == "" {
				profile = a.cfg.AWS.DefaultProfile
			}
			policyPath := a.cfg.PolicyPath
			if policyPath == "" {
				policyPath = policy.DefaultFileName
			}

			result, err := runDoctor(cmd.Context(), doctorOptions{
				aws:         a.awsProvider(a.cfg.AWS.DefaultRegion),
				kube:        a.kubeProvider(kubeconfig),
				profile:     profile,
				kubeContext: kubeContext,
				policyPath:  policyPath,
				configPath:  a.configPath,
				llm:         a.cfg.LLM,
				require:     require,
			}, cmd.OutOrStdout(), format)
			if err != nil {
				return err
			}
			if !result.OverallHealthy {
				return &UnhealthyError{}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "table", `Output format: "table" or "json"`)
	cmd.Flags().StringVar(&profile, "profile", "", "AWS profile to use (default: aws.default_profile, then the credential chain)")
	cmd.Flags().StringVar(&kubeContext, "context", "", "kubeconfig context (default: current context)")
	cmd.Flags().StringVar(&kubeconfig, "kubeconfig", "", "kubeconfig path (default: $KUBECONFIG or ~/.kube/config)")
	cmd.Flags().StringSliceVar(&require, "require", nil, "checks that must pass: aws, kubernetes, llm")
	return cmd
}

// runDoctor collects all diagnostic results, renders them to w in the
// requested format, and returns the result.
// The returned error covers only rendering failures (e.g. JSON encode error).
// Callers must inspect result.OverallHealthy to determine whether the
// environment is healthy.
func runDoctor(ctx context.Context, opts doctorOptions, w io.Writer, format string) (DoctorResult, error) {
	result := collectDoctorResult(ctx, opts)

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return result, fmt.Errorf("encode doctor result: %w", err)
		}
	default:
		renderDoctorTable(result, w)
	}

	return result, nil
}

// collectDoctorResult runs all environment checks and populates a DoctorResult.
// It performs no rendering; callers decide how to present the result.
func collectDoctorResult(ctx context.Context, opts doctorOptions) DoctorResult {
	var result DoctorResult
	result.Config.Path = opts.configPath
	result.Required = opts.require

	// AWS: profile discovery → credentials → STS account ID.
	// An empty profile string selects the default credential chain.
	result.AWS.Profile = opts.profile
	if names, err := common.DiscoverProfileNames(); err == nil {
		result.AWS.Profiles = names
	}
	profileCfg, err := opts.aws.LoadProfile(ctx, opts.profile)
	if err != nil {
		result.AWS.Error = err.Error()
	} else {
		result.AWS.Credentials = true
		result.AWS.AccountID = profileCfg.AccountID
		result.AWS.Region = profileCfg.Region
	}

	// Kubernetes: kubeconfig load → context → API reachability check.
	clientset, info, err := opts.kube.ClientsetForContext(opts.kubeContext)
	if err != nil {
		result.Kubernetes.Error = err.Error()
	} else {
		result.Kubernetes.KubeconfigOK = true
		result.Kubernetes.Context = info.ContextName
		_, err = clientset.CoreV1().ConfigMaps(kube.DefaultNamespace).List(ctx, metav1.ListOptions{Limit: 1})
		if err != nil {
			result.Kubernetes.Error = err.Error()
		} else {
			result.Kubernetes.APIReachable = true
		}
	}

	// Policy: stat → load → validate (file is optional).
	result.Policy.Path = opts.policyPath
	_, statErr := os.Stat(opts.policyPath)
	if statErr == nil {
		result.Policy.Present = true
		cfg, loadErr := policy.LoadPolicy(opts.policyPath)
		if loadErr != nil {
			result.Policy.Errors = []string{loadErr.Error()}
		} else {
			errs := policy.Validate(cfg, engine.NewDefaultEngine().RuleIDs())
			if len(errs) == 0 {
				result.Policy.Valid = true
			} else {
				for _, e := range errs {
					result.Policy.Errors = append(result.Policy.Errors, e.Error())
				}
			}
		}
	} else if !errors.Is(statErr, fs.ErrNotExist) {
		// Stat error other than "not found": present but unreadable.
		result.Policy.Present = true
		result.Policy.Errors = []string{statErr.Error()}
	}

	// LLM: configuration only, no request is sent.
	result.LLM.Provider = opts.llm.Provider
	result.LLM.Model = opts.llm.Model
	result.LLM.BaseURL = opts.llm.BaseURL
	switch {
	case opts.llm.Provider == config.ProviderNone:
		result.LLM.Error = "provider is none"
	case opts.llm.APIKey == "":
		result.LLM.Error = "no API key (set llm.api_key, CMC_LLM_API_KEY or OPENAI_API_KEY)"
	default:
		result.LLM.Configured = true
	}

	healthy := !result.Policy.Present || result.Policy.Valid
	for _, r := range opts.require {
		switch r {
		case checkAWS:
			healthy = healthy && result.AWS.Credentials
		case checkKubernetes:
			healthy = healthy && result.Kubernetes.APIReachable
		case checkLLM:
			healthy = healthy && result.LLM.Configured
		}
	}
	result.OverallHealthy = healthy

	return result
}

// renderDoctorTable writes the human-readable diagnostic output from result to w.
func renderDoctorTable(result DoctorResult, w io.Writer) {
	fmt.Fprintln(w, "Environment Diagnostics")

	fmt.Fprintln(w, "\nConfig:")
	if result.Config.Path != "" {
		doctorPrint(w, "Config file", "OK", result.Config.Path)
	} else {
		doctorPrint(w, "Config file", "Not found (defaults)", "")
	}

	if result.AWS.Profile != "" {
		fmt.Fprintf(w, "\nAWS (profile: %s):\n", result.AWS.Profile)
	} else {
		fmt.Fprintln(w, "\nAWS:")
	}
	if len(result.AWS.Profiles) > 0 {
		doctorPrint(w, "Profiles", "OK", strings.Join(result.AWS.Profiles, ", "))
	}
	if !result.AWS.Credentials {
		doctorPrint(w, "Credentials", "FAIL", result.AWS.Error)
		doctorPrint(w, "STS Identity", "FAIL", "skipped")
	} else {
		doctorPrint(w, "Credentials", "OK", "")
		doctorPrint(w, "STS Identity", "OK", "Account: "+result.AWS.AccountID)
		doctorPrint(w, "Region", "OK", result.AWS.Region)
	}

	fmt.Fprintln(w, "\nKubernetes:")
	if !result.Kubernetes.KubeconfigOK {
		doctorPrint(w, "Kubeconfig", "FAIL", result.Kubernetes.Error)
		doctorPrint(w, "Current Context", "FAIL", "skipped")
		doctorPrint(w, "API Reachable", "FAIL", "skipped")
	} else {
		doctorPrint(w, "Kubeconfig", "OK", "")
		doctorPrint(w, "Current Context", "OK", result.Kubernetes.Context)
		if result.Kubernetes.APIReachable {
			doctorPrint(w, "API Reachable", "OK", "")
		} else {
			doctorPrint(w, "API Reachable", "FAIL", result.Kubernetes.Error)
		}
	}

	fmt.Fprintln(w, "\nPolicy:")
	label := result.Policy.Path + " present"
	if !result.Policy.Present {
		doctorPrint(w, label, "Not found (optional)", "")
	} else {
		doctorPrint(w, label, "YES", "")
		if result.Policy.Valid {
			doctorPrint(w, "Policy valid", "OK", "")
		} else {
			for _, e := range result.Policy.Errors {
				doctorPrint(w, "Policy valid", "FAIL", e)
			}
		}
	}

	fmt.Fprintln(w, "\nLLM:")
	if result.LLM.Configured {
		doctorPrint(w, "Provider", "OK", result.LLM.Provider)
		doctorPrint(w, "Model", "OK", result.LLM.Model)
		doctorPrint(w, "Endpoint", "OK", result.LLM.BaseURL)
	} else {
		doctorPrint(w, "Provider", "FAIL", result.LLM.Error)
	}

	status := "HEALTHY"
	if !result.OverallHealthy {
		status = "UNHEALTHY"
	}
	if len(result.Required) > 0 {
		fmt.Fprintf(w, "\nOverall: %s (required: %s)\n", status, strings.Join(result.Required, ", "))
	} else {
		fmt.Fprintf(w, "\nOverall: %s\n", status)
	}
}

// doctorPrint writes a single diagnostic check line to w.
// When detail is non-empty it is appended in parentheses.
func doctorPrint(w io.Writer, label, status, detail string) {
	if detail != "" {
		fmt.Fprintf(w, "  %s: %s (%s)\n", label, status, detail)
	} else {
		fmt.Fprintf(w, "  %s: %s\n", label, status)
	}
}

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/analysis"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/config"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/engine"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/llm"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/policy"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/providers/aws/common"
	kube "github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/providers/kubernetes"
)

type rootOptions struct {
	configFile string
	debug      bool
	noColor    bool
	logFormat  string
}

// app carries what every subcommand needs once PersistentPreRunE has run.
// The provider constructors are fields so tests can inject fakes.
type app struct {
	opts rootOptions

	cfg        *config.Config
	configPath string
	logger     zerolog.Logger
	colored    bool

	awsProvider  func(region string) common.AWSClientProvider
	kubeProvider func(kubeconfig string) kube.KubeClientProvider
	newLLMClient func(cfg config.LLMConfig) llm.LLMClient
	isTerminal   func(w io.Writer) bool
	now          func() time.Time
}

func newApp() *app {
	return &app{
		logger: zerolog.Nop(),
		awsProvider: func(region string) common.AWSClientProvider {
			return common.NewDefaultAWSClientProvider().WithRegion(region)
		},
		kubeProvider: func(kubeconfig string) kube.KubeClientProvider {
			return &kube.DefaultKubeClientProvider{Kubeconfig: kubeconfig}
		},
		newLLMClient: func(cfg config.LLMConfig) llm.LLMClient {
			return llm.NewOpenAIClient(cfg.BaseURL, cfg.APIKey, cfg.Timeout)
		},
		isTerminal: isTerminal,
		now:        time.Now,
	}
}

func newRootCmd() *cobra.Command {
	return newRootCmdFor(newApp())
}

func newRootCmdFor(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "cmc",
		Short: "cmc: cloud misconfiguration checker",
		Long: `cmc scans cloud configuration documents (AWS S3 and IAM policies, GCP service
accounts and IAM bindings, Azure resources, generic app config) for security
misconfigurations, and can ask an LLM for a deeper analysis with a hardened
version of the document.

Quick start:
  cmc scan policy.json
  cat bucket.json | cmc scan --name bucket-policy.json
  cmc scan main.tf --format json
  cmc analyze policy.json --patched-out-auto
  cmc tui policy.json
  cmc scan --sample iam-admin-policy

Live sources:
  cmc scan --s3-bucket my-bucket --profile prod
  cmc scan --iam-policy-arn arn:aws:iam::123456789012:policy/app
  cmc scan --k8s-configmap kube-system/aws-auth --context prod`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.opts.configFile, "config", "",
		"config file (default: $XDG_CONFIG_HOME/cmc/config.yaml, ~/.config/cmc/config.yaml or ./cmc.yaml)")
	pf.BoolVar(&a.opts.debug, "debug", false, "debug logging")
	pf.BoolVar(&a.opts.noColor, "no-color", false, "disable coloured output")
	pf.StringVar(&a.opts.logFormat, "log-format", "", `log format: "auto", "console" or "json" (overrides log.format)`)

	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ValidationError{Err: err}
	})

	root.AddCommand(
		newScanCmd(a),
		newAnalyzeCmd(a),
		newTUICmd(a),
		newServeCmd(a),
		newPolicyCmd(a),
		newConfigCmd(a),
		newDoctorCmd(a),
		newSamplesCmd(),
		newVersionCmd(),
	)
	return root
}

// setup loads configuration, builds the logger and stores it in the command
// context for zerolog.Ctx.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	loader := config.NewLoader(config.WithConfigFile(a.opts.configFile))
	cfg, err := loader.Load()
	if err != nil {
		return &ValidationError{Err: fmt.Errorf("failed to load config: %w", err)}
	}
	if a.opts.logFormat != "" {
		switch a.opts.logFormat {
		case config.LogFormatAuto, config.LogFormatConsole, config.LogFormatJSON:
			cfg.Log.Format = a.opts.logFormat
		default:
			return invalidf("invalid --log-format %q (must be auto, console or json)", a.opts.logFormat)
		}
	}

	a.cfg = cfg
	a.configPath = loader.ConfigPath()
	a.logger = newLogger(cmd.ErrOrStderr(), cfg.Log, a.opts.debug, a.isTerminal(cmd.ErrOrStderr()))
	a.colored = !a.opts.noColor && os.Getenv("NO_COLOR") == "" && a.isTerminal(cmd.OutOrStdout())

	cmd.SetContext(a.logger.WithContext(cmd.Context()))
	a.logger.Debug().Str("config", a.configPath).Msg("configuration loaded")
	return nil
}

func newLogger(w io.Writer, cfg config.LogConfig, debug, tty bool) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if debug {
		level = zerolog.DebugLevel
	}

	out := w
	if cfg.Format == config.LogFormatConsole || (cfg.Format != config.LogFormatJSON && tty) {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen, NoColor: !tty}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// loadPolicy resolves the policy file: the flag, then policy_path from the
// config, then ./cmc.policy.yaml when it exists. An explicit path must exist.
// The policy is validated against the registered rule IDs.
func (a *app) loadPolicy(flagPath string) (*policy.PolicyConfig, error) {
	path := flagPath
	if path == "" {
		path = a.cfg.PolicyPath
	}

	var (
		cfg *policy.PolicyConfig
		err error
	)
	if path != "" {
		cfg, err = policy.LoadPolicy(path)
	} else {
		path = policy.DefaultFileName
		cfg, err = policy.LoadOptional(path)
	}
	if err != nil {
		return nil, &ValidationError{Err: fmt.Errorf("load policy %s: %w", path, err)}
	}
	if cfg == nil {
		return nil, nil
	}
	if errs := policy.Validate(cfg, engine.NewDefaultEngine().RuleIDs()); len(errs) > 0 {
		return nil, &ValidationError{Err: fmt.Errorf("invalid policy %s: %w", path, errors.Join(errs...))}
	}
	a.logger.Debug().Str("policy", path).Msg("policy loaded")
	return cfg, nil
}

func (a *app) newEngine(pol *policy.PolicyConfig, concurrency int) *engine.DefaultEngine {
	return engine.NewDefaultEngine(
		engine.WithPolicy(pol),
		engine.WithLogger(a.logger),
		engine.WithClock(a.now),
		engine.WithConcurrency(concurrency),
	)
}

// newAnalyzer returns an analyzer whose client is nil when the llm section
// is disabled, so Analyze reports llm.ErrServiceNotConfigured.
func (a *app) newAnalyzer() *analysis.Analyzer {
	c := a.cfg.LLM
	var client llm.LLMClient
	if c.Enabled() {
		client = a.newLLMClient(c)
	}
	return analysis.NewAnalyzer(client,
		analysis.WithModel(c.Model),
		analysis.WithTemperature(c.Temperature),
		analysis.WithMaxTokens(c.MaxTokens),
	)
}

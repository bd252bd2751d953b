package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/engine"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/ingest"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/llm"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/models"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/policy"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/render"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/session"
)

type analyzeOptions struct {
	local       localFlags
	format      string
	patchedOut  string
	patchedAuto bool
	policyPath  string
}

func newAnalyzeCmd(a *app) *cobra.Command {
	var o analyzeOptions

	cmd := &cobra.Command{
		Use:   "analyze [file]",
		Short: "Scan one document and run the LLM deep analysis",
		Long: `Scan one document, then send it with its findings to the configured
OpenAI-compatible endpoint for a deep analysis: risk level, key
misconfigurations, threats, recommendations and a hardened version of the
document.

--patched-out writes the hardened document to the given path;
--patched-out-auto writes it to patched-<type>-<unix time>.json in the
working directory.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.format != string(engine.ReportFormatTable) && o.format != string(engine.ReportFormatJSON) {
				return invalidf("invalid --format %q (must be table or json)", o.format)
			}
			if o.patchedOut != "" && o.patchedAuto {
				return invalidf("give either --patched-out or --patched-out-auto, not both")
			}
			ctx := cmd.Context()

			pol, err := a.loadPolicy(o.policyPath)
			if err != nil {
				return err
			}
			in, err := singleInput(cmd, args, o.local)
			if err != nil {
				return err
			}

			sess := session.New(a.newEngine(pol, 1), a.newAnalyzer())
			st := sess.Load(in)
			w := cmd.OutOrStdout()
			table := o.format == string(engine.ReportFormatTable)
			if table {
				printTables(w, []*engine.Result{st.Scan}, a.colored)
				fmt.Fprintln(w)
			}

			st, err = sess.Analyze(ctx)
			if err != nil {
				if !table {
					_ = render.WriteAnalysisJSON(w, st.Scan.Report, nil)
				}
				return analysisError(err)
			}

			if table {
				render.RenderAnalysis(w, st.Analysis, a.colored)
			} else if err := render.WriteAnalysisJSON(w, st.Scan.Report, st.Analysis); err != nil {
				return err
			}

			if path := o.patchedPath(st.Scan.Type, a); path != "" {
				if err := render.WritePatchedConfig(path, st.Analysis.PatchedConfig); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Patched configuration written to %s\n", path)
			}

			if policy.ShouldFailReport(st.Findings(), pol) {
				return &PolicyFailedError{Findings: len(st.Findings())}
			}
			return nil
		},
	}

	o.local.register(cmd)
	cmd.Flags().StringVar(&o.format, "format", "table", "Output format: json or table")
	cmd.Flags().StringVar(&o.patchedOut, "patched-out", "", "write the patched configuration to this path")
	cmd.Flags().BoolVar(&o.patchedAuto, "patched-out-auto", false, "write the patched configuration to patched-<type>-<unix>.json")
	cmd.Flags().StringVar(&o.policyPath, "policy", "", "policy file (default: policy_path from config, then ./cmc.policy.yaml)")

	return cmd
}

// patchedPath returns where the patched configuration goes, or "" when it is
// not written.
func (o analyzeOptions) patchedPath(t models.ConfigType, a *app) string {
	if o.patchedAuto {
		return render.PatchedFileName(t, a.now())
	}
	return o.patchedOut
}

// singleInput reads exactly one document for analyze and tui.
func singleInput(cmd *cobra.Command, args []string, f localFlags) (ingest.Input, error) {
	given := len(args) + len(f.samples)
	if f.text != "" {
		given++
	}
	if given > 1 {
		return ingest.Input{}, invalidf("give one of a file, --text or --sample")
	}
	inputs, err := localInputs(cmd.Context(), args, f, cmd.InOrStdin(), true)
	if err != nil {
		return ingest.Input{}, err
	}
	if len(inputs) != 1 {
		return ingest.Input{}, invalidf("expected exactly one document, found %d", len(inputs))
	}
	return inputs[0], nil
}

func analysisError(err error) error {
	if errors.Is(err, llm.ErrServiceNotConfigured) {
		return &ValidationError{Err: fmt.Errorf("%w: set llm.api_key or OPENAI_API_KEY", err)}
	}
	return fmt.Errorf("analysis failed: %w", err)
}

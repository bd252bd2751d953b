package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/engine"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/models"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/output"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/policy"
)

type scanOptions struct {
	local       localFlags
	remote      remoteFlags
	format      string
	output      string
	summary     bool
	policyPath  string
	concurrency int
}

func newScanCmd(a *app) *cobra.Command {
	var o scanOptions

	cmd := &cobra.Command{
		Use:   "scan [files...]",
		Short: "Scan configuration documents for misconfigurations",
		Long: `Scan one or more configuration documents with the offline detectors.

Files are read from the arguments ("-" is stdin). Terraform files and
directories are searched for static policy documents. With no files, no
--text and no live source, stdin is scanned.

Exits 1 when the policy file's enforcement threshold is met.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.format != string(engine.ReportFormatTable) && o.format != string(engine.ReportFormatJSON) {
				return invalidf("invalid --format %q (must be table or json)", o.format)
			}
			ctx := cmd.Context()

			pol, err := a.loadPolicy(o.policyPath)
			if err != nil {
				return err
			}

			inputs, err := localInputs(ctx, args, o.local, cmd.InOrStdin(), !o.remote.any())
			if err != nil {
				return err
			}
			sources, err := a.remoteSources(ctx, o.remote)
			if err != nil {
				return err
			}
			remote, err := fetchSources(ctx, sources)
			if err != nil {
				return fmt.Errorf("fetch live configuration: %w", err)
			}
			inputs = append(inputs, remote...)
			if len(inputs) == 0 {
				return invalidf("nothing to scan")
			}

			results, err := a.newEngine(pol, o.concurrency).ScanAll(ctx, inputs)
			if err != nil {
				return fmt.Errorf("scan failed: %w", err)
			}
			reports := reportsOf(results)

			if o.output != "" {
				if err := writeReportsToFile(o.output, reports); err != nil {
					return err
				}
			}

			w := cmd.OutOrStdout()
			switch {
			case o.summary:
				printSummaries(w, reports, a.colored)
			case o.format == string(engine.ReportFormatJSON):
				if err := printJSON(w, reports); err != nil {
					return err
				}
			default:
				printTables(w, results, a.colored)
			}

			var all []models.Finding
			for _, r := range reports {
				all = append(all, r.Findings...)
			}
			if policy.ShouldFailReport(all, pol) {
				return &PolicyFailedError{Findings: len(all)}
			}
			return nil
		},
	}

	o.local.register(cmd)
	o.remote.register(cmd)
	cmd.Flags().StringVar(&o.format, "format", "table", "Output format: json or table")
	cmd.Flags().StringVar(&o.output, "output", "", "Write the full JSON report to this file path (in addition to stdout output)")
	cmd.Flags().BoolVar(&o.summary, "summary", false, "Print a compact summary per input: source, type and severity breakdown")
	cmd.Flags().StringVar(&o.policyPath, "policy", "", "policy file (default: policy_path from config, then ./cmc.policy.yaml)")
	cmd.Flags().IntVar(&o.concurrency, "concurrency", engine.DefaultConcurrency, "number of inputs scanned at once")

	return cmd
}

func reportsOf(results []*engine.Result) []*models.ScanReport {
	reports := make([]*models.ScanReport, len(results))
	for i, r := range results {
		reports[i] = r.Report
	}
	return reports
}

// reportPayload is a single report object for one input and an array
// otherwise.
func reportPayload(reports []*models.ScanReport) any {
	if len(reports) == 1 {
		return reports[0]
	}
	return reports
}

// printJSON writes the report(s) as indented JSON to w.
func printJSON(w io.Writer, reports []*models.ScanReport) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(reportPayload(reports))
}

// writeReportsToFile serialises the report(s) as indented JSON and writes
// them to path, creating or overwriting the file. It does not affect stdout
// output.
func writeReportsToFile(path string, reports []*models.ScanReport) error {
	data, err := json.MarshalIndent(reportPayload(reports), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report file %q: %w", path, err)
	}
	return nil
}

func printSummaries(w io.Writer, reports []*models.ScanReport, colored bool) {
	for i, r := range reports {
		if i > 0 {
			fmt.Fprintln(w)
		}
		output.RenderSummary(w, r, colored)
	}
}

// printTables renders one findings table per scanned input.
func printTables(w io.Writer, results []*engine.Result, colored bool) {
	for i, r := range results {
		if i > 0 {
			fmt.Fprintln(w)
		}
		rep := r.Report
		fmt.Fprintf(w, "%s  [%s, %s]  %d finding(s)\n", r.Input.Label(), rep.ConfigType, rep.Format, rep.Summary.TotalFindings)
		output.RenderTable(w, rep.Findings, output.TableOptions{
			Colored:       colored,
			IncludeDomain: len(results) > 1 || hasMixedDomains(rep.Findings),
			IncludeRuleID: true,
		})
	}
}

func hasMixedDomains(findings []models.Finding) bool {
	for _, f := range findings[min(1, len(findings)):] {
		if f.Domain != findings[0].Domain {
			return true
		}
	}
	return false
}

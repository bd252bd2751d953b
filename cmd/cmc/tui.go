package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/session"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/tui"
)

func newTUICmd(a *app) *cobra.Command {
	var (
		local      localFlags
		policyPath string
	)

	cmd := &cobra.Command{
		Use:   "tui [file]",
		Short: "Browse findings and run the deep analysis interactively",
		Long: `Scan one document and open an interactive view of the findings.

Keys: up/down select a finding, a runs the deep analysis, pgup/pgdown (K/J)
scroll the analysis panel, r resets the view, q quits.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.isTerminal(cmd.OutOrStdout()) {
				return invalidf("tui needs an interactive terminal; use scan or analyze instead")
			}
			pol, err := a.loadPolicy(policyPath)
			if err != nil {
				return err
			}
			in, err := singleInput(cmd, args, local)
			if err != nil {
				return err
			}

			st := session.New(a.newEngine(pol, 1), nil).Load(in)
			final, err := tui.Run(cmd.Context(), st, a.newAnalyzer())
			if err != nil && !errors.Is(err, cmd.Context().Err()) {
				return fmt.Errorf("tui: %w", err)
			}
			a.logger.Debug().Str("phase", string(final.Phase)).Msg("tui closed")
			return nil
		},
	}

	local.register(cmd)
	cmd.Flags().StringVar(&policyPath, "policy", "", "policy file (default: policy_path from config, then ./cmc.policy.yaml)")
	return cmd
}

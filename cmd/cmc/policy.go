package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/engine"
	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/policy"
)

func newPolicyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Policy file commands",
	}
	cmd.AddCommand(newPolicyValidateCmd(a), newPolicyRulesCmd())
	return cmd
}

func newPolicyValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [path]",
		Short: "Validate a policy file against the known domains and rule IDs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := policy.DefaultFileName
			switch {
			case len(args) == 1:
				path = args[0]
			case a.cfg.PolicyPath != "":
				path = a.cfg.PolicyPath
			}

			cfg, err := policy.LoadPolicy(path)
			if err != nil {
				return &ValidationError{Err: fmt.Errorf("load policy %s: %w", path, err)}
			}

			w := cmd.OutOrStdout()
			errs := policy.Validate(cfg, engine.NewDefaultEngine().RuleIDs())
			if len(errs) == 0 {
				fmt.Fprintf(w, "%s: OK\n", path)
				return nil
			}
			for _, e := range errs {
				fmt.Fprintf(w, "%s: %v\n", path, e)
			}
			return invalidf("%s has %d error(s)", path, len(errs))
		},
	}
}

// newPolicyRulesCmd lists the rule IDs a policy file may reference.
func newPolicyRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List every rule ID grouped by domain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			for _, p := range engine.DefaultPacks() {
				fmt.Fprintf(w, "%s:\n", p.Domain)
				for _, r := range p.Rules {
					fmt.Fprintf(w, "  %s\n", r.ID())
				}
			}
			return nil
		},
	}
}

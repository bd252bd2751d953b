package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/samples"
)

func newSamplesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "samples [name]",
		Short: "List the bundled sample documents, or print one",
		Long: `Without a name, list the bundled sample documents. With a name, print it.

Samples can be scanned directly:
  cmc scan --sample iam-admin-policy
  cmc analyze --sample s3-public-bucket.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if len(args) == 0 {
				for _, name := range samples.Names() {
					fmt.Fprintln(w, name)
				}
				return nil
			}
			in, err := samples.Load(args[0])
			if err != nil {
				return &ValidationError{Err: err}
			}
			fmt.Fprint(w, in.Text)
			return nil
		},
	}
}

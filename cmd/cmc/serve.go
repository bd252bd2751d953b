package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		addr            string
		shutdownTimeout time.Duration
		policyPath      string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the scan and analyze HTTP API",
		Long: `Serve the HTTP API until interrupted:

  GET  /healthz
  POST /api/v1/scan     {"content": "...", "filename": "..."}
  POST /api/v1/analyze  {"content": "...", "filename": "...", "findings": [...]}`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pol, err := a.loadPolicy(policyPath)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = a.cfg.Server.Addr
			}

			analyzer := a.newAnalyzer()
			if !analyzer.Available() {
				a.logger.Warn().Msg("LLM is not configured; /api/v1/analyze will answer 500")
			}

			api := server.NewWebAPI(a.logger, server.Config{
				Addr:            addr,
				ShutdownTimeout: shutdownTimeout,
				Dependencies: server.Dependencies{
					Scanner: a.newEngine(pol, 1),
					Analyst: analyzer,
				},
			})
			return api.Start(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: server.addr from config)")
	cmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 10*time.Second, "grace period for in-flight requests on shutdown")
	cmd.Flags().StringVar(&policyPath, "policy", "", "policy file (default: policy_path from config, then ./cmc.policy.yaml)")
	return cmd
}

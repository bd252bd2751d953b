package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/config"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration file commands",
	}
	cmd.AddCommand(newConfigInitCmd(), newConfigShowCmd(a))
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a commented sample config file",
		Long:  "Write a commented sample config file, by default to ~/.config/cmc/config.yaml. Use - to print it.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 && args[0] == "-" {
				fmt.Fprint(cmd.OutOrStdout(), config.SampleConfig())
				return nil
			}

			path := ""
			if len(args) == 1 {
				path = args[0]
			} else {
				home, err := os.UserHomeDir()
				if err != nil {
					return fmt.Errorf("resolve home directory: %w", err)
				}
				path = filepath.Join(home, ".config", "cmc", "config.yaml")
			}

			if _, err := os.Stat(path); err == nil && !force {
				return invalidf("%s already exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return fmt.Errorf("create config directory: %w", err)
			}
			if err := os.WriteFile(path, []byte(config.SampleConfig()), 0o600); err != nil {
				return fmt.Errorf("write config file %q: %w", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Config written to %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

// newConfigShowCmd prints the effective configuration with the API key
// masked.
func newConfigShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			if a.configPath != "" {
				fmt.Fprintf(w, "# loaded from %s\n", a.configPath)
			} else {
				fmt.Fprintln(w, "# no config file found; defaults and environment only")
			}

			shown := *a.cfg
			shown.LLM.APIKey = maskSecret(shown.LLM.APIKey)
			enc := yaml.NewEncoder(w)
			enc.SetIndent(2)
			if err := enc.Encode(effectiveConfig(shown)); err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			return enc.Close()
		},
	}
}

// effectiveConfig mirrors the config file layout for display.
func effectiveConfig(c config.Config) map[string]any {
	return map[string]any{
		"llm": map[string]any{
			"provider":    c.LLM.Provider,
			"api_key":     c.LLM.APIKey,
			"base_url":    c.LLM.BaseURL,
			"model":       c.LLM.Model,
			"temperature": c.LLM.Temperature,
			"max_tokens":  c.LLM.MaxTokens,
			"timeout":     c.LLM.Timeout.String(),
		},
		"server": map[string]any{"addr": c.Server.Addr},
		"aws": map[string]any{
			"default_profile": c.AWS.DefaultProfile,
			"default_region":  c.AWS.DefaultRegion,
		},
		"log": map[string]any{
			"level":  c.Log.Level,
			"format": c.Log.Format,
		},
		"policy_path": c.PolicyPath,
	}
}

func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return s[:3] + strings.Repeat("*", len(s)-7) + s[len(s)-4:]
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/use-agent/webagent/promptlog"
	"github.com/use-agent/webagent/report"
)

// NewPromptsCmd creates the prompts command.
func NewPromptsCmd() *cobra.Command {
	var (
		limit   int
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "prompts",
		Short: "List recent prompts from the prompt log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit < 1 || limit > promptlog.MaxLimit {
				return fmt.Errorf("--limit must be between 1 and %d", promptlog.MaxLimit)
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			initLogger(cfg.Log, os.Stderr)
			if !cfg.PromptLog.Enabled {
				return fmt.Errorf("prompt log is disabled")
			}

			h := promptlog.NewHandle(cfg.PromptLog.DSN)
			defer h.Close()

			entries, err := h.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), entries)
			}
			return report.Prompts(cmd.OutOrStdout(), entries)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", promptlog.DefaultLimit, "Number of entries to show")
	cmd.Flags().BoolVarP(&jsonOut, "json", "j", false, "Print entries as JSON")

	return cmd
}

package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/entrhq/relay/pkg/convlog"
)

func newHistoryCmd() *cobra.Command {
	var limit int
	var logPath string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List the summaries recorded in the conversation log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if logPath != "" {
				cfg.Conversation.LogPath = logPath
			}
			if err := cfg.Resolve(); err != nil {
				return err
			}

			entries, err := convlog.Entries(cfg.Conversation.LogPath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No updates recorded.")
				return nil
			}

			if limit > 0 && len(entries) > limit {
				entries = entries[len(entries)-limit:]
			}
			for _, e := range entries {
				summary := e.Summary
				if summary == "" {
					summary = color.HiBlackString("(no summary)")
				}
				fmt.Fprintf(out, "%s %s\n", color.CyanString("#%d", e.Index), summary)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show only the most recent N updates")
	cmd.Flags().StringVar(&logPath, "log", "", "Conversation log file (overrides config)")

	return cmd
}

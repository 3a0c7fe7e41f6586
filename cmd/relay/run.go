package main

import (
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	flags := &turnFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Ask the model for a fix and apply its response",
		Long: `Run performs one full turn: it reads the failure logs and the conversation
log, sends them to the model, appends the model's summary to the conversation
log and applies every directive in the reply.

Exit status is 0 when every directive succeeded, 2 when some failed and 1 when
the turn could not run at all (missing credential, model error, unwritable
conversation log).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			flags.applyTo(cfg)

			s, err := newSession(cfg, true)
			if err != nil {
				return err
			}
			defer s.Close()

			s.printer.Header("Relay turn")
			s.printer.Verbosef("Repository: %s", cfg.Repository.WorkDir)
			s.printer.Verbosef("Conversation log: %s", cfg.Conversation.LogPath)
			s.printer.Section("Applying directives")

			summary, turnErr := s.runner.Run(cmd.Context())
			return s.finish(summary, turnErr)
		},
	}

	addTurnFlags(cmd, flags)
	cmd.Flags().StringVar(&flags.model, "model", "", "Model to request (overrides config)")
	cmd.Flags().StringVar(&flags.failLogs, "fail-logs", "", "Failure log file to include in the context")

	return cmd
}

func addTurnFlags(cmd *cobra.Command, flags *turnFlags) {
	cmd.Flags().BoolVar(&flags.execute, "execute", false, "Execute requested commands instead of only printing them")
	cmd.Flags().BoolVar(&flags.noPush, "no-push", false, "Commit locally without pushing")
	cmd.Flags().StringVar(&flags.logPath, "log", "", "Conversation log file (overrides config)")
	cmd.Flags().StringVar(&flags.artifact, "artifacts", "", "Write turn artifacts to this directory")
}

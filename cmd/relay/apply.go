package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func newApplyCmd() *cobra.Command {
	flags := &turnFlags{}

	cmd := &cobra.Command{
		Use:   "apply [response-file]",
		Short: "Apply a saved model response without calling the model",
		Long: `Apply reads a model response from a file (or stdin when the file is "-" or
omitted), appends its summary to the conversation log and applies its
directives exactly as run would.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			response, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			flags.applyTo(cfg)

			s, err := newSession(cfg, false)
			if err != nil {
				return err
			}
			defer s.Close()

			s.printer.Header("Relay apply")
			s.printer.Section("Applying directives")

			summary, turnErr := s.runner.ApplyResponse(cmd.Context(), response)
			return s.finish(summary, turnErr)
		},
	}

	addTurnFlags(cmd, flags)
	return cmd
}

// readInput returns the contents of args[0], or stdin for "-" or no args.
func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	return string(data), nil
}

package main

import (
	"github.com/spf13/cobra"
)

var (
	configPath string
	workDir    string
	verbosity  string
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "relay",
		Short: "Apply chat model responses to a git repository",
		Long: `Relay sends the latest CI failure logs and the conversation log to a chat
model, appends the model's summary to the conversation log, and applies the
fenced directives in its reply: file contents are committed and pushed to the
branch they name, and requested commands are printed (or run with --execute).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default ./relay.yaml if present)")
	root.PersistentFlags().StringVarP(&workDir, "workdir", "C", "", "Repository working directory")
	root.PersistentFlags().StringVarP(&verbosity, "verbosity", "v", "", "Console verbosity: quiet, normal, verbose, debug")

	root.AddCommand(
		newRunCmd(),
		newApplyCmd(),
		newParseCmd(),
		newHistoryCmd(),
		newVersionCmd(),
	)

	return root
}

package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

const (
	groupUtility    = "utility"
	groupUserFacing = "user"
)

var logLevelFlag string

var rootCmd = newRootCommand()

func Execute() error {
	return rootCmd.Execute()
}

func NewRootCommand() *cobra.Command {
	return newRootCommand()
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "declarr",
		Short: "Reconcile declarative Prowlarr configuration",
		Long: `Declarr keeps a Prowlarr instance converged to a declarative YAML document.

Use the CLI to:
  - preview the changes needed to reach the desired configuration
  - apply them idempotently, with optional post-apply verification
  - dump a running instance back into a desired-state document`,
		Example: `  # Show what would change without touching the instance
  declarr plan -c declarr.yaml

  # Converge the instance to the document
  declarr apply -c declarr.yaml --verify

  # Capture the current instance configuration
  declarr dump http://localhost:9696 --out ./dumps --commit`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.SetHelpCommandGroupID(groupUtility)
	cmd.SetCompletionCommandGroupID(groupUtility)

	cmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level (trace, debug, info, warn, error)")

	cmd.AddGroup(&cobra.Group{ID: groupUserFacing, Title: "Commands:"})
	cmd.AddGroup(&cobra.Group{ID: groupUtility, Title: "Utility Commands:"})

	cmd.AddCommand(newApplyCommand())
	cmd.AddCommand(newPlanCommand())
	cmd.AddCommand(newDumpCommand())
	cmd.AddCommand(newSecretCommand())
	cmd.AddCommand(newVersionCommand())

	return cmd
}

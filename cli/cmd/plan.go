package cmd

import (
	"github.com/spf13/cobra"

	"github.com/declarr/declarr/config"
)

// Exit code reported when a plan is non-empty, in the manner of diff.
const exitCodeChangesPending = 2

func newPlanCommand() *cobra.Command {
	var (
		configPath   string
		settingsPath string
	)

	cmd := &cobra.Command{
		Use:     "plan",
		GroupID: groupUserFacing,
		Short:   "Show the changes needed to reach the desired configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			log := newLogger(cfg.LogLevel)

			desired, err := loadDesired(cfg, settingsPath)
			if err != nil {
				return err
			}

			client, err := buildClient(cmd, cfg, log, 0)
			if err != nil {
				return err
			}
			engine := newEngine(client, cfg, log)

			actual, err := engine.FetchActual(cmd.Context())
			if err != nil {
				return err
			}
			changeset, err := engine.Plan(desired, actual)
			if err != nil {
				return err
			}
			printChangeset(cmd, changeset)
			if !changeset.Empty() {
				return &exitStatusError{code: exitCodeChangesPending}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "declarr.yaml", "Path to the configuration file")
	cmd.Flags().StringVar(&settingsPath, "settings", "", "Standalone settings document overriding the embedded settings block")

	return cmd
}

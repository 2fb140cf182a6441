package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/declarr/declarr/config"
)

func newApplyCommand() *cobra.Command {
	var (
		configPath   string
		settingsPath string
		dryRun       bool
		verify       bool
		yes          bool
		wait         time.Duration
	)

	cmd := &cobra.Command{
		Use:     "apply",
		GroupID: groupUserFacing,
		Short:   "Converge the instance to the desired configuration",
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

			client, err := buildClient(cmd, cfg, log, wait)
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
			if changeset.Empty() || dryRun {
				return nil
			}

			if _, _, deletes := changeset.Counts(); deletes > 0 && !yes {
				confirmed, err := promptConfirm(cmd, fmt.Sprintf("Delete %d unmanaged resource(s)?", deletes), false)
				if err != nil {
					return err
				}
				if !confirmed {
					fmt.Fprintln(cmd.OutOrStdout(), "Apply aborted.")
					return nil
				}
			}

			result, err := engine.Apply(cmd.Context(), changeset)
			if err != nil {
				return err
			}
			for _, failed := range result.Failed() {
				fmt.Fprintf(cmd.ErrOrStderr(), "failed: %s %s/%s: %v\n", failed.Op, failed.Section, failed.Name, failed.Err)
			}
			if result.Skipped > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "skipped %d operation(s) after cancellation\n", result.Skipped)
			}
			if !result.Succeeded() {
				return fmt.Errorf("apply finished with %d failed operation(s); rerun to retry", len(result.Failed()))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Apply complete.")

			if verify {
				if err := engine.Verify(cmd.Context(), desired); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Verification passed.")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "declarr.yaml", "Path to the configuration file")
	cmd.Flags().StringVar(&settingsPath, "settings", "", "Standalone settings document overriding the embedded settings block")
	cmd.Flags().DurationVar(&wait, "wait", 0, "Wait up to this long for the instance to become ready before planning")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the plan without applying it")
	cmd.Flags().BoolVar(&verify, "verify", false, "Re-fetch and re-plan after applying to confirm convergence")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt for planned deletes")

	return cmd
}

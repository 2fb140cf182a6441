package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/declarr/declarr/config"
	"github.com/declarr/declarr/document"
	"github.com/declarr/declarr/faults"
	"github.com/declarr/declarr/field"
	"github.com/declarr/declarr/reconciler"
	"github.com/declarr/declarr/remote/prowlarr"
	"github.com/declarr/declarr/resource"
	"github.com/declarr/declarr/schema"
	"github.com/declarr/declarr/secrets"
)

// exitStatusError carries a process exit code without an error message of
// its own; the command has already reported whatever the code means.
type exitStatusError struct {
	code int
}

func (e *exitStatusError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func IsExitStatus(err error) bool {
	var status *exitStatusError
	return errors.As(err, &status)
}

// ExitCode maps a command error to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var status *exitStatusError
	if errors.As(err, &status) {
		return status.code
	}
	return 1
}

// buildClient resolves the API key and opens a version-checked client
// session against the configured instance. A positive wait keeps polling the
// instance until it answers or the wait window runs out, before the version
// gate.
func buildClient(cmd *cobra.Command, cfg *config.Config, log zerolog.Logger, wait time.Duration) (*prowlarr.Client, error) {
	apiKey, err := resolveAPIKey(cmd, cfg)
	if err != nil {
		return nil, err
	}

	client, err := prowlarr.New(cfg.HostURL, apiKey,
		prowlarr.WithTimeout(cfg.RequestTimeout()),
		prowlarr.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}
	if wait > 0 {
		waitCtx, cancel := context.WithTimeout(cmd.Context(), wait)
		err := client.WaitReady(waitCtx, time.Second)
		cancel()
		if err != nil {
			return nil, err
		}
	}
	status, err := client.CheckVersion(cmd.Context())
	if err != nil {
		return nil, err
	}
	log.Debug().Str("host", cfg.HostURL).Str("version", status.Version).Msg("instance session opened")
	return client, nil
}

func newEngine(client *prowlarr.Client, cfg *config.Config, log zerolog.Logger) *reconciler.Engine {
	return reconciler.New(client, reconciler.Options{
		KeyRule: reconciler.KeyRule{
			CaseFold:  cfg.KeyMatching.CaseFold,
			TrimSpace: cfg.KeyMatching.TrimSpace,
		},
		ForceSecrets: cfg.ForceSecrets,
		Logger:       log,
	})
}

// loadDesired builds the desired tree from a standalone settings document
// when one is given, falling back to the settings block embedded in the
// configuration file.
func loadDesired(cfg *config.Config, settingsPath string) (*resource.Tree, error) {
	if settingsPath != "" {
		return document.Load(settingsPath)
	}
	return cfg.SettingsTree()
}

// resolveAPIKey finds the instance API key: config or environment first,
// then the secret store, then an interactive prompt. A key obtained from the
// prompt is saved to the secret store when one is configured.
func resolveAPIKey(cmd *cobra.Command, cfg *config.Config) (string, error) {
	if strings.TrimSpace(cfg.APIKey) != "" {
		return strings.TrimSpace(cfg.APIKey), nil
	}

	store, err := openConfiguredStore(cfg)
	if err != nil {
		return "", err
	}
	if store != nil {
		value, err := store.Get(cfg.Instance)
		if err == nil {
			return value, nil
		}
		if !faults.IsCategory(err, faults.NotFoundError) {
			return "", err
		}
	}

	apiKey, err := promptSecret(cmd, fmt.Sprintf("API key for %s", cfg.HostURL))
	if err != nil {
		return "", err
	}
	if store != nil {
		if err := store.Set(cfg.Instance, apiKey); err != nil {
			return "", err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "stored api key for instance %q\n", cfg.Instance)
	}
	return apiKey, nil
}

func openConfiguredStore(cfg *config.Config) (*secrets.Store, error) {
	if cfg.SecretStore == nil {
		return nil, nil
	}
	return secrets.Open(cfg.SecretStore.Path, cfg.SecretStore.Key, cfg.SecretStore.Passphrase)
}

// defaultSecretStorePath is the store location for the bare secret
// subcommands, which run without a config file.
func defaultSecretStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".declarr", "keys.enc")
	}
	return filepath.Join(home, ".declarr", "keys.enc")
}

// printChangeset renders the plan. Secret field values never appear; the
// delta detail shows the mask instead.
func printChangeset(cmd *cobra.Command, changeset *reconciler.Changeset) {
	out := cmd.OutOrStdout()

	for _, section := range changeset.Sections {
		if section.Empty() {
			continue
		}
		fmt.Fprintf(out, "%s:\n", section.Section)
		for _, op := range section.Creates {
			fmt.Fprintf(out, "  + %s\n", op.Resource.Name)
		}
		for _, op := range section.Updates {
			fmt.Fprintf(out, "  ~ %s (%s)\n", updateName(section.Section, op), describeDeltas(section.Section, op))
		}
		for _, op := range section.Deletes {
			fmt.Fprintf(out, "  - %s\n", op.Identity.Name)
		}
	}

	for _, issue := range changeset.Issues {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", issue)
	}

	creates, updates, deletes := changeset.Counts()
	if changeset.Empty() {
		fmt.Fprintln(out, "No changes. Remote state matches the desired configuration.")
		return
	}
	fmt.Fprintf(out, "Plan: %d to create, %d to update, %d to delete.\n", creates, updates, deletes)
}

func updateName(sectionName string, op reconciler.UpdateOp) string {
	if op.Identity.Name != "" {
		return op.Identity.Name
	}
	return sectionName
}

func describeDeltas(sectionName string, op reconciler.UpdateOp) string {
	section, ok := schema.Lookup(sectionName)
	parts := make([]string, 0, len(op.Deltas))
	for _, delta := range op.Deltas {
		if ok {
			if spec, known := section.FieldSpec(delta.Field); known && spec.Secret {
				parts = append(parts, fmt.Sprintf("%s: %s", delta.Field, field.Sentinel))
				continue
			}
		}
		parts = append(parts, fmt.Sprintf("%s: %v -> %v", delta.Field, delta.Old, delta.New))
	}
	return strings.Join(parts, ", ")
}

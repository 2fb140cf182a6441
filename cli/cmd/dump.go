package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/declarr/declarr/config"
	"github.com/declarr/declarr/document"
	"github.com/declarr/declarr/reconciler"
	"github.com/declarr/declarr/remote/prowlarr"
	"github.com/declarr/declarr/repository"
)

func newDumpCommand() *cobra.Command {
	var (
		configPath string
		apiKey     string
		filter     string
		outDir     string
		commit     bool
		fileName   string
	)

	cmd := &cobra.Command{
		Use:     "dump <url>",
		GroupID: groupUserFacing,
		Short:   "Dump the instance configuration as a desired-state document",
		Long: `Dump fetches the full remote configuration and renders it in the same YAML
shape that plan and apply consume. Without an api key the instance is probed
via initialize.js first and the key prompted for as a last resort.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hostURL := strings.TrimSpace(args[0])
			log := newLogger("")

			// An optional config file supplies the dump repository location
			// and commit authorship when the flags leave them unset.
			var dumps *config.DumpStore
			if configPath != "" {
				cfg, err := config.Load(configPath)
				if err != nil {
					return err
				}
				dumps = cfg.Dumps
			}
			if outDir == "" && dumps != nil {
				outDir = dumps.BaseDir
			}

			key := strings.TrimSpace(apiKey)
			if key == "" {
				probed, err := prowlarr.ProbeAPIKey(cmd.Context(), hostURL)
				if err == nil {
					key = probed
				} else {
					log.Debug().Err(err).Msg("api key probe failed")
					key, err = promptSecret(cmd, fmt.Sprintf("API key for %s", hostURL))
					if err != nil {
						return err
					}
				}
			}

			client, err := prowlarr.New(hostURL, key, prowlarr.WithLogger(log))
			if err != nil {
				return err
			}
			if _, err := client.CheckVersion(cmd.Context()); err != nil {
				return err
			}
			engine := reconciler.New(client, reconciler.Options{Logger: log})

			tree, err := engine.FetchActual(cmd.Context())
			if err != nil {
				return err
			}
			data, err := document.Marshal(tree)
			if err != nil {
				return err
			}
			data, err = document.Filter(cmd.Context(), data, filter)
			if err != nil {
				return err
			}

			if outDir == "" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}

			var store repository.Store
			if commit {
				var authorName, authorEmail string
				if dumps != nil && dumps.Git != nil {
					authorName = dumps.Git.AuthorName
					authorEmail = dumps.Git.AuthorEmail
				}
				store, err = repository.NewGitStore(outDir, authorName, authorEmail)
			} else {
				store, err = repository.NewFilesystemStore(outDir)
			}
			if err != nil {
				return err
			}
			path, err := store.Write(fileName, data)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Dumped configuration to %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Optional configuration file supplying the dump repository settings")
	cmd.Flags().StringVarP(&apiKey, "api-key", "k", "", "API key for the instance (probed or prompted when empty)")
	cmd.Flags().StringVar(&filter, "filter", "", "jq expression applied to the dumped document")
	cmd.Flags().StringVar(&outDir, "out", "", "Directory to store the dump in (stdout when empty)")
	cmd.Flags().BoolVar(&commit, "commit", false, "Commit the dump into a git repository under --out")
	cmd.Flags().StringVar(&fileName, "name", "prowlarr.yaml", "File name for the stored dump")

	return cmd
}

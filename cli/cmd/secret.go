package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/declarr/declarr/config"
	"github.com/declarr/declarr/secrets"
)

func newSecretCommand() *cobra.Command {
	var (
		storePath  string
		key        string
		passphrase string
	)

	cmd := &cobra.Command{
		Use:     "secret",
		GroupID: groupUserFacing,
		Short:   "Manage the encrypted api-key cache",
	}

	cmd.PersistentFlags().StringVar(&storePath, "store", defaultSecretStorePath(), "Path to the encrypted store file")
	cmd.PersistentFlags().StringVar(&key, "key", "", "32-byte store key (raw, base64, or hex)")
	cmd.PersistentFlags().StringVar(&passphrase, "passphrase", "", "Store passphrase")

	open := func() (*secrets.Store, error) {
		storeKey := key
		storePassphrase := passphrase
		if value, ok := os.LookupEnv(config.SecretKeyEnvVar); ok && storeKey == "" {
			storeKey = value
		}
		if value, ok := os.LookupEnv(config.SecretPassphraseEnvVar); ok && storePassphrase == "" {
			storePassphrase = value
		}
		return secrets.Open(storePath, storeKey, storePassphrase)
	}

	cmd.AddCommand(newSecretSetCommand(open))
	cmd.AddCommand(newSecretGetCommand(open))
	cmd.AddCommand(newSecretDeleteCommand(open))
	cmd.AddCommand(newSecretListCommand(open))

	return cmd
}

type openStoreFunc func() (*secrets.Store, error)

func newSecretSetCommand(open openStoreFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "set <instance>",
		Short: "Store the api key for an instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := open()
			if err != nil {
				return err
			}
			value, err := promptSecret(cmd, fmt.Sprintf("API key for instance %q", args[0]))
			if err != nil {
				return err
			}
			if err := store.Set(args[0], value); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored api key for %q.\n", args[0])
			return nil
		},
	}
}

func newSecretGetCommand(open openStoreFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "get <instance>",
		Short: "Print the stored api key for an instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := open()
			if err != nil {
				return err
			}
			value, err := store.Get(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	}
}

func newSecretDeleteCommand(open openStoreFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <instance>",
		Short: "Remove the stored api key for an instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := open()
			if err != nil {
				return err
			}
			if err := store.Delete(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted api key for %q.\n", args[0])
			return nil
		},
	}
}

func newSecretListCommand(open openStoreFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List instances with stored api keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := open()
			if err != nil {
				return err
			}
			names, err := store.List()
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

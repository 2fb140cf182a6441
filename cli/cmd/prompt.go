package cmd

import (
	"errors"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

func runField(cmd *cobra.Command, field huh.Field) error {
	form := huh.NewForm(huh.NewGroup(field)).
		WithShowHelp(false).
		WithInput(cmd.InOrStdin()).
		WithOutput(cmd.OutOrStdout())
	return form.Run()
}

func promptSecret(cmd *cobra.Command, title string) (string, error) {
	var value string
	field := huh.NewInput().
		Title(title).
		Prompt("> ").
		Value(&value).
		EchoMode(huh.EchoModePassword).
		Validate(func(input string) error {
			if strings.TrimSpace(input) == "" {
				return errors.New("input required")
			}
			return nil
		})
	if err := runField(cmd, field); err != nil {
		return "", err
	}
	return strings.TrimSpace(value), nil
}

func promptConfirm(cmd *cobra.Command, title string, defaultValue bool) (bool, error) {
	value := defaultValue
	field := huh.NewConfirm().
		Title(title).
		Value(&value)
	if err := runField(cmd, field); err != nil {
		return false, err
	}
	return value, nil
}

package main

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/wispchat/wisp/pkg/settings"
)

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Inspect or change the provider configuration",
	}
	cmd.AddCommand(newSettingsGetCmd(), newSettingsSetCmd())
	return cmd
}

func newSettingsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Print the current configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()
			cfg := a.settings.Get()
			fmt.Printf("provider:  %s\nmodel:     %s\ncredential: %s\n", cfg.Provider, cfg.Model, maskCredential(cfg.Credential))
			return nil
		},
	}
}

func newSettingsSetCmd() *cobra.Command {
	var providerName, model, credential string
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update the configuration and broadcast it to other instances",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()
			cfg := a.settings.Get()
			if providerName != "" {
				cfg.Provider = providerName
			}
			if model != "" {
				cfg.Model = model
			}
			if credential != "" {
				cfg.Credential = credential
			}
			if cfg == (settings.Config{}) {
				return errors.New("nothing to set")
			}
			return a.settings.Set(cfg)
		},
	}
	cmd.Flags().StringVar(&providerName, "provider", "", "provider name")
	cmd.Flags().StringVar(&model, "model", "", "model identifier")
	cmd.Flags().StringVar(&credential, "key", "", "API credential")
	return cmd
}

func maskCredential(c string) string {
	if len(c) <= 4 {
		return strings.Repeat("*", len(c))
	}
	return strings.Repeat("*", len(c)-4) + c[len(c)-4:]
}

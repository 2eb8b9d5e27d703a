package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "wisp",
	Short: "Streaming chat client with search-augmented self-correction",
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		level, err := zerolog.ParseLevel(flagLogLevel)
		if err != nil {
			return err
		}
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).Level(level)
		return nil
	},
}

var (
	flagConfig   string
	flagDB       string
	flagLogLevel string
)

func main() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", defaultConfigPath(), "path to the wisp config file")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", defaultDBPath(), "path to the local storage database")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn", "log level (trace|debug|info|warn|error)")

	rootCmd.AddCommand(newChatCmd())
	rootCmd.AddCommand(newSettingsCmd())
	rootCmd.AddCommand(newTranscriptCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "wisp.yaml"
	}
	return home + "/.config/wisp/config.yaml"
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "wisp.db"
	}
	return home + "/.local/share/wisp/wisp.db"
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTranscriptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcript",
		Short: "Inspect or reset the stored transcript",
	}
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the stored transcript",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()
			for _, t := range a.transcript.Turns() {
				fmt.Printf("[%s] %s: %s\n", t.CreatedAt.Format("2006-01-02 15:04"), t.Sender, t.Text)
				if t.Reasoning != "" {
					fmt.Printf("        (%s, %.1fs)\n", t.Reasoning, t.DurationSeconds)
				}
			}
			return nil
		},
	}
	clear := &cobra.Command{
		Use:   "clear",
		Short: "Delete the whole transcript",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()
			return a.transcript.Clear()
		},
	}
	cmd.AddCommand(show, clear)
	return cmd
}

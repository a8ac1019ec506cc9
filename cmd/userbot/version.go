package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coah80/userbot/internal/config"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		// Skip config loading; version must work without a config file.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "userbot %s\n", config.Version)
			return nil
		},
	}
}

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coah80/userbot/internal/util"
)

func newDepsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check external binaries",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps := util.CheckDependencies(a.cfg.Downloader.Binary)
			out := cmd.OutOrStdout()
			for _, d := range deps {
				mark, where := "✓", d.Path
				if !d.Found {
					mark, where = "✗", "not found"
					if !d.Required {
						mark = "-"
					}
				}
				fmt.Fprintf(out, "%s %-8s %s\n", mark, d.Name, where)
			}
			if disk, err := util.GetDiskSpace(a.cfg.Downloader.TempDir); err == nil {
				fmt.Fprintf(out, "  disk     %.1f GB free, %.1f GB used (%s)\n", disk.AvailGB(), disk.UsedGB(), a.cfg.Downloader.TempDir)
			}
			if missing := util.MissingRequired(deps); len(missing) > 0 {
				return fmt.Errorf("missing required dependencies: %s", strings.Join(missing, ", "))
			}
			return nil
		},
	}
}

package main

import (
	"fmt"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/Kush-Singh-26/hashdrop/internal/clean"
)

func newCleanCmd(a *app) *cobra.Command {
	var (
		dryRun bool
		minAge time.Duration
	)
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove temp files left by interrupted writes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			report, err := clean.Run(afero.NewOsFs(), cfg.BaseDir, clean.Options{MinAge: minAge, DryRun: dryRun})
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, p := range report.Removed {
				fmt.Fprintln(w, p)
			}
			verb := "removed"
			if dryRun {
				verb = "would remove"
			}
			fmt.Fprintf(w, "%s %d file(s), %d bytes\n", verb, len(report.Removed), report.Bytes)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "list files without deleting")
	cmd.Flags().DurationVar(&minAge, "min-age", clean.DefaultMinAge, "only remove temp files older than this")
	return cmd
}

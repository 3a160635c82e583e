package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/Kush-Singh-26/hashdrop/internal/watch"
)

func newWatchCmd(a *app) *cobra.Command {
	var (
		dir      string
		category string
		keep     bool
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Store every file dropped into the inbox directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cfg, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			inbox := cfg.Inbox
			if dir != "" {
				inbox.Dir = dir
			}
			if category != "" {
				inbox.Category = category
			}
			if keep {
				inbox.KeepFiles = true
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return watch.New(inbox, afero.NewOsFs(), svc, a.logger(cmd)).Run(ctx)
		},
	}
	f := cmd.Flags()
	f.StringVar(&dir, "dir", "", "inbox directory (overrides inbox.dir)")
	f.StringVar(&category, "category", "", "category for ingested files (overrides inbox.category)")
	f.BoolVar(&keep, "keep", false, "leave ingested files in the inbox")
	return cmd
}

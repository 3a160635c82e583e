package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/Kush-Singh-26/hashdrop/engine/config"
	"github.com/Kush-Singh-26/hashdrop/engine/services"
)

const version = "0.1.0"

// app carries the persistent flags shared by every command.
type app struct {
	configPath string
	baseDir    string
	noLedger   bool
	verbose    bool
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "hashdrop",
		Short:         "Content-addressed file drop with category listings",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", config.FileName, "configuration file")
	pf.StringVar(&a.baseDir, "base", "", "share tree directory (overrides baseDir)")
	pf.BoolVar(&a.noLedger, "no-ledger", false, "run without the ledger database")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newPutCmd(a))
	root.AddCommand(newLinkCmd(a))
	root.AddCommand(newLookupCmd(a))
	root.AddCommand(newShowCmd(a))
	root.AddCommand(newVerifyCmd(a))
	root.AddCommand(newSnapshotCmd(a))
	root.AddCommand(newRestoreCmd(a))
	root.AddCommand(newWatchCmd(a))
	root.AddCommand(newStatsCmd(a))
	root.AddCommand(newCleanCmd(a))
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "hashdrop %s\n", version)
		},
	}
}

func (a *app) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

func (a *app) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return nil, err
	}
	if a.baseDir != "" {
		cfg.BaseDir = a.baseDir
	}
	if a.noLedger {
		cfg.Ledger = false
	}
	return cfg, nil
}

// open builds the share service for one command invocation. The caller
// closes it.
func (a *app) open(cmd *cobra.Command) (services.ShareService, *config.Config, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	svc, err := services.NewShareService(cfg, afero.NewOsFs(), a.logger(cmd))
	if err != nil {
		return nil, nil, err
	}
	return svc, cfg, nil
}

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Kush-Singh-26/hashdrop/engine/archive"
	"github.com/Kush-Singh-26/hashdrop/engine/services"
)

func newSnapshotCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot <file.tar.zst|->",
		Short: "Write a compressed archive of the share tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			if args[0] == "-" {
				_, err := svc.Snapshot(cmd.OutOrStdout())
				return err
			}
			sum, err := snapshotToFile(svc, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "archived %d file(s), %d bytes\n", sum.Files, sum.Bytes)
			return nil
		},
	}
}

// snapshotToFile fails when the archive cannot be flushed to disk.
func snapshotToFile(svc services.ShareService, path string) (sum archive.Summary, err error) {
	f, err := os.Create(path)
	if err != nil {
		return archive.Summary{}, err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	return svc.Snapshot(f)
}

func newRestoreCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <file.tar.zst|->",
		Short: "Restore missing files from an archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer func() { _ = f.Close() }()
				r = f
			}
			sum, err := svc.Restore(r)
			fmt.Fprintf(cmd.OutOrStdout(), "restored %d file(s), %d bytes, %d already present\n", sum.Files, sum.Bytes, sum.Skipped)
			return err
		},
	}
}

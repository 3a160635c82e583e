package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newLookupCmd(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "lookup <label|digest>",
		Short: "Print the listing file of a category or content digest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			res, err := svc.Lookup(args[0])
			if err != nil {
				return err
			}
			if !all {
				fmt.Fprintln(cmd.OutOrStdout(), res.Latest)
				return nil
			}
			for _, f := range res.Files {
				fmt.Fprintln(cmd.OutOrStdout(), f)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "print every index file, oldest first")
	return cmd
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <label|digest>",
		Short: "Describe a bucket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			res, err := svc.Show(args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "bucket %s\n", res.Bucket)
			if o := res.Object; o != nil {
				fmt.Fprintf(w, "object %q, %d bytes, stored %s\n",
					o.DisplayName, o.Size, time.Unix(o.CreatedAt, 0).UTC().Format(time.RFC3339))
				if o.TargetURL != "" {
					fmt.Fprintf(w, "link   %s\n", o.TargetURL)
				}
			}
			if m := res.Meta; m != nil {
				fmt.Fprintf(w, "meta   user=%q title=%q description=%q url=%q\n", m.User, m.Title, m.Description, m.URL)
			}
			for _, e := range res.Entries {
				kind := "object"
				if e.Marker {
					kind = "member"
				}
				fmt.Fprintf(w, "%-7s %s (%d bytes)\n", kind, e.Name(), e.Size)
			}
			for _, m := range res.Members {
				fmt.Fprintf(w, "linked  %s as %s\n", m.Digest, m.Kind)
			}
			for _, f := range res.IndexFiles {
				fmt.Fprintf(w, "index   %s\n", f)
			}
			return nil
		},
	}
}

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Kush-Singh-26/hashdrop/engine/models"
	"github.com/Kush-Singh-26/hashdrop/engine/services"
)

func newPutCmd(a *app) *cobra.Command {
	var (
		req  services.PutRequest
		text string
	)
	cmd := &cobra.Command{
		Use:   "put [file|-]",
		Short: "Store a file (or --text) and link it into its buckets",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case text != "" && len(args) > 0:
				return fmt.Errorf("give either a file or --text, not both")
			case text != "":
				req.Text = text
			case len(args) == 0:
				return fmt.Errorf("nothing to store: pass a file, - for stdin, or --text")
			default:
				data, name, err := readInput(cmd, args[0])
				if err != nil {
					return err
				}
				req.Content = data
				if req.Extension == "" {
					req.Extension = strings.TrimPrefix(filepath.Ext(name), ".")
				}
				if req.DisplayName == "" {
					req.DisplayName = name
				}
			}

			svc, _, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			res, err := svc.Put(cmd.Context(), req)
			if res != nil {
				printResult(cmd.OutOrStdout(), res)
			}
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&text, "text", "", "store this text instead of a file")
	f.StringVar(&req.Extension, "ext", "", "object extension (default: from the file name)")
	f.StringVar(&req.Category, "category", "", "category label or digest")
	f.StringVar(&req.ReplyTo, "reply", "", "digest of the content this replies to")
	f.StringVar(&req.DisplayName, "name", "", "display name (default: file name)")
	f.StringVar(&req.OnDuplicate, "on-duplicate", "", "ignore or error (default: from config)")
	f.StringVar(&req.Meta.User, "user", "", "submitter name")
	f.StringVar(&req.Meta.Title, "title", "", "content title")
	f.StringVar(&req.Meta.Description, "description", "", "content description")
	f.StringVar(&req.Meta.URL, "url", "", "related URL")
	return cmd
}

func newLinkCmd(a *app) *cobra.Command {
	var req services.LinkRequest
	cmd := &cobra.Command{
		Use:   "link <url>",
		Short: "Index an external URL in a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.URL = args[0]
			svc, _, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			res, err := svc.Link(cmd.Context(), req)
			if res != nil {
				printResult(cmd.OutOrStdout(), res)
			}
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.Category, "category", "", "category label or digest")
	f.StringVar(&req.ReplyTo, "reply", "", "digest of the content this replies to")
	f.StringVar(&req.DisplayName, "name", "", "display name (default: the URL)")
	f.StringVar(&req.OnDuplicate, "on-duplicate", "", "ignore or error (default: from config)")
	return cmd
}

func readInput(cmd *cobra.Command, arg string) ([]byte, string, error) {
	if arg == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		return data, "", err
	}
	data, err := os.ReadFile(arg)
	if err != nil {
		return nil, "", err
	}
	return data, filepath.Base(arg), nil
}

func printResult(w io.Writer, res *models.AssociateResult) {
	state := "stored"
	if !res.IsFirst {
		state = "exists"
	}
	fmt.Fprintf(w, "%s %s %s\n", state, res.Digest, res.DisplayName)
	for _, l := range res.Links {
		mark := " "
		if l.Appended {
			mark = "+"
		}
		fmt.Fprintf(w, "  %s %-8s %s\n", mark, l.Kind, l.File)
	}
}

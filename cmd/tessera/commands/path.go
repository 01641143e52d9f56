// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/bureau-foundation/tessera/cmd/tessera/cli"
	"github.com/bureau-foundation/tessera/lib/path"
	"github.com/bureau-foundation/tessera/lib/session"
)

func pathCommand(streams Streams, g *globals) *cli.Command {
	return &cli.Command{
		Name:    "path",
		Summary: "Parse paths and resolve them through stored manifests",
		Description: `Absolute paths are written /<root-key>/<segment>/...; relative paths
are plain segment lists.`,
		Subcommands: []*cli.Command{
			{
				Name:    "parse",
				Summary: "Show the parts of a path",
				Usage:   "tessera path parse <path>",
				Run: func(args []string) error {
					if err := exactArgs("path parse", args, 1, "<path>"); err != nil {
						return err
					}
					p, err := path.Parse(args[0])
					if err != nil {
						return err
					}
					tw := tabwriter.NewWriter(streams.Stdout, 0, 0, 2, ' ', 0)
					if root, absolute := p.Root(); absolute {
						fmt.Fprintf(tw, "root:\t%s\n", root)
					} else {
						fmt.Fprintf(tw, "root:\t(relative)\n")
					}
					fmt.Fprintf(tw, "segments:\t%s\n", strings.Join(p.Segments(), " "))
					fmt.Fprintf(tw, "canonical:\t%s\n", p)
					return tw.Flush()
				},
			},
			{
				Name:    "join",
				Summary: "Anchor a relative path under an absolute base",
				Usage:   "tessera path join <absolute-base> <relative>",
				Run: func(args []string) error {
					if err := exactArgs("path join", args, 2, "<absolute-base> <relative>"); err != nil {
						return err
					}
					base, err := path.Parse(args[0])
					if err != nil {
						return err
					}
					relative, err := path.Parse(args[1])
					if err != nil {
						return err
					}
					joined, err := relative.MakeAbsolute(base)
					if err != nil {
						return err
					}
					fmt.Fprintln(streams.Stdout, joined)
					return nil
				},
			},
			{
				Name:    "resolve",
				Summary: "Print the key an absolute path resolves to",
				Usage:   "tessera path resolve [flags] <path>",
				Flags:   g.flags("resolve", nil),
				Run: func(args []string) error {
					if err := exactArgs("path resolve", args, 1, "<path>"); err != nil {
						return err
					}
					p, err := path.Parse(args[0])
					if err != nil {
						return err
					}
					s, _, _, err := g.openStore()
					if err != nil {
						return err
					}
					k, err := s.Resolve(context.Background(), p)
					if err != nil {
						return err
					}
					fmt.Fprintln(streams.Stdout, k)
					return nil
				},
			},
			{
				Name:    "info",
				Summary: "Show metadata for the object at a path",
				Usage:   "tessera path info [flags] <path>",
				Flags:   g.flags("info", nil),
				Run: func(args []string) error {
					if err := exactArgs("path info", args, 1, "<path>"); err != nil {
						return err
					}
					return g.withSession(args[0], func(ctx context.Context, current session.Session, p path.Path) error {
						info, err := current.Info(ctx, p)
						if err != nil {
							return err
						}
						return writeSessionInfo(streams.Stdout, info)
					})
				},
			},
			{
				Name:    "cat",
				Summary: "Write the content at a path to stdout",
				Usage:   "tessera path cat [flags] <path>",
				Flags:   g.flags("cat", nil),
				Run: func(args []string) error {
					if err := exactArgs("path cat", args, 1, "<path>"); err != nil {
						return err
					}
					return g.withSession(args[0], func(ctx context.Context, current session.Session, p path.Path) error {
						content, err := current.Content(ctx, p)
						if err != nil {
							return err
						}
						defer content.Body.Close()
						_, err = io.Copy(streams.Stdout, content.Body)
						return err
					})
				},
			},
		},
	}
}

// withSession opens the store as the current storage session for the
// duration of fn.
func (g *globals) withSession(raw string, fn func(context.Context, session.Session, path.Path) error) error {
	p, err := path.Parse(raw)
	if err != nil {
		return err
	}
	s, _, _, err := g.openStore()
	if err != nil {
		return err
	}
	release, err := session.Open(s)
	if err != nil {
		return err
	}
	defer release()
	current, _ := session.Current()
	return fn(context.Background(), current, p)
}

func writeSessionInfo(w io.Writer, info session.Info) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "mime type:\t%s\n", info.MimeType)
	fmt.Fprintf(tw, "file type:\t%s\n", info.FileTypeTag)
	fmt.Fprintf(tw, "size:\t%s (%d bytes)\n", humanize.IBytes(uint64(info.Size)), info.Size)
	if !info.CreatedAt.IsZero() {
		fmt.Fprintf(tw, "created:\t%s\n", info.CreatedAt.UTC().Format(time.RFC3339))
	}
	return tw.Flush()
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/tessera/cmd/tessera/cli"
	"github.com/bureau-foundation/tessera/lib/key"
)

func portalCommand(streams Streams, g *globals) *cli.Command {
	var header headerFlags
	var expected string
	return &cli.Command{
		Name:    "portal",
		Summary: "Create and retarget mutable references",
		Subcommands: []*cli.Command{
			{
				Name:    "create",
				Summary: "Create a portal pointing at a key and print the portal key",
				Usage:   "tessera portal create [--type portal|vtree|mount] [flags] <target>",
				Flags: g.flags("create", func(flagSet *pflag.FlagSet) {
					header.register(flagSet, "portal")
				}),
				Run: func(args []string) error {
					if err := exactArgs("portal create", args, 1, "<target>"); err != nil {
						return err
					}
					target, err := key.Parse(args[0])
					if err != nil {
						return err
					}
					h, err := header.parse()
					if err != nil {
						return err
					}
					s, _, _, err := g.openStore()
					if err != nil {
						return err
					}
					portal, err := s.CreatePortal(h.Type, h.Role, h.Class, target)
					if err != nil {
						return err
					}
					fmt.Fprintln(streams.Stdout, portal)
					return nil
				},
			},
			{
				Name:    "set",
				Summary: "Point a portal at a new target",
				Usage:   "tessera portal set [--expected KEY] [flags] <portal> <target>",
				Flags: g.flags("set", func(flagSet *pflag.FlagSet) {
					flagSet.StringVar(&expected, "expected", "", "fail unless the portal currently points here")
				}),
				Run: func(args []string) error {
					if err := exactArgs("portal set", args, 2, "<portal> <target>"); err != nil {
						return err
					}
					portal, err := key.Parse(args[0])
					if err != nil {
						return err
					}
					target, err := key.Parse(args[1])
					if err != nil {
						return err
					}
					var expectedKey *key.Key
					if expected != "" {
						parsed, err := key.Parse(expected)
						if err != nil {
							return err
						}
						expectedKey = &parsed
					}
					s, _, _, err := g.openStore()
					if err != nil {
						return err
					}
					_, err = s.SetPortal(portal, target, expectedKey)
					return err
				},
			},
			{
				Name:    "resolve",
				Summary: "Print a portal's current target",
				Usage:   "tessera portal resolve [flags] <portal>",
				Flags:   g.flags("resolve", nil),
				Run: func(args []string) error {
					if err := exactArgs("portal resolve", args, 1, "<portal>"); err != nil {
						return err
					}
					portal, err := key.Parse(args[0])
					if err != nil {
						return err
					}
					s, _, _, err := g.openStore()
					if err != nil {
						return err
					}
					record, err := s.ResolvePortal(portal)
					if err != nil {
						return err
					}
					fmt.Fprintln(streams.Stdout, record.Target)
					return nil
				},
			},
			{
				Name:    "rm",
				Summary: "Delete a portal",
				Usage:   "tessera portal rm [flags] <portal>",
				Flags:   g.flags("rm", nil),
				Run: func(args []string) error {
					if err := exactArgs("portal rm", args, 1, "<portal>"); err != nil {
						return err
					}
					portal, err := key.Parse(args[0])
					if err != nil {
						return err
					}
					s, _, _, err := g.openStore()
					if err != nil {
						return err
					}
					return s.DeletePortal(portal)
				},
			},
			{
				Name:    "ls",
				Summary: "List portals and their targets",
				Usage:   "tessera portal ls [flags]",
				Flags:   g.flags("ls", nil),
				Run: func(args []string) error {
					s, _, _, err := g.openStore()
					if err != nil {
						return err
					}
					tw := tabwriter.NewWriter(streams.Stdout, 0, 0, 2, ' ', 0)
					for _, record := range s.Portals() {
						fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", record.Portal, record.Portal.Type(), record.Target,
							record.UpdatedAt.UTC().Format(time.RFC3339))
					}
					return tw.Flush()
				},
			},
		},
	}
}

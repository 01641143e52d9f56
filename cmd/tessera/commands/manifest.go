// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/bureau-foundation/tessera/cmd/tessera/cli"
	"github.com/bureau-foundation/tessera/lib/key"
	"github.com/bureau-foundation/tessera/lib/manifest"
)

func manifestCommand(streams Streams, g *globals) *cli.Command {
	return &cli.Command{
		Name:    "manifest",
		Summary: "Canonicalize, compare, and store manifests",
		Description: `Manifest files are either canonical ([[names],[keys]]) or source form:
a JSON object mapping names to key strings or null, with comments and
trailing commas allowed.`,
		Subcommands: []*cli.Command{
			{
				Name:    "canonical",
				Summary: "Print the canonical serialization of a manifest file",
				Usage:   "tessera manifest canonical <file|->",
				Run: func(args []string) error {
					if err := exactArgs("manifest canonical", args, 1, "<file|->"); err != nil {
						return err
					}
					m, err := readManifest(streams.Stdin, args[0])
					if err != nil {
						return err
					}
					fmt.Fprintln(streams.Stdout, m.Serialize())
					return nil
				},
			},
			{
				Name:    "identity",
				Summary: "Print the container key of a manifest file",
				Usage:   "tessera manifest identity <file|->",
				Run: func(args []string) error {
					if err := exactArgs("manifest identity", args, 1, "<file|->"); err != nil {
						return err
					}
					m, err := readManifest(streams.Stdin, args[0])
					if err != nil {
						return err
					}
					fmt.Fprintln(streams.Stdout, m.Identity())
					return nil
				},
			},
			{
				Name:    "diff",
				Summary: "Print the patches that turn one manifest into another",
				Usage:   "tessera manifest diff <previous> <current>",
				Description: `Print the top-level patches that transform <previous> into <current>.
Names holding containers on both sides produce no patch; compare those
manifests with a further diff. A name that switches between container
and leaf produces a delete followed by an update.`,
				Run: func(args []string) error {
					if err := exactArgs("manifest diff", args, 2, "<previous> <current>"); err != nil {
						return err
					}
					if args[0] == "-" && args[1] == "-" {
						return cli.Usagef("manifest diff: only one of <previous> and <current> can be read from stdin")
					}
					previous, err := readManifest(streams.Stdin, args[0])
					if err != nil {
						return err
					}
					current, err := readManifest(streams.Stdin, args[1])
					if err != nil {
						return err
					}
					for patch := range current.Patches(previous) {
						fmt.Fprintln(streams.Stdout, patch)
					}
					return nil
				},
			},
			{
				Name:    "put",
				Summary: "Store a manifest file and print its key",
				Usage:   "tessera manifest put [flags] <file|->",
				Flags:   g.flags("put", nil),
				Run: func(args []string) error {
					if err := exactArgs("manifest put", args, 1, "<file|->"); err != nil {
						return err
					}
					m, err := readManifest(streams.Stdin, args[0])
					if err != nil {
						return err
					}
					s, _, _, err := g.openStore()
					if err != nil {
						return err
					}
					k, err := s.PutManifest(m)
					if err != nil {
						return err
					}
					fmt.Fprintln(streams.Stdout, k)
					return nil
				},
			},
			{
				Name:    "show",
				Summary: "List the entries of a stored manifest",
				Usage:   "tessera manifest show [flags] <key>",
				Flags:   g.flags("show", nil),
				Run: func(args []string) error {
					if err := exactArgs("manifest show", args, 1, "<key>"); err != nil {
						return err
					}
					k, err := key.Parse(args[0])
					if err != nil {
						return err
					}
					s, _, _, err := g.openStore()
					if err != nil {
						return err
					}
					m, err := s.LoadManifest(k)
					if err != nil {
						return err
					}
					return writeEntries(streams.Stdout, m)
				},
			},
		},
	}
}

// readManifest reads a manifest file in canonical or source form.
func readManifest(stdin io.Reader, name string) (*manifest.Manifest, error) {
	var data []byte
	var err error
	if name == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(name)
	}
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	trimmed := bytes.TrimSpace(data)
	if bytes.HasPrefix(trimmed, []byte("[")) {
		m, err := manifest.Parse(trimmed)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", name, err)
		}
		return m, nil
	}
	m, err := manifest.ParseSource(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}
	return m, nil
}

func writeEntries(w io.Writer, m *manifest.Manifest) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for name, entry := range m.All() {
		kind := "leaf"
		if entry.IsContainer() {
			kind = "dir"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", kind, name, entry)
	}
	return tw.Flush()
}

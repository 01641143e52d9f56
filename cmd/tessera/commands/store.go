// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/tessera/cmd/tessera/cli"
	"github.com/bureau-foundation/tessera/lib/codec"
	"github.com/bureau-foundation/tessera/lib/key"
	"github.com/bureau-foundation/tessera/lib/store"
)

func storeCommand(streams Streams, g *globals) *cli.Command {
	return &cli.Command{
		Name:    "store",
		Summary: "Put, get, and inspect objects in the local store",
		Subcommands: []*cli.Command{
			storePutCommand(streams, g),
			storeGetCommand(streams, g),
			storeInfoCommand(streams, g),
			storeHasCommand(streams, g),
			storeListCommand(streams, g),
			storeKeygenCommand(streams),
		},
	}
}

func storePutCommand(streams Streams, g *globals) *cli.Command {
	var header headerFlags
	var mimeType, fileType string
	return &cli.Command{
		Name:    "put",
		Summary: "Store files and print their keys",
		Usage:   "tessera store put [flags] [file...]",
		Examples: []cli.Example{
			{Description: "Store a file", Command: "tessera store put notes.txt"},
			{Description: "Store stdin as an event", Command: "produce | tessera store put --class event -"},
		},
		Flags: g.flags("put", func(flagSet *pflag.FlagSet) {
			header.register(flagSet, "")
			flagSet.StringVar(&mimeType, "mime", "", "MIME type (default: sniffed)")
			flagSet.StringVar(&fileType, "file-type", "", "file type tag (default: derived from the key)")
		}),
		Run: func(args []string) error {
			h, err := header.parse()
			if err != nil {
				return err
			}
			s, _, logger, err := g.openStore()
			if err != nil {
				return err
			}
			if len(args) == 0 {
				args = []string{"-"}
			}
			options := store.PutOptions{Role: h.Role, Class: h.Class, MimeType: mimeType, FileTypeTag: fileType}
			for _, name := range args {
				k, err := putInput(s, streams.Stdin, name, options)
				if err != nil {
					return err
				}
				logger.Debug("stored", "path", name, "key", k.Short())
				fmt.Fprintf(streams.Stdout, "%s\t%s\n", k, name)
			}
			return nil
		},
	}
}

func putInput(s *store.Store, stdin io.Reader, name string, options store.PutOptions) (key.Key, error) {
	if name == "-" {
		return s.Put(stdin, options)
	}
	file, err := os.Open(name)
	if err != nil {
		return key.Key{}, err
	}
	defer file.Close()
	k, err := s.Put(file, options)
	if err != nil {
		return key.Key{}, fmt.Errorf("storing %s: %w", name, err)
	}
	return k, nil
}

func storeGetCommand(streams Streams, g *globals) *cli.Command {
	var output string
	return &cli.Command{
		Name:    "get",
		Summary: "Write an object's content to stdout or a file",
		Usage:   "tessera store get [flags] <key>",
		Flags: g.flags("get", func(flagSet *pflag.FlagSet) {
			flagSet.StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
		}),
		Run: func(args []string) error {
			if err := exactArgs("store get", args, 1, "<key>"); err != nil {
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
			content, _, err := s.ReadAll(k)
			if err != nil {
				return err
			}
			if output == "" {
				_, err = streams.Stdout.Write(content)
				return err
			}
			return os.WriteFile(output, content, 0o644)
		},
	}
}

func storeInfoCommand(streams Streams, g *globals) *cli.Command {
	var diagnostic bool
	return &cli.Command{
		Name:    "info",
		Summary: "Show the info record of an object",
		Usage:   "tessera store info [flags] <key>",
		Flags: g.flags("info", func(flagSet *pflag.FlagSet) {
			flagSet.BoolVar(&diagnostic, "cbor", false, "print the record in CBOR diagnostic notation")
		}),
		Run: func(args []string) error {
			if err := exactArgs("store info", args, 1, "<key>"); err != nil {
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
			info, err := s.Stat(k)
			if err != nil {
				return err
			}
			if diagnostic {
				encoded, err := codec.Marshal(info)
				if err != nil {
					return err
				}
				notation, err := codec.Diagnose(encoded)
				if err != nil {
					return err
				}
				fmt.Fprintln(streams.Stdout, notation)
				return nil
			}
			return writeObjectInfo(streams.Stdout, info)
		},
	}
}

func writeObjectInfo(w io.Writer, info store.ObjectInfo) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "key:\t%s\n", info.Key)
	fmt.Fprintf(tw, "mime type:\t%s\n", info.MimeType)
	fmt.Fprintf(tw, "file type:\t%s\n", info.FileTypeTag)
	fmt.Fprintf(tw, "size:\t%s (%d bytes)\n", humanize.IBytes(uint64(info.Size)), info.Size)
	fmt.Fprintf(tw, "stored:\t%s\n", humanize.IBytes(uint64(info.StoredSize)))
	fmt.Fprintf(tw, "compression:\t%s\n", info.Compression)
	fmt.Fprintf(tw, "encrypted:\t%t\n", info.Encrypted)
	if !info.CreatedAt.IsZero() {
		fmt.Fprintf(tw, "created:\t%s (%s)\n", info.CreatedAt.UTC().Format(time.RFC3339), humanize.Time(info.CreatedAt))
	}
	return tw.Flush()
}

func storeHasCommand(streams Streams, g *globals) *cli.Command {
	return &cli.Command{
		Name:        "has",
		Summary:     "Exit 0 if an object is readable, 1 otherwise",
		Usage:       "tessera store has [flags] <key>",
		Description: "Check whether the store can serve a key. Prints \"yes\" or \"no\"; exits 1 for no.",
		Flags:       g.flags("has", nil),
		Run: func(args []string) error {
			if err := exactArgs("store has", args, 1, "<key>"); err != nil {
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
			if !s.Has(k) {
				fmt.Fprintln(streams.Stdout, "no")
				return &cli.ExitError{Code: 1}
			}
			fmt.Fprintln(streams.Stdout, "yes")
			return nil
		},
	}
}

func storeListCommand(streams Streams, g *globals) *cli.Command {
	var long bool
	return &cli.Command{
		Name:    "ls",
		Summary: "List stored objects",
		Usage:   "tessera store ls [flags]",
		Flags: g.flags("ls", func(flagSet *pflag.FlagSet) {
			flagSet.BoolVarP(&long, "long", "l", false, "show size and file type")
		}),
		Run: func(args []string) error {
			if len(args) != 0 {
				return cli.Usagef("usage: tessera store ls [flags]")
			}
			s, _, _, err := g.openStore()
			if err != nil {
				return err
			}
			keys, err := s.Keys()
			if err != nil {
				return err
			}
			slices.SortFunc(keys, func(a, b key.Key) int { return strings.Compare(a.String(), b.String()) })
			tw := tabwriter.NewWriter(streams.Stdout, 0, 0, 2, ' ', 0)
			for _, k := range keys {
				if !long {
					fmt.Fprintln(tw, k)
					continue
				}
				info, err := s.Stat(k)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", k, humanize.IBytes(uint64(info.Size)), info.FileTypeTag, info.Compression)
			}
			return tw.Flush()
		},
	}
}

func storeKeygenCommand(streams Streams) *cli.Command {
	var output string
	return &cli.Command{
		Name:    "keygen",
		Summary: "Generate an age identity for encrypting stored objects",
		Usage:   "tessera store keygen [-o identity-file]",
		Description: `Generate an X25519 age identity. The public key goes in
store.encryption.recipients and the identity file path in
store.encryption.identity_file.`,
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("keygen", pflag.ContinueOnError)
			flagSet.StringVarP(&output, "output", "o", "", "write the identity to this file (mode 0600)")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 0 {
				return cli.Usagef("usage: tessera store keygen [-o identity-file]")
			}
			identity, recipient, err := store.GenerateIdentity()
			if err != nil {
				return err
			}
			fmt.Fprintf(streams.Stderr, "public key: %s\n", recipient)
			contents := fmt.Sprintf("# public key: %s\n%s\n", recipient, identity)
			if output == "" {
				_, err = io.WriteString(streams.Stdout, contents)
				return err
			}
			if err := os.WriteFile(output, []byte(contents), 0o600); err != nil {
				return fmt.Errorf("writing identity: %w", err)
			}
			return nil
		},
	}
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"encoding/hex"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/ipfs/go-cid"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/tessera/cmd/tessera/cli"
	"github.com/bureau-foundation/tessera/lib/classify"
	"github.com/bureau-foundation/tessera/lib/key"
	"github.com/bureau-foundation/tessera/lib/store"
)

// headerFlags holds --role/--type/--class as strings until parsed.
type headerFlags struct {
	role  string
	typ   string
	class string
}

// register adds the flags. The --type flag is added only when
// defaultType is non-empty.
func (h *headerFlags) register(flagSet *pflag.FlagSet, defaultType string) {
	flagSet.StringVar(&h.role, "role", "leaf", "key role: leaf or container")
	flagSet.StringVar(&h.class, "class", "generic", "key class: generic, event, dag-state, or json-wrap")
	if defaultType != "" {
		flagSet.StringVar(&h.typ, "type", defaultType, "key type: inline, hash, portal, vtree, or mount")
	}
}

func (h *headerFlags) parse() (key.Header, error) {
	role, err := key.ParseRole(h.role)
	if err != nil {
		return key.Header{}, err
	}
	class, err := key.ParseClass(h.class)
	if err != nil {
		return key.Header{}, err
	}
	header := key.Header{Role: role, Class: class}
	if h.typ != "" {
		if header.Type, err = key.ParseType(h.typ); err != nil {
			return key.Header{}, err
		}
	}
	return header, nil
}

func keyCommand(streams Streams) *cli.Command {
	return &cli.Command{
		Name:    "key",
		Summary: "Encode, decode, and convert keys",
		Subcommands: []*cli.Command{
			keyDecodeCommand(streams),
			keyEncodeCommand(streams),
			keyFromCIDCommand(streams),
			keyShardCommand(streams),
		},
	}
}

func keyDecodeCommand(streams Streams) *cli.Command {
	return &cli.Command{
		Name:    "decode",
		Summary: "Show the header and payload of a key",
		Usage:   "tessera key decode <key>",
		Run: func(args []string) error {
			if err := exactArgs("key decode", args, 1, "<key>"); err != nil {
				return err
			}
			k, err := key.Parse(args[0])
			if err != nil {
				return err
			}
			return describeKey(streams.Stdout, k)
		},
	}
}

// describeKey writes one field per line for k.
func describeKey(w io.Writer, k key.Key) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "key:\t%s\n", k)
	fmt.Fprintf(tw, "role:\t%s\n", k.Role())
	fmt.Fprintf(tw, "type:\t%s\n", k.Type())
	fmt.Fprintf(tw, "class:\t%s\n", k.Class())
	fmt.Fprintf(tw, "payload:\t%s\n", hex.EncodeToString(k.Payload()))
	fmt.Fprintf(tw, "file type:\t%s\n", store.FileTypeFor(k))
	if k.IsResolved() {
		id, err := k.CID()
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "cid:\t%s\n", id)
	}
	return tw.Flush()
}

func keyEncodeCommand(streams Streams) *cli.Command {
	var header headerFlags
	return &cli.Command{
		Name:    "encode",
		Summary: "Build a key from a header and a hex payload",
		Usage:   "tessera key encode [--role R] [--type T] [--class C] [hex-payload]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("encode", pflag.ContinueOnError)
			header.register(flagSet, "inline")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) > 1 {
				return cli.Usagef("usage: tessera key encode [flags] [hex-payload]")
			}
			h, err := header.parse()
			if err != nil {
				return err
			}
			var payload []byte
			if len(args) == 1 {
				if payload, err = hex.DecodeString(args[0]); err != nil {
					return fmt.Errorf("decoding payload: %w", err)
				}
			}
			k, err := key.New(h, payload)
			if err != nil {
				return err
			}
			fmt.Fprintln(streams.Stdout, k)
			return nil
		},
	}
}

func keyFromCIDCommand(streams Streams) *cli.Command {
	var header headerFlags
	return &cli.Command{
		Name:    "from-cid",
		Summary: "Convert a BLAKE3 CID to a hash-resolved key",
		Usage:   "tessera key from-cid [--role R] [--class C] <cid>",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("from-cid", pflag.ContinueOnError)
			header.register(flagSet, "")
			return flagSet
		},
		Run: func(args []string) error {
			if err := exactArgs("key from-cid", args, 1, "<cid>"); err != nil {
				return err
			}
			h, err := header.parse()
			if err != nil {
				return err
			}
			id, err := cid.Decode(args[0])
			if err != nil {
				return fmt.Errorf("decoding cid: %w", err)
			}
			k, err := key.FromCID(id, h.Role, h.Class)
			if err != nil {
				return err
			}
			fmt.Fprintln(streams.Stdout, k)
			return nil
		},
	}
}

func keyShardCommand(streams Streams) *cli.Command {
	var base int
	return &cli.Command{
		Name:    "shard",
		Summary: "Show the shard index of a key",
		Usage:   "tessera key shard [--base N] <key>",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("shard", pflag.ContinueOnError)
			flagSet.IntVar(&base, "base", store.DefaultShardBase, "number of shards")
			return flagSet
		},
		Run: func(args []string) error {
			if err := exactArgs("key shard", args, 1, "<key>"); err != nil {
				return err
			}
			k, err := key.Parse(args[0])
			if err != nil {
				return err
			}
			index, err := classify.ShardIndex(k, base)
			if err != nil {
				return err
			}
			fmt.Fprintln(streams.Stdout, index)
			return nil
		},
	}
}

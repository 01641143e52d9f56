// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/tessera/cmd/tessera/cli"
	"github.com/bureau-foundation/tessera/lib/version"
)

func versionCommand(streams Streams) *cli.Command {
	var full, short bool
	return &cli.Command{
		Name:    "version",
		Summary: "Print version information",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("version", pflag.ContinueOnError)
			flagSet.BoolVar(&full, "full", false, "include Go version, platform, and store format")
			flagSet.BoolVar(&short, "short", false, "print only the version number")
			return flagSet
		},
		Run: func(args []string) error {
			switch {
			case full:
				fmt.Fprintln(streams.Stdout, version.Full())
			case short:
				fmt.Fprintln(streams.Stdout, version.Short())
			default:
				fmt.Fprintln(streams.Stdout, version.Info())
			}
			return nil
		},
	}
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/tessera/cmd/tessera/cli"
	"github.com/bureau-foundation/tessera/lib/classify"
)

func classifyCommand(streams Streams) *cli.Command {
	var header headerFlags
	var chunkSize int
	return &cli.Command{
		Name:    "classify",
		Summary: "Compute the key of a file without storing it",
		Usage:   "tessera classify [--role R] [--class C] [file...]",
		Description: `Read each file (or stdin when none is given, or for "-") and print
its key, size, and whether the content fits inline.`,
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("classify", pflag.ContinueOnError)
			header.register(flagSet, "")
			flagSet.IntVar(&chunkSize, "chunk-size", classify.DefaultChunkSize, "read size in bytes")
			return flagSet
		},
		Run: func(args []string) error {
			h, err := header.parse()
			if err != nil {
				return err
			}
			if len(args) == 0 {
				args = []string{"-"}
			}
			for _, name := range args {
				classification, err := classifyInput(streams.Stdin, name, chunkSize)
				if err != nil {
					return err
				}
				k, err := classify.KeyFromClassification(classification, h.Role, h.Class)
				if err != nil {
					return err
				}
				representation := "hash"
				if classification.HasInline {
					representation = "inline"
				}
				fmt.Fprintf(streams.Stdout, "%s\t%s\t%s\t%s\n",
					k, humanize.IBytes(uint64(classification.Size)), representation, name)
			}
			return nil
		},
	}
}

func classifyInput(stdin io.Reader, name string, chunkSize int) (classify.Classification, error) {
	if name == "-" {
		return classify.Classify(stdin, chunkSize)
	}
	file, err := os.Open(name)
	if err != nil {
		return classify.Classification{}, err
	}
	defer file.Close()
	classification, err := classify.Classify(file, chunkSize)
	if err != nil {
		return classify.Classification{}, fmt.Errorf("classifying %s: %w", name, err)
	}
	return classification, nil
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Tessera is the command-line interface to tessera keys, manifests,
// and the local object store.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/bureau-foundation/tessera/cmd/tessera/cli"
	"github.com/bureau-foundation/tessera/cmd/tessera/commands"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	err := commands.Root(commands.StandardStreams()).Execute(args)
	if err == nil {
		return 0
	}
	// Commands that report their own outcome return an ExitError.
	var exit *cli.ExitError
	if errors.As(err, &exit) {
		return exit.Code
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	var usage *cli.UsageError
	if errors.As(err, &usage) {
		return 2
	}
	return 1
}

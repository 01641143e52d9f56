// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the command framework for the tessera binary: a tree
// of Commands with pflag flag sets, generated help, typo suggestions,
// and a structured logger for command output.
package cli

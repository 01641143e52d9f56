// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import "fmt"

// ExitError makes the binary exit with Code without printing anything
// further. The command has already written its own output; "store has"
// uses it to report absence with status 1.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// ExitCode implements the exit-code protocol checked by main.
func (e *ExitError) ExitCode() int {
	return e.Code
}

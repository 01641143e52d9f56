// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package key

import (
	"errors"
	"fmt"
)

// FormatError reports malformed encoded data: a key or path string with
// characters outside the alphabet, a payload length that does not fit
// the decoded type, an undefined header code, or an invalid segment.
type FormatError struct {
	// Input is the offending string (or a description of the input
	// for binary data).
	Input string

	// Reason says what is wrong with it.
	Reason string
}

func (e *FormatError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("malformed %q: %s", e.Input, e.Reason)
}

// StateError reports an operation that is invalid for the current state
// of its receiver, such as splitting a segment off an absolute path or
// mutating a published manifest.
type StateError struct {
	// Op names the rejected operation.
	Op string

	// Reason says why the operation was rejected.
	Reason string
}

func (e *StateError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

// IsFormatError reports whether err is or wraps a *FormatError.
func IsFormatError(err error) bool {
	var formatError *FormatError
	return errors.As(err, &formatError)
}

// IsStateError reports whether err is or wraps a *StateError.
func IsStateError(err error) bool {
	var stateError *StateError
	return errors.As(err, &stateError)
}

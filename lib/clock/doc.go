// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// The local store stamps object info and portal records with creation
// and update times. It takes a Clock instead of calling time.Now, so
// tests can pin the timestamps:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	s, err := store.Open(root, store.Options{Clock: c})
//	c.Advance(time.Minute)
package clock

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package manifestfs serves a store's manifest tree as a read-only FUSE
// filesystem.
//
// The mount has two top-level directories:
//
//	tree/   the manifest tree under the configured root key
//	key/    lookup by key string; not listable
//
// Container entries appear as directories and leaf entries as regular
// files. Placeholders appear as empty directories. Portals are
// followed on every lookup, so retargeting a portal is visible in the
// mount once the kernel's entry cache expires.
package manifestfs

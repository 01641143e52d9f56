// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package manifest implements Tessera's self-addressing directory
// object: a sorted mapping from names to keys, where any name may hold
// an absent placeholder instead of a key.
//
// A manifest's canonical serialization is a JSON array pair
//
//	[["a","b","c"],["<key>",null,"<key>"]]
//
// with names in ascending byte order, no insignificant whitespace, and
// HTML escaping disabled. Its identity is the key of those bytes with
// the container role, so a manifest is ordinary addressable content: a
// small manifest is an inline key, a larger one a hash-resolved key.
// Two manifests holding the same entries always serialize identically,
// whatever order the entries were set in.
//
// Derived values (sorted names, serialization, identity, the inverse
// key-to-names lookup) are computed lazily and cached. Every mutation
// bumps a generation counter and each cache cell remembers the
// generation it was computed at, so a stale cell is never served.
//
// Publish freezes a manifest. Published manifests are immutable and
// safe for concurrent readers; the caches are filled under a mutex.
// An unpublished manifest belongs to a single writer.
//
// # Reconciliation
//
// Merge compares a manifest with a previous version and returns the
// patches that evolve the previous version into this one, in strict
// name order. Entries that are containers on both sides produce no
// patch: reconciling their contents is done by merging the
// sub-manifests they reference, which callers do themselves. A change
// between container and leaf is expressed as a delete followed by an
// update, never as a plain update.
package manifest

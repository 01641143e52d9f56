// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package store is Tessera's local object store: a directory of
// content-addressed objects, their metadata records, and the portal
// table that gives mutable names to immutable content.
//
// Objects are addressed by keys from package classify. Bodies are
// optionally compressed (LZ4 or zstd, chosen per object under the auto
// policy) and optionally encrypted to age X25519 recipients. Every
// read recomputes the BLAKE3 digest and refuses content that does not
// match its key.
//
// Portals are reference keys (portal, versioned tree, or mount) whose
// target can be changed with compare-and-swap. Resolution follows
// chains of portals up to MaxPortalDepth hops.
//
// Store implements session.Session: Resolve walks an absolute path from
// its root key through container manifests, and Info and Content
// report what the path addresses.
package store

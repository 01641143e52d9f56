// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package key defines Tessera's compact, self-describing object
// identifier. A [Key] is a one-byte header followed by a payload of at
// most 32 bytes:
//
//   - Inline keys embed small content (0 to 32 bytes) directly in the
//     payload. No storage lookup is needed to read them.
//   - HashResolved keys carry the 32-byte BLAKE3 digest of larger
//     content and are permanently bound to it.
//   - Portal, VersionedTree, and MountRef keys carry a random 32-byte
//     name. Their identity never changes, but the content they refer to
//     may.
//
// The header packs three closed enumerations into a single byte:
//
//	bit  7 6 5 4 | 3 2 1 | 0
//	     class   | type  | role
//
// The canonical string form is the base-62 encoding (alphabet
// 0-9A-Za-z) of the header byte followed by the payload. It is
// printable ASCII with no separators, so keys embed cleanly in paths,
// filenames, and JSON.
//
// Keys are comparable values: == is identity, and keys can be used as
// map keys. All constructors and decoders validate their inputs and
// return [*FormatError] for malformed data, so an invalid Key never
// exists.
package key

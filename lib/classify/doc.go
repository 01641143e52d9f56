// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package classify derives keys for content. [Classify] streams content
// through a BLAKE3-256 hasher and decides whether the content is small
// enough (at most [key.MaxInlineSize] bytes) to embed in an inline key
// or must be addressed by its digest. [ShardIndex] assigns keys to a
// bounded number of storage partitions deterministically.
//
// Content digests are plain (unkeyed) BLAKE3-256 so that hash-resolved
// keys map directly to CIDs. Shard placement uses a keyed hash in its
// own domain so that bucket assignment is independent of digest prefix
// patterns.
package classify

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package classify

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/tessera/lib/key"
)

// DefaultChunkSize is the read size used when Classify is called with a
// non-positive chunk size.
const DefaultChunkSize = 64 * 1024

// Classification is the result of streaming content through the
// classifier.
type Classification struct {
	// Digest is the BLAKE3-256 hash of the complete content.
	Digest [key.DigestSize]byte

	// Inline holds the exact content when it is at most
	// key.MaxInlineSize bytes long. Nil otherwise, or for empty
	// content (check HasInline).
	Inline []byte

	// HasInline is true when the content fits in an inline key.
	HasInline bool

	// Size is the total content length in bytes.
	Size int64
}

// Classify reads r to EOF in chunks of chunkSize bytes, hashing every
// chunk and keeping the content only while its running length is at
// most key.MaxInlineSize. Once that threshold is crossed the buffer is
// dropped for good, so memory use is bounded by chunkSize regardless
// of content length. The result depends only on the bytes read, never
// on chunkSize or on how r splits its reads.
//
// Classify does not bound r; callers reading untrusted streams should
// wrap r in an io.LimitReader.
func Classify(r io.Reader, chunkSize int) (Classification, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	hasher := blake3.New()
	chunk := make([]byte, chunkSize)

	var (
		total    int64
		inline   []byte
		tracking = true
	)

	for {
		n, err := r.Read(chunk)
		if n > 0 {
			hasher.Write(chunk[:n])
			total += int64(n)
			if tracking {
				if total <= key.MaxInlineSize {
					inline = append(inline, chunk[:n]...)
				} else {
					tracking = false
					inline = nil
				}
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Classification{}, fmt.Errorf("reading content: %w", err)
		}
	}

	var result Classification
	copy(result.Digest[:], hasher.Sum(nil))
	result.Size = total
	if tracking {
		result.HasInline = true
		result.Inline = inline
	}
	return result, nil
}

// ClassifyBytes classifies an in-memory buffer. It cannot fail.
func ClassifyBytes(content []byte) Classification {
	result, err := Classify(bytes.NewReader(content), DefaultChunkSize)
	if err != nil {
		// bytes.Reader only returns io.EOF.
		panic("classify: reading from bytes.Reader failed: " + err.Error())
	}
	return result
}

// KeyFromClassification returns an inline key holding the content when
// it fits, otherwise a hash-resolved key holding the digest. Undefined
// role or class codes return a *key.FormatError.
func KeyFromClassification(c Classification, role key.Role, class key.Class) (key.Key, error) {
	if c.HasInline {
		return key.Inline(role, class, c.Inline)
	}
	return key.HashResolved(role, class, c.Digest)
}

// LeafKey is KeyFromClassification with the leaf role and generic
// class, the common case for plain file content.
func LeafKey(c Classification) key.Key {
	k, err := KeyFromClassification(c, key.RoleLeaf, key.ClassGeneric)
	if err != nil {
		// Leaf and generic are defined codes and Classify never keeps
		// more than MaxInlineSize bytes.
		panic("classify: building leaf key: " + err.Error())
	}
	return k
}

// KeyOf classifies content and returns its key in one call.
func KeyOf(content []byte, role key.Role, class key.Class) (key.Key, error) {
	return KeyFromClassification(ClassifyBytes(content), role, class)
}

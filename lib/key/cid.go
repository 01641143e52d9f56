// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package key

import (
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// CID returns the CIDv1 (raw codec, BLAKE3-256 multihash) naming the
// same bytes as a hash-resolved key. Tessera content digests are plain
// BLAKE3-256, so the CID is accepted by any IPFS implementation that
// supports the blake3 multihash. Other key types have no content to
// name and return a *StateError.
func (k Key) CID() (cid.Cid, error) {
	if !k.IsResolved() {
		return cid.Undef, &StateError{Op: "cid", Reason: fmt.Sprintf("%s keys do not address content by hash", k.Type())}
	}
	encoded, err := multihash.Encode(k.payload[:], multihash.BLAKE3)
	if err != nil {
		return cid.Undef, fmt.Errorf("encoding blake3 multihash: %w", err)
	}
	return cid.NewCidV1(cid.Raw, encoded), nil
}

// FromCID converts a CID with a 32-byte BLAKE3 multihash back into a
// hash-resolved key with the given role and class. CIDs using any
// other hash function cannot be represented and return a *FormatError.
func FromCID(id cid.Cid, role Role, class Class) (Key, error) {
	if !id.Defined() {
		return Key{}, &FormatError{Input: "<undefined cid>", Reason: "cid is undefined"}
	}
	decoded, err := multihash.Decode(id.Hash())
	if err != nil {
		return Key{}, &FormatError{Input: id.String(), Reason: "decoding multihash: " + err.Error()}
	}
	if decoded.Code != multihash.BLAKE3 {
		return Key{}, &FormatError{Input: id.String(), Reason: fmt.Sprintf("multihash %s is not blake3", decoded.Name)}
	}
	if len(decoded.Digest) != DigestSize {
		return Key{}, &FormatError{Input: id.String(), Reason: fmt.Sprintf("digest is %d bytes, want %d", len(decoded.Digest), DigestSize)}
	}
	var digest [DigestSize]byte
	copy(digest[:], decoded.Digest)
	return HashResolved(role, class, digest)
}

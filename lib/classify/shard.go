// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package classify

import (
	"encoding/binary"
	"fmt"

	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/tessera/lib/key"
)

// MaxShardBase is the largest partition count ShardIndex supports.
const MaxShardBase = 8192

// shardDomainKey is the BLAKE3 key for shard placement. The bytes are
// the ASCII domain name, zero-padded to 32 bytes. Changing it moves
// every stored object to a different bucket.
var shardDomainKey = [32]byte{
	't', 'e', 's', 's', 'e', 'r', 'a', '.', 's', 'h', 'a', 'r', 'd', 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// ShardIndex returns the partition in [0, base) for k. Keys with an
// empty payload go to bucket 0, keys with a one-byte payload go to
// that byte's value (reduced modulo base), and everything else is
// spread by a keyed BLAKE3 hash of the payload. The result depends
// only on the payload and base, so it is stable across processes and
// releases.
func ShardIndex(k key.Key, base int) (int, error) {
	if base < 1 || base > MaxShardBase {
		return 0, fmt.Errorf("shard base %d out of range [1, %d]", base, MaxShardBase)
	}

	payload := k.Payload()
	switch len(payload) {
	case 0:
		return 0, nil
	case 1:
		return int(payload[0]) % base, nil
	}

	hasher, err := blake3.NewKeyed(shardDomainKey[:])
	if err != nil {
		panic("classify: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(payload)
	sum := hasher.Sum(nil)
	return int(binary.BigEndian.Uint64(sum[:8]) % uint64(base)), nil
}

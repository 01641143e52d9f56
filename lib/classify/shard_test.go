// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package classify

import (
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/tessera/lib/key"
)

func mustInline(t *testing.T, payload []byte) key.Key {
	t.Helper()
	k, err := key.Inline(key.RoleLeaf, key.ClassGeneric, payload)
	if err != nil {
		t.Fatal(err)
	}
	return k
}

func TestShardIndexShortPayloads(t *testing.T) {
	tests := []struct {
		payload []byte
		base    int
		want    int
	}{
		{nil, 8192, 0},
		{nil, 1, 0},
		{[]byte{0xC8}, 8192, 200},
		{[]byte{0xC8}, 256, 200},
		{[]byte{0xC8}, 100, 0},
		{[]byte{0xFF}, 16, 15},
	}
	for _, test := range tests {
		got, err := ShardIndex(mustInline(t, test.payload), test.base)
		if err != nil {
			t.Fatalf("ShardIndex(%x, %d): %v", test.payload, test.base, err)
		}
		if got != test.want {
			t.Errorf("ShardIndex(%x, %d) = %d, want %d", test.payload, test.base, got, test.want)
		}
	}
}

func TestShardIndexRejectsBadBase(t *testing.T) {
	k := mustInline(t, []byte("x"))
	for _, base := range []int{0, -1, MaxShardBase + 1} {
		if _, err := ShardIndex(k, base); err == nil {
			t.Errorf("ShardIndex(base=%d) succeeded, want error", base)
		}
	}
}

func TestShardIndexIsKeyedHashOfPayload(t *testing.T) {
	// The bucket is a pure function of the payload: recompute it from
	// the documented construction to pin the algorithm.
	k := LeafKey(ClassifyBytes([]byte("a payload long enough to be addressed by hash, not inline")))
	hasher, err := blake3.NewKeyed(shardDomainKey[:])
	if err != nil {
		t.Fatal(err)
	}
	hasher.Write(k.Payload())
	want := int(binary.BigEndian.Uint64(hasher.Sum(nil)[:8]) % 8192)

	for range 3 {
		got, err := ShardIndex(k, 8192)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Fatalf("ShardIndex = %d, want %d", got, want)
		}
	}

	// Role and class do not move a key between buckets.
	container := k.WithRole(key.RoleContainer)
	got, err := ShardIndex(container, 8192)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("container role moved bucket: %d, want %d", got, want)
	}
}

func TestShardIndexDistribution(t *testing.T) {
	const (
		base  = 16
		count = 10000
	)
	buckets := make([]int, base)
	for i := range count {
		k := LeafKey(ClassifyBytes([]byte(fmt.Sprintf("object number %06d with enough padding to hash", i))))
		index, err := ShardIndex(k, base)
		if err != nil {
			t.Fatal(err)
		}
		if index < 0 || index >= base {
			t.Fatalf("ShardIndex = %d, out of [0, %d)", index, base)
		}
		buckets[index]++
	}
	// Expected 625 per bucket; a uniform hash stays far inside these
	// bounds (standard deviation is about 24).
	for index, n := range buckets {
		if n < 450 || n > 800 {
			t.Errorf("bucket %d holds %d keys, expected near %d", index, n, count/base)
		}
	}
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/tessera/lib/key"
)

type sampleRecord struct {
	Target    key.Key   `cbor:"target"`
	Previous  *key.Key  `cbor:"previous,omitempty"`
	CreatedAt time.Time `cbor:"created_at"`
	Size      int64     `cbor:"size"`
}

func sampleKey(t *testing.T) key.Key {
	t.Helper()
	k, err := key.Inline(key.RoleLeaf, key.ClassEvent, []byte("payload"))
	if err != nil {
		t.Fatal(err)
	}
	return k
}

func TestMarshalUnmarshalRoundtrip(t *testing.T) {
	original := sampleRecord{
		Target:    sampleKey(t),
		CreatedAt: time.Unix(1735689600, 0).UTC(),
		Size:      42,
	}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded sampleRecord
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Target != original.Target {
		t.Errorf("Target = %s, want %s", decoded.Target, original.Target)
	}
	if decoded.Previous != nil {
		t.Errorf("Previous = %v, want nil", decoded.Previous)
	}
	if !decoded.CreatedAt.Equal(original.CreatedAt) || decoded.Size != original.Size {
		t.Errorf("roundtrip mismatch: got %+v, want %+v", decoded, original)
	}
}

func TestKeysEncodeAsText(t *testing.T) {
	k := sampleKey(t)
	data, err := Marshal(map[string]key.Key{"k": k})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	diagnostic, err := Diagnose(data)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if !strings.Contains(diagnostic, `"`+k.String()+`"`) {
		t.Errorf("diagnostic %s does not contain the key string %q", diagnostic, k.String())
	}
}

func TestMarshalDeterministic(t *testing.T) {
	k := sampleKey(t)
	first, err := Marshal(map[string]any{"zeta": 1, "alpha": k, "mid": []string{"a"}})
	if err != nil {
		t.Fatal(err)
	}
	second, err := Marshal(map[string]any{"mid": []string{"a"}, "alpha": k, "zeta": 1})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("deterministic encoding violated: %x != %x", first, second)
	}
}

func TestUnmarshalRejectsBadKeyText(t *testing.T) {
	data, err := Marshal(map[string]string{"target": "not a key!"})
	if err != nil {
		t.Fatal(err)
	}
	var record sampleRecord
	if err := Unmarshal(data, &record); err == nil {
		t.Error("Unmarshal accepted an invalid key string")
	}
}

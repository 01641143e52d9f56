// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/tessera/lib/classify"
	"github.com/bureau-foundation/tessera/lib/clock"
	"github.com/bureau-foundation/tessera/lib/key"
	"github.com/bureau-foundation/tessera/lib/manifest"
	"github.com/bureau-foundation/tessera/lib/session"
)

var epoch = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func newTestStore(t *testing.T, options Options) (*Store, *clock.FakeClock) {
	t.Helper()
	fake := clock.Fake(epoch)
	if options.Clock == nil {
		options.Clock = fake
	}
	if options.ShardBase == 0 {
		options.ShardBase = 64
	}
	s, err := Open(t.TempDir(), options)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s, fake
}

func readAll(t *testing.T, body io.ReadCloser) []byte {
	t.Helper()
	defer body.Close()
	data, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	return data
}

func randomBytes(t *testing.T, n int) []byte {
	t.Helper()
	data := make([]byte, n)
	if _, err := rand.Read(data); err != nil {
		t.Fatal(err)
	}
	return data
}

var textContent = []byte(strings.Repeat("tessera stores manifests and leaves\n", 200))

func TestPutGetAcrossCompression(t *testing.T) {
	tests := []struct {
		policy  Compression
		content []byte
		want    Compression
	}{
		{CompressionNone, textContent, CompressionNone},
		{CompressionLZ4, textContent, CompressionLZ4},
		{CompressionZstd, textContent, CompressionZstd},
		{CompressionAuto, textContent, CompressionZstd},
		{CompressionLZ4, nil, CompressionNone},
		{CompressionAuto, nil, CompressionNone},
	}
	for _, test := range tests {
		content := test.content
		name := test.policy.String() + "/text"
		if content == nil {
			content = randomBytes(t, 4096)
			name = test.policy.String() + "/random"
		}
		t.Run(name, func(t *testing.T) {
			s, _ := newTestStore(t, Options{Compression: test.policy})
			k, err := s.Put(bytes.NewReader(content), PutOptions{})
			if err != nil {
				t.Fatalf("Put: %v", err)
			}
			if want := classify.LeafKey(classify.ClassifyBytes(content)); k != want {
				t.Errorf("Put() = %s, want %s", k, want)
			}

			body, info, err := s.Get(k)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got := readAll(t, body); !bytes.Equal(got, content) {
				t.Error("Get returned different content")
			}
			if info.Compression != test.want {
				t.Errorf("Compression = %s, want %s", info.Compression, test.want)
			}
			if info.Size != int64(len(content)) {
				t.Errorf("Size = %d, want %d", info.Size, len(content))
			}
			if test.want != CompressionNone && info.StoredSize >= info.Size {
				t.Errorf("StoredSize = %d, want less than %d", info.StoredSize, info.Size)
			}
		})
	}
}

func TestPutRejectsUndefinedClass(t *testing.T) {
	s, _ := newTestStore(t, Options{})
	for _, content := range []string{"small", strings.Repeat("large content ", 10)} {
		if k, err := s.Put(strings.NewReader(content), PutOptions{Class: key.Class(9)}); !key.IsFormatError(err) {
			t.Errorf("Put(%d bytes, class 9) = (%s, %v), want *key.FormatError", len(content), k, err)
		}
	}
	keys, err := s.Keys()
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 0 {
		t.Errorf("Keys() = %v after rejected puts, want none", keys)
	}
}

func TestPutInlineWritesNothing(t *testing.T) {
	s, _ := newTestStore(t, Options{})
	k, err := s.Put(strings.NewReader("small"), PutOptions{Class: key.ClassEvent})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !k.IsInline() || k.Class() != key.ClassEvent {
		t.Fatalf("Put() = %s (%s), want an inline event key", k, k.Header())
	}
	keys, err := s.Keys()
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 0 {
		t.Errorf("Keys() = %v, want none", keys)
	}
	if !s.Has(k) {
		t.Error("Has(inline) = false")
	}

	body, info, err := s.Get(k)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got := string(readAll(t, body)); got != "small" {
		t.Errorf("content = %q, want %q", got, "small")
	}
	if info.Size != 5 || info.FileTypeTag != "event" || !strings.HasPrefix(info.MimeType, "text/plain") {
		t.Errorf("info = %+v", info)
	}
}

func TestPutRecordsInfo(t *testing.T) {
	s, fake := newTestStore(t, Options{})
	k, err := s.Put(bytes.NewReader(textContent), PutOptions{})
	if err != nil {
		t.Fatal(err)
	}
	info, err := s.Stat(k)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Key != k {
		t.Errorf("Key = %s, want %s", info.Key, k)
	}
	if info.MimeType != "text/plain; charset=utf-8" {
		t.Errorf("MimeType = %q, want sniffed text/plain", info.MimeType)
	}
	if info.FileTypeTag != "generic" {
		t.Errorf("FileTypeTag = %q, want generic", info.FileTypeTag)
	}
	if !info.CreatedAt.Equal(epoch) {
		t.Errorf("CreatedAt = %v, want %v", info.CreatedAt, epoch)
	}

	// Storing the same content again keeps the original record.
	fake.Advance(time.Hour)
	again, err := s.Put(bytes.NewReader(textContent), PutOptions{MimeType: "text/x-other"})
	if err != nil {
		t.Fatal(err)
	}
	if again != k {
		t.Fatalf("second Put() = %s, want %s", again, k)
	}
	info, err = s.Stat(k)
	if err != nil {
		t.Fatal(err)
	}
	if !info.CreatedAt.Equal(epoch) || info.MimeType != "text/plain; charset=utf-8" {
		t.Errorf("info after duplicate Put = %+v, want original", info)
	}

	explicit, err := s.Put(bytes.NewReader(randomBytes(t, 100)), PutOptions{
		Class:       key.ClassDagState,
		MimeType:    "application/x-dag",
		FileTypeTag: "snapshot",
	})
	if err != nil {
		t.Fatal(err)
	}
	info, err = s.Stat(explicit)
	if err != nil {
		t.Fatal(err)
	}
	if info.MimeType != "application/x-dag" || info.FileTypeTag != "snapshot" {
		t.Errorf("explicit info = %+v", info)
	}
}

func TestGetMissing(t *testing.T) {
	s, _ := newTestStore(t, Options{})
	k := classify.LeafKey(classify.ClassifyBytes(textContent))
	if _, _, err := s.Get(k); !session.IsNotFound(err) {
		t.Errorf("Get(missing) = %v, want NotFoundError", err)
	}
	if _, err := s.Stat(k); !session.IsNotFound(err) {
		t.Errorf("Stat(missing) = %v, want NotFoundError", err)
	}
	if s.Has(k) {
		t.Error("Has(missing) = true")
	}
}

func TestGetDetectsCorruption(t *testing.T) {
	s, _ := newTestStore(t, Options{Compression: CompressionNone})
	k, err := s.Put(bytes.NewReader(textContent), PutOptions{})
	if err != nil {
		t.Fatal(err)
	}
	objectPath, err := s.objectPath(k)
	if err != nil {
		t.Fatal(err)
	}
	tampered := bytes.Clone(textContent)
	tampered[0] ^= 0xFF
	if err := os.WriteFile(objectPath, tampered, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.Get(k); err == nil || !strings.Contains(err.Error(), "corrupt") {
		t.Errorf("Get(tampered) = %v, want corruption error", err)
	}
}

func TestShardLayout(t *testing.T) {
	s, _ := newTestStore(t, Options{ShardBase: 256})
	k, err := s.Put(bytes.NewReader(textContent), PutOptions{})
	if err != nil {
		t.Fatal(err)
	}
	index, err := classify.ShardIndex(k, 256)
	if err != nil {
		t.Fatal(err)
	}
	shard := fmt.Sprintf("%04x", index)
	for _, want := range []string{
		filepath.Join(s.Root(), "objects", shard, k.String()),
		filepath.Join(s.Root(), "info", shard, k.String()+".cbor"),
	} {
		if _, err := os.Stat(want); err != nil {
			t.Errorf("expected %s: %v", want, err)
		}
	}

	keys, err := s.Keys()
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 1 || keys[0] != k {
		t.Errorf("Keys() = %v, want [%s]", keys, k)
	}
}

func TestOpenRejectsBadOptions(t *testing.T) {
	if _, err := Open(t.TempDir(), Options{ShardBase: 9000}); err == nil {
		t.Error("Open accepted shard base 9000")
	}
	if _, err := Open(t.TempDir(), Options{Compression: Compression(7)}); err == nil {
		t.Error("Open accepted compression 7")
	}
	if _, err := Open(t.TempDir(), Options{Recipients: []string{"age1notakey"}}); err == nil {
		t.Error("Open accepted an invalid recipient")
	}
}

func TestEncryption(t *testing.T) {
	identity, recipient, err := GenerateIdentity()
	if err != nil {
		t.Fatal(err)
	}
	identityFile := filepath.Join(t.TempDir(), "identity.txt")
	if err := os.WriteFile(identityFile, []byte(identity+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	root := t.TempDir()
	s, err := Open(root, Options{
		Compression:  CompressionNone,
		Recipients:   []string{recipient},
		IdentityFile: identityFile,
		Clock:        clock.Fake(epoch),
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	k, err := s.Put(bytes.NewReader(textContent), PutOptions{})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	objectPath, err := s.objectPath(k)
	if err != nil {
		t.Fatal(err)
	}
	raw, err := os.ReadFile(objectPath)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(raw, textContent[:40]) {
		t.Error("object body is stored in plaintext")
	}

	body, info, err := s.Get(k)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !info.Encrypted {
		t.Error("Encrypted = false")
	}
	if got := readAll(t, body); !bytes.Equal(got, textContent) {
		t.Error("decrypted content differs")
	}

	writeOnly, err := Open(root, Options{Recipients: []string{recipient}})
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := writeOnly.Get(k); err == nil {
		t.Error("Get without an identity succeeded")
	}
}

func TestManifestRoundtrip(t *testing.T) {
	s, _ := newTestStore(t, Options{Compression: CompressionAuto})
	leaf, err := s.Put(bytes.NewReader(textContent), PutOptions{})
	if err != nil {
		t.Fatal(err)
	}
	m := manifest.New()
	if err := m.Set("notes.txt", leaf); err != nil {
		t.Fatal(err)
	}
	if err := m.SetPlaceholder("pending"); err != nil {
		t.Fatal(err)
	}

	k, err := s.PutManifest(m)
	if err != nil {
		t.Fatalf("PutManifest: %v", err)
	}
	if !m.Published() {
		t.Error("PutManifest did not publish")
	}
	if k != m.Identity() || !k.IsContainer() {
		t.Errorf("PutManifest() = %s, want container identity %s", k, m.Identity())
	}

	loaded, err := s.LoadManifest(k)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if loaded.Identity() != k {
		t.Errorf("loaded identity = %s, want %s", loaded.Identity(), k)
	}
	info, err := s.Stat(k)
	if err != nil {
		t.Fatal(err)
	}
	if info.FileTypeTag != FileTypeManifest || info.MimeType != "application/json" {
		t.Errorf("manifest info = %+v", info)
	}

	if _, err := s.LoadManifest(leaf); !session.IsNotFound(err) {
		t.Errorf("LoadManifest(leaf) = %v, want NotFoundError", err)
	}
}

func TestSmallManifestIsInline(t *testing.T) {
	s, _ := newTestStore(t, Options{})
	k, err := s.PutManifest(manifest.New())
	if err != nil {
		t.Fatal(err)
	}
	if !k.IsInline() {
		t.Fatalf("empty manifest key %s is not inline", k)
	}
	loaded, err := s.LoadManifest(k)
	if err != nil {
		t.Fatalf("LoadManifest(inline): %v", err)
	}
	if loaded.Len() != 0 {
		t.Errorf("Len() = %d, want 0", loaded.Len())
	}
}

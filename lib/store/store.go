// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bureau-foundation/tessera/lib/classify"
	"github.com/bureau-foundation/tessera/lib/clock"
	"github.com/bureau-foundation/tessera/lib/codec"
	"github.com/bureau-foundation/tessera/lib/key"
	"github.com/bureau-foundation/tessera/lib/manifest"
	"github.com/bureau-foundation/tessera/lib/session"
)

// DefaultShardBase is the number of shard directories used when
// Options.ShardBase is zero.
const DefaultShardBase = 4096

// MaxPortalDepth bounds how many portals are followed in a row before
// resolution gives up on a chain as cyclic.
const MaxPortalDepth = 16

// Options configures a Store.
type Options struct {
	// ShardBase is the number of shard directories objects are spread
	// across, in [1, 8192]. Zero means DefaultShardBase. It must not
	// change for an existing store.
	ShardBase int

	// Compression is the policy for new objects. The zero value
	// stores bodies uncompressed; CompressionAuto chooses per object.
	Compression Compression

	// Recipients are age X25519 public keys (age1...). When set, new
	// object bodies are encrypted to all of them.
	Recipients []string

	// IdentityFile is an age identity file used to decrypt stored
	// objects.
	IdentityFile string

	// ChunkSize is the classifier read size. Zero means
	// classify.DefaultChunkSize.
	ChunkSize int

	// Clock stamps info and portal records. Nil means clock.Real().
	Clock clock.Clock

	// Logger receives debug records for writes. Nil discards them.
	Logger *slog.Logger
}

// PutOptions describes content being stored.
type PutOptions struct {
	Role  key.Role
	Class key.Class

	// MimeType overrides content sniffing.
	MimeType string

	// FileTypeTag overrides the tag derived from the key.
	FileTypeTag string
}

// Store is a local, filesystem-backed object store addressed by keys.
//
// On-disk layout under the root:
//
//	objects/<shard>/<key>        object body, compressed and/or encrypted
//	info/<shard>/<key>.cbor      ObjectInfo record
//	portals/<shard>/<key>.cbor   PortalRecord
//	tmp/                         staging for atomic writes
//
// where shard is the key's shard index as four hex digits. Inline keys
// carry their content and are never written.
//
// Store is safe for concurrent use. Writes are serialized.
type Store struct {
	root        string
	shardBase   int
	chunkSize   int
	compression Compression
	sealer      *sealer
	clock       clock.Clock
	logger      *slog.Logger

	writeMu sync.Mutex
	portals *portalTable
}

// Open opens or creates a store rooted at root.
func Open(root string, options Options) (*Store, error) {
	if options.ShardBase == 0 {
		options.ShardBase = DefaultShardBase
	}
	if options.ShardBase < 1 || options.ShardBase > classify.MaxShardBase {
		return nil, fmt.Errorf("shard base %d out of range [1, %d]", options.ShardBase, classify.MaxShardBase)
	}
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.DiscardHandler)
	}
	switch options.Compression {
	case CompressionNone, CompressionLZ4, CompressionZstd, CompressionAuto:
	default:
		return nil, fmt.Errorf("unsupported compression %s", options.Compression)
	}

	sealer, err := newSealer(options.Recipients, options.IdentityFile)
	if err != nil {
		return nil, err
	}

	for _, directory := range []string{"objects", "info", "tmp"} {
		if err := os.MkdirAll(filepath.Join(root, directory), 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	s := &Store{
		root:        root,
		shardBase:   options.ShardBase,
		chunkSize:   options.ChunkSize,
		compression: options.Compression,
		sealer:      sealer,
		clock:       options.Clock,
		logger:      options.Logger,
	}
	s.portals, err = newPortalTable(filepath.Join(root, "portals"), s.tempDir(), s.shard)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Root returns the store's root directory.
func (s *Store) Root() string { return s.root }

func (s *Store) tempDir() string { return filepath.Join(s.root, "tmp") }

func (s *Store) shard(k key.Key) (string, error) {
	index, err := classify.ShardIndex(k, s.shardBase)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%04x", index), nil
}

func (s *Store) objectPath(k key.Key) (string, error) {
	shard, err := s.shard(k)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, "objects", shard, k.String()), nil
}

func (s *Store) infoPath(k key.Key) (string, error) {
	shard, err := s.shard(k)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, "info", shard, k.String()+".cbor"), nil
}

// Put classifies r and stores its content. Content that fits in an
// inline key is not written. Storing content that is already present
// keeps the existing info record.
func (s *Store) Put(r io.Reader, options PutOptions) (key.Key, error) {
	var content bytes.Buffer
	classification, err := classify.Classify(io.TeeReader(r, &content), s.chunkSize)
	if err != nil {
		return key.Key{}, fmt.Errorf("classifying content: %w", err)
	}
	k, err := classify.KeyFromClassification(classification, options.Role, options.Class)
	if err != nil {
		return key.Key{}, err
	}
	if k.IsInline() {
		return k, nil
	}
	if err := s.write(k, content.Bytes(), options); err != nil {
		return key.Key{}, err
	}
	return k, nil
}

func (s *Store) write(k key.Key, content []byte, options PutOptions) error {
	infoPath, err := s.infoPath(k)
	if err != nil {
		return err
	}
	objectPath, err := s.objectPath(k)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := os.Stat(infoPath); err == nil {
		return nil
	}

	info := ObjectInfo{
		Key:         k,
		MimeType:    options.MimeType,
		FileTypeTag: options.FileTypeTag,
		CreatedAt:   s.clock.Now().UTC(),
		Size:        int64(len(content)),
	}
	if info.MimeType == "" {
		info.MimeType = detectMimeType(k, content)
	}
	if info.FileTypeTag == "" {
		info.FileTypeTag = FileTypeFor(k)
	}

	body, compression, err := compress(content, s.compression, info.MimeType)
	if err != nil {
		return fmt.Errorf("compressing %s: %w", k.Short(), err)
	}
	info.Compression = compression
	if s.sealer.enabled() {
		body, err = s.sealer.seal(body)
		if err != nil {
			return fmt.Errorf("encrypting %s: %w", k.Short(), err)
		}
		info.Encrypted = true
	}
	info.StoredSize = int64(len(body))

	record, err := codec.Marshal(info)
	if err != nil {
		return fmt.Errorf("encoding info for %s: %w", k.Short(), err)
	}

	// The body goes first: an info record is only visible once its
	// object is complete.
	if err := writeFileAtomic(s.tempDir(), objectPath, body); err != nil {
		return err
	}
	if err := writeFileAtomic(s.tempDir(), infoPath, record); err != nil {
		return err
	}

	s.logger.Debug("stored object",
		"key", k.Short(),
		"size", info.Size,
		"stored_size", info.StoredSize,
		"compression", compression.String(),
		"encrypted", info.Encrypted,
	)
	return nil
}

// Stat returns the info record for k, following portals.
func (s *Store) Stat(k key.Key) (ObjectInfo, error) {
	resolved, err := s.followPortals(k)
	if err != nil {
		return ObjectInfo{}, err
	}
	return s.stat(resolved)
}

func (s *Store) stat(k key.Key) (ObjectInfo, error) {
	if k.IsInline() {
		return inlineInfo(k), nil
	}
	infoPath, err := s.infoPath(k)
	if err != nil {
		return ObjectInfo{}, err
	}
	data, err := os.ReadFile(infoPath)
	if errors.Is(err, fs.ErrNotExist) {
		return ObjectInfo{}, &session.NotFoundError{Path: k.String(), Reason: "no such object"}
	}
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("reading object info: %w", err)
	}
	var info ObjectInfo
	if err := codec.Unmarshal(data, &info); err != nil {
		return ObjectInfo{}, fmt.Errorf("decoding object info for %s: %w", k.Short(), err)
	}
	return info, nil
}

// Has reports whether k can be read: inline keys always, portals when
// they exist, other keys when their object is stored.
func (s *Store) Has(k key.Key) bool {
	if k.IsPortal() {
		_, exists := s.portals.get(k)
		return exists
	}
	_, err := s.stat(k)
	return err == nil
}

// Get returns the content of k, following portals. The body is
// verified against the key's digest before it is returned.
func (s *Store) Get(k key.Key) (io.ReadCloser, ObjectInfo, error) {
	content, info, err := s.ReadAll(k)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	return io.NopCloser(bytes.NewReader(content)), info, nil
}

// ReadAll is Get returning the whole content.
func (s *Store) ReadAll(k key.Key) ([]byte, ObjectInfo, error) {
	resolved, err := s.followPortals(k)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	if resolved.IsInline() {
		return resolved.Payload(), inlineInfo(resolved), nil
	}

	info, err := s.stat(resolved)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	objectPath, err := s.objectPath(resolved)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	body, err := os.ReadFile(objectPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ObjectInfo{}, &session.NotFoundError{Path: resolved.String(), Reason: "object body missing"}
	}
	if err != nil {
		return nil, ObjectInfo{}, fmt.Errorf("reading object: %w", err)
	}

	if info.Encrypted {
		body, err = s.sealer.open(body)
		if err != nil {
			return nil, ObjectInfo{}, fmt.Errorf("opening %s: %w", resolved.Short(), err)
		}
	}
	content, err := decompress(body, info.Compression, info.Size)
	if err != nil {
		return nil, ObjectInfo{}, fmt.Errorf("decompressing %s: %w", resolved.Short(), err)
	}

	digest, _ := resolved.Digest()
	if classify.ClassifyBytes(content).Digest != digest {
		return nil, ObjectInfo{}, fmt.Errorf("object %s is corrupt: content does not match its key", resolved.Short())
	}
	return content, info, nil
}

// PutManifest publishes m and stores its canonical serialization. The
// returned key is m's identity.
func (s *Store) PutManifest(m *manifest.Manifest) (key.Key, error) {
	m.Publish()
	k, err := s.Put(bytes.NewReader(m.Bytes()), PutOptions{
		Role:        key.RoleContainer,
		Class:       key.ClassGeneric,
		MimeType:    "application/json",
		FileTypeTag: FileTypeManifest,
	})
	if err != nil {
		return key.Key{}, fmt.Errorf("storing manifest: %w", err)
	}
	if k != m.Identity() {
		return key.Key{}, fmt.Errorf("stored manifest key %s does not match identity %s", k, m.Identity())
	}
	return k, nil
}

// LoadManifest reads and parses the manifest stored under k, following
// portals. The result is published.
func (s *Store) LoadManifest(k key.Key) (*manifest.Manifest, error) {
	resolved, err := s.followPortals(k)
	if err != nil {
		return nil, err
	}
	if !resolved.IsContainer() {
		return nil, &session.NotFoundError{Path: resolved.String(), Reason: "not a container"}
	}
	content, _, err := s.ReadAll(resolved)
	if err != nil {
		return nil, err
	}
	m, err := manifest.Parse(content)
	if err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", resolved.Short(), err)
	}
	return m, nil
}

// Keys lists the keys of every stored (non-inline) object.
func (s *Store) Keys() ([]key.Key, error) {
	var keys []key.Key
	err := filepath.WalkDir(filepath.Join(s.root, "info"), func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name, isRecord := strings.CutSuffix(entry.Name(), ".cbor")
		if entry.IsDir() || !isRecord {
			return nil
		}
		k, err := key.Parse(name)
		if err != nil {
			s.logger.Warn("skipping unrecognized info file", "path", path, "error", err)
			return nil
		}
		keys = append(keys, k)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing objects: %w", err)
	}
	return keys, nil
}

// followPortals resolves a chain of portals to the first non-portal
// key. Non-portal keys are returned unchanged.
// Follow returns the key k currently resolves to: k itself unless it
// is a portal, otherwise the end of its portal chain.
func (s *Store) Follow(k key.Key) (key.Key, error) {
	return s.followPortals(k)
}

func (s *Store) followPortals(k key.Key) (key.Key, error) {
	start := k
	for depth := 0; k.IsPortal(); depth++ {
		if depth == MaxPortalDepth {
			return key.Key{}, fmt.Errorf("portal chain from %s exceeds %d hops", start.Short(), MaxPortalDepth)
		}
		record, exists := s.portals.get(k)
		if !exists {
			return key.Key{}, &session.NotFoundError{Path: k.String(), Reason: "no such portal"}
		}
		k = record.Target
	}
	return k, nil
}

// CreatePortal creates a portal of type typ (Portal, VersionedTree, or
// MountRef) pointing at target and returns its key.
func (s *Store) CreatePortal(typ key.Type, role key.Role, class key.Class, target key.Key) (key.Key, error) {
	portal, err := key.NewReference(typ, role, class)
	if err != nil {
		return key.Key{}, err
	}
	if _, err := s.SetPortal(portal, target, nil); err != nil {
		return key.Key{}, err
	}
	return portal, nil
}

// SetPortal points portal at target. When expected is non-nil and the
// portal exists, it must currently point at *expected or the call fails
// with a *ConflictError.
func (s *Store) SetPortal(portal, target key.Key, expected *key.Key) (PortalRecord, error) {
	record, err := s.portals.set(portal, target, expected, s.clock.Now().UTC())
	if err != nil {
		return PortalRecord{}, err
	}
	s.logger.Debug("set portal", "key", portal.Short(), "target", target.Short())
	return record, nil
}

// ResolvePortal returns portal's record, without following chains.
func (s *Store) ResolvePortal(portal key.Key) (PortalRecord, error) {
	record, exists := s.portals.get(portal)
	if !exists {
		return PortalRecord{}, &session.NotFoundError{Path: portal.String(), Reason: "no such portal"}
	}
	return record, nil
}

// DeletePortal removes portal.
func (s *Store) DeletePortal(portal key.Key) error {
	return s.portals.remove(portal)
}

// Portals lists every portal record ordered by portal key.
func (s *Store) Portals() []PortalRecord {
	return s.portals.list()
}

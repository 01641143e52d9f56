// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"iter"
	"maps"
	"slices"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/bureau-foundation/tessera/lib/classify"
	"github.com/bureau-foundation/tessera/lib/key"
)

// Entry is the value bound to a manifest name: either a key, or an
// absent placeholder when Present is false. The zero Entry is the
// placeholder.
type Entry struct {
	Key     key.Key
	Present bool
}

// Placeholder is the absent entry.
var Placeholder = Entry{}

// KeyEntry returns a present entry holding k.
func KeyEntry(k key.Key) Entry {
	return Entry{Key: k, Present: true}
}

// IsContainer reports whether the entry is treated as a container
// during reconciliation: an absent placeholder, or a key with the
// container role.
func (e Entry) IsContainer() bool {
	return !e.Present || e.Key.IsContainer()
}

// String returns the key string, or "null" for a placeholder.
func (e Entry) String() string {
	if !e.Present {
		return "null"
	}
	return e.Key.String()
}

// item is one entry in canonical order.
type item struct {
	name  string
	entry Entry
}

// cell is a memoized derived value tagged with the generation it was
// computed at.
type cell[T any] struct {
	generation uint64
	valid      bool
	value      T
}

func (c *cell[T]) get(generation uint64, compute func() T) T {
	if !c.valid || c.generation != generation {
		c.value = compute()
		c.generation = generation
		c.valid = true
	}
	return c.value
}

// Manifest is a sorted, self-addressing mapping from names to entries.
// Construct with New, Parse, ParseSource, or by decoding CBOR.
type Manifest struct {
	mu         sync.Mutex
	entries    map[string]Entry
	published  bool
	generation uint64

	sorted     cell[[]item]
	serialized cell[[]byte]
	identity   cell[key.Key]
	inverse    cell[map[key.Key][]string]
}

// New returns an empty, unpublished manifest.
func New() *Manifest {
	return &Manifest{entries: make(map[string]Entry)}
}

// ValidateName checks that name can be used as a manifest entry name:
// non-empty, not "." or "..", valid UTF-8, and free of '/', which
// separates path segments.
func ValidateName(name string) error {
	if name == "" {
		return &key.FormatError{Input: name, Reason: "empty name"}
	}
	if name == "." || name == ".." {
		return &key.FormatError{Input: name, Reason: "name is a directory self or parent reference"}
	}
	if !utf8.ValidString(name) {
		return &key.FormatError{Input: name, Reason: "name is not valid UTF-8"}
	}
	if strings.ContainsRune(name, '/') {
		return &key.FormatError{Input: name, Reason: "name contains '/'"}
	}
	return nil
}

// Get returns the entry bound to name. The boolean is false when the
// name is not in the manifest at all (as opposed to holding a
// placeholder).
func (m *Manifest) Get(name string) (Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[name]
	return entry, ok
}

// Set binds name to k. Setting a name to the entry it already holds is
// a no-op and leaves cached values intact.
func (m *Manifest) Set(name string, k key.Key) error {
	return m.store("set", name, KeyEntry(k))
}

// SetPlaceholder binds name to an absent placeholder.
func (m *Manifest) SetPlaceholder(name string) error {
	return m.store("set", name, Placeholder)
}

// SetEntry binds name to entry.
func (m *Manifest) SetEntry(name string, entry Entry) error {
	if !entry.Present {
		entry = Placeholder
	}
	return m.store("set", name, entry)
}

func (m *Manifest) store(op, name string, entry Entry) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.published {
		return &key.StateError{Op: "manifest " + op, Reason: "manifest is published"}
	}
	if m.entries == nil {
		m.entries = make(map[string]Entry)
	}
	if current, ok := m.entries[name]; ok && current == entry {
		return nil
	}
	m.entries[name] = entry
	m.generation++
	return nil
}

// Delete removes name. Deleting a name that is not present is a no-op.
func (m *Manifest) Delete(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.published {
		return &key.StateError{Op: "manifest delete", Reason: "manifest is published"}
	}
	if _, ok := m.entries[name]; !ok {
		return nil
	}
	delete(m.entries, name)
	m.generation++
	return nil
}

// Publish freezes the manifest. Subsequent mutation fails with a
// *key.StateError. Publishing twice is harmless.
func (m *Manifest) Publish() {
	m.mu.Lock()
	m.published = true
	m.mu.Unlock()
}

// Published reports whether the manifest has been frozen.
func (m *Manifest) Published() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.published
}

// Clone returns an unpublished copy that can be edited independently.
func (m *Manifest) Clone() *Manifest {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := maps.Clone(m.entries)
	if entries == nil {
		entries = make(map[string]Entry)
	}
	return &Manifest{entries: entries}
}

// Len returns the number of names, placeholders included.
func (m *Manifest) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Names returns the names in canonical (ascending byte) order.
func (m *Manifest) Names() []string {
	items := m.snapshot()
	names := make([]string, len(items))
	for i, it := range items {
		names[i] = it.name
	}
	return names
}

// All iterates entries in canonical order. The iteration sees the
// manifest as it was when All was called.
func (m *Manifest) All() iter.Seq2[string, Entry] {
	items := m.snapshot()
	return func(yield func(string, Entry) bool) {
		for _, it := range items {
			if !yield(it.name, it.entry) {
				return
			}
		}
	}
}

// IsContainerEntry reports whether name holds a placeholder or a
// container key. Names not in the manifest report false.
func (m *Manifest) IsContainerEntry(name string) bool {
	entry, ok := m.Get(name)
	return ok && entry.IsContainer()
}

// NamesFor returns every name bound to k, in canonical order.
func (m *Manifest) NamesFor(k key.Key) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	inverse := m.inverse.get(m.generation, func() map[key.Key][]string {
		lookup := make(map[key.Key][]string)
		for _, it := range m.sortedLocked() {
			if it.entry.Present {
				lookup[it.entry.Key] = append(lookup[it.entry.Key], it.name)
			}
		}
		return lookup
	})
	return slices.Clone(inverse[k])
}

// Identity returns the container key of the canonical serialization.
func (m *Manifest) Identity() key.Key {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.identity.get(m.generation, func() key.Key {
		classification := classify.ClassifyBytes(m.bytesLocked())
		identity, err := classify.KeyFromClassification(classification, key.RoleContainer, key.ClassGeneric)
		if err != nil {
			// Container and generic are defined codes.
			panic("manifest: building identity: " + err.Error())
		}
		return identity
	})
}

// Serialize returns the canonical serialization as a string.
func (m *Manifest) Serialize() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return string(m.bytesLocked())
}

// Bytes returns a copy of the canonical serialization.
func (m *Manifest) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.bytesLocked())
}

// Size returns the length of the canonical serialization in bytes.
func (m *Manifest) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.bytesLocked())
}

// snapshot returns the canonical entry list. The returned slice is
// shared with the cache and must not be modified; a mutation replaces
// the cached slice rather than editing it.
func (m *Manifest) snapshot() []item {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedLocked()
}

func (m *Manifest) sortedLocked() []item {
	return m.sorted.get(m.generation, func() []item {
		items := make([]item, 0, len(m.entries))
		for name, entry := range m.entries {
			items = append(items, item{name: name, entry: entry})
		}
		slices.SortFunc(items, func(a, b item) int {
			return strings.Compare(a.name, b.name)
		})
		return items
	})
}

func (m *Manifest) bytesLocked() []byte {
	return m.serialized.get(m.generation, func() []byte {
		return encodeCanonical(m.sortedLocked())
	})
}

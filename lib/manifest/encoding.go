// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tidwall/jsonc"

	"github.com/bureau-foundation/tessera/lib/codec"
	"github.com/bureau-foundation/tessera/lib/key"
)

// previewLength bounds how much of a malformed input is quoted in a
// FormatError.
const previewLength = 64

func encodeCanonical(items []item) []byte {
	names := make([]string, len(items))
	values := make([]*string, len(items))
	for i, it := range items {
		names[i] = it.name
		if it.entry.Present {
			s := it.entry.Key.String()
			values[i] = &s
		}
	}

	var buffer bytes.Buffer
	encoder := json.NewEncoder(&buffer)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode([2]any{names, values}); err != nil {
		// Slices of strings always encode.
		panic("manifest: encoding canonical form: " + err.Error())
	}
	return bytes.TrimSuffix(buffer.Bytes(), []byte("\n"))
}

func preview(data []byte) string {
	if len(data) > previewLength {
		return string(data[:previewLength]) + "..."
	}
	return string(data)
}

// Parse decodes a canonical serialization. The result is published.
// Parse returns a *key.FormatError for anything Serialize would not
// have produced: mismatched array lengths, unsorted or duplicate
// names, invalid keys, or non-canonical spacing and escaping.
func Parse(data []byte) (*Manifest, error) {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return nil, &key.FormatError{Input: preview(data), Reason: "not a JSON array: " + err.Error()}
	}
	if len(pair) != 2 {
		return nil, &key.FormatError{
			Input:  preview(data),
			Reason: fmt.Sprintf("want a pair of arrays, got %d elements", len(pair)),
		}
	}

	var names []string
	if err := json.Unmarshal(pair[0], &names); err != nil {
		return nil, &key.FormatError{Input: preview(data), Reason: "names: " + err.Error()}
	}
	var values []*string
	if err := json.Unmarshal(pair[1], &values); err != nil {
		return nil, &key.FormatError{Input: preview(data), Reason: "keys: " + err.Error()}
	}
	if len(names) != len(values) {
		return nil, &key.FormatError{
			Input:  preview(data),
			Reason: fmt.Sprintf("%d names but %d keys", len(names), len(values)),
		}
	}

	entries := make([]Entry, len(values))
	for i, value := range values {
		if value == nil {
			continue
		}
		k, err := key.Parse(*value)
		if err != nil {
			return nil, fmt.Errorf("parsing key for %q: %w", names[i], err)
		}
		entries[i] = KeyEntry(k)
	}

	m, err := fromColumns(names, entries)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(m.Bytes(), data) {
		return nil, &key.FormatError{Input: preview(data), Reason: "not in canonical form"}
	}
	m.Publish()
	return m, nil
}

// ParseSource decodes a human-authored manifest: a JSON object mapping
// names to key strings or null, where comments and trailing commas are
// allowed. The result is unpublished.
func ParseSource(data []byte) (*Manifest, error) {
	var source map[string]*string
	if err := json.Unmarshal(jsonc.ToJSON(data), &source); err != nil {
		return nil, &key.FormatError{Input: preview(data), Reason: "not a JSON object of keys: " + err.Error()}
	}
	m := New()
	for name, value := range source {
		if value == nil {
			if err := m.SetPlaceholder(name); err != nil {
				return nil, err
			}
			continue
		}
		k, err := key.Parse(*value)
		if err != nil {
			return nil, fmt.Errorf("parsing key for %q: %w", name, err)
		}
		if err := m.Set(name, k); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// fromColumns builds an unpublished manifest from parallel name and
// entry columns, requiring names to be valid and strictly ascending.
func fromColumns(names []string, entries []Entry) (*Manifest, error) {
	m := New()
	for i, name := range names {
		if err := ValidateName(name); err != nil {
			return nil, err
		}
		if i > 0 && names[i-1] >= name {
			return nil, &key.FormatError{
				Input:  name,
				Reason: fmt.Sprintf("names not strictly ascending after %q", names[i-1]),
			}
		}
		entry := entries[i]
		if !entry.Present {
			entry = Placeholder
		}
		m.entries[name] = entry
	}
	return m, nil
}

// wireManifest is the compact CBOR form: the same two columns as the
// canonical JSON, with keys as text strings and placeholders as null.
type wireManifest struct {
	_     struct{} `cbor:",toarray"`
	Names []string
	Keys  []*key.Key
}

// MarshalCBOR implements cbor.Marshaler.
func (m *Manifest) MarshalCBOR() ([]byte, error) {
	items := m.snapshot()
	wire := wireManifest{
		Names: make([]string, len(items)),
		Keys:  make([]*key.Key, len(items)),
	}
	for i, it := range items {
		wire.Names[i] = it.name
		if it.entry.Present {
			k := it.entry.Key
			wire.Keys[i] = &k
		}
	}
	return codec.Marshal(wire)
}

// UnmarshalCBOR implements cbor.Unmarshaler. The decoded manifest is
// published, like one returned by Parse.
func (m *Manifest) UnmarshalCBOR(data []byte) error {
	var wire wireManifest
	if err := codec.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("decoding manifest: %w", err)
	}
	if len(wire.Names) != len(wire.Keys) {
		return &key.FormatError{
			Input:  "cbor manifest",
			Reason: fmt.Sprintf("%d names but %d keys", len(wire.Names), len(wire.Keys)),
		}
	}
	entries := make([]Entry, len(wire.Keys))
	for i, k := range wire.Keys {
		if k != nil {
			entries[i] = KeyEntry(*k)
		}
	}
	decoded, err := fromColumns(wire.Names, entries)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.published {
		return &key.StateError{Op: "manifest decode", Reason: "manifest is published"}
	}
	m.entries = decoded.entries
	m.published = true
	m.generation++
	return nil
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package key

import (
	"crypto/rand"
	"fmt"
)

// MaxInlineSize is the largest content, in bytes, that is embedded in
// an inline key instead of being addressed by hash.
const MaxInlineSize = 32

// DigestSize is the exact payload size of every non-inline key.
const DigestSize = 32

// shortLength is the number of characters Short keeps.
const shortLength = 12

// Key is an immutable, comparable object identifier. The zero value is
// the inline generic leaf key with an empty payload, which is the
// identity of empty content.
type Key struct {
	header  Header
	length  uint8
	payload [DigestSize]byte
}

// New constructs a key from a header and payload. It returns a
// *FormatError if the header contains undefined codes or the payload
// length is not valid for the header's type. The payload is copied.
func New(header Header, payload []byte) (Key, error) {
	if err := header.Validate(); err != nil {
		return Key{}, &FormatError{Input: header.String(), Reason: err.Error()}
	}
	if !header.validPayloadLength(len(payload)) {
		return Key{}, &FormatError{
			Input:  header.String(),
			Reason: fmt.Sprintf("payload is %d bytes, %s", len(payload), payloadRule(header.Type)),
		}
	}
	k := Key{header: header, length: uint8(len(payload))}
	copy(k.payload[:], payload)
	return k, nil
}

// Inline returns an inline key embedding content. It returns a
// *FormatError if content is longer than MaxInlineSize.
func Inline(role Role, class Class, content []byte) (Key, error) {
	return New(Header{Role: role, Type: TypeInline, Class: class}, content)
}

// HashResolved returns a key addressing content by its digest. It
// returns a *FormatError if role or class is not a defined code.
func HashResolved(role Role, class Class, digest [DigestSize]byte) (Key, error) {
	return New(Header{Role: role, Type: TypeHashResolved, Class: class}, digest[:])
}

// NewReference returns a fresh reference key of a portal-like type
// (Portal, VersionedTree, or MountRef) with a random 32-byte payload.
func NewReference(typ Type, role Role, class Class) (Key, error) {
	if !typ.IsPortal() {
		return Key{}, &FormatError{Input: typ.String(), Reason: "reference keys must be portal, vtree, or mount"}
	}
	var payload [DigestSize]byte
	if _, err := rand.Read(payload[:]); err != nil {
		return Key{}, fmt.Errorf("generating reference key: %w", err)
	}
	return New(Header{Role: role, Type: typ, Class: class}, payload[:])
}

// Encode returns the base-62 encoding of the packed header byte
// followed by payload. It does not validate; use New or Decode for
// validated keys.
func Encode(header Header, payload []byte) string {
	buffer := make([]byte, 1+len(payload))
	buffer[0] = header.Byte()
	copy(buffer[1:], payload)
	return encodeBase62(buffer)
}

// Decode parses a base-62 key string into its header and payload. It
// returns a *FormatError if the string contains characters outside the
// alphabet, decodes to nothing, has undefined header codes, or carries
// a payload whose length does not fit the decoded type.
func Decode(s string) (Header, []byte, error) {
	raw, err := decodeBase62(s)
	if err != nil {
		return Header{}, nil, err
	}
	if len(raw) == 0 {
		return Header{}, nil, &FormatError{Input: s, Reason: "decodes to an empty byte string"}
	}
	header := UnpackHeader(raw[0])
	if err := header.Validate(); err != nil {
		return Header{}, nil, &FormatError{Input: s, Reason: err.Error()}
	}
	payload := raw[1:]
	if !header.validPayloadLength(len(payload)) {
		return Header{}, nil, &FormatError{
			Input:  s,
			Reason: fmt.Sprintf("payload is %d bytes, %s", len(payload), payloadRule(header.Type)),
		}
	}
	return header, payload, nil
}

// Parse decodes a key string produced by Key.String.
func Parse(s string) (Key, error) {
	header, payload, err := Decode(s)
	if err != nil {
		return Key{}, err
	}
	k := Key{header: header, length: uint8(len(payload))}
	copy(k.payload[:], payload)
	return k, nil
}

// MustParse is like Parse but panics on error. For constants in tests
// and tables.
func MustParse(s string) Key {
	k, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return k
}

func payloadRule(t Type) string {
	if t.IsInline() {
		return fmt.Sprintf("want 0 to %d for %s keys", MaxInlineSize, t)
	}
	return fmt.Sprintf("want exactly %d for %s keys", DigestSize, t)
}

// Header returns the unpacked header.
func (k Key) Header() Header { return k.header }

// Role returns the key's role.
func (k Key) Role() Role { return k.header.Role }

// Type returns the key's type.
func (k Key) Type() Type { return k.header.Type }

// Class returns the key's class.
func (k Key) Class() Class { return k.header.Class }

// IsContainer reports whether the key's role is RoleContainer.
func (k Key) IsContainer() bool { return k.header.Role == RoleContainer }

// IsPortal reports whether the key is a stable name for mutable
// content. Code that caches resolved content must not cache through
// portal keys.
func (k Key) IsPortal() bool { return k.header.Type.IsPortal() }

// IsVersionedTree reports whether the key names a versioned tree.
func (k Key) IsVersionedTree() bool { return k.header.Type.IsVersionedTree() }

// IsResolved reports whether the key is a content hash.
func (k Key) IsResolved() bool { return k.header.Type.IsResolved() }

// IsInline reports whether the key embeds its content.
func (k Key) IsInline() bool { return k.header.Type.IsInline() }

// Payload returns a copy of the key's payload.
func (k Key) Payload() []byte {
	out := make([]byte, k.length)
	copy(out, k.payload[:k.length])
	return out
}

// PayloadLen returns the payload length without copying it.
func (k Key) PayloadLen() int { return int(k.length) }

// Digest returns the 32-byte payload of a non-inline key. The boolean
// is false for inline keys.
func (k Key) Digest() ([DigestSize]byte, bool) {
	if k.IsInline() {
		return [DigestSize]byte{}, false
	}
	return k.payload, true
}

// WithRole returns a copy of k with its role replaced.
func (k Key) WithRole(role Role) Key {
	k.header.Role = role & 0x1
	return k
}

// String returns the canonical base-62 form.
func (k Key) String() string {
	return Encode(k.header, k.payload[:k.length])
}

// Short returns a truncated String for logs and human-facing listings.
// It is not unique and must never be parsed back.
func (k Key) Short() string {
	s := k.String()
	if len(s) <= shortLength {
		return s
	}
	return s[:shortLength]
}

// MarshalText implements encoding.TextMarshaler so keys serialize as
// their canonical string in JSON, YAML, and CBOR.
func (k Key) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Key) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

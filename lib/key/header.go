// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package key

import "fmt"

// Role distinguishes data-bearing keys from namespace-bearing keys.
type Role uint8

const (
	// RoleLeaf identifies content: a file, a blob, an event payload.
	RoleLeaf Role = 0

	// RoleContainer identifies a namespace: a manifest or subtree.
	RoleContainer Role = 1
)

// String returns the lowercase name of the role.
func (r Role) String() string {
	switch r {
	case RoleLeaf:
		return "leaf"
	case RoleContainer:
		return "container"
	default:
		return fmt.Sprintf("role(%d)", uint8(r))
	}
}

// ParseRole parses a role from its String form.
func ParseRole(name string) (Role, error) {
	switch name {
	case "leaf":
		return RoleLeaf, nil
	case "container":
		return RoleContainer, nil
	default:
		return 0, &FormatError{Input: name, Reason: "unknown role"}
	}
}

// Type selects how a key's payload is interpreted. Type codes are
// protocol constants: changing them changes every encoded key.
type Type uint8

const (
	// TypeInline keys embed up to 32 bytes of content in the payload.
	TypeInline Type = 0

	// TypeHashResolved keys carry the BLAKE3-256 digest of content.
	TypeHashResolved Type = 1

	// TypePortal keys name a mutable reference to another key.
	TypePortal Type = 2

	// TypeVersionedTree keys name a tree whose versions are tracked.
	TypeVersionedTree Type = 3

	// TypeMountRef keys name an externally mounted subtree.
	TypeMountRef Type = 4
)

// typeTraits holds the behavioral flags associated with each type
// code. Lookups go through traits(), which returns the zero value for
// undefined codes.
type typeTraits struct {
	name          string
	defined       bool
	portal        bool
	versionedTree bool
	resolved      bool
	inline        bool
}

var typeTable = [...]typeTraits{
	TypeInline:        {name: "inline", defined: true, inline: true},
	TypeHashResolved:  {name: "hash", defined: true, resolved: true},
	TypePortal:        {name: "portal", defined: true, portal: true},
	TypeVersionedTree: {name: "vtree", defined: true, portal: true, versionedTree: true},
	TypeMountRef:      {name: "mount", defined: true, portal: true},
}

func (t Type) traits() typeTraits {
	if int(t) >= len(typeTable) {
		return typeTraits{}
	}
	return typeTable[t]
}

// Defined reports whether t is one of the five known type codes.
func (t Type) Defined() bool { return t.traits().defined }

// IsPortal reports whether keys of this type are stable names for
// mutable content (Portal, VersionedTree, or MountRef).
func (t Type) IsPortal() bool { return t.traits().portal }

// IsVersionedTree reports whether t is TypeVersionedTree.
func (t Type) IsVersionedTree() bool { return t.traits().versionedTree }

// IsResolved reports whether keys of this type are permanently bound
// to the content they identify by hash.
func (t Type) IsResolved() bool { return t.traits().resolved }

// IsInline reports whether keys of this type carry their content.
func (t Type) IsInline() bool { return t.traits().inline }

// String returns the short name of the type.
func (t Type) String() string {
	if traits := t.traits(); traits.defined {
		return traits.name
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

// ParseType parses a type from its String form.
func ParseType(name string) (Type, error) {
	for code, traits := range typeTable {
		if traits.name == name {
			return Type(code), nil
		}
	}
	return 0, &FormatError{Input: name, Reason: "unknown key type"}
}

// Class is an application-level tag describing what kind of payload a
// key identifies. It does not affect hashing or storage.
type Class uint8

const (
	ClassGeneric  Class = 0
	ClassEvent    Class = 1
	ClassDagState Class = 2
	ClassJSONWrap Class = 3
)

var classNames = [...]string{
	ClassGeneric:  "generic",
	ClassEvent:    "event",
	ClassDagState: "dag-state",
	ClassJSONWrap: "json-wrap",
}

// Defined reports whether c is one of the four known class codes.
func (c Class) Defined() bool { return int(c) < len(classNames) }

// String returns the lowercase, hyphenated name of the class.
func (c Class) String() string {
	if c.Defined() {
		return classNames[c]
	}
	return fmt.Sprintf("class(%d)", uint8(c))
}

// ParseClass parses a class from its String form.
func ParseClass(name string) (Class, error) {
	for code, className := range classNames {
		if className == name {
			return Class(code), nil
		}
	}
	return 0, &FormatError{Input: name, Reason: "unknown key class"}
}

// Header is the unpacked form of a key's first byte.
type Header struct {
	Role  Role
	Type  Type
	Class Class
}

// PackHeader packs role, type, and class into a single byte:
// class in the high nibble, type in bits 1-3, role in bit 0.
// Out-of-range values are masked, not rejected.
func PackHeader(role Role, typ Type, class Class) byte {
	return byte(class&0xF)<<4 | byte(typ&0x7)<<1 | byte(role&0x1)
}

// UnpackHeader is the inverse of PackHeader. The result may contain
// undefined type or class codes; see [Header.Validate].
func UnpackHeader(b byte) Header {
	return Header{
		Role:  Role(b & 0x1),
		Type:  Type((b >> 1) & 0x7),
		Class: Class((b >> 4) & 0xF),
	}
}

// Byte returns the packed header byte.
func (h Header) Byte() byte {
	return PackHeader(h.Role, h.Type, h.Class)
}

// Validate reports whether every field of h is a defined code.
func (h Header) Validate() error {
	if h.Role > RoleContainer {
		return fmt.Errorf("undefined role code %d", uint8(h.Role))
	}
	if !h.Type.Defined() {
		return fmt.Errorf("undefined type code %d", uint8(h.Type))
	}
	if !h.Class.Defined() {
		return fmt.Errorf("undefined class code %d", uint8(h.Class))
	}
	return nil
}

// validPayloadLength reports whether n bytes of payload are allowed
// for keys of this header's type.
func (h Header) validPayloadLength(n int) bool {
	if h.Type.IsInline() {
		return n >= 0 && n <= MaxInlineSize
	}
	return n == DigestSize
}

// String renders the header as "role/type/class".
func (h Header) String() string {
	return h.Role.String() + "/" + h.Type.String() + "/" + h.Class.String()
}

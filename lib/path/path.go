// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package path implements hierarchical addresses into Tessera's
// manifest tree.
//
// A Path is either absolute, anchored at a root key, or relative, a
// bare list of name segments waiting to be anchored with MakeAbsolute.
// The canonical string of an absolute path is "/" followed by the root
// key string, then "/" and the segments joined by "/":
//
//	/<rootkey>/docs/readme
//	/<rootkey>/
//	docs/readme
//
// Paths are values. No two Paths share a segment slice.
package path

import (
	"slices"
	"strings"

	"github.com/bureau-foundation/tessera/lib/key"
)

// Path is an absolute or relative address. The zero Path is the empty
// relative path.
type Path struct {
	root     key.Key
	absolute bool
	segments []string
}

// ValidateSegment checks that s is usable as a path segment: non-empty
// and free of '/'.
func ValidateSegment(s string) error {
	if s == "" {
		return &key.FormatError{Input: s, Reason: "empty path segment"}
	}
	if strings.ContainsRune(s, '/') {
		return &key.FormatError{Input: s, Reason: "path segment contains '/'"}
	}
	return nil
}

func validateSegments(segments []string) error {
	for _, segment := range segments {
		if err := ValidateSegment(segment); err != nil {
			return err
		}
	}
	return nil
}

// Absolute returns a path rooted at root.
func Absolute(root key.Key, segments ...string) (Path, error) {
	if err := validateSegments(segments); err != nil {
		return Path{}, err
	}
	return Path{root: root, absolute: true, segments: slices.Clone(segments)}, nil
}

// Relative returns a path with no root.
func Relative(segments ...string) (Path, error) {
	if err := validateSegments(segments); err != nil {
		return Path{}, err
	}
	return Path{segments: slices.Clone(segments)}, nil
}

// IsRelative reports whether the path has no root.
func (p Path) IsRelative() bool { return !p.absolute }

// IsRoot reports whether the path is absolute with no segments.
func (p Path) IsRoot() bool { return p.absolute && len(p.segments) == 0 }

// Root returns the root key of an absolute path.
func (p Path) Root() (key.Key, bool) {
	return p.root, p.absolute
}

// Segments returns a copy of the name segments.
func (p Path) Segments() []string { return slices.Clone(p.segments) }

// Len returns the number of segments.
func (p Path) Len() int { return len(p.segments) }

// Child returns the path with name appended.
func (p Path) Child(name string) (Path, error) {
	if err := ValidateSegment(name); err != nil {
		return Path{}, err
	}
	child := Path{root: p.root, absolute: p.absolute, segments: make([]string, len(p.segments)+1)}
	copy(child.segments, p.segments)
	child.segments[len(p.segments)] = name
	return child, nil
}

// Parent returns the path with its last segment removed. Root paths
// and relative paths have no parent.
func (p Path) Parent() (Path, bool) {
	if !p.absolute || len(p.segments) == 0 {
		return Path{}, false
	}
	return Path{root: p.root, absolute: true, segments: slices.Clone(p.segments[:len(p.segments)-1])}, true
}

// MakeAbsolute anchors a relative path under base, which must be
// absolute. An absolute path is returned unchanged.
func (p Path) MakeAbsolute(base Path) (Path, error) {
	if p.absolute {
		return p, nil
	}
	if !base.absolute {
		return Path{}, &key.StateError{Op: "make absolute " + p.String(), Reason: "base " + base.String() + " is relative"}
	}
	segments := make([]string, 0, len(base.segments)+len(p.segments))
	segments = append(segments, base.segments...)
	segments = append(segments, p.segments...)
	return Path{root: base.root, absolute: true, segments: segments}, nil
}

// NextSegment splits the first segment off a non-empty relative path.
// hasRest is false when head was the last segment, in which case rest
// is the empty relative path.
func (p Path) NextSegment() (head string, rest Path, hasRest bool, err error) {
	if p.absolute {
		return "", Path{}, false, &key.StateError{Op: "next segment", Reason: "path " + p.String() + " is absolute"}
	}
	if len(p.segments) == 0 {
		return "", Path{}, false, &key.StateError{Op: "next segment", Reason: "path is empty"}
	}
	head = p.segments[0]
	if len(p.segments) == 1 {
		return head, Path{}, false, nil
	}
	return head, Path{segments: slices.Clone(p.segments[1:])}, true, nil
}

// String returns the canonical form.
func (p Path) String() string {
	joined := strings.Join(p.segments, "/")
	if !p.absolute {
		return joined
	}
	return "/" + p.root.String() + "/" + joined
}

// Parse decodes a canonical path string. A leading '/' marks an
// absolute path whose first component is the root key; the component
// after the root may be empty only when it is the last one, which is
// how the root path itself is written.
func Parse(s string) (Path, error) {
	if !strings.HasPrefix(s, "/") {
		if s == "" {
			return Path{}, nil
		}
		segments := strings.Split(s, "/")
		if err := validateSegments(segments); err != nil {
			return Path{}, &key.FormatError{Input: s, Reason: err.(*key.FormatError).Reason}
		}
		return Path{segments: segments}, nil
	}

	rootString, remainder, found := strings.Cut(s[1:], "/")
	root, err := key.Parse(rootString)
	if err != nil {
		return Path{}, err
	}
	if !found {
		return Path{}, &key.FormatError{Input: s, Reason: "absolute path must have '/' after the root key"}
	}
	if remainder == "" {
		return Path{root: root, absolute: true}, nil
	}
	segments := strings.Split(remainder, "/")
	if err := validateSegments(segments); err != nil {
		return Path{}, &key.FormatError{Input: s, Reason: err.(*key.FormatError).Reason}
	}
	return Path{root: root, absolute: true, segments: segments}, nil
}

// Equal reports whether p and other address the same location.
func (p Path) Equal(other Path) bool {
	return p.absolute == other.absolute && p.root == other.root && slices.Equal(p.segments, other.segments)
}

// MarshalText implements encoding.TextMarshaler.
func (p Path) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Path) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package session defines the storage session boundary: the interface
// through which paths are turned into object metadata and content, and
// the process-wide registration of the current session.
//
// The key, classify, manifest, and path packages never open, close, or
// look up sessions. Front ends such as the tessera CLI open a session
// for the scope of a command and code inside that scope retrieves it
// with Current:
//
//	release, err := session.Open(localStore)
//	if err != nil {
//	    return err
//	}
//	defer release()
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/bureau-foundation/tessera/lib/key"
	"github.com/bureau-foundation/tessera/lib/path"
)

// Info is the metadata a session reports for an addressed object.
type Info struct {
	MimeType    string
	FileTypeTag string
	CreatedAt   time.Time
	Size        int64
}

// Content is an object's metadata, its resolved key, and its body. The
// caller must close Body.
type Content struct {
	Info

	// Key is the content key the path resolved to, after following
	// portals and walking manifests.
	Key key.Key

	Body io.ReadCloser
}

// Session resolves paths to objects.
type Session interface {
	// Info returns metadata for the object at p, or a
	// *NotFoundError.
	Info(ctx context.Context, p path.Path) (Info, error)

	// Content returns metadata and a body reader for the object at
	// p, or a *NotFoundError.
	Content(ctx context.Context, p path.Path) (*Content, error)
}

// NotFoundError reports that a path, name, or key does not resolve to
// a stored object.
type NotFoundError struct {
	// Path is the address that was looked up.
	Path string

	// Reason describes which step of resolution failed.
	Reason string
}

func (e *NotFoundError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Reason == "" {
		return fmt.Sprintf("not found: %s", e.Path)
	}
	return fmt.Sprintf("not found: %s: %s", e.Path, e.Reason)
}

// IsNotFound reports whether err is or wraps a *NotFoundError.
func IsNotFound(err error) bool {
	var notFound *NotFoundError
	return errors.As(err, &notFound)
}

var (
	currentMu sync.Mutex
	current   Session
)

// Open registers s as the current session. It fails with a
// *key.StateError if another session is already registered. The
// returned release function clears the registration; calling it more
// than once is harmless.
func Open(s Session) (release func(), err error) {
	if s == nil {
		return nil, &key.StateError{Op: "open session", Reason: "nil session"}
	}
	currentMu.Lock()
	defer currentMu.Unlock()
	if current != nil {
		return nil, &key.StateError{Op: "open session", Reason: "a session is already open"}
	}
	current = s

	var once sync.Once
	return func() {
		once.Do(func() {
			currentMu.Lock()
			current = nil
			currentMu.Unlock()
		})
	}, nil
}

// Current returns the registered session.
func Current() (Session, bool) {
	currentMu.Lock()
	defer currentMu.Unlock()
	return current, current != nil
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"fmt"

	"github.com/bureau-foundation/tessera/lib/key"
	"github.com/bureau-foundation/tessera/lib/path"
	"github.com/bureau-foundation/tessera/lib/session"
)

// Store implements the storage session boundary.
var _ session.Session = (*Store)(nil)

// Resolve walks an absolute path to the key it addresses. Portals are
// followed at every step; each segment is looked up in the manifest
// of the container reached so far.
func (s *Store) Resolve(ctx context.Context, p path.Path) (key.Key, error) {
	current, absolute := p.Root()
	if !absolute {
		return key.Key{}, &key.StateError{Op: "resolve " + p.String(), Reason: "path is relative"}
	}
	remaining, err := path.Relative(p.Segments()...)
	if err != nil {
		return key.Key{}, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return key.Key{}, err
		}
		current, err = s.followPortals(current)
		if err != nil {
			return key.Key{}, fmt.Errorf("resolving %s: %w", p, err)
		}
		if remaining.Len() == 0 {
			return current, nil
		}

		head, rest, _, err := remaining.NextSegment()
		if err != nil {
			return key.Key{}, err
		}
		if !current.IsContainer() {
			return key.Key{}, &session.NotFoundError{Path: p.String(), Reason: fmt.Sprintf("parent of %q is not a container", head)}
		}
		m, err := s.LoadManifest(current)
		if err != nil {
			return key.Key{}, fmt.Errorf("resolving %s: %w", p, err)
		}
		entry, exists := m.Get(head)
		if !exists {
			return key.Key{}, &session.NotFoundError{Path: p.String(), Reason: fmt.Sprintf("no entry %q", head)}
		}
		if !entry.Present {
			return key.Key{}, &session.NotFoundError{Path: p.String(), Reason: fmt.Sprintf("entry %q is a placeholder", head)}
		}
		current = entry.Key
		remaining = rest
	}
}

// Info implements session.Session.
func (s *Store) Info(ctx context.Context, p path.Path) (session.Info, error) {
	k, err := s.Resolve(ctx, p)
	if err != nil {
		return session.Info{}, err
	}
	info, err := s.stat(k)
	if err != nil {
		return session.Info{}, err
	}
	return info.SessionInfo(), nil
}

// Content implements session.Session.
func (s *Store) Content(ctx context.Context, p path.Path) (*session.Content, error) {
	k, err := s.Resolve(ctx, p)
	if err != nil {
		return nil, err
	}
	body, info, err := s.Get(k)
	if err != nil {
		return nil, err
	}
	return &session.Content{Info: info.SessionInfo(), Key: k, Body: body}, nil
}

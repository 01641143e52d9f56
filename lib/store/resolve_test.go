// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"bytes"
	"context"
	"testing"

	"github.com/bureau-foundation/tessera/lib/key"
	"github.com/bureau-foundation/tessera/lib/manifest"
	"github.com/bureau-foundation/tessera/lib/path"
	"github.com/bureau-foundation/tessera/lib/session"
)

// tree is a stored two-level hierarchy:
//
//	root/
//	  docs/ -> portal -> docs manifest
//	    readme
//	  pending (placeholder)
//	  top.txt
type tree struct {
	store  *Store
	root   key.Key
	readme key.Key
	top    key.Key
	docs   key.Key
	portal key.Key
}

func buildTree(t *testing.T) tree {
	t.Helper()
	s, _ := newTestStore(t, Options{Compression: CompressionAuto})
	readme, err := s.Put(bytes.NewReader(textContent), PutOptions{})
	if err != nil {
		t.Fatal(err)
	}
	top, err := s.Put(bytes.NewReader([]byte("top level")), PutOptions{})
	if err != nil {
		t.Fatal(err)
	}

	docsManifest := manifest.New()
	if err := docsManifest.Set("readme", readme); err != nil {
		t.Fatal(err)
	}
	docs, err := s.PutManifest(docsManifest)
	if err != nil {
		t.Fatal(err)
	}
	portal, err := s.CreatePortal(key.TypeVersionedTree, key.RoleContainer, key.ClassGeneric, docs)
	if err != nil {
		t.Fatal(err)
	}

	rootManifest := manifest.New()
	for name, k := range map[string]key.Key{"docs": portal, "top.txt": top} {
		if err := rootManifest.Set(name, k); err != nil {
			t.Fatal(err)
		}
	}
	if err := rootManifest.SetPlaceholder("pending"); err != nil {
		t.Fatal(err)
	}
	root, err := s.PutManifest(rootManifest)
	if err != nil {
		t.Fatal(err)
	}
	return tree{store: s, root: root, readme: readme, top: top, docs: docs, portal: portal}
}

func absolute(t *testing.T, root key.Key, segments ...string) path.Path {
	t.Helper()
	p, err := path.Absolute(root, segments...)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestResolve(t *testing.T) {
	tr := buildTree(t)
	ctx := context.Background()

	tests := []struct {
		segments []string
		want     key.Key
	}{
		{nil, tr.root},
		{[]string{"top.txt"}, tr.top},
		{[]string{"docs"}, tr.docs},
		{[]string{"docs", "readme"}, tr.readme},
	}
	for _, test := range tests {
		p := absolute(t, tr.root, test.segments...)
		got, err := tr.store.Resolve(ctx, p)
		if err != nil {
			t.Errorf("Resolve(%s): %v", p, err)
			continue
		}
		if got != test.want {
			t.Errorf("Resolve(%s) = %s, want %s", p, got.Short(), test.want.Short())
		}
	}

	// Rooting a path at the portal reaches the same content.
	got, err := tr.store.Resolve(ctx, absolute(t, tr.portal, "readme"))
	if err != nil {
		t.Fatalf("Resolve through portal root: %v", err)
	}
	if got != tr.readme {
		t.Errorf("Resolve through portal root = %s, want %s", got.Short(), tr.readme.Short())
	}
}

func TestResolveFailures(t *testing.T) {
	tr := buildTree(t)
	ctx := context.Background()

	for _, segments := range [][]string{
		{"missing"},
		{"pending"},
		{"pending", "child"},
		{"top.txt", "child"},
		{"docs", "readme", "deeper"},
	} {
		p := absolute(t, tr.root, segments...)
		if _, err := tr.store.Resolve(ctx, p); !session.IsNotFound(err) {
			t.Errorf("Resolve(%s) = %v, want NotFoundError", p, err)
		}
	}

	relative, err := path.Relative("docs")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tr.store.Resolve(ctx, relative); !key.IsStateError(err) {
		t.Errorf("Resolve(relative) = %v, want StateError", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := tr.store.Resolve(cancelled, absolute(t, tr.root, "docs")); err != context.Canceled {
		t.Errorf("Resolve(cancelled) = %v, want context.Canceled", err)
	}
}

func TestSessionOperations(t *testing.T) {
	tr := buildTree(t)
	release, err := session.Open(tr.store)
	if err != nil {
		t.Fatalf("session.Open: %v", err)
	}
	defer release()

	current, ok := session.Current()
	if !ok {
		t.Fatal("no current session")
	}
	ctx := context.Background()
	p := absolute(t, tr.root, "docs", "readme")

	info, err := current.Info(ctx, p)
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info.Size != int64(len(textContent)) || info.FileTypeTag != "generic" || !info.CreatedAt.Equal(epoch) {
		t.Errorf("Info() = %+v", info)
	}

	content, err := current.Content(ctx, p)
	if err != nil {
		t.Fatalf("Content: %v", err)
	}
	if content.Key != tr.readme {
		t.Errorf("Content().Key = %s, want %s", content.Key.Short(), tr.readme.Short())
	}
	if !bytes.Equal(readAll(t, content.Body), textContent) {
		t.Error("Content() body differs")
	}

	rootInfo, err := current.Info(ctx, absolute(t, tr.root, "docs"))
	if err != nil {
		t.Fatal(err)
	}
	if rootInfo.FileTypeTag != FileTypeManifest {
		t.Errorf("docs FileTypeTag = %q, want %q", rootInfo.FileTypeTag, FileTypeManifest)
	}

	if _, err := current.Content(ctx, absolute(t, tr.root, "missing")); !session.IsNotFound(err) {
		t.Errorf("Content(missing) = %v, want NotFoundError", err)
	}
}

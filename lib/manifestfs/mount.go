// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package manifestfs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"syscall"
	"time"

	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/bureau-foundation/tessera/lib/key"
	"github.com/bureau-foundation/tessera/lib/manifest"
	"github.com/bureau-foundation/tessera/lib/session"
	"github.com/bureau-foundation/tessera/lib/store"
)

// Options configures the FUSE mount.
type Options struct {
	// Mountpoint is the directory where the filesystem is mounted.
	// Created if missing.
	Mountpoint string

	// Store serves manifests and object content.
	Store *store.Store

	// Root is the container (or portal to a container) shown under
	// tree/.
	Root key.Key

	// AllowOther permits other users to access the mount. Requires
	// user_allow_other in /etc/fuse.conf.
	AllowOther bool

	// Logger receives diagnostic messages. Nil logs errors to stderr.
	Logger *slog.Logger
}

// Mount mounts the filesystem. The caller must call Unmount on the
// returned server when done.
func Mount(options Options) (*fuse.Server, error) {
	if options.Mountpoint == "" {
		return nil, fmt.Errorf("mountpoint is required")
	}
	if options.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if !options.Root.IsContainer() {
		return nil, fmt.Errorf("root %s is not a container key", options.Root.Short())
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelError,
		}))
	}

	if err := os.MkdirAll(options.Mountpoint, 0o755); err != nil {
		return nil, fmt.Errorf("creating mountpoint %s: %w", options.Mountpoint, err)
	}

	entryTimeout := 1 * time.Second
	attrTimeout := 1 * time.Second
	negativeTimeout := 100 * time.Millisecond

	server, err := gofuse.Mount(options.Mountpoint, &rootNode{options: &options}, &gofuse.Options{
		EntryTimeout:    &entryTimeout,
		AttrTimeout:     &attrTimeout,
		NegativeTimeout: &negativeTimeout,
		MountOptions: fuse.MountOptions{
			FsName:     "tessera",
			Name:       "tessera",
			AllowOther: options.AllowOther,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("mounting FUSE filesystem at %s: %w", options.Mountpoint, err)
	}

	options.Logger.Info("manifest filesystem mounted",
		"mountpoint", options.Mountpoint,
		"key", options.Root.Short(),
	)
	return server, nil
}

// rootNode is the filesystem root with "tree" and "key" children.
type rootNode struct {
	gofuse.Inode
	options *Options
}

var _ gofuse.InodeEmbedder = (*rootNode)(nil)
var _ gofuse.NodeOnAdder = (*rootNode)(nil)

func (r *rootNode) OnAdd(ctx context.Context) {
	tree := r.NewPersistentInode(ctx, &dirNode{options: r.options, key: r.options.Root, present: true},
		gofuse.StableAttr{Mode: syscall.S_IFDIR})
	r.AddChild("tree", tree, true)

	byKey := r.NewPersistentInode(ctx, &keyNode{options: r.options}, gofuse.StableAttr{Mode: syscall.S_IFDIR})
	r.AddChild("key", byKey, true)
}

// keyNode is the "key/" directory: lookup by key string only.
type keyNode struct {
	gofuse.Inode
	options *Options
}

var _ gofuse.NodeLookuper = (*keyNode)(nil)

func (k *keyNode) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	parsed, err := key.Parse(name)
	if err != nil {
		return nil, syscall.ENOENT
	}
	return newEntryInode(ctx, &k.Inode, k.options, manifest.KeyEntry(parsed), out)
}

// dirNode is a container: a manifest, or an empty placeholder
// directory when present is false.
type dirNode struct {
	gofuse.Inode
	options *Options
	key     key.Key
	present bool
}

var _ gofuse.NodeLookuper = (*dirNode)(nil)
var _ gofuse.NodeReaddirer = (*dirNode)(nil)
var _ gofuse.NodeGetattrer = (*dirNode)(nil)

func (d *dirNode) manifest() (*manifest.Manifest, syscall.Errno) {
	if !d.present {
		return manifest.New(), 0
	}
	m, err := d.options.Store.LoadManifest(d.key)
	if err != nil {
		return nil, errnoFor(d.options.Logger, "loading manifest", d.key, err)
	}
	return m, 0
}

func (d *dirNode) Getattr(ctx context.Context, f gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = syscall.S_IFDIR | 0o555
	return 0
}

func (d *dirNode) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	m, errno := d.manifest()
	if errno != 0 {
		return nil, errno
	}
	entry, exists := m.Get(name)
	if !exists {
		return nil, syscall.ENOENT
	}
	return newEntryInode(ctx, &d.Inode, d.options, entry, out)
}

func (d *dirNode) Readdir(ctx context.Context) (gofuse.DirStream, syscall.Errno) {
	m, errno := d.manifest()
	if errno != 0 {
		return nil, errno
	}
	return &sliceDirStream{entries: dirEntries(m)}, 0
}

// dirEntries lists a manifest as directory entries in canonical order.
func dirEntries(m *manifest.Manifest) []fuse.DirEntry {
	entries := make([]fuse.DirEntry, 0, m.Len())
	for name, entry := range m.All() {
		mode := uint32(syscall.S_IFREG)
		if entry.IsContainer() {
			mode = syscall.S_IFDIR
		}
		entries = append(entries, fuse.DirEntry{Name: name, Mode: mode})
	}
	return entries
}

// newEntryInode creates the inode for a manifest entry under parent.
func newEntryInode(ctx context.Context, parent *gofuse.Inode, options *Options, entry manifest.Entry, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	if entry.IsContainer() {
		child := parent.NewInode(ctx, &dirNode{options: options, key: entry.Key, present: entry.Present},
			gofuse.StableAttr{Mode: syscall.S_IFDIR})
		out.Mode = syscall.S_IFDIR | 0o555
		return child, 0
	}

	node := &fileNode{options: options, key: entry.Key}
	if errno := node.refresh(); errno != 0 {
		return nil, errno
	}
	child := parent.NewInode(ctx, node, gofuse.StableAttr{Mode: syscall.S_IFREG})
	out.Mode = syscall.S_IFREG | 0o444
	out.Size = uint64(node.info.Size)
	out.SetEntryTimeout(time.Second)
	return child, 0
}

// fileNode is a leaf object served read-only. Content is loaded on
// first open and kept until a portal key is retargeted.
type fileNode struct {
	gofuse.Inode
	options *Options
	key     key.Key

	mu       sync.Mutex
	stated   bool
	resolved key.Key
	info     store.ObjectInfo
	content  []byte
}

var _ gofuse.NodeGetattrer = (*fileNode)(nil)
var _ gofuse.NodeOpener = (*fileNode)(nil)
var _ gofuse.NodeReader = (*fileNode)(nil)

func (f *fileNode) Getattr(ctx context.Context, fh gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	if errno := f.refresh(); errno != 0 {
		return errno
	}
	f.mu.Lock()
	info := f.info
	f.mu.Unlock()
	out.Mode = syscall.S_IFREG | 0o444
	out.Size = uint64(info.Size)
	out.Blocks = (out.Size + 511) / 512
	if !info.CreatedAt.IsZero() {
		out.SetTimes(nil, &info.CreatedAt, &info.CreatedAt)
	}
	return 0
}

// refresh re-resolves a portal key and, when its target has moved,
// replaces the info record and drops the cached content. Resolved keys
// are only looked up once.
func (f *fileNode) refresh() syscall.Errno {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stated && !f.key.IsPortal() {
		return 0
	}
	resolved, err := f.options.Store.Follow(f.key)
	if err != nil {
		return errnoFor(f.options.Logger, "resolving", f.key, err)
	}
	if f.stated && resolved == f.resolved {
		return 0
	}
	info, err := f.options.Store.Stat(resolved)
	if err != nil {
		return errnoFor(f.options.Logger, "stat", resolved, err)
	}
	f.resolved = resolved
	f.info = info
	f.stated = true
	f.content = nil
	return 0
}

func (f *fileNode) Open(ctx context.Context, flags uint32) (gofuse.FileHandle, uint32, syscall.Errno) {
	if flags&(syscall.O_WRONLY|syscall.O_RDWR) != 0 {
		return nil, 0, syscall.EROFS
	}
	if errno := f.refresh(); errno != 0 {
		return nil, 0, errno
	}
	if _, errno := f.load(); errno != 0 {
		return nil, 0, errno
	}
	// Content under a resolved key never changes.
	if f.key.IsPortal() {
		return nil, 0, 0
	}
	return nil, fuse.FOPEN_KEEP_CACHE, 0
}

func (f *fileNode) Read(ctx context.Context, fh gofuse.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	content, errno := f.load()
	if errno != 0 {
		return nil, errno
	}
	if off >= int64(len(content)) {
		return fuse.ReadResultData(nil), 0
	}
	end := min(off+int64(len(dest)), int64(len(content)))
	return fuse.ReadResultData(content[off:end]), 0
}

func (f *fileNode) load() ([]byte, syscall.Errno) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.content != nil {
		return f.content, 0
	}
	content, _, err := f.options.Store.ReadAll(f.resolved)
	if err != nil {
		return nil, errnoFor(f.options.Logger, "reading", f.resolved, err)
	}
	if content == nil {
		content = []byte{}
	}
	f.content = content
	return content, 0
}

// errnoFor maps store errors to errnos, logging anything unexpected.
func errnoFor(logger *slog.Logger, operation string, k key.Key, err error) syscall.Errno {
	if session.IsNotFound(err) {
		return syscall.ENOENT
	}
	if errors.Is(err, context.Canceled) {
		return syscall.EINTR
	}
	logger.Error(operation+" failed", "key", k.Short(), "error", err)
	return syscall.EIO
}

// sliceDirStream implements fs.DirStream from a slice of entries.
type sliceDirStream struct {
	entries []fuse.DirEntry
	index   int
}

func (s *sliceDirStream) HasNext() bool {
	return s.index < len(s.entries)
}

func (s *sliceDirStream) Next() (fuse.DirEntry, syscall.Errno) {
	if s.index >= len(s.entries) {
		return fuse.DirEntry{}, syscall.EINVAL
	}
	entry := s.entries[s.index]
	s.index++
	return entry, 0
}

func (s *sliceDirStream) Close() {}

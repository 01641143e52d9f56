// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bureau-foundation/tessera/lib/codec"
	"github.com/bureau-foundation/tessera/lib/key"
	"github.com/bureau-foundation/tessera/lib/session"
)

// PortalRecord binds a portal key to its current target. Each portal
// file on disk holds one CBOR-encoded record.
type PortalRecord struct {
	Portal    key.Key   `cbor:"portal"`
	Target    key.Key   `cbor:"target"`
	CreatedAt time.Time `cbor:"created_at"`
	UpdatedAt time.Time `cbor:"updated_at"`
}

// ConflictError reports a failed compare-and-swap on a portal.
type ConflictError struct {
	Portal   key.Key
	Current  key.Key
	Expected key.Key
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("portal conflict: %s currently points to %s, expected %s",
		e.Portal.Short(), e.Current.Short(), e.Expected.Short())
}

// portalTable is the in-memory index of portal records, backed by one
// CBOR file per portal under <root>/portals/<shard>/.
type portalTable struct {
	root      string
	tempDir   string
	shardPath func(key.Key) (string, error)

	mu      sync.RWMutex
	entries map[key.Key]PortalRecord
}

func newPortalTable(root, tempDir string, shardPath func(key.Key) (string, error)) (*portalTable, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating portal directory %s: %w", root, err)
	}
	table := &portalTable{
		root:      root,
		tempDir:   tempDir,
		shardPath: shardPath,
		entries:   make(map[key.Key]PortalRecord),
	}
	if err := table.scanAll(); err != nil {
		return nil, fmt.Errorf("scanning existing portals: %w", err)
	}
	return table, nil
}

func (pt *portalTable) get(portal key.Key) (PortalRecord, bool) {
	pt.mu.RLock()
	defer pt.mu.RUnlock()
	record, exists := pt.entries[portal]
	return record, exists
}

// set creates or retargets a portal. When expected is non-nil and the
// portal exists, the write happens only if the current target equals
// *expected. expected is ignored for new portals.
func (pt *portalTable) set(portal, target key.Key, expected *key.Key, now time.Time) (PortalRecord, error) {
	if !portal.IsPortal() {
		return PortalRecord{}, &key.FormatError{Input: portal.String(), Reason: "not a portal key"}
	}

	pt.mu.Lock()
	defer pt.mu.Unlock()

	existing, exists := pt.entries[portal]
	if exists && expected != nil && existing.Target != *expected {
		return PortalRecord{}, &ConflictError{Portal: portal, Current: existing.Target, Expected: *expected}
	}

	record := PortalRecord{Portal: portal, Target: target, CreatedAt: now, UpdatedAt: now}
	if exists {
		record.CreatedAt = existing.CreatedAt
	}

	data, err := codec.Marshal(record)
	if err != nil {
		return PortalRecord{}, fmt.Errorf("encoding portal %s: %w", portal.Short(), err)
	}
	finalPath, err := pt.path(portal)
	if err != nil {
		return PortalRecord{}, err
	}
	if err := writeFileAtomic(pt.tempDir, finalPath, data); err != nil {
		return PortalRecord{}, err
	}

	pt.entries[portal] = record
	return record, nil
}

func (pt *portalTable) remove(portal key.Key) error {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	if _, exists := pt.entries[portal]; !exists {
		return &session.NotFoundError{Path: portal.String(), Reason: "no such portal"}
	}
	finalPath, err := pt.path(portal)
	if err != nil {
		return err
	}
	if err := os.Remove(finalPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing portal file for %s: %w", portal.Short(), err)
	}
	delete(pt.entries, portal)
	return nil
}

// list returns every record ordered by portal key string.
func (pt *portalTable) list() []PortalRecord {
	pt.mu.RLock()
	records := make([]PortalRecord, 0, len(pt.entries))
	for _, record := range pt.entries {
		records = append(records, record)
	}
	pt.mu.RUnlock()

	slices.SortFunc(records, func(a, b PortalRecord) int {
		return strings.Compare(a.Portal.String(), b.Portal.String())
	})
	return records
}

func (pt *portalTable) path(portal key.Key) (string, error) {
	shard, err := pt.shardPath(portal)
	if err != nil {
		return "", err
	}
	return filepath.Join(pt.root, shard, portal.String()+".cbor"), nil
}

// scanAll loads every portal file into the index. Called once at open.
func (pt *portalTable) scanAll() error {
	return filepath.WalkDir(pt.root, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".cbor") {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading portal file %s: %w", path, err)
		}
		var record PortalRecord
		if err := codec.Unmarshal(data, &record); err != nil {
			return fmt.Errorf("decoding portal file %s: %w", path, err)
		}
		if !record.Portal.IsPortal() {
			// Skip corrupt or incomplete portal files.
			return nil
		}
		pt.entries[record.Portal] = record
		return nil
	})
}

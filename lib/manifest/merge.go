// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"fmt"
	"iter"
	"slices"

	"github.com/bureau-foundation/tessera/lib/key"
)

// Action is the kind of change a Patch describes.
type Action uint8

const (
	// ActionUpdate binds a name to the patch's entry.
	ActionUpdate Action = iota

	// ActionDelete removes a name.
	ActionDelete
)

func (a Action) String() string {
	switch a {
	case ActionUpdate:
		return "update"
	case ActionDelete:
		return "delete"
	default:
		return fmt.Sprintf("action(%d)", uint8(a))
	}
}

// Patch is one step of evolving a manifest into another version.
// Entry is the placeholder for deletes.
type Patch struct {
	Action Action
	Name   string
	Entry  Entry
}

func (p Patch) String() string {
	if p.Action == ActionDelete {
		return fmt.Sprintf("delete %s", p.Name)
	}
	return fmt.Sprintf("update %s %s", p.Name, p.Entry)
}

// Merge returns the patches that evolve previous into m, in strict
// name order. Neither manifest is modified.
func (m *Manifest) Merge(previous *Manifest) []Patch {
	return slices.Collect(m.Patches(previous))
}

// Patches is the iterator form of Merge. Both manifests are
// snapshotted when Patches is called.
func (m *Manifest) Patches(previous *Manifest) iter.Seq[Patch] {
	current := m.snapshot()
	prior := previous.snapshot()

	return func(yield func(Patch) bool) {
		i, j := 0, 0
		for i < len(current) || j < len(prior) {
			switch {
			case j == len(prior) || (i < len(current) && current[i].name < prior[j].name):
				if !yield(Patch{Action: ActionUpdate, Name: current[i].name, Entry: current[i].entry}) {
					return
				}
				i++
			case i == len(current) || prior[j].name < current[i].name:
				if !yield(Patch{Action: ActionDelete, Name: prior[j].name}) {
					return
				}
				j++
			default:
				if !reconcile(current[i], prior[j].entry, yield) {
					return
				}
				i++
				j++
			}
		}
	}
}

// reconcile yields the patches for a name present on both sides.
func reconcile(now item, before Entry, yield func(Patch) bool) bool {
	if now.entry == before {
		return true
	}
	nowContainer, beforeContainer := now.entry.IsContainer(), before.IsContainer()
	switch {
	case nowContainer && beforeContainer:
		// Sub-manifests are reconciled by merging them directly.
		return true
	case nowContainer != beforeContainer:
		if !yield(Patch{Action: ActionDelete, Name: now.name}) {
			return false
		}
	}
	return yield(Patch{Action: ActionUpdate, Name: now.name, Entry: now.entry})
}

// Apply returns an unpublished copy of base with patches applied in
// order. A delete of a name the manifest does not hold at that point
// fails with a *key.StateError; an update with an invalid name fails
// with a *key.FormatError.
func Apply(base *Manifest, patches []Patch) (*Manifest, error) {
	result := base.Clone()
	for _, patch := range patches {
		switch patch.Action {
		case ActionUpdate:
			if err := result.SetEntry(patch.Name, patch.Entry); err != nil {
				return nil, fmt.Errorf("applying %s: %w", patch, err)
			}
		case ActionDelete:
			if _, ok := result.Get(patch.Name); !ok {
				return nil, &key.StateError{Op: "apply " + patch.String(), Reason: "name not present"}
			}
			if err := result.Delete(patch.Name); err != nil {
				return nil, fmt.Errorf("applying %s: %w", patch, err)
			}
		default:
			return nil, &key.StateError{Op: "apply", Reason: fmt.Sprintf("unknown %s", patch.Action)}
		}
	}
	return result, nil
}

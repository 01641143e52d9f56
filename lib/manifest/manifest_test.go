// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/bureau-foundation/tessera/lib/classify"
	"github.com/bureau-foundation/tessera/lib/codec"
	"github.com/bureau-foundation/tessera/lib/key"
)

func leafKey(content string) key.Key {
	return classify.LeafKey(classify.ClassifyBytes([]byte(content)))
}

func containerKey(content string) key.Key {
	return leafKey(content).WithRole(key.RoleContainer)
}

func mustSet(t *testing.T, m *Manifest, name string, k key.Key) {
	t.Helper()
	if err := m.Set(name, k); err != nil {
		t.Fatalf("Set(%q): %v", name, err)
	}
}

func TestEmptyManifest(t *testing.T) {
	m := New()
	if got := m.Serialize(); got != "[[],[]]" {
		t.Errorf("Serialize() = %q, want %q", got, "[[],[]]")
	}
	want, err := key.Inline(key.RoleContainer, key.ClassGeneric, []byte("[[],[]]"))
	if err != nil {
		t.Fatal(err)
	}
	if got := m.Identity(); got != want {
		t.Errorf("Identity() = %s, want %s", got, want)
	}
	if m.Size() != 7 {
		t.Errorf("Size() = %d, want 7", m.Size())
	}
}

func TestSerializeCanonicalForm(t *testing.T) {
	k := leafKey("b content")
	m := New()
	mustSet(t, m, "b", k)
	if err := m.SetPlaceholder("a<&>"); err != nil {
		t.Fatal(err)
	}

	want := `[["a<&>","b"],[null,"` + k.String() + `"]]`
	if got := m.Serialize(); got != want {
		t.Errorf("Serialize() = %s, want %s", got, want)
	}
	if got := string(m.Bytes()); got != want {
		t.Errorf("Bytes() = %s, want %s", got, want)
	}
	if m.Size() != len(want) {
		t.Errorf("Size() = %d, want %d", m.Size(), len(want))
	}
}

func TestIdentityIndependentOfInsertionOrder(t *testing.T) {
	names := []string{"zeta", "alpha", "mid", "beta", "omega"}

	forward := New()
	for _, name := range names {
		mustSet(t, forward, name, leafKey(name))
	}
	backward := New()
	for i := len(names) - 1; i >= 0; i-- {
		mustSet(t, backward, names[i], leafKey(names[i]))
	}

	if forward.Serialize() != backward.Serialize() {
		t.Errorf("serializations differ:\n%s\n%s", forward.Serialize(), backward.Serialize())
	}
	if forward.Identity() != backward.Identity() {
		t.Errorf("identities differ: %s vs %s", forward.Identity(), backward.Identity())
	}
	if !forward.Identity().IsContainer() {
		t.Error("identity should have the container role")
	}
	if !forward.Identity().IsResolved() {
		t.Errorf("identity of a %d-byte manifest should be hash-resolved", forward.Size())
	}
}

func TestIdentityMatchesClassification(t *testing.T) {
	m := New()
	mustSet(t, m, "file", leafKey("data"))
	want, err := classify.KeyFromClassification(classify.ClassifyBytes(m.Bytes()), key.RoleContainer, key.ClassGeneric)
	if err != nil {
		t.Fatal(err)
	}
	if got := m.Identity(); got != want {
		t.Errorf("Identity() = %s, want %s", got, want)
	}
}

func TestMutationInvalidatesCaches(t *testing.T) {
	m := New()
	mustSet(t, m, "a", leafKey("1"))
	before := m.Identity()
	beforeSerialized := m.Serialize()

	mustSet(t, m, "a", leafKey("1"))
	if m.Identity() != before {
		t.Error("identical Set changed the identity")
	}
	generation := m.generation
	mustSet(t, m, "a", leafKey("1"))
	if m.generation != generation {
		t.Errorf("identical Set bumped generation from %d to %d", generation, m.generation)
	}

	mustSet(t, m, "b", leafKey("2"))
	if m.Identity() == before {
		t.Error("Set of a new name did not change the identity")
	}
	if m.Serialize() == beforeSerialized {
		t.Error("Set of a new name did not change the serialization")
	}

	if err := m.Delete("b"); err != nil {
		t.Fatal(err)
	}
	if m.Identity() != before {
		t.Errorf("Identity() after delete = %s, want %s", m.Identity(), before)
	}
	if got := m.NamesFor(leafKey("2")); len(got) != 0 {
		t.Errorf("NamesFor(deleted key) = %v, want empty", got)
	}
}

func TestDeleteMissingIsNoop(t *testing.T) {
	m := New()
	if err := m.Delete("missing"); err != nil {
		t.Fatalf("Delete(missing) = %v, want nil", err)
	}
	if m.generation != 0 {
		t.Errorf("generation = %d, want 0", m.generation)
	}
}

func TestGetDistinguishesPlaceholderFromMissing(t *testing.T) {
	m := New()
	if err := m.SetPlaceholder("dir"); err != nil {
		t.Fatal(err)
	}
	entry, ok := m.Get("dir")
	if !ok {
		t.Fatal("Get(dir) reported missing")
	}
	if entry.Present {
		t.Error("placeholder entry reported Present")
	}
	if _, ok := m.Get("other"); ok {
		t.Error("Get(other) reported present")
	}
}

func TestInvalidNames(t *testing.T) {
	m := New()
	for _, name := range []string{"", ".", "..", "a/b", "/", "\xff"} {
		err := m.Set(name, leafKey("x"))
		if !key.IsFormatError(err) {
			t.Errorf("Set(%q) = %v, want FormatError", name, err)
		}
	}
	if m.Len() != 0 {
		t.Errorf("Len() = %d, want 0", m.Len())
	}
}

func TestDotNamesAreNotEntries(t *testing.T) {
	if err := ValidateName("..."); err != nil {
		t.Errorf("ValidateName(...) = %v, want nil", err)
	}
	if err := ValidateName(".hidden"); err != nil {
		t.Errorf("ValidateName(.hidden) = %v, want nil", err)
	}
	for _, data := range []string{`[["."],[null]]`, `[["..","a"],[null,null]]`} {
		if _, err := Parse([]byte(data)); !key.IsFormatError(err) {
			t.Errorf("Parse(%s) = %v, want FormatError", data, err)
		}
	}
}

func TestPublishFreezes(t *testing.T) {
	m := New()
	mustSet(t, m, "a", leafKey("1"))
	m.Publish()
	if !m.Published() {
		t.Fatal("Published() = false after Publish")
	}

	operations := map[string]func() error{
		"Set":            func() error { return m.Set("b", leafKey("2")) },
		"SetPlaceholder": func() error { return m.SetPlaceholder("b") },
		"Delete":         func() error { return m.Delete("a") },
	}
	for name, operation := range operations {
		err := operation()
		var stateError *key.StateError
		if !errors.As(err, &stateError) {
			t.Errorf("%s on published manifest = %v, want StateError", name, err)
		}
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1", m.Len())
	}

	clone := m.Clone()
	if clone.Published() {
		t.Error("Clone() is published")
	}
	mustSet(t, clone, "b", leafKey("2"))
	if m.Len() != 1 {
		t.Error("editing the clone changed the original")
	}
}

func TestNamesAndAll(t *testing.T) {
	m := New()
	mustSet(t, m, "c", leafKey("c"))
	mustSet(t, m, "a", leafKey("a"))
	if err := m.SetPlaceholder("b"); err != nil {
		t.Fatal(err)
	}

	if got, want := m.Names(), []string{"a", "b", "c"}; !slices.Equal(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}

	var visited []string
	for name, entry := range m.All() {
		visited = append(visited, name)
		if name == "b" && entry.Present {
			t.Error("b should be a placeholder")
		}
		if name == "c" {
			break
		}
	}
	if want := []string{"a", "b", "c"}; !slices.Equal(visited, want) {
		t.Errorf("All() visited %v, want %v", visited, want)
	}
}

func TestNamesFor(t *testing.T) {
	shared := leafKey("shared")
	m := New()
	mustSet(t, m, "z", shared)
	mustSet(t, m, "a", shared)
	mustSet(t, m, "m", leafKey("other"))

	if got, want := m.NamesFor(shared), []string{"a", "z"}; !slices.Equal(got, want) {
		t.Errorf("NamesFor(shared) = %v, want %v", got, want)
	}
	got := m.NamesFor(shared)
	got[0] = "mutated"
	if m.NamesFor(shared)[0] != "a" {
		t.Error("NamesFor returned the cached slice")
	}
}

func TestIsContainerEntry(t *testing.T) {
	m := New()
	mustSet(t, m, "leaf", leafKey("x"))
	mustSet(t, m, "dir", containerKey("y"))
	if err := m.SetPlaceholder("pending"); err != nil {
		t.Fatal(err)
	}

	tests := map[string]bool{"leaf": false, "dir": true, "pending": true, "missing": false}
	for name, want := range tests {
		if got := m.IsContainerEntry(name); got != want {
			t.Errorf("IsContainerEntry(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestParseRoundtrip(t *testing.T) {
	m := New()
	mustSet(t, m, "data", leafKey("a long enough piece of content to hash"))
	mustSet(t, m, "small", leafKey("tiny"))
	if err := m.SetPlaceholder("sub"); err != nil {
		t.Fatal(err)
	}

	parsed, err := Parse(m.Bytes())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !parsed.Published() {
		t.Error("parsed manifest is not published")
	}
	if parsed.Identity() != m.Identity() {
		t.Errorf("Identity() = %s, want %s", parsed.Identity(), m.Identity())
	}
	if parsed.Serialize() != m.Serialize() {
		t.Errorf("Serialize() = %s, want %s", parsed.Serialize(), m.Serialize())
	}
}

func TestParseRejects(t *testing.T) {
	k := leafKey("k").String()
	tests := []struct {
		name  string
		input string
	}{
		{"not json", `nope`},
		{"object", `{"a":null}`},
		{"single array", `[["a"]]`},
		{"three arrays", `[[],[],[]]`},
		{"length mismatch", `[["a","b"],[null]]`},
		{"unsorted", `[["b","a"],[null,null]]`},
		{"duplicate", `[["a","a"],[null,null]]`},
		{"empty name", `[[""],[null]]`},
		{"slash in name", `[["a/b"],[null]]`},
		{"bad key", `[["a"],["not-a-key"]]`},
		{"whitespace", `[ ["a"],["` + k + `"]]`},
		{"escaped", `[["\u0061"],[null]]`},
		{"trailing newline", "[[\"a\"],[null]]\n"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Parse([]byte(test.input))
			if !key.IsFormatError(err) {
				t.Errorf("Parse(%q) = %v, want FormatError", test.input, err)
			}
		})
	}
}

func TestParseSource(t *testing.T) {
	k := leafKey("readme contents")
	source := []byte(`{
		// documentation
		"README": "` + k.String() + `",
		"drafts": null, // filled in later
	}`)

	m, err := ParseSource(source)
	if err != nil {
		t.Fatalf("ParseSource: %v", err)
	}
	if m.Published() {
		t.Error("source manifest should be unpublished")
	}
	if entry, ok := m.Get("README"); !ok || entry.Key != k {
		t.Errorf("Get(README) = %v, %v; want %s", entry, ok, k)
	}
	if !m.IsContainerEntry("drafts") {
		t.Error("drafts should be a placeholder")
	}

	if _, err := ParseSource([]byte(`{"a": "!!"}`)); !key.IsFormatError(err) {
		t.Errorf("ParseSource(bad key) = %v, want FormatError", err)
	}
	if _, err := ParseSource([]byte(`["a"]`)); !key.IsFormatError(err) {
		t.Errorf("ParseSource(array) = %v, want FormatError", err)
	}
}

func TestCBORRoundtrip(t *testing.T) {
	m := New()
	mustSet(t, m, "one", leafKey("1"))
	mustSet(t, m, "two", containerKey("2"))
	if err := m.SetPlaceholder("three"); err != nil {
		t.Fatal(err)
	}

	data, err := codec.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	decoded := New()
	if err := codec.Unmarshal(data, decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Identity() != m.Identity() {
		t.Errorf("Identity() = %s, want %s", decoded.Identity(), m.Identity())
	}
	if !decoded.Published() {
		t.Error("decoded manifest is not published")
	}
	if err := codec.Unmarshal(data, decoded); !key.IsStateError(err) {
		t.Errorf("decoding into a published manifest = %v, want StateError", err)
	}
}

func TestConcurrentReadersOfPublishedManifest(t *testing.T) {
	m := New()
	for _, name := range []string{"a", "b", "c", "d"} {
		mustSet(t, m, name, leafKey(name+" content that is long enough to hash"))
	}
	m.Publish()
	want := m.Clone().Identity()

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := m.Identity(); got != want {
				t.Errorf("Identity() = %s, want %s", got, want)
			}
			_ = m.NamesFor(leafKey("a"))
			_ = m.Size()
		}()
	}
	wg.Wait()
}

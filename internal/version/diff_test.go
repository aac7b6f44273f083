package version

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestDiffAddRemoveReplace(t *testing.T) {
	from := map[string]any{"keep": float64(1), "gone": "old", "changed": "a"}
	to := map[string]any{"keep": float64(1), "fresh": "new", "changed": "b"}

	entries := Diff(from, to)
	want := []DiffEntry{
		{Op: OpReplace, Path: "/changed", OldValue: "a", NewValue: "b"},
		{Op: OpAdd, Path: "/fresh", NewValue: "new"},
		{Op: OpRemove, Path: "/gone", OldValue: "old"},
	}
	if !reflect.DeepEqual(entries, want) {
		t.Errorf("entries = %+v, want %+v", entries, want)
	}
}

func TestDiffRecursesIntoObjects(t *testing.T) {
	from := map[string]any{"nested": map[string]any{"a": float64(1), "b": float64(2)}}
	to := map[string]any{"nested": map[string]any{"a": float64(1), "b": float64(3)}}

	entries := Diff(from, to)
	want := []DiffEntry{{Op: OpReplace, Path: "/nested/b", OldValue: float64(2), NewValue: float64(3)}}
	if !reflect.DeepEqual(entries, want) {
		t.Errorf("entries = %+v, want %+v", entries, want)
	}
}

// Arrays are deliberately compared as opaque values, never element-wise.
// A one-element change in a large array therefore surfaces as a single
// replace of the whole array at its path. This mirrors the documented
// behavior of the comparison and is asserted here so a future "fix" to
// element-wise diffing shows up as a deliberate decision.
func TestDiffTreatsArraysAsOpaque(t *testing.T) {
	from := map[string]any{"list": []any{float64(1), float64(2), float64(3)}}
	to := map[string]any{"list": []any{float64(1), float64(9), float64(3)}}

	entries := Diff(from, to)
	if len(entries) != 1 {
		t.Fatalf("expected one whole-array replace, got %+v", entries)
	}
	entry := entries[0]
	if entry.Op != OpReplace || entry.Path != "/list" {
		t.Errorf("entry = %+v", entry)
	}
	if !reflect.DeepEqual(entry.NewValue, []any{float64(1), float64(9), float64(3)}) {
		t.Errorf("new value should be the entire array, got %v", entry.NewValue)
	}
}

func TestDiffEqualArraysProduceNothing(t *testing.T) {
	from := map[string]any{"list": []any{"x", "y"}}
	to := map[string]any{"list": []any{"x", "y"}}
	if entries := Diff(from, to); len(entries) != 0 {
		t.Errorf("equal arrays should not diff, got %+v", entries)
	}
}

func TestDiffObjectReplacedByScalar(t *testing.T) {
	from := map[string]any{"a": map[string]any{"x": float64(1)}}
	to := map[string]any{"a": "flat"}

	entries := Diff(from, to)
	if len(entries) != 1 || entries[0].Op != OpReplace || entries[0].Path != "/a" {
		t.Errorf("object-to-scalar should be a single replace, got %+v", entries)
	}
}

func TestDiffDeterministicOrder(t *testing.T) {
	from := map[string]any{"b": float64(1), "a": float64(1), "c": float64(1)}
	to := map[string]any{}
	entries := Diff(from, to)
	paths := make([]string, len(entries))
	for i, e := range entries {
		paths[i] = e.Path
	}
	want := []string{"/a", "/b", "/c"}
	if !reflect.DeepEqual(paths, want) {
		t.Errorf("paths = %v, want %v", paths, want)
	}
}

// Applying every add/replace entry of diff(a,b) onto a reproduces b for
// object paths. Whole-array and scalar replaces participate too since the
// entries carry the full new value.
func TestDiffRoundTrip(t *testing.T) {
	from := map[string]any{
		"title": "one",
		"meta":  map[string]any{"lang": "en", "drop": true},
		"count": float64(3),
	}
	to := map[string]any{
		"title": "two",
		"meta":  map[string]any{"lang": "de"},
		"tags":  []any{"x"},
	}

	rebuilt := map[string]any{}
	cloneInto(t, from, &rebuilt)
	for _, entry := range Diff(from, to) {
		switch entry.Op {
		case OpAdd, OpReplace:
			value, err := json.Marshal(entry.NewValue)
			if err != nil {
				t.Fatalf("marshal entry value: %v", err)
			}
			if err := Apply(rebuilt, Patch{Op: entry.Op, Path: entry.Path, Value: value}); err != nil {
				t.Fatalf("apply %s %s: %v", entry.Op, entry.Path, err)
			}
		case OpRemove:
			if err := Apply(rebuilt, Patch{Op: OpRemove, Path: entry.Path}); err != nil {
				t.Fatalf("apply remove %s: %v", entry.Path, err)
			}
		}
	}
	if !reflect.DeepEqual(rebuilt, to) {
		t.Errorf("rebuilt = %v, want %v", rebuilt, to)
	}
}

func cloneInto(t *testing.T, src map[string]any, dst *map[string]any) {
	t.Helper()
	raw, err := json.Marshal(src)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
}

package version

import (
	"reflect"
	"sort"
)

// DiffEntry is one structural difference between two effective contents.
type DiffEntry struct {
	Op       Op     `json:"op"`
	Path     string `json:"path"`
	OldValue any    `json:"oldValue,omitempty"`
	NewValue any    `json:"newValue,omitempty"`
}

// Diff recursively compares two content trees key by key. Nested plain
// objects recurse; arrays and scalars are compared atomically, never
// element-wise, so a changed array surfaces as a single replace at its
// path. Output order is deterministic: sorted keys at every level.
func Diff(from, to map[string]any) []DiffEntry {
	return diffObjects(from, to, "")
}

func diffObjects(from, to map[string]any, prefix string) []DiffEntry {
	keys := make([]string, 0, len(from)+len(to))
	seen := make(map[string]struct{}, len(from)+len(to))
	for key := range from {
		keys = append(keys, key)
		seen[key] = struct{}{}
	}
	for key := range to {
		if _, ok := seen[key]; !ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	entries := make([]DiffEntry, 0)
	for _, key := range keys {
		path := prefix + "/" + key
		oldValue, inFrom := from[key]
		newValue, inTo := to[key]
		switch {
		case !inTo:
			entries = append(entries, DiffEntry{Op: OpRemove, Path: path, OldValue: oldValue})
		case !inFrom:
			entries = append(entries, DiffEntry{Op: OpAdd, Path: path, NewValue: newValue})
		default:
			oldObject, oldIsObject := oldValue.(map[string]any)
			newObject, newIsObject := newValue.(map[string]any)
			if oldIsObject && newIsObject {
				entries = append(entries, diffObjects(oldObject, newObject, path)...)
				continue
			}
			if !reflect.DeepEqual(oldValue, newValue) {
				entries = append(entries, DiffEntry{Op: OpReplace, Path: path, OldValue: oldValue, NewValue: newValue})
			}
		}
	}
	return entries
}

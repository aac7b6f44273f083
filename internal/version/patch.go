package version

import (
	"encoding/json"
	"fmt"
	"strings"
)

type Op string

const (
	OpAdd     Op = "add"
	OpReplace Op = "replace"
	OpRemove  Op = "remove"
)

// Patch is one structural edit: set or delete the value at a
// slash-delimited path. Add and replace carry a value, remove does not.
type Patch struct {
	Op    Op              `json:"op"`
	Path  string          `json:"path"`
	Value json.RawMessage `json:"value,omitempty"`
}

func (p Patch) Validate() error {
	switch p.Op {
	case OpAdd, OpReplace:
		if len(p.Value) == 0 {
			return fmt.Errorf("patch %s %s: value is required", p.Op, p.Path)
		}
	case OpRemove:
	default:
		return fmt.Errorf("patch op %q: must be add, replace or remove", p.Op)
	}
	if len(splitPath(p.Path)) == 0 {
		return fmt.Errorf("patch %s: path is required", p.Op)
	}
	return nil
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// Apply mutates doc in place. Add and replace both set the value at the
// path, creating intermediate objects as needed. Remove deletes the key at
// the path; removing through a missing intermediate is a no-op.
func Apply(doc map[string]any, p Patch) error {
	segments := splitPath(p.Path)
	if len(segments) == 0 {
		return fmt.Errorf("patch %s: empty path", p.Op)
	}
	parents, leaf := segments[:len(segments)-1], segments[len(segments)-1]

	switch p.Op {
	case OpAdd, OpReplace:
		var value any
		if err := json.Unmarshal(p.Value, &value); err != nil {
			return fmt.Errorf("patch %s %s: decode value: %w", p.Op, p.Path, err)
		}
		target := doc
		for _, segment := range parents {
			child, ok := target[segment].(map[string]any)
			if !ok {
				child = make(map[string]any)
				target[segment] = child
			}
			target = child
		}
		target[leaf] = value
	case OpRemove:
		target := doc
		for _, segment := range parents {
			child, ok := target[segment].(map[string]any)
			if !ok {
				return nil
			}
			target = child
		}
		delete(target, leaf)
	default:
		return fmt.Errorf("patch op %q: must be add, replace or remove", p.Op)
	}
	return nil
}

// ApplyAll applies patches in order, stopping at the first failure.
func ApplyAll(doc map[string]any, patches []Patch) error {
	for _, p := range patches {
		if err := Apply(doc, p); err != nil {
			return err
		}
	}
	return nil
}

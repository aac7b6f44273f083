package version

import (
	"encoding/json"
	"fmt"
	"sort"
)

// EffectiveContent replays a document's history up to targetID and returns
// the materialized content along with the target version.
//
// The replay set is every selected version created at or before the target,
// plus the target itself even when it is not selected, so a pending version
// can be previewed before approval. A full snapshot replaces the running
// content wholesale; a patch set edits it incrementally. When a version
// carries both, the snapshot is the baseline and its own patches apply on
// top of it.
func EffectiveContent(versions []Version, targetID string) (map[string]any, Version, error) {
	ordered := make([]Version, len(versions))
	copy(ordered, versions)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	var target *Version
	for i := range ordered {
		if ordered[i].ID == targetID {
			target = &ordered[i]
			break
		}
	}
	if target == nil {
		return nil, Version{}, ErrVersionNotFound
	}

	content := make(map[string]any)
	for _, v := range ordered {
		include := v.ID == target.ID ||
			(v.Selected && !v.CreatedAt.After(target.CreatedAt))
		if !include {
			continue
		}
		if v.HasSnapshot() {
			var snapshot map[string]any
			if err := json.Unmarshal(v.Snapshot, &snapshot); err != nil {
				return nil, Version{}, fmt.Errorf("version %s: decode snapshot: %w", v.Triple, err)
			}
			content = snapshot
		}
		if err := ApplyAll(content, v.Patches); err != nil {
			return nil, Version{}, fmt.Errorf("version %s: %w", v.Triple, err)
		}
	}
	return content, *target, nil
}

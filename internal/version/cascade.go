package version

import (
	"sort"
	"time"
)

// SelectionCut recomputes the selected flag across a document's full
// version list after approvedID is approved: every version created at or
// before the approved one becomes selected, everything after it is
// deselected. The approved version itself also transitions to visible.
// The returned time is the cut point, which the store applies as a single
// UPDATE keyed by created_at.
func SelectionCut(versions []Version, approvedID string) ([]Version, time.Time, error) {
	var cut time.Time
	found := false
	for _, v := range versions {
		if v.ID == approvedID {
			cut = v.CreatedAt
			found = true
			break
		}
	}
	if !found {
		return nil, time.Time{}, ErrVersionNotFound
	}

	updated := make([]Version, len(versions))
	copy(updated, versions)
	for i := range updated {
		updated[i].Selected = !updated[i].CreatedAt.After(cut)
		if updated[i].ID == approvedID {
			updated[i].Status = StatusVisible
		}
	}
	return updated, cut, nil
}

// SelectionIntact reports whether, in creation order, the selected flags
// form a contiguous true-prefix followed by a false-suffix.
func SelectionIntact(versions []Version) bool {
	ordered := make([]Version, len(versions))
	copy(ordered, versions)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})
	seenUnselected := false
	for _, v := range ordered {
		if v.Selected && seenUnselected {
			return false
		}
		if !v.Selected {
			seenUnselected = true
		}
	}
	return true
}

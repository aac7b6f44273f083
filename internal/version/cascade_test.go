package version

import (
	"testing"
)

func TestSelectionCutMarksPrefix(t *testing.T) {
	history := []Version{
		historyVersion("v1", 0, true, StatusVisible, `{"a":1}`),
		historyVersion("v2", 1, true, StatusVisible, ""),
		historyVersion("v3", 2, false, StatusPending, ""),
	}
	updated, cut, err := SelectionCut(history, "v3")
	if err != nil {
		t.Fatalf("SelectionCut failed: %v", err)
	}
	if !cut.Equal(history[2].CreatedAt) {
		t.Errorf("cut = %v, want the approved version's timestamp", cut)
	}
	for _, v := range updated {
		if !v.Selected {
			t.Errorf("version %s should be selected after approving the newest", v.ID)
		}
	}
	if updated[2].Status != StatusVisible {
		t.Error("approved version should become visible")
	}
}

func TestSelectionCutDeselectsLaterVersions(t *testing.T) {
	// Approving an older pending version skips everything after it,
	// including previously selected versions.
	history := []Version{
		historyVersion("v1", 0, true, StatusVisible, `{"a":1}`),
		historyVersion("v2", 1, false, StatusPending, ""),
		historyVersion("v3", 2, true, StatusVisible, ""),
		historyVersion("v4", 3, false, StatusPending, ""),
	}
	updated, _, err := SelectionCut(history, "v2")
	if err != nil {
		t.Fatalf("SelectionCut failed: %v", err)
	}
	wantSelected := map[string]bool{"v1": true, "v2": true, "v3": false, "v4": false}
	for _, v := range updated {
		if v.Selected != wantSelected[v.ID] {
			t.Errorf("version %s selected = %v, want %v", v.ID, v.Selected, wantSelected[v.ID])
		}
	}
	if !SelectionIntact(updated) {
		t.Error("cascade must leave a contiguous selection prefix")
	}
}

func TestSelectionCutUnknownVersion(t *testing.T) {
	history := []Version{historyVersion("v1", 0, true, StatusVisible, "")}
	if _, _, err := SelectionCut(history, "nope"); err != ErrVersionNotFound {
		t.Errorf("expected ErrVersionNotFound, got %v", err)
	}
}

func TestSelectionIntact(t *testing.T) {
	good := []Version{
		historyVersion("v1", 0, true, StatusVisible, ""),
		historyVersion("v2", 1, true, StatusVisible, ""),
		historyVersion("v3", 2, false, StatusVisible, ""),
	}
	if !SelectionIntact(good) {
		t.Error("prefix/suffix split should be intact")
	}

	torn := []Version{
		historyVersion("v1", 0, true, StatusVisible, ""),
		historyVersion("v2", 1, false, StatusVisible, ""),
		historyVersion("v3", 2, true, StatusVisible, ""),
	}
	if SelectionIntact(torn) {
		t.Error("selected version after an unselected one should be flagged")
	}
}

func TestSelectionCutIdempotent(t *testing.T) {
	history := []Version{
		historyVersion("v1", 0, true, StatusVisible, ""),
		historyVersion("v2", 1, false, StatusPending, ""),
	}
	once, _, err := SelectionCut(history, "v2")
	if err != nil {
		t.Fatalf("SelectionCut failed: %v", err)
	}
	twice, _, err := SelectionCut(once, "v2")
	if err != nil {
		t.Fatalf("SelectionCut failed: %v", err)
	}
	for i := range once {
		if once[i].Selected != twice[i].Selected || once[i].Status != twice[i].Status {
			t.Errorf("version %s changed on second application", once[i].ID)
		}
	}
}

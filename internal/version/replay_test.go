package version

import (
	"reflect"
	"testing"
	"time"
)

var replayBase = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func historyVersion(id string, minute int, selected bool, status Status, snapshot string, patches ...Patch) Version {
	v := Version{
		ID:         id,
		DocumentID: "doc_1",
		AuthorID:   "usr_1",
		Status:     status,
		Selected:   selected,
		Patches:    patches,
		CreatedAt:  replayBase.Add(time.Duration(minute) * time.Minute),
	}
	if snapshot != "" {
		v.Snapshot = []byte(snapshot)
	}
	return v
}

// The walkthrough scenario: v1 snapshot {"a":1}, v2 replaces a with 2,
// v3 (pending) adds b=3.
func scenarioHistory() []Version {
	return []Version{
		historyVersion("v1", 0, true, StatusVisible, `{"a":1}`),
		historyVersion("v2", 1, true, StatusVisible, "", Patch{Op: OpReplace, Path: "/a", Value: raw(`2`)}),
		historyVersion("v3", 2, false, StatusPending, "", Patch{Op: OpAdd, Path: "/b", Value: raw(`3`)}),
	}
}

func TestEffectiveContentAtSelectedVersion(t *testing.T) {
	content, target, err := EffectiveContent(scenarioHistory(), "v2")
	if err != nil {
		t.Fatalf("EffectiveContent failed: %v", err)
	}
	if target.ID != "v2" {
		t.Errorf("target = %s", target.ID)
	}
	want := map[string]any{"a": float64(2)}
	if !reflect.DeepEqual(content, want) {
		t.Errorf("content = %v, want %v", content, want)
	}
}

func TestEffectiveContentPreviewsPendingVersion(t *testing.T) {
	content, target, err := EffectiveContent(scenarioHistory(), "v3")
	if err != nil {
		t.Fatalf("EffectiveContent failed: %v", err)
	}
	if target.Status != StatusPending {
		t.Errorf("target status = %s", target.Status)
	}
	want := map[string]any{"a": float64(2), "b": float64(3)}
	if !reflect.DeepEqual(content, want) {
		t.Errorf("content = %v, want %v", content, want)
	}
}

func TestEffectiveContentFirstSnapshotIsExact(t *testing.T) {
	content, _, err := EffectiveContent(scenarioHistory(), "v1")
	if err != nil {
		t.Fatalf("EffectiveContent failed: %v", err)
	}
	want := map[string]any{"a": float64(1)}
	if !reflect.DeepEqual(content, want) {
		t.Errorf("content = %v, want %v", content, want)
	}
}

func TestEffectiveContentSkipsUnselectedEarlierVersions(t *testing.T) {
	history := []Version{
		historyVersion("v1", 0, true, StatusVisible, `{"a":1}`),
		historyVersion("v2", 1, false, StatusVisible, "", Patch{Op: OpReplace, Path: "/a", Value: raw(`99`)}),
		historyVersion("v3", 2, true, StatusVisible, "", Patch{Op: OpAdd, Path: "/b", Value: raw(`2`)}),
	}
	content, _, err := EffectiveContent(history, "v3")
	if err != nil {
		t.Fatalf("EffectiveContent failed: %v", err)
	}
	// v2 was skipped during an approval cascade; its patch must not apply.
	want := map[string]any{"a": float64(1), "b": float64(2)}
	if !reflect.DeepEqual(content, want) {
		t.Errorf("content = %v, want %v", content, want)
	}
}

func TestEffectiveContentSnapshotResetsBaseline(t *testing.T) {
	history := []Version{
		historyVersion("v1", 0, true, StatusVisible, `{"a":1,"junk":true}`),
		historyVersion("v2", 1, true, StatusVisible, `{"a":5}`),
		historyVersion("v3", 2, true, StatusVisible, "", Patch{Op: OpAdd, Path: "/b", Value: raw(`6`)}),
	}
	content, _, err := EffectiveContent(history, "v3")
	if err != nil {
		t.Fatalf("EffectiveContent failed: %v", err)
	}
	want := map[string]any{"a": float64(5), "b": float64(6)}
	if !reflect.DeepEqual(content, want) {
		t.Errorf("content = %v, want %v", content, want)
	}
}

func TestEffectiveContentSnapshotWinsAsBaselineOverOwnPatches(t *testing.T) {
	// A version carrying both: the snapshot is the baseline and the
	// version's own patches apply on top of it.
	history := []Version{
		historyVersion("v1", 0, true, StatusVisible, `{"a":1}`),
		historyVersion("v2", 1, true, StatusVisible, `{"x":1}`, Patch{Op: OpAdd, Path: "/y", Value: raw(`2`)}),
	}
	content, _, err := EffectiveContent(history, "v2")
	if err != nil {
		t.Fatalf("EffectiveContent failed: %v", err)
	}
	want := map[string]any{"x": float64(1), "y": float64(2)}
	if !reflect.DeepEqual(content, want) {
		t.Errorf("content = %v, want %v", content, want)
	}
}

func TestEffectiveContentDeterministic(t *testing.T) {
	history := scenarioHistory()
	first, _, err := EffectiveContent(history, "v3")
	if err != nil {
		t.Fatalf("EffectiveContent failed: %v", err)
	}
	second, _, err := EffectiveContent(history, "v3")
	if err != nil {
		t.Fatalf("EffectiveContent failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("repeated reconstruction should be identical")
	}
}

func TestEffectiveContentUnknownTarget(t *testing.T) {
	if _, _, err := EffectiveContent(scenarioHistory(), "v9"); err != ErrVersionNotFound {
		t.Errorf("expected ErrVersionNotFound, got %v", err)
	}
}

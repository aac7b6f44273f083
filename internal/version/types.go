// Package version implements the document version history core: semantic
// triples, the patch/snapshot content representation, chronological replay
// into effective content, the selection cascade, and structural diffs.
package version

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Tier string

const (
	TierMajor Tier = "major"
	TierMinor Tier = "minor"
	TierPatch Tier = "patch"
)

func ValidTier(tier string) bool {
	switch Tier(tier) {
	case TierMajor, TierMinor, TierPatch:
		return true
	default:
		return false
	}
}

type Status string

const (
	StatusPending Status = "pending"
	StatusVisible Status = "visible"
)

// Triple is a semantic version number.
type Triple struct {
	Major int `json:"major"`
	Minor int `json:"minor"`
	Patch int `json:"patch"`
}

// Encoded collapses the triple into a single comparable value. Minor and
// patch each get three decimal digits, so 1.2.3 encodes as 1002003.
func (t Triple) Encoded() int64 {
	return int64(t.Major)*1_000_000 + int64(t.Minor)*1_000 + int64(t.Patch)
}

func (t Triple) String() string {
	return fmt.Sprintf("%d.%d.%d", t.Major, t.Minor, t.Patch)
}

// ParseTriple parses "1.2.0" into a Triple.
func ParseTriple(value string) (Triple, error) {
	parts := strings.Split(strings.TrimSpace(value), ".")
	if len(parts) != 3 {
		return Triple{}, fmt.Errorf("invalid version %q: want major.minor.patch", value)
	}
	numbers := make([]int, 3)
	for i, part := range parts {
		parsed, err := strconv.Atoi(part)
		if err != nil || parsed < 0 {
			return Triple{}, fmt.Errorf("invalid version %q: segment %q", value, part)
		}
		numbers[i] = parsed
	}
	// Minor and patch get three decimal digits in Encoded; anything larger
	// would collide with the next component.
	if numbers[1] >= 1000 || numbers[2] >= 1000 {
		return Triple{}, fmt.Errorf("invalid version %q: minor and patch must be below 1000", value)
	}
	return Triple{Major: numbers[0], Minor: numbers[1], Patch: numbers[2]}, nil
}

// Version is one entry in a document's linear history. Content is carried
// either as a full snapshot (baseline reset) or as an ordered patch set;
// a metadata-only version carries neither.
type Version struct {
	ID          string
	DocumentID  string
	AuthorID    string
	Triple      Triple
	Tier        Tier
	Description string
	Status      Status
	Selected    bool
	Released    bool
	Snapshot    json.RawMessage
	Patches     []Patch
	CreatedAt   time.Time
}

// HasSnapshot reports whether the version resets the replay baseline.
func (v Version) HasSnapshot() bool {
	return len(v.Snapshot) > 0 && string(v.Snapshot) != "null"
}

// ValidateSnapshot checks that a snapshot, when present, is a JSON object.
// Replay uses snapshots as object baselines; any other value would fail
// every later reconstruction through the version.
func ValidateSnapshot(raw json.RawMessage) error {
	if len(raw) == 0 {
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return errors.New("fullSnapshot must be a JSON object")
	}
	return nil
}

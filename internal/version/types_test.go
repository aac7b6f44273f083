package version

import "testing"

func TestTripleEncoded(t *testing.T) {
	cases := []struct {
		triple Triple
		want   int64
	}{
		{Triple{0, 0, 0}, 0},
		{Triple{0, 9, 0}, 9000},
		{Triple{1, 0, 0}, 1000000},
		{Triple{1, 2, 3}, 1002003},
		{Triple{2, 0, 1}, 2000001},
	}
	for _, tc := range cases {
		if got := tc.triple.Encoded(); got != tc.want {
			t.Errorf("%s: encoded = %d, want %d", tc.triple, got, tc.want)
		}
	}
}

func TestTripleOrdering(t *testing.T) {
	// 0.9.0 is below 1.0.0 under the encoding, the case the monotonic
	// check must reject.
	if (Triple{0, 9, 0}).Encoded() >= (Triple{1, 0, 0}).Encoded() {
		t.Error("0.9.0 should encode below 1.0.0")
	}
	if (Triple{1, 1, 0}).Encoded() <= (Triple{1, 0, 9}).Encoded() {
		t.Error("1.1.0 should encode above 1.0.9")
	}
}

func TestParseTriple(t *testing.T) {
	triple, err := ParseTriple("1.2.3")
	if err != nil {
		t.Fatalf("ParseTriple failed: %v", err)
	}
	if triple != (Triple{1, 2, 3}) {
		t.Errorf("got %v", triple)
	}

	for _, bad := range []string{"", "1.2", "1.2.3.4", "a.b.c", "1.-2.3"} {
		if _, err := ParseTriple(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestParseTripleBoundsMinorAndPatch(t *testing.T) {
	// Three decimal digits each in Encoded; 0.1001.0 would otherwise
	// encode above 1.0.0.
	for _, bad := range []string{"0.1001.0", "1.0.1000", "2.1000.1000"} {
		if _, err := ParseTriple(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
	if _, err := ParseTriple("3.999.999"); err != nil {
		t.Errorf("3.999.999 should parse: %v", err)
	}
}

func TestValidTier(t *testing.T) {
	for _, tier := range []string{"major", "minor", "patch"} {
		if !ValidTier(tier) {
			t.Errorf("%q should be a valid tier", tier)
		}
	}
	if ValidTier("hotfix") {
		t.Error("hotfix is not a tier")
	}
}

func TestHasSnapshot(t *testing.T) {
	if (Version{}).HasSnapshot() {
		t.Error("empty version should have no snapshot")
	}
	if (Version{Snapshot: []byte("null")}).HasSnapshot() {
		t.Error("json null is not a snapshot")
	}
	if !(Version{Snapshot: []byte(`{"a":1}`)}).HasSnapshot() {
		t.Error("object snapshot should count")
	}
}

func TestValidateSnapshot(t *testing.T) {
	for _, good := range []string{"", "null", `{}`, `{"a":1,"b":{"c":2}}`} {
		if err := ValidateSnapshot([]byte(good)); err != nil {
			t.Errorf("ValidateSnapshot(%q) = %v, want nil", good, err)
		}
	}
	for _, bad := range []string{`[1,2,3]`, `5`, `"text"`, `true`, `{`} {
		if err := ValidateSnapshot([]byte(bad)); err == nil {
			t.Errorf("ValidateSnapshot(%q) should fail", bad)
		}
	}
}

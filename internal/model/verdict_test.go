package model

import (
	"encoding/json"
	"testing"
)

// TestVerdictString tests the String method of Verdict.
func TestVerdictString(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		verdict  Verdict
		expected string
	}{
		{VerdictSafe, "safe"},
		{VerdictSuspicious, "suspicious"},
		{VerdictMalicious, "malicious"},
		{Verdict(999), "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			t.Parallel()
			if tc.verdict.String() != tc.expected {
				t.Errorf("got %q, expected %q", tc.verdict.String(), tc.expected)
			}
		})
	}
}

// TestVerdictFor tests the score to verdict mapping, including exact boundaries.
func TestVerdictFor(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		score    int
		expected Verdict
	}{
		{0, VerdictSafe},
		{15, VerdictSafe},
		{29, VerdictSafe},
		{30, VerdictSuspicious},
		{50, VerdictSuspicious},
		{69, VerdictSuspicious},
		{70, VerdictMalicious},
		{100, VerdictMalicious},
	}

	for _, tc := range testCases {
		if got := VerdictFor(tc.score); got != tc.expected {
			t.Errorf("VerdictFor(%d) = %v, expected %v", tc.score, got, tc.expected)
		}
	}
}

// TestVerdictOrdering tests that verdicts are ordered from safe to malicious.
func TestVerdictOrdering(t *testing.T) {
	t.Parallel()

	if !(VerdictSafe < VerdictSuspicious && VerdictSuspicious < VerdictMalicious) {
		t.Error("expected safe < suspicious < malicious")
	}
}

// TestVerdictJSON tests that verdicts serialize as lowercase strings.
func TestVerdictJSON(t *testing.T) {
	t.Parallel()

	t.Run("marshals as string", func(t *testing.T) {
		t.Parallel()

		data, err := json.Marshal(struct {
			V Verdict `json:"v"`
		}{V: VerdictSuspicious})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(data) != `{"v":"suspicious"}` {
			t.Errorf("unexpected JSON: %s", data)
		}
	})

	t.Run("unmarshals from string", func(t *testing.T) {
		t.Parallel()

		var out struct {
			V Verdict `json:"v"`
		}
		if err := json.Unmarshal([]byte(`{"v":"malicious"}`), &out); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.V != VerdictMalicious {
			t.Errorf("expected malicious, got %v", out.V)
		}
	})

	t.Run("rejects unknown name", func(t *testing.T) {
		t.Parallel()

		var out struct {
			V Verdict `json:"v"`
		}
		if err := json.Unmarshal([]byte(`{"v":"harmless"}`), &out); err == nil {
			t.Error("expected error for unknown verdict")
		}
	})

	t.Run("rejects out of range value", func(t *testing.T) {
		t.Parallel()

		if _, err := Verdict(7).MarshalText(); err == nil {
			t.Error("expected error for invalid verdict")
		}
	})
}

// TestGetVerdictInfo tests that every verdict has guidance.
func TestGetVerdictInfo(t *testing.T) {
	t.Parallel()

	for _, v := range []Verdict{VerdictSafe, VerdictSuspicious, VerdictMalicious} {
		info := GetVerdictInfo(v)
		if info.Verdict != v {
			t.Errorf("expected info for %v, got %v", v, info.Verdict)
		}
		if info.Summary == "" || info.Recommendation == "" {
			t.Errorf("expected summary and recommendation for %v", v)
		}
	}

	if GetVerdictInfo(Verdict(42)).Verdict != VerdictMalicious {
		t.Error("expected unknown verdict to fall back to malicious guidance")
	}
}

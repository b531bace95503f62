package plan

import (
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBuildFixture(t *testing.T) {
	b, err := os.ReadFile("../../testdata/plans/plan_full.txt")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	ts := Build(string(b))

	for _, key := range []string{"-30c", "55c", "-40c", "256qam", "frequency", "stability", "24h"} {
		if !ts.Has(key) {
			t.Errorf("Has(%q) = false, want true", key)
		}
	}
	if ts.Has("40c") {
		t.Error("Has(\"40c\") = true; the sign must be part of the key")
	}
}

func TestBuildEmpty(t *testing.T) {
	ts := Build("")
	if ts.Len() != 0 {
		t.Errorf("Len() = %d, want 0", ts.Len())
	}
	if ts.Contains("anything") {
		t.Error("empty plan should contain nothing")
	}
	if len(ts.WordKeys()) != 0 {
		t.Errorf("WordKeys() = %v, want empty", ts.WordKeys())
	}
}

func TestHasRaw(t *testing.T) {
	ts := Build("We will test 256QAM modulation")
	if !ts.HasRaw("256qam") {
		t.Error("HasRaw(256qam) = false, want true")
	}
	if ts.HasRaw("256-QAM") {
		t.Error("HasRaw(256-QAM) = true; raw matching must not normalize")
	}
}

func TestContains(t *testing.T) {
	ts := Build("Frequency stabilty test included")
	if !ts.Contains("FREQUENCY") {
		t.Error("Contains is case-insensitive")
	}
	if ts.Contains("  ") {
		t.Error("blank needle must not match")
	}
}

func TestHasNumber(t *testing.T) {
	ts := Build("Soak at -40C for 24.0 h")
	for _, n := range []string{"-40", "24"} {
		if !ts.HasNumber(n) {
			t.Errorf("HasNumber(%q) = false, want true", n)
		}
	}
	if ts.HasNumber("40") {
		t.Error("HasNumber(40) = true, want false")
	}
}

func TestWordKeysExcludeNumbers(t *testing.T) {
	ts := Build("test 256QAM at -30C modulation")
	want := []string{"at", "modulation", "test"}
	if diff := cmp.Diff(want, ts.WordKeys()); diff != "" {
		t.Errorf("WordKeys mismatch (-want +got):\n%s", diff)
	}
}

func TestLineSequences(t *testing.T) {
	ts := Build("Frequency stabilty test included.\n\n-40C only\nTest test again")
	want := []string{"frequency stabilty test included", "only", "test again"}
	if diff := cmp.Diff(want, ts.LineSequences()); diff != "" {
		t.Errorf("LineSequences mismatch (-want +got):\n%s", diff)
	}
}

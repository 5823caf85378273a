package internaldefs

import (
	"strconv"
	"strings"
	"testing"
)

func TestCounterDefsUniqueAndPrefixed(t *testing.T) {
	seenNames := map[string]bool{}
	seenIDs := map[uint16]bool{}
	for _, def := range CounterDefs {
		if !strings.HasPrefix(def.Name, "gosession_") || !strings.HasSuffix(def.Name, "_total") {
			t.Fatalf("bad counter name %q", def.Name)
		}
		if seenNames[def.Name] || seenIDs[uint16(def.ID)] {
			t.Fatalf("duplicate counter %q", def.Name)
		}
		seenNames[def.Name] = true
		seenIDs[uint16(def.ID)] = true
	}
	if len(HistogramUpperBounds)+1 != len(HistogramBucketLabels) {
		t.Fatal("bucket bounds and labels disagree")
	}
	for i, bound := range HistogramUpperBounds {
		if got := strconv.FormatFloat(bound, 'g', -1, 64); got != HistogramBucketLabels[i] {
			t.Fatalf("bucket %d label %q, want %q", i, HistogramBucketLabels[i], got)
		}
	}
}

func TestCumulativeBuckets(t *testing.T) {
	got := CumulativeBuckets(NormalizeBuckets([]uint64{1, 2, 3}))
	want := [8]uint64{1, 3, 6, 6, 6, 6, 6, 6}
	if got != want {
		t.Fatalf("CumulativeBuckets = %v, want %v", got, want)
	}
}

package l2ground

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/banshee-data/treeseg/internal/forest/l1points"
)

func TestDefaultHeightThresholdClassifier(t *testing.T) {
	c := DefaultHeightThresholdClassifier()
	if c.ThresholdM != 0.5 {
		t.Errorf("Expected ThresholdM=0.5, got %f", c.ThresholdM)
	}
	_, _, minZ := c.Stats()
	if !math.IsNaN(minZ) {
		t.Errorf("Expected NaN minZ before first run, got %f", minZ)
	}
}

func TestClassify_EmptyStore(t *testing.T) {
	c := DefaultHeightThresholdClassifier()
	if got := c.Classify(l1points.NewPointStore(nil)); got != 0 {
		t.Errorf("Expected 0 ground points for empty store, got %d", got)
	}
	proc, ground, _ := c.Stats()
	if proc != 0 || ground != 0 {
		t.Errorf("Stats after empty run: processed=%d ground=%d", proc, ground)
	}
}

func TestClassify_ThresholdRelativeToMinimum(t *testing.T) {
	c := NewHeightThresholdClassifier(0.5)
	store := l1points.FromXYZ(
		0, 0, 100.0, // minimum
		1, 0, 100.3, // inside band
		2, 0, 100.5, // exactly at limit: ground
		3, 0, 100.51, // just above
		4, 0, 107.0, // canopy
	)

	got := c.Classify(store)
	if got != 3 {
		t.Fatalf("Expected 3 ground points, got %d", got)
	}

	want := []bool{true, true, true, false, false}
	for i, w := range want {
		if store.At(i).IsGround != w {
			t.Errorf("Point %d: expected IsGround=%v", i, w)
		}
	}
}

// Every point satisfies isGround == (z <= minZ + threshold), whatever the
// order of the input.
func TestClassify_PropertyHoldsForAllPoints(t *testing.T) {
	thresholds := []float64{0, 0.25, 0.5, 2}
	zs := []float64{3.2, -1.0, 0.7, -0.6, -0.5, 12.0, -1.0, 1.5, -0.75}

	for _, th := range thresholds {
		xyz := make([]float64, 0, 3*len(zs))
		minZ := math.Inf(1)
		for i, z := range zs {
			xyz = append(xyz, float64(i), float64(i), z)
			minZ = math.Min(minZ, z)
		}
		store := l1points.FromXYZ(xyz...)
		NewHeightThresholdClassifier(th).Classify(store)

		for i := 0; i < store.Len(); i++ {
			p := store.At(i)
			if p.IsGround != (p.Z() <= minZ+th) {
				t.Errorf("threshold %.2f point %d (z=%.2f): IsGround=%v", th, i, p.Z(), p.IsGround)
			}
		}
	}
}

func TestClassify_ReclassifiesOnRerun(t *testing.T) {
	store := l1points.FromXYZ(0, 0, 0, 1, 1, 3)
	NewHeightThresholdClassifier(5).Classify(store)
	if store.GroundCount() != 2 {
		t.Fatalf("Expected both points ground with a 5 m band")
	}

	NewHeightThresholdClassifier(0.5).Classify(store)
	if store.GroundCount() != 1 {
		t.Errorf("Expected flags to be rewritten, got %d ground", store.GroundCount())
	}
}

func TestClassify_StatsAccumulateAndReset(t *testing.T) {
	c := NewHeightThresholdClassifier(0.5)
	c.Classify(l1points.FromXYZ(0, 0, 1, 0, 0, 5))
	c.Classify(l1points.FromXYZ(0, 0, 2, 0, 0, 2.2, 0, 0, 9))

	proc, ground, minZ := c.Stats()
	if proc != 5 || ground != 3 {
		t.Errorf("Expected processed=5 ground=3, got %d %d", proc, ground)
	}
	if minZ != 2 {
		t.Errorf("Expected last minZ=2, got %f", minZ)
	}

	c.ResetStats()
	proc, ground, minZ = c.Stats()
	if proc != 0 || ground != 0 || !math.IsNaN(minZ) {
		t.Errorf("After reset: processed=%d ground=%d minZ=%f", proc, ground, minZ)
	}
}

func TestClassify_DiagLogging(t *testing.T) {
	var buf bytes.Buffer
	SetLogWriters(nil, &buf, nil)
	defer SetLogWriters(nil, nil, nil)

	DefaultHeightThresholdClassifier().Classify(l1points.FromXYZ(0, 0, 0, 0, 0, 4))

	out := buf.String()
	if !strings.Contains(out, "[l2ground]") || !strings.Contains(out, "ground points: 1 of 2") {
		t.Errorf("unexpected diag output %q", out)
	}
}

package layout

import (
	"math"
	"testing"

	"atlas/pkg/common"
)

func TestNodeSizeBounds(t *testing.T) {
	if got := NodeSize(0, 0); got != minNodeSize {
		t.Errorf("NodeSize(0, 0) = %v, want %v", got, minNodeSize)
	}
	if got := NodeSize(1000, 1000); got != maxNodeSize {
		t.Errorf("NodeSize(1000, 1000) = %v, want %v", got, maxNodeSize)
	}
}

func TestNodeSizeMonotone(t *testing.T) {
	if NodeSize(2, 0) <= NodeSize(1, 0) {
		t.Error("NodeSize not monotone in degree")
	}
	if NodeSize(0, 2) <= NodeSize(0, 1) {
		t.Error("NodeSize not monotone in frequency")
	}
}

func TestLinkWidthBounds(t *testing.T) {
	if got := LinkWidth(0); got != minLinkWidth {
		t.Errorf("LinkWidth(0) = %v, want %v", got, minLinkWidth)
	}
	if got := LinkWidth(1000); got != maxLinkWidth {
		t.Errorf("LinkWidth(1000) = %v, want %v", got, maxLinkWidth)
	}
	if LinkWidth(2) <= LinkWidth(1) {
		t.Error("LinkWidth not monotone in weight")
	}
}

func TestNormalizeScores(t *testing.T) {
	got := normalizeScores([]float64{10, 20, 30})
	want := []float64{0, 0.5, 1}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Errorf("normalizeScores[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestNormalizeScoresDegenerate(t *testing.T) {
	for _, got := range normalizeScores([]float64{7, 7, 7}) {
		if got != 0.5 {
			t.Errorf("degenerate normalization = %v, want 0.5", got)
		}
	}
	if normalizeScores(nil) != nil {
		t.Error("normalizeScores(nil) should be nil")
	}
}

func TestTargetRadiusInverse(t *testing.T) {
	cfg := DefaultConfig()

	central := targetRadius(1, 0, cfg)
	peripheral := targetRadius(0, 0, cfg)

	if math.Abs(central-0.1*cfg.Spread) > 1e-9 {
		t.Errorf("radius at normalized 1 = %v, want %v", central, 0.1*cfg.Spread)
	}
	if math.Abs(peripheral-cfg.Spread) > 1e-9 {
		t.Errorf("radius at normalized 0 = %v, want %v", peripheral, cfg.Spread)
	}
	if central >= peripheral {
		t.Error("radius mapping is not inverse in abstraction")
	}
}

func TestTargetRadiusLevelOffset(t *testing.T) {
	cfg := DefaultConfig()
	shallow := targetRadius(0.5, 0, cfg)
	deep := targetRadius(0.5, 2, cfg)

	wantOffset := 2 * cfg.LevelSpacing * 0.3
	if math.Abs((deep-shallow)-wantOffset) > 1e-9 {
		t.Errorf("level offset = %v, want %v", deep-shallow, wantOffset)
	}
}

func TestSpherePointOnUnitSphere(t *testing.T) {
	n := 100
	for i := 0; i < n; i++ {
		p := spherePoint(i, n)
		r := math.Sqrt(p.LengthSq())
		if math.Abs(r-1) > 1e-9 {
			t.Fatalf("spherePoint(%d, %d) has radius %v", i, n, r)
		}
	}
}

func TestSpherePointSingle(t *testing.T) {
	if got := spherePoint(0, 1); got != (common.Vec3{X: 0, Y: 1, Z: 0}) {
		t.Errorf("spherePoint(0, 1) = %v", got)
	}
}

func TestAbstractionScore(t *testing.T) {
	e := common.Entity{Degree: 4, Frequency: 6}
	if got := abstractionScore(e); got != 7 {
		t.Errorf("abstractionScore = %v, want 7", got)
	}
}

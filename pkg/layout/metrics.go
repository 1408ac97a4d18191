package layout

import (
	"math"

	"atlas/pkg/common"
)

const (
	// Render size bounds for nodes and links.
	minNodeSize  = 2.0
	maxNodeSize  = 10.0
	minLinkWidth = 0.5
	maxLinkWidth = 4.0

	// Weights of the abstraction score. Degree dominates, frequency refines.
	abstractionFrequencyWeight = 0.5
)

// goldenAngle is pi * (3 - sqrt(5)), the rotation step of the Fibonacci
// sphere spiral.
var goldenAngle = math.Pi * (3 - math.Sqrt(5))

// abstractionScore is the topical-centrality proxy that drives radial
// placement: degree + 0.5*frequency.
func abstractionScore(e common.Entity) float64 {
	return float64(e.Degree) + abstractionFrequencyWeight*float64(e.Frequency)
}

// normalizeScores maps raw abstraction scores to [0,1], 1 being the most
// central entity. When every entity scores the same there is nothing to
// rank, so all of them land in the middle of the range.
func normalizeScores(scores []float64) []float64 {
	if len(scores) == 0 {
		return nil
	}
	lo, hi := scores[0], scores[0]
	for _, s := range scores[1:] {
		lo = math.Min(lo, s)
		hi = math.Max(hi, s)
	}
	out := make([]float64, len(scores))
	if hi == lo {
		for i := range out {
			out[i] = 0.5
		}
		return out
	}
	for i, s := range scores {
		out[i] = (s - lo) / (hi - lo)
	}
	return out
}

// targetRadius maps a normalized abstraction score to a distance from the
// origin. High abstraction means a small radius near the center; the range
// is [0.1*spread, spread]. Community depth pushes nodes outward by a
// fraction of the level spacing.
func targetRadius(normalized float64, level int, cfg Config) float64 {
	base := cfg.Spread * (0.1 + 0.9*(1-normalized))
	return base + float64(level)*cfg.LevelSpacing*0.3
}

// spherePoint returns the i-th of n points on the unit sphere following the
// golden-angle spiral. The spiral distributes points evenly without visible
// clustering at the poles.
func spherePoint(i, n int) common.Vec3 {
	if n <= 1 {
		return common.Vec3{X: 0, Y: 1, Z: 0}
	}
	y := 1 - 2*(float64(i)+0.5)/float64(n)
	ring := math.Sqrt(math.Max(0, 1-y*y))
	theta := goldenAngle * float64(i)
	return common.Vec3{
		X: math.Cos(theta) * ring,
		Y: y,
		Z: math.Sin(theta) * ring,
	}
}

// NodeSize derives the render size of an entity from its degree and
// frequency, clamped to the fixed bounds. Size is monotone in both inputs
// and equals the minimum for an isolated, never-mentioned entity.
func NodeSize(degree, frequency int) float64 {
	size := minNodeSize + 0.4*float64(degree) + 0.2*float64(frequency)
	return math.Min(math.Max(size, minNodeSize), maxNodeSize)
}

// LinkWidth derives the render thickness of a link from its weight, clamped
// to the fixed bounds. Width is monotone in weight and equals the minimum
// for weight 0.
func LinkWidth(weight float64) float64 {
	width := minLinkWidth + 0.3*weight
	return math.Min(math.Max(width, minLinkWidth), maxLinkWidth)
}

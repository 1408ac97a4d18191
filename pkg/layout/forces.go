package layout

import (
	"math"

	"golang.org/x/sync/errgroup"

	"atlas/pkg/common"
)

const (
	// Floor for the effective charge so very high-degree hubs never stop
	// repelling entirely.
	minCharge = 1.0

	// Link weight shapes both the target distance and the spring strength
	// through the same saturation factor.
	linkWeightFactor = 0.05

	// Node count below which the pairwise pass is not worth fanning out.
	parallelThreshold = 64

	distanceEpsilon = 1e-6
)

// setupForces rebuilds all force state derived from node data and the
// current configuration: target radii and community centers.
func (e *Engine) setupForces() {
	e.recomputeRadii()
	e.computeCenters()
}

func (e *Engine) recomputeRadii() {
	for i, n := range e.nodes {
		e.sim[i].targetRadius = targetRadius(e.sim[i].normalized, n.CommunityLevel, e.cfg)
	}
}

// computeCenters places each community's attraction center on the same
// golden-angle spiral as the nodes, indexed by community ordinal, at the
// radius the community's mean member abstraction maps to. Communities with
// no resolved members get no center.
func (e *Engine) computeCenters() {
	sums := make(map[string]float64, len(e.communities))
	counts := make(map[string]int, len(e.communities))
	for i, n := range e.nodes {
		if n.Community == nil {
			continue
		}
		sums[n.Community.ID] += e.sim[i].normalized
		counts[n.Community.ID]++
	}

	e.centers = make(map[string]common.Vec3, len(e.communities))
	for ordinal, community := range e.communities {
		count := counts[community.ID]
		if count == 0 {
			continue
		}
		mean := sums[community.ID] / float64(count)
		radius := targetRadius(mean, community.Level, e.cfg)
		e.centers[community.ID] = spherePoint(ordinal, len(e.communities)).Scale(radius)
	}
}

// applyForces runs one tick of force composition: pairwise repulsion and
// collision, link springs, global centering, community attraction, and the
// spherical radial constraint.
func (e *Engine) applyForces(alpha float64) {
	e.pairwisePass(alpha)
	e.applyLinkForces(alpha)

	for i, n := range e.nodes {
		// Weak global centering against unbounded drift.
		n.Velocity = n.Velocity.Sub(n.Position.Scale(e.cfg.CenterStrength * alpha))

		// Pull toward the precomputed community center.
		if n.Community != nil {
			if center, ok := e.centers[n.Community.ID]; ok {
				pull := center.Sub(n.Position).Scale(e.cfg.CommunityStrength * alpha)
				n.Velocity = n.Velocity.Add(pull)
			}
		}

		// Radial correction toward the abstraction-derived target radius.
		// This is what keeps the radius ordering visible through the local
		// force noise.
		dist := math.Sqrt(n.Position.LengthSq())
		if dist > distanceEpsilon {
			diff := e.sim[i].targetRadius - dist
			correction := n.Position.Scale(diff / dist * e.cfg.SphericalConstraint * alpha)
			n.Velocity = n.Velocity.Add(correction)
		}
	}
}

// pairwisePass accumulates repulsion and collision forces. Each worker owns
// a disjoint range of target nodes and scans all others, so the result is
// identical to the sequential pass regardless of worker count.
func (e *Engine) pairwisePass(alpha float64) {
	total := len(e.nodes)
	if total < 2 {
		return
	}

	forces := make([]common.Vec3, total)
	compute := func(start, end int) {
		for i := start; i < end; i++ {
			ni := e.nodes[i]
			charge := e.cfg.Repulsion - 5*float64(ni.Degree)
			if charge < minCharge {
				charge = minCharge
			}

			var force common.Vec3
			for j := 0; j < total; j++ {
				if j == i {
					continue
				}
				nj := e.nodes[j]
				delta := ni.Position.Sub(nj.Position)
				distSq := delta.LengthSq()
				if distSq < distanceEpsilon {
					distSq = distanceEpsilon
				}
				force = force.Add(delta.Scale(charge * alpha / distSq))

				minDist := (e.cfg.CollisionRadius + ni.Size) + (e.cfg.CollisionRadius + nj.Size)
				dist := math.Sqrt(distSq)
				if dist < minDist {
					overlap := (minDist - dist) / dist
					force = force.Add(delta.Scale(0.5 * overlap))
				}
			}
			forces[i] = force
		}
	}

	if e.parallel <= 1 || total < parallelThreshold {
		compute(0, total)
	} else {
		var eg errgroup.Group
		chunk := (total + e.parallel - 1) / e.parallel
		for start := 0; start < total; start += chunk {
			start := start
			end := min(start+chunk, total)
			eg.Go(func() error {
				compute(start, end)
				return nil
			})
		}
		_ = eg.Wait()
	}

	for i, n := range e.nodes {
		n.Velocity = n.Velocity.Add(forces[i])
	}
}

// applyLinkForces moves linked nodes toward their weight-derived target
// distance. Both the distance and the strength saturate for heavy links.
func (e *Engine) applyLinkForces(alpha float64) {
	for _, link := range e.links {
		delta := link.Target.Position.Sub(link.Source.Position)
		dist := math.Sqrt(delta.LengthSq())
		if dist < distanceEpsilon {
			continue
		}

		desired := e.cfg.LinkDistance / (1 + linkWeightFactor*link.Weight)
		strength := math.Min(linkWeightFactor*link.Weight, e.cfg.MaxLinkStrength)
		adjust := (dist - desired) / dist * strength * alpha * 0.5

		shift := delta.Scale(adjust)
		link.Source.Velocity = link.Source.Velocity.Add(shift)
		link.Target.Velocity = link.Target.Velocity.Sub(shift)
	}
}

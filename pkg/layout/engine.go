package layout

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync"
	"time"

	"atlas/pkg/common"
	"atlas/pkg/hierarchy"
	"atlas/pkg/logger"
)

const (
	// Convergence bounds. The simulation stops at the tick cap or once the
	// kinetic-energy scalar has decayed below the epsilon, whichever comes
	// first.
	maxTicks   = 500
	alphaInit  = 1.0
	alphaDecay = 0.03
	alphaMin   = 0.001

	// Energy bumps applied on reconfiguration so the layout re-settles
	// instead of restarting.
	reheatAlpha   = 0.1
	fallbackAlpha = 0.05

	// Per-tick velocity damping.
	velocityDamping = 0.85

	// Seed positions are scattered by up to ±10% of the target radius to
	// break the spiral lattice.
	seedJitter = 0.1
)

// ErrEngineStopped is returned by Run after Stop has been called.
var ErrEngineStopped = errors.New("layout engine is stopped")

// ErrRunInFlight is returned by Run while another run owns the node set.
var ErrRunInFlight = errors.New("layout run already in flight")

// simState is the per-node simulation state that never leaves the engine.
type simState struct {
	normalized   float64
	targetRadius float64
}

// Engine owns the node and link arrays of a single layout computation and
// drives the force simulation to convergence. All internal maps are instance
// state; a new layout request must construct a new Engine rather than reuse
// a live one.
type Engine struct {
	mu sync.Mutex

	cfg         Config
	graphID     string
	nodes       []*common.Node3D
	links       []*common.Link3D
	communities []*common.Community

	sim     []simState
	centers map[string]common.Vec3

	rng      *rand.Rand
	parallel int

	alpha   float64
	ticks   int
	running bool
	stopped bool
}

// NewEngineParams configures a layout engine.
//
// Config overrides the default tuning parameters when non-nil. Seed fixes
// the jitter source for reproducible tests; 0 seeds from the clock.
// Parallel bounds the worker count of the pairwise force passes; values
// below 1 disable parallelism. InitialPositions seeds nodes from a previous
// layout instead of the spiral, which is how a re-layout after a config
// change keeps its shape.
type NewEngineParams struct {
	Config           *Config
	Seed             int64
	Parallel         int
	InitialPositions map[string]common.Vec3
}

// NewEngine builds the node and link arrays for the given graph model and
// prepares the force simulation. Relationships with unresolved endpoints are
// dropped with a warning; they are never fatal.
func NewEngine(model *common.GraphModel, params NewEngineParams) (*Engine, error) {
	if model == nil {
		return nil, errors.New("graph model is required")
	}

	cfg := DefaultConfig()
	if params.Config != nil {
		cfg = *params.Config
	}

	seed := params.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	parallel := params.Parallel
	if parallel < 1 {
		parallel = 1
	}

	e := &Engine{
		cfg:      cfg,
		graphID:  model.ID,
		rng:      rand.New(rand.NewSource(seed)),
		parallel: parallel,
		alpha:    alphaInit,
	}

	// The engine owns its community instances; the caller's model is never
	// mutated.
	e.communities = make([]*common.Community, len(model.Communities))
	for i := range model.Communities {
		c := model.Communities[i]
		e.communities[i] = &c
	}

	e.buildNodes(model, params.InitialPositions)
	e.buildLinks(model)
	e.setupForces()

	return e, nil
}

// buildNodes resolves community membership, computes abstraction scores and
// target radii, and seeds the initial positions on the golden-angle spiral.
func (e *Engine) buildNodes(model *common.GraphModel, initial map[string]common.Vec3) {
	// Reverse lookup from entity id to owning community. An entity listed by
	// several communities keeps the last one seen.
	owner := make(map[string]*common.Community)
	for _, community := range e.communities {
		for _, entityID := range community.EntityIDs {
			owner[entityID] = community
		}
	}

	scores := make([]float64, len(model.Entities))
	for i, entity := range model.Entities {
		scores[i] = abstractionScore(entity)
	}
	normalized := normalizeScores(scores)

	e.nodes = make([]*common.Node3D, len(model.Entities))
	e.sim = make([]simState, len(model.Entities))
	for i, entity := range model.Entities {
		node := &common.Node3D{
			Entity: entity,
			Size:   NodeSize(entity.Degree, entity.Frequency),
		}
		if community, ok := owner[entity.ID]; ok {
			node.Community = community
			node.CommunityLevel = community.Level
		}

		radius := targetRadius(normalized[i], node.CommunityLevel, e.cfg)
		e.sim[i] = simState{normalized: normalized[i], targetRadius: radius}

		if pos, ok := initial[entity.ID]; ok {
			node.Position = pos
		} else {
			scatter := radius * (1 + seedJitter*(2*e.rng.Float64()-1))
			node.Position = spherePoint(i, len(model.Entities)).Scale(scatter)
		}
		e.nodes[i] = node
	}
}

// buildLinks resolves relationship endpoints against the node set. Dangling
// relationships are skipped.
func (e *Engine) buildLinks(model *common.GraphModel) {
	byID := make(map[string]*common.Node3D, len(e.nodes))
	for _, n := range e.nodes {
		byID[n.ID] = n
	}

	e.links = make([]*common.Link3D, 0, len(model.Relationships))
	for _, rel := range model.Relationships {
		source, target := byID[rel.Source], byID[rel.Target]
		if source == nil || target == nil {
			logger.Warn(
				"[Layout] Dropping relationship with unresolved endpoint",
				"relationship_id", rel.ID,
				"source", rel.Source,
				"target", rel.Target,
			)
			continue
		}
		e.links = append(e.links, &common.Link3D{
			ID:          rel.ID,
			Source:      source,
			Target:      target,
			SourceID:    source.ID,
			TargetID:    target.ID,
			Weight:      rel.Weight,
			Description: rel.Description,
			Thickness:   LinkWidth(rel.Weight),
		})
	}
}

// Run drives the simulation until convergence and returns the finished
// layout with hierarchy annotations. The context is checked between ticks;
// configuration updates also apply between ticks only.
func (e *Engine) Run(ctx context.Context) (*common.GraphLayout, error) {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return nil, ErrEngineStopped
	}
	if e.running {
		e.mu.Unlock()
		return nil, ErrRunInFlight
	}
	e.running = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		e.mu.Lock()
		stepped := e.step()
		e.mu.Unlock()
		if !stepped {
			break
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// Freeze positions before handing them to the resolver.
	for _, n := range e.nodes {
		n.Velocity = common.Vec3{}
	}
	hierarchy.Resolve(e.communities, e.nodes)

	result := &common.GraphLayout{
		GraphID:     e.graphID,
		Nodes:       append([]*common.Node3D(nil), e.nodes...),
		Links:       append([]*common.Link3D(nil), e.links...),
		Communities: append([]*common.Community(nil), e.communities...),
	}

	logger.Info(
		"[Layout] Simulation converged",
		"graph_id", e.graphID,
		"ticks", e.ticks,
		"nodes", len(e.nodes),
		"links", len(e.links),
	)

	return result, nil
}

// step advances the simulation by one tick. It returns false once the
// convergence predicate holds, without mutating any state.
func (e *Engine) step() bool {
	if e.stopped || e.ticks >= maxTicks || e.alpha < alphaMin {
		return false
	}

	e.applyForces(e.alpha)
	for _, n := range e.nodes {
		n.Velocity = n.Velocity.Scale(velocityDamping)
		n.Position = n.Position.Add(n.Velocity)
	}

	e.alpha *= 1 - alphaDecay
	e.ticks++
	return true
}

// UpdateConfig applies a partial configuration change without resetting node
// positions. Force state that depends on the changed parameters is rebuilt
// and the kinetic energy is nudged up so the layout re-settles. An update
// that cannot be applied cleanly falls back to a full force re-setup with a
// smaller energy bump; positions survive either path.
func (e *Engine) UpdateConfig(patch ConfigPatch) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if patch.IsEmpty() {
		e.alpha = math.Max(e.alpha, reheatAlpha)
		e.ticks = 0
		return
	}

	next := e.cfg
	changed, err := next.Apply(patch)
	if err != nil {
		logger.Warn("[Layout] Incremental config update failed, rebuilding forces", "err", err)
		e.setupForces()
		e.alpha = math.Max(e.alpha, fallbackAlpha)
		e.ticks = 0
		return
	}

	e.cfg = next
	if touchesRadialMapping(changed) {
		e.recomputeRadii()
		e.computeCenters()
	}
	e.alpha = math.Max(e.alpha, reheatAlpha)
	e.ticks = 0
}

// touchesRadialMapping reports whether any changed parameter feeds the
// abstraction-to-radius mapping, requiring target radii and community
// centers to be recomputed.
func touchesRadialMapping(changed []string) bool {
	for _, name := range changed {
		if name == "spread" || name == "level_spacing" {
			return true
		}
	}
	return false
}

// Stop disposes the engine. Subsequent Run calls fail; a run in flight
// finishes its current tick and converges no further. Discarding a stopped
// engine and ignoring its result is the cancellation mechanism.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopped = true
}

// Config returns a copy of the current tuning parameters.
func (e *Engine) Config() Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

package layout

import (
	"context"
	"math"
	"testing"

	"atlas/pkg/common"
)

func testModel() *common.GraphModel {
	return &common.GraphModel{
		ID: "g1",
		Entities: []common.Entity{
			{ID: "hub", Title: "Hub", Degree: 12, Frequency: 20},
			{ID: "mid", Title: "Mid", Degree: 4, Frequency: 5},
			{ID: "leaf-a", Title: "Leaf A", Degree: 1, Frequency: 1},
			{ID: "leaf-b", Title: "Leaf B", Degree: 1, Frequency: 1},
		},
		Relationships: []common.Relationship{
			{ID: "r1", Source: "hub", Target: "mid", Weight: 4},
			{ID: "r2", Source: "hub", Target: "leaf-a", Weight: 1},
			{ID: "r3", Source: "mid", Target: "leaf-b", Weight: 2},
		},
		Communities: []common.Community{
			{ID: "c0", HumanID: "0", Level: 0, Title: "Root", EntityIDs: []string{"hub", "mid"}},
			{ID: "c1", HumanID: "1", Level: 1, Parent: "0", Title: "Leaves", EntityIDs: []string{"leaf-a", "leaf-b"}},
		},
	}
}

func TestEngineRunConverges(t *testing.T) {
	engine, err := NewEngine(testModel(), NewEngineParams{Seed: 42})
	if err != nil {
		t.Fatalf("NewEngine returned error: %v", err)
	}

	result, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if engine.ticks > maxTicks {
		t.Errorf("ticks = %d, exceeds cap %d", engine.ticks, maxTicks)
	}
	if engine.ticks < maxTicks && engine.alpha >= alphaMin {
		t.Errorf("stopped early without converging: ticks=%d alpha=%v", engine.ticks, engine.alpha)
	}

	if len(result.Nodes) != 4 {
		t.Fatalf("result has %d nodes, want 4", len(result.Nodes))
	}
	for _, n := range result.Nodes {
		for _, v := range []float64{n.Position.X, n.Position.Y, n.Position.Z} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("node %s has non-finite position %+v", n.ID, n.Position)
			}
		}
		if n.Velocity != (common.Vec3{}) {
			t.Errorf("node %s has residual velocity %+v", n.ID, n.Velocity)
		}
	}
}

func TestEngineAnnotatesHierarchy(t *testing.T) {
	engine, err := NewEngine(testModel(), NewEngineParams{Seed: 1})
	if err != nil {
		t.Fatalf("NewEngine returned error: %v", err)
	}

	result, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if len(result.Communities) != 2 {
		t.Fatalf("result has %d communities, want 2", len(result.Communities))
	}
	for _, c := range result.Communities {
		if c.Bounds == nil {
			t.Errorf("community %s has no bounds", c.ID)
		}
		if c.RenderColor == "" {
			t.Errorf("community %s has no render color", c.ID)
		}
	}

	var child *common.Community
	for _, c := range result.Communities {
		if c.ID == "c1" {
			child = c
		}
	}
	if child == nil || child.ParentCommunity == nil || child.ParentCommunity.ID != "c0" {
		t.Error("child community not linked to its parent")
	}
}

func TestEngineDoesNotMutateModel(t *testing.T) {
	model := testModel()

	engine, err := NewEngine(model, NewEngineParams{Seed: 1})
	if err != nil {
		t.Fatalf("NewEngine returned error: %v", err)
	}
	if _, err := engine.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	for _, c := range model.Communities {
		if c.Bounds != nil || c.RenderColor != "" || c.ParentCommunity != nil {
			t.Errorf("input community %s was mutated", c.ID)
		}
	}
}

func TestEngineDropsDanglingRelationships(t *testing.T) {
	model := testModel()
	model.Relationships = append(model.Relationships, common.Relationship{
		ID: "broken", Source: "hub", Target: "missing",
	})

	engine, err := NewEngine(model, NewEngineParams{Seed: 1})
	if err != nil {
		t.Fatalf("NewEngine returned error: %v", err)
	}

	if len(engine.links) != 3 {
		t.Errorf("engine kept %d links, want 3", len(engine.links))
	}
	for _, l := range engine.links {
		if l.ID == "broken" {
			t.Error("dangling relationship survived")
		}
	}
}

func TestEngineRadiusOrdering(t *testing.T) {
	engine, err := NewEngine(testModel(), NewEngineParams{Seed: 7})
	if err != nil {
		t.Fatalf("NewEngine returned error: %v", err)
	}

	radius := make(map[string]float64)
	for i, n := range engine.nodes {
		radius[n.ID] = engine.sim[i].targetRadius
	}

	if radius["hub"] >= radius["mid"] {
		t.Errorf("hub target radius %v not inside mid %v", radius["hub"], radius["mid"])
	}
	if radius["mid"] >= radius["leaf-a"] {
		t.Errorf("mid target radius %v not inside leaf %v", radius["mid"], radius["leaf-a"])
	}
}

func TestEngineSeedsNearTargetRadius(t *testing.T) {
	engine, err := NewEngine(testModel(), NewEngineParams{Seed: 3})
	if err != nil {
		t.Fatalf("NewEngine returned error: %v", err)
	}

	for i, n := range engine.nodes {
		want := engine.sim[i].targetRadius
		got := math.Sqrt(n.Position.LengthSq())
		if math.Abs(got-want) > want*seedJitter+1e-9 {
			t.Errorf("node %s seeded at radius %v, target %v", n.ID, got, want)
		}
	}
}

func TestEngineInitialPositions(t *testing.T) {
	seed := map[string]common.Vec3{
		"hub": {X: 1, Y: 2, Z: 3},
	}

	engine, err := NewEngine(testModel(), NewEngineParams{Seed: 1, InitialPositions: seed})
	if err != nil {
		t.Fatalf("NewEngine returned error: %v", err)
	}

	for _, n := range engine.nodes {
		if n.ID == "hub" && n.Position != seed["hub"] {
			t.Errorf("hub seeded at %+v, want %+v", n.Position, seed["hub"])
		}
	}
}

func TestEngineStop(t *testing.T) {
	engine, err := NewEngine(testModel(), NewEngineParams{Seed: 1})
	if err != nil {
		t.Fatalf("NewEngine returned error: %v", err)
	}

	engine.Stop()

	if _, err := engine.Run(context.Background()); err != ErrEngineStopped {
		t.Errorf("Run after Stop = %v, want ErrEngineStopped", err)
	}
}

func TestEngineRunCancelled(t *testing.T) {
	engine, err := NewEngine(testModel(), NewEngineParams{Seed: 1})
	if err != nil {
		t.Fatalf("NewEngine returned error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := engine.Run(ctx); err != context.Canceled {
		t.Errorf("Run with cancelled context = %v, want context.Canceled", err)
	}
}

func TestUpdateConfigEmptyPatchReheats(t *testing.T) {
	engine, err := NewEngine(testModel(), NewEngineParams{Seed: 1})
	if err != nil {
		t.Fatalf("NewEngine returned error: %v", err)
	}
	if _, err := engine.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if engine.alpha >= reheatAlpha {
		t.Fatalf("engine did not cool below the reheat level: alpha=%v", engine.alpha)
	}

	engine.UpdateConfig(ConfigPatch{})

	if engine.alpha != reheatAlpha {
		t.Errorf("alpha = %v after empty patch, want %v", engine.alpha, reheatAlpha)
	}
	if engine.ticks != 0 {
		t.Errorf("ticks = %d after empty patch, want 0", engine.ticks)
	}
}

func TestUpdateConfigPreservesPositions(t *testing.T) {
	engine, err := NewEngine(testModel(), NewEngineParams{Seed: 1})
	if err != nil {
		t.Fatalf("NewEngine returned error: %v", err)
	}
	if _, err := engine.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	before := make(map[string]common.Vec3)
	for _, n := range engine.nodes {
		before[n.ID] = n.Position
	}

	engine.UpdateConfig(ConfigPatch{Repulsion: float64Ptr(150)})

	for _, n := range engine.nodes {
		if n.Position != before[n.ID] {
			t.Errorf("node %s moved during config update", n.ID)
		}
	}
	if engine.Config().Repulsion != 150 {
		t.Errorf("Repulsion = %v, want 150", engine.Config().Repulsion)
	}
}

func TestUpdateConfigSpreadRecomputesRadii(t *testing.T) {
	engine, err := NewEngine(testModel(), NewEngineParams{Seed: 1})
	if err != nil {
		t.Fatalf("NewEngine returned error: %v", err)
	}

	before := engine.sim[0].targetRadius
	engine.UpdateConfig(ConfigPatch{Spread: float64Ptr(600)})
	after := engine.sim[0].targetRadius

	if after <= before {
		t.Errorf("target radius %v did not grow with spread (was %v)", after, before)
	}
}

func TestUpdateConfigInvalidPatchFallsBack(t *testing.T) {
	engine, err := NewEngine(testModel(), NewEngineParams{Seed: 1})
	if err != nil {
		t.Fatalf("NewEngine returned error: %v", err)
	}
	if _, err := engine.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	before := engine.Config()
	engine.UpdateConfig(ConfigPatch{Spread: float64Ptr(math.NaN())})

	if engine.Config() != before {
		t.Error("invalid patch mutated the configuration")
	}
	if engine.alpha != fallbackAlpha {
		t.Errorf("alpha = %v after invalid patch, want %v", engine.alpha, fallbackAlpha)
	}
}

func TestEngineCommunityAssignment(t *testing.T) {
	engine, err := NewEngine(testModel(), NewEngineParams{Seed: 1})
	if err != nil {
		t.Fatalf("NewEngine returned error: %v", err)
	}

	for _, n := range engine.nodes {
		switch n.ID {
		case "hub", "mid":
			if n.Community == nil || n.Community.ID != "c0" {
				t.Errorf("node %s not assigned to c0", n.ID)
			}
			if n.CommunityLevel != 0 {
				t.Errorf("node %s level = %d, want 0", n.ID, n.CommunityLevel)
			}
		case "leaf-a", "leaf-b":
			if n.Community == nil || n.Community.ID != "c1" {
				t.Errorf("node %s not assigned to c1", n.ID)
			}
			if n.CommunityLevel != 1 {
				t.Errorf("node %s level = %d, want 1", n.ID, n.CommunityLevel)
			}
		}
	}
}

func TestEngineParallelMatchesSequential(t *testing.T) {
	model := &common.GraphModel{ID: "big"}
	for i := 0; i < 128; i++ {
		model.Entities = append(model.Entities, common.Entity{
			ID:     string(rune('a'+i%26)) + string(rune('0'+i/26)),
			Degree: i % 7,
		})
	}

	sequential, err := NewEngine(model, NewEngineParams{Seed: 5, Parallel: 1})
	if err != nil {
		t.Fatalf("NewEngine returned error: %v", err)
	}
	parallel, err := NewEngine(model, NewEngineParams{Seed: 5, Parallel: 4})
	if err != nil {
		t.Fatalf("NewEngine returned error: %v", err)
	}

	for i := 0; i < 10; i++ {
		sequential.step()
		parallel.step()
	}

	for i := range sequential.nodes {
		sp, pp := sequential.nodes[i].Position, parallel.nodes[i].Position
		if math.Abs(sp.X-pp.X) > 1e-9 || math.Abs(sp.Y-pp.Y) > 1e-9 || math.Abs(sp.Z-pp.Z) > 1e-9 {
			t.Fatalf("node %d diverged: sequential %+v, parallel %+v", i, sp, pp)
		}
	}
}

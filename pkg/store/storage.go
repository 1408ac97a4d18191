package store

import (
	"context"
	"errors"

	"atlas/pkg/common"
)

// ErrNoLayout is returned when a graph has no persisted layout run yet.
var ErrNoLayout = errors.New("no layout run stored for graph")

// RunSources records which graph artifacts a layout run was computed from,
// so a re-layout with new tuning parameters can reload the same inputs.
type RunSources struct {
	EntitiesKey      string `json:"entities_key"`
	RelationshipsKey string `json:"relationships_key"`
	CommunitiesKey   string `json:"communities_key,omitempty"`
}

// NearestNode is one result of a spatial nearest-node query.
type NearestNode struct {
	EntityID string      `json:"entity_id"`
	Title    string      `json:"title"`
	Position common.Vec3 `json:"position"`
	Distance float64     `json:"distance"`
}

// LayoutStorage persists finished layout runs and serves queries over them.
// Persistence lives entirely outside the layout core: the engine produces a
// GraphLayout and this interface takes it from there.
type LayoutStorage interface {
	// SaveLayout stores a finished layout under the given run id together
	// with the artifact keys it was computed from.
	SaveLayout(ctx context.Context, runID string, layout *common.GraphLayout, sources RunSources) error

	// GetLatestLayout loads the most recent layout run of a graph with all
	// hierarchy annotations restored. Returns ErrNoLayout when the graph
	// has never been laid out.
	GetLatestLayout(ctx context.Context, graphID string) (*common.GraphLayout, error)

	// GetNodePositions loads only the node positions of the most recent
	// run, used to seed a re-layout after a configuration change.
	GetNodePositions(ctx context.Context, graphID string) (map[string]common.Vec3, error)

	// GetRunSources returns the artifact keys of the most recent run.
	GetRunSources(ctx context.Context, graphID string) (RunSources, error)

	// NearestNodes returns the limit nodes of the latest run closest to
	// the given point.
	NearestNodes(ctx context.Context, graphID string, at common.Vec3, limit int) ([]NearestNode, error)
}

package pgx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"

	"atlas/pkg/common"
	"atlas/pkg/hierarchy"
	"atlas/pkg/store"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
}

// LayoutDBStorage implements store.LayoutStorage on PostgreSQL. Node
// positions are stored as pgvector vector(3) columns so nearest-node
// queries run in the database. Writes are serialized with a mutex.
type LayoutDBStorage struct {
	conn   pgxIConn
	dbLock sync.Mutex
}

// NewLayoutDBStorageWithConnection creates a LayoutDBStorage using an
// existing database connection or pool.
func NewLayoutDBStorageWithConnection(conn pgxIConn) *LayoutDBStorage {
	return &LayoutDBStorage{conn: conn}
}

// SaveLayout stores one finished layout run transactionally: the run row,
// all nodes with their positions, all links, and the annotated communities.
func (s *LayoutDBStorage) SaveLayout(ctx context.Context, runID string, layout *common.GraphLayout, sources store.RunSources) error {
	if layout == nil {
		return errors.New("layout is required")
	}

	s.dbLock.Lock()
	defer s.dbLock.Unlock()

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var dbRunID int64
	err = tx.QueryRow(
		ctx,
		`INSERT INTO layout_runs (public_id, graph_id, entities_key, relationships_key, communities_key)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		runID, layout.GraphID, sources.EntitiesKey, sources.RelationshipsKey, sources.CommunitiesKey,
	).Scan(&dbRunID)
	if err != nil {
		return fmt.Errorf("failed to insert layout run: %w", err)
	}

	batch := &pgxv5.Batch{}
	for _, n := range layout.Nodes {
		var communityID *string
		if n.Community != nil {
			communityID = &n.Community.ID
		}
		batch.Queue(
			`INSERT INTO layout_nodes
				(run_id, entity_id, title, type, degree, frequency,
				 community_id, community_level, size, position)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			dbRunID, n.ID, n.Title, n.Type, n.Degree, n.Frequency,
			communityID, n.CommunityLevel, n.Size,
			pgvector.NewVector([]float32{
				float32(n.Position.X),
				float32(n.Position.Y),
				float32(n.Position.Z),
			}),
		)
	}
	for _, l := range layout.Links {
		batch.Queue(
			`INSERT INTO layout_links
				(run_id, link_id, source_id, target_id, weight, description, thickness)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			dbRunID, l.ID, l.SourceID, l.TargetID, l.Weight, l.Description, l.Thickness,
		)
	}
	for _, c := range layout.Communities {
		var bounds []byte
		if c.Bounds != nil {
			bounds, err = json.Marshal(c.Bounds)
			if err != nil {
				return fmt.Errorf("failed to encode community bounds: %w", err)
			}
		}
		batch.Queue(
			`INSERT INTO layout_communities
				(run_id, community_id, human_id, level, parent, title, size,
				 child_ids, entity_ids, render_color, render_opacity, bounds)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			dbRunID, c.ID, c.HumanID, c.Level, c.Parent, c.Title, c.Size,
			c.ChildIDs, c.EntityIDs, c.RenderColor, c.RenderOpacity, bounds,
		)
	}

	results := tx.SendBatch(ctx, batch)
	if err := results.Close(); err != nil {
		return fmt.Errorf("failed to write layout rows: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *LayoutDBStorage) latestRunID(ctx context.Context, graphID string) (int64, error) {
	var id int64
	err := s.conn.QueryRow(
		ctx,
		`SELECT id FROM layout_runs WHERE graph_id = $1 ORDER BY created_at DESC, id DESC LIMIT 1`,
		graphID,
	).Scan(&id)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return 0, store.ErrNoLayout
	}
	if err != nil {
		return 0, err
	}
	return id, nil
}

// GetLatestLayout loads the most recent run of a graph and restores the
// in-memory representation, re-deriving the hierarchy annotations through
// the resolver (which is idempotent over identical positions).
func (s *LayoutDBStorage) GetLatestLayout(ctx context.Context, graphID string) (*common.GraphLayout, error) {
	runID, err := s.latestRunID(ctx, graphID)
	if err != nil {
		return nil, err
	}

	communities, err := s.loadCommunities(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load communities: %w", err)
	}
	communityByID := make(map[string]*common.Community, len(communities))
	for _, c := range communities {
		communityByID[c.ID] = c
	}

	nodes, err := s.loadNodes(ctx, runID, communityByID)
	if err != nil {
		return nil, fmt.Errorf("failed to load nodes: %w", err)
	}

	links, err := s.loadLinks(ctx, runID, nodes)
	if err != nil {
		return nil, fmt.Errorf("failed to load links: %w", err)
	}

	hierarchy.Resolve(communities, nodes)

	return &common.GraphLayout{
		GraphID:     graphID,
		Nodes:       nodes,
		Links:       links,
		Communities: communities,
	}, nil
}

func (s *LayoutDBStorage) loadCommunities(ctx context.Context, runID int64) ([]*common.Community, error) {
	rows, err := s.conn.Query(
		ctx,
		`SELECT community_id, human_id, level, parent, title, size,
		        child_ids, entity_ids, render_color, render_opacity
		 FROM layout_communities WHERE run_id = $1 ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var communities []*common.Community
	for rows.Next() {
		c := &common.Community{}
		err := rows.Scan(
			&c.ID, &c.HumanID, &c.Level, &c.Parent, &c.Title, &c.Size,
			&c.ChildIDs, &c.EntityIDs, &c.RenderColor, &c.RenderOpacity,
		)
		if err != nil {
			return nil, err
		}
		communities = append(communities, c)
	}
	return communities, rows.Err()
}

func (s *LayoutDBStorage) loadNodes(
	ctx context.Context,
	runID int64,
	communityByID map[string]*common.Community,
) ([]*common.Node3D, error) {
	rows, err := s.conn.Query(
		ctx,
		`SELECT entity_id, title, type, degree, frequency,
		        community_id, community_level, size, position
		 FROM layout_nodes WHERE run_id = $1 ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var nodes []*common.Node3D
	for rows.Next() {
		n := &common.Node3D{}
		var communityID *string
		var position pgvector.Vector
		err := rows.Scan(
			&n.Entity.ID, &n.Entity.Title, &n.Entity.Type,
			&n.Entity.Degree, &n.Entity.Frequency,
			&communityID, &n.CommunityLevel, &n.Size, &position,
		)
		if err != nil {
			return nil, err
		}
		if coords := position.Slice(); len(coords) == 3 {
			n.Position = common.Vec3{
				X: float64(coords[0]),
				Y: float64(coords[1]),
				Z: float64(coords[2]),
			}
		}
		if communityID != nil {
			n.Community = communityByID[*communityID]
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

func (s *LayoutDBStorage) loadLinks(
	ctx context.Context,
	runID int64,
	nodes []*common.Node3D,
) ([]*common.Link3D, error) {
	nodeByID := make(map[string]*common.Node3D, len(nodes))
	for _, n := range nodes {
		nodeByID[n.ID] = n
	}

	rows, err := s.conn.Query(
		ctx,
		`SELECT link_id, source_id, target_id, weight, description, thickness
		 FROM layout_links WHERE run_id = $1 ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []*common.Link3D
	for rows.Next() {
		l := &common.Link3D{}
		err := rows.Scan(&l.ID, &l.SourceID, &l.TargetID, &l.Weight, &l.Description, &l.Thickness)
		if err != nil {
			return nil, err
		}
		l.Source = nodeByID[l.SourceID]
		l.Target = nodeByID[l.TargetID]
		if l.Source == nil || l.Target == nil {
			continue
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

// GetRunSources returns the artifact keys the latest run was computed from.
func (s *LayoutDBStorage) GetRunSources(ctx context.Context, graphID string) (store.RunSources, error) {
	var sources store.RunSources
	err := s.conn.QueryRow(
		ctx,
		`SELECT entities_key, relationships_key, communities_key
		 FROM layout_runs WHERE graph_id = $1 ORDER BY created_at DESC, id DESC LIMIT 1`,
		graphID,
	).Scan(&sources.EntitiesKey, &sources.RelationshipsKey, &sources.CommunitiesKey)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return store.RunSources{}, store.ErrNoLayout
	}
	if err != nil {
		return store.RunSources{}, err
	}
	return sources, nil
}

// GetNodePositions loads only the node positions of the latest run.
func (s *LayoutDBStorage) GetNodePositions(ctx context.Context, graphID string) (map[string]common.Vec3, error) {
	runID, err := s.latestRunID(ctx, graphID)
	if err != nil {
		return nil, err
	}

	rows, err := s.conn.Query(
		ctx,
		`SELECT entity_id, position FROM layout_nodes WHERE run_id = $1`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	positions := make(map[string]common.Vec3)
	for rows.Next() {
		var entityID string
		var position pgvector.Vector
		if err := rows.Scan(&entityID, &position); err != nil {
			return nil, err
		}
		if coords := position.Slice(); len(coords) == 3 {
			positions[entityID] = common.Vec3{
				X: float64(coords[0]),
				Y: float64(coords[1]),
				Z: float64(coords[2]),
			}
		}
	}
	return positions, rows.Err()
}

// NearestNodes returns the limit nodes of the latest run closest to the
// given point, ordered by L2 distance computed by pgvector.
func (s *LayoutDBStorage) NearestNodes(
	ctx context.Context,
	graphID string,
	at common.Vec3,
	limit int,
) ([]store.NearestNode, error) {
	runID, err := s.latestRunID(ctx, graphID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}

	point := pgvector.NewVector([]float32{float32(at.X), float32(at.Y), float32(at.Z)})
	rows, err := s.conn.Query(
		ctx,
		`SELECT entity_id, title, position, position <-> $2 AS distance
		 FROM layout_nodes
		 WHERE run_id = $1
		 ORDER BY position <-> $2
		 LIMIT $3`,
		runID, point, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []store.NearestNode
	for rows.Next() {
		var r store.NearestNode
		var position pgvector.Vector
		if err := rows.Scan(&r.EntityID, &r.Title, &position, &r.Distance); err != nil {
			return nil, err
		}
		if coords := position.Slice(); len(coords) == 3 {
			r.Position = common.Vec3{
				X: float64(coords[0]),
				Y: float64(coords[1]),
				Z: float64(coords[2]),
			}
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

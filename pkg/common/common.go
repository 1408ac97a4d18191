package common

// GraphModel is a fully loaded knowledge graph as produced by the artifact
// loader. It is the input of the layout engine, which consumes but never
// mutates it.
//
// A model contains:
//   - Entities: nodes of the graph with frequency and degree statistics
//   - Relationships: weighted edges between entities
//   - Communities: the hierarchical clustering of the entities
type GraphModel struct {
	ID            string         `json:"id"`
	Entities      []Entity       `json:"entities"`
	Relationships []Relationship `json:"relationships"`
	Communities   []Community    `json:"communities"`
}

// Entity represents a node in the graph. An entity can be an organization,
// person, location, or any other relevant concept. Frequency counts how often
// the entity occurs in the source text, Degree counts its relationships.
//
// Entities are immutable once loaded.
type Entity struct {
	ID          string   `json:"id"`
	HumanID     string   `json:"human_readable_id"`
	Title       string   `json:"title"`
	Type        string   `json:"type"`
	Description string   `json:"description"`
	TextUnitIDs []string `json:"text_unit_ids"`
	Frequency   int      `json:"frequency"`
	Degree      int      `json:"degree"`
}

// Relationship represents a weighted edge between two entities, identified by
// their entity ids. Weight is the numeric strength of the connection,
// CombinedDegree the sum of both endpoint degrees.
//
// Relationships are immutable once loaded.
type Relationship struct {
	ID             string  `json:"id"`
	Source         string  `json:"source"`
	Target         string  `json:"target"`
	Weight         float64 `json:"weight"`
	Description    string  `json:"description"`
	CombinedDegree int     `json:"combined_degree"`
}

// Community represents one cluster in the hierarchical community structure.
// Level 0 is the most general layer. Parent is the human-readable id of the
// enclosing community and empty for roots. All identifiers are canonicalized
// to strings at load time, regardless of how the source artifact encodes them.
//
// The hierarchy resolver attaches the derived fields after a layout run;
// everything else is immutable once loaded.
type Community struct {
	ID              string   `json:"id"`
	HumanID         string   `json:"human_readable_id"`
	Level           int      `json:"level"`
	Parent          string   `json:"parent,omitempty"`
	ChildIDs        []string `json:"children,omitempty"`
	Title           string   `json:"title"`
	Size            int      `json:"size"`
	EntityIDs       []string `json:"entity_ids"`
	RelationshipIDs []string `json:"relationship_ids"`

	// Derived by the hierarchy resolver.
	Bounds           *BoundingBox `json:"bounds,omitempty"`
	ParentCommunity  *Community   `json:"-"`
	ChildCommunities []*Community `json:"-"`
	RenderColor      string       `json:"render_color,omitempty"`
	RenderOpacity    float64      `json:"render_opacity,omitempty"`
}

// BoundingBox is an axis-aligned box enclosing a community's member node
// positions. A community with no resolved members has no bounding box.
type BoundingBox struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MinZ float64 `json:"min_z"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
	MaxZ float64 `json:"max_z"`
}

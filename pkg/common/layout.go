package common

// Vec3 is a point or direction in layout space.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Add returns v + w.
func (v Vec3) Add(w Vec3) Vec3 {
	return Vec3{v.X + w.X, v.Y + w.Y, v.Z + w.Z}
}

// Sub returns v - w.
func (v Vec3) Sub(w Vec3) Vec3 {
	return Vec3{v.X - w.X, v.Y - w.Y, v.Z - w.Z}
}

// Scale returns v scaled by s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

// LengthSq returns the squared length of v.
func (v Vec3) LengthSq() float64 {
	return v.X*v.X + v.Y*v.Y + v.Z*v.Z
}

// Node3D is an entity placed in layout space. It carries the live position
// and velocity during a simulation run and the resolved community membership.
// Node sets are rebuilt from scratch for every run, never patched in place.
type Node3D struct {
	Entity

	Position Vec3 `json:"position"`
	Velocity Vec3 `json:"-"`

	// Community the node belongs to, nil when the entity is not a member of
	// any community. CommunityLevel defaults to 0 in that case.
	Community      *Community `json:"-"`
	CommunityLevel int        `json:"community_level"`

	// Size is the precomputed render size derived from degree and frequency.
	Size float64 `json:"size"`
}

// Link3D is a relationship with both endpoints resolved to layout nodes.
// Relationships whose endpoints cannot be resolved never become links.
type Link3D struct {
	ID          string  `json:"id"`
	Source      *Node3D `json:"-"`
	Target      *Node3D `json:"-"`
	SourceID    string  `json:"source"`
	TargetID    string  `json:"target"`
	Weight      float64 `json:"weight"`
	Description string  `json:"description"`
	Thickness   float64 `json:"thickness"`
}

// GraphLayout is the output of a layout run: positioned nodes, resolved
// links, and the community set annotated by the hierarchy resolver. A layout
// is read-only once produced; a new run always yields a fresh instance.
type GraphLayout struct {
	GraphID     string       `json:"graph_id"`
	Nodes       []*Node3D    `json:"nodes"`
	Links       []*Link3D    `json:"links"`
	Communities []*Community `json:"communities"`
}

package layout

import (
	"fmt"
	"math"
)

// Config holds the tuning parameters of the force simulation. Every field
// can be updated at runtime through Engine.UpdateConfig without discarding
// node positions.
type Config struct {
	// Repulsion is the base pairwise charge. The effective charge of a node
	// is Repulsion - degree*5, so hubs repel less and dense neighborhoods
	// can form around them.
	Repulsion float64 `json:"repulsion"`

	// LinkDistance is the base target distance of a link with weight 0.
	// Heavier links pull their endpoints closer together.
	LinkDistance float64 `json:"link_distance"`

	// MaxLinkStrength caps the spring strength of high-weight links.
	MaxLinkStrength float64 `json:"max_link_strength"`

	// CollisionRadius is the padding added to each node's render size when
	// enforcing minimum pairwise separation.
	CollisionRadius float64 `json:"collision_radius"`

	// CommunityStrength scales the pull of each node toward its community
	// center.
	CommunityStrength float64 `json:"community_strength"`

	// CenterStrength is the weak global pull toward the origin that keeps
	// the layout from drifting.
	CenterStrength float64 `json:"center_strength"`

	// Spread is the outer radius of the knowledge universe. Node target
	// radii span [0.1*Spread, Spread].
	Spread float64 `json:"spread"`

	// LevelSpacing is the radial offset added per community hierarchy level.
	LevelSpacing float64 `json:"level_spacing"`

	// SphericalConstraint scales the per-tick radial correction that keeps
	// each node near its abstraction-derived target radius.
	SphericalConstraint float64 `json:"spherical_constraint"`
}

// DefaultConfig returns the tuning parameters used when a layout request
// carries no overrides.
func DefaultConfig() Config {
	return Config{
		Repulsion:           80,
		LinkDistance:        60,
		MaxLinkStrength:     1.0,
		CollisionRadius:     4,
		CommunityStrength:   0.08,
		CenterStrength:      0.01,
		Spread:              300,
		LevelSpacing:        80,
		SphericalConstraint: 0.15,
	}
}

// ConfigPatch is a partial configuration update. Nil fields are left
// untouched by Engine.UpdateConfig.
type ConfigPatch struct {
	Repulsion           *float64 `json:"repulsion,omitempty"`
	LinkDistance        *float64 `json:"link_distance,omitempty"`
	MaxLinkStrength     *float64 `json:"max_link_strength,omitempty"`
	CollisionRadius     *float64 `json:"collision_radius,omitempty"`
	CommunityStrength   *float64 `json:"community_strength,omitempty"`
	CenterStrength      *float64 `json:"center_strength,omitempty"`
	Spread              *float64 `json:"spread,omitempty"`
	LevelSpacing        *float64 `json:"level_spacing,omitempty"`
	SphericalConstraint *float64 `json:"spherical_constraint,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p ConfigPatch) IsEmpty() bool {
	return p.Repulsion == nil &&
		p.LinkDistance == nil &&
		p.MaxLinkStrength == nil &&
		p.CollisionRadius == nil &&
		p.CommunityStrength == nil &&
		p.CenterStrength == nil &&
		p.Spread == nil &&
		p.LevelSpacing == nil &&
		p.SphericalConstraint == nil
}

// Apply copies the patched fields into c after validating them. It returns
// the list of changed field names, so the engine can rebuild only the force
// state that depends on them.
func (c *Config) Apply(p ConfigPatch) ([]string, error) {
	type field struct {
		name string
		src  *float64
		dst  *float64
		min  float64
	}

	fields := []field{
		{"repulsion", p.Repulsion, &c.Repulsion, 0},
		{"link_distance", p.LinkDistance, &c.LinkDistance, 1},
		{"max_link_strength", p.MaxLinkStrength, &c.MaxLinkStrength, 0},
		{"collision_radius", p.CollisionRadius, &c.CollisionRadius, 0},
		{"community_strength", p.CommunityStrength, &c.CommunityStrength, 0},
		{"center_strength", p.CenterStrength, &c.CenterStrength, 0},
		{"spread", p.Spread, &c.Spread, 1},
		{"level_spacing", p.LevelSpacing, &c.LevelSpacing, 0},
		{"spherical_constraint", p.SphericalConstraint, &c.SphericalConstraint, 0},
	}

	changed := make([]string, 0, len(fields))
	for _, f := range fields {
		if f.src == nil {
			continue
		}
		v := *f.src
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("invalid value for %s: %v", f.name, v)
		}
		if v < f.min {
			return nil, fmt.Errorf("value for %s must be >= %v, got %v", f.name, f.min, v)
		}
		*f.dst = v
		changed = append(changed, f.name)
	}

	return changed, nil
}

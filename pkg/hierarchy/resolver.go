// Package hierarchy derives the community hierarchy of a finished layout:
// bounding volumes, parent/child links, render colors, and the subtree
// selection used by isolator focus views.
package hierarchy

import (
	"sort"

	"atlas/pkg/common"
)

const (
	// Padding added around member node positions when computing a
	// community's bounding box.
	boundsPadding = 35.0

	// Baseline opacity for community shells.
	shellOpacity = 0.18
)

// communityPalette is indexed by hierarchy level modulo its length, so
// colors are deterministic across runs.
var communityPalette = []string{
	"#4f8fea",
	"#e0599b",
	"#53c779",
	"#e8a33d",
	"#9a6de0",
	"#47bfc4",
	"#d96a4a",
	"#7a86e8",
}

// Resolve annotates the community set in place with bounding volumes,
// resolved parent/child links, and render color/opacity, based on the
// finalized node positions. It is idempotent: repeated invocation over the
// same inputs produces identical derived fields, and it never re-triggers
// a layout.
func Resolve(communities []*common.Community, nodes []*common.Node3D) {
	byHumanID := make(map[string]*common.Community, len(communities))
	for _, c := range communities {
		if c == nil {
			continue
		}
		c.ParentCommunity = nil
		c.ChildCommunities = nil
		c.Bounds = nil
		if c.HumanID != "" {
			byHumanID[c.HumanID] = c
		}
	}

	resolveBounds(communities, nodes)

	byID := make(map[string]*common.Community, len(communities))
	for _, c := range communities {
		if c != nil && c.ID != "" {
			byID[c.ID] = c
		}
	}

	for _, c := range communities {
		if c == nil || c.Parent == "" {
			continue
		}
		parent := byHumanID[c.Parent]
		if parent == nil {
			parent = byID[c.Parent]
		}
		if parent != nil && parent != c {
			c.ParentCommunity = parent
		}
	}

	for _, c := range communities {
		if c == nil {
			continue
		}
		c.ChildCommunities = resolveChildren(c, communities, byID, byHumanID)
		c.RenderColor = communityPalette[levelIndex(c.Level)]
		c.RenderOpacity = shellOpacity
	}
}

// resolveBounds computes the axis-aligned box around each community's
// resolved member positions. Communities with zero resolved members keep a
// nil box; renderers treat that as nothing to draw.
func resolveBounds(communities []*common.Community, nodes []*common.Node3D) {
	boxes := make(map[*common.Community]*common.BoundingBox)
	for _, n := range nodes {
		if n == nil || n.Community == nil {
			continue
		}
		box := boxes[n.Community]
		if box == nil {
			boxes[n.Community] = &common.BoundingBox{
				MinX: n.Position.X, MaxX: n.Position.X,
				MinY: n.Position.Y, MaxY: n.Position.Y,
				MinZ: n.Position.Z, MaxZ: n.Position.Z,
			}
			continue
		}
		box.MinX = min(box.MinX, n.Position.X)
		box.MinY = min(box.MinY, n.Position.Y)
		box.MinZ = min(box.MinZ, n.Position.Z)
		box.MaxX = max(box.MaxX, n.Position.X)
		box.MaxY = max(box.MaxY, n.Position.Y)
		box.MaxZ = max(box.MaxZ, n.Position.Z)
	}

	for _, c := range communities {
		box, ok := boxes[c]
		if !ok {
			continue
		}
		box.MinX -= boundsPadding
		box.MinY -= boundsPadding
		box.MinZ -= boundsPadding
		box.MaxX += boundsPadding
		box.MaxY += boundsPadding
		box.MaxZ += boundsPadding
		c.Bounds = box
	}
}

// resolveChildren unions the communities whose parent resolves back to c
// with c's explicit child id list, de-duplicated by identity and sorted by
// level ascending.
func resolveChildren(
	c *common.Community,
	communities []*common.Community,
	byID map[string]*common.Community,
	byHumanID map[string]*common.Community,
) []*common.Community {
	seen := make(map[*common.Community]struct{})
	var children []*common.Community

	add := func(child *common.Community) {
		if child == nil || child == c {
			return
		}
		if _, ok := seen[child]; ok {
			return
		}
		seen[child] = struct{}{}
		children = append(children, child)
	}

	for _, other := range communities {
		if other != nil && other.ParentCommunity == c {
			add(other)
		}
	}
	for _, childID := range c.ChildIDs {
		child := byID[childID]
		if child == nil {
			child = byHumanID[childID]
		}
		add(child)
	}

	sort.SliceStable(children, func(i, j int) bool {
		return children[i].Level < children[j].Level
	})
	return children
}

func levelIndex(level int) int {
	idx := level % len(communityPalette)
	if idx < 0 {
		idx += len(communityPalette)
	}
	return idx
}

package hierarchy

import (
	"sort"

	"atlas/pkg/common"
)

// SelectSubtree computes the full hierarchy subtree under the top-level
// ancestor of the selected community, for isolator focus views. Selecting
// any community of a hierarchy yields the same result as selecting its
// root.
//
// The upward walk and the breadth-first descent both carry explicit
// visited-sets: a parent reference that cannot be resolved makes the
// current community the root, and a parent cycle is broken at the
// last-resolved community. Any degenerate input degrades to the singleton
// list containing only the selected community; this boundary never fails.
func SelectSubtree(selected *common.Community, all []*common.Community) []*common.Community {
	if selected == nil {
		return nil
	}

	byID := make(map[string]*common.Community, len(all))
	byHumanID := make(map[string]*common.Community, len(all))
	for _, c := range all {
		if c == nil {
			continue
		}
		if c.ID != "" {
			byID[c.ID] = c
		}
		if c.HumanID != "" {
			byHumanID[c.HumanID] = c
		}
	}

	lookup := func(id string) *common.Community {
		if id == "" {
			return nil
		}
		if c, ok := byHumanID[id]; ok {
			return c
		}
		return byID[id]
	}

	// Walk upward until a community without a resolvable parent. The
	// visited-set breaks genuine parent cycles instead of relying on a hop
	// limit.
	root := selected
	visited := map[*common.Community]struct{}{root: {}}
	for root.Parent != "" {
		parent := lookup(root.Parent)
		if parent == nil {
			break
		}
		if _, seen := visited[parent]; seen {
			break
		}
		visited[parent] = struct{}{}
		root = parent
	}

	// Reverse parent index over the whole set, so children that never made
	// it into an explicit child list are still discovered.
	childrenOf := make(map[*common.Community][]*common.Community, len(all))
	for _, c := range all {
		if c == nil || c.Parent == "" {
			continue
		}
		if parent := lookup(c.Parent); parent != nil && parent != c {
			childrenOf[parent] = append(childrenOf[parent], c)
		}
	}

	// Breadth-first descent from the root over the union of the reverse
	// index and each community's explicit child list.
	collected := make([]*common.Community, 0, len(all))
	seen := make(map[*common.Community]struct{})
	queue := []*common.Community{root}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if _, ok := seen[current]; ok {
			continue
		}
		seen[current] = struct{}{}
		collected = append(collected, current)

		for _, child := range childrenOf[current] {
			if _, ok := seen[child]; !ok {
				queue = append(queue, child)
			}
		}
		for _, childID := range current.ChildIDs {
			child := lookup(childID)
			if child == nil || child == current {
				continue
			}
			if _, ok := seen[child]; !ok {
				queue = append(queue, child)
			}
		}
	}

	if len(collected) == 0 {
		return []*common.Community{selected}
	}

	sort.SliceStable(collected, func(i, j int) bool {
		return collected[i].Level < collected[j].Level
	})
	return collected
}

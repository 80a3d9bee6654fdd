package placement

import (
	"fmt"
	"sort"

	"github.com/cargohold/stationinv/cluster"
	"github.com/cargohold/stationinv/spatial"
)

// tryRearrange implements §4.B's rearrangement contract: for each container,
// attempt compact/stack-similar/demote-low-priority in order, keep the
// strategy yielding the smallest post-placement utilization for that
// container, then take the smallest utilization across containers.
//
// Every strategy runs against a disposable clone of the live spatial
// indices (spatial.Index.Clone), so a failed or losing attempt never
// touches real state -- the "fully applies or fully rolls back" semantics
// of §4.B fall out of simply not committing the clone.
func (p *Planner) tryRearrange(target *cluster.Item, containers []*cluster.Container) (ok bool, containerID string, pose cluster.Pose, moves []plannedMove, trace []string) {
	itemsByID := make(map[string]*cluster.Item)
	for _, it := range p.Items.All() {
		itemsByID[it.ID] = it
	}

	type candidate struct {
		containerID string
		pose        cluster.Pose
		moves       []plannedMove
		util        float64
	}

	strategies := []func(world map[string]*spatial.Index, cID string) ([]plannedMove, cluster.Pose, bool){
		func(world map[string]*spatial.Index, cID string) ([]plannedMove, cluster.Pose, bool) {
			return compactStrategy(world, itemsByID, cID, target)
		},
		func(world map[string]*spatial.Index, cID string) ([]plannedMove, cluster.Pose, bool) {
			return stackSimilarStrategy(world, itemsByID, cID, target)
		},
		func(world map[string]*spatial.Index, cID string) ([]plannedMove, cluster.Pose, bool) {
			return demoteLowPriorityStrategy(world, itemsByID, containers, cID, target)
		},
	}

	var best *candidate
	for _, c := range containers {
		var bestForContainer *candidate
		for _, strat := range strategies {
			world := p.cloneWorld(containers)
			mv, ps, succeeded := strat(world, c.ID)
			if !succeeded {
				continue
			}
			util := world[c.ID].Utilization()
			if bestForContainer == nil || util < bestForContainer.util {
				bestForContainer = &candidate{containerID: c.ID, pose: ps, moves: mv, util: util}
			}
		}
		if bestForContainer == nil {
			trace = append(trace, fmt.Sprintf("container %s: no rearrangement strategy succeeded", c.ID))
			continue
		}
		if best == nil || bestForContainer.util < best.util {
			best = bestForContainer
		}
	}

	if best == nil {
		return false, "", cluster.Pose{}, nil, trace
	}
	return true, best.containerID, best.pose, best.moves, trace
}

func (p *Planner) cloneWorld(containers []*cluster.Container) map[string]*spatial.Index {
	world := make(map[string]*spatial.Index, len(containers))
	for _, c := range containers {
		idx := p.Spatial.Ensure(c.ID, c.Dims)
		world[c.ID] = idx.Clone()
	}
	return world
}

func bestRotationFit(idx *spatial.Index, target *cluster.Item) (cluster.Pose, bool) {
	for _, rot := range target.Dims.Rotations() {
		if pose, found := idx.FirstFreePose(rot); found {
			return pose, true
		}
	}
	return cluster.Pose{}, false
}

// compactStrategy re-anchors every item currently in containerID (lowest
// priority first) to its own lexicographically-smallest free pose, then
// retries the target (§4.B "Compact").
func compactStrategy(world map[string]*spatial.Index, itemsByID map[string]*cluster.Item, containerID string, target *cluster.Item) ([]plannedMove, cluster.Pose, bool) {
	idx := world[containerID]

	placed := placedItemsSortedByPriority(idx, itemsByID)
	var moves []plannedMove
	for _, it := range placed {
		curPose, ok := idx.Pose(it.ID)
		if !ok {
			continue
		}
		dims := curPose.Dims()
		newPose, found := idx.FirstFreePoseExcluding(dims, it.ID)
		if !found {
			continue
		}
		if lexLess(newPose.Start, curPose.Start) {
			idx.Remove(it.ID)
			idx.Insert(it.ID, newPose)
			moves = append(moves, plannedMove{itemID: it.ID, fromContainer: containerID, fromPose: curPose, toContainer: containerID, toPose: newPose})
		}
	}

	pose, ok := bestRotationFit(idx, target)
	if !ok {
		return moves, cluster.Pose{}, false
	}
	idx.Insert(target.ID, pose)
	return moves, pose, true
}

func placedItemsSortedByPriority(idx *spatial.Index, itemsByID map[string]*cluster.Item) []*cluster.Item {
	ids := idx.Items()
	out := make([]*cluster.Item, 0, len(ids))
	for _, id := range ids {
		if it, ok := itemsByID[id]; ok {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out
}

// stackSimilarStrategy groups items sharing a footprint (equal W x D) and
// re-anchors them to a shared (w0, d0) column, stacked along h, then
// retries the target (§4.B "Stack similar").
func stackSimilarStrategy(world map[string]*spatial.Index, itemsByID map[string]*cluster.Item, containerID string, target *cluster.Item) ([]plannedMove, cluster.Pose, bool) {
	idx := world[containerID]

	type footprint struct{ w, d int }
	groups := make(map[footprint][]string)
	for _, id := range idx.Items() {
		pose, ok := idx.Pose(id)
		if !ok {
			continue
		}
		dims := pose.Dims()
		key := footprint{dims.W, dims.D}
		groups[key] = append(groups[key], id)
	}

	// Deterministic iteration over groups for reproducible step ordering.
	keys := make([]footprint, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].w != keys[j].w {
			return keys[i].w < keys[j].w
		}
		return keys[i].d < keys[j].d
	})

	var moves []plannedMove
	for _, key := range keys {
		members := groups[key]
		if len(members) < 2 {
			continue
		}
		sort.Slice(members, func(i, j int) bool {
			pi, _ := idx.Pose(members[i])
			pj, _ := idx.Pose(members[j])
			return pi.Start.H < pj.Start.H
		})

		minW, minD := 1<<30, 1<<30
		oldPoses := make(map[string]cluster.Pose, len(members))
		for _, id := range members {
			p, _ := idx.Pose(id)
			oldPoses[id] = p
			if p.Start.W < minW {
				minW = p.Start.W
			}
			if p.Start.D < minD {
				minD = p.Start.D
			}
		}
		for _, id := range members {
			idx.Remove(id)
		}
		h := 0
		for _, id := range members {
			dims := oldPoses[id].Dims()
			newPose := cluster.Pose{
				Start: cluster.Coord{W: minW, D: minD, H: h},
				End:   cluster.Coord{W: minW + dims.W, D: minD + dims.D, H: h + dims.H},
			}
			idx.Insert(id, newPose)
			if newPose != oldPoses[id] {
				moves = append(moves, plannedMove{itemID: id, fromContainer: containerID, fromPose: oldPoses[id], toContainer: containerID, toPose: newPose})
			}
			h += dims.H
		}
	}

	pose, ok := bestRotationFit(idx, target)
	if !ok {
		return moves, cluster.Pose{}, false
	}
	idx.Insert(target.ID, pose)
	return moves, pose, true
}

// demoteLowPriorityStrategy evicts items of strictly lower priority than
// target, ascending priority order, into any other container with free
// space, stopping as soon as target fits (§4.B "Demote low priority").
// Re-homing a candidate tries its own preferred-zone containers before the
// rest, the same order tryDirectPlacement uses for a fresh placement.
func demoteLowPriorityStrategy(world map[string]*spatial.Index, itemsByID map[string]*cluster.Item, containers []*cluster.Container, containerID string, target *cluster.Item) ([]plannedMove, cluster.Pose, bool) {
	idx := world[containerID]

	var candidates []*cluster.Item
	for _, id := range idx.Items() {
		it, ok := itemsByID[id]
		if !ok {
			continue
		}
		if it.Priority < target.Priority {
			candidates = append(candidates, it)
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Priority < candidates[j].Priority })

	var moves []plannedMove
	for _, it := range candidates {
		if _, fits := bestRotationFit(idx, target); fits {
			break
		}
		curPose, ok := idx.Pose(it.ID)
		if !ok {
			continue
		}
		preferred, other := partitionByPreferredZone(containers, it.PreferredZone, containerID)
		for _, group := range [][]*cluster.Container{preferred, other} {
			rehomed := false
			for _, c := range group {
				otherIdx := world[c.ID]
				newPose, found := bestRotationFit(otherIdx, it)
				if !found {
					continue
				}
				idx.Remove(it.ID)
				otherIdx.Insert(it.ID, newPose)
				moves = append(moves, plannedMove{itemID: it.ID, fromContainer: containerID, fromPose: curPose, toContainer: c.ID, toPose: newPose})
				rehomed = true
				break
			}
			if rehomed {
				break
			}
		}
	}

	pose, ok := bestRotationFit(idx, target)
	if !ok {
		return moves, cluster.Pose{}, false
	}
	idx.Insert(target.ID, pose)
	return moves, pose, true
}

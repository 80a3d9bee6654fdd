package placement

import (
	"fmt"
	"sort"
	"time"

	"github.com/cargohold/stationinv/cluster"
	"github.com/cargohold/stationinv/cmn"
	"github.com/cargohold/stationinv/eventlog"
	"github.com/cargohold/stationinv/spatial"
	"github.com/golang/glog"
)

// Planner owns the item/container stores and the spatial-index manager
// shared by every component (§5). Constructed once at startup (§9 "Global
// services") and reused across calls; callers serialize access to it with
// the writer lock described in service.Core.
type Planner struct {
	Items      *cluster.ItemRegistry
	Containers *cluster.ContainerRegistry
	Spatial    *spatial.Manager
	Log        *eventlog.Log
}

func New(items *cluster.ItemRegistry, containers *cluster.ContainerRegistry, sp *spatial.Manager, log *eventlog.Log) *Planner {
	return &Planner{Items: items, Containers: containers, Spatial: sp, Log: log}
}

// PlaceBatch assigns each item in items to a container and pose, performing
// rearrangement when direct placement fails (§4.B, §6 PlaceBatch).
func (p *Planner) PlaceBatch(items []*cluster.Item, containers []*cluster.Container, userID string, now time.Time) (*Result, error) {
	now = cmn.ToUTC(now)
	for _, c := range containers {
		p.Spatial.Ensure(c.ID, c.Dims)
	}

	ordered := make([]*cluster.Item, len(items))
	copy(ordered, items)
	sort.SliceStable(ordered, func(i, j int) bool { return less(ordered[i], ordered[j]) })

	res := &Result{Utilization: map[string]float64{}}
	stepIdx := 0

	for _, item := range ordered {
		if item.IsWaste {
			continue // §3: waste is excluded from placement
		}

		ok, containerID, pose, trace := p.tryDirectPlacement(item, containers)
		if ok {
			if err := p.commitDirect(item, containerID, pose, userID, now); err != nil {
				return nil, err
			}
			res.Assignments = append(res.Assignments, Assignment{ItemID: item.ID, ContainerID: containerID, Pose: pose})
			glog.V(3).Infof("placement: placed %s in %s at %+v", item.ID, containerID, pose)
			continue
		}

		rok, rContainerID, rPose, moves, rtrace := p.tryRearrange(item, containers)
		trace = append(trace, rtrace...)
		if rok {
			steps, err := p.commitMoves(moves, userID, now, stepIdx)
			if err != nil {
				return nil, err
			}
			stepIdx += len(steps)
			res.Rearrangements = append(res.Rearrangements, steps...)
			if err := p.commitDirect(item, rContainerID, rPose, userID, now); err != nil {
				return nil, err
			}
			res.Assignments = append(res.Assignments, Assignment{ItemID: item.ID, ContainerID: rContainerID, Pose: rPose})
			glog.V(3).Infof("placement: rearranged to place %s in %s", item.ID, rContainerID)
			continue
		}

		res.Unplaced = append(res.Unplaced, Unplaced{ItemID: item.ID, Trace: trace})
		glog.V(2).Infof("placement: %s unplaced: %v", item.ID, trace)
	}

	for _, c := range containers {
		if idx, ok := p.Spatial.Get(c.ID); ok {
			res.Utilization[c.ID] = idx.Utilization()
		}
	}
	return res, nil
}

// tryDirectPlacement implements §4.B.1-3: enumerate rotations, partition
// containers into preferred/other, take the first rotation/container that
// yields a non-empty first-free pose.
func (p *Planner) tryDirectPlacement(item *cluster.Item, containers []*cluster.Container) (ok bool, containerID string, pose cluster.Pose, trace []string) {
	preferred, other := partitionByPreferredZone(containers, item.PreferredZone, "")
	rotations := item.Dims.Rotations()
	for _, group := range [][]*cluster.Container{preferred, other} {
		for _, c := range group {
			idx := p.Spatial.Ensure(c.ID, c.Dims)
			placed := false
			for _, rot := range rotations {
				if ps, found := idx.FirstFreePose(rot); found {
					pose = ps
					containerID = c.ID
					placed = true
					break
				}
			}
			if placed {
				return true, containerID, pose, nil
			}
			trace = append(trace, fmt.Sprintf("container %s: no free pose in any rotation", c.ID))
		}
	}
	return false, "", cluster.Pose{}, trace
}

// partitionByPreferredZone splits containers into those whose Zone matches
// preferredZone and the rest, excluding excludeID from both, preserving
// input order within each group (§4.B.2 "preferred zone first").
func partitionByPreferredZone(containers []*cluster.Container, preferredZone, excludeID string) (preferred, other []*cluster.Container) {
	for _, c := range containers {
		if c.ID == excludeID {
			continue
		}
		if c.Zone == preferredZone {
			preferred = append(preferred, c)
		} else {
			other = append(other, c)
		}
	}
	return preferred, other
}

// commitDirect records a successful direct placement: mutates the spatial
// index, the item's placement, and appends the log entry.
func (p *Planner) commitDirect(item *cluster.Item, containerID string, pose cluster.Pose, userID string, now time.Time) error {
	idx, ok := p.Spatial.Get(containerID)
	if !ok {
		return cmn.NewInternal("container %s has no spatial index", containerID)
	}
	idx.Insert(item.ID, pose)
	item.Placement = &cluster.Placement{ContainerID: containerID, Pose: pose}
	if err := p.Items.Put(item); err != nil {
		return err
	}
	return p.Log.Append(cluster.LogEntry{
		Timestamp: now,
		UserID:    userID,
		Action:    cmn.ActPlacement,
		ItemID:    item.ID,
		Detail:    map[string]interface{}{"container_id": containerID},
	})
}

// commitMoves replays a winning rearrangement plan's moves against the live
// spatial indices and item registry, emitting one rearrangement log entry
// and one MoveStep per move, numbered from startIdx+1.
func (p *Planner) commitMoves(moves []plannedMove, userID string, now time.Time, startIdx int) ([]MoveStep, error) {
	out := make([]MoveStep, 0, len(moves))
	for _, mv := range moves {
		fromIdx, ok := p.Spatial.Get(mv.fromContainer)
		if !ok {
			return nil, cmn.NewInternal("container %s has no spatial index", mv.fromContainer)
		}
		toIdx, ok := p.Spatial.Get(mv.toContainer)
		if !ok {
			return nil, cmn.NewInternal("container %s has no spatial index", mv.toContainer)
		}
		fromIdx.Remove(mv.itemID)
		toIdx.Insert(mv.itemID, mv.toPose)

		it, ok := p.Items.Get(mv.itemID)
		if !ok {
			return nil, cmn.NewInternal("moved item %s vanished mid-rearrangement", mv.itemID)
		}
		it.Placement = &cluster.Placement{ContainerID: mv.toContainer, Pose: mv.toPose}
		if err := p.Items.Put(it); err != nil {
			return nil, err
		}

		startIdx++
		out = append(out, MoveStep{
			StepIndex:     startIdx,
			Action:        "move",
			ItemID:        mv.itemID,
			FromContainer: mv.fromContainer,
			FromPose:      mv.fromPose,
			ToContainer:   mv.toContainer,
			ToPose:        mv.toPose,
		})
		if err := p.Log.Append(cluster.LogEntry{
			Timestamp: now,
			UserID:    userID,
			Action:    cmn.ActRearrange,
			ItemID:    mv.itemID,
			Detail:    map[string]interface{}{"from_container": mv.fromContainer, "to_container": mv.toContainer},
		}); err != nil {
			return nil, err
		}
	}
	return out, nil
}

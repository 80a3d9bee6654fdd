// Package retrieval implements Component C: given a target item with a
// known placement, compute the ordered remove/retrieve/replace step list
// required to extract it with minimum disturbance (§4.C).
//
// Grounded on the teacher's notion of an ordered, numbered action sequence
// (cf. the rearrangement MoveStep sequence of placement, and xaction's
// step-like job bookkeeping) applied here to a read-only planning pass: no
// spatial index mutation happens until Retrieve (service package) commits.
/*
 * Copyright (c) 2020-2026, Cargohold Authors. All rights reserved.
 */
package retrieval

import (
	"sort"

	"github.com/cargohold/stationinv/cluster"
)

// Step is one entry of the ordered retrieval plan (§4.C).
type Step struct {
	StepIndex int    `json:"step_index"`
	Action    string `json:"action"` // remove | retrieve | place
	ItemID    string `json:"item_id"`
	ItemName  string `json:"item_name"`
}

// Planner computes retrieval plans against the live item registry; it
// never mutates state (§5: C reads the spatial index, only B and D write
// it).
type Planner struct {
	Items *cluster.ItemRegistry
}

func New(items *cluster.ItemRegistry) *Planner {
	return &Planner{Items: items}
}

// Blocks reports whether b blocks target t, per §4.C: same container, not
// waste, not the target itself, strictly closer to the opening
// (b.Start.D < t.Start.D), and its (w,h) projection overlaps t's.
func Blocks(b, t *cluster.Item) bool {
	if b.ID == t.ID || b.IsWaste {
		return false
	}
	if b.Placement == nil || t.Placement == nil {
		return false
	}
	if b.Placement.ContainerID != t.Placement.ContainerID {
		return false
	}
	if b.Placement.Pose.Start.D >= t.Placement.Pose.Start.D {
		return false
	}
	return projectionsOverlap(b.Placement.Pose, t.Placement.Pose)
}

// projectionsOverlap tests the (w, h) plane intervals for non-empty
// intersection (§4.C).
func projectionsOverlap(a, b cluster.Pose) bool {
	wOverlap := a.Start.W < b.End.W && b.Start.W < a.End.W
	hOverlap := a.Start.H < b.End.H && b.Start.H < a.End.H
	return wOverlap && hOverlap
}

// Plan computes the retrieval plan for target. Returns an empty plan if the
// target has no placement (§4.C: "If the target has no placement, the step
// list is empty").
func (p *Planner) Plan(target *cluster.Item) []Step {
	if target == nil || target.Placement == nil {
		return nil
	}

	candidates := p.Items.InContainer(target.Placement.ContainerID)
	var blockers []*cluster.Item
	for _, it := range candidates {
		if Blocks(it, target) {
			blockers = append(blockers, it)
		}
	}

	// Sort by (start.d ascending, priority ascending): closest to opening
	// first, ties prefer the lower-priority blocker (§4.C.1).
	sort.Slice(blockers, func(i, j int) bool {
		di, dj := blockers[i].Placement.Pose.Start.D, blockers[j].Placement.Pose.Start.D
		if di != dj {
			return di < dj
		}
		return blockers[i].Priority < blockers[j].Priority
	})

	steps := make([]Step, 0, 2*len(blockers)+1)
	idx := 0
	next := func() int { idx++; return idx }

	for _, b := range blockers {
		steps = append(steps, Step{StepIndex: next(), Action: "remove", ItemID: b.ID, ItemName: b.Name})
	}
	steps = append(steps, Step{StepIndex: next(), Action: "retrieve", ItemID: target.ID, ItemName: target.Name})
	for i := len(blockers) - 1; i >= 0; i-- {
		b := blockers[i]
		steps = append(steps, Step{StepIndex: next(), Action: "place", ItemID: b.ID, ItemName: b.Name})
	}
	return steps
}

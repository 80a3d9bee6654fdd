// Package placement implements Component B, the 3D bin-packing planner of
// §4.B: item ordering, rotation and container selection, and rearrangement
// when direct placement fails.
//
// Grounded on the teacher's lru.go for the "try strategies in order, keep
// the best, commit once" control flow, and on the pack's best-fit-decreasing
// bin packer (other_examples: clusterfit's internal/simulation/bfd.go) for
// the sort-then-greedy-assign shape of the per-item placement pass.
/*
 * Copyright (c) 2020-2026, Cargohold Authors. All rights reserved.
 */
package placement

import "github.com/cargohold/stationinv/cluster"

// Assignment records a single item->(container, pose) decision.
type Assignment struct {
	ItemID      string       `json:"item_id"`
	ContainerID string       `json:"container_id"`
	Pose        cluster.Pose `json:"pose"`
}

// MoveStep is one entry of the numbered rearrangement sequence (§4.B).
type MoveStep struct {
	StepIndex     int          `json:"step_index"`
	Action        string       `json:"action"` // always "move"
	ItemID        string       `json:"item_id"`
	FromContainer string       `json:"from_container"`
	FromPose      cluster.Pose `json:"from_pose"`
	ToContainer   string       `json:"to_container"`
	ToPose        cluster.Pose `json:"to_pose"`
}

// Unplaced reports an item the planner could not place, with the trace of
// why each candidate container was rejected (SPEC_FULL.md's supplemented
// "placement success/failure reporting").
type Unplaced struct {
	ItemID string   `json:"item_id"`
	Trace  []string `json:"trace,omitempty"`
}

// Result is the output of PlaceBatch (§6).
type Result struct {
	Assignments    []Assignment       `json:"placements"`
	Rearrangements []MoveStep         `json:"rearrangements"`
	Unplaced       []Unplaced         `json:"unplaced"`
	Utilization    map[string]float64 `json:"utilization"`
}

// plannedMove is the internal, pre-commit form of a move: computed against
// a trial spatial-index clone, replayed against the live state only once a
// winning rearrangement plan has been chosen (§4.B "Failure semantics").
type plannedMove struct {
	itemID        string
	fromContainer string
	fromPose      cluster.Pose
	toContainer   string
	toPose        cluster.Pose
}

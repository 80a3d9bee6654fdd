// Package waste implements Component D: waste identification, the
// weight-constrained return plan, and undocking completion (§4.D).
//
// The return plan's ordering is grounded on the teacher's lru/lru.go
// min-heap of cluster.LOM by access time: here the heap orders waste items
// by (start.d, start.h) instead of atime, but the container/heap usage is
// the same shape -- push every candidate, pop in order, stop once the
// accumulated quantity crosses a cap.
/*
 * Copyright (c) 2020-2026, Cargohold Authors. All rights reserved.
 */
package waste

import (
	"container/heap"
	"time"

	"github.com/cargohold/stationinv/cluster"
	"github.com/cargohold/stationinv/cmn"
	"github.com/cargohold/stationinv/eventlog"
	"github.com/golang/glog"
)

// Identified describes one item newly flagged waste by an Identify call.
type Identified struct {
	ItemID string `json:"item_id"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Planner owns the item store and log shared with the rest of the core
// (§5). Constructed once at startup alongside placement.Planner.
type Planner struct {
	Items *cluster.ItemRegistry
	Log   *eventlog.Log
}

func New(items *cluster.ItemRegistry, log *eventlog.Log) *Planner {
	return &Planner{Items: items, Log: log}
}

// Identify scans every non-waste item and flags it waste when its expiry
// has passed now, or its uses_remaining has already reached 0 (§4.D "Waste
// identification"). Items already flagged are skipped, so a second call in
// succession returns an empty list (§7 idempotence).
func (p *Planner) Identify(userID string, now time.Time) ([]Identified, error) {
	now = cmn.ToUTC(now)
	var out []Identified
	for _, it := range p.Items.All() {
		if it.IsWaste {
			continue
		}
		reason := wasteReason(it, now)
		if reason == "" {
			continue
		}
		it.IsWaste = true
		it.WasteReason = reason
		if err := p.Items.Put(it); err != nil {
			return nil, err
		}
		if err := p.Log.Append(cluster.LogEntry{
			Timestamp: now,
			UserID:    userID,
			Action:    cmn.ActDisposal,
			ItemID:    it.ID,
			Detail:    map[string]interface{}{"reason": reason},
		}); err != nil {
			return nil, err
		}
		out = append(out, Identified{ItemID: it.ID, Name: it.Name, Reason: reason})
		glog.V(3).Infof("waste: flagged %s (%s)", it.ID, reason)
	}
	return out, nil
}

func wasteReason(it *cluster.Item, now time.Time) string {
	if it.Expiry != nil && !it.Expiry.After(now) {
		return cmn.ReasonExpired
	}
	if it.UsesRemaining != nil && *it.UsesRemaining <= 0 {
		return cmn.ReasonOutOfUses
	}
	return ""
}

// MoveStep is one leg of the return plan: moving a waste item into the
// undocking container.
type MoveStep struct {
	StepIndex     int    `json:"step_index"`
	ItemID        string `json:"item_id"`
	ItemName      string `json:"item_name"`
	FromContainer string `json:"from_container"`
	ToContainer   string `json:"to_container"`
}

// RetrievalStep mirrors retrieval.Step's shape for the plan's retrieve leg.
type RetrievalStep struct {
	StepIndex int    `json:"step_index"`
	Action    string `json:"action"`
	ItemID    string `json:"item_id"`
	ItemName  string `json:"item_name"`
}

// ManifestEntry is one selected item's disposal record.
type ManifestEntry struct {
	ItemID string `json:"item_id"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// ReturnPlan is the full output of ReturnPlan (§6).
type ReturnPlan struct {
	MoveSteps      []MoveStep      `json:"move_steps"`
	RetrievalSteps []RetrievalStep `json:"retrieval_steps"`
	Manifest       []ManifestEntry `json:"manifest"`
	TotalVolume    int64           `json:"total_volume"`
	TotalMass      float64         `json:"total_mass"`
}

// depthHeightQueue is a min-heap of waste items ordered by
// (start.d, start.h), grounded on lru.go's minHeap of cluster.LOM by
// access time.
type depthHeightQueue []*cluster.Item

func (q depthHeightQueue) Len() int { return len(q) }
func (q depthHeightQueue) Less(i, j int) bool {
	pi, pj := q[i].Placement.Pose.Start, q[j].Placement.Pose.Start
	if pi.D != pj.D {
		return pi.D < pj.D
	}
	return pi.H < pj.H
}
func (q depthHeightQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *depthHeightQueue) Push(x interface{}) { *q = append(*q, x.(*cluster.Item)) }
func (q *depthHeightQueue) Pop() interface{} {
	old := *q
	n := len(old)
	it := old[n-1]
	*q = old[:n-1]
	return it
}

// BuildReturnPlan greedily selects waste items nearest the opening and
// lowest in the stack, accumulating mass until the next candidate would
// exceed maxWeight, then stops -- no backtracking (§4.D "Return plan",
// scenario 6).
func (p *Planner) BuildReturnPlan(undockingContainerID string, maxWeight float64) *ReturnPlan {
	q := make(depthHeightQueue, 0)
	for _, it := range p.Items.All() {
		if it.IsWaste && it.Placed() {
			q = append(q, it)
		}
	}
	heap.Init(&q)

	plan := &ReturnPlan{}
	var accMass float64
	idx := 0
	next := func() int { idx++; return idx }

	for q.Len() > 0 {
		it := q[0]
		if accMass+it.Mass > maxWeight {
			break
		}
		heap.Pop(&q)
		accMass += it.Mass
		plan.TotalMass += it.Mass
		plan.TotalVolume += it.Dims.Volume()

		fromContainer := ""
		if it.Placement != nil {
			fromContainer = it.Placement.ContainerID
		}
		plan.MoveSteps = append(plan.MoveSteps, MoveStep{
			StepIndex: next(), ItemID: it.ID, ItemName: it.Name,
			FromContainer: fromContainer, ToContainer: undockingContainerID,
		})
		plan.RetrievalSteps = append(plan.RetrievalSteps, RetrievalStep{
			StepIndex: next(), Action: "retrieve", ItemID: it.ID, ItemName: it.Name,
		})
		plan.Manifest = append(plan.Manifest, ManifestEntry{
			ItemID: it.ID, Name: it.Name, Reason: it.WasteReason,
		})
	}
	return plan
}

// CompleteUndocking deletes every waste item currently in containerID,
// appending a disposal log entry for each. Physically removing the items
// makes a repeated call a no-op, satisfying §7's idempotence requirement.
// The container itself is never deleted.
func (p *Planner) CompleteUndocking(containerID, userID string, now time.Time) error {
	now = cmn.ToUTC(now)
	for _, it := range p.Items.All() {
		if !it.IsWaste || it.Placement == nil || it.Placement.ContainerID != containerID {
			continue
		}
		if err := p.Log.Append(cluster.LogEntry{
			Timestamp: now,
			UserID:    userID,
			Action:    cmn.ActDisposal,
			ItemID:    it.ID,
			Detail:    map[string]interface{}{"container_id": containerID, "undocked": true},
		}); err != nil {
			return err
		}
		if err := p.Items.Delete(it.ID); err != nil {
			return err
		}
		glog.V(3).Infof("waste: undocked %s from %s", it.ID, containerID)
	}
	return nil
}

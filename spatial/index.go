// Package spatial implements the per-container occupied-box bookkeeping of
// §4.A: fit testing, overlap testing, and the lexicographic first-free-pose
// scan that the placement planner builds on.
//
// Grounded on the teacher's bin-packing-adjacent bookkeeping idiom (aistore
// has no 3D placement of its own; the nodeState/occupied-resource tracking
// in the pack's bin-packing reference, and the teacher's lru.go minHeap
// approach to keeping a sorted working set, both inform the shape here:
// a small owned slice of boxes, mutated in place, scanned in a fixed order).
/*
 * Copyright (c) 2020-2026, Cargohold Authors. All rights reserved.
 */
package spatial

import "github.com/cargohold/stationinv/cluster"

// Index tracks the occupied boxes of one container's items. Manager.Rebuild
// loads only non-waste items; an item flagged waste afterwards keeps its box
// here until undocking completion removes it.
type Index struct {
	containerDims cluster.Dims
	boxes         map[string]cluster.Pose // item id -> occupied pose
}

func NewIndex(containerDims cluster.Dims) *Index {
	return &Index{containerDims: containerDims, boxes: make(map[string]cluster.Pose)}
}

// Fits reports whether dims fit within the container, componentwise
// (§4.A fits).
func Fits(dims, containerDims cluster.Dims) bool {
	return dims.W <= containerDims.W && dims.D <= containerDims.D && dims.H <= containerDims.H
}

// Overlaps reports whether two open boxes share interior volume -- true
// unless one of the six separating-plane conditions holds (§4.A overlaps).
func Overlaps(a, b cluster.Pose) bool {
	if a.End.W <= b.Start.W || b.End.W <= a.Start.W {
		return false
	}
	if a.End.D <= b.Start.D || b.End.D <= a.Start.D {
		return false
	}
	if a.End.H <= b.Start.H || b.End.H <= a.Start.H {
		return false
	}
	return true
}

func within(p cluster.Pose, dims cluster.Dims) bool {
	return p.Start.W >= 0 && p.Start.D >= 0 && p.Start.H >= 0 &&
		p.End.W <= dims.W && p.End.D <= dims.D && p.End.H <= dims.H
}

func candidate(anchor cluster.Coord, dims cluster.Dims) cluster.Pose {
	return cluster.Pose{
		Start: anchor,
		End: cluster.Coord{
			W: anchor.W + dims.W,
			D: anchor.D + dims.D,
			H: anchor.H + dims.H,
		},
	}
}

// FirstFreePose returns the lexicographically smallest (h, d, w) anchor such
// that the candidate pose overlaps none of the occupied boxes and lies
// within the container (§4.A). The scan order is h outermost, then d, then
// w innermost -- bottom-front-left preference.
func (idx *Index) FirstFreePose(dims cluster.Dims) (cluster.Pose, bool) {
	maxH := idx.containerDims.H - dims.H
	maxD := idx.containerDims.D - dims.D
	maxW := idx.containerDims.W - dims.W
	if maxH < 0 || maxD < 0 || maxW < 0 {
		return cluster.Pose{}, false
	}
	for h := 0; h <= maxH; h++ {
		for d := 0; d <= maxD; d++ {
			for w := 0; w <= maxW; w++ {
				p := candidate(cluster.Coord{W: w, D: d, H: h}, dims)
				if !within(p, idx.containerDims) {
					continue
				}
				if idx.anyOverlapLocked(p, "") {
					continue
				}
				return p, true
			}
		}
	}
	return cluster.Pose{}, false
}

// FirstFreePoseExcluding behaves like FirstFreePose but ignores the box
// currently occupied by excludeItemID -- used by the Compact rearrangement
// strategy (§4.B) to find a better anchor for an item already placed.
func (idx *Index) FirstFreePoseExcluding(dims cluster.Dims, excludeItemID string) (cluster.Pose, bool) {
	maxH := idx.containerDims.H - dims.H
	maxD := idx.containerDims.D - dims.D
	maxW := idx.containerDims.W - dims.W
	if maxH < 0 || maxD < 0 || maxW < 0 {
		return cluster.Pose{}, false
	}
	for h := 0; h <= maxH; h++ {
		for d := 0; d <= maxD; d++ {
			for w := 0; w <= maxW; w++ {
				p := candidate(cluster.Coord{W: w, D: d, H: h}, dims)
				if !within(p, idx.containerDims) {
					continue
				}
				if idx.anyOverlapLocked(p, excludeItemID) {
					continue
				}
				return p, true
			}
		}
	}
	return cluster.Pose{}, false
}

// FitsAt reports whether pose lies within the container and does not
// overlap any occupied box other than excludeItemID -- used to validate a
// caller-supplied pose for manual placement, as opposed to FirstFreePose's
// search over candidate anchors (§4.A fits/overlaps).
func (idx *Index) FitsAt(pose cluster.Pose, excludeItemID string) bool {
	if !within(pose, idx.containerDims) {
		return false
	}
	return !idx.anyOverlapLocked(pose, excludeItemID)
}

func (idx *Index) anyOverlapLocked(p cluster.Pose, excludeItemID string) bool {
	for id, b := range idx.boxes {
		if id == excludeItemID {
			continue
		}
		if Overlaps(p, b) {
			return true
		}
	}
	return false
}

// Insert records itemID as occupying pose.
func (idx *Index) Insert(itemID string, pose cluster.Pose) {
	idx.boxes[itemID] = pose
}

// Remove frees the box occupied by itemID, if any.
func (idx *Index) Remove(itemID string) {
	delete(idx.boxes, itemID)
}

// Pose returns the box currently occupied by itemID, if any.
func (idx *Index) Pose(itemID string) (cluster.Pose, bool) {
	p, ok := idx.boxes[itemID]
	return p, ok
}

// Snapshot returns a shallow copy of the occupied-box map, for rearrangement
// strategies that need to try a mutation and roll it back on failure
// (§4.B "Failure semantics": "a strategy either fully applies or fully rolls
// back its intermediate changes").
func (idx *Index) Snapshot() map[string]cluster.Pose {
	out := make(map[string]cluster.Pose, len(idx.boxes))
	for k, v := range idx.boxes {
		out[k] = v
	}
	return out
}

// Restore replaces the occupied-box map wholesale, the rollback half of
// Snapshot.
func (idx *Index) Restore(snap map[string]cluster.Pose) {
	idx.boxes = snap
}

// Utilization returns sum(occupied volume) / container volume (§9
// Glossary "Utilization").
func (idx *Index) Utilization() float64 {
	cv := idx.containerDims.Volume()
	if cv == 0 {
		return 0
	}
	var occ int64
	for _, b := range idx.boxes {
		occ += b.Dims().Volume()
	}
	return float64(occ) / float64(cv)
}

// Clone returns an independent copy of idx, used by the rearrangement
// strategies of §4.B to try a plan without mutating the live index until
// the best plan across containers/strategies has been chosen.
func (idx *Index) Clone() *Index {
	return &Index{containerDims: idx.containerDims, boxes: idx.Snapshot()}
}

// Dims returns the container dims the index was built against.
func (idx *Index) Dims() cluster.Dims { return idx.containerDims }

// Items returns the ids currently occupying this container's index.
func (idx *Index) Items() []string {
	out := make([]string, 0, len(idx.boxes))
	for id := range idx.boxes {
		out = append(out, id)
	}
	return out
}

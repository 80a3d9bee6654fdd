// Package cluster provides the domain types shared by every planner: Item,
// Container, Pose, and the log entry shape, plus the in-memory registries
// that index them (§9). Modelled on the teacher's cluster/map.go, which
// holds the cluster-wide Snode/Smap structs behind a typed, JSON-tagged,
// mutex-guarded registry.
/*
 * Copyright (c) 2020-2026, Cargohold Authors. All rights reserved.
 */
package cluster

import "time"

// Coord is a single (w, d, h) lattice point, in the container's local frame.
type Coord struct {
	W int `json:"w"`
	D int `json:"d"`
	H int `json:"h"`
}

// Dims is a positive (width, depth, height) triple.
type Dims struct {
	W int `json:"w"`
	D int `json:"d"`
	H int `json:"h"`
}

// Volume returns W*D*H.
func (d Dims) Volume() int64 { return int64(d.W) * int64(d.D) * int64(d.H) }

// Rotations returns the six axis-aligned permutations of d, identity first
// (§4.B.1: "Enumerate the six axis-aligned rotations... identity first, then
// the other five in lexicographic permutation order").
func (d Dims) Rotations() [6]Dims {
	w, dd, h := d.W, d.D, d.H
	return [6]Dims{
		{W: w, D: dd, H: h},
		{W: w, D: h, H: dd},
		{W: dd, D: w, H: h},
		{W: dd, D: h, H: w},
		{W: h, D: w, H: dd},
		{W: h, D: dd, H: w},
	}
}

// Pose is an axis-aligned box within a container: Start < End componentwise.
type Pose struct {
	Start Coord `json:"start"`
	End   Coord `json:"end"`
}

// Dims returns the pose's own extent, useful after a rotation has been
// picked and anchored.
func (p Pose) Dims() Dims {
	return Dims{W: p.End.W - p.Start.W, D: p.End.D - p.Start.D, H: p.End.H - p.Start.H}
}

// Placement is where an item currently sits.
type Placement struct {
	ContainerID string `json:"container_id"`
	Pose        Pose   `json:"pose"`
}

// Item is the unit of inventory (§3).
type Item struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Dims          Dims       `json:"dims"`
	Mass          float64    `json:"mass"`
	Priority      int        `json:"priority"`
	Expiry        *time.Time `json:"expiry,omitempty"`
	UsageLimit    *int       `json:"usage_limit,omitempty"`
	UsesRemaining *int       `json:"uses_remaining,omitempty"`
	PreferredZone string     `json:"preferred_zone"`
	Placement     *Placement `json:"placement,omitempty"`
	IsWaste       bool       `json:"is_waste"`
	WasteReason   string     `json:"waste_reason,omitempty"`
}

// Placed reports whether the item currently occupies space in a container.
func (it *Item) Placed() bool { return it.Placement != nil }

// Container is a rectangular box with a single open face at depth 0 (§3).
type Container struct {
	ID   string `json:"id"`
	Zone string `json:"zone"`
	Dims Dims   `json:"dims"`
}

// Fits reports whether dims fit within the container's own dims,
// componentwise (§4.A "fits").
func (c Container) Fits(dims Dims) bool {
	return dims.W <= c.Dims.W && dims.D <= c.Dims.D && dims.H <= c.Dims.H
}

// LogEntry is a single append-only record (§3 "Log entry").
type LogEntry struct {
	Timestamp time.Time              `json:"timestamp"`
	UserID    string                 `json:"user_id"`
	Action    string                 `json:"action"`
	ItemID    string                 `json:"item_id"`
	Detail    map[string]interface{} `json:"detail,omitempty"`
}

// Package service composes the five components behind the transport-agnostic
// request surface of §6, under the single-writer concurrency model of §5:
// placement, retrieval, waste identification, undocking completion, and
// simulation each take Core's exclusive lock; searches, return planning and
// log queries take its shared lock.
//
// Grounded on the teacher's xaction/registry.go, which guards a shared
// registry of running jobs behind one mtx and exposes a narrow set of
// methods that each acquire it for their duration -- Core plays the same
// role for the station's item/container/spatial state.
/*
 * Copyright (c) 2020-2026, Cargohold Authors. All rights reserved.
 */
package service

import (
	"sync"
	"time"

	"github.com/cargohold/stationinv/cluster"
	"github.com/cargohold/stationinv/cmn"
	"github.com/cargohold/stationinv/dbdriver"
	"github.com/cargohold/stationinv/eventlog"
	"github.com/cargohold/stationinv/placement"
	"github.com/cargohold/stationinv/retrieval"
	"github.com/cargohold/stationinv/simulate"
	"github.com/cargohold/stationinv/spatial"
	"github.com/cargohold/stationinv/waste"
	"github.com/golang/glog"
)

// Core is the process-wide singleton composing every component (§9 "Global
// services"). Constructed once at startup by cmd/stationinvd.
//
// admission bounds how many writer-lock calls the outermost handler may
// have in flight at once (§5: "the outermost request handler may run them
// on a worker pool"); inflight/stopping let Stop wait for those calls to
// drain before tearing the process down.
type Core struct {
	mtx sync.RWMutex

	Items      *cluster.ItemRegistry
	Containers *cluster.ContainerRegistry
	Spatial    *spatial.Manager
	Log        *eventlog.Log

	placement *placement.Planner
	retrieval *retrieval.Planner
	waste     *waste.Planner
	simulate  *simulate.Planner

	admission *cmn.DynSemaphore
	inflight  *cmn.TimeoutGroup
	stopping  *cmn.StopCh
}

// New wires every component against one shared db driver, the way
// cmd/stationinvd's entrypoint does at process start.
func New(db dbdriver.Driver) *Core {
	items := cluster.NewItemRegistry(db)
	containers := cluster.NewContainerRegistry(db)
	sp := spatial.NewManager()
	log := eventlog.New(db)
	return &Core{
		Items:      items,
		Containers: containers,
		Spatial:    sp,
		Log:        log,
		placement:  placement.New(items, containers, sp, log),
		retrieval:  retrieval.New(items),
		waste:      waste.New(items, log),
		simulate:   simulate.New(items, log),
		admission:  cmn.NewDynSemaphore(cmn.GCO().WorkerPoolSize),
		inflight:   cmn.NewTimeoutGroup(),
		stopping:   cmn.NewStopCh(),
	}
}

// admit gates entry onto a writer-lock call behind the worker-pool
// admission semaphore, bounded by Config.WriterLockTimeoutMS (§5
// "Timeouts are advisory and apply only at request ingress"), and tracks it
// as in-flight so Stop can drain cleanly. Returns false if the core is
// already stopping or the admission wait times out.
func (c *Core) admit() bool {
	select {
	case <-c.stopping.Listen():
		return false
	default:
	}
	timeout := time.Duration(cmn.GCO().WriterLockTimeoutMS) * time.Millisecond
	if !c.admission.AcquireTimeout(timeout) {
		return false
	}
	c.inflight.Add(1)
	return true
}

func (c *Core) release() {
	c.inflight.Done()
	c.admission.Release()
}

// Stop signals that no further calls should be admitted and waits up to
// timeout for in-flight writer-lock calls to drain (§5 "Timeouts are
// advisory and apply only at request ingress, never mid-mutation").
func (c *Core) Stop(timeout time.Duration) (drained bool) {
	c.stopping.Close()
	return !c.inflight.WaitTimeout(timeout)
}

// Load replays every persisted store into memory and rebuilds the spatial
// indices from the loaded placements (§9 "Global services", startup path).
func (c *Core) Load() error {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if err := c.Containers.Load(); err != nil {
		return err
	}
	if err := c.Items.Load(); err != nil {
		return err
	}
	if err := c.Log.Load(); err != nil {
		return err
	}
	c.Spatial.Rebuild(c.Containers.All(), c.Items.All())
	return nil
}

// PlaceBatch assigns each item a container and pose (§6 PlaceBatch).
func (c *Core) PlaceBatch(items []*cluster.Item, containers []*cluster.Container, userID string, now time.Time) (*placement.Result, error) {
	if !c.admit() {
		return nil, cmn.NewInternal("core is shutting down")
	}
	defer c.release()
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.placement.PlaceBatch(items, containers, userID, now)
}

// SearchResult is the response shape of Search (§6).
type SearchResult struct {
	Found          bool             `json:"found"`
	Item           *cluster.Item    `json:"item,omitempty"`
	RetrievalSteps []retrieval.Step `json:"retrieval_steps,omitempty"`
	TotalSteps     int              `json:"total_steps"`
}

// Search looks up an item by id first, falling back to a case-insensitive
// name search, and returns its retrieval plan (§6 Search).
func (c *Core) Search(query string) *SearchResult {
	c.mtx.RLock()
	defer c.mtx.RUnlock()

	item, ok := c.Items.Get(query)
	if !ok {
		matches := c.Items.FindByName(query)
		if len(matches) == 0 {
			return &SearchResult{Found: false}
		}
		item = matches[0]
	}
	steps := c.retrieval.Plan(item)
	return &SearchResult{Found: true, Item: item, RetrievalSteps: steps, TotalSteps: len(steps)}
}

// Retrieve executes item's retrieval plan against the live spatial index:
// blockers are lifted out and set back down at their original poses,
// target's placement is cleared, and its usage is consumed by one unit
// (§8 "After Retrieve(I)... uses_remaining decreases by exactly 1").
func (c *Core) Retrieve(itemID, userID string, now time.Time) error {
	if !c.admit() {
		return cmn.NewInternal("core is shutting down")
	}
	defer c.release()
	c.mtx.Lock()
	defer c.mtx.Unlock()
	now = cmn.ToUTC(now)

	item, ok := c.Items.Get(itemID)
	if !ok {
		return cmn.NewEntityNotFound("item", itemID)
	}
	if item.IsWaste {
		return cmn.NewConflictingState("cannot retrieve waste item %s", itemID)
	}
	if item.Placement == nil {
		return cmn.NewInvariantViolation("item %s has no placement", itemID)
	}
	containerID := item.Placement.ContainerID
	idx, ok := c.Spatial.Get(containerID)
	if !ok {
		return cmn.NewInternal("container %s has no spatial index", containerID)
	}

	steps := c.retrieval.Plan(item)
	idx.Remove(item.ID)
	item.Placement = nil

	if item.UsageLimit != nil && item.UsesRemaining != nil {
		remaining := *item.UsesRemaining - 1
		if remaining < 0 {
			remaining = 0
		}
		item.UsesRemaining = &remaining
		if remaining == 0 {
			item.IsWaste = true
			item.WasteReason = cmn.ReasonOutOfUses
		}
	}
	if err := c.Items.Put(item); err != nil {
		return err
	}

	if err := c.Log.Append(cluster.LogEntry{
		Timestamp: now, UserID: userID, Action: cmn.ActRetrieval, ItemID: item.ID,
		Detail: map[string]interface{}{"container_id": containerID, "steps": len(steps)},
	}); err != nil {
		return err
	}
	if item.IsWaste {
		if err := c.Log.Append(cluster.LogEntry{
			Timestamp: now, UserID: userID, Action: cmn.ActDisposal, ItemID: item.ID,
			Detail: map[string]interface{}{"reason": item.WasteReason},
		}); err != nil {
			return err
		}
	}
	glog.V(3).Infof("service: retrieved %s from %s (%d steps)", item.ID, containerID, len(steps))
	return nil
}

// Place manually places itemID into containerID at pose, validating the
// pose against the container's box and the other items already there
// (§4.A fits/overlaps; §7 InvariantViolation).
func (c *Core) Place(itemID, userID, containerID string, pose cluster.Pose, now time.Time) error {
	if !c.admit() {
		return cmn.NewInternal("core is shutting down")
	}
	defer c.release()
	c.mtx.Lock()
	defer c.mtx.Unlock()
	now = cmn.ToUTC(now)

	item, ok := c.Items.Get(itemID)
	if !ok {
		return cmn.NewEntityNotFound("item", itemID)
	}
	if item.IsWaste {
		return cmn.NewConflictingState("cannot place waste item %s", itemID)
	}
	container, ok := c.Containers.Get(containerID)
	if !ok {
		return cmn.NewEntityNotFound("container", containerID)
	}
	idx := c.Spatial.Ensure(containerID, container.Dims)
	if !idx.FitsAt(pose, item.ID) {
		return cmn.NewInvariantViolation("pose %+v does not fit in container %s without overlap", pose, containerID)
	}

	if item.Placement != nil {
		if oldIdx, ok := c.Spatial.Get(item.Placement.ContainerID); ok {
			oldIdx.Remove(item.ID)
		}
	}
	idx.Insert(item.ID, pose)
	item.Placement = &cluster.Placement{ContainerID: containerID, Pose: pose}
	if err := c.Items.Put(item); err != nil {
		return err
	}
	return c.Log.Append(cluster.LogEntry{
		Timestamp: now, UserID: userID, Action: cmn.ActPlacement, ItemID: item.ID,
		Detail: map[string]interface{}{"container_id": containerID, "manual": true},
	})
}

// WasteIdentify flags newly expired or depleted items (§4.D "Waste
// identification").
func (c *Core) WasteIdentify(userID string, now time.Time) ([]waste.Identified, error) {
	if !c.admit() {
		return nil, cmn.NewInternal("core is shutting down")
	}
	defer c.release()
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.waste.Identify(userID, now)
}

// ReturnPlan computes a weight-capped return plan (§4.D "Return plan"). It
// only reads waste items already flagged, so it runs under the shared lock.
func (c *Core) ReturnPlan(undockingContainerID string, maxWeight float64) *waste.ReturnPlan {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	return c.waste.BuildReturnPlan(undockingContainerID, maxWeight)
}

// CompleteUndocking deletes every waste item in containerID (§4.D "Complete
// undocking") and frees their boxes in the container's spatial index.
func (c *Core) CompleteUndocking(containerID, userID string, now time.Time) error {
	if !c.admit() {
		return cmn.NewInternal("core is shutting down")
	}
	defer c.release()
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if err := c.waste.CompleteUndocking(containerID, userID, now); err != nil {
		return err
	}
	if idx, ok := c.Spatial.Get(containerID); ok {
		for _, id := range idx.Items() {
			if _, exists := c.Items.Get(id); !exists {
				idx.Remove(id)
			}
		}
	}
	return nil
}

// Simulate advances the virtual clock (§4.E).
func (c *Core) Simulate(req simulate.Request, userID string, now time.Time) (*simulate.Report, error) {
	if !c.admit() {
		return nil, cmn.NewInternal("core is shutting down")
	}
	defer c.release()
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.simulate.Advance(req, userID, now)
}

// Logs queries the event log within [start, end] (§4.F).
func (c *Core) Logs(start, end time.Time, f eventlog.Filter) []cluster.LogEntry {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	return c.Log.Query(start, end, f)
}

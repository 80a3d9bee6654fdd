package cluster

import (
	"sort"
	"strings"
	"sync"

	"github.com/cargohold/stationinv/cmn"
	"github.com/cargohold/stationinv/dbdriver"
)

const (
	itemsCollection      = "items"
	containersCollection = "containers"
)

// ItemRegistry is the process-wide item store: a typed, mutex-guarded map
// backed by dbdriver, plus the two indices §9 calls out explicitly --
// container_id -> item_ids (to avoid scanning all items on retrieval
// planning) and name -> item_ids (to support Search by name, §6).
//
// Constructed once at startup and torn down together with the rest of the
// global services (§9 "Global services").
type ItemRegistry struct {
	mtx       sync.RWMutex
	byID      map[string]*Item
	byName    map[string]map[string]struct{} // lowercased name -> set of ids
	byContID  map[string]map[string]struct{} // container id -> set of ids
	db        dbdriver.Driver
}

func NewItemRegistry(db dbdriver.Driver) *ItemRegistry {
	return &ItemRegistry{
		byID:     make(map[string]*Item),
		byName:   make(map[string]map[string]struct{}),
		byContID: make(map[string]map[string]struct{}),
		db:       db,
	}
}

// Load replaces the in-memory registry with the items persisted in the
// underlying store -- called once at startup.
func (r *ItemRegistry) Load() error {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	keys, err := r.db.List(itemsCollection, "")
	if err != nil {
		if cmn.IsNotFound(err) {
			return nil
		}
		return err
	}
	for _, key := range keys {
		var it Item
		s, err := r.db.GetStringRaw(key)
		if err != nil {
			return err
		}
		if err := cmn.UnmarshalString(s, &it); err != nil {
			return err
		}
		r.putLocked(&it)
	}
	return nil
}

func (r *ItemRegistry) putLocked(it *Item) {
	r.byID[it.ID] = it
	r.indexNameLocked(it)
	r.indexContainerLocked(it)
}

func (r *ItemRegistry) indexNameLocked(it *Item) {
	key := strings.ToLower(it.Name)
	set, ok := r.byName[key]
	if !ok {
		set = make(map[string]struct{})
		r.byName[key] = set
	}
	set[it.ID] = struct{}{}
}

func (r *ItemRegistry) indexContainerLocked(it *Item) {
	if it.Placement == nil {
		return
	}
	set, ok := r.byContID[it.Placement.ContainerID]
	if !ok {
		set = make(map[string]struct{})
		r.byContID[it.Placement.ContainerID] = set
	}
	set[it.ID] = struct{}{}
}

func (r *ItemRegistry) unindexContainerLocked(it *Item, containerID string) {
	if set, ok := r.byContID[containerID]; ok {
		delete(set, it.ID)
	}
}

// Put inserts or replaces an item, persisting it and refreshing its
// indices. Replace removes the old placement index entry first.
func (r *ItemRegistry) Put(it *Item) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	if old, ok := r.byID[it.ID]; ok && old.Placement != nil {
		r.unindexContainerLocked(old, old.Placement.ContainerID)
	}
	if err := r.persistLocked(it); err != nil {
		return err
	}
	r.putLocked(it)
	return nil
}

func (r *ItemRegistry) persistLocked(it *Item) error {
	return r.db.Set(itemsCollection, it.ID, it)
}

// Get returns a copy-by-pointer lookup of an item by id.
func (r *ItemRegistry) Get(id string) (*Item, bool) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	it, ok := r.byID[id]
	return it, ok
}

// FindByName returns every item whose name contains the substring name,
// case-insensitively (§6 Search(itemId | itemName); supplemented per
// SPEC_FULL.md's "Search by name" feature).
func (r *ItemRegistry) FindByName(name string) []*Item {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	needle := strings.ToLower(name)
	var out []*Item
	for key, set := range r.byName {
		if !strings.Contains(key, needle) {
			continue
		}
		for id := range set {
			out = append(out, r.byID[id])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// InContainer returns the non-waste items currently placed in containerID,
// the index §9 requires to avoid a full item scan during retrieval planning.
func (r *ItemRegistry) InContainer(containerID string) []*Item {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	set := r.byContID[containerID]
	out := make([]*Item, 0, len(set))
	for id := range set {
		it := r.byID[id]
		if it != nil && !it.IsWaste {
			out = append(out, it)
		}
	}
	return out
}

// All returns every item currently known, waste included.
func (r *ItemRegistry) All() []*Item {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	out := make([]*Item, 0, len(r.byID))
	for _, it := range r.byID {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Delete physically removes an item -- only ever called by the undocking
// completion step of §4.D.
func (r *ItemRegistry) Delete(id string) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	it, ok := r.byID[id]
	if !ok {
		return dbdriver.NewErrNotFound(itemsCollection, id)
	}
	if err := r.db.Delete(itemsCollection, id); err != nil {
		return err
	}
	delete(r.byID, id)
	if set, ok := r.byName[strings.ToLower(it.Name)]; ok {
		delete(set, id)
	}
	if it.Placement != nil {
		r.unindexContainerLocked(it, it.Placement.ContainerID)
	}
	return nil
}

// ContainerRegistry is the process-wide container store (§9 "Ownership and
// back-references": containers own the set of placed items via the
// ItemRegistry's container index, so this store stays a plain typed map).
type ContainerRegistry struct {
	mtx  sync.RWMutex
	byID map[string]*Container
	db   dbdriver.Driver
}

func NewContainerRegistry(db dbdriver.Driver) *ContainerRegistry {
	return &ContainerRegistry{byID: make(map[string]*Container), db: db}
}

func (r *ContainerRegistry) Load() error {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	keys, err := r.db.List(containersCollection, "")
	if err != nil {
		if cmn.IsNotFound(err) {
			return nil
		}
		return err
	}
	for _, key := range keys {
		var c Container
		s, err := r.db.GetStringRaw(key)
		if err != nil {
			return err
		}
		if err := cmn.UnmarshalString(s, &c); err != nil {
			return err
		}
		cp := c
		r.byID[cp.ID] = &cp
	}
	return nil
}

func (r *ContainerRegistry) Put(c *Container) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	if err := r.db.Set(containersCollection, c.ID, c); err != nil {
		return err
	}
	r.byID[c.ID] = c
	return nil
}

func (r *ContainerRegistry) Get(id string) (*Container, bool) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	c, ok := r.byID[id]
	return c, ok
}

func (r *ContainerRegistry) All() []*Container {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	out := make([]*Container, 0, len(r.byID))
	for _, c := range r.byID {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ReplaceAll performs the full-replace ingestion semantics of §6: clears
// the collection, then installs the given containers.
func (r *ContainerRegistry) ReplaceAll(containers []*Container) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	if err := r.db.DeleteCollection(containersCollection); err != nil && !cmn.IsNotFound(err) {
		return err
	}
	r.byID = make(map[string]*Container, len(containers))
	for _, c := range containers {
		if err := r.db.Set(containersCollection, c.ID, c); err != nil {
			return err
		}
		r.byID[c.ID] = c
	}
	return nil
}

// ReplaceAll for items mirrors ContainerRegistry.ReplaceAll (§6 "Ingestion
// is a full replace of the corresponding store").
func (r *ItemRegistry) ReplaceAll(items []*Item) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	if err := r.db.DeleteCollection(itemsCollection); err != nil && !cmn.IsNotFound(err) {
		return err
	}
	r.byID = make(map[string]*Item)
	r.byName = make(map[string]map[string]struct{})
	r.byContID = make(map[string]map[string]struct{})
	for _, it := range items {
		if err := r.persistLocked(it); err != nil {
			return err
		}
		r.putLocked(it)
	}
	return nil
}

package placement_test

import (
	"testing"
	"time"

	"github.com/cargohold/stationinv/cluster"
	"github.com/cargohold/stationinv/dbdriver"
	"github.com/cargohold/stationinv/eventlog"
	"github.com/cargohold/stationinv/placement"
	"github.com/cargohold/stationinv/spatial"
	"github.com/stretchr/testify/require"
)

func newPlanner(t *testing.T) *placement.Planner {
	t.Helper()
	db, err := dbdriver.NewBuntDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	items := cluster.NewItemRegistry(db)
	containers := cluster.NewContainerRegistry(db)
	sp := spatial.NewManager()
	log := eventlog.New(db)
	return placement.New(items, containers, sp, log)
}

// Scenario 1: single item, single container, trivial fit.
func TestPlaceBatch_TrivialFit(t *testing.T) {
	p := newPlanner(t)
	cA := &cluster.Container{ID: "cA", Zone: "Lab", Dims: cluster.Dims{W: 10, D: 10, H: 10}}
	i1 := &cluster.Item{ID: "i1", Dims: cluster.Dims{W: 2, D: 2, H: 2}, Priority: 50, PreferredZone: "Lab"}

	res, err := p.PlaceBatch([]*cluster.Item{i1}, []*cluster.Container{cA}, "u1", time.Now())
	require.NoError(t, err)
	require.Len(t, res.Assignments, 1)
	require.Equal(t, "cA", res.Assignments[0].ContainerID)
	require.Equal(t, cluster.Coord{W: 0, D: 0, H: 0}, res.Assignments[0].Pose.Start)
	require.Equal(t, cluster.Coord{W: 2, D: 2, H: 2}, res.Assignments[0].Pose.End)
	require.InDelta(t, 0.008, res.Utilization["cA"], 1e-9)
	require.Empty(t, res.Unplaced)
}

// Scenario 2: preferred zone respected.
func TestPlaceBatch_PreferredZone(t *testing.T) {
	p := newPlanner(t)
	cA := &cluster.Container{ID: "cA", Zone: "Lab", Dims: cluster.Dims{W: 5, D: 5, H: 5}}
	cB := &cluster.Container{ID: "cB", Zone: "Storage", Dims: cluster.Dims{W: 5, D: 5, H: 5}}
	i1 := &cluster.Item{ID: "i1", Dims: cluster.Dims{W: 2, D: 2, H: 2}, Priority: 50, PreferredZone: "Storage"}

	res, err := p.PlaceBatch([]*cluster.Item{i1}, []*cluster.Container{cA, cB}, "u1", time.Now())
	require.NoError(t, err)
	require.Len(t, res.Assignments, 1)
	require.Equal(t, "cB", res.Assignments[0].ContainerID)
}

// Scenario 3: priority ordering -- higher priority item claims the only spot.
func TestPlaceBatch_PriorityOrdering(t *testing.T) {
	p := newPlanner(t)
	cA := &cluster.Container{ID: "cA", Zone: "Lab", Dims: cluster.Dims{W: 4, D: 4, H: 4}}
	i1 := &cluster.Item{ID: "i1", Dims: cluster.Dims{W: 3, D: 3, H: 3}, Priority: 10}
	i2 := &cluster.Item{ID: "i2", Dims: cluster.Dims{W: 3, D: 3, H: 3}, Priority: 90}

	res, err := p.PlaceBatch([]*cluster.Item{i1, i2}, []*cluster.Container{cA}, "u1", time.Now())
	require.NoError(t, err)
	require.Len(t, res.Assignments, 1)
	require.Equal(t, "i2", res.Assignments[0].ItemID)
	require.Equal(t, cluster.Coord{W: 0, D: 0, H: 0}, res.Assignments[0].Pose.Start)
	require.Len(t, res.Unplaced, 1)
	require.Equal(t, "i1", res.Unplaced[0].ItemID)
}

func TestPlaceBatch_RotationAllowsFit(t *testing.T) {
	p := newPlanner(t)
	cA := &cluster.Container{ID: "cA", Zone: "Lab", Dims: cluster.Dims{W: 2, D: 5, H: 5}}
	// Only fits if rotated so the long axis (5) aligns with depth or height.
	i1 := &cluster.Item{ID: "i1", Dims: cluster.Dims{W: 5, D: 2, H: 2}, Priority: 50}

	res, err := p.PlaceBatch([]*cluster.Item{i1}, []*cluster.Container{cA}, "u1", time.Now())
	require.NoError(t, err)
	require.Len(t, res.Assignments, 1)
	require.Empty(t, res.Unplaced)
}

func TestPlaceBatch_DemoteLowPriorityFreesSpace(t *testing.T) {
	p := newPlanner(t)
	// cA is large enough for either item; cB only large enough for the
	// low-priority one. Placing low in a corner of cA blocks the
	// high-priority item from fitting directly; the only way to place it
	// is to demote low into cB first.
	cA := &cluster.Container{ID: "cA", Zone: "Lab", Dims: cluster.Dims{W: 2, D: 2, H: 2}}
	cB := &cluster.Container{ID: "cB", Zone: "Lab", Dims: cluster.Dims{W: 1, D: 1, H: 1}}
	low := &cluster.Item{ID: "low", Dims: cluster.Dims{W: 1, D: 1, H: 1}, Priority: 5}

	res, err := p.PlaceBatch([]*cluster.Item{low}, []*cluster.Container{cA, cB}, "u1", time.Now())
	require.NoError(t, err)
	require.Len(t, res.Assignments, 1)
	require.Equal(t, "cA", res.Assignments[0].ContainerID)

	high := &cluster.Item{ID: "high", Dims: cluster.Dims{W: 2, D: 2, H: 2}, Priority: 95}
	res2, err := p.PlaceBatch([]*cluster.Item{high}, []*cluster.Container{cA, cB}, "u1", time.Now())
	require.NoError(t, err)
	require.Empty(t, res2.Unplaced)
	require.Len(t, res2.Assignments, 1)
	require.Equal(t, "cA", res2.Assignments[0].ContainerID)
	require.True(t, len(res2.Rearrangements) >= 1, "expected demotion of 'low' to be recorded as a move")
	require.Equal(t, "low", res2.Rearrangements[0].ItemID)
	require.Equal(t, "cB", res2.Rearrangements[0].ToContainer)
}

// When demoting a low-priority item, its own PreferredZone container should
// be tried before any other container with free space, even when that other
// container appears earlier in the input list (§4.B "Demote low priority"
// re-homes using the same placement pass as a fresh placement).
func TestPlaceBatch_DemoteLowPriorityPrefersItsOwnZone(t *testing.T) {
	p := newPlanner(t)
	cA := &cluster.Container{ID: "cA", Zone: "Lab", Dims: cluster.Dims{W: 2, D: 2, H: 2}}
	cOther := &cluster.Container{ID: "cOther", Zone: "Other", Dims: cluster.Dims{W: 1, D: 1, H: 1}}
	cMatch := &cluster.Container{ID: "cMatch", Zone: "Match", Dims: cluster.Dims{W: 1, D: 1, H: 1}}
	low := &cluster.Item{ID: "low", Dims: cluster.Dims{W: 1, D: 1, H: 1}, Priority: 5, PreferredZone: "Match"}

	// Seed low into cA alone; offered all three, it would go straight to
	// its own zone's container.
	containers := []*cluster.Container{cA, cOther, cMatch}
	res, err := p.PlaceBatch([]*cluster.Item{low}, []*cluster.Container{cA}, "u1", time.Now())
	require.NoError(t, err)
	require.Len(t, res.Assignments, 1)
	require.Equal(t, "cA", res.Assignments[0].ContainerID)

	high := &cluster.Item{ID: "high", Dims: cluster.Dims{W: 2, D: 2, H: 2}, Priority: 95}
	res2, err := p.PlaceBatch([]*cluster.Item{high}, containers, "u1", time.Now())
	require.NoError(t, err)
	require.Empty(t, res2.Unplaced)
	require.Len(t, res2.Rearrangements, 1)
	require.Equal(t, "low", res2.Rearrangements[0].ItemID)
	require.Equal(t, "cMatch", res2.Rearrangements[0].ToContainer)
}

package waste_test

import (
	"testing"
	"time"

	"github.com/cargohold/stationinv/cluster"
	"github.com/cargohold/stationinv/dbdriver"
	"github.com/cargohold/stationinv/eventlog"
	"github.com/cargohold/stationinv/waste"
	"github.com/stretchr/testify/require"
)

func newPlanner(t *testing.T) (*waste.Planner, *cluster.ItemRegistry) {
	t.Helper()
	db, err := dbdriver.NewBuntDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	items := cluster.NewItemRegistry(db)
	log := eventlog.New(db)
	return waste.New(items, log), items
}

func mustInt(n int) *int { return &n }

// Scenario 5: expiry flags waste, second call is a no-op.
func TestIdentify_ExpiredItemFlaggedOnce(t *testing.T) {
	p, items := newPlanner(t)
	expiry := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC)
	it := &cluster.Item{ID: "i1", Name: "stale", Expiry: &expiry}
	require.NoError(t, items.Put(it))

	out, err := p.Identify("u1", now)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "Expired", out[0].Reason)

	updated, ok := items.Get("i1")
	require.True(t, ok)
	require.True(t, updated.IsWaste)

	out2, err := p.Identify("u1", now)
	require.NoError(t, err)
	require.Empty(t, out2)
}

func TestIdentify_OutOfUses(t *testing.T) {
	p, items := newPlanner(t)
	it := &cluster.Item{ID: "i1", Name: "tool", UsageLimit: mustInt(3), UsesRemaining: mustInt(0)}
	require.NoError(t, items.Put(it))

	out, err := p.Identify("u1", time.Now())
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "Out of Uses", out[0].Reason)
}

// Scenario 6: return plan with weight cap.
func TestBuildReturnPlan_WeightCap(t *testing.T) {
	p, items := newPlanner(t)
	mk := func(id string, mass float64, d, h int) *cluster.Item {
		return &cluster.Item{
			ID: id, Name: id, Mass: mass, IsWaste: true,
			Placement: &cluster.Placement{ContainerID: "cA", Pose: cluster.Pose{
				Start: cluster.Coord{W: 0, D: d, H: h}, End: cluster.Coord{W: 1, D: d + 1, H: h + 1},
			}},
		}
	}
	w1 := mk("w1", 5, 0, 0)
	w2 := mk("w2", 4, 1, 0)
	w3 := mk("w3", 2, 2, 0)
	require.NoError(t, items.Put(w1))
	require.NoError(t, items.Put(w2))
	require.NoError(t, items.Put(w3))

	plan := p.BuildReturnPlan("undock", 8)
	require.Len(t, plan.Manifest, 1)
	require.Equal(t, "w1", plan.Manifest[0].ItemID)
	require.InDelta(t, 5, plan.TotalMass, 1e-9)
	require.Len(t, plan.MoveSteps, 1)
	require.Equal(t, "undock", plan.MoveSteps[0].ToContainer)
	require.Len(t, plan.RetrievalSteps, 1)
}

func TestBuildReturnPlan_IgnoresNonWasteAndUnplaced(t *testing.T) {
	p, items := newPlanner(t)
	active := &cluster.Item{ID: "active", Mass: 1, IsWaste: false}
	unplacedWaste := &cluster.Item{ID: "floating", Mass: 1, IsWaste: true}
	require.NoError(t, items.Put(active))
	require.NoError(t, items.Put(unplacedWaste))

	plan := p.BuildReturnPlan("undock", 100)
	require.Empty(t, plan.Manifest)
}

func TestCompleteUndocking_IdempotentAndScoped(t *testing.T) {
	p, items := newPlanner(t)
	w := &cluster.Item{
		ID: "w1", Name: "w1", IsWaste: true,
		Placement: &cluster.Placement{ContainerID: "undock", Pose: cluster.Pose{
			Start: cluster.Coord{W: 0, D: 0, H: 0}, End: cluster.Coord{W: 1, D: 1, H: 1},
		}},
	}
	elsewhere := &cluster.Item{
		ID: "w2", Name: "w2", IsWaste: true,
		Placement: &cluster.Placement{ContainerID: "cA", Pose: cluster.Pose{
			Start: cluster.Coord{W: 0, D: 0, H: 0}, End: cluster.Coord{W: 1, D: 1, H: 1},
		}},
	}
	require.NoError(t, items.Put(w))
	require.NoError(t, items.Put(elsewhere))

	require.NoError(t, p.CompleteUndocking("undock", "u1", time.Now()))
	_, ok := items.Get("w1")
	require.False(t, ok)
	_, ok = items.Get("w2")
	require.True(t, ok, "item in a different container must be untouched")

	require.NoError(t, p.CompleteUndocking("undock", "u1", time.Now()))
}

package simulate_test

import (
	"testing"
	"time"

	"github.com/cargohold/stationinv/cluster"
	"github.com/cargohold/stationinv/dbdriver"
	"github.com/cargohold/stationinv/eventlog"
	"github.com/cargohold/stationinv/simulate"
	"github.com/stretchr/testify/require"
)

func newPlanner(t *testing.T) (*simulate.Planner, *cluster.ItemRegistry) {
	t.Helper()
	db, err := dbdriver.NewBuntDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	items := cluster.NewItemRegistry(db)
	log := eventlog.New(db)
	return simulate.New(items, log), items
}

func ip(n int) *int { return &n }

func TestAdvance_RequiresExactlyOneTimeMode(t *testing.T) {
	p, _ := newPlanner(t)
	now := time.Now()

	_, err := p.Advance(simulate.Request{}, "u1", now)
	require.Error(t, err)

	future := now.AddDate(0, 0, 3)
	_, err = p.Advance(simulate.Request{NumOfDays: 2, ToTimestamp: &future}, "u1", now)
	require.Error(t, err)
}

func TestAdvance_UsageConsumptionAndDepletion(t *testing.T) {
	p, items := newPlanner(t)
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	it := &cluster.Item{ID: "i1", Name: "battery", UsageLimit: ip(5), UsesRemaining: ip(2)}
	require.NoError(t, items.Put(it))

	report, err := p.Advance(simulate.Request{NumOfDays: 5, ItemsPerDay: []string{"i1"}}, "u1", now)
	require.NoError(t, err)
	require.Equal(t, now.AddDate(0, 0, 5), report.TargetTime)
	require.Len(t, report.ItemsUsed, 1)
	require.Equal(t, 2, report.ItemsUsed[0].UsesConsumed)
	require.Equal(t, 0, report.ItemsUsed[0].UsesRemaining)
	require.Len(t, report.ItemsDepleted, 1)
	require.Equal(t, "i1", report.ItemsDepleted[0].ItemID)

	updated, ok := items.Get("i1")
	require.True(t, ok)
	require.True(t, updated.IsWaste)
	require.Equal(t, "Out of Uses", updated.WasteReason)
}

func TestAdvance_ExpirySweep(t *testing.T) {
	p, items := newPlanner(t)
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	expiry := time.Date(2030, 1, 3, 0, 0, 0, 0, time.UTC)
	it := &cluster.Item{ID: "i1", Name: "milk", Expiry: &expiry}
	require.NoError(t, items.Put(it))

	report, err := p.Advance(simulate.Request{NumOfDays: 5}, "u1", now)
	require.NoError(t, err)
	require.Len(t, report.ItemsExpired, 1)
	require.Equal(t, "i1", report.ItemsExpired[0].ItemID)

	updated, ok := items.Get("i1")
	require.True(t, ok)
	require.True(t, updated.IsWaste)
	require.Equal(t, "Expired", updated.WasteReason)
}

func TestAdvance_ToTimestampMode(t *testing.T) {
	p, _ := newPlanner(t)
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	target := now.AddDate(0, 0, 10)

	report, err := p.Advance(simulate.Request{ToTimestamp: &target}, "u1", now)
	require.NoError(t, err)
	require.Equal(t, target, report.TargetTime)
}

func TestAdvance_SkipsWasteAndMissingItems(t *testing.T) {
	p, items := newPlanner(t)
	now := time.Now()
	waste := &cluster.Item{ID: "w1", Name: "junk", IsWaste: true, UsageLimit: ip(5), UsesRemaining: ip(5)}
	require.NoError(t, items.Put(waste))

	report, err := p.Advance(simulate.Request{NumOfDays: 1, ItemsPerDay: []string{"w1", "ghost"}}, "u1", now)
	require.NoError(t, err)
	require.Empty(t, report.ItemsUsed)
}

package ingest_test

import (
	"strings"
	"testing"
	"time"

	"github.com/cargohold/stationinv/cluster"
	"github.com/cargohold/stationinv/dbdriver"
	"github.com/cargohold/stationinv/ingest"
	"github.com/cargohold/stationinv/service"
	"github.com/stretchr/testify/require"
)

func TestItems_ValidRows(t *testing.T) {
	csvData := `Item ID,Name,Width,Depth,Height,Mass,Priority,Expiry Date,Usage Limit,Preferred Zone
i1,Food Packet,2,2,2,1.5,80,2030-01-01T00:00:00Z,10,Storage
i2,Wrench,1,1,1,0.5,50,,,
`
	res, err := ingest.Items(strings.NewReader(csvData))
	require.NoError(t, err)
	require.Empty(t, res.Errors)
	require.Len(t, res.Items, 2)
	require.Equal(t, "i1", res.Items[0].ID)
	require.NotNil(t, res.Items[0].Expiry)
	require.NotNil(t, res.Items[0].UsageLimit)
	require.Equal(t, 10, *res.Items[0].UsageLimit)
	require.Nil(t, res.Items[1].Expiry)
}

func TestItems_PartialFailureReported(t *testing.T) {
	csvData := `Item ID,Name,Width,Depth,Height,Mass,Priority,Expiry Date,Usage Limit,Preferred Zone
i1,Good,2,2,2,1.5,80,,,
,Bad,2,2,2,1.5,80,,,
i3,AlsoBad,notanumber,2,2,1.5,80,,,
`
	res, err := ingest.Items(strings.NewReader(csvData))
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	require.Len(t, res.Errors, 2)
	require.Equal(t, 3, res.Errors[0].Row)
	require.Equal(t, 4, res.Errors[1].Row)
}

func TestContainers_ValidRows(t *testing.T) {
	csvData := `Container ID,Zone,Width,Depth,Height
cA,Lab,10,10,10
`
	res, err := ingest.Containers(strings.NewReader(csvData))
	require.NoError(t, err)
	require.Empty(t, res.Errors)
	require.Len(t, res.Containers, 1)
	require.Equal(t, "Lab", res.Containers[0].Zone)
}

func TestExportArrangement_OnlyPlacedItems(t *testing.T) {
	items := []*cluster.Item{
		{ID: "i1", Placement: &cluster.Placement{
			ContainerID: "cA",
			Pose: cluster.Pose{Start: cluster.Coord{W: 0, D: 0, H: 0}, End: cluster.Coord{W: 2, D: 2, H: 2}},
		}},
		{ID: "i2"}, // unplaced, must be skipped
	}
	var buf strings.Builder
	require.NoError(t, ingest.ExportArrangement(&buf, items))
	out := buf.String()
	require.Contains(t, out, "i1,cA,\"(0,0,0),(2,2,2)\"")
	require.NotContains(t, out, "i2")
}

func TestParseArrangement_PartialFailureReported(t *testing.T) {
	csvData := `Item ID,Container ID,Pose
i1,cA,"(0,0,0),(2,2,2)"
,cA,"(0,0,0),(2,2,2)"
i3,cA,garbage
`
	res, err := ingest.ParseArrangement(strings.NewReader(csvData))
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	require.Len(t, res.Errors, 2)
	require.Equal(t, 3, res.Errors[0].Row)
	require.Equal(t, 4, res.Errors[1].Row)
}

// TestImportArrangement_RoundTripsExport exercises §8's "exporting
// arrangement then re-importing yields identical placements" property
// end to end against a live service.Core.
func TestImportArrangement_RoundTripsExport(t *testing.T) {
	db, err := dbdriver.NewBuntDB(":memory:")
	require.NoError(t, err)
	defer db.Close()
	core := service.New(db)

	cA := &cluster.Container{ID: "cA", Zone: "Lab", Dims: cluster.Dims{W: 10, D: 10, H: 10}}
	require.NoError(t, core.Containers.Put(cA))
	i1 := &cluster.Item{ID: "i1", Dims: cluster.Dims{W: 2, D: 2, H: 2}}
	require.NoError(t, core.Items.Put(i1))
	originalPose := cluster.Pose{Start: cluster.Coord{W: 1, D: 1, H: 1}, End: cluster.Coord{W: 3, D: 3, H: 3}}
	require.NoError(t, core.Place("i1", "u1", "cA", originalPose, time.Now()))

	placed, ok := core.Items.Get("i1")
	require.True(t, ok)
	var buf strings.Builder
	require.NoError(t, ingest.ExportArrangement(&buf, []*cluster.Item{placed}))

	idx, ok := core.Spatial.Get("cA")
	require.True(t, ok)
	idx.Remove("i1")
	placed.Placement = nil
	require.NoError(t, core.Items.Put(placed))

	res, err := ingest.ImportArrangement(strings.NewReader(buf.String()), core, "u1", time.Now())
	require.NoError(t, err)
	require.Empty(t, res.Errors)
	require.Equal(t, []string{"i1"}, res.Placed)

	after, ok := core.Items.Get("i1")
	require.True(t, ok)
	require.NotNil(t, after.Placement)
	require.Equal(t, "cA", after.Placement.ContainerID)
	require.Equal(t, originalPose, after.Placement.Pose)
}

func TestImportArrangement_PlaceRejectionReported(t *testing.T) {
	db, err := dbdriver.NewBuntDB(":memory:")
	require.NoError(t, err)
	defer db.Close()
	core := service.New(db)

	cA := &cluster.Container{ID: "cA", Zone: "Lab", Dims: cluster.Dims{W: 4, D: 4, H: 4}}
	require.NoError(t, core.Containers.Put(cA))
	occupant := &cluster.Item{ID: "occ", Dims: cluster.Dims{W: 2, D: 2, H: 2}}
	require.NoError(t, core.Items.Put(occupant))
	require.NoError(t, core.Place("occ", "u1", "cA", cluster.Pose{Start: cluster.Coord{}, End: cluster.Coord{W: 2, D: 2, H: 2}}, time.Now()))

	newcomer := &cluster.Item{ID: "new", Dims: cluster.Dims{W: 2, D: 2, H: 2}}
	require.NoError(t, core.Items.Put(newcomer))

	csvData := "Item ID,Container ID,Pose\nnew,cA,\"(0,0,0),(2,2,2)\"\n"
	res, err := ingest.ImportArrangement(strings.NewReader(csvData), core, "u1", time.Now())
	require.NoError(t, err)
	require.Empty(t, res.Placed)
	require.Len(t, res.Errors, 1)
	require.Equal(t, "new", res.Errors[0].ItemID)
}

// Package ingest converts the CSV-shaped rows of the external interface
// (§6 "Ingestion (CSV-like)") into the typed cluster.Item/cluster.Container
// records the core operates on, and renders the exported arrangement back
// out as CSV and parses it back in (§6 "Exported arrangement"; §8's
// export-then-reimport property).
//
// Per §1, the CSV surface itself is an external collaborator, not core
// planning logic; this package is the one seam where the core agrees to
// accept loosely typed rows and convert them once into validated records
// (§8 "Polymorphic item dicts vs typed records") -- downstream code never
// sees a row again. No library in the example pack offers a CSV reader, so
// this seam uses the standard library's encoding/csv (see DESIGN.md).
/*
 * Copyright (c) 2020-2026, Cargohold Authors. All rights reserved.
 */
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/cargohold/stationinv/cluster"
)

// Placer is the minimal capability ImportArrangement needs to apply a
// parsed row: the same manual-placement path (§4.A fits/overlaps
// validation) that service.Core.Place exposes for any other caller.
// Accepting the interface here, rather than importing service, keeps
// ingest a one-way seam the core depends on instead of the reverse.
type Placer interface {
	Place(itemID, userID, containerID string, pose cluster.Pose, now time.Time) error
}

// RowError records one row's conversion failure without aborting the rest
// of the file (§6 "partial failures per row are collected and reported").
type RowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// ItemsResult is the outcome of ingesting an items CSV.
type ItemsResult struct {
	Items  []*cluster.Item `json:"-"`
	Errors []RowError      `json:"errors"`
}

var itemsHeader = []string{
	"Item ID", "Name", "Width", "Depth", "Height", "Mass", "Priority",
	"Expiry Date", "Usage Limit", "Preferred Zone",
}

// Items parses the items CSV described in §6: Item ID, Name, Width, Depth,
// Height, Mass, Priority, Expiry Date (ISO-8601 or empty), Usage Limit
// (integer or empty), Preferred Zone.
func Items(r io.Reader) (*ItemsResult, error) {
	rows, err := readAllRows(r, len(itemsHeader))
	if err != nil {
		return nil, err
	}
	res := &ItemsResult{}
	for i, row := range rows {
		it, err := parseItemRow(row)
		if err != nil {
			res.Errors = append(res.Errors, RowError{Row: i + 2, Reason: err.Error()})
			continue
		}
		res.Items = append(res.Items, it)
	}
	return res, nil
}

func parseItemRow(row []string) (*cluster.Item, error) {
	w, err := strconv.Atoi(strings.TrimSpace(row[2]))
	if err != nil {
		return nil, fmt.Errorf("width: %w", err)
	}
	d, err := strconv.Atoi(strings.TrimSpace(row[3]))
	if err != nil {
		return nil, fmt.Errorf("depth: %w", err)
	}
	h, err := strconv.Atoi(strings.TrimSpace(row[4]))
	if err != nil {
		return nil, fmt.Errorf("height: %w", err)
	}
	mass, err := strconv.ParseFloat(strings.TrimSpace(row[5]), 64)
	if err != nil {
		return nil, fmt.Errorf("mass: %w", err)
	}
	priority, err := strconv.Atoi(strings.TrimSpace(row[6]))
	if err != nil {
		return nil, fmt.Errorf("priority: %w", err)
	}

	it := &cluster.Item{
		ID:            strings.TrimSpace(row[0]),
		Name:          strings.TrimSpace(row[1]),
		Dims:          cluster.Dims{W: w, D: d, H: h},
		Mass:          mass,
		Priority:      priority,
		PreferredZone: strings.TrimSpace(row[9]),
	}
	if it.ID == "" {
		return nil, fmt.Errorf("item id: required")
	}

	if expiryRaw := strings.TrimSpace(row[7]); expiryRaw != "" {
		t, err := time.Parse(time.RFC3339, expiryRaw)
		if err != nil {
			return nil, fmt.Errorf("expiry date: %w", err)
		}
		t = t.UTC()
		it.Expiry = &t
	}
	if limitRaw := strings.TrimSpace(row[8]); limitRaw != "" {
		limit, err := strconv.Atoi(limitRaw)
		if err != nil {
			return nil, fmt.Errorf("usage limit: %w", err)
		}
		it.UsageLimit = &limit
		it.UsesRemaining = &limit
	}
	return it, nil
}

var containersHeader = []string{"Container ID", "Zone", "Width", "Depth", "Height"}

// ContainersResult is the outcome of ingesting a containers CSV.
type ContainersResult struct {
	Containers []*cluster.Container `json:"-"`
	Errors     []RowError           `json:"errors"`
}

// Containers parses the containers CSV described in §6: Container ID,
// Zone, Width, Depth, Height.
func Containers(r io.Reader) (*ContainersResult, error) {
	rows, err := readAllRows(r, len(containersHeader))
	if err != nil {
		return nil, err
	}
	res := &ContainersResult{}
	for i, row := range rows {
		c, err := parseContainerRow(row)
		if err != nil {
			res.Errors = append(res.Errors, RowError{Row: i + 2, Reason: err.Error()})
			continue
		}
		res.Containers = append(res.Containers, c)
	}
	return res, nil
}

func parseContainerRow(row []string) (*cluster.Container, error) {
	w, err := strconv.Atoi(strings.TrimSpace(row[2]))
	if err != nil {
		return nil, fmt.Errorf("width: %w", err)
	}
	d, err := strconv.Atoi(strings.TrimSpace(row[3]))
	if err != nil {
		return nil, fmt.Errorf("depth: %w", err)
	}
	h, err := strconv.Atoi(strings.TrimSpace(row[4]))
	if err != nil {
		return nil, fmt.Errorf("height: %w", err)
	}
	id := strings.TrimSpace(row[0])
	if id == "" {
		return nil, fmt.Errorf("container id: required")
	}
	return &cluster.Container{
		ID:   id,
		Zone: strings.TrimSpace(row[1]),
		Dims: cluster.Dims{W: w, D: d, H: h},
	}, nil
}

// readAllRows reads the header, validates its column count, and returns
// every subsequent data row.
func readAllRows(r io.Reader, wantCols int) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	header := records[0]
	if len(header) < wantCols {
		return nil, fmt.Errorf("csv: expected at least %d columns, got %d", wantCols, len(header))
	}
	return records[1:], nil
}

// ExportArrangement renders one CSV row per placed item: Item ID,
// Container ID, "(w0,d0,h0),(w1,d1,h1)" (§6 "Exported arrangement").
func ExportArrangement(w io.Writer, items []*cluster.Item) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()
	if err := cw.Write([]string{"Item ID", "Container ID", "Pose"}); err != nil {
		return err
	}
	for _, it := range items {
		if it.Placement == nil {
			continue
		}
		pose := it.Placement.Pose
		record := []string{
			it.ID,
			it.Placement.ContainerID,
			fmt.Sprintf("(%d,%d,%d),(%d,%d,%d)",
				pose.Start.W, pose.Start.D, pose.Start.H,
				pose.End.W, pose.End.D, pose.End.H),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	return cw.Error()
}

var arrangementHeader = []string{"Item ID", "Container ID", "Pose"}

// ArrangementRow is one parsed line of an exported arrangement: an item's id,
// the container it sits in, and its pose.
type ArrangementRow struct {
	Row         int
	ItemID      string
	ContainerID string
	Pose        cluster.Pose
}

// ArrangementResult is the outcome of parsing an exported arrangement CSV.
type ArrangementResult struct {
	Rows   []ArrangementRow
	Errors []RowError
}

// ParseArrangement parses the CSV ExportArrangement writes: Item ID,
// Container ID, "(w0,d0,h0),(w1,d1,h1)" (§6 "Exported arrangement").
// Malformed rows are collected as errors rather than aborting the parse,
// matching Items/Containers.
func ParseArrangement(r io.Reader) (*ArrangementResult, error) {
	rows, err := readAllRows(r, len(arrangementHeader))
	if err != nil {
		return nil, err
	}
	res := &ArrangementResult{}
	for i, row := range rows {
		ar, err := parseArrangementRow(row)
		if err != nil {
			res.Errors = append(res.Errors, RowError{Row: i + 2, Reason: err.Error()})
			continue
		}
		ar.Row = i + 2
		res.Rows = append(res.Rows, ar)
	}
	return res, nil
}

func parseArrangementRow(row []string) (ArrangementRow, error) {
	itemID := strings.TrimSpace(row[0])
	if itemID == "" {
		return ArrangementRow{}, fmt.Errorf("item id: required")
	}
	containerID := strings.TrimSpace(row[1])
	if containerID == "" {
		return ArrangementRow{}, fmt.Errorf("container id: required")
	}
	pose, err := parsePoseString(strings.TrimSpace(row[2]))
	if err != nil {
		return ArrangementRow{}, fmt.Errorf("pose: %w", err)
	}
	return ArrangementRow{ItemID: itemID, ContainerID: containerID, Pose: pose}, nil
}

// parsePoseString parses the "(w0,d0,h0),(w1,d1,h1)" tuple format
// ExportArrangement writes back into a cluster.Pose.
func parsePoseString(s string) (cluster.Pose, error) {
	var sw, sd, sh, ew, ed, eh int
	n, err := fmt.Sscanf(s, "(%d,%d,%d),(%d,%d,%d)", &sw, &sd, &sh, &ew, &ed, &eh)
	if err != nil || n != 6 {
		return cluster.Pose{}, fmt.Errorf("expected \"(w,d,h),(w,d,h)\", got %q", s)
	}
	return cluster.Pose{
		Start: cluster.Coord{W: sw, D: sd, H: sh},
		End:   cluster.Coord{W: ew, D: ed, H: eh},
	}, nil
}

// ImportError records one arrangement row's placement failure, either a
// parse failure (no ItemID) or a rejection from Placer.Place.
type ImportError struct {
	Row    int    `json:"row"`
	ItemID string `json:"item_id,omitempty"`
	Reason string `json:"reason"`
}

// ImportResult is the outcome of ImportArrangement: which items were
// successfully re-placed and which rows failed.
type ImportResult struct {
	Placed []string      `json:"placed"`
	Errors []ImportError `json:"errors"`
}

// ImportArrangement parses an exported arrangement and replays each row
// through placer.Place, the round trip §8 pins as a testable property
// ("Exporting arrangement then re-importing yields identical placements").
// A row that fails to parse or fails placement is recorded in Errors
// without aborting the rest of the file, matching Items/Containers.
func ImportArrangement(r io.Reader, placer Placer, userID string, now time.Time) (*ImportResult, error) {
	parsed, err := ParseArrangement(r)
	if err != nil {
		return nil, err
	}
	res := &ImportResult{}
	for _, rowErr := range parsed.Errors {
		res.Errors = append(res.Errors, ImportError{Row: rowErr.Row, Reason: rowErr.Reason})
	}
	for _, row := range parsed.Rows {
		if err := placer.Place(row.ItemID, userID, row.ContainerID, row.Pose, now); err != nil {
			res.Errors = append(res.Errors, ImportError{Row: row.Row, ItemID: row.ItemID, Reason: err.Error()})
			continue
		}
		res.Placed = append(res.Placed, row.ItemID)
	}
	return res, nil
}

// Package simulate implements Component E: advancing the station's virtual
// clock, consuming per-day item usage, and sweeping for expiry (§4.E).
//
// Grounded on the original simulation service's day-by-day usage log
// (app/services/simulation.py): each simulated day of consumption gets its
// own retrieval log entry instead of one aggregate record, and each run is
// tagged with a generated identifier the way the teacher tags xaction runs
// with a uuid so related log entries can be correlated later.
/*
 * Copyright (c) 2020-2026, Cargohold Authors. All rights reserved.
 */
package simulate

import (
	"time"

	"github.com/cargohold/stationinv/cluster"
	"github.com/cargohold/stationinv/cmn"
	"github.com/cargohold/stationinv/eventlog"
	"github.com/golang/glog"
	"github.com/google/uuid"
	"go.uber.org/atomic"
)

// Request is the input to Advance (§4.E). Exactly one of NumOfDays and
// ToTimestamp must be set.
type Request struct {
	NumOfDays    int
	ToTimestamp  *time.Time
	ItemsPerDay  []string // item ids consuming one use per simulated day
}

// UsedItem reports one item's usage outcome for the run.
type UsedItem struct {
	ItemID        string `json:"item_id"`
	Name          string `json:"name"`
	UsesConsumed  int    `json:"uses_consumed"`
	UsesRemaining int    `json:"uses_remaining"`
}

// DepletedItem reports an item that reached 0 uses_remaining this run.
type DepletedItem struct {
	ItemID string `json:"item_id"`
	Name   string `json:"name"`
}

// ExpiredItem reports an item whose expiry fell at or before target_time.
type ExpiredItem struct {
	ItemID string `json:"item_id"`
	Name   string `json:"name"`
}

// Report is the output of Advance (§4.E "Report").
type Report struct {
	RunID         string         `json:"run_id"`
	TargetTime    time.Time      `json:"target_time"`
	ItemsUsed     []UsedItem     `json:"items_used"`
	ItemsDepleted []DepletedItem `json:"items_depleted"`
	ItemsExpired  []ExpiredItem  `json:"items_expired"`
}

// Planner owns the item store and log shared with the rest of the core
// (§5). Constructed once at startup alongside placement.Planner.
type Planner struct {
	Items *cluster.ItemRegistry
	Log   *eventlog.Log
	runs  atomic.Uint64
}

func New(items *cluster.ItemRegistry, log *eventlog.Log) *Planner {
	return &Planner{Items: items, Log: log}
}

// Advance moves the simulated clock forward, consuming usage and sweeping
// for expiry. Either req.NumOfDays is positive or req.ToTimestamp is set
// strictly after now; any other combination is InvalidInput (§4.E).
//
// N and the target time are resolved before any item is touched, so an
// invalid request changes nothing. Item updates are then written one at a
// time as they are computed, and the log entries in one batch at the end; a
// failed item write returns an error and leaves the items written before it
// in place, with no log entries for the run.
func (p *Planner) Advance(req Request, userID string, now time.Time) (*Report, error) {
	now = cmn.ToUTC(now)
	n, target, err := resolveDays(req, now)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	p.runs.Add(1)
	report := &Report{RunID: runID, TargetTime: target}

	var entries []cluster.LogEntry
	for _, itemID := range req.ItemsPerDay {
		it, ok := p.Items.Get(itemID)
		if !ok || it.IsWaste || it.UsageLimit == nil || it.UsesRemaining == nil {
			continue
		}
		old := *it.UsesRemaining
		consumed := n
		if consumed > old {
			consumed = old
		}
		remaining := old - consumed
		it.UsesRemaining = &remaining

		report.ItemsUsed = append(report.ItemsUsed, UsedItem{
			ItemID: it.ID, Name: it.Name, UsesConsumed: consumed, UsesRemaining: remaining,
		})

		for day := 0; day < consumed; day++ {
			simulatedDate := now.AddDate(0, 0, day)
			entries = append(entries, cluster.LogEntry{
				Timestamp: now,
				UserID:    userID,
				Action:    cmn.ActRetrieval,
				ItemID:    it.ID,
				Detail: map[string]interface{}{
					"run_id":          runID,
					"simulated":       true,
					"simulated_date":  simulatedDate,
					"old_uses_remain": old - day,
					"new_uses_remain": old - day - 1,
				},
			})
		}

		if remaining == 0 {
			it.IsWaste = true
			it.WasteReason = cmn.ReasonOutOfUses
			report.ItemsDepleted = append(report.ItemsDepleted, DepletedItem{ItemID: it.ID, Name: it.Name})
			entries = append(entries, cluster.LogEntry{
				Timestamp: now,
				UserID:    userID,
				Action:    cmn.ActDisposal,
				ItemID:    it.ID,
				Detail:    map[string]interface{}{"reason": cmn.ReasonOutOfUses, "run_id": runID},
			})
		}

		if err := p.Items.Put(it); err != nil {
			return nil, err
		}
	}

	for _, it := range p.Items.All() {
		if it.IsWaste || it.Expiry == nil || it.Expiry.After(target) {
			continue
		}
		it.IsWaste = true
		it.WasteReason = cmn.ReasonExpired
		report.ItemsExpired = append(report.ItemsExpired, ExpiredItem{ItemID: it.ID, Name: it.Name})
		entries = append(entries, cluster.LogEntry{
			Timestamp: now,
			UserID:    userID,
			Action:    cmn.ActDisposal,
			ItemID:    it.ID,
			Detail:    map[string]interface{}{"reason": cmn.ReasonExpired, "run_id": runID},
		})
		if err := p.Items.Put(it); err != nil {
			return nil, err
		}
	}

	if err := p.Log.AppendBatch(entries); err != nil {
		return nil, err
	}
	glog.V(3).Infof("simulate: run %s advanced to %s, used=%d depleted=%d expired=%d",
		runID, target, len(report.ItemsUsed), len(report.ItemsDepleted), len(report.ItemsExpired))
	return report, nil
}

func resolveDays(req Request, now time.Time) (int, time.Time, error) {
	hasDays := req.NumOfDays > 0
	hasTimestamp := req.ToTimestamp != nil
	if hasDays == hasTimestamp {
		return 0, time.Time{}, cmn.NewInvalidInput("exactly one of num_of_days or to_timestamp must be set")
	}
	if hasDays {
		return req.NumOfDays, now.AddDate(0, 0, req.NumOfDays), nil
	}
	target := cmn.ToUTC(*req.ToTimestamp)
	if !target.After(now) {
		return 0, time.Time{}, cmn.NewInvalidInput("to_timestamp must be strictly after now")
	}
	return cmn.DaysUntil(now, target), target, nil
}

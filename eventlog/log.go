// Package eventlog implements Component F: the append-only log of §3/§4.F,
// consulted by the waste planner and reported through the external
// interface. Grounded on the teacher's dbdriver List/Ascend idiom for
// storage, and on the ais package's transaction bookkeeping for the
// "commit only on success" discipline (§7: "The log is written only on
// successful commit.").
/*
 * Copyright (c) 2020-2026, Cargohold Authors. All rights reserved.
 */
package eventlog

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cargohold/stationinv/cluster"
	"github.com/cargohold/stationinv/cmn"
	"github.com/cargohold/stationinv/dbdriver"
	"go.uber.org/atomic"
)

const logCollection = "log"

// Log is the process-wide event log singleton (§9 "Global services").
type Log struct {
	db      dbdriver.Driver
	mtx     sync.RWMutex
	entries []cluster.LogEntry
	seq     atomic.Int64
}

func New(db dbdriver.Driver) *Log {
	return &Log{db: db}
}

// Load replays persisted entries into memory at startup.
func (l *Log) Load() error {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	keys, err := l.db.List(logCollection, "")
	if err != nil {
		if cmn.IsNotFound(err) {
			return nil
		}
		return err
	}
	entries := make([]cluster.LogEntry, 0, len(keys))
	for _, key := range keys {
		s, err := l.db.GetStringRaw(key)
		if err != nil {
			return err
		}
		var e cluster.LogEntry
		if err := cmn.UnmarshalString(s, &e); err != nil {
			return err
		}
		entries = append(entries, e)
		l.seq.Add(1)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Timestamp.Before(entries[j].Timestamp) })
	l.entries = entries
	return nil
}

// Append records one entry. Entries are never rewritten (§3).
func (l *Log) Append(e cluster.LogEntry) error {
	e.Timestamp = cmn.ToUTC(e.Timestamp)
	l.mtx.Lock()
	defer l.mtx.Unlock()
	key := fmt.Sprintf("%020d", l.seq.Add(1))
	if err := l.db.Set(logCollection, key, e); err != nil {
		return err
	}
	l.entries = append(l.entries, e)
	return nil
}

// AppendBatch appends entries as one unit for callers (§5/§7) whose commit
// must be atomic with the mutation it describes: Query sees the whole batch
// or none of it. Entries already written to the store before a failure are
// not rolled back there -- callers build the batch first and call
// AppendBatch once per commit.
func (l *Log) AppendBatch(entries []cluster.LogEntry) error {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	staged := make([]cluster.LogEntry, 0, len(entries))
	for _, e := range entries {
		e.Timestamp = cmn.ToUTC(e.Timestamp)
		key := fmt.Sprintf("%020d", l.seq.Add(1))
		if err := l.db.Set(logCollection, key, e); err != nil {
			return err
		}
		staged = append(staged, e)
	}
	l.entries = append(l.entries, staged...)
	return nil
}

// Filter narrows a Query by optional item, user, and action; zero values
// mean "don't filter on this field".
type Filter struct {
	ItemID string
	UserID string
	Action string
}

// Query returns entries in [start, end], filtered, in ascending timestamp
// order (§4.F).
func (l *Log) Query(start, end time.Time, f Filter) []cluster.LogEntry {
	l.mtx.RLock()
	defer l.mtx.RUnlock()
	out := make([]cluster.LogEntry, 0)
	for _, e := range l.entries {
		if e.Timestamp.Before(start) || e.Timestamp.After(end) {
			continue
		}
		if f.ItemID != "" && e.ItemID != f.ItemID {
			continue
		}
		if f.UserID != "" && e.UserID != f.UserID {
			continue
		}
		if f.Action != "" && e.Action != f.Action {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

// Command stationinvd constructs the process-wide global services exactly
// once (§9 "Global services") and hands them to whatever transport layer is
// wired in front of service.Core. The core package never imports net/http:
// transport is explicitly out of scope (§1), so this entrypoint only proves
// the services start, load, and shut down cleanly.
/*
 * Copyright (c) 2020-2026, Cargohold Authors. All rights reserved.
 */
package main

import (
	"flag"

	"github.com/cargohold/stationinv/cmn"
	"github.com/cargohold/stationinv/dbdriver"
	"github.com/cargohold/stationinv/service"
	"github.com/golang/glog"
)

var dbPath = flag.String("db", "stationinv.db", "path to the buntdb store file")

func main() {
	flag.Parse()
	defer glog.Flush()

	cmn.InitGCO(cmn.DefaultConfig())

	db, err := dbdriver.NewBuntDB(*dbPath)
	if err != nil {
		glog.Fatalf("stationinvd: opening store %s: %v", *dbPath, err)
	}
	defer db.Close()

	core := service.New(db)
	if err := core.Load(); err != nil {
		glog.Fatalf("stationinvd: loading state: %v", err)
	}

	glog.Infof("stationinvd: ready, store=%s", *dbPath)
}

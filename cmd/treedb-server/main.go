// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"

	"github.com/nbtaylor/treedb/internal/config"
	"github.com/nbtaylor/treedb/internal/console"
	"github.com/nbtaylor/treedb/internal/housekeeping"
	"github.com/nbtaylor/treedb/internal/metrics"
	"github.com/nbtaylor/treedb/internal/netserver"
	"github.com/nbtaylor/treedb/internal/pausegate"
	"github.com/nbtaylor/treedb/internal/protocol"
	"github.com/nbtaylor/treedb/internal/registry"
	"github.com/nbtaylor/treedb/internal/runtimeEnv"
	"github.com/nbtaylor/treedb/internal/signalthread"
	"github.com/nbtaylor/treedb/internal/store"
	"github.com/nbtaylor/treedb/internal/supervisor"
	"github.com/nbtaylor/treedb/internal/worker"
	"github.com/nbtaylor/treedb/pkg/log"
)

var (
	flagConfigFile string
	flagEnvFile    string
	flagLogDate    bool
	flagUser       string
	flagGroup      string
)

func main() {
	flag.StringVar(&flagConfigFile, "config", "", "Overwrite the default options by those specified in `config.json`")
	flag.StringVar(&flagEnvFile, "env", "./.env", "Load environment variable overrides from `file`")
	flag.BoolVar(&flagLogDate, "logdate", false, "Prefix log lines with date/time")
	flag.StringVar(&flagUser, "user", "", "Drop privileges to this user after binding the listener")
	flag.StringVar(&flagGroup, "group", "", "Drop privileges to this group after binding the listener")
	flag.Parse()

	log.SetLogDateTime(flagLogDate)

	if err := runtimeEnv.LoadEnv(flagEnvFile); err != nil && !os.IsNotExist(err) {
		log.Fatalf("error while reading %s: %s", flagEnvFile, err.Error())
	}

	cfg, err := config.Load(flagConfigFile)
	if err != nil {
		log.Fatalf("error while reading config: %s", err.Error())
	}

	if lvl := os.Getenv("TREEDB_LOG_LEVEL"); lvl != "" {
		cfg.LogLevel = lvl
	}
	log.SetLogLevel(cfg.LogLevel)

	st := store.New()
	var reg registry.Registry
	gate := pausegate.New()
	sup := supervisor.New(&reg)
	metricsReg := metrics.New(sup.Accepting)
	interp := &protocol.Interpreter{Store: st, Waiter: gate.Wait}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv, err := netserver.New(fmt.Sprintf(":%d", cfg.Port), func(conn net.Conn) *worker.Worker {
		return &worker.Worker{
			Conn:        conn,
			Supervisor:  sup,
			Gate:        gate,
			Interpreter: interp,
			Metrics:     metricsReg,
		}
	})
	if err != nil {
		log.Fatalf("error while starting listener: %s", err.Error())
	}

	// The client port is bound; drop privileges before serving anything.
	if flagUser != "" || flagGroup != "" {
		if err := runtimeEnv.DropPrivileges(flagUser, flagGroup); err != nil {
			log.Fatalf("error while changing user: %s", err.Error())
		}
	}

	sigThread := signalthread.Start(sup)
	go srv.Serve(ctx)

	hk, err := housekeeping.Start(cfg.HousekeepingPeriod(), &reg, st)
	if err != nil {
		log.Errorf("housekeeping: %s", err.Error())
	}

	go func() {
		if err := metricsReg.Serve(cfg.Addr); err != nil {
			log.Errorf("metrics server: %s", err.Error())
		}
	}()

	log.Infof("treedb-server listening for clients on :%d, admin surface on %s", cfg.Port, cfg.Addr)
	runtimeEnv.SystemdNotifiy(true, "running")

	c := console.New(gate, st)
	c.OnPauseChange = metricsReg.SetPauseActive
	c.Run()

	log.Note("console: end of input, shutting down")
	runtimeEnv.SystemdNotifiy(false, "shutting down")

	sup.Purge(false)
	sigThread.Stop()
	srv.Close()
	cancel()

	if hk != nil {
		if err := hk.Shutdown(); err != nil {
			log.Errorf("housekeeping shutdown: %s", err.Error())
		}
	}
	if err := metricsReg.Shutdown(context.Background()); err != nil {
		log.Errorf("metrics server shutdown: %s", err.Error())
	}

	log.Note("shutdown complete")
}

// Copyright (c) Contributors.
// All rights reserved. Use of this source code is governed by a
// MIT-style license that can be found in the LICENSE file.
package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/tlreplay/tlreplay/internal/config"
	"github.com/tlreplay/tlreplay/internal/eventbus"
	"github.com/tlreplay/tlreplay/internal/metrics"
	"github.com/tlreplay/tlreplay/internal/store"
	"github.com/tlreplay/tlreplay/pkg/blobcache"
	"github.com/tlreplay/tlreplay/pkg/log"
)

// startMetricsServer serves /metrics on config.Keys.MetricsAddr,
// grounded on the teacher's own `http.Handle("/metrics",
// promhttp.Handler()); http.ListenAndServe(...)` pattern (seen in the
// retrieval pack's linkerd2 command entry points), run on its own
// mux so it never shares a route table with any future HTTP surface.
func startMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("metrics server: %v", err)
		}
	}()
	log.Infof("metrics server listening at %s", addr)
	return srv
}

// startReloadScheduler runs reload on config.Keys.ReloadInterval,
// grounded on the teacher's internal/taskManager: a single package-level
// gocron.Scheduler with one NewJob/NewTask registration per periodic
// concern.
func startReloadScheduler(interval time.Duration, s *store.Store, cfg *config.Config, bus *eventbus.Bus, cache *blobcache.Cache) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	if _, err := sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if err := reload(s, cfg, bus, cache); err != nil {
				log.Errorf("scheduled reload failed: %v", err)
			}
		}),
	); err != nil {
		return nil, err
	}

	sched.Start()
	return sched, nil
}

func shutdownMetricsServer(srv *http.Server) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warnf("metrics server shutdown: %v", err)
	}
}

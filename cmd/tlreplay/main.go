// Copyright (c) Contributors.
// All rights reserved. Use of this source code is governed by a
// MIT-style license that can be found in the LICENSE file.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/gops/agent"

	"github.com/tlreplay/tlreplay/internal/config"
	"github.com/tlreplay/tlreplay/internal/eventbus"
	"github.com/tlreplay/tlreplay/internal/ingest"
	"github.com/tlreplay/tlreplay/internal/metrics"
	"github.com/tlreplay/tlreplay/internal/pluginhost"
	"github.com/tlreplay/tlreplay/internal/store"
	"github.com/tlreplay/tlreplay/pkg/blob"
	"github.com/tlreplay/tlreplay/pkg/blobcache"
	"github.com/tlreplay/tlreplay/pkg/log"
	"github.com/tlreplay/tlreplay/pkg/runtimeenv"
)

func main() {
	cliInit()
	log.SetLogLevel(flagLogLevel)

	if flagGops {
		if err := agent.Listen(agent.Options{}); err != nil {
			log.Fatalf("gops/agent.Listen failed: %s", err.Error())
		}
	}

	if err := runtimeenv.LoadEnv("./.env"); err != nil && !os.IsNotExist(err) {
		log.Fatalf("parsing './.env' file failed: %s", err.Error())
	}

	if err := config.Init(flagConfigFile); err != nil {
		log.Fatal(err)
	}
	cfg := &config.Keys

	if flagInputDir != "" {
		cfg.InputDir = flagInputDir
	}
	if flagInputListFile != "" {
		cfg.InputListFile = flagInputListFile
	}
	if flagPluginDir != "" {
		cfg.PluginDir = flagPluginDir
	}

	if flagDumpMetrics {
		text, err := metrics.DumpText()
		if err != nil {
			log.Fatal(err)
		}
		fmt.Print(text)
		return
	}

	cache, err := blobcache.Open(cfg.BlobCacheDir, openMirror(cfg))
	if err != nil {
		log.Fatalf("opening blob cache at %s: %s", cfg.BlobCacheDir, err.Error())
	}

	s, err := store.New(blob.NativeFS{Root: cfg.BlobCacheDir})
	if err != nil {
		log.Fatalf("opening store: %s", err.Error())
	}
	defer s.Close()

	bus, err := eventbus.Connect(cfg.NatsURL)
	if err != nil {
		log.Fatalf("connecting to NATS: %s", err.Error())
	}
	defer bus.Close()

	if err := reload(s, cfg, bus, cache); err != nil {
		if cfg.Strict {
			log.Fatalf("initial ingest failed: %s", err.Error())
		}
		log.Errorf("initial ingest failed: %s", err.Error())
	}

	if !flagServer {
		return
	}

	var metricsSrv = startMetricsServer(cfg.MetricsAddr)
	defer shutdownMetricsServer(metricsSrv)

	var sched gocron.Scheduler
	if cfg.ReloadInterval != "" {
		interval, err := time.ParseDuration(cfg.ReloadInterval)
		if err != nil {
			log.Fatalf("parsing reload-interval %q: %s", cfg.ReloadInterval, err.Error())
		}
		sched, err = startReloadScheduler(interval, s, cfg, bus, cache)
		if err != nil {
			log.Fatalf("starting reload scheduler: %s", err.Error())
		}
	}

	var wg sync.WaitGroup
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	wg.Add(1)
	go func() {
		defer wg.Done()
		<-sigs
		runtimeenv.SystemdNotify(false, "shutting down")
		if sched != nil {
			sched.Shutdown()
		}
	}()

	log.Print("tlreplay running")
	runtimeenv.SystemdNotify(true, "running")
	wg.Wait()
	log.Print("graceful shutdown complete")
}

// openMirror builds the blob cache's optional S3 mirror from cfg. It
// returns a literal nil interface (not a nil *S3Mirror boxed in a
// non-nil interface) when no bucket is configured, since Cache.Put
// checks "c.mirror != nil" against the interface value itself.
func openMirror(cfg *config.Config) blobcache.Mirror {
	if cfg.S3MirrorBucket == "" {
		return nil
	}
	m, err := blobcache.NewS3Mirror(blobcache.S3MirrorConfig{
		Endpoint:     cfg.S3MirrorEndpoint,
		Bucket:       cfg.S3MirrorBucket,
		AccessKey:    cfg.S3MirrorAccessKey,
		SecretKey:    cfg.S3MirrorSecretKey,
		Region:       cfg.S3MirrorRegion,
		UsePathStyle: cfg.S3MirrorPathStyle,
	})
	if err != nil {
		log.Warnf("S3 mirror disabled: %s", err.Error())
		return nil
	}
	return m
}

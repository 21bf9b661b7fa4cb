// Copyright (c) Contributors.
// All rights reserved. Use of this source code is governed by a
// MIT-style license that can be found in the LICENSE file.

// Package metrics exports Prometheus counters/gauges for the ingestion
// pipeline and the normalized store, matching the ambient-observability
// texture of a real backend service (spec.md §1 excludes response
// pagination/histogram computation from the read surface, not
// operational metrics).
package metrics

import (
	"bytes"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"

	"github.com/tlreplay/tlreplay/internal/store"
)

const (
	labelKind   = "kind"
	labelReason = "reason"
)

var (
	recordsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tlreplay_ingest_records_total",
		Help: "Number of envelope records successfully dispatched, by input kind.",
	}, []string{labelKind})

	recordsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tlreplay_ingest_records_skipped_total",
		Help: "Number of envelope records skipped due to an ingestion error, by error kind (§7).",
	}, []string{labelReason})

	snapshotsMerged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tlreplay_snapshots_merged_total",
		Help: "Number of list snapshots folded into the alignment algorithm's working sequence.",
	})

	mediaRegistered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tlreplay_media_registered_total",
		Help: "Number of media variants registered in the media store, by kind (image/video).",
	}, []string{labelKind})

	storePosts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tlreplay_store_posts",
		Help: "Number of posts currently held in the normalized store.",
	})
	storeProfiles = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tlreplay_store_profiles",
		Help: "Number of profiles currently held in the normalized store.",
	})
	storeConversations = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tlreplay_store_conversations",
		Help: "Number of conversations currently held in the normalized store.",
	})

	reloadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "tlreplay_reload_duration_seconds",
		Help: "Wall-clock duration of a full ingest+rebuild reload cycle.",
	})
)

// RecordIngested increments the per-kind ingested-record counter.
func RecordIngested(kind string) {
	recordsIngested.WithLabelValues(kind).Inc()
}

// RecordSkipped increments the per-reason skipped-record counter.
func RecordSkipped(reason string) {
	recordsSkipped.WithLabelValues(reason).Inc()
}

// RecordSnapshotMerged increments the snapshot-merge counter.
func RecordSnapshotMerged() {
	snapshotsMerged.Inc()
}

// RecordMediaRegistered increments the per-kind registered-media counter.
func RecordMediaRegistered(kind string) {
	mediaRegistered.WithLabelValues(kind).Inc()
}

// ObserveReload records one reload cycle's duration in seconds.
func ObserveReload(seconds float64) {
	reloadDuration.Observe(seconds)
}

// SetStoreGauges refreshes the store-size gauges from s's current
// contents. Called after every reload.
func SetStoreGauges(s *store.Store) {
	storePosts.Set(float64(s.PostCount()))
	storeProfiles.Set(float64(s.ProfileCount()))
	storeConversations.Set(float64(s.ConversationCount()))
}

// Handler returns the http.Handler that serves /metrics, grounded on
// the teacher's own `promhttp.Handler()`-at-a-dedicated-address style.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DumpText renders the current metric registry as Prometheus text
// exposition format, for the -dump-metrics CLI diagnostic flag.
func DumpText() (string, error) {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.FmtText)
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

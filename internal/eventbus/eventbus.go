// Copyright (c) Contributors.
// All rights reserved. Use of this source code is governed by a
// MIT-style license that can be found in the LICENSE file.

// Package eventbus publishes ingestion/reload completion notifications
// over NATS, so an out-of-core serving layer (or the plugin hook) can
// react to store changes without polling — a gap the distilled spec
// left implicit in its synchronous reload() entry point.
package eventbus

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/tlreplay/tlreplay/pkg/log"
)

const (
	// SubjectIngestionCompleted names the ingestion-level notification;
	// nothing in this module publishes on it.
	SubjectIngestionCompleted = "tlreplay.ingestion.completed"
	// SubjectReloadCompleted is published after every reload, the
	// initial ingest included.
	SubjectReloadCompleted = "tlreplay.reload.completed"
)

// Counts summarizes one ingestion or reload pass, carried as the
// message payload on both subjects.
type Counts struct {
	Posts         int `json:"posts"`
	Profiles      int `json:"profiles"`
	Conversations int `json:"conversations"`
	Snapshots     int `json:"snapshots"`
}

// Bus is a thin wrapper over a NATS connection, grounded on the
// teacher's pkg/nats.Client: same connect-with-handlers shape, narrowed
// to the publish-only surface this system needs (it has no subscriber
// side of its own).
type Bus struct {
	conn *nats.Conn
}

// Connect dials addr. A zero Bus (nil conn) is returned, not an error,
// when addr is empty: every Publish call on it is then a silent no-op,
// matching the teacher's own "NATS is optional" posture in
// internal/memorystore (`if Keys.Nats != nil`).
func Connect(addr string) (*Bus, error) {
	if addr == "" {
		return &Bus{}, nil
	}

	nc, err := nats.Connect(addr,
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warnf("eventbus: disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Infof("eventbus: reconnected to %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("eventbus: connect to %s: %w", addr, err)
	}

	log.Infof("eventbus: connected to %s", addr)
	return &Bus{conn: nc}, nil
}

// Publish marshals payload as JSON and publishes it to subject. A nil
// or disconnected Bus is a no-op.
func (b *Bus) Publish(subject string, payload Counts) {
	if b == nil || b.conn == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		log.Warnf("eventbus: marshal payload for %s: %v", subject, err)
		return
	}
	if err := b.conn.Publish(subject, data); err != nil {
		log.Warnf("eventbus: publish to %s: %v", subject, err)
	}
}

// Close closes the underlying connection, if any.
func (b *Bus) Close() {
	if b == nil || b.conn == nil {
		return
	}
	b.conn.Close()
}

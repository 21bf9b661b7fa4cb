// Copyright (c) Contributors.
// All rights reserved. Use of this source code is governed by a
// MIT-style license that can be found in the LICENSE file.
package ingest

import (
	"github.com/tlreplay/tlreplay/internal/capture/export"
	"github.com/tlreplay/tlreplay/internal/metrics"
	"github.com/tlreplay/tlreplay/internal/store"
)

// ingestExport persists an already-normalized export bundle read. No
// envelope walking is needed here: export.Read has already turned the
// bundle's JS-assignment files into schema types (§4.3); this is just
// the merge into the store (§4.7).
func ingestExport(s *store.Store, res *export.Result) {
	s.AddObserver(res.Observer)
	if res.Profile != nil {
		s.UpsertProfile(res.Profile)
	}
	for _, p := range res.Posts {
		s.UpsertPost(p)
	}
	if res.LikesSnapshot != nil {
		s.AddSnapshot(*res.LikesSnapshot)
		metrics.RecordSnapshotMerged()
	}
	for id, conv := range res.Conversations {
		dst := s.Conversation(id)
		for _, msg := range conv.Messages {
			dst.AddMessage(msg)
		}
	}
}

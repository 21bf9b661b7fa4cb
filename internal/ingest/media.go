// Copyright (c) Contributors.
// All rights reserved. Use of this source code is governed by a
// MIT-style license that can be found in the LICENSE file.
package ingest

import (
	"github.com/tlreplay/tlreplay/internal/metrics"
	"github.com/tlreplay/tlreplay/internal/store"
	"github.com/tlreplay/tlreplay/pkg/blob"
	"github.com/tlreplay/tlreplay/pkg/urlcodec"
)

// registerMedia feeds one captured response body into the media store
// (§4.4) if requestURL decodes as a recognized media asset URL. HAR and
// WARC entries are the only capture kinds carrying arbitrary response
// bytes for request URLs outside the GraphQL surface, so this is called
// from each of their per-entry loops rather than from Dispatch.
func registerMedia(s *store.Store, requestURL string, b blob.Blob) {
	if requestURL == "" || b == nil {
		return
	}
	dec, err := urlcodec.Decode(requestURL)
	if err != nil {
		return
	}

	ms := s.MediaStore()
	if dec.IsVideo {
		ms.AddVideo(dec.Base, b)
		metrics.RecordMediaRegistered("video")
		return
	}

	variant := ""
	rank := 0
	if dec.Size != nil {
		variant = *dec.Size
	}
	if dec.Sizes != nil {
		if entry, ok := dec.Sizes.ByName[variant]; ok {
			rank = entry.Rank
		}
	}
	ms.AddImage(dec.Base, dec.Format, variant, rank, b)
	metrics.RecordMediaRegistered("image")
}

// Copyright (c) Contributors.
// All rights reserved. Use of this source code is governed by a
// MIT-style license that can be found in the LICENSE file.
package ingest

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/tlreplay/tlreplay/internal/capture/har"
	"github.com/tlreplay/tlreplay/internal/store"
	"github.com/tlreplay/tlreplay/pkg/blob"
	"github.com/tlreplay/tlreplay/pkg/blobcache"
	"github.com/tlreplay/tlreplay/pkg/log"
	"github.com/tlreplay/tlreplay/pkg/schema"
)

// harDoc is the subset of a HAR document's shape this package reads.
// har.Load/har.EntryBlob already handle the cache-aware rewritten form
// of an entry's response.content; this type only needs to get at the
// request url/cookies and the response content object to feed Dispatch.
type harDoc struct {
	Log struct {
		Entries []harEntry `json:"entries"`
	} `json:"log"`
}

type harEntry struct {
	StartedDateTime string `json:"startedDateTime"`
	Request         struct {
		URL     string `json:"url"`
		Cookies []struct {
			Name  string `json:"name"`
			Value string `json:"value"`
		} `json:"cookies"`
	} `json:"request"`
	Response struct {
		Content har.Content `json:"content"`
	} `json:"response"`
}

// ingestHAR reads name (a .har file, or its lightweight lhar rewrite if
// one exists under cache) from fs and dispatches every entry in order.
func ingestHAR(s *store.Store, fs blob.FS, cache *blobcache.Cache, name string, strict bool) error {
	data, err := har.Load(fs, cache, name)
	if err != nil {
		return err
	}

	var doc harDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return schema.NewCaptureError(schema.ErrCorruptCapture, name, "", err)
	}

	for i, entry := range doc.Log.Entries {
		b, ok := har.EntryBlob(&entry.Response.Content, cache)
		if !ok {
			continue
		}
		body, err := readAllBlob(b)
		if err != nil {
			log.Warnf("ingest: %s: entry #%d: reading body: %v", name, i, err)
			continue
		}

		cookies := map[string]string{}
		for _, c := range entry.Request.Cookies {
			cookies[c.Name] = c.Value
		}

		observedAt := parseHARTime(entry.StartedDateTime)
		if err := Dispatch(s, entry.Request.URL, cookies, observedAt, body, strict); err != nil {
			if strict {
				return fmt.Errorf("%s: entry #%d: %w", name, i, err)
			}
			log.Warnf("ingest: %s: entry #%d: %v", name, i, err)
		}

		registerMedia(s, entry.Request.URL, b)
	}
	return nil
}

func readAllBlob(b blob.Blob) ([]byte, error) {
	r, err := b.Open()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func parseHARTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Copyright (c) Contributors.
// All rights reserved. Use of this source code is governed by a
// MIT-style license that can be found in the LICENSE file.
package ingest

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/tlreplay/tlreplay/internal/capture/warc"
	"github.com/tlreplay/tlreplay/internal/store"
	"github.com/tlreplay/tlreplay/pkg/log"
)

// ingestWARCFile reads every response record out of a .warc/.warc.open
// file and dispatches it. responses carries resolved revisit state
// across files within one run (§4.3).
func ingestWARCFile(s *store.Store, path string, responses warc.ResponseTable, strict bool) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("ingest: open %s: %w", path, err)
	}
	defer f.Close()

	records, err := warc.Read(f, responses)
	if err != nil {
		return fmt.Errorf("ingest: reading %s: %w", path, err)
	}

	for i, rec := range records {
		if rec.Payload == nil || rec.TargetURI == "" {
			continue
		}
		body, err := readAllBlob(rec.Payload)
		if err != nil {
			log.Warnf("ingest: %s: record #%d: reading payload: %v", path, i, err)
			continue
		}

		cookies := cookiesFromHeaderLines(rec.RequestHeaders)
		if len(cookies) == 0 {
			for _, c := range rec.Cookies {
				cookies[c.Name] = c.Value
			}
		}

		observedAt := parseWARCTime(rec.Date)
		if err := Dispatch(s, rec.TargetURI, cookies, observedAt, body, strict); err != nil {
			if strict {
				return fmt.Errorf("%s: record #%d: %w", path, i, err)
			}
			log.Warnf("ingest: %s: record #%d: %v", path, i, err)
		}

		registerMedia(s, rec.TargetURI, rec.Payload)
	}
	return nil
}

// cookiesFromHeaderLines extracts the browser-sent Cookie: request
// header into a name->value map. warc.Record.Cookies is built from
// response Set-Cookie headers (a different concern: what the server
// told the browser to store, not what the browser sent), so the
// observer-identifying twid cookie has to be read from the request
// side directly.
func cookiesFromHeaderLines(lines []string) map[string]string {
	cookies := map[string]string{}
	for _, line := range lines {
		idx := strings.Index(line, ":")
		if idx < 0 {
			continue
		}
		name := strings.TrimSpace(line[:idx])
		if !strings.EqualFold(name, "cookie") {
			continue
		}
		value := strings.TrimSpace(line[idx+1:])
		for _, pair := range strings.Split(value, ";") {
			kv := strings.SplitN(strings.TrimSpace(pair), "=", 2)
			if len(kv) != 2 {
				continue
			}
			cookies[strings.TrimSpace(kv[0])] = strings.Trim(strings.TrimSpace(kv[1]), `"`)
		}
	}
	return cookies
}

func parseWARCTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

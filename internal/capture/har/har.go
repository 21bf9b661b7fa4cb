// Copyright (c) Contributors.
// All rights reserved. Use of this source code is governed by a
// MIT-style license that can be found in the LICENSE file.

// Package har reads HTTP-archive (.har) captures (§4.3), offloading
// large or base64-declared response bodies into the shared content-
// addressed blob cache and rewriting the archive into a lightweight
// form that references them by hash instead of carrying them inline.
package har

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tlreplay/tlreplay/pkg/blob"
	"github.com/tlreplay/tlreplay/pkg/blobcache"
	"github.com/tlreplay/tlreplay/pkg/log"
)

// Content mirrors the subset of a HAR entry's response.content object
// this reader cares about. Exactly one of Text, HashText, or HashBin is
// populated for a given entry, depending on whether it has ever been
// offloaded (§9).
type Content struct {
	Size     int64  `json:"size,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	Encoding string `json:"encoding,omitempty"`
	Text     string `json:"text,omitempty"`
	HashText string `json:"hashtxt,omitempty"`
	HashBin  string `json:"hashbin,omitempty"`
}

// shouldOffload decides whether a response body should move out of
// line into the blob cache (§4.3, §9): declared base64 always offloads
// regardless of size; otherwise bodies at or above the 2 MiB threshold
// do.
func shouldOffload(c *Content) bool {
	if c == nil || c.Text == "" {
		return false
	}
	if c.Encoding == "base64" {
		return true
	}
	return c.Size >= blobcache.LargeBodyThreshold
}

// entryBody decodes an entry's inline text per its declared encoding.
func entryBody(c *Content) ([]byte, bool, error) {
	if c.Encoding == "base64" {
		data, err := base64.StdEncoding.DecodeString(c.Text)
		if err != nil {
			return nil, false, err
		}
		return data, false, nil
	}
	return []byte(c.Text), true, nil
}

// Offload rewrites a single .har file found at name within fs: every
// entry whose body should offload is hashed into cache and its content
// object loses `text`/`encoding` in favor of `hashtxt`/`hashbin`. The
// rewritten JSON is returned for the caller to persist under the
// cache's `lhar/` directory (§9), mirroring the on-disk layout the
// original reader maintains alongside the blob store.
func Offload(fs blob.FS, name string, cache *blobcache.Cache) ([]byte, error) {
	r, err := fs.Open(name)
	if err != nil {
		return nil, fmt.Errorf("har: open %s: %w", name, err)
	}
	defer r.Close()

	var doc map[string]json.RawMessage
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("har: decode %s: %w", name, err)
	}

	var logRaw map[string]json.RawMessage
	if err := json.Unmarshal(doc["log"], &logRaw); err != nil {
		return nil, fmt.Errorf("har: decode %s log: %w", name, err)
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(logRaw["entries"], &entries); err != nil {
		return nil, fmt.Errorf("har: decode %s entries: %w", name, err)
	}

	for i, rawEntry := range entries {
		var entry map[string]json.RawMessage
		if err := json.Unmarshal(rawEntry, &entry); err != nil {
			log.Warnf("har: skipping malformed entry #%d in %s: %v", i, name, err)
			continue
		}

		var resp map[string]json.RawMessage
		if err := json.Unmarshal(entry["response"], &resp); err != nil {
			continue
		}
		var content Content
		if raw, ok := resp["content"]; ok {
			if err := json.Unmarshal(raw, &content); err != nil {
				continue
			}
		} else {
			continue
		}

		if !shouldOffload(&content) {
			continue
		}

		data, isText, err := entryBody(&content)
		if err != nil {
			// Firefox sometimes declares base64 wrongly; the original
			// reader skips the entry rather than fail the whole file.
			log.Warnf("har: skipping entry #%d in %s: bad base64: %v", i, name, err)
			continue
		}

		channel := blobcache.ChannelBinary
		if isText {
			channel = blobcache.ChannelText
		}
		hash, err := cache.Put(channel, data)
		if err != nil {
			return nil, fmt.Errorf("har: cache entry #%d in %s: %w", i, name, err)
		}

		content.Text = ""
		content.Encoding = ""
		if isText {
			content.HashText = hash
		} else {
			content.HashBin = hash
		}

		contentJSON, err := json.Marshal(content)
		if err != nil {
			return nil, err
		}
		resp["content"] = contentJSON
		respJSON, err := json.Marshal(resp)
		if err != nil {
			return nil, err
		}
		entry["response"] = respJSON
		entryJSON, err := json.Marshal(entry)
		if err != nil {
			return nil, err
		}
		entries[i] = entryJSON
	}

	entriesJSON, err := json.Marshal(entries)
	if err != nil {
		return nil, err
	}
	logRaw["entries"] = entriesJSON
	logJSON, err := json.Marshal(logRaw)
	if err != nil {
		return nil, err
	}
	doc["log"] = logJSON

	return json.MarshalIndent(doc, "", "  ")
}

// EntryBlob resolves one content object to a Blob, preferring an
// already-offloaded hash reference and falling back to the inline body
// for a lightweight file that has not been rewritten (§4.3: "subsequent
// loads open blobs lazily through on-disk handles").
func EntryBlob(c *Content, cache *blobcache.Cache) (blob.Blob, bool) {
	switch {
	case c.HashText != "":
		return cache.Blob(c.HashText, blobcache.ChannelText), true
	case c.HashBin != "":
		return cache.Blob(c.HashBin, blobcache.ChannelBinary), true
	case c.Text != "":
		data, _, err := entryBody(c)
		if err != nil {
			return nil, false
		}
		return blob.InMemory{Data: data}, true
	default:
		return nil, false
	}
}

// LharName mirrors the original reader's naming: the lightweight
// capture file for har_path takes the capture's own base name under
// the cache's lhar/ directory.
func LharName(harPath string) string {
	return filepath.Base(harPath)
}

// Load opens name via fs, preferring a previously-written lhar sibling
// under the cache directory over the original if one exists, exactly
// as the original reader's `load` method does.
func Load(fs blob.FS, cache *blobcache.Cache, name string) ([]byte, error) {
	lharPath := cache.LharPath(LharName(name))
	if data, err := os.ReadFile(lharPath); err == nil {
		return data, nil
	}

	r, err := fs.Open(name)
	if err != nil {
		return nil, fmt.Errorf("har: open %s: %w", name, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("har: read %s: %w", name, err)
	}
	return data, nil
}

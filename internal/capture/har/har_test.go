// Copyright (c) Contributors.
// All rights reserved. Use of this source code is governed by a
// MIT-style license that can be found in the LICENSE file.
package har

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tlreplay/tlreplay/pkg/blob"
	"github.com/tlreplay/tlreplay/pkg/blobcache"
)

func writeHAR(t *testing.T, dir, name string, entries []map[string]any) string {
	t.Helper()
	doc := map[string]any{
		"log": map[string]any{
			"entries": entries,
		},
	}
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

func entryWithText(text string) map[string]any {
	return map[string]any{
		"response": map[string]any{
			"content": map[string]any{
				"text":     text,
				"size":     int64(len(text)),
				"mimeType": "text/plain",
			},
		},
	}
}

func entryWithBase64(data []byte) map[string]any {
	return map[string]any{
		"response": map[string]any{
			"content": map[string]any{
				"text":     base64.StdEncoding.EncodeToString(data),
				"encoding": "base64",
				"size":     int64(len(data)),
				"mimeType": "image/png",
			},
		},
	}
}

func TestOffloadSmallBodyStaysInline(t *testing.T) {
	dir := t.TempDir()
	writeHAR(t, dir, "capture.har", []map[string]any{entryWithText("small body")})

	cacheDir := t.TempDir()
	cache, err := blobcache.Open(cacheDir, nil)
	require.NoError(t, err)

	out, err := Offload(blob.NativeFS{Root: dir}, "capture.har", cache)
	require.NoError(t, err)
	require.Contains(t, string(out), "small body")
	require.NotContains(t, string(out), "hashtxt")
}

func TestOffloadLargeBodyIsHashed(t *testing.T) {
	dir := t.TempDir()
	big := strings.Repeat("x", blobcache.LargeBodyThreshold+1)
	writeHAR(t, dir, "capture.har", []map[string]any{entryWithText(big)})

	cacheDir := t.TempDir()
	cache, err := blobcache.Open(cacheDir, nil)
	require.NoError(t, err)

	out, err := Offload(blob.NativeFS{Root: dir}, "capture.har", cache)
	require.NoError(t, err)
	require.Contains(t, string(out), "hashtxt")
	require.NotContains(t, string(out), big)

	hash := blobcache.Hash([]byte(big))
	require.True(t, cache.Exists(hash, blobcache.ChannelText))
}

func TestOffloadBase64BodyAlwaysOffloads(t *testing.T) {
	dir := t.TempDir()
	payload := []byte{0x89, 0x50, 0x4e, 0x47, 0x01, 0x02, 0x03}
	writeHAR(t, dir, "capture.har", []map[string]any{entryWithBase64(payload)})

	cacheDir := t.TempDir()
	cache, err := blobcache.Open(cacheDir, nil)
	require.NoError(t, err)

	out, err := Offload(blob.NativeFS{Root: dir}, "capture.har", cache)
	require.NoError(t, err)
	require.Contains(t, string(out), "hashbin")

	hash := blobcache.Hash(payload)
	require.True(t, cache.Exists(hash, blobcache.ChannelBinary))
}

func TestEntryBlobPrefersHashReference(t *testing.T) {
	cacheDir := t.TempDir()
	cache, err := blobcache.Open(cacheDir, nil)
	require.NoError(t, err)

	hash, err := cache.Put(blobcache.ChannelText, []byte("hello"))
	require.NoError(t, err)

	c := &Content{HashText: hash}
	b, ok := EntryBlob(c, cache)
	require.True(t, ok)
	r, err := b.Open()
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))
}

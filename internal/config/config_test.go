// Copyright (c) Contributors.
// All rights reserved. Use of this source code is governed by a
// MIT-style license that can be found in the LICENSE file.
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitMissingFileKeepsDefaults(t *testing.T) {
	Keys = Config{BlobCacheDir: "./var/blob-cache", MetricsAddr: ":9090"}
	require.NoError(t, Init(filepath.Join(t.TempDir(), "nonexistent.json")))
	require.Equal(t, "./var/blob-cache", Keys.BlobCacheDir)
}

func TestInitDecodesFile(t *testing.T) {
	Keys = Config{}
	dir := t.TempDir()
	p := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(p, []byte(`{
		"inputs": ["a.har"],
		"blob-cache-dir": "/tmp/cache",
		"strict": true,
		"metrics-addr": ":9999"
	}`), 0o644))

	require.NoError(t, Init(p))
	require.Equal(t, []string{"a.har"}, Keys.Inputs)
	require.Equal(t, "/tmp/cache", Keys.BlobCacheDir)
	require.True(t, Keys.Strict)
	require.Equal(t, ":9999", Keys.MetricsAddr)
}

func TestInitResolvesEnvPrefixedValues(t *testing.T) {
	Keys = Config{}
	t.Setenv("TLREPLAY_S3_SECRET", "topsecret")

	dir := t.TempDir()
	p := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(p, []byte(`{"s3-mirror-secret-key": "env:TLREPLAY_S3_SECRET"}`), 0o644))

	require.NoError(t, Init(p))
	require.Equal(t, "topsecret", Keys.S3MirrorSecretKey)
}

func TestInitRejectsUnknownFields(t *testing.T) {
	Keys = Config{}
	dir := t.TempDir()
	p := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(p, []byte(`{"not-a-real-field": 1}`), 0o644))

	require.Error(t, Init(p))
}

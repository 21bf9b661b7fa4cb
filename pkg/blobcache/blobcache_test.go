// Copyright (c) Contributors.
// All rights reserved. Use of this source code is governed by a
// MIT-style license that can be found in the LICENSE file.
package blobcache

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingMirror struct {
	puts []string
}

func (m *recordingMirror) Put(hash string, channel Channel, data []byte) error {
	m.puts = append(m.puts, string(channel)+"/"+hash)
	return nil
}

func TestPutIsContentAddressedAndIdempotent(t *testing.T) {
	mirror := &recordingMirror{}
	cache, err := Open(t.TempDir(), mirror)
	require.NoError(t, err)

	hash, err := cache.Put(ChannelText, []byte("response body"))
	require.NoError(t, err)
	require.Equal(t, Hash([]byte("response body")), hash)
	require.True(t, cache.Exists(hash, ChannelText))
	require.Len(t, mirror.puts, 1)

	hash2, err := cache.Put(ChannelText, []byte("response body"))
	require.NoError(t, err)
	require.Equal(t, hash, hash2)
	require.Len(t, mirror.puts, 1, "idempotent write must not mirror twice")
}

func TestTextAndBinaryChannelsDoNotCollide(t *testing.T) {
	cache, err := Open(t.TempDir(), nil)
	require.NoError(t, err)

	payload := []byte("same bytes")
	hTxt, err := cache.Put(ChannelText, payload)
	require.NoError(t, err)
	hBin, err := cache.Put(ChannelBinary, payload)
	require.NoError(t, err)
	require.Equal(t, hTxt, hBin, "hash is content-derived regardless of channel")

	require.True(t, cache.Exists(hTxt, ChannelText))
	require.True(t, cache.Exists(hBin, ChannelBinary))
}

func TestBlobOpensWrittenPayload(t *testing.T) {
	cache, err := Open(t.TempDir(), nil)
	require.NoError(t, err)

	hash, err := cache.Put(ChannelBinary, []byte("binary payload"))
	require.NoError(t, err)

	r, err := cache.Blob(hash, ChannelBinary).Open()
	require.NoError(t, err)
	defer r.Close()

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, "binary payload", string(got))
}

func TestPutReaderHashesStream(t *testing.T) {
	cache, err := Open(t.TempDir(), nil)
	require.NoError(t, err)

	hash, err := cache.PutReader(ChannelText, strings.NewReader("streamed"))
	require.NoError(t, err)
	require.Equal(t, Hash([]byte("streamed")), hash)
}

// Copyright (c) Contributors.
// All rights reserved. Use of this source code is governed by a
// MIT-style license that can be found in the LICENSE file.
package searchindex

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSearchRequiresAllWords(t *testing.T) {
	ix := New()
	ix.Put(1, "gophers love concurrency", nil)
	ix.Put(2, "gophers love channels", nil)
	ix.Put(3, "snakes love nothing", nil)

	got, err := ix.Search("gophers love")
	require.NoError(t, err)
	require.Equal(t, map[int64]struct{}{1: {}, 2: {}}, got)
}

func TestSearchIsCaseInsensitive(t *testing.T) {
	ix := New()
	ix.Put(1, "Gophers Love Concurrency", nil)

	got, err := ix.Search("GOPHERS concurrency")
	require.NoError(t, err)
	require.Contains(t, got, int64(1))
}

func TestSearchMatchesMediaURLSubstring(t *testing.T) {
	ix := New()
	ix.Put(1, "no relevant words here", []string{"https://example.com/media/catpic.png"})

	got, err := ix.Search("catpic")
	require.NoError(t, err)
	require.Contains(t, got, int64(1))
}

func TestSearchEmptyQueryMatchesNothing(t *testing.T) {
	ix := New()
	ix.Put(1, "anything", nil)

	got, err := ix.Search("   ")
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestDeleteRemovesFromIndex(t *testing.T) {
	ix := New()
	ix.Put(1, "gophers", nil)
	ix.Delete(1)

	got, err := ix.Search("gophers")
	require.NoError(t, err)
	require.Empty(t, got)
}

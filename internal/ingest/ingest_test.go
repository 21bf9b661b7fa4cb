// Copyright (c) Contributors.
// All rights reserved. Use of this source code is governed by a
// MIT-style license that can be found in the LICENSE file.
package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestClassifyByExtension(t *testing.T) {
	k, ok := classify("capture.har")
	require.True(t, ok)
	require.Equal(t, KindHAR, k)

	k, ok = classify("capture.warc")
	require.True(t, ok)
	require.Equal(t, KindWARC, k)

	k, ok = classify("capture.warc.open")
	require.True(t, ok)
	require.Equal(t, KindWARC, k)

	k, ok = classify("bundle.zip")
	require.True(t, ok)
	require.Equal(t, KindExportZip, k)

	k, ok = classify("list.txt")
	require.True(t, ok)
	require.Equal(t, KindListFile, k)
}

func TestClassifyDetectsExportDirByMarker(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "data", "tweets.js"))

	k, ok := classify(dir)
	require.True(t, ok)
	require.Equal(t, KindExportDir, k)
}

func TestClassifyRejectsUnknownPath(t *testing.T) {
	dir := t.TempDir()
	_, ok := classify(dir)
	require.False(t, ok)
}

func TestSortInputsRanksExportBundlesFirst(t *testing.T) {
	inputs := []Input{
		{Kind: KindHAR, Path: "a.har"},
		{Kind: KindExportZip, Path: "b.zip"},
		{Kind: KindWARC, Path: "c.warc"},
		{Kind: KindExportDir, Path: "d-dir"},
	}
	sortInputs(inputs)

	require.Equal(t, KindExportZip, inputs[0].Kind)
	require.Equal(t, KindExportDir, inputs[1].Kind)
	require.Equal(t, KindHAR, inputs[2].Kind)
	require.Equal(t, KindWARC, inputs[3].Kind)
}

func TestExpandListFileResolvesRelativePathsAndRecurses(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "one.har"))
	touch(t, filepath.Join(dir, "two.warc"))

	nested := filepath.Join(dir, "nested.txt")
	require.NoError(t, os.WriteFile(nested, []byte("two.warc\n"), 0o644))

	top := filepath.Join(dir, "list.txt")
	require.NoError(t, os.WriteFile(top, []byte("one.har\n# a comment\n\nnested.txt\n"), 0o644))

	inputs, err := expandListFile(top)
	require.NoError(t, err)
	require.Len(t, inputs, 2)
	require.Equal(t, KindHAR, inputs[0].Kind)
	require.Equal(t, KindWARC, inputs[1].Kind)
}

func TestDiscoverExplicitArgsPreserveOrder(t *testing.T) {
	dir := t.TempDir()
	harPath := filepath.Join(dir, "x.har")
	warcPath := filepath.Join(dir, "y.warc")
	touch(t, harPath)
	touch(t, warcPath)

	inputs, err := Discover([]string{warcPath, harPath}, "", "")
	require.NoError(t, err)
	require.Equal(t, []Input{{Kind: KindWARC, Path: warcPath}, {Kind: KindHAR, Path: harPath}}, inputs)
}

func TestDiscoverWithoutArgsSortsDirectoryByRank(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "b.har"))
	touch(t, filepath.Join(dir, "a.zip"))

	inputs, err := Discover(nil, "", dir)
	require.NoError(t, err)
	require.Len(t, inputs, 2)
	require.Equal(t, KindExportZip, inputs[0].Kind)
	require.Equal(t, KindHAR, inputs[1].Kind)
}

func TestDiscoverUnrecognizedExplicitArgErrors(t *testing.T) {
	_, err := Discover([]string{"/nonexistent/path/with/no/extension"}, "", "")
	require.Error(t, err)
}

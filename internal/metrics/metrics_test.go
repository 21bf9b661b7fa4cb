// Copyright (c) Contributors.
// All rights reserved. Use of this source code is governed by a
// MIT-style license that can be found in the LICENSE file.
package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/tlreplay/tlreplay/internal/store"
	"github.com/tlreplay/tlreplay/pkg/blob"
	"github.com/tlreplay/tlreplay/pkg/schema"
)

func TestRecordIngestedIncrementsPerKindCounter(t *testing.T) {
	before := testutil.ToFloat64(recordsIngested.WithLabelValues("har"))
	RecordIngested("har")
	require.Equal(t, before+1, testutil.ToFloat64(recordsIngested.WithLabelValues("har")))
}

func TestRecordSkippedIncrementsPerReasonCounter(t *testing.T) {
	before := testutil.ToFloat64(recordsSkipped.WithLabelValues("schema-deviation"))
	RecordSkipped("schema-deviation")
	require.Equal(t, before+1, testutil.ToFloat64(recordsSkipped.WithLabelValues("schema-deviation")))
}

func TestSetStoreGaugesReflectsStoreContents(t *testing.T) {
	s, err := store.New(blob.NativeFS{Root: t.TempDir()})
	require.NoError(t, err)
	defer s.Close()

	post := schema.NewPost(1)
	post.AuthorID = 2
	s.UpsertPost(post)
	s.UpsertProfile(&schema.Profile{UserID: 2, ScreenName: "a"})

	SetStoreGauges(s)
	require.Equal(t, float64(1), testutil.ToFloat64(storePosts))
	require.Equal(t, float64(1), testutil.ToFloat64(storeProfiles))
}

func TestDumpTextIncludesRegisteredMetricNames(t *testing.T) {
	RecordIngested("export")
	text, err := DumpText()
	require.NoError(t, err)
	require.True(t, strings.Contains(text, "tlreplay_ingest_records_total"))
}

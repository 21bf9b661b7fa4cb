// Copyright (c) Contributors.
// All rights reserved. Use of this source code is governed by a
// MIT-style license that can be found in the LICENSE file.
package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tlreplay/tlreplay/internal/capture/export"
	"github.com/tlreplay/tlreplay/pkg/schema"
)

func TestIngestExportPersistsEverything(t *testing.T) {
	s := newTestStore(t)

	post := schema.NewPost(10)
	post.AuthorID = 1
	post.Text = "hi"

	conv := &schema.Conversation{ID: "c1"}
	conv.AddMessage(schema.Message{ID: "m1", Kind: schema.MessageCreate, SenderID: 1, Text: "hey", CreatedAt: time.Now()})

	res := &export.Result{
		Observer: 1,
		Profile:  &schema.Profile{UserID: 1, ScreenName: "alice"},
		Posts:    []*schema.Post{post},
		LikesSnapshot: &schema.Snapshot{
			Observer: 1,
			List:     schema.ListKindLikes,
			Items:    []int64{10},
		},
		Conversations: map[string]*schema.Conversation{"c1": conv},
	}

	ingestExport(s, res)

	require.True(t, s.IsObserver(1))
	require.NotNil(t, s.Profile(1))
	require.NotNil(t, s.Post(10))
	require.NotNil(t, s.ConversationByID("c1"))
	require.Len(t, s.ConversationByID("c1").Messages, 1)
}

func TestIngestExportMergesConversationAcrossCalls(t *testing.T) {
	s := newTestStore(t)

	convA := &schema.Conversation{ID: "c1"}
	convA.AddMessage(schema.Message{ID: "m1", Kind: schema.MessageCreate, SenderID: 1, Text: "first"})
	resA := &export.Result{Observer: 1, Conversations: map[string]*schema.Conversation{"c1": convA}}
	ingestExport(s, resA)

	convB := &schema.Conversation{ID: "c1"}
	convB.AddMessage(schema.Message{ID: "m1", Kind: schema.MessageCreate, SenderID: 1, Text: "first"})
	convB.AddMessage(schema.Message{ID: "m2", Kind: schema.MessageCreate, SenderID: 2, Text: "second"})
	resB := &export.Result{Observer: 1, Conversations: map[string]*schema.Conversation{"c1": convB}}
	ingestExport(s, resB)

	require.Len(t, s.ConversationByID("c1").Messages, 2)
}

// Copyright (c) Contributors.
// All rights reserved. Use of this source code is governed by a
// MIT-style license that can be found in the LICENSE file.
package export

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tlreplay/tlreplay/pkg/blob"
)

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func buildMinimalBundle(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	writeFile(t, dir, "data/account.js", `window.YTD.account.part0 = [{"account":{"accountId":"42","username":"alice","accountDisplayName":"Alice"}}]`)
	writeFile(t, dir, "data/profile.js", `window.YTD.profile.part0 = [{"profile":{"description":{"bio":"hello bio"}}}]`)
	writeFile(t, dir, "data/tweets.js", `window.YTD.tweets.part0 = [`+
		`{"tweet":{"id_str":"100","full_text":"first post","created_at":"Wed Oct 10 20:19:24 +0000 2018"}},`+
		`{"tweet":{"id_str":"101","full_text":"a reply","created_at":"Wed Oct 10 20:20:24 +0000 2018","in_reply_to_status_id_str":"100","in_reply_to_user_id_str":"42","in_reply_to_screen_name":"alice"}}`+
		`]`)
	writeFile(t, dir, "data/like.js", `window.YTD.like.part0 = [`+
		`{"like":{"tweetId":"200","fullText":"a liked tweet text"}},`+
		`{"like":{"tweetId":"201"}}`+
		`]`)
	writeFile(t, dir, "data/direct-messages.js", `window.YTD.direct_messages.part0 = [`+
		`{"dmConversation":{"conversationId":"42-99","messages":[`+
		`{"messageCreate":{"id":"m1","senderId":"42","text":"hi","createdAt":"2021-05-03T12:00:00.000Z"}}`+
		`]}}]`)
	writeFile(t, dir, "data/direct-messages-group.js", `window.YTD.direct_messages_group.part0 = []`)

	return dir
}

func TestReadMinimalBundle(t *testing.T) {
	dir := buildMinimalBundle(t)
	res, err := Read(blob.NativeFS{Root: dir})
	require.NoError(t, err)

	require.Equal(t, int64(42), res.Observer)
	require.Equal(t, "alice", res.Profile.ScreenName)
	require.Equal(t, "hello bio", res.Profile.Description)

	var post100, post101 bool
	for _, p := range res.Posts {
		if p.ID == 100 {
			post100 = true
			require.Equal(t, "first post", p.Text)
			require.Equal(t, int64(42), p.AuthorID)
		}
		if p.ID == 101 {
			post101 = true
			require.NotNil(t, p.ReplyTo)
			require.Equal(t, int64(100), p.ReplyTo.PostID)
		}
	}
	require.True(t, post100)
	require.True(t, post101)

	require.NotNil(t, res.LikesSnapshot)
	require.Equal(t, []int64{200, 201}, res.LikesSnapshot.Items)

	var stub200 *int64
	for _, p := range res.Posts {
		if p.ID == 200 {
			id := p.ID
			stub200 = &id
			require.Equal(t, "a liked tweet text", p.Text)
		}
	}
	require.NotNil(t, stub200)

	conv, ok := res.Conversations["42-99"]
	require.True(t, ok)
	require.Len(t, conv.Messages, 1)
	require.Equal(t, "hi", conv.Messages[0].Text)
}

func TestReadRejectsMissingLayout(t *testing.T) {
	dir := t.TempDir()
	_, err := Read(blob.NativeFS{Root: dir})
	require.Error(t, err)
}

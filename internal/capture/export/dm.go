// Copyright (c) Contributors.
// All rights reserved. Use of this source code is governed by a
// MIT-style license that can be found in the LICENSE file.
package export

import (
	"path"
	"time"

	"github.com/tlreplay/tlreplay/pkg/blob"
	"github.com/tlreplay/tlreplay/pkg/schema"
)

type dmMessageCreate struct {
	ID        string `json:"id"`
	SenderID  string `json:"senderId"`
	Text      string `json:"text"`
	CreatedAt string `json:"createdAt"`
}

type dmJoinOrLeave struct {
	CreatedAt string `json:"createdAt"`
}

type dmMessageEnvelope struct {
	MessageCreate     *dmMessageCreate `json:"messageCreate,omitempty"`
	JoinConversation  *dmJoinOrLeave   `json:"joinConversation,omitempty"`
	ParticipantsLeave *dmJoinOrLeave   `json:"participantsLeave,omitempty"`
}

type dmConversationRecord struct {
	DMConversation struct {
		ConversationID string              `json:"conversationId"`
		Messages       []dmMessageEnvelope `json:"messages"`
	} `json:"dmConversation"`
}

// readConversations loads and merges the two direct-message export
// files (1:1 and group), keyed by conversation id, deduplicating
// messages by id (§4.3). A conversation may be split across multiple
// entries in either file while keeping the same conversation id.
//
// Join/leave events are preserved on the conversation (open question
// (c)) rather than silently dropped the way the original reader's
// messageCreate-only id lookup effectively did; they get a synthetic id
// derived from their own content so repeated ingestion still dedups.
func readConversations(fs blob.FS, base string) (map[string]*schema.Conversation, error) {
	out := map[string]*schema.Conversation{}

	sources := []struct {
		name   string
		prefix string
	}{
		{"direct-messages.js", "window.YTD.direct_messages.part0 = "},
		{"direct-messages-group.js", "window.YTD.direct_messages_group.part0 = "},
	}

	for _, src := range sources {
		p := path.Join(base, src.name)
		if !fs.Exists(p) {
			continue
		}
		var records []dmConversationRecord
		if err := loadWithPrefix(fs, p, src.prefix, &records); err != nil {
			return out, err
		}
		for _, rec := range records {
			cid := rec.DMConversation.ConversationID
			conv, ok := out[cid]
			if !ok {
				conv = &schema.Conversation{ID: cid}
				out[cid] = conv
			}
			for _, env := range rec.DMConversation.Messages {
				conv.AddMessage(dmMessageFromEnvelope(cid, env))
			}
		}
	}

	return out, nil
}

func dmMessageFromEnvelope(conversationID string, env dmMessageEnvelope) schema.Message {
	switch {
	case env.MessageCreate != nil:
		mc := env.MessageCreate
		return schema.Message{
			ID:        mc.ID,
			Kind:      schema.MessageCreate,
			SenderID:  parseInt64(mc.SenderID),
			Text:      mc.Text,
			CreatedAt: parseDMTime(mc.CreatedAt),
		}
	case env.JoinConversation != nil:
		return schema.Message{
			ID:        conversationID + ":join:" + env.JoinConversation.CreatedAt,
			Kind:      schema.MessageJoin,
			CreatedAt: parseDMTime(env.JoinConversation.CreatedAt),
		}
	case env.ParticipantsLeave != nil:
		return schema.Message{
			ID:        conversationID + ":leave:" + env.ParticipantsLeave.CreatedAt,
			Kind:      schema.MessageLeave,
			CreatedAt: parseDMTime(env.ParticipantsLeave.CreatedAt),
		}
	default:
		return schema.Message{}
	}
}

// dmTimeLayout is the ISO-8601-with-milliseconds format DM export
// records use for createdAt, e.g. "2021-05-03T12:00:00.000Z".
const dmTimeLayout = "2006-01-02T15:04:05.000Z"

func parseDMTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(dmTimeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

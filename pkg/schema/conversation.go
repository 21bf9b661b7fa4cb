// Copyright (c) Contributors.
// All rights reserved. Use of this source code is governed by a
// MIT-style license that can be found in the LICENSE file.
package schema

import "time"

// MessageKind enumerates the direct-message event variants a
// conversation can carry. Only MessageCreate is exposed through any §6
// query; Join/Leave are preserved on the conversation but otherwise
// unread by the core (open question (c), SPEC_FULL.md §5).
type MessageKind string

const (
	MessageCreate MessageKind = "create"
	MessageJoin   MessageKind = "join"
	MessageLeave  MessageKind = "leave"
)

// Message is a single direct-message conversation event.
type Message struct {
	ID        string
	Kind      MessageKind
	SenderID  int64
	Text      string
	CreatedAt time.Time
}

// Conversation is a direct-message thread (§3). Two-party conversation
// ids have the form "A-B"; group conversation ids are opaque strings.
type Conversation struct {
	ID       string
	Messages []Message

	knownIDs map[string]struct{}
}

// AddMessage appends msg to the conversation unless a message with the
// same id has already been recorded (dedup on re-ingest, §3).
func (c *Conversation) AddMessage(msg Message) (added bool) {
	if c.knownIDs == nil {
		c.knownIDs = map[string]struct{}{}
	}
	if _, ok := c.knownIDs[msg.ID]; ok {
		return false
	}
	c.knownIDs[msg.ID] = struct{}{}
	c.Messages = append(c.Messages, msg)
	return true
}

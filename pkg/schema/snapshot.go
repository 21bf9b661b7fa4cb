// Copyright (c) Contributors.
// All rights reserved. Use of this source code is governed by a
// MIT-style license that can be found in the LICENSE file.
package schema

import "time"

// ListKind names an append-ordered list a Snapshot can observe. Only
// "likes" is produced by any capture reader today, but the type exists
// so a second list kind (e.g. bookmarks-by-event, should a source ever
// expose one) needs no change to the alignment algorithm.
type ListKind string

const ListKindLikes ListKind = "likes"

// EventItem is one (event-id, item-id) pair, as produced by an Events
// snapshot or by the alignment algorithm's output.
type EventItem struct {
	EventID int64
	ItemID  int64
}

// Snapshot is a single observation of an append-ordered list, taken at
// wall-clock time Observed (§3). Exactly one of Items/Events is set.
type Snapshot struct {
	Observer int64
	List     ListKind
	Observed time.Time

	// Items is set for an "items snapshot": an ordered, most-recent-first
	// sequence of item ids with no event id attached.
	Items []int64

	// Events is set for an "events snapshot": an ordered sequence of
	// (event-id, item-id) pairs, strictly decreasing by event id.
	Events []EventItem
}

// IsEvents reports whether this is an events snapshot.
func (s *Snapshot) IsEvents() bool {
	return s.Events != nil
}

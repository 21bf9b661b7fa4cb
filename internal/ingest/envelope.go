// Copyright (c) Contributors.
// All rights reserved. Use of this source code is governed by a
// MIT-style license that can be found in the LICENSE file.
package ingest

import (
	"fmt"

	"github.com/tlreplay/tlreplay/internal/store"
	"github.com/tlreplay/tlreplay/pkg/log"
)

// LayoutEntry is one positioned slot of a timeline/module response: the
// entry's own id, the entity id it resolved to (a post or user), and
// its sort index within the response (§4.6, used by callers that need
// to reconstruct response order rather than just the set of entities
// mentioned).
type LayoutEntry struct {
	SortIndex int64
	Name      string
	ItemID    int64
}

// Cursor is a pagination cursor surfaced by a timeline response. The
// dispatcher's handlers do not currently follow cursors (a capture only
// ever records what was actually fetched) but keep them around for
// handlers that want to tag a response as "continues from" a prior one.
type Cursor struct {
	Name  string
	Value node
}

// walker descends one GraphQL response's "data" tree, persisting every
// user and tweet it finds into the store. It is the generalized form of
// the original per-source DB.add_* method chain (§9 "envelope walker as
// pattern-matching functions").
type walker struct {
	store  *store.Store
	ctx    Context
	strict bool
}

func newWalker(s *store.Store, ctx Context, strict bool) *walker {
	return &walker{store: s, ctx: ctx, strict: strict}
}

// handleDeviation reports an envelope shape the walker does not
// recognize (§7: ErrSchemaDeviation). In strict mode (development) this
// is fatal so a new response shape is noticed immediately; otherwise the
// offending subtree is skipped and ingestion continues.
func (w *walker) handleDeviation(record string, err error) {
	if w.strict {
		log.Panicf("ingest: %s: %v", record, err)
	}
	log.Warnf("ingest: skipping %s: %v", record, err)
}

// addItemContent dispatches one "itemContent" node by its __typename
// (the envelope's innermost tag, §9). Only TimelineUser and
// TimelineTweet carry an entity worth persisting; the rest are UI
// furniture the original source itself discards.
func (w *walker) addItemContent(content node, name string, cursors *[]Cursor) (id int64, ok bool) {
	switch content.typename() {
	case "TimelineUser":
		res := content.node("user_results").node("result")
		if len(res) == 0 {
			return 0, false
		}
		w.addUser(res)
		return res.int64("rest_id"), true
	case "TimelineTweet":
		if content.has("promotedMetadata") {
			return 0, false
		}
		tr := content.node("tweet_results")
		if len(tr) == 0 || len(tr.node("result")) == 0 {
			return 0, false
		}
		return w.addTweet(tr.node("result"))
	case "TimelineTimelineCursor":
		if cursors != nil {
			*cursors = append(*cursors, Cursor{Name: name, Value: content})
		}
		return 0, false
	case "TimelineTweetComposer", "TimelineTombstone", "TimelineCommunity",
		"TimelineMessagePrompt", "TimelineLabel", "TimelinePrompt",
		"TimelineSpelling", "TimelineTrend":
		return 0, false
	default:
		w.handleDeviation("item content", fmt.Errorf("unknown item content typename %q", content.typename()))
		return 0, false
	}
}

// addModuleEntry persists one module member (a row inside a
// TimelineTimelineModule, e.g. a "Who to follow" carousel entry).
func (w *walker) addModuleEntry(entry node, name string) (int64, bool) {
	return w.addItemContent(entry.node("itemContent"), name, nil)
}

// addModuleItem persists one module-list item as addressed from a
// TimelineAddToModule instruction.
func (w *walker) addModuleItem(item node) {
	name, _ := item.get("entryId").(string)
	w.addModuleEntry(item.node("item"), name)
}

// addTimelineAddEntry dispatches one timeline entry by its entryType
// (the middle tag in the envelope's three-level tagging scheme, §9).
// Promoted/related-tweet filler is dropped before the switch, mirroring
// the original's clientEventInfo.component check.
func (w *walker) addTimelineAddEntry(item node, name string, cursors *[]Cursor) (LayoutEntry, bool) {
	component := item.node("clientEventInfo").str("component")
	if component == "suggest_promoted" || component == "related_tweet" {
		return LayoutEntry{}, false
	}

	switch item.str("entryType") {
	case "TimelineTimelineItem":
		id, ok := w.addItemContent(item.node("itemContent"), name, cursors)
		return LayoutEntry{Name: name, ItemID: id}, ok
	case "TimelineTimelineModule":
		for _, raw := range item.arr("items") {
			entryNode, ok := asNode(raw)
			if !ok {
				continue
			}
			w.addModuleItem(entryNode)
		}
		return LayoutEntry{}, false
	case "TimelineTimelineCursor":
		if cursors != nil {
			*cursors = append(*cursors, Cursor{Name: name, Value: item})
		}
		return LayoutEntry{}, false
	default:
		w.handleDeviation("timeline entry", fmt.Errorf("unknown entryType %q", item.str("entryType")))
		return LayoutEntry{}, false
	}
}

// addWithInstructions walks a "timeline.instructions" array (the
// outermost tag, §9), returning the positioned entries it added and any
// pagination cursors it passed over.
func (w *walker) addWithInstructions(data node) ([]LayoutEntry, []Cursor) {
	var layout []LayoutEntry
	var cursors []Cursor

	for _, raw := range data.arr("instructions") {
		instr, ok := asNode(raw)
		if !ok {
			continue
		}
		switch instr.str("type") {
		case "TimelineClearCache", "TimelineTerminateTimeline", "TimelineShowAlert",
			"TimelineReplaceEntry", "TimelineShowCover":
			// no entity content; nothing to persist.
		case "TimelinePinEntry":
			entry := instr.node("entry")
			le, ok := w.addTimelineAddEntry(entry.node("content"), entry.str("entryId"), &cursors)
			if ok {
				le.SortIndex = entry.int64("sortIndex")
				layout = append(layout, le)
			}
		case "TimelineAddToModule":
			for _, raw := range instr.arr("moduleItems") {
				modit, ok := asNode(raw)
				if !ok {
					continue
				}
				w.addModuleEntry(modit.node("item"), modit.str("entryId"))
			}
		case "TimelineAddEntries":
			for _, raw := range instr.arr("entries") {
				entry, ok := asNode(raw)
				if !ok {
					continue
				}
				le, ok := w.addTimelineAddEntry(entry.node("content"), entry.str("entryId"), &cursors)
				if ok {
					le.SortIndex = entry.int64("sortIndex")
					layout = append(layout, le)
				}
			}
		default:
			w.handleDeviation("instruction", fmt.Errorf("unknown instruction type %q", instr.str("type")))
		}
	}
	return layout, cursors
}

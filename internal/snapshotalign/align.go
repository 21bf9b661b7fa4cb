// Copyright (c) Contributors.
// All rights reserved. Use of this source code is governed by a
// MIT-style license that can be found in the LICENSE file.

// Package snapshotalign reconciles repeated observations of one
// append-ordered list (an observer's likes, most commonly) into a
// single globally-ordered sequence. Some observations identify only
// the items (an export bundle's like list); others identify the item
// together with the event that added it (an API response's cursor
// list). Observations are always processed most-recent-first; a
// removal followed by re-addition moves the item back to the top
// (§4.5).
package snapshotalign

import "sort"

// Pair is one resolved (event-id, item-id) output entry.
type Pair struct {
	EventID int64
	ItemID  string
}

// Snapshot is either an ItemsSnapshot or an EventsSnapshot.
type Snapshot interface{ isSnapshot() }

// ItemsSnapshot observed only the identity and order of items, with no
// event id attached to any of them (an export bundle's like list).
type ItemsSnapshot struct {
	Items []string
}

func (ItemsSnapshot) isSnapshot() {}

// Event is one (event-id, item-id) observation within an EventsSnapshot.
type Event struct {
	EventID int64
	ItemID  string
}

// EventsSnapshot observed items together with the event id that added
// them (an API cursor page). Seq must already be sorted by descending
// EventID, newest first.
type EventsSnapshot struct {
	Seq []Event
}

func (EventsSnapshot) isSnapshot() {}

// LowerBoundFunc yields a monotone lower bound on the event id that
// could plausibly have added itemID, derived externally (for posts
// and likes, from the item id's embedded timestamp: an item is always
// newer than any event that first mentions it). ok is false when no
// bound applies.
type LowerBoundFunc func(itemID string) (bound int64, ok bool)

// entry is one working-sequence slot: a concrete resolved event id
// (evid > 0) or a placeholder version number (evid <= 0), unique per
// occurrence via the monotonically decreasing counter in newver.
type entry struct {
	itemID string
	evid   int64
}

// edgeKey identifies one (item id, version) slot for the recognized
// and edges maps — the same key shape the placeholder versions index
// into.
type edgeKey struct {
	itemID string
	evid   int64
}

type indexEntry struct {
	pos  int
	evid int64
}

// Align merges snapshots, given most-recent-first, into one sequence
// of (event-id, item-id) pairs sorted by descending event id,
// containing every item observed in any snapshot exactly once (§4.5).
// allowRetcon controls whether a non-contiguous match against the
// working sequence is tolerated (true) or breaks the match (false).
func Align(snapshots []Snapshot, lowerBound LowerBoundFunc, allowRetcon bool) []Pair {
	var currentSeq []entry
	recognized := map[edgeKey]int64{}
	edges := map[edgeKey][]entry{}
	ver := map[string]int64{}

	newver := func(itid string) int64 {
		v := ver[itid]
		ver[itid] = v - 1
		return v
	}

	var seqs [][]entry

	for _, snap := range snapshots {
		prevSeq := currentSeq
		index := map[string]indexEntry{}
		for i, e := range prevSeq {
			index[e.itemID] = indexEntry{pos: i, evid: e.evid}
		}

		switch s := snap.(type) {
		case ItemsSnapshot:
			currentSeq = alignItems(s, prevSeq, index, allowRetcon, edges, newver)
		case EventsSnapshot:
			if len(prevSeq) == 0 {
				seq := make([]entry, len(s.Seq))
				for i, ev := range s.Seq {
					seq[i] = entry{itemID: ev.ItemID, evid: ev.EventID}
				}
				currentSeq = seq
			} else {
				currentSeq = alignEvents(s, prevSeq, index, allowRetcon, edges, recognized)
			}
		}

		seqs = append(seqs, currentSeq)
	}

	resolve(seqs, edges, recognized, lowerBound)

	evmap := map[string]int64{}
	for i := len(seqs) - 1; i >= 0; i-- {
		for _, e := range seqs[i] {
			evid := e.evid
			if evid <= 0 {
				v, ok := recognized[edgeKey{e.itemID, evid}]
				if !ok {
					panic("snapshotalign: item " + e.itemID + " never resolved to a concrete event id")
				}
				evid = v
			}
			evmap[e.itemID] = evid
		}
	}

	out := make([]Pair, 0, len(evmap))
	for itid, evid := range evmap {
		out = append(out, Pair{EventID: evid, ItemID: itid})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EventID != out[j].EventID {
			return out[i].EventID > out[j].EventID
		}
		return out[i].ItemID < out[j].ItemID
	})
	return out
}

// alignItems handles an Items snapshot against a non-empty working
// sequence: find the longest same-order subsequence shared with
// prevSeq, anchor on it, and splice new items above/below the match.
func alignItems(s ItemsSnapshot, prevSeq []entry, index map[string]indexEntry, allowRetcon bool, edges map[edgeKey][]entry, newver func(string) int64) []entry {
	if len(prevSeq) == 0 {
		seq := make([]entry, len(s.Items))
		for i, itid := range s.Items {
			seq[i] = entry{itemID: itid, evid: newver(itid)}
		}
		return seq
	}

	var matching []int
	ri := 0
	riSet := false
	for j, itid := range s.Items {
		idx, ok := index[itid]
		if !ok {
			continue
		}
		i := idx.pos
		if riSet {
			if i < ri {
				continue
			} else if ri+1 < i && !allowRetcon {
				matching = nil
			}
		}
		matching = append(matching, j)
		ri = i
		riSet = true
	}

	currentSeq := make([]entry, 0, len(s.Items))
	for j, itid := range s.Items {
		idx, ok := index[itid]
		evid := int64(0)
		if ok {
			evid = idx.evid
		}
		if evid <= 0 && !containsInt(matching, j) {
			currentSeq = append(currentSeq, entry{itemID: itid, evid: newver(itid)})
		} else {
			currentSeq = append(currentSeq, entry{itemID: itid, evid: evid})
		}
	}

	if !containsInt(matching, 0) {
		var fi int
		if len(matching) > 0 {
			fi = index[s.Items[matching[0]]].pos
		} else {
			fi = len(prevSeq)
			ri = len(prevSeq)
			riSet = true
		}
		if fi > 0 {
			k := edgeKey{prevSeq[fi-1].itemID, prevSeq[fi-1].evid}
			edges[k] = append(edges[k], currentSeq[0])
		}
	}

	if !riSet {
		panic("snapshotalign: items snapshot produced no anchor into the working sequence")
	}
	currentSeq = append(currentSeq, tailFrom(prevSeq, ri+1)...)
	return currentSeq
}

// tailFrom returns s[from:], treating from beyond len(s) as yielding an
// empty slice (unlike a raw Go slice expression, which panics once from
// exceeds cap(s)) — the "insert below" branches size prevSeq's tail at
// exactly len(prevSeq), one past its last valid index.
func tailFrom(s []entry, from int) []entry {
	if from >= len(s) {
		return nil
	}
	return s[from:]
}

// alignEvents handles an Events snapshot against a non-empty working
// sequence: matched items recognize their placeholder version as a
// concrete event id; an unmatched snapshot splices above or below the
// working sequence depending on how its event-id range compares to it.
func alignEvents(s EventsSnapshot, prevSeq []entry, index map[string]indexEntry, allowRetcon bool, edges map[edgeKey][]entry, recognized map[edgeKey]int64) []entry {
	currentSeq := make([]entry, len(s.Seq))
	for i, ev := range s.Seq {
		currentSeq[i] = entry{itemID: ev.ItemID, evid: ev.EventID}
	}

	var matching []int
	fi := 0
	fiSet := false
	ri := 0
	riSet := false
	for j, ev := range s.Seq {
		idx, ok := index[ev.ItemID]
		if !ok {
			continue
		}
		i := idx.pos
		if !fiSet {
			fi = i
			fiSet = true
		}
		if riSet {
			if i < ri {
				continue
			} else if i > ri+1 && !allowRetcon {
				panic("snapshotalign: events snapshot retcon with allowRetcon disabled")
			}
		}
		ri = i
		riSet = true
		matching = append(matching, j)
	}

	for j, ev := range s.Seq {
		idx, ok := index[ev.ItemID]
		revid := int64(1)
		if ok {
			revid = idx.evid
		}
		if revid <= 0 && containsInt(matching, j) {
			recognized[edgeKey{ev.ItemID, revid}] = ev.EventID
		}
	}

	if len(matching) == 0 {
		top := s.Seq[0].EventID
		var pfev *int64
		for _, e := range prevSeq {
			if e.evid > top {
				v := e.evid
				pfev = &v
			}
		}
		// The original's symmetric lower-bound check is permanently
		// inert (a self-assignment bug), so only the above-bound
		// branch is ever reachable and is preserved as the sole path.
		if pfev == nil {
			fi, fiSet = 0, true
			ri, riSet = -1, true
		} else {
			fi, fiSet = len(prevSeq), true
			ri, riSet = len(prevSeq)-1, true
		}
	}

	if !containsInt(matching, 0) && fi > 0 {
		top := entry{itemID: s.Seq[0].ItemID, evid: s.Seq[0].EventID}
		k := edgeKey{prevSeq[fi-1].itemID, prevSeq[fi-1].evid}
		edges[k] = append(edges[k], top)
	}

	if !fiSet {
		return currentSeq
	}
	out := make([]entry, 0, len(currentSeq)+len(prevSeq))
	out = append(out, prevSeq[:fi]...)
	out = append(out, currentSeq...)
	out = append(out, tailFrom(prevSeq, ri+1)...)
	return out
}

// resolve walks every snapshot's working sequence from oldest to
// newest, promoting each placeholder version to a concrete event id
// bounded below by the most recently resolved id in the same pass,
// any recognition from an Events snapshot, inbound edges, and the
// caller-supplied lower bound.
func resolve(seqs [][]entry, edges map[edgeKey][]entry, recognized map[edgeKey]int64, lowerBound LowerBoundFunc) {
	zero := int64(0)
	pevid := &zero // only the oldest (first-iterated) sequence gets a 0 floor; every later one starts unbounded.

	for i := len(seqs) - 1; i >= 0; i-- {
		seq := seqs[i]

		for j := len(seq) - 1; j >= 0; j-- {
			itid := seq[j].itemID
			evid := seq[j].evid
			if evid <= 0 {
				if v, ok := recognized[edgeKey{itid, evid}]; ok {
					evid = v
				}
			}
			if evid <= 0 {
				var bounds []int64
				if pevid != nil {
					bounds = append(bounds, *pevid)
				}
				if v, ok := recognized[edgeKey{itid, evid - 1}]; ok {
					bounds = append(bounds, v)
				}
				for _, xe := range edges[edgeKey{itid, evid}] {
					xevid := xe.evid
					if xevid <= 0 {
						v, ok := recognized[edgeKey{xe.itemID, xevid}]
						if !ok {
							panic("snapshotalign: edge target never resolved")
						}
						xevid = v
					}
					bounds = append(bounds, xevid)
				}
				if lowerBound != nil {
					if b, ok := lowerBound(itid); ok {
						bounds = append(bounds, b)
					}
				}
				if len(bounds) > 0 {
					resolved := maxInt64(bounds) + 1
					recognized[edgeKey{itid, seq[j].evid}] = resolved
					pevid = &resolved
				}
			} else {
				pevid = &evid
			}
		}
		pevid = nil
	}
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

func maxInt64(xs []int64) int64 {
	m := xs[0]
	for _, x := range xs[1:] {
		if x > m {
			m = x
		}
	}
	return m
}

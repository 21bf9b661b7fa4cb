// Copyright (c) Contributors.
// All rights reserved. Use of this source code is governed by a
// MIT-style license that can be found in the LICENSE file.
package store

import (
	"strings"

	trie "github.com/derekparker/trie/v3"
)

// handleIndex resolves a screen name to the most recently observed
// user id. Handles are recycled over a user's lifetime (§3: "Handle→id
// is many-to-many in the store"), so a later registration for the same
// handle silently supersedes an earlier one; no removal is ever
// needed since a reload rebuilds this index from scratch.
type handleIndex struct {
	t *trie.Trie[int64]
}

func newHandleIndex() *handleIndex {
	return &handleIndex{t: trie.New[int64]()}
}

// add registers handle (case-folded) as currently bound to uid.
func (h *handleIndex) add(handle string, uid int64) {
	if handle == "" {
		return
	}
	h.t.Add(strings.ToLower(handle), uid)
}

// lookup returns the user id currently bound to handle.
func (h *handleIndex) lookup(handle string) (int64, bool) {
	node, ok := h.t.Find(strings.ToLower(handle))
	if !ok {
		return 0, false
	}
	return node.Meta(), true
}

// prefix returns every user id whose handle starts with the given
// prefix, most useful for the presentation layer's handle-autocomplete
// (out of core scope, but the index supports it for free).
func (h *handleIndex) prefix(p string) []int64 {
	nodes := h.t.PrefixSearch(strings.ToLower(p))
	out := make([]int64, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Meta())
	}
	return out
}

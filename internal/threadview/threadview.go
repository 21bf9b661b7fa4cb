// Copyright (c) Contributors.
// All rights reserved. Use of this source code is governed by a
// MIT-style license that can be found in the LICENSE file.

// Package threadview builds a single linear view of a reply chain
// around one post (§4.8): its ancestors followed by its primary-branch
// descendants.
package threadview

import "github.com/tlreplay/tlreplay/pkg/schema"

// Store is the subset of *store.Store a thread view needs.
type Store interface {
	Post(id int64) *schema.Post
	RepliesTo(parentID int64) []int64
}

// Entry is one post in a built thread view. ChainedToPrev marks the
// posts of the primary branch, for the presentation layer to render a
// connecting line (§4.8): every ancestor after the root, and at each
// level below postID the last known child, which the walk continues
// from. Earlier siblings of that child are not marked, so a marked
// entry's predecessor in the slice is not always its parent.
type Entry struct {
	PostID        int64
	ChainedToPrev bool
}

// Build walks up from postID via each post's reply target to find the
// root ancestor, then walks back down appending every reply at each
// level (siblings included) while continuing the primary branch via
// the last known child, and returns the concatenation (§4.8).
func Build(s Store, postID int64) []Entry {
	ancestors := ancestorChain(s, postID)

	out := make([]Entry, 0, len(ancestors))
	for i, id := range ancestors {
		out = append(out, Entry{PostID: id, ChainedToPrev: i > 0})
	}

	cur := postID
	for {
		children := s.RepliesTo(cur)
		if len(children) == 0 {
			break
		}
		next := children[len(children)-1]
		for _, child := range children {
			out = append(out, Entry{PostID: child, ChainedToPrev: child == next})
		}
		cur = next
	}

	return out
}

// ancestorChain returns postID's ancestors root-first, ending with
// postID itself.
func ancestorChain(s Store, postID int64) []int64 {
	var chain []int64
	cur := postID
	seen := map[int64]struct{}{}
	for {
		chain = append(chain, cur)
		seen[cur] = struct{}{}

		p := s.Post(cur)
		if p == nil || p.ReplyTo == nil {
			break
		}
		parentID := p.ReplyTo.PostID
		if _, loop := seen[parentID]; loop {
			break
		}
		cur = parentID
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// Copyright (c) Contributors.
// All rights reserved. Use of this source code is governed by a
// MIT-style license that can be found in the LICENSE file.

// Package searchindex implements the free-text search half of the
// store's read interface (§6): an AND of space-separated words against
// each post's full text, plus a substring match of the raw query
// against media URLs.
package searchindex

import (
	"fmt"
	"strings"
	"sync"

	"github.com/coregx/ahocorasick"
)

type doc struct {
	text      string
	mediaURLs []string
}

// Index is a free-text accelerator over a set of posts, rebuilt
// wholesale alongside the store's other secondary indexes.
type Index struct {
	mu   sync.RWMutex
	docs map[int64]doc
}

// New returns an empty index.
func New() *Index {
	return &Index{docs: map[int64]doc{}}
}

// Put indexes (or re-indexes) postID's text and media URLs.
func (ix *Index) Put(postID int64, text string, mediaURLs []string) {
	urls := make([]string, len(mediaURLs))
	for i, u := range mediaURLs {
		urls[i] = strings.ToLower(u)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.docs[postID] = doc{text: strings.ToLower(text), mediaURLs: urls}
}

// Delete removes postID from the index.
func (ix *Index) Delete(postID int64) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	delete(ix.docs, postID)
}

// Search returns every post id whose text contains every
// space-separated word of query, or whose media URLs contain query as
// a substring (§6).
func (ix *Index) Search(query string) (map[int64]struct{}, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	out := map[int64]struct{}{}
	if query == "" {
		return out, nil
	}

	words := dedupeWords(strings.Fields(query))
	automaton, err := ahocorasick.NewBuilder().
		AddStrings(words).
		SetMatchKind(ahocorasick.LeftmostLongest).
		SetPrefilter(true).
		Build()
	if err != nil {
		return nil, fmt.Errorf("searchindex: building automaton for query %q: %w", query, err)
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	for id, d := range ix.docs {
		if matchesAllWords(automaton, len(words), d.text) {
			out[id] = struct{}{}
			continue
		}
		for _, u := range d.mediaURLs {
			if strings.Contains(u, query) {
				out[id] = struct{}{}
				break
			}
		}
	}
	return out, nil
}

func matchesAllWords(automaton *ahocorasick.Automaton, wantCount int, text string) bool {
	matches := automaton.FindAllOverlapping([]byte(text))
	if len(matches) < wantCount {
		return false
	}
	seen := make(map[int]struct{}, wantCount)
	for _, m := range matches {
		seen[m.PatternID] = struct{}{}
	}
	return len(seen) == wantCount
}

func dedupeWords(words []string) []string {
	seen := make(map[string]struct{}, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

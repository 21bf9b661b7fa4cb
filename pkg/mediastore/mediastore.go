// Copyright (c) Contributors.
// All rights reserved. Use of this source code is governed by a
// MIT-style license that can be found in the LICENSE file.

// Package mediastore groups the variants of each logical media asset
// under its canonical base and resolves a request URL to the best
// available blob (§4.4).
package mediastore

import (
	"strings"
	"sync"

	"github.com/tlreplay/tlreplay/pkg/blob"
	"github.com/tlreplay/tlreplay/pkg/urlcodec"
)

// variantEntry is one stored (format, size-variant, blob) triple
// belonging to an image set.
type variantEntry struct {
	format  string
	variant string
	rank    int
	b       blob.Blob
}

// imageSet holds every captured variant of one image asset, sorted by
// declared size rank ascending (§4.4).
type imageSet struct {
	entries []variantEntry
}

func (s *imageSet) add(format, variant string, rank int, b blob.Blob) {
	s.entries = append(s.entries, variantEntry{format: format, variant: variant, rank: rank, b: b})
	sortByRank(s.entries)
}

func sortByRank(entries []variantEntry) {
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entries[j].rank < entries[j-1].rank; j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}
}

// getVariant returns the stored blob matching (format, variant) if
// format is non-empty and a match exists; format empty matches any
// format. Falling through, it returns the largest available variant
// with cacheable=false (§4.4).
func (s *imageSet) getVariant(format, variant string) (blob.Blob, bool) {
	entries := s.entries
	if format != "" {
		filtered := make([]variantEntry, 0, len(entries))
		for _, e := range entries {
			if e.format == format {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}
	if len(entries) == 0 {
		return nil, false
	}
	for _, e := range entries {
		if e.variant == variant {
			return e.b, true
		}
	}
	return entries[len(entries)-1].b, false
}

// videoSet holds every captured segment/variant of one video asset.
// Videos have no size ranking (§4.4); the store keeps them in arrival
// order and treats the first entry as the representative blob for
// plain (non-m3u8.mp4) lookups.
type videoSet struct {
	entries []blob.Blob
}

func (s *videoSet) add(b blob.Blob) {
	s.entries = append(s.entries, b)
}

func (s *videoSet) getVariant() (blob.Blob, bool) {
	if len(s.entries) == 0 {
		return nil, false
	}
	return s.entries[0], false
}

// Store groups media variants by canonical base (§4.4).
type Store struct {
	mu     sync.RWMutex
	images map[string]*imageSet
	videos map[string]*videoSet
	fs     blob.FS
}

// New returns an empty store. fs is kept on the store but not read:
// .m3u8.mp4 reassembly resolves playlists and segments through the
// store's own video entries (§4.4 step 3).
func New(fs blob.FS) *Store {
	return &Store{
		images: map[string]*imageSet{},
		videos: map[string]*videoSet{},
		fs:     fs,
	}
}

// AddImage registers b as one variant of the image asset keyed by
// cacheKey, at the named (format, variant) pair with the given size
// rank.
func (s *Store) AddImage(cacheKey, format, variant string, rank int, b blob.Blob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.images[cacheKey]
	if !ok {
		set = &imageSet{}
		s.images[cacheKey] = set
	}
	set.add(format, variant, rank, b)
}

// AddVideo registers b as one segment/variant of the video asset keyed
// by cacheKey.
func (s *Store) AddVideo(cacheKey string, b blob.Blob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.videos[cacheKey]
	if !ok {
		set = &videoSet{}
		s.videos[cacheKey] = set
	}
	set.add(b)
}

// Lookup resolves requestURL to the best available blob (§4.4):
// multi-segment reassembly for an ".m3u8.mp4" suffix, otherwise the
// matching (format, variant) if stored, else the largest available
// variant with cacheable=false.
func (s *Store) Lookup(requestURL string) (blob.Blob, bool) {
	if requestURL == "" {
		return nil, false
	}
	if strings.HasSuffix(requestURL, ".m3u8.mp4") {
		return s.lookupVideo(requestURL)
	}

	d, err := urlcodec.Decode(requestURL)
	if err != nil {
		return nil, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if d.IsVideo {
		if set, ok := s.videos[d.Base]; ok {
			return set.getVariant()
		}
		return nil, false
	}

	set, ok := s.images[d.Base]
	if !ok {
		return nil, false
	}
	variant := ""
	if d.Size != nil {
		variant = *d.Size
	}
	return set.getVariant(d.Format, variant)
}

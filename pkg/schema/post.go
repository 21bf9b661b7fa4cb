// Copyright (c) Contributors.
// All rights reserved. Use of this source code is governed by a
// MIT-style license that can be found in the LICENSE file.

// Package schema defines the entity types of the normalized store (§3)
// and the JSON-schema validation of capture envelopes that feed it.
package schema

import (
	"sync"
	"time"
)

// ReplyTarget identifies the post a reply points at. The screen name is
// carried alongside the ids because some capture generations only ever
// mention the handle, never the numeric user id, for the parent author.
type ReplyTarget struct {
	PostID     int64
	UserID     int64
	ScreenName string
}

// CircleOwner names the trusted-friends-list owner of a limited-audience
// ("circle") post.
type CircleOwner struct {
	ScreenName  string
	DisplayName string
}

// Card is a typed key/value bag attached to a post (link preview,
// poll, etc). Values are kept as the generic JSON they arrived as; only
// the handful of keys the query layer actually reads are typed further
// up the stack.
type Card struct {
	Name   string
	Values map[string]string
}

// ResizeMode enumerates the resize strategies a media size variant can
// declare.
type ResizeMode string

const (
	ResizeFit  ResizeMode = "fit"
	ResizeCrop ResizeMode = "crop"
)

// SizeKey is the interning key for a SizeEntry: identical (width,
// height, resize-mode) triples across different posts/media items share
// the same *SizeEntry pointer (§3 invariant).
type SizeKey struct {
	Width  int
	Height int
	Resize ResizeMode
}

// SizeEntry is the interned value behind a SizeKey.
type SizeEntry struct {
	Width  int
	Height int
	Resize ResizeMode
}

var (
	sizeInternMu    sync.Mutex
	sizeInternTable = map[SizeKey]*SizeEntry{}
)

// InternSize returns the shared *SizeEntry for the given key, creating
// it on first use. Every MediaItem.Sizes value in the store is obtained
// through this function so structurally identical size records share
// the same backing struct.
func InternSize(k SizeKey) *SizeEntry {
	sizeInternMu.Lock()
	defer sizeInternMu.Unlock()

	if e, ok := sizeInternTable[k]; ok {
		return e
	}
	e := &SizeEntry{Width: k.Width, Height: k.Height, Resize: k.Resize}
	sizeInternTable[k] = e
	return e
}

// VideoVariant is one bitrate/resolution rendition of a video asset, or
// one HLS sub-playlist entry prior to reassembly.
type VideoVariant struct {
	URL        string
	Bitrate    int
	PlaylistID string // non-empty for .m3u8 sub-playlist entries
}

// MediaItem is one attachment on a post.
type MediaItem struct {
	CanonicalURL  string
	Format        string
	DefaultSize   string
	Sizes         map[string]*SizeEntry // size-variant name -> interned dimensions
	FullResURL    string
	VideoVariants []VideoVariant // nil unless this item is a video
}

// Post is the normalized representation of a single post (§3).
type Post struct {
	ID       int64
	Text     string
	AuthorID int64

	ReplyTo      *ReplyTarget
	QuotedPostID *int64
	Card         *Card
	Media        []MediaItem

	// RetweetOf is the id of the post this one republishes, or nil.
	RetweetOf *int64

	LikeCount   int64
	RepostCount int64
	ReplyCount  int64

	CreatedAt time.Time

	BookmarkedBy map[int64]struct{}
	FavoritedBy  map[int64]struct{}
	RetweetedBy  map[int64]struct{}

	LimitedAction bool
	CircleOwner   *CircleOwner

	Pinned bool

	ConversationID *string
}

// OriginalID returns the id of the post this one republishes, or the
// post's own id if it is not a retweet (§3 derived attribute).
func (p *Post) OriginalID() int64 {
	if p.RetweetOf != nil {
		return *p.RetweetOf
	}
	return p.ID
}

// NewPost allocates a Post with its set-valued fields initialized so
// callers never need a nil check before inserting into them.
func NewPost(id int64) *Post {
	return &Post{
		ID:           id,
		BookmarkedBy: map[int64]struct{}{},
		FavoritedBy:  map[int64]struct{}{},
		RetweetedBy:  map[int64]struct{}{},
	}
}

// Merge applies the fields of other onto p, following the merging rule
// of §3: later fields update earlier ones, set-valued per-observer flags
// accumulate without duplicates.
func (p *Post) Merge(other *Post) {
	if other.Text != "" {
		p.Text = other.Text
	}
	if other.AuthorID != 0 {
		p.AuthorID = other.AuthorID
	}
	if other.ReplyTo != nil {
		p.ReplyTo = other.ReplyTo
	}
	if other.QuotedPostID != nil {
		p.QuotedPostID = other.QuotedPostID
	}
	if other.Card != nil {
		p.Card = other.Card
	}
	if len(other.Media) > 0 {
		p.Media = other.Media
	}
	if other.RetweetOf != nil {
		p.RetweetOf = other.RetweetOf
	}
	if other.LikeCount > p.LikeCount {
		p.LikeCount = other.LikeCount
	}
	if other.RepostCount > p.RepostCount {
		p.RepostCount = other.RepostCount
	}
	if other.ReplyCount > p.ReplyCount {
		p.ReplyCount = other.ReplyCount
	}
	if !other.CreatedAt.IsZero() {
		p.CreatedAt = other.CreatedAt
	}
	if other.LimitedAction {
		p.LimitedAction = true
	}
	if other.CircleOwner != nil {
		p.CircleOwner = other.CircleOwner
	}
	if other.Pinned {
		p.Pinned = true
	}
	if other.ConversationID != nil {
		p.ConversationID = other.ConversationID
	}

	for id := range other.BookmarkedBy {
		p.BookmarkedBy[id] = struct{}{}
	}
	for id := range other.FavoritedBy {
		p.FavoritedBy[id] = struct{}{}
	}
	for id := range other.RetweetedBy {
		p.RetweetedBy[id] = struct{}{}
	}
}

// IsStub reports whether p was created only to have an author/parent
// and has never been ingested with a body (§4.7: "ingesting a post with
// an in-reply-to populates a stub for the parent if unseen").
func (p *Post) IsStub() bool {
	return p.Text == "" && p.CreatedAt.IsZero() && p.AuthorID != 0
}

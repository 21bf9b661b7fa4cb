// Copyright (c) Contributors.
// All rights reserved. Use of this source code is governed by a
// MIT-style license that can be found in the LICENSE file.
package store

import (
	"fmt"
	"sort"
	"strconv"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/tlreplay/tlreplay/internal/snapshotalign"
	"github.com/tlreplay/tlreplay/internal/threadview"
	"github.com/tlreplay/tlreplay/pkg/log"
	"github.com/tlreplay/tlreplay/pkg/schema"
)

// NewThreadView returns the reply-chain view around postID (§4.8, §6).
func (s *Store) NewThreadView(postID int64) []threadview.Entry {
	return threadview.Build(s, postID)
}

// RebuildIndexes recomputes every secondary index from the current
// entity tables (§2, §4.7): per-author post lists, per-observer like
// sequences via the alignment engine, per-user bookmark sequences, and
// inferred interactions. It also runs the two heuristic inferences:
// circle-owner propagation and protected-author-reply-implies-follow.
func (s *Store) RebuildIndexes() error {
	s.applyPinnedFlags()
	s.inferProtectedReplyFollows()
	s.inferCircleOwners()
	s.rebuildSearchIndex()

	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("store: beginning index rebuild transaction: %w", err)
	}

	for _, stmt := range []string{
		"DELETE FROM posts_by_author",
		"DELETE FROM likes_sorted",
		"DELETE FROM bookmarks_sorted",
		"DELETE FROM interactions_sorted",
	} {
		if _, err := tx.Exec(stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("store: clearing index table: %w", err)
		}
	}

	if err := s.rebuildPostsByAuthor(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := s.rebuildBookmarksSorted(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := s.rebuildLikesAndInteractions(tx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: committing index rebuild transaction: %w", err)
	}
	return nil
}

// applyPinnedFlags sets Post.Pinned for every post named in its
// author's profile.PinnedPostIDs (§3: pinned marker is derived from the
// author's profile).
func (s *Store) applyPinnedFlags() {
	for _, p := range s.posts {
		p.Pinned = false
	}
	for _, prof := range s.profiles {
		for _, id := range prof.PinnedPostIDs {
			if p, ok := s.posts[id]; ok {
				p.Pinned = true
			}
		}
	}
}

// inferProtectedReplyFollows implements heuristic (a) of §4.7: a reply
// visible to us from a protected author can only have been seen by
// someone the author allows to see it, so it implies a follow edge.
func (s *Store) inferProtectedReplyFollows() {
	for _, p := range s.posts {
		if p.ReplyTo == nil {
			continue
		}
		parent, ok := s.posts[p.ReplyTo.PostID]
		if !ok {
			continue
		}
		parentAuthor, ok := s.profiles[parent.AuthorID]
		if !ok || !parentAuthor.Protected {
			continue
		}
		if err := s.AddFollow(p.AuthorID, parent.AuthorID); err != nil {
			log.Debugf("store: skipping inferred follow: %v", err)
		}
	}
}

// inferCircleOwners implements heuristic (b) of §4.7: within a
// conversation, if any post carries a limited-action marker and circle
// owner, every other post in that conversation is presumed to share it
// (capture sources do not consistently label every post in a limited
// thread).
func (s *Store) inferCircleOwners() {
	byConversation := map[string][]*schema.Post{}
	for _, p := range s.posts {
		if p.ConversationID == nil {
			continue
		}
		byConversation[*p.ConversationID] = append(byConversation[*p.ConversationID], p)
	}

	for _, posts := range byConversation {
		var owner *schema.CircleOwner
		labeled := false
		for _, p := range posts {
			if p.LimitedAction {
				labeled = true
				if p.CircleOwner != nil {
					owner = p.CircleOwner
				}
			}
		}
		if !labeled {
			continue
		}
		for _, p := range posts {
			p.LimitedAction = true
			if p.CircleOwner == nil {
				p.CircleOwner = owner
			}
		}
	}
}

func (s *Store) rebuildSearchIndex() {
	for _, p := range s.posts {
		if p.IsStub() {
			continue
		}
		urls := make([]string, 0, len(p.Media))
		for _, m := range p.Media {
			urls = append(urls, m.CanonicalURL)
		}
		s.search.Put(p.ID, p.Text, urls)
	}
}

func (s *Store) rebuildPostsByAuthor(tx *sqlx.Tx) error {
	stmt, err := tx.Preparex(`INSERT INTO posts_by_author (author_id, post_id, pinned, is_reply, media_author_id) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: preparing posts_by_author insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range s.posts {
		if p.IsStub() {
			continue
		}
		orig := p
		hasMedia := len(p.Media) > 0
		if o, ok := s.posts[p.OriginalID()]; ok && o != p {
			orig = o
			hasMedia = hasMedia || len(o.Media) > 0
		}

		var mediaAuthor interface{}
		if hasMedia {
			mediaAuthor = orig.AuthorID
		}
		if _, err := stmt.Exec(p.AuthorID, p.ID, p.Pinned, p.ReplyTo != nil, mediaAuthor); err != nil {
			return fmt.Errorf("store: indexing post %d: %w", p.ID, err)
		}
	}
	return nil
}

func (s *Store) rebuildBookmarksSorted(tx *sqlx.Tx) error {
	stmt, err := tx.Preparex(`INSERT INTO bookmarks_sorted (observer_id, sort_index, post_id) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: preparing bookmarks_sorted insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range s.posts {
		for observer := range p.BookmarkedBy {
			// The post id is itself a monotonic, time-encoded sort key
			// (§3); no separate bookmark event id is ever captured.
			if _, err := stmt.Exec(observer, p.ID, p.ID); err != nil {
				return fmt.Errorf("store: indexing bookmark: %w", err)
			}
		}
	}
	return nil
}

func (s *Store) rebuildLikesAndInteractions(tx *sqlx.Tx) error {
	likeStmt, err := tx.Preparex(`INSERT INTO likes_sorted (observer_id, event_id, post_id) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: preparing likes_sorted insert: %w", err)
	}
	defer likeStmt.Close()

	interactionStmt, err := tx.Preparex(`INSERT INTO interactions_sorted (subject_id, post_id, sort_key) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: preparing interactions_sorted insert: %w", err)
	}
	defer interactionStmt.Close()

	for key, bag := range s.snapshotBags {
		if key.list != schema.ListKindLikes {
			continue
		}
		unsorted := s.favoritedUnsorted[key]
		pairs := snapshotalign.Align(buildAlignSnapshots(bag, unsorted), postIDLowerBound, true)

		for _, pair := range pairs {
			postID, err := strconv.ParseInt(pair.ItemID, 10, 64)
			if err != nil {
				continue
			}
			if _, err := likeStmt.Exec(key.observer, pair.EventID, postID); err != nil {
				return fmt.Errorf("store: indexing like: %w", err)
			}
			// Interactions key on the liked post's own author (db.py:751's
			// tweet["user_id_str"], not the original-resolved author), and
			// only for likes belonging to a known observer (db.py:746's
			// "if uid in self.observers").
			if post, ok := s.posts[postID]; ok && s.IsObserver(key.observer) {
				if _, err := interactionStmt.Exec(post.AuthorID, postID, pair.EventID); err != nil {
					return fmt.Errorf("store: indexing interaction: %w", err)
				}
			}
		}
	}
	return nil
}

// buildAlignSnapshots orders one (observer, list) bag most-recent-first
// by wall-clock observation time (§4.5) and converts it to the
// alignment package's snapshot types, with any unsorted (position-less)
// favorited post ids appended as the lowest-priority, oldest snapshot.
func buildAlignSnapshots(bag []schema.Snapshot, unsorted map[int64]struct{}) []snapshotalign.Snapshot {
	sorted := make([]schema.Snapshot, len(bag))
	copy(sorted, bag)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Observed.After(sorted[j].Observed) })

	out := make([]snapshotalign.Snapshot, 0, len(sorted)+1)
	for _, snap := range sorted {
		if snap.IsEvents() {
			seq := make([]snapshotalign.Event, len(snap.Events))
			for i, e := range snap.Events {
				seq[i] = snapshotalign.Event{EventID: e.EventID, ItemID: strconv.FormatInt(e.ItemID, 10)}
			}
			out = append(out, snapshotalign.EventsSnapshot{Seq: seq})
		} else {
			items := make([]string, len(snap.Items))
			for i, id := range snap.Items {
				items[i] = strconv.FormatInt(id, 10)
			}
			out = append(out, snapshotalign.ItemsSnapshot{Items: items})
		}
	}

	if len(unsorted) > 0 {
		ids := make([]string, 0, len(unsorted))
		for id := range unsorted {
			ids = append(ids, strconv.FormatInt(id, 10))
		}
		sort.Strings(ids)
		out = append(out, snapshotalign.ItemsSnapshot{Items: ids})
	}
	return out
}

// postIDLowerBound derives a monotone lower bound, in event-id space,
// on the event that could have added a post (§4.5). A tweet snowflake
// id is ms<<22; like/cursor event ids (what an Events snapshot carries)
// are ms<<20. Extracting the timestamp and re-shifting into event
// space is what keeps a synthesized (export-only) like's id from
// landing above real concrete like ids, matching the original's
// `evid_lower_bound_for_itid`/`synthesized_like_id` (both
// `((twid >> 22) + 1288834974657) << 20`).
func postIDLowerBound(itemID string) (int64, bool) {
	id, err := strconv.ParseInt(itemID, 10, 64)
	if err != nil {
		return 0, false
	}
	timestamp := (id >> 22) + 1288834974657
	return timestamp << 20, true
}

// GetUserTweets returns uid's pinned post first, then its non-reply
// posts newest first (§6).
func (s *Store) GetUserTweets(uid int64) ([]int64, error) {
	rows, err := sq.Select("post_id").From("posts_by_author").
		Where(sq.Eq{"author_id": uid, "is_reply": false}).
		OrderBy("pinned DESC", "post_id DESC").
		RunWith(s.idx.stmtCache).Query()
	if err != nil {
		return nil, fmt.Errorf("store: querying user tweets: %w", err)
	}
	return scanInt64Column(rows)
}

// GetUserWithReplies returns every post by uid, newest first (§6).
func (s *Store) GetUserWithReplies(uid int64) ([]int64, error) {
	rows, err := sq.Select("post_id").From("posts_by_author").
		Where(sq.Eq{"author_id": uid}).
		OrderBy("post_id DESC").
		RunWith(s.idx.stmtCache).Query()
	if err != nil {
		return nil, fmt.Errorf("store: querying user posts with replies: %w", err)
	}
	return scanInt64Column(rows)
}

// GetUserMedia returns posts whose original post's author is uid and
// that carry media, newest first (§6).
func (s *Store) GetUserMedia(uid int64) ([]int64, error) {
	rows, err := sq.Select("post_id").From("posts_by_author").
		Where(sq.Eq{"author_id": uid, "media_author_id": uid}).
		OrderBy("post_id DESC").
		RunWith(s.idx.stmtCache).Query()
	if err != nil {
		return nil, fmt.Errorf("store: querying user media: %w", err)
	}
	return scanInt64Column(rows)
}

// LikePair is one (event-id, post-id) entry of a user's aligned like
// sequence.
type LikePair struct {
	EventID int64
	PostID  int64
}

// GetUserLikes returns the output of snapshot alignment for uid's likes
// (§6).
func (s *Store) GetUserLikes(uid int64) ([]LikePair, error) {
	rows, err := sq.Select("event_id", "post_id").From("likes_sorted").
		Where(sq.Eq{"observer_id": uid}).
		OrderBy("event_id DESC").
		RunWith(s.idx.stmtCache).Query()
	if err != nil {
		return nil, fmt.Errorf("store: querying user likes: %w", err)
	}
	defer rows.Close()

	var out []LikePair
	for rows.Next() {
		var p LikePair
		if err := rows.Scan(&p.EventID, &p.PostID); err != nil {
			return nil, fmt.Errorf("store: scanning like: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// BookmarkPair is one (sort-index, post-id) entry of a user's bookmarks.
type BookmarkPair struct {
	SortIndex int64
	PostID    int64
}

// GetUserBookmarks returns uid's bookmarks, newest first (§6).
func (s *Store) GetUserBookmarks(uid int64) ([]BookmarkPair, error) {
	rows, err := sq.Select("sort_index", "post_id").From("bookmarks_sorted").
		Where(sq.Eq{"observer_id": uid}).
		OrderBy("sort_index DESC").
		RunWith(s.idx.stmtCache).Query()
	if err != nil {
		return nil, fmt.Errorf("store: querying user bookmarks: %w", err)
	}
	defer rows.Close()

	var out []BookmarkPair
	for rows.Next() {
		var p BookmarkPair
		if err := rows.Scan(&p.SortIndex, &p.PostID); err != nil {
			return nil, fmt.Errorf("store: scanning bookmark: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetUserInteractions returns posts that are interactions with uid
// (liked posts authored by uid), newest first (§6).
func (s *Store) GetUserInteractions(uid int64) ([]int64, error) {
	rows, err := sq.Select("post_id", "MAX(sort_key) AS sort_key").From("interactions_sorted").
		Where(sq.Eq{"subject_id": uid}).
		GroupBy("post_id").
		OrderBy("sort_key DESC").
		RunWith(s.idx.stmtCache).Query()
	if err != nil {
		return nil, fmt.Errorf("store: querying user interactions: %w", err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id, sortKey int64
		if err := rows.Scan(&id, &sortKey); err != nil {
			return nil, fmt.Errorf("store: scanning interaction: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func scanInt64Column(rows interface {
	Next() bool
	Scan(...interface{}) error
	Err() error
	Close() error
}) ([]int64, error) {
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("store: scanning row: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

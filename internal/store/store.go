// Copyright (c) Contributors.
// All rights reserved. Use of this source code is governed by a
// MIT-style license that can be found in the LICENSE file.

// Package store is the normalized, single-writer store of posts,
// profiles, follow edges, conversations, and like/bookmark snapshots
// (§3, §4.7). It owns entity identity and merge semantics; secondary
// indexes used by the query interface are rebuilt from this state by
// RebuildIndexes.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"github.com/qustavo/sqlhooks/v2"

	"github.com/tlreplay/tlreplay/internal/searchindex"
	"github.com/tlreplay/tlreplay/pkg/blob"
	"github.com/tlreplay/tlreplay/pkg/log"
	"github.com/tlreplay/tlreplay/pkg/mediastore"
	"github.com/tlreplay/tlreplay/pkg/schema"
)

var sqliteDriverOnce sync.Once

// Store is the process-scoped, single-writer normalized store. It is
// not safe for concurrent mutation (§5): ingestion is a sequential
// pass and the query interface is invoked from one thread at a time.
type Store struct {
	posts     map[int64]*schema.Post
	profiles  map[int64]*schema.Profile
	followsFF map[int64]map[int64]struct{} // follower -> set of followees
	followsBF map[int64]map[int64]struct{} // followee -> set of followers

	conversations map[string]*schema.Conversation
	observers     map[int64]struct{}

	// replies maps a parent post id to the ids of posts that reply to
	// it, in ingestion order (§4.7).
	replies map[int64][]int64

	// snapshotBags holds every Snapshot observed for (observer, list),
	// most-recently-added last; RebuildIndexes feeds these (in
	// most-recent-first order) to the alignment algorithm.
	snapshotBags map[observerList][]schema.Snapshot

	// favoritedUnsorted holds item ids known to be liked by an observer
	// but with unknown position (from per-post favorited flags, §3),
	// merged into the alignment's output as a lower-priority fallback.
	favoritedUnsorted map[observerList]map[int64]struct{}

	handles *handleIndex
	search  *searchindex.Index
	media   *mediastore.Store

	idx *indexes

	db *sqlx.DB
}

type observerList struct {
	observer int64
	list     schema.ListKind
}

// New returns an empty store, with its in-memory SQLite secondary-index
// connection opened and its schema created. fs is handed to the media
// store, which keeps it but does not read from it (§4.4).
func New(fs blob.FS) (*Store, error) {
	db, err := openIndexDB()
	if err != nil {
		return nil, fmt.Errorf("store: opening index database: %w", err)
	}
	if err := createIndexSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: creating index schema: %w", err)
	}

	return &Store{
		posts:             map[int64]*schema.Post{},
		profiles:          map[int64]*schema.Profile{},
		followsFF:         map[int64]map[int64]struct{}{},
		followsBF:         map[int64]map[int64]struct{}{},
		conversations:     map[string]*schema.Conversation{},
		observers:         map[int64]struct{}{},
		replies:           map[int64][]int64{},
		snapshotBags:      map[observerList][]schema.Snapshot{},
		favoritedUnsorted: map[observerList]map[int64]struct{}{},
		handles:           newHandleIndex(),
		search:            searchindex.New(),
		media:             mediastore.New(fs),
		idx:               newIndexes(db),
		db:                db,
	}, nil
}

// Close releases the store's index database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// openIndexDB registers the hook-wrapped sqlite3 driver once per process
// and opens a private in-memory database for this store's secondary
// indexes, mirroring the teacher's single-connection sqlite setup
// (sqlite does not benefit from more than one writer).
func openIndexDB() (*sqlx.DB, error) {
	var regErr error
	sqliteDriverOnce.Do(func() {
		regErr = registerDriver()
	})
	if regErr != nil {
		return nil, regErr
	}

	db, err := sqlx.Open("sqlite3_tlreplay_indexes", "file::memory:?mode=memory&cache=shared")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

func registerDriver() (err error) {
	defer func() {
		if r := recover(); r != nil {
			// sql.Register panics if called twice with the same name;
			// package-level state surviving a prior store.New() in the
			// same test binary is not an error.
			err = nil
		}
	}()
	sql.Register("sqlite3_tlreplay_indexes", sqlhooks.Wrap(&sqlite3.SQLiteDriver{}, &queryLogHook{}))
	return nil
}

// queryLogHook logs every secondary-index statement at debug level,
// grounded on the teacher's sqlhooks-based Hooks type.
type queryLogHook struct{}

func (h *queryLogHook) Before(ctx context.Context, query string, args ...interface{}) (context.Context, error) {
	log.Debugf("store: %s %v", query, args)
	return ctx, nil
}

// AddObserver registers uid as an observer: a user whose per-viewer
// flags and like/bookmark snapshots are meaningful (§3).
func (s *Store) AddObserver(uid int64) {
	s.observers[uid] = struct{}{}
}

// IsObserver reports whether uid has been registered as an observer.
func (s *Store) IsObserver(uid int64) bool {
	_, ok := s.observers[uid]
	return ok
}

// Observers returns every registered observer id.
func (s *Store) Observers() []int64 {
	out := make([]int64, 0, len(s.observers))
	for uid := range s.observers {
		out = append(out, uid)
	}
	return out
}

// Post returns the stored post by id, or nil.
func (s *Store) Post(id int64) *schema.Post {
	return s.posts[id]
}

// UpsertPost merges post into the store: creating it if unseen, or
// applying post.Merge onto the existing record otherwise (§3 merging
// rule). If post has a reply target whose parent is unseen, a stub is
// created for the parent so it has an author (§4.7).
func (s *Store) UpsertPost(post *schema.Post) {
	existing, ok := s.posts[post.ID]
	if !ok {
		s.posts[post.ID] = post
		existing = post
	} else if existing != post {
		existing.Merge(post)
	}

	if existing.ReplyTo != nil {
		parentID := existing.ReplyTo.PostID
		if _, ok := s.posts[parentID]; !ok {
			stub := schema.NewPost(parentID)
			stub.AuthorID = existing.ReplyTo.UserID
			s.posts[parentID] = stub
		}
		s.registerReply(parentID, existing.ID)
	}
}

func (s *Store) registerReply(parentID, childID int64) {
	for _, id := range s.replies[parentID] {
		if id == childID {
			return
		}
	}
	s.replies[parentID] = append(s.replies[parentID], childID)
}

// RepliesTo returns the ids of every post known to reply to parentID,
// in ingestion order.
func (s *Store) RepliesTo(parentID int64) []int64 {
	return s.replies[parentID]
}

// Profile returns the stored profile by id, or nil.
func (s *Store) Profile(id int64) *schema.Profile {
	return s.profiles[id]
}

// UpsertProfile merges profile into the store (§3 dictionary-update
// merging rule), and indexes its handle for UserByHandle lookups.
func (s *Store) UpsertProfile(profile *schema.Profile) {
	existing, ok := s.profiles[profile.UserID]
	if !ok {
		s.profiles[profile.UserID] = profile
		existing = profile
	} else if existing != profile {
		existing.Merge(profile)
	}
	if existing.ScreenName != "" {
		s.handles.add(existing.ScreenName, existing.UserID)
	}
}

// UserByHandle returns the most recently indexed user id for handle,
// or 0 if unknown. Handle-to-id is many-to-many (handles get
// recycled, §3); the most recent binding is returned.
func (s *Store) UserByHandle(handle string) (int64, bool) {
	return s.handles.lookup(handle)
}

// AddFollow creates a follower -> following edge. Idempotent; self-edges
// are forbidden (§3).
func (s *Store) AddFollow(follower, following int64) error {
	if follower == following {
		return fmt.Errorf("store: self-follow edge rejected for user %d", follower)
	}
	if s.followsFF[follower] == nil {
		s.followsFF[follower] = map[int64]struct{}{}
	}
	s.followsFF[follower][following] = struct{}{}
	if s.followsBF[following] == nil {
		s.followsBF[following] = map[int64]struct{}{}
	}
	s.followsBF[following][follower] = struct{}{}
	return nil
}

// Following returns every user that uid follows.
func (s *Store) Following(uid int64) []int64 {
	return setKeys(s.followsFF[uid])
}

// Followers returns every user that follows uid.
func (s *Store) Followers(uid int64) []int64 {
	return setKeys(s.followsBF[uid])
}

func setKeys(m map[int64]struct{}) []int64 {
	out := make([]int64, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// Conversation returns the conversation by id, creating it if unseen.
func (s *Store) Conversation(id string) *schema.Conversation {
	c, ok := s.conversations[id]
	if !ok {
		c = &schema.Conversation{ID: id}
		s.conversations[id] = c
	}
	return c
}

// ConversationByID returns the conversation by id, or nil if unseen.
func (s *Store) ConversationByID(id string) *schema.Conversation {
	return s.conversations[id]
}

// AddSnapshot records a new observation of an (observer, list) bag for
// later alignment during RebuildIndexes.
func (s *Store) AddSnapshot(snap schema.Snapshot) {
	key := observerList{observer: snap.Observer, list: snap.List}
	s.snapshotBags[key] = append(s.snapshotBags[key], snap)
}

// Search returns every post id matching query (§6): AND-of-words
// against full text, or substring against media URLs.
func (s *Store) Search(query string) (map[int64]struct{}, error) {
	return s.search.Search(query)
}

// MediaStore returns the store's media asset table, for ingestion
// handlers to populate as captures are processed.
func (s *Store) MediaStore() *mediastore.Store {
	return s.media
}

// MediaLookup resolves a media request URL to its best available blob
// (§4.4, §6).
func (s *Store) MediaLookup(requestURL string) (blob.Blob, bool) {
	return s.media.Lookup(requestURL)
}

// PostCount returns the number of posts currently held in the store.
func (s *Store) PostCount() int { return len(s.posts) }

// ProfileCount returns the number of profiles currently held in the store.
func (s *Store) ProfileCount() int { return len(s.profiles) }

// ConversationCount returns the number of conversations currently held
// in the store.
func (s *Store) ConversationCount() int { return len(s.conversations) }

// SnapshotCount returns the total number of list-bag snapshots recorded
// across every (observer, list) pair, prior to alignment.
func (s *Store) SnapshotCount() int {
	n := 0
	for _, bag := range s.snapshotBags {
		n += len(bag)
	}
	return n
}

// AddUnsortedLike records postID as known-liked by observer with no
// recoverable position (a per-post favorited flag with no snapshot
// backing it).
func (s *Store) AddUnsortedLike(observer, postID int64) {
	key := observerList{observer: observer, list: schema.ListKindLikes}
	if s.favoritedUnsorted[key] == nil {
		s.favoritedUnsorted[key] = map[int64]struct{}{}
	}
	s.favoritedUnsorted[key][postID] = struct{}{}
}

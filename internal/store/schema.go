// Copyright (c) Contributors.
// All rights reserved. Use of this source code is governed by a
// MIT-style license that can be found in the LICENSE file.
package store

import (
	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

// indexes holds the query builder and prepared-statement cache for the
// secondary-index tables, mirroring the teacher's JobRepository.stmtCache
// pattern.
type indexes struct {
	builder   sq.StatementBuilderType
	stmtCache *sq.StmtCache
}

const indexSchemaDDL = `
CREATE TABLE posts_by_author (
	author_id       INTEGER NOT NULL,
	post_id         INTEGER NOT NULL,
	pinned          INTEGER NOT NULL DEFAULT 0,
	is_reply        INTEGER NOT NULL DEFAULT 0,
	media_author_id INTEGER
);
CREATE INDEX idx_posts_by_author ON posts_by_author(author_id, post_id DESC);
CREATE INDEX idx_posts_by_media_author ON posts_by_author(media_author_id, post_id DESC);

CREATE TABLE likes_sorted (
	observer_id INTEGER NOT NULL,
	event_id    INTEGER NOT NULL,
	post_id     INTEGER NOT NULL
);
CREATE INDEX idx_likes_sorted ON likes_sorted(observer_id, event_id DESC);

CREATE TABLE bookmarks_sorted (
	observer_id INTEGER NOT NULL,
	sort_index  INTEGER NOT NULL,
	post_id     INTEGER NOT NULL
);
CREATE INDEX idx_bookmarks_sorted ON bookmarks_sorted(observer_id, sort_index DESC);

CREATE TABLE interactions_sorted (
	subject_id INTEGER NOT NULL,
	post_id    INTEGER NOT NULL,
	sort_key   INTEGER NOT NULL
);
CREATE INDEX idx_interactions_sorted ON interactions_sorted(subject_id, sort_key DESC);
`

func createIndexSchema(db *sqlx.DB) error {
	if _, err := db.Exec(indexSchemaDDL); err != nil {
		return err
	}
	return nil
}

func newIndexes(db *sqlx.DB) *indexes {
	return &indexes{
		builder:   sq.StatementBuilder,
		stmtCache: sq.NewStmtCache(db.DB),
	}
}

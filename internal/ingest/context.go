// Copyright (c) Contributors.
// All rights reserved. Use of this source code is governed by a
// MIT-style license that can be found in the LICENSE file.
package ingest

import "time"

// Context is the request-scoped information the envelope walker and
// post traverser need beyond the JSON body itself: when the request was
// observed, and which user's session captured it. Observer is 0 when no
// twid cookie was present (an unauthenticated or stripped capture);
// per-viewer fields (Following/FollowedBy, likes/bookmarks snapshots)
// are simply skipped in that case.
type Context struct {
	Time     time.Time
	Observer int64
}

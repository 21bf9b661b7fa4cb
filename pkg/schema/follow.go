// Copyright (c) Contributors.
// All rights reserved. Use of this source code is governed by a
// MIT-style license that can be found in the LICENSE file.
package schema

// FollowEdge is a directed follower -> following edge (§3). Self-edges
// are forbidden and creation is idempotent; both of those invariants are
// enforced by the store, not by this type.
type FollowEdge struct {
	Follower  int64
	Following int64
}

// Copyright (c) Contributors.
// All rights reserved. Use of this source code is governed by a
// MIT-style license that can be found in the LICENSE file.
package schema

// Profile is the normalized representation of a user (§3).
type Profile struct {
	UserID int64

	ScreenName  string
	DisplayName string
	Description string
	BannerURL   string
	AvatarURL   string

	FollowerCount  int64
	FollowingCount int64
	PostCount      int64

	Protected bool

	// FollowedBy/Following are from the observer's viewpoint: whether the
	// observer follows this profile / is followed by it.
	FollowedBy bool
	Following  bool

	PinnedPostIDs []int64
}

// Merge applies other's non-zero fields onto p (dictionary update with
// newer fields winning, §3).
func (p *Profile) Merge(other *Profile) {
	if other.ScreenName != "" {
		p.ScreenName = other.ScreenName
	}
	if other.DisplayName != "" {
		p.DisplayName = other.DisplayName
	}
	if other.Description != "" {
		p.Description = other.Description
	}
	if other.BannerURL != "" {
		p.BannerURL = other.BannerURL
	}
	if other.AvatarURL != "" {
		p.AvatarURL = other.AvatarURL
	}
	if other.FollowerCount != 0 {
		p.FollowerCount = other.FollowerCount
	}
	if other.FollowingCount != 0 {
		p.FollowingCount = other.FollowingCount
	}
	if other.PostCount != 0 {
		p.PostCount = other.PostCount
	}
	if other.Protected {
		p.Protected = other.Protected
	}
	if other.FollowedBy {
		p.FollowedBy = true
	}
	if other.Following {
		p.Following = true
	}
	if len(other.PinnedPostIDs) > 0 {
		p.PinnedPostIDs = other.PinnedPostIDs
	}
}

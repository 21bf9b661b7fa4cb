// Copyright (c) Contributors.
// All rights reserved. Use of this source code is governed by a
// MIT-style license that can be found in the LICENSE file.
package ingest

import (
	"fmt"
	"strconv"
	"time"

	"github.com/tlreplay/tlreplay/pkg/schema"
	"github.com/tlreplay/tlreplay/pkg/urlcodec"
)

// addUser persists a "UserResults.result" node: unwraps to the legacy
// user record and upserts it as a Profile.
func (w *walker) addUser(u node) {
	if legacy := u.node("legacy"); len(legacy) > 0 {
		w.addLegacyUser(legacy, u.int64("rest_id"))
	}
}

// addLegacyUser builds and upserts a Profile from a legacy user record,
// and folds the observer's Following/FollowedBy flags (when present)
// into a follow edge (§3: per-viewer flags only mean something for a
// registered observer).
func (w *walker) addLegacyUser(u node, uid int64) {
	if len(u) == 0 || uid == 0 {
		return
	}
	profile := &schema.Profile{
		UserID:         uid,
		ScreenName:     u.str("screen_name"),
		DisplayName:    u.str("name"),
		Description:    u.str("description"),
		Protected:      u.bool("protected"),
		FollowerCount:  u.int64("followers_count"),
		FollowingCount: u.int64("friends_count"),
		PostCount:      u.int64("statuses_count"),
		BannerURL:      u.str("profile_banner_url"),
		AvatarURL:      u.str("profile_image_url_https"),
		Following:      u.bool("following"),
		FollowedBy:     u.bool("followed_by"),
	}
	if ids := u.arr("pinned_tweet_ids_str"); len(ids) > 0 {
		pinned := make([]int64, 0, len(ids))
		for _, v := range ids {
			if s, ok := v.(string); ok {
				pinned = append(pinned, parseInt64(s))
			}
		}
		profile.PinnedPostIDs = pinned
	}

	w.store.UpsertProfile(profile)

	if w.ctx.Observer != 0 && w.ctx.Observer != uid {
		if profile.Following {
			_ = w.store.AddFollow(w.ctx.Observer, uid)
		}
		if profile.FollowedBy {
			_ = w.store.AddFollow(uid, w.ctx.Observer)
		}
	}
}

// addTweet persists one "TweetResults.result" node, recursing into any
// retweeted/quoted tweet it references, and returns the id to record in
// a layout entry: the retweet's own id, not the original's (Post.ID is
// always the tweet that was actually fetched; Post.RetweetOf points at
// what it republishes, §3).
func (w *walker) addTweet(t node) (int64, bool) {
	heuristicCircle := false
	tn := t.typename()
	switch tn {
	case "TweetWithVisibilityResults":
		// limitedActionResults has no stable field naming a circle; the
		// original source itself falls back to a substring check here.
		heuristicCircle = containsString(t.get("limitedActionResults"), "Circle")
		t = t.node("tweet")
	case "TweetTombstone", "TweetUnavailable":
		return 0, false
	}

	if !t.has("core") {
		w.handleDeviation("tweet", fmt.Errorf("missing core for typename %q", tn))
		return 0, false
	}
	user := t.node("core").node("user_results").node("result")

	var card *schema.Card
	if rawCard, ok := asNode(t.get("card")); ok {
		card = w.flattenCard(rawCard.node("legacy"))
	}

	if !t.has("legacy") {
		w.handleDeviation("tweet", fmt.Errorf("missing legacy for typename %q", tn))
		return 0, false
	}
	legacy := t.node("legacy")

	var retweetOf *int64
	if rt, ok := asNode(legacy.get("retweeted_status_result")); ok {
		if id, ok2 := w.addTweet(rt.node("result")); ok2 {
			retweetOf = &id
		}
	}

	var quotedPostID *int64
	if quoted, ok := asNode(t.get("quoted_status_result")); ok {
		if id, ok2 := w.addTweet(quoted.node("result")); ok2 {
			quotedPostID = &id
		}
	}

	limitedAction := legacy.str("limited_actions") != ""
	var circleOwner *schema.CircleOwner
	if tf, ok := asNode(t.get("trusted_friends_info_result")); ok {
		owner := tf.node("owner_results").node("result").node("legacy")
		circleOwner = &schema.CircleOwner{ScreenName: owner.str("screen_name"), DisplayName: owner.str("name")}
		limitedAction = true
	} else if legacy.str("limited_actions") != "limit_trusted_friends_tweet" && heuristicCircle {
		// No authoritative owner available: record the flag without a
		// recoverable CircleOwner, same as the original's own admission
		// that this case has "no machine readable way to tell" who owns
		// the circle.
		limitedAction = true
	}

	w.addUser(user)

	post := w.buildLegacyPost(legacy, card, retweetOf, quotedPostID, limitedAction, circleOwner)
	w.store.UpsertPost(post)

	if w.ctx.Observer != 0 {
		if legacy.bool("favorited") {
			post.FavoritedBy[w.ctx.Observer] = struct{}{}
			w.store.AddUnsortedLike(w.ctx.Observer, post.ID)
		}
		if legacy.bool("bookmarked") {
			post.BookmarkedBy[w.ctx.Observer] = struct{}{}
		}
		if legacy.bool("retweeted") {
			post.RetweetedBy[w.ctx.Observer] = struct{}{}
		}
	}

	return post.ID, true
}

// flattenCard turns a legacy card's binding_values list (an array of
// {key, value} pairs, each value itself a typed union) into the flat
// string map the normalized schema carries.
func (w *walker) flattenCard(legacyCard node) *schema.Card {
	if len(legacyCard) == 0 {
		return nil
	}
	values := map[string]string{}
	for _, raw := range legacyCard.arr("binding_values") {
		kv, ok := asNode(raw)
		if !ok {
			continue
		}
		key := kv.str("key")
		if key == "" {
			continue
		}
		values[key] = cardValueString(kv.node("value"))
	}
	return &schema.Card{Name: legacyCard.str("name"), Values: values}
}

// cardValueString extracts the scalar out of one binding_values union
// value, by its declared "type" where present.
func cardValueString(v node) string {
	switch v.str("type") {
	case "STRING":
		return v.str("string_value")
	case "BOOLEAN":
		if b, ok := v.get("boolean_value").(bool); ok {
			return strconv.FormatBool(b)
		}
	case "IMAGE", "IMAGE_COLOR":
		if img, ok := asNode(v.get("image_value")); ok {
			return img.str("url")
		}
	}
	if s, ok := v.get("string_value").(string); ok {
		return s
	}
	return ""
}

func (w *walker) buildLegacyPost(legacy node, card *schema.Card, retweetOf, quotedPostID *int64, limitedAction bool, circleOwner *schema.CircleOwner) *schema.Post {
	id := legacy.int64("id_str")
	post := schema.NewPost(id)
	post.Text = firstNonEmpty(legacy.str("full_text"), legacy.str("text"))
	post.AuthorID = legacy.int64("user_id_str")
	post.CreatedAt = parseTwitterTime(legacy.str("created_at"))
	post.RetweetOf = retweetOf
	post.QuotedPostID = quotedPostID
	post.Card = card
	post.LimitedAction = limitedAction
	post.CircleOwner = circleOwner
	post.LikeCount = legacy.int64("favorite_count")
	post.RepostCount = legacy.int64("retweet_count")
	post.ReplyCount = legacy.int64("reply_count")

	if convID := legacy.str("conversation_id_str"); convID != "" {
		post.ConversationID = &convID
	}
	if legacy.has("in_reply_to_status_id_str") {
		post.ReplyTo = &schema.ReplyTarget{
			PostID:     legacy.int64("in_reply_to_status_id_str"),
			UserID:     legacy.int64("in_reply_to_user_id_str"),
			ScreenName: legacy.str("in_reply_to_screen_name"),
		}
	}
	post.Media = w.buildMediaList(legacy)
	return post
}

// buildMediaList prefers extended_entities.media (carries video_info and
// the full sizes table) and falls back to entities.media otherwise.
func (w *walker) buildMediaList(legacy node) []schema.MediaItem {
	mediaArr := legacy.node("extended_entities").arr("media")
	if len(mediaArr) == 0 {
		mediaArr = legacy.node("entities").arr("media")
	}
	if len(mediaArr) == 0 {
		return nil
	}
	items := make([]schema.MediaItem, 0, len(mediaArr))
	for _, raw := range mediaArr {
		m, ok := asNode(raw)
		if !ok {
			continue
		}
		items = append(items, buildMediaItem(m))
	}
	return items
}

func buildMediaItem(m node) schema.MediaItem {
	url := m.str("media_url_https")
	if url == "" {
		url = m.str("media_url")
	}
	item := schema.MediaItem{CanonicalURL: url}
	if dec, err := urlcodec.Decode(url); err == nil {
		item.CanonicalURL = dec.Base
		item.Format = dec.Format
		if dec.Size != nil {
			item.DefaultSize = *dec.Size
		}
		item.FullResURL = dec.FullResURL
	}
	if sizes := m.node("sizes"); len(sizes) > 0 {
		item.Sizes = map[string]*schema.SizeEntry{}
		for name, v := range sizes {
			sn, ok := asNode(v)
			if !ok {
				continue
			}
			resize := schema.ResizeFit
			if sn.str("resize") == "crop" {
				resize = schema.ResizeCrop
			}
			item.Sizes[name] = schema.InternSize(schema.SizeKey{
				Width:  int(sn.int64("w")),
				Height: int(sn.int64("h")),
				Resize: resize,
			})
		}
	}
	if vi, ok := asNode(m.get("video_info")); ok {
		for _, v := range vi.arr("variants") {
			vn, ok := asNode(v)
			if !ok {
				continue
			}
			item.VideoVariants = append(item.VideoVariants, schema.VideoVariant{
				URL:     vn.str("url"),
				Bitrate: int(vn.int64("bitrate")),
			})
		}
	}
	return item
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// parseTwitterTime parses the fixed-format created_at timestamp the
// GraphQL envelope uses everywhere a tweet or user mentions its
// creation time.
func parseTwitterTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse("Mon Jan 02 15:04:05 -0700 2006", s)
	if err != nil {
		return time.Time{}
	}
	return t
}

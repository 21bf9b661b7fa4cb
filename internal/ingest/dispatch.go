// Copyright (c) Contributors.
// All rights reserved. Use of this source code is governed by a
// MIT-style license that can be found in the LICENSE file.
package ingest

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/tlreplay/tlreplay/internal/metrics"
	"github.com/tlreplay/tlreplay/internal/store"
	"github.com/tlreplay/tlreplay/pkg/log"
	"github.com/tlreplay/tlreplay/pkg/schema"
)

type handlerFunc func(w *walker, data node, vars node) error

// endpoints maps a GraphQL operation name (the URL path's last segment)
// to its handler (§4.6, §9 "endpoint handler table"). The mutation
// endpoints are recorded as explicit no-ops, matching the original
// source's own behavior: a replayed capture never needs to act on a
// write, only to record that one was attempted.
var endpoints = map[string]handlerFunc{
	"UserByRestId":          handleUserByRestID,
	"UserByScreenName":      handleUserByScreenName,
	"HomeTimeline":          handleTimelineResponse,
	"HomeLatestTimeline":    handleTimelineResponse,
	"TweetDetail":           handleTweetDetail,
	"UserTweets":            handleUserTimeline,
	"UserTweetsAndReplies":  handleUserTimeline,
	"UserMedia":             handleUserTimeline,
	"Likes":                 handleLikes,
	"Bookmarks":             handleBookmarks,
	"Following":             handleFollowing,
	"Followers":             handleFollowers,
	"Favoriters":            handleFavoritersRetweeters,
	"Retweeters":            handleFavoritersRetweeters,
	"SearchTimeline":        handleSearchTimeline,
	"CreateTweet":           handleCreateTweet,
	"UsersByRestIds":        handleUsersByRestIds,
	"UsersVerifiedAvatars":  handleUsersVerifiedAvatars,
	"TweetResultsByRestIds": handleTweetResultsByRestIds,
	"NotificationsTimeline": handleNotificationsTimeline,

	"FavoriteTweet":             noop,
	"UnfavoriteTweet":           noop,
	"CreateRetweet":             noop,
	"DeleteTweet":               noop,
	"DeleteRetweet":             noop,
	"CreateBookmark":            noop,
	"DeleteBookmark":            noop,
	"PinTweet":                  noop,
	"UnpinTweet":                noop,
	"ConversationControlChange": noop,

	// The remaining operation names are writes, client-only settings, or
	// surfaces this system never reconstructs (ads, Spaces, Communities,
	// Birdwatch, subscriptions, moderation); the original source passes
	// on every one of these too, so an unhandled response body here is
	// expected rather than a schema deviation.
	"getAltTextPromptPreference":               noop,
	"AudioSpaceById":                           noop,
	"FollowersYouKnow":                         noop,
	"BlueVerifiedFollowers":                    noop,
	"articleNudgeDomains":                      noop,
	"useFetchProfileBlocks_profileExistsQuery": noop,
	"PinnedTimelines":                          noop,
	"ExploreSidebar":                           noop,
	"ExplorePage":                              noop,
	"UserPreferences":                          noop,
	"useTypingNotifierMutation":                noop,
	"AccountSwitcherDelegateQuery":             noop,
	"DelegatedAccountListQuery":                noop,
	"SensitiveMediaSettingsQuery":              noop,
	"fetchDownloadSettingAllowedQuery":          noop,
	"ListsManagementPageTimeline":              noop,
	"ListLatestTweetsTimeline":                 noop,
	"BroadcastQuery":                           noop,
	"PutClientEducationFlag":                   noop,
	"ConnectTabTimeline":                       noop,
	"TweetResultByRestId":                      noop,
	"ModeratedTimeline":                        noop,
	"PremiumSignUpQuery":                       noop,
	"useSubscriptionProductDetailsQuery":       noop,
	"ListProductSubscriptions":                 noop,
	"CommunitiesCreateButtonQuery":              noop,
	"CarouselQuery":                            noop,
	"CommunitiesMainPageTimeline":              noop,
	"RemoveFollower":                           noop,
	"ListOwnerships":                           noop,
	"ListAddMember":                            noop,
	"useDMReactionMutationAddMutation":         noop,
	"CommunitiesFetchOneQuery":                 noop,
	"BlueVerifiedProfileEditCalloutQuery":      noop,
	"ReportDetailQuery":                        noop,
	"BirdwatchFetchAuthenticatedUserProfile":   noop,
	"BirdwatchFetchOneNote":                    noop,
	"BirdwatchFetchAliasSelfSelectStatus":      noop,
	"BirdwatchFetchNotes":                      noop,
	"usePricesQuery":                           noop,
	"useVerifiedOrgFeatureHelperQuery":         noop,
	"useProductSkuQuery":                       noop,
	"TranslationFeedbackProvideFeedbackMutation": noop,
	"UserHighlightsTweets":                     noop,
	"UserAccountLabel":                         noop,
	"GenericTimelineById":                      noop,
	"BookmarkSearchTimeline":                   noop,
	"useRelayDelegateDataPendingQuery":         noop,
	"TrendRelevantUsers":                       noop,
	"AiTrendByRestId":                          noop,
}

func noop(*walker, node, node) error { return nil }

// observerFromCookies extracts the signed-in user id from the twid
// cookie, which the client sends URL-encoded and prefixed with a
// literal "u=" (e.g. "u%3D123" -> "u=123" -> 123).
func observerFromCookies(cookies map[string]string) int64 {
	raw, ok := cookies["twid"]
	if !ok {
		return 0
	}
	decoded, err := url.QueryUnescape(raw)
	if err != nil {
		decoded = raw
	}
	if len(decoded) < 3 || decoded[:2] != "u=" {
		return 0
	}
	return parseInt64(decoded[2:])
}

// gqlVars decodes the request URL's "variables" query parameter, the
// JSON-encoded argument bag every GraphQL request carries.
func gqlVars(rawURL string) node {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	raw := u.Query().Get("variables")
	if raw == "" {
		return nil
	}
	var v map[string]any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil
	}
	return node(v)
}

// endpointName returns the URL path's last segment, which every
// GraphQL operation names itself by (e.g. ".../graphql/abc123/Likes" ->
// "Likes").
func endpointName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Path[strings.LastIndex(u.Path, "/")+1:]
}

// Dispatch decodes one captured response body as a GraphQL (or
// legacy-REST, in the case of export-style JSON) envelope and walks it
// into the store. rawURL is the request URL the response was served
// for; cookies are the cookies in effect on that request; observedAt is
// the capture's wall-clock timestamp. strict controls whether an
// unrecognized envelope shape is fatal (development) or merely logged
// and skipped (§7).
func Dispatch(s *store.Store, rawURL string, cookies map[string]string, observedAt time.Time, body []byte, strict bool) error {
	var envelope map[string]any
	if err := json.Unmarshal(body, &envelope); err != nil {
		metrics.RecordSkipped(schema.ErrCorruptCapture.Error())
		return schema.NewCaptureError(schema.ErrCorruptCapture, rawURL, "", err)
	}
	env := node(envelope)
	if !env.has("data") {
		return nil
	}
	data := env.node("data")

	ctx := Context{Time: observedAt, Observer: observerFromCookies(cookies)}
	if ctx.Observer != 0 {
		s.AddObserver(ctx.Observer)
	}
	w := newWalker(s, ctx, strict)
	vars := gqlVars(rawURL)

	name := endpointName(rawURL)
	handler, ok := endpoints[name]
	if !ok {
		err := fmt.Errorf("unrecognized endpoint for path %q", name)
		metrics.RecordSkipped(schema.ErrSchemaDeviation.Error())
		if strict {
			log.Panicf("ingest: %v", err)
		}
		log.Warnf("ingest: %v", err)
		return schema.NewCaptureError(schema.ErrSchemaDeviation, rawURL, "", err)
	}
	if err := handler(w, data, vars); err != nil {
		metrics.RecordSkipped(schema.ErrSchemaDeviation.Error())
		return err
	}
	metrics.RecordIngested(name)
	return nil
}

func handleUserByRestID(w *walker, data, _ node) error {
	w.addUser(data.node("user").node("result"))
	return nil
}

func handleUserByScreenName(w *walker, data, _ node) error {
	w.addUser(data.node("user").node("result"))
	return nil
}

func handleTimelineResponse(w *walker, data, _ node) error {
	timeline := data.node("home").node("home_timeline_urt")
	w.addWithInstructions(timeline)
	return nil
}

func handleTweetDetail(w *walker, data, _ node) error {
	w.addWithInstructions(data.node("threaded_conversation_with_injections_v2"))
	return nil
}

// userTimeline navigates to the "timeline" node shared by UserTweets,
// UserTweetsAndReplies, and UserMedia: all three hang their instruction
// list off data.user.result under one of two field names depending on
// API generation.
func userTimeline(data node) node {
	result := data.node("user").node("result")
	if tl := result.node("timeline_v2").node("timeline"); len(tl) > 0 {
		return tl
	}
	return result.node("timeline").node("timeline")
}

func handleUserTimeline(w *walker, data, _ node) error {
	w.addWithInstructions(userTimeline(data))
	return nil
}

// handleLikes builds a like-list Snapshot from the response layout,
// choosing the events encoding when consecutive entries' sort indices
// are not exactly one apart (the original's own test for "this is an
// append log, not a plain ordered list").
func handleLikes(w *walker, data, vars node) error {
	timeline := data.node("user").node("result").node("timeline_v2").node("timeline")
	layout, _ := w.addWithInstructions(timeline)
	if len(layout) == 0 {
		return nil
	}

	observer := vars.int64("userId")
	if observer == 0 {
		observer = w.ctx.Observer
	}
	if observer == 0 {
		return nil
	}
	w.store.AddObserver(observer)

	snap := schema.Snapshot{Observer: observer, List: schema.ListKindLikes, Observed: w.ctx.Time}
	if len(layout) > 1 && layout[0].SortIndex != layout[1].SortIndex+1 {
		events := make([]schema.EventItem, 0, len(layout))
		for _, le := range layout {
			if le.ItemID == 0 {
				continue
			}
			events = append(events, schema.EventItem{EventID: le.SortIndex, ItemID: le.ItemID})
		}
		snap.Events = events
	} else {
		items := make([]int64, 0, len(layout))
		for _, le := range layout {
			if le.ItemID == 0 {
				continue
			}
			items = append(items, le.ItemID)
		}
		snap.Items = items
	}
	w.store.AddSnapshot(snap)
	metrics.RecordSnapshotMerged()
	return nil
}

// handleBookmarks persists the response's posts and marks each as
// bookmarked by the requesting account directly on the store's live
// Post record (§4.7: bookmarks have no alignment concern, so they are
// recorded as a plain per-viewer flag rather than a Snapshot).
func handleBookmarks(w *walker, data, vars node) error {
	timeline := data.node("bookmark_timeline_v2").node("timeline")
	if len(timeline) == 0 {
		timeline = data.node("bookmark_timeline").node("timeline")
	}
	layout, _ := w.addWithInstructions(timeline)

	observer := vars.int64("userId")
	if observer == 0 {
		observer = w.ctx.Observer
	}
	if observer == 0 {
		return nil
	}
	for _, le := range layout {
		if post := w.store.Post(le.ItemID); post != nil {
			post.BookmarkedBy[observer] = struct{}{}
		}
	}
	return nil
}

func handleFollowing(w *walker, data, vars node) error {
	return addFollowEdges(w, data, vars, true)
}

func handleFollowers(w *walker, data, vars node) error {
	return addFollowEdges(w, data, vars, false)
}

func addFollowEdges(w *walker, data, vars node, following bool) error {
	uid := vars.int64("userId")
	timeline := data.node("user").node("result").node("timeline").node("timeline")
	layout, _ := w.addWithInstructions(timeline)
	if uid == 0 {
		return nil
	}
	for _, le := range layout {
		if le.ItemID == 0 || le.ItemID == uid {
			continue
		}
		if following {
			_ = w.store.AddFollow(uid, le.ItemID)
		} else {
			_ = w.store.AddFollow(le.ItemID, uid)
		}
	}
	return nil
}

// handleFavoritersRetweeters just persists whichever users the response
// mentions (people who favorited/retweeted a tweet); the original source
// does no more than this either, since the captured request alone does
// not reliably carry the target tweet id outside gql vars that vary by
// API generation.
func handleFavoritersRetweeters(w *walker, data, _ node) error {
	timeline := data.node("favoriters_timeline").node("timeline")
	if len(timeline) == 0 {
		timeline = data.node("retweeters_timeline").node("timeline")
	}
	w.addWithInstructions(timeline)
	return nil
}

func handleSearchTimeline(w *walker, data, _ node) error {
	timeline := data.node("search_by_raw_query").node("search_timeline").node("timeline")
	w.addWithInstructions(timeline)
	return nil
}

func handleCreateTweet(w *walker, data, _ node) error {
	result := data.node("create_tweet").node("tweet_results").node("result")
	if len(result) == 0 {
		return nil
	}
	w.addTweet(result)
	return nil
}

func handleUsersByRestIds(w *walker, data, _ node) error {
	for _, raw := range data.arr("users") {
		un, ok := asNode(raw)
		if !ok {
			continue
		}
		if res := un.node("result"); len(res) > 0 {
			w.addUser(res)
		} else {
			w.addUser(un)
		}
	}
	return nil
}

// handleUsersVerifiedAvatars persists each user the response carries
// under usersResults; unlike UsersByRestIds, every element here is
// already wrapped in its own "result" field.
func handleUsersVerifiedAvatars(w *walker, data, _ node) error {
	for _, raw := range data.arr("usersResults") {
		un, ok := asNode(raw)
		if !ok {
			continue
		}
		w.addUser(un.node("result"))
	}
	return nil
}

// handleTweetResultsByRestIds persists each tweet the response carries
// under tweetResult, skipping entries with no "result" (deleted or
// otherwise unavailable tweets the original also drops).
func handleTweetResultsByRestIds(w *walker, data, _ node) error {
	for _, raw := range data.arr("tweetResult") {
		tn, ok := asNode(raw)
		if !ok {
			continue
		}
		if res := tn.node("result"); len(res) > 0 {
			w.addTweet(res)
		}
	}
	return nil
}

// handleNotificationsTimeline is left unimplemented: this GraphQL
// operation has no response shape in the original source either (its
// notification handling is a separate, legacy globalObjects-keyed REST
// path that never got ported to the GraphQL dispatcher).
func handleNotificationsTimeline(*walker, node, node) error { return nil }

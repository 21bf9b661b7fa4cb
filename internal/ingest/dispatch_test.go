// Copyright (c) Contributors.
// All rights reserved. Use of this source code is governed by a
// MIT-style license that can be found in the LICENSE file.
package ingest

import (
	"encoding/json"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestObserverFromCookiesDecodesTwidPrefix(t *testing.T) {
	cookies := map[string]string{"twid": url.QueryEscape("u=987654")}
	require.Equal(t, int64(987654), observerFromCookies(cookies))
}

func TestObserverFromCookiesMissingCookie(t *testing.T) {
	require.Equal(t, int64(0), observerFromCookies(map[string]string{}))
}

func TestGqlVarsParsesVariablesQueryParam(t *testing.T) {
	rawURL := "https://x.com/i/api/graphql/abc/Likes?variables=" + url.QueryEscape(`{"userId":"42"}`)
	require.Equal(t, int64(42), gqlVars(rawURL).int64("userId"))
}

func TestEndpointNameIsLastPathSegment(t *testing.T) {
	require.Equal(t, "UserByRestId", endpointName("https://x.com/i/api/graphql/abc123/UserByRestId?variables={}"))
}

func TestDispatchRoutesUserByRestId(t *testing.T) {
	s := newTestStore(t)
	body, err := json.Marshal(map[string]any{
		"data": map[string]any{
			"user": map[string]any{"result": legacyUser(1, "alice")},
		},
	})
	require.NoError(t, err)

	rawURL := "https://x.com/i/api/graphql/abc/UserByRestId?variables=" + url.QueryEscape(`{"userId":"1"}`)
	cookies := map[string]string{"twid": url.QueryEscape("u=1")}

	require.NoError(t, Dispatch(s, rawURL, cookies, time.Now(), body, true))
	require.True(t, s.IsObserver(1))
	require.NotNil(t, s.Profile(1))
}

func TestDispatchNoDataKeyIsANoop(t *testing.T) {
	s := newTestStore(t)
	body := []byte(`{"errors": [{"message": "rate limited"}]}`)
	require.NoError(t, Dispatch(s, "https://x.com/i/api/graphql/abc/UserByRestId", nil, time.Now(), body, true))
}

func TestDispatchUnknownEndpointNonStrictReturnsSchemaDeviation(t *testing.T) {
	s := newTestStore(t)
	body := []byte(`{"data": {}}`)
	err := Dispatch(s, "https://x.com/i/api/graphql/abc/SomeFutureEndpoint", nil, time.Now(), body, false)
	require.Error(t, err)
}

func TestDispatchUnknownEndpointStrictPanics(t *testing.T) {
	s := newTestStore(t)
	body := []byte(`{"data": {}}`)
	require.Panics(t, func() {
		Dispatch(s, "https://x.com/i/api/graphql/abc/SomeFutureEndpoint", nil, time.Now(), body, true)
	})
}

func TestDispatchCorruptBodyReturnsCaptureError(t *testing.T) {
	s := newTestStore(t)
	err := Dispatch(s, "https://x.com/i/api/graphql/abc/UserByRestId", nil, time.Now(), []byte("not json"), false)
	require.Error(t, err)
}

func likesTimelineData(userID int64, pairs [][2]int64) map[string]any {
	entries := make([]any, 0, len(pairs))
	for _, p := range pairs {
		entries = append(entries, tweetEntry("like-entry", p[0], p[1]))
	}
	return map[string]any{
		"user": map[string]any{
			"result": map[string]any{
				"rest_id": fmtInt(userID),
				"timeline_v2": map[string]any{
					"timeline": map[string]any{
						"instructions": []any{
							map[string]any{"type": "TimelineAddEntries", "entries": entries},
						},
					},
				},
			},
		},
	}
}

func TestHandleLikesBuildsItemsSnapshotWhenSequential(t *testing.T) {
	s := newTestStore(t)
	w := newWalker(s, Context{Time: time.Now()}, true)

	data := node(likesTimelineData(1, [][2]int64{{3, 30}, {2, 20}, {1, 10}}))
	vars := node(map[string]any{"userId": "1"})

	require.NoError(t, handleLikes(w, data, vars))
	require.True(t, s.IsObserver(1))
}

func TestHandleLikesBuildsEventsSnapshotWhenNonSequential(t *testing.T) {
	s := newTestStore(t)
	w := newWalker(s, Context{Time: time.Now()}, true)

	// sort indices 100, 50 are not consecutive: likes[0] != likes[1]+1.
	data := node(likesTimelineData(1, [][2]int64{{100, 30}, {50, 20}}))
	vars := node(map[string]any{"userId": "1"})

	require.NoError(t, handleLikes(w, data, vars))
	require.True(t, s.IsObserver(1))
}

func TestHandleBookmarksMarksPostsBookmarked(t *testing.T) {
	s := newTestStore(t)
	w := newWalker(s, Context{}, true)

	data := node(map[string]any{
		"bookmark_timeline_v2": map[string]any{
			"timeline": map[string]any{
				"instructions": []any{
					map[string]any{"type": "TimelineAddEntries", "entries": []any{tweetEntry("bm-1", 1, 55)}},
				},
			},
		},
	})
	vars := node(map[string]any{"userId": "9"})

	require.NoError(t, handleBookmarks(w, data, vars))
	post := s.Post(55)
	require.NotNil(t, post)
	require.Contains(t, post.BookmarkedBy, int64(9))
}

func TestHandleFollowingAddsEdges(t *testing.T) {
	s := newTestStore(t)
	w := newWalker(s, Context{}, true)

	data := node(map[string]any{
		"user": map[string]any{
			"result": map[string]any{
				"timeline": map[string]any{
					"timeline": map[string]any{
						"instructions": []any{
							map[string]any{
								"type": "TimelineAddEntries",
								"entries": []any{
									map[string]any{
										"entryId":   "user-2",
										"sortIndex": float64(1),
										"content": map[string]any{
											"entryType": "TimelineTimelineItem",
											"itemContent": map[string]any{
												"__typename":   "TimelineUser",
												"user_results": map[string]any{"result": legacyUser(2, "followed")},
											},
										},
									},
								},
							},
						},
					},
				},
			},
		},
	})
	vars := node(map[string]any{"userId": "1"})

	require.NoError(t, handleFollowing(w, data, vars))
	require.Equal(t, []int64{2}, s.Following(1))
}

func TestHandleCreateTweetPersistsResultTweet(t *testing.T) {
	s := newTestStore(t)
	w := newWalker(s, Context{}, true)

	data := node(map[string]any{
		"create_tweet": map[string]any{
			"tweet_results": map[string]any{"result": bareTweet(321, "posted", 1)},
		},
	})

	require.NoError(t, handleCreateTweet(w, data, nil))
	require.NotNil(t, s.Post(321))
}

func TestHandleUsersByRestIdsPersistsEachUser(t *testing.T) {
	s := newTestStore(t)
	w := newWalker(s, Context{}, true)

	data := node(map[string]any{
		"users": []any{
			map[string]any{"result": legacyUser(5, "five")},
			legacyUser(6, "six"),
		},
	})

	require.NoError(t, handleUsersByRestIds(w, data, nil))
	require.NotNil(t, s.Profile(5))
	require.NotNil(t, s.Profile(6))
}

func TestMutationEndpointsAreNoops(t *testing.T) {
	s := newTestStore(t)
	body := []byte(`{"data": {}}`)
	for _, name := range []string{"FavoriteTweet", "CreateRetweet", "DeleteTweet", "PinTweet"} {
		rawURL := "https://x.com/i/api/graphql/abc/" + name
		require.NoError(t, Dispatch(s, rawURL, nil, time.Now(), body, true))
	}
}

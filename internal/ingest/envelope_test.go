// Copyright (c) Contributors.
// All rights reserved. Use of this source code is governed by a
// MIT-style license that can be found in the LICENSE file.
package ingest

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func tweetEntry(entryID string, sortIndex int64, tweetID int64) map[string]any {
	return map[string]any{
		"entryId":   entryID,
		"sortIndex": float64(sortIndex),
		"content": map[string]any{
			"entryType": "TimelineTimelineItem",
			"itemContent": map[string]any{
				"__typename": "TimelineTweet",
				"tweet_results": map[string]any{
					"result": bareTweet(tweetID, "hi", 1),
				},
			},
		},
	}
}

func TestAddWithInstructionsBuildsLayoutInOrder(t *testing.T) {
	s := newTestStore(t)
	w := newWalker(s, Context{}, true)

	data := map[string]any{
		"instructions": []any{
			map[string]any{
				"type": "TimelineAddEntries",
				"entries": []any{
					tweetEntry("tweet-10", 10, 10),
					tweetEntry("tweet-20", 20, 20),
				},
			},
		},
	}

	layout, _ := w.addWithInstructions(node(data))
	require.Len(t, layout, 2)
	require.Equal(t, int64(10), layout[0].ItemID)
	require.Equal(t, int64(20), layout[1].ItemID)

	require.NotNil(t, s.Post(10))
	require.NotNil(t, s.Post(20))
}

func TestAddWithInstructionsSkipsPromotedEntries(t *testing.T) {
	s := newTestStore(t)
	w := newWalker(s, Context{}, true)

	entry := tweetEntry("promoted-1", 1, 999)
	entry["content"].(map[string]any)["clientEventInfo"] = map[string]any{"component": "suggest_promoted"}

	data := map[string]any{
		"instructions": []any{
			map[string]any{"type": "TimelineAddEntries", "entries": []any{entry}},
		},
	}

	layout, _ := w.addWithInstructions(node(data))
	require.Empty(t, layout)
	require.Nil(t, s.Post(999))
}

func TestAddWithInstructionsCollectsCursors(t *testing.T) {
	s := newTestStore(t)
	w := newWalker(s, Context{}, true)

	data := map[string]any{
		"instructions": []any{
			map[string]any{
				"type": "TimelineAddEntries",
				"entries": []any{
					map[string]any{
						"entryId": "cursor-bottom",
						"content": map[string]any{
							"entryType": "TimelineTimelineCursor",
							"value":     "cursor-value",
						},
					},
				},
			},
		},
	}

	layout, cursors := w.addWithInstructions(node(data))
	require.Empty(t, layout)
	require.Len(t, cursors, 1)
	require.Equal(t, "cursor-bottom", cursors[0].Name)
}

func TestAddWithInstructionsUnknownTypeHandledNonStrict(t *testing.T) {
	s := newTestStore(t)
	w := newWalker(s, Context{}, false)

	data := map[string]any{
		"instructions": []any{
			map[string]any{"type": "SomeFutureInstruction"},
		},
	}

	require.NotPanics(t, func() {
		w.addWithInstructions(node(data))
	})
}

func TestAddWithInstructionsUnknownTypePanicsStrict(t *testing.T) {
	s := newTestStore(t)
	w := newWalker(s, Context{}, true)

	data := map[string]any{
		"instructions": []any{
			map[string]any{"type": "SomeFutureInstruction"},
		},
	}

	require.Panics(t, func() {
		w.addWithInstructions(node(data))
	})
}

func TestAddModulePersistsMemberUsers(t *testing.T) {
	s := newTestStore(t)
	w := newWalker(s, Context{}, true)

	data := map[string]any{
		"instructions": []any{
			map[string]any{
				"type": "TimelineAddEntries",
				"entries": []any{
					map[string]any{
						"entryId": "module-1",
						"content": map[string]any{
							"entryType": "TimelineTimelineModule",
							"items": []any{
								map[string]any{
									"entryId": "module-1-user-1",
									"item": map[string]any{
										"itemContent": map[string]any{
											"__typename":   "TimelineUser",
											"user_results": map[string]any{"result": legacyUser(42, "module_user")},
										},
									},
								},
							},
						},
					},
				},
			},
		},
	}

	w.addWithInstructions(node(data))
	require.NotNil(t, s.Profile(42))
}

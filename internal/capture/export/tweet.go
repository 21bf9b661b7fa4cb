// Copyright (c) Contributors.
// All rights reserved. Use of this source code is governed by a
// MIT-style license that can be found in the LICENSE file.
package export

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/tlreplay/tlreplay/pkg/log"
	"github.com/tlreplay/tlreplay/pkg/schema"
	"github.com/tlreplay/tlreplay/pkg/urlcodec"
)

// legacyCreatedAtLayout is the timestamp format export bundles and the
// legacy API both use, e.g. "Wed Oct 10 20:19:24 +0000 2018".
const legacyCreatedAtLayout = "Mon Jan 02 15:04:05 -0700 2006"

// legacyMedia mirrors one entry of entities.media / extended_entities.media
// in an export-bundle tweet record.
type legacyMedia struct {
	MediaURLHttps string `json:"media_url_https"`
	Type          string `json:"type"`
}

// legacyTweet mirrors the shape of a single export-bundle tweet record,
// after the reader has unwrapped the `{"tweet": {...}}` envelope used by
// 2020-and-later archives (§4.3).
type legacyTweet struct {
	IDStr      string `json:"id_str"`
	FullText   string `json:"full_text"`
	CreatedAt  string `json:"created_at"`
	UserIDStr  string `json:"user_id_str"`
	OriginalID int64  `json:"original_id"`

	InReplyToStatusIDStr string `json:"in_reply_to_status_id_str"`
	InReplyToUserIDStr   string `json:"in_reply_to_user_id_str"`
	InReplyToScreenName  string `json:"in_reply_to_screen_name"`

	FavoriteCount int64 `json:"favorite_count"`
	RetweetCount  int64 `json:"retweet_count"`

	Entities struct {
		Media []legacyMedia `json:"media"`
	} `json:"entities"`
	ExtendedEntities struct {
		Media []legacyMedia `json:"media"`
	} `json:"extended_entities"`

	RetweetedStatus *legacyTweet `json:"retweeted_status"`
}

func parseLegacyTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(legacyCreatedAtLayout, s)
	if err != nil {
		log.Warnf("export: unparseable created_at %q: %v", s, err)
		return time.Time{}
	}
	return t
}

func parseInt64(s string) int64 {
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// normalizeTweet builds a *schema.Post from a raw export-bundle tweet
// record. authorID is the account the entire bundle belongs to, since
// exports omit the author on the owner's own posts (§4.3).
func normalizeTweet(t legacyTweet, authorID int64) *schema.Post {
	id := parseInt64(t.IDStr)
	p := schema.NewPost(id)
	p.Text = t.FullText
	p.AuthorID = authorID
	p.CreatedAt = parseLegacyTime(t.CreatedAt)
	p.LikeCount = t.FavoriteCount
	p.RepostCount = t.RetweetCount

	if t.InReplyToStatusIDStr != "" {
		p.ReplyTo = &schema.ReplyTarget{
			PostID:     parseInt64(t.InReplyToStatusIDStr),
			UserID:     parseInt64(t.InReplyToUserIDStr),
			ScreenName: t.InReplyToScreenName,
		}
	}

	if t.RetweetedStatus != nil {
		orig := parseInt64(t.RetweetedStatus.IDStr)
		p.RetweetOf = &orig
	} else if t.OriginalID != 0 && t.OriginalID != id {
		p.RetweetOf = &t.OriginalID
	}

	media := t.ExtendedEntities.Media
	if len(media) == 0 {
		media = t.Entities.Media
	}
	for _, m := range media {
		d, err := urlcodec.Decode(m.MediaURLHttps)
		if err != nil {
			log.Warnf("export: skipping unrecognized media url %q: %v", m.MediaURLHttps, err)
			continue
		}
		item := schema.MediaItem{CanonicalURL: d.Base, Format: d.Format, FullResURL: d.FullResURL}
		if d.Size != nil {
			item.DefaultSize = *d.Size
		}
		p.Media = append(p.Media, item)
	}

	return p
}

// unwrapTweetEnvelope un-nests the `{"tweet": {...}}` wrapper used by
// 2020-and-later archive generations; pre-2020 archives store the tweet
// record directly (§4.3).
func unwrapTweetEnvelope(raw json.RawMessage) (json.RawMessage, error) {
	var wrapper struct {
		Tweet json.RawMessage `json:"tweet"`
	}
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil, err
	}
	if wrapper.Tweet != nil {
		return wrapper.Tweet, nil
	}
	return raw, nil
}

// Copyright (c) Contributors.
// All rights reserved. Use of this source code is governed by a
// MIT-style license that can be found in the LICENSE file.
package export

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/tlreplay/tlreplay/pkg/blob"
	"github.com/tlreplay/tlreplay/pkg/log"
	"github.com/tlreplay/tlreplay/pkg/schema"
	"github.com/tlreplay/tlreplay/pkg/urlcodec"
)

// legacy2019CreatedAtLayout is the timestamp format the 2019 archive
// generation's own JS chunks use, distinct from every later generation
// ("Mon Jan 02 15:04:05 -0700 2006" elsewhere; §4.3).
const legacy2019CreatedAtLayout = "2006-01-02 15:04:05 -0700"

type payloadDetailsRecord struct {
	CreatedAt string `json:"created_at"`
}

type userDetailsRecord struct {
	ID         string `json:"id"`
	ScreenName string `json:"screen_name"`
	FullName   string `json:"full_name"`
	Bio        string `json:"bio"`
}

type tweetIndexChunk struct {
	FileName string `json:"file_name"`
	VarName  string `json:"var_name"`
}

// legacy2019User is the tweet-embedded author record the 2019 archive
// generation inlines on every tweet, unlike later generations which
// omit the author on the bundle owner's own posts (§4.3).
type legacy2019User struct {
	IDStr      string `json:"id_str"`
	ScreenName string `json:"screen_name"`
}

// legacy2019Tweet mirrors one entry of a 2019-generation tweet chunk
// file; field names diverge from legacyTweet ("text" not "full_text",
// a differently-formatted created_at, an inlined author).
type legacy2019Tweet struct {
	IDStr     string         `json:"id_str"`
	Text      string         `json:"text"`
	CreatedAt string         `json:"created_at"`
	User      legacy2019User `json:"user"`
	Entities  struct {
		Media []legacyMedia `json:"media"`
	} `json:"entities"`

	InReplyToStatusIDStr string `json:"in_reply_to_status_id_str"`
	InReplyToUserIDStr   string `json:"in_reply_to_user_id_str"`
	InReplyToScreenName  string `json:"in_reply_to_screen_name"`

	RetweetedStatus *legacy2019Tweet `json:"retweeted_status,omitempty"`

	originalID int64
}

func normalizeTweet2019(t legacy2019Tweet) *schema.Post {
	id := parseInt64(t.IDStr)
	p := schema.NewPost(id)
	p.Text = t.Text
	p.AuthorID = parseInt64(t.User.IDStr)
	p.CreatedAt = parseLegacy2019Time(t.CreatedAt)

	if t.InReplyToStatusIDStr != "" {
		p.ReplyTo = &schema.ReplyTarget{
			PostID:     parseInt64(t.InReplyToStatusIDStr),
			UserID:     parseInt64(t.InReplyToUserIDStr),
			ScreenName: t.InReplyToScreenName,
		}
	}

	if t.originalID != 0 && t.originalID != id {
		orig := t.originalID
		p.RetweetOf = &orig
	}

	for _, m := range t.Entities.Media {
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

func parseLegacy2019Time(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(legacy2019CreatedAtLayout, s)
	if err != nil {
		log.Warnf("export: unparseable 2019 created_at %q: %v", s, err)
		return time.Time{}
	}
	return t
}

// read2019 parses the ~2019 "browsable" archive generation, which
// predates account.js/profile.js/manifest.js/tweets_media in their
// later forms and instead spreads tweets across a set of
// year/month-indexed chunk files named by tweet_index.js (§4.3).
func read2019(fs blob.FS) (*Result, error) {
	var payload payloadDetailsRecord
	_ = loadWithPrefix(fs, "data/js/payload_details.js", "var payload_details = ", &payload)

	var generation time.Time
	if payload.CreatedAt != "" {
		generation = parseLegacy2019Time(payload.CreatedAt)
	}
	if generation.IsZero() {
		if t, err := fs.GetMTime(""); err == nil {
			generation = t
		}
	}

	var user userDetailsRecord
	if err := loadWithPrefix(fs, "data/js/user_details.js", "var user_details = ", &user); err != nil {
		return nil, err
	}
	uid := parseInt64(user.ID)

	profile := &schema.Profile{
		UserID:      uid,
		ScreenName:  user.ScreenName,
		DisplayName: user.FullName,
		Description: user.Bio,
	}

	var index []tweetIndexChunk
	if err := loadWithPrefix(fs, "data/js/tweet_index.js", "var tweet_index = ", &index); err != nil {
		return nil, err
	}

	var posts []*schema.Post
	for _, chunk := range index {
		varPrefix := fmt.Sprintf("Grailbird.data.%s = ", chunk.VarName)
		var rawTweets []json.RawMessage
		if err := loadWithPrefix(fs, chunk.FileName, varPrefix, &rawTweets); err != nil {
			log.Warnf("export: skipping unreadable 2019 chunk %q: %v", chunk.FileName, err)
			continue
		}
		for i, raw := range rawTweets {
			var t legacy2019Tweet
			if err := json.Unmarshal(raw, &t); err != nil {
				log.Warnf("export: skipping malformed 2019 tweet record #%d in %q: %v", i, chunk.FileName, err)
				continue
			}
			if t.RetweetedStatus != nil {
				rt := *t.RetweetedStatus
				rt.originalID = parseInt64(rt.IDStr)
				posts = append(posts, normalizeTweet2019(rt))
				t.originalID = rt.originalID
			} else {
				t.originalID = parseInt64(t.IDStr)
			}
			posts = append(posts, normalizeTweet2019(t))
		}
	}

	return &Result{
		Observer:       uid,
		Profile:        profile,
		Posts:          posts,
		Conversations:  map[string]*schema.Conversation{},
		GenerationTime: generation,
	}, nil
}

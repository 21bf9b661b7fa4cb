// Copyright (c) Contributors.
// All rights reserved. Use of this source code is governed by a
// MIT-style license that can be found in the LICENSE file.

// Package export reads account export bundles (§4.3): the self-service
// data download a social platform offers its own users, which this
// system treats as one more capture source alongside HTTP-archives and
// web-archives.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/tlreplay/tlreplay/pkg/blob"
	"github.com/tlreplay/tlreplay/pkg/log"
	"github.com/tlreplay/tlreplay/pkg/schema"
)

// Result is everything one export bundle contributes to the store.
type Result struct {
	Observer       int64
	Profile        *schema.Profile
	Posts          []*schema.Post
	LikesSnapshot  *schema.Snapshot
	Conversations  map[string]*schema.Conversation
	GenerationTime time.Time
}

// layout names one of the four historical export directory shapes
// probed for in order, newest first (§4.3).
type layout struct {
	name          string
	base          string // directory holding tweets.js/tweet.js, relative to fs root
	tweetFile     string
	tweetPrefix   string
	tweetsMediaOK bool
}

var layouts = []layout{
	{name: "browsable-2022", base: "data", tweetFile: "tweets.js", tweetPrefix: "window.YTD.tweets.part0 = ", tweetsMediaOK: true},
	{name: "browsable-2020", base: "data", tweetFile: "tweet.js", tweetPrefix: "window.YTD.tweet.part0 = ", tweetsMediaOK: true},
	// browsable-2019 is detected and handled separately in Read, since
	// it has no account.js/profile.js/like.js of its own (§4.3).
	{name: "raw-2018", base: "", tweetFile: "tweet.js", tweetPrefix: "window.YTD.tweet.part0 = ", tweetsMediaOK: false},
}

const legacy2019IndexMarker = "data/js/tweet_index.js"

// detectLayout probes fs for the marker files of each known historical
// layout, newest generation first, and returns the first match.
func detectLayout(fs blob.FS) (layout, bool) {
	for _, l := range layouts {
		if fs.Exists(path.Join(l.base, l.tweetFile)) {
			return l, true
		}
	}
	return layout{}, false
}

// loadWithPrefix reads name, verifies it begins with literally
// expectedPrefix (export files are JS variable assignments, not bare
// JSON), strips the prefix, and unmarshals the remainder into v (§4.3).
func loadWithPrefix(fs blob.FS, name, expectedPrefix string, v any) error {
	r, err := fs.Open(name)
	if err != nil {
		return fmt.Errorf("export: open %s: %w", name, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("export: read %s: %w", name, err)
	}

	if len(data) < len(expectedPrefix) || string(data[:len(expectedPrefix)]) != expectedPrefix {
		return schema.NewCaptureError(schema.ErrCorruptCapture, name, "", fmt.Errorf("missing expected assignment prefix %q", expectedPrefix))
	}

	if err := json.Unmarshal(data[len(expectedPrefix):], v); err != nil {
		return schema.NewCaptureError(schema.ErrCorruptCapture, name, "", err)
	}
	return nil
}

type accountRecord struct {
	Account struct {
		AccountID          string `json:"accountId"`
		Username           string `json:"username"`
		AccountDisplayName string `json:"accountDisplayName"`
	} `json:"account"`
}

type profileRecord struct {
	Profile struct {
		Description struct {
			Bio string `json:"bio"`
		} `json:"description"`
		HeaderMediaURL string `json:"headerMediaUrl"`
		AvatarMediaURL string `json:"avatarMediaUrl"`
	} `json:"profile"`
}

type manifestRecord struct {
	ArchiveInfo struct {
		GenerationDate string `json:"generationDate"`
	} `json:"archiveInfo"`
}

type likeRecord struct {
	Like struct {
		TweetID  string `json:"tweetId"`
		FullText string `json:"fullText"`
	} `json:"like"`
}

// Read parses one export bundle rooted at fs (§4.3).
func Read(fs blob.FS) (*Result, error) {
	if fs.Exists(legacy2019IndexMarker) {
		return read2019(fs)
	}

	l, ok := detectLayout(fs)
	if !ok {
		return nil, schema.NewCaptureError(schema.ErrCorruptCapture, "", "", fmt.Errorf("no recognized export bundle layout"))
	}

	var accounts []accountRecord
	if err := loadWithPrefix(fs, path.Join(l.base, "account.js"), "window.YTD.account.part0 = ", &accounts); err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, schema.NewCaptureError(schema.ErrCorruptCapture, "account.js", "", fmt.Errorf("empty account record"))
	}
	account := accounts[0].Account
	uid := parseInt64(account.AccountID)

	var profiles []profileRecord
	var bio, banner, avatar string
	if err := loadWithPrefix(fs, path.Join(l.base, "profile.js"), "window.YTD.profile.part0 = ", &profiles); err == nil && len(profiles) > 0 {
		bio = profiles[0].Profile.Description.Bio
		banner = profiles[0].Profile.HeaderMediaURL
		avatar = profiles[0].Profile.AvatarMediaURL
	}

	generation := bundleGenerationTime(fs, l.base)

	profile := &schema.Profile{
		UserID:      uid,
		ScreenName:  account.Username,
		DisplayName: account.AccountDisplayName,
		Description: bio,
		BannerURL:   banner,
		AvatarURL:   avatar,
	}

	tweetPath := path.Join(l.base, l.tweetFile)
	var rawTweets []json.RawMessage
	if err := loadWithPrefix(fs, tweetPath, l.tweetPrefix, &rawTweets); err != nil {
		return nil, err
	}

	posts := make([]*schema.Post, 0, len(rawTweets))
	for i, raw := range rawTweets {
		inner, err := unwrapTweetEnvelope(raw)
		if err != nil {
			log.Warnf("export: skipping malformed tweet record #%d: %v", i, err)
			continue
		}
		var t legacyTweet
		if err := json.Unmarshal(inner, &t); err != nil {
			log.Warnf("export: skipping malformed tweet record #%d: %v", i, err)
			continue
		}
		if t.OriginalID == 0 {
			t.OriginalID = parseInt64(t.IDStr)
		}
		posts = append(posts, normalizeTweet(t, uid))
	}

	var rawLikes []likeRecord
	likeFileErr := loadWithPrefix(fs, path.Join(l.base, "like.js"), "window.YTD.like.part0 = ", &rawLikes)
	var likesSnapshot *schema.Snapshot
	if likeFileErr == nil {
		ordered := Unscramble(rawLikes)
		itemIDs := make([]int64, 0, len(ordered))
		for _, lk := range ordered {
			twid := parseInt64(lk.Like.TweetID)
			itemIDs = append(itemIDs, twid)

			// Liked posts known only by text produce stub posts that
			// contribute text only and never overwrite richer records
			// present elsewhere (§4.3).
			if lk.Like.FullText == "" {
				continue
			}
			stub := schema.NewPost(twid)
			stub.Text = lk.Like.FullText
			posts = append(posts, stub)
		}
		likesSnapshot = &schema.Snapshot{
			Observer: uid,
			List:     schema.ListKindLikes,
			Observed: generation,
			Items:    itemIDs,
		}
	}

	conversations, err := readConversations(fs, l.base)
	if err != nil {
		log.Warnf("export: direct-message conversations unavailable: %v", err)
		conversations = map[string]*schema.Conversation{}
	}

	return &Result{
		Observer:       uid,
		Profile:        profile,
		Posts:          posts,
		LikesSnapshot:  likesSnapshot,
		Conversations:  conversations,
		GenerationTime: generation,
	}, nil
}

func bundleGenerationTime(fs blob.FS, base string) time.Time {
	var manifest manifestRecord
	if err := loadWithPrefix(fs, path.Join(base, "manifest.js"), "window.__THAR_CONFIG = ", &manifest); err == nil {
		if t, err := time.Parse(time.RFC3339, manifest.ArchiveInfo.GenerationDate); err == nil {
			return t
		}
	}
	if t, err := fs.GetMTime(""); err == nil {
		return t
	}
	return time.Time{}
}

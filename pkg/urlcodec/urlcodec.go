// Copyright (c) Contributors.
// All rights reserved. Use of this source code is governed by a
// MIT-style license that can be found in the LICENSE file.
package urlcodec

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/tlreplay/tlreplay/pkg/schema"
)

// ErrUnrecognized is returned when the URL decoder cannot classify a
// media URL by host or path shape (§4.1, §7 ErrUnrecognizedMedia). It is
// the schema package's sentinel directly, so callers can match either
// name with errors.Is.
var ErrUnrecognized = schema.ErrUnrecognizedMedia

// Decoded is the result of canonicalizing a media URL.
type Decoded struct {
	// Base identifies "the same asset regardless of requested variant";
	// it is suitable as a dictionary key in the media store.
	Base string
	// Format is the requested image format ("jpg", "png", ...), or ""
	// if the URL carries no format information (videos, static assets).
	Format string
	// Size is nil when the URL is ambiguous (no default and no explicit
	// variant) or when the asset has no size concept at all; otherwise
	// it names a variant registered in Sizes.
	Size *string
	// Sizes is the size table this asset's variants live in.
	Sizes *SizeTable
	// FullResURL is the URL that requests the full-resolution variant,
	// or "" for assets with no size concept (videos).
	FullResURL string
	// IsVideo marks the video-host URL families (extended, amplified,
	// tweet-video and DM video, plus DM gifs and subtitles), which carry no size
	// table at all and are handled by the media store's reassembly path
	// instead of its variant-ranking path.
	IsVideo bool
}

var (
	profileImageRe  = regexp.MustCompile(`^(/profile_images/([0-9]+)/(.+?))(_(normal|bigger|x96|reasonably_small|mini|200x200|400x400))?(\.([A-Za-z0-9]{1,5}))?$`)
	profileBannerRe = regexp.MustCompile(`^(/profile_banners/([0-9]+)/([0-9]+))(/(300x100|600x200|1080x360|1500x500|ipad))?$`)
	mediaRe         = regexp.MustCompile(`^(/media/([A-Za-z0-9_-]+))(\.([A-Za-z0-9]{1,5}))?(:([a-z0-9_]+))?$`)
	amplifyThumbRe  = regexp.MustCompile(`^(/amplify_video_thumb/([0-9]+)/img/([A-Za-z0-9_-]+))(\.([A-Za-z0-9]{1,5}))?$`)
	extThumbRe      = regexp.MustCompile(`^(/ext_tw_video_thumb/([0-9]+)/p[ur]/img/([A-Za-z0-9_-]+))(\.([A-Za-z0-9]{1,5}))?$`)
	tweetThumbRe    = regexp.MustCompile(`^(/tweet_video_thumb/([A-Za-z0-9_-]+))(\.([A-Za-z0-9]{1,5}))?$`)
	cardImgRe       = regexp.MustCompile(`^(/card_img/([0-9]+)/([A-Za-z0-9_-]+))$`)
	semanticCoreRe  = regexp.MustCompile(`^(/semantic_core_img/([0-9]+)/([A-Za-z0-9_-]+))$`)
	adImgRe         = regexp.MustCompile(`^(/ad_img/([0-9]+)/([A-Za-z0-9_-]+))$`)
	communityBanRe  = regexp.MustCompile(`^(/community_banner_img/([0-9]+)/([A-Za-z0-9_-]+))$`)
	listBannerRe    = regexp.MustCompile(`^(/list_banner_img/([0-9]+)/([A-Za-z0-9_-]+))$`)
	dmGifPreviewRe  = regexp.MustCompile(`^(/dm_gif_preview/([0-9]+)/([A-Za-z0-9_-]+))(\.([A-Za-z0-9]{1,5}))?$`)
	dmVideoPrevwRe  = regexp.MustCompile(`^(/dm_video_preview/([0-9]+)/img/([A-Za-z0-9_-]+))(\.([A-Za-z0-9]{1,5}))?$`)
	grokShareRe     = regexp.MustCompile(`^/grok-img-share/([0-9]+)\.([A-Za-z0-9]{1,5})$`)
	staticDmcaRe    = regexp.MustCompile(`^(/static/.*)$`)

	extVideoRe    = regexp.MustCompile(`^/ext_tw_video/[0-9]+/.*/([A-Za-z0-9_-]+)\.(mp4|m4s|m3u8|ts)$`)
	tweetVideoRe  = regexp.MustCompile(`^/tweet_video/([A-Za-z0-9_-]+)\.(mp4)$`)
	amplifyVidRe  = regexp.MustCompile(`^/amplify_video/[0-9]+/.*/([A-Za-z0-9_-]+)\.(mp4|m4s|m3u8)$`)
	dmVideoRe     = regexp.MustCompile(`^/dm_video/[0-9]+/.*/([A-Za-z0-9_-]+)\.(mp4|m4s|m3u8)$`)
	dmGifRe       = regexp.MustCompile(`^/dm_gif/[0-9]+/([A-Za-z0-9_-]+)\.(mp4)$`)
	subtitlesRe   = regexp.MustCompile(`^/subtitles/.*$`)
	mediaHostVideo = map[string]bool{
		"video.twimg.com":    true,
		"video-ft.twimg.com": true,
		"video-cf.twimg.com": true,
	}
)

// strp returns a pointer to s, used to distinguish "explicit empty-name
// variant" (profile image/banner full-res) from "no size info at all".
func strp(s string) *string { return &s }

// Decode canonicalizes a media URL (§4.1).
func Decode(rawURL string) (*Decoded, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnrecognized, rawURL, err)
	}

	if u.Host == "abs.twimg.com" ||
		rawURL == "https://pbs.twimg.com/cards/player-placeholder.png" ||
		rawURL == "https://pbs.twimg.com/lex/placeholder_live_nomargin.png" {
		return &Decoded{
			Base:  u.Host + u.Path,
			Sizes: NoSizes,
		}, nil
	}

	if mediaHostVideo[u.Host] {
		return decodeVideo(u)
	}

	if u.Host != "pbs.twimg.com" && u.Host != "" {
		return nil, fmt.Errorf("%w: %s", ErrUnrecognized, rawURL)
	}

	return decodeImage(u, rawURL)
}

func decodeVideo(u *url.URL) (*Decoded, error) {
	var base string

	switch {
	case strings.HasPrefix(u.Path, "/ext_tw_video/"):
		m := extVideoRe.FindStringSubmatch(u.Path)
		if m == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnrecognized, u.String())
		}
		base = fmt.Sprintf("%s/%s.%s", u.Host, m[1], m[2])
	case strings.HasPrefix(u.Path, "/tweet_video/"):
		m := tweetVideoRe.FindStringSubmatch(u.Path)
		if m == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnrecognized, u.String())
		}
		base = fmt.Sprintf("%s/%s.%s", u.Host, m[1], m[2])
	case strings.HasPrefix(u.Path, "/amplify_video/"):
		m := amplifyVidRe.FindStringSubmatch(u.Path)
		if m == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnrecognized, u.String())
		}
		base = fmt.Sprintf("%s/%s.%s", u.Host, m[1], m[2])
	case strings.HasPrefix(u.Path, "/dm_video/"):
		m := dmVideoRe.FindStringSubmatch(u.Path)
		if m == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnrecognized, u.String())
		}
		base = u.Host + u.Path
	case strings.HasPrefix(u.Path, "/dm_gif/"):
		m := dmGifRe.FindStringSubmatch(u.Path)
		if m == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnrecognized, u.String())
		}
		base = u.Host + u.Path
	case strings.HasPrefix(u.Path, "/subtitles/"):
		if !subtitlesRe.MatchString(u.Path) {
			return nil, fmt.Errorf("%w: %s", ErrUnrecognized, u.String())
		}
		base = u.Host + u.Path
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnrecognized, u.String())
	}

	return &Decoded{Base: base, IsVideo: true}, nil
}

type familyMatch struct {
	base        string
	ext         string
	size        *string // explicit size parsed from the path, nil if none
	defaultSize *string // nil = ambiguous allowed, non-nil = fallback name (possibly "")
	sizes       *SizeTable
	fullResFmt  func(base, ext, size string) string
}

func defaultFullRes(base, ext, size string) string {
	return fmt.Sprintf("https://pbs.twimg.com%s?format=%s&name=orig", base, ext)
}

func decodeImage(u *url.URL, rawURL string) (*Decoded, error) {
	q := u.Query()
	for k, v := range q {
		if len(v) > 1 {
			return nil, fmt.Errorf("%w: repeated query param %q: %s", ErrUnrecognized, k, rawURL)
		}
	}

	var fm familyMatch
	fm.sizes = MediaSizes
	fm.fullResFmt = defaultFullRes

	switch {
	case strings.HasPrefix(u.Path, "/profile_images/"):
		m := profileImageRe.FindStringSubmatch(u.Path)
		if m == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnrecognized, rawURL)
		}
		fm.base = m[1]
		if m[4] != "" {
			fm.size = strp(m[4])
		}
		fm.ext = m[7]
		fm.sizes = ProfileImageSizes
		fm.defaultSize = strp("")
		fm.fullResFmt = func(base, ext, _ string) string {
			return fmt.Sprintf("https://pbs.twimg.com%s.%s", base, ext)
		}
		if len(q) > 0 {
			return nil, fmt.Errorf("%w: unexpected query on profile image: %s", ErrUnrecognized, rawURL)
		}

	case strings.HasPrefix(u.Path, "/profile_banners/"):
		m := profileBannerRe.FindStringSubmatch(u.Path)
		if m == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnrecognized, rawURL)
		}
		fm.base = m[1]
		if m[5] != "" {
			fm.size = strp("/" + m[5])
		}
		fm.sizes = ProfileBannerSizes
		fm.defaultSize = strp("")
		fm.fullResFmt = func(base, _, _ string) string {
			return "https://pbs.twimg.com" + base
		}
		if len(q) > 0 {
			return nil, fmt.Errorf("%w: unexpected query on profile banner: %s", ErrUnrecognized, rawURL)
		}

	case strings.HasPrefix(u.Path, "/media/"):
		m := mediaRe.FindStringSubmatch(u.Path)
		if m == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnrecognized, rawURL)
		}
		fm.base = m[1]
		fm.ext = m[4]
		if m[6] != "" {
			fm.size = strp(m[6])
		}
		fm.defaultSize = strp("medium")

	case strings.HasPrefix(u.Path, "/amplify_video_thumb/"):
		m := amplifyThumbRe.FindStringSubmatch(u.Path)
		if m == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnrecognized, rawURL)
		}
		fm.base = m[1]
		fm.ext = m[5]
		fm.defaultSize = strp("medium")

	case strings.HasPrefix(u.Path, "/ext_tw_video_thumb/"):
		m := extThumbRe.FindStringSubmatch(u.Path)
		if m == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnrecognized, rawURL)
		}
		fm.base = m[1]
		fm.ext = m[5]
		fm.defaultSize = strp("medium")

	case strings.HasPrefix(u.Path, "/tweet_video_thumb/"):
		m := tweetThumbRe.FindStringSubmatch(u.Path)
		if m == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnrecognized, rawURL)
		}
		fm.base = m[1]
		fm.ext = m[4]
		fm.defaultSize = strp("medium")

	case strings.HasPrefix(u.Path, "/card_img/"):
		m := cardImgRe.FindStringSubmatch(u.Path)
		if m == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnrecognized, rawURL)
		}
		fm.base = m[1]
		fm.sizes = CardImageSizes

	case strings.HasPrefix(u.Path, "/semantic_core_img/"):
		m := semanticCoreRe.FindStringSubmatch(u.Path)
		if m == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnrecognized, rawURL)
		}
		fm.base = m[1]

	case strings.HasPrefix(u.Path, "/ad_img/"):
		m := adImgRe.FindStringSubmatch(u.Path)
		if m == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnrecognized, rawURL)
		}
		fm.base = m[1]

	case strings.HasPrefix(u.Path, "/community_banner_img/"):
		m := communityBanRe.FindStringSubmatch(u.Path)
		if m == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnrecognized, rawURL)
		}
		fm.base = m[1]

	case strings.HasPrefix(u.Path, "/list_banner_img/"):
		m := listBannerRe.FindStringSubmatch(u.Path)
		if m == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnrecognized, rawURL)
		}
		fm.base = m[1]

	case strings.HasPrefix(u.Path, "/dm_gif_preview/"):
		m := dmGifPreviewRe.FindStringSubmatch(u.Path)
		if m == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnrecognized, rawURL)
		}
		fm.base = m[1]
		fm.ext = m[5]
		fm.defaultSize = strp("small")

	case strings.HasPrefix(u.Path, "/dm_video_preview/"):
		m := dmVideoPrevwRe.FindStringSubmatch(u.Path)
		if m == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnrecognized, rawURL)
		}
		fm.base = m[1]
		fm.ext = m[5]

	case strings.HasPrefix(u.Path, "/grok-img-share/"):
		m := grokShareRe.FindStringSubmatch(u.Path)
		if m == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnrecognized, rawURL)
		}
		// The original decoder's base for this family is just the
		// numeric id, not the full path (carried over verbatim).
		fm.base = m[1]
		fm.ext = m[2]
		fm.sizes = NoSizes

	case rawURL == "https://pbs.twimg.com/static/dmca/video-preview-img.png",
		rawURL == "https://pbs.twimg.com/static/dmca/dmca-med.jpg":
		m := staticDmcaRe.FindStringSubmatch(u.Path)
		if m == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnrecognized, rawURL)
		}
		fm.base = m[1]
		fm.sizes = NoSizes

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnrecognized, rawURL)
	}

	if format := q.Get("format"); format != "" {
		if fm.ext != "" {
			return nil, fmt.Errorf("%w: format query conflicts with path extension: %s", ErrUnrecognized, rawURL)
		}
		fm.ext = format
	} else if strings.EqualFold(fm.ext, "jpeg") {
		fm.ext = "jpg"
	}

	if name := q.Get("name"); name != "" {
		if fm.size != nil {
			return nil, fmt.Errorf("%w: name query conflicts with path size: %s", ErrUnrecognized, rawURL)
		}
		fm.size = strp(name)
	}

	size := fm.size
	if size == nil {
		size = fm.defaultSize
	}

	if size != nil && !fm.sizes.Valid(*size) {
		return nil, fmt.Errorf("%w: unrecognized size %q: %s", ErrUnrecognized, *size, rawURL)
	}

	ext := fm.ext
	var fullRes string
	if fm.fullResFmt != nil {
		sizeStr := ""
		if size != nil {
			sizeStr = *size
		}
		fullRes = fm.fullResFmt(fm.base, ext, sizeStr)
	}

	return &Decoded{
		Base:       fm.base,
		Format:     ext,
		Size:       size,
		Sizes:      fm.sizes,
		FullResURL: fullRes,
	}, nil
}

// Copyright (c) Contributors.
// All rights reserved. Use of this source code is governed by a
// MIT-style license that can be found in the LICENSE file.

// Package urlcodec canonicalizes media URLs recovered from captures
// (§4.1): given a request URL it returns the asset's canonical base, the
// requested (format, size) variant, and the closed-set size table and
// full-resolution URL that go with it.
package urlcodec

// SizeEntry is one named size variant inside a SizeTable: its declared
// pixel dimensions and its rank among the table's entries (smallest
// first), used by the media store to pick "the largest available
// variant" (§4.4).
type SizeEntry struct {
	Width  int
	Height int
	Rank   int
}

// SizeTable is one of the closed set of five size tables named in §4.1:
// post-media, profile-image, profile-banner, card-image, or a
// single-variant table for assets that have no size variants at all.
type SizeTable struct {
	Name   string
	ByName map[string]SizeEntry
}

// Valid reports whether name is a recognized variant name in the table.
func (t *SizeTable) Valid(name string) bool {
	_, ok := t.ByName[name]
	return ok
}

func buildTable(name string, rows []sizeRow) *SizeTable {
	t := &SizeTable{Name: name, ByName: map[string]SizeEntry{}}
	for i, row := range rows {
		for _, n := range row.names {
			t.ByName[n] = SizeEntry{Width: row.w, Height: row.h, Rank: i}
		}
	}
	return t
}

type sizeRow struct {
	w, h  int
	names []string
}

func row(w, h int, names ...string) sizeRow { return sizeRow{w: w, h: h, names: names} }

// MediaSizes is the size table for post media (images/GIF thumbnails).
var MediaSizes = buildTable("media", []sizeRow{
	row(64, 64, "tiny"),
	row(120, 120, "120x120"),
	row(240, 240, "240x240"),
	row(360, 360, "360x360"),
	row(680, 680, "small"),
	row(900, 900, "900x900"),
	row(1200, 1200, "medium"),
	row(2048, 2048, "large"),
	row(4096, 4096, "4096x4096", "orig"),
})

// ProfileImageSizes is the size table for avatar images.
var ProfileImageSizes = buildTable("profile_image", []sizeRow{
	row(24, 24, "_mini"),
	row(48, 48, "_normal"),
	row(73, 73, "_bigger"),
	row(96, 96, "_x96"),
	row(128, 128, "_reasonably_small"),
	row(200, 200, "_200x200"),
	row(400, 400, "_400x400"),
	row(4096, 4096, ""),
})

// ProfileBannerSizes is the size table for profile banner images.
var ProfileBannerSizes = buildTable("profile_banner", []sizeRow{
	row(300, 100, "/300x100"),
	row(600, 200, "/600x200"),
	row(626, 313, "/ipad"),
	row(1080, 360, "/1080x360"),
	row(1500, 500, "/1500x500"),
	row(4096, 4096, ""),
})

// CardImageSizes is the size table for card-attached images.
var CardImageSizes = buildTable("card_image", []sizeRow{
	row(100, 100, "100x100"),
	row(100, 100, "100x100_2"),
	row(144, 144, "144x144"),
	row(144, 144, "144x144_2"),
	row(120, 120, "120x120"),
	row(240, 240, "240x240"),
	row(280, 150, "280x150"),
	row(280, 280, "280x280"),
	row(280, 280, "280x280_2"),
	row(360, 360, "360x360"),
	row(386, 202, "386x202"),
	row(400, 400, "400x400"),
	row(420, 420, "420x420_1"),
	row(420, 420, "420x420_2"),
	row(600, 314, "600x314"),
	row(600, 600, "600x600"),
	row(680, 680, "small"),
	row(800, 320, "800x320_1"),
	row(800, 419, "800x419"),
	row(900, 900, "900x900"),
	row(1000, 1000, "1000x1000"),
	row(1200, 627, "1200x627"),
	row(1200, 1200, "medium"),
	row(2048, 2048, "2048x2048_2_exp"),
	row(2048, 2048, "large"),
	row(4096, 4096, "4096x4096", "orig"),
})

// NoSizes is the single-variant table used for assets that carry no
// requestable size at all (static placeholders, grok share images).
var NoSizes = buildTable("none", []sizeRow{
	row(0, 0, ""),
})

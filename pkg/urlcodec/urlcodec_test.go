// Copyright (c) Contributors.
// All rights reserved. Use of this source code is governed by a
// MIT-style license that can be found in the LICENSE file.
package urlcodec

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestDecodePostMedia is scenario 5 of spec.md §8.
func TestDecodePostMedia(t *testing.T) {
	d, err := Decode("https://pbs.twimg.com/media/ABC_d.jpg?name=large")
	require.NoError(t, err)
	require.Equal(t, "/media/ABC_d", d.Base)
	require.Equal(t, "jpg", d.Format)
	require.NotNil(t, d.Size)
	require.Equal(t, "large", *d.Size)
	require.Equal(t, "https://pbs.twimg.com/media/ABC_d?format=jpg&name=orig", d.FullResURL)
}

func TestDecodeJpegFoldsToJpg(t *testing.T) {
	d, err := Decode("https://pbs.twimg.com/media/XYZ.jpeg")
	require.NoError(t, err)
	require.Equal(t, "jpg", d.Format)
}

func TestDecodeStabilityOfFullResURL(t *testing.T) {
	d, err := Decode("https://pbs.twimg.com/media/ABC_d.jpg?name=small")
	require.NoError(t, err)

	again, err := Decode(d.FullResURL)
	require.NoError(t, err)
	require.Equal(t, d.Base, again.Base)
}

func TestDecodeProfileImageSizeSuffixAndFullResURL(t *testing.T) {
	d, err := Decode("https://pbs.twimg.com/profile_images/123/avatar_normal.jpg")
	require.NoError(t, err)
	require.NotNil(t, d.Size)
	require.Equal(t, "_normal", *d.Size)
	require.Equal(t, "https://pbs.twimg.com/profile_images/123/avatar.jpg", d.FullResURL)
}

func TestDecodeProfileBannerVariant(t *testing.T) {
	d, err := Decode("https://pbs.twimg.com/profile_banners/123/1600000000/600x200")
	require.NoError(t, err)
	require.NotNil(t, d.Size)
	require.Equal(t, "/600x200", *d.Size)
	require.Equal(t, "https://pbs.twimg.com/profile_banners/123/1600000000", d.FullResURL)
}

func TestDecodeCardImageAmbiguousHasNilSize(t *testing.T) {
	d, err := Decode("https://pbs.twimg.com/card_img/12345/ABCDEFG")
	require.NoError(t, err)
	require.Nil(t, d.Size)
	require.Same(t, CardImageSizes, d.Sizes)
}

func TestDecodeExtendedVideoURL(t *testing.T) {
	d, err := Decode("https://video.twimg.com/ext_tw_video/12345/pu/vid/1280x720/abcDEF123.mp4")
	require.NoError(t, err)
	require.True(t, d.IsVideo)
	require.Equal(t, "video.twimg.com/abcDEF123.mp4", d.Base)
}

func TestDecodeAmplifiedVideoURL(t *testing.T) {
	d, err := Decode("https://video.twimg.com/amplify_video/999/vid/avc1/1920x1080/ZZZ999.mp4")
	require.NoError(t, err)
	require.True(t, d.IsVideo)
	require.Equal(t, "video.twimg.com/ZZZ999.mp4", d.Base)
}

func TestDecodeTweetVideoURL(t *testing.T) {
	d, err := Decode("https://video.twimg.com/tweet_video/short1.mp4")
	require.NoError(t, err)
	require.True(t, d.IsVideo)
	require.Equal(t, "video.twimg.com/short1.mp4", d.Base)
}

func TestDecodeDMVideoURL(t *testing.T) {
	d, err := Decode("https://video.twimg.com/dm_video/42/pu/vid/avc1/640x480/dmv1.m3u8")
	require.NoError(t, err)
	require.True(t, d.IsVideo)
	require.Equal(t, "video.twimg.com/dm_video/42/pu/vid/avc1/640x480/dmv1.m3u8", d.Base)
}

func TestDecodeUnrecognizedHost(t *testing.T) {
	_, err := Decode("https://example.com/not/twitter")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrUnrecognized))
}

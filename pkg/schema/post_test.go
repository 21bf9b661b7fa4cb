// Copyright (c) Contributors.
// All rights reserved. Use of this source code is governed by a
// MIT-style license that can be found in the LICENSE file.
package schema

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPostMergeAccumulatesObserverFlags(t *testing.T) {
	p := NewPost(42)
	p.Text = "hello"
	p.BookmarkedBy[1] = struct{}{}

	other := NewPost(42)
	other.FavoritedBy[1] = struct{}{}
	other.FavoritedBy[2] = struct{}{}
	other.LikeCount = 5

	p.Merge(other)

	require.Equal(t, "hello", p.Text)
	require.Contains(t, p.BookmarkedBy, int64(1))
	require.Contains(t, p.FavoritedBy, int64(1))
	require.Contains(t, p.FavoritedBy, int64(2))
	require.EqualValues(t, 5, p.LikeCount)
}

func TestOriginalIDIsSelfWhenNotRetweet(t *testing.T) {
	p := NewPost(7)
	require.Equal(t, int64(7), p.OriginalID())

	orig := int64(3)
	p.RetweetOf = &orig
	require.Equal(t, int64(3), p.OriginalID())
}

func TestInternSizeSharesBackingStruct(t *testing.T) {
	a := InternSize(SizeKey{Width: 150, Height: 150, Resize: ResizeCrop})
	b := InternSize(SizeKey{Width: 150, Height: 150, Resize: ResizeCrop})
	require.Same(t, a, b)

	c := InternSize(SizeKey{Width: 150, Height: 151, Resize: ResizeCrop})
	require.NotSame(t, a, c)
}

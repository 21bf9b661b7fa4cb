// Copyright (c) Contributors.
// All rights reserved. Use of this source code is governed by a
// MIT-style license that can be found in the LICENSE file.
package ingest

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func decodeNode(t *testing.T, raw string) node {
	t.Helper()
	var v map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	return node(v)
}

func TestNodeInt64AcceptsStringAndNumber(t *testing.T) {
	n := decodeNode(t, `{"a": "123", "b": 456}`)
	require.Equal(t, int64(123), n.int64("a"))
	require.Equal(t, int64(456), n.int64("b"))
}

func TestNodeNavigatesNested(t *testing.T) {
	n := decodeNode(t, `{"result": {"__typename": "Tweet", "legacy": {"id_str": "1"}}}`)
	res := n.node("result")
	require.Equal(t, "Tweet", res.typename())
	require.True(t, res.has("legacy"))
	require.Equal(t, int64(1), res.node("legacy").int64("id_str"))
}

func TestNodeMissingKeyIsZeroValue(t *testing.T) {
	var n node
	require.False(t, n.has("x"))
	require.Equal(t, "", n.str("x"))
	require.Equal(t, int64(0), n.int64("x"))
	require.Nil(t, n.arr("x"))
}

func TestContainsStringScansNestedJSON(t *testing.T) {
	v := map[string]any{"a": []any{map[string]any{"reason": "Circle"}}}
	require.True(t, containsString(v, "Circle"))
	require.False(t, containsString(v, "Elsewhere"))
	require.False(t, containsString(nil, "x"))
}

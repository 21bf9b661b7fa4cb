// Copyright (c) Contributors.
// All rights reserved. Use of this source code is governed by a
// MIT-style license that can be found in the LICENSE file.

// Package ingest is the envelope walker, post traverser, and per-endpoint
// dispatch table that turns a capture's raw bytes into calls against the
// normalized store (§4.6). It also discovers and orders the inputs a run
// processes (§5, §6) and adapts each capture-file kind (export bundle,
// HAR, WARC) to the dispatcher's (url, cookies, observed-at, body) shape.
package ingest

import (
	"strconv"
	"strings"

	"encoding/json"
)

// node is a polymorphic JSON object as decoded by encoding/json: every
// GraphQL response envelope is a deeply nested tree of these, tagged in
// several different ways (__typename, entryType, type) depending on
// which part of the tree is being looked at. The helpers below let the
// rest of this package read a field without a type assertion at every
// call site.
type node map[string]any

func asNode(v any) (node, bool) {
	m, ok := v.(map[string]any)
	return node(m), ok
}

func (n node) get(key string) any {
	if n == nil {
		return nil
	}
	return n[key]
}

func (n node) node(key string) node {
	m, _ := asNode(n.get(key))
	return m
}

func (n node) has(key string) bool {
	if n == nil {
		return false
	}
	_, ok := n[key]
	return ok
}

func (n node) str(key string) string {
	s, _ := n.get(key).(string)
	return s
}

func (n node) typename() string {
	return n.str("__typename")
}

func (n node) arr(key string) []any {
	a, _ := n.get(key).([]any)
	return a
}

// int64 reads key as an integer, accepting both the string and float64
// encodings the GraphQL envelope mixes depending on field (ids are
// strings; counts and sort indices are JSON numbers).
func (n node) int64(key string) int64 {
	switch v := n.get(key).(type) {
	case string:
		return parseInt64(v)
	case float64:
		return int64(v)
	}
	return 0
}

func (n node) bool(key string) bool {
	b, _ := n.get(key).(bool)
	return b
}

func parseInt64(s string) int64 {
	v, _ := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return v
}

// containsString reports whether v, marshaled back to JSON, contains
// needle anywhere in its text. Used for the one spot (§9 "heuristic
// inference") where the envelope carries information only as the shape
// of an otherwise-opaque subtree, not as a field the schema names.
func containsString(v any, needle string) bool {
	if v == nil {
		return false
	}
	data, err := json.Marshal(v)
	if err != nil {
		return false
	}
	return strings.Contains(string(data), needle)
}

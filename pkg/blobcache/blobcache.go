// Copyright (c) Contributors.
// All rights reserved. Use of this source code is governed by a
// MIT-style license that can be found in the LICENSE file.

// Package blobcache implements the content-addressed blob cache that
// backs large HTTP-archive response bodies (§4.3, §6, §9): a directory
// of SHA-1-named payloads, split into a hashtxt and a hashbin channel so
// the text/binary distinction survives the round trip losslessly.
package blobcache

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tlreplay/tlreplay/pkg/blob"
	"github.com/tlreplay/tlreplay/pkg/log"
)

// LargeBodyThreshold is the size at or above which an HTTP-archive response
// body is offloaded to the cache instead of staying inline (§4.3, §9).
const LargeBodyThreshold = 2 * 1024 * 1024

// Channel distinguishes the two hash namespaces the cache keeps so a
// base64-declared body and a plain-text body with the same bytes never
// collide and round-trip through the correct encoding.
type Channel string

const (
	ChannelText   Channel = "hashtxt"
	ChannelBinary Channel = "hashbin"
)

// Cache is a directory-backed content-addressed store of hash -> bytes,
// laid out as described in §9: a `blob/` subdirectory of hash-named
// payloads. File names are the SHA-1 hash with the channel as
// extension, so writes are idempotent and
// safe under repeated ingestion runs.
type Cache struct {
	root   string
	mirror Mirror
}

// Mirror is an optional remote backend that receives a copy of every
// blob written locally (§"S3 mirror" in SPEC_FULL.md's domain stack).
// A nil Mirror disables mirroring entirely.
type Mirror interface {
	Put(hash string, channel Channel, data []byte) error
}

// Open roots a Cache at dir, creating the blob/ subdirectory if needed.
func Open(dir string, mirror Mirror) (*Cache, error) {
	blobDir := filepath.Join(dir, "blob")
	if err := os.MkdirAll(blobDir, 0o750); err != nil {
		return nil, fmt.Errorf("blobcache: create %s: %w", blobDir, err)
	}
	return &Cache{root: dir, mirror: mirror}, nil
}

// Hash returns the lowercase SHA-1 hex digest of data, the identifier
// used as the blob's filename and cache key.
func Hash(data []byte) string {
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}

func (c *Cache) path(hash string, channel Channel) string {
	return filepath.Join(c.root, "blob", fmt.Sprintf("%s.%s", hash, channel))
}

// Put writes data under its SHA-1 hash in the given channel and returns
// the hash. Writing is idempotent: an existing file with the same name
// is left untouched rather than rewritten.
func (c *Cache) Put(channel Channel, data []byte) (string, error) {
	hash := Hash(data)
	p := c.path(hash, channel)

	if _, err := os.Stat(p); err == nil {
		return hash, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("blobcache: stat %s: %w", p, err)
	}

	if err := os.WriteFile(p, data, 0o640); err != nil {
		return "", fmt.Errorf("blobcache: write %s: %w", p, err)
	}

	if c.mirror != nil {
		if err := c.mirror.Put(hash, channel, data); err != nil {
			log.Warnf("blobcache: mirror put %s failed: %v", hash, err)
		}
	}

	return hash, nil
}

// Blob returns a lazily-opened on-disk handle for hash in channel
// (§4.3: "subsequent loads open blobs lazily through on-disk handles").
func (c *Cache) Blob(hash string, channel Channel) blob.Blob {
	return blob.OnDisk{Path: c.path(hash, channel)}
}

// Exists reports whether hash has a payload on disk in channel.
func (c *Cache) Exists(hash string, channel Channel) bool {
	_, err := os.Stat(c.path(hash, channel))
	return err == nil
}

// PutReader hashes and stores the entirety of r, used when a body is
// read incrementally rather than already held in memory.
func (c *Cache) PutReader(channel Channel, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("blobcache: read body: %w", err)
	}
	return c.Put(channel, data)
}

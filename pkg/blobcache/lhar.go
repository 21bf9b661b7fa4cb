// Copyright (c) Contributors.
// All rights reserved. Use of this source code is governed by a
// MIT-style license that can be found in the LICENSE file.
package blobcache

import (
	"fmt"
	"os"
	"path/filepath"
)

// LharPath returns the path under the cache's `lhar/` subdirectory
// (§9) for the rewritten, lightweight HTTP-archive file derived from
// the capture named captureName. The capture reader (internal/capture/har)
// writes this file once its large bodies have been offloaded to blob/.
func (c *Cache) LharPath(captureName string) string {
	return filepath.Join(c.root, "lhar", captureName)
}

// EnsureLharDir creates the `lhar/` subdirectory if it does not exist.
func (c *Cache) EnsureLharDir() error {
	dir := filepath.Join(c.root, "lhar")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("blobcache: create %s: %w", dir, err)
	}
	return nil
}

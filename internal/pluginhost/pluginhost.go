// Copyright (c) Contributors.
// All rights reserved. Use of this source code is governed by a
// MIT-style license that can be found in the LICENSE file.

// Package pluginhost is the idiomatic Go substitute for spec.md §6's
// ".py plugin" input: that plugin's contract ("plugin receives the
// store instance") is an out-of-core collaborator the distilled spec
// never asks this module to embed an interpreter for. Here the same
// contract is a Go plugin shared object exposing a Plugin value, loaded
// via the standard library's plugin package. This is a deliberate
// substitution, not an implementation of the original's Python
// semantics.
package pluginhost

import (
	"fmt"
	"os"
	"path/filepath"
	"plugin"
	"strings"

	"github.com/tlreplay/tlreplay/internal/store"
	"github.com/tlreplay/tlreplay/pkg/log"
)

// Plugin is the contract a discovered .so must satisfy: it receives
// the store instance after a reload completes and may read or mutate
// it in place.
type Plugin interface {
	Apply(*store.Store) error
}

// Symbol is the exported variable name a plugin .so must define,
// implementing Plugin.
const Symbol = "TlreplayPlugin"

// Discover finds every ".so" file directly under dir (non-recursive:
// plugins are expected to sit alongside other top-level inputs, not
// buried in capture subdirectories).
func Discover(dir string) ([]string, error) {
	if dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("pluginhost: reading %s: %w", dir, err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".so") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	return paths, nil
}

// Load opens the plugin shared object at path and resolves its Symbol
// to a Plugin.
func Load(path string) (Plugin, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pluginhost: opening %s: %w", path, err)
	}

	sym, err := p.Lookup(Symbol)
	if err != nil {
		return nil, fmt.Errorf("pluginhost: %s: missing symbol %s: %w", path, Symbol, err)
	}

	pl, ok := sym.(Plugin)
	if !ok {
		return nil, fmt.Errorf("pluginhost: %s: symbol %s does not implement Plugin", path, Symbol)
	}
	return pl, nil
}

// ApplyAll loads and runs every plugin discovered under dir against s,
// in directory-listing order. A plugin that fails to load or returns an
// error is logged and skipped; one misbehaving plugin never aborts the
// others or the reload that triggered this call.
func ApplyAll(dir string, s *store.Store) error {
	paths, err := Discover(dir)
	if err != nil {
		return err
	}

	for _, path := range paths {
		pl, err := Load(path)
		if err != nil {
			log.Warnf("pluginhost: %v", err)
			continue
		}
		if err := pl.Apply(s); err != nil {
			log.Warnf("pluginhost: %s: Apply: %v", path, err)
		}
	}
	return nil
}

// Copyright (c) Contributors.
// All rights reserved. Use of this source code is governed by a
// MIT-style license that can be found in the LICENSE file.
package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tlreplay/tlreplay/internal/capture/export"
	"github.com/tlreplay/tlreplay/internal/capture/warc"
	"github.com/tlreplay/tlreplay/internal/store"
	"github.com/tlreplay/tlreplay/pkg/blob"
	"github.com/tlreplay/tlreplay/pkg/blobcache"
	"github.com/tlreplay/tlreplay/pkg/log"
)

// InputKind names one of the capture-file shapes a run can discover,
// keyed by file extension / directory marker (§6).
type InputKind int

const (
	KindExportDir InputKind = iota
	KindExportZip
	KindHAR
	KindWARC
	KindListFile
)

// Input is one discovered thing to ingest.
type Input struct {
	Kind InputKind
	Path string
}

// Options configures a Run.
type Options struct {
	// Strict makes any ingestion error fatal (development); otherwise
	// errors are logged and the offending input or record is skipped (§7).
	Strict bool
	// BlobCache resolves offloaded HAR bodies; required for any run
	// that discovers a .har input.
	BlobCache *blobcache.Cache
}

var exportDirMarkers = []string{
	"data/tweets.js",
	"data/tweet.js",
	"tweet.js",
	"data/js/tweet_index.js",
}

func isExportDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return false
	}
	for _, marker := range exportDirMarkers {
		if _, err := os.Stat(filepath.Join(path, marker)); err == nil {
			return true
		}
	}
	return false
}

// classify determines a path's InputKind by extension, falling back to
// an export-bundle directory-marker probe for anything else (§6).
func classify(path string) (InputKind, bool) {
	switch {
	case strings.HasSuffix(path, ".zip"):
		return KindExportZip, true
	case strings.HasSuffix(path, ".har"):
		return KindHAR, true
	case strings.HasSuffix(path, ".warc"), strings.HasSuffix(path, ".warc.open"):
		return KindWARC, true
	case strings.HasSuffix(path, ".txt"):
		return KindListFile, true
	default:
		if isExportDir(path) {
			return KindExportDir, true
		}
		return 0, false
	}
}

// rank orders export bundles ahead of HTTP/web captures within a batch
// (§5): a bundle establishes the observer's own profile and post
// history, which later captures then annotate with per-viewer flags.
func rank(k InputKind) int {
	switch k {
	case KindExportDir, KindExportZip:
		return 0
	default:
		return 1
	}
}

func sortInputs(inputs []Input) {
	sort.SliceStable(inputs, func(i, j int) bool {
		return rank(inputs[i].Kind) < rank(inputs[j].Kind)
	})
}

// expandListFile reads path as a newline-delimited list of input paths
// (blank lines and "#"-prefixed comments ignored), resolving relative
// entries against the list file's own directory and recursing into any
// entry that is itself a list file.
func expandListFile(path string) ([]Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: reading list file %s: %w", path, err)
	}
	dir := filepath.Dir(path)

	var out []Input
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		p := line
		if !filepath.IsAbs(p) {
			p = filepath.Join(dir, p)
		}
		k, ok := classify(p)
		if !ok {
			log.Warnf("ingest: %s: unrecognized list entry %q", path, line)
			continue
		}
		if k == KindListFile {
			nested, err := expandListFile(p)
			if err != nil {
				return nil, err
			}
			out = append(out, nested...)
			continue
		}
		out = append(out, Input{Kind: k, Path: p})
	}
	return out, nil
}

// Discover enumerates the inputs a run should process (§5, §6).
// Explicit args, when given, are processed and ordered exactly as
// given (a list file among them is expanded in place). Otherwise the
// inputs are the union of an optional list file and the sorted
// contents of dir, with export bundles ranked ahead of HTTP/web
// captures.
func Discover(args []string, listFile, dir string) ([]Input, error) {
	if len(args) > 0 {
		var inputs []Input
		for _, a := range args {
			k, ok := classify(a)
			if !ok {
				return nil, fmt.Errorf("ingest: unrecognized input %q", a)
			}
			if k == KindListFile {
				expanded, err := expandListFile(a)
				if err != nil {
					return nil, err
				}
				inputs = append(inputs, expanded...)
				continue
			}
			inputs = append(inputs, Input{Kind: k, Path: a})
		}
		return inputs, nil
	}

	var paths []string
	if listFile != "" {
		expanded, err := expandListFile(listFile)
		if err != nil {
			return nil, err
		}
		for _, in := range expanded {
			paths = append(paths, in.Path)
		}
	}
	if dir != "" {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("ingest: reading %s: %w", dir, err)
		}
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		sort.Strings(names)
		for _, n := range names {
			paths = append(paths, filepath.Join(dir, n))
		}
	}

	seen := map[string]bool{}
	var inputs []Input
	for _, p := range paths {
		if seen[p] {
			continue
		}
		seen[p] = true
		k, ok := classify(p)
		if !ok {
			continue
		}
		inputs = append(inputs, Input{Kind: k, Path: p})
	}
	sortInputs(inputs)
	return inputs, nil
}

// Run ingests every input in order into s.
func Run(s *store.Store, inputs []Input, opt Options) error {
	responses := warc.ResponseTable{}
	for _, in := range inputs {
		if err := runOne(s, in, responses, opt); err != nil {
			if opt.Strict {
				return fmt.Errorf("ingest: %s: %w", in.Path, err)
			}
			log.Warnf("ingest: %s: %v", in.Path, err)
		}
	}
	return nil
}

func runOne(s *store.Store, in Input, responses warc.ResponseTable, opt Options) error {
	switch in.Kind {
	case KindExportDir:
		res, err := export.Read(blob.NativeFS{Root: in.Path})
		if err != nil {
			return err
		}
		ingestExport(s, res)
		return nil
	case KindExportZip:
		zfs, err := blob.OpenZipFS(in.Path)
		if err != nil {
			return err
		}
		defer zfs.Close()
		res, err := export.Read(zfs)
		if err != nil {
			return err
		}
		ingestExport(s, res)
		return nil
	case KindHAR:
		if opt.BlobCache == nil {
			return fmt.Errorf("no blob cache configured for HAR ingestion")
		}
		dir := filepath.Dir(in.Path)
		return ingestHAR(s, blob.NativeFS{Root: dir}, opt.BlobCache, filepath.Base(in.Path), opt.Strict)
	case KindWARC:
		return ingestWARCFile(s, in.Path, responses, opt.Strict)
	default:
		return fmt.Errorf("unhandled input kind")
	}
}

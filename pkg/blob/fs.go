// Copyright (c) Contributors.
// All rights reserved. Use of this source code is governed by a
// MIT-style license that can be found in the LICENSE file.
package blob

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// FS is the filesystem-like abstraction of §4.2: exists, open, listdir,
// and getmtime, implemented over both native directories and zip
// archives so capture readers need not care which one they were handed.
type FS interface {
	Exists(name string) bool
	Open(name string) (io.ReadCloser, error)
	ListDir(name string) ([]string, error)
	GetMTime(name string) (time.Time, error)
}

// NativeFS roots an FS at a directory on the native filesystem.
type NativeFS struct {
	Root string
}

func (n NativeFS) join(name string) string {
	return filepath.Join(n.Root, filepath.FromSlash(name))
}

func (n NativeFS) Exists(name string) bool {
	_, err := os.Stat(n.join(name))
	return !errors.Is(err, os.ErrNotExist)
}

func (n NativeFS) Open(name string) (io.ReadCloser, error) {
	f, err := os.Open(n.join(name))
	if err != nil {
		return nil, fmt.Errorf("blob: open %s: %w", name, err)
	}
	return f, nil
}

func (n NativeFS) ListDir(name string) ([]string, error) {
	entries, err := os.ReadDir(n.join(name))
	if err != nil {
		return nil, fmt.Errorf("blob: listdir %s: %w", name, err)
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name())
	}
	return out, nil
}

func (n NativeFS) GetMTime(name string) (time.Time, error) {
	info, err := os.Stat(n.join(name))
	if err != nil {
		return time.Time{}, fmt.Errorf("blob: stat %s: %w", name, err)
	}
	return info.ModTime(), nil
}

// ZipFS exposes the members of a zip archive as an FS, so export-bundle
// directories that arrive zipped need no unpacking step.
type ZipFS struct {
	reader  *zip.ReadCloser
	byName  map[string]*zip.File
	mtime   time.Time
	rootDir string
}

// OpenZipFS opens the zip archive at archivePath. mtime is the archive
// file's own modification time, used as the fallback generation
// timestamp when a bundle carries no manifest (§4.3 export reader).
func OpenZipFS(archivePath string) (*ZipFS, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("blob: open zip %s: %w", archivePath, err)
	}
	info, err := os.Stat(archivePath)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("blob: stat zip %s: %w", archivePath, err)
	}

	z := &ZipFS{reader: r, byName: map[string]*zip.File{}, mtime: info.ModTime()}
	for _, f := range r.File {
		z.byName[path.Clean(f.Name)] = f
	}
	return z, nil
}

func (z *ZipFS) Close() error { return z.reader.Close() }

func (z *ZipFS) Exists(name string) bool {
	_, ok := z.byName[path.Clean(name)]
	return ok
}

func (z *ZipFS) Open(name string) (io.ReadCloser, error) {
	f, ok := z.byName[path.Clean(name)]
	if !ok {
		return nil, fmt.Errorf("blob: zip member not found: %s", name)
	}
	return f.Open()
}

func (z *ZipFS) ListDir(name string) ([]string, error) {
	prefix := path.Clean(name)
	if prefix == "." {
		prefix = ""
	} else {
		prefix += "/"
	}

	seen := map[string]bool{}
	var out []string
	for n := range z.byName {
		if !strings.HasPrefix(n, prefix) {
			continue
		}
		rest := n[len(prefix):]
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			rest = rest[:i]
		}
		if rest == "" || seen[rest] {
			continue
		}
		seen[rest] = true
		out = append(out, rest)
	}
	return out, nil
}

// GetMTime returns the archive's own modification time for every
// member; zip entries don't carry reliable per-file timestamps across
// the export bundles this reads.
func (z *ZipFS) GetMTime(name string) (time.Time, error) {
	return z.mtime, nil
}

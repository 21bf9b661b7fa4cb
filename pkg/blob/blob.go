// Copyright (c) Contributors.
// All rights reserved. Use of this source code is governed by a
// MIT-style license that can be found in the LICENSE file.

// Package blob implements the uniform byte-blob handle and filesystem
// abstraction described in spec §4.2: a single Open() contract over
// on-disk paths, zip members, in-memory buffers, and byte ranges inside
// a web-archive file with optional transport decoding.
package blob

import (
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/andybalholm/brotli"
)

// ErrChunkedTransfer is returned when a blob's declared transport
// encoding is chunked; chunked transfer is unsupported (§4.2).
var ErrChunkedTransfer = errors.New("blob: chunked transfer encoding is not supported")

// Encoding names a transport content-encoding applied to the bytes
// a Blob yields before they are handed to Open's caller.
type Encoding int

const (
	EncodingNone Encoding = iota
	EncodingGzip
	EncodingBrotli
	EncodingChunked
)

// Blob is a uniform readable byte-stream handle. Every capture reader
// and the media store produce and consume blobs through this interface
// rather than any one backing representation.
type Blob interface {
	// Open returns a fresh readable stream positioned at the start of
	// the blob's logical (already transport-decoded) content.
	Open() (io.ReadCloser, error)
}

// OnDisk is a blob backed by a path on the native filesystem.
type OnDisk struct {
	Path string
}

func (b OnDisk) Open() (io.ReadCloser, error) {
	f, err := os.Open(b.Path)
	if err != nil {
		return nil, fmt.Errorf("blob: open %s: %w", b.Path, err)
	}
	return f, nil
}

// InMemory is a blob whose content already lives in process memory
// (decoded capture bodies, reassembled video output).
type InMemory struct {
	Data []byte
}

func (b InMemory) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b.Data)), nil
}

// InZip is a blob that is one member of a zip archive, delegating the
// actual read to the owning archive's FS.
type InZip struct {
	Archive *ZipFS
	Name    string
}

func (b InZip) Open() (io.ReadCloser, error) {
	return b.Archive.Open(b.Name)
}

// InWarc is a byte range inside a shared web-archive file, with an
// optional transport encoding applied to the range before it is
// handed back (§4.2, §4.3 web-archive reader).
type InWarc struct {
	// File is the shared *os.File-backed handle for the owning .warc
	// or .warc.gz container; readers keep one handle open per file and
	// construct many InWarc values against it.
	File     *os.File
	Offset   int64
	Length   int64
	Encoding Encoding
}

func (b InWarc) Open() (io.ReadCloser, error) {
	if b.Encoding == EncodingChunked {
		return nil, ErrChunkedTransfer
	}

	section := io.NewSectionReader(b.File, b.Offset, b.Length)

	switch b.Encoding {
	case EncodingGzip:
		r, err := gzip.NewReader(section)
		if err != nil {
			return nil, fmt.Errorf("blob: gzip range at %d: %w", b.Offset, err)
		}
		return r, nil
	case EncodingBrotli:
		return io.NopCloser(brotli.NewReader(section)), nil
	default:
		return io.NopCloser(section), nil
	}
}

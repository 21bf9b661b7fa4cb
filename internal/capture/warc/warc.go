// Copyright (c) Contributors.
// All rights reserved. Use of this source code is governed by a
// MIT-style license that can be found in the LICENSE file.

// Package warc reads web-archive (.warc, .warc.open) captures (§4.3):
// record framing, revisit resolution across a shared response table,
// and construction of byte-range blob handles over response payloads
// with transport decoding applied lazily on Open.
package warc

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/tlreplay/tlreplay/pkg/blob"
)

// Record is one resolved WARC response (or revisit, pointing at a
// shared payload) plus its concurrent request, if one was seen.
type Record struct {
	WarcRecordID    string
	TargetURI       string
	Date            string
	RequestHeaders  []string // nil if no concurrent request record was read
	ResponseHeaders []string
	Payload         blob.Blob
	Cookies         []Cookie
}

// ResponseTable carries resolved response state across Read calls so a
// revisit record in one .warc file can resolve against a response
// recorded while reading another (§4.3).
type ResponseTable map[string]*pendingResponse

type pendingResponse struct {
	requestHeaders  []string
	hasRequest      bool
	targetURI       string
	date            string
	responseHeaders []string
	payload         blob.Blob
}

func headerLine(line string) (name, value string, ok bool) {
	line = strings.TrimSuffix(line, "\r\n")
	idx := strings.Index(line, ": ")
	if idx < 0 {
		return "", "", false
	}
	return line[:idx], line[idx+2:], true
}

// readHeaderLinesLimited reads raw header lines from br, a buffered
// reader positioned inside f, until a blank
// line is seen or until stop (an absolute file offset) is reached,
// truncating the final line if it would overrun stop (§4.3: "slices an
// HTTP-header prefix bounded by the declared content-length").
func readHeaderLinesLimited(f *os.File, br *bufio.Reader, stop int64) ([]string, error) {
	var lines []string
	for {
		offset, err := currentOffset(f, br)
		if err != nil {
			return nil, err
		}
		line, err := br.ReadString('\n')
		if line == "\r\n" {
			return lines, nil
		}
		xo := offset + int64(len(line))
		if xo > stop {
			lines = append(lines, line[:stop-offset])
			return lines, nil
		}
		lines = append(lines, line)
		if xo == stop {
			return lines, nil
		}
		if err != nil {
			return lines, fmt.Errorf("warc: truncated header block: %w", err)
		}
	}
}

func findHeaderPrefixCI(lines []string, prefix string) (string, bool) {
	lower := strings.ToLower(prefix)
	for _, l := range lines {
		if strings.HasPrefix(strings.ToLower(l), lower) {
			return strings.TrimSuffix(l[len(prefix):], "\r\n"), true
		}
	}
	return "", false
}

func hasHeaderLine(lines []string, full string) bool {
	lowerFull := strings.ToLower(full)
	for _, l := range lines {
		if strings.ToLower(l) == lowerFull {
			return true
		}
	}
	return false
}

func encodingFor(s string) blob.Encoding {
	switch s {
	case "gzip":
		return blob.EncodingGzip
	case "br":
		return blob.EncodingBrotli
	default:
		return blob.EncodingNone
	}
}

// currentOffset returns the absolute file offset of the next byte br
// will yield, accounting for bufio's internal read-ahead.
func currentOffset(f *os.File, br *bufio.Reader) (int64, error) {
	pos, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	return pos - int64(br.Buffered()), nil
}

// Read parses every WARC record framed in f, resolving revisits against
// responses already seen in this call plus any carried over via
// responses (shared across multiple invocations so cross-file revisit
// resolution is possible, §4.3). It returns records in file order.
//
// Each record's content block is always skipped to its declared
// content-length boundary regardless of how much of it header parsing
// actually consumed, mirroring the original reader's unconditional
// `f.seek(offset+length)` after every record.
func Read(f *os.File, responses ResponseTable) ([]Record, error) {
	if responses == nil {
		responses = ResponseTable{}
	}

	var order []string
	br := bufio.NewReader(f)

	for {
		startLine, err := br.ReadString('\n')
		if err != nil {
			break
		}
		if startLine != "WARC/1.0\r\n" {
			return nil, fmt.Errorf("warc: unexpected record start %q", startLine)
		}

		var headerLines []string
		for {
			line, err := br.ReadString('\n')
			if err != nil {
				return nil, fmt.Errorf("warc: truncated header block: %w", err)
			}
			if line == "\r\n" {
				break
			}
			headerLines = append(headerLines, line)
		}

		h := map[string]string{}
		var concurrentTo []string
		for _, line := range headerLines {
			name, value, ok := headerLine(line)
			if !ok {
				continue
			}
			lname := strings.ToLower(name)
			h[lname] = value
			if lname == "warc-concurrent-to" {
				concurrentTo = append(concurrentTo, value)
			}
		}

		length, err := strconv.ParseInt(h["content-length"], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("warc: invalid content-length %q: %w", h["content-length"], err)
		}

		contentStart, err := currentOffset(f, br)
		if err != nil {
			return nil, err
		}
		contentEnd := contentStart + length

		warcType := h["warc-type"]
		recordID := h["warc-record-id"]

		switch warcType {
		case "response":
			headerPrefix, err := readHeaderLinesLimited(f, br, contentEnd)
			if err != nil {
				return nil, fmt.Errorf("warc: response headers for %s: %w", recordID, err)
			}
			payloadBegin, err := currentOffset(f, br)
			if err != nil {
				return nil, err
			}
			payloadLen := contentEnd - payloadBegin

			encodingName, _ := findHeaderPrefixCI(headerPrefix, "content-encoding: ")
			chunked := hasHeaderLine(headerPrefix, "transfer-encoding: chunked\r\n")
			enc := encodingFor(encodingName)
			if chunked {
				enc = blob.EncodingChunked
			}

			payload := blob.InWarc{File: f, Offset: payloadBegin, Length: payloadLen, Encoding: enc}
			responses[recordID] = &pendingResponse{
				targetURI:       h["warc-target-uri"],
				date:            h["warc-date"],
				responseHeaders: headerPrefix,
				payload:         payload,
			}
			order = append(order, recordID)

		case "revisit":
			headerPrefix, err := readHeaderLinesLimited(f, br, contentEnd)
			if err != nil {
				return nil, fmt.Errorf("warc: revisit headers for %s: %w", recordID, err)
			}
			refersTo := h["warc-refers-to"]
			referenced, ok := responses[refersTo]
			if !ok {
				return nil, fmt.Errorf("warc: revisit %s refers to unknown response %s", recordID, refersTo)
			}
			responses[recordID] = &pendingResponse{
				targetURI:       h["warc-target-uri"],
				date:            h["warc-date"],
				responseHeaders: headerPrefix,
				payload:         referenced.payload,
			}
			order = append(order, recordID)

		case "request":
			requestHeaders, err := readHeaderLinesLimited(f, br, contentEnd)
			if err != nil {
				return nil, fmt.Errorf("warc: request headers for %s: %w", recordID, err)
			}
			for _, respID := range concurrentTo {
				if r, ok := responses[respID]; ok {
					r.requestHeaders = requestHeaders
					r.hasRequest = true
				}
			}

		case "warcinfo":
			// no further state kept.

		default:
			// unrecognized record type: still framed correctly by the
			// unconditional seek below.
		}

		// Unconditionally resync to the declared end of the content
		// block and the blank-line trailer, regardless of how much of
		// it header parsing above actually consumed.
		if _, err := f.Seek(contentEnd, io.SeekStart); err != nil {
			return nil, err
		}
		br = bufio.NewReader(f)

		for i := 0; i < 2; i++ {
			line, err := br.ReadString('\n')
			if err != nil {
				return nil, fmt.Errorf("warc: truncated record trailer: %w", err)
			}
			if line != "\r\n" {
				return nil, fmt.Errorf("warc: expected blank trailer line, got %q", line)
			}
		}
	}

	out := make([]Record, 0, len(order))
	for _, id := range order {
		r := responses[id]
		rec := Record{
			WarcRecordID:    id,
			TargetURI:       r.targetURI,
			Date:            r.date,
			ResponseHeaders: r.responseHeaders,
			Payload:         r.payload,
		}
		if r.hasRequest {
			rec.RequestHeaders = r.requestHeaders
		}
		rec.Cookies = parseCookies(rec.ResponseHeaders)
		out = append(out, rec)
	}
	return out, nil
}

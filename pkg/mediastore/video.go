// Copyright (c) Contributors.
// All rights reserved. Use of this source code is governed by a
// MIT-style license that can be found in the LICENSE file.
package mediastore

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/tlreplay/tlreplay/pkg/blob"
	"github.com/tlreplay/tlreplay/pkg/log"
	"github.com/tlreplay/tlreplay/pkg/urlcodec"
)

// muxerLimiter throttles external ffmpeg invocations so a burst of
// concurrent .m3u8.mp4 lookups (e.g. a thread view rendering many
// embedded videos at once) doesn't fork a process per request.
var muxerLimiter = rate.NewLimiter(rate.Every(500*time.Millisecond), 2)

var extMapURI = regexp.MustCompile(`^#EXT-X-MAP:URI="(.*)"$`)

// lookupVideo implements §4.4's multi-segment reassembly: find the
// top-level playlist, pick the first sub-playlist whose every segment
// is present in the store, rewrite it to local paths, and invoke the
// external muxer.
func (s *Store) lookupVideo(requestURL string) (blob.Blob, bool) {
	topURL := strings.TrimSuffix(requestURL, ".mp4")
	topBlob, ok := s.resolveVideoURL(topURL)
	if !ok {
		return nil, false
	}

	topM3U, err := readAllString(topBlob)
	if err != nil {
		log.Warnf("mediastore: reading top playlist for %q: %v", requestURL, err)
		return nil, false
	}

	for _, subURL := range playlistReferences(topM3U) {
		subBlob, ok := s.resolveVideoURL(subURL)
		if !ok {
			continue
		}
		subM3U, err := readAllString(subBlob)
		if err != nil {
			continue
		}

		if !s.segmentsComplete(subM3U) {
			continue
		}

		merged, err := s.remux(subM3U)
		if err != nil {
			log.Warnf("mediastore: remuxing %q: %v", requestURL, err)
			continue
		}
		return blob.InMemory{Data: merged}, false
	}

	return nil, false
}

// resolveVideoURL resolves url (which may be host-relative) to a
// stored video blob, mirroring the original reader's "awkward" get()
// helper that reuses the image-keyed decode for video lookups.
func (s *Store) resolveVideoURL(rawURL string) (blob.Blob, bool) {
	if strings.HasPrefix(rawURL, "/") {
		rawURL = "https://video.twimg.com" + rawURL
	}
	d, err := urlcodec.Decode(rawURL)
	if err != nil {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	set, ok := s.videos[d.Base]
	if !ok {
		return nil, false
	}
	return set.getVariant()
}

// playlistReferences returns every non-comment, non-blank line of an
// m3u8 playlist: the next-level resource it names.
func playlistReferences(m3u string) []string {
	var out []string
	sc := bufio.NewScanner(strings.NewReader(m3u))
	for sc.Scan() {
		line := sc.Text()
		if line != "" && !strings.HasPrefix(line, "#") {
			out = append(out, line)
		}
	}
	return out
}

// segmentsComplete reports whether every segment a sub-playlist
// references (including an EXT-X-MAP initialization segment) resolves
// to a stored blob.
func (s *Store) segmentsComplete(subM3U string) bool {
	sc := bufio.NewScanner(strings.NewReader(subM3U))
	for sc.Scan() {
		line := sc.Text()
		if m := extMapURI.FindStringSubmatch(line); m != nil {
			if _, ok := s.resolveVideoURL(m[1]); !ok {
				return false
			}
			continue
		}
		if line != "" && !strings.HasPrefix(line, "#") {
			if _, ok := s.resolveVideoURL(line); !ok {
				return false
			}
		}
	}
	return true
}

// remux rewrites subM3U's segment references to local temp-file paths
// and invokes the external muxer to concatenate them into an MP4,
// preserving codecs (§4.4 step 3).
func (s *Store) remux(subM3U string) ([]byte, error) {
	var tempFiles []string
	defer func() {
		for _, p := range tempFiles {
			os.Remove(p)
		}
	}()

	localPath := func(url string) (string, error) {
		b, ok := s.resolveVideoURL(url)
		if !ok {
			return "", fmt.Errorf("mediastore: segment %q vanished mid-reassembly", url)
		}
		if onDisk, ok := b.(blob.OnDisk); ok {
			return onDisk.Path, nil
		}
		ext := strings.ToLower(pathExt(url))
		f, err := os.CreateTemp("", "tlreplay-segment-*"+ext)
		if err != nil {
			return "", err
		}
		r, err := b.Open()
		if err != nil {
			f.Close()
			return "", err
		}
		_, copyErr := io.Copy(f, r)
		r.Close()
		f.Close()
		tempFiles = append(tempFiles, f.Name())
		if copyErr != nil {
			return "", copyErr
		}
		return f.Name(), nil
	}

	var rewritten []string
	sc := bufio.NewScanner(strings.NewReader(subM3U))
	for sc.Scan() {
		line := sc.Text()
		switch {
		case extMapURI.MatchString(line):
			m := extMapURI.FindStringSubmatch(line)
			p, err := localPath(m[1])
			if err != nil {
				return nil, err
			}
			rewritten = append(rewritten, fmt.Sprintf(`#EXT-X-MAP:URI="%s"`, p))
		case line != "" && !strings.HasPrefix(line, "#"):
			p, err := localPath(line)
			if err != nil {
				return nil, err
			}
			rewritten = append(rewritten, p)
		default:
			rewritten = append(rewritten, line)
		}
	}

	rewrittenM3U, err := os.CreateTemp("", "tlreplay-playlist-*.m3u8")
	if err != nil {
		return nil, err
	}
	defer os.Remove(rewrittenM3U.Name())
	if _, err := rewrittenM3U.WriteString(strings.Join(rewritten, "\n") + "\n"); err != nil {
		rewrittenM3U.Close()
		return nil, err
	}
	rewrittenM3U.Close()

	outFile, err := os.CreateTemp("", "tlreplay-merged-*.mp4")
	if err != nil {
		return nil, err
	}
	outPath := outFile.Name()
	outFile.Close()
	defer os.Remove(outPath)

	if err := muxerLimiter.Wait(context.Background()); err != nil {
		return nil, err
	}

	cmd := exec.Command("ffmpeg", "-y", "-allowed_extensions", "ALL",
		"-i", rewrittenM3U.Name(), "-c", "copy", "-strict", "-2", outPath)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("ffmpeg: %w: %s", err, out)
	}

	return os.ReadFile(outPath)
}

func pathExt(url string) string {
	if i := strings.LastIndexByte(url, '.'); i >= 0 {
		return url[i:]
	}
	return ""
}

func readAllString(b blob.Blob) (string, error) {
	r, err := b.Open()
	if err != nil {
		return "", err
	}
	defer r.Close()
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", err
	}
	return buf.String(), nil
}

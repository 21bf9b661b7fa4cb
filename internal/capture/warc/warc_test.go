// Copyright (c) Contributors.
// All rights reserved. Use of this source code is governed by a
// MIT-style license that can be found in the LICENSE file.
package warc

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func warcResponseRecord(recordID, targetURI, body string, extraHeaders string) string {
	responseHeaders := "HTTP/1.1 200 OK\r\nContent-Type: text/html\r\n" + extraHeaders + "\r\n"
	content := responseHeaders + body
	return "WARC/1.0\r\n" +
		"WARC-Type: response\r\n" +
		"WARC-Record-ID: " + recordID + "\r\n" +
		"WARC-Target-URI: " + targetURI + "\r\n" +
		"WARC-Date: 2021-01-01T00:00:00Z\r\n" +
		fmt.Sprintf("Content-Length: %d\r\n", len(content)) +
		"\r\n" +
		content +
		"\r\n\r\n"
}

func warcRequestRecord(recordID, concurrentTo, targetURI string) string {
	content := "GET / HTTP/1.1\r\nHost: example.com\r\n\r\n"
	return "WARC/1.0\r\n" +
		"WARC-Type: request\r\n" +
		"WARC-Record-ID: " + recordID + "\r\n" +
		"WARC-Concurrent-To: " + concurrentTo + "\r\n" +
		"WARC-Target-URI: " + targetURI + "\r\n" +
		"WARC-Date: 2021-01-01T00:00:00Z\r\n" +
		fmt.Sprintf("Content-Length: %d\r\n", len(content)) +
		"\r\n" +
		content +
		"\r\n\r\n"
}

func warcRevisitRecord(recordID, refersTo, targetURI string) string {
	content := "HTTP/1.1 304 Not Modified\r\n\r\n"
	return "WARC/1.0\r\n" +
		"WARC-Type: revisit\r\n" +
		"WARC-Record-ID: " + recordID + "\r\n" +
		"WARC-Refers-To: " + refersTo + "\r\n" +
		"WARC-Target-URI: " + targetURI + "\r\n" +
		"WARC-Date: 2021-01-02T00:00:00Z\r\n" +
		fmt.Sprintf("Content-Length: %d\r\n", len(content)) +
		"\r\n" +
		content +
		"\r\n\r\n"
}

func openWritten(t *testing.T, content string) *os.File {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "capture.warc")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	f, err := os.Open(p)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestReadResponseRecord(t *testing.T) {
	content := warcResponseRecord("<urn:uuid:1>", "https://example.com/", "hello world", "")
	f := openWritten(t, content)

	records, err := Read(f, nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "https://example.com/", records[0].TargetURI)

	r, err := records[0].Payload.Open()
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, "hello world", string(data))
}

func TestReadRequestAssociatesToConcurrentResponse(t *testing.T) {
	content := warcResponseRecord("<urn:uuid:1>", "https://example.com/", "body", "") +
		warcRequestRecord("<urn:uuid:2>", "<urn:uuid:1>", "https://example.com/")
	f := openWritten(t, content)

	records, err := Read(f, nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.NotNil(t, records[0].RequestHeaders)
}

func TestReadRevisitResolvesPayloadFromResponse(t *testing.T) {
	content := warcResponseRecord("<urn:uuid:1>", "https://example.com/a", "original body", "") +
		warcRevisitRecord("<urn:uuid:2>", "<urn:uuid:1>", "https://example.com/a")
	f := openWritten(t, content)

	records, err := Read(f, nil)
	require.NoError(t, err)
	require.Len(t, records, 2)

	var revisit Record
	for _, r := range records {
		if r.WarcRecordID == "<urn:uuid:2>" {
			revisit = r
		}
	}
	require.NotEmpty(t, revisit.WarcRecordID)

	body, err := revisit.Payload.Open()
	require.NoError(t, err)
	defer body.Close()
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	require.Equal(t, "original body", string(data))
}

func TestParseCookiesToleratesBracesAndCommas(t *testing.T) {
	lines := []string{"Set-Cookie: g_state={\"i_p\":999999999,\"i_l\":3}; Path=/\r\n"}
	cookies := parseCookies(lines)
	require.Len(t, cookies, 2)
	require.Equal(t, "g_state", cookies[0].Name)
	require.Equal(t, `{"i_p":999999999,"i_l":3}`, cookies[0].Value)
}

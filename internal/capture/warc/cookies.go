// Copyright (c) Contributors.
// All rights reserved. Use of this source code is governed by a
// MIT-style license that can be found in the LICENSE file.
package warc

import "strings"

// Cookie is one name/value pair recovered from a captured response's
// Set-Cookie headers (or a request's Cookie header, for callers that
// feed it request lines instead).
type Cookie struct {
	Name  string
	Value string
}

// parseCookies scans a response's raw header-prefix lines for Cookie/
// Set-Cookie headers and tolerantly splits their values into
// name/value pairs. Unlike net/http's cookie jar, which rejects a
// value containing a brace or comma, this parser accepts both:
// production captures were observed carrying values like
// `g_state={"i_p":999999999,"i_l":3}` verbatim (§4.3).
func parseCookies(headerLines []string) []Cookie {
	var out []Cookie
	for _, line := range headerLines {
		name, value, ok := headerLine(line)
		if !ok {
			continue
		}
		lname := strings.ToLower(name)
		if lname != "cookie" && lname != "set-cookie" {
			continue
		}
		out = append(out, parseCookieHeader(value)...)
	}
	return out
}

// parseCookieHeader splits one Cookie/Set-Cookie header value on `;`
// into name=value pairs, tolerating `{`, `}`, and `,` within the value
// (only the semicolon and leading/trailing whitespace are treated as
// structural). A Set-Cookie header's trailing attributes (Expires,
// Path, ...) are parsed as ordinary pairs and left for the caller to
// ignore; only the first pair is the actual cookie.
func parseCookieHeader(raw string) []Cookie {
	raw = strings.TrimSuffix(raw, "\r\n")
	parts := strings.Split(raw, ";")
	out := make([]Cookie, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		eq := strings.Index(part, "=")
		if eq < 0 {
			continue
		}
		name := strings.TrimSpace(part[:eq])
		value := strings.TrimSpace(part[eq+1:])
		value = strings.Trim(value, `"`)
		if name == "" {
			continue
		}
		out = append(out, Cookie{Name: name, Value: value})
	}
	return out
}

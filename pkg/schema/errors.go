// Copyright (c) Contributors.
// All rights reserved. Use of this source code is governed by a
// MIT-style license that can be found in the LICENSE file.
package schema

import (
	"errors"
	"fmt"
)

// Error kinds of §7. These are sentinels, matched with errors.Is; each
// capture reader and the envelope walker wrap them with fmt.Errorf(...
// %w...) to attach context.
var (
	// ErrSchemaDeviation means an expected field is absent or a variant
	// tag is unknown. Fatal in development, logged-and-skipped in
	// production (see config.Keys.Strict).
	ErrSchemaDeviation = errors.New("schema deviation")

	// ErrUnrecognizedMedia means the URL decoder could not classify a
	// media URL. The URL is left unrewritten.
	ErrUnrecognizedMedia = errors.New("unrecognized media url")

	// ErrCorruptCapture means a single record was truncated or
	// mis-framed. The record is skipped; ingestion of the input
	// continues.
	ErrCorruptCapture = errors.New("corrupt capture record")

	// ErrMissingBody means an HTTP-archive entry had neither an inline
	// body nor a hash reference.
	ErrMissingBody = errors.New("missing response body")

	// ErrMuxerFailure means the external video-remux subprocess failed.
	ErrMuxerFailure = errors.New("muxer subprocess failed")
)

// CaptureError pairs one of the sentinels above with the input and
// record it was raised for, so logs can point at a specific offender
// without every call site hand-rolling the same fmt.Errorf shape.
type CaptureError struct {
	Kind   error
	Input  string
	Record string
	Err    error
}

func (e *CaptureError) Error() string {
	if e.Record != "" {
		return fmt.Sprintf("%s: %s (%s): %v", e.Kind, e.Input, e.Record, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Input, e.Err)
}

func (e *CaptureError) Unwrap() error {
	return e.Kind
}

func NewCaptureError(kind error, input, record string, err error) *CaptureError {
	return &CaptureError{Kind: kind, Input: input, Record: record, Err: err}
}

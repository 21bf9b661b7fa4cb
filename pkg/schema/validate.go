// Copyright (c) Contributors.
// All rights reserved. Use of this source code is governed by a
// MIT-style license that can be found in the LICENSE file.
package schema

import (
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"net/url"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Kind selects which embedded JSON schema Validate checks an instance
// against.
type Kind int

const (
	// CaptureEnvelope validates the outer shape of one dispatcher
	// envelope entry before the envelope walker descends into it.
	CaptureEnvelope Kind = iota + 1
	// ExportAccount validates an export bundle's account/profile record.
	ExportAccount
	// ProgramConfig validates internal/config's config.json shape.
	ProgramConfig
)

//go:embed schemas/*
var schemaFiles embed.FS

// Load implements jsonschema.Loader for the "embedfs" scheme, exactly
// like the teacher's pkg/schema/validate.go.
func Load(s string) (io.ReadCloser, error) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, err
	}
	return schemaFiles.Open(u.Path)
}

func init() {
	jsonschema.Loaders["embedfs"] = Load
}

func compile(k Kind) (*jsonschema.Schema, error) {
	switch k {
	case CaptureEnvelope:
		return jsonschema.Compile("embedfs://schemas/capture-envelope.schema.json")
	case ExportAccount:
		return jsonschema.Compile("embedfs://schemas/export-account.schema.json")
	case ProgramConfig:
		return jsonschema.Compile("embedfs://schemas/config.schema.json")
	default:
		return nil, fmt.Errorf("schema: unknown kind %d", k)
	}
}

// Validate decodes r as JSON and checks it against the schema named by
// k, returning a wrapped ErrSchemaDeviation on mismatch.
func Validate(k Kind, r io.Reader) error {
	s, err := compile(k)
	if err != nil {
		return err
	}

	var v interface{}
	if err := json.NewDecoder(r).Decode(&v); err != nil {
		return NewCaptureError(ErrSchemaDeviation, "", "", fmt.Errorf("decode: %w", err))
	}

	if err := s.Validate(v); err != nil {
		return NewCaptureError(ErrSchemaDeviation, "", "", err)
	}

	return nil
}

// ValidateBytes is a convenience wrapper over Validate for callers that
// already have the instance in memory (capture readers almost always
// do).
func ValidateBytes(k Kind, b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return NewCaptureError(ErrSchemaDeviation, "", "", fmt.Errorf("decode: %w", err))
	}

	s, err := compile(k)
	if err != nil {
		return err
	}

	if err := s.Validate(v); err != nil {
		return NewCaptureError(ErrSchemaDeviation, "", "", err)
	}

	return nil
}

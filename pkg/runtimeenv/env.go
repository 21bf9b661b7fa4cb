// Copyright (c) Contributors.
// All rights reserved. Use of this source code is governed by a
// MIT-style license that can be found in the LICENSE file.

// Package runtimeenv provides small process-level niceties: loading a
// .env file before flags are parsed, and a hook point for notifying a
// supervising init system about startup/shutdown that sends nothing.
package runtimeenv

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// LoadEnv loads environment variables from the file at path into the
// process environment. Existing environment variables are not
// overwritten. Returns os.ErrNotExist (wrapped) if the file is absent so
// callers can treat a missing .env as optional.
func LoadEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}

	vars, err := godotenv.Read(path)
	if err != nil {
		return fmt.Errorf("runtimeenv: reading %s: %w", path, err)
	}

	for k, v := range vars {
		if _, ok := os.LookupEnv(k); !ok {
			os.Setenv(k, v)
		}
	}

	return nil
}

// SystemdNotify is the hook point for a minimal sd_notify shim. It
// reads $NOTIFY_SOCKET but writes nothing to it, so it is a silent
// no-op whether or not the variable is set.
func SystemdNotify(ready bool, status string) {
	socket := os.Getenv("NOTIFY_SOCKET")
	if socket == "" {
		return
	}
	// No systemd socket dialing here: tlreplay is not expected to run
	// under systemd in its core form, so this is left as the hook point
	// a packaging layer can fill in without touching ingestion code.
	_ = ready
	_ = status
}

// Copyright (c) Contributors.
// All rights reserved. Use of this source code is governed by a
// MIT-style license that can be found in the LICENSE file.
package schema

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateExportAccountRejectsMissingUsername(t *testing.T) {
	err := Validate(ExportAccount, strings.NewReader(`{"accountId":"123"}`))
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrSchemaDeviation))
}

func TestValidateExportAccountAcceptsWellFormed(t *testing.T) {
	err := Validate(ExportAccount, strings.NewReader(`{"accountId":"123","username":"alice"}`))
	require.NoError(t, err)
}

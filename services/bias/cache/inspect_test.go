// Copyright (C) 2025 The Libra Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInspectSummarizesSavedEntries(t *testing.T) {
	db := newTestDB(t)
	store, err := NewBadgerStore(db, 0, nil)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "key-a", sampleEntries()))

	summaries, err := Inspect(db)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "key-a", summaries[0].Key)
	assert.Equal(t, len(sampleEntries()), summaries[0].Entries)
	assert.Greater(t, summaries[0].RawSize, 0)
	assert.NoError(t, summaries[0].DecodeError)
}

func TestInspectEmptyDBReturnsNoEntries(t *testing.T) {
	db := newTestDB(t)
	summaries, err := Inspect(db)
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestInspectRejectsNilDB(t *testing.T) {
	_, err := Inspect(nil)
	require.Error(t, err)
}

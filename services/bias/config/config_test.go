// Copyright (C) 2025 The Libra Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTunablesEmbedded(t *testing.T) {
	ctx := context.Background()
	tun, err := LoadTunables(ctx, defaultTunablesYAML)
	require.NoError(t, err)

	assert.Equal(t, DefaultWidening, tun.Widening)
	assert.Equal(t, DefaultDifference, tun.Difference)
	assert.Equal(t, DefaultWorkerCount, tun.Worker1Count)
	assert.Equal(t, DefaultWorkerCount, tun.Worker2Count)
	assert.Equal(t, DefaultWorkerCount, tun.PackConcurrency)
}

func TestLoadTunablesAppliesDefaults(t *testing.T) {
	ctx := context.Background()
	tun, err := LoadTunables(ctx, []byte("widening: 0\n"))
	require.NoError(t, err)

	assert.Equal(t, DefaultWidening, tun.Widening)
	assert.Equal(t, DefaultDifference, tun.Difference)
	assert.Equal(t, DefaultWorkerCount, tun.Worker1Count)
	assert.Equal(t, DefaultWorkerCount, tun.Worker2Count)
	assert.Equal(t, DefaultQueueCapacity, tun.Q1Capacity)
	assert.Equal(t, DefaultQueueCapacity, tun.Q2Capacity)
	assert.Equal(t, DefaultProgressIntervalSeconds, tun.ProgressIntervalSeconds)
	assert.Equal(t, DefaultWorkerCount, tun.PackConcurrency)
}

func TestLoadTunablesRejectsOutOfRangeDifference(t *testing.T) {
	ctx := context.Background()
	_, err := LoadTunables(ctx, []byte("difference: 1.5\n"))
	require.Error(t, err)
}

func TestLoadTunablesRejectsEmptyData(t *testing.T) {
	ctx := context.Background()
	_, err := LoadTunables(ctx, nil)
	require.Error(t, err)
}

func TestLoadTunablesRejectsOversizedData(t *testing.T) {
	ctx := context.Background()
	oversized := make([]byte, MaxYAMLFileSize+1)
	_, err := LoadTunables(ctx, oversized)
	require.Error(t, err)
}

func TestGetTunablesCachesAcrossCalls(t *testing.T) {
	ResetTunables()
	defer ResetTunables()

	ctx := context.Background()
	first, err := GetTunables(ctx)
	require.NoError(t, err)
	second, err := GetTunables(ctx)
	require.NoError(t, err)

	assert.Same(t, first, second)
}

func TestGetTunablesRejectsNilContext(t *testing.T) {
	_, err := GetTunables(nil) //nolint:staticcheck // exercising the nil-ctx guard
	require.Error(t, err)
}

// Copyright (C) 2025 The Libra Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package biascheck

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libra-go/libra/services/bias/cfg"
	"github.com/libra-go/libra/services/bias/domain"
	"github.com/libra-go/libra/services/bias/onehot"
	"github.com/libra-go/libra/services/bias/pattern"
	"github.com/libra-go/libra/services/bias/stats"
	"github.com/libra-go/libra/services/bias/symbolic"
)

// constantGraph builds a network whose predicted class (c0) never depends on
// the sensitive bit — spec.md §8's implicit "no bias" control case.
func constantGraph(t *testing.T) *cfg.Graph {
	t.Helper()
	g := cfg.NewGraph()
	require.NoError(t, g.Append(&cfg.Node{ID: "s0", Kind: cfg.KindInput}))
	require.NoError(t, g.Append(&cfg.Node{ID: "s1", Kind: cfg.KindInput}))
	require.NoError(t, g.Append(&cfg.Node{
		ID: "c0", Kind: cfg.KindAffine, LHS: "c0",
		RHS: domain.Const(big.NewRat(1, 1)),
	}))
	require.NoError(t, g.Append(&cfg.Node{
		ID: "c1", Kind: cfg.KindAffine, LHS: "c1",
		RHS: domain.Const(big.NewRat(0, 1)),
	}))
	require.NoError(t, g.Append(&cfg.Node{ID: "out", Kind: cfg.KindOutput, LHS: "c1"}))
	return g
}

// TestWorkerMirroringNetworkIsFullyBiased mirrors spec.md §8 scenario 1: a
// single sensitive binary feature, no uncontroversial features, output
// flips deterministically with the sensitive bit — biased% must reach 100.
func TestWorkerMirroringNetworkIsFullyBiased(t *testing.T) {
	g := mirroringGraph(t)
	config := Config{
		Graph:           g,
		Classes:         []domain.Variable{"c0", "c1"},
		SensitiveValues: onehot.Enumerate([]symbolic.Variable{"s0", "s1"}),
		SensitiveVars:   []symbolic.Variable{"s0", "s1"},
	}

	q := NewQueue(4)
	counters := &stats.Counters{}

	q.Post(Task{Item: Item{
		Pattern: pattern.ActivationPattern{},
		Chunks: []pattern.Chunk{
			{Ranges: map[domain.Variable]domain.Interval{}, Percent: big.NewRat(100, 1)},
		},
	}})
	q.Post(StopTask())

	require.NoError(t, RunWorker(context.Background(), q, config, counters))
	assert.Equal(t, 0, counters.Biased.Load().Cmp(big.NewRat(100, 1)))
}

// TestWorkerConstantNetworkIsNeverBiased exercises the no-valid-pair case:
// every surviving witness bucket shares the same dominant class, so no
// (classᵢ≠classⱼ) pair ever exists and biased% stays zero.
func TestWorkerConstantNetworkIsNeverBiased(t *testing.T) {
	g := constantGraph(t)
	config := Config{
		Graph:           g,
		Classes:         []domain.Variable{"c0", "c1"},
		SensitiveValues: onehot.Enumerate([]symbolic.Variable{"s0", "s1"}),
		SensitiveVars:   []symbolic.Variable{"s0", "s1"},
	}

	q := NewQueue(4)
	counters := &stats.Counters{}

	q.Post(Task{Item: Item{
		Pattern: pattern.ActivationPattern{},
		Chunks: []pattern.Chunk{
			{Ranges: map[domain.Variable]domain.Interval{}, Percent: big.NewRat(100, 1)},
		},
	}})
	q.Post(StopTask())

	require.NoError(t, RunWorker(context.Background(), q, config, counters))
	assert.Equal(t, 0, counters.Biased.Load().Sign())
}

func TestVolumeOfEmptyRangesIsOne(t *testing.T) {
	assert.Equal(t, 0, Volume(map[domain.Variable]domain.Interval{}).Cmp(big.NewRat(1, 1)))
}

func TestVolumeMultipliesWidths(t *testing.T) {
	ranges := map[domain.Variable]domain.Interval{
		"x": {Lo: big.NewRat(0, 1), Hi: big.NewRat(1, 2)},
		"y": {Lo: big.NewRat(0, 1), Hi: big.NewRat(1, 4)},
	}
	assert.Equal(t, 0, Volume(ranges).Cmp(big.NewRat(1, 8)))
}

// Copyright (C) 2025 The Libra Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package oracle

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libra-go/libra/services/bias/cfg"
	"github.com/libra-go/libra/services/bias/domain"
	"github.com/libra-go/libra/services/bias/forward"
	"github.com/libra-go/libra/services/bias/onehot"
	"github.com/libra-go/libra/services/bias/symbolic"
)

func identityGraph(t *testing.T) (*cfg.Graph, []domain.Variable) {
	t.Helper()
	g := cfg.NewGraph()
	require.NoError(t, g.Append(&cfg.Node{ID: "x", Kind: cfg.KindInput}))
	require.NoError(t, g.Append(&cfg.Node{ID: "out", Kind: cfg.KindOutput, LHS: "x"}))
	return g, nil
}

func TestFeasibleNoActivationsAlwaysFeasible(t *testing.T) {
	g, activations := identityGraph(t)
	entry := domain.TopBox().Assume(symbolic.Bounds("x", big.NewRat(0, 1), big.NewRat(1, 1)))
	sensitive := onehot.Enumerate([]symbolic.Variable{"s0", "s1"})

	ok, perValue, d := Feasible(entry, sensitive, activations, g, forward.IntervalAnalyzer{}, 2, nil, false)
	assert.True(t, ok)
	assert.Equal(t, 0, d)
	assert.Len(t, perValue, 2)
}

func disjunctiveGraph(t *testing.T) (*cfg.Graph, []domain.Variable) {
	t.Helper()
	g := cfg.NewGraph()
	require.NoError(t, g.Append(&cfg.Node{ID: "x", Kind: cfg.KindInput}))
	require.NoError(t, g.Append(&cfg.Node{
		ID: "h", Kind: cfg.KindAffine, LHS: "h",
		RHS: domain.Linear(map[domain.Variable]*big.Rat{"x": big.NewRat(1, 1)}, big.NewRat(-1, 2)),
	}))
	require.NoError(t, g.Append(&cfg.Node{ID: "relu", Kind: cfg.KindActivation, LHS: "h"}))
	require.NoError(t, g.Append(&cfg.Node{ID: "out", Kind: cfg.KindOutput, LHS: "h"}))
	return g, []domain.Variable{"h"}
}

func TestFeasibleAbortsEarlyWhenWideningExceeded(t *testing.T) {
	g, activations := disjunctiveGraph(t)
	entry := domain.TopBox().Assume(symbolic.Bounds("x", big.NewRat(0, 1), big.NewRat(1, 1)))
	sensitive := onehot.Enumerate([]symbolic.Variable{"s0", "s1", "s2"})

	ok, perValue, d := Feasible(entry, sensitive, activations, g, forward.IntervalAnalyzer{}, 0, nil, false)
	assert.False(t, ok)
	assert.Equal(t, 1, d)
	// Aborts after the first sensitive value rather than evaluating all three.
	assert.Len(t, perValue, 1)
}

func TestFeasibleComputeAnywayEvaluatesAllValues(t *testing.T) {
	g, activations := disjunctiveGraph(t)
	entry := domain.TopBox().Assume(symbolic.Bounds("x", big.NewRat(0, 1), big.NewRat(1, 1)))
	sensitive := onehot.Enumerate([]symbolic.Variable{"s0", "s1", "s2"})

	ok, perValue, d := Feasible(entry, sensitive, activations, g, forward.IntervalAnalyzer{}, 0, nil, true)
	assert.False(t, ok)
	assert.Equal(t, 1, d)
	assert.Len(t, perValue, 3)
}

func TestFeasibleHonorsForcedKey(t *testing.T) {
	g, activations := disjunctiveGraph(t)
	entry := domain.TopBox().Assume(symbolic.Bounds("x", big.NewRat(0, 1), big.NewRat(1, 1)))
	sensitive := onehot.Enumerate([]symbolic.Variable{"s0"})

	key := []Forced{{Active: cfg.NewNodeSet("relu")}}
	ok, perValue, d := Feasible(entry, sensitive, activations, g, forward.IntervalAnalyzer{}, 0, key, false)
	assert.True(t, ok)
	assert.Equal(t, 0, d)
	require.Len(t, perValue, 1)
	assert.True(t, perValue[0].Result.Active.Has("relu"))
}

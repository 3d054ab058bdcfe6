// Copyright (C) 2025 The Libra Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package forward

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libra-go/libra/services/bias/cfg"
	"github.com/libra-go/libra/services/bias/domain"
	"github.com/libra-go/libra/services/bias/symbolic"
)

func chain(t *testing.T, coeff, constant *big.Rat) *cfg.Graph {
	t.Helper()
	g := cfg.NewGraph()
	require.NoError(t, g.Append(&cfg.Node{ID: "x", Kind: cfg.KindInput}))
	require.NoError(t, g.Append(&cfg.Node{
		ID:   "h",
		Kind: cfg.KindAffine,
		LHS:  "h",
		RHS:  domain.Linear(map[domain.Variable]*big.Rat{"x": coeff}, constant),
	}))
	require.NoError(t, g.Append(&cfg.Node{ID: "relu", Kind: cfg.KindActivation, LHS: "h"}))
	require.NoError(t, g.Append(&cfg.Node{ID: "out", Kind: cfg.KindOutput, LHS: "h"}))
	return g
}

func TestIntervalAnalyzerAlwaysActive(t *testing.T) {
	// h = x, x in [1,2] => h always >= 1 >= 0 => always active
	g := chain(t, big.NewRat(1, 1), big.NewRat(0, 1))
	box := domain.TopBox().Assume(symbolic.Bounds("x", big.NewRat(1, 1), big.NewRat(2, 1)))

	res := IntervalAnalyzer{}.Analyze(g, box, Options{Widening: 2, EarlyStop: true})
	assert.True(t, res.Active.Has("relu"))
	assert.False(t, res.Inactive.Has("relu"))
	assert.Equal(t, 0, res.Disjunctive)
}

func TestIntervalAnalyzerAlwaysInactive(t *testing.T) {
	// h = x - 10, x in [0,1] => h always negative => always inactive
	g := chain(t, big.NewRat(1, 1), big.NewRat(-10, 1))
	box := domain.TopBox().Assume(symbolic.Bounds("x", big.NewRat(0, 1), big.NewRat(1, 1)))

	res := IntervalAnalyzer{}.Analyze(g, box, Options{Widening: 2, EarlyStop: true})
	assert.True(t, res.Inactive.Has("relu"))
	assert.False(t, res.Active.Has("relu"))

	lo, hi, ok := res.Final.Bound("h")
	require.True(t, ok)
	assert.Equal(t, big.NewRat(0, 1), lo)
	assert.Equal(t, big.NewRat(0, 1), hi)
}

func TestIntervalAnalyzerDisjunctive(t *testing.T) {
	// h = x - 0.5, x in [0,1] => h in [-0.5, 0.5] straddles zero
	g := chain(t, big.NewRat(1, 1), big.NewRat(-1, 2))
	box := domain.TopBox().Assume(symbolic.Bounds("x", big.NewRat(0, 1), big.NewRat(1, 1)))

	res := IntervalAnalyzer{}.Analyze(g, box, Options{Widening: 2, EarlyStop: true})
	assert.False(t, res.Active.Has("relu"))
	assert.False(t, res.Inactive.Has("relu"))
	assert.Equal(t, 1, res.Disjunctive)
}

func TestIntervalAnalyzerForcedOverridesBound(t *testing.T) {
	g := chain(t, big.NewRat(1, 1), big.NewRat(-1, 2))
	box := domain.TopBox().Assume(symbolic.Bounds("x", big.NewRat(0, 1), big.NewRat(1, 1)))

	res := IntervalAnalyzer{}.Analyze(g, box, Options{
		Widening:     2,
		ForcedActive: cfg.NewNodeSet("relu"),
	})
	assert.True(t, res.Active.Has("relu"))
	assert.Equal(t, 0, res.Disjunctive)
}

func TestIntervalAnalyzerEarlyStopHaltsTraversal(t *testing.T) {
	g := cfg.NewGraph()
	require.NoError(t, g.Append(&cfg.Node{ID: "x", Kind: cfg.KindInput}))
	require.NoError(t, g.Append(&cfg.Node{
		ID: "h1", Kind: cfg.KindAffine, LHS: "h1",
		RHS: domain.Linear(map[domain.Variable]*big.Rat{"x": big.NewRat(1, 1)}, big.NewRat(-1, 2)),
	}))
	require.NoError(t, g.Append(&cfg.Node{ID: "relu1", Kind: cfg.KindActivation, LHS: "h1"}))
	require.NoError(t, g.Append(&cfg.Node{
		ID: "h2", Kind: cfg.KindAffine, LHS: "h2",
		RHS: domain.Linear(map[domain.Variable]*big.Rat{"x": big.NewRat(1, 1)}, big.NewRat(-1, 2)),
	}))
	require.NoError(t, g.Append(&cfg.Node{ID: "relu2", Kind: cfg.KindActivation, LHS: "h2"}))
	require.NoError(t, g.Append(&cfg.Node{ID: "out", Kind: cfg.KindOutput, LHS: "h2"}))

	box := domain.TopBox().Assume(symbolic.Bounds("x", big.NewRat(0, 1), big.NewRat(1, 1)))
	res := IntervalAnalyzer{}.Analyze(g, box, Options{Widening: 0, EarlyStop: true})

	assert.Equal(t, 1, res.Disjunctive)
	assert.False(t, res.Active.Has("relu2") || res.Inactive.Has("relu2"))
}

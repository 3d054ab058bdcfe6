// Copyright (C) 2025 The Libra Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package traverse

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libra-go/libra/services/bias/cfg"
	"github.com/libra-go/libra/services/bias/domain"
	"github.com/libra-go/libra/services/bias/symbolic"
)

func r(n, d int64) *big.Rat { return big.NewRat(n, d) }

// identityChain builds input(r) -> affine(h := r - 0.33) -> relu(h) -> out(h).
func identityChain(t *testing.T) *cfg.Graph {
	t.Helper()
	g := cfg.NewGraph()
	require.NoError(t, g.Append(&cfg.Node{ID: "r", Kind: cfg.KindInput}))
	require.NoError(t, g.Append(&cfg.Node{
		ID: "h", Kind: cfg.KindAffine, LHS: "h",
		RHS: domain.Linear(map[domain.Variable]*big.Rat{"r": r(1, 1)}, r(-33, 100)),
	}))
	require.NoError(t, g.Append(&cfg.Node{ID: "relu", Kind: cfg.KindActivation, LHS: "h"}))
	require.NoError(t, g.Append(&cfg.Node{ID: "out", Kind: cfg.KindOutput, LHS: "h"}))
	return g
}

func TestFromForcedActivePropagatesThroughAffine(t *testing.T) {
	g := identityChain(t)
	out := g.Output()
	seed := domain.Top()

	cls := Classification{Active: cfg.NewNodeSet("relu")}
	states := From(out, seed, cls, false)
	require.Len(t, states, 1)

	// Active branch requires h >= 0, i.e. r - 0.33 >= 0, i.e. r >= 0.33.
	lo, hi, ok := states[0].Bound("r")
	require.True(t, ok)
	require.NotNil(t, lo)
	assert.Equal(t, 0, lo.Cmp(r(33, 100)))
	assert.Nil(t, hi)
}

func TestFromForcedInactiveSubstitutesZero(t *testing.T) {
	g := identityChain(t)
	out := g.Output()
	seed := domain.Top()

	cls := Classification{Inactive: cfg.NewNodeSet("relu")}
	states := From(out, seed, cls, false)
	require.Len(t, states, 1)

	// Inactive branch requires h < 0, i.e. r < 0.33.
	lo, hi, ok := states[0].Bound("r")
	require.True(t, ok)
	assert.Nil(t, lo)
	require.NotNil(t, hi)
	assert.Equal(t, 0, hi.Cmp(r(33, 100)))
}

func TestFromDisjunctiveYieldsBothBranches(t *testing.T) {
	g := identityChain(t)
	out := g.Output()
	seed := domain.Top()

	cls := Classification{} // neither forced: disjunctive
	states := From(out, seed, cls, false)
	require.Len(t, states, 2)

	var sawActive, sawInactive bool
	for _, s := range states {
		lo, hi, ok := s.Bound("r")
		require.True(t, ok)
		if lo != nil && lo.Cmp(r(33, 100)) == 0 {
			sawActive = true
		}
		if hi != nil && hi.Cmp(r(33, 100)) == 0 {
			sawInactive = true
		}
	}
	assert.True(t, sawActive)
	assert.True(t, sawInactive)
}

func TestFromBottomSeedYieldsNothing(t *testing.T) {
	g := identityChain(t)
	out := g.Output()
	assert.Nil(t, From(out, domain.Bottom(), Classification{}, false))
}

func TestFromNilNodeIsTerminal(t *testing.T) {
	seed := domain.Top()
	states := From(nil, seed, Classification{}, false)
	require.Len(t, states, 1)
}

func TestFromJoinMergesDisjunctiveBranches(t *testing.T) {
	g := identityChain(t)
	out := g.Output()
	seed := domain.Top()

	cls := Classification{}
	states := From(out, seed, cls, true)
	require.Len(t, states, 1, "join=true must merge the two branches into one state")
}

func TestFromOtherNodePassesThrough(t *testing.T) {
	g := cfg.NewGraph()
	require.NoError(t, g.Append(&cfg.Node{ID: "r", Kind: cfg.KindInput}))
	require.NoError(t, g.Append(&cfg.Node{ID: "mid", Kind: cfg.KindOther, LHS: "r"}))
	require.NoError(t, g.Append(&cfg.Node{ID: "out", Kind: cfg.KindOutput, LHS: "r"}))

	seed := domain.Top()
	states := From(g.Output(), seed, Classification{}, false)
	require.Len(t, states, 1)
	lo, hi, ok := states[0].Bound("r")
	require.True(t, ok)
	assert.Nil(t, lo)
	assert.Nil(t, hi)
}

func TestFromAffineBottomSeedPrunesBranch(t *testing.T) {
	g := identityChain(t)
	out := g.Output()

	// Seed a state already asserting r < 0 and 1 < r simultaneously: bottom.
	seed := domain.Top().Assume(symbolic.LTExpr(symbolic.Var("r"), symbolic.Lit(0)))
	seed = seed.Assume(symbolic.LTExpr(symbolic.Lit(1), symbolic.Var("r")))
	require.True(t, seed.IsBottom())

	assert.Nil(t, From(out, seed, Classification{}, false))
}

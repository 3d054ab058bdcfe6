// Copyright (C) 2025 The Libra Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pattern

import (
	"context"
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

func TestRunPackingSatisfiesCountPostCondition(t *testing.T) {
	groups := [][]symbolic.Variable{{"g1_0", "g1_1"}, {"g2_0", "g2_1", "g2_2"}}

	g := cfg.NewGraph()
	require.NoError(t, g.Append(&cfg.Node{ID: "x", Kind: cfg.KindInput}))
	require.NoError(t, g.Append(&cfg.Node{ID: "out", Kind: cfg.KindOutput, LHS: "x"}))

	entry := domain.TopBox().Assume(symbolic.Bounds("x", big.NewRat(0, 1), big.NewRat(1, 1)))
	sensitive := onehot.Enumerate([]symbolic.Variable{"s0", "s1"})

	pack, err := RunPacking(context.Background(), groups, entry, sensitive, nil, g, forward.IntervalAnalyzer{}, 4)
	require.NoError(t, err)

	assert.Equal(t, onehot.Count(groups), pack.Total())
}

func TestRunPackingGroupsNoActivationsUnderOnePattern(t *testing.T) {
	groups := [][]symbolic.Variable{{"g1_0", "g1_1"}}

	g := cfg.NewGraph()
	require.NoError(t, g.Append(&cfg.Node{ID: "x", Kind: cfg.KindInput}))
	require.NoError(t, g.Append(&cfg.Node{ID: "out", Kind: cfg.KindOutput, LHS: "x"}))

	entry := domain.TopBox()
	sensitive := onehot.Enumerate([]symbolic.Variable{"s0"})

	pack, err := RunPacking(context.Background(), groups, entry, sensitive, nil, g, forward.IntervalAnalyzer{}, 2)
	require.NoError(t, err)

	combos := pack.Combos()
	assert.Len(t, combos, 1, "no activation nodes means every combo shares the same (empty) pattern")
}

func TestRunPackingNoGroupsYieldsOneEmptyCombination(t *testing.T) {
	g := cfg.NewGraph()
	require.NoError(t, g.Append(&cfg.Node{ID: "x", Kind: cfg.KindInput}))

	// The product over zero groups is the single empty combination, matching
	// onehot.Count(nil) == 1.
	pack, err := RunPacking(context.Background(), nil, domain.TopBox(), nil, nil, g, forward.IntervalAnalyzer{}, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, pack.Total())
}

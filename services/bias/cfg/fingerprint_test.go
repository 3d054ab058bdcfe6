// Copyright (C) 2025 The Libra Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cfg

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libra-go/libra/services/bias/domain"
)

func linearGraph(t *testing.T, coeff int64) *Graph {
	t.Helper()
	g := NewGraph()
	require.NoError(t, g.Append(&Node{ID: "x", Kind: KindInput}))
	require.NoError(t, g.Append(&Node{
		ID: "h", Kind: KindAffine, LHS: "h",
		RHS: domain.Linear(map[domain.Variable]*big.Rat{"x": big.NewRat(coeff, 1)}, big.NewRat(0, 1)),
	}))
	require.NoError(t, g.Append(&Node{ID: "out", Kind: KindOutput, LHS: "h"}))
	return g
}

func TestFingerprintStableAcrossRebuilds(t *testing.T) {
	g1 := linearGraph(t, 1)
	g2 := linearGraph(t, 1)
	assert.Equal(t, Fingerprint(g1), Fingerprint(g2))
}

func TestFingerprintChangesWithCoefficient(t *testing.T) {
	g1 := linearGraph(t, 1)
	g2 := linearGraph(t, 2)
	assert.NotEqual(t, Fingerprint(g1), Fingerprint(g2))
}

func TestFingerprintChangesWithNodeOrder(t *testing.T) {
	g1 := buildReLUChain(t)

	g2 := NewGraph()
	require.NoError(t, g2.Append(&Node{ID: "x", Kind: KindInput}))
	require.NoError(t, g2.Append(&Node{ID: "y", Kind: KindActivation, LHS: "x"}))
	require.NoError(t, g2.Append(&Node{
		ID: "h", Kind: KindAffine, LHS: "h",
		RHS: domain.Linear(map[domain.Variable]*big.Rat{"x": big.NewRat(1, 1)}, big.NewRat(-1, 2)),
	}))
	require.NoError(t, g2.Append(&Node{ID: "out", Kind: KindOutput, LHS: "h"}))

	assert.NotEqual(t, Fingerprint(g1), Fingerprint(g2))
}

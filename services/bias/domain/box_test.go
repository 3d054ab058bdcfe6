// Copyright (C) 2025 The Libra Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package domain

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libra-go/libra/services/bias/symbolic"
)

func TestBoxAssumeBounds(t *testing.T) {
	b := TopBox().Assume(symbolic.Bounds("x", big.NewRat(0, 1), big.NewRat(1, 1)))
	require.False(t, b.IsBottom())

	lo, hi, ok := b.Bound("x")
	require.True(t, ok)
	assert.Equal(t, big.NewRat(0, 1), lo)
	assert.Equal(t, big.NewRat(1, 1), hi)
}

func TestBoxAssumeEmptyRangeIsBottom(t *testing.T) {
	b := TopBox().Assume(symbolic.Bounds("x", big.NewRat(5, 1), big.NewRat(1, 1)))
	assert.True(t, b.IsBottom())
}

func TestBoxMeetIntersectsRanges(t *testing.T) {
	a := TopBox().Assume(symbolic.Bounds("x", big.NewRat(0, 1), big.NewRat(10, 1)))
	b := TopBox().Assume(symbolic.Bounds("x", big.NewRat(5, 1), big.NewRat(15, 1)))

	m := a.Meet(b)
	lo, hi, ok := m.Bound("x")
	require.True(t, ok)
	assert.Equal(t, big.NewRat(5, 1), lo)
	assert.Equal(t, big.NewRat(10, 1), hi)
}

func TestBoxMeetDisjointIsBottom(t *testing.T) {
	a := TopBox().Assume(symbolic.Bounds("x", big.NewRat(0, 1), big.NewRat(1, 1)))
	b := TopBox().Assume(symbolic.Bounds("x", big.NewRat(2, 1), big.NewRat(3, 1)))

	assert.True(t, a.Meet(b).IsBottom())
}

func TestBoxJoinHull(t *testing.T) {
	a := TopBox().Assume(symbolic.Bounds("x", big.NewRat(0, 1), big.NewRat(1, 1)))
	b := TopBox().Assume(symbolic.Bounds("x", big.NewRat(4, 1), big.NewRat(5, 1)))

	j := a.Join(b)
	lo, hi, ok := j.Bound("x")
	require.True(t, ok)
	assert.Equal(t, big.NewRat(0, 1), lo)
	assert.Equal(t, big.NewRat(5, 1), hi)
}

func TestBoxSubstituteAffine(t *testing.T) {
	b := TopBox().Assume(symbolic.Bounds("x", big.NewRat(0, 1), big.NewRat(2, 1)))
	// h := 2*x + 1, x in [0,2] => h in [1,5]
	b = b.Substitute("h", Linear(map[Variable]*big.Rat{"x": big.NewRat(2, 1)}, big.NewRat(1, 1)))

	lo, hi, ok := b.Bound("h")
	require.True(t, ok)
	assert.Equal(t, big.NewRat(1, 1), lo)
	assert.Equal(t, big.NewRat(5, 1), hi)
}

func TestBoxSubstituteNegativeCoefficientFlipsRange(t *testing.T) {
	b := TopBox().Assume(symbolic.Bounds("x", big.NewRat(0, 1), big.NewRat(2, 1)))
	// h := -x, x in [0,2] => h in [-2,0]
	b = b.Substitute("h", Linear(map[Variable]*big.Rat{"x": big.NewRat(-1, 1)}, big.NewRat(0, 1)))

	lo, hi, ok := b.Bound("h")
	require.True(t, ok)
	assert.Equal(t, big.NewRat(-2, 1), lo)
	assert.Equal(t, big.NewRat(0, 1), hi)
}

func TestBoxForgetUnconstrains(t *testing.T) {
	b := TopBox().Assume(symbolic.Bounds("x", big.NewRat(0, 1), big.NewRat(1, 1)))
	b = b.Forget("x")

	_, _, ok := b.Bound("x")
	require.True(t, ok)
	_, present := b.Ranges["x"]
	assert.False(t, present)
}

func TestBoxCanonicalIsOrderIndependent(t *testing.T) {
	a := TopBox().Assume(symbolic.Bounds("x", big.NewRat(0, 1), big.NewRat(1, 1)))
	a = a.Assume(symbolic.Bounds("y", big.NewRat(2, 1), big.NewRat(3, 1)))

	b := TopBox().Assume(symbolic.Bounds("y", big.NewRat(2, 1), big.NewRat(3, 1)))
	b = b.Assume(symbolic.Bounds("x", big.NewRat(0, 1), big.NewRat(1, 1)))

	assert.Equal(t, a.Canonical(), b.Canonical())
}

func TestBoxBottomIsAbsorbing(t *testing.T) {
	bottom := Box{Bottom: true, Ranges: map[Variable]Interval{}}
	other := TopBox().Assume(symbolic.Bounds("x", big.NewRat(0, 1), big.NewRat(1, 1)))

	assert.True(t, bottom.Meet(other).IsBottom())
	assert.False(t, bottom.Join(other).IsBottom())
	assert.Equal(t, "⊥", bottom.Canonical())
}

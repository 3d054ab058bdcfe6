// Copyright (C) 2025 The Libra Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package specfile

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libra-go/libra/services/bias/symbolic"
)

func TestParseSensitiveOnlyLeavesRestAsRealFeatures(t *testing.T) {
	doc := "2\ns0\ns1\n"
	inputs := []symbolic.Variable{"s0", "s1", "x0", "x1"}

	spec, err := Parse(strings.NewReader(doc), inputs)
	require.NoError(t, err)

	assert.Equal(t, []symbolic.Variable{"s0", "s1"}, spec.Sensitive)
	assert.Empty(t, spec.OneHotGroups)
	assert.ElementsMatch(t, []symbolic.Variable{"x0", "x1"}, spec.RealFeatures)
	assert.Len(t, spec.Ranges, 2)
}

func TestParseWithOneHotGroups(t *testing.T) {
	doc := "2\ns0\ns1\n3\na0\na1\na2\n"
	inputs := []symbolic.Variable{"s0", "s1", "a0", "a1", "a2", "x0"}

	spec, err := Parse(strings.NewReader(doc), inputs)
	require.NoError(t, err)

	require.Len(t, spec.OneHotGroups, 1)
	assert.Equal(t, []symbolic.Variable{"a0", "a1", "a2"}, spec.OneHotGroups[0])
	assert.Equal(t, []symbolic.Variable{"x0"}, spec.RealFeatures)
}

func TestParseTerminatesOnNonIntegerLine(t *testing.T) {
	doc := "1\ns0\nnot-a-number\nignored\n"
	inputs := []symbolic.Variable{"s0", "x0"}

	spec, err := Parse(strings.NewReader(doc), inputs)
	require.NoError(t, err)
	assert.Empty(t, spec.OneHotGroups)
	assert.Equal(t, []symbolic.Variable{"x0"}, spec.RealFeatures)
}

func TestParseRejectsEmptySensitiveGroup(t *testing.T) {
	doc := "0\n"
	inputs := []symbolic.Variable{"x0"}

	_, err := Parse(strings.NewReader(doc), inputs)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSpecificationMalformed)
}

func TestParseRejectsUnknownVariable(t *testing.T) {
	doc := "1\nnot_an_input\n"
	inputs := []symbolic.Variable{"x0"}

	_, err := Parse(strings.NewReader(doc), inputs)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownVariable))
}

func TestParseRejectsTruncatedGroup(t *testing.T) {
	doc := "2\ns0\n"
	inputs := []symbolic.Variable{"s0", "s1"}

	_, err := Parse(strings.NewReader(doc), inputs)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSpecificationMalformed)
}

func TestParseBoundsCoverSensitiveAndOneHotVariables(t *testing.T) {
	doc := "1\ns0\n2\na0\na1\n"
	inputs := []symbolic.Variable{"s0", "a0", "a1"}

	spec, err := Parse(strings.NewReader(doc), inputs)
	require.NoError(t, err)

	leaves := spec.Bounds.Conjuncts()
	// s0, a0, a1 each contribute a lower and an upper bound comparison.
	assert.Len(t, leaves, 6)
}

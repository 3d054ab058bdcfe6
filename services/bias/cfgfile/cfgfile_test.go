// Copyright (C) 2025 The Libra Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cfgfile

import (
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libra-go/libra/services/bias/cfg"
)

const identityDoc = `{
  "nodes": [
    {"id": "r", "kind": "input"},
    {"id": "h", "kind": "affine", "lhs": "h", "coeffs": {"r": "1"}, "const": "-1/2"},
    {"id": "a", "kind": "activation", "lhs": "h"},
    {"id": "out", "kind": "output", "lhs": "h"}
  ]
}`

func TestLoadBuildsGraphInDocumentOrder(t *testing.T) {
	g, err := Load(strings.NewReader(identityDoc))
	require.NoError(t, err)

	nodes := g.Nodes()
	require.Len(t, nodes, 4)
	assert.Equal(t, "r", nodes[0].ID)
	assert.Equal(t, cfg.KindInput, nodes[0].Kind)
	assert.Equal(t, cfg.KindAffine, nodes[1].Kind)
	assert.Equal(t, 0, nodes[1].RHS.Coeffs["r"].Cmp(big.NewRat(1, 1)))
	assert.Equal(t, 0, nodes[1].RHS.Const.Cmp(big.NewRat(-1, 2)))
	assert.NotNil(t, g.Output())
}

func TestLoadRejectsUnknownKind(t *testing.T) {
	_, err := Load(strings.NewReader(`{"nodes":[{"id":"x","kind":"bogus"}]}`))
	require.Error(t, err)
}

func TestLoadRejectsMissingOutput(t *testing.T) {
	_, err := Load(strings.NewReader(`{"nodes":[{"id":"r","kind":"input"}]}`))
	require.Error(t, err)
}

func TestLoadRejectsEmptyDocument(t *testing.T) {
	_, err := Load(strings.NewReader(`{}`))
	require.Error(t, err)
}

func TestLoadRejectsInvalidRational(t *testing.T) {
	_, err := Load(strings.NewReader(`{"nodes":[
		{"id":"r","kind":"input"},
		{"id":"h","kind":"affine","lhs":"h","coeffs":{"r":"not-a-number"}},
		{"id":"out","kind":"output","lhs":"h"}
	]}`))
	require.Error(t, err)
}

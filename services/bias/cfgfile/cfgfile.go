// Copyright (C) 2025 The Libra Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package cfgfile loads a pre-built control-flow graph from its JSON
// on-disk representation. This is distinct from the out-of-scope concern of
// constructing a CFG from a source network (spec.md §1): it deserializes an
// already-built straight-line program description into a *cfg.Graph.
package cfgfile

import (
	"encoding/json"
	"fmt"
	"io"
	"math/big"

	"github.com/libra-go/libra/services/bias/cfg"
	"github.com/libra-go/libra/services/bias/domain"
)

// nodeDoc is one node's on-disk shape. Coeffs and Const are decimal or
// rational strings ("3", "1/2", "-0.25") parsed with big.Rat.SetString.
type nodeDoc struct {
	ID     string            `json:"id"`
	Kind   string            `json:"kind"`
	LHS    string            `json:"lhs,omitempty"`
	Coeffs map[string]string `json:"coeffs,omitempty"`
	Const  string            `json:"const,omitempty"`
}

type graphDoc struct {
	Nodes []nodeDoc `json:"nodes"`
}

var kindByName = map[string]cfg.NodeKind{
	"input":      cfg.KindInput,
	"affine":     cfg.KindAffine,
	"activation": cfg.KindActivation,
	"output":     cfg.KindOutput,
	"other":      cfg.KindOther,
}

// Load reads a JSON-encoded graph document from r and builds the
// corresponding *cfg.Graph, in document order.
func Load(r io.Reader) (*cfg.Graph, error) {
	var doc graphDoc
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("cfgfile.Load: decoding JSON: %w", err)
	}
	if len(doc.Nodes) == 0 {
		return nil, fmt.Errorf("cfgfile.Load: graph document has no nodes")
	}

	g := cfg.NewGraph()
	for _, nd := range doc.Nodes {
		n, err := buildNode(nd)
		if err != nil {
			return nil, fmt.Errorf("cfgfile.Load: node %q: %w", nd.ID, err)
		}
		if err := g.Append(n); err != nil {
			return nil, fmt.Errorf("cfgfile.Load: %w", err)
		}
	}
	if g.Output() == nil {
		return nil, fmt.Errorf("cfgfile.Load: graph document has no output node")
	}
	return g, nil
}

func buildNode(nd nodeDoc) (*cfg.Node, error) {
	kind, ok := kindByName[nd.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown node kind %q", nd.Kind)
	}

	n := &cfg.Node{ID: nd.ID, Kind: kind, LHS: domain.Variable(nd.LHS)}

	if kind != cfg.KindAffine {
		return n, nil
	}

	coeffs := make(map[domain.Variable]*big.Rat, len(nd.Coeffs))
	for v, s := range nd.Coeffs {
		r, err := parseRat(s)
		if err != nil {
			return nil, fmt.Errorf("coefficient for %q: %w", v, err)
		}
		coeffs[domain.Variable(v)] = r
	}

	constTerm := big.NewRat(0, 1)
	if nd.Const != "" {
		r, err := parseRat(nd.Const)
		if err != nil {
			return nil, fmt.Errorf("const: %w", err)
		}
		constTerm = r
	}

	n.RHS = domain.Affine{Coeffs: coeffs, Const: constTerm}
	return n, nil
}

func parseRat(s string) (*big.Rat, error) {
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return nil, fmt.Errorf("invalid rational %q", s)
	}
	return r, nil
}

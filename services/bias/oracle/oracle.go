// Copyright (C) 2025 The Libra Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package oracle implements the feasibility oracle (spec.md §4.2): given a
// partition's abstract state, it decides whether every sensitive value
// leaves few enough disjunctive ReLUs to proceed to bias analysis.
package oracle

import (
	"github.com/libra-go/libra/services/bias/cfg"
	"github.com/libra-go/libra/services/bias/domain"
	"github.com/libra-go/libra/services/bias/forward"
	"github.com/libra-go/libra/services/bias/onehot"
)

// Forced is the pre-computed (active, inactive) override for one sensitive
// value — the "key" a caller may supply to short-circuit re-deriving a
// classification the compressor already settled (spec.md §4.2).
type Forced struct {
	Active   cfg.NodeSet
	Inactive cfg.NodeSet
}

// PerValue is the forward-analysis result obtained for one sensitive value,
// tagged with the value that produced it.
type PerValue struct {
	Value  onehot.One1
	Result forward.Result
}

// Feasible runs the forward pre-analyzer once per sensitive value and
// reports whether every value leaves at most `widening` disjunctive
// activation nodes. When computeAnyway is false, it aborts as soon as one
// value exceeds the threshold, returning the partial results gathered so
// far (spec.md §4.2 "abort early and return (False, partial_patterns, d)").
func Feasible(
	entry domain.Box,
	sensitiveValues []onehot.One1,
	activations []domain.Variable,
	g *cfg.Graph,
	analyzer forward.Analyzer,
	widening int,
	key []Forced,
	computeAnyway bool,
) (feasible bool, perValue []PerValue, maxDisjunctive int) {
	feasible = true
	for i, v := range sensitiveValues {
		sv := entry.Assume(v.Assumption)

		opts := forward.Options{EarlyStop: !computeAnyway, Widening: widening}
		if key != nil && i < len(key) {
			opts.ForcedActive = key[i].Active
			opts.ForcedInactive = key[i].Inactive
		}

		res := analyzer.Analyze(g, sv, opts)
		d := len(activations) - res.Active.Len() - res.Inactive.Len()
		if d > maxDisjunctive {
			maxDisjunctive = d
		}
		perValue = append(perValue, PerValue{Value: v, Result: res})

		if d > widening {
			feasible = false
			if !computeAnyway {
				return feasible, perValue, maxDisjunctive
			}
		}
	}
	return feasible, perValue, maxDisjunctive
}

// Copyright (C) 2025 The Libra Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package onehot computes the mutually-exclusive one-hot assumptions for a
// group of indicator variables (spec.md §4.1).
package onehot

import (
	"github.com/libra-go/libra/services/bias/symbolic"
)

// One1 is "variable v = 1 ∧ rest of the group = 0", paired with v for
// convenience (spec.md §3 "OneHot1").
type One1 struct {
	Var        symbolic.Variable
	Assumption symbolic.Expr
}

// N is one One1 per one-hot feature group, in group order (spec.md §3
// "OneHotN").
type N []One1

// Enumerate returns the |vars| mutually exclusive one-hot values for a group
// of indicator variables: the i-th value asserts vars[i] == 1 and every
// other variable in the group == 0. Order is deterministic (group order) so
// downstream debug logging is reproducible. k=0 returns an empty slice and
// is not an error.
func Enumerate(vars []symbolic.Variable) []One1 {
	values := make([]One1, 0, len(vars))
	one := symbolic.Lit(1)
	zero := symbolic.Lit(0)
	for i := range vars {
		conjuncts := make([]symbolic.Expr, 0, len(vars))
		conjuncts = append(conjuncts, symbolic.And(
			symbolic.LEExpr(one, symbolic.Var(vars[i])),
			symbolic.LEExpr(symbolic.Var(vars[i]), one),
		))
		for j := range vars {
			if j == i {
				continue
			}
			conjuncts = append(conjuncts, symbolic.And(
				symbolic.LEExpr(zero, symbolic.Var(vars[j])),
				symbolic.LEExpr(symbolic.Var(vars[j]), zero),
			))
		}
		values = append(values, One1{Var: vars[i], Assumption: symbolic.And(conjuncts...)})
	}
	return values
}

// Product returns the cartesian product of Enumerate(group) for every group
// in groups — one OneHotN per combination, in deterministic (row-major)
// order. This backs the packing engine's producer (spec.md §4.3).
func Product(groups [][]symbolic.Variable) []N {
	choices := make([][]One1, len(groups))
	for i, g := range groups {
		choices[i] = Enumerate(g)
	}
	total := 1
	for _, c := range choices {
		if len(c) == 0 {
			return nil
		}
		total *= len(c)
	}
	out := make([]N, 0, total)
	indices := make([]int, len(choices))
	for {
		combo := make(N, len(choices))
		for i, idx := range indices {
			combo[i] = choices[i][idx]
		}
		out = append(out, combo)
		// odometer increment
		pos := len(indices) - 1
		for pos >= 0 {
			indices[pos]++
			if indices[pos] < len(choices[pos]) {
				break
			}
			indices[pos] = 0
			pos--
		}
		if pos < 0 {
			break
		}
	}
	return out
}

// Count returns Π|groups[i]|, the total number of one-hot combinations —
// used to verify the packing-engine post-condition Σ|packs[k]| = Π_g|g|
// (spec.md §4.3).
func Count(groups [][]symbolic.Variable) int {
	total := 1
	for _, g := range groups {
		total *= len(g)
	}
	return total
}

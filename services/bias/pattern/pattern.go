// Copyright (C) 2025 The Libra Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package pattern implements the activation-pattern key, the per-pattern
// chunk accounting Worker-1 accumulates, the packing engine that seeds the
// patterns dictionary, and the subsumption-based pattern compressor.
package pattern

import (
	"math/big"
	"strings"

	"github.com/libra-go/libra/services/bias/cfg"
	"github.com/libra-go/libra/services/bias/domain"
	"github.com/libra-go/libra/services/bias/onehot"
	"github.com/libra-go/libra/services/bias/symbolic"
)

// SensitiveEntry is one sensitive value's (active, inactive) classification
// (spec.md §3 "ActivationPattern").
type SensitiveEntry struct {
	Active   cfg.NodeSet
	Inactive cfg.NodeSet
}

// Valid checks the invariant active ∩ inactive = ∅.
func (e SensitiveEntry) Valid() bool { return e.Active.Disjoint(e.Inactive) }

// ActivationPattern is the ordered tuple, one entry per sensitive value.
// Equality is structural on the full tuple; Key gives a stable map key.
type ActivationPattern []SensitiveEntry

// Key returns a stable hash key over the sorted node-id sequence of every
// entry's (active, inactive) pair — spec.md §9 "do not rely on pointer
// identity".
func (p ActivationPattern) Key() string {
	var b strings.Builder
	for i, e := range p {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(strings.Join(e.Active.Sorted(), ","))
		b.WriteByte(';')
		b.WriteString(strings.Join(e.Inactive.Sorted(), ","))
	}
	return b.String()
}

// Subsumes reports whether every position of p is a stricter-or-equal
// classification than other's: p[i].Active ⊇ other[i].Active and
// p[i].Inactive ⊇ other[i].Inactive for all i. p forces a superset of the
// nodes other forces, so p is the stricter (superset) pattern and other is
// the looser (subset) one (spec.md §4.5 merge direction: the subset side is
// always the one kept as the merge representative).
func (p ActivationPattern) Subsumes(other ActivationPattern) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if !supersetOf(p[i].Active, other[i].Active) || !supersetOf(p[i].Inactive, other[i].Inactive) {
			return false
		}
	}
	return true
}

func supersetOf(a, b cfg.NodeSet) bool {
	for id := range b {
		if !a.Has(id) {
			return false
		}
	}
	return true
}

// Score ranks a pattern by how constrained it is — the number of nodes it
// classifies across every sensitive value, summed. Ported verbatim from the
// original's sort key (`score = lambda k: sum(len(s[0]) + len(s[1]) for s in
// k)`). Worker-1's one-hot split adds each pack's size to it and posts the
// packs in descending order of that sum (spec.md §4.4); Compress does not
// use it.
func Score(p ActivationPattern) int {
	total := 0
	for _, e := range p {
		total += e.Active.Len() + e.Inactive.Len()
	}
	return total
}

// CoarsenedGroup pairs a one-hot group's constituent variables with the OR
// of whichever one-hot cases of that group remain live in a Chunk (spec.md
// §3 Chunk.assumptions).
type CoarsenedGroup struct {
	Vars       []symbolic.Variable
	Assumption symbolic.Expr
}

// Chunk is Worker-1's unit of accounting for one feasible region of the
// input space (spec.md §3).
type Chunk struct {
	Assumptions []CoarsenedGroup
	Unpacked    []onehot.N
	Ranges      map[domain.Variable]domain.Interval
	Percent     *big.Rat
}

// Clone deep-copies a Chunk — every mutation downstream (bias-check's
// per-one-hot-combination deep copies, spec.md §4.7) must not alias the
// original.
func (c Chunk) Clone() Chunk {
	out := Chunk{
		Assumptions: append([]CoarsenedGroup(nil), c.Assumptions...),
		Unpacked:    append([]onehot.N(nil), c.Unpacked...),
		Ranges:      make(map[domain.Variable]domain.Interval, len(c.Ranges)),
		Percent:     new(big.Rat).Set(c.Percent),
	}
	for v, iv := range c.Ranges {
		out.Ranges[v] = domain.Interval{Lo: new(big.Rat).Set(iv.Lo), Hi: new(big.Rat).Set(iv.Hi)}
	}
	return out
}

// RangesExpr renders c.Ranges as the conjunction `lower <= v <= upper` over
// every tracked variable — the "range-box" assumption Worker-2 re-applies
// when rebuilding a polyhedral state from a Chunk (spec.md §4.7.1 step 3).
func (c Chunk) RangesExpr() symbolic.Expr {
	if len(c.Ranges) == 0 {
		return symbolic.And()
	}
	exprs := make([]symbolic.Expr, 0, len(c.Ranges))
	for v, iv := range c.Ranges {
		exprs = append(exprs, symbolic.Bounds(v, iv.Lo, iv.Hi))
	}
	return symbolic.And(exprs...)
}

// AssumptionsExpr renders c.Assumptions as their conjunction — the
// accumulated one-hot OR-assumptions a partition has coarsened so far.
func (c Chunk) AssumptionsExpr() symbolic.Expr {
	if len(c.Assumptions) == 0 {
		return symbolic.And()
	}
	exprs := make([]symbolic.Expr, len(c.Assumptions))
	for i, a := range c.Assumptions {
		exprs[i] = a.Assumption
	}
	return symbolic.And(exprs...)
}

// Entry is a (pattern, chunks) pair as stored in the patterns dictionary
// and, after compression, the prioritized list fed to Q2.
type Entry struct {
	Pattern ActivationPattern
	Chunks  []Chunk
}

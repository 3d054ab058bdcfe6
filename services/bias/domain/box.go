// Copyright (C) 2025 The Libra Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package domain

import (
	"math/big"
	"sort"
	"strings"

	"github.com/libra-go/libra/services/bias/symbolic"
)

// Interval is a closed rational range [Lo, Hi]. A variable absent from a Box
// is unconstrained (-inf, +inf).
type Interval struct {
	Lo *big.Rat
	Hi *big.Rat
}

func (iv Interval) empty() bool { return iv.Lo.Cmp(iv.Hi) > 0 }

// Box is the non-relational interval abstraction the forward pre-analyzer
// propagates through the network: one independent rational range per
// variable, no cross-variable relations. It trades precision (it cannot
// represent "x <= y") for the cheap, non-combinatorial Join/Meet/Substitute
// the forward pass runs once per node on every partition (spec.md §5).
//
// A Box with Bottom set represents the empty range — infeasible.
type Box struct {
	Bottom bool
	Ranges map[Variable]Interval
}

// TopBox returns the unconstrained box (every variable ranges over all of
// ℚ, i.e. absent from Ranges).
func TopBox() Box {
	return Box{Ranges: map[Variable]Interval{}}
}

// Clone returns a deep, independent copy.
func (b Box) Clone() Box {
	if b.Bottom {
		return Box{Bottom: true, Ranges: map[Variable]Interval{}}
	}
	cp := make(map[Variable]Interval, len(b.Ranges))
	for v, iv := range b.Ranges {
		cp[v] = Interval{Lo: new(big.Rat).Set(iv.Lo), Hi: new(big.Rat).Set(iv.Hi)}
	}
	return Box{Ranges: cp}
}

// IsBottom reports whether b denotes the empty set.
func (b Box) IsBottom() bool { return b.Bottom }

// Bound returns the current range of v, or (nil, nil, true) if v is
// unconstrained. ok is false only when b is already bottom.
func (b Box) Bound(v Variable) (lo, hi *big.Rat, ok bool) {
	if b.Bottom {
		return nil, nil, false
	}
	if iv, present := b.Ranges[v]; present {
		return iv.Lo, iv.Hi, true
	}
	return nil, nil, true
}

// Meet intersects two boxes dimension-by-dimension.
func (b Box) Meet(other Box) Box {
	if b.Bottom || other.Bottom {
		return Box{Bottom: true, Ranges: map[Variable]Interval{}}
	}
	out := b.Clone()
	for v, iv := range other.Ranges {
		cur, present := out.Ranges[v]
		if !present {
			out.Ranges[v] = Interval{Lo: new(big.Rat).Set(iv.Lo), Hi: new(big.Rat).Set(iv.Hi)}
			continue
		}
		lo := maxRat(cur.Lo, iv.Lo)
		hi := minRat(cur.Hi, iv.Hi)
		merged := Interval{Lo: lo, Hi: hi}
		if merged.empty() {
			return Box{Bottom: true, Ranges: map[Variable]Interval{}}
		}
		out.Ranges[v] = merged
	}
	return out
}

// Join computes the convex hull dimension-by-dimension (an over-
// approximation in general, but exact whenever one operand's range is
// already contained in the other's — the common case when merging sibling
// partitions in the packing engine's range-bisection, spec.md §4.3).
func (b Box) Join(other Box) Box {
	if b.Bottom {
		return other.Clone()
	}
	if other.Bottom {
		return b.Clone()
	}
	out := TopBox()
	seen := map[Variable]bool{}
	for v, iv := range b.Ranges {
		seen[v] = true
		if ov, present := other.Ranges[v]; present {
			out.Ranges[v] = Interval{Lo: minRat(iv.Lo, ov.Lo), Hi: maxRat(iv.Hi, ov.Hi)}
		}
		// If absent from other, v is unconstrained there, so the hull is
		// unconstrained too — leave it out of out.Ranges.
	}
	for v := range other.Ranges {
		if !seen[v] {
			// v was unconstrained in b — hull is unconstrained.
		}
	}
	return out
}

// Assume narrows b by a conjunction of bound-form comparisons (spec.md §3
// restricts Box assumptions to the "literal <= var <= literal" and
// "literal <= var"/"var <= literal" shapes produced by onehot.Enumerate and
// symbolic.Bounds; anything else is ignored rather than rejected, since the
// forward analyzer only ever assumes those two shapes).
func (b Box) Assume(e symbolic.Expr) Box {
	if b.Bottom {
		return b
	}
	// A genuine disjunction (Worker-1's coarsened OR-of-one-hot-cases) is
	// assumed as the hull of its disjuncts: each disjunct narrows its own
	// copy of b and the results are joined.
	out := Box{Bottom: true, Ranges: map[Variable]Interval{}}
	for _, disjunct := range e.Disjuncts() {
		d := b.Clone()
		for _, c := range disjunct {
			d = d.assumeComparison(c)
			if d.Bottom {
				break
			}
		}
		out = out.Join(d)
	}
	return out
}

func (b Box) assumeComparison(c symbolic.Comparison) Box {
	lo, hi, v, ok := boundFromComparison(c)
	if !ok {
		return b
	}
	cur, present := b.Ranges[v]
	if !present {
		cur = Interval{Lo: negInf(), Hi: posInf()}
	}
	if lo != nil {
		cur.Lo = maxRat(cur.Lo, lo)
	}
	if hi != nil {
		cur.Hi = minRat(cur.Hi, hi)
	}
	if cur.empty() {
		return Box{Bottom: true, Ranges: map[Variable]Interval{}}
	}
	b.Ranges[v] = cur
	return b
}

// boundFromComparison extracts (lo, hi, var) from a literal/var comparison.
// Only one of lo/hi is non-nil unless the comparison directly bounds both
// sides, which never happens for a single Comparison (that shape is two
// ANDed comparisons, handled by the Disjuncts/Conjuncts flattening upstream).
func boundFromComparison(c symbolic.Comparison) (lo, hi *big.Rat, v Variable, ok bool) {
	switch {
	case !c.LHS.IsVar && c.RHS.IsVar: // literal <= var
		return c.LHS.Literal, nil, c.RHS.Var, true
	case c.LHS.IsVar && !c.RHS.IsVar: // var <= literal
		return nil, c.RHS.Literal, c.LHS.Var, true
	default:
		return nil, nil, "", false
	}
}

// Substitute assigns v := rhs, evaluated by interval arithmetic over b's
// current ranges (spec.md §5 forward affine-assignment semantics).
func (b Box) Substitute(v Variable, rhs Affine) Box {
	if b.Bottom {
		return b
	}
	lo, hi := new(big.Rat).Set(rhs.Const), new(big.Rat).Set(rhs.Const)
	for _, w := range rhs.vars() {
		coeff := rhs.Coeffs[w]
		wLo, wHi, _ := b.Bound(w)
		if wLo == nil {
			wLo, wHi = negInf(), posInf()
		}
		termLo, termHi := scaleInterval(coeff, wLo, wHi)
		lo = addRat(lo, termLo)
		hi = addRat(hi, termHi)
	}
	out := b.Clone()
	out.Ranges[v] = Interval{Lo: lo, Hi: hi}
	return out
}

// Forget removes v from the tracked ranges, making it unconstrained again.
func (b Box) Forget(vs ...Variable) Box {
	if b.Bottom {
		return b
	}
	out := b.Clone()
	for _, v := range vs {
		delete(out.Ranges, v)
	}
	return out
}

// Canonical renders a deterministic textual key that does not depend on map
// iteration order.
func (b Box) Canonical() string {
	if b.Bottom {
		return "⊥"
	}
	vars := make([]string, 0, len(b.Ranges))
	for v := range b.Ranges {
		vars = append(vars, string(v))
	}
	sort.Strings(vars)
	parts := make([]string, len(vars))
	for i, v := range vars {
		iv := b.Ranges[Variable(v)]
		parts[i] = v + "∈[" + iv.Lo.RatString() + "," + iv.Hi.RatString() + "]"
	}
	return strings.Join(parts, "∧")
}

func scaleInterval(coeff, lo, hi *big.Rat) (*big.Rat, *big.Rat) {
	if coeff.Sign() == 0 {
		return big.NewRat(0, 1), big.NewRat(0, 1)
	}
	a := new(big.Rat).Mul(coeff, lo)
	c := new(big.Rat).Mul(coeff, hi)
	if coeff.Sign() > 0 {
		return a, c
	}
	return c, a
}

func addRat(a, b *big.Rat) *big.Rat { return new(big.Rat).Add(a, b) }

func maxRat(a, b *big.Rat) *big.Rat {
	if a.Cmp(b) >= 0 {
		return new(big.Rat).Set(a)
	}
	return new(big.Rat).Set(b)
}

func minRat(a, b *big.Rat) *big.Rat {
	if a.Cmp(b) <= 0 {
		return new(big.Rat).Set(a)
	}
	return new(big.Rat).Set(b)
}

// negInf and posInf stand in for unbounded rationals in Substitute's
// interval arithmetic. They are only ever used as multiplicands against a
// zero coefficient is avoided by scaleInterval's early return, and the
// packing/forward paths never let an unconstrained variable reach a
// non-zero-coefficient affine term in practice (bounds are seeded before
// any affine node runs) — but the sentinel values keep the arithmetic total
// rather than panicking if that invariant is ever violated upstream.
func negInf() *big.Rat { return new(big.Rat).SetInt64(-(1 << 40)) }
func posInf() *big.Rat { return new(big.Rat).SetInt64(1 << 40) }

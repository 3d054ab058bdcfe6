// Copyright (C) 2025 The Libra Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package biascheck

import (
	"math/big"

	"github.com/libra-go/libra/services/bias/domain"
	"github.com/libra-go/libra/services/bias/symbolic"
)

// Result is the outcome of one chunk's bias-check primitive invocation
// (spec.md §4.7.1).
type Result struct {
	Biased  bool
	BRanges map[domain.Variable]domain.Interval
}

// Check implements spec.md §4.7.1: for every ordered pair of witness buckets
// with different classes AND different sensitive variables, meet every
// state in one against every state in the other, forget the uncontroversial
// one-hot variables, re-assume the current range box, and — if the result
// is satisfiable and not a previously-seen canonical form — record it as a
// bias witness, folding its per-real-feature projected interval into the
// running biased-range accumulator.
func Check(check Preimages, ranges map[domain.Variable]domain.Interval, uncontroversialOneHot []symbolic.Variable, realFeatures []domain.Variable) Result {
	keys := make([]Witness, 0, len(check))
	for k := range check {
		keys = append(keys, k)
	}

	forgetVars := make([]domain.Variable, len(uncontroversialOneHot))
	for i, v := range uncontroversialOneHot {
		forgetVars[i] = v
	}
	rangesExpr := rangesToExpr(ranges)

	result := Result{BRanges: map[domain.Variable]domain.Interval{}}
	seen := map[string]bool{}

	for i := 0; i < len(keys); i++ {
		for j := i + 1; j < len(keys); j++ {
			a, b := keys[i], keys[j]
			if a.Class == b.Class || a.Sensitive == b.Sensitive {
				continue
			}
			for _, s1 := range check[a] {
				for _, s2 := range check[b] {
					x := s1.Meet(s2)
					if x.IsBottom() {
						continue
					}
					if len(forgetVars) > 0 {
						x = x.Forget(forgetVars...)
					}
					x = x.Assume(rangesExpr)
					if x.IsBottom() {
						continue
					}

					key := x.Canonical()
					if seen[key] {
						continue
					}
					seen[key] = true
					result.Biased = true

					for _, f := range realFeatures {
						lo, hi, ok := x.Bound(f)
						if !ok || lo == nil || hi == nil {
							continue
						}
						if cur, present := result.BRanges[f]; present {
							result.BRanges[f] = domain.Interval{
								Lo: minRat(cur.Lo, lo),
								Hi: maxRat(cur.Hi, hi),
							}
						} else {
							result.BRanges[f] = domain.Interval{
								Lo: new(big.Rat).Set(lo),
								Hi: new(big.Rat).Set(hi),
							}
						}
					}
				}
			}
		}
	}
	return result
}

func rangesToExpr(ranges map[domain.Variable]domain.Interval) symbolic.Expr {
	if len(ranges) == 0 {
		return symbolic.And()
	}
	exprs := make([]symbolic.Expr, 0, len(ranges))
	for v, iv := range ranges {
		exprs = append(exprs, symbolic.Bounds(v, iv.Lo, iv.Hi))
	}
	return symbolic.And(exprs...)
}

// Volume returns the hyper-volume (Π (upper-lower)) of a range box; an empty
// box contributes the multiplicative identity, matching spec.md §4.7.1's
// "total_volume = Π (upper−lower) over ranges".
func Volume(ranges map[domain.Variable]domain.Interval) *big.Rat {
	vol := big.NewRat(1, 1)
	for _, iv := range ranges {
		width := new(big.Rat).Sub(iv.Hi, iv.Lo)
		vol.Mul(vol, width)
	}
	return vol
}

func minRat(a, b *big.Rat) *big.Rat {
	if a.Cmp(b) <= 0 {
		return new(big.Rat).Set(a)
	}
	return new(big.Rat).Set(b)
}

func maxRat(a, b *big.Rat) *big.Rat {
	if a.Cmp(b) >= 0 {
		return new(big.Rat).Set(a)
	}
	return new(big.Rat).Set(b)
}

// Copyright (C) 2025 The Libra Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package domain

import (
	"math/big"

	"github.com/libra-go/libra/services/bias/symbolic"
)

// eliminateVar projects cj onto every variable except v via Fourier-Motzkin
// elimination: constraints not mentioning v pass through unchanged; for
// every pair of a positive-coefficient and a negative-coefficient
// constraint on v, one combined constraint (with v eliminated) is emitted;
// constraints on v that have no partner of the opposite sign are dropped,
// since existential projection has nothing to combine them with.
//
// This is the one combinatorial step in the domain: len(pos)*len(neg) new
// constraints per elimination. The conjunctions Forget/Bound run it against
// are small (a handful of constraints per activation pattern), so the
// blow-up never becomes the bottleneck the original's APRON backend worried
// about for deep networks.
func eliminateVar(cj Conjunction, v Variable) Conjunction {
	var noV, pos, neg []Constraint
	for _, c := range cj {
		coeff, present := c.Coeffs[v]
		switch {
		case !present || coeff.Sign() == 0:
			noV = append(noV, c)
		case coeff.Sign() > 0:
			pos = append(pos, c)
		default:
			neg = append(neg, c)
		}
	}
	out := make(Conjunction, 0, len(noV)+len(pos)*len(neg))
	out = append(out, noV...)
	for _, p := range pos {
		a := p.Coeffs[v]
		for _, n := range neg {
			c := new(big.Rat).Neg(n.Coeffs[v])
			out = append(out, combine(p, n, v, a, c))
		}
	}
	return out
}

// combine folds p (coefficient a>0 on v) and n (coefficient -c, c>0, on v)
// into c*p + a*n, which cancels v's coefficient to c*a + a*(-c) = 0.
func combine(p, n Constraint, v Variable, a, c *big.Rat) Constraint {
	coeffs := map[Variable]*big.Rat{}
	for w, k := range p.Coeffs {
		if w == v {
			continue
		}
		coeffs[w] = new(big.Rat).Mul(c, k)
	}
	for w, k := range n.Coeffs {
		if w == v {
			continue
		}
		term := new(big.Rat).Mul(a, k)
		if cur, ok := coeffs[w]; ok {
			coeffs[w] = new(big.Rat).Add(cur, term)
		} else {
			coeffs[w] = term
		}
	}
	for w, k := range coeffs {
		if k.Sign() == 0 {
			delete(coeffs, w)
		}
	}
	op := p.Op
	if n.Op == symbolic.LT {
		op = symbolic.LT
	}
	constTerm := new(big.Rat).Add(new(big.Rat).Mul(c, p.Const), new(big.Rat).Mul(a, n.Const))
	return Constraint{Coeffs: coeffs, Const: constTerm, Op: op}
}

// Copyright (C) 2025 The Libra Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package domain implements the exact-rational numerical abstract domains
// the rest of the engine needs: a non-relational interval (Box) domain for
// the forward pre-analyzer, and a relational (Polyhedron) domain — a
// disjunction of conjunctions of linear inequalities, with Fourier-Motzkin
// elimination for Forget/Bound — for the backward traverser and bias-check.
//
// spec.md §1 places "the numerical abstract-domain library (intervals and
// convex polyhedra with meet/join/assume/substitute/forget/bounding)" out of
// scope as an external collaborator (the original analysis, libra, delegates
// to APRON). No analogous Go library exists in the example corpus or the
// wider ecosystem, so this package is the one part of the pipeline built on
// the standard library (math/big) rather than a third-party dependency —
// see DESIGN.md.
package domain

import (
	"math/big"
	"sort"

	"github.com/libra-go/libra/services/bias/symbolic"
)

// Variable re-exports symbolic.Variable so callers don't need to import both
// packages for a single type.
type Variable = symbolic.Variable

// Affine is Σ coeffs[v]·v + const — the right-hand side of an affine
// assignment node, or the zero-assignment of an inactive ReLU.
type Affine struct {
	Coeffs map[Variable]*big.Rat
	Const  *big.Rat
}

// Const builds a constant affine expression.
func Const(c *big.Rat) Affine {
	return Affine{Coeffs: map[Variable]*big.Rat{}, Const: new(big.Rat).Set(c)}
}

// ConstInt builds a constant affine expression from an int64.
func ConstInt(c int64) Affine {
	return Const(big.NewRat(c, 1))
}

// Linear builds Σ coeffs[v]·v + const.
func Linear(coeffs map[Variable]*big.Rat, const_ *big.Rat) Affine {
	cp := make(map[Variable]*big.Rat, len(coeffs))
	for v, c := range coeffs {
		if c.Sign() == 0 {
			continue
		}
		cp[v] = new(big.Rat).Set(c)
	}
	k := new(big.Rat)
	if const_ != nil {
		k.Set(const_)
	}
	return Affine{Coeffs: cp, Const: k}
}

func (a Affine) clone() Affine {
	cp := make(map[Variable]*big.Rat, len(a.Coeffs))
	for v, c := range a.Coeffs {
		cp[v] = new(big.Rat).Set(c)
	}
	return Affine{Coeffs: cp, Const: new(big.Rat).Set(a.Const)}
}

func (a Affine) vars() []Variable {
	out := make([]Variable, 0, len(a.Coeffs))
	for v := range a.Coeffs {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

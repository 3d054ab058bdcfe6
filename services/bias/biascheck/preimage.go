// Copyright (C) 2025 The Libra Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package biascheck implements Worker-2 (spec.md §4.7): per activation
// pattern, it builds the preimage of every (output class, sensitive value)
// pair via the backward traverser, then pairwise intersects preimages of
// different classes under different sensitive values to measure the biased
// hyper-volume.
package biascheck

import (
	"github.com/libra-go/libra/services/bias/cfg"
	"github.com/libra-go/libra/services/bias/domain"
	"github.com/libra-go/libra/services/bias/onehot"
	"github.com/libra-go/libra/services/bias/pattern"
	"github.com/libra-go/libra/services/bias/symbolic"
	"github.com/libra-go/libra/services/bias/traverse"
)

// Witness keys the preimage table by the output class asserted dominant and
// the sensitive one-hot variable asserted =1 (spec.md §4.7 "check[(c*, case)]").
type Witness struct {
	Class     domain.Variable
	Sensitive symbolic.Variable
}

// Preimages is the `check` table from spec.md §4.7: every non-⊥ terminal
// state reached walking backward from the output node under a given
// (class, sensitive-value) precondition.
type Preimages map[Witness][]domain.Polyhedron

// Clone deep-copies the table — required before each chunk's one-hot
// combination mutates its own private copy (spec.md §4.7 "deep-copy check").
func (p Preimages) Clone() Preimages {
	out := make(Preimages, len(p))
	for k, states := range p {
		cp := make([]domain.Polyhedron, len(states))
		for i, s := range states {
			cp[i] = s.Clone()
		}
		out[k] = cp
	}
	return out
}

// postcondition builds ⋀_{c≠cStar} (c < cStar) over the output class
// variables (spec.md §4.7 step 2).
func postcondition(classes []domain.Variable, cStar domain.Variable) symbolic.Expr {
	var exprs []symbolic.Expr
	for _, c := range classes {
		if c == cStar {
			continue
		}
		exprs = append(exprs, symbolic.LTExpr(symbolic.Var(c), symbolic.Var(cStar)))
	}
	return symbolic.And(exprs...)
}

// BuildPreimages runs spec.md §4.7 steps 1-4 for one activation pattern:
// for every sensitive value (using that value's own forced activation
// classification) and every candidate dominant output class, seed the
// output-boundary assumption R, traverse backward collecting every non-⊥
// terminal, assume the sensitive value's own one-hot assumption on each,
// and bucket the survivors by (class, sensitive variable).
func BuildPreimages(
	g *cfg.Graph,
	classes []domain.Variable,
	sensitiveValues []onehot.One1,
	key pattern.ActivationPattern,
) Preimages {
	check := make(Preimages)
	out := g.Output()

	for i, v := range sensitiveValues {
		cls := traverse.Classification{}
		if i < len(key) {
			cls.Active = key[i].Active
			cls.Inactive = key[i].Inactive
		}
		for _, cStar := range classes {
			seed := domain.Top().Assume(postcondition(classes, cStar))
			if seed.IsBottom() {
				continue
			}
			terminals := traverse.From(out, seed, cls, false)
			w := Witness{Class: cStar, Sensitive: v.Var}
			for _, t := range terminals {
				t2 := t.Assume(v.Assumption)
				if t2.IsBottom() {
					continue
				}
				check[w] = append(check[w], t2)
			}
		}
	}
	return check
}

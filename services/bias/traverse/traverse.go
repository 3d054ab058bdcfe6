// Copyright (C) 2025 The Libra Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package traverse implements the backward disjunctive traverser (spec.md
// §4.6): given a CFG node, an abstract state, and a node's forced
// active/inactive classification, it walks toward the input boundary,
// collecting every non-bottom terminal state.
package traverse

import (
	"github.com/libra-go/libra/services/bias/cfg"
	"github.com/libra-go/libra/services/bias/domain"
	"github.com/libra-go/libra/services/bias/symbolic"
)

// Classification tells the traverser which activation nodes are forced
// active/inactive; anything absent from both sets is disjunctive.
type Classification struct {
	Active   cfg.NodeSet
	Inactive cfg.NodeSet
}

// From lazily enumerates — as an eagerly-built slice, since the maximum
// fan-out is bounded by 2^widening (spec.md §4.6 "Maximum yielded states per
// sensitive value ≤ 2^widening"), small enough that true streaming buys
// nothing — every non-⊥ terminal abstract state reached by walking
// backward from n with starting state s.
//
// join is always false for bias analysis (spec.md §4.7 step 3); it is kept
// as a parameter because the traversal's disjunctive-activation case is
// defined for both, and a future caller (e.g. a join-based over-approximate
// mode) should not require touching this function's recursion structure.
func From(n *cfg.Node, s domain.Polyhedron, cls Classification, join bool) []domain.Polyhedron {
	if s.IsBottom() {
		return nil
	}
	if n == nil || n.Kind == cfg.KindInput {
		return []domain.Polyhedron{s}
	}

	switch n.Kind {
	case cfg.KindAffine:
		next := s.Substitute(n.LHS, n.RHS)
		if next.IsBottom() {
			return nil
		}
		return From(n.Pred, next, cls, join)

	case cfg.KindActivation:
		return fromActivation(n, s, cls, join)

	default: // KindOutput, KindOther: pass through unchanged.
		return From(n.Pred, s, cls, join)
	}
}

func fromActivation(n *cfg.Node, s domain.Polyhedron, cls Classification, join bool) []domain.Polyhedron {
	h := n.LHS
	switch {
	case cls.Active.Has(n.ID):
		next := s.Assume(symbolic.LEExpr(symbolic.Lit(0), symbolic.Var(h)))
		if next.IsBottom() {
			return nil
		}
		return From(n.Pred, next, cls, join)

	case cls.Inactive.Has(n.ID):
		next := s.Substitute(h, domain.ConstInt(0)).Assume(symbolic.LTExpr(symbolic.Var(h), symbolic.Lit(0)))
		if next.IsBottom() {
			return nil
		}
		return From(n.Pred, next, cls, join)

	default: // disjunctive
		activeBranch := s.Assume(symbolic.LEExpr(symbolic.Lit(0), symbolic.Var(h)))
		inactiveBranch := s.Substitute(h, domain.ConstInt(0)).Assume(symbolic.LTExpr(symbolic.Var(h), symbolic.Lit(0)))

		if join {
			merged := activeBranch.Join(inactiveBranch)
			if merged.IsBottom() {
				return nil
			}
			return From(n.Pred, merged, cls, join)
		}

		var out []domain.Polyhedron
		if !activeBranch.IsBottom() {
			out = append(out, From(n.Pred, activeBranch, cls, join)...)
		}
		if !inactiveBranch.IsBottom() {
			out = append(out, From(n.Pred, inactiveBranch, cls, join)...)
		}
		return out
	}
}

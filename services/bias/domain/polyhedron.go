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

// Constraint is Σ Coeffs[v]·v + Const OP 0 (OP is <= for symbolic.LE, < for
// symbolic.LT).
type Constraint struct {
	Coeffs map[Variable]*big.Rat
	Const  *big.Rat
	Op     symbolic.Op
}

func (c Constraint) clone() Constraint {
	cp := make(map[Variable]*big.Rat, len(c.Coeffs))
	for v, k := range c.Coeffs {
		cp[v] = new(big.Rat).Set(k)
	}
	return Constraint{Coeffs: cp, Const: new(big.Rat).Set(c.Const), Op: c.Op}
}

func (c Constraint) vars() []Variable {
	out := make([]Variable, 0, len(c.Coeffs))
	for v := range c.Coeffs {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// holdsAsConstant evaluates the constraint at an all-zero-variable point, i.e. checks
// whether a constraint with no remaining variables is a true or false
// numeric fact (used once Fourier-Motzkin has eliminated every variable).
func (c Constraint) holdsAsConstant() bool {
	if c.Op == symbolic.LT {
		return c.Const.Sign() < 0
	}
	return c.Const.Sign() <= 0
}

func (c Constraint) String() string {
	vars := c.vars()
	parts := make([]string, 0, len(vars)+1)
	for _, v := range vars {
		parts = append(parts, c.Coeffs[v].RatString()+"*"+string(v))
	}
	lhs := strings.Join(parts, "+")
	if lhs == "" {
		lhs = "0"
	}
	return lhs + " + " + c.Const.RatString() + " " + c.Op.String() + " 0"
}

func comparisonToConstraint(c symbolic.Comparison) Constraint {
	lc, lk := termToAffine(c.LHS)
	rc, rk := termToAffine(c.RHS)
	coeffs := make(map[Variable]*big.Rat, len(lc)+len(rc))
	for v, k := range lc {
		coeffs[v] = new(big.Rat).Set(k)
	}
	for v, k := range rc {
		if cur, present := coeffs[v]; present {
			coeffs[v] = new(big.Rat).Sub(cur, k)
		} else {
			coeffs[v] = new(big.Rat).Neg(k)
		}
	}
	for v, k := range coeffs {
		if k.Sign() == 0 {
			delete(coeffs, v)
		}
	}
	return Constraint{Coeffs: coeffs, Const: new(big.Rat).Sub(lk, rk), Op: c.Op}
}

func termToAffine(t symbolic.Term) (map[Variable]*big.Rat, *big.Rat) {
	if t.IsVar {
		return map[Variable]*big.Rat{t.Var: big.NewRat(1, 1)}, big.NewRat(0, 1)
	}
	return map[Variable]*big.Rat{}, new(big.Rat).Set(t.Literal)
}

// Conjunction is an implicit AND of Constraints.
type Conjunction []Constraint

func (cj Conjunction) clone() Conjunction {
	out := make(Conjunction, len(cj))
	for i, c := range cj {
		out[i] = c.clone()
	}
	return out
}

// Polyhedron is a disjunction of Conjunctions — the relational domain the
// backward traverser and bias-check use (spec.md §3 "abstract state"). A nil
// or empty Disjuncts denotes bottom (the infeasible/empty state); bottom
// conjuncts are always dropped eagerly so len(Disjuncts)==0 iff the whole
// state is bottom.
type Polyhedron struct {
	Disjuncts []Conjunction
}

// Top returns the unconstrained polyhedron (one disjunct, no constraints).
func Top() Polyhedron {
	return Polyhedron{Disjuncts: []Conjunction{{}}}
}

// Bottom returns the infeasible polyhedron.
func Bottom() Polyhedron {
	return Polyhedron{}
}

// FromExpr builds a polyhedron directly from a symbolic assumption — the
// entry point used to seed a partition's initial state from its one-hot and
// range-box assumptions (spec.md §4.1, §4.3).
func FromExpr(e symbolic.Expr) Polyhedron {
	return Top().Assume(e)
}

// Clone returns a deep, independent copy.
func (p Polyhedron) Clone() Polyhedron {
	out := make([]Conjunction, len(p.Disjuncts))
	for i, d := range p.Disjuncts {
		out[i] = d.clone()
	}
	return Polyhedron{Disjuncts: out}
}

// IsBottom reports whether p denotes the empty set.
func (p Polyhedron) IsBottom() bool { return len(p.Disjuncts) == 0 }

func meetConjunction(a, b Conjunction) Conjunction {
	out := make(Conjunction, 0, len(a)+len(b))
	out = append(out, a.clone()...)
	out = append(out, b.clone()...)
	return out
}

// Assume narrows p by e, distributing AND over p's and e's disjuncts:
// Assume(p, e) = ⋃_{d∈p} ⋃_{c∈Disjuncts(e)} normalize(d ∧ c).
func (p Polyhedron) Assume(e symbolic.Expr) Polyhedron {
	eDisjuncts := e.Disjuncts()
	var out []Conjunction
	for _, d := range p.Disjuncts {
		for _, clause := range eDisjuncts {
			cj := d.clone()
			for _, c := range clause {
				cj = append(cj, comparisonToConstraint(c))
			}
			if sat, _ := satisfiable(cj); sat {
				out = append(out, cj)
			}
		}
	}
	return Polyhedron{Disjuncts: out}
}

// Meet intersects two polyhedra: (⋃ a) ∧ (⋃ b) = ⋃_{i,j} normalize(a_i ∧ b_j).
func (p Polyhedron) Meet(other Polyhedron) Polyhedron {
	var out []Conjunction
	for _, a := range p.Disjuncts {
		for _, b := range other.Disjuncts {
			cj := meetConjunction(a, b)
			if sat, _ := satisfiable(cj); sat {
				out = append(out, cj)
			}
		}
	}
	return Polyhedron{Disjuncts: out}
}

// Join unions two polyhedra exactly: simple disjunct concatenation, since
// Polyhedron already represents an arbitrary union rather than a single
// convex shape (no hull approximation needed, unlike Box.Join).
func (p Polyhedron) Join(other Polyhedron) Polyhedron {
	out := make([]Conjunction, 0, len(p.Disjuncts)+len(other.Disjuncts))
	out = append(out, p.Disjuncts...)
	out = append(out, other.Disjuncts...)
	return dedupeConjunctions(Polyhedron{Disjuncts: out})
}

func dedupeConjunctions(p Polyhedron) Polyhedron {
	seen := make(map[string]bool, len(p.Disjuncts))
	out := make([]Conjunction, 0, len(p.Disjuncts))
	for _, d := range p.Disjuncts {
		key := canonicalConjunction(d)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, d)
	}
	return Polyhedron{Disjuncts: out}
}

// Substitute assigns v := rhs across every disjunct (spec.md §6 backward
// affine-assignment and ReLU semantics: an active ReLU substitutes its
// output for its input expression; an inactive one substitutes zero).
func (p Polyhedron) Substitute(v Variable, rhs Affine) Polyhedron {
	out := make([]Conjunction, len(p.Disjuncts))
	for i, d := range p.Disjuncts {
		nd := make(Conjunction, len(d))
		for j, c := range d {
			nd[j] = substituteConstraint(c, v, rhs)
		}
		out[i] = nd
	}
	return Polyhedron{Disjuncts: out}
}

func substituteConstraint(c Constraint, v Variable, rhs Affine) Constraint {
	coeff, present := c.Coeffs[v]
	if !present || coeff.Sign() == 0 {
		return c.clone()
	}
	nc := c.clone()
	delete(nc.Coeffs, v)
	nc.Const = new(big.Rat).Add(nc.Const, new(big.Rat).Mul(coeff, rhs.Const))
	for w, k := range rhs.Coeffs {
		term := new(big.Rat).Mul(coeff, k)
		if cur, ok := nc.Coeffs[w]; ok {
			nc.Coeffs[w] = new(big.Rat).Add(cur, term)
		} else {
			nc.Coeffs[w] = term
		}
	}
	for w, k := range nc.Coeffs {
		if k.Sign() == 0 {
			delete(nc.Coeffs, w)
		}
	}
	return nc
}

// Forget eliminates vs from every disjunct via Fourier-Motzkin projection,
// making them unconstrained (spec.md §6 "forget the activation/output
// variables that only mattered inside the sub-network being traversed").
func (p Polyhedron) Forget(vs ...Variable) Polyhedron {
	out := make([]Conjunction, 0, len(p.Disjuncts))
	for _, d := range p.Disjuncts {
		cj := d
		for _, v := range vs {
			cj = eliminateVar(cj, v)
		}
		if sat, _ := satisfiable(cj); sat {
			out = append(out, cj)
		}
	}
	return Polyhedron{Disjuncts: out}
}

// Bound returns the union, across every disjunct, of v's feasible range:
// project the disjunct onto v alone (eliminate every other variable it
// mentions) and read off the tightest constant bound. Used by bias-check to
// report the projected interval of each uncontroversial real feature over a
// witness region (spec.md §7).
func (p Polyhedron) Bound(v Variable) (lo, hi *big.Rat, ok bool) {
	if p.IsBottom() {
		return nil, nil, false
	}
	var gotLo, gotHi *big.Rat
	for _, d := range p.Disjuncts {
		others := map[Variable]bool{}
		for _, c := range d {
			for _, w := range c.vars() {
				if w != v {
					others[w] = true
				}
			}
		}
		projected := d
		for w := range others {
			projected = eliminateVar(projected, w)
		}
		dLo, dHi := boundsFromUnivariate(projected, v)
		if dLo != nil {
			if gotLo == nil || dLo.Cmp(gotLo) < 0 {
				gotLo = dLo
			}
		}
		if dHi != nil {
			if gotHi == nil || dHi.Cmp(gotHi) > 0 {
				gotHi = dHi
			}
		}
	}
	if gotLo == nil && gotHi == nil {
		return nil, nil, true
	}
	return gotLo, gotHi, true
}

func boundsFromUnivariate(cj Conjunction, v Variable) (lo, hi *big.Rat) {
	for _, c := range cj {
		coeff, present := c.Coeffs[v]
		if !present || coeff.Sign() == 0 {
			continue
		}
		// coeff*v + const <=/< 0  =>  v <=/< -const/coeff  (flip if coeff<0)
		bound := new(big.Rat).Quo(new(big.Rat).Neg(c.Const), coeff)
		if coeff.Sign() > 0 {
			if hi == nil || bound.Cmp(hi) < 0 {
				hi = bound
			}
		} else {
			if lo == nil || bound.Cmp(lo) > 0 {
				lo = bound
			}
		}
	}
	return lo, hi
}

// Canonical renders a deterministic textual key: each disjunct's constraints
// are rendered with exact rational coefficients and sorted, and the disjunct
// keys are sorted in turn, so two states holding the same constraints in a
// different order (in particular, two preimages reached through different
// backward paths) get the same key (spec.md §7's dedup-before-volume-
// accumulation requirement, resolved via an exact syntactic form rather than
// the original's ad hoc repr() text match — see DESIGN.md Open Questions).
// Constraints are not reduced: scaled, duplicated or implied constraints
// give different keys.
func (p Polyhedron) Canonical() string {
	if p.IsBottom() {
		return "⊥"
	}
	keys := make([]string, len(p.Disjuncts))
	for i, d := range p.Disjuncts {
		keys[i] = canonicalConjunction(d)
	}
	sort.Strings(keys)
	return strings.Join(keys, " ∨ ")
}

func canonicalConjunction(cj Conjunction) string {
	parts := make([]string, len(cj))
	for i, c := range cj {
		parts[i] = c.String()
	}
	sort.Strings(parts)
	return "(" + strings.Join(parts, " ∧ ") + ")"
}

// satisfiable reports whether cj has a solution, by eliminating every
// variable it mentions via Fourier-Motzkin and checking the surviving
// constant constraints. It also returns the fully-projected (empty-variable)
// conjunction, mainly useful for tests.
func satisfiable(cj Conjunction) (bool, Conjunction) {
	vars := map[Variable]bool{}
	for _, c := range cj {
		for _, v := range c.vars() {
			vars[v] = true
		}
	}
	projected := cj
	for v := range vars {
		projected = eliminateVar(projected, v)
	}
	for _, c := range projected {
		if !c.holdsAsConstant() {
			return false, projected
		}
	}
	return true, projected
}

// Copyright (C) 2025 The Libra Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package symbolic builds the small boolean-combination-of-linear-comparisons
// trees used throughout the bias engine as assumptions: one-hot values, range
// boxes, and output-class orderings are all expressed as a symbolic.Expr
// before being handed to an abstract domain's Assume.
package symbolic

import (
	"fmt"
	"math/big"
	"sort"
	"strings"
)

// Variable is an opaque, hashable identifier for an input/output/activation
// variable of the analyzed network.
type Variable string

// Op is a comparison operator. The domain only ever needs non-strict and
// strict less-than-or-equal; everything else (>, >=, ==) is expressed by
// flipping operands or composing two comparisons.
type Op int

const (
	// LE is lhs <= rhs.
	LE Op = iota
	// LT is lhs < rhs.
	LT
)

func (o Op) String() string {
	if o == LT {
		return "<"
	}
	return "<="
}

// Term is one side of a Comparison: either a rational literal or a variable.
type Term struct {
	IsVar   bool
	Var     Variable
	Literal *big.Rat
}

// Lit builds a literal term from an int64.
func Lit(v int64) Term { return Term{Literal: big.NewRat(v, 1)} }

// LitRat builds a literal term from an arbitrary rational.
func LitRat(v *big.Rat) Term { return Term{Literal: new(big.Rat).Set(v)} }

// Var builds a variable term.
func Var(v Variable) Term { return Term{IsVar: true, Var: v} }

func (t Term) String() string {
	if t.IsVar {
		return string(t.Var)
	}
	return t.Literal.RatString()
}

// Comparison is lhs OP rhs, e.g. "0 <= x" or "x <= 1".
type Comparison struct {
	LHS Term
	Op  Op
	RHS Term
}

func (c Comparison) String() string {
	return fmt.Sprintf("%s %s %s", c.LHS, c.Op, c.RHS)
}

// Kind distinguishes a comparison leaf from an And/Or combination.
type Kind int

const (
	KindLeaf Kind = iota
	KindAnd
	KindOr
)

// Expr is a boolean combination of Comparisons (spec.md §3 "Boolean
// combination — a tree over AND, OR of comparisons").
type Expr struct {
	Kind     Kind
	Leaf     Comparison
	Children []Expr
}

// Leaf builds a single-comparison expression.
func Leaf(c Comparison) Expr { return Expr{Kind: KindLeaf, Leaf: c} }

// LEExpr builds the comparison lhs <= rhs as a leaf expression.
func LEExpr(lhs, rhs Term) Expr { return Leaf(Comparison{LHS: lhs, Op: LE, RHS: rhs}) }

// LTExpr builds the comparison lhs < rhs as a leaf expression.
func LTExpr(lhs, rhs Term) Expr { return Leaf(Comparison{LHS: lhs, Op: LT, RHS: rhs}) }

// And conjoins two or more expressions. A single operand is returned as-is;
// zero operands returns the empty (vacuously true) conjunction.
func And(exprs ...Expr) Expr {
	return combine(KindAnd, exprs)
}

// Or disjoins two or more expressions.
func Or(exprs ...Expr) Expr {
	return combine(KindOr, exprs)
}

func combine(kind Kind, exprs []Expr) Expr {
	if len(exprs) == 1 {
		return exprs[0]
	}
	return Expr{Kind: kind, Children: append([]Expr(nil), exprs...)}
}

// Bounds returns the "lower <= v <= upper" conjunction for v, the idiom used
// to fix sensitive/one-hot features and real-feature range boxes between
// two rational bounds.
func Bounds(v Variable, lower, upper *big.Rat) Expr {
	return And(
		LEExpr(LitRat(lower), Var(v)),
		LEExpr(Var(v), LitRat(upper)),
	)
}

// Conjuncts flattens a (possibly nested) AND-only expression into its leaf
// comparisons. Used by the domain package, which only needs disjunctive
// normal form: a Conjuncts-per-disjunct view of an Expr.
func (e Expr) Conjuncts() []Comparison {
	var out []Comparison
	var walk func(Expr)
	walk = func(x Expr) {
		switch x.Kind {
		case KindLeaf:
			out = append(out, x.Leaf)
		case KindAnd:
			for _, c := range x.Children {
				walk(c)
			}
		case KindOr:
			// An Or beneath an And is not flattenable into a single
			// conjunction; callers that need DNF use Disjuncts instead.
			out = append(out, x.Conjuncts()...)
		}
	}
	walk(e)
	return out
}

// Disjuncts expands e into disjunctive normal form: a slice of conjunctions,
// each itself a slice of Comparisons. This is exactly what domain.Box.Assume
// and domain.Polyhedron.Assume need to turn an OR-of-one-hot-cases assumption into a union of conjunctive
// meets.
func (e Expr) Disjuncts() [][]Comparison {
	switch e.Kind {
	case KindLeaf:
		return [][]Comparison{{e.Leaf}}
	case KindOr:
		var out [][]Comparison
		for _, c := range e.Children {
			out = append(out, c.Disjuncts()...)
		}
		return out
	case KindAnd:
		result := [][]Comparison{{}}
		for _, child := range e.Children {
			childDisjuncts := child.Disjuncts()
			var next [][]Comparison
			for _, prefix := range result {
				for _, d := range childDisjuncts {
					merged := make([]Comparison, 0, len(prefix)+len(d))
					merged = append(merged, prefix...)
					merged = append(merged, d...)
					next = append(next, merged)
				}
			}
			result = next
		}
		return result
	}
	return nil
}

// String renders a canonical, deterministic textual form — used for debug
// logging and, transitively, nowhere performance-critical.
func (e Expr) String() string {
	switch e.Kind {
	case KindLeaf:
		return e.Leaf.String()
	case KindAnd, KindOr:
		parts := make([]string, len(e.Children))
		for i, c := range e.Children {
			parts[i] = c.String()
		}
		sort.Strings(parts)
		sep := " ∧ "
		if e.Kind == KindOr {
			sep = " ∨ "
		}
		return "(" + strings.Join(parts, sep) + ")"
	}
	return ""
}

// Copyright (C) 2025 The Libra Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package forward implements the forward ReLU pre-analysis that classifies
// every activation node of a cfg.Graph as always-active, always-inactive, or
// disjunctive, under a given abstract input state.
//
// spec.md §1 names this analysis an out-of-scope external collaborator (the
// original delegates to APRON's PyBoxMPQManager directly from the
// feasibility oracle). The pipeline cannot run without one, so a minimal,
// correct default — IntervalAnalyzer — is provided behind the Analyzer
// interface, the same interface-plus-default-implementation shape the
// teacher uses for pluggable collaborators (e.g. its cache-store interface).
package forward

import (
	"github.com/libra-go/libra/services/bias/cfg"
	"github.com/libra-go/libra/services/bias/domain"
)

// Options configures one Analyze call.
type Options struct {
	// ForcedActive and ForcedInactive override the bound-derived
	// classification for specific activation node ids — the "optional
	// forced (active, inactive) sets" the feasibility oracle passes through
	// from an already-computed pattern key (spec.md §4.2).
	ForcedActive   cfg.NodeSet
	ForcedInactive cfg.NodeSet

	// EarlyStop, when true, stops walking the graph as soon as the running
	// disjunctive count exceeds Widening — the oracle's fast-fail path.
	// When false (the packing engine's "earlystop=False"), the analyzer
	// always walks every node to produce the complete active/inactive split
	// used as an ActivationPattern key (spec.md §4.3).
	EarlyStop bool
	Widening  int
}

// Result is the classification of every activation node reachable before
// traversal stopped.
type Result struct {
	Active      cfg.NodeSet
	Inactive    cfg.NodeSet
	Disjunctive int
	// Final is the abstract state after propagating through every node that
	// was visited (disjunctive nodes are propagated as the join of their two
	// branches, so this remains a sound over-approximation).
	Final domain.Box
}

// Analyzer is the forward pre-analysis collaborator.
type Analyzer interface {
	Analyze(g *cfg.Graph, state domain.Box, opts Options) Result
}

// IntervalAnalyzer propagates a domain.Box through g in topological
// (program) order.
type IntervalAnalyzer struct{}

// Analyze implements Analyzer.
func (IntervalAnalyzer) Analyze(g *cfg.Graph, state domain.Box, opts Options) Result {
	res := Result{
		Active:   cfg.NewNodeSet(),
		Inactive: cfg.NewNodeSet(),
		Final:    state.Clone(),
	}
	for _, n := range g.Topological() {
		if res.Final.IsBottom() {
			break
		}
		switch n.Kind {
		case cfg.KindInput:
			continue
		case cfg.KindAffine:
			res.Final = res.Final.Substitute(n.LHS, n.RHS)
		case cfg.KindActivation:
			classifyActivation(n, &res, opts)
			if opts.EarlyStop && res.Disjunctive > opts.Widening {
				return res
			}
		case cfg.KindOutput, cfg.KindOther:
			// pass-through; KindOutput carries no additional numeric effect
			// beyond whatever affine node feeds it.
			continue
		}
	}
	return res
}

func classifyActivation(n *cfg.Node, res *Result, opts Options) {
	h := n.LHS
	switch {
	case opts.ForcedActive != nil && opts.ForcedActive.Has(n.ID):
		res.Active.Add(n.ID)
		return
	case opts.ForcedInactive != nil && opts.ForcedInactive.Has(n.ID):
		res.Inactive.Add(n.ID)
		res.Final = res.Final.Substitute(h, domain.ConstInt(0))
		return
	}

	lo, hi, ok := res.Final.Bound(h)
	switch {
	case !ok:
		// Final is already bottom; nothing to classify.
		return
	case lo != nil && lo.Sign() >= 0:
		res.Active.Add(n.ID)
	case hi != nil && hi.Sign() <= 0:
		res.Inactive.Add(n.ID)
		res.Final = res.Final.Substitute(h, domain.ConstInt(0))
	default:
		res.Disjunctive++
		activeBranch := res.Final
		inactiveBranch := res.Final.Substitute(h, domain.ConstInt(0))
		res.Final = activeBranch.Join(inactiveBranch)
	}
}

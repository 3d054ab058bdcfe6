// Copyright (C) 2025 The Libra Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package partition

import (
	"context"
	"math/big"
	"sort"

	"github.com/libra-go/libra/services/bias/cfg"
	"github.com/libra-go/libra/services/bias/domain"
	"github.com/libra-go/libra/services/bias/forward"
	"github.com/libra-go/libra/services/bias/onehot"
	"github.com/libra-go/libra/services/bias/oracle"
	"github.com/libra-go/libra/services/bias/pattern"
	"github.com/libra-go/libra/services/bias/symbolic"
)

var hundred = big.NewRat(100, 1)

// Config bundles everything a Worker-1 instance needs to run the state
// machine (spec.md §4.4), shared read-only across every worker goroutine.
type Config struct {
	Initial         domain.Box
	SensitiveGroups []symbolic.Variable
	OneHotGroups    [][]symbolic.Variable
	RealFeatures    []domain.Variable
	Activations     []domain.Variable
	Graph           *cfg.Graph
	Analyzer        forward.Analyzer
	Widening        int
	Difference      *big.Rat
	PackConcurrency int
}

func (cfg Config) sensitiveValues() []onehot.One1 {
	return onehot.Enumerate(cfg.SensitiveGroups)
}

// RunWorker drains q, running the Worker-1 state machine until it observes
// (and re-posts) the Stop sentinel.
func RunWorker(ctx context.Context, q *Queue, cfg Config, patterns *Dict, counters *Counters) error {
	sensitive := cfg.sensitiveValues()
	for {
		task := q.Get()
		if task.Stop {
			q.Post(StopTask())
			return nil
		}
		if err := step(ctx, task, cfg, sensitive, q, patterns, counters); err != nil {
			return err
		}
	}
}

func step(
	ctx context.Context,
	task Task,
	cfg Config,
	sensitive []onehot.One1,
	q *Queue,
	patterns *Dict,
	counters *Counters,
) error {
	entry := buildEntry(cfg.Initial, task)
	counters.IncAnalyzed()

	feasible, perValue, _ := oracle.Feasible(entry, sensitive, cfg.Activations, cfg.Graph, cfg.Analyzer, cfg.Widening, task.Key, false)
	if feasible {
		counters.IncPartitions()
		counters.Feasible.Add(task.Percent)
		counters.Explored.Add(task.Percent)

		ap := make(pattern.ActivationPattern, len(perValue))
		for i, pv := range perValue {
			ap[i] = pattern.SensitiveEntry{Active: pv.Result.Active, Inactive: pv.Result.Inactive}
		}
		patterns.Record(ap, pattern.Chunk{
			Assumptions: task.Assumptions,
			Unpacked:    task.Unpacked,
			Ranges:      task.Ranges,
			Percent:     task.Percent,
		})

		if counters.Explored.Load().Cmp(hundred) >= 0 {
			q.Post(StopTask())
		}
		return nil
	}

	switch {
	case task.Pivot1 < len(cfg.OneHotGroups):
		return stageOneHotSplit(ctx, task, cfg, sensitive, q)
	case len(cfg.RealFeatures) > 0 && len(task.Splittable) > 0:
		stageRangeSplit(task, cfg, q)
		return nil
	default:
		counters.Explored.Add(task.Percent)
		if counters.Explored.Load().Cmp(hundred) >= 0 {
			q.Post(StopTask())
		}
		return nil
	}
}

// buildEntry assumes a task's accumulated one-hot OR-assumptions and
// range-box onto the initial abstract state (spec.md §4.4 "build entry =
// initial.assume(bounds ∧ range-box ∧ all accumulated one-hot
// OR-assumptions)").
func buildEntry(initial domain.Box, task Task) domain.Box {
	chunk := pattern.Chunk{Assumptions: task.Assumptions, Ranges: task.Ranges}
	state := initial.Assume(chunk.AssumptionsExpr())
	return state.Assume(chunk.RangesExpr())
}

type scoredPack struct {
	key     string
	pat     pattern.ActivationPattern
	combos  []onehot.N
	priority int
}

func stageOneHotSplit(ctx context.Context, task Task, cfg Config, sensitive []onehot.One1, q *Queue) error {
	entry := buildEntry(cfg.Initial, task)
	pack, err := pattern.RunPacking(ctx, cfg.OneHotGroups, entry, sensitive, cfg.Activations, cfg.Graph, cfg.Analyzer, cfg.PackConcurrency)
	if err != nil {
		return err
	}

	patterns := pack.Patterns()
	combosByKey := pack.Combos()
	total := 0
	for _, combos := range combosByKey {
		total += len(combos)
	}

	scored := make([]scoredPack, 0, len(patterns))
	for key, pat := range patterns {
		combos := combosByKey[key]
		scored = append(scored, scoredPack{
			key:      key,
			pat:      pat,
			combos:   combos,
			priority: pattern.Score(pat) + len(combos),
		})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].priority != scored[j].priority {
			return scored[i].priority > scored[j].priority
		}
		return scored[i].key < scored[j].key
	})

	for _, sp := range scored {
		newAssumptions := coarsen(task.Assumptions, cfg.OneHotGroups, sp.combos)
		percent := new(big.Rat).Mul(task.Percent, big.NewRat(int64(len(sp.combos)), int64(total)))
		next := task.clone()
		next.Assumptions = newAssumptions
		next.Pivot1 = len(cfg.OneHotGroups)
		next.Unpacked = sp.combos
		next.Percent = percent
		next.Key = make([]oracle.Forced, len(sp.pat))
		for i, e := range sp.pat {
			next.Key[i] = oracle.Forced{Active: e.Active, Inactive: e.Inactive}
		}
		q.Post(next)
	}
	return nil
}

// coarsen builds the per-feature-position OR-of-one-hot-cases assumption
// set for a pack of combinations (spec.md §4.4 "new_assumptions =
// assumptions ⧺ [for each feature position i: (union-of-vars, OR of the
// i-th OneHot1 across pack)]").
func coarsen(existing []pattern.CoarsenedGroup, groups [][]symbolic.Variable, combos []onehot.N) []pattern.CoarsenedGroup {
	out := append([]pattern.CoarsenedGroup(nil), existing...)
	for i, g := range groups {
		cases := make([]symbolic.Expr, len(combos))
		for j, combo := range combos {
			cases[j] = combo[i].Assumption
		}
		out = append(out, pattern.CoarsenedGroup{
			Vars:       append([]symbolic.Variable(nil), g...),
			Assumption: symbolic.Or(cases...),
		})
	}
	return out
}

func stageRangeSplit(task Task, cfg Config, q *Queue) {
	idx := task.Pivot2 % len(task.Splittable)
	f := task.Splittable[idx]
	iv := task.Ranges[f]
	width := new(big.Rat).Sub(iv.Hi, iv.Lo)

	if width.Cmp(cfg.Difference) <= 0 {
		next := task.clone()
		next.Splittable = removeVariable(task.Splittable, idx)
		next.Pivot2 = task.Pivot2 + 1
		next.Key = nil
		q.Post(next)
		return
	}

	mid := new(big.Rat).Add(iv.Lo, new(big.Rat).Quo(width, big.NewRat(2, 1)))
	half := new(big.Rat).Quo(task.Percent, big.NewRat(2, 1))

	left := task.clone()
	left.Ranges[f] = domain.Interval{Lo: new(big.Rat).Set(iv.Lo), Hi: new(big.Rat).Set(mid)}
	left.Pivot2 = task.Pivot2 + 1
	left.Percent = new(big.Rat).Set(half)
	left.Key = nil

	right := task.clone()
	right.Ranges[f] = domain.Interval{Lo: new(big.Rat).Set(mid), Hi: new(big.Rat).Set(iv.Hi)}
	right.Pivot2 = task.Pivot2 + 1
	right.Percent = new(big.Rat).Set(half)
	right.Key = nil

	q.Post(left)
	q.Post(right)
}

func removeVariable(vars []domain.Variable, idx int) []domain.Variable {
	out := make([]domain.Variable, 0, len(vars)-1)
	out = append(out, vars[:idx]...)
	out = append(out, vars[idx+1:]...)
	return out
}

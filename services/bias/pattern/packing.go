// Copyright (C) 2025 The Libra Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pattern

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/libra-go/libra/services/bias/cfg"
	"github.com/libra-go/libra/services/bias/domain"
	"github.com/libra-go/libra/services/bias/forward"
	"github.com/libra-go/libra/services/bias/onehot"
	"github.com/libra-go/libra/services/bias/symbolic"
)

// Pack is the packing engine's shared output: ActivationPattern → set of
// OneHotN combinations that induce it (spec.md §4.3 "packs dictionary").
type Pack struct {
	mu      sync.Mutex
	entries map[string]*packEntry
}

type packEntry struct {
	pattern ActivationPattern
	combos  []onehot.N
}

// NewPack returns an empty Pack ready for concurrent add calls.
func NewPack() *Pack {
	return &Pack{entries: map[string]*packEntry{}}
}

func (p *Pack) add(pat ActivationPattern, combo onehot.N) {
	key := pat.Key()
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[key]
	if !ok {
		e = &packEntry{pattern: pat}
		p.entries[key] = e
	}
	e.combos = append(e.combos, combo)
}

// Patterns returns every distinct ActivationPattern recorded so far, keyed
// the same way Combos is.
func (p *Pack) Patterns() map[string]ActivationPattern {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]ActivationPattern, len(p.entries))
	for key, e := range p.entries {
		out[key] = e.pattern
	}
	return out
}

// Combos returns the raw onehot.N combinations recorded under each pattern
// key (the patterns themselves come from Patterns) — what the packing engine's
// post-condition (spec.md §4.3 Σ|packs[k]| = Π_g|g|) is checked against.
func (p *Pack) Combos() map[string][]onehot.N {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string][]onehot.N, len(p.entries))
	for key, e := range p.entries {
		out[key] = append([]onehot.N(nil), e.combos...)
	}
	return out
}

// Total returns Σ|packs[k]| — the count to compare against onehot.Count.
func (p *Pack) Total() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	total := 0
	for _, e := range p.entries {
		total += len(e.combos)
	}
	return total
}

// RunPacking enumerates the cartesian product of one_hots(g) for every
// one-hot group in groups, applies each combination's assumptions to entry,
// runs the forward analyzer per sensitive value with EarlyStop disabled (to
// obtain the full active/inactive split), and buckets the combination by
// its resulting ActivationPattern (spec.md §4.3). Concurrency follows the
// teacher's bounded-fan-out idiom: an errgroup with a semaphore-sized
// worker pool, one coarse mutex guarding the shared Pack.
func RunPacking(
	ctx context.Context,
	groups [][]symbolic.Variable,
	entry domain.Box,
	sensitiveValues []onehot.One1,
	activations []domain.Variable,
	g *cfg.Graph,
	analyzer forward.Analyzer,
	concurrency int,
) (*Pack, error) {
	combos := onehot.Product(groups)
	pack := NewPack()
	if len(combos) == 0 {
		return pack, nil
	}
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}

	eg, egctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, concurrency)

	for _, combo := range combos {
		c := combo
		eg.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-egctx.Done():
				return egctx.Err()
			}
			defer func() { <-sem }()

			state := entry
			for _, v := range c {
				state = state.Assume(v.Assumption)
			}

			perValue := make([]SensitiveEntry, len(sensitiveValues))
			for i, v := range sensitiveValues {
				sv := state.Assume(v.Assumption)
				res := analyzer.Analyze(g, sv, forward.Options{EarlyStop: false})
				perValue[i] = SensitiveEntry{Active: res.Active, Inactive: res.Inactive}
			}

			pack.add(ActivationPattern(perValue), c)
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return pack, nil
}

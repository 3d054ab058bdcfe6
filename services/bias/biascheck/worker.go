// Copyright (C) 2025 The Libra Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package biascheck

import (
	"context"
	"math/big"

	"github.com/libra-go/libra/services/bias/cfg"
	"github.com/libra-go/libra/services/bias/domain"
	"github.com/libra-go/libra/services/bias/onehot"
	"github.com/libra-go/libra/services/bias/pattern"
	"github.com/libra-go/libra/services/bias/stats"
	"github.com/libra-go/libra/services/bias/symbolic"
)

// Config bundles everything a Worker-2 instance needs, shared read-only
// across every worker goroutine.
type Config struct {
	Graph                 *cfg.Graph
	Classes               []domain.Variable
	SensitiveValues       []onehot.One1
	SensitiveVars         []symbolic.Variable
	UncontroversialOneHot []symbolic.Variable
	RealFeatures          []domain.Variable
}

// RunWorker drains q, running the Worker-2 state machine (spec.md §4.7)
// until it observes (and re-posts) the Stop sentinel.
func RunWorker(ctx context.Context, q *Queue, cfg Config, counters *stats.Counters) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		task := q.Get()
		if task.Stop {
			q.Post(StopTask())
			return nil
		}
		processItem(task.Item, cfg, counters)
	}
}

// processItem implements spec.md §4.7's second half: per chunk, scale and
// fan out over unpacked one-hot combinations (or run once when there are
// none), forgetting the sensitive variables before invoking the bias-check
// primitive, and folding the resulting biased volume into `biased%`.
func processItem(item Item, cfg Config, counters *stats.Counters) {
	check := BuildPreimages(cfg.Graph, cfg.Classes, cfg.SensitiveValues, item.Pattern)

	for _, chunk := range item.Chunks {
		total := Volume(chunk.Ranges)

		if len(chunk.Unpacked) > 0 {
			scaled := new(big.Rat).Quo(chunk.Percent, big.NewRat(int64(len(chunk.Unpacked)), 1))
			for _, combo := range chunk.Unpacked {
				c := check.Clone()
				for _, one := range combo {
					c = assumeAll(c, one.Assumption)
				}
				c = forgetAll(c, cfg.SensitiveVars)
				contribute(c, chunk, scaled, total, cfg, counters)
			}
			continue
		}

		c := forgetAll(check.Clone(), cfg.SensitiveVars)
		contribute(c, chunk, chunk.Percent, total, cfg, counters)
	}
}

func contribute(check Preimages, chunk pattern.Chunk, percent, total *big.Rat, cfg Config, counters *stats.Counters) {
	res := Check(check, chunk.Ranges, cfg.UncontroversialOneHot, cfg.RealFeatures)
	if !res.Biased {
		return
	}
	biasedVol := Volume(res.BRanges)
	if total.Sign() == 0 {
		return
	}
	contribution := new(big.Rat).Mul(percent, biasedVol)
	contribution.Quo(contribution, total)
	counters.Biased.Add(contribution)
}

// assumeAll narrows every state in every bucket of check by e, dropping any
// bucket entry that becomes bottom.
func assumeAll(check Preimages, e symbolic.Expr) Preimages {
	out := make(Preimages, len(check))
	for k, states := range check {
		for _, s := range states {
			next := s.Assume(e)
			if next.IsBottom() {
				continue
			}
			out[k] = append(out[k], next)
		}
	}
	return out
}

// forgetAll eliminates vs from every state in every bucket of check.
func forgetAll(check Preimages, vs []symbolic.Variable) Preimages {
	if len(vs) == 0 {
		return check
	}
	domainVars := make([]domain.Variable, len(vs))
	for i, v := range vs {
		domainVars[i] = v
	}
	out := make(Preimages, len(check))
	for k, states := range check {
		for _, s := range states {
			next := s.Forget(domainVars...)
			if next.IsBottom() {
				continue
			}
			out[k] = append(out[k], next)
		}
	}
	return out
}

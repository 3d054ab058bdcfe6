// Copyright (C) 2025 The Libra Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package stats holds the global counters shared by both worker pools
// (spec.md §3 "Global counters (atomic): biased%, feasible%, explored%,
// analyzed, partitions") — split out of the pre-analysis package so the
// bias-check worker can contribute to `biased%` without importing
// Worker-1-specific machinery (the patterns dictionary, Q1 task shape).
package stats

import (
	"math/big"
	"sync"
	"sync/atomic"
)

// RatCounter is a concurrency-safe running rational total. spec.md §5 calls
// for atomic fetch-add on the percentage counters, but Go's sync/atomic has
// no rational type; a small dedicated mutex (rather than a coarser
// dictionary lock) keeps contention on this hot path independent of any
// other shared state it is updated alongside.
type RatCounter struct {
	mu  sync.Mutex
	val big.Rat
}

// Add folds delta into the running total.
func (c *RatCounter) Add(delta *big.Rat) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.val.Add(&c.val, delta)
}

// Load returns a snapshot of the running total.
func (c *RatCounter) Load() *big.Rat {
	c.mu.Lock()
	defer c.mu.Unlock()
	return new(big.Rat).Set(&c.val)
}

// Counters holds every global, atomically-updated quantity spec.md §3 and
// §5 name: `biased%`, `feasible%`, `explored%`, `analyzed`, `partitions`.
type Counters struct {
	Partitions int64
	Analyzed   int64
	Feasible   RatCounter
	Explored   RatCounter
	Biased     RatCounter
}

// IncPartitions atomically increments the partition count.
func (c *Counters) IncPartitions() { atomic.AddInt64(&c.Partitions, 1) }

// IncAnalyzed atomically increments the analyzed-pattern count.
func (c *Counters) IncAnalyzed() { atomic.AddInt64(&c.Analyzed, 1) }

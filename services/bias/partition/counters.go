// Copyright (C) 2025 The Libra Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package partition

import (
	"sync"

	"github.com/libra-go/libra/services/bias/pattern"
	"github.com/libra-go/libra/services/bias/stats"
)

// RatCounter and Counters re-export the shared stats types so existing
// callers in this package don't need an extra import; the canonical
// definitions (and the one worker-2/biascheck also uses) live in
// services/bias/stats.
type RatCounter = stats.RatCounter
type Counters = stats.Counters

// Dict is the patterns dictionary (spec.md §3 "Patterns dictionary —
// ActivationPattern → set<Chunk>"), guarded by a single coarse mutex — the
// original's `lock`, accepted because updates are infrequent relative to
// per-task analysis cost (spec.md §5).
type Dict struct {
	mu      sync.Mutex
	entries map[string]*pattern.Entry
}

// NewDict returns an empty patterns dictionary.
func NewDict() *Dict {
	return &Dict{entries: map[string]*pattern.Entry{}}
}

// Record appends chunk under p's key, creating the entry if absent.
func (d *Dict) Record(p pattern.ActivationPattern, chunk pattern.Chunk) {
	key := p.Key()
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.entries[key]
	if !ok {
		e = &pattern.Entry{Pattern: p}
		d.entries[key] = e
	}
	e.Chunks = append(e.Chunks, chunk)
}

// Entries returns a snapshot of every (pattern, chunks) pair recorded so far
// — the input to the pattern compressor (spec.md §4.5).
func (d *Dict) Entries() []pattern.Entry {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]pattern.Entry, 0, len(d.entries))
	for _, e := range d.entries {
		out = append(out, pattern.Entry{Pattern: e.Pattern, Chunks: append([]pattern.Chunk(nil), e.Chunks...)})
	}
	return out
}

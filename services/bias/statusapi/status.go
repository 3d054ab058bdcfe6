// Copyright (C) 2025 The Libra Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package statusapi exposes a running analysis's progress over HTTP: a JSON
// snapshot endpoint, a websocket push feed, and a Prometheus metrics
// endpoint mirroring the same counters.
package statusapi

import (
	"sync/atomic"

	"github.com/libra-go/libra/services/bias/stats"
)

// Snapshot is a point-in-time view of the shared counters, suitable for
// JSON serialization and Prometheus gauge publication.
type Snapshot struct {
	Partitions  int64   `json:"partitions"`
	Analyzed    int64   `json:"analyzed"`
	FeasiblePct float64 `json:"feasible_pct"`
	ExploredPct float64 `json:"explored_pct"`
	BiasedPct   float64 `json:"biased_pct"`
}

// TakeSnapshot reads counters into a Snapshot. Losing precision to float64
// is acceptable here: this package is for progress display, not for the
// exact rational arithmetic the analysis itself performs.
func TakeSnapshot(counters *stats.Counters) Snapshot {
	feasible, _ := counters.Feasible.Load().Float64()
	explored, _ := counters.Explored.Load().Float64()
	biased, _ := counters.Biased.Load().Float64()
	return Snapshot{
		Partitions:  atomic.LoadInt64(&counters.Partitions),
		Analyzed:    atomic.LoadInt64(&counters.Analyzed),
		FeasiblePct: feasible,
		ExploredPct: explored,
		BiasedPct:   biased,
	}
}

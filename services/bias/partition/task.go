// Copyright (C) 2025 The Libra Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package partition implements the Q1 task queue and the Worker-1
// pre-analysis state machine (spec.md §3 "PartitionTask", §4.4).
package partition

import (
	"math/big"

	"github.com/libra-go/libra/services/bias/domain"
	"github.com/libra-go/libra/services/bias/onehot"
	"github.com/libra-go/libra/services/bias/oracle"
	"github.com/libra-go/libra/services/bias/pattern"
)

// Task is the Q1 queue element: either a live partition to analyze, or the
// Stop sentinel (spec.md §3 "a sentinel All-None tuple signals termination").
// Modeled as a tagged variant rather than overloading a zero-value Partition
// as the sentinel, per spec.md §9.
type Task struct {
	Stop bool

	Assumptions []pattern.CoarsenedGroup
	// Pivot1 is 0 before one-hot splitting, |one-hot groups| after.
	Pivot1   int
	Unpacked []onehot.N
	Ranges   map[domain.Variable]domain.Interval
	// Pivot2 is a round-robin cursor over Splittable.
	Pivot2     int
	Splittable []domain.Variable
	Percent    *big.Rat
	// Key, when non-nil, is the pre-computed forced (active, inactive) sets
	// a refined task inherits from the pack it was carved out of.
	Key []oracle.Forced
}

// StopTask builds the sentinel task.
func StopTask() Task { return Task{Stop: true} }

func (t Task) clone() Task {
	out := t
	out.Assumptions = append([]pattern.CoarsenedGroup(nil), t.Assumptions...)
	out.Unpacked = append([]onehot.N(nil), t.Unpacked...)
	out.Ranges = make(map[domain.Variable]domain.Interval, len(t.Ranges))
	for v, iv := range t.Ranges {
		out.Ranges[v] = domain.Interval{Lo: new(big.Rat).Set(iv.Lo), Hi: new(big.Rat).Set(iv.Hi)}
	}
	out.Splittable = append([]domain.Variable(nil), t.Splittable...)
	out.Percent = new(big.Rat).Set(t.Percent)
	if t.Key != nil {
		out.Key = append([]oracle.Forced(nil), t.Key...)
	}
	return out
}

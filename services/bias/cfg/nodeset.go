// Copyright (C) 2025 The Libra Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cfg

import "sort"

// NodeSet is a set of node ids — the representation for a forward
// pre-analyzer's active/inactive classification (spec.md §3 "ActivationPattern").
type NodeSet map[string]struct{}

// NewNodeSet builds a NodeSet from zero or more ids.
func NewNodeSet(ids ...string) NodeSet {
	s := make(NodeSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Add inserts id into s.
func (s NodeSet) Add(id string) { s[id] = struct{}{} }

// Has reports whether id is in s.
func (s NodeSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Len returns the number of elements.
func (s NodeSet) Len() int { return len(s) }

// Disjoint reports whether s and other share no elements — the invariant
// spec.md §3 requires of every ActivationPattern entry: active ∩ inactive = ∅.
func (s NodeSet) Disjoint(other NodeSet) bool {
	small, big := s, other
	if len(other) < len(s) {
		small, big = other, s
	}
	for id := range small {
		if big.Has(id) {
			return false
		}
	}
	return true
}

// Sorted returns the ids in ascending order — used to build a stable hash
// key over an ActivationPattern (spec.md §9 "stable hash over the sorted
// node-id sequence").
func (s NodeSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Copyright (C) 2025 The Libra Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pattern

import "sort"

// Compress merges patterns whose activation sets subsume one another
// (spec.md §4.5). Entries are visited in ascending chunk-count order; for
// each k1, the first compressed entry k2 satisfying either subsumption
// direction absorbs it — whichever of k1/k2 is the subset (looser) pattern
// always survives as the representative, since only its backward traversal
// is guaranteed to enumerate a superset of the cases covering the stricter
// pattern's chunks (spec.md §4.5, §9 invariant: the representative's
// forced-activation sets are a subset of the merged members' forced sets).
// First match wins; no match inserts k1 unchanged. The result is sorted by
// descending chunk count.
func Compress(entries []Entry) []Entry {
	ordered := append([]Entry(nil), entries...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return len(ordered[i].Chunks) < len(ordered[j].Chunks)
	})

	var compressed []Entry
	for _, k1 := range ordered {
		merged := false
		for i := range compressed {
			k2 := compressed[i]
			switch {
			case k2.Pattern.Subsumes(k1.Pattern):
				// k2 is the superset (stricter) pattern, k1 is the subset
				// (looser) one: re-key the entry under k1.
				compressed[i] = Entry{
					Pattern: k1.Pattern,
					Chunks:  append(append([]Chunk(nil), k2.Chunks...), k1.Chunks...),
				}
				merged = true
			case k1.Pattern.Subsumes(k2.Pattern):
				// k1 is the superset (stricter) pattern, k2 is the subset
				// (looser) one: k2 stays representative.
				compressed[i].Chunks = append(compressed[i].Chunks, k1.Chunks...)
				merged = true
			}
			if merged {
				break
			}
		}
		if !merged {
			compressed = append(compressed, Entry{
				Pattern: k1.Pattern,
				Chunks:  append([]Chunk(nil), k1.Chunks...),
			})
		}
	}

	sort.SliceStable(compressed, func(i, j int) bool {
		return len(compressed[i].Chunks) > len(compressed[j].Chunks)
	})
	return compressed
}

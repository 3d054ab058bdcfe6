// Copyright (C) 2025 The Libra Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cfg

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/libra-go/libra/services/bias/domain"
)

// Fingerprint computes a deterministic hex digest of a Graph's structure —
// every node's id, kind, LHS, and affine coefficients in program order. Two
// graphs built from the same network produce the same fingerprint; any
// change to node count, order, kind, or affine coefficients changes it.
// Hashed into the CLI's pattern-cache key (cmd/libra) so a cached pattern
// dictionary is not reused once the analyzed network itself changes.
func Fingerprint(g *Graph) string {
	h := sha256.New()
	for _, n := range g.Nodes() {
		fmt.Fprintf(h, "%s\t%s\t%s\n", n.ID, n.Kind, n.LHS)
		keys := make([]string, 0, len(n.RHS.Coeffs))
		for v := range n.RHS.Coeffs {
			keys = append(keys, string(v))
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(h, "\t%s=%s\n", k, n.RHS.Coeffs[domain.Variable(k)].RatString())
		}
		if n.RHS.Const != nil {
			fmt.Fprintf(h, "\tconst=%s\n", n.RHS.Const.RatString())
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

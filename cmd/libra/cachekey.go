// Copyright (C) 2025 The Libra Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/libra-go/libra/services/bias/cfg"
	"github.com/libra-go/libra/services/bias/config"
)

// cacheKeyFor derives a stable pattern-cache key from everything that
// changes Worker-1's output: the specification text, the network's
// structure (cfg.Fingerprint: every node's id, kind, LHS and affine
// coefficients, in program order) and activation set, and the tunables that
// govern partitioning.
// It deliberately excludes Worker2Count and Q2Capacity, which only affect
// the bias-check pass over an already-computed pattern dictionary.
func cacheKeyFor(specBytes []byte, graph *cfg.Graph, t *config.Tunables) string {
	h := sha256.New()
	h.Write(specBytes)
	fmt.Fprintf(h, "|cfg:%s", cfg.Fingerprint(graph))
	for _, a := range graph.Activations() {
		fmt.Fprintf(h, "|act:%s", a)
	}
	fmt.Fprintf(h, "|w:%d|d:%f|pc:%d|q1:%d",
		t.Widening, t.Difference, t.PackConcurrency, t.Q1Capacity)
	return hex.EncodeToString(h.Sum(nil))
}

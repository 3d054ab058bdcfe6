// Copyright (C) 2025 The Libra Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package statusapi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	feasiblePctGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "libra",
		Subsystem: "bias",
		Name:      "feasible_pct",
		Help:      "Percentage of the input domain found feasible so far",
	})

	biasedPctGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "libra",
		Subsystem: "bias",
		Name:      "biased_pct",
		Help:      "Percentage of the analyzed domain found biased so far",
	})

	exploredPctGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "libra",
		Subsystem: "bias",
		Name:      "explored_pct",
		Help:      "Percentage of the input domain explored (feasible or abandoned) so far",
	})

	partitionsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "libra",
		Subsystem: "bias",
		Name:      "partitions_total",
		Help:      "Number of feasible partitions recorded so far",
	})

	analyzedGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "libra",
		Subsystem: "bias",
		Name:      "analyzed_total",
		Help:      "Number of Worker-1 tasks analyzed so far",
	})
)

// publishMetrics mirrors a Snapshot onto the registered gauges.
func publishMetrics(s Snapshot) {
	feasiblePctGauge.Set(s.FeasiblePct)
	biasedPctGauge.Set(s.BiasedPct)
	exploredPctGauge.Set(s.ExploredPct)
	partitionsGauge.Set(float64(s.Partitions))
	analyzedGauge.Set(float64(s.Analyzed))
}

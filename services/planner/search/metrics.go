// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package search

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// -----------------------------------------------------------------------------
// Search Metrics
// -----------------------------------------------------------------------------

var (
	// searchRunsTotal counts completed runs.
	//
	// Labels:
	//   - strategy: "breadth_first" or "best_first"
	//   - outcome: "trivial", "solved", "exhausted", "incomplete" or "error"
	searchRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aleutian",
			Subsystem: "planner",
			Name:      "search_runs_total",
			Help:      "Total search runs by strategy and outcome",
		},
		[]string{"strategy", "outcome"},
	)

	// searchExpansionsTotal counts expanded situations.
	searchExpansionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aleutian",
			Subsystem: "planner",
			Name:      "search_expansions_total",
			Help:      "Total situations expanded",
		},
		[]string{"strategy"},
	)

	// searchGeneratedTotal counts generated successors, duplicates included.
	searchGeneratedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aleutian",
			Subsystem: "planner",
			Name:      "search_generated_total",
			Help:      "Total successor situations generated",
		},
		[]string{"strategy"},
	)

	// searchDuplicatesTotal counts successors discarded by de-duplication.
	searchDuplicatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aleutian",
			Subsystem: "planner",
			Name:      "search_duplicates_total",
			Help:      "Total successors discarded as already seen",
		},
		[]string{"strategy"},
	)

	// searchDurationSeconds tracks wall-clock time per run.
	searchDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "aleutian",
			Subsystem: "planner",
			Name:      "search_duration_seconds",
			Help:      "Search run duration",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		},
		[]string{"strategy"},
	)

	// planLength tracks the number of actions in solved plans.
	planLength = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "aleutian",
			Subsystem: "planner",
			Name:      "plan_length",
			Help:      "Number of actions in returned plans",
			Buckets:   prometheus.LinearBuckets(0, 5, 12),
		},
		[]string{"strategy"},
	)
)

// recordRun publishes the counters of one finished run.
//
// Thread Safety: Safe for concurrent use.
func recordRun(strategy Strategy, outcome string, stats Stats, elapsed time.Duration, steps int) {
	label := strategy.String()
	searchRunsTotal.WithLabelValues(label, outcome).Inc()
	searchExpansionsTotal.WithLabelValues(label).Add(float64(stats.Expansions))
	searchGeneratedTotal.WithLabelValues(label).Add(float64(stats.Generated))
	searchDuplicatesTotal.WithLabelValues(label).Add(float64(stats.Duplicates))
	searchDurationSeconds.WithLabelValues(label).Observe(elapsed.Seconds())
	if steps >= 0 {
		planLength.WithLabelValues(label).Observe(float64(steps))
	}
}

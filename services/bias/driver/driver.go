// Copyright (C) 2025 The Libra Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package driver orchestrates one full bias-analysis run: the Worker-1
// partitioning pool, pattern compression, the Worker-2 bias-check pool, and
// the aggregation of the run's counters into a final Result.
package driver

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/libra-go/libra/services/bias/biascheck"
	"github.com/libra-go/libra/services/bias/cache"
	"github.com/libra-go/libra/services/bias/cfg"
	"github.com/libra-go/libra/services/bias/config"
	"github.com/libra-go/libra/services/bias/domain"
	"github.com/libra-go/libra/services/bias/forward"
	"github.com/libra-go/libra/services/bias/onehot"
	"github.com/libra-go/libra/services/bias/partition"
	"github.com/libra-go/libra/services/bias/pattern"
	"github.com/libra-go/libra/services/bias/specfile"
	"github.com/libra-go/libra/services/bias/stats"
)

var driverTracer = otel.Tracer("libra.bias.driver")

// Result is the outcome of one full analysis run (spec.md §6's one-line
// summary, plus the fields a report/CLI layer needs to render it).
type Result struct {
	Partitions   int64
	Analyzed     int64
	FeasiblePct  *big.Rat
	BiasedPct    *big.Rat
	PreTime      time.Duration
	AnalysisTime time.Duration
}

// Driver runs a backward bias analysis over a CFG against a parsed
// specification, using the given tunables.
type Driver struct {
	Tunables *config.Tunables
	Classes  []domain.Variable

	// Cache, if non-nil, is consulted before running Worker-1 and updated
	// with the compressed dictionary after a fresh run.
	Cache     cache.Store
	CacheKey  string
	SpecBytes []byte

	// Counters, if non-nil, is updated in place over the course of the run
	// instead of a fresh set allocated internally — lets a caller (e.g. a
	// status server) observe progress from another goroutine while the
	// analysis is still running.
	Counters *stats.Counters

	Logger *slog.Logger
}

// Analyze runs the full pipeline: seed Q1, run the Worker-1 pool, compress
// the resulting pattern dictionary (or reuse a cached one), seed Q2, run the
// Worker-2 pool, and aggregate the run's counters.
func (d Driver) Analyze(ctx context.Context, spec *specfile.Specification, graph *cfg.Graph) (Result, error) {
	ctx, span := driverTracer.Start(ctx, "driver.Analyze")
	defer span.End()

	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if d.Tunables == nil {
		return Result{}, fmt.Errorf("driver.Analyze: Tunables must not be nil")
	}

	counters := d.Counters
	if counters == nil {
		counters = &stats.Counters{}
	}
	preStart := time.Now()

	entries, err := d.patternEntries(ctx, spec, graph, counters, logger)
	if err != nil {
		return Result{}, fmt.Errorf("driver.Analyze: partitioning: %w", err)
	}
	preTime := time.Since(preStart)

	analysisStart := time.Now()
	if err := d.checkBias(ctx, spec, graph, entries, counters, logger); err != nil {
		return Result{}, fmt.Errorf("driver.Analyze: bias check: %w", err)
	}
	analysisTime := time.Since(analysisStart)

	result := Result{
		Partitions:   counters.Partitions,
		Analyzed:     counters.Analyzed,
		FeasiblePct:  counters.Feasible.Load(),
		BiasedPct:    counters.Biased.Load(),
		PreTime:      preTime,
		AnalysisTime: analysisTime,
	}

	span.SetAttributes(
		attribute.Int64("partitions", result.Partitions),
		attribute.Int64("analyzed", result.Analyzed),
	)
	logger.Info(fmt.Sprintf("%s%% (%s%% biased) %.2fs %.2fs",
		result.FeasiblePct.FloatString(2), result.BiasedPct.FloatString(2),
		result.PreTime.Seconds(), result.AnalysisTime.Seconds()))

	return result, nil
}

// patternEntries returns the compressed pattern dictionary, either loaded
// from cache or computed fresh by running the Worker-1 pool.
func (d Driver) patternEntries(ctx context.Context, spec *specfile.Specification, graph *cfg.Graph, counters *stats.Counters, logger *slog.Logger) ([]pattern.Entry, error) {
	if d.Cache != nil {
		cached, err := d.Cache.Load(ctx, d.CacheKey)
		if err != nil {
			logger.Warn("pattern cache load failed, recomputing", slog.String("error", err.Error()))
		} else if cached != nil {
			logger.Info("pattern cache hit", slog.Int("entries", len(cached)))
			return cached, nil
		}
	}

	entries, err := d.runPartitioning(ctx, spec, graph, counters, logger)
	if err != nil {
		return nil, err
	}
	compressed := pattern.Compress(entries)

	if d.Cache != nil {
		if err := d.Cache.Save(ctx, d.CacheKey, compressed); err != nil {
			logger.Warn("pattern cache save failed", slog.String("error", err.Error()))
		}
	}
	return compressed, nil
}

func (d Driver) runPartitioning(ctx context.Context, spec *specfile.Specification, graph *cfg.Graph, counters *stats.Counters, logger *slog.Logger) ([]pattern.Entry, error) {
	t := d.Tunables
	pconf := partition.Config{
		Initial:         domain.TopBox(),
		SensitiveGroups: spec.Sensitive,
		OneHotGroups:    spec.OneHotGroups,
		RealFeatures:    spec.RealFeatures,
		Activations:     graph.Activations(),
		Graph:           graph,
		Analyzer:        forward.IntervalAnalyzer{},
		Widening:        t.Widening,
		Difference:      big.NewRat(int64(t.Difference*1e9), 1e9),
		PackConcurrency: t.PackConcurrency,
	}

	q := partition.NewQueue(t.Q1Capacity)
	dict := partition.NewDict()

	root := partition.Task{
		Ranges:     cloneRanges(spec.Ranges),
		Splittable: append([]domain.Variable(nil), spec.RealFeatures...),
		Percent:    big.NewRat(100, 1),
	}
	q.Post(root)

	progress := rateLimiter(t.ProgressIntervalSeconds)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < t.Worker1Count; i++ {
		g.Go(func() error {
			return partition.RunWorker(gctx, q, pconf, dict, counters)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("worker-1 pool: %w", err)
	}

	if progress.Allow() {
		logger.Info("pre-analysis complete",
			slog.Int64("partitions", counters.Partitions),
			slog.Int64("analyzed", counters.Analyzed),
		)
	}

	return dict.Entries(), nil
}

func (d Driver) checkBias(ctx context.Context, spec *specfile.Specification, graph *cfg.Graph, entries []pattern.Entry, counters *stats.Counters, logger *slog.Logger) error {
	t := d.Tunables
	bconf := biascheck.Config{
		Graph:                 graph,
		Classes:               d.Classes,
		SensitiveValues:       onehot.Enumerate(spec.Sensitive),
		SensitiveVars:         spec.Sensitive,
		UncontroversialOneHot: flattenGroups(spec.OneHotGroups),
		RealFeatures:          spec.RealFeatures,
	}

	q := biascheck.NewQueue(t.Q2Capacity)
	for _, e := range entries {
		q.Post(biascheck.Task{Item: biascheck.Item{Pattern: e.Pattern, Chunks: e.Chunks}})
	}
	q.Post(biascheck.StopTask())

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < t.Worker2Count; i++ {
		g.Go(func() error {
			return biascheck.RunWorker(gctx, q, bconf, counters)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("worker-2 pool: %w", err)
	}

	logger.Info("bias analysis complete", slog.Int64("partitions", counters.Partitions))
	return nil
}

func cloneRanges(ranges map[domain.Variable]domain.Interval) map[domain.Variable]domain.Interval {
	out := make(map[domain.Variable]domain.Interval, len(ranges))
	for v, iv := range ranges {
		out[v] = domain.Interval{Lo: new(big.Rat).Set(iv.Lo), Hi: new(big.Rat).Set(iv.Hi)}
	}
	return out
}

func flattenGroups(groups [][]domain.Variable) []domain.Variable {
	var out []domain.Variable
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func rateLimiter(intervalSeconds int) *rate.Limiter {
	if intervalSeconds <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(time.Duration(intervalSeconds)*time.Second), 1)
}

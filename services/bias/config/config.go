// Copyright (C) 2025 The Libra Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads the tunables that govern an analysis run: widening
// fan-out bound, chunk-difference threshold, worker-pool sizes, and queue
// capacities.
package config

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultTunablesYAML []byte

var tunablesTracer = otel.Tracer("libra.bias.config")

// MaxYAMLFileSize bounds the size of a tunables document this package will
// parse.
const MaxYAMLFileSize = 1 << 20

// Tunables controls the shape and limits of a backward-traversal bias
// analysis.
//
// Thread Safety: immutable after loading; safe for concurrent use.
type Tunables struct {
	// Widening is the largest number of activation nodes that may stay
	// disjunctive (neither provably active nor inactive) for any sensitive
	// value while a partition still counts as feasible.
	Widening int `yaml:"widening" validate:"gte=0"`

	// Difference is the range-bisection floor in [0,1]: a real feature whose
	// range is no wider than this is no longer split.
	Difference float64 `yaml:"difference" validate:"gte=0,lte=1"`

	// Worker1Count is the number of Worker-1 (partitioning) goroutines.
	Worker1Count int `yaml:"worker1_count" validate:"gte=1"`

	// Worker2Count is the number of Worker-2 (bias-check) goroutines.
	Worker2Count int `yaml:"worker2_count" validate:"gte=1"`

	// PackConcurrency bounds the concurrency of one-hot combination packing
	// within a single Worker-1 split step (spec.md §4.4 one-hot splitting).
	PackConcurrency int `yaml:"pack_concurrency" validate:"gte=1"`

	// Q1Capacity bounds the partitioning queue's buffer.
	Q1Capacity int `yaml:"q1_capacity" validate:"gte=1"`

	// Q2Capacity bounds the bias-check queue's buffer.
	Q2Capacity int `yaml:"q2_capacity" validate:"gte=1"`

	// ProgressIntervalSeconds is the minimum number of seconds between
	// progress log lines. LoadTunables replaces zero with
	// DefaultProgressIntervalSeconds; a zero value set directly leaves
	// progress logging unthrottled.
	ProgressIntervalSeconds int `yaml:"progress_interval_seconds" validate:"gte=0"`
}

const (
	// DefaultWidening is the default disjunctive-branch fan-out bound.
	DefaultWidening = 2

	// DefaultDifference is the default range-bisection floor.
	DefaultDifference = 0.25

	// DefaultWorkerCount is the default size for either worker pool.
	DefaultWorkerCount = 4

	// DefaultQueueCapacity is the default buffer size for either queue.
	DefaultQueueCapacity = 64

	// DefaultProgressIntervalSeconds is the default progress-log throttle.
	DefaultProgressIntervalSeconds = 5
)

var (
	tunablesMu      sync.RWMutex
	tunablesOnce    sync.Once
	cachedTunables  *Tunables
	tunablesLoadErr error
)

// GetTunables returns the cached default tunables, loading them on first
// call.
//
// Thread Safety: safe for concurrent use via sync.Once.
func GetTunables(ctx context.Context) (*Tunables, error) {
	if ctx == nil {
		return nil, fmt.Errorf("GetTunables: ctx must not be nil")
	}

	tunablesMu.RLock()
	if cachedTunables != nil || tunablesLoadErr != nil {
		t, err := cachedTunables, tunablesLoadErr
		tunablesMu.RUnlock()
		return t, err
	}
	tunablesMu.RUnlock()

	tunablesMu.Lock()
	defer tunablesMu.Unlock()

	if cachedTunables != nil || tunablesLoadErr != nil {
		return cachedTunables, tunablesLoadErr
	}

	tunablesOnce.Do(func() {
		cachedTunables, tunablesLoadErr = LoadTunables(ctx, defaultTunablesYAML)
	})

	return cachedTunables, tunablesLoadErr
}

// ResetTunables clears the cached tunables so tests can reload with
// different data.
func ResetTunables() {
	tunablesMu.Lock()
	defer tunablesMu.Unlock()
	cachedTunables = nil
	tunablesLoadErr = nil
	tunablesOnce = sync.Once{}
}

// LoadTunables parses, defaults, and validates a Tunables document.
func LoadTunables(ctx context.Context, data []byte) (*Tunables, error) {
	_, span := tunablesTracer.Start(ctx, "config.LoadTunables")
	defer span.End()

	if len(data) == 0 {
		return nil, fmt.Errorf("LoadTunables: empty YAML data")
	}
	if len(data) > MaxYAMLFileSize {
		return nil, fmt.Errorf("LoadTunables: YAML data exceeds maximum size (%d > %d)", len(data), MaxYAMLFileSize)
	}

	var t Tunables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("LoadTunables: parsing YAML: %w", err)
	}

	applyDefaults(&t)

	if err := validate.Struct(&t); err != nil {
		return nil, fmt.Errorf("LoadTunables: validation: %w", err)
	}

	span.SetAttributes(
		attribute.Int("widening", t.Widening),
		attribute.Float64("difference", t.Difference),
		attribute.Int("worker1_count", t.Worker1Count),
		attribute.Int("worker2_count", t.Worker2Count),
	)

	slog.Info("tunables loaded",
		slog.Int("widening", t.Widening),
		slog.Float64("difference", t.Difference),
		slog.Int("worker1_count", t.Worker1Count),
		slog.Int("worker2_count", t.Worker2Count),
	)

	return &t, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func applyDefaults(t *Tunables) {
	if t.Widening <= 0 {
		t.Widening = DefaultWidening
	}
	if t.Difference <= 0 {
		t.Difference = DefaultDifference
	}
	if t.Worker1Count <= 0 {
		t.Worker1Count = DefaultWorkerCount
	}
	if t.Worker2Count <= 0 {
		t.Worker2Count = DefaultWorkerCount
	}
	if t.PackConcurrency <= 0 {
		t.PackConcurrency = DefaultWorkerCount
	}
	if t.Q1Capacity <= 0 {
		t.Q1Capacity = DefaultQueueCapacity
	}
	if t.Q2Capacity <= 0 {
		t.Q2Capacity = DefaultQueueCapacity
	}
	if t.ProgressIntervalSeconds <= 0 {
		t.ProgressIntervalSeconds = DefaultProgressIntervalSeconds
	}
}

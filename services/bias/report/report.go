// Copyright (C) 2025 The Libra Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package report writes a finished analysis's Result as JSON, either to a
// local path or to a Google Cloud Storage object.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/libra-go/libra/services/bias/driver"
)

// Document is the serialized form of an analysis run: its result plus the
// metadata needed to make a standalone JSON report interpretable.
type Document struct {
	GeneratedAt  time.Time `json:"generated_at"`
	Partitions   int64     `json:"partitions"`
	Analyzed     int64     `json:"analyzed"`
	FeasiblePct  string    `json:"feasible_pct"`
	BiasedPct    string    `json:"biased_pct"`
	PreSeconds   float64   `json:"pre_analysis_seconds"`
	TotalSeconds float64   `json:"analysis_seconds"`
}

// BuildDocument converts a driver.Result into its reportable form. generatedAt
// is passed in rather than computed internally so callers control the
// timestamp deterministically.
func BuildDocument(result driver.Result, generatedAt time.Time) Document {
	return Document{
		GeneratedAt:  generatedAt,
		Partitions:   result.Partitions,
		Analyzed:     result.Analyzed,
		FeasiblePct:  result.FeasiblePct.FloatString(4),
		BiasedPct:    result.BiasedPct.FloatString(4),
		PreSeconds:   result.PreTime.Seconds(),
		TotalSeconds: result.AnalysisTime.Seconds(),
	}
}

// WriteLocal marshals doc as indented JSON and writes it to path.
func WriteLocal(path string, doc Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("report.WriteLocal: marshaling document: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("report.WriteLocal: writing %s: %w", path, err)
	}
	return nil
}

// Writer abstracts the destination WriteTo writes to, so tests can
// substitute an in-memory sink without talking to Google Cloud Storage.
type Writer interface {
	io.WriteCloser
}

// WriteTo marshals doc as JSON and copies it to w, closing w when done.
func WriteTo(ctx context.Context, w Writer, doc Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		_ = w.Close()
		return fmt.Errorf("report.WriteTo: marshaling document: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("report.WriteTo: writing: %w", err)
	}
	return w.Close()
}

// Copyright (C) 2025 The Libra Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package report

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libra-go/libra/services/bias/driver"
)

type bufCloser struct {
	bytes.Buffer
	closed bool
}

func (b *bufCloser) Close() error {
	b.closed = true
	return nil
}

func sampleResult() driver.Result {
	return driver.Result{
		Partitions:   3,
		Analyzed:     12,
		FeasiblePct:  big.NewRat(100, 1),
		BiasedPct:    big.NewRat(25, 1),
		PreTime:      2 * time.Second,
		AnalysisTime: 5 * time.Second,
	}
}

func TestBuildDocumentConvertsResult(t *testing.T) {
	when := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	doc := BuildDocument(sampleResult(), when)

	assert.Equal(t, when, doc.GeneratedAt)
	assert.Equal(t, int64(3), doc.Partitions)
	assert.Equal(t, int64(12), doc.Analyzed)
	assert.Equal(t, "100.0000", doc.FeasiblePct)
	assert.Equal(t, "25.0000", doc.BiasedPct)
	assert.InDelta(t, 2.0, doc.PreSeconds, 0.001)
	assert.InDelta(t, 5.0, doc.TotalSeconds, 0.001)
}

func TestWriteLocalWritesReadableJSON(t *testing.T) {
	doc := BuildDocument(sampleResult(), time.Now())
	path := filepath.Join(t.TempDir(), "report.json")

	require.NoError(t, WriteLocal(path, doc))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got Document
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, doc.Partitions, got.Partitions)
}

func TestWriteToClosesWriterOnSuccess(t *testing.T) {
	doc := BuildDocument(sampleResult(), time.Now())
	buf := &bufCloser{}

	require.NoError(t, WriteTo(context.Background(), buf, doc))
	assert.True(t, buf.closed)

	var got Document
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, doc.Analyzed, got.Analyzed)
}

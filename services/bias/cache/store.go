// Copyright (C) 2025 The Libra Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package cache persists the compressed activation-pattern dictionary
// produced by a run so a repeat analysis of the same (network, spec,
// tunables) triple can skip Worker-1 entirely.
package cache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/libra-go/libra/services/bias/pattern"
)

// DefaultTTL is the default lifetime of a cached dictionary entry.
const DefaultTTL = 7 * 24 * time.Hour

// keyPrefix namespaces cache keys so future storage layout changes do not
// collide with this version's entries.
const keyPrefix = "bias/patterns/v1/"

var errCacheMiss = errors.New("cache: miss")

// Store persists compressed pattern dictionaries keyed by a content hash of
// everything that determines their shape: the spec-file contents, the CFG
// fingerprint, and the tunables that governed partitioning.
//
// Both methods are nil-receiver-safe at the call site: a caller that never
// constructs a Store operates in cache-disabled, recompute-every-time mode.
type Store interface {
	// Load retrieves a cached dictionary for key. Returns (nil, nil) on a
	// cache miss (absent or TTL-expired); (nil, error) on a storage failure.
	Load(ctx context.Context, key string) ([]pattern.Entry, error)

	// Save persists entries under key with the store's configured TTL.
	Save(ctx context.Context, key string, entries []pattern.Entry) error
}

// BadgerStore implements Store backed by an opened BadgerDB instance.
//
// Thread Safety: safe for concurrent use; BadgerDB owns its own locking.
type BadgerStore struct {
	db     *badger.DB
	ttl    time.Duration
	logger *slog.Logger
}

// NewBadgerStore wraps an already-opened BadgerDB instance. The caller owns
// the DB's lifecycle (open/close); this store does not close it.
func NewBadgerStore(db *badger.DB, ttl time.Duration, logger *slog.Logger) (*BadgerStore, error) {
	if db == nil {
		return nil, fmt.Errorf("cache.NewBadgerStore: db must not be nil")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BadgerStore{db: db, ttl: ttl, logger: logger}, nil
}

// Load retrieves the pattern dictionary cached under key.
func (s *BadgerStore) Load(ctx context.Context, key string) ([]pattern.Entry, error) {
	if ctx == nil {
		return nil, fmt.Errorf("cache.Load: ctx must not be nil")
	}

	dbKey := []byte(keyPrefix + key)

	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(dbKey)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return errCacheMiss
		}
		if err != nil {
			return fmt.Errorf("get cache key: %w", err)
		}
		raw, err = item.ValueCopy(nil)
		return err
	})

	if errors.Is(err, errCacheMiss) {
		s.logger.Debug("pattern cache: miss", slog.String("key", shortKey(key)))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache.Load: %w", err)
	}

	entries, err := decode(raw)
	if err != nil {
		return nil, fmt.Errorf("cache.Load: decode: %w", err)
	}
	s.logger.Debug("pattern cache: hit", slog.String("key", shortKey(key)), slog.Int("entries", len(entries)))
	return entries, nil
}

// Save persists entries under key with this store's TTL.
func (s *BadgerStore) Save(ctx context.Context, key string, entries []pattern.Entry) error {
	if ctx == nil {
		return fmt.Errorf("cache.Save: ctx must not be nil")
	}
	if len(entries) == 0 {
		return nil
	}

	raw, err := encode(entries)
	if err != nil {
		return fmt.Errorf("cache.Save: encode: %w", err)
	}

	dbKey := []byte(keyPrefix + key)
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(dbKey, raw).WithTTL(s.ttl))
	})
	if err != nil {
		return fmt.Errorf("cache.Save: %w", err)
	}

	s.logger.Debug("pattern cache: saved",
		slog.String("key", shortKey(key)),
		slog.Int("entries", len(entries)),
		slog.Duration("ttl", s.ttl),
	)
	return nil
}

// ComputeKey derives the cache key from everything that determines the
// shape of the resulting dictionary: the raw spec-file bytes, a fingerprint
// of the analyzed CFG, and the two tunables that steer partitioning.
func ComputeKey(specBytes []byte, cfgFingerprint string, widening int, difference float64) string {
	h := sha256.New()
	h.Write(specBytes)
	fmt.Fprintf(h, "\ncfg=%s\nwidening=%d\ndifference=%g\n", cfgFingerprint, widening, difference)
	return hex.EncodeToString(h.Sum(nil))
}

func shortKey(k string) string {
	if len(k) > 8 {
		return k[:8] + "..."
	}
	return k
}

func encode(entries []pattern.Entry) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(entries); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decode(data []byte) ([]pattern.Entry, error) {
	var entries []pattern.Entry
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Copyright (C) 2025 The Libra Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cache

import (
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// InspectEntry summarizes one cached pattern dictionary for human-readable
// display, without needing the caller to know this package's internal key
// layout or gob encoding.
type InspectEntry struct {
	Key         string
	Entries     int
	RawSize     int
	HasExpiry   bool
	ExpiresAt   time.Time
	DecodeError error
}

// Inspect opens a read-only iterator over db and summarizes every cached
// dictionary under this package's key prefix, in key order.
func Inspect(db *badger.DB) ([]InspectEntry, error) {
	if db == nil {
		return nil, fmt.Errorf("cache.Inspect: db must not be nil")
	}

	var out []InspectEntry
	err := db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(keyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			e := InspectEntry{Key: string(item.Key())[len(keyPrefix):]}

			if expiresAt := item.ExpiresAt(); expiresAt > 0 {
				e.HasExpiry = true
				e.ExpiresAt = time.Unix(int64(expiresAt), 0)
			}

			raw, err := item.ValueCopy(nil)
			if err != nil {
				e.DecodeError = fmt.Errorf("copy value: %w", err)
				out = append(out, e)
				continue
			}
			e.RawSize = len(raw)

			entries, err := decode(raw)
			if err != nil {
				e.DecodeError = fmt.Errorf("gob decode: %w", err)
			} else {
				e.Entries = len(entries)
			}
			out = append(out, e)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cache.Inspect: %w", err)
	}
	return out, nil
}

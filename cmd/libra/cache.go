// Copyright (C) 2025 The Libra Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/spf13/cobra"

	"github.com/libra-go/libra/services/bias/cache"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the pattern cache",
	}
	cmd.AddCommand(newCacheInspectCmd())
	return cmd
}

func newCacheInspectCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print a human-readable summary of the pattern cache's contents",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := dbPath
			if path == "" {
				path = os.Getenv("LIBRA_CACHE_DIR")
			}
			if path == "" {
				return fmt.Errorf("cache inspect: --path or LIBRA_CACHE_DIR must be set")
			}
			return runCacheInspect(cmd, path)
		},
	}
	cmd.Flags().StringVar(&dbPath, "path", "", "path to the pattern cache's BadgerDB directory (overrides LIBRA_CACHE_DIR)")
	return cmd
}

func runCacheInspect(cmd *cobra.Command, path string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Pattern cache path: %s\n", path)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintln(out, "Cache directory does not exist. No analysis has been run with --cache-dir set to this path yet.")
		return nil
	}

	opts := badger.DefaultOptions(path).WithLogger(nil).WithReadOnly(true)
	db, err := badger.Open(opts)
	if err != nil {
		return fmt.Errorf("cache inspect: opening %s: %w", path, err)
	}
	defer func() { _ = db.Close() }()

	entries, err := cache.Inspect(db)
	if err != nil {
		return fmt.Errorf("cache inspect: %w", err)
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "\nNo cached pattern dictionaries found.")
		return nil
	}

	fmt.Fprintf(out, "\nFound %d cached entr%s:\n", len(entries), plural(len(entries)))
	fmt.Fprintln(out, strings.Repeat("-", 72))
	for i, e := range entries {
		fmt.Fprintf(out, "\n[%d] Key:     %s\n", i+1, e.Key)
		fmt.Fprintf(out, "    Patterns: %d\n", e.Entries)
		fmt.Fprintf(out, "    Raw size: %d bytes\n", e.RawSize)
		if e.HasExpiry {
			fmt.Fprintf(out, "    Expires:  %s\n", e.ExpiresAt.Format("2006-01-02 15:04:05 MST"))
		} else {
			fmt.Fprintf(out, "    Expires:  no expiry set\n")
		}
		if e.DecodeError != nil {
			fmt.Fprintf(out, "    DECODE ERROR: %v\n", e.DecodeError)
		}
	}
	fmt.Fprintln(out, strings.Repeat("-", 72))
	return nil
}

func plural(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}

// Copyright (C) 2025 The Libra Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces bursts of filesystem events (editors frequently
// write a file via rename-into-place, which fires more than one event per
// save) into a single re-run.
const watchDebounce = 300 * time.Millisecond

// watchAndRerun watches the directories containing paths and calls rerun
// whenever one of them changes, until ctx is canceled. fsnotify watches
// directories rather than files directly so that editors which replace a
// file (rename-over-write) are still picked up.
func watchAndRerun(ctx context.Context, paths []string, rerun func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer watcher.Close()

	watched := map[string]bool{}
	for _, p := range paths {
		dir := filepath.Dir(p)
		if watched[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch: adding %s: %w", dir, err)
		}
		watched[dir] = true
	}

	names := map[string]bool{}
	for _, p := range paths {
		names[filepath.Base(p)] = true
	}

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	slog.Info("watching for changes", slog.Any("paths", paths))
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !names[filepath.Base(event.Name)] {
				continue
			}
			if timer == nil {
				timer = time.AfterFunc(watchDebounce, rerun)
			} else {
				timer.Reset(watchDebounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watch error", slog.String("error", err.Error()))
		}
	}
}

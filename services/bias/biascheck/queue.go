// Copyright (C) 2025 The Libra Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package biascheck

import "github.com/libra-go/libra/services/bias/pattern"

// Item is Q2's element — one activation pattern and its surviving chunks
// (spec.md §5 "Q2 — (index, (pattern, pack)) items for bias analysis").
type Item struct {
	Pattern pattern.ActivationPattern
	Chunks  []pattern.Chunk
}

// Task is Q2's tagged-variant element: a real Item, or the Stop sentinel
// (spec.md §5 "terminated by a single sentinel").
type Task struct {
	Stop bool
	Item Item
}

// StopTask returns the Q2 termination sentinel.
func StopTask() Task { return Task{Stop: true} }

// Queue is Q2: a bounded, blocking queue of Tasks, loaded once by the driver.
type Queue struct {
	ch chan Task
}

// NewQueue returns a Queue with the given buffer capacity.
func NewQueue(capacity int) *Queue {
	return &Queue{ch: make(chan Task, capacity)}
}

// Post enqueues a task, blocking if the queue is full.
func (q *Queue) Post(t Task) { q.ch <- t }

// Get blocks until a task is available.
func (q *Queue) Get() Task { return <-q.ch }

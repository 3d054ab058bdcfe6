// Copyright (C) 2025 The Libra Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package partition

// Queue is Q1: a bounded, blocking task queue. Workers get-block, process,
// and may post zero or more new tasks (spec.md §5 "Q1 — pre-analysis
// tasks... Workers get-block, process, and may post 0–2+n new tasks").
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

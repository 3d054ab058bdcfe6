// Copyright (C) 2025 The Libra Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/libra-go/libra/services/bias/stats"
)

const tuiTickInterval = 250 * time.Millisecond

type tuiTickMsg time.Time

type progressModel struct {
	counters *stats.Counters
	feasible progress.Model
	explored progress.Model
	biased   progress.Model
}

func newProgressModel(counters *stats.Counters) progressModel {
	return progressModel{
		counters: counters,
		feasible: progress.New(progress.WithDefaultGradient()),
		explored: progress.New(progress.WithDefaultGradient()),
		biased:   progress.New(progress.WithSolidFill("9")),
	}
}

func (m progressModel) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(tuiTickInterval, func(t time.Time) tea.Msg { return tuiTickMsg(t) })
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
	case tuiTickMsg:
		return m, tick()
	}
	return m, nil
}

func (m progressModel) View() string {
	feasible, _ := m.counters.Feasible.Load().Float64()
	explored, _ := m.counters.Explored.Load().Float64()
	biased, _ := m.counters.Biased.Load().Float64()
	partitions := atomic.LoadInt64(&m.counters.Partitions)
	analyzed := atomic.LoadInt64(&m.counters.Analyzed)

	header := lipgloss.NewStyle().Bold(true).Render("libra bias analysis")
	return fmt.Sprintf(
		"%s\n\npartitions %d  analyzed %d\n\nexplored  %s\nfeasible  %s\nbiased    %s\n\n(press q to hide)\n",
		header, partitions, analyzed,
		m.explored.ViewAs(explored/100),
		m.feasible.ViewAs(feasible/100),
		m.biased.ViewAs(biased/100),
	)
}

// startProgressTUI launches a bubbletea program rendering counters live in
// the foreground and returns a function that tears it down. The analysis
// itself keeps running on the caller's goroutine; this just observes
// counters concurrently, the same counters the status server publishes.
func startProgressTUI(counters *stats.Counters) func() {
	program := tea.NewProgram(newProgressModel(counters))
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = program.Run()
	}()
	return func() {
		program.Quit()
		<-done
	}
}

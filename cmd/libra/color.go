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

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// workerPalette assigns each worker goroutine its own color, the same idea
// as the original analyzer's per-process ANSI rotation (one distinct
// foreground/background pair per worker, for traceability of interleaved
// log lines) reimplemented with lipgloss styles.
var workerPalette = []lipgloss.Style{
	lipgloss.NewStyle().Foreground(lipgloss.Color("13")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("0")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("9")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("5")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("4")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("6")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("10")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("3")),
}

// colorEnabled reports whether stderr is an interactive terminal; colored
// log prefixes are only useful there.
func colorEnabled() bool {
	return isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
}

// workerLabel renders "[worker N]" in that worker's assigned color when
// stderr is a terminal, or plainly otherwise.
func workerLabel(worker int) string {
	label := fmt.Sprintf("[worker %d]", worker)
	if !colorEnabled() {
		return label
	}
	style := workerPalette[worker%len(workerPalette)]
	return style.Render(label)
}

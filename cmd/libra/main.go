// Copyright (C) 2025 The Libra Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command libra runs a backward bias analysis of a feed-forward ReLU
// classifier's control-flow graph against a sensitive-feature
// specification, reporting the fraction of the input space on which the
// classifier's predicted class can flip solely due to the sensitive
// feature.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:     "libra",
		Short:   "Prove or bound algorithmic bias in a feed-forward ReLU classifier",
		Version: version,
	}

	rootCmd.AddCommand(newAnalyzeCmd(), newCacheCmd())

	if err := rootCmd.Execute(); err != nil {
		slog.Error("libra: command failed", slog.String("error", err.Error()))
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

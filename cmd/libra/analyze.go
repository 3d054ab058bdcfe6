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
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/dgraph-io/badger/v4"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/libra-go/libra/services/bias/cache"
	"github.com/libra-go/libra/services/bias/cfg"
	"github.com/libra-go/libra/services/bias/cfgfile"
	"github.com/libra-go/libra/services/bias/config"
	"github.com/libra-go/libra/services/bias/domain"
	"github.com/libra-go/libra/services/bias/driver"
	"github.com/libra-go/libra/services/bias/report"
	"github.com/libra-go/libra/services/bias/specfile"
	"github.com/libra-go/libra/services/bias/statusapi"
	"github.com/libra-go/libra/services/bias/symbolic"
	"github.com/libra-go/libra/services/bias/stats"
)

type analyzeOpts struct {
	specPath      string
	networkPath   string
	classesCSV    string
	configPath    string
	cacheDir      string
	reportPath    string
	reportBucket  string
	reportObject  string
	serveStatus   bool
	statusAddr    string
	tui           bool
	watch         bool
}

func newAnalyzeCmd() *cobra.Command {
	opts := &analyzeOpts{}

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run a bias analysis over a network's control-flow graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := fillMissingInteractively(opts); err != nil {
				return err
			}
			return runAnalyze(cmd.Context(), opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.specPath, "spec", "", "path to the sensitive/uncontroversial feature specification file")
	flags.StringVar(&opts.networkPath, "network", "", "path to the JSON control-flow graph document")
	flags.StringVar(&opts.classesCSV, "classes", "", "comma-separated output class variable names")
	flags.StringVar(&opts.configPath, "config", "", "path to a tunables YAML file (defaults to the built-in defaults)")
	flags.StringVar(&opts.cacheDir, "cache-dir", "", "BadgerDB directory for the pattern cache (disabled if empty)")
	flags.StringVar(&opts.reportPath, "report", "", "local path to write the JSON result report")
	flags.StringVar(&opts.reportBucket, "report-gcs-bucket", "", "GCS bucket to upload the JSON result report to")
	flags.StringVar(&opts.reportObject, "report-gcs-object", "", "GCS object name (defaults to a timestamped name)")
	flags.BoolVar(&opts.serveStatus, "serve-status", false, "start the status/metrics HTTP server for the run's duration")
	flags.StringVar(&opts.statusAddr, "status-addr", ":8090", "address for --serve-status")
	flags.BoolVar(&opts.tui, "tui", false, "show a live progress bar instead of plain log lines")
	flags.BoolVar(&opts.watch, "watch", false, "re-run the analysis whenever --spec or --network changes")

	return cmd
}

// fillMissingInteractively prompts for required-but-unset flags with a huh
// form when stdin is an interactive terminal; otherwise it leaves them
// unset and lets runAnalyze report the missing-flag error.
func fillMissingInteractively(opts *analyzeOpts) error {
	if opts.specPath != "" && opts.networkPath != "" && opts.classesCSV != "" {
		return nil
	}
	if !isatty.IsTerminal(os.Stdin.Fd()) {
		return nil
	}

	fields := make([]huh.Field, 0, 3)
	if opts.specPath == "" {
		fields = append(fields, huh.NewInput().
			Title("Specification file").
			Description("Path to the sensitive/uncontroversial feature spec-file").
			Value(&opts.specPath).
			Validate(requireNonEmpty))
	}
	if opts.networkPath == "" {
		fields = append(fields, huh.NewInput().
			Title("Network graph file").
			Description("Path to the JSON control-flow graph document").
			Value(&opts.networkPath).
			Validate(requireNonEmpty))
	}
	if opts.classesCSV == "" {
		fields = append(fields, huh.NewInput().
			Title("Output classes").
			Description("Comma-separated output class variable names").
			Value(&opts.classesCSV).
			Validate(requireNonEmpty))
	}
	if len(fields) == 0 {
		return nil
	}

	form := huh.NewForm(huh.NewGroup(fields...))
	return form.Run()
}

func requireNonEmpty(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("required")
	}
	return nil
}

func runAnalyze(ctx context.Context, opts *analyzeOpts) error {
	if opts.specPath == "" || opts.networkPath == "" || opts.classesCSV == "" {
		return fmt.Errorf("analyze: --spec, --network, and --classes are all required")
	}

	if opts.watch {
		return runAnalyzeWatching(ctx, opts)
	}
	return runAnalyzeOnce(ctx, opts)
}

func runAnalyzeOnce(ctx context.Context, opts *analyzeOpts) error {
	tunables, err := loadTunables(ctx, opts.configPath)
	if err != nil {
		return err
	}

	graph, err := loadGraph(opts.networkPath)
	if err != nil {
		return err
	}

	spec, specBytes, err := loadSpecification(opts, graph)
	if err != nil {
		return err
	}

	classes := parseClasses(opts.classesCSV)

	counters := &stats.Counters{}

	var statusSrv *statusapi.Server
	if opts.serveStatus {
		statusSrv = statusapi.NewServer(opts.statusAddr, counters)
		serverCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := statusSrv.Run(serverCtx); err != nil {
				slog.Warn("status server stopped", slog.String("error", err.Error()))
			}
		}()
		go statusSrv.PublishLoop(serverCtx, time.Duration(tunables.ProgressIntervalSeconds)*time.Second)
	}

	var stop func()
	if opts.tui {
		stop = startProgressTUI(counters)
		defer stop()
	}

	patternStore, cleanupCache, err := openCacheStore(opts.cacheDir)
	if err != nil {
		return err
	}
	defer cleanupCache()

	d := driver.Driver{
		Tunables:  tunables,
		Classes:   classes,
		Cache:     patternStore,
		CacheKey:  cacheKeyFor(specBytes, graph, tunables),
		SpecBytes: specBytes,
		Counters:  counters,
	}

	slog.Info(workerLabel(0) + " starting analysis")
	result, err := d.Analyze(ctx, spec, graph)
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}

	if opts.reportPath != "" {
		doc := report.BuildDocument(result, time.Now())
		if err := report.WriteLocal(opts.reportPath, doc); err != nil {
			return err
		}
	}
	if opts.reportBucket != "" {
		objectName := opts.reportObject
		if objectName == "" {
			objectName = fmt.Sprintf("libra-report-%d.json", time.Now().Unix())
		}
		doc := report.BuildDocument(result, time.Now())
		if err := report.WriteGCS(ctx, report.GCSDestination{Bucket: opts.reportBucket, Object: objectName}, doc); err != nil {
			return err
		}
	}

	return nil
}

func runAnalyzeWatching(ctx context.Context, opts *analyzeOpts) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	run := func() {
		if err := runAnalyzeOnce(ctx, opts); err != nil {
			slog.Error("analyze run failed", slog.String("error", err.Error()))
		}
	}
	run()

	return watchAndRerun(ctx, []string{opts.specPath, opts.networkPath}, run)
}

func loadTunables(ctx context.Context, path string) (*config.Tunables, error) {
	if path == "" {
		return config.GetTunables(ctx)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("analyze: reading config %s: %w", path, err)
	}
	return config.LoadTunables(ctx, data)
}

func loadSpecification(opts *analyzeOpts, graph *cfg.Graph) (*specfile.Specification, []byte, error) {
	data, err := os.ReadFile(opts.specPath)
	if err != nil {
		return nil, nil, fmt.Errorf("analyze: reading spec %s: %w", opts.specPath, err)
	}

	var inputs []symbolic.Variable
	for _, n := range graph.Nodes() {
		if n.Kind == cfg.KindInput {
			inputs = append(inputs, symbolic.Variable(n.ID))
		}
	}
	spec, err := specfile.Parse(strings.NewReader(string(data)), inputs)
	if err != nil {
		return nil, nil, fmt.Errorf("analyze: parsing spec %s: %w", opts.specPath, err)
	}
	return spec, data, nil
}

func loadGraph(path string) (*cfg.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("analyze: opening network %s: %w", path, err)
	}
	defer f.Close()

	g, err := cfgfile.Load(f)
	if err != nil {
		return nil, fmt.Errorf("analyze: loading network %s: %w", path, err)
	}
	return g, nil
}

func parseClasses(csv string) []domain.Variable {
	parts := strings.Split(csv, ",")
	out := make([]domain.Variable, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, symbolic.Variable(p))
		}
	}
	return out
}

func openCacheStore(dir string) (cache.Store, func(), error) {
	if dir == "" {
		return nil, func() {}, nil
	}
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, nil, fmt.Errorf("analyze: opening cache %s: %w", dir, err)
	}
	store, err := cache.NewBadgerStore(db, cache.DefaultTTL, nil)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return store, func() { _ = db.Close() }, nil
}

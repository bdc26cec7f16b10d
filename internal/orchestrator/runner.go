// Copyright (c) 2025 Naren Yellavula & Cybrota contributors
// Apache License, Version 2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/briandowns/spinner"
	gh "github.com/google/go-github/v55/github"

	"github.com/cybrota/igloo/internal/batch"
	"github.com/cybrota/igloo/internal/collect"
	"github.com/cybrota/igloo/internal/config"
	"github.com/cybrota/igloo/internal/discover"
	internalgithub "github.com/cybrota/igloo/internal/github"
	"github.com/cybrota/igloo/internal/scan"
)

// Runner drives one full run: optional clone phase, folder discovery,
// batched scanning, artifact collection and the operator report.
type Runner struct {
	logger   *slog.Logger
	client   *internalgithub.Client
	opts     *config.Options
	scanners *config.Config

	// Out receives operator-facing status lines; defaults to stdout.
	Out io.Writer
	// Progress enables the terminal spinner while batches are in flight.
	Progress bool
}

func NewRunner(logger *slog.Logger, client *internalgithub.Client, opts *config.Options, scanners *config.Config) *Runner {
	return &Runner{
		logger:   logger,
		client:   client,
		opts:     opts,
		scanners: scanners,
		Out:      os.Stdout,
	}
}

// Run executes the end-to-end workflow. Individual clone or scan failures
// never abort the run; only configuration-level problems do. Zero folders
// discovered surfaces discover.ErrNoRepos.
func (r *Runner) Run(ctx context.Context) error {
	if r.opts.CompanyName != "" {
		if err := r.clonePhase(ctx); err != nil {
			return err
		}
	}
	return r.scanPhase(ctx)
}

// clonePhase lists the organization's repositories and clones them into the
// target path in waves. A listing failure is reported and the phase goes on
// with whatever was parsed; per-repo clone failures are logged and skipped.
func (r *Runner) clonePhase(ctx context.Context) error {
	repos, err := r.client.ListRepos(ctx)
	if err != nil {
		r.logger.Error("repository listing failed",
			slog.String("org", r.opts.CompanyName),
			slog.Any("error", err))
		fmt.Fprintf(r.Out, "warning: %v\n", err)
	}
	fmt.Fprintf(r.Out, "found %d repositories in %s\n", len(repos), r.opts.CompanyName)
	if len(repos) == 0 {
		return nil
	}
	if err := os.MkdirAll(r.opts.Path, 0755); err != nil {
		return fmt.Errorf("create clone path: %w", err)
	}

	runner := batch.NewRunner[*gh.Repository](r.logger, r.opts.BatchSize)
	var stop func()
	runner.OnBatch, stop = r.spin("cloning")
	outcomes := runner.RunAll(ctx, repos, func(ctx context.Context, repo *gh.Repository) error {
		r.logger.Info("cloning repository", slog.String("repo", repo.GetName()))
		_, err := r.client.CloneRepo(ctx, repo, r.opts.Path)
		return err
	})
	stop()

	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
			r.logger.Error("clone failed",
				slog.String("repo", o.Item.GetName()),
				slog.Any("error", o.Err))
		}
	}
	fmt.Fprintf(r.Out, "cloned %d repositories, %d failed\n", len(outcomes)-failed, failed)
	return nil
}

// scanPhase discovers folders, scans them in waves and reports the
// surviving artifacts.
func (r *Runner) scanPhase(ctx context.Context) error {
	noRecurse := r.opts.NoRecurse && r.opts.CompanyName == ""
	folders, err := discover.Discover(r.opts.Path, noRecurse)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.Out, "scanning %d folders under %s\n", len(folders), r.opts.Path)

	executor, err := scan.NewExecutor(r.scanners, r.opts.OutputPath)
	if err != nil {
		return err
	}

	runner := batch.NewRunner[discover.Folder](r.logger, r.opts.BatchSize)
	var stop func()
	runner.OnBatch, stop = r.spin("scanning")
	outcomes := runner.RunAll(ctx, folders, executor.Run)
	stop()

	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
			r.logger.Error("scan failed",
				slog.String("folder", o.Item.Name),
				slog.Any("error", o.Err))
		}
	}
	if failed > 0 {
		fmt.Fprintf(r.Out, "%d folders failed to scan, see %s\n",
			failed, scan.ErrorLogName)
	}

	res, err := collect.Collect(r.opts.OutputPath)
	if err != nil {
		return err
	}
	r.logger.Info("collection finished",
		slog.Int("kept", len(res.Kept)),
		slog.Int("discarded", res.Discarded))
	res.Report(r.Out)
	return nil
}

// spin returns a batch callback that drives a terminal spinner, plus its
// stop function. Without Progress both are no-ops and wave boundaries only
// show up in the structured log.
func (r *Runner) spin(verb string) (func(n, total int), func()) {
	if !r.Progress {
		return nil, func() {}
	}
	sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	sp.Start()
	return func(n, total int) {
		sp.Suffix = fmt.Sprintf(" %s batch %d/%d", verb, n, total)
	}, sp.Stop
}

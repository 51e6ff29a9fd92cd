package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zfsmirror/zfsync/internal/command"
	"github.com/zfsmirror/zfsync/internal/config"
	"github.com/zfsmirror/zfsync/internal/datasetspec"
	"github.com/zfsmirror/zfsync/internal/errscope"
	"github.com/zfsmirror/zfsync/internal/logging"
	"github.com/zfsmirror/zfsync/internal/metrics"
	"github.com/zfsmirror/zfsync/internal/pipeline"
	"github.com/zfsmirror/zfsync/internal/plan"
	"github.com/zfsmirror/zfsync/internal/progress"
	"github.com/zfsmirror/zfsync/internal/reconcile"
	"github.com/zfsmirror/zfsync/internal/replicate"
	"github.com/zfsmirror/zfsync/internal/report"
	"github.com/zfsmirror/zfsync/internal/retry"
	"github.com/zfsmirror/zfsync/internal/zfs"
)

func runReplicate(cmd *cobra.Command, args []string) error {
	pairs, err := datasetspec.ResolvePairs(args)
	if err != nil {
		return usageError{err}
	}

	cfg.Datasets = make([]config.DatasetPair, len(pairs))
	for i, p := range pairs {
		cfg.Datasets[i] = config.DatasetPair{Src: p.Src.Path.String(), Dst: p.Dst.Path.String()}
	}

	if flagPolicyFile != "" {
		fileCfg, err := config.LoadFile(flagPolicyFile)
		if err != nil {
			return usageError{err}
		}
		overlayPolicyDefaults(cfg, fileCfg)
	}
	if err := config.Load(cfg); err != nil {
		return usageError{err}
	}

	logger, closeLog, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var metricsReg *metrics.Registry
	if cfg.MetricsListen != "" {
		metricsReg = metrics.New()
		srv := metrics.Serve(cfg.MetricsListen, metricsReg)
		defer srv.Shutdown(ctx)
	}

	var progressEvents chan progress.Event
	if cfg.ShowProgress {
		progressEvents = make(chan progress.Event, 64)
		go progress.Run(progressEvents)
		defer close(progressEvents)
	}

	datasetFilter, err := cfg.DatasetFilter()
	if err != nil {
		return usageError{err}
	}
	snapshotFilter, err := cfg.SnapshotFilter()
	if err != nil {
		return usageError{err}
	}
	snapshotAllowed := snapshotFilter.Allows

	runner := command.New()
	runner.Timeout = cfg.CommandTimeout
	controller := errscope.New(errscope.Mode(cfg.SkipOnError))
	summary := &report.Summary{}

	dryRun := dryRunMode(cfg.DryRun)

	var forceOnce *replicate.ForceOnceBudget
	if cfg.ForceOnce {
		forceOnce = replicate.NewForceOnceBudget()
	}

	for _, pair := range pairs {
		pc := buildPairClients(pair, runner, cfg.ProgramOverrides, cfg.NoPrivilegeElevation)

		items, err := (&plan.Planner{
			SrcClient: pc.Src,
			SrcRoot:   pc.SrcRoot,
			DstRoot:   pc.DstRoot,
			Recursive: cfg.Recursive,
			Filter:    datasetFilter,
		}).Plan(ctx)
		if err != nil {
			return fmt.Errorf("plan %s: %w", pc.SrcRoot, err)
		}

		bookmarksSupported, _ := pc.Src.SupportsBookmarks(ctx, pc.SrcRoot)

		level, compress := cfg.EffectiveCompression()
		if !compress {
			level = 0
		}

		opt := replicate.Options{
			Force:                cfg.Force,
			ForceUnmount:         cfg.ForceUnmount,
			NoStream:             cfg.NoStream,
			SkipMissingSnapshots: replicate.SkipMissingSnapshots(cfg.SkipMissingSnapshots),
			NoCreateBookmark:     cfg.NoCreateBookmark,
			BookmarksSupported:   bookmarksSupported,
			SnapshotNameAllowed:  snapshotAllowed,
			CompressionLevel:     level,
			ShowProgress:         cfg.ShowProgress,
			DryRun:               dryRun,
			RetryPolicy: retry.Policy{
				Retries:    cfg.RetryMaxAttempts,
				MinSleep:   cfg.RetryMinSleep,
				MaxSleep:   cfg.RetryMaxSleep,
				MaxElapsed: cfg.RetryMaxElapsed,
			},
			OnStderrLine: stderrReporter(logger, progressEvents),
			ForceOnce:    forceOnce,
		}

		r := &replicate.Replicator{Src: pc.Src, Dst: pc.Dst, Opt: opt}

		for _, item := range items {
			l := logging.With(ctx, slog.String("dataset", item.Dst.String()))
			if controller.Skipped(item) {
				logging.FromContext(l).Info("skipping dataset, ancestor failed")
				continue
			}

			dstExisted, _ := pc.Dst.Exists(ctx, item.Dst)

			if cfg.DryRun == "diff" {
				if err := diffOne(ctx, pc, item, snapshotAllowed); err != nil {
					logging.FromContext(l).Error("diff failed", "error", err)
				}
				continue
			}
			if cfg.SkipReplication {
				continue
			}

			outcome := r.Run(l, item)
			summary.AddDataset(report.DatasetResult{
				Dataset: item.Dst.String(), Status: outcome.Status.String(),
				Reason: outcome.Reason, Err: outcome.Err, StepsRun: outcome.StepsRun,
			})
			if metricsReg != nil {
				metricsReg.ObserveOutcome(outcome.Status.String())
			}

			if outcome.Status == replicate.StatusFailed {
				logging.FromContext(l).Error("replication failed", "error", outcome.Err)
				decision := controller.HandleFailure(item, dstExisted, items)
				if decision.AbortRun {
					return outcome.Err
				}
			}
		}

		if cfg.DeleteMissingSnapshots || cfg.DeleteMissingDatasets {
			res := reconcile.Run(ctx, pc.Src, pc.Dst, items, reconcile.Options{
				DeleteMissingSnapshots: cfg.DeleteMissingSnapshots,
				DeleteMissingDatasets:  cfg.DeleteMissingDatasets,
				ForceUnmount:           cfg.ForceUnmount,
				SnapshotNameAllowed:    snapshotAllowed,
				DatasetAllowed:         datasetFilter.Allows,
			})
			for _, e := range res.Errors {
				logging.FromContext(ctx).Error("reconcile error", "error", e)
			}
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), summary.String())
	if _, _, failed := summary.Counts(); failed > 0 {
		return fmt.Errorf("%d dataset(s) failed", failed)
	}
	return nil
}

func dryRunMode(mode string) pipeline.DryRun {
	switch mode {
	case "send":
		return pipeline.DryRunSend
	case "recv":
		return pipeline.DryRunRecv
	default:
		return pipeline.DryRunNone
	}
}

func diffOne(ctx context.Context, pc pairClients, item plan.WorkItem, snapshotAllowed func(string) bool) error {
	srcEntries, err := pc.Src.Inventory(ctx, item.Src, zfs.ListOptions{NameFilter: snapshotAllowed})
	if err != nil {
		return err
	}
	dstEntries, err := pc.Dst.Inventory(ctx, item.Dst, zfs.ListOptions{})
	if err != nil {
		return err
	}
	d, err := report.Diff(item.Dst.String(), dstEntries, srcEntries)
	if err != nil {
		return err
	}
	if d.Changed {
		fmt.Println(d.Patch)
	}
	return nil
}

func stderrReporter(logger *slog.Logger, events chan progress.Event) func(dataset, stage, line string) {
	return func(dataset, stage, line string) {
		logger.Debug("pipeline output", "dataset", dataset, "stage", stage, "line", line)
		if events == nil || stage != "pv" {
			return
		}
		if bytes, ok := progress.ParsePVBytes(line); ok {
			events <- progress.Event{Dataset: dataset, Stage: stage, BytesDone: bytes}
		}
	}
}

func overlayPolicyDefaults(cli, file *config.RunConfig) {
	if len(cli.Datasets) == 0 {
		cli.Datasets = file.Datasets
	}
}

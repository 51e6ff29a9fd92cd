// Package replicate implements the Per-Dataset Replicator: the
// INSPECT -> CONFLICT? -> PLAN -> TRANSFER -> BOOKMARK
// state machine that brings one destination dataset up to date with
// its source.
package replicate

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/zfsmirror/zfsync/internal/command"
	"github.com/zfsmirror/zfsync/internal/pipeline"
	"github.com/zfsmirror/zfsync/internal/plan"
	"github.com/zfsmirror/zfsync/internal/resolve"
	"github.com/zfsmirror/zfsync/internal/retry"
	"github.com/zfsmirror/zfsync/internal/zfs"
)

// Options configures a Replicator for an entire run; it is shared
// read-only across all dataset pairs except ForceOnce, which is a
// shared budget.
type Options struct {
	Force                bool
	ForceUnmount         bool
	ForceOnce            *ForceOnceBudget // nil disables --force-once entirely
	NoStream             bool
	SkipMissingSnapshots SkipMissingSnapshots
	NoCreateBookmark     bool
	BookmarksSupported   bool

	SnapshotNameAllowed func(name string) bool // nil = allow all

	CompressionLevel int
	ShowProgress     bool
	DryRun           pipeline.DryRun

	RetryPolicy retry.Policy

	OnStderrLine func(dataset, stageLabel, line string)
}

// Replicator drives one (source, destination) dataset pair through
// the full state machine.
type Replicator struct {
	Src *zfs.Client
	Dst *zfs.Client
	Opt Options
}

// Run executes the state machine for item and returns its terminal
// Outcome. It never returns an error itself; failures are reported in
// the Outcome so callers can't accidentally treat SKIPPED as an error.
func (r *Replicator) Run(ctx context.Context, item plan.WorkItem) Outcome {
	// INSPECT
	srcOpts := zfs.ListOptions{IncludeBookmarks: r.Opt.BookmarksSupported}
	dstOpts := zfs.ListOptions{IncludeBookmarks: false}
	srcEntries, dstEntries, dstExists, err := zfs.FetchBoth(ctx, r.Src, r.Dst, item.Src, item.Dst, srcOpts, dstOpts)
	if err != nil {
		return Outcome{Status: StatusFailed, Err: fmt.Errorf("inspect: %w", err)}
	}

	candidates := filterCandidates(srcEntries, r.Opt.SnapshotNameAllowed)
	if len(candidates) == 0 {
		return r.handleNoCandidates(ctx, item, dstExists)
	}

	base := resolve.Resolve(srcEntries, dstEntries, dstExists)

	// CONFLICT?
	if conflict, detail := r.detectConflict(base, dstEntries, dstExists); conflict {
		if !r.mayForce() {
			return Outcome{Status: StatusFailed, Err: &PolicyConflict{Dataset: item.Dst.String(), Detail: detail}}
		}
		if err := r.resolveConflict(ctx, item, base, dstExists); err != nil {
			return Outcome{Status: StatusFailed, Err: fmt.Errorf("resolve conflict: %w", err)}
		}
	}

	// PLAN
	steps := planSteps(base, candidates, r.Opt.NoStream)
	if len(steps) == 0 {
		return Outcome{Status: StatusDone} // idempotent no-op
	}

	// TRANSFER
	var lastTarget zfs.SnapshotEntry
	for _, st := range steps {
		if err := r.transfer(ctx, item, st); err != nil {
			return Outcome{Status: StatusFailed, Err: fmt.Errorf("transfer %s: %w", st.target.FullName(), err), StepsRun: 0}
		}
		lastTarget = st.target
	}

	// BOOKMARK
	if !r.Opt.NoCreateBookmark && r.Opt.BookmarksSupported {
		if err := r.Src.Bookmark(ctx, lastTarget, lastTarget.Name); err != nil {
			return Outcome{Status: StatusFailed, Err: fmt.Errorf("bookmark: %w", err), StepsRun: len(steps)}
		}
	}

	return Outcome{Status: StatusDone, StepsRun: len(steps)}
}

func filterCandidates(entries []zfs.SnapshotEntry, allowed func(string) bool) []zfs.SnapshotEntry {
	out := make([]zfs.SnapshotEntry, 0, len(entries))
	for _, e := range entries {
		if e.Kind != zfs.KindSnapshot {
			continue
		}
		if allowed != nil && !allowed(e.Name) {
			continue
		}
		out = append(out, e)
	}
	sort.Sort(zfs.ByCreateTXG(out))
	return out
}

func (r *Replicator) handleNoCandidates(ctx context.Context, item plan.WorkItem, dstExists bool) Outcome {
	switch r.Opt.SkipMissingSnapshots {
	case SkipMissingFail:
		return Outcome{Status: StatusFailed, Err: fmt.Errorf("no candidate snapshots on source for %s", item.Src)}
	case SkipMissingContinue:
		if r.Opt.Force && dstExists {
			if err := r.destroyAllDestinationSnapshots(ctx, item); err != nil {
				return Outcome{Status: StatusFailed, Err: fmt.Errorf("clear destination for missing-snapshot continue: %w", err)}
			}
		}
		if needsPlaceholderAncestor(r.Opt.SkipMissingSnapshots, dstExists) {
			if err := r.Dst.CreatePlaceholderDataset(ctx, item.Dst); err != nil {
				return Outcome{Status: StatusFailed, Err: fmt.Errorf("create placeholder ancestor for missing-snapshot continue: %w", err)}
			}
			return Outcome{Status: StatusSkipped, Reason: "no candidate snapshots (continue, placeholder ancestor created)"}
		}
		return Outcome{Status: StatusSkipped, Reason: "no candidate snapshots (continue)"}
	default: // SkipMissingDataset
		return Outcome{Status: StatusSkipped, Reason: "no candidate snapshots"}
	}
}

// needsPlaceholderAncestor reports whether handleNoCandidates must
// create an empty destination dataset so that a selected descendant
// further down a recursive plan still has an existing parent to
// receive into.
func needsPlaceholderAncestor(skip SkipMissingSnapshots, dstExists bool) bool {
	return skip == SkipMissingContinue && !dstExists
}

func (r *Replicator) destroyAllDestinationSnapshots(ctx context.Context, item plan.WorkItem) error {
	entries, err := r.Dst.Inventory(ctx, item.Dst, zfs.ListOptions{})
	if err != nil {
		return err
	}
	ops := make([]*zfs.DestroyOp, len(entries))
	errs := make([]error, len(entries))
	for i, e := range entries {
		ops[i] = &zfs.DestroyOp{Filesystem: item.Dst.String(), Name: e.Name, ForceUnmount: r.Opt.ForceUnmount, ErrOut: &errs[i]}
	}
	r.Dst.DestroyBatched(ctx, ops)
	return errors.Join(errs...)
}

// detectConflict reports whether the destination holds snapshots that
// the resolved common base can't explain: anything strictly newer
// than the base's destination snapshot, or (when there is no common
// base at all) any destination snapshot whatsoever.
func (r *Replicator) detectConflict(base resolve.CommonBase, dstEntries []zfs.SnapshotEntry, dstExists bool) (bool, string) {
	if !dstExists {
		return false, ""
	}
	if !base.Found {
		for _, d := range dstEntries {
			if d.Kind == zfs.KindSnapshot {
				return true, fmt.Sprintf("destination has snapshot %s but no common base with source", d.FullName())
			}
		}
		return false, ""
	}
	for _, d := range dstEntries {
		if d.Kind == zfs.KindSnapshot && d.CreateTXG > base.Dst.CreateTXG {
			return true, fmt.Sprintf("destination has snapshot %s newer than common base %s", d.FullName(), base.Dst.FullName())
		}
	}
	return false, ""
}

func (r *Replicator) mayForce() bool {
	if r.Opt.Force {
		return true
	}
	if r.Opt.ForceOnce != nil {
		return r.Opt.ForceOnce.Take()
	}
	return false
}

func (r *Replicator) resolveConflict(ctx context.Context, item plan.WorkItem, base resolve.CommonBase, dstExists bool) error {
	if !dstExists {
		return nil
	}
	if base.Found {
		return r.Dst.Rollback(ctx, base.Dst, r.Opt.ForceUnmount)
	}
	return r.destroyAllDestinationSnapshots(ctx, item)
}

type sendStep struct {
	base   *zfs.SnapshotEntry
	target zfs.SnapshotEntry
	mode   zfs.SendMode
}

// planSteps builds the TRANSFER plan: an initial
// full send of the earliest candidate when there is no common base,
// followed (in the same run, if more candidates exist) by one
// incremental step to the newest candidate; or, when a common
// base exists, a single incremental step from base to the newest
// candidate (a no-op if nothing is newer). Incremental steps carry
// the intermediate candidates (-I) unless noStream selects -i.
func planSteps(base resolve.CommonBase, candidates []zfs.SnapshotEntry, noStream bool) []sendStep {
	incrementalMode := zfs.SendIncrementalIntermediates
	if noStream {
		incrementalMode = zfs.SendIncrementalSingle
	}

	if !base.Found {
		first := candidates[0]
		steps := []sendStep{{base: nil, target: first, mode: zfs.SendFull}}
		if len(candidates) > 1 {
			last := candidates[len(candidates)-1]
			steps = append(steps, sendStep{base: &first, target: last, mode: incrementalMode})
		}
		return steps
	}

	last := candidates[len(candidates)-1]
	if last.CreateTXG <= base.Src.CreateTXG {
		return nil
	}
	baseEntry := base.Src
	return []sendStep{{base: &baseEntry, target: last, mode: incrementalMode}}
}

func (r *Replicator) transfer(ctx context.Context, item plan.WorkItem, st sendStep) error {
	builder := &pipeline.Builder{
		Src:              r.Src.EP,
		Dst:              r.Dst.EP,
		CompressionLevel: r.Opt.CompressionLevel,
		ShowProgress:     r.Opt.ShowProgress,
		ForceRollback:    false,
		OnStderrLine: func(label, line string) {
			if r.Opt.OnStderrLine != nil {
				r.Opt.OnStderrLine(item.Dst.String(), label, line)
			}
		},
	}

	classify := func(err error) bool {
		var failed *command.Failed
		if errors.As(err, &failed) {
			return zfs.IsTransient([]byte(failed.StderrTail))
		}
		var zerr *zfs.Error
		if errors.As(err, &zerr) {
			return zfs.IsTransient(zerr.Stderr)
		}
		return false
	}

	return retry.Do(ctx, r.Opt.RetryPolicy, classify, func(ctx context.Context) error {
		p, err := builder.Build(ctx, st.base, st.target, st.mode, r.Opt.DryRun)
		if err != nil {
			return err
		}
		_, err = p.Run(ctx)
		return err
	})
}

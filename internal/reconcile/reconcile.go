// Package reconcile implements the Reconciliation Passes: after
// replication, optionally destroy destination snapshots
// and datasets that have fallen outside the source's selected tree.
package reconcile

import (
	"context"
	"fmt"
	"strings"

	"github.com/zfsmirror/zfsync/internal/plan"
	"github.com/zfsmirror/zfsync/internal/zfs"
)

// Options configures both passes for a run.
type Options struct {
	DeleteMissingSnapshots bool
	DeleteMissingDatasets  bool
	ForceUnmount           bool

	// SnapshotNameAllowed gates which destination snapshots the
	// delete-missing-snapshots pass is allowed to even consider,
	// mirroring the snapshot-name filter applied on the source side.
	SnapshotNameAllowed func(name string) bool

	// DatasetAllowed gates which destination dataset paths (relative to
	// the destination root) the delete-missing-datasets pass may touch.
	// cmd/zfsync passes the dataset filter here; no ZFS property is
	// consulted by either pass.
	DatasetAllowed func(relpath string) bool
}

// Result reports what each pass did, for logging/reporting.
type Result struct {
	SnapshotsDestroyed int
	DatasetsDestroyed  int
	Errors             []error
}

// Run executes both configured passes over items, which must already
// be restricted to datasets that passed the Filter Engine.
func Run(ctx context.Context, src, dst *zfs.Client, items []plan.WorkItem, opt Options) Result {
	var res Result
	if opt.DeleteMissingSnapshots {
		n, errs := deleteMissingSnapshots(ctx, src, dst, items, opt)
		res.SnapshotsDestroyed += n
		res.Errors = append(res.Errors, errs...)
	}
	if opt.DeleteMissingDatasets {
		n, errs := deleteMissingDatasets(ctx, dst, items, opt)
		res.DatasetsDestroyed += n
		res.Errors = append(res.Errors, errs...)
	}
	return res
}

// deleteMissingSnapshots implements first pass: for
// each selected destination dataset, destroy every destination
// snapshot whose GUID doesn't appear in the source's snapshot set.
func deleteMissingSnapshots(ctx context.Context, src, dst *zfs.Client, items []plan.WorkItem, opt Options) (int, []error) {
	var destroyed int
	var errs []error
	for _, item := range items {
		exists, err := dst.Exists(ctx, item.Dst)
		if err != nil {
			errs = append(errs, fmt.Errorf("reconcile: check %s: %w", item.Dst, err))
			continue
		}
		if !exists {
			continue
		}

		srcEntries, err := src.Inventory(ctx, item.Src, zfs.ListOptions{})
		if err != nil {
			errs = append(errs, fmt.Errorf("reconcile: source inventory %s: %w", item.Src, err))
			continue
		}
		srcGUIDs := make(map[uint64]bool, len(srcEntries))
		for _, e := range srcEntries {
			srcGUIDs[e.Guid] = true
		}

		dstEntries, err := dst.Inventory(ctx, item.Dst, zfs.ListOptions{NameFilter: opt.SnapshotNameAllowed})
		if err != nil {
			errs = append(errs, fmt.Errorf("reconcile: destination inventory %s: %w", item.Dst, err))
			continue
		}

		orphaned := snapshotsMissingFrom(dstEntries, srcGUIDs)
		if len(orphaned) == 0 {
			continue
		}
		ops := make([]*zfs.DestroyOp, len(orphaned))
		errOuts := make([]error, len(orphaned))
		for i, d := range orphaned {
			ops[i] = &zfs.DestroyOp{Filesystem: item.Dst.String(), Name: d.Name, ForceUnmount: opt.ForceUnmount, ErrOut: &errOuts[i]}
		}
		dst.DestroyBatched(ctx, ops)
		for _, e := range errOuts {
			if e != nil {
				errs = append(errs, e)
			} else {
				destroyed++
			}
		}
	}
	return destroyed, errs
}

// deleteMissingDatasets implements second pass: destroy
// destination datasets that are no longer present in the source's
// selected tree, and selected destination datasets whose entire
// subtree holds no snapshot.
func deleteMissingDatasets(ctx context.Context, dst *zfs.Client, items []plan.WorkItem, opt Options) (int, []error) {
	var errs []error
	var destroyed int

	wanted := make(map[string]bool, len(items))
	for _, item := range items {
		wanted[item.Dst.String()] = true
	}

	var root zfs.DatasetPath
	for _, item := range items {
		if item.Depth == 0 {
			root = item.Dst
			break
		}
	}
	if root.Length() == 0 {
		return 0, errs
	}

	present, err := dst.DescendantPaths(ctx, root)
	if err != nil {
		// Destination tree may not exist yet; nothing to reconcile.
		return 0, nil
	}

	for _, ds := range present {
		rel, ok := ds.RelativeTo(root)
		if !ok {
			continue
		}
		if opt.DatasetAllowed != nil && !opt.DatasetAllowed(strings.Join(rel, "/")) {
			continue
		}
		empty, err := hasNoSnapshots(ctx, dst, ds)
		if err != nil {
			errs = append(errs, fmt.Errorf("reconcile: check snapshots under %s: %w", ds, err))
			continue
		}
		if !shouldDestroyDataset(wanted[ds.String()], empty) {
			continue
		}
		if err := dst.Destroy(ctx, ds.String(), opt.ForceUnmount); err != nil {
			errs = append(errs, fmt.Errorf("reconcile: destroy dataset %s: %w", ds, err))
			continue
		}
		destroyed++
	}
	return destroyed, errs
}

// hasNoSnapshots reports whether ds's entire subtree, ds itself plus
// every descendant, holds no snapshot.
func hasNoSnapshots(ctx context.Context, dst *zfs.Client, ds zfs.DatasetPath) (bool, error) {
	subtree, err := dst.DescendantPaths(ctx, ds)
	if err != nil {
		return false, err
	}
	for _, d := range subtree {
		entries, err := dst.Inventory(ctx, d, zfs.ListOptions{})
		if err != nil {
			return false, err
		}
		if len(entries) > 0 {
			return false, nil
		}
	}
	return true, nil
}

// snapshotsMissingFrom returns the destination snapshots whose GUID
// has no match in srcGUIDs, in the order they were given.
func snapshotsMissingFrom(dstEntries []zfs.SnapshotEntry, srcGUIDs map[uint64]bool) []zfs.SnapshotEntry {
	var out []zfs.SnapshotEntry
	for _, d := range dstEntries {
		if !srcGUIDs[d.Guid] {
			out = append(out, d)
		}
	}
	return out
}

// shouldDestroyDataset decides, for one destination dataset discovered
// under the reconciled root, whether deleteMissingDatasets should
// remove it: either it fell outside the source's selected tree
// entirely, or it's still selected but its whole subtree is empty of
// snapshots.
func shouldDestroyDataset(stillWanted, emptyOfSnapshots bool) bool {
	if stillWanted {
		return emptyOfSnapshots
	}
	return true
}

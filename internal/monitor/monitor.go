// Package monitor implements the `zfsync check` subcommand: a
// Nagios-style monitoring-plugin check reporting snapshot age and
// replication lag for a set of dataset pairs.
package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/dsh2dsh/go-monitoringplugin/v2"

	"github.com/zfsmirror/zfsync/internal/plan"
	"github.com/zfsmirror/zfsync/internal/resolve"
	"github.com/zfsmirror/zfsync/internal/zfs"
)

// Thresholds bounds one check dimension: below Warn is OK, at or above
// Warn but below Crit is WARNING, at or above Crit is CRITICAL. A zero
// Warn disables the warning tier.
type Thresholds struct {
	Warn time.Duration
	Crit time.Duration
}

// Check evaluates snapshot freshness and replication lag across items.
type Check struct {
	Src *zfs.Client
	Dst *zfs.Client

	Items []plan.WorkItem

	SnapshotNameAllowed func(name string) bool

	Freshness Thresholds // age of the newest source snapshot
	Lag       Thresholds // age gap between source's newest snapshot and the common base
}

// Run evaluates every item and folds the results into resp so callers
// can share one Response across several dataset pairs.
func (c *Check) Run(ctx context.Context, resp *monitoringplugin.Response) {
	if len(c.Items) == 0 {
		resp.UpdateStatus(monitoringplugin.UNKNOWN, "no datasets selected")
		return
	}

	ok := true
	for _, item := range c.Items {
		if err := c.checkOne(ctx, item, resp); err != nil {
			ok = false
			resp.UpdateStatus(monitoringplugin.UNKNOWN, fmt.Sprintf("%s: %v", item.Src, err))
		}
	}
	if ok {
		resp.UpdateStatus(monitoringplugin.OK, fmt.Sprintf("%d dataset(s) checked", len(c.Items)))
	}
}

func (c *Check) checkOne(ctx context.Context, item plan.WorkItem, resp *monitoringplugin.Response) error {
	srcOpts := zfs.ListOptions{NameFilter: c.SnapshotNameAllowed, WithCreation: true}
	srcEntries, err := c.Src.Inventory(ctx, item.Src, srcOpts)
	if err != nil {
		return fmt.Errorf("source inventory: %w", err)
	}
	newest, hasNewest := newestSnapshot(srcEntries)
	if !hasNewest {
		resp.UpdateStatus(monitoringplugin.WARNING, fmt.Sprintf("%s: no snapshots on source", item.Src))
		return nil
	}

	freshnessAge := time.Since(newest.Creation)
	applyAgeRule(resp, c.Freshness, freshnessAge, fmt.Sprintf("%s freshness", item.Src))

	dstExists, err := c.Dst.Exists(ctx, item.Dst)
	if err != nil {
		return fmt.Errorf("destination exists: %w", err)
	}
	if !dstExists {
		resp.UpdateStatus(monitoringplugin.WARNING, fmt.Sprintf("%s: destination does not exist yet", item.Dst))
		return nil
	}

	dstEntries, err := c.Dst.Inventory(ctx, item.Dst, zfs.ListOptions{})
	if err != nil {
		return fmt.Errorf("destination inventory: %w", err)
	}
	base := resolve.Resolve(srcEntries, dstEntries, dstExists)
	if !base.Found {
		resp.UpdateStatus(monitoringplugin.WARNING, fmt.Sprintf("%s: no common snapshot with destination", item.Src))
		return nil
	}

	lag := newest.Creation.Sub(base.Src.Creation)
	applyAgeRule(resp, c.Lag, lag, fmt.Sprintf("%s replication lag", item.Src))
	return nil
}

func newestSnapshot(entries []zfs.SnapshotEntry) (zfs.SnapshotEntry, bool) {
	var best zfs.SnapshotEntry
	found := false
	for _, e := range entries {
		if e.Kind != zfs.KindSnapshot {
			continue
		}
		if !found || e.CreateTXG > best.CreateTXG {
			best = e
			found = true
		}
	}
	return best, found
}

// ageStatus is the pure decision behind applyAgeRule, split out so it
// can be tested without constructing a monitoringplugin.Response.
func ageStatus(t Thresholds, age time.Duration) int {
	switch {
	case t.Crit > 0 && age >= t.Crit:
		return monitoringplugin.CRITICAL
	case t.Warn > 0 && age >= t.Warn:
		return monitoringplugin.WARNING
	default:
		return monitoringplugin.OK
	}
}

func applyAgeRule(resp *monitoringplugin.Response, t Thresholds, age time.Duration, label string) {
	status := ageStatus(t, age)
	if status == monitoringplugin.OK {
		return
	}
	threshold := t.Warn
	tier := "warning"
	if status == monitoringplugin.CRITICAL {
		threshold, tier = t.Crit, "critical"
	}
	resp.UpdateStatus(status, fmt.Sprintf("%s: %s (>= %s %s)", label, age.Truncate(time.Second), tier, threshold))
}

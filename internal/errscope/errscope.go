// Package errscope implements the Error-Scope Controller: given
// a failure at one dataset, decide whether it aborts the
// whole run, skips the failing subtree, or skips just that dataset.
package errscope

import (
	"github.com/zfsmirror/zfsync/internal/plan"
)

// Mode is the --skip-on-error policy.
type Mode string

const (
	ModeFail    Mode = "fail"
	ModeTree    Mode = "tree"
	ModeDataset Mode = "dataset" // default
)

// Decision tells the caller what to do with the work queue after a
// failure. Subtree/dataset skips are recorded on the Controller itself
// and consulted via Skipped, since later WorkItems in the queue need
// to see skips recorded by earlier failures.
type Decision struct {
	AbortRun bool
}

// Controller tracks which datasets have been skipped so the top-level
// loop can consult it before starting a WorkItem's TRANSFER state.
type Controller struct {
	mode    Mode
	skipped map[string]bool
}

func New(mode Mode) *Controller {
	if mode == "" {
		mode = ModeDataset
	}
	return &Controller{mode: mode, skipped: make(map[string]bool)}
}

// Skipped reports whether item was marked skipped by a prior failure
// (its own, or an ancestor's under ModeTree).
func (c *Controller) Skipped(item plan.WorkItem) bool {
	return c.skipped[item.Src.String()]
}

// HandleFailure applies the configured policy to a failure at item,
// given whether item's destination dataset already exists (ModeDataset
// distinguishes on this). items is the full ordered work queue, used
// to find item's descendants under ModeTree/ModeDataset-escalated-to-tree.
func (c *Controller) HandleFailure(item plan.WorkItem, dstExisted bool, items []plan.WorkItem) Decision {
	switch c.mode {
	case ModeFail:
		return Decision{AbortRun: true}
	case ModeTree:
		c.skipSubtree(item, items)
		return Decision{}
	default: // ModeDataset
		if dstExisted {
			c.skipped[item.Src.String()] = true
			return Decision{}
		}
		// Destination doesn't exist yet: descendants can't receive either
		// (zfs receive on a child assumes its parent exists), so this
		// degrades to ModeTree for this subtree only.
		c.skipSubtree(item, items)
		return Decision{}
	}
}

func (c *Controller) skipSubtree(item plan.WorkItem, items []plan.WorkItem) {
	root := item.Src.String()
	c.skipped[root] = true
	for _, other := range items {
		if other.Depth > item.Depth && isDescendant(other.Src.String(), root) {
			c.skipped[other.Src.String()] = true
		}
	}
}

func isDescendant(path, root string) bool {
	if len(path) <= len(root) {
		return false
	}
	return path[:len(root)] == root && path[len(root)] == '/'
}

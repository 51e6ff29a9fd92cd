package replicate

import "sync/atomic"

// ForceOnceBudget is the single per-run --force-once allowance: it may
// be spent by at most one dataset's conflict resolution across the
// whole run. Threaded explicitly through Replicator rather than held
// as package-level mutable state.
type ForceOnceBudget struct {
	spent atomic.Bool
}

// NewForceOnceBudget returns a budget with one use available.
func NewForceOnceBudget() *ForceOnceBudget { return &ForceOnceBudget{} }

// Take claims the budget's single use. Returns true exactly once
// across the lifetime of this budget, safe for concurrent callers.
func (b *ForceOnceBudget) Take() bool {
	return b.spent.CompareAndSwap(false, true)
}

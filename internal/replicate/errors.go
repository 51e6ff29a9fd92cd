package replicate

import "fmt"

// SkipMissingSnapshots selects what happens when the source side has
// no candidate snapshots for a dataset.
type SkipMissingSnapshots string

const (
	SkipMissingFail     SkipMissingSnapshots = "fail"
	SkipMissingDataset  SkipMissingSnapshots = "dataset"
	SkipMissingContinue SkipMissingSnapshots = "continue"
)

// PolicyConflict is raised when the destination has snapshots the
// common-base resolution can't reconcile without --force.
type PolicyConflict struct {
	Dataset string
	Detail  string
}

func (e *PolicyConflict) Error() string {
	return fmt.Sprintf("replicate: %s: conflicting destination state: %s", e.Dataset, e.Detail)
}

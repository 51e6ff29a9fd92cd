package report

import (
	"encoding/json"
	"fmt"

	"github.com/yudai/gojsondiff"
	"github.com/yudai/gojsondiff/formatter"

	"github.com/zfsmirror/zfsync/internal/zfs"
)

// SnapshotSet is a projected or current destination snapshot set,
// keyed by snapshot name, for one dataset pair.
type SnapshotSet map[string]SnapshotSummary

// SnapshotSummary is the part of a SnapshotEntry worth showing in a
// dryrun=diff patch; Guid distinguishes a same-named snapshot that was
// destroyed and retaken.
type SnapshotSummary struct {
	Guid      uint64 `json:"guid"`
	CreateTXG uint64 `json:"createtxg"`
}

func toSnapshotSet(entries []zfs.SnapshotEntry) SnapshotSet {
	set := make(SnapshotSet, len(entries))
	for _, e := range entries {
		if e.Kind != zfs.KindSnapshot {
			continue
		}
		set[e.Name] = SnapshotSummary{Guid: e.Guid, CreateTXG: e.CreateTXG}
	}
	return set
}

// DatasetDiff is the --dryrun=diff result for one dataset pair: the
// destination snapshot set before the run and the set that would
// exist after the currently planned transfer steps run to completion,
// rendered as an RFC 6902-flavored JSON patch.
type DatasetDiff struct {
	Dataset string `json:"dataset"`
	Patch   string `json:"patch"`
	Changed bool   `json:"changed"`
}

// Diff computes the structured dry-run diff for one dataset pair:
// current (the destination's current snapshot set) versus projected
// (current, plus every snapshot the planned send steps would land).
func Diff(dataset string, current []zfs.SnapshotEntry, projectedAdds []zfs.SnapshotEntry) (DatasetDiff, error) {
	before := toSnapshotSet(current)
	after := make(SnapshotSet, len(before)+len(projectedAdds))
	for k, v := range before {
		after[k] = v
	}
	for _, e := range projectedAdds {
		if e.Kind != zfs.KindSnapshot {
			continue
		}
		after[e.Name] = SnapshotSummary{Guid: e.Guid, CreateTXG: e.CreateTXG}
	}

	beforeMap, err := toGenericMap(before)
	if err != nil {
		return DatasetDiff{}, fmt.Errorf("report: marshal current snapshot set: %w", err)
	}
	afterMap, err := toGenericMap(after)
	if err != nil {
		return DatasetDiff{}, fmt.Errorf("report: marshal projected snapshot set: %w", err)
	}

	d := gojsondiff.New().CompareObjects(beforeMap, afterMap)
	if !d.Modified() {
		return DatasetDiff{Dataset: dataset, Changed: false}, nil
	}

	f := formatter.NewDeltaFormatter()
	patch, err := f.Format(d)
	if err != nil {
		return DatasetDiff{}, fmt.Errorf("report: format diff for %s: %w", dataset, err)
	}
	return DatasetDiff{Dataset: dataset, Patch: patch, Changed: true}, nil
}

func toGenericMap(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

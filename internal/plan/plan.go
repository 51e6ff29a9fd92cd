// Package plan implements the Replication Planner: it
// walks the source dataset tree honoring --recursive and the Filter
// Engine, yielding an ordered list of (src, dst) WorkItems with
// parents preceding children.
package plan

import (
	"context"
	"fmt"
	"strings"

	"github.com/zfsmirror/zfsync/internal/filter"
	"github.com/zfsmirror/zfsync/internal/zfs"
)

// WorkItem is one (src_dataset, dst_dataset) pair to replicate.
type WorkItem struct {
	Src   zfs.DatasetPath
	Dst   zfs.DatasetPath
	Depth int
}

// Planner walks SrcRoot (recursively if Recursive is set) and
// remaps each selected path onto DstRoot.
type Planner struct {
	SrcClient *zfs.Client
	SrcRoot   zfs.DatasetPath
	DstRoot   zfs.DatasetPath
	Recursive bool
	Filter    filter.Spec
}

// Plan returns WorkItems in parent-before-child order, honoring the
// Filter Engine's sticky exclusion ( Ordering/Filter
// stickiness properties).
func (p *Planner) Plan(ctx context.Context) ([]WorkItem, error) {
	if !p.Recursive {
		return []WorkItem{{Src: p.SrcRoot, Dst: p.DstRoot, Depth: 0}}, nil
	}

	paths, err := p.SrcClient.DescendantPaths(ctx, p.SrcRoot)
	if err != nil {
		return nil, fmt.Errorf("plan: list source tree: %w", err)
	}

	return selectItems(paths, p.SrcRoot, p.DstRoot, p.Filter)
}

// selectItems walks paths (already fetched, parent-before-child) and
// remaps every path the sticky filter allows onto dstRoot. Split out
// from Plan so the filter walk can be tested without a live source
// tree listing.
func selectItems(paths []zfs.DatasetPath, srcRoot, dstRoot zfs.DatasetPath, spec filter.Spec) ([]WorkItem, error) {
	sf := filter.NewStickyFilter(spec)
	items := make([]WorkItem, 0, len(paths))
	for _, src := range paths {
		rel, ok := src.RelativeTo(srcRoot)
		if !ok {
			continue // defensive; zfs -r always returns descendants of root
		}
		relpath := strings.Join(rel, "/")
		if !sf.Allow(relpath, src.String()) {
			continue
		}
		dst, err := zfs.Remap(src, srcRoot, dstRoot)
		if err != nil {
			return nil, err
		}
		items = append(items, WorkItem{Src: src, Dst: dst, Depth: len(rel)})
	}
	return items, nil
}

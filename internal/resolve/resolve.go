// Package resolve implements the Common-Snapshot Resolver: given
// sorted source and destination inventories, it finds
// the most recent source entity whose GUID also appears on the
// destination, or reports that none exists (an "initial" replication).
package resolve

import (
	"sort"

	"github.com/zfsmirror/zfsync/internal/zfs"
)

// CommonBase is the incremental base for the next send, or the zero
// value (Found == false) when replication must start from scratch.
type CommonBase struct {
	Found bool
	// Src is the source-side entity (snapshot or bookmark) with the
	// largest createtxg whose GUID also appears in the destination
	// inventory.
	Src zfs.SnapshotEntry
	// Dst is the matching destination snapshot.
	Dst zfs.SnapshotEntry
}

// Resolve computes the CommonBase. srcEntries need not be pre-sorted;
// dstExists being false always yields "no common base" regardless of
// dstEntries' contents.
func Resolve(srcEntries, dstEntries []zfs.SnapshotEntry, dstExists bool) CommonBase {
	if !dstExists || len(dstEntries) == 0 || len(srcEntries) == 0 {
		return CommonBase{}
	}

	dstByGUID := make(map[uint64]zfs.SnapshotEntry, len(dstEntries))
	for _, d := range dstEntries {
		// A destination may have re-taken a snapshot with the same name
		// at a different time; GUIDs are what we key on.
		if existing, ok := dstByGUID[d.Guid]; !ok || d.CreateTXG > existing.CreateTXG {
			dstByGUID[d.Guid] = d
		}
	}

	sorted := make([]zfs.SnapshotEntry, len(srcEntries))
	copy(sorted, srcEntries)
	sort.Sort(zfs.ByCreateTXG(sorted))

	for i := len(sorted) - 1; i >= 0; i-- {
		src := sorted[i]
		if dst, ok := dstByGUID[src.Guid]; ok {
			return CommonBase{Found: true, Src: src, Dst: dst}
		}
	}
	return CommonBase{}
}

package zfs

import (
	"fmt"
	"time"
)

// EntryKind distinguishes a snapshot from a bookmark. Both carry a
// GUID and createtxg identifying their origin data.
type EntryKind int

const (
	KindSnapshot EntryKind = iota
	KindBookmark
)

func (k EntryKind) String() string {
	if k == KindBookmark {
		return "bookmark"
	}
	return "snapshot"
}

// SnapshotEntry is one row of a dataset's snapshot/bookmark inventory.
type SnapshotEntry struct {
	Dataset   DatasetPath
	Name      string // the part after '@' or '#'
	Guid      uint64
	CreateTXG uint64
	Kind      EntryKind
	// Creation is the originating snapshot's creation time; bookmarks
	// carry it too, copied from the snapshot they were cut from. Zero
	// when not fetched (most of this package's callers only need
	// Guid/CreateTXG for ordering and don't request it).
	Creation time.Time
}

// FullName renders "dataset@name" or "dataset#name" depending on Kind.
func (e SnapshotEntry) FullName() string {
	sep := "@"
	if e.Kind == KindBookmark {
		sep = "#"
	}
	return fmt.Sprintf("%s%s%s", e.Dataset, sep, e.Name)
}

// ByCreateTXG sorts SnapshotEntry values ascending by CreateTXG, the
// only valid ordering key within a dataset.
type ByCreateTXG []SnapshotEntry

func (s ByCreateTXG) Len() int      { return len(s) }
func (s ByCreateTXG) Swap(i, j int) { s[i], s[j] = s[j], s[i] }
func (s ByCreateTXG) Less(i, j int) bool {
	if s[i].CreateTXG != s[j].CreateTXG {
		return s[i].CreateTXG < s[j].CreateTXG
	}
	// Stable tiebreak when a snapshot and its own bookmark share a txg:
	// the snapshot sorts after, since it is authoritative for size
	// estimation and send targets.
	return s[i].Kind == KindBookmark && s[j].Kind == KindSnapshot
}

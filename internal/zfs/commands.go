package zfs

import (
	"context"
	"strings"

	"github.com/zfsmirror/zfsync/internal/endpoint"
)

// SendMode selects how a SendPlan's argv is built.
type SendMode int

const (
	SendFull SendMode = iota
	SendIncrementalSingle
	SendIncrementalIntermediates
)

// SendArgs builds the `zfs send` argv for one step. base is nil for a
// full send. dryRun appends -n so the kernel validates and reports the
// stream size without producing any bytes: --dryrun=send no-ops both
// ends of the pipeline rather than just the receiving side.
func SendArgs(zfsProg string, base *SnapshotEntry, target SnapshotEntry, mode SendMode, dryRun bool) []string {
	argv := []string{zfsProg, "send"}
	if dryRun {
		argv = append(argv, "-n", "-v")
	}
	switch {
	case base == nil:
		argv = append(argv, target.FullName())
	case mode == SendIncrementalIntermediates:
		argv = append(argv, "-I", base.FullName(), target.FullName())
	default:
		argv = append(argv, "-i", base.FullName(), target.FullName())
	}
	return argv
}

// RecvArgs builds the `zfs receive` argv. dryRun appends -n so bytes
// are parsed and discarded without mutating the destination.
func RecvArgs(zfsProg string, dst DatasetPath, forceRollback bool, dryRun bool) []string {
	argv := []string{zfsProg, "receive"}
	if forceRollback {
		argv = append(argv, "-F")
	}
	if dryRun {
		argv = append(argv, "-n", "-v")
	}
	argv = append(argv, dst.String())
	return argv
}

// RollbackArgs builds `zfs rollback -r [-f] dataset@snap`; -r destroys
// any snapshots newer than the target.
func RollbackArgs(zfsProg string, target SnapshotEntry, forceUnmount bool) []string {
	argv := []string{zfsProg, "rollback", "-r"}
	if forceUnmount {
		argv = append(argv, "-f")
	}
	argv = append(argv, target.FullName())
	return argv
}

// DestroyArgs builds `zfs destroy [-f] dataset@snap`, or a comma-joined
// batch form built by internal/zfs's batching helpers.
func DestroyArgs(zfsProg string, name string, forceUnmount bool) []string {
	argv := []string{zfsProg, "destroy"}
	if forceUnmount {
		argv = append(argv, "-f")
	}
	argv = append(argv, name)
	return argv
}

// BookmarkArgs builds `zfs bookmark dataset@snap dataset#bookmark`.
func BookmarkArgs(zfsProg string, snap SnapshotEntry, bookmarkName string) []string {
	return []string{zfsProg, "bookmark", snap.FullName(), snap.Dataset.String() + "#" + bookmarkName}
}

// Rollback runs `zfs rollback` on the client's endpoint.
func (c *Client) Rollback(ctx context.Context, target SnapshotEntry, forceUnmount bool) error {
	argv := RollbackArgs(c.EP.Program(endpoint.RoleZFS), target, forceUnmount)
	_, err := c.run(ctx, argv, true)
	return err
}

// Bookmark creates a bookmark on snap, named bookmarkName. Idempotent:
// an "already exists" failure is treated as success; the existing
// bookmark's GUID is not compared.
func (c *Client) Bookmark(ctx context.Context, snap SnapshotEntry, bookmarkName string) error {
	argv := BookmarkArgs(c.EP.Program(endpoint.RoleZFS), snap, bookmarkName)
	_, err := c.run(ctx, argv, true)
	if err == nil {
		return nil
	}
	var zerr *Error
	if asZFSError(err, &zerr) && bookmarkAlreadyExists(zerr.Stderr) {
		return nil
	}
	return err
}

func bookmarkAlreadyExists(stderr []byte) bool {
	s := string(stderr)
	return strings.Contains(s, "bookmark exists") || strings.Contains(s, "dataset already exists")
}

// Destroy destroys a single snapshot/bookmark/dataset by full name.
func (c *Client) Destroy(ctx context.Context, name string, forceUnmount bool) error {
	argv := DestroyArgs(c.EP.Program(endpoint.RoleZFS), name, forceUnmount)
	_, err := c.run(ctx, argv, true)
	return err
}

// CreatePlaceholderDataset creates an empty dataset (no snapshots),
// used when --skip-missing-snapshots=continue needs an ancestor to
// exist on the destination for a descendant's receive to succeed.
func (c *Client) CreatePlaceholderDataset(ctx context.Context, ds DatasetPath) error {
	argv := []string{c.EP.Program(endpoint.RoleZFS), "create", "-p", ds.String()}
	_, err := c.run(ctx, argv, true)
	return err
}

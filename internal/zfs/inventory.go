package zfs

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zfsmirror/zfsync/internal/command"
	"github.com/zfsmirror/zfsync/internal/endpoint"
)

// Client runs zfs(8)/zpool(8) commands against one Endpoint.
type Client struct {
	EP     *endpoint.Endpoint
	Runner *command.Runner
}

func NewClient(ep *endpoint.Endpoint, runner *command.Runner) *Client {
	return &Client{EP: ep, Runner: runner}
}

func (c *Client) run(ctx context.Context, argv []string, mutating bool) (*command.Result, error) {
	full := c.EP.BuildArgv(argv, mutating)
	res, err := c.Runner.Run(ctx, full, nil, true)
	if err != nil {
		var failed *command.Failed
		if asFailed(err, &failed) {
			return res, &Error{Argv: argv, Stderr: res.Stderr}
		}
		return res, err
	}
	return res, nil
}

func asFailed(err error, target **command.Failed) bool {
	f, ok := err.(*command.Failed)
	if ok {
		*target = f
	}
	return ok
}

// Exists reports whether dataset exists on this endpoint.
func (c *Client) Exists(ctx context.Context, ds DatasetPath) (bool, error) {
	argv := []string{c.EP.Program(endpoint.RoleZFS), "list", "-H", "-o", "name", ds.String()}
	_, err := c.run(ctx, argv, false)
	if err == nil {
		return true, nil
	}
	var zerr *Error
	if asZFSError(err, &zerr) && strings.Contains(string(zerr.Stderr), "dataset does not exist") {
		return false, nil
	}
	return false, err
}

func asZFSError(err error, target **Error) bool {
	e, ok := err.(*Error)
	if ok {
		*target = e
	}
	return ok
}

// ListOptions controls what Inventory fetches.
type ListOptions struct {
	IncludeBookmarks bool
	// NameFilter, if non-nil, is applied to the snapshot/bookmark name
	// (the part after '@'/'#') before the entry is returned.
	NameFilter func(name string) bool
	// WithCreation additionally fetches each entry's creation time, for
	// callers that need snapshot age (internal/monitor) rather than
	// just createtxg ordering.
	WithCreation bool
}

// Inventory fetches a dataset's snapshots (and, optionally, bookmarks),
// sorted ascending by createtxg.
func (c *Client) Inventory(ctx context.Context, ds DatasetPath, opts ListOptions) ([]SnapshotEntry, error) {
	types := "snapshot"
	if opts.IncludeBookmarks {
		types = "snapshot,bookmark"
	}
	cols := "name,guid,createtxg"
	if opts.WithCreation {
		cols = "name,guid,createtxg,creation"
	}
	argv := []string{c.EP.Program(endpoint.RoleZFS), "list", "-H", "-p",
		"-t", types, "-o", cols, "-s", "createtxg", "-d", "1", ds.String()}
	res, err := c.run(ctx, argv, false)
	if err != nil {
		return nil, err
	}
	entries, err := parseListOutput(ds, res.Stdout, opts.WithCreation)
	if err != nil {
		return nil, err
	}
	if opts.NameFilter != nil {
		filtered := entries[:0]
		for _, e := range entries {
			if opts.NameFilter(e.Name) {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}
	return entries, nil
}

func parseListOutput(ds DatasetPath, out []byte, withCreation bool) ([]SnapshotEntry, error) {
	wantFields := 3
	if withCreation {
		wantFields = 4
	}
	lines := strings.Split(strings.TrimRight(string(out), "\n"), "\n")
	entries := make([]SnapshotEntry, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != wantFields {
			return nil, &ProtocolError{Context: "zfs list -o name,guid,createtxg[,creation]", Raw: line}
		}
		full := fields[0]
		kind := KindSnapshot
		sep := strings.IndexByte(full, '@')
		if sep < 0 {
			sep = strings.IndexByte(full, '#')
			if sep < 0 {
				return nil, &ProtocolError{Context: "zfs list name", Raw: full}
			}
			kind = KindBookmark
		}
		name := full[sep+1:]
		guid, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return nil, &ProtocolError{Context: "zfs list guid", Raw: line}
		}
		txg, err := strconv.ParseUint(fields[2], 10, 64)
		if err != nil {
			return nil, &ProtocolError{Context: "zfs list createtxg", Raw: line}
		}
		entry := SnapshotEntry{Dataset: ds, Name: name, Guid: guid, CreateTXG: txg, Kind: kind}
		if withCreation {
			secs, err := strconv.ParseInt(fields[3], 10, 64)
			if err != nil {
				return nil, &ProtocolError{Context: "zfs list creation", Raw: line}
			}
			entry.Creation = time.Unix(secs, 0).UTC()
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// DescendantPaths lists all dataset paths at or below root, in the
// order zfs(8) enumerates them (parent before child), using
// filesystem,volume types only (no snapshots).
func (c *Client) DescendantPaths(ctx context.Context, root DatasetPath) ([]DatasetPath, error) {
	argv := []string{c.EP.Program(endpoint.RoleZFS), "list", "-H", "-r",
		"-t", "filesystem,volume", "-o", "name", root.String()}
	res, err := c.run(ctx, argv, false)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(strings.TrimRight(string(res.Stdout), "\n"), "\n")
	paths := make([]DatasetPath, 0, len(lines))
	for _, l := range lines {
		if l == "" {
			continue
		}
		p, err := NewDatasetPath(l)
		if err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// SupportsBookmarks probes the pool's "bookmarks" feature.
func (c *Client) SupportsBookmarks(ctx context.Context, ds DatasetPath) (bool, error) {
	argv := []string{"zpool", "get", "-H", "-o", "value",
		"feature@bookmarks", ds.Pool()}
	res, err := c.run(ctx, argv, false)
	if err != nil {
		return false, err
	}
	v := strings.TrimSpace(string(res.Stdout))
	return v == "active" || v == "enabled", nil
}

// FetchBoth fetches source and destination inventories concurrently.
func FetchBoth(ctx context.Context, src, dst *Client, srcDS, dstDS DatasetPath, srcOpts, dstOpts ListOptions) (srcEntries, dstEntries []SnapshotEntry, dstExists bool, err error) {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var e error
		srcEntries, e = src.Inventory(ctx, srcDS, srcOpts)
		if e != nil {
			return fmt.Errorf("source inventory: %w", e)
		}
		return nil
	})
	g.Go(func() error {
		exists, e := dst.Exists(ctx, dstDS)
		if e != nil {
			return fmt.Errorf("destination exists check: %w", e)
		}
		dstExists = exists
		if !exists {
			return nil
		}
		dstEntries, e = dst.Inventory(ctx, dstDS, dstOpts)
		if e != nil {
			return fmt.Errorf("destination inventory: %w", e)
		}
		return nil
	})
	if e := g.Wait(); e != nil {
		return nil, nil, false, e
	}
	return srcEntries, dstEntries, dstExists, nil
}

package endpoint

import (
	"context"
	"fmt"
)

// Capabilities records which auxiliary tools were found on an
// endpoint. A missing zstd/pv/mbuffer downgrades the pipeline
// silently; a missing zfs is fatal.
type Capabilities struct {
	HasZFS       bool
	HasZstd      bool
	HasPV        bool
	HasMbuffer   bool
	HasBookmarks bool // pool supports bookmarks (feature@bookmarks)
}

// Probe runs capability detection exactly once per endpoint per run
// and caches the result. Concurrent callers (one per in-flight dataset
// pair that touches this endpoint) block on the same sync.Once, so the
// probe itself never races.
func (e *Endpoint) Probe(ctx context.Context) (Capabilities, error) {
	e.capOnce.Do(func() {
		e.caps, e.capErr = e.probeOnce(ctx)
	})
	return e.caps, e.capErr
}

func (e *Endpoint) probeOnce(ctx context.Context) (Capabilities, error) {
	var caps Capabilities
	var err error
	caps.HasZFS, err = e.which(ctx, RoleZFS)
	if err != nil {
		return caps, err
	}
	if !caps.HasZFS {
		return caps, fmt.Errorf("endpoint %s: zfs binary not found", e.Name)
	}
	caps.HasZstd, _ = e.which(ctx, RoleZstd)
	caps.HasPV, _ = e.which(ctx, RolePV)
	caps.HasMbuffer, _ = e.which(ctx, RoleMbuffer)
	return caps, nil
}

// which checks a role's program is reachable, honoring an explicit
// Disabled override without spawning anything.
func (e *Endpoint) which(ctx context.Context, role Role) (bool, error) {
	if !e.Enabled(role) {
		return false, nil
	}
	prog := e.Program(role)
	argv := e.BuildArgv([]string{"command", "-v", prog}, false)
	if e.IsLocal() {
		// "command -v" is a shell builtin; use `sh -c` locally too so the
		// probe is symmetric with the remote leg.
		argv = []string{"sh", "-c", ShellJoin([]string{"command", "-v", prog})}
	}
	_, err := e.runner.Run(ctx, argv, nil, true)
	return err == nil, nil
}

// SetBookmarksSupported records whether the source pool supports
// bookmarks, determined by internal/zfs via `zpool get feature@bookmarks`.
func (e *Endpoint) SetBookmarksSupported(v bool) { e.caps.HasBookmarks = v }

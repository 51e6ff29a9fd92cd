package main

import (
	"context"
	"errors"

	"github.com/zfsmirror/zfsync/internal/command"
	"github.com/zfsmirror/zfsync/internal/zfs"
)

// Exit codes distinguish usage errors from ZFS/transport failures and
// interruption.
const (
	exitOK          = 0
	exitUsage       = 1
	exitZFS         = 2
	exitNetwork     = 3
	exitInterrupted = 130
	exitFailed      = 4 // general run failure that isn't cleanly one of the above
)

type usageError struct{ error }

func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, context.Canceled):
		return exitInterrupted
	case isUsageError(err):
		return exitUsage
	case isNetworkError(err):
		return exitNetwork
	case isZFSError(err):
		return exitZFS
	default:
		return exitFailed
	}
}

func isUsageError(err error) bool {
	var u usageError
	return errors.As(err, &u)
}

func isZFSError(err error) bool {
	var zerr *zfs.Error
	var perr *zfs.ProtocolError
	return errors.As(err, &zerr) || errors.As(err, &perr)
}

func isNetworkError(err error) bool {
	var failed *command.Failed
	if !errors.As(err, &failed) {
		return false
	}
	return len(failed.Argv) > 0 && failed.Argv[0] == "ssh"
}

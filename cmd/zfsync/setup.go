package main

import (
	"os"
	"path/filepath"

	"github.com/zfsmirror/zfsync/internal/command"
	"github.com/zfsmirror/zfsync/internal/datasetspec"
	"github.com/zfsmirror/zfsync/internal/endpoint"
	"github.com/zfsmirror/zfsync/internal/zfs"
)

func defaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".zfsync/logs"
	}
	return filepath.Join(home, ".zfsync", "logs")
}

// buildEndpoint turns a parsed datasetspec.Spec into a runnable
// *endpoint.Endpoint, applying --xxx-program overrides and the
// --no-privilege-elevation policy.
func buildEndpoint(name string, spec datasetspec.Spec, runner *command.Runner, overrides map[string]string, noSudo bool) *endpoint.Endpoint {
	ep := endpoint.New(name, runner)
	ep.Host = spec.Host
	ep.User = spec.User
	if spec.Port != 0 {
		ep.Port = spec.Port
	}
	if noSudo {
		ep.Sudo = endpoint.SudoNever
	}
	for role, path := range overrides {
		ep.Programs[endpoint.Role(role)] = path
	}
	return ep
}

// pairClients bundles the zfs.Clients and resolved dataset paths for
// one SRC_DATASET DST_DATASET argument pair.
type pairClients struct {
	Src, Dst         *zfs.Client
	SrcRoot, DstRoot zfs.DatasetPath
}

func buildPairClients(pair datasetspec.Pair, runner *command.Runner, overrides map[string]string, noSudo bool) pairClients {
	srcEP := buildEndpoint("source", pair.Src, runner, overrides, noSudo)
	dstEP := buildEndpoint("destination", pair.Dst, runner, overrides, noSudo)
	return pairClients{
		Src:     zfs.NewClient(srcEP, runner),
		Dst:     zfs.NewClient(dstEP, runner),
		SrcRoot: pair.Src.Path,
		DstRoot: pair.Dst.Path,
	}
}

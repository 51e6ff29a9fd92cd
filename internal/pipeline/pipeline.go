// Package pipeline implements the Pipeline Builder: it
// assembles the send-to-receive process chain from the capability set
// auto-detected on each endpoint, collapsing stages that a host
// doesn't support and choosing one of four topologies depending on
// which side (if either) the running process is local to.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os/exec"

	"github.com/klauspost/compress/zstd"

	"github.com/zfsmirror/zfsync/internal/command"
	"github.com/zfsmirror/zfsync/internal/endpoint"
	"github.com/zfsmirror/zfsync/internal/zfs"
)

// DryRun selects how a transfer's dry-run mode, if any, alters the
// pipeline.
type DryRun int

const (
	DryRunNone DryRun = iota
	DryRunSend        // -n on the sender; no receive stage runs at all
	DryRunRecv        // full pipeline runs, receive discards with -n
)

// Builder assembles pipelines for one (source, destination) endpoint
// pair across an entire run, reusing each endpoint's probed
// Capabilities.
type Builder struct {
	Src, Dst *endpoint.Endpoint

	// CompressionLevel, when non-zero, enables compression on the wire.
	// A zero value disables compression outright, a single knob rather
	// than a separate bool.
	CompressionLevel int

	// ShowProgress requests a pv stage on whichever endpoints have pv
	// available.
	ShowProgress bool

	ForceRollback bool
	OnStderrLine  func(stageLabel, line string)
}

// Plan is one step's assembled pipeline, ready to Run.
type Plan struct {
	pipeline   *command.Pipeline
	dryRunSend bool
}

func (p *Plan) Run(ctx context.Context) ([]command.StageResult, error) {
	return p.pipeline.Run(ctx)
}

// DryRunSend reports whether this plan is a --dryrun=send no-op: a
// single sender-side stage that never touches a receiver.
func (p *Plan) DryRunSend() bool { return p.dryRunSend }

// Build assembles the pipeline for sending base..target (base nil for
// a full send) to dst. The topology is chosen from which of src/dst is
// local to the running process:
//
//	both local            -> local:      send | [pv] | receive
//	src local, dst remote -> push:       send | [zstd] | [mbuffer] | [pv] | ssh(dst: [mbuffer] | [zstd -d] | receive)
//	dst local, src remote -> pull:       ssh(src: send | [zstd] | [mbuffer]) | [pv] | [mbuffer] | [zstd -d] | receive
//	neither local         -> pull-push:  ssh(src: send | [zstd] | [mbuffer]) | [pv] | ssh(dst: [mbuffer] | [zstd -d] | receive)
//
// In pull-push, bytes the running process touches never land on disk:
// every local stage is either ssh or an in-memory pv passthrough.
func (b *Builder) Build(ctx context.Context, base *zfs.SnapshotEntry, target zfs.SnapshotEntry, mode zfs.SendMode, dryRun DryRun) (*Plan, error) {
	srcCaps, err := b.Src.Probe(ctx)
	if err != nil {
		return nil, fmt.Errorf("pipeline: probe source: %w", err)
	}
	dstCaps, err := b.Dst.Probe(ctx)
	if err != nil {
		return nil, fmt.Errorf("pipeline: probe destination: %w", err)
	}

	sendArgv := zfs.SendArgs(b.Src.Program(endpoint.RoleZFS), base, target, mode, dryRun == DryRunSend)

	if dryRun == DryRunSend {
		// Both ends no-op: the sender validates and reports size, nothing
		// is ever piped to a receiver.
		stage := command.Stage{Label: "send", Argv: b.Src.BuildArgv(sendArgv, false), OnStderrLine: b.lineFunc("send")}
		return &Plan{pipeline: command.NewPipeline(stage), dryRunSend: true}, nil
	}

	recvArgv := zfs.RecvArgs(b.Dst.Program(endpoint.RoleZFS), target.Dataset, b.ForceRollback, dryRun == DryRunRecv)

	wantCompress := b.CompressionLevel > 0

	switch {
	case b.Src.IsLocal() && b.Dst.IsLocal():
		return b.buildLocal(sendArgv, recvArgv), nil
	case b.Src.IsLocal() && !b.Dst.IsLocal():
		return b.buildPush(sendArgv, recvArgv, srcCaps, dstCaps, wantCompress), nil
	case !b.Src.IsLocal() && b.Dst.IsLocal():
		return b.buildPull(sendArgv, recvArgv, srcCaps, dstCaps, wantCompress), nil
	default:
		return b.buildPullPush(sendArgv, recvArgv, srcCaps, dstCaps, wantCompress), nil
	}
}

func (b *Builder) buildLocal(sendArgv, recvArgv []string) *Plan {
	stages := []command.Stage{
		{Label: "send", Argv: sendArgv, OnStderrLine: b.lineFunc("send")},
	}
	if b.ShowProgress && b.Src.Enabled(endpoint.RolePV) {
		if _, err := exec.LookPath(b.Src.Program(endpoint.RolePV)); err == nil {
			stages = append(stages, command.Stage{Label: "pv", Argv: []string{b.Src.Program(endpoint.RolePV)}, OnStderrLine: b.lineFunc("pv")})
		}
	}
	stages = append(stages, command.Stage{Label: "recv", Argv: recvArgv, OnStderrLine: b.lineFunc("recv")})
	return &Plan{pipeline: command.NewPipeline(stages...)}
}

// buildPush runs everything but the final receive locally, chaining a
// single ssh stage to the destination for whatever compression/
// buffering the destination can itself undo.
func (b *Builder) buildPush(sendArgv, recvArgv []string, srcCaps, dstCaps endpoint.Capabilities, compress bool) *Plan {
	stages := []command.Stage{{Label: "send", Argv: sendArgv, OnStderrLine: b.lineFunc("send")}}

	// pendingFilter holds an in-process transform that must wrap
	// whichever stage consumes the stream next, used when the external
	// tool that would normally do the job isn't on this host.
	var pendingFilter func(io.Reader) io.Reader
	srcCompressedExternally := false
	if compress {
		if srcCaps.HasZstd {
			stages = append(stages, command.Stage{Label: "zstd", Argv: b.zstdEncodeArgv(b.Src), OnStderrLine: b.lineFunc("zstd")})
			srcCompressedExternally = true
		} else if dstCaps.HasZstd {
			pendingFilter = softwareEncode(zstdLevel(b.CompressionLevel))
		}
	}
	if srcCaps.HasMbuffer {
		stages = append(stages, command.Stage{Label: "mbuffer", Argv: []string{b.Src.Program(endpoint.RoleMbuffer), "-q"}, OnStderrLine: b.lineFunc("mbuffer"), Filter: pendingFilter})
		pendingFilter = nil
	}
	if b.ShowProgress && srcCaps.HasPV {
		stages = append(stages, command.Stage{Label: "pv", Argv: []string{b.Src.Program(endpoint.RolePV)}, OnStderrLine: b.lineFunc("pv"), Filter: pendingFilter})
		pendingFilter = nil
	}

	remote := [][]string{}
	if dstCaps.HasMbuffer {
		remote = append(remote, []string{b.Dst.Program(endpoint.RoleMbuffer), "-q"})
	}
	dstDecompressesExternally := compress && dstCaps.HasZstd
	if dstDecompressesExternally {
		remote = append(remote, []string{b.Dst.Program(endpoint.RoleZstd), "-dc"})
	}
	remote = append(remote, b.Dst.BuildArgv(recvArgv, true))

	sshFilter := pendingFilter
	if compress && srcCompressedExternally && !dstDecompressesExternally {
		// Source compressed with the real zstd binary but the destination
		// has none to undo it: decode in-process right before the bytes
		// cross into the remote receive chain's stdin.
		sshFilter = softwareDecode()
	}
	stages = append(stages, command.Stage{Label: "ssh:dst", Argv: b.Dst.ChainArgv(remote), OnStderrLine: b.lineFunc("ssh:dst"), Filter: sshFilter})
	return &Plan{pipeline: command.NewPipeline(stages...)}
}

// buildPull mirrors buildPush with roles reversed: everything after
// the initial ssh-wrapped remote send chain runs locally.
func (b *Builder) buildPull(sendArgv, recvArgv []string, srcCaps, dstCaps endpoint.Capabilities, compress bool) *Plan {
	remote := [][]string{b.Src.BuildArgv(sendArgv, false)}
	srcCompresses := compress && srcCaps.HasZstd
	if srcCompresses {
		remote = append(remote, []string{b.Src.Program(endpoint.RoleZstd), "-c", zstdLevelFlag(b.CompressionLevel)})
	}
	if srcCaps.HasMbuffer {
		remote = append(remote, []string{b.Src.Program(endpoint.RoleMbuffer), "-q"})
	}
	sshStage := command.Stage{Label: "ssh:src", Argv: b.Src.ChainArgv(remote), OnStderrLine: b.lineFunc("ssh:src")}
	stages := []command.Stage{sshStage}

	if b.ShowProgress && dstCaps.HasPV {
		stages = append(stages, command.Stage{Label: "pv", Argv: []string{b.Dst.Program(endpoint.RolePV)}, OnStderrLine: b.lineFunc("pv")})
	}
	if dstCaps.HasMbuffer {
		stages = append(stages, command.Stage{Label: "mbuffer", Argv: []string{b.Dst.Program(endpoint.RoleMbuffer), "-q"}, OnStderrLine: b.lineFunc("mbuffer")})
	}

	recvStage := command.Stage{Label: "recv", Argv: recvArgv, OnStderrLine: b.lineFunc("recv")}
	if compress {
		if srcCompresses && dstCaps.HasZstd {
			stages = append(stages, command.Stage{Label: "zstd", Argv: b.zstdDecodeArgv(b.Dst), OnStderrLine: b.lineFunc("zstd")})
		} else if srcCompresses {
			// Source compressed with its real binary but destination can't
			// decode externally: decode in-process just ahead of receive.
			recvStage.Filter = softwareDecode()
		}
	}
	stages = append(stages, recvStage)
	return &Plan{pipeline: command.NewPipeline(stages...)}
}

// buildPullPush keeps the running process off the data path entirely:
// two ssh stages bookend an optional local pv passthrough, and bytes
// are never written to local disk.
func (b *Builder) buildPullPush(sendArgv, recvArgv []string, srcCaps, dstCaps endpoint.Capabilities, compress bool) *Plan {
	// Compress only when both remote ends have the zstd binary.
	compress = compress && srcCaps.HasZstd && dstCaps.HasZstd
	remoteSrc := [][]string{b.Src.BuildArgv(sendArgv, false)}
	if compress && srcCaps.HasZstd {
		remoteSrc = append(remoteSrc, []string{b.Src.Program(endpoint.RoleZstd), "-c", zstdLevelFlag(b.CompressionLevel)})
	}
	if srcCaps.HasMbuffer {
		remoteSrc = append(remoteSrc, []string{b.Src.Program(endpoint.RoleMbuffer), "-q"})
	}

	stages := []command.Stage{
		{Label: "ssh:src", Argv: b.Src.ChainArgv(remoteSrc), OnStderrLine: b.lineFunc("ssh:src")},
	}
	if b.ShowProgress {
		// pv here runs on whichever host zfsync itself is running on; if
		// neither src nor dst, there's no capability probe for it, so pv
		// is only attempted when the operator's own host has it on PATH.
		if _, err := exec.LookPath("pv"); err == nil {
			stages = append(stages, command.Stage{Label: "pv", Argv: []string{"pv"}, OnStderrLine: b.lineFunc("pv")})
		}
	}

	remoteDst := [][]string{}
	if dstCaps.HasMbuffer {
		remoteDst = append(remoteDst, []string{b.Dst.Program(endpoint.RoleMbuffer), "-q"})
	}
	if compress && dstCaps.HasZstd {
		remoteDst = append(remoteDst, []string{b.Dst.Program(endpoint.RoleZstd), "-dc"})
	}
	remoteDst = append(remoteDst, b.Dst.BuildArgv(recvArgv, true))

	stages = append(stages, command.Stage{Label: "ssh:dst", Argv: b.Dst.ChainArgv(remoteDst), OnStderrLine: b.lineFunc("ssh:dst")})
	return &Plan{pipeline: command.NewPipeline(stages...)}
}

func (b *Builder) zstdEncodeArgv(ep *endpoint.Endpoint) []string {
	return []string{ep.Program(endpoint.RoleZstd), "-c", zstdLevelFlag(b.CompressionLevel)}
}

func (b *Builder) zstdDecodeArgv(ep *endpoint.Endpoint) []string {
	return []string{ep.Program(endpoint.RoleZstd), "-dc"}
}

func zstdLevelFlag(level int) string {
	if level <= 0 {
		level = 1
	}
	return fmt.Sprintf("-%d", level)
}

func zstdLevel(level int) zstd.EncoderLevel {
	if level <= 0 {
		level = 1
	}
	return zstd.EncoderLevelFromZstd(level)
}

func (b *Builder) lineFunc(label string) func(string) {
	if b.OnStderrLine == nil {
		return nil
	}
	return func(line string) { b.OnStderrLine(label, line) }
}

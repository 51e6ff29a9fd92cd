package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zfsmirror/zfsync/internal/endpoint"
)

func TestBuildLocalNoCompressionStages(t *testing.T) {
	b := &Builder{Src: endpoint.New("source", nil), Dst: endpoint.New("dest", nil)}
	plan := b.buildLocal([]string{"zfs", "send", "tank@a"}, []string{"zfs", "receive", "tank2"})
	assert.NotNil(t, plan)
	assert.False(t, plan.DryRunSend())
}

func TestBuildPushDowngradesWhenZstdMissing(t *testing.T) {
	src := endpoint.New("source", nil)
	dst := endpoint.New("dest", nil)
	dst.Host = "backup.example.com"

	b := &Builder{Src: src, Dst: dst, CompressionLevel: 3}
	srcCaps := endpoint.Capabilities{HasZFS: true}
	dstCaps := endpoint.Capabilities{HasZFS: true}

	// Neither side has zstd/mbuffer/pv: the plan must still build, with
	// compression left out since no side could decode it, rather than
	// the pipeline builder erroring out.
	plan := b.buildPush([]string{"zfs", "send", "tank@a"}, []string{"zfs", "receive", "tank2"}, srcCaps, dstCaps, true)
	assert.NotNil(t, plan)
}

func TestZstdLevelFlagDefaultsToOne(t *testing.T) {
	assert.Equal(t, "-1", zstdLevelFlag(0))
	assert.Equal(t, "-5", zstdLevelFlag(5))
}

func TestTopologySelection(t *testing.T) {
	local := endpoint.New("local", nil)
	remote := endpoint.New("remote", nil)
	remote.Host = "host.example.com"

	assert.True(t, local.IsLocal())
	assert.False(t, remote.IsLocal())
}

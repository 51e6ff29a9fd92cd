package monitor

import (
	"testing"
	"time"

	"github.com/dsh2dsh/go-monitoringplugin/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zfsmirror/zfsync/internal/zfs"
)

const (
	ok       = monitoringplugin.OK
	warning  = monitoringplugin.WARNING
	critical = monitoringplugin.CRITICAL
)

func mkds(t *testing.T, s string) zfs.DatasetPath {
	t.Helper()
	p, err := zfs.NewDatasetPath(s)
	require.NoError(t, err)
	return p
}

func TestNewestSnapshotPicksHighestCreateTXG(t *testing.T) {
	ds := mkds(t, "tank1/foo")
	entries := []zfs.SnapshotEntry{
		{Dataset: ds, Name: "s1", CreateTXG: 10, Kind: zfs.KindSnapshot},
		{Dataset: ds, Name: "s2", CreateTXG: 30, Kind: zfs.KindSnapshot},
		{Dataset: ds, Name: "s3", CreateTXG: 20, Kind: zfs.KindSnapshot},
		{Dataset: ds, Name: "bm", CreateTXG: 40, Kind: zfs.KindBookmark},
	}
	best, ok := newestSnapshot(entries)
	require.True(t, ok)
	assert.Equal(t, "s2", best.Name)
}

func TestNewestSnapshotNoneFound(t *testing.T) {
	ds := mkds(t, "tank1/foo")
	entries := []zfs.SnapshotEntry{{Dataset: ds, Name: "bm", CreateTXG: 1, Kind: zfs.KindBookmark}}
	_, ok := newestSnapshot(entries)
	assert.False(t, ok)
}

func TestAgeStatusCritical(t *testing.T) {
	got := ageStatus(Thresholds{Warn: time.Hour, Crit: 2 * time.Hour}, 3*time.Hour)
	assert.Equal(t, critical, got)
}

func TestAgeStatusWarning(t *testing.T) {
	got := ageStatus(Thresholds{Warn: time.Hour, Crit: 2 * time.Hour}, 90*time.Minute)
	assert.Equal(t, warning, got)
}

func TestAgeStatusOK(t *testing.T) {
	got := ageStatus(Thresholds{Warn: time.Hour, Crit: 2 * time.Hour}, 10*time.Minute)
	assert.Equal(t, ok, got)
}

func TestAgeStatusWarnDisabledWhenZero(t *testing.T) {
	got := ageStatus(Thresholds{Crit: 2 * time.Hour}, 90*time.Minute)
	assert.Equal(t, ok, got)
}

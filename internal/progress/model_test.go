package progress

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"charm.land/bubbles/v2/progress"
)

func TestApplyTracksDatasetsInArrivalOrder(t *testing.T) {
	m := New(nil)
	m.apply(Event{Dataset: "tank1/b", Stage: "send"})
	m.apply(Event{Dataset: "tank1/a", Stage: "send"})

	assert.Equal(t, []string{"tank1/b", "tank1/a"}, m.order)
	assert.Len(t, m.states, 2)
}

func TestApplyUpdatesExistingDataset(t *testing.T) {
	m := New(nil)
	m.apply(Event{Dataset: "tank1/a", Stage: "send", BytesDone: 10})
	m.apply(Event{Dataset: "tank1/a", Stage: "recv", BytesDone: 20})

	assert.Len(t, m.order, 1)
	assert.Equal(t, "recv", m.states["tank1/a"].stage)
	assert.Equal(t, int64(20), m.states["tank1/a"].bytesDone)
}

func TestRenderLineFailed(t *testing.T) {
	st := &datasetState{stage: "send", err: errors.New("boom"), bar: progress.New()}
	line := renderLine("tank1/a", st, 80)
	assert.Contains(t, line, "failed: boom")
}

func TestRenderLineDone(t *testing.T) {
	st := &datasetState{stage: "recv", done: true, bar: progress.New()}
	line := renderLine("tank1/a", st, 80)
	assert.Contains(t, line, "done")
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512B", formatBytes(512))
	assert.Equal(t, "1.0KiB", formatBytes(1024))
}

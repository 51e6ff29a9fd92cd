package logging

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSinkCreatesTimestampedFileAndSymlink(t *testing.T) {
	dir := t.TempDir()
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	sink := &FileSink{Dir: dir, Now: func() time.Time { return fixed }}

	w, err := sink.Open()
	require.NoError(t, err)
	defer w.Close()

	target, err := os.Readlink(filepath.Join(dir, "current.log"))
	require.NoError(t, err)
	assert.Equal(t, "zfsync-20260102T030405Z.log", target)

	_, err = os.Stat(filepath.Join(dir, target))
	assert.NoError(t, err)
}

func TestFileSinkReopenRotatesSymlink(t *testing.T) {
	dir := t.TempDir()
	calls := 0
	sink := &FileSink{Dir: dir, Now: func() time.Time {
		calls++
		return time.Date(2026, 1, 1, 0, 0, calls, 0, time.UTC)
	}}

	w1, err := sink.Open()
	require.NoError(t, err)
	w1.Close()
	first, err := os.Readlink(filepath.Join(dir, "current.log"))
	require.NoError(t, err)

	w2, err := sink.Open()
	require.NoError(t, err)
	w2.Close()
	second, err := os.Readlink(filepath.Join(dir, "current.log"))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestWithErrorAttachesErrorAttr(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewJSONHandler(&buf, nil))
	WithError(l, assertErr{}, "cannot create snapshot")
	assert.Contains(t, buf.String(), "cannot create snapshot")
	assert.Contains(t, buf.String(), "boom")
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }

func TestFanoutHandlerDispatchesToAllEnabledHandlers(t *testing.T) {
	var a, b bytes.Buffer
	h := &fanoutHandler{handlers: []slog.Handler{
		slog.NewTextHandler(&a, nil),
		slog.NewTextHandler(&b, nil),
	}}
	l := slog.New(h)
	l.Info("hello")

	assert.Contains(t, a.String(), "hello")
	assert.Contains(t, b.String(), "hello")
}

func TestWithAndFromContextRoundTrip(t *testing.T) {
	ctx := With(context.Background(), slog.String("fs", "tank1/foo"))
	l := FromContext(ctx)
	assert.NotNil(t, l)
}

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveOutcomeIncrementsByStatus(t *testing.T) {
	r := New()
	r.ObserveOutcome("done")
	r.ObserveOutcome("done")
	r.ObserveOutcome("failed")

	assert.Equal(t, float64(2), testutil.ToFloat64(r.DatasetOutcomes.WithLabelValues("done")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.DatasetOutcomes.WithLabelValues("failed")))
}

func TestObserveStepAccumulatesBytes(t *testing.T) {
	r := New()
	r.ObserveStep("tank1/foo", "send", 1024, 1.5)
	r.ObserveStep("tank1/foo", "send", 2048, 0.5)

	assert.Equal(t, float64(3072), testutil.ToFloat64(r.BytesReplicated.WithLabelValues("tank1/foo")))
}

func TestObserveRetryIncrements(t *testing.T) {
	r := New()
	r.ObserveRetry("tank1/foo")
	r.ObserveRetry("tank1/foo")

	assert.Equal(t, float64(2), testutil.ToFloat64(r.RetryAttempts.WithLabelValues("tank1/foo")))
}

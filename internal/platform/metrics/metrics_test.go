package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveOperationCountsByOutcome(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := &BallotMetrics{}
	metrics.Register(registry)
	metrics.Register(registry)

	metrics.ObserveOperation("cast_vote", "ok")
	metrics.ObserveOperation("cast_vote", "ok")
	metrics.ObserveOperation("cast_vote", "rejected")

	if got := testutil.ToFloat64(metrics.operations.WithLabelValues("cast_vote", "ok")); got != 2 {
		t.Fatalf("expected 2 ok votes, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.operations.WithLabelValues("cast_vote", "rejected")); got != 1 {
		t.Fatalf("expected 1 rejected vote, got %v", got)
	}
}

func TestObserveOperationWithoutRegistryIsNoop(t *testing.T) {
	var nilMetrics *BallotMetrics
	nilMetrics.ObserveOperation("cast_vote", "ok")

	unregistered := &BallotMetrics{}
	unregistered.Register(nil)
	unregistered.ObserveOperation("cast_vote", "ok")
}

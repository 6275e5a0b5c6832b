package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSourceMetrics(t *testing.T) {
	id, kind := "movie-test", "movie"

	IncProduced(id, kind)
	IncProduced(id, kind)
	IncDropped(id, kind)
	IncRead(id, kind)
	IncSeekFailure(id, kind)
	IncPipelineError(id, "network")
	SetRate(id, kind, -0.5)

	if v := testutil.ToFloat64(framesProduced.WithLabelValues(id, kind)); v != 2 {
		t.Errorf("framesProduced = %v, want 2", v)
	}
	if v := testutil.ToFloat64(framesDropped.WithLabelValues(id, kind)); v != 1 {
		t.Errorf("framesDropped = %v, want 1", v)
	}
	if v := testutil.ToFloat64(pipelineErrors.WithLabelValues(id, "network")); v != 1 {
		t.Errorf("pipelineErrors = %v, want 1", v)
	}
	if v := testutil.ToFloat64(playbackRate.WithLabelValues(id, kind)); v != -0.5 {
		t.Errorf("playbackRate = %v, want -0.5", v)
	}

	DeleteSource(id, kind)
	if n := testutil.CollectAndCount(framesProduced); n != 0 {
		t.Errorf("framesProduced series left after delete: %d", n)
	}

	DeleteSource("non-existent", kind)
}

func TestActiveSources(t *testing.T) {
	before := testutil.ToFloat64(activeSources.WithLabelValues("capture"))
	SourceCreated("capture")
	SourceDisposed("cap-x", "capture")
	after := testutil.ToFloat64(activeSources.WithLabelValues("capture"))
	if after != before {
		t.Errorf("active gauge = %v, want %v", after, before)
	}
}

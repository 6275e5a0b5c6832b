// Package metrics exposes per-source frame handoff counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Producer side.
	framesProduced = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "videobridge",
		Subsystem: "source",
		Name:      "frames_produced_total",
		Help:      "Frames latched by the frame sink",
	}, []string{"source_id", "kind"})

	framesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "videobridge",
		Subsystem: "source",
		Name:      "frames_dropped_total",
		Help:      "Frames dropped because the latch was held by the consumer",
	}, []string{"source_id", "kind"})

	// Consumer side.
	framesRead = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "videobridge",
		Subsystem: "source",
		Name:      "frames_read_total",
		Help:      "Frames consumed by the host",
	}, []string{"source_id", "kind"})

	seekFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "videobridge",
		Subsystem: "source",
		Name:      "seek_failures_total",
		Help:      "Seeks refused by the pipeline",
	}, []string{"source_id", "kind"})

	pipelineErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "videobridge",
		Subsystem: "pipeline",
		Name:      "errors_total",
		Help:      "ERROR messages taken off the pipeline bus, by category",
	}, []string{"source_id", "category"})

	playbackRate = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "videobridge",
		Subsystem: "source",
		Name:      "playback_rate",
		Help:      "Signed rate applied by the last accepted seek",
	}, []string{"source_id", "kind"})

	activeSources = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "videobridge",
		Subsystem: "source",
		Name:      "active",
		Help:      "Sources constructed and not yet disposed",
	}, []string{"kind"})
)

// IncProduced records a latched frame.
func IncProduced(sourceID, kind string) {
	framesProduced.WithLabelValues(sourceID, kind).Inc()
}

// IncDropped records a frame dropped on contention.
func IncDropped(sourceID, kind string) {
	framesDropped.WithLabelValues(sourceID, kind).Inc()
}

// IncRead records a frame consumed by the host.
func IncRead(sourceID, kind string) {
	framesRead.WithLabelValues(sourceID, kind).Inc()
}

// IncSeekFailure records a refused seek.
func IncSeekFailure(sourceID, kind string) {
	seekFailures.WithLabelValues(sourceID, kind).Inc()
}

// IncPipelineError records a bus ERROR message.
func IncPipelineError(sourceID, category string) {
	pipelineErrors.WithLabelValues(sourceID, category).Inc()
}

// SetRate records the applied playback rate.
func SetRate(sourceID, kind string, rate float64) {
	playbackRate.WithLabelValues(sourceID, kind).Set(rate)
}

// SourceCreated increments the active source gauge.
func SourceCreated(kind string) {
	activeSources.WithLabelValues(kind).Inc()
}

// SourceDisposed decrements the active source gauge and drops the
// per-source series so disposed sources do not accumulate.
func SourceDisposed(sourceID, kind string) {
	activeSources.WithLabelValues(kind).Dec()
	DeleteSource(sourceID, kind)
}

// DeleteSource removes every series labelled with sourceID.
func DeleteSource(sourceID, kind string) {
	framesProduced.DeleteLabelValues(sourceID, kind)
	framesDropped.DeleteLabelValues(sourceID, kind)
	framesRead.DeleteLabelValues(sourceID, kind)
	seekFailures.DeleteLabelValues(sourceID, kind)
	playbackRate.DeleteLabelValues(sourceID, kind)
	pipelineErrors.DeletePartialMatch(prometheus.Labels{"source_id": sourceID})
}

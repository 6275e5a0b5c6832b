// Package fpsstats measures how regularly the host consumes frames.
package fpsstats

import (
	"math"
	"sync"
	"time"
)

const (
	// fpsStabilityThreshold is the maximum allowed FPS standard deviation as a fraction of mean FPS.
	// A stream is considered stable if stddev < 15% of mean FPS.
	fpsStabilityThreshold = 0.15

	// jitterStabilityThreshold is the maximum allowed mean jitter as a fraction of expected interval.
	jitterStabilityThreshold = 0.20

	// windowSize bounds the number of timestamps kept by Window.
	windowSize = 120
)

// Stats contains FPS statistics over a set of frame timestamps.
type Stats struct {
	// Frames is the number of timestamps analysed
	Frames int
	// Duration is the analysed time span
	Duration time.Duration
	// FPSMean is the mean FPS across all frames
	FPSMean float64
	// FPSStdDev is the standard deviation of instantaneous FPS
	FPSStdDev float64
	// FPSMin is the minimum instantaneous FPS
	FPSMin float64
	// FPSMax is the maximum instantaneous FPS
	FPSMax float64
	// JitterMean is the mean deviation from the expected interval, in seconds
	JitterMean float64
	// JitterMax is the largest deviation from the expected interval, in seconds
	JitterMax float64
	// IsStable is true if stddev < 15% of mean AND jitter < 20% of interval
	IsStable bool
}

// Calculate computes FPS statistics from frame timestamps
//
// This function:
//  1. Calculates mean FPS (overall)
//  2. Calculates instantaneous FPS for each frame interval
//  3. Finds min/max instantaneous FPS and their standard deviation
//  4. Calculates jitter (deviation from the expected inter-frame interval)
//  5. Determines stability
func Calculate(frameTimes []time.Time, totalDuration time.Duration) Stats {
	n := len(frameTimes)
	if n == 0 || totalDuration <= 0 {
		return Stats{Frames: n, Duration: totalDuration}
	}

	fpsMean := float64(n) / totalDuration.Seconds()

	instantaneous := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		interval := frameTimes[i].Sub(frameTimes[i-1]).Seconds()
		if interval > 0 {
			instantaneous = append(instantaneous, 1.0/interval)
		}
	}
	if len(instantaneous) == 0 {
		return Stats{Frames: n, Duration: totalDuration, FPSMean: fpsMean}
	}

	fpsMin, fpsMax := instantaneous[0], instantaneous[0]
	var sumSquares float64
	for _, fps := range instantaneous {
		fpsMin = math.Min(fpsMin, fps)
		fpsMax = math.Max(fpsMax, fps)
		diff := fps - fpsMean
		sumSquares += diff * diff
	}
	fpsStdDev := math.Sqrt(sumSquares / float64(len(instantaneous)))

	expectedInterval := 1.0 / fpsMean
	var jitterSum, jitterMax float64
	for i := 1; i < n; i++ {
		j := math.Abs(frameTimes[i].Sub(frameTimes[i-1]).Seconds() - expectedInterval)
		jitterSum += j
		jitterMax = math.Max(jitterMax, j)
	}
	jitterMean := jitterSum / float64(n-1)

	return Stats{
		Frames:     n,
		Duration:   totalDuration,
		FPSMean:    fpsMean,
		FPSStdDev:  fpsStdDev,
		FPSMin:     fpsMin,
		FPSMax:     fpsMax,
		JitterMean: jitterMean,
		JitterMax:  jitterMax,
		IsStable: fpsStdDev < fpsMean*fpsStabilityThreshold &&
			jitterMean < expectedInterval*jitterStabilityThreshold,
	}
}

// Window is a bounded ring of recent frame timestamps.
type Window struct {
	mu    sync.Mutex
	times [windowSize]time.Time
	index int
	count int
}

// Record appends t, overwriting the oldest timestamp when full.
func (w *Window) Record(t time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.times[w.index] = t
	w.index = (w.index + 1) % windowSize
	if w.count < windowSize {
		w.count++
	}
}

// Reset forgets every recorded timestamp.
func (w *Window) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.index, w.count = 0, 0
}

// Snapshot returns statistics over the recorded timestamps, measured from the
// oldest timestamp to now.
func (w *Window) Snapshot(now time.Time) Stats {
	w.mu.Lock()
	ordered := make([]time.Time, 0, w.count)
	start := (w.index - w.count + windowSize) % windowSize
	for i := 0; i < w.count; i++ {
		ordered = append(ordered, w.times[(start+i)%windowSize])
	}
	w.mu.Unlock()

	if len(ordered) == 0 {
		return Stats{}
	}
	return Calculate(ordered, now.Sub(ordered[0]))
}

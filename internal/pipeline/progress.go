package pipeline

import (
	"time"
)

// estimatorWindow is how far back the throughput window reaches. Long enough
// to smooth over a burst of small images, short enough to react when the
// batch moves from images into multi-minute videos.
const estimatorWindow = 60 * time.Second

type sample struct {
	at    time.Time
	bytes int64
}

// Estimator derives throughput and remaining-time estimates from completion
// samples. Samples are byte-weighted so a thousand thumbnails and one video
// don't produce the same "items per second" distortion. Not safe for
// concurrent use; the aggregator goroutine is its only caller.
type Estimator struct {
	totalBytes int64
	doneBytes  int64
	samples    []sample
	now        func() time.Time // Overridable in tests.
}

// NewEstimator creates an estimator for a batch with the given total input
// byte size.
func NewEstimator(totalBytes int64) *Estimator {
	return &Estimator{totalBytes: totalBytes, now: time.Now}
}

// Record registers the completion of an asset with the given input size.
func (e *Estimator) Record(bytes int64) {
	e.doneBytes += bytes
	e.samples = append(e.samples, sample{at: e.now(), bytes: bytes})
	e.trim()
}

// trim drops samples older than the window, always keeping the newest one.
func (e *Estimator) trim() {
	cutoff := e.now().Add(-estimatorWindow)
	i := 0
	for i < len(e.samples)-1 && e.samples[i].at.Before(cutoff) {
		i++
	}
	e.samples = e.samples[i:]
}

// Rate returns the recent throughput in bytes per second, or 0 when there
// isn't enough data yet.
func (e *Estimator) Rate() float64 {
	if len(e.samples) < 2 {
		return 0
	}
	e.trim()
	span := e.samples[len(e.samples)-1].at.Sub(e.samples[0].at)
	if span <= 0 {
		return 0
	}
	var bytes int64
	for _, s := range e.samples[1:] {
		bytes += s.bytes
	}
	return float64(bytes) / span.Seconds()
}

// ETA returns the estimated remaining duration, or a negative duration when
// no estimate is available yet.
func (e *Estimator) ETA() time.Duration {
	rate := e.Rate()
	if rate <= 0 {
		return -1
	}
	remaining := e.totalBytes - e.doneBytes
	if remaining <= 0 {
		return 0
	}
	return time.Duration(float64(remaining) / rate * float64(time.Second))
}

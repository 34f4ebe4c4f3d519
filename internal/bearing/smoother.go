package bearing

import "github.com/k0rdf/pdoppler/internal/dspmath"

// Smoother applies a circular moving average to a stream of raw bearings
// and decimates to the output rate: it accumulates raw samples as they
// arrive and yields a smoothed Sample on the first push and afterwards
// only when at least one output period has elapsed since the last one
// emitted. The smoothed bearings of the samples pushed between two
// emissions are averaged via circular mean rather than dropped, since
// that wastes less of the signal.
type Smoother struct {
	windowSize int
	window     []float64 // trailing raw_deg history, oldest first
	fs         float64
	outputRate float64

	haveLast   bool
	lastEmitAt int64

	pending      []float64 // raw_deg values accumulated since last emission
	pendingCount int
	lastFull     Sample
}

// NewSmoother builds a smoother with the default window (5 raw bearings)
// and the given sample rate / output rate (Hz).
func NewSmoother(fs, outputRateHz float64) *Smoother {
	return &Smoother{
		windowSize: 5,
		fs:         fs,
		outputRate: outputRateHz,
	}
}

// SetWindow overrides the default circular-mean window size (N_s).
func (s *Smoother) SetWindow(n int) {
	if n < 1 {
		n = 1
	}
	s.windowSize = n
}

// Reset clears all smoothing and decimation state.
func (s *Smoother) Reset() {
	s.window = nil
	s.haveLast = false
	s.lastEmitAt = 0
	s.pending = nil
	s.pendingCount = 0
}

// periodSamples is the number of samples between successive output-rate
// emissions.
func (s *Smoother) periodSamples() int64 {
	if s.outputRate <= 0 {
		return 0
	}
	return int64(s.fs / s.outputRate)
}

// Push folds one raw Sample into the smoother, pushing its RawDeg into
// the circular-mean window and the resulting smoothed bearing into the
// pending decimation accumulator. It returns the emitted Sample and true
// on the first push, or if enough time has elapsed since the last
// emission to produce one at the configured output_rate_hz.
func (s *Smoother) Push(raw Sample) (Sample, bool) {
	s.window = append(s.window, raw.RawDeg)
	if len(s.window) > s.windowSize {
		s.window = s.window[len(s.window)-s.windowSize:]
	}
	smoothedDeg, _ := dspmath.CircularMeanDeg(s.window)

	out := raw
	out.SmoothedDeg = smoothedDeg

	s.pending = append(s.pending, smoothedDeg)
	s.pendingCount++

	period := s.periodSamples()
	first := !s.haveLast
	s.haveLast = true

	if !first && period > 0 && raw.Timestamp-s.lastEmitAt < period {
		s.lastFull = out
		return Sample{}, false
	}

	if len(s.pending) > 1 {
		meanDeg, _ := dspmath.CircularMeanDeg(s.pending)
		out.SmoothedDeg = meanDeg
	}

	s.pending = s.pending[:0]
	s.lastEmitAt = raw.Timestamp
	s.lastFull = out
	return out, true
}

package north

// SimpleTracker is the `simple` north-mode alternative to the DPLL: it
// has no phase-locked state at all, just an exponentially smoothed
// estimate of the rotation period derived from the two most recent ticks.
// North timestamps handed to the bearing calculator are the raw detected
// ticks themselves.
type SimpleTracker struct {
	Gamma float64

	havePrev  bool
	prevTick  Tick
	period    float64
	haveFirst bool
}

// NewSimpleTracker builds a tracker with the default gamma=0.1.
func NewSimpleTracker() *SimpleTracker {
	return &SimpleTracker{Gamma: 0.1}
}

// Reset clears all tracker state.
func (s *SimpleTracker) Reset() {
	s.havePrev = false
	s.haveFirst = false
	s.period = 0
}

// OnTick folds a newly detected tick into the smoothed period estimate.
func (s *SimpleTracker) OnTick(t Tick) {
	if s.havePrev {
		instant := (float64(t.SampleIndex) + t.FracOffset) -
			(float64(s.prevTick.SampleIndex) + s.prevTick.FracOffset)
		if !s.haveFirst {
			s.period = instant
			s.haveFirst = true
		} else {
			s.period = (1-s.Gamma)*s.period + s.Gamma*instant
		}
	}
	s.prevTick = t
	s.havePrev = true
}

// PeriodSamples returns the current smoothed rotation period in samples,
// or 0 if fewer than two ticks have been seen.
func (s *SimpleTracker) PeriodSamples() float64 {
	return s.period
}

// LastTick returns the most recently processed tick and whether one has
// been seen yet.
func (s *SimpleTracker) LastTick() (Tick, bool) {
	return s.prevTick, s.havePrev
}

package bearing

import (
	"math"

	"github.com/k0rdf/pdoppler/internal/dspmath"
	"github.com/k0rdf/pdoppler/internal/north"
	"github.com/k0rdf/pdoppler/internal/phase"
)

// ConfidenceWeights blend the three quality metrics into one confidence
// value; they must sum to 1. Defaults 0.34/0.33/0.33 (signal strength,
// coherence, SNR).
type ConfidenceWeights struct {
	Strength  float64
	Coherence float64
	Snr       float64
}

// DefaultConfidenceWeights returns the default split.
func DefaultConfidenceWeights() ConfidenceWeights {
	return ConfidenceWeights{Strength: 0.34, Coherence: 0.33, Snr: 0.33}
}

// Input is everything the calculator needs to turn one phase-estimator
// result into a raw bearing observation: the estimator's output, the
// timestamp of the Doppler window it was computed from, the north-offset
// calibration, and optionally a DPLL lock-quality snapshot (absent in
// `simple` north-tracking mode).
type Input struct {
	Timestamp   int64
	Phase       phase.Result
	NorthOffset float64
	Lock        *north.LockQuality // nil in simple mode; Locked is false before 16 ticks
	ConfidenceW ConfidenceWeights
}

// Calculate converts one Input into a raw Sample. It never panics or
// produces a non-finite field: a degenerate phase.Result (Valid == false)
// or a non-finite intermediate yields confidence 0 and RawDeg carried
// forward from prevRawDeg.
func Calculate(in Input, prevRawDeg float64) Sample {
	if !in.Phase.Valid {
		return Sample{Timestamp: in.Timestamp, RawDeg: dspmath.WrapDeg(prevRawDeg), SmoothedDeg: dspmath.WrapDeg(prevRawDeg)}
	}

	rawDeg := dspmath.WrapDeg(in.Phase.Phase/(2*math.Pi)*360 + in.NorthOffset)

	w := in.ConfidenceW
	if w == (ConfidenceWeights{}) {
		w = DefaultConfidenceWeights()
	}

	confidence := w.Strength*dspmath.Clamp01(in.Phase.SignalStrength) +
		w.Coherence*dspmath.Clamp01(in.Phase.Coherence) +
		w.Snr*dspmath.Clamp01(in.Phase.SnrDb/30)

	if in.Lock != nil && !in.Lock.Locked {
		confidence = 0
	}

	s := Sample{
		Timestamp:      in.Timestamp,
		RawDeg:         rawDeg,
		SmoothedDeg:    rawDeg,
		Confidence:     dspmath.Clamp01(confidence),
		SnrDb:          in.Phase.SnrDb,
		Coherence:      dspmath.Clamp01(in.Phase.Coherence),
		SignalStrength: dspmath.Clamp01(in.Phase.SignalStrength),
	}

	if in.Lock != nil {
		s.HasLockQuality = true
		s.LockQuality = in.Lock.LockQuality
		s.PhaseScore = in.Lock.PhaseScore
		s.FreqScore = in.Lock.FreqScore
		s.PhaseErrorVariance = in.Lock.PhaseErrorVarianceR2
	}

	if !dspmath.IsFinite(s.RawDeg) || !dspmath.IsFinite(s.Confidence) ||
		!dspmath.IsFinite(s.SnrDb) || !dspmath.IsFinite(s.Coherence) ||
		!dspmath.IsFinite(s.SignalStrength) {
		return Sample{Timestamp: in.Timestamp, RawDeg: dspmath.WrapDeg(prevRawDeg), SmoothedDeg: dspmath.WrapDeg(prevRawDeg)}
	}

	return s
}

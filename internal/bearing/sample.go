// Package bearing turns phase-estimator output and DPLL/simple-tracker
// north timing into the bearing stream the sink consumes: a
// confidence-weighted raw bearing per Doppler window, then a circular
// moving average decimated to the configured output rate.
package bearing

// Sample is one bearing observation. Timestamp is the continuous sample
// index of the Doppler window it was computed from. DPLL-only fields are
// zero when the simple tracker is in use.
type Sample struct {
	Timestamp int64

	RawDeg      float64
	SmoothedDeg float64
	Confidence  float64
	SnrDb       float64
	Coherence   float64

	SignalStrength float64

	HasLockQuality     bool
	LockQuality        float64
	PhaseScore         float64
	FreqScore          float64
	PhaseErrorVariance float64
}

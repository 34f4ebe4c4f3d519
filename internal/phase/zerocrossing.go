package phase

import (
	"math"

	"github.com/k0rdf/pdoppler/internal/dspmath"
)

// zeroCrossHysteresis is the dead-zone a sample must cross below zero
// before a following positive crossing is armed: guards against chatter
// re-triggering on noise near zero.
const zeroCrossHysteresis = 0.01

// periodCoherenceScale maps relative period jitter to the coherence
// metric for the zero-crossing method.
const periodCoherenceScale = 4.0

// ZeroCrossing is the alternative phase estimator: it times
// hysteresis-gated positive zero crossings of the Doppler tone instead of
// correlating against a quadrature reference.
type ZeroCrossing struct {
	armed bool
}

// NewZeroCrossing builds a ZeroCrossing estimator.
func NewZeroCrossing() *ZeroCrossing {
	return &ZeroCrossing{}
}

// Reset clears the hysteresis arming state.
func (z *ZeroCrossing) Reset() {
	z.armed = false
}

// Process implements Estimator.
func (z *ZeroCrossing) Process(window []float64, ctx Context) Result {
	n := len(window)
	if n < 2 {
		return Result{}
	}

	crossings := z.findCrossings(window)
	if len(crossings) < 2 {
		return Result{}
	}

	periods := make([]float64, 0, len(crossings)-1)
	for i := 1; i < len(crossings); i++ {
		periods = append(periods, crossings[i]-crossings[i-1])
	}
	periodMean, periodStd := dspmath.MeanStd(periods)
	if periodMean <= 0 {
		return Result{}
	}

	coherence := dspmath.Clamp01(1 - (periodStd/periodMean)*periodCoherenceScale)

	anchor := ctx.WindowStart
	if !math.IsNaN(ctx.NorthTime) {
		anchor = ctx.NorthTime
	}
	firstAbs := ctx.WindowStart + crossings[0]
	phase := dspmath.Wrap2Pi((firstAbs - anchor) / periodMean * 2 * math.Pi)

	expectedCrossings := float64(n) / periodMean
	var strength float64
	if expectedCrossings > 0 {
		strength = dspmath.Clamp01(float64(len(crossings)) / expectedCrossings)
	}

	omega := 2 * math.Pi / periodMean
	i, q := quadratureSums(window, omega, 0, 0)
	signalPower := (i*i + q*q) / float64(n*n)
	residual := residualPower(window, omega, 0, 0, i, q)

	const epsilon = 1e-12
	snrDb := 10 * math.Log10(signalPower/math.Max(residual, epsilon))

	if !dspmath.IsFinite(phase) || !dspmath.IsFinite(snrDb) ||
		!dspmath.IsFinite(coherence) || !dspmath.IsFinite(strength) {
		return Result{}
	}

	return Result{
		Phase:          phase,
		SnrDb:          snrDb,
		Coherence:      coherence,
		SignalStrength: strength,
		Valid:          true,
	}
}

// findCrossings returns the sub-sample positions (as fractional indices
// into window) of every hysteresis-gated positive zero crossing. The
// detector arms once a sample dips below -zeroCrossHysteresis, then fires
// and disarms on the next upward crossing of zero.
func (z *ZeroCrossing) findCrossings(window []float64) []float64 {
	var crossings []float64
	armed := z.armed

	for n := 1; n < len(window); n++ {
		prev, cur := window[n-1], window[n]

		if cur < -zeroCrossHysteresis {
			armed = true
		}

		if armed && prev <= 0 && cur > 0 {
			frac := float64(n-1) + prev/(prev-cur)
			crossings = append(crossings, frac)
			armed = false
		}
	}

	z.armed = armed
	return crossings
}

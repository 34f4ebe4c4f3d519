package phase

import (
	"math"

	"github.com/k0rdf/pdoppler/internal/dspmath"
)

// subWindowCount is the number of sub-windows the coherence metric splits
// the estimation window into.
const subWindowCount = 4

// signalPowerRefTauSeconds is the time constant of the slowly-tracked
// peak-hold reference signal_strength is normalized against.
const signalPowerRefTauSeconds = 2.0

// Correlator is the default phase estimator: it mixes the Doppler window
// against quadrature references at the DPLL-tracked rotation frequency.
type Correlator struct {
	powerRef        float64
	haveWindowStart bool
	lastWindowStart float64
}

// NewCorrelator builds a Correlator with fresh peak-hold state.
func NewCorrelator() *Correlator {
	return &Correlator{}
}

// Reset clears the signal-power peak-hold reference.
func (c *Correlator) Reset() {
	c.powerRef = 0
	c.haveWindowStart = false
	c.lastWindowStart = 0
}

// Process implements Estimator.
func (c *Correlator) Process(window []float64, ctx Context) Result {
	w := len(window)
	if w == 0 {
		return Result{}
	}

	i, q := quadratureSums(window, ctx.Omega, ctx.Theta0, 0)
	phase := dspmath.Wrap2Pi(math.Atan2(q, i))

	signalPower := (i*i + q*q) / float64(w*w)
	residualPower := residualPower(window, ctx.Omega, ctx.Theta0, 0, i, q)

	const epsilon = 1e-12
	snrDb := 10 * math.Log10(signalPower/math.Max(residualPower, epsilon))

	coherence := c.subWindowCoherence(window, ctx)

	c.updatePowerReference(signalPower, ctx)
	var strength float64
	if c.powerRef > 0 {
		strength = dspmath.Clamp01(signalPower / c.powerRef)
	}

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

// subWindowCoherence splits window into subWindowCount pieces, computes a
// per-sub-window phase, and returns the resultant length of their
// circular mean.
func (c *Correlator) subWindowCoherence(window []float64, ctx Context) float64 {
	n := len(window)
	subCount := subWindowCount
	size := n / subCount
	if size < 1 {
		return 0
	}

	phases := make([]float64, 0, subCount)
	for s := 0; s < subCount; s++ {
		start := s * size
		end := start + size
		if s == subCount-1 {
			end = n
		}
		i, q := quadratureSums(window[start:end], ctx.Omega, ctx.Theta0, start)
		phases = append(phases, math.Atan2(q, i))
	}

	_, resultant := dspmath.CircularMeanRad(phases)
	return resultant
}

// updatePowerReference maintains an exponential peak-hold of signal
// power: it jumps up immediately on a new peak and decays toward the
// current value with a ~2 s time constant otherwise.
func (c *Correlator) updatePowerReference(power float64, ctx Context) {
	if !c.haveWindowStart {
		c.powerRef = power
		c.lastWindowStart = ctx.WindowStart
		c.haveWindowStart = true
		return
	}

	dtSeconds := (ctx.WindowStart - c.lastWindowStart) / ctx.Fs
	c.lastWindowStart = ctx.WindowStart

	if power > c.powerRef {
		c.powerRef = power
		return
	}

	decay := math.Exp(-dtSeconds / signalPowerRefTauSeconds)
	c.powerRef = c.powerRef*decay + power*(1-decay)
}

// quadratureSums computes I = sum(x[n]*cos(omega*n'+theta0)) and
// Q = sum(x[n]*sin(omega*n'+theta0)) where n' = offset + local index,
// so a sub-window mixed this way stays phase-consistent with the whole
// window.
func quadratureSums(x []float64, omega, theta0 float64, offset int) (i, q float64) {
	for n, v := range x {
		angle := omega*float64(n+offset) + theta0
		i += v * math.Cos(angle)
		q += v * math.Sin(angle)
	}
	return i, q
}

// residualPower reconstructs the fitted tone and returns the mean squared
// residual against the window.
func residualPower(x []float64, omega, theta0 float64, offset int, i, q float64) float64 {
	w := len(x)
	if w == 0 {
		return 0
	}
	var sum float64
	for n, v := range x {
		angle := omega*float64(n+offset) + theta0
		r := (i*math.Cos(angle) + q*math.Sin(angle)) * 2 / float64(w)
		d := v - r
		sum += d * d
	}
	return sum / float64(w)
}

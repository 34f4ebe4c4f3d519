package north

import (
	"math"

	"github.com/k0rdf/pdoppler/internal/dspmath"
)

// dpllHistorySize is the rolling window of phase errors and period
// estimates the lock-quality metrics are computed over.
const dpllHistorySize = 128

// minTicksForLock is the number of ticks the DPLL must have processed
// before it reports itself as locked; below this the bearing calculator
// must report confidence 0 regardless of the instantaneous scores.
const minTicksForLock = 16

// DpllState tracks antenna rotation phase and frequency across detected
// north ticks: a second-order loop with a first-order frequency estimate.
// It is owned exclusively by the DSP thread; no synchronization is needed
// on its fields.
type DpllState struct {
	Theta float64 // rad, kept in (-pi, pi]
	Omega float64 // rad/sample, kept in (0, pi)
	Alpha float64 // phase loop gain
	Beta  float64 // frequency loop gain

	sLast float64 // continuous sample time of the last tick processed

	phaseErrors [dpllHistorySize]float64
	periods     [dpllHistorySize]float64
	histLen     int
	histPos     int

	ticksSeen int
	fs        float64
}

// NewDpllState builds a DPLL pre-seeded to track a rotation at
// initialFreqHz, sampled at fs, with critically damped loop gains
// (alpha=0.1, beta=alpha^2/4).
func NewDpllState(fs, initialFreqHz float64) *DpllState {
	const alpha = 0.1
	return &DpllState{
		Omega: clampOmega(2 * math.Pi * initialFreqHz / fs),
		Alpha: alpha,
		Beta:  alpha * alpha / 4,
		fs:    fs,
	}
}

// Reset restores the DPLL to its just-constructed state. Loop gains and
// the configured sample rate survive the reset; the estimate does not.
func (d *DpllState) Reset(initialFreqHz float64) {
	d.Theta = 0
	d.Omega = clampOmega(2 * math.Pi * initialFreqHz / d.fs)
	d.sLast = 0
	d.histLen = 0
	d.histPos = 0
	d.ticksSeen = 0
	for i := range d.phaseErrors {
		d.phaseErrors[i] = 0
		d.periods[i] = 0
	}
}

// SetGains overrides the default loop gains, validated by the caller to
// satisfy 0 < beta < alpha < 1.
func (d *DpllState) SetGains(alpha, beta float64) {
	d.Alpha = alpha
	d.Beta = beta
}

// OnTick advances the loop to a newly detected tick: predict the phase at
// the tick time, take the wrapped error against the tick's reference zero,
// and correct frequency then phase.
func (d *DpllState) OnTick(t Tick) {
	tickTime := float64(t.SampleIndex) + t.FracOffset
	dt := tickTime - d.sLast

	thetaPred := dspmath.WrapPi(d.Theta + d.Omega*dt)
	e := dspmath.WrapPi(0 - thetaPred)

	d.Omega = clampOmega(d.Omega + d.Beta*e)
	d.Theta = dspmath.WrapPi(thetaPred + d.Alpha*e)
	d.sLast = tickTime

	periodSeconds := (2 * math.Pi / d.Omega) / d.fs
	d.pushHistory(e, periodSeconds)
	d.ticksSeen++
}

func (d *DpllState) pushHistory(phaseErr, periodSeconds float64) {
	d.phaseErrors[d.histPos] = phaseErr
	d.periods[d.histPos] = periodSeconds
	d.histPos = (d.histPos + 1) % dpllHistorySize
	if d.histLen < dpllHistorySize {
		d.histLen++
	}
}

func clampOmega(w float64) float64 {
	const lo = 1e-6
	hi := math.Pi - 1e-6
	if w < lo {
		return lo
	}
	if w > hi {
		return hi
	}
	return w
}

// PhaseAt predicts the wrapped rotation phase at continuous sample time t,
// used by the correlator to find its reference phase at a window's start.
func (d *DpllState) PhaseAt(t float64) float64 {
	return dspmath.WrapPi(d.Theta + d.Omega*(t-d.sLast))
}

// PredictNextNorth returns the continuous sample index of the next
// predicted north crossing, valid between ticks.
func (d *DpllState) PredictNextNorth() float64 {
	return d.sLast + (2*math.Pi-d.Theta)/d.Omega
}

// PeriodSamples returns the current estimated rotation period in samples.
func (d *DpllState) PeriodSamples() float64 {
	return 2 * math.Pi / d.Omega
}

// LastTickTime returns the continuous sample time of the last tick fed to
// OnTick, or 0 before the first tick.
func (d *DpllState) LastTickTime() float64 {
	return d.sLast
}

// TicksSeen reports how many ticks OnTick has processed, the same count
// LockQualitySnapshot compares against minTicksForLock.
func (d *DpllState) TicksSeen() int {
	return d.ticksSeen
}

// LockQuality summarizes how well the loop is tracking.
type LockQuality struct {
	PhaseScore           float64
	FreqScore            float64
	LockQuality          float64
	PhaseErrorVarianceR2 float64
	Locked               bool
}

// LockQualityWeights lets the caller of LockQualitySnapshot override the default
// 0.5/0.5 split between phase and frequency score; the two must sum to 1.
type LockQualityWeights struct {
	Phase float64
	Freq  float64
}

// DefaultLockQualityWeights is an even split.
func DefaultLockQualityWeights() LockQualityWeights {
	return LockQualityWeights{Phase: 0.5, Freq: 0.5}
}

// LockQualitySnapshot computes the current lock-quality metrics from the
// rolling history: phase score from phase-error spread, frequency score
// from period jitter relative to the mean period.
func (d *DpllState) LockQualitySnapshot(weights LockQualityWeights) LockQuality {
	locked := d.ticksSeen >= minTicksForLock
	if d.histLen == 0 {
		return LockQuality{Locked: locked}
	}

	phaseErrs := d.phaseErrors[:d.histLen]
	periods := d.periods[:d.histLen]

	_, phaseStd := dspmath.MeanStd(phaseErrs)
	phaseScore := dspmath.Clamp01(1 - phaseStd/math.Pi)

	periodMean, periodStd := dspmath.MeanStd(periods)
	var freqScore float64
	if periodMean > 0 {
		freqScore = dspmath.Clamp01(1 - 100*periodStd/periodMean)
	}

	return LockQuality{
		PhaseScore:           phaseScore,
		FreqScore:            freqScore,
		LockQuality:          weights.Phase*phaseScore + weights.Freq*freqScore,
		PhaseErrorVarianceR2: dspmath.Variance(phaseErrs),
		Locked:               locked,
	}
}

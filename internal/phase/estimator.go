// Package phase implements the two interchangeable Doppler phase
// estimators: the default sliding I/Q correlator and the zero-crossing
// timer. Both satisfy the Estimator interface, selected once at startup
// via `--method`, so the rest of the pipeline never needs to know which
// one is active.
package phase

import "fmt"

// Context carries everything an Estimator needs about the current window
// besides the samples themselves: the sample rate, the DPLL's tracked
// rotation frequency and phase, and (for the zero-crossing method) the
// timing of the governing north reference.
type Context struct {
	Fs float64

	// Omega is the DPLL's current rad/sample rotation-frequency estimate.
	Omega float64

	// WindowStart is the continuous sample index of window[0].
	WindowStart float64

	// Theta0 is the DPLL's predicted phase at WindowStart, the
	// correlator's quadrature reference origin.
	Theta0 float64

	// NorthTime is the continuous sample time of the most recent north
	// reference, used by the zero-crossing method to anchor phase zero.
	// NaN if no north reference is available yet.
	NorthTime float64
}

// Result is what every Estimator produces from one Doppler window: a
// phase in [0, 2*pi), and three quality metrics each in [0, 1]
// (snr_db is unbounded). Valid is false for a degenerate window (too
// short, all-zero, or a non-finite intermediate); callers must never
// treat Phase etc. as meaningful when Valid is false.
type Result struct {
	Phase          float64
	SnrDb          float64
	Coherence      float64
	SignalStrength float64
	Valid          bool
}

// Estimator is the shared capability both phase methods implement.
type Estimator interface {
	Process(window []float64, ctx Context) Result
	Reset()
}

// Method names the two estimator variants selectable from the CLI.
type Method string

const (
	MethodCorrelation  Method = "correlation"
	MethodZeroCrossing Method = "zero-crossing"
)

// New builds the Estimator named by method.
func New(method Method) (Estimator, error) {
	switch method {
	case MethodCorrelation, "":
		return NewCorrelator(), nil
	case MethodZeroCrossing:
		return NewZeroCrossing(), nil
	default:
		return nil, fmt.Errorf("phase: unknown method %q", method)
	}
}

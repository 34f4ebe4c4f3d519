// Package dspmath collects the small numeric helpers (angle wrapping,
// circular statistics, clamping) shared by the north-tracking, phase
// estimation, and bearing packages. None of it is specific to any one
// stage, so it lives below all of them in the dependency order.
package dspmath

import "math"

// Clamp01 restricts x to [0, 1].
func Clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// WrapPi wraps a radian angle into (-pi, pi].
func WrapPi(x float64) float64 {
	x = math.Mod(x+math.Pi, 2*math.Pi)
	if x <= 0 {
		x += 2 * math.Pi
	}
	return x - math.Pi
}

// Wrap2Pi wraps a radian angle into [0, 2*pi).
func Wrap2Pi(x float64) float64 {
	x = math.Mod(x, 2*math.Pi)
	if x < 0 {
		x += 2 * math.Pi
		if x >= 2*math.Pi {
			x = 0
		}
	}
	return x
}

// WrapDeg wraps a degree value into [0, 360).
func WrapDeg(x float64) float64 {
	x = math.Mod(x, 360)
	if x < 0 {
		x += 360
		if x >= 360 {
			x = 0
		}
	}
	return x
}

// MeanStd returns the arithmetic mean and (population) standard deviation
// of xs. Returns (0, 0) for an empty slice.
func MeanStd(xs []float64) (mean, std float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean = sum / float64(len(xs))

	var sq float64
	for _, x := range xs {
		d := x - mean
		sq += d * d
	}
	std = math.Sqrt(sq / float64(len(xs)))
	return mean, std
}

// Variance returns the population variance of xs.
func Variance(xs []float64) float64 {
	_, std := MeanStd(xs)
	return std * std
}

// CircularMeanDeg computes the circular mean of a set of angles given in
// degrees, via unit-vector accumulation, so that values straddling the
// 0/360 boundary average correctly instead of cancelling out. Returns
// (mean, resultantLength) where resultantLength in [0,1] is the length of
// the mean resultant vector: 1 when all angles agree, 0 when they are
// uniformly scattered; this doubles as the estimator "coherence" metric
// when reused on sub-window phases.
func CircularMeanDeg(anglesDeg []float64) (mean, resultantLength float64) {
	if len(anglesDeg) == 0 {
		return 0, 0
	}
	var sx, sy float64
	for _, a := range anglesDeg {
		rad := a * math.Pi / 180
		sx += math.Cos(rad)
		sy += math.Sin(rad)
	}
	n := float64(len(anglesDeg))
	sx /= n
	sy /= n
	mean = WrapDeg(math.Atan2(sy, sx) * 180 / math.Pi)
	resultantLength = math.Hypot(sx, sy)
	return mean, resultantLength
}

// CircularMeanRad is CircularMeanDeg's radian counterpart, used by the
// phase estimators' sub-window coherence computation.
func CircularMeanRad(anglesRad []float64) (mean, resultantLength float64) {
	if len(anglesRad) == 0 {
		return 0, 0
	}
	var sx, sy float64
	for _, a := range anglesRad {
		sx += math.Cos(a)
		sy += math.Sin(a)
	}
	n := float64(len(anglesRad))
	sx /= n
	sy /= n
	mean = Wrap2Pi(math.Atan2(sy, sx))
	resultantLength = math.Hypot(sx, sy)
	return mean, resultantLength
}

// IsFinite reports whether x is neither NaN nor +/-Inf.
func IsFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

package pipeline

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/k0rdf/pdoppler/internal/bearing"
	"github.com/k0rdf/pdoppler/internal/dspcore"
	"github.com/k0rdf/pdoppler/internal/dspmath"
	"github.com/k0rdf/pdoppler/internal/north"
	"github.com/k0rdf/pdoppler/internal/phase"
)

// rotationsPerEstimate is the number of antenna rotations each phase
// estimate integrates over; estimator windows are
// round(Fs/f_rot)*rotationsPerEstimate samples long.
const rotationsPerEstimate = 5

// popTimeout and pushTimeout are the bounded waits the DSP thread uses
// when its input is empty or its output is full, short enough that a
// stop request is observed promptly.
const popTimeout = 20 * time.Millisecond
const pushTimeout = 20 * time.Millisecond

// fatalWindow is how close together two FatalInternal resets must occur
// to escalate to shutdown.
const fatalWindow = time.Second

// Worker is the single DSP thread: it owns every filter, AGC, and
// DPLL/tracker state, consumes SampleBlocks from a RingBuffer in order,
// and produces bearing.Samples onto a BoundedQueue. No locks are needed
// on any of its fields; only the stop flag is touched from another
// goroutine.
type Worker struct {
	cfg    Config
	in     *dspcore.RingBuffer
	out    *dspcore.BoundedQueue[bearing.Sample]
	logger *log.Logger

	stop atomic.Bool

	dopplerDC *dspcore.Filter
	northDC   *dspcore.Filter
	agc       *dspcore.AgcState
	bandpass  *dspcore.Filter
	highpass  *dspcore.Filter

	detector *north.Detector
	dpll     *north.DpllState
	simple   *north.SimpleTracker

	estimator phase.Estimator

	smoother *bearing.Smoother

	northGainLinear float64

	windowLen     int
	warmupSamples int64
	dopplerAcc    []float64
	accStart      int64
	northSampleN  int64 // absolute index of the next north sample to process

	lastRawDeg       float64
	overrunSeen      uint64
	overrunLimiter   *RateLimiter
	consecutiveFatal int
	lastFatalAt      time.Time
}

// NewWorker constructs a Worker from a validated Config. cfg must have
// already passed Validate().
func NewWorker(cfg Config, in *dspcore.RingBuffer, out *dspcore.BoundedQueue[bearing.Sample], logger *log.Logger) (*Worker, error) {
	estimator, err := phase.New(cfg.Method)
	if err != nil {
		return nil, &ConfigError{Field: "method", Reason: err.Error()}
	}

	w := &Worker{
		cfg:            cfg,
		in:             in,
		out:            out,
		logger:         logger,
		agc:            dspcore.NewAgcState(cfg.SampleRateHz),
		bandpass:       dspcore.NewButterworthBandpass(1500, 1700, cfg.SampleRateHz, 4),
		highpass:       dspcore.NewButterworthHighpass(5000, cfg.SampleRateHz, 4),
		detector:       north.NewDetector(&north.DetectorConfig{Threshold: cfg.DetectorThreshold, MinInterval: cfg.ResolvedDetectorMinInterval()}),
		dpll:           north.NewDpllState(cfg.SampleRateHz, cfg.RotationHz),
		simple:         north.NewSimpleTracker(),
		estimator:      estimator,
		smoother:       bearing.NewSmoother(cfg.SampleRateHz, cfg.OutputRateHz),
		overrunLimiter: NewRateLimiter(5 * time.Second),
	}
	w.dpll.SetGains(cfg.DpllAlpha, cfg.DpllBeta)
	w.smoother.SetWindow(cfg.SmootherWindow)
	w.northGainLinear = math.Pow(10, cfg.NorthTickGainDb/20)
	w.windowLen = int(math.Round(cfg.SampleRateHz/cfg.RotationHz)) * rotationsPerEstimate
	if w.windowLen < 1 {
		w.windowLen = 1
	}
	w.warmupSamples = int64(w.bandpass.WarmupSamples())
	if cfg.RemoveDC {
		w.dopplerDC = dspcore.NewOnePoleHighpass(1, cfg.SampleRateHz)
		w.northDC = dspcore.NewOnePoleHighpass(1, cfg.SampleRateHz)
	}
	return w, nil
}

// Stop requests the worker's Run loop to drain and exit.
func (w *Worker) Stop() {
	w.stop.Store(true)
}

// Run is the DSP thread body: poll input, process, poll output, repeat
// until Stop is called. Once the stop flag is observed, blocks already
// queued are still processed before returning, so a file producer can
// push its last block, call Stop, and know nothing was silently dropped.
func (w *Worker) Run() {
	for {
		block, ok := w.in.Pop()
		if !ok {
			if w.stop.Load() {
				return
			}
			time.Sleep(popTimeout)
			continue
		}
		w.checkOverruns()
		w.processBlock(block)
	}
}

func (w *Worker) checkOverruns() {
	total := w.in.Overruns()
	if total > w.overrunSeen {
		w.overrunSeen = total
		if w.overrunLimiter.Allow() && w.logger != nil {
			w.logger.Warn("sample block overrun", "err", (&OverrunWarning{TotalOverruns: total}).Error())
		}
	}
}

// processBlock runs one SampleBlock through the doppler and north paths
// and emits zero or more bearing.Samples to the output queue.
func (w *Worker) processBlock(b dspcore.SampleBlock) {
	dopplerRaw := b.Channel(w.cfg.DopplerChannel, w.cfg.SwapChannels)
	northRaw := b.Channel(w.cfg.NorthChannel, w.cfg.SwapChannels)

	for _, s := range dopplerRaw {
		x := float64(s)
		if w.dopplerDC != nil {
			x = w.dopplerDC.Process(x)
		}
		x = w.sanitize("agc", w.agc.Process(x))
		y := w.sanitize("bandpass", w.bandpass.Process(x))
		w.dopplerAcc = append(w.dopplerAcc, y)
	}

	northFiltered := make([]float64, len(northRaw))
	for i, s := range northRaw {
		x := float64(s) * w.northGainLinear
		if w.northDC != nil {
			x = w.northDC.Process(x)
		}
		northFiltered[i] = w.sanitize("north highpass", w.highpass.Process(x))
	}

	ticks := w.detector.Process(northFiltered, w.northSampleN)
	w.northSampleN += int64(len(northFiltered))
	for _, t := range ticks {
		if w.cfg.NorthMode == NorthModeSimple {
			w.simple.OnTick(t)
		} else {
			w.dpll.OnTick(t)
		}
	}

	for len(w.dopplerAcc) >= w.windowLen {
		window := w.dopplerAcc[:w.windowLen]
		windowStart := w.accStart
		w.dopplerAcc = append([]float64(nil), w.dopplerAcc[w.windowLen:]...)
		w.accStart += int64(w.windowLen)

		w.emitFromWindow(window, windowStart)
	}
}

// emitFromWindow runs the configured phase estimator over one Doppler
// window, turns it into a raw bearing, folds it through the
// smoother/decimator, and pushes an emitted sample onto the output queue.
func (w *Worker) emitFromWindow(window []float64, windowStart int64) {
	// The bandpass transient is discarded before any bearing is emitted:
	// the first windows after stream start carry filter ring-up, not
	// signal.
	if windowStart < w.warmupSamples {
		return
	}

	ctx := w.estimatorContext(windowStart)
	result := w.estimator.Process(window, ctx)

	var lock *north.LockQuality
	if w.cfg.NorthMode != NorthModeSimple {
		lq := w.dpll.LockQualitySnapshot(w.cfg.NorthLockQualityWeights())
		lock = &lq
	}

	in := bearing.Input{
		Timestamp:   windowStart,
		Phase:       result,
		NorthOffset: w.cfg.NorthOffsetDeg,
		Lock:        lock,
	}
	raw := bearing.Calculate(in, w.lastRawDeg)
	w.lastRawDeg = raw.RawDeg

	out, emitted := w.smoother.Push(raw)
	if !emitted {
		return
	}
	for !w.out.Push(out, pushTimeout) {
		if w.stop.Load() {
			return
		}
	}
}

// estimatorContext builds the phase.Context for a window starting at
// windowStart. The active north tracker is the sole authority on rotation
// frequency and north-phase prediction; the estimator reads a snapshot.
func (w *Worker) estimatorContext(windowStart int64) phase.Context {
	ctx := phase.Context{
		Fs:          w.cfg.SampleRateHz,
		WindowStart: float64(windowStart),
		NorthTime:   math.NaN(),
	}

	if w.cfg.NorthMode == NorthModeSimple {
		period := w.simple.PeriodSamples()
		if period > 0 {
			ctx.Omega = 2 * math.Pi / period
		} else {
			ctx.Omega = 2 * math.Pi * w.cfg.RotationHz / w.cfg.SampleRateHz
		}
		if tick, ok := w.simple.LastTick(); ok {
			tickTime := float64(tick.SampleIndex) + tick.FracOffset
			ctx.NorthTime = tickTime
			ctx.Theta0 = dspmath.WrapPi(ctx.Omega * (ctx.WindowStart - tickTime))
		}
		return ctx
	}

	ctx.Omega = w.dpll.Omega
	ctx.Theta0 = w.dpll.PhaseAt(ctx.WindowStart)
	if w.dpll.TicksSeen() > 0 {
		ctx.NorthTime = w.dpll.LastTickTime()
	}
	return ctx
}

// sanitize checks x for NaN/Inf; no DSP stage may emit a non-finite
// value. A non-finite value resets the named stage and counts toward the
// FatalInternal escalation window: two resets inside one second set the
// stop flag.
func (w *Worker) sanitize(stage string, x float64) float64 {
	if dspmath.IsFinite(x) {
		return x
	}

	if w.logger != nil {
		w.logger.Error("fatal internal", "err", (&FatalInternal{Stage: stage, Detail: "non-finite output"}).Error())
	}

	switch stage {
	case "agc":
		w.agc.Reset()
	case "bandpass":
		w.bandpass.Reset()
	case "north highpass":
		w.highpass.Reset()
	}

	now := time.Now()
	if w.consecutiveFatal > 0 && now.Sub(w.lastFatalAt) <= fatalWindow {
		w.consecutiveFatal++
	} else {
		w.consecutiveFatal = 1
	}
	w.lastFatalAt = now
	if w.consecutiveFatal >= 2 {
		w.Stop()
	}
	return 0
}

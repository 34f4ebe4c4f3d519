// Command pdoppler runs the pseudo-Doppler radio direction finding core:
// it wires live capture or a WAV file into the two-thread DSP pipeline of
// internal/pipeline and writes bearing records to stdout in the requested
// format.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pkg/term"
	flag "github.com/spf13/pflag"

	"github.com/k0rdf/pdoppler/internal/audioio"
	"github.com/k0rdf/pdoppler/internal/bearing"
	"github.com/k0rdf/pdoppler/internal/discovery"
	"github.com/k0rdf/pdoppler/internal/dspcore"
	"github.com/k0rdf/pdoppler/internal/hwio"
	"github.com/k0rdf/pdoppler/internal/output"
	"github.com/k0rdf/pdoppler/internal/phase"
	"github.com/k0rdf/pdoppler/internal/pipeline"
)

// Process exit codes.
const (
	exitClean          = 0
	exitConfigError    = 2
	exitAudioError     = 3
	exitInputFileError = 4
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		method        = flag.String("method", "correlation", "phase estimation method: correlation|zero-crossing")
		northMode     = flag.String("north-mode", "dpll", "north tracking mode: dpll|simple")
		swapChannels  = flag.Bool("swap-channels", false, "swap the doppler and north-tick channels")
		outputRate    = flag.Float64("output-rate", 10, "bearing output rate in Hz")
		northOffset   = flag.Float64("north-offset", 0, "bearing offset added to every sample, degrees")
		formatName    = flag.String("format", "text", "output format: text|kn5r|json|csv")
		inputPath     = flag.String("input", "", "WAV file to process instead of live capture")
		rotationSpec  = flag.String("rotation", "1602hz", "commutator rotation rate: '1602', '1602hz', or '624us'")
		removeDC      = flag.Bool("remove-dc", false, "remove DC offset before filtering")
		dumpAudioPath = flag.String("dump-audio", "", "strftime-templated path to dump captured audio as WAV")
		northTickGain = flag.Float64("north-tick-gain", 0, "north-tick channel gain, dB")
		device        = flag.String("device", "", "capture device name substring")
		listDevices   = flag.Bool("list-devices", false, "list capture devices and exit")
		announce      = flag.Bool("announce", false, "advertise the bearing stream over mDNS")
		lockGpio      = flag.String("lock-gpio", "", "drive <chip>:<line> high while the DPLL is locked")
		configFile    = flag.String("config", "", "optional YAML config file")
		sampleRate    = flag.Float64("sample-rate", 48000, "capture/file sample rate, Hz")
		verbosity     = flag.CountP("verbose", "v", "increase log verbosity (-v, -vv, -vvv)")
	)
	flag.Parse()

	logger := log.New(os.Stderr)
	switch {
	case *verbosity >= 3:
		logger.SetLevel(log.DebugLevel)
	case *verbosity >= 2:
		logger.SetLevel(log.InfoLevel)
	case *verbosity >= 1:
		logger.SetLevel(log.WarnLevel)
	default:
		logger.SetLevel(log.ErrorLevel)
	}

	if *listDevices {
		return doListDevices(logger)
	}

	cfg := pipeline.Default()
	cfg.SampleRateHz = *sampleRate
	cfg.Method = phase.Method(*method)
	cfg.NorthMode = pipeline.NorthMode(*northMode)
	cfg.SwapChannels = *swapChannels
	cfg.OutputRateHz = *outputRate
	cfg.NorthOffsetDeg = *northOffset
	cfg.FormatName = pipeline.Format(*formatName)
	cfg.InputPath = *inputPath
	cfg.RemoveDC = *removeDC
	cfg.DumpAudioPath = *dumpAudioPath
	cfg.NorthTickGainDb = *northTickGain
	cfg.Device = *device
	cfg.AnnounceMdns = *announce
	cfg.LockGpio = *lockGpio
	cfg.Verbosity = *verbosity

	if rotHz, err := parseRotationSpec(*rotationSpec); err != nil {
		logger.Error("config", "err", err)
		return exitConfigError
	} else {
		cfg.RotationHz = rotHz
	}

	if *configFile != "" {
		loaded, err := pipeline.LoadYamlFile(*configFile, cfg)
		if err != nil {
			logger.Error("config", "err", err)
			return exitConfigError
		}
		cfg = loaded
	}

	if err := cfg.Validate(); err != nil {
		logger.Error("config", "err", err)
		return exitConfigError
	}

	return runPipeline(cfg, logger)
}

func runPipeline(cfg pipeline.Config, logger *log.Logger) int {
	ring := dspcore.NewRingBuffer(32)
	out := dspcore.NewBoundedQueue[bearing.Sample](256)

	worker, err := pipeline.NewWorker(cfg, ring, out, logger)
	if err != nil {
		logger.Error("worker init", "err", err)
		return exitConfigError
	}

	var lock *hwio.LockIndicator
	if cfg.LockGpio != "" {
		chip, line, err := hwio.ParseChipLine(cfg.LockGpio)
		if err != nil {
			logger.Error("lock-gpio", "err", err)
			return exitConfigError
		}
		lock, err = hwio.NewLockIndicator(chip, line, 0.8)
		if err != nil {
			logger.Error("lock-gpio", "err", err)
			return exitAudioError
		}
		defer lock.Close()
	}

	if cfg.AnnounceMdns {
		a, err := discovery.Announce("", 0, logger)
		if err != nil {
			logger.Warn("dns-sd announce failed, continuing without it", "err", err)
		} else {
			defer a.Stop()
		}
	}

	formatter := newFormatter(cfg)
	defer formatter.Close()

	if cfg.InputPath != "" {
		return runFile(cfg, worker, ring, out, formatter, lock, logger)
	}
	return runLive(cfg, worker, ring, out, formatter, lock, logger)
}

func newFormatter(cfg pipeline.Config) output.Formatter {
	switch cfg.FormatName {
	case pipeline.FormatJson:
		return output.NewJsonFormatter(os.Stdout, cfg.SampleRateHz)
	case pipeline.FormatCsv:
		return output.NewCsvFormatter(os.Stdout, cfg.SampleRateHz)
	case pipeline.FormatKn5r:
		return output.NewKn5rFormatter(os.Stdout, cfg.SampleRateHz)
	default:
		return output.NewTextFormatter(os.Stdout)
	}
}

func runFile(cfg pipeline.Config, worker *pipeline.Worker, ring *dspcore.RingBuffer, out *dspcore.BoundedQueue[bearing.Sample], formatter output.Formatter, lock *hwio.LockIndicator, logger *log.Logger) int {
	samples, _, err := audioio.ReadWavStereo(cfg.InputPath, cfg.SampleRateHz)
	if err != nil {
		logger.Error("input file", "err", err)
		return exitInputFileError
	}

	// The file producer paces itself against the ring so drop-oldest
	// never fires on a file we already hold in memory; overrun recovery
	// is for live capture, where the producer cannot wait.
	const blockFrames = 1024
	frames := len(samples) / 2
	go func() {
		for start := 0; start < frames; start += blockFrames {
			end := start + blockFrames
			if end > frames {
				end = frames
			}
			for ring.Len() >= 24 {
				time.Sleep(time.Millisecond)
			}
			ring.Push(dspcore.SampleBlock{
				StartIndex: int64(start),
				Samples:    samples[start*2 : end*2],
			})
		}
		worker.Stop()
	}()

	drain(worker, out, formatter, lock)
	return exitClean
}

func runLive(cfg pipeline.Config, worker *pipeline.Worker, ring *dspcore.RingBuffer, out *dspcore.BoundedQueue[bearing.Sample], formatter output.Formatter, lock *hwio.LockIndicator, logger *log.Logger) int {
	var tap func([]float32)
	if cfg.DumpAudioPath != "" {
		dump, err := audioio.NewDumpWriter(cfg.DumpAudioPath, int(cfg.SampleRateHz))
		if err != nil {
			logger.Error("dump-audio", "err", err)
		} else {
			tap = dump.Write
			defer func() {
				if err := dump.Close(); err != nil {
					logger.Error("dump-audio write", "err", err)
				} else {
					logger.Info("dumped audio", "path", dump.Path())
				}
			}()
		}
	}

	capt, err := audioio.Open(cfg.Device, cfg.SampleRateHz, 1024, ring, tap)
	if err != nil {
		logger.Error("capture", "err", err)
		return exitAudioError
	}
	defer capt.Close()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigs
		logger.Info("shutting down")
		// Stop the producer first so the worker's drain-on-stop sees a
		// queue that actually empties.
		_ = capt.Close()
		worker.Stop()
	}()

	drain(worker, out, formatter, lock)
	return exitClean
}

// drain runs the worker and pumps its output queue into the formatter
// (and the optional GPIO lock indicator) until the worker has exited and
// the queue is flushed.
func drain(worker *pipeline.Worker, out *dspcore.BoundedQueue[bearing.Sample], formatter output.Formatter, lock *hwio.LockIndicator) {
	done := make(chan struct{})
	go func() {
		worker.Run()
		close(done)
	}()

	finished := false
	for {
		s, ok := out.Pop(50 * time.Millisecond)
		if !ok {
			if finished {
				return
			}
			select {
			case <-done:
				finished = true
			default:
			}
			continue
		}
		_ = formatter.Write(s)
		if lock != nil && s.HasLockQuality {
			_ = lock.Update(s.LockQuality)
		}
	}
}

func doListDevices(logger *log.Logger) int {
	devs, err := audioio.ListDevices()
	if err != nil {
		logger.Error("list-devices", "err", err)
		return exitAudioError
	}
	for i, d := range devs {
		fmt.Printf("%d: %s (%d ch, %.0f Hz default)\n", i, d.Name, d.MaxInputChannels, d.DefaultSampleRateHz)
	}
	if len(devs) > 0 && isInteractiveTerminal() {
		pickInteractive(devs)
	}
	return exitClean
}

// pickInteractive reads one raw keypress to select a device.
func pickInteractive(devs []audioio.DeviceInfo) {
	tty, err := term.Open("/dev/tty", term.RawMode)
	if err != nil {
		return
	}
	defer tty.Restore()
	defer tty.Close()

	fmt.Print("press a digit to select a device, any other key to cancel: ")
	buf := make([]byte, 1)
	if _, err := tty.Read(buf); err != nil {
		return
	}
	idx, err := strconv.Atoi(string(buf))
	if err != nil || idx < 0 || idx >= len(devs) {
		return
	}
	fmt.Printf("\nselected: %s\n", devs[idx].Name)
}

func isInteractiveTerminal() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

var (
	reHz = regexp.MustCompile(`^([0-9.]+)\s*(hz)?$`)
	reUs = regexp.MustCompile(`^([0-9.]+)\s*us$`)
)

// parseRotationSpec parses the --rotation value, accepting a bare number
// or "hz" suffix as a frequency, or a "us" suffix as the antenna's period
// in microseconds.
func parseRotationSpec(s string) (float64, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if m := reUs.FindStringSubmatch(s); m != nil {
		periodUs, err := strconv.ParseFloat(m[1], 64)
		if err != nil || periodUs <= 0 {
			return 0, fmt.Errorf("invalid rotation period %q", s)
		}
		return 1e6 / periodUs, nil
	}
	if m := reHz.FindStringSubmatch(s); m != nil {
		hz, err := strconv.ParseFloat(m[1], 64)
		if err != nil || hz <= 0 {
			return 0, fmt.Errorf("invalid rotation frequency %q", s)
		}
		return hz, nil
	}
	return 0, fmt.Errorf("unrecognized --rotation value %q", s)
}

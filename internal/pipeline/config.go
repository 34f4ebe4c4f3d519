package pipeline

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/k0rdf/pdoppler/internal/dspcore"
	"github.com/k0rdf/pdoppler/internal/north"
	"github.com/k0rdf/pdoppler/internal/phase"
)

// NorthMode selects the north-tracking strategy.
type NorthMode string

const (
	NorthModeDpll   NorthMode = "dpll"
	NorthModeSimple NorthMode = "simple"
)

// Format selects an output record formatter.
type Format string

const (
	FormatText Format = "text"
	FormatJson Format = "json"
	FormatCsv  Format = "csv"
	FormatKn5r Format = "kn5r"
)

// Config is the complete configuration for one DSP run. It is read-only
// after startup; changing anything mid-stream requires a full DSP
// restart. Fields are populated from CLI flags (see cmd/pdoppler for the
// flag definitions) and, where they carry a yaml tag, from an optional
// YAML config file. DopplerChannel, NorthChannel and ListDevices are set
// by neither and keep their Default values.
type Config struct {
	SampleRateHz float64 `yaml:"sample_rate_hz"`

	DopplerChannel  dspcore.ChannelRole `yaml:"-"`
	NorthChannel    dspcore.ChannelRole `yaml:"-"`
	SwapChannels    bool                `yaml:"swap_channels"`
	RemoveDC        bool                `yaml:"remove_dc"`
	NorthTickGainDb float64             `yaml:"north_tick_gain_db"`

	Method    phase.Method `yaml:"-"`
	NorthMode NorthMode    `yaml:"-"`

	RotationHz     float64 `yaml:"rotation_hz"`
	NorthOffsetDeg float64 `yaml:"north_offset_deg"`
	OutputRateHz   float64 `yaml:"output_rate_hz"`

	DetectorThreshold   float64 `yaml:"detector_threshold"`
	DetectorMinInterval int     `yaml:"detector_min_interval"`

	DpllAlpha float64 `yaml:"dpll_alpha"`
	DpllBeta  float64 `yaml:"dpll_beta"`

	SmootherWindow int `yaml:"smoother_window"`

	Device        string `yaml:"device"`
	ListDevices   bool   `yaml:"-"`
	InputPath     string `yaml:"-"`
	DumpAudioPath string `yaml:"dump_audio_path"`

	FormatName Format `yaml:"-"`

	AnnounceMdns bool   `yaml:"announce_mdns"`
	LockGpio     string `yaml:"lock_gpio"` // "<chip>:<line>", empty disables

	Verbosity int `yaml:"-"`
}

// Default returns a Config with the standard defaults: 48 kHz, doppler
// on left / north on right, correlation method, dpll north mode, 10 Hz
// output rate, rotation at 1602 Hz.
func Default() Config {
	return Config{
		SampleRateHz:        48000,
		DopplerChannel:      dspcore.ChannelLeft,
		NorthChannel:        dspcore.ChannelRight,
		RotationHz:          1602,
		NorthOffsetDeg:      0,
		OutputRateHz:        10,
		DetectorThreshold:   0.15,
		DetectorMinInterval: 0,
		DpllAlpha:           0.1,
		DpllBeta:            0.1 * 0.1 / 4,
		SmootherWindow:      5,
		Method:              phase.MethodCorrelation,
		NorthMode:           NorthModeDpll,
		FormatName:          FormatText,
	}
}

// LoadYamlFile reads an optional config file and overlays it onto base.
// The caller only calls this when a path was explicitly given.
func LoadYamlFile(path string, base Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, &IoError{Op: "read config file", Err: err}
	}
	if err := yaml.Unmarshal(data, &base); err != nil {
		return base, &IoError{Op: "parse config file", Err: err}
	}
	return base, nil
}

// Validate fails fast on any invalid combination of fields, rejecting at
// startup rather than the middle of a run. It returns the first problem
// found.
func (c *Config) Validate() error {
	if c.SampleRateHz <= 0 {
		return &ConfigError{Field: "sample_rate_hz", Reason: "must be positive"}
	}
	if c.DopplerChannel == c.NorthChannel {
		return &ConfigError{Field: "channels", Reason: "doppler and north-tick channels must differ"}
	}
	if c.OutputRateHz <= 0 {
		return &ConfigError{Field: "output_rate_hz", Reason: "must be positive"}
	}
	if c.RotationHz <= 0 {
		return &ConfigError{Field: "rotation_hz", Reason: "must be positive"}
	}
	if c.DetectorThreshold <= 0 || c.DetectorThreshold >= 1 {
		return &ConfigError{Field: "detector_threshold", Reason: "must be in (0, 1)"}
	}
	if c.DpllAlpha <= 0 || c.DpllAlpha >= 1 {
		return &ConfigError{Field: "dpll_alpha", Reason: "must be in (0, 1)"}
	}
	if c.DpllBeta <= 0 || c.DpllBeta >= c.DpllAlpha {
		return &ConfigError{Field: "dpll_beta", Reason: "must satisfy 0 < beta < alpha"}
	}
	if c.SmootherWindow < 1 {
		return &ConfigError{Field: "smoother_window", Reason: "must be >= 1"}
	}
	switch c.Method {
	case phase.MethodCorrelation, phase.MethodZeroCrossing, "":
	default:
		return &ConfigError{Field: "method", Reason: fmt.Sprintf("unknown method %q", c.Method)}
	}
	switch c.NorthMode {
	case NorthModeDpll, NorthModeSimple, "":
	default:
		return &ConfigError{Field: "north_mode", Reason: fmt.Sprintf("unknown north mode %q", c.NorthMode)}
	}
	switch c.FormatName {
	case FormatText, FormatJson, FormatCsv, FormatKn5r, "":
	default:
		return &ConfigError{Field: "format", Reason: fmt.Sprintf("unknown format %q", c.FormatName)}
	}
	if c.DetectorMinInterval < 0 {
		return &ConfigError{Field: "detector_min_interval", Reason: "must be >= 0"}
	}
	return nil
}

// ResolvedDetectorMinInterval returns DetectorMinInterval if explicitly
// set, or 0.6 ms worth of samples at the configured rate otherwise.
func (c *Config) ResolvedDetectorMinInterval() int {
	if c.DetectorMinInterval > 0 {
		return c.DetectorMinInterval
	}
	return int(0.6e-3*c.SampleRateHz + 0.5)
}

// NorthLockQualityWeights returns the phase/frequency weighting for DPLL
// lock_quality. No CLI override is exposed; the even split works across
// the whole operating range.
func (c *Config) NorthLockQualityWeights() north.LockQualityWeights {
	return north.DefaultLockQualityWeights()
}

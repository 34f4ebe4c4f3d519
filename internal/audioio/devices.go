// Package audioio implements the I/O collaborators surrounding the DSP
// core: live stereo capture, WAV file reading/writing, and templated
// audio-dump files.
package audioio

import (
	"strings"

	"github.com/gordonklaus/portaudio"
)

// DeviceInfo describes one capture-capable audio device.
type DeviceInfo struct {
	Index               int
	Name                string
	MaxInputChannels    int
	DefaultSampleRateHz float64
}

// ListDevices enumerates every stereo-capable input device visible to
// PortAudio.
func ListDevices() ([]DeviceInfo, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}
	defer portaudio.Terminate()

	devs, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}

	out := make([]DeviceInfo, 0, len(devs))
	for i, d := range devs {
		if d.MaxInputChannels < 2 {
			continue
		}
		out = append(out, DeviceInfo{
			Index:               i,
			Name:                d.Name,
			MaxInputChannels:    d.MaxInputChannels,
			DefaultSampleRateHz: d.DefaultSampleRate,
		})
	}
	return out, nil
}

// FindDeviceBySubstring returns the first input device whose name
// contains substr (case-insensitive). An empty substr matches the first
// available device.
func FindDeviceBySubstring(devices []DeviceInfo, substr string) (DeviceInfo, bool) {
	substr = strings.ToLower(substr)
	for _, d := range devices {
		if substr == "" || strings.Contains(strings.ToLower(d.Name), substr) {
			return d, true
		}
	}
	return DeviceInfo{}, false
}

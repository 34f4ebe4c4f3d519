package audioio

import (
	"fmt"
	"strings"

	"github.com/gordonklaus/portaudio"

	"github.com/k0rdf/pdoppler/internal/dspcore"
)

// Capture is the live stereo capture producer: it owns a PortAudio input
// stream whose callback pushes SampleBlocks onto a RingBuffer without
// ever blocking on the DSP consumer (drop-oldest semantics live inside
// RingBuffer.Push itself).
type Capture struct {
	stream     *portaudio.Stream
	ring       *dspcore.RingBuffer
	tap        func([]float32)
	startIndex int64
}

// Open starts capturing stereo audio at fs Hz, framesPerBuffer frames per
// callback, from the first device whose name contains deviceSubstr
// (empty matches the first stereo-capable input device), pushing every block
// onto ring. tap, if non-nil, also receives every interleaved block
// (used by --dump-audio). Returns a plain error on any PortAudio
// failure; the caller classifies it.
func Open(deviceSubstr string, fs float64, framesPerBuffer int, ring *dspcore.RingBuffer, tap func([]float32)) (*Capture, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio init: %w", err)
	}

	devs, err := portaudio.Devices()
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}

	dev, err := pickDevice(devs, deviceSubstr)
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}

	c := &Capture{ring: ring, tap: tap}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: 2,
			Latency:  dev.DefaultLowInputLatency,
		},
		SampleRate:      fs,
		FramesPerBuffer: framesPerBuffer,
	}

	stream, err := portaudio.OpenStream(params, c.onAudio)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("open stream: %w", err)
	}
	c.stream = stream

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("start stream: %w", err)
	}

	return c, nil
}

func pickDevice(devs []*portaudio.DeviceInfo, substr string) (*portaudio.DeviceInfo, error) {
	substr = strings.ToLower(substr)
	for _, d := range devs {
		if d.MaxInputChannels < 2 {
			continue
		}
		if substr == "" || strings.Contains(strings.ToLower(d.Name), substr) {
			return d, nil
		}
	}
	return nil, fmt.Errorf("no stereo input device matching %q", substr)
}

// onAudio is the PortAudio callback: it copies the interleaved stereo
// buffer into a SampleBlock and pushes it to the ring buffer. It must
// never block.
func (c *Capture) onAudio(in []float32) {
	frames := len(in) / 2
	samples := make([]float32, len(in))
	copy(samples, in)

	if c.tap != nil {
		c.tap(samples)
	}

	c.ring.Push(dspcore.SampleBlock{
		StartIndex: c.startIndex,
		Samples:    samples,
	})
	c.startIndex += int64(frames)
}

// Close stops the stream and releases PortAudio. Idempotent: a second
// call is a no-op, so a signal handler and a deferred cleanup can both
// call it.
func (c *Capture) Close() error {
	if c.stream == nil {
		return nil
	}
	stream := c.stream
	c.stream = nil
	stopErr := stream.Stop()
	closeErr := stream.Close()
	portaudio.Terminate()
	if stopErr != nil {
		return stopErr
	}
	return closeErr
}

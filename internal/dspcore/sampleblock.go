// Package dspcore holds the leaf-level signal-processing building blocks
// shared by the rest of the DSP pipeline: sample blocks, the SPSC queues
// that move them between the capture and DSP threads, Butterworth biquad
// filters, and the Doppler-channel AGC.
package dspcore

// ChannelRole picks which interleaved-stereo channel carries a given
// signal. The Doppler tone and the north tick must never share a role.
type ChannelRole int

const (
	ChannelLeft ChannelRole = iota
	ChannelRight
)

// SampleBlock is a contiguous run of interleaved stereo samples pulled from
// the capture device. StartIndex is the sample count since stream start of
// the first frame in Samples; it increases strictly from block to block.
// A SampleBlock is produced once by the capture side and consumed once by
// the DSP thread; it is never mutated in place after being pushed onto a
// RingBuffer.
type SampleBlock struct {
	StartIndex int64
	Samples    []float32 // len == 2*Frames(), interleaved L,R,L,R,...
}

// Frames reports the number of stereo frames in the block.
func (b SampleBlock) Frames() int {
	return len(b.Samples) / 2
}

// Channel extracts one mono channel from the block as a freshly allocated
// slice, honoring swap (exchanges Left and Right before extraction).
func (b SampleBlock) Channel(role ChannelRole, swap bool) []float32 {
	if swap {
		if role == ChannelLeft {
			role = ChannelRight
		} else {
			role = ChannelLeft
		}
	}

	frames := b.Frames()
	out := make([]float32, frames)
	offset := 0
	if role == ChannelRight {
		offset = 1
	}
	for i := 0; i < frames; i++ {
		out[i] = b.Samples[2*i+offset]
	}
	return out
}

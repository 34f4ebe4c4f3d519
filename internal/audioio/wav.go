package audioio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

const (
	wavFormatPcm   = 1
	wavFormatFloat = 3
)

// WavInfo describes a stereo WAV file's format, checked against the
// configured Fs before any samples are read.
type WavInfo struct {
	SampleRateHz  int
	Channels      int
	BitsPerSample int
	AudioFormat   int // wavFormatPcm or wavFormatFloat
}

// ReadWavStereo reads an entire PCM16 or float32 stereo WAV file into an
// interleaved []float32 in [-1, 1], validating its sample rate against
// expectedFs. No resampling is performed.
func ReadWavStereo(path string, expectedFs float64) ([]float32, WavInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, WavInfo{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, dataOffset, dataSize, err := readWavHeader(f)
	if err != nil {
		return nil, WavInfo{}, fmt.Errorf("%s: %w", path, err)
	}
	if info.Channels != 2 {
		return nil, WavInfo{}, fmt.Errorf("%s: expected stereo, got %d channels", path, info.Channels)
	}
	if expectedFs > 0 && info.SampleRateHz != int(expectedFs) {
		return nil, WavInfo{}, fmt.Errorf("%s: sample rate %d does not match configured %d (no resampling)", path, info.SampleRateHz, int(expectedFs))
	}

	if _, err := f.Seek(dataOffset, io.SeekStart); err != nil {
		return nil, WavInfo{}, fmt.Errorf("%s: %w", path, err)
	}
	raw := make([]byte, dataSize)
	if _, err := io.ReadFull(f, raw); err != nil {
		return nil, WavInfo{}, fmt.Errorf("%s: read samples: %w", path, err)
	}

	samples, err := decodeSamples(raw, info)
	if err != nil {
		return nil, WavInfo{}, fmt.Errorf("%s: %w", path, err)
	}
	return samples, info, nil
}

func readWavHeader(f *os.File) (WavInfo, int64, int64, error) {
	var riff [12]byte
	if _, err := io.ReadFull(f, riff[:]); err != nil {
		return WavInfo{}, 0, 0, fmt.Errorf("read RIFF header: %w", err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return WavInfo{}, 0, 0, fmt.Errorf("not a WAV file")
	}

	var info WavInfo
	var dataOffset, dataSize int64
	haveFmt := false
	haveData := false

	for !haveData {
		var chunkID [4]byte
		var chunkSize uint32
		if _, err := io.ReadFull(f, chunkID[:]); err != nil {
			return WavInfo{}, 0, 0, fmt.Errorf("read chunk id: %w", err)
		}
		if err := binary.Read(f, binary.LittleEndian, &chunkSize); err != nil {
			return WavInfo{}, 0, 0, fmt.Errorf("read chunk size: %w", err)
		}

		switch string(chunkID[:]) {
		case "fmt ":
			var fc struct {
				AudioFormat   uint16
				NumChannels   uint16
				SampleRate    uint32
				ByteRate      uint32
				BlockAlign    uint16
				BitsPerSample uint16
			}
			if err := binary.Read(f, binary.LittleEndian, &fc); err != nil {
				return WavInfo{}, 0, 0, fmt.Errorf("read fmt chunk: %w", err)
			}
			info = WavInfo{
				SampleRateHz:  int(fc.SampleRate),
				Channels:      int(fc.NumChannels),
				BitsPerSample: int(fc.BitsPerSample),
				AudioFormat:   int(fc.AudioFormat),
			}
			haveFmt = true
			if rem := int64(chunkSize) - 16; rem > 0 {
				if _, err := f.Seek(rem, io.SeekCurrent); err != nil {
					return WavInfo{}, 0, 0, err
				}
			}
		case "data":
			if !haveFmt {
				return WavInfo{}, 0, 0, fmt.Errorf("data chunk before fmt chunk")
			}
			pos, err := f.Seek(0, io.SeekCurrent)
			if err != nil {
				return WavInfo{}, 0, 0, err
			}
			dataOffset = pos
			dataSize = int64(chunkSize)
			haveData = true
		default:
			if _, err := f.Seek(int64(chunkSize), io.SeekCurrent); err != nil {
				return WavInfo{}, 0, 0, fmt.Errorf("skip chunk %q: %w", chunkID, err)
			}
		}
	}

	return info, dataOffset, dataSize, nil
}

func decodeSamples(raw []byte, info WavInfo) ([]float32, error) {
	switch {
	case info.AudioFormat == wavFormatPcm && info.BitsPerSample == 16:
		n := len(raw) / 2
		out := make([]float32, n)
		for i := 0; i < n; i++ {
			v := int16(binary.LittleEndian.Uint16(raw[i*2:]))
			out[i] = float32(v) / 32768.0
		}
		return out, nil
	case info.AudioFormat == wavFormatFloat && info.BitsPerSample == 32:
		n := len(raw) / 4
		out := make([]float32, n)
		for i := 0; i < n; i++ {
			bits := binary.LittleEndian.Uint32(raw[i*4:])
			out[i] = math.Float32frombits(bits)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported format %d/%d bits", info.AudioFormat, info.BitsPerSample)
	}
}

// WriteWavFloat32Stereo writes an interleaved stereo []float32 sample
// buffer as an IEEE-float32 WAV file, used by --dump-audio.
func WriteWavFloat32Stereo(path string, fs int, samples []float32) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	const bitsPerSample = 32
	const channels = 2
	byteRate := fs * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8
	dataSize := len(samples) * 4
	riffSize := 36 + dataSize

	w := func(v interface{}) {
		_ = binary.Write(f, binary.LittleEndian, v)
	}

	f.WriteString("RIFF")
	w(uint32(riffSize))
	f.WriteString("WAVE")
	f.WriteString("fmt ")
	w(uint32(16))
	w(uint16(wavFormatFloat))
	w(uint16(channels))
	w(uint32(fs))
	w(uint32(byteRate))
	w(uint16(blockAlign))
	w(uint16(bitsPerSample))
	f.WriteString("data")
	w(uint32(dataSize))
	for _, s := range samples {
		w(math.Float32bits(s))
	}
	return nil
}

package audioio

import (
	"time"

	"github.com/lestrrat-go/strftime"
)

// DumpWriter buffers captured stereo audio for `--dump-audio` and writes
// it as a WAV file on Close. The output filename is a strftime pattern,
// so repeated runs stamp their dumps by date and time instead of
// clobbering one file.
type DumpWriter struct {
	path    string
	fs      int
	samples []float32
}

// NewDumpWriter resolves pattern (a strftime format string) against the
// current time and returns a writer ready to accumulate samples.
func NewDumpWriter(pattern string, fs int) (*DumpWriter, error) {
	path, err := strftime.Format(pattern, time.Now())
	if err != nil {
		return nil, err
	}
	return &DumpWriter{path: path, fs: fs}, nil
}

// Write appends an interleaved stereo block to the in-memory buffer.
func (d *DumpWriter) Write(samples []float32) {
	d.samples = append(d.samples, samples...)
}

// Close flushes the accumulated audio to d.path as a float32 WAV file.
func (d *DumpWriter) Close() error {
	return WriteWavFloat32Stereo(d.path, d.fs, d.samples)
}

// Path reports the resolved output filename.
func (d *DumpWriter) Path() string {
	return d.path
}

package output

import (
	"fmt"
	"io"

	"github.com/k0rdf/pdoppler/internal/bearing"
)

// Kn5rFormatter writes the KN5R text dialect consumed by certain
// ham-radio plotting tools: one line per sample, fields in a fixed order
// with fixed decimal precision,
//
//	$KN5R,<timestamp_s>,<bearing_deg>,<confidence>,<snr_db>*<checksum>
//
// terminated by an NMEA-style trailing XOR checksum of every byte between
// '$' and '*'.
type Kn5rFormatter struct {
	w  io.Writer
	fs float64
}

func NewKn5rFormatter(w io.Writer, fs float64) *Kn5rFormatter {
	return &Kn5rFormatter{w: w, fs: fs}
}

func (f *Kn5rFormatter) Write(s bearing.Sample) error {
	body := fmt.Sprintf("KN5R,%.3f,%.1f,%.2f,%.1f",
		float64(s.Timestamp)/f.fs, s.SmoothedDeg, s.Confidence, s.SnrDb)
	_, err := fmt.Fprintf(f.w, "$%s*%02X\r\n", body, nmeaChecksum(body))
	return err
}

func (f *Kn5rFormatter) Close() error { return nil }

// nmeaChecksum XORs every byte of s together, the standard NMEA-0183
// checksum algorithm KN5R borrows its framing from.
func nmeaChecksum(s string) byte {
	var c byte
	for i := 0; i < len(s); i++ {
		c ^= s[i]
	}
	return c
}

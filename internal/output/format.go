// Package output formats bearing.Sample records for the sink: text,
// JSON, CSV, and the KN5R dialect.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	"github.com/k0rdf/pdoppler/internal/bearing"
)

// Formatter writes bearing.Samples to a sink, one record per Write call.
type Formatter interface {
	Write(s bearing.Sample) error
	Close() error
}

// jsonRecord is the wire shape of one bearing.Sample in JSON/CSV. The
// DPLL-only fields are omitted (JSON) or empty (CSV) in simple
// north-tracking mode.
type jsonRecord struct {
	TimestampS float64 `json:"timestamp_s"`
	BearingDeg float64 `json:"bearing_deg"`
	RawDeg     float64 `json:"raw_deg"`
	Confidence float64 `json:"confidence"`
	SnrDb      float64 `json:"snr_db"`
	Coherence  float64 `json:"coherence"`

	LockQuality        *float64 `json:"lock_quality,omitempty"`
	PhaseScore         *float64 `json:"phase_score,omitempty"`
	FreqScore          *float64 `json:"freq_score,omitempty"`
	PhaseErrorVariance *float64 `json:"phase_error_variance,omitempty"`
}

func toRecord(s bearing.Sample, fs float64) jsonRecord {
	r := jsonRecord{
		TimestampS: float64(s.Timestamp) / fs,
		BearingDeg: s.SmoothedDeg,
		RawDeg:     s.RawDeg,
		Confidence: s.Confidence,
		SnrDb:      s.SnrDb,
		Coherence:  s.Coherence,
	}
	if s.HasLockQuality {
		r.LockQuality = &s.LockQuality
		r.PhaseScore = &s.PhaseScore
		r.FreqScore = &s.FreqScore
		r.PhaseErrorVariance = &s.PhaseErrorVariance
	}
	return r
}

// TextFormatter writes the one-line human-readable format:
// "Bearing: <b>° (raw: <r>°) confidence: <c>".
type TextFormatter struct {
	w io.Writer
}

func NewTextFormatter(w io.Writer) *TextFormatter { return &TextFormatter{w: w} }

func (f *TextFormatter) Write(s bearing.Sample) error {
	_, err := fmt.Fprintf(f.w, "Bearing: %.1f° (raw: %.1f°) confidence: %.2f\n",
		s.SmoothedDeg, s.RawDeg, s.Confidence)
	return err
}

func (f *TextFormatter) Close() error { return nil }

// JsonFormatter writes one JSON object per line (JSON Lines), simplest
// shape for a long-running streaming sink.
type JsonFormatter struct {
	enc *json.Encoder
	fs  float64
}

func NewJsonFormatter(w io.Writer, fs float64) *JsonFormatter {
	return &JsonFormatter{enc: json.NewEncoder(w), fs: fs}
}

func (f *JsonFormatter) Write(s bearing.Sample) error {
	return f.enc.Encode(toRecord(s, f.fs))
}

func (f *JsonFormatter) Close() error { return nil }

// CsvFormatter writes one CSV row per sample with a fixed header.
type CsvFormatter struct {
	w           *csv.Writer
	fs          float64
	wroteHeader bool
}

func NewCsvFormatter(w io.Writer, fs float64) *CsvFormatter {
	return &CsvFormatter{w: csv.NewWriter(w), fs: fs}
}

var csvHeader = []string{
	"timestamp_s", "bearing_deg", "raw_deg", "confidence", "snr_db", "coherence",
	"lock_quality", "phase_score", "freq_score", "phase_error_variance",
}

func (f *CsvFormatter) Write(s bearing.Sample) error {
	if !f.wroteHeader {
		if err := f.w.Write(csvHeader); err != nil {
			return err
		}
		f.wroteHeader = true
	}
	r := toRecord(s, f.fs)
	row := []string{
		fmt.Sprintf("%.6f", r.TimestampS),
		fmt.Sprintf("%.2f", r.BearingDeg),
		fmt.Sprintf("%.2f", r.RawDeg),
		fmt.Sprintf("%.3f", r.Confidence),
		fmt.Sprintf("%.2f", r.SnrDb),
		fmt.Sprintf("%.3f", r.Coherence),
		optFloat(r.LockQuality),
		optFloat(r.PhaseScore),
		optFloat(r.FreqScore),
		optFloat(r.PhaseErrorVariance),
	}
	if err := f.w.Write(row); err != nil {
		return err
	}
	f.w.Flush()
	return f.w.Error()
}

func (f *CsvFormatter) Close() error {
	f.w.Flush()
	return f.w.Error()
}

func optFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.3f", *v)
}

// Package hwio drives optional hardware indicator lines from DSP state:
// a GPIO output asserted while the DPLL reports lock, for a front-panel
// LED or downstream equipment.
package hwio

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/warthog618/go-gpiocdev"
)

// LockIndicator drives a single GPIO output line high while the DPLL's
// lock quality is above Threshold, and low otherwise (`--lock-gpio`).
type LockIndicator struct {
	line      *gpiocdev.Line
	Threshold float64

	state bool
}

// ParseChipLine splits a "<chip>:<line>" spec like "gpiochip0:17" into
// its chip name and line offset.
func ParseChipLine(spec string) (chip string, offset int, err error) {
	parts := strings.SplitN(spec, ":", 2)
	if len(parts) != 2 {
		return "", 0, fmt.Errorf("lock-gpio: expected '<chip>:<line>', got %q", spec)
	}
	offset, err = strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, fmt.Errorf("lock-gpio: invalid line number in %q: %w", spec, err)
	}
	return parts[0], offset, nil
}

// NewLockIndicator requests chip/offset as an output line, initially low.
func NewLockIndicator(chip string, offset int, threshold float64) (*LockIndicator, error) {
	line, err := gpiocdev.RequestLine(chip, offset, gpiocdev.AsOutput(0))
	if err != nil {
		return nil, fmt.Errorf("lock-gpio: request %s:%d: %w", chip, offset, err)
	}
	return &LockIndicator{line: line, Threshold: threshold}, nil
}

// Update sets the line according to whether lockQuality crosses
// Threshold, only issuing a GPIO write when the logical state changes.
func (l *LockIndicator) Update(lockQuality float64) error {
	want := lockQuality >= l.Threshold
	if want == l.state {
		return nil
	}
	l.state = want
	v := 0
	if want {
		v = 1
	}
	return l.line.SetValue(v)
}

// Close releases the GPIO line, driving it low first.
func (l *LockIndicator) Close() error {
	_ = l.line.SetValue(0)
	return l.line.Close()
}

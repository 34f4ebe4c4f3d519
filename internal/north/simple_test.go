package north

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimpleTrackerSmoothsPeriod(t *testing.T) {
	s := NewSimpleTracker()

	s.OnTick(Tick{SampleIndex: 0})
	s.OnTick(Tick{SampleIndex: 30})
	assert.InDelta(t, 30, s.PeriodSamples(), 1e-9)

	s.OnTick(Tick{SampleIndex: 60}) // another 30-sample gap, no change expected
	assert.InDelta(t, 30, s.PeriodSamples(), 1e-9)

	s.OnTick(Tick{SampleIndex: 90 + 10}) // a 40-sample gap pulls the average up
	assert.Greater(t, s.PeriodSamples(), 30.0)
	assert.Less(t, s.PeriodSamples(), 40.0)
}

func TestSimpleTrackerLastTick(t *testing.T) {
	s := NewSimpleTracker()
	_, ok := s.LastTick()
	assert.False(t, ok)

	s.OnTick(Tick{SampleIndex: 42})
	tick, ok := s.LastTick()
	assert.True(t, ok)
	assert.Equal(t, int64(42), tick.SampleIndex)
}

package bearing

import (
	"math"
	"testing"

	"github.com/k0rdf/pdoppler/internal/north"
	"github.com/k0rdf/pdoppler/internal/phase"
	"github.com/stretchr/testify/assert"
)

func TestCalculateMapsPhaseToDegrees(t *testing.T) {
	in := Input{
		Timestamp: 100,
		Phase: phase.Result{
			Phase:          math.Pi, // 180 degrees
			SnrDb:          30,
			Coherence:      1,
			SignalStrength: 1,
			Valid:          true,
		},
	}
	s := Calculate(in, 0)
	assert.InDelta(t, 180.0, s.RawDeg, 1e-6)
	assert.InDelta(t, 1.0, s.Confidence, 1e-6)
}

func TestCalculateAppliesNorthOffset(t *testing.T) {
	in := Input{
		Phase: phase.Result{
			Phase:          0,
			SnrDb:          30,
			Coherence:      1,
			SignalStrength: 1,
			Valid:          true,
		},
		NorthOffset: 45,
	}
	s := Calculate(in, 0)
	assert.InDelta(t, 45.0, s.RawDeg, 1e-6)
}

func TestCalculateWrapsNearFullCircle(t *testing.T) {
	in := Input{
		Phase: phase.Result{
			Phase: 0, SnrDb: 30, Coherence: 1, SignalStrength: 1, Valid: true,
		},
		NorthOffset: -5,
	}
	s := Calculate(in, 0)
	assert.True(t, s.RawDeg >= 0 && s.RawDeg < 360)
	assert.InDelta(t, 355.0, s.RawDeg, 1e-6)
}

func TestCalculateInvalidPhaseCarriesForward(t *testing.T) {
	in := Input{Phase: phase.Result{Valid: false}}
	s := Calculate(in, 123.0)
	assert.Equal(t, 0.0, s.Confidence)
	assert.InDelta(t, 123.0, s.RawDeg, 1e-9)
}

func TestCalculateUnlockedDpllForcesZeroConfidence(t *testing.T) {
	lock := &north.LockQuality{Locked: false, PhaseScore: 0.9, FreqScore: 0.9}
	in := Input{
		Phase: phase.Result{Phase: 0, SnrDb: 30, Coherence: 1, SignalStrength: 1, Valid: true},
		Lock:  lock,
	}
	s := Calculate(in, 0)
	assert.Equal(t, 0.0, s.Confidence)
	assert.True(t, s.HasLockQuality)
}

func TestCalculateNeverEmitsNonFinite(t *testing.T) {
	in := Input{
		Phase: phase.Result{
			Phase: math.NaN(), SnrDb: math.Inf(1), Coherence: 1, SignalStrength: 1, Valid: true,
		},
	}
	s := Calculate(in, 10)
	assert.Equal(t, 0.0, s.Confidence)
	assert.InDelta(t, 10.0, s.RawDeg, 1e-9)
}

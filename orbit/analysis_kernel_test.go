package orbit

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// countsPerUnit is the scale factor between the integer ADC counts stored
// in a Window and the floating-point m/s^2 amplitudes test scenarios are
// expressed in; large enough that quantizing a small-amplitude sine wave
// to int32 counts doesn't swamp it with rounding error.
const countsPerUnit = 1000.0

func identityProfile() Profile {
	// A profile whose Convert divides raw counts by countsPerUnit, so test
	// signals can be expressed directly in m/s^2 and quantized to int32
	// counts without losing resolution.
	return newProfile("identity", countsPerUnit, 1, 0, 1, 1)
}

func orbitSnapshot(f, amplitude float64, dtMS uint32, windowMS uint32, anticlockwise bool) *Window {
	n := int(windowMS / dtMS)
	w := &Window{}
	for i := 0; i < n; i++ {
		tSec := float64(i) * float64(dtMS) / 1000.0
		east := amplitude * math.Sin(2*math.Pi*f*tSec)
		var up float64
		if anticlockwise {
			up = -amplitude * math.Cos(2*math.Pi*f*tSec)
		} else {
			up = amplitude * math.Cos(2*math.Pi*f*tSec)
		}
		w.Append(RawSample{
			TimeMS: uint32(i) * dtMS,
			X:      int32(east * countsPerUnit),
			Y:      0,
			Z:      int32(up * countsPerUnit),
		})
	}
	return w
}

func orbitConfig() KernelConfig {
	return KernelConfig{
		TimeDeltaMS: 40,
		Orientation: Orientation{
			East:  AxisSpec{'+', AxisX},
			North: AxisSpec{'+', AxisY},
			Up:    AxisSpec{'+', AxisZ},
		},
		Profile: identityProfile(),
	}
}

// TestAnalyseWindowPureClockwiseOrbit exercises a pure clockwise orbit.
func TestAnalyseWindowPureClockwiseOrbit(t *testing.T) {
	snap := orbitSnapshot(0.5, 3.0, 40, 4000, false)
	result := AnalyseWindow(snap, 1, orbitConfig())

	assert.InDelta(t, 0.5, result.RPS, 0.05)
	assert.Equal(t, int8(1), result.Direction)
}

// TestAnalyseWindowPureAnticlockwiseOrbit exercises a pure anticlockwise orbit.
func TestAnalyseWindowPureAnticlockwiseOrbit(t *testing.T) {
	snap := orbitSnapshot(0.5, 3.0, 40, 4000, true)
	result := AnalyseWindow(snap, 1, orbitConfig())

	assert.InDelta(t, 0.5, result.RPS, 0.05)
	assert.Equal(t, int8(-1), result.Direction)
}

// TestAnalyseWindowSignFlipAxisOverride exercises a signed axis override.
func TestAnalyseWindowSignFlipAxisOverride(t *testing.T) {
	snap := orbitSnapshot(0.5, 3.0, 40, 4000, false)
	cfg := orbitConfig()
	cfg.Orientation.East = AxisSpec{'-', AxisX}

	result := AnalyseWindow(snap, 1, cfg)

	assert.InDelta(t, 0.5, result.RPS, 0.05)
	assert.Equal(t, int8(-1), result.Direction)
}

// TestAnalyseWindowStaticDevice exercises a motionless device.
func TestAnalyseWindowStaticDevice(t *testing.T) {
	w := &Window{}
	for i := uint32(0); i < 100; i++ {
		w.Append(RawSample{TimeMS: i * 40, X: 511, Y: 511, Z: 511})
	}
	result := AnalyseWindow(w, 1, orbitConfig())
	assert.Equal(t, int8(0), result.Direction)
}

// TestAnalyseWindowShortWindowSentinel exercises the "shorter than 4
// samples" boundary behaviour.
func TestAnalyseWindowShortWindowSentinel(t *testing.T) {
	w := &Window{}
	for i := uint32(0); i < 3; i++ {
		w.Append(RawSample{TimeMS: i * 40, X: 1, Y: 1, Z: 1})
	}
	result := AnalyseWindow(w, 7, orbitConfig())
	assert.Equal(t, 0.0, result.RPS)
	assert.Equal(t, int8(0), result.Direction)
	assert.Equal(t, uint64(7), result.TraceID)
}

func TestNormalizeInvariants(t *testing.T) {
	snap := orbitSnapshot(0.5, 3.0, 40, 4000, false)
	norm := normalize(snap, 40, orbitConfig().Orientation, identityProfile())

	require.Equal(t, len(norm.Time), len(norm.East))
	require.Equal(t, len(norm.Time), len(norm.Up))
	require.Equal(t, snap.Len(), len(norm.Time))

	var sumEast, sumUp float64
	for i := range norm.East {
		sumEast += norm.East[i]
		sumUp += norm.Up[i]
	}
	assert.InDelta(t, 0, sumEast/float64(len(norm.East)), 1e-9)
	assert.InDelta(t, 0, sumUp/float64(len(norm.Up)), 1e-9)

	dt := 0.04
	for i := 1; i < len(norm.Time); i++ {
		assert.InDelta(t, dt, norm.Time[i]-norm.Time[i-1], 1e-9)
	}
}

// TestNormalizeInvariantsProperty is a property test over the general invariant over
// arbitrary windows: every normalized channel has mean ~0 and the three
// slices share a length.
func TestNormalizeInvariantsProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(2, 64).Draw(rt, "n")
		dtMS := rapid.Uint32Range(5, 200).Draw(rt, "dtMS")

		w := &Window{}
		ts := uint32(0)
		for i := 0; i < n; i++ {
			ts += rapid.Uint32Range(1, 50).Draw(rt, "step")
			w.Append(RawSample{
				TimeMS: ts,
				X:      int32(rapid.IntRange(-1000, 1000).Draw(rt, "x")),
				Y:      0,
				Z:      int32(rapid.IntRange(-1000, 1000).Draw(rt, "z")),
			})
		}

		norm := normalize(w, dtMS, orbitConfig().Orientation, identityProfile())
		require.Equal(rt, len(norm.Time), len(norm.East))
		require.Equal(rt, len(norm.Time), len(norm.Up))
		require.Equal(rt, n, len(norm.Time))

		var sumEast, sumUp float64
		for i := range norm.East {
			sumEast += norm.East[i]
			sumUp += norm.Up[i]
		}
		require.InDelta(rt, 0, sumEast/float64(n), 1e-6)
		require.InDelta(rt, 0, sumUp/float64(n), 1e-6)
	})
}

// TestAxisSignInversionLaw checks an algebraic law: flipping
// east.sign negates the east channel and flips the reported direction.
func TestAxisSignInversionLaw(t *testing.T) {
	snap := orbitSnapshot(0.5, 3.0, 40, 4000, false)

	cfgPlus := orbitConfig()
	cfgMinus := orbitConfig()
	cfgMinus.Orientation.East = AxisSpec{'-', AxisX}

	normPlus := normalize(snap, 40, cfgPlus.Orientation, cfgPlus.Profile)
	normMinus := normalize(snap, 40, cfgMinus.Orientation, cfgMinus.Profile)

	for i := range normPlus.East {
		assert.InDelta(t, -normPlus.East[i], normMinus.East[i], 1e-9)
	}

	resultPlus := AnalyseWindow(snap, 1, cfgPlus)
	resultMinus := AnalyseWindow(snap, 2, cfgMinus)
	assert.Equal(t, -resultPlus.Direction, resultMinus.Direction)
}

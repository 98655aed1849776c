package orbit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestAccumulatorBootstrapDoesNotEmitUntilFilled(t *testing.T) {
	var snapshots []*Window
	a := NewAccumulator(1000, 100, func(snap *Window, traceID uint64) {
		snapshots = append(snapshots, snap)
	})

	for t0 := uint32(0); t0 < 500; t0 += 50 {
		a.Add(RawSample{TimeMS: t0, X: 1, Y: 1, Z: 1})
	}

	assert.False(t, a.Filled())
	assert.Empty(t, snapshots, "no snapshot should be emitted before the window fills")
}

func TestAccumulatorFilledNeverReverts(t *testing.T) {
	a := NewAccumulator(200, 50, nil)
	becameFilled := false
	for ts := uint32(0); ts < 2000; ts += 10 {
		a.Add(RawSample{TimeMS: ts})
		if a.Filled() {
			becameFilled = true
		} else if becameFilled {
			t.Fatalf("Filled() reverted to false at t=%d", ts)
		}
	}
	assert.True(t, becameFilled)
}

func TestAccumulatorEmitsSnapshotsOnceFilled(t *testing.T) {
	var traceIDs []uint64
	a := NewAccumulator(200, 50, func(snap *Window, traceID uint64) {
		traceIDs = append(traceIDs, traceID)
	})
	for ts := uint32(0); ts < 2000; ts += 10 {
		a.Add(RawSample{TimeMS: ts})
	}
	require.NotEmpty(t, traceIDs)
	// trace ids are monotonically increasing (best-effort,
	// but the accumulator itself assigns them strictly increasing).
	for i := 1; i < len(traceIDs); i++ {
		assert.Greater(t, traceIDs[i], traceIDs[i-1])
	}
}

// TestAccumulatorInvariants is a property test over the invariants: t is
// non-decreasing and all four channels share length,
// for every snapshot emitted from an arbitrary (but timestamp-sorted)
// stream of samples.
func TestAccumulatorInvariants(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 200).Draw(rt, "n")
		timeWindowMS := rapid.Uint32Range(50, 5000).Draw(rt, "timeWindowMS")
		timeIntervalMS := rapid.Uint32Range(10, 500).Draw(rt, "timeIntervalMS")

		var snapshots []*Window
		a := NewAccumulator(timeWindowMS, timeIntervalMS, func(snap *Window, traceID uint64) {
			snapshots = append(snapshots, snap)
		})

		ts := uint32(0)
		for i := 0; i < n; i++ {
			ts += rapid.Uint32Range(0, 100).Draw(rt, "dt")
			a.Add(RawSample{TimeMS: ts, X: int32(i), Y: int32(i), Z: int32(i)})
		}

		for _, snap := range snapshots {
			require.Equal(rt, snap.Len(), len(snap.X))
			require.Equal(rt, snap.Len(), len(snap.Y))
			require.Equal(rt, snap.Len(), len(snap.Z))
			for i := 1; i < snap.Len(); i++ {
				require.LessOrEqual(rt, snap.Time[i-1], snap.Time[i])
			}
		}
	})
}

func TestWindowSnapshotIsIndependentCopy(t *testing.T) {
	w := &Window{}
	w.Append(RawSample{TimeMS: 1, X: 1, Y: 1, Z: 1})
	snap := w.Snapshot()

	w.Append(RawSample{TimeMS: 2, X: 2, Y: 2, Z: 2})

	assert.Equal(t, 1, snap.Len(), "snapshot must not observe later mutation of the live window")
	assert.Equal(t, 2, w.Len())
}

func TestWindowDropFront(t *testing.T) {
	w := &Window{}
	for i := uint32(0); i < 5; i++ {
		w.Append(RawSample{TimeMS: i, X: int32(i)})
	}
	w.DropFront(2)
	assert.Equal(t, []uint32{2, 3, 4}, w.Time)
	assert.Equal(t, []int32{2, 3, 4}, w.X)
}

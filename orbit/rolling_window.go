package orbit

/*------------------------------------------------------------------
 *
 * Purpose:	Rolling-window accumulator.
 *
 * Description:	Anchors on sample timestamps, not sample count, because the
 *		microcontroller is soft real-time and its true sample period
 *		fluctuates. Yields a bounded-time window with a variable
 *		sample count.
 *
 *		The "grow until full" boundary is `<`, not `<=`, taken as
 *		authoritative for deciding when the window has reached its
 *		configured span.
 *
 *------------------------------------------------------------------*/

// SnapshotFunc receives a deep-copied window and the trace id assigned to
// it when the worker pool should analyse it.
type SnapshotFunc func(snap *Window, traceID uint64)

// Accumulator implements the rolling-window bootstrap/grow/slide state
// machine.
type Accumulator struct {
	window   *Window
	interval *Window
	t0       uint32
	haveT0   bool
	filled   bool

	timeWindowMS   uint32
	timeIntervalMS uint32

	nextTraceID uint64

	onSnapshot SnapshotFunc
}

// NewAccumulator builds an Accumulator configured with the rolling window
// span and interval span (time_window_ms, time_interval_ms).
// onSnapshot is invoked synchronously from Add whenever a roll produces a
// snapshot; callers that want off-thread analysis should make onSnapshot
// itself non-blocking (e.g. submit to a worker pool channel).
func NewAccumulator(timeWindowMS, timeIntervalMS uint32, onSnapshot SnapshotFunc) *Accumulator {
	return &Accumulator{
		window:         &Window{},
		interval:       &Window{},
		timeWindowMS:   timeWindowMS,
		timeIntervalMS: timeIntervalMS,
		onSnapshot:     onSnapshot,
	}
}

// Filled reports whether the rolling window has reached its configured
// span at least once. It never reverts to false.
func (a *Accumulator) Filled() bool {
	return a.filled
}

// Add feeds one new sample into the accumulator, rolling the closed
// interval into the rolling window whenever the current interval closes.
func (a *Accumulator) Add(s RawSample) {
	if a.haveT0 && s.TimeMS <= a.t0+a.timeIntervalMS {
		a.interval.Append(s)
		return
	}

	a.roll(s.TimeMS)

	a.interval = &Window{}
	a.interval.Append(s)
	a.t0 = s.TimeMS
	a.haveT0 = true
}

// roll merges the closed interval into the rolling window and, if the window is filled, dispatches a snapshot.
func (a *Accumulator) roll(currentT uint32) {
	switch {
	case a.window.Len() == 0:
		// Bootstrap: the first interval becomes the window outright.
		a.window = a.interval

	case !a.filled:
		a.window.AppendWindow(a.interval)
		if a.window.Time[0]+a.timeWindowMS < currentT {
			a.filled = true
		}

	default:
		cutoff := a.window.Time[0] + a.timeIntervalMS
		k := 0
		for k < a.window.Len() && a.window.Time[k] <= cutoff {
			k++
		}
		a.window.DropFront(k)
		a.window.AppendWindow(a.interval)
	}

	if a.filled {
		a.nextTraceID++
		traceID := a.nextTraceID
		if a.onSnapshot != nil {
			a.onSnapshot(a.window.Snapshot(), traceID)
		}
	}
}

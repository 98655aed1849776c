// Package orbit implements a real-time rotation-detection server: it reads
// framed accelerometer samples from a serial-attached microcontroller,
// maintains a sliding time window, estimates rotational frequency and
// direction for the orbit in a user-chosen East/Up plane, and fans the
// latest result out to TCP clients.
package orbit

/*------------------------------------------------------------------
 *
 * Purpose:	Core value types shared by the sampling pipeline, the
 *		analysis kernel and the broadcast layer.
 *
 *------------------------------------------------------------------*/

// RawSample is one tuple read off the wire by the serial framer.
// Time is a monotonically non-decreasing millisecond timestamp assigned
// by the microcontroller; X, Y, Z are raw ADC counts.
type RawSample struct {
	TimeMS uint32
	X      int32
	Y      int32
	Z      int32
}

// Axis identifies one of the three accelerometer channels.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	default:
		return "?"
	}
}

// AxisSpec is a signed reference to a body-frame axis, e.g. "+x" or "-z".
type AxisSpec struct {
	Sign byte // '+' or '-'
	Axis Axis
}

// Apply returns v with AxisSpec's sign applied.
func (s AxisSpec) Apply(v float64) float64 {
	if s.Sign == '-' {
		return -v
	}
	return v
}

// Orientation maps the East/North/Up analysis axes onto signed body-frame
// axes. The core does not enforce that East/North/Up form a permutation of
// {x,y,z}; validating that is the CLI's job.
type Orientation struct {
	East  AxisSpec
	North AxisSpec
	Up    AxisSpec
}

// Window is a structure-of-arrays accumulator of raw samples: four parallel
// channels of equal length, with Time strictly non-decreasing. It backs
// both the short-lived interval buffer and the long-lived rolling window
// in the accumulator — they share this representation.
type Window struct {
	Time []uint32
	X    []int32
	Y    []int32
	Z    []int32
}

// Len returns the number of samples currently held.
func (w *Window) Len() int {
	return len(w.Time)
}

// Append adds one sample to the end of the window.
func (w *Window) Append(s RawSample) {
	w.Time = append(w.Time, s.TimeMS)
	w.X = append(w.X, s.X)
	w.Y = append(w.Y, s.Y)
	w.Z = append(w.Z, s.Z)
}

// AppendWindow concatenates another window's samples onto this one.
func (w *Window) AppendWindow(o *Window) {
	w.Time = append(w.Time, o.Time...)
	w.X = append(w.X, o.X...)
	w.Y = append(w.Y, o.Y...)
	w.Z = append(w.Z, o.Z...)
}

// DropFront removes the first n samples from every channel.
func (w *Window) DropFront(n int) {
	w.Time = append([]uint32(nil), w.Time[n:]...)
	w.X = append([]int32(nil), w.X[n:]...)
	w.Y = append([]int32(nil), w.Y[n:]...)
	w.Z = append([]int32(nil), w.Z[n:]...)
}

// Snapshot returns a deep copy of the window, suitable for handoff to a
// worker goroutine while the producer keeps mutating its own copy.
func (w *Window) Snapshot() *Window {
	return &Window{
		Time: append([]uint32(nil), w.Time...),
		X:    append([]int32(nil), w.X...),
		Y:    append([]int32(nil), w.Y...),
		Z:    append([]int32(nil), w.Z...),
	}
}

// NormalizedWindow is the East/Up re-sampled, mean-zeroed, regularly
// time-spaced representation produced by the analysis kernel's
// normalization step.
type NormalizedWindow struct {
	Time []float64 // seconds
	East []float64
	Up   []float64
}

// FrequencyEstimate holds the per-channel estimated rotational frequency in Hz.
type FrequencyEstimate struct {
	East float64
	Up   float64
}

// SineParams is the fitted (amplitude, phase, vertical offset) triple for
// one channel's sine regression.
type SineParams struct {
	Amplitude      float64
	Phase          float64
	VerticalOffset float64
}

// SineFit holds the fitted curve parameters for both analysis channels.
type SineFit struct {
	East SineParams
	Up   SineParams
}

// RotationResult is the final, broadcastable outcome of analysing one
// window snapshot.
type RotationResult struct {
	RPS       float64
	Direction int8 // +1 clockwise, -1 anticlockwise, 0 unclassified
	TraceID   uint64
}

// sentinelResult is returned whenever the kernel cannot produce a
// meaningful estimate.
func sentinelResult(traceID uint64) RotationResult {
	return RotationResult{RPS: 0, Direction: 0, TraceID: traceID}
}

package orbit

/*------------------------------------------------------------------
 *
 * Purpose:	Analysis kernel orchestration: unit conversion, axis
 *		selection, resampling, frequency estimation, sine-wave
 *		regression and direction classification, end to end for one
 *		window snapshot.
 *
 * Description:	Runs the seven numbered steps in order: convert units,
 *		select/zero-mean axes, resample onto a regular grid,
 *		estimate frequency, fit a sine per channel, classify
 *		direction by majority vote, assemble the result.
 *
 *------------------------------------------------------------------*/

import (
	"github.com/charmbracelet/log"
)

// minSamplesForAnalysis is the floor below which a window fails
// gracefully to the sentinel result rather than attempt interpolation or
// autocorrelation peak search.
const minSamplesForAnalysis = 4

// AnalyseWindow runs the full analysis kernel on snap and returns a
// RotationResult tagged with traceID. It never panics: any numerical
// failure degrades to the sentinel result (rps=0, direction=0).
func AnalyseWindow(snap *Window, traceID uint64, cfg KernelConfig) RotationResult {
	if snap.Len() < minSamplesForAnalysis {
		log.Debug("window too short for analysis", "component", "analysis-kernel", "trace_id", traceID, "len", snap.Len())
		return sentinelResult(traceID)
	}

	norm := normalize(snap, cfg.TimeDeltaMS, cfg.Orientation, cfg.Profile)

	samplingRate := 1000.0 / float64(cfg.TimeDeltaMS)

	freqEast, errEast := freqFromAutocorr(norm.East, samplingRate)
	freqUp, errUp := freqFromAutocorr(norm.Up, samplingRate)
	if errEast != nil || errUp != nil {
		log.Warn("autocorrelation peak search failed", "component", "analysis-kernel", "trace_id", traceID)
		return sentinelResult(traceID)
	}

	fit := SineFit{
		East: fitSine(norm.Time, norm.East, freqEast),
		Up:   fitSine(norm.Time, norm.Up, freqUp),
	}

	direction := classifyRotation(norm, freqEast, freqUp, fit)

	return RotationResult{
		RPS:       (freqEast + freqUp) / 2,
		Direction: direction,
		TraceID:   traceID,
	}
}

// normalize performs unit conversion, axis selection with mean-zeroing,
// and linear resampling onto a regular time grid. Grounded on
// window_processing.py's normalise_signals.
func normalize(snap *Window, timeDeltaMS uint32, o Orientation, profile Profile) NormalizedWindow {
	n := snap.Len()
	dtS := float64(timeDeltaMS) / 1000.0

	timeS := make([]float64, n)
	for i, t := range snap.Time {
		timeS[i] = float64(t) / 1000.0
	}

	channel := func(a AxisSpec) []float64 {
		var raw []int32
		switch a.Axis {
		case AxisX:
			raw = snap.X
		case AxisY:
			raw = snap.Y
		default:
			raw = snap.Z
		}
		converted := profile.ConvertAll(raw)
		for i, v := range converted {
			converted[i] = a.Apply(v)
		}
		return converted
	}

	east := zeroMean(channel(o.East))
	up := zeroMean(channel(o.Up))

	// Regular time grid t'[i] = t[0] + i*dt_s, half-open, exactly n samples.
	gridTime := make([]float64, n)
	for i := 0; i < n; i++ {
		gridTime[i] = timeS[0] + float64(i)*dtS
	}

	// Resampling an irregular series does not preserve its mean, so each
	// resampled channel is re-centred to keep the mean-zero invariant.
	return NormalizedWindow{
		Time: gridTime,
		East: zeroMean(linInterp(timeS, east, gridTime)),
		Up:   zeroMean(linInterp(timeS, up, gridTime)),
	}
}

func zeroMean(v []float64) []float64 {
	if len(v) == 0 {
		return v
	}
	var sum float64
	for _, x := range v {
		sum += x
	}
	mean := sum / float64(len(v))
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x - mean
	}
	return out
}

// linInterp linearly interpolates (x, y) onto newX, with linear
// extrapolation permitted past the right endpoint.
func linInterp(x, y, newX []float64) []float64 {
	n := len(x)
	out := make([]float64, len(newX))
	if n == 0 {
		return out
	}
	if n == 1 {
		for i := range out {
			out[i] = y[0]
		}
		return out
	}

	j := 0
	for i, xv := range newX {
		for j < n-2 && x[j+1] < xv {
			j++
		}
		x0, x1 := x[j], x[j+1]
		y0, y1 := y[j], y[j+1]
		slope := (y1 - y0) / (x1 - x0)
		out[i] = y0 + slope*(xv-x0)
	}
	return out
}

// classifyRotation builds the fitted East/Up orbit, takes sign-mapped
// deltas and positions through the direction tables, and takes the mode
// of the per-step classification with "smaller value wins" tie-breaking.
func classifyRotation(norm NormalizedWindow, freqEast, freqUp float64, fit SineFit) int8 {
	n := len(norm.Time)
	if n < 2 {
		return 0
	}

	east := make([]float64, n)
	up := make([]float64, n)
	for i, t := range norm.Time {
		east[i] = sineValue(freqEast, t, fit.East.Amplitude, fit.East.Phase, fit.East.VerticalOffset)
		up[i] = sineValue(freqUp, t, fit.Up.Amplitude, fit.Up.Phase, fit.Up.VerticalOffset)
	}

	votes := map[int8]int{}
	for i := 0; i < n-1; i++ {
		v := classifyStep(east[i+1]-east[i], up[i+1]-up[i], east[i], up[i])
		votes[v]++
	}

	return modeSmallestTieBreak(votes)
}

// modeSmallestTieBreak returns the key with the highest vote count,
// breaking ties by picking the smaller key — this is explicit and
// tested, not left to a language/library default. With no votes at all
// it returns 0 (unclassified).
func modeSmallestTieBreak(votes map[int8]int) int8 {
	best := int8(0)
	bestCount := 0
	for _, k := range []int8{-1, 0, 1} {
		count := votes[k]
		if count > bestCount {
			bestCount = count
			best = k
		}
	}
	return best
}

package orbit

/*------------------------------------------------------------------
 *
 * Purpose:	Live-plotting sink boundary.
 *
 * Description:	Live plotting is an external collaborator with exactly one
 *		contract: `display(window, freqs, fit, dt)`.
 *		This repo defines that contract as an interface so the
 *		analysis kernel's caller can wire in a real plotter (not
 *		part of this module) without the kernel itself depending on
 *		a graphics library. Called only when `--graph` is set.
 *
 *------------------------------------------------------------------*/

import "github.com/charmbracelet/log"

// Display is the pure-sink contract a live plotter implements. It must
// never block the analysis pipeline for long; a slow or misbehaving
// implementation only delays the worker that called it, not the
// producer or broadcaster.
type Display interface {
	Display(norm NormalizedWindow, freq FrequencyEstimate, fit SineFit, dtMS uint32)
}

// NullDisplay discards every call; it is the default when --graph is not
// set, so AnalyseWindow's caller never needs a nil check.
type NullDisplay struct{}

// Display implements Display by doing nothing.
func (NullDisplay) Display(NormalizedWindow, FrequencyEstimate, SineFit, uint32) {}

// LoggingDisplay is the --graph implementation this repo ships: it
// satisfies the Display contract by logging the fitted curve's
// parameters at debug level instead of rendering them, through the same
// charmbracelet/log wiring as every other component.
type LoggingDisplay struct {
	logger interface {
		Debug(msg interface{}, keyvals ...interface{})
	}
}

// NewLoggingDisplay returns a LoggingDisplay tagged like any other
// component logger.
func NewLoggingDisplay() LoggingDisplay {
	return LoggingDisplay{logger: NewComponentLogger("display")}
}

// Display logs the normalized window's length, the per-channel frequency
// estimate and the fitted sine parameters.
func (d LoggingDisplay) Display(norm NormalizedWindow, freq FrequencyEstimate, fit SineFit, dtMS uint32) {
	if d.logger == nil {
		return
	}
	d.logger.Debug("window analysed",
		"samples", len(norm.Time), "dt_ms", dtMS,
		"freq_east", freq.East, "freq_up", freq.Up,
		"fit_east", fit.East, "fit_up", fit.Up)
}

// AnalyseWindowDisplayed is AnalyseWindow plus an optional Display sink,
// invoked with the normalized window, the per-channel frequency estimate,
// the sine fit, and the resample interval.
func AnalyseWindowDisplayed(snap *Window, traceID uint64, cfg KernelConfig, sink Display) RotationResult {
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

	freq := FrequencyEstimate{East: freqEast, Up: freqUp}
	fit := SineFit{
		East: fitSine(norm.Time, norm.East, freqEast),
		Up:   fitSine(norm.Time, norm.Up, freqUp),
	}

	if sink != nil {
		sink.Display(norm, freq, fit, cfg.TimeDeltaMS)
	}

	direction := classifyRotation(norm, freqEast, freqUp, fit)
	return RotationResult{
		RPS:       (freqEast + freqUp) / 2,
		Direction: direction,
		TraceID:   traceID,
	}
}

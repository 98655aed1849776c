package orbit

/*------------------------------------------------------------------
 *
 * Purpose:	Ambient logging setup.
 *
 * Description:	charmbracelet/log is wired throughout this package: one
 *		*log.Logger per component, tagged via .With("component", ...),
 *		with levels chosen by error severity.
 *
 *		--log-timestamp-format lets an operator request a
 *		strftime-style prefix on connection lifecycle log lines,
 *		via github.com/lestrrat-go/strftime.
 *
 *------------------------------------------------------------------*/

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/lestrrat-go/strftime"
)

var connectionTimestampPattern *strftime.Strftime

// ConfigureLogging sets the package-wide default logger's level and,
// optionally, compiles a strftime pattern used to prefix connection
// lifecycle log lines (ConnectionHandler's established/closed messages)
// with an operator-chosen timestamp format.
func ConfigureLogging(verbosity int, timestampFormat string) error {
	level := log.InfoLevel
	switch {
	case verbosity <= -1:
		level = log.WarnLevel
	case verbosity == 0:
		level = log.InfoLevel
	case verbosity >= 1:
		level = log.DebugLevel
	}
	log.SetLevel(level)
	log.SetReportTimestamp(true)

	if timestampFormat == "" {
		connectionTimestampPattern = nil
		return nil
	}

	pattern, err := strftime.New(timestampFormat)
	if err != nil {
		return err
	}
	connectionTimestampPattern = pattern
	return nil
}

// connectionTimestampPrefix renders now through the configured strftime
// pattern, or returns "" if none was configured, so callers can omit the
// field entirely rather than log a blank string.
func connectionTimestampPrefix(now time.Time) string {
	if connectionTimestampPattern == nil {
		return ""
	}
	return connectionTimestampPattern.FormatString(now)
}

// NewComponentLogger returns a logger tagged with "component" for one
// subsystem (framer, accumulator, worker-pool, analysis-kernel,
// broadcaster, tcp-server, connection-handler, orchestrator).
func NewComponentLogger(component string) *log.Logger {
	return log.With("component", component)
}

package orbit

/*------------------------------------------------------------------
 *
 * Purpose:	Optional hardware reset pulse for the microcontroller before
 *		the orchestrator opens its serial port.
 *
 * Description:	Pulses a GPIO line low then high (a reset line wired to the
 *		microcontroller's reset pin is a common setup for boards
 *		that otherwise need a manual power cycle to resync after a
 *		crashed session). Best-effort: failure to request the line
 *		is logged at warn and does not prevent startup, since no
 *		critical-path operation depends on it.
 *
 *		Uses github.com/warthog618/go-gpiocdev's character-device
 *		API rather than the deprecated /sys/class/gpio sysfs
 *		interface.
 *
 *------------------------------------------------------------------*/

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	gpiocdev "github.com/warthog618/go-gpiocdev"
)

// PulseResetLine drives chip/line low for holdFor, then releases it back
// high, to reset a microcontroller wired with an active-low reset pin.
// Returns an error naming the step that failed (request, drive low,
// release); the orchestrator treats any error as non-fatal.
func PulseResetLine(chip string, line int, holdFor time.Duration) error {
	logger := log.With("component", "gpio-reset")

	l, err := gpiocdev.RequestLine(chip, line, gpiocdev.AsOutput(1))
	if err != nil {
		return fmt.Errorf("orbit: requesting gpio line %s:%d: %w", chip, line, err)
	}
	defer l.Close()

	if err := l.SetValue(0); err != nil {
		return fmt.Errorf("orbit: driving gpio line %s:%d low: %w", chip, line, err)
	}
	logger.Debug("reset line asserted", "chip", chip, "line", line)
	time.Sleep(holdFor)

	if err := l.SetValue(1); err != nil {
		return fmt.Errorf("orbit: releasing gpio line %s:%d: %w", chip, line, err)
	}
	logger.Debug("reset line released", "chip", chip, "line", line)
	return nil
}

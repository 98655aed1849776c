package orbit

/*------------------------------------------------------------------
 *
 * Purpose:	Serial device handling and byte-framed decoding.
 *
 * Description:	Frame: S<ASCII body>E. Body matches, case-insensitively,
 *		`Time (\d+) X (\d+) Y (\d+) Z (\d+)` with any single
 *		non-newline separator between fields. A non-match silently
 *		resynchronizes: the frame is discarded and decoding
 *		continues from the next 'S'. No partial-frame state survives
 *		a frame boundary.
 *
 *		github.com/pkg/term opens/reads/writes the tty. The
 *		readiness handshake is an exact-line match against "Ready!",
 *		followed by a single byte to request streaming ('1') and,
 *		on shutdown, a single byte to stop it ('0').
 *
 *------------------------------------------------------------------*/

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/pkg/term"
)

// ErrDeviceNotReady is returned by Connect when the microcontroller does
// not send the expected readiness line.
var ErrDeviceNotReady = errors.New("orbit: device did not signal readiness")

const readyLine = "Ready!"

// frameRegexp matches the body of an `S...E` frame. Case-insensitive;
// any single non-newline byte may separate fields:
// `^Time.(\d+).X.(\d+).Y.(\d+).Z.(\d+)`.
var frameRegexp = regexp.MustCompile(`(?i)^Time.(\d+).X.(\d+).Y.(\d+).Z.(\d+)`)

// Device is the microcontroller's serial port, reduced to exactly the
// operations the framer and orchestrator need.
type Device interface {
	io.ReadWriteCloser
}

// Connect opens the serial port at devicename/baud and blocks for the
// microcontroller's one-line readiness handshake. It returns a Framer
// already positioned to decode sample frames (no buffered bytes are
// dropped between the readiness check and the first sample), or
// ErrDeviceNotReady if the line read does not exactly equal "Ready!".
func Connect(devicename string, baud int) (*term.Term, *Framer, error) {
	t, err := term.Open(devicename, term.RawMode)
	if err != nil {
		return nil, nil, fmt.Errorf("orbit: opening serial port %s: %w", devicename, err)
	}

	switch baud {
	case 0:
		// leave alone
	case 1200, 2400, 4800, 9600, 19200, 38400, 57600, 115200:
		if err := t.SetSpeed(baud); err != nil {
			_ = t.Close()
			return nil, nil, fmt.Errorf("orbit: setting baud %d on %s: %w", baud, devicename, err)
		}
	default:
		log.Warn("unsupported baud rate, using 4800", "component", "serial", "requested", baud)
		if err := t.SetSpeed(4800); err != nil {
			_ = t.Close()
			return nil, nil, err
		}
	}

	framer := NewFramer(t)

	line, err := framer.r.ReadString('\n')
	if err != nil {
		_ = t.Close()
		return nil, nil, fmt.Errorf("orbit: reading readiness line: %w", err)
	}
	line = trimEOL(line)
	if line != readyLine {
		_ = t.Close()
		return nil, nil, fmt.Errorf("%w: got %q", ErrDeviceNotReady, line)
	}

	return t, framer, nil
}

func trimEOL(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

// StartStreaming writes the single-byte start command.
func StartStreaming(d io.Writer) error {
	_, err := d.Write([]byte{'1'})
	return err
}

// StopStreaming writes the single-byte stop command:
// sent before the orchestrator closes the device on shutdown.
func StopStreaming(d io.Writer) error {
	_, err := d.Write([]byte{'0'})
	return err
}

const startOfFrame = 'S'
const endOfFrame = 'E'

// Framer decodes a blocking byte stream into a lazy sequence of RawSample
// values. Garbage before the first 'S' is consumed and ignored; a
// non-matching frame body silently resynchronizes.
type Framer struct {
	r *bufio.Reader
}

// NewFramer wraps r for framed decoding.
func NewFramer(r io.Reader) *Framer {
	return &Framer{r: bufio.NewReader(r)}
}

// Next blocks until it can return the next valid RawSample, or returns an
// error if the underlying stream fails.
func (f *Framer) Next() (RawSample, error) {
	for {
		if err := f.skipToStart(); err != nil {
			return RawSample{}, err
		}

		body, err := f.readUntilEnd()
		if err != nil {
			return RawSample{}, err
		}

		m := frameRegexp.FindStringSubmatch(body)
		if m == nil {
			// Transient frame error: discard and resynchronize.
			continue
		}

		sample, err := parseSample(m)
		if err != nil {
			// Malformed numerics inside an otherwise-matching frame:
			// treat the same as a non-match and resynchronize.
			continue
		}

		return sample, nil
	}
}

func (f *Framer) skipToStart() error {
	for {
		b, err := f.r.ReadByte()
		if err != nil {
			return fmt.Errorf("orbit: serial read failed while seeking frame start: %w", err)
		}
		if b == startOfFrame {
			return nil
		}
	}
}

func (f *Framer) readUntilEnd() (string, error) {
	buf := make([]byte, 0, 64)
	for {
		b, err := f.r.ReadByte()
		if err != nil {
			return "", fmt.Errorf("orbit: serial read failed mid-frame: %w", err)
		}
		if b == endOfFrame {
			return string(buf), nil
		}
		buf = append(buf, b)
	}
}

func parseSample(m []string) (RawSample, error) {
	t, err := strconv.ParseUint(m[1], 10, 32)
	if err != nil {
		return RawSample{}, err
	}
	x, err := strconv.ParseInt(m[2], 10, 32)
	if err != nil {
		return RawSample{}, err
	}
	y, err := strconv.ParseInt(m[3], 10, 32)
	if err != nil {
		return RawSample{}, err
	}
	z, err := strconv.ParseInt(m[4], 10, 32)
	if err != nil {
		return RawSample{}, err
	}
	return RawSample{TimeMS: uint32(t), X: int32(x), Y: int32(y), Z: int32(z)}, nil
}

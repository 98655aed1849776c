package orbit

/*------------------------------------------------------------------
 *
 * Purpose:	Optional audible-feedback sink: a sine tone whose pitch
 *		tracks rps and whose stereo balance tracks direction.
 *
 * Description:	An alternative to (or companion of) the --graph plotter:
 *		rather than watching a curve, an operator can listen to the
 *		rotation. It subscribes to the broadcaster exactly like a
 *		TCP connection handler does, except it drives a
 *		PortAudio output stream instead of a socket, and it never
 *		blocks the broadcaster: a stalled audio callback only
 *		starves itself of fresh data.
 *
 *		Direct digital synthesis: a phase accumulator stepped by a
 *		frequency-to-phase-increment mapping, output through
 *		github.com/gordonklaus/portaudio.
 *
 *------------------------------------------------------------------*/

import (
	"math"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gordonklaus/portaudio"
)

const (
	sonifySampleRate   = 44100.0
	sonifyBaseHz       = 220.0  // pitch floor at rps == 0
	sonifyHzPerRPS     = 120.0  // pitch increase per rotation/second
	sonifyPollInterval = 50 * time.Millisecond
)

// Sonifier plays a continuous tone representing the latest RotationResult:
// pitch rises with rps, and the tone pans fully left for anticlockwise,
// fully right for clockwise, and centre when unclassified.
type Sonifier struct {
	mailbox *Mailbox

	mu        sync.Mutex
	freqHz    float64
	pan       float64 // -1 (left) .. +1 (right)
	phase     float64

	stream *portaudio.Stream
	logger *log.Logger
	stop   chan struct{}
}

// NewSonifier subscribes to broadcaster and opens a PortAudio output
// stream. Call Close to unsubscribe and release audio resources.
func NewSonifier(broadcaster *Broadcaster) (*Sonifier, error) {
	logger := log.With("component", "sonifier")

	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}

	s := &Sonifier{
		mailbox: broadcaster.Subscribe(),
		logger:  logger,
		stop:    make(chan struct{}),
	}

	stream, err := portaudio.OpenDefaultStream(0, 2, sonifySampleRate, 0, s.fill)
	if err != nil {
		broadcaster.Unsubscribe(s.mailbox)
		_ = portaudio.Terminate()
		return nil, err
	}
	s.stream = stream

	if err := stream.Start(); err != nil {
		broadcaster.Unsubscribe(s.mailbox)
		_ = stream.Close()
		_ = portaudio.Terminate()
		return nil, err
	}

	go s.pollBroadcast(broadcaster)
	return s, nil
}

// pollBroadcast drains the mailbox on a timer and updates the tone's
// target frequency/pan, the same non-blocking single-pop pattern the
// connection handler uses against its own mailbox.
func (s *Sonifier) pollBroadcast(broadcaster *Broadcaster) {
	ticker := time.NewTicker(sonifyPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			result, ok := s.mailbox.Pop()
			if !ok {
				continue
			}
			s.mu.Lock()
			s.freqHz = sonifyBaseHz + result.RPS*sonifyHzPerRPS
			s.pan = float64(result.Direction)
			s.mu.Unlock()
		}
	}
}

// fill is the PortAudio callback: a direct-digital-synthesis sine,
// written stereo with the configured pan applied as a simple linear
// gain split (not constant-power; fidelity is not the point here).
func (s *Sonifier) fill(out [][]float32) {
	s.mu.Lock()
	freq, pan := s.freqHz, s.pan
	s.mu.Unlock()

	left, right := out[0], out[1]
	gainL := 0.5 * (1 - pan)
	gainR := 0.5 * (1 + pan)
	step := 2 * math.Pi * freq / sonifySampleRate

	for i := range left {
		v := float32(math.Sin(s.phase))
		left[i] = v * float32(gainL)
		right[i] = v * float32(gainR)
		s.phase += step
		if s.phase > 2*math.Pi {
			s.phase -= 2 * math.Pi
		}
	}
}

// Close stops the audio stream, unsubscribes, and releases PortAudio.
func (s *Sonifier) Close(broadcaster *Broadcaster) error {
	close(s.stop)
	broadcaster.Unsubscribe(s.mailbox)
	err := s.stream.Stop()
	if cerr := s.stream.Close(); err == nil {
		err = cerr
	}
	if terr := portaudio.Terminate(); err == nil {
		err = terr
	}
	return err
}

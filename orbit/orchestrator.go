package orbit

/*------------------------------------------------------------------
 *
 * Purpose:	Wiring and shutdown.
 *
 * Description:	Startup order: construct the broadcaster, start the TCP
 *		server (bind + begin accepting), open the serial device and
 *		wait for its readiness handshake, then begin the sampling
 *		loop. Shutdown, triggered by any of {interrupt, terminate,
 *		quit, hangup}: write the stop byte to the serial device,
 *		close it, shut down the TCP server, close the worker pool —
 *		each step checks its own liveness first so the whole path is
 *		idempotent.
 *
 *------------------------------------------------------------------*/

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// Orchestrator owns every long-lived resource C10 is responsible for
// wiring and tearing down.
type Orchestrator struct {
	cfg     Config
	profile Profile
	logger  *log.Logger

	broadcaster *Broadcaster
	server      *Server
	pool        *WorkerPool

	mdnsCancel context.CancelFunc
	sonifier   *Sonifier

	device io.ReadWriteCloser
	framer *Framer
}

// NewOrchestrator validates cfg against the registry and returns an
// Orchestrator ready for Run. It performs no I/O.
func NewOrchestrator(cfg Config, registry *Registry) (*Orchestrator, error) {
	profile, ok := registry.Lookup(cfg.SensorType)
	if !ok {
		return nil, fmt.Errorf("orbit: unknown sensor type %q", cfg.SensorType)
	}
	if err := ValidateOrientation(cfg.Orientation); err != nil {
		return nil, err
	}
	return &Orchestrator{
		cfg:     cfg,
		profile: profile,
		logger:  log.With("component", "orchestrator"),
	}, nil
}

// Run executes startup order and blocks until ctx is
// cancelled (e.g. by a signal handler the caller installed) or a fatal
// serial error occurs. Once the TCP server is listening, it always runs
// shutdown before returning.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.broadcaster = NewBroadcaster()

	server, err := NewServer(o.cfg.Host, o.cfg.Port, o.broadcaster, DefaultKeepaliveConfig())
	if err != nil {
		return fmt.Errorf("orbit: starting tcp server: %w", err)
	}
	o.server = server
	go func() {
		if err := server.Serve(); err != nil {
			o.logger.Error("tcp server stopped", "err", err)
		}
	}()

	if o.cfg.MDNSAdvertise {
		mdnsCtx, cancel := context.WithCancel(ctx)
		o.mdnsCancel = cancel
		AdvertiseMDNS(mdnsCtx, o.cfg.Port, "")
	}

	if o.cfg.ResetGPIOChip != "" {
		if err := PulseResetLine(o.cfg.ResetGPIOChip, o.cfg.ResetGPIOLine, 100*time.Millisecond); err != nil {
			o.logger.Warn("gpio reset pulse failed, continuing without it", "err", err)
		}
	}

	device, framer, err := Connect(o.cfg.Device, o.cfg.Baud)
	if err != nil {
		o.shutdown()
		if errors.Is(err, ErrDeviceNotReady) {
			return err
		}
		return fmt.Errorf("orbit: connecting to device: %w", err)
	}
	o.device = device
	o.framer = framer

	if err := StartStreaming(device); err != nil {
		o.shutdown()
		return fmt.Errorf("orbit: requesting sample stream: %w", err)
	}

	o.pool = NewWorkerPool(o.cfg.AnalysisWorkers, KernelConfig{
		TimeDeltaMS: o.cfg.TimeDeltaMS,
		Orientation: o.cfg.Orientation,
		Profile:     o.profile,
	}, o.broadcaster.Broadcast)

	if o.cfg.Graph {
		o.pool.SetDisplay(NewLoggingDisplay())
	}

	if o.cfg.SonifyAudio {
		sonifier, err := NewSonifier(o.broadcaster)
		if err != nil {
			o.logger.Warn("audible feedback unavailable, continuing without it", "err", err)
		} else {
			o.sonifier = sonifier
		}
	}

	accumulator := NewAccumulator(o.cfg.TimeWindowMS, o.cfg.TimeIntervalMS, o.pool.Submit)

	sampleErrCh := make(chan error, 1)
	go func() {
		sampleErrCh <- o.sampleLoop(ctx, accumulator)
	}()

	var sampleErr error
	select {
	case <-ctx.Done():
	case sampleErr = <-sampleErrCh:
	}

	o.shutdown()
	return sampleErr
}

// sampleLoop is the producer task: it blocks on serial reads
// and feeds every decoded sample into the accumulator, until ctx is
// cancelled or the framer returns a fatal error.
func (o *Orchestrator) sampleLoop(ctx context.Context, accumulator *Accumulator) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		sample, err := o.framer.Next()
		if err != nil {
			return fmt.Errorf("orbit: %w", err)
		}
		accumulator.Add(sample)
	}
}

// shutdown runs teardown sequence. Every step checks its
// own liveness first, so calling shutdown more than once is harmless.
func (o *Orchestrator) shutdown() {
	o.logger.Info("shutting down")

	if o.device != nil {
		_ = StopStreaming(o.device)
		_ = o.device.Close()
		o.device = nil
	}
	if o.sonifier != nil {
		_ = o.sonifier.Close(o.broadcaster)
		o.sonifier = nil
	}
	if o.mdnsCancel != nil {
		o.mdnsCancel()
		o.mdnsCancel = nil
	}
	if o.server != nil {
		_ = o.server.Close()
	}
	if o.pool != nil {
		o.pool.Close()
		o.pool = nil
	}
}

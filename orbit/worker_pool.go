package orbit

/*------------------------------------------------------------------
 *
 * Purpose:	Off-thread analysis execution.
 *
 * Description:	A pool of p >= 1 goroutines (default 1) pulls
 *		(snapshot, traceID) submissions off a buffered channel
 *		(1024 slots; a submission that finds it full is handed to
 *		its own goroutine that waits to send) and
 *		runs the analysis kernel on a thread distinct from the
 *		accumulator. Overload policy: submissions always succeed —
 *		this pool queues unboundedly rather than dropping the oldest
 *		pending snapshot, which is simplest to reason about given
 *		the producer's bounded rate. Completion order
 *		is not guaranteed to match submission order.
 *
 *------------------------------------------------------------------*/

import (
	"sync"

	"github.com/charmbracelet/log"
)

// job is one pending analysis submission.
type job struct {
	snapshot *Window
	traceID  uint64
}

// WorkerPool runs the analysis kernel on a fixed number of goroutines.
type WorkerPool struct {
	jobs chan job
	wg   sync.WaitGroup

	kernelCfg KernelConfig
	onResult  func(RotationResult)
	display   Display
}

// KernelConfig bundles the fixed parameters the analysis kernel needs for
// every snapshot it analyses.
type KernelConfig struct {
	TimeDeltaMS uint32
	Orientation Orientation
	Profile     Profile
}

// NewWorkerPool starts n worker goroutines (n < 1 is treated as 1: a pool
// of exactly one worker is sufficient and is the default). onResult is
// invoked from whichever worker goroutine finishes first — callers that
// need thread safety downstream (e.g. the broadcaster) must provide it
// themselves.
func NewWorkerPool(n int, cfg KernelConfig, onResult func(RotationResult)) *WorkerPool {
	if n < 1 {
		n = 1
	}
	p := &WorkerPool{
		jobs:      make(chan job, 1024),
		kernelCfg: cfg,
		onResult:  onResult,
		display:   NullDisplay{},
	}
	p.wg.Add(n)
	for i := 0; i < n; i++ {
		go p.run()
	}
	return p
}

func (p *WorkerPool) run() {
	defer p.wg.Done()
	for j := range p.jobs {
		result := AnalyseWindowDisplayed(j.snapshot, j.traceID, p.kernelCfg, p.display)
		if p.onResult != nil {
			p.onResult(result)
		}
	}
}

// SetDisplay installs a live-plotting sink invoked once per
// analysed window, from whichever worker goroutine handles it. Replace
// before Submit is first called to avoid a data race on the field.
func (p *WorkerPool) SetDisplay(d Display) {
	if d == nil {
		d = NullDisplay{}
	}
	p.display = d
}

// Submit enqueues a snapshot for analysis. It never blocks the caller for
// long: the channel buffer is large relative to the producer's rate, and
// growing it further only costs memory, never submission failure.
func (p *WorkerPool) Submit(snapshot *Window, traceID uint64) {
	select {
	case p.jobs <- job{snapshot: snapshot, traceID: traceID}:
	default:
		// Buffer momentarily full: spill to an unbounded goroutine-local
		// send so the producer is never blocked by a slow worker.
		go func() {
			p.jobs <- job{snapshot: snapshot, traceID: traceID}
		}()
		log.Debug("worker pool buffer momentarily full, spilling submission", "component", "worker-pool", "trace_id", traceID)
	}
}

// Close stops accepting submissions and waits for in-flight jobs to
// drain, so that the shutdown path does not leave workers holding open
// file descriptors.
func (p *WorkerPool) Close() {
	close(p.jobs)
	p.wg.Wait()
}

package join

import "sync"

// dynSem is a counting semaphore whose capacity can grow and shrink while
// goroutines are waiting on it, modeled on the resizable-budget sync.Cond
// pattern used for pooled-resource waiters (grounded on the warm-VM pool's
// wait/signal discipline in the retrieval pack's nova pool implementation).
type dynSem struct {
	mu  sync.Mutex
	c   *sync.Cond
	cur int
	cap int
}

func newDynSem(capacity int) *dynSem {
	s := &dynSem{cap: capacity}
	s.c = sync.NewCond(&s.mu)
	return s
}

func (s *dynSem) acquire() {
	s.mu.Lock()
	for s.cur >= s.cap {
		s.c.Wait()
	}
	s.cur++
	s.mu.Unlock()
}

func (s *dynSem) release() {
	s.mu.Lock()
	s.cur--
	s.c.Broadcast()
	s.mu.Unlock()
}

func (s *dynSem) grow(by int) {
	s.mu.Lock()
	s.cap += by
	s.c.Broadcast()
	s.mu.Unlock()
}

func (s *dynSem) shrink(by int) {
	s.mu.Lock()
	s.cap -= by
	s.mu.Unlock()
}

// Pool owns a scheduler executor (a single-threaded queue executing
// scheduling decisions and match searches, serializing all mutation of the
// sites bound to it) and a worker executor (a bounded group of goroutines
// running reaction bodies). The two-queue split keeps match search from
// ever contending with reaction bodies for a thread, which is what makes
// the blocking-elastic flavor below a correct deadlock-avoidance policy
// rather than just a bigger thread pool.
type Pool struct {
	name string

	schedulerCh chan func()
	schedWG     sync.WaitGroup

	sem      *dynSem
	blocking bool

	closeOnce sync.Once
	closing   chan struct{}
	workWG    sync.WaitGroup
}

// defaultSchedulerCap is the scheduler queue depth used by NewFixedPool and
// NewBlockingPool; callers who need a different bound use NewFixedPoolSized
// / NewBlockingPoolSized.
const defaultSchedulerCap = 4096

// NewFixedPool creates a pool whose worker parallelism never changes.
// Fixed pools give no deadlock-avoidance help: a reaction body that blocks
// waiting on a molecule served by a reaction pinned to the same fixed pool
// can starve it permanently if capacity is never available to run the
// unblocking reaction. Provisioning capacity for that case is the caller's
// responsibility.
func NewFixedPool(name string, parallelism int) *Pool {
	return newPool(name, parallelism, false, defaultSchedulerCap)
}

// NewBlockingPool creates a blocking-elastic pool: parallelism grows by one
// each time a worker announces StartedBlockingCall and shrinks by one when
// it announces FinishedBlockingCall. This prevents the self-deadlock a
// fixed pool is prone to when a reaction body blocks on another molecule
// that must itself be served by a worker on the same pool.
func NewBlockingPool(name string, parallelism int) *Pool {
	return newPool(name, parallelism, true, defaultSchedulerCap)
}

// NewFixedPoolSized is NewFixedPool with an explicit scheduler queue depth,
// for callers wiring a configured scheduler-cap knob through instead of
// accepting defaultSchedulerCap.
func NewFixedPoolSized(name string, parallelism, schedulerCap int) *Pool {
	return newPool(name, parallelism, false, schedulerCap)
}

// NewBlockingPoolSized is NewBlockingPool with an explicit scheduler queue
// depth.
func NewBlockingPoolSized(name string, parallelism, schedulerCap int) *Pool {
	return newPool(name, parallelism, true, schedulerCap)
}

func newPool(name string, parallelism int, blocking bool, schedulerCap int) *Pool {
	if parallelism <= 0 {
		parallelism = 1
	}
	if schedulerCap <= 0 {
		schedulerCap = defaultSchedulerCap
	}
	p := &Pool{
		name:        name,
		schedulerCh: make(chan func(), schedulerCap),
		sem:         newDynSem(parallelism),
		blocking:    blocking,
		closing:     make(chan struct{}),
	}
	p.schedWG.Add(1)
	go p.runScheduler()
	return p
}

func (p *Pool) runScheduler() {
	defer p.schedWG.Done()
	for {
		select {
		case task, ok := <-p.schedulerCh:
			if !ok {
				return
			}
			task()
		case <-p.closing:
			return
		}
	}
}

// RunScheduler enqueues a scheduling decision or match search onto this
// pool's single scheduler goroutine. Callers never block inside tasks run
// here for anything unbounded — scheduler threads must never suspend
// indefinitely.
func (p *Pool) RunScheduler(task func()) {
	select {
	case p.schedulerCh <- task:
	case <-p.closing:
	}
}

// RunReaction runs closure on a worker goroutine, gated by the pool's
// (possibly elastic) parallelism budget. name identifies the reaction for
// diagnostics; it is accepted here rather than threaded through every call
// site that dispatches a body. The semaphore acquire happens inside the
// spawned goroutine, never in the caller: a caller running on a pool's
// scheduler goroutine (the only caller site.go has) must return immediately
// once it has handed work off, per this pool's own "scheduler threads never
// block indefinitely" contract — waiting for worker capacity here instead
// would stall every other site sharing that scheduler.
func (p *Pool) RunReaction(name string, closure func()) {
	p.workWG.Add(1)
	go func() {
		defer p.workWG.Done()
		p.sem.acquire()
		defer p.sem.release()
		closure()
	}()
}

// StartedBlockingCall must be called by a worker immediately before it
// performs a blocking wait inside a reaction body (a blocking emit). On a
// blocking-elastic pool this grows the parallelism budget by one so other
// reactions — including whichever one unblocks this call — can still run
// concurrently. On a fixed pool it has no effect; the contract exists so
// callers do not need to know which flavor of pool they are running on.
func (p *Pool) StartedBlockingCall() {
	if p.blocking {
		p.sem.grow(1)
	}
}

// FinishedBlockingCall must be paired with a prior StartedBlockingCall once
// the blocking wait completes.
func (p *Pool) FinishedBlockingCall() {
	if p.blocking {
		p.sem.shrink(1)
	}
}

// ShutdownNow cancels the scheduler queue and waits for the scheduler
// goroutine to exit. It does not wait for reaction bodies already handed to
// workers (Wait does that, without a time bound), and it does not interrupt
// them (the runtime offers no body-cancellation primitive per spec §5).
func (p *Pool) ShutdownNow() {
	p.closeOnce.Do(func() {
		close(p.closing)
	})
	p.schedWG.Wait()
}

// Wait blocks until all reaction bodies submitted via RunReaction have
// returned. Intended for tests and for Site.Close's drain step.
func (p *Pool) Wait() {
	p.workWG.Wait()
}

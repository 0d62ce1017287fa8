package join

import (
	"reflect"
	"time"
)

// Emitter is the user-facing handle for a non-blocking molecule of value
// type T (spec §4.7 "emit"). NewEmitter binds it to its Site at creation;
// a zero Emitter is unbound and its methods return ErrEmitterUnbound.
type Emitter[T any] struct {
	site   *Site
	index  int
	name   string
	static bool
}

// NewEmitter declares a molecule named name on site. static marks it as a
// static molecule per spec §4.2: exactly one instance must exist in the
// soup at steady state, reinjected by every reaction that consumes it.
func NewEmitter[T any](site *Site, name string, static bool) *Emitter[T] {
	var zero T
	idx := site.declareMolecule(name, static, isSimpleType(reflect.TypeOf(zero)))
	return &Emitter[T]{site: site, index: idx, name: name, static: static}
}

// Emit adds one instance of v to the soup and triggers a match attempt
// (spec §4.7 "m(v)"). For a static molecule this is only valid before the
// site starts producing it via a reaction body; see Reemit for in-body
// reemission.
func (m *Emitter[T]) Emit(v T) error {
	if m.site == nil {
		return ErrEmitterUnbound
	}
	return m.site.emit(m.index, nonBlockingValue(v))
}

// Reemit reemits a static molecule from inside the reaction body that just
// consumed it. Go has no thread-local storage to detect this automatically,
// so the calling body must pass the ThreadInfo it was invoked with; Reemit
// validates that ctx's reaction actually consumed this static molecule in
// this dispatch before accepting the reemission (spec §9's static-molecule
// discipline, translated to an explicit parameter — see DESIGN.md open
// question 4).
func (m *Emitter[T]) Reemit(ctx *ThreadInfo, v T) error {
	if m.site == nil {
		return ErrEmitterUnbound
	}
	if !m.static {
		return m.site.emit(m.index, nonBlockingValue(v))
	}
	if err := ctx.reemitStatic(m.index); err != nil {
		return err
	}
	return m.site.emit(m.index, nonBlockingValue(v))
}

// Index returns the molecule index this emitter is bound to, for use with
// diagnostics such as Site.DebugSoup.
func (m *Emitter[T]) Index() int { return m.index }

// EmitUntilConsumed adds one instance of v to the soup like Emit, and
// returns a future that resolves once this specific instance is removed
// from its bag by a successful match (spec §4.7 "m.emit_until_consumed(v)").
func (m *Emitter[T]) EmitUntilConsumed(v T) (*ConsumedFuture, error) {
	if m.site == nil {
		return nil, ErrEmitterUnbound
	}
	sig := newObservationSignal()
	if err := m.site.emit(m.index, observedValue(v, sig)); err != nil {
		return nil, err
	}
	return &ConsumedFuture{sig: sig}, nil
}

// WhenEmitted returns a future that resolves the next time this molecule
// is emitted, reporting whether the soup admitted or refused it (spec
// §4.7 "m.when_emitted()").
func (m *Emitter[T]) WhenEmitted() *EmittedFuture {
	sig := newObservationSignal()
	if m.site != nil {
		m.site.registerEmittedWaiter(m.index, sig)
	}
	return &EmittedFuture{sig: sig}
}

// WhenScheduled returns a future that resolves at the next scheduling
// attempt this molecule's emission triggers (spec §4.7 "m.when_scheduled()").
func (m *Emitter[T]) WhenScheduled() *ScheduledFuture {
	sig := newObservationSignal()
	if m.site != nil {
		m.site.registerSchedWaiter(m.index, sig)
	}
	return &ScheduledFuture{sig: sig}
}

// siteRef and indexRef implement MoleculeRef, letting WildcardInput /
// MatchInput / ConstInput stamp the resulting InputPattern with this
// emitter's real site for Install's cross-site binding check.
func (m *Emitter[T]) siteRef() *Site { return m.site }
func (m *Emitter[T]) indexRef() int  { return m.index }

// VolatileValue returns the current count of this molecule's instances in
// the soup, for diagnostics only — spec §6 warns this is a snapshot with no
// consistency guarantee once observed outside the owning site's lock.
func (m *Emitter[T]) VolatileValue() int {
	if m.site == nil {
		return 0
	}
	m.site.mu.Lock()
	defer m.site.mu.Unlock()
	return m.site.bags[m.index].count()
}

// BlockingEmitter is the user-facing handle for a blocking molecule (spec
// §4.7): emitting it suspends the caller until some reaction consumes the
// molecule and replies with an R value.
type BlockingEmitter[T any, R any] struct {
	site     *Site
	index    int
	name     string
	selfPool *Pool
}

// NewBlockingEmitter declares a blocking molecule named name on site.
// selfPool, if non-nil, is the pool the calling goroutine is itself running
// a reaction body on; supplying it lets Emit/EmitTimeout announce
// StartedBlockingCall/FinishedBlockingCall around the wait so a
// blocking-elastic pool can grow to avoid self-deadlock (spec §4.3's "this
// flavor exists specifically to let a reaction safely emit a blocking
// molecule and wait for its own pool to service it").
func NewBlockingEmitter[T any, R any](site *Site, name string, selfPool *Pool) *BlockingEmitter[T, R] {
	idx := site.declareMolecule(name, false, false)
	return &BlockingEmitter[T, R]{site: site, index: idx, name: name, selfPool: selfPool}
}

// Emit adds v to the soup as a blocking instance and waits indefinitely for
// a reply (spec §4.7 "m(v) as a blocking call").
func (m *BlockingEmitter[T, R]) Emit(v T) (R, error) {
	var zero R
	if m.site == nil {
		return zero, ErrEmitterUnbound
	}
	rc := newReplyChannel()
	if err := m.site.emit(m.index, blockingValue(v, rc)); err != nil {
		return zero, err
	}

	m.announceStart()
	defer m.announceFinish()

	result, err := rc.await()
	if err != nil {
		return zero, err
	}
	return result.(R), nil
}

// EmitTimeout adds v to the soup as a blocking instance and waits up to d
// for a reply, returning ErrTimedOut if none arrives first (spec §4.7's
// timed emit, racing the reply against the deadline per §5's "single-shot
// reply primitive").
func (m *BlockingEmitter[T, R]) EmitTimeout(v T, d time.Duration) (R, error) {
	var zero R
	if m.site == nil {
		return zero, ErrEmitterUnbound
	}
	rc := newReplyChannel()
	if err := m.site.emit(m.index, blockingValue(v, rc)); err != nil {
		return zero, err
	}

	m.announceStart()
	defer m.announceFinish()

	result, ok, err := rc.awaitTimeout(d)
	if !ok {
		return zero, err
	}
	if err != nil {
		return zero, err
	}
	return result.(R), nil
}

// EmitFuture adds v to the soup as a blocking instance without waiting,
// returning a future the caller can Wait on later (spec §4.7 "future-reply
// emit"), useful for emitting several blocking molecules concurrently from
// one goroutine without deadlocking against each other.
func (m *BlockingEmitter[T, R]) EmitFuture(v T) (*TypedReplyFuture[R], error) {
	if m.site == nil {
		return nil, ErrEmitterUnbound
	}
	rc := newReplyChannel()
	if err := m.site.emit(m.index, blockingValue(v, rc)); err != nil {
		return nil, err
	}
	return &TypedReplyFuture[R]{inner: rc.future()}, nil
}

// Index returns the molecule index this emitter is bound to.
func (m *BlockingEmitter[T, R]) Index() int { return m.index }

// WhenScheduled returns a future that resolves at the next scheduling
// attempt this molecule's emission triggers (spec §4.7 "m.when_scheduled()").
func (m *BlockingEmitter[T, R]) WhenScheduled() *ScheduledFuture {
	sig := newObservationSignal()
	if m.site != nil {
		m.site.registerSchedWaiter(m.index, sig)
	}
	return &ScheduledFuture{sig: sig}
}

// siteRef and indexRef implement MoleculeRef, letting WildcardInput /
// MatchInput / ConstInput stamp the resulting InputPattern with this
// emitter's real site for Install's cross-site binding check.
func (m *BlockingEmitter[T, R]) siteRef() *Site { return m.site }
func (m *BlockingEmitter[T, R]) indexRef() int  { return m.index }

func (m *BlockingEmitter[T, R]) announceStart() {
	if m.selfPool != nil {
		m.selfPool.StartedBlockingCall()
	}
}

func (m *BlockingEmitter[T, R]) announceFinish() {
	if m.selfPool != nil {
		m.selfPool.FinishedBlockingCall()
	}
}

// TypedReplyFuture adapts the untyped ReplyFuture to the blocking
// emitter's reply type R.
type TypedReplyFuture[R any] struct {
	inner *ReplyFuture
}

// Wait blocks until the reply arrives and returns it, asserted to R.
func (f *TypedReplyFuture[R]) Wait() (R, error) {
	var zero R
	v, err := f.inner.Wait()
	if err != nil {
		return zero, err
	}
	return v.(R), nil
}

// Reply completes the reply handle carried by a staged blocking molecule
// value. A reaction body calls this exactly once for each blocking input it
// consumed; the dispatch loop in site.go treats a never-called Reply as a
// protocol violation and fails the waiting emitter with ErrNoReply instead
// of leaving it stuck forever (spec §4.6 "reply discipline").
func Reply[R any](staged []MoleculeValue, inputIdx int, v R) bool {
	rc := staged[inputIdx].reply
	if rc == nil {
		return false
	}
	return rc.complete(v)
}

// Value extracts the typed payload of a staged input at position inputIdx.
// Front-ends compiled against this core are expected to generate calls
// like this rather than asking reaction authors to handle `any` directly.
func Value[T any](staged []MoleculeValue, inputIdx int) T {
	return staged[inputIdx].value.(T)
}

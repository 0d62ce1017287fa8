package join

import "sync"

// observationSignal is a single-shot, multi-waiter resolution slot shared
// by the three Emitter observation futures (spec §4.7 "when_emitted",
// "emit_until_consumed", "when_scheduled"). Modeled on replyChannel's
// cond-based single-resolution discipline, generalized to carry an
// arbitrary result and to allow more than one registered waiter.
type observationSignal struct {
	mu     sync.Mutex
	cond   *sync.Cond
	done   bool
	result any
}

func newObservationSignal() *observationSignal {
	s := &observationSignal{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *observationSignal) resolve(result any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return
	}
	s.done = true
	s.result = result
	s.cond.Broadcast()
}

func (s *observationSignal) wait() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	for !s.done {
		s.cond.Wait()
	}
	return s.result
}

// EmittedResult reports whether a pending emit was admitted into the soup
// or refused (spec §7's pipelined-refusal path).
type EmittedResult struct {
	Admitted bool
}

// EmittedFuture resolves the next time its molecule is emitted, reporting
// whether the soup admitted or refused it (spec §4.7 "m.when_emitted()").
type EmittedFuture struct{ sig *observationSignal }

// Wait blocks until the emit this future was registered for is admitted or
// refused.
func (f *EmittedFuture) Wait() EmittedResult {
	return f.sig.wait().(EmittedResult)
}

// ConsumedFuture resolves once a specific emitted value has been removed
// from its bag by a successful match (spec §4.7 "m.emit_until_consumed(v)").
type ConsumedFuture struct{ sig *observationSignal }

// Wait blocks until the value this future was created for is consumed.
func (f *ConsumedFuture) Wait() {
	f.sig.wait()
}

// ScheduledResult reports the outcome of a scheduling attempt: whether some
// reaction fired, and if so, which (spec §4.6 step 3's "resolve any
// pending when-scheduled promises").
type ScheduledResult struct {
	Fired    bool
	Reaction string
}

// ScheduledFuture resolves at the next scheduling attempt this molecule's
// emission triggers (spec §4.7 "m.when_scheduled()").
type ScheduledFuture struct{ sig *observationSignal }

// Wait blocks until the scheduling attempt this future was registered for
// completes, successfully or not.
func (f *ScheduledFuture) Wait() ScheduledResult {
	return f.sig.wait().(ScheduledResult)
}

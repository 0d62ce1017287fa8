package join

import (
	"errors"
	"sync"
	"time"
)

// ErrNoReply is returned to a blocking emitter when the reaction that
// consumed its molecule finished (or threw) without replying.
var ErrNoReply = errors.New("join: reaction finished without replying")

// ErrTimedOut is returned by awaitTimeout (and so by
// BlockingEmitter.EmitTimeout) when the deadline elapses first.
var ErrTimedOut = errors.New("join: blocking emit timed out")

type replyState int

const (
	replyEmpty replyState = iota
	replyDone
	replyTimedOut
	replyFailed
)

// replyChannel is a single-shot, one-producer/one-consumer rendezvous slot
// carrying one reply value for a blocking molecule. It is safe for the
// reacting worker (producer, via complete/fail) to race against the
// emitter's timeout (consumer, via awaitTimeout) — whichever transition
// happens first wins, and the loser has no effect.
type replyChannel struct {
	mu    sync.Mutex
	cond  *sync.Cond
	state replyState
	value any
	err   error
}

func newReplyChannel() *replyChannel {
	r := &replyChannel{}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// await blocks indefinitely until a reply is completed or failed.
func (r *replyChannel) await() (any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for r.state == replyEmpty {
		r.cond.Wait()
	}
	return r.value, r.err
}

// awaitTimeout blocks up to d. On timeout it atomically transitions the
// slot to replyTimedOut so a concurrent complete() loses cleanly and
// returns false/ErrTimedOut instead of racing the caller's interpretation
// of the result.
func (r *replyChannel) awaitTimeout(d time.Duration) (any, bool, error) {
	deadline := time.Now().Add(d)

	r.mu.Lock()
	if r.state != replyEmpty {
		v, err := r.value, r.err
		r.mu.Unlock()
		return v, true, err
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.mu.Lock()
		for r.state == replyEmpty {
			r.cond.Wait()
		}
		r.mu.Unlock()
		close(done)
	}()

	select {
	case <-done:
		r.mu.Lock()
		v, err := r.value, r.err
		r.mu.Unlock()
		return v, true, err
	case <-time.After(time.Until(deadline)):
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.state == replyEmpty {
			r.state = replyTimedOut
			r.cond.Broadcast()
			return nil, false, ErrTimedOut
		}
		// A reply (or failure) landed between the select branches firing.
		return r.value, true, r.err
	}
}

// complete resolves the slot with a value. Returns true iff this call was
// the first to resolve the slot (the emitter had not already timed out).
func (r *replyChannel) complete(v any) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != replyEmpty {
		return false
	}
	r.state = replyDone
	r.value = v
	r.cond.Broadcast()
	return true
}

// fail resolves the slot with an error (used for "no reply sent"). Returns
// true iff this call was the first to resolve the slot.
func (r *replyChannel) fail(err error) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != replyEmpty {
		return false
	}
	r.state = replyFailed
	r.err = err
	r.cond.Broadcast()
	return true
}

// hasNoReplyAttempted reports whether the slot is still empty (no reply,
// failure, or timeout has been recorded).
func (r *replyChannel) hasNoReplyAttempted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state == replyEmpty
}

// isStale reports whether the emitter side has already given up (timed
// out), meaning a staged copy of this blocking value should be skipped by
// future match search rather than dispatched to a reaction body.
func (r *replyChannel) isStale() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state == replyTimedOut
}

// future returns a future-style handle resolved by the same completion
// this channel exposes via await/awaitTimeout.
func (r *replyChannel) future() *ReplyFuture {
	return &ReplyFuture{ch: r}
}

// ReplyFuture is the non-blocking-construction, later-resolved handle
// returned by a future-reply emit.
type ReplyFuture struct {
	ch *replyChannel
}

// Wait blocks until the reply is available and returns it.
func (f *ReplyFuture) Wait() (any, error) {
	return f.ch.await()
}

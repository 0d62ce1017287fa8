package join

import (
	"testing"
	"time"
)

func TestEmitter_Unbound_ReturnsError(t *testing.T) {
	var e Emitter[int]
	if err := e.Emit(1); err != ErrEmitterUnbound {
		t.Fatalf("expected ErrEmitterUnbound, got %v", err)
	}
}

func TestEmitter_NonStatic_ReemitBehavesLikeEmit(t *testing.T) {
	site := NewSite(WithName("nonstatic-reemit"), WithPool(NewFixedPool("nonstatic-reemit", 1)))
	m := NewEmitter[int](site, "m", false)
	if err := site.Install(); err != nil {
		t.Fatalf("install failed: %v", err)
	}
	defer site.Close()

	ti := &ThreadInfo{}
	if err := m.Reemit(ti, 42); err != nil {
		t.Fatalf("unexpected error reemitting a non-static molecule: %v", err)
	}
	if got := m.VolatileValue(); got != 1 {
		t.Fatalf("expected one instance in the soup, got %d", got)
	}
}

func TestEmitter_StaticReemit_RejectsWhenNotConsumedThisDispatch(t *testing.T) {
	site := NewSite(WithName("static-misuse-direct"))
	state := NewEmitter[int](site, "state", true)

	ti := &ThreadInfo{consumed: map[int]bool{}, reemitCounts: map[int]int{}}
	if err := state.Reemit(ti, 1); err != ErrStaticMisuse {
		t.Fatalf("expected ErrStaticMisuse, got %v", err)
	}
}

func TestBlockingEmitter_EmitFuture_ResolvesAsynchronously(t *testing.T) {
	site := NewSite(WithName("future"), WithPool(NewFixedPool("future", 2)))
	request := NewBlockingEmitter[int, int](site, "request", nil)

	doubler := &ReactionInfo{
		Name:   "double",
		Inputs: []InputPattern{{MoleculeIndex: request.Index(), Kind: PatternWildcard}},
		Body: func(ctx *ThreadInfo, staged []MoleculeValue) {
			n := Value[int](staged, 0)
			Reply(staged, 0, n*2)
		},
	}
	if err := site.Install(doubler); err != nil {
		t.Fatalf("install failed: %v", err)
	}
	defer site.Close()

	fut, err := request.EmitFuture(21)
	if err != nil {
		t.Fatalf("EmitFuture failed: %v", err)
	}
	got, err := fut.Wait()
	if err != nil {
		t.Fatalf("future.Wait error: %v", err)
	}
	if got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
}

func TestBlockingEmitter_Unbound_ReturnsError(t *testing.T) {
	var b BlockingEmitter[int, int]
	if _, err := b.Emit(1); err != ErrEmitterUnbound {
		t.Fatalf("expected ErrEmitterUnbound, got %v", err)
	}
	if _, err := b.EmitTimeout(1, time.Millisecond); err != ErrEmitterUnbound {
		t.Fatalf("expected ErrEmitterUnbound, got %v", err)
	}
	if _, err := b.EmitFuture(1); err != ErrEmitterUnbound {
		t.Fatalf("expected ErrEmitterUnbound, got %v", err)
	}
}

func TestValue_ExtractsTypedPayload(t *testing.T) {
	staged := []MoleculeValue{nonBlockingValue("hello"), nonBlockingValue(7)}
	if got := Value[string](staged, 0); got != "hello" {
		t.Fatalf("expected hello, got %q", got)
	}
	if got := Value[int](staged, 1); got != 7 {
		t.Fatalf("expected 7, got %d", got)
	}
}

func TestReply_FailsWhenNoReplyHandlePresent(t *testing.T) {
	staged := []MoleculeValue{nonBlockingValue(1)}
	if Reply(staged, 0, "unused") {
		t.Fatal("expected Reply to fail for a non-blocking staged value")
	}
}

func TestReply_SucceedsOnceForBlockingValue(t *testing.T) {
	rc := newReplyChannel()
	staged := []MoleculeValue{blockingValue(1, rc)}

	if !Reply(staged, 0, "first") {
		t.Fatal("expected first Reply to succeed")
	}
	if Reply(staged, 0, "second") {
		t.Fatal("expected second Reply on an already-completed handle to fail")
	}

	v, err := rc.await()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "first" {
		t.Fatalf("expected the first reply to win, got %v", v)
	}
}

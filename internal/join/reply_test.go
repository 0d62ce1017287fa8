package join

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestReplyChannel_AwaitBlocksUntilComplete(t *testing.T) {
	rc := newReplyChannel()
	done := make(chan struct{})

	go func() {
		v, err := rc.await()
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if v != "ok" {
			t.Errorf("expected 'ok', got %v", v)
		}
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	if !rc.complete("ok") {
		t.Fatal("expected first complete to succeed")
	}
	<-done
}

func TestReplyChannel_CompleteAfterFailIsNoOp(t *testing.T) {
	rc := newReplyChannel()
	if !rc.fail(ErrNoReply) {
		t.Fatal("expected first fail to succeed")
	}
	if rc.complete("late") {
		t.Fatal("expected complete after fail to report failure")
	}
	_, err := rc.await()
	if !errors.Is(err, ErrNoReply) {
		t.Fatalf("expected ErrNoReply, got %v", err)
	}
}

func TestReplyChannel_AwaitTimeout_TimesOutCleanly(t *testing.T) {
	rc := newReplyChannel()
	_, ok, err := rc.awaitTimeout(20 * time.Millisecond)
	if ok {
		t.Fatal("expected awaitTimeout to report timeout (ok=false)")
	}
	if !errors.Is(err, ErrTimedOut) {
		t.Fatalf("expected ErrTimedOut, got %v", err)
	}
	if !rc.isStale() {
		t.Fatal("expected slot to be stale after a timeout")
	}
	if rc.complete("too-late") {
		t.Fatal("expected complete after timeout to lose the race")
	}
}

func TestReplyChannel_CompleteWinsRaceAgainstLateTimeout(t *testing.T) {
	rc := newReplyChannel()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		rc.complete("won")
	}()
	wg.Wait()

	v, ok, err := rc.awaitTimeout(50 * time.Millisecond)
	if !ok || err != nil {
		t.Fatalf("expected a completed reply, got ok=%v err=%v", ok, err)
	}
	if v != "won" {
		t.Fatalf("expected 'won', got %v", v)
	}
}

func TestReplyChannel_HasNoReplyAttempted(t *testing.T) {
	rc := newReplyChannel()
	if !rc.hasNoReplyAttempted() {
		t.Fatal("expected fresh channel to have no reply attempted")
	}
	rc.complete(1)
	if rc.hasNoReplyAttempted() {
		t.Fatal("expected completed channel to report a reply attempted")
	}
}

func TestReplyFuture_Wait(t *testing.T) {
	rc := newReplyChannel()
	f := rc.future()
	go func() {
		time.Sleep(5 * time.Millisecond)
		rc.complete(99)
	}()
	v, err := f.Wait()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 99 {
		t.Fatalf("expected 99, got %v", v)
	}
}

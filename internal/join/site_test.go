package join

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTestCounterSite(t *testing.T) (*Site, *Emitter[struct{}], *Emitter[int]) {
	t.Helper()
	site := NewSite(WithName("counter"), WithPool(NewFixedPool("counter", 4)))

	incr := NewEmitter[struct{}](site, "incr", false)
	count := NewEmitter[int](site, "count", true)

	reaction := &ReactionInfo{
		Name: "count+incr",
		Inputs: []InputPattern{
			{MoleculeIndex: count.Index(), Kind: PatternWildcard},
			{MoleculeIndex: incr.Index(), Kind: PatternWildcard},
		},
		Body: func(ctx *ThreadInfo, staged []MoleculeValue) {
			n := Value[int](staged, 0)
			if err := count.Reemit(ctx, n+1); err != nil {
				t.Errorf("unexpected reemit error: %v", err)
			}
		},
	}
	if err := site.Install(reaction); err != nil {
		t.Fatalf("install failed: %v", err)
	}
	if err := count.Emit(0); err != nil {
		t.Fatalf("initial emit failed: %v", err)
	}
	return site, incr, count
}

func TestSite_CounterConservation(t *testing.T) {
	site, incr, count := newTestCounterSite(t)
	defer site.Close()

	const n = 500
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = incr.Emit(struct{}{})
		}()
	}
	wg.Wait()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if count.VolatileValue() == 1 && incr.VolatileValue() == 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	if got := incr.VolatileValue(); got != 0 {
		t.Fatalf("expected all incr signals consumed, %d remain", got)
	}
}

func TestSite_BlockingRendezvous(t *testing.T) {
	site := NewSite(WithName("rendezvous"), WithPool(NewBlockingPool("rendezvous", 2)))
	pool := NewBlockingPool("rendezvous-self", 2)
	a := NewBlockingEmitter[string, string](site, "a", pool)
	b := NewBlockingEmitter[string, string](site, "b", pool)

	meet := &ReactionInfo{
		Name: "a+b",
		Inputs: []InputPattern{
			{MoleculeIndex: a.Index(), Kind: PatternWildcard},
			{MoleculeIndex: b.Index(), Kind: PatternWildcard},
		},
		Body: func(ctx *ThreadInfo, staged []MoleculeValue) {
			av := Value[string](staged, 0)
			bv := Value[string](staged, 1)
			Reply(staged, 0, bv)
			Reply(staged, 1, av)
		},
	}
	if err := site.Install(meet); err != nil {
		t.Fatalf("install failed: %v", err)
	}
	defer site.Close()

	var gotA, gotB string
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		v, err := a.Emit("from-a")
		if err != nil {
			t.Errorf("a.Emit error: %v", err)
		}
		gotA = v
	}()
	go func() {
		defer wg.Done()
		v, err := b.Emit("from-b")
		if err != nil {
			t.Errorf("b.Emit error: %v", err)
		}
		gotB = v
	}()
	wg.Wait()

	if gotA != "from-b" || gotB != "from-a" {
		t.Fatalf("expected each side to receive the other's value, got a=%q b=%q", gotA, gotB)
	}
}

func TestSite_EmitTimeout_FiresWhenNoReactionCanConsume(t *testing.T) {
	site := NewSite(WithName("lonely"), WithPool(NewFixedPool("lonely", 1)))
	m := NewBlockingEmitter[int, int](site, "m", nil)
	if err := site.Install(); err != nil {
		t.Fatalf("install failed: %v", err)
	}
	defer site.Close()

	_, err := m.EmitTimeout(1, 30*time.Millisecond)
	if err != ErrTimedOut {
		t.Fatalf("expected ErrTimedOut, got %v", err)
	}
}

func TestSite_ReplyNeverSent_ReportedAndFailed(t *testing.T) {
	site := NewSite(WithName("forgetful"), WithPool(NewFixedPool("forgetful", 1)))
	m := NewBlockingEmitter[int, int](site, "m", nil)

	forgetful := &ReactionInfo{
		Name:   "forgets-to-reply",
		Inputs: []InputPattern{{MoleculeIndex: m.Index(), Kind: PatternWildcard}},
		Body:   func(ctx *ThreadInfo, staged []MoleculeValue) {},
	}
	if err := site.Install(forgetful); err != nil {
		t.Fatalf("install failed: %v", err)
	}
	defer site.Close()

	_, err := m.Emit(1)
	if err != ErrNoReply {
		t.Fatalf("expected ErrNoReply, got %v", err)
	}
}

func TestSite_Install_RejectsShadowedReactions(t *testing.T) {
	site := NewSite(WithName("shadowed"))
	m := NewEmitter[int](site, "m", false)

	a := &ReactionInfo{Name: "a", Inputs: []InputPattern{{MoleculeIndex: m.Index(), Kind: PatternWildcard}}, Body: func(*ThreadInfo, []MoleculeValue) {}}
	b := &ReactionInfo{Name: "b", Inputs: []InputPattern{{MoleculeIndex: m.Index(), Kind: PatternWildcard}}, Body: func(*ThreadInfo, []MoleculeValue) {}}

	err := site.Install(a, b)
	if err == nil {
		t.Fatal("expected install to reject two identically-shaped wildcard reactions on the same molecule")
	}
}

func TestSite_StaticReemission_WrongCountReported(t *testing.T) {
	site := NewSite(WithName("static-misuse"), WithPool(NewFixedPool("static-misuse", 1)))
	var reportedErr atomic.Value
	site = NewSite(WithName("static-misuse"), WithPool(NewFixedPool("static-misuse", 1)), WithReporter(reporterFunc{
		exception: func(s, r string, err error, retried bool) { reportedErr.Store(err) },
	}))

	signal := NewEmitter[struct{}](site, "signal", false)
	state := NewEmitter[int](site, "state", true)

	badReaction := &ReactionInfo{
		Name: "forgets-to-reemit",
		Inputs: []InputPattern{
			{MoleculeIndex: state.Index(), Kind: PatternWildcard},
			{MoleculeIndex: signal.Index(), Kind: PatternWildcard},
		},
		Body: func(ctx *ThreadInfo, staged []MoleculeValue) {
			// deliberately never calls state.Reemit
		},
	}
	if err := site.Install(badReaction); err != nil {
		t.Fatalf("install failed: %v", err)
	}
	defer site.Close()

	_ = state.Emit(0)
	_ = signal.Emit(struct{}{})

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if reportedErr.Load() != nil {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if reportedErr.Load() == nil {
		t.Fatal("expected a reported exception for the unreemitted static molecule")
	}
}

// reporterFunc is a minimal Reporter stub for tests that only need to
// observe one event kind.
type reporterFunc struct {
	exception func(site, reaction string, err error, retried bool)
}

func (r reporterFunc) SchedulerAssigned(string, string) {}
func (r reporterFunc) ReactionScheduled(string, string) {}
func (r reporterFunc) ReactionStarted(string, string)   {}
func (r reporterFunc) ReactionFinished(string, string)  {}
func (r reporterFunc) ReactionException(site, reaction string, err error, retried bool) {
	if r.exception != nil {
		r.exception(site, reaction, err, retried)
	}
}
func (r reporterFunc) ReplyNeverSent(string, string)           {}
func (r reporterFunc) PipelinedEmissionRefused(string, string) {}
func (r reporterFunc) LivelockDetected(string, string, string) {}

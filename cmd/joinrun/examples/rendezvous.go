package examples

import (
	"fmt"
	"time"

	"github.com/daniacca/achemjoin/internal/join"
)

// Rendezvous wires a symmetric two-party handshake: two goroutines each
// emit a blocking molecule carrying their own value, and block until a
// single reaction consumes both instances and replies to each side with
// the other's value — the "rendezvous" scenario used to exercise blocking
// emit together with a reaction body that completes two reply handles.
type Rendezvous struct {
	site *join.Site
	a    *join.BlockingEmitter[string, string]
	b    *join.BlockingEmitter[string, string]
}

// NewRendezvous builds and installs the rendezvous reaction site. pool, if
// non-nil, is shared as both sides' self-blocking pool so blocking emits
// announce StartedBlockingCall/FinishedBlockingCall against it; otherwise
// one is built sized by parallelism/schedulerCap (see cmd/joinrun's
// RunConfig).
func NewRendezvous(reporter join.Reporter, pool *join.Pool, parallelism, schedulerCap int) *Rendezvous {
	if pool == nil {
		if parallelism <= 0 {
			parallelism = 2
		}
		pool = join.NewBlockingPoolSized("rendezvous-pool", parallelism, schedulerCap)
	}
	site := join.NewSite(
		join.WithName("rendezvous"),
		join.WithPool(pool),
		join.WithReporter(reporter),
	)

	r := &Rendezvous{site: site}
	r.a = join.NewBlockingEmitter[string, string](site, "a", pool)
	r.b = join.NewBlockingEmitter[string, string](site, "b", pool)

	meet := &join.ReactionInfo{
		Name: "a+b",
		Inputs: []join.InputPattern{
			join.WildcardInput(r.a),
			join.WildcardInput(r.b),
		},
		Body: func(ctx *join.ThreadInfo, staged []join.MoleculeValue) {
			av := join.Value[string](staged, 0)
			bv := join.Value[string](staged, 1)
			join.Reply(staged, 0, bv)
			join.Reply(staged, 1, av)
		},
	}

	if err := site.Install(meet); err != nil {
		panic(err)
	}

	return r
}

// Run has two goroutines rendezvous once, each reporting what they
// received from the other side, and returns once both have finished.
func (r *Rendezvous) Run() {
	done := make(chan struct{}, 2)
	go func() {
		got, err := r.a.Emit("hello-from-a")
		fmt.Printf("a received %q (err=%v)\n", got, err)
		done <- struct{}{}
	}()
	go func() {
		got, err := r.b.Emit("hello-from-b")
		fmt.Printf("b received %q (err=%v)\n", got, err)
		done <- struct{}{}
	}()
	<-done
	<-done
	time.Sleep(10 * time.Millisecond)
}

// Close drains the rendezvous site.
func (r *Rendezvous) Close() { r.site.Close() }

// Site returns the underlying reaction site, for diagnostics.
func (r *Rendezvous) Site() *join.Site { return r.site }

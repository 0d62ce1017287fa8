package examples

import (
	"fmt"
	"time"

	"github.com/daniacca/achemjoin/internal/join"
)

// SelfDeadlock contrasts a fixed pool against a blocking-elastic pool for
// the case a reaction body itself blocks on a molecule served by the same
// pool. With parallelism 1 on a fixed pool, the worker running "outer"
// never frees its slot while awaiting inner()'s reply, and no worker is
// ever available to run the reaction that replies to inner() — permanent
// self-deadlock. A blocking pool grows its budget for the duration of the
// blocking wait, so the inner reaction gets a worker and the outer call
// unblocks.
type SelfDeadlock struct {
	site  *join.Site
	pool  *join.Pool
	outer *join.BlockingEmitter[struct{}, string]
	inner *join.BlockingEmitter[struct{}, string]
}

// NewSelfDeadlock builds the scenario. blocking selects NewBlockingPoolSized
// (deadlock-free) vs NewFixedPoolSized (deadlocks); parallelism is
// deliberately fixed at 1 regardless of any configured value since the
// scenario only demonstrates anything when a single worker must service
// both molecules. schedulerCap is still taken from the caller's config.
func NewSelfDeadlock(reporter join.Reporter, blocking bool, schedulerCap int) *SelfDeadlock {
	var pool *join.Pool
	if blocking {
		pool = join.NewBlockingPoolSized("selfdeadlock-pool", 1, schedulerCap)
	} else {
		pool = join.NewFixedPoolSized("selfdeadlock-pool", 1, schedulerCap)
	}

	site := join.NewSite(
		join.WithName("selfdeadlock"),
		join.WithPool(pool),
		join.WithReporter(reporter),
	)

	s := &SelfDeadlock{site: site, pool: pool}
	s.outer = join.NewBlockingEmitter[struct{}, string](site, "outer", pool)
	s.inner = join.NewBlockingEmitter[struct{}, string](site, "inner", pool)

	outerReaction := &join.ReactionInfo{
		Name: "outer",
		Inputs: []join.InputPattern{
			join.WildcardInput(s.outer),
		},
		Body: func(ctx *join.ThreadInfo, staged []join.MoleculeValue) {
			got, err := s.inner.Emit(struct{}{})
			if err != nil {
				join.Reply(staged, 0, "outer failed: "+err.Error())
				return
			}
			join.Reply(staged, 0, "outer got: "+got)
		},
	}
	innerReaction := &join.ReactionInfo{
		Name: "inner",
		Inputs: []join.InputPattern{
			join.WildcardInput(s.inner),
		},
		Body: func(ctx *join.ThreadInfo, staged []join.MoleculeValue) {
			join.Reply(staged, 0, "inner done")
		},
	}

	if err := site.Install(outerReaction, innerReaction); err != nil {
		panic(err)
	}

	return s
}

// Run emits outer() with a bounded timeout so a fixed pool's deadlock is
// reported rather than hanging the demo process forever.
func (s *SelfDeadlock) Run() {
	result, err := s.outer.EmitTimeout(struct{}{}, 2*time.Second)
	if err != nil {
		fmt.Printf("selfdeadlock: %v (this pool flavor cannot service a self-blocking call)\n", err)
		return
	}
	fmt.Println(result)
}

// Close drains the scenario's site.
func (s *SelfDeadlock) Close() { s.site.Close() }

// Site returns the underlying reaction site, for diagnostics.
func (s *SelfDeadlock) Site() *join.Site { return s.site }

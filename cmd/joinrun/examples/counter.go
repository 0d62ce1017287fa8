// Package examples holds the demo programs cmd/joinrun can run, each
// exercising one of the concrete scenarios used as testable properties
// for the reaction-site engine.
package examples

import (
	"fmt"
	"time"

	"github.com/daniacca/achemjoin/internal/join"
)

// Counter wires the "counter conservation" scenario: a static molecule
// count(n) holds the running total, and repeated emissions of incr()/decr()
// signals are folded into it one at a time. Conservation means that after
// all signals are consumed, count's value equals the net number of incr
// minus decr emissions, never more, never less, regardless of how many
// worker goroutines raced to emit them.
type Counter struct {
	site  *join.Site
	Incr  *join.Emitter[struct{}]
	Decr  *join.Emitter[struct{}]
	count *join.Emitter[int]
}

// NewCounter builds and installs the counter reaction site. parallelism and
// schedulerCap size the site's pool (see cmd/joinrun's RunConfig); either
// falls back to a sane default when <= 0.
func NewCounter(reporter join.Reporter, parallelism, schedulerCap int) *Counter {
	if parallelism <= 0 {
		parallelism = 4
	}
	site := join.NewSite(
		join.WithName("counter"),
		join.WithPool(join.NewFixedPoolSized("counter-pool", parallelism, schedulerCap)),
		join.WithReporter(reporter),
	)

	c := &Counter{site: site}
	c.Incr = join.NewEmitter[struct{}](site, "incr", false)
	c.Decr = join.NewEmitter[struct{}](site, "decr", false)
	c.count = join.NewEmitter[int](site, "count", true)

	incrReaction := &join.ReactionInfo{
		Name: "count+incr",
		Inputs: []join.InputPattern{
			join.WildcardInput(c.count),
			join.WildcardInput(c.Incr),
		},
		Body: func(ctx *join.ThreadInfo, staged []join.MoleculeValue) {
			n := join.Value[int](staged, 0)
			if err := c.count.Reemit(ctx, n+1); err != nil {
				panic(err)
			}
		},
	}
	decrReaction := &join.ReactionInfo{
		Name: "count+decr",
		Inputs: []join.InputPattern{
			join.WildcardInput(c.count),
			join.WildcardInput(c.Decr),
		},
		Body: func(ctx *join.ThreadInfo, staged []join.MoleculeValue) {
			n := join.Value[int](staged, 0)
			if err := c.count.Reemit(ctx, n-1); err != nil {
				panic(err)
			}
		},
	}

	if err := site.Install(incrReaction, decrReaction); err != nil {
		panic(err)
	}

	if err := c.count.Emit(0); err != nil {
		panic(err)
	}

	return c
}

// Run emits n incr() signals and waits briefly for the soup to settle,
// printing the site's DebugSoup summary (the number of instances of each
// molecule, not count's value). A real caller would instead poll VolatileValue
// or wait on a completion molecule; this demo sleeps since it has no
// external signal for "done".
func (c *Counter) Run(n int) {
	for i := 0; i < n; i++ {
		_ = c.Incr.Emit(struct{}{})
	}
	time.Sleep(200 * time.Millisecond)
	fmt.Println(c.site.DebugSoup())
}

// Close drains the counter's site.
func (c *Counter) Close() { c.site.Close() }

// Site returns the underlying reaction site, for diagnostics.
func (c *Counter) Site() *join.Site { return c.site }

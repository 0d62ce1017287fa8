// Package joinclient provides a fluent construction API over
// internal/join's reaction descriptors, for callers who would rather chain
// builder calls than hand-write join.ReactionInfo literals. Adapted from
// pkg/client's SchemaBuilder/ReactionBuilder chaining style.
package joinclient

import "github.com/daniacca/achemjoin/internal/join"

// SiteBuilder accumulates reactions before installing them on a site in
// one call.
type SiteBuilder struct {
	site      *join.Site
	reactions []*ReactionBuilder
}

// NewSiteBuilder wraps an already-constructed site (built with
// join.NewSite and its emitters declared via join.NewEmitter /
// join.NewBlockingEmitter, same as direct usage).
func NewSiteBuilder(site *join.Site) *SiteBuilder {
	return &SiteBuilder{site: site}
}

// Reaction registers a reaction builder to be installed.
func (sb *SiteBuilder) Reaction(rb *ReactionBuilder) *SiteBuilder {
	sb.reactions = append(sb.reactions, rb)
	return sb
}

// Install builds every registered reaction and installs them on the site
// in one call, matching join.Site.Install's all-or-nothing semantics.
func (sb *SiteBuilder) Install() error {
	infos := make([]*join.ReactionInfo, 0, len(sb.reactions))
	for _, rb := range sb.reactions {
		infos = append(infos, rb.Build())
	}
	return sb.site.Install(infos...)
}

// ReactionBuilder provides a fluent API for building a join.ReactionInfo.
type ReactionBuilder struct {
	name        string
	inputs      []join.InputPattern
	crossGuards []join.CrossGuard
	staticGuard func() bool
	retry       bool
	pool        *join.Pool
	body        func(ctx *join.ThreadInfo, staged []join.MoleculeValue)
}

// NewReaction starts a reaction builder named name (used in reporter
// events and diagnostics).
func NewReaction(name string) *ReactionBuilder {
	return &ReactionBuilder{name: name}
}

// On adds an unconditional (wildcard) input on ref's molecule. ref must be
// an *join.Emitter[T] or *join.BlockingEmitter[T, R] declared on the site
// this builder's reactions will be installed on; Install rejects a
// reaction whose inputs were built from a different site's emitters.
func (rb *ReactionBuilder) On(ref join.MoleculeRef) *ReactionBuilder {
	rb.inputs = append(rb.inputs, join.WildcardInput(ref))
	return rb
}

// OnMatching adds a conditional input: ref's molecule is only consumable
// by this reaction when match returns true for its value.
func (rb *ReactionBuilder) OnMatching(ref join.MoleculeRef, match func(v any) bool) *ReactionBuilder {
	rb.inputs = append(rb.inputs, join.MatchInput(ref, match))
	return rb
}

// OnConst adds an input that only matches a specific constant value.
func (rb *ReactionBuilder) OnConst(ref join.MoleculeRef, value any) *ReactionBuilder {
	rb.inputs = append(rb.inputs, join.ConstInput(ref, value))
	return rb
}

// CrossGuard adds a predicate constraining the values jointly chosen for
// the input positions at indices (0-based, in the order inputs were added
// to this builder).
func (rb *ReactionBuilder) CrossGuard(indices []int, predicate func(vals []any) bool) *ReactionBuilder {
	rb.crossGuards = append(rb.crossGuards, join.CrossGuard{Indices: indices, Predicate: predicate})
	return rb
}

// StaticGuard sets a guard evaluated with no input values bound, gating
// whether this reaction may fire at all regardless of which molecules are
// available.
func (rb *ReactionBuilder) StaticGuard(guard func() bool) *ReactionBuilder {
	rb.staticGuard = guard
	return rb
}

// Retry marks the reaction to be rescheduled with its inputs reinjected
// if Body panics, instead of dropping them.
func (rb *ReactionBuilder) Retry() *ReactionBuilder {
	rb.retry = true
	return rb
}

// Pool overrides the site's default pool for dispatching this reaction's
// body.
func (rb *ReactionBuilder) Pool(p *join.Pool) *ReactionBuilder {
	rb.pool = p
	return rb
}

// Do sets the reaction body.
func (rb *ReactionBuilder) Do(body func(ctx *join.ThreadInfo, staged []join.MoleculeValue)) *ReactionBuilder {
	rb.body = body
	return rb
}

// Build converts the builder to a join.ReactionInfo.
func (rb *ReactionBuilder) Build() *join.ReactionInfo {
	return &join.ReactionInfo{
		Name:        rb.name,
		Inputs:      rb.inputs,
		CrossGuards: rb.crossGuards,
		StaticGuard: rb.staticGuard,
		Retry:       rb.retry,
		Pool:        rb.pool,
		Body:        rb.body,
	}
}

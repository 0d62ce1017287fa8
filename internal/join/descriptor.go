package join

// PatternKind classifies how an input pattern matches candidate values.
type PatternKind int

const (
	// PatternWildcard matches any value and captures nothing; irrefutable.
	PatternWildcard PatternKind = iota
	// PatternVar binds the value to a variable, optionally filtered by a
	// per-molecule predicate (Match). Irrefutable iff Match is nil.
	PatternVar
	// PatternConst matches only values equal to Const.
	PatternConst
	// PatternOther is an arbitrary matcher (destructuring pattern, guard
	// expression compiled by the front-end) with a captured-vars set;
	// Irrefutable must be set explicitly since the core cannot inspect it.
	PatternOther
)

// MoleculeRef identifies the site and index a molecule handle is bound to.
// Emitter and BlockingEmitter are the only implementations; the interface's
// unexported methods keep it sealed to this package so an InputPattern
// built via WildcardInput/MatchInput/ConstInput always carries a genuine
// site identity rather than one fabricated by a caller.
type MoleculeRef interface {
	siteRef() *Site
	indexRef() int
}

// InputPattern is one reaction input: which molecule it reads and the rule
// for matching candidate values against it. A reaction with the same
// MoleculeIndex appearing in more than one InputPattern is a repeated-input
// reaction (permitted per spec §4.6/§9 — see DESIGN.md open question 1).
type InputPattern struct {
	MoleculeIndex int
	Kind          PatternKind
	Const         any
	// Match, when non-nil, is the per-molecule conditional: it must return
	// true for a candidate value to be consumable by this input. A nil
	// Match on PatternVar/PatternWildcard means irrefutable.
	Match func(v any) bool
	// Irrefutable marks a PatternOther pattern as unconditionally matching
	// (required since the core cannot introspect an opaque matcher).
	Irrefutable bool

	// site records which Site MoleculeIndex was allocated on, when this
	// pattern was built via WildcardInput/MatchInput/ConstInput from a real
	// Emitter/BlockingEmitter. A pattern built as a bare struct literal
	// (common in tests that never call Install against a real site) leaves
	// this nil, which Install treats as "no claim to check". Install uses
	// this to reject a reaction built from one site's emitters but handed
	// to a different site's Install — a mistake plain index bounds-checking
	// cannot catch, since the numeric index may happen to be in range on
	// the wrong site too (spec §6 "a reaction's input is already bound
	// elsewhere").
	site *Site
}

// WildcardInput builds an unconditional input pattern over ref's molecule.
func WildcardInput(ref MoleculeRef) InputPattern {
	return InputPattern{site: ref.siteRef(), MoleculeIndex: ref.indexRef(), Kind: PatternWildcard}
}

// MatchInput builds a conditional input pattern over ref's molecule: only
// values for which match returns true are consumable by this input.
func MatchInput(ref MoleculeRef, match func(v any) bool) InputPattern {
	return InputPattern{site: ref.siteRef(), MoleculeIndex: ref.indexRef(), Kind: PatternVar, Match: match}
}

// ConstInput builds an input pattern over ref's molecule that only matches
// the exact value given.
func ConstInput(ref MoleculeRef, value any) InputPattern {
	return InputPattern{site: ref.siteRef(), MoleculeIndex: ref.indexRef(), Kind: PatternConst, Const: value}
}

// irrefutable reports whether this input accepts every candidate value.
func (p InputPattern) irrefutable() bool {
	switch p.Kind {
	case PatternWildcard:
		return true
	case PatternVar:
		return p.Match == nil
	case PatternConst:
		return false
	case PatternOther:
		return p.Irrefutable
	default:
		return false
	}
}

// matches reports whether v satisfies this input pattern in isolation
// (ignoring any cross-molecule guard that additionally constrains it).
func (p InputPattern) matches(v any) bool {
	switch p.Kind {
	case PatternWildcard:
		return true
	case PatternVar:
		return p.Match == nil || p.Match(v)
	case PatternConst:
		return v == p.Const
	case PatternOther:
		return p.Match == nil || p.Match(v)
	default:
		return false
	}
}

// OutputEnvKind names the kind of syntactic environment an output emission
// was found nested inside. It is carried as descriptor data only: this
// package does not implement output shrinking and nothing in it reads Envs.
type OutputEnvKind int

const (
	EnvChooserBlock OutputEnvKind = iota
	EnvFunctionCall
	EnvLambda
	EnvAtLeastOnceLoop
)

// OutputEnv records one level of nesting an output pattern was found under.
type OutputEnv struct {
	Kind   OutputEnvKind
	ID     string // chooser/function/lambda identity, for grouping clauses
	Clause int    // which branch of a chooser this is
	Total  int    // total number of clauses in the chooser
}

// OutputPattern describes one emission a reaction body may perform. The
// engine neither executes nor analyses output patterns: outputs are emitted
// by calling an Emitter from within Body, and no code in this package reads
// ReactionInfo.Outputs.
type OutputPattern struct {
	MoleculeIndex int
	Const         any
	IsOther       bool
	Envs          []OutputEnv
}

// CrossGuard is a boolean predicate over the values of two or more input
// molecules of the same reaction.
type CrossGuard struct {
	// Indices are the sorted Inputs-slice positions this guard reads.
	Indices []int
	// Predicate receives the chosen values in the same order as Indices.
	Predicate func(vals []any) bool
}

// ReactionInfo is the immutable, compile-time-derived record the engine
// consumes. It is produced by an out-of-scope front-end (spec §1) from a
// reaction's declared inputs/outputs/guards; the core only interprets it.
type ReactionInfo struct {
	Name string

	Inputs      []InputPattern
	Outputs     []OutputPattern
	StaticGuard func() bool // nil means "always true"
	CrossGuards []CrossGuard

	// Retry, if set, causes staged inputs to be reinjected and the
	// reaction rescheduled when Body panics, instead of being dropped.
	Retry bool

	// Pool, if non-nil, overrides the owning site's pool for dispatching
	// this reaction's body.
	Pool *Pool

	// Body runs on a worker goroutine with the staged input values. It is
	// expected to call Complete on every blocking input's reply handle
	// exactly once; see site.go's dispatch for the enforcement of that.
	Body func(ctx *ThreadInfo, staged []MoleculeValue)

	search      []searchInstr
	crossGroup  map[int]bool // input index -> participates in search (cross guard, or repeated with a refutable matcher)
	independent []int        // input indices handled outside the search DSL
}

// multiplicity returns, for each molecule index referenced by Inputs, how
// many copies this reaction requires.
func (ri *ReactionInfo) multiplicity() map[int]int {
	out := make(map[int]int)
	for _, in := range ri.Inputs {
		out[in.MoleculeIndex]++
	}
	return out
}

// repeatedGroups groups Inputs-slice positions by MoleculeIndex, returning
// only groups with more than one occurrence (repeated-input molecules).
func (ri *ReactionInfo) repeatedGroups() map[int][]int {
	byMol := make(map[int][]int)
	for i, in := range ri.Inputs {
		byMol[in.MoleculeIndex] = append(byMol[in.MoleculeIndex], i)
	}
	out := make(map[int][]int)
	for mol, idxs := range byMol {
		if len(idxs) > 1 {
			out[mol] = idxs
		}
	}
	return out
}

// activate finalizes a reaction descriptor: classifies which inputs are
// independent (spec §4.4) and compiles the search DSL program for the
// remaining cross-constrained inputs (spec §4.5). Called once by Site
// installation.
func (ri *ReactionInfo) activate() {
	inCrossGuard := make(map[int]bool)
	for _, g := range ri.CrossGuards {
		for _, idx := range g.Indices {
			inCrossGuard[idx] = true
		}
	}

	repeated := ri.repeatedGroups()
	repeatedIdx := make(map[int]bool)
	for _, idxs := range repeated {
		for _, i := range idxs {
			repeatedIdx[i] = true
		}
	}

	ri.crossGroup = make(map[int]bool)
	ri.independent = nil
	for i, in := range ri.Inputs {
		participatesInSearch := inCrossGuard[i] || (repeatedIdx[i] && !in.irrefutable())
		if participatesInSearch {
			ri.crossGroup[i] = true
		} else if repeatedIdx[i] {
			// Repeated but irrefutable: handled by take-any, not search.
			ri.independent = append(ri.independent, i)
		} else {
			ri.independent = append(ri.independent, i)
		}
	}

	ri.search = compileSearch(ri)
}

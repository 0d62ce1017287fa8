package join

import (
	"bytes"
	"fmt"
	"math/rand"
	"reflect"
	"runtime"
	"strconv"
	"sync"
	"time"
)

// emitterMeta is the site's bookkeeping record for one bound molecule
// index: its declared name, whether it is static/pipelined, and whether
// its value type qualifies it for the counted-map bag strategy.
type emitterMeta struct {
	name      string
	static    bool
	pipelined bool
	simple    bool
}

// ThreadInfo is the explicit, per-dispatch context a reaction Body runs
// with. Go has no thread-locals, so rather than the "carried on the
// worker thread object" implementation §9 describes, this core passes
// the equivalent context explicitly into Body — the idiomatic Go
// translation of the same requirement (DESIGN.md open question 4).
type ThreadInfo struct {
	site         *Site
	reaction     string
	pool         *Pool
	consumed     map[int]bool // static molecule indices this body consumed
	reemitCounts map[int]int  // how many times each was reemitted so far
}

// Pool returns the pool this reaction's body is currently running on,
// for pairing with a blocking emitter's self-blocking StartedBlockingCall.
func (ti *ThreadInfo) Pool() *Pool { return ti.pool }

// Site owns the bags for a coherent group of reactions and orchestrates
// emission, match search, atomic consumption, dispatch, and static-
// molecule lifecycle (spec §4.6). Grounded on internal/achem/environment.go's
// Environment, generalized from a per-tick probabilistic scan to an
// event-driven, lock-protected match search triggered by every emission.
type Site struct {
	mu sync.Mutex

	name     string
	pool     *Pool
	reporter Reporter
	rng      *rand.Rand

	emitters []emitterMeta
	nameIdx  map[string]int
	bags     []moleculeBag

	reactions []*ReactionInfo

	active bool
	closed bool

	inflight sync.WaitGroup

	// emittedWaiters/schedWaiters hold pending Emitter.WhenEmitted /
	// WhenScheduled futures, keyed by molecule index, resolved by emit and
	// attemptSchedule respectively (spec §4.7).
	emittedWaiters map[int][]*observationSignal
	schedWaiters   map[int][]*observationSignal

	// workerGoroutines marks which goroutine IDs are currently running a
	// reaction body, so DebugSoup can refuse to run from one (spec §6
	// "forbidden from reaction threads"). Go has no thread-local storage;
	// goroutineID parses runtime.Stack()'s header as the closest idiomatic
	// substitute for the thread-identity check the spec describes.
	workerGoroutines sync.Map
}

// reactionThreadSentinel is returned by DebugSoup when called from a
// goroutine currently running a reaction body (spec §6 "m.log_soup()").
const reactionThreadSentinel = "<log_soup: forbidden from reaction threads>"

// NewSite creates a reaction site with no molecules or reactions yet.
// Molecules are registered by constructing Emitter/BlockingEmitter values
// bound to this site; Install finalizes the reaction set.
func NewSite(opts ...SiteOption) *Site {
	cfg := siteConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.pool == nil {
		cfg.pool = NewFixedPool(cfg.name, runtime.GOMAXPROCS(0))
	}
	if cfg.reporter == nil {
		cfg.reporter = NoOpReporter{}
	}
	var rng *rand.Rand
	if cfg.rngSrc != nil {
		rng = rand.New(cfg.rngSrc)
	} else {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Site{
		name:           cfg.name,
		pool:           cfg.pool,
		reporter:       cfg.reporter,
		rng:            rng,
		nameIdx:        make(map[string]int),
		active:         true,
		emittedWaiters: make(map[int][]*observationSignal),
		schedWaiters:   make(map[int][]*observationSignal),
	}
}

// declareMolecule registers (or returns the existing index for) a named
// molecule. simple marks value types eligible for the counted-map bag
// strategy regardless of pipelining (spec §4.1).
func (s *Site) declareMolecule(name string, static, simple bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx, ok := s.nameIdx[name]; ok {
		return idx
	}
	idx := len(s.emitters)
	s.emitters = append(s.emitters, emitterMeta{name: name, static: static, simple: simple})
	s.bags = append(s.bags, nil) // chosen at Install once pipelining is known
	s.nameIdx[name] = idx
	return idx
}

// registerEmittedWaiter records sig to be resolved the next time idx's
// molecule is emitted, admitted or refused (spec §4.7 "when_emitted").
func (s *Site) registerEmittedWaiter(idx int, sig *observationSignal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emittedWaiters[idx] = append(s.emittedWaiters[idx], sig)
}

// registerSchedWaiter records sig to be resolved at the next scheduling
// attempt triggered by an emission of idx's molecule (spec §4.7
// "when_scheduled").
func (s *Site) registerSchedWaiter(idx int, sig *observationSignal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedWaiters[idx] = append(s.schedWaiters[idx], sig)
}

func resolveEmittedWaiters(waiters []*observationSignal, result EmittedResult) {
	for _, w := range waiters {
		w.resolve(result)
	}
}

func resolveSchedWaiters(waiters []*observationSignal, result ScheduledResult) {
	for _, w := range waiters {
		w.resolve(result)
	}
}

// isSimpleType reports whether a reflect.Type is a "simple" value per
// spec §4.1: unit (zero-size struct), small scalars, strings, or symbols.
func isSimpleType(t reflect.Type) bool {
	if t == nil {
		return true
	}
	switch t.Kind() {
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.String:
		return true
	case reflect.Struct:
		return t.NumField() == 0
	default:
		return false
	}
}

// Install finalizes the reaction set: validates bindings and shadowing
// (spec §6 "Site installation API"), computes each molecule's pipelined
// flag (spec §4.4), chooses each bag's backing strategy, and activates
// every reaction's search program (spec §4.5).
func (s *Site) Install(reactions ...*ReactionInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	errs := &SiteError{}

	for _, ri := range reactions {
		seen := make(map[int]bool)
		for _, in := range ri.Inputs {
			if in.MoleculeIndex < 0 || in.MoleculeIndex >= len(s.emitters) {
				errs.Add(fmt.Sprintf("reaction %q: input molecule index %d is not bound to this site", ri.Name, in.MoleculeIndex))
				continue
			}
			if in.site != nil && in.site != s {
				// Caught only when the pattern was built via
				// WildcardInput/MatchInput/ConstInput from a real emitter;
				// a bare-literal InputPattern (no site claim) skips this
				// check and falls back to the bounds check above.
				errs.Add(fmt.Sprintf("reaction %q: input molecule %q is bound to a different site", ri.Name, s.emitters[in.MoleculeIndex].name))
				continue
			}
			if seen[in.MoleculeIndex] {
				// repeated input: permitted by this core (DESIGN.md open
				// question 1), nothing to flag.
				continue
			}
			seen[in.MoleculeIndex] = true
		}
	}

	combined := append(append([]*ReactionInfo{}, s.reactions...), reactions...)
	for i := 0; i < len(combined); i++ {
		for j := i + 1; j < len(combined); j++ {
			if reactionsShadow(combined[i], combined[j]) {
				errs.Add(fmt.Sprintf("reactions %q and %q: unavoidable indeterminism (identical or irrefutably weaker input patterns)", combined[i].Name, combined[j].Name))
				s.reporter.LivelockDetected(s.name, combined[i].Name, combined[j].Name)
			}
		}
	}

	if errs.HasIssues() {
		return errs
	}

	s.reactions = combined

	for idx := range s.emitters {
		s.emitters[idx].pipelined = s.computePipelined(idx)
		if s.bags[idx] == nil {
			if s.emitters[idx].simple || s.emitters[idx].pipelined {
				s.bags[idx] = newCountedBag()
			} else {
				s.bags[idx] = newQueueBag()
			}
		}
	}

	for _, ri := range reactions {
		ri.activate()
	}

	return nil
}

// computePipelined implements spec §4.4: a molecule is pipelined at a
// site iff, across every reaction consuming it, either (a) the reaction
// has no condition on it and no other inputs, or (b) the condition is
// separable (not part of a cross guard) and the molecule does not appear
// repeated together with a conditional or cross guard.
func (s *Site) computePipelined(molIdx int) bool {
	touched := false
	for _, ri := range s.reactions {
		inCrossGuard := make(map[int]bool)
		for _, g := range ri.CrossGuards {
			for _, idx := range g.Indices {
				inCrossGuard[idx] = true
			}
		}
		occurrences := 0
		for _, in := range ri.Inputs {
			if in.MoleculeIndex == molIdx {
				occurrences++
			}
		}
		if occurrences == 0 {
			continue
		}
		touched = true
		for i, in := range ri.Inputs {
			if in.MoleculeIndex != molIdx {
				continue
			}
			hasCondition := !in.irrefutable()
			if !hasCondition && len(ri.Inputs) == 1 {
				continue // case (a)
			}
			if inCrossGuard[i] {
				return false // not separable
			}
			if occurrences > 1 && (hasCondition || inCrossGuard[i]) {
				return false // repeated together with a condition
			}
			if hasCondition && len(ri.Inputs) > 1 {
				// separable conditional input alongside other inputs: ok,
				// but only if it's not itself repeated-with-condition,
				// already checked above.
				continue
			}
		}
	}
	return touched || len(s.reactions) == 0
}

// Name returns the site's configured name.
func (s *Site) Name() string { return s.name }

// emit adds mv to the bag for idx, subject to the pipelined admission
// rule, then schedules a match attempt. Grounded on
// Environment.sendNotification's async-dispatch pattern for the
// post-admission hook.
func (s *Site) emit(idx int, mv MoleculeValue) error {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return ErrSiteInactive
	}
	meta := s.emitters[idx]
	if meta.pipelined {
		matchers := s.perMoleculeMatchers(idx)
		if len(matchers) > 0 && !anyMatches(matchers, mv.value) {
			waiters := s.emittedWaiters[idx]
			s.emittedWaiters[idx] = nil
			s.mu.Unlock()
			s.reporter.PipelinedEmissionRefused(s.name, meta.name)
			resolveEmittedWaiters(waiters, EmittedResult{Admitted: false})
			return nil // not an error: silently dropped per spec §7
		}
	}
	s.bags[idx].add(mv)
	waiters := s.emittedWaiters[idx]
	s.emittedWaiters[idx] = nil
	s.mu.Unlock()

	resolveEmittedWaiters(waiters, EmittedResult{Admitted: true})

	s.reporter.SchedulerAssigned(s.name, meta.name)
	triggerIdx := idx
	s.pool.RunScheduler(func() { s.attemptSchedule(triggerIdx) })
	return nil
}

// perMoleculeMatchers collects every per-molecule conditional (Match
// function) declared across all reactions for idx, used by the pipelined
// admission check.
func (s *Site) perMoleculeMatchers(idx int) []func(any) bool {
	var out []func(any) bool
	for _, ri := range s.reactions {
		for _, in := range ri.Inputs {
			if in.MoleculeIndex == idx && in.Match != nil {
				out = append(out, in.Match)
			}
		}
	}
	return out
}

func anyMatches(matchers []func(any) bool, v any) bool {
	for _, m := range matchers {
		if m(v) {
			return true
		}
	}
	return false
}

// attemptSchedule runs one scheduling attempt (spec §4.6): in randomized
// order, find a reaction whose inputs are all currently satisfiable, stage
// its inputs, atomically remove them from their bags, then dispatch the
// body on a worker. triggerIdx names the molecule index whose emission (or
// reinjection, for a retry reschedule) caused this attempt, and identifies
// which WhenScheduled waiters this attempt resolves (spec §4.7).
func (s *Site) attemptSchedule(triggerIdx int) {
	s.mu.Lock()

	order := s.rng.Perm(len(s.reactions))
	for _, ri := range orderedReactions(s.reactions, order) {
		staged, ok := s.tryMatch(ri)
		if !ok {
			continue
		}
		for idx, v := range staged {
			s.bags[ri.Inputs[idx].MoleculeIndex].remove(v)
		}
		waiters := s.schedWaiters[triggerIdx]
		s.schedWaiters[triggerIdx] = nil
		s.reporter.ReactionScheduled(s.name, ri.Name)
		s.mu.Unlock()
		resolveSchedWaiters(waiters, ScheduledResult{Fired: true, Reaction: ri.Name})
		for _, v := range staged {
			v.markConsumed()
		}
		s.dispatch(ri, staged)
		return
	}
	waiters := s.schedWaiters[triggerIdx]
	s.schedWaiters[triggerIdx] = nil
	s.mu.Unlock()
	resolveSchedWaiters(waiters, ScheduledResult{Fired: false})
}

func orderedReactions(reactions []*ReactionInfo, order []int) []*ReactionInfo {
	out := make([]*ReactionInfo, len(order))
	for i, idx := range order {
		out[i] = reactions[idx]
	}
	return out
}

// tryMatch attempts to satisfy ri against the current bag contents. Must
// be called with s.mu held.
func (s *Site) tryMatch(ri *ReactionInfo) (map[int]MoleculeValue, bool) {
	mult := ri.multiplicity()
	for molIdx, need := range mult {
		if s.bags[molIdx].count() < need {
			return nil, false
		}
	}
	if ri.StaticGuard != nil && !ri.StaticGuard() {
		return nil, false
	}

	staged := make(map[int]MoleculeValue)

	for _, i := range ri.independent {
		in := ri.Inputs[i]
		bag := s.bags[in.MoleculeIndex]
		if in.irrefutable() {
			continue // grouped below by molecule
		}
		meta := s.emitters[in.MoleculeIndex]
		v, ok := s.findIndependentCandidate(bag, in, meta.pipelined)
		if !ok {
			return nil, false
		}
		staged[i] = v
	}

	// Group irrefutable independent inputs by molecule and stage the first
	// non-stale values of that molecule's bag, one per input; nothing is
	// removed here (attemptSchedule removes the staged values on success).
	irrefutableByMol := make(map[int][]int)
	for _, i := range ri.independent {
		if ri.Inputs[i].irrefutable() {
			irrefutableByMol[ri.Inputs[i].MoleculeIndex] = append(irrefutableByMol[ri.Inputs[i].MoleculeIndex], i)
		}
	}
	for molIdx, idxs := range irrefutableByMol {
		candidates := s.bags[molIdx].allValues()
		usable := candidates[:0:0]
		for _, c := range candidates {
			if c.isBlocking() && c.reply.isStale() {
				continue
			}
			usable = append(usable, c)
		}
		if len(usable) < len(idxs) {
			return nil, false
		}
		for k, i := range idxs {
			staged[i] = usable[k]
		}
	}

	if len(ri.search) > 0 {
		get := func(inputIdx int, skip []MoleculeValue) []MoleculeValue {
			in := ri.Inputs[inputIdx]
			cands := s.bags[in.MoleculeIndex].allValuesSkipping(skip)
			out := cands[:0:0]
			for _, c := range cands {
				if c.isBlocking() && c.reply.isStale() {
					continue
				}
				if in.matches(c.value) {
					out = append(out, c)
				}
			}
			shuffleMoleculeValues(s.rng, out)
			return out
		}
		chosen, ok := runSearch(ri, get)
		if !ok {
			return nil, false
		}
		for idx, v := range chosen {
			staged[idx] = v
		}
	}

	return staged, true
}

// findIndependentCandidate picks one value satisfying in's predicate. For
// pipelined molecules only one value is tested: the first that the bag's
// find returns, which for the counted-map bag pipelined molecules use is an
// arbitrary entry, not the oldest one. For others the whole bag is scanned.
func (s *Site) findIndependentCandidate(bag moleculeBag, in InputPattern, pipelined bool) (MoleculeValue, bool) {
	if pipelined {
		head, ok := bag.find(func(MoleculeValue) bool { return true })
		if !ok {
			return MoleculeValue{}, false
		}
		if head.isBlocking() && head.reply.isStale() {
			return MoleculeValue{}, false
		}
		if !in.matches(head.value) {
			return MoleculeValue{}, false
		}
		return head, true
	}
	return bag.find(func(v MoleculeValue) bool {
		if v.isBlocking() && v.reply.isStale() {
			return false
		}
		return in.matches(v.value)
	})
}

func shuffleMoleculeValues(rng *rand.Rand, vs []MoleculeValue) {
	rng.Shuffle(len(vs), func(i, j int) { vs[i], vs[j] = vs[j], vs[i] })
}

// dispatch runs ri's body on a worker goroutine with the staged inputs,
// then performs the reply-discipline, static-reemission, and retry
// bookkeeping described in spec §4.6 "Dispatch of the body".
func (s *Site) dispatch(ri *ReactionInfo, staged map[int]MoleculeValue) {
	pool := s.pool
	if ri.Pool != nil {
		pool = ri.Pool
	}

	orderedStaged := make([]MoleculeValue, len(ri.Inputs))
	for i := range ri.Inputs {
		orderedStaged[i] = staged[i]
	}

	consumed := make(map[int]bool)
	for _, in := range ri.Inputs {
		if s.emitters[in.MoleculeIndex].static {
			consumed[in.MoleculeIndex] = true
		}
	}

	ti := &ThreadInfo{
		site:         s,
		reaction:     ri.Name,
		pool:         pool,
		consumed:     consumed,
		reemitCounts: make(map[int]int),
	}

	s.inflight.Add(1)
	pool.RunReaction(ri.Name, func() {
		defer s.inflight.Done()

		gid := goroutineID()
		s.workerGoroutines.Store(gid, true)
		defer s.workerGoroutines.Delete(gid)

		s.reporter.ReactionStarted(s.name, ri.Name)

		var bodyErr error
		func() {
			defer func() {
				if r := recover(); r != nil {
					bodyErr = fmt.Errorf("panic: %v", r)
				}
			}()
			ri.Body(ti, orderedStaged)
		}()

		for _, v := range orderedStaged {
			if v.isBlocking() && v.reply.hasNoReplyAttempted() {
				v.reply.fail(ErrNoReply)
				s.reporter.ReplyNeverSent(s.name, ri.Name)
			}
		}

		for molIdx := range consumed {
			if ti.reemitCounts[molIdx] != 1 {
				s.reporter.ReactionException(s.name, ri.Name,
					fmt.Errorf("static molecule %q reemitted %d times, want exactly 1", s.emitters[molIdx].name, ti.reemitCounts[molIdx]),
					false)
			}
		}

		if bodyErr != nil {
			if ri.Retry {
				s.reporter.ReactionException(s.name, ri.Name, bodyErr, true)
				s.mu.Lock()
				for i, v := range orderedStaged {
					s.bags[ri.Inputs[i].MoleculeIndex].add(v)
				}
				s.mu.Unlock()
				// No single emission triggers a retry's reschedule, so the
				// first reinjected input's molecule stands in as a nominal
				// WhenScheduled trigger (spec doesn't address this case).
				nominalTrigger := ri.Inputs[0].MoleculeIndex
				s.pool.RunScheduler(func() { s.attemptSchedule(nominalTrigger) })
			} else {
				s.reporter.ReactionException(s.name, ri.Name, bodyErr, false)
			}
			return
		}

		s.reporter.ReactionFinished(s.name, ri.Name)
	})
}

// reemitStatic records that ctx's reaction reemitted the static molecule
// at idx; called by Emitter.Reemit.
func (ti *ThreadInfo) reemitStatic(idx int) error {
	if !ti.consumed[idx] {
		return ErrStaticMisuse
	}
	ti.reemitCounts[idx]++
	return nil
}

// Close marks the site inactive (further emits return ErrSiteInactive),
// stops accepting new scheduling attempts, and waits for in-flight
// reaction bodies to finish. Grounded on Environment.Stop's stop-channel
// pattern (internal/achem/environment.go), generalized to draining rather
// than just flipping a running flag since bodies here run on worker
// goroutines outside the site's own control.
func (s *Site) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.active = false
	pendingEmitted := s.emittedWaiters
	pendingSched := s.schedWaiters
	s.emittedWaiters = make(map[int][]*observationSignal)
	s.schedWaiters = make(map[int][]*observationSignal)
	s.mu.Unlock()

	for _, waiters := range pendingEmitted {
		resolveEmittedWaiters(waiters, EmittedResult{Admitted: false})
	}
	for _, waiters := range pendingSched {
		resolveSchedWaiters(waiters, ScheduledResult{Fired: false})
	}

	s.inflight.Wait()
}

// DebugSoup renders the current bag contents per molecule, for the
// forbidden-from-reaction-threads diagnostic named in spec §6
// (m.log_soup()). Grounded on internal/achem/persistence.go's Snapshot
// rendering, trimmed to a read-only debug string since persistence is a
// spec Non-goal.
func (s *Site) DebugSoup() string {
	if _, onWorker := s.workerGoroutines.Load(goroutineID()); onWorker {
		return reactionThreadSentinel
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := "soup(" + s.name + "):"
	for idx, meta := range s.emitters {
		out += fmt.Sprintf(" %s=%d", meta.name, s.bags[idx].count())
	}
	return out
}

// goroutineID extracts the calling goroutine's runtime-assigned ID by
// parsing the "goroutine N [running]:" header runtime.Stack emits. Go
// exposes no public goroutine-identity API; this is the standard
// workaround for a thread-local-shaped problem (used here to tell whether
// DebugSoup is being called from a reaction worker, spec §6).
func goroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	fields := bytes.Fields(buf[:n])
	if len(fields) < 2 {
		return -1
	}
	id, err := strconv.ParseInt(string(fields[1]), 10, 64)
	if err != nil {
		return -1
	}
	return id
}

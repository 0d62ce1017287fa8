package join

import "reflect"

// moleculeBag is a multiset of MoleculeValue for one molecule index at one
// site. All operations are only ever called while the owning site holds its
// lock (see site.go), so implementations need no internal synchronization.
type moleculeBag interface {
	add(v MoleculeValue)
	remove(v MoleculeValue) bool
	takeOne() (MoleculeValue, bool)
	takeAny(n int) ([]MoleculeValue, bool)
	find(pred func(MoleculeValue) bool) (MoleculeValue, bool)
	allValues() []MoleculeValue
	allValuesSkipping(skip []MoleculeValue) []MoleculeValue
	count() int
	countOf(value any) int
}

// sameMoleculeValue compares two staged copies for the purposes of
// "already chosen, skip it" bookkeeping during repeated-input search.
// reflect.DeepEqual is used instead of == because payloads are not
// guaranteed to be comparable (slices, maps). The consumption signal is
// compared too, so an instance emitted via EmitUntilConsumed is never
// mistaken for an equal-valued copy without one.
func sameMoleculeValue(a, b MoleculeValue) bool {
	return a.reply == b.reply && a.consumed == b.consumed && reflect.DeepEqual(a.value, b.value)
}

// removeFirstMatch returns the index of the first element in vs equal to
// target by sameMoleculeValue, or -1 if none matched; it does not modify vs.
func removeFirstMatch(vs []MoleculeValue, target MoleculeValue) int {
	for i, v := range vs {
		if sameMoleculeValue(v, target) {
			return i
		}
	}
	return -1
}

// countedBag is a map-backed multiset used for simple-valued molecules
// (unit, scalars, strings, symbols) and for pipelined molecules regardless
// of value shape. It keys by the payload value directly when comparable,
// falling back to a list scan otherwise (defensive; activation is expected
// to only select this strategy for genuinely comparable/simple types).
type countedBag struct {
	items map[any][]MoleculeValue
	n     int
}

func newCountedBag() *countedBag {
	return &countedBag{items: make(map[any][]MoleculeValue)}
}

func (b *countedBag) add(v MoleculeValue) {
	b.items[v.value] = append(b.items[v.value], v)
	b.n++
}

func (b *countedBag) remove(v MoleculeValue) bool {
	list, ok := b.items[v.value]
	if !ok {
		return false
	}
	idx := removeFirstMatch(list, v)
	if idx < 0 {
		return false
	}
	list = append(list[:idx], list[idx+1:]...)
	if len(list) == 0 {
		delete(b.items, v.value)
	} else {
		b.items[v.value] = list
	}
	b.n--
	return true
}

func (b *countedBag) takeOne() (MoleculeValue, bool) {
	for key, list := range b.items {
		if len(list) == 0 {
			continue
		}
		v := list[0]
		b.removeExact(key, 0)
		return v, true
	}
	return MoleculeValue{}, false
}

func (b *countedBag) removeExact(key any, idx int) {
	list := b.items[key]
	list = append(list[:idx], list[idx+1:]...)
	if len(list) == 0 {
		delete(b.items, key)
	} else {
		b.items[key] = list
	}
	b.n--
}

func (b *countedBag) takeAny(n int) ([]MoleculeValue, bool) {
	if n <= 0 {
		return nil, true
	}
	if b.n < n {
		return nil, false
	}
	out := make([]MoleculeValue, 0, n)
	for key, list := range b.items {
		for len(list) > 0 && len(out) < n {
			out = append(out, list[0])
			list = list[1:]
			b.n--
		}
		if len(list) == 0 {
			delete(b.items, key)
		} else {
			b.items[key] = list
		}
		if len(out) == n {
			break
		}
	}
	return out, true
}

func (b *countedBag) find(pred func(MoleculeValue) bool) (MoleculeValue, bool) {
	for _, list := range b.items {
		for _, v := range list {
			if pred(v) {
				return v, true
			}
		}
	}
	return MoleculeValue{}, false
}

func (b *countedBag) allValues() []MoleculeValue {
	out := make([]MoleculeValue, 0, b.n)
	for _, list := range b.items {
		out = append(out, list...)
	}
	return out
}

func (b *countedBag) allValuesSkipping(skip []MoleculeValue) []MoleculeValue {
	return skipValues(b.allValues(), skip)
}

func (b *countedBag) count() int { return b.n }

func (b *countedBag) countOf(value any) int {
	return len(b.items[value])
}

// queueBag is an insertion-ordered multiset, used for molecules whose value
// type is not simple (structs, slices, maps) and that are not pipelined.
type queueBag struct {
	items []MoleculeValue
}

func newQueueBag() *queueBag {
	return &queueBag{}
}

func (b *queueBag) add(v MoleculeValue) {
	b.items = append(b.items, v)
}

func (b *queueBag) remove(v MoleculeValue) bool {
	idx := removeFirstMatch(b.items, v)
	if idx < 0 {
		return false
	}
	b.items = append(b.items[:idx], b.items[idx+1:]...)
	return true
}

func (b *queueBag) takeOne() (MoleculeValue, bool) {
	if len(b.items) == 0 {
		return MoleculeValue{}, false
	}
	v := b.items[0]
	b.items = b.items[1:]
	return v, true
}

func (b *queueBag) takeAny(n int) ([]MoleculeValue, bool) {
	if n <= 0 {
		return nil, true
	}
	if len(b.items) < n {
		return nil, false
	}
	out := append([]MoleculeValue(nil), b.items[:n]...)
	b.items = b.items[n:]
	return out, true
}

func (b *queueBag) find(pred func(MoleculeValue) bool) (MoleculeValue, bool) {
	for _, v := range b.items {
		if pred(v) {
			return v, true
		}
	}
	return MoleculeValue{}, false
}

func (b *queueBag) allValues() []MoleculeValue {
	out := make([]MoleculeValue, len(b.items))
	copy(out, b.items)
	return out
}

func (b *queueBag) allValuesSkipping(skip []MoleculeValue) []MoleculeValue {
	return skipValues(b.allValues(), skip)
}

func (b *queueBag) count() int { return len(b.items) }

func (b *queueBag) countOf(value any) int {
	n := 0
	for _, v := range b.items {
		if reflect.DeepEqual(v.value, value) {
			n++
		}
	}
	return n
}

// skipValues returns vs with each multiplicity in skip removed once.
func skipValues(vs []MoleculeValue, skip []MoleculeValue) []MoleculeValue {
	if len(skip) == 0 {
		return vs
	}
	remaining := append([]MoleculeValue(nil), skip...)
	out := make([]MoleculeValue, 0, len(vs))
	for _, v := range vs {
		matched := false
		for i, s := range remaining {
			if sameMoleculeValue(v, s) {
				remaining = append(remaining[:i], remaining[i+1:]...)
				matched = true
				break
			}
		}
		if !matched {
			out = append(out, v)
		}
	}
	return out
}

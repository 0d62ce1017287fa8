package join

import "testing"

func TestCountedBag_AddRemoveCount(t *testing.T) {
	b := newCountedBag()
	if b.count() != 0 {
		t.Fatalf("expected empty bag, got count %d", b.count())
	}

	b.add(nonBlockingValue(1))
	b.add(nonBlockingValue(1))
	b.add(nonBlockingValue(2))

	if got := b.count(); got != 3 {
		t.Fatalf("expected count 3, got %d", got)
	}
	if got := b.countOf(1); got != 2 {
		t.Fatalf("expected countOf(1) == 2, got %d", got)
	}

	v, ok := b.find(func(mv MoleculeValue) bool { return mv.value == 2 })
	if !ok || v.value != 2 {
		t.Fatalf("expected to find value 2, got %v ok=%v", v, ok)
	}

	if !b.remove(v) {
		t.Fatal("expected remove to succeed")
	}
	if got := b.count(); got != 2 {
		t.Fatalf("expected count 2 after remove, got %d", got)
	}
	if b.remove(v) {
		t.Fatal("expected second remove of the same value to fail")
	}
}

func TestCountedBag_TakeOneAndTakeAny(t *testing.T) {
	b := newCountedBag()
	for i := 0; i < 5; i++ {
		b.add(nonBlockingValue(i))
	}

	if _, ok := b.takeOne(); !ok {
		t.Fatal("expected takeOne to succeed on non-empty bag")
	}
	if got := b.count(); got != 4 {
		t.Fatalf("expected count 4 after takeOne, got %d", got)
	}

	vals, ok := b.takeAny(3)
	if !ok || len(vals) != 3 {
		t.Fatalf("expected takeAny(3) to return 3 values, got %d ok=%v", len(vals), ok)
	}
	if got := b.count(); got != 1 {
		t.Fatalf("expected count 1 after takeAny(3), got %d", got)
	}

	if _, ok := b.takeAny(5); ok {
		t.Fatal("expected takeAny to fail when insufficient count")
	}
}

func TestQueueBag_PreservesInsertionOrderForTakeOne(t *testing.T) {
	b := newQueueBag()
	b.add(nonBlockingValue("a"))
	b.add(nonBlockingValue("b"))
	b.add(nonBlockingValue("c"))

	first, ok := b.takeOne()
	if !ok || first.value != "a" {
		t.Fatalf("expected first taken value 'a', got %v", first.value)
	}
	second, ok := b.takeOne()
	if !ok || second.value != "b" {
		t.Fatalf("expected second taken value 'b', got %v", second.value)
	}
}

func TestQueueBag_CountOf_UsesDeepEqual(t *testing.T) {
	b := newQueueBag()
	b.add(nonBlockingValue([]int{1, 2}))
	b.add(nonBlockingValue([]int{1, 2}))
	b.add(nonBlockingValue([]int{3}))

	if got := b.countOf([]int{1, 2}); got != 2 {
		t.Fatalf("expected countOf([1,2]) == 2 via DeepEqual, got %d", got)
	}
}

func TestSkipValues_RemovesEachMultiplicityOnce(t *testing.T) {
	a, b, c := nonBlockingValue(1), nonBlockingValue(1), nonBlockingValue(2)
	vs := []MoleculeValue{a, b, c}

	out := skipValues(vs, []MoleculeValue{a})
	if len(out) != 2 {
		t.Fatalf("expected 2 remaining values, got %d", len(out))
	}
	foundOne := 0
	for _, v := range out {
		if v.value == 1 {
			foundOne++
		}
	}
	if foundOne != 1 {
		t.Fatalf("expected exactly one remaining value == 1, got %d", foundOne)
	}
}

func TestAllValuesSkipping_OnBothBagKinds(t *testing.T) {
	cb := newCountedBag()
	cb.add(nonBlockingValue(1))
	cb.add(nonBlockingValue(1))
	all := cb.allValues()
	skipped := cb.allValuesSkipping(all[:1])
	if len(skipped) != 1 {
		t.Fatalf("expected 1 value left after skipping one, got %d", len(skipped))
	}

	qb := newQueueBag()
	qb.add(nonBlockingValue("x"))
	qb.add(nonBlockingValue("x"))
	allQ := qb.allValues()
	skippedQ := qb.allValuesSkipping(allQ[:1])
	if len(skippedQ) != 1 {
		t.Fatalf("expected 1 value left after skipping one, got %d", len(skippedQ))
	}
}

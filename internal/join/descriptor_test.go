package join

import "testing"

func TestInputPattern_Irrefutable(t *testing.T) {
	tests := []struct {
		name string
		p    InputPattern
		want bool
	}{
		{"wildcard", InputPattern{Kind: PatternWildcard}, true},
		{"var without match", InputPattern{Kind: PatternVar}, true},
		{"var with match", InputPattern{Kind: PatternVar, Match: func(any) bool { return true }}, false},
		{"const", InputPattern{Kind: PatternConst, Const: 1}, false},
		{"other irrefutable", InputPattern{Kind: PatternOther, Irrefutable: true}, true},
		{"other refutable", InputPattern{Kind: PatternOther, Irrefutable: false}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.irrefutable(); got != tt.want {
				t.Errorf("irrefutable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInputPattern_Matches(t *testing.T) {
	even := InputPattern{Kind: PatternVar, Match: func(v any) bool { return v.(int)%2 == 0 }}
	if !even.matches(4) {
		t.Error("expected 4 to match even predicate")
	}
	if even.matches(3) {
		t.Error("expected 3 not to match even predicate")
	}

	constPattern := InputPattern{Kind: PatternConst, Const: "x"}
	if !constPattern.matches("x") {
		t.Error("expected exact constant match")
	}
	if constPattern.matches("y") {
		t.Error("expected mismatch on different constant")
	}
}

func TestReactionInfo_Multiplicity(t *testing.T) {
	ri := &ReactionInfo{
		Inputs: []InputPattern{
			{MoleculeIndex: 0},
			{MoleculeIndex: 0},
			{MoleculeIndex: 1},
		},
	}
	mult := ri.multiplicity()
	if mult[0] != 2 || mult[1] != 1 {
		t.Fatalf("unexpected multiplicity: %v", mult)
	}
}

func TestReactionInfo_RepeatedGroups(t *testing.T) {
	ri := &ReactionInfo{
		Inputs: []InputPattern{
			{MoleculeIndex: 0},
			{MoleculeIndex: 0},
			{MoleculeIndex: 1},
		},
	}
	groups := ri.repeatedGroups()
	if len(groups) != 1 {
		t.Fatalf("expected exactly one repeated group, got %d", len(groups))
	}
	if idxs, ok := groups[0]; !ok || len(idxs) != 2 {
		t.Fatalf("expected molecule 0 repeated twice, got %v", idxs)
	}
}

func TestReactionInfo_Activate_ClassifiesIndependentVsCrossGroup(t *testing.T) {
	ri := &ReactionInfo{
		Inputs: []InputPattern{
			{MoleculeIndex: 0, Kind: PatternWildcard},
			{MoleculeIndex: 1, Kind: PatternVar, Match: func(any) bool { return true }},
			{MoleculeIndex: 2, Kind: PatternVar, Match: func(any) bool { return true }},
		},
		CrossGuards: []CrossGuard{
			{Indices: []int{1, 2}, Predicate: func(vals []any) bool { return true }},
		},
	}
	ri.activate()

	if len(ri.independent) != 1 || ri.independent[0] != 0 {
		t.Fatalf("expected input 0 to be independent, got %v", ri.independent)
	}
	if !ri.crossGroup[1] || !ri.crossGroup[2] {
		t.Fatalf("expected inputs 1 and 2 to be in the cross group, got %v", ri.crossGroup)
	}
	if len(ri.search) == 0 {
		t.Fatal("expected a non-empty compiled search program")
	}
}

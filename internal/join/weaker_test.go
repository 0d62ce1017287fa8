package join

import "testing"

func TestMatcherIsWeakerThan(t *testing.T) {
	wildcard := InputPattern{Kind: PatternWildcard}
	constFive := InputPattern{Kind: PatternConst, Const: 5}
	constSix := InputPattern{Kind: PatternConst, Const: 6}
	varAny := InputPattern{Kind: PatternVar}
	varEven := InputPattern{Kind: PatternVar, Match: func(v any) bool { return v.(int)%2 == 0 }}

	tests := []struct {
		name string
		a, b InputPattern
		want bool
	}{
		{"wildcard weaker than anything", wildcard, constFive, true},
		{"identical constants", constFive, constFive, true},
		{"different constants", constFive, constSix, false},
		{"unconditional var weaker than anything", varAny, constFive, true},
		{"conditional var weaker than matching constant", varEven, constSix, true},
		{"conditional var not weaker than non-matching constant", varEven, constFive, false},
		{"const never weaker than var", constFive, varAny, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := matcherIsWeakerThan(tt.a, tt.b); got != tt.want {
				t.Errorf("matcherIsWeakerThan() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReactionsShadow_IdenticalWildcardsShadow(t *testing.T) {
	a := &ReactionInfo{Name: "a", Inputs: []InputPattern{{MoleculeIndex: 0, Kind: PatternWildcard}}}
	b := &ReactionInfo{Name: "b", Inputs: []InputPattern{{MoleculeIndex: 0, Kind: PatternWildcard}}}
	if !reactionsShadow(a, b) {
		t.Fatal("expected two wildcard reactions on the same molecule to shadow each other")
	}
}

func TestReactionsShadow_DisjointConstantsDoNotShadow(t *testing.T) {
	a := &ReactionInfo{Name: "a", Inputs: []InputPattern{{MoleculeIndex: 0, Kind: PatternConst, Const: 1}}}
	b := &ReactionInfo{Name: "b", Inputs: []InputPattern{{MoleculeIndex: 0, Kind: PatternConst, Const: 2}}}
	if reactionsShadow(a, b) {
		t.Fatal("expected reactions matching disjoint constants not to shadow")
	}
}

func TestReactionsShadow_DifferentMoleculeSetsDoNotShadow(t *testing.T) {
	a := &ReactionInfo{Name: "a", Inputs: []InputPattern{{MoleculeIndex: 0, Kind: PatternWildcard}}}
	b := &ReactionInfo{Name: "b", Inputs: []InputPattern{{MoleculeIndex: 1, Kind: PatternWildcard}}}
	if reactionsShadow(a, b) {
		t.Fatal("expected reactions over different molecules not to shadow")
	}
}

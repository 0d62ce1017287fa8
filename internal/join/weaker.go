package join

// matcherIsWeakerThan implements the spec §6 weaker-than relation used to
// detect unavoidable indeterminism (livelock) between two reactions that
// both consume the same molecule: pattern a is weaker than pattern b iff
// every value matched by b is also matched by a.
func matcherIsWeakerThan(a, b InputPattern) bool {
	// Wildcard, variable-without-condition, and irrefutable-other are
	// weaker than anything on the same molecule.
	if a.irrefutable() {
		return true
	}

	switch a.Kind {
	case PatternConst:
		// A constant is weaker only than the identical constant.
		return b.Kind == PatternConst && a.Const == b.Const
	case PatternVar, PatternOther:
		// A conditional pattern can only be shown weaker than a known
		// constant pattern by applying its predicate to that constant;
		// against anything else the relation is unknown.
		if b.Kind == PatternConst && a.Match != nil {
			return a.Match(b.Const)
		}
		return false
	default:
		return false
	}
}

// reactionsShadow reports whether two reactions installed on the same
// molecule set are identical (shadowing) or whether one's inputs are
// irrefutably weaker than the other's over the same inputs, either of
// which makes the outcome of a match unavoidably indeterminate.
func reactionsShadow(a, b *ReactionInfo) bool {
	if len(a.Inputs) != len(b.Inputs) {
		return false
	}
	byMol := func(ri *ReactionInfo) map[int][]InputPattern {
		m := make(map[int][]InputPattern)
		for _, in := range ri.Inputs {
			m[in.MoleculeIndex] = append(m[in.MoleculeIndex], in)
		}
		return m
	}
	am, bm := byMol(a), byMol(b)
	if len(am) != len(bm) {
		return false
	}

	aWeakerThanB := true
	bWeakerThanA := true
	for mol, aPats := range am {
		bPats, ok := bm[mol]
		if !ok || len(aPats) != len(bPats) {
			return false
		}
		for i := range aPats {
			if !matcherIsWeakerThan(aPats[i], bPats[i]) {
				aWeakerThanB = false
			}
			if !matcherIsWeakerThan(bPats[i], aPats[i]) {
				bWeakerThanA = false
			}
		}
	}
	return aWeakerThanB || bWeakerThanA
}

package join

import "sort"

// searchOp is one instruction in a reaction's precomputed search program
// (spec §4.5).
type searchOp int

const (
	opChooseMol searchOp = iota
	opConstrainGuard
	opCloseGroup
)

type searchInstr struct {
	op       searchOp
	inputIdx int // for opChooseMol: position in ReactionInfo.Inputs
	guardIdx int // for opConstrainGuard: position in ReactionInfo.CrossGuards
}

// unionFind is a minimal disjoint-set structure used to group cross-
// constrained inputs into connected components.
type unionFind struct{ parent map[int]int }

func newUnionFind(elems []int) *unionFind {
	uf := &unionFind{parent: make(map[int]int, len(elems))}
	for _, e := range elems {
		uf.parent[e] = e
	}
	return uf
}

func (uf *unionFind) find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

func (uf *unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra != rb {
		uf.parent[ra] = rb
	}
}

// compileSearch generates the linear search program for a reaction's
// cross-constrained inputs (those in ri.crossGroup), per the generation
// rule in spec §4.5: connectivity is shared cross-guard membership or a
// repeated-input constraint; within each connected component, inputs are
// ordered by decreasing number of cross-group memberships, ties broken by
// placing refutable matchers before irrefutable ones.
func compileSearch(ri *ReactionInfo) []searchInstr {
	if len(ri.crossGroup) == 0 {
		return nil
	}

	members := make([]int, 0, len(ri.crossGroup))
	for idx := range ri.crossGroup {
		members = append(members, idx)
	}
	sort.Ints(members)

	uf := newUnionFind(members)
	for _, g := range ri.CrossGuards {
		var prev = -1
		for _, idx := range g.Indices {
			if !ri.crossGroup[idx] {
				continue
			}
			if prev >= 0 {
				uf.union(prev, idx)
			}
			prev = idx
		}
	}
	for _, idxs := range ri.repeatedGroups() {
		var prev = -1
		for _, idx := range idxs {
			if !ri.crossGroup[idx] {
				continue
			}
			if prev >= 0 {
				uf.union(prev, idx)
			}
			prev = idx
		}
	}

	components := make(map[int][]int)
	for _, idx := range members {
		root := uf.find(idx)
		components[root] = append(components[root], idx)
	}

	membership := make(map[int]int, len(members))
	for _, g := range ri.CrossGuards {
		for _, idx := range g.Indices {
			membership[idx]++
		}
	}

	var roots []int
	for root := range components {
		roots = append(roots, root)
	}
	sort.Ints(roots)

	var instrs []searchInstr
	for _, root := range roots {
		comp := components[root]
		sort.SliceStable(comp, func(i, j int) bool {
			mi, mj := membership[comp[i]], membership[comp[j]]
			if mi != mj {
				return mi > mj
			}
			return !ri.Inputs[comp[i]].irrefutable() && ri.Inputs[comp[j]].irrefutable()
		})

		emittedGuard := make(map[int]bool)
		chosenSoFar := make(map[int]bool)
		for _, idx := range comp {
			instrs = append(instrs, searchInstr{op: opChooseMol, inputIdx: idx})
			chosenSoFar[idx] = true
			for gi, g := range ri.CrossGuards {
				if emittedGuard[gi] || !allIndicesChosen(g.Indices, chosenSoFar) {
					continue
				}
				instrs = append(instrs, searchInstr{op: opConstrainGuard, guardIdx: gi})
				emittedGuard[gi] = true
			}
		}
		instrs = append(instrs, searchInstr{op: opCloseGroup})
	}
	return instrs
}

func allIndicesChosen(indices []int, chosen map[int]bool) bool {
	for _, i := range indices {
		if !chosen[i] {
			return false
		}
	}
	return true
}

// candidateFunc supplies, for a given input position and the set of values
// already staged for the same molecule index (to be excluded per
// allValuesSkipping), the admissible candidates currently in the soup.
type candidateFunc func(inputIdx int, skipSameMolecule []MoleculeValue) []MoleculeValue

// runSearch executes ri's compiled search program via backtracking,
// returning the staged input array (by Inputs-slice position) on success.
func runSearch(ri *ReactionInfo, get candidateFunc) (map[int]MoleculeValue, bool) {
	if len(ri.search) == 0 {
		return map[int]MoleculeValue{}, true
	}
	chosen := make(map[int]MoleculeValue)
	if !searchStep(ri, ri.search, 0, chosen, get) {
		return nil, false
	}
	return chosen, true
}

func searchStep(ri *ReactionInfo, instrs []searchInstr, pos int, chosen map[int]MoleculeValue, get candidateFunc) bool {
	if pos >= len(instrs) {
		return true
	}
	instr := instrs[pos]
	switch instr.op {
	case opChooseMol:
		molIdx := ri.Inputs[instr.inputIdx].MoleculeIndex
		var skip []MoleculeValue
		for i, v := range chosen {
			if ri.Inputs[i].MoleculeIndex == molIdx {
				skip = append(skip, v)
			}
		}
		for _, cand := range get(instr.inputIdx, skip) {
			chosen[instr.inputIdx] = cand
			if searchStep(ri, instrs, pos+1, chosen, get) {
				return true
			}
			delete(chosen, instr.inputIdx)
		}
		return false
	case opConstrainGuard:
		g := ri.CrossGuards[instr.guardIdx]
		vals := make([]any, len(g.Indices))
		for i, idx := range g.Indices {
			vals[i] = chosen[idx].value
		}
		if !g.Predicate(vals) {
			return false
		}
		return searchStep(ri, instrs, pos+1, chosen, get)
	case opCloseGroup:
		return searchStep(ri, instrs, pos+1, chosen, get)
	default:
		return false
	}
}

package sat

import "sort"

// analyze implements First-UIP conflict analysis (spec §4.6): given the
// clause BCP just reported as falsified, it resolves backward along the
// trail until exactly one literal from the current decision level remains,
// producing a learnt clause, the level to backtrack to, and the resolution
// history (for Proof, when storeProof is enabled).
func (s *Solver) analyze(conflict *Clause) (learnt []Atom, backtrackLevel int, history []*Clause) {
	st := s.store
	st.clearSeen()

	conflictLevel := 0
	for _, a := range conflict.Atoms() {
		if lvl := st.Level(a.Var()); lvl > conflictLevel {
			conflictLevel = lvl
		}
	}

	s.tmpLearnt = append(s.tmpLearnt[:0], NoAtom) // slot 0 reserved for the UIP
	s.tmpHistory = append(s.tmpHistory[:0], conflict)
	pathC := 0

	resolve := func(atoms []Atom) {
		for _, q := range atoms {
			v := q.Var()
			if st.SeenVar(v) {
				continue
			}
			st.SetSeenVar(v, true)
			lvl := st.Level(v)
			switch {
			case lvl == 0:
				// Resolved away at the root: it contributes nothing to the
				// learnt clause, but its own antecedent still belongs to
				// the resolution history.
				if r := st.Reason(v); r.kind == reasonBCP {
					s.tmpHistory = append(s.tmpHistory, r.clause)
				}
			case lvl < conflictLevel:
				s.tmpLearnt = append(s.tmpLearnt, q.Neg())
				st.bumpVarActivity(v)
			default:
				pathC++
				st.bumpVarActivity(v)
			}
		}
	}

	resolve(conflict.explainConflict())
	if conflict.removable() {
		s.bumpClauseActivity(conflict)
	}

	trail := st.Trail()
	idx := len(trail) - 1
	var pivot Atom
	for {
		for {
			pivot = trail[idx]
			idx--
			if st.SeenVar(pivot.Var()) {
				break
			}
		}
		pathC--
		if pathC <= 0 {
			break
		}
		v := pivot.Var()
		r := st.Reason(v)
		switch r.kind {
		case reasonBCP:
			c := r.clause
			if c.removable() {
				s.bumpClauseActivity(c)
			}
			s.tmpHistory = append(s.tmpHistory, c)
			resolve(c.explainAssign())
		case reasonLazy:
			resolve(r.lazy.Force())
		}
	}

	s.tmpLearnt[0] = pivot.Neg()
	learnt = append([]Atom(nil), s.tmpLearnt...)
	history = append([]*Clause(nil), s.tmpHistory...)

	var nMinimized int
	learnt, nMinimized = s.minimizeLearnt(learnt)
	s.nMinimizedAway += int64(nMinimized)

	sort.Slice(learnt, func(i, j int) bool {
		return st.Level(learnt[i].Var()) > st.Level(learnt[j].Var())
	})

	switch {
	case len(learnt) == 1:
		backtrackLevel = 0
	case st.Level(learnt[0].Var()) > st.Level(learnt[1].Var()):
		backtrackLevel = st.Level(learnt[1].Var())
	default:
		backtrackLevel = st.Level(learnt[0].Var()) - 1
		if backtrackLevel < 0 {
			backtrackLevel = 0
		}
	}

	return learnt, backtrackLevel, history
}

// minimizeLearnt drops literals from learnt[1:] that are redundant: a
// literal is redundant if its antecedent atoms are all either already in
// the learnt clause or themselves redundant by the same rule (spec §4.6's
// "recursive, level-bounded minimization"). The UIP at index 0 is never
// removed. Returns the minimized clause (reusing the input slice's backing
// array) and the number of literals dropped.
func (s *Solver) minimizeLearnt(learnt []Atom) ([]Atom, int) {
	st := s.store

	var abstractLevels uint32
	for _, a := range learnt {
		abstractLevels |= 1 << uint(st.Level(a.Var())%32)
	}

	kept := learnt[:1]
	removed := 0
	for _, a := range learnt[1:] {
		if s.isRedundant(a, abstractLevels) {
			removed++
			continue
		}
		kept = append(kept, a)
	}
	return kept, removed
}

// isRedundant performs the iterative (non-recursive) reachability check:
// atom a is redundant if every antecedent of its assignment is either
// already marked seen (part of the learnt clause's resolution trace) or
// sits at a decision level present in abstractLevels and is itself
// redundant. Decisions and atoms with no BCP/lazy reason are never
// redundant.
func (s *Solver) isRedundant(a Atom, abstractLevels uint32) bool {
	st := s.store

	pending := append(s.tmpRedundant[:0], a)
	marked := s.tmpMarked[:0]
	redundant := true

analyze:
	for len(pending) > 0 {
		cur := pending[len(pending)-1]
		pending = pending[:len(pending)-1]

		r := st.Reason(cur.Var())
		if r.IsNone() || r.IsDecision() {
			redundant = false
			break analyze
		}

		var atoms []Atom
		switch r.kind {
		case reasonBCP:
			atoms = r.clause.explainAssign()
		case reasonLazy:
			atoms = r.lazy.Force()
		}

		for _, q := range atoms {
			qv := q.Var()
			if st.SeenVar(qv) {
				continue
			}
			if st.Level(qv) == 0 {
				continue // always safe: the empty context implies it
			}
			if abstractLevels&(1<<uint(st.Level(qv)%32)) == 0 {
				redundant = false
				break analyze
			}
			st.SetSeenVar(qv, true)
			marked = append(marked, qv)
			pending = append(pending, q)
		}
	}

	if !redundant {
		for _, v := range marked {
			st.SetSeenVar(v, false)
		}
	}
	s.tmpRedundant = pending[:0]
	s.tmpMarked = marked[:0]
	return redundant
}

// analyzeFinal computes a local unsat core after an assumption atom is
// found already false: it traces back through the reasons of every atom
// reachable from failed's variable, collecting the assumption-decision
// atoms encountered along the way (spec §4.8, "unsat_assumptions"). This is
// only called while every decision on the trail is still assumption-forced
// (pick_branch never reaches the activity heap until all assumptions are
// exhausted), so every reasonDecision atom found here is itself one of the
// assumptions.
func (s *Solver) analyzeFinal(failed Atom) []Atom {
	st := s.store
	st.clearSeen()

	core := []Atom{failed}
	st.SetSeenVar(failed.Var(), true)

	trail := st.Trail()
	for i := len(trail) - 1; i >= 0; i-- {
		a := trail[i]
		v := a.Var()
		if !st.SeenVar(v) {
			continue
		}
		if st.Level(v) == 0 {
			continue
		}
		r := st.Reason(v)
		if r.IsDecision() {
			core = append(core, a)
			continue
		}
		var atoms []Atom
		switch r.kind {
		case reasonBCP:
			atoms = r.clause.explainAssign()
		case reasonLazy:
			atoms = r.lazy.Force()
		}
		for _, q := range atoms {
			st.SetSeenVar(q.Var(), true)
		}
	}

	return core
}

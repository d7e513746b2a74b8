package sat

// Theory is the background-theory plugin contract (spec §6, §4.8). The core
// never implements a concrete theory (congruence closure, linear
// arithmetic, ...): those are host collaborators, entirely out of scope
// for this module (spec §1).
type Theory interface {
	// HasTheory reports whether CDCL(T) bookkeeping (theory propagation,
	// partial/final checks) should run at all. A pure-SAT solver passes a
	// Theory with HasTheory() == false; its PartialCheck and FinalCheck are
	// then never called, while PushLevel and PopLevels still are.
	HasTheory() bool

	// PushLevel / PopLevels give the theory the same push/pop level
	// discipline as the trail, so its state can be restored to any earlier
	// level by matched calls (spec §5).
	PushLevel()
	PopLevels(n int)

	// PartialCheck is invoked at every BCP fixpoint with the slice of
	// atoms assigned since the last theory call (spec §4.5).
	PartialCheck(acts TrailSlice, actions TheoryActions)

	// FinalCheck is invoked once BCP reaches a total Boolean assignment
	// with no pending theory work. If it returns without the theory
	// calling AddClause/AddDecisionLit/RaiseConflict, the search concludes
	// SAT (spec §4.8).
	FinalCheck(acts TrailSlice, actions TheoryActions)
}

// Assigned is one opaque formula exposed to the theory, together with its
// current truth value (spec §4.8, "iter_assumptions").
type Assigned struct {
	Formula Formula
	Value   bool
}

// TrailSlice is the read-only window of assigned formulas a theory callback
// is allowed to observe: the atoms assigned since the last theory call
// during PartialCheck, or the whole trail during FinalCheck.
type TrailSlice struct {
	store *Store
	atoms []Atom
}

// Len returns the number of assigned formulas in the slice.
func (ts TrailSlice) Len() int {
	return len(ts.atoms)
}

// At returns the i-th assigned formula.
func (ts TrailSlice) At(i int) Assigned {
	a := ts.atoms[i]
	return Assigned{
		Formula: formulaOf(ts.store, a),
		Value:   true, // every atom on the trail is, by construction, true
	}
}

// formulaOf returns the formula corresponding to atom a, applying its sign.
func formulaOf(st *Store, a Atom) Formula {
	f := st.Formula(a.Var())
	if a.Sign() {
		return f.Neg()
	}
	return f
}

// TheoryActions is the set of actions a Theory callback may take while
// processing a PartialCheck/FinalCheck (spec §4.8). All buffered effects
// (new clauses, decision hints) are flushed by the search loop before the
// next BCP round. A raised conflict takes effect once the callback returns;
// clauses buffered during that same callback are then dropped.
type TheoryActions interface {
	// EvalLit returns the current truth value of f's literal, or LUndef if
	// f has no atom yet or is unassigned.
	EvalLit(f Formula) LBool

	// MkLit returns (allocating if necessary) the atom for f.
	MkLit(f Formula) Atom

	// AddDecisionLit appends f (with the given sign) to the list of
	// pending decision hints consumed by pick_branch, unless f is already
	// valued.
	AddDecisionLit(f Formula, sign bool)

	// AddClause buffers a new clause to be attached once the current
	// check returns. keep requests the clause be treated as permanent
	// rather than reducible.
	AddClause(atoms []Atom, lemma Lemma, keep bool)

	// Propagate enqueues f at the current level with a lazily-forced
	// explanation. If f is already false, it raises a theory conflict
	// instead; if already true, it is a no-op. Returns false iff a
	// conflict was raised.
	Propagate(f Formula, reason func() []Atom) bool

	// RaiseConflict immediately signals a theory conflict, attaching a
	// removable clause built from atoms with a Lemma premise.
	RaiseConflict(atoms []Atom, lemma Lemma)
}

// NopTheory is a Theory with HasTheory() == false: the search loop never
// calls its PartialCheck or FinalCheck, and its PushLevel/PopLevels, which
// the trail still calls, do nothing.
type NopTheory struct{}

func (NopTheory) HasTheory() bool                                 { return false }
func (NopTheory) PushLevel()                                      {}
func (NopTheory) PopLevels(int)                                   {}
func (NopTheory) PartialCheck(TrailSlice, TheoryActions)          {}
func (NopTheory) FinalCheck(TrailSlice, TheoryActions)            {}

// Package sat implements a CDCL(T) engine: two-watched-literal Boolean
// constraint propagation over packed literal atoms, VSIDS branching,
// First-UIP conflict analysis with clause minimization, non-chronological
// backtracking, geometric restarts, clause-database reduction, a pluggable
// theory bridge for CDCL(T) interleaving, and resolution-proof
// reconstruction.
package sat

import (
	"fmt"
	"log"
	"os"
	"sort"
)

// Status is the outcome of a Solve call.
type Status int8

const (
	StatusUnknown Status = iota
	StatusSat
	StatusUnsat
)

func (s Status) String() string {
	switch s {
	case StatusSat:
		return "sat"
	case StatusUnsat:
		return "unsat"
	default:
		return "unknown"
	}
}

// Options configures a Solver (spec §6's create({size, store_proof, ...})
// factory).
type Options struct {
	Size SizeHint

	// StoreProof enables resolution-history bookkeeping so GetProof can
	// reconstruct a certificate after an unsat result. It costs extra
	// bookkeeping on every conflict, so it defaults to off.
	StoreProof bool

	// Observer receives conflict/decision/new-atom notifications. Nil is
	// treated as NopObserver{}.
	Observer SearchObserver

	// ClauseDecay and VarDecay divide the respective activity increments
	// after every conflict, so the increments grow (spec §4.2, §4.7); both
	// default to the teacher's MiniSat-derived constants.
	ClauseDecay float64
	VarDecay    float64

	Logger *log.Logger
}

// DefaultOptions mirrors the teacher's solver defaults, generalized with
// the proof/observer knobs spec §6 adds.
var DefaultOptions = Options{
	Size:        SizeSmall,
	StoreProof:  false,
	Observer:    NopObserver{},
	ClauseDecay: 0.999,
	VarDecay:    0.95,
	Logger:      log.New(os.Stderr, "yasst: ", log.LstdFlags),
}

type pendingClause struct {
	atoms []Atom
	lemma Lemma
	keep  bool
}

// Solver drives the CDCL(T) search loop over a Store (spec §4.7's
// SearchLoop / §5's host integration).
type Solver struct {
	store    *Store
	theory   Theory
	observer SearchObserver
	logger   *log.Logger

	storeProof bool

	hyps    []*Clause
	learnts []*Clause

	clauseIncr  float64
	clauseDecay float64
	varDecay    float64

	// Buffers written by the TheoryActions bridge during PartialCheck and
	// FinalCheck; valid only for the duration of that call.
	nextDecisions   []Atom
	clausesToAdd    []pendingClause
	thConflict      bool
	thConflictAtoms []Atom
	thConflictLemma Lemma

	assumptions []Atom

	unsatAt0         bool
	unsatAssumptions []Atom
	lastConflict     *Clause
	cachedEmptyClause *Clause
	proof            *Proof

	nConflicts     int64
	nDecisions     int64
	nPropagations  int64
	nRestarts      int64
	nMinimizedAway int64

	// Scratch buffers reused across analyze/minimize calls to avoid
	// reallocating on every conflict.
	tmpLearnt    []Atom
	tmpHistory   []*Clause
	tmpRedundant []Atom
	tmpMarked    []Variable
}

// NewSolver creates a Solver bridged to theory (use NopTheory{} for plain
// propositional CDCL) with the given options. Observer, ClauseDecay,
// VarDecay and Logger left at their zero value take DefaultOptions' values;
// Size and StoreProof are used as given (a zero Size is SizeTiny).
func NewSolver(theory Theory, opts Options) *Solver {
	if opts.Observer == nil {
		opts.Observer = NopObserver{}
	}
	if opts.ClauseDecay == 0 {
		opts.ClauseDecay = DefaultOptions.ClauseDecay
	}
	if opts.VarDecay == 0 {
		opts.VarDecay = DefaultOptions.VarDecay
	}
	if opts.Logger == nil {
		opts.Logger = DefaultOptions.Logger
	}
	if theory == nil {
		theory = NopTheory{}
	}

	s := &Solver{
		store:       NewStore(opts.Size),
		theory:      theory,
		observer:    opts.Observer,
		logger:      opts.Logger,
		storeProof:  opts.StoreProof,
		clauseIncr:  1,
		clauseDecay: opts.ClauseDecay,
		varDecay:    opts.VarDecay,
	}
	if s.storeProof {
		s.proof = newProof()
	}
	return s
}

// NewDefaultSolver returns a plain propositional solver with DefaultOptions.
func NewDefaultSolver() *Solver {
	return NewSolver(NopTheory{}, DefaultOptions)
}

// AllocAtom interns f and returns its atom, notifying the observer of newly
// created variables (spec §4.1).
func (s *Solver) AllocAtom(f Formula) Atom {
	before := s.store.NumVariables()
	a := s.store.AllocAtom(f)
	if s.store.NumVariables() != before {
		s.observer.OnNewAtom(a)
	}
	return a
}

// AddClause adds a permanent hypothesis clause over the given formulas,
// interning each one. It first clears any assignment a satisfiable Solve
// left on the trail, so the clause is added at decision level 0 (spec
// §4.3). lemma is attached to the clause's premise when proof storage is
// enabled.
func (s *Solver) AddClause(fs []Formula, lemma Lemma) error {
	atoms := make([]Atom, len(fs))
	for i, f := range fs {
		atoms[i] = s.AllocAtom(f)
	}
	return s.AddClauseAtoms(atoms, lemma)
}

// Assume adds a CNF (a list of clauses, each a list of formulas) as
// permanent hypotheses (spec §4.3's "assume").
func (s *Solver) Assume(cnf [][]Formula, lemma Lemma) error {
	for _, clause := range cnf {
		if err := s.AddClause(clause, lemma); err != nil {
			return err
		}
	}
	return nil
}

// AddClauseAtoms is the atom-level form of AddClause.
func (s *Solver) AddClauseAtoms(atoms []Atom, lemma Lemma) error {
	s.store.cancelUntil(0, s.theory)
	if s.store.decisionLevel() != 0 {
		return fmt.Errorf("yasst: AddClause called at decision level %d, want 0", s.store.decisionLevel())
	}
	premise := EmptyPremise
	if s.storeProof {
		premise = HypPremise(lemma)
	}
	c, ok := makeClause(s.store, atoms, premise, true, false, false)
	if !ok {
		s.unsatAt0 = true
		return nil
	}
	if c != nil {
		s.hyps = append(s.hyps, c)
	}
	return nil
}

// Solve searches for a satisfying assignment, treating assumptions as
// additional decisions forced before any heap-chosen branch (spec §4.8).
// Pass nil for plain CDCL. The search starts from decision level 0. On
// StatusSat the satisfying assignment stays on the trail (readable through
// Eval, EvalLevel and IterTrail) until the next AddClause or Solve call;
// on any other result the solver is back at level 0.
func (s *Solver) Solve(assumptions []Atom) Status {
	if s.unsatAt0 {
		s.lastConflict = nil
		return StatusUnsat
	}

	s.store.cancelUntil(0, s.theory)
	s.assumptions = assumptions
	s.unsatAssumptions = nil

	nConflictsBudget := 100.0
	nLearntsBudget := float64(len(s.hyps)) / 3

	status := StatusUnknown
	for status == StatusUnknown {
		status = s.search(nConflictsBudget, nLearntsBudget)
		nConflictsBudget *= 1.5
		nLearntsBudget *= 1.1
	}

	if status != StatusSat {
		s.store.cancelUntil(0, s.theory)
	}
	return status
}

// search runs propagate/analyze/decide until it reaches a verdict or its
// restart budget is exhausted, in which case it backs out to level 0 and
// returns StatusUnknown so Solve can grow the budgets and retry (spec
// §4.7).
func (s *Solver) search(nConflictsBudget, nLearntsBudget float64) Status {
	st := s.store
	conflictCount := 0.0

	for {
		conflict := s.propagate()
		if conflict != nil {
			s.nConflicts++
			conflictCount++
			s.observer.OnConflict(conflict)

			if st.decisionLevel() == 0 || allAtLevelZero(st, conflict) {
				s.lastConflict = conflict
				return StatusUnsat
			}

			learnt, backtrackLevel, history := s.analyze(conflict)
			st.cancelUntil(backtrackLevel, s.theory)
			s.record(learnt, history)

			st.decayVarActivity(s.varDecay)
			s.decayClauseActivity()
			continue
		}

		if conflictCount >= nConflictsBudget {
			st.cancelUntil(0, s.theory)
			s.nRestarts++
			return StatusUnknown
		}

		if float64(len(s.learnts))-float64(st.NumAssigns()) > nLearntsBudget {
			s.reduceDB()
		}

		switch s.pickBranch() {
		case branchSat:
			return StatusSat
		case branchUnsat:
			return StatusUnsat
		}
	}
}

func allAtLevelZero(st *Store, c *Clause) bool {
	for _, a := range c.Atoms() {
		if st.Level(a.Var()) > 0 {
			return false
		}
	}
	return true
}

type branchOutcome int

const (
	branchContinue branchOutcome = iota
	branchSat
	branchUnsat
)

// pickBranch implements spec §4.7's three-tier branching priority: pending
// theory-requested decisions, then assumption forcing (with local unsat
// core extraction on contradiction), then the VSIDS heap.
func (s *Solver) pickBranch() branchOutcome {
	st := s.store

	for len(s.nextDecisions) > 0 {
		a := s.nextDecisions[0]
		s.nextDecisions = s.nextDecisions[1:]
		if st.IsUndef(a) {
			s.decideAtom(a)
			return branchContinue
		}
	}

	if st.decisionLevel() < len(s.assumptions) {
		a := s.assumptions[st.decisionLevel()]
		switch st.AtomValue(a) {
		case LTrue:
			// Already forced true by an earlier level; push a pseudo-level
			// to keep decision-level/assumption-index alignment and move
			// on to the next assumption.
			st.newDecisionLevel(s.theory)
			return branchContinue
		case LFalse:
			s.unsatAssumptions = s.analyzeFinal(a)
			s.lastConflict = nil
			return branchUnsat
		default:
			s.decideAtom(a)
			return branchContinue
		}
	}

	for {
		v, ok := st.popMaxVar()
		if !ok {
			return branchSat
		}
		if !st.IsUndef(PosAtom(v)) {
			continue // already assigned by a prior propagation
		}
		a := PosAtom(v)
		if !st.DefaultPolarity(v) {
			a = NegAtom(v)
		}
		s.decideAtom(a)
		return branchContinue
	}
}

func (s *Solver) decideAtom(a Atom) {
	st := s.store
	st.newDecisionLevel(s.theory)
	st.enqueue(a, st.decisionLevel(), DecisionReason)
	s.nDecisions++
	s.observer.OnDecision(a, st.decisionLevel())
}

// record attaches the learnt clause and enqueues its UIP (spec §4.6's
// final step, run after backtracking to backtrackLevel). Only clauses of
// length >= 3 join the reducible learnt pool; shorter ones are attached
// permanently since they are too valuable to ever discard via reduceDB.
func (s *Solver) record(learnt []Atom, history []*Clause) {
	premise := EmptyPremise
	if s.storeProof {
		premise = HistoryPremise(history)
	}
	reducible := len(learnt) >= 3
	c, ok := makeClause(s.store, learnt, premise, false, reducible, false)
	if !ok {
		// An empty learnt clause means top-level UNSAT; the search loop
		// already checks for this before calling analyze, so this should
		// be unreachable in practice.
		s.unsatAt0 = true
		return
	}
	if c != nil {
		if reducible {
			s.learnts = append(s.learnts, c)
		} else {
			s.hyps = append(s.hyps, c)
		}
		s.store.enqueue(learnt[0], s.store.decisionLevel(), BCPReason(c))
	}
}

func (s *Solver) bumpClauseActivity(c *Clause) {
	c.activity += s.clauseIncr
	if c.activity > 1e20 {
		for _, l := range s.learnts {
			l.activity *= 1e-20
		}
		s.clauseIncr *= 1e-20
	}
}

func (s *Solver) decayClauseActivity() {
	s.clauseIncr /= s.clauseDecay
}

// simplify drops satisfied clauses at decision level 0, both hypotheses and
// learnts (spec §4.3).
func (s *Solver) simplify() {
	if s.store.decisionLevel() != 0 {
		return
	}
	s.simplifyClauses(&s.hyps)
	s.simplifyClauses(&s.learnts)
}

func (s *Solver) simplifyClauses(clauses *[]*Clause) {
	cs := *clauses
	j := 0
	for _, c := range cs {
		if c.dead() {
			continue
		}
		if c.simplify(s.store) {
			c.detach(s.store)
			continue
		}
		cs[j] = c
		j++
	}
	*clauses = cs[:j]
}

// reduceDB marks the lower-activity half of the learnt clauses dead, plus
// any clause of the upper half whose activity is below
// clauseIncr/len(learnts), skipping any clause currently locked as a
// propagation reason (spec §4.7). Dead clauses are reclaimed lazily the next time BCP walks their
// watch list (spec §4.3, §9), so reduceDB only needs to drop them from the
// bookkeeping slice here.
func (s *Solver) reduceDB() {
	if len(s.learnts) == 0 {
		return
	}
	st := s.store
	lim := s.clauseIncr / float64(len(s.learnts))

	sort.Slice(s.learnts, func(i, j int) bool {
		return s.learnts[i].activity < s.learnts[j].activity
	})

	half := len(s.learnts) / 2
	kept := s.learnts[:0]
	for i, c := range s.learnts {
		switch {
		case c.locked(st):
			kept = append(kept, c)
		case i < half:
			c.markDead()
		case c.activity < lim:
			c.markDead()
		default:
			kept = append(kept, c)
		}
	}
	s.learnts = kept
}

// propagate drives the Boolean fixpoint, interleaving the theory at every
// point the trail grows: after each BCP fixpoint the theory's PartialCheck
// sees the newly assigned slice, and once the assignment is total (and no
// theory work remains pending) FinalCheck gets the whole trail (spec §4.5,
// "CDCL(T) interleaving").
func (s *Solver) propagate() *Clause {
	st := s.store
	start := st.NumAssigns()
	defer func() { s.nPropagations += int64(st.NumAssigns() - start) }()

	for {
		if conflict := st.propagateBool(); conflict != nil {
			return conflict
		}

		if s.unsatAt0 {
			return s.emptyClause()
		}

		if st.eltHead > st.thHead {
			from := st.thHead
			st.thHead = st.eltHead
			if s.theory.HasTheory() {
				slice := TrailSlice{store: st, atoms: st.TrailSlice(from)}
				if conflict := s.runTheoryCheck(slice, false); conflict != nil {
					return conflict
				}
				continue // buffered clauses/atoms may enable more BCP
			}
			continue
		}

		if st.NumAssigns() == st.NumVariables() && s.theory.HasTheory() {
			slice := TrailSlice{store: st, atoms: st.Trail()}
			if conflict := s.runTheoryCheck(slice, true); conflict != nil {
				return conflict
			}
			if st.NumAssigns() != st.NumVariables() || st.eltHead < len(st.Trail()) {
				continue // FinalCheck added atoms/clauses: recheck BCP
			}
		}

		return nil
	}
}

func (s *Solver) runTheoryCheck(slice TrailSlice, final bool) *Clause {
	s.clausesToAdd = s.clausesToAdd[:0]
	s.thConflict = false

	actions := theoryActions{s: s}
	if final {
		s.theory.FinalCheck(slice, actions)
	} else {
		s.theory.PartialCheck(slice, actions)
	}

	if s.thConflict {
		return s.flushTheoryConflict()
	}
	return s.flushClausesToAdd()
}

func (s *Solver) emptyClause() *Clause {
	if s.cachedEmptyClause == nil {
		premise := EmptyPremise
		if s.storeProof {
			premise = HistoryPremise(nil)
		}
		s.cachedEmptyClause = &Clause{cid: s.store.nextCID(), premise: premise}
	}
	return s.cachedEmptyClause
}

func (s *Solver) flushTheoryConflict() *Clause {
	premise := EmptyPremise
	if s.storeProof {
		premise = LemmaPremise(s.thConflictLemma)
	}
	c, ok := makeClause(s.store, s.thConflictAtoms, premise, false, true, true)
	if !ok {
		s.unsatAt0 = true
		return s.emptyClause()
	}
	if c == nil {
		// Collapsed to an atom already satisfied: the theory's conflict
		// claim didn't hold by the time it reached the clause layer.
		return nil
	}
	return c
}

// flushClausesToAdd attaches every clause buffered by TheoryActions.AddClause
// since the last check. A clause that is already fully falsified is
// reported back via the return value so the search loop can analyze it like
// any other conflict; one that forces a unit has already been enqueued by
// makeClause itself, whether it collapsed to a single atom or kept two
// watches and propagated through its free-watch path.
func (s *Solver) flushClausesToAdd() *Clause {
	st := s.store
	pending := s.clausesToAdd
	s.clausesToAdd = nil

	var conflict *Clause
	for _, pc := range pending {
		premise := EmptyPremise
		if s.storeProof {
			premise = LemmaPremise(pc.lemma)
		}
		c, ok := makeClause(st, pc.atoms, premise, false, !pc.keep, true)
		if !ok {
			s.unsatAt0 = true
			continue
		}
		if c == nil {
			continue
		}
		if pc.keep {
			s.hyps = append(s.hyps, c)
		} else {
			s.learnts = append(s.learnts, c)
		}
		if conflict == nil && st.AtomValue(c.Atoms()[0]) == LFalse {
			conflict = c
		}
	}
	if s.unsatAt0 {
		return s.emptyClause()
	}
	return conflict
}

// Eval reports the current truth value of formula f without allocating a
// new atom for it; unseen formulas report LUndef.
func (s *Solver) Eval(f Formula) LBool {
	canon, sign := f.Norm()
	key := formulaKey{hash: canon.Hash()}
	v, ok := s.store.lookupInterned(key, canon)
	if !ok {
		return LUndef
	}
	a := PosAtom(v)
	if sign == Negated {
		a = NegAtom(v)
	}
	return s.store.AtomValue(a)
}

// EvalLevel returns the decision level at which f's atom was assigned, or
// -1 if it is unassigned or was never allocated.
func (s *Solver) EvalLevel(f Formula) int {
	canon, _ := f.Norm()
	key := formulaKey{hash: canon.Hash()}
	v, ok := s.store.lookupInterned(key, canon)
	if !ok {
		return -1
	}
	return s.store.Level(v)
}

// TrueAtLevel0 reports whether f is permanently settled true.
func (s *Solver) TrueAtLevel0(f Formula) bool {
	return s.Eval(f) == LTrue && s.EvalLevel(f) == 0
}

// IterTrail calls fn for every atom on the trail, in assignment order.
func (s *Solver) IterTrail(fn func(a Atom, level int)) {
	for _, a := range s.store.Trail() {
		fn(a, s.store.Level(a.Var()))
	}
}

// UnsatConflict returns the root conflict clause from the last unsat
// Solve() call, or nil if the result was unsat purely due to an assumption
// contradiction (see UnsatAssumptions).
func (s *Solver) UnsatConflict() *Clause {
	return s.lastConflict
}

// UnsatAssumptions returns the local unsat core computed when Solve found
// the assumptions themselves contradictory, or nil otherwise.
func (s *Solver) UnsatAssumptions() []Atom {
	return s.unsatAssumptions
}

// GetProof reconstructs a resolution proof from the last unsat result.
// Requires Options.StoreProof; returns an error otherwise.
func (s *Solver) GetProof() (*Proof, error) {
	if !s.storeProof {
		return nil, fmt.Errorf("yasst: GetProof requires Options.StoreProof")
	}
	if s.lastConflict == nil {
		return nil, fmt.Errorf("yasst: GetProof called without a root conflict to expand")
	}
	s.proof.root = s.lastConflict
	return s.proof, nil
}

// ProveUnsat reconstructs the proof's empty-clause derivation, resolving
// every literal of the root conflict down to a clause-backed unit (spec
// §4.9). It requires GetProof to have been called first.
func (s *Solver) ProveUnsat() (*Clause, error) {
	return s.proof.ProveUnsat(s.store)
}

func (s *Solver) NumConflicts() int64     { return s.nConflicts }
func (s *Solver) NumDecisions() int64     { return s.nDecisions }
func (s *Solver) NumPropagations() int64  { return s.nPropagations }
func (s *Solver) NumRestarts() int64      { return s.nRestarts }
func (s *Solver) NumMinimizedAway() int64 { return s.nMinimizedAway }
func (s *Solver) DecisionLevel() int      { return s.store.DecisionLevel() }
func (s *Solver) NumClauses() int         { return len(s.hyps) + len(s.learnts) }
func (s *Solver) NumVariables() int       { return s.store.NumVariables() }

// theoryActions is the concrete TheoryActions bridge handed to Theory
// callbacks during PartialCheck/FinalCheck (spec §4.5).
type theoryActions struct {
	s *Solver
}

func (ta theoryActions) EvalLit(f Formula) LBool {
	return ta.s.store.AtomValue(ta.s.store.AllocAtom(f))
}

func (ta theoryActions) MkLit(f Formula) Atom {
	return ta.s.AllocAtom(f)
}

func (ta theoryActions) AddDecisionLit(f Formula, sign bool) {
	s := ta.s
	a := s.AllocAtom(f)
	if !sign {
		a = a.Neg()
	}
	if s.store.IsUndef(a) {
		s.nextDecisions = append(s.nextDecisions, a)
	}
}

func (ta theoryActions) AddClause(atoms []Atom, lemma Lemma, keep bool) {
	ta.s.clausesToAdd = append(ta.s.clausesToAdd, pendingClause{atoms: atoms, lemma: lemma, keep: keep})
}

func (ta theoryActions) Propagate(f Formula, reason func() []Atom) bool {
	s := ta.s
	st := s.store
	a := s.AllocAtom(f)
	switch st.AtomValue(a) {
	case LTrue:
		return true
	case LFalse:
		atoms := []Atom{a}
		for _, q := range reason() {
			atoms = append(atoms, q.Neg())
		}
		ta.RaiseConflict(atoms, nil)
		return false
	default:
		lr := NewLazyReason(reason)
		st.enqueue(a, st.decisionLevel(), LazyBCPReason(lr))
		return true
	}
}

func (ta theoryActions) RaiseConflict(atoms []Atom, lemma Lemma) {
	ta.s.thConflict = true
	ta.s.thConflictAtoms = atoms
	ta.s.thConflictLemma = lemma
}

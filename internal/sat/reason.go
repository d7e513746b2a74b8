package sat

// reasonKind distinguishes the four ways a variable can come to be assigned
// (spec §9, "Lazy BCP reasons"): Reason = Decision | Bcp(clause) |
// BcpLazy(suspended-computation), plus the implicit "none" used for
// unassigned variables.
type reasonKind uint8

const (
	reasonNone reasonKind = iota
	reasonDecision
	reasonBCP
	reasonLazy
)

// Reason records why a variable was assigned: nothing (unassigned), a
// branching decision, a clause that propagated it via BCP, or a theory
// explanation that is only computed if conflict analysis actually reaches
// it.
type Reason struct {
	kind   reasonKind
	clause *Clause
	lazy   *LazyReason
}

// NoReason is the zero Reason: the variable is unassigned.
var NoReason = Reason{kind: reasonNone}

// DecisionReason marks a variable as having been assigned by branching.
var DecisionReason = Reason{kind: reasonDecision}

// BCPReason wraps the clause that forced a unit propagation.
func BCPReason(c *Clause) Reason {
	return Reason{kind: reasonBCP, clause: c}
}

// LazyBCPReason wraps a theory explanation that is materialized lazily.
func LazyBCPReason(lr *LazyReason) Reason {
	return Reason{kind: reasonLazy, lazy: lr}
}

// IsDecision reports whether the reason is a branching decision.
func (r Reason) IsDecision() bool {
	return r.kind == reasonDecision
}

// IsNone reports whether the variable has no antecedent at all.
func (r Reason) IsNone() bool {
	return r.kind == reasonNone
}

// Clause returns the antecedent clause for a BCP reason, or nil otherwise.
// Useful for clause-locking checks (§4.3 "locked").
func (r Reason) Clause() *Clause {
	if r.kind == reasonBCP {
		return r.clause
	}
	return nil
}

// LazyReason is a memoized, force-on-demand theory explanation (spec §9:
// "the suspension must be referentially transparent (force-memoized)").
// compute must return the set of atoms whose negation, together with the
// propagated atom, forms the implicit antecedent clause.
type LazyReason struct {
	compute func() []Atom
	forced  bool
	atoms   []Atom
}

// NewLazyReason wraps compute in a memoized suspension.
func NewLazyReason(compute func() []Atom) *LazyReason {
	return &LazyReason{compute: compute}
}

// Force computes (once) and returns the explanation atoms.
func (lr *LazyReason) Force() []Atom {
	if !lr.forced {
		lr.atoms = lr.compute()
		lr.forced = true
		lr.compute = nil // allow captured state to be collected
	}
	return lr.atoms
}

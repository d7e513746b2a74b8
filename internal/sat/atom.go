package sat

import "fmt"

// Variable is the dense, non-negative identity of a propositional variable
// (spec §3). Variables are allocated in order by the Store and never reused.
type Variable int32

// Atom is a signed occurrence of a variable (a literal), packed as
// (vid << 1) | sign so that negation, the variable id, and the sign bit are
// all O(1), branchless operations (spec §9, "Atom polarity encoding"). The
// raw integer is never exposed outside this package; callers only ever see
// the Atom type and its accessor methods.
type Atom int32

// NoAtom is the sentinel (-1) used where no atom applies (e.g. the
// conflict pseudo-literal during analysis).
const NoAtom Atom = -1

// PosAtom returns the positive (unnegated) atom of variable v.
func PosAtom(v Variable) Atom {
	return Atom(v << 1)
}

// NegAtom returns the negative (negated) atom of variable v.
func NegAtom(v Variable) Atom {
	return Atom(v<<1) ^ 1
}

// Var returns the variable underlying a.
func (a Atom) Var() Variable {
	return Variable(a >> 1)
}

// Sign reports whether a is the negated occurrence of its variable.
func (a Atom) Sign() bool {
	return a&1 != 0
}

// Neg returns the complementary atom: neg(a) = a xor 1.
func (a Atom) Neg() Atom {
	return a ^ 1
}

// Abs returns the positive atom of a's variable: abs(a) = a & ^1.
func (a Atom) Abs() Atom {
	return a &^ 1
}

func (a Atom) String() string {
	if a == NoAtom {
		return "<none>"
	}
	if a.Sign() {
		return fmt.Sprintf("-%d", a.Var())
	}
	return fmt.Sprintf("%d", a.Var())
}

// Sign describes the relationship between a formula and its canonical form,
// as returned by Formula.Norm (spec §6).
type Sign uint8

const (
	// SameSign means the canonical form is logically equal to the formula.
	SameSign Sign = iota
	// Negated means the canonical form is the negation of the formula.
	Negated
)

// Formula is the opaque, host-supplied atomic-formula type that the engine
// attaches Boolean structure to. The core never inspects a Formula's
// contents; it only canonicalizes, compares, hashes, and pretty-prints it
// (spec §1, "formula representation ... is opaque, supplied by the host").
type Formula interface {
	// Norm returns a canonical representative of the formula along with
	// whether the formula is the canonical form itself or its negation.
	// Two formulas that are complementary must normalize to the same
	// canonical representative with opposite Sign.
	Norm() (Formula, Sign)
	// Neg returns the logical negation of the formula.
	Neg() Formula
	// Equal reports whether two (already-canonical) formulas are identical.
	Equal(other Formula) bool
	// Hash returns a hash consistent with Equal.
	Hash() uint64
	String() string
}

// Lemma is an opaque host-supplied certificate attached to hypothesis or
// theory clauses (spec §3, §6). The core never interprets it.
type Lemma any

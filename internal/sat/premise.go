package sat

// premiseKind enumerates the ways a clause can be justified (spec §3).
type premiseKind uint8

const (
	premiseEmpty premiseKind = iota // EmptyPremise: proof tracking disabled
	premiseHyp                      // Hyp(lemma): top-level user input
	premiseLemma                    // Lemma(lemma): produced by the theory
	premiseHistory                  // History([c1..ck]): resolution of parents
)

// Premise is the justification attached to a clause. It is a closed sum
// type: exactly one of the Hyp/Lemma/History/EmptyPremise shapes applies,
// selected by kind. Caller-supplied assumptions never get a premise of
// their own: they stay proof-external, tracked only through
// Solver.UnsatAssumptions (spec §4.8), which is why there is no
// Local/assumption variant here.
type Premise struct {
	kind    premiseKind
	lemma   Lemma
	history []*Clause
}

// HypPremise builds the premise of a permanent, top-level hypothesis clause.
func HypPremise(lemma Lemma) Premise {
	return Premise{kind: premiseHyp, lemma: lemma}
}

// LemmaPremise builds the premise of a clause produced by the background
// theory.
func LemmaPremise(lemma Lemma) Premise {
	return Premise{kind: premiseLemma, lemma: lemma}
}

// HistoryPremise builds the premise of a learnt clause, recording the
// resolution chain that derived it. history[0] is the starting (conflict)
// clause; the rest are resolved against it in order.
func HistoryPremise(history []*Clause) Premise {
	return Premise{kind: premiseHistory, history: history}
}

// EmptyPremise marks a clause whose justification is not tracked (proof
// reconstruction disabled).
var EmptyPremise = Premise{kind: premiseEmpty}

// IsEmpty reports whether proof tracking was disabled for this clause.
func (p Premise) IsEmpty() bool {
	return p.kind == premiseEmpty
}

// IsHistory reports whether p is a resolution-derived premise. It does not
// check whether the history is empty.
func (p Premise) IsHistory() bool {
	return p.kind == premiseHistory
}

// History returns the resolution chain for a History premise (nil otherwise).
func (p Premise) History() []*Clause {
	return p.history
}

// Lemma returns the attached lemma for Hyp/Lemma premises (nil otherwise).
func (p Premise) Lemma() Lemma {
	return p.lemma
}

func (p Premise) String() string {
	switch p.kind {
	case premiseHyp:
		return "Hyp"
	case premiseLemma:
		return "Lemma"
	case premiseHistory:
		return "History"
	default:
		return "EmptyPremise"
	}
}

package sat

import (
	"fmt"

	"github.com/kr/pretty"
)

// Proof reconstructs a resolution DAG from a solver's clause premises after
// an Unsat result (spec §4.9). It is only meaningful when Options.StoreProof
// was set; Solver.GetProof returns an error otherwise.
type Proof struct {
	root *Clause
}

func newProof() *Proof {
	return &Proof{}
}

// Root returns the top of the proof DAG: the raw root conflict until
// ProveUnsat runs, after which it is the synthesized empty clause.
func (p *Proof) Root() *Clause {
	return p.root
}

// Prove validates that c carries a real premise (not EmptyPremise, and not
// a History with zero parents) and returns it unchanged.
func (p *Proof) Prove(c *Clause) (*Clause, error) {
	if c.Premise().IsEmpty() {
		return nil, fmt.Errorf("yasst: no-proof: clause %d has no tracked premise", c.CID())
	}
	if c.Premise().IsHistory() && len(c.Premise().History()) == 0 {
		return nil, fmt.Errorf("yasst: resolution error: clause %d has an empty History premise", c.CID())
	}
	return c, nil
}

// ProveUnsat resolves the root conflict down to the empty clause: for every
// one of its (falsified) literals it recursively derives the unit clause
// proving the literal's negation, then wraps the whole thing in a History
// premise listing the conflict and each per-literal proof (spec §4.9). The
// resulting clause replaces Root, so a later UnsatCore/Fold walks the
// complete derivation rather than stopping at whatever premise the raw
// conflict happened to carry (a root conflict that is itself a hypothesis,
// as in a clause falsified purely by unit propagation, carries a Hyp
// premise with no History of its own until this runs).
func (p *Proof) ProveUnsat(st *Store) (*Clause, error) {
	if p.root == nil {
		return nil, fmt.Errorf("yasst: no conflict recorded to prove unsat")
	}
	if p.root.Len() == 0 {
		return p.root, nil
	}

	history := make([]*Clause, 0, p.root.Len()+1)
	history = append(history, p.root)
	for _, a := range p.root.Atoms() {
		unit, err := p.proveAtomUnit(st, a.Neg(), map[Variable]bool{})
		if err != nil {
			return nil, err
		}
		history = append(history, unit)
	}
	p.root = &Clause{cid: st.nextCID(), premise: HistoryPremise(history)}
	return p.root, nil
}

// proveAtomUnit materializes a proof of the unit clause {a}: if a's reason
// is a length-1 clause, that clause already *is* the proof; otherwise a
// fresh length-1 clause is synthesized with a History premise resolving the
// reason clause against a recursive proof of each of its other literals.
// inProgress guards against a malformed (cyclic) reason graph, which would
// indicate a solver-internal invariant violation.
func (p *Proof) proveAtomUnit(st *Store, a Atom, inProgress map[Variable]bool) (*Clause, error) {
	v := a.Var()
	if inProgress[v] {
		return nil, fmt.Errorf("yasst: resolution error: cyclic reason chain while proving variable %d", v)
	}
	inProgress[v] = true
	defer delete(inProgress, v)

	r := st.Reason(v)
	switch r.kind {
	case reasonBCP:
		c := r.clause
		if c.Len() == 1 {
			return c, nil
		}
		hist := make([]*Clause, 0, c.Len())
		hist = append(hist, c)
		for _, q := range c.Atoms() {
			if q == a {
				continue
			}
			unit, err := p.proveAtomUnit(st, q.Neg(), inProgress)
			if err != nil {
				return nil, err
			}
			hist = append(hist, unit)
		}
		return &Clause{cid: st.nextCID(), atoms: []Atom{a}, premise: HistoryPremise(hist)}, nil

	case reasonLazy:
		antecedents := r.lazy.Force()
		synthAtoms := make([]Atom, 0, len(antecedents)+1)
		synthAtoms = append(synthAtoms, a)
		for _, q := range antecedents {
			synthAtoms = append(synthAtoms, q.Neg())
		}
		synth := &Clause{
			cid:     st.nextCID(),
			atoms:   synthAtoms,
			premise: EmptyPremise,
		}
		hist := make([]*Clause, 0, len(antecedents)+1)
		hist = append(hist, synth)
		for _, q := range antecedents {
			unit, err := p.proveAtomUnit(st, q, inProgress)
			if err != nil {
				return nil, err
			}
			hist = append(hist, unit)
		}
		return &Clause{cid: st.nextCID(), atoms: []Atom{a}, premise: HistoryPremise(hist)}, nil

	default:
		return nil, fmt.Errorf("yasst: resolution error: variable %d has no clause-backed reason", v)
	}
}

// ExpandKind classifies a clause's premise for proof display (spec §4.9).
type ExpandKind int

const (
	ExpandHypothesis ExpandKind = iota
	ExpandLemma
	ExpandDuplicate
	ExpandHyperRes
)

// ResolutionStep is one step of a HyperRes expansion: resolving the
// accumulated clause against Clause on their shared pivot variable.
type ResolutionStep struct {
	Pivot  Atom
	Clause *Clause
}

// Expansion is the result of Expand: exactly one of its fields is
// meaningful, selected by Kind.
type Expansion struct {
	Kind   ExpandKind
	Lemma  Lemma            // Hypothesis, Lemma
	Parent *Clause          // Duplicate
	Init   *Clause          // HyperRes
	Steps  []ResolutionStep // HyperRes
}

// Expand classifies c's premise, recovering the resolution pivots for a
// History premise via find_pivots (spec §4.9).
func (p *Proof) Expand(c *Clause) (Expansion, error) {
	prem := c.Premise()
	switch prem.kind {
	case premiseHyp:
		return Expansion{Kind: ExpandHypothesis, Lemma: prem.lemma}, nil
	case premiseLemma:
		return Expansion{Kind: ExpandLemma, Lemma: prem.lemma}, nil
	case premiseHistory:
		history := prem.history
		if len(history) == 0 {
			return Expansion{}, fmt.Errorf("yasst: resolution error: clause %d has an empty History premise", c.CID())
		}
		if len(history) == 1 {
			return Expansion{Kind: ExpandDuplicate, Parent: history[0]}, nil
		}
		steps, err := findPivots(history)
		if err != nil {
			return Expansion{}, err
		}
		return Expansion{Kind: ExpandHyperRes, Init: history[0], Steps: steps}, nil
	default:
		return Expansion{}, fmt.Errorf("yasst: no-proof: clause %d has no tracked premise", c.CID())
	}
}

// findPivots walks history[1:], resolving each clause against the
// resolvent accumulated so far (seeded with history[0]'s atoms). Each
// resolved clause must contain exactly one atom whose negation is present
// in the accumulated set — that atom is the pivot; zero or more than one
// is a malformed proof (spec §4.9, "multiple or missing pivots raise
// ResolutionError").
func findPivots(history []*Clause) ([]ResolutionStep, error) {
	marked := map[Atom]bool{}
	for _, a := range history[0].Atoms() {
		marked[a] = true
	}

	steps := make([]ResolutionStep, 0, len(history)-1)
	for _, c := range history[1:] {
		pivot := NoAtom
		count := 0
		for _, a := range c.Atoms() {
			if marked[a.Neg()] {
				pivot = a
				count++
			}
		}
		if count != 1 {
			return nil, fmt.Errorf("yasst: resolution error: clause %d has %d candidate pivots against the accumulated resolvent, want exactly 1", c.CID(), count)
		}
		steps = append(steps, ResolutionStep{Pivot: pivot, Clause: c})

		delete(marked, pivot.Neg())
		for _, a := range c.Atoms() {
			if a != pivot {
				marked[a] = true
			}
		}
	}
	return steps, nil
}

// UnsatCore collects every Hyp/Lemma leaf reachable from the root
// exactly once, via an iterative DFS over the premise DAG using each
// clause's transient visited flag (spec §4.9, §9: "implementers must reset
// it on exit paths").
func (p *Proof) UnsatCore() []*Clause {
	if p.root == nil {
		return nil
	}

	var core, touched []*Clause
	stack := []*Clause{p.root}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur.visited() {
			continue
		}
		cur.setVisited(true)
		touched = append(touched, cur)

		switch cur.Premise().kind {
		case premiseHyp, premiseLemma:
			core = append(core, cur)
		case premiseHistory:
			for _, parent := range cur.Premise().history {
				if !parent.visited() {
					stack = append(stack, parent)
				}
			}
		}
	}

	for _, c := range touched {
		c.setVisited(false)
	}
	return core
}

type foldTask struct {
	c       *Clause
	leaving bool
}

// Fold performs a post-order traversal of the premise DAG rooted at the
// conflict, visiting each distinct clause exactly once and calling f after
// all of its History parents have already been folded (spec §4.9: "an
// explicit stack with Enter/Leaving tasks so the visitor sees children
// before the parent").
func (p *Proof) Fold(f func(acc any, c *Clause) any, acc any) any {
	if p.root == nil {
		return acc
	}

	seen := map[*Clause]bool{}
	stack := []foldTask{{c: p.root}}
	for len(stack) > 0 {
		task := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if task.leaving {
			acc = f(acc, task.c)
			continue
		}
		if seen[task.c] {
			continue
		}
		seen[task.c] = true

		stack = append(stack, foldTask{c: task.c, leaving: true})
		if task.c.Premise().kind == premiseHistory {
			for _, parent := range task.c.Premise().history {
				if !seen[parent] {
					stack = append(stack, foldTask{c: parent})
				}
			}
		}
	}
	return acc
}

// Dump renders the proof DAG rooted at the conflict for diagnostics.
func (p *Proof) Dump() string {
	return fmt.Sprint(pretty.Formatter(p.root))
}

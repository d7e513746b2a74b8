package sat

import "strings"

// clauseFlags is a bitfield over the miscellaneous boolean state of a
// clause (spec §3: "flags (bitfield: attached, visited-for-proof,
// removable/learnt, dead)").
type clauseFlags uint8

const (
	flagAttached  clauseFlags = 1 << iota // currently registered on watch lists
	flagVisited                           // transient mark used by Proof.unsatCore/fold
	flagRemovable                         // learnt clause, eligible for reduceDB
	flagDead                              // marked for lazy removal from watch lists
)

// Clause is a disjunction of atoms together with its activity, flags, and
// justification. Identity is by cid; equality is pointer equality in
// practice since clauses are never copied.
type Clause struct {
	cid      int32
	atoms    []Atom
	activity float64
	flags    clauseFlags
	premise  Premise
}

func (c *Clause) attached() bool  { return c.flags&flagAttached != 0 }
func (c *Clause) removable() bool { return c.flags&flagRemovable != 0 }
func (c *Clause) dead() bool      { return c.flags&flagDead != 0 }
func (c *Clause) visited() bool   { return c.flags&flagVisited != 0 }

func (c *Clause) setVisited(v bool) {
	if v {
		c.flags |= flagVisited
	} else {
		c.flags &^= flagVisited
	}
}

func (c *Clause) markDead() { c.flags |= flagDead }

// CID returns the clause's monotonic identity.
func (c *Clause) CID() int32 { return c.cid }

// Atoms returns the clause's literals. Slots 0 and 1 are the two watched
// atoms for clauses of length >= 2 (invariant A3); callers must not mutate
// the returned slice.
func (c *Clause) Atoms() []Atom { return c.atoms }

// Len returns the number of atoms in the clause.
func (c *Clause) Len() int { return len(c.atoms) }

// Premise returns the clause's justification.
func (c *Clause) Premise() Premise { return c.premise }

// Activity returns the clause's current activity score.
func (c *Clause) Activity() float64 { return c.activity }

// locked reports whether c is the reason some variable is currently
// assigned, which makes it unsafe to delete (spec §4.3 via ReduceDB §4.7).
func (c *Clause) locked(st *Store) bool {
	v := c.atoms[0].Var()
	return st.level[v] >= 0 && st.reason[v].Clause() == c
}

// scoreOf ranks an atom for watch selection: unfalsified atoms (true or
// undef) always outrank false ones, and among false atoms the one assigned
// at the highest level ranks higher (it will be the first to become
// unassigned again on backtrack). Used to pick watches that survive as long
// as possible, for clauses attached outside the root-level AddClause path
// (spec §4.3, §4.8).
func scoreOf(st *Store, a Atom) int {
	if st.AtomValue(a) != LFalse {
		return 1 << 30
	}
	if lvl := st.level[a.Var()]; lvl > 0 {
		return lvl
	}
	return 0
}

// makeClause allocates a clause over the given atoms, attaches its watches
// (for length >= 2) via the store, and enqueues unit facts directly. It
// mirrors the teacher's NewClause.
//
// doSimplify runs the root-level duplicate/tautology/falsified-literal
// removal pass; it is only sound at decision level 0 (hypotheses added via
// AddClause). markRemovable flags the clause as learnt/reducible. freeWatch
// lets the two watched atoms be chosen freely by scoreOf instead of keeping
// atoms[0] fixed; learnt clauses must keep atoms[0] fixed since it is the
// UIP literal about to be enqueued, so they pass freeWatch=false.
//
// Returns (clause, ok). clause is non-nil for every clause that still has
// at least one atom, including unit clauses (which exist only to carry a
// premise and a clause-backed reason, never a watch). It is nil either
// because the clause was trivially satisfied (ok=true) or because it
// collapsed to the empty clause (ok=false, i.e. an immediate conflict at
// the current level).
func makeClause(st *Store, atoms []Atom, premise Premise, doSimplify, markRemovable, freeWatch bool) (*Clause, bool) {
	size := len(atoms)

	if doSimplify {
		seen := map[Atom]struct{}{}
		for i := size - 1; i >= 0; i-- {
			if _, ok := seen[atoms[i].Neg()]; ok {
				return nil, true // tautology
			}
			if _, ok := seen[atoms[i]]; ok {
				size--
				atoms[i], atoms[size] = atoms[size], atoms[i]
				continue
			}
			seen[atoms[i]] = struct{}{}

			switch st.AtomValue(atoms[i]) {
			case LTrue:
				return nil, true // already satisfied
			case LFalse:
				size--
				atoms[i], atoms[size] = atoms[size], atoms[i]
			}
		}
		atoms = atoms[:size]
	}

	switch size {
	case 0:
		return nil, false // empty clause: unsatisfiable
	case 1:
		// A unit clause still needs to exist as a *Clause: its premise is a
		// leaf of the proof DAG, and the atom it forces must carry a
		// clause-backed reason so analyze/ProveUnsat can walk back through
		// it (spec §4.6, §4.9) instead of hitting a dead end at NoReason.
		c := &Clause{
			cid:     st.nextCID(),
			atoms:   append([]Atom(nil), atoms...),
			premise: premise,
		}
		if markRemovable {
			c.flags |= flagRemovable
		}
		if !st.enqueue(atoms[0], 0, BCPReason(c)) {
			return nil, false
		}
		return c, true
	default:
		c := &Clause{
			cid:     st.nextCID(),
			atoms:   append([]Atom(nil), atoms...),
			premise: premise,
			flags:   flagAttached,
		}
		if markRemovable {
			c.flags |= flagRemovable
		}

		if freeWatch {
			best, bestScore := 0, scoreOf(st, c.atoms[0])
			for i := 1; i < len(c.atoms); i++ {
				if sc := scoreOf(st, c.atoms[i]); sc > bestScore {
					bestScore, best = sc, i
				}
			}
			c.atoms[0], c.atoms[best] = c.atoms[best], c.atoms[0]
		}
		best, bestScore := 1, scoreOf(st, c.atoms[1])
		for i := 2; i < len(c.atoms); i++ {
			if sc := scoreOf(st, c.atoms[i]); sc > bestScore {
				bestScore, best = sc, i
			}
		}
		c.atoms[1], c.atoms[best] = c.atoms[best], c.atoms[1]

		st.watch(c, c.atoms[0].Neg())
		st.watch(c, c.atoms[1].Neg())

		if st.AtomValue(c.atoms[0]) == LUndef && st.AtomValue(c.atoms[1]) == LFalse {
			st.enqueue(c.atoms[0], st.decisionLevel(), BCPReason(c))
		}

		return c, true
	}
}

// detach removes c from both its watch lists and marks it dead. The clause
// is not otherwise mutated so that any in-flight Proof reference to it
// remains valid. Unit clauses are never registered on a watch list, so
// there is nothing to unwatch for them.
func (c *Clause) detach(st *Store) {
	if len(c.atoms) >= 2 {
		st.unwatch(c, c.atoms[0].Neg())
		st.unwatch(c, c.atoms[1].Neg())
	}
	c.flags &^= flagAttached
}

// simplify drops literals falsified at the root level and reports whether
// the clause is already satisfied (and can thus be discarded entirely). It
// is only ever called at decision level 0 (spec §4.1's Store.Simplify
// analogue in the teacher's Solver.Simplify).
func (c *Clause) simplify(st *Store) bool {
	k := 0
	for _, a := range c.atoms {
		switch st.AtomValue(a) {
		case LTrue:
			return true
		case LFalse:
			// drop
		default:
			c.atoms[k] = a
			k++
		}
	}
	c.atoms = c.atoms[:k]
	return false
}

// propagate is invoked by BCP when atom watch has just become true (so
// neg(watch) is the watched literal of c that is now false; see bcp.go).
// It returns true if the clause remains satisfied or was re-watched, and
// false if it is now a conflict.
func (c *Clause) propagate(st *Store, watch Atom) bool {
	falseWatch := watch.Neg()
	if c.atoms[0] == falseWatch {
		c.atoms[0], c.atoms[1] = c.atoms[1], c.atoms[0]
	}

	if st.AtomValue(c.atoms[0]) == LTrue {
		st.watch(c, watch)
		return true
	}

	for i := 2; i < len(c.atoms); i++ {
		if st.AtomValue(c.atoms[i]) != LFalse {
			c.atoms[1], c.atoms[i] = c.atoms[i], c.atoms[1]
			st.watch(c, c.atoms[1].Neg())
			return true
		}
	}

	st.watch(c, watch)
	return st.enqueue(c.atoms[0], st.decisionLevel(), BCPReason(c))
}

// explainConflict returns the negation of every literal in c, i.e. the set
// of atoms whose conjunction falsified it (used when c itself is the
// conflicting clause, l == NoAtom in spec §4.6's explain).
func (c *Clause) explainConflict() []Atom {
	out := make([]Atom, len(c.atoms))
	for i, a := range c.atoms {
		out[i] = a.Neg()
	}
	if c.removable() {
		// Activity bump happens in the caller (Solver.bumpClauseActivity)
		// so that Clause itself stays free of solver-global state.
	}
	return out
}

// explainAssign returns the negation of every literal but c.atoms[0], i.e.
// the antecedent of the unit propagation that set atoms[0] true.
func (c *Clause) explainAssign() []Atom {
	out := make([]Atom, 0, len(c.atoms)-1)
	for _, a := range c.atoms[1:] {
		out = append(out, a.Neg())
	}
	return out
}

func (c *Clause) String() string {
	if len(c.atoms) == 0 {
		return "Clause[]"
	}
	var sb strings.Builder
	sb.WriteString("Clause[")
	sb.WriteString(c.atoms[0].String())
	for _, a := range c.atoms[1:] {
		sb.WriteByte(' ')
		sb.WriteString(a.String())
	}
	sb.WriteByte(']')
	return sb.String()
}

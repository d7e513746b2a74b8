package sat

// propagateBool runs Boolean constraint propagation to a fixpoint, i.e.
// until eltHead == len(trail) (spec §4.5). It returns the first conflicting
// clause encountered, or nil once no more unit clauses can be derived.
//
// Clauses of length 1 never reach this function: they are enqueued directly
// at level 0 by makeClause (spec §4.5, "Clauses of length 1 ... do not
// participate in watching").
func (st *Store) propagateBool() *Clause {
	for st.eltHead < len(st.trail) {
		a := st.trail[st.eltHead]
		st.eltHead++

		// Copy the watch list into scratch space before clearing it: the
		// calls to clause.propagate below will re-Watch most of these
		// clauses, possibly back onto the very list we're iterating, so
		// iterating the live slice in place would alias writes into reads
		// (mirrors the teacher's tmpWatchers dance in solver.go).
		st.tmpWatched = append(st.tmpWatched[:0], st.watched[a]...)
		st.watched[a] = st.watched[a][:0]

		for i, c := range st.tmpWatched {
			if c.dead() {
				// Tombstone: drop it by simply not re-appending (step 1,
				// spec §4.5).
				continue
			}
			if !c.propagate(st, a) {
				// Conflict: keep the watchers we haven't looked at yet and
				// report the clause (step 5, spec §4.5).
				st.watched[a] = append(st.watched[a], st.tmpWatched[i+1:]...)
				return c
			}
		}
	}
	return nil
}

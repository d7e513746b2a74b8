package sat

// SearchObserver receives read-only notifications from the search loop
// (spec §5: "optional on_conflict/on_decision/on_new_atom observers").
// Observers must never mutate the trail or re-enter Solve; they may only
// read through the Store accessors.
type SearchObserver interface {
	OnConflict(conflict *Clause)
	OnDecision(a Atom, level int)
	OnNewAtom(a Atom)
}

// NopObserver implements SearchObserver with no-ops; it is the default
// when the caller supplies none.
type NopObserver struct{}

func (NopObserver) OnConflict(*Clause)  {}
func (NopObserver) OnDecision(Atom, int) {}
func (NopObserver) OnNewAtom(Atom)      {}

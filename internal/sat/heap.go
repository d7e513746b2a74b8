package sat

// This file implements C2 (ActivityHeap / VSIDS) as methods on Store: the
// weight vector and rescaling thresholds live on Store (struct-of-arrays,
// §9), while internal/heap.VarHeap supplies the binary max-heap itself.

// bumpVarActivity increases v's VSIDS weight by the current increment and
// rescales every weight (and the increment itself) if it overflows the
// 1e100 threshold, preserving relative order (spec §4.2).
func (st *Store) bumpVarActivity(v Variable) {
	st.weights[v] += st.varIncr
	st.heap.BumpWeight(int(v), st.weights[v])
	if st.weights[v] > 1e100 {
		st.rescaleVarActivity()
	}
}

func (st *Store) rescaleVarActivity() {
	st.varIncr *= 1e-100
	for v := range st.weights {
		st.weights[v] *= 1e-100
		if st.heap.Contains(v) {
			st.heap.BumpWeight(v, st.weights[v])
		}
	}
}

// decayVarActivity grows the increment so that future bumps count for more
// relative to past ones (spec §4.2: var_incr <- var_incr / 0.95).
func (st *Store) decayVarActivity(decay float64) {
	st.varIncr /= decay
	if st.varIncr > 1e100 {
		st.rescaleVarActivity()
	}
}

// popMaxVar pops the highest-weight variable from the heap. Assignment does
// not remove a variable from the heap, so the popped variable may already be
// assigned. The second return is false once the heap is empty.
func (st *Store) popMaxVar() (Variable, bool) {
	v, ok := st.heap.PopMax()
	if !ok {
		return 0, false
	}
	return Variable(v), true
}

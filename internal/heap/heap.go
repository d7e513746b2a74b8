// Package heap provides the variable-activity max-heap (VSIDS ordering)
// used by the CDCL search loop. It is a thin wrapper around yagh's generic
// indexed heap: yagh orders by ascending key, so activities are stored
// negated to turn it into a max-heap over variable weight.
package heap

import "github.com/rhartert/yagh"

// VarHeap is a max-heap of variable ids keyed by a floating activity
// ("weight"). Each variable caches its own position inside the heap so
// that BumpWeight runs in O(log n) without a linear scan.
type VarHeap struct {
	inner *yagh.IntMap[float64]
}

// New returns an empty VarHeap.
func New() *VarHeap {
	return &VarHeap{inner: yagh.New[float64](0)}
}

// Grow extends the heap's domain by n freshly-unassigned variable ids
// (0 weight, not yet inserted).
func (h *VarHeap) Grow(n int) {
	h.inner.GrowBy(n)
}

// Insert adds variable v to the heap with the given weight. v must be
// within the domain established by Grow and must not already be present.
func (h *VarHeap) Insert(v int, weight float64) {
	h.inner.Put(v, -weight)
}

// Contains reports whether v currently sits in the heap.
func (h *VarHeap) Contains(v int) bool {
	return h.inner.Contains(v)
}

// BumpWeight updates v's key to the given weight if v is currently in the
// heap. Weights only ever grow under VSIDS, so this always sifts v toward
// the root; it is a no-op if v has already been popped (assigned).
func (h *VarHeap) BumpWeight(v int, weight float64) {
	if h.inner.Contains(v) {
		h.inner.Put(v, -weight)
	}
}

// PopMax removes and returns the variable with the highest weight. The
// second return is false when the heap is empty (all variables decided).
func (h *VarHeap) PopMax() (int, bool) {
	next, ok := h.inner.Pop()
	if !ok {
		return 0, false
	}
	return next.Elem, true
}

// Reinsert puts v back into the heap after it has been unassigned by
// backtracking, restoring it as a branching candidate.
func (h *VarHeap) Reinsert(v int, weight float64) {
	h.inner.Put(v, -weight)
}

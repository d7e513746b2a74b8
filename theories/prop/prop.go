// Package prop is the minimal concrete sat.Formula a host needs to drive
// plain (theory-free) CDCL: a DIMACS-style signed variable. It exists so
// the DIMACS front end and the CLI have something to allocate atoms over;
// it carries no background theory (sat.NopTheory{} is the appropriate
// Theory for it).
package prop

import (
	"fmt"

	"github.com/rhartert/yasst/internal/sat"
)

// Lit is a signed occurrence of a 0-based DIMACS variable id.
type Lit struct {
	id  int
	neg bool
}

// Var returns the positive literal of variable id.
func Var(id int) Lit {
	return Lit{id: id}
}

// Norm canonicalizes to the positive literal of the same variable.
func (l Lit) Norm() (sat.Formula, sat.Sign) {
	if l.neg {
		return Lit{id: l.id}, sat.Negated
	}
	return Lit{id: l.id}, sat.SameSign
}

func (l Lit) Neg() sat.Formula {
	return Lit{id: l.id, neg: !l.neg}
}

func (l Lit) Equal(other sat.Formula) bool {
	o, ok := other.(Lit)
	return ok && o.id == l.id && o.neg == l.neg
}

// Hash combines the variable id and sign; collisions are resolved by Equal
// at the Store's interning layer, so this need not be perfect.
func (l Lit) Hash() uint64 {
	h := uint64(l.id)*2654435761 + 1
	if l.neg {
		h ^= 0x9e3779b97f4a7c15
	}
	return h
}

func (l Lit) String() string {
	if l.neg {
		return fmt.Sprintf("-%d", l.id+1)
	}
	return fmt.Sprintf("%d", l.id+1)
}

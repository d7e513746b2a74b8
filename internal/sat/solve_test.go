package sat_test

import (
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/rhartert/yasst/internal/dimacs"
	"github.com/rhartert/yasst/internal/sat"
	"github.com/rhartert/yasst/theories/prop"
)

// This test suite checks end-to-end correctness the way the teacher's
// TestSolveAll does: for every instance under testdata, the solver must
// find exactly the set of models listed in the matching .models file.
// Unlike the teacher's solver, this one reports one model per Solve call,
// so all-model enumeration adds a blocking clause after each SAT result,
// as TestSolveAll's solveAll helper does.

var testdataDir = "testdata"

type testCase struct {
	instanceName string
	instanceFile string
	modelsFile   string
}

func listTestCases(dir string) ([]testCase, error) {
	var testCases []testCase
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".cnf") {
			return nil
		}
		testCases = append(testCases, testCase{
			instanceName: d.Name(),
			instanceFile: path,
			modelsFile:   path + ".models",
		})
		return nil
	})
	return testCases, err
}

func toString(model []bool) string {
	s := make([]byte, len(model))
	for i, b := range model {
		if b {
			s[i] = 1
		}
	}
	return string(s)
}

func toSet(models [][]bool) map[string]struct{} {
	set := map[string]struct{}{}
	for _, m := range models {
		set[toString(m)] = struct{}{}
	}
	return set
}

// builder loads a DIMACS instance's variables and clauses into s via
// theories/prop, the same adapter shape cmd/yasst uses.
type builder struct {
	s *sat.Solver
}

func (b *builder) AddVariable() int {
	prior := b.s.NumVariables()
	b.s.AllocAtom(prop.Var(prior))
	return prior
}

func (b *builder) AddClause(lits []int) error {
	fs := make([]sat.Formula, len(lits))
	for i, l := range lits {
		fs[i] = litFormula(l)
	}
	return b.s.AddClause(fs, nil)
}

func litFormula(l int) sat.Formula {
	if l < 0 {
		return prop.Var(-l - 1).Neg()
	}
	return prop.Var(l - 1)
}

// model reads off the current total assignment as a bool per variable, in
// DIMACS order.
func model(s *sat.Solver) []bool {
	m := make([]bool, s.NumVariables())
	for i := range m {
		m[i] = s.Eval(prop.Var(i)) == sat.LTrue
	}
	return m
}

// blockModel forbids the given model from being found again.
func blockModel(s *sat.Solver, m []bool) error {
	atoms := make([]sat.Atom, len(m))
	for i, b := range m {
		f := prop.Var(i)
		if b {
			atoms[i] = s.AllocAtom(f).Neg()
		} else {
			atoms[i] = s.AllocAtom(f)
		}
	}
	return s.AddClauseAtoms(atoms, nil)
}

func solveAll(s *sat.Solver) ([][]bool, error) {
	var models [][]bool
	for s.Solve(nil) == sat.StatusSat {
		m := model(s)
		models = append(models, m)
		if err := blockModel(s, m); err != nil {
			return nil, err
		}
	}
	return models, nil
}

func TestSolveAll(t *testing.T) {
	testCases, err := listTestCases(testdataDir)
	if err != nil {
		t.Fatalf("listTestCases: %s", err)
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.instanceName, func(t *testing.T) {
			t.Parallel()

			want, err := dimacs.ParseModels(tc.modelsFile)
			if err != nil {
				t.Fatalf("ParseModels(%s): %s", tc.modelsFile, err)
			}

			s := sat.NewDefaultSolver()
			b := &builder{s: s}
			if err := dimacs.LoadDIMACS(tc.instanceFile, false, b); err != nil {
				t.Fatalf("LoadDIMACS(%s): %s", tc.instanceFile, err)
			}

			got, err := solveAll(s)
			if err != nil {
				t.Fatalf("solveAll: %s", err)
			}

			if len(got) != len(want) {
				t.Errorf("model count: got %d, want %d", len(got), len(want))
			}
			if diff := cmp.Diff(toSet(want), toSet(got)); diff != "" {
				t.Errorf("models mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSolve_unsatExposesConflict(t *testing.T) {
	s := sat.NewDefaultSolver()
	b := &builder{s: s}
	if err := dimacs.LoadDIMACS("testdata/unsat1.cnf", false, b); err != nil {
		t.Fatalf("LoadDIMACS: %s", err)
	}

	if got := s.Solve(nil); got != sat.StatusUnsat {
		t.Fatalf("Solve() = %s, want unsat", got)
	}
	if s.UnsatConflict() == nil {
		t.Errorf("UnsatConflict() = nil, want a root conflict clause")
	}
}

// TestSolve_assumptionsContradiction checks that a solve forced unsat purely
// by mutually exclusive assumptions (rather than by the clause set) reports
// a local unsat core via UnsatAssumptions and no root conflict clause.
func TestSolve_assumptionsContradiction(t *testing.T) {
	s := sat.NewDefaultSolver()
	a := s.AllocAtom(prop.Var(0))

	// No clauses at all: the contradiction comes purely from forcing both a
	// and its negation as assumptions, in that order.
	got := s.Solve([]sat.Atom{a, a.Neg()})
	if got != sat.StatusUnsat {
		t.Fatalf("Solve() = %s, want unsat", got)
	}
	if s.UnsatConflict() != nil {
		t.Errorf("UnsatConflict() = %v, want nil for an assumption-only contradiction", s.UnsatConflict())
	}
	core := s.UnsatAssumptions()
	if len(core) == 0 {
		t.Fatalf("UnsatAssumptions() = empty, want a non-empty core")
	}
	// analyzeFinal walks backward from the failed assumption (a.Neg(), found
	// already false once a was forced true), so it appears before a.
	if diff := cmp.Diff([]sat.Atom{a.Neg(), a}, core); diff != "" {
		t.Errorf("UnsatAssumptions() mismatch (-want +got):\n%s", diff)
	}
}

// TestGetProof_requiresStoreProof checks the documented precondition.
func TestGetProof_requiresStoreProof(t *testing.T) {
	s := sat.NewDefaultSolver()
	if _, err := s.GetProof(); err == nil {
		t.Errorf("GetProof() = nil error, want an error when StoreProof is unset")
	}
}

// TestGetProof_unitHypothesisChain exercises scenario S1 from the proof
// spec directly: p∨q, ¬p, ¬q are two unit hypotheses plus one binary
// clause. The conflict is only reachable because the two unit hypotheses
// carry a clause-backed reason for p and q, not NoReason; ProveUnsat then
// resolves all three down to the empty clause.
func TestGetProof_unitHypothesisChain(t *testing.T) {
	opts := sat.DefaultOptions
	opts.StoreProof = true
	s := sat.NewSolver(sat.NopTheory{}, opts)

	p := s.AllocAtom(prop.Var(0))
	q := s.AllocAtom(prop.Var(1))

	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("AddClauseAtoms: %s", err)
		}
	}
	must(s.AddClauseAtoms([]sat.Atom{p, q}, nil))
	must(s.AddClauseAtoms([]sat.Atom{p.Neg()}, nil))
	must(s.AddClauseAtoms([]sat.Atom{q.Neg()}, nil))

	if got := s.Solve(nil); got != sat.StatusUnsat {
		t.Fatalf("Solve() = %s, want unsat", got)
	}
	if s.UnsatConflict() == nil {
		t.Fatalf("UnsatConflict() = nil, want the p∨q clause to surface as the root conflict")
	}

	proof, err := s.GetProof()
	if err != nil {
		t.Fatalf("GetProof: %s", err)
	}

	empty, err := s.ProveUnsat()
	if err != nil {
		t.Fatalf("ProveUnsat: %s", err)
	}
	if empty.Len() != 0 {
		t.Errorf("ProveUnsat() clause has %d atoms, want 0 (the empty clause)", empty.Len())
	}

	core := proof.UnsatCore()
	if len(core) != 3 {
		t.Errorf("UnsatCore() has %d clause(s), want 3 (p∨q, ¬p, ¬q)", len(core))
	}
	for _, c := range core {
		if _, err := proof.Prove(c); err != nil {
			t.Errorf("Prove(%s): %s", c, err)
		}
	}
}

func TestGetProof_unsatCoreAndFold(t *testing.T) {
	// All four combinations of two variables are excluded: unsat, but only
	// discoverable by deciding (no clause here is a unit, so the
	// contradiction surfaces through search/analyze rather than at
	// AddClause time).
	opts := sat.DefaultOptions
	opts.StoreProof = true
	s := sat.NewSolver(sat.NopTheory{}, opts)

	x1 := s.AllocAtom(prop.Var(0))
	x2 := s.AllocAtom(prop.Var(1))

	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("AddClauseAtoms: %s", err)
		}
	}
	must(s.AddClauseAtoms([]sat.Atom{x1, x2}, nil))
	must(s.AddClauseAtoms([]sat.Atom{x1.Neg(), x2}, nil))
	must(s.AddClauseAtoms([]sat.Atom{x1, x2.Neg()}, nil))
	must(s.AddClauseAtoms([]sat.Atom{x1.Neg(), x2.Neg()}, nil))

	if got := s.Solve(nil); got != sat.StatusUnsat {
		t.Fatalf("Solve() = %s, want unsat", got)
	}

	proof, err := s.GetProof()
	if err != nil {
		t.Fatalf("GetProof: %s", err)
	}
	if _, err := s.ProveUnsat(); err != nil {
		t.Fatalf("ProveUnsat: %s", err)
	}

	core := proof.UnsatCore()
	if len(core) == 0 {
		t.Errorf("UnsatCore() = empty, want the four hypotheses (or the subset actually resolved)")
	}

	leaves := 0
	proof.Fold(func(acc any, c *sat.Clause) any {
		if c.Len() <= 1 {
			leaves++
		}
		return acc
	}, nil)
	if leaves == 0 {
		t.Errorf("Fold visited no unit/empty clauses, want at least the derived conflict")
	}
}

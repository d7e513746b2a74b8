package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime/pprof"
	"strconv"
	"strings"
	"time"

	"github.com/rhartert/yasst/internal/dimacs"
	"github.com/rhartert/yasst/internal/sat"
	"github.com/rhartert/yasst/theories/prop"
)

var flagCPUProfile = flag.Bool(
	"cpuprof",
	false,
	"save pprof CPU profile in cpuprof",
)

var flagMemProfile = flag.Bool(
	"memprof",
	false,
	"save pprof memory profile in memprof",
)

var flagGzip = flag.Bool(
	"gzip",
	false,
	"treat the instance file as gzip-compressed",
)

var flagStoreProof = flag.Bool(
	"store-proof",
	false,
	"keep resolution history so an unsat result can be proved",
)

var flagAssumptions = flag.String(
	"assumptions",
	"",
	"comma-separated signed DIMACS literals forced true for this solve, e.g. -assumptions=1,-3",
)

type config struct {
	instanceFile string
	gzip         bool
	memProfile   bool
	cpuProfile   bool
	storeProof   bool
	assumptions  []int
}

func parseConfig() (*config, error) {
	flag.Parse()

	if flag.NArg() == 0 || flag.Arg(0) == "" {
		return nil, fmt.Errorf("missing instance file")
	}

	var assumptions []int
	if *flagAssumptions != "" {
		for _, f := range strings.Split(*flagAssumptions, ",") {
			v, err := strconv.Atoi(strings.TrimSpace(f))
			if err != nil {
				return nil, fmt.Errorf("invalid -assumptions literal %q: %w", f, err)
			}
			assumptions = append(assumptions, v)
		}
	}

	return &config{
		instanceFile: flag.Arg(0),
		gzip:         *flagGzip,
		memProfile:   *flagMemProfile,
		cpuProfile:   *flagCPUProfile,
		storeProof:   *flagStoreProof,
		assumptions:  assumptions,
	}, nil
}

// builder adapts a *sat.Solver to dimacs.Builder, mapping signed DIMACS
// literals onto prop.Lit atoms.
type builder struct {
	s        *sat.Solver
	nClauses int
}

func (b *builder) AddVariable() int {
	v := prop.Var(b.s.NumVariables())
	b.s.AllocAtom(v)
	return b.s.NumVariables() - 1
}

func (b *builder) AddClause(lits []int) error {
	fs := make([]sat.Formula, len(lits))
	for i, l := range lits {
		fs[i] = dimacsFormula(l)
	}
	b.nClauses++
	return b.s.AddClause(fs, nil)
}

func dimacsFormula(l int) sat.Formula {
	if l < 0 {
		return prop.Var(-l - 1).Neg()
	}
	return prop.Var(l - 1)
}

func dimacsAtom(s *sat.Solver, l int) sat.Atom {
	return s.AllocAtom(dimacsFormula(l))
}

func run(cfg *config) error {
	opts := sat.DefaultOptions
	opts.StoreProof = cfg.storeProof
	s := sat.NewSolver(sat.NopTheory{}, opts)

	b := &builder{s: s}
	if err := dimacs.LoadDIMACS(cfg.instanceFile, cfg.gzip, b); err != nil {
		return fmt.Errorf("could not parse instance: %s", err)
	}

	assumptions := make([]sat.Atom, len(cfg.assumptions))
	for i, l := range cfg.assumptions {
		assumptions[i] = dimacsAtom(s, l)
	}

	fmt.Printf("c variables:  %d\n", s.NumVariables())
	fmt.Printf("c clauses:    %d\n", b.nClauses)

	t := time.Now()
	status := s.Solve(assumptions)
	elapsed := time.Since(t)

	fmt.Printf("c time (sec): %f\n", elapsed.Seconds())
	fmt.Printf("c conflicts:  %d (%.2f /sec)\n", s.NumConflicts(), float64(s.NumConflicts())/elapsed.Seconds())
	fmt.Printf("c restarts:   %d\n", s.NumRestarts())
	fmt.Printf("c status:     %s\n", status)

	switch status {
	case sat.StatusUnsat:
		if as := s.UnsatAssumptions(); as != nil {
			fmt.Printf("c unsat core (assumptions): %v\n", as)
		}
		if cfg.storeProof {
			printProof(s)
		}
	}

	return nil
}

// printProof drives Proof (C9) end to end: it resolves the root conflict
// down to the empty clause, then reports the size of the underlying unsat
// core and a full dump of the resolution DAG, making -store-proof have an
// observable effect.
func printProof(s *sat.Solver) {
	proof, err := s.GetProof()
	if err != nil {
		fmt.Printf("c proof:      %s\n", err)
		return
	}
	if _, err := s.ProveUnsat(); err != nil {
		fmt.Printf("c proof:      %s\n", err)
		return
	}
	fmt.Printf("c proof core: %d clause(s)\n", len(proof.UnsatCore()))
	fmt.Println("c proof:")
	fmt.Println(proof.Dump())
}

func main() {
	cfg, err := parseConfig()
	if err != nil {
		log.Fatal(err)
	}

	if cfg.cpuProfile {
		f, err := os.Create("cpuprof")
		if err != nil {
			log.Fatal(err)
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	if err := run(cfg); err != nil {
		log.Fatal(err)
	}

	if cfg.memProfile {
		f, err := os.Create("memprof")
		if err != nil {
			log.Fatal(err)
		}
		pprof.WriteHeapProfile(f)
		f.Close()
		return
	}
}

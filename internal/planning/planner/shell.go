package planner

import (
	"context"
	"errors"
	"sync"

	"github.com/roboplan/roboplan/internal/planning/motion"
	"github.com/roboplan/roboplan/internal/planning/param"
	"github.com/roboplan/roboplan/internal/planning/statespace"
)

// ErrNoSolverBackend is returned by Shell.Solve when no solver has been
// attached. The lifecycle layer itself never calls Solve, so a Shell without
// a backend is still fully manageable.
var ErrNoSolverBackend = errors.New("no solver backend attached")

// SolveFunc is the seam through which an external search backend drives a
// Shell. It receives the shell so it can publish roadmap updates.
type SolveFunc func(ctx context.Context, s *Shell, req *motion.PlanRequest) error

// Shell is the standard Planner implementation wrapping an external search
// backend. It owns the bookkeeping the lifecycle layer needs (name, applied
// parameters, serialised graph) and delegates the actual search to an
// injected SolveFunc.
//
// Shell methods are safe for concurrent use; whether concurrent Solve calls
// are safe depends on the backend, which the blueprint declares via
// ThreadSafe.
type Shell struct {
	mu      sync.Mutex
	name    string
	space   statespace.StateSpace
	params  *param.Set
	graph   []byte
	problem statespace.StateSpace
	ready   bool
	solve   SolveFunc
}

// NewShell creates a Shell over the given space with an optional solver
// backend.
func NewShell(space statespace.StateSpace, solve SolveFunc) *Shell {
	return &Shell{space: space, params: param.NewSet(), solve: solve}
}

// Name returns the instance name.
func (s *Shell) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

// SetName renames the instance.
func (s *Shell) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

// Space returns the state space the instance plans in.
func (s *Shell) Space() statespace.StateSpace {
	return s.space
}

// ApplyParams stores the generic parameters for the backend.
func (s *Shell) ApplyParams(cfg *param.Set) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range cfg.Keys() {
		v, _ := cfg.Get(k)
		s.params.Put(k, v)
	}
	return nil
}

// Params returns a copy of the applied generic parameters.
func (s *Shell) Params() *param.Set {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params.Clone()
}

// AttachProblemDefinition binds an empty problem definition over the space.
func (s *Shell) AttachProblemDefinition(space statespace.StateSpace) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.problem = space
}

// Setup finalises the instance.
//
// Postcondition: Returns an error if no problem definition is attached.
func (s *Shell) Setup() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.problem == nil {
		return errors.New("setup before problem definition attached")
	}
	s.ready = true
	return nil
}

// Ready reports whether Setup has completed.
func (s *Shell) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// TrySeedFrom initialises the search graph from a stored serialisation.
// Empty data cannot seed an instance.
func (s *Shell) TrySeedFrom(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graph = append([]byte(nil), data...)
	return true
}

// ExtractGraph returns a copy of the current serialised search graph.
func (s *Shell) ExtractGraph() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.graph...), nil
}

// PublishGraph replaces the serialised search graph. Solver backends call
// this after growing their roadmap so that shutdown persists current state.
func (s *Shell) PublishGraph(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graph = append([]byte(nil), data...)
}

// Solve delegates to the attached backend.
func (s *Shell) Solve(ctx context.Context, req *motion.PlanRequest) error {
	s.mu.Lock()
	solve := s.solve
	s.mu.Unlock()
	if solve == nil {
		return ErrNoSolverBackend
	}
	return solve(ctx, s, req)
}

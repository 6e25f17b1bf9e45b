// Package planner defines the capability interface this subsystem requires
// from planning algorithms, blueprints for constructing them, and the
// registry mapping planner ids to blueprints. The search algorithms
// themselves are external; everything here treats them as opaque.
package planner

import (
	"context"

	"github.com/roboplan/roboplan/internal/planning/motion"
	"github.com/roboplan/roboplan/internal/planning/param"
	"github.com/roboplan/roboplan/internal/planning/statespace"
)

// Planner is the capability surface an algorithm instance exposes to the
// lifecycle layer. Construction, configuration, and setup happen exactly
// once per instance; Solve may run many times for multi-query planners.
type Planner interface {
	// Name returns the instance name.
	Name() string
	// SetName renames the instance; used to tag instances with their
	// configuration name.
	SetName(name string)
	// ApplyParams hands the generic (non-reserved) parameters to the
	// algorithm's parameter mechanism.
	ApplyParams(cfg *param.Set) error
	// AttachProblemDefinition binds an empty problem definition over the
	// given space, readying the instance for solve calls.
	AttachProblemDefinition(space statespace.StateSpace)
	// Setup finalises the instance. Called once, after parameters and
	// problem definition are in place.
	Setup() error
	// TrySeedFrom attempts to initialise the internal search graph from a
	// previously stored serialisation. Returns false if the data cannot
	// seed this instance; the instance stays usable (cold) either way.
	TrySeedFrom(data []byte) bool
	// ExtractGraph serialises the instance's current search graph.
	ExtractGraph() ([]byte, error)
	// Solve runs one planning query. Cancellation and timeouts belong to
	// the caller's context; the lifecycle layer never invokes Solve.
	Solve(ctx context.Context, req *motion.PlanRequest) error
}

// Constructor builds a fresh algorithm instance over a state space.
type Constructor func(space statespace.StateSpace) (Planner, error)

// Blueprint is a registered constructible algorithm.
type Blueprint struct {
	// ID is the planner identifier configurations refer to, e.g.
	// "geometric::PRM".
	ID string
	// Persistable marks algorithms whose search graph supports
	// serialisation. Loading stored data is skipped for others.
	Persistable bool
	// ThreadSafe marks algorithms documented as reentrant across solve
	// calls. Others get per-instance solve serialisation.
	ThreadSafe bool
	// New constructs a fresh instance.
	New Constructor
}

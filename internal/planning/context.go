package planning

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/roboplan/roboplan/internal/planning/motion"
	"github.com/roboplan/roboplan/internal/planning/planner"
	"github.com/roboplan/roboplan/internal/planning/statespace"
)

// Limits are the sampling and post-processing bounds wired into every
// context, consumed by the planning pipeline around a solve.
type Limits struct {
	// MaxGoalSamples bounds the number of goal region samples per request.
	MaxGoalSamples uint
	// MaxStateSamplingAttempts bounds attempts at sampling a valid state.
	MaxStateSamplingAttempts uint
	// MaxGoalSamplingAttempts bounds attempts at sampling a goal.
	MaxGoalSamplingAttempts uint
	// MaxPlanningThreads bounds simultaneous planning threads.
	MaxPlanningThreads uint
	// MaxSolutionSegmentLength is the longest allowed solution segment;
	// zero means 1% of the space extent.
	MaxSolutionSegmentLength float64
	// MinWaypointCount is the minimum number of points on a solution
	// path, reached by interpolation if needed.
	MinWaypointCount uint
}

// PlanningContext is an assembled bundle of search space, algorithm
// instance, and bookkeeping, ready to answer planning requests. A context is
// handed to exactly one caller at a time (checked-out semantics enforced by
// the manager's cache) and returned with ReleaseContext.
type PlanningContext struct {
	// ID uniquely identifies this context instance for diagnostics.
	ID uuid.UUID
	// ConfigName and FactoryType form the cache key the context lives under.
	ConfigName  string
	FactoryType string
	// Space is the search space the planner operates in.
	Space statespace.StateSpace
	// Planner is the algorithm instance.
	Planner planner.Planner
	// RobotModel is the shared read-only kinematic description.
	RobotModel motion.RobotModel
	// Sampler is the constraint-sampler capability attached at assembly;
	// nil when no specialised sampler applies.
	Sampler any
	// Scene is the per-request scene snapshot, set at resolution and
	// cleared at release. Never shared between requests.
	Scene motion.PlanningScene
	// Limits are the sampling and post-processing bounds.
	Limits Limits

	// solveLock serialises Solve for shared multi-query instances whose
	// algorithm is not documented reentrant; nil otherwise.
	solveLock *sync.Mutex
}

// Solve runs one planning query through the context's algorithm instance,
// serialising access to shared multi-query instances. Cancellation and
// timeout belong to the caller's ctx.
func (pc *PlanningContext) Solve(ctx context.Context, req *motion.PlanRequest) error {
	if pc.solveLock != nil {
		pc.solveLock.Lock()
		defer pc.solveLock.Unlock()
	}
	return pc.Planner.Solve(ctx, req)
}

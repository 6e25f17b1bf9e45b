// Package motion defines the request, scene, and robot model types exchanged
// with the external planning pipeline. The types here are deliberately thin:
// collision checking, kinematics, and scene maintenance belong to
// collaborators, and this subsystem only reads the fields needed to resolve
// a request to a planning context.
package motion

// PoseGoal describes a workspace goal for an end effector link.
type PoseGoal struct {
	// Link is the end effector link the goal constrains.
	Link string
	// Position is the target position in metres (x, y, z).
	Position [3]float64
	// Orientation is the target orientation quaternion (x, y, z, w).
	Orientation [4]float64
}

// JointGoal describes a configuration-space goal.
type JointGoal struct {
	// Positions maps joint names to target positions in radians or metres.
	Positions map[string]float64
}

// PlanRequest is one motion planning request as received from the pipeline.
type PlanRequest struct {
	// Group is the planning group the request targets.
	Group string
	// PlannerID optionally names a specific configuration in
	// "group[config]" form, or a bare planner id.
	PlannerID string
	// PoseGoals are workspace goals; empty when planning purely in
	// configuration space.
	PoseGoals []PoseGoal
	// JointGoals are configuration-space goals.
	JointGoals []JointGoal
	// AllowedPlanningTime is the solve budget in seconds; zero means the
	// pipeline default.
	AllowedPlanningTime float64
	// NumPlanningAttempts is how many times the pipeline will run the
	// solve; informational for this subsystem.
	NumPlanningAttempts int
}

// HasPoseGoal reports whether the request carries at least one workspace goal.
func (r *PlanRequest) HasPoseGoal() bool {
	return r != nil && len(r.PoseGoals) > 0
}

// GroupInfo describes one planning group of a robot model.
type GroupInfo struct {
	// Name is the group name, e.g. "arm".
	Name string
	// JointCount is the number of actuated joints in the group.
	JointCount int
	// HasIKSolver reports whether an inverse kinematics solver is
	// configured for the group, which pose-space planning requires.
	HasIKSolver bool
	// EndEffectorLink is the tip link used for pose goals; empty when the
	// group has no end effector.
	EndEffectorLink string
}

// RobotModel is the read-only kinematic description shared across contexts.
// Implementations are supplied by the kinematics collaborator.
type RobotModel interface {
	// Name returns the robot model name.
	Name() string
	// Group returns the named planning group, or false if undefined.
	Group(name string) (GroupInfo, bool)
}

// PlanningScene is a per-request snapshot of the world. This subsystem never
// mutates or retains it beyond context assembly.
type PlanningScene interface {
	// Name identifies the scene snapshot (for diagnostics).
	Name() string
	// RobotModel returns the model the scene was built against.
	RobotModel() RobotModel
}

// ConstraintSamplerProvider produces constraint-aware samplers for a group.
// The concrete sampling machinery is owned by the planning library; contexts
// only carry the capability through to the algorithm.
type ConstraintSamplerProvider interface {
	// SamplerFor returns an opaque sampler handle for the group, or nil
	// when no specialised sampler applies.
	SamplerFor(group string) any
}

// StaticModel is a RobotModel backed by a fixed group table. It serves
// configuration-driven setups and tests that do not load a full kinematic
// description.
type StaticModel struct {
	ModelName string
	Groups    map[string]GroupInfo
}

// Name returns the model name.
func (m *StaticModel) Name() string { return m.ModelName }

// Group returns the named group, or false if undefined.
func (m *StaticModel) Group(name string) (GroupInfo, bool) {
	g, ok := m.Groups[name]
	return g, ok
}

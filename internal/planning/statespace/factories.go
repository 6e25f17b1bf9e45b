package statespace

import (
	"fmt"

	"github.com/roboplan/roboplan/internal/planning/motion"
)

// Type tags of the built-in factories.
const (
	JointModelType = "JointModel"
	PoseModelType  = "PoseModel"
)

// Suitability scores of the built-in factories. The joint-space factory is
// the universal fallback and outranks the pose-space factory, which only
// becomes preferable through a score hook or an explicit type request.
const (
	jointModelScore = 100.0
	poseModelScore  = 50.0
)

// JointModelFactory builds configuration-space representations. It can
// represent any group and acts as the default choice.
type JointModelFactory struct{}

// Type returns the JointModel type tag.
func (JointModelFactory) Type() string { return JointModelType }

// CanRepresent scores the factory for the group. Joint spaces represent any
// known group; unknown groups are unsuitable.
func (JointModelFactory) CanRepresent(group string, model motion.RobotModel, _ *motion.PlanRequest) float64 {
	if _, ok := model.Group(group); !ok {
		return -1
	}
	return jointModelScore
}

// NewSpace builds a joint space sized by the group's joint count.
func (JointModelFactory) NewSpace(group string, model motion.RobotModel, _ *motion.PlanRequest) (StateSpace, error) {
	g, ok := model.Group(group)
	if !ok {
		return nil, fmt.Errorf("unknown planning group %q", group)
	}
	return &space{typeTag: JointModelType, group: group, dimension: g.JointCount}, nil
}

// PoseModelFactory builds workspace (end effector pose) representations. It
// is suitable only when the request carries a pose goal and the group has an
// IK solver to map poses back to configurations.
type PoseModelFactory struct{}

// Type returns the PoseModel type tag.
func (PoseModelFactory) Type() string { return PoseModelType }

// CanRepresent scores the factory for the group and request.
func (PoseModelFactory) CanRepresent(group string, model motion.RobotModel, req *motion.PlanRequest) float64 {
	g, ok := model.Group(group)
	if !ok || !g.HasIKSolver {
		return -1
	}
	if !req.HasPoseGoal() {
		return -1
	}
	return poseModelScore
}

// NewSpace builds a pose space for the group's end effector. Pose spaces are
// fixed at 7 dimensions: position plus orientation quaternion.
func (PoseModelFactory) NewSpace(group string, model motion.RobotModel, _ *motion.PlanRequest) (StateSpace, error) {
	g, ok := model.Group(group)
	if !ok {
		return nil, fmt.Errorf("unknown planning group %q", group)
	}
	if !g.HasIKSolver {
		return nil, fmt.Errorf("group %q has no IK solver; pose space unavailable", group)
	}
	return &space{typeTag: PoseModelType, group: group, dimension: 7}, nil
}

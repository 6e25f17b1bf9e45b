package motion

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const groupsYAML = `
robot:
  name: arm_bot
  groups:
    - name: arm
      joint_count: 6
      has_ik_solver: true
      end_effector_link: wrist
    - name: gripper
      joint_count: 2
`

func TestLoadStaticModelFromBytes(t *testing.T) {
	model, err := LoadStaticModelFromBytes([]byte(groupsYAML))
	require.NoError(t, err)

	assert.Equal(t, "arm_bot", model.Name())

	arm, ok := model.Group("arm")
	require.True(t, ok)
	assert.Equal(t, 6, arm.JointCount)
	assert.True(t, arm.HasIKSolver)
	assert.Equal(t, "wrist", arm.EndEffectorLink)

	gripper, ok := model.Group("gripper")
	require.True(t, ok)
	assert.Equal(t, 2, gripper.JointCount)
	assert.False(t, gripper.HasIKSolver)

	_, ok = model.Group("legs")
	assert.False(t, ok)
}

func TestLoadStaticModelFromBytes_Errors(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"invalid yaml", "robot: ["},
		{"empty name", "robot:\n  groups:\n    - name: arm\n      joint_count: 6\n"},
		{"no groups", "robot:\n  name: bot\n"},
		{"empty group name", "robot:\n  name: bot\n  groups:\n    - joint_count: 6\n"},
		{"zero joints", "robot:\n  name: bot\n  groups:\n    - name: arm\n      joint_count: 0\n"},
		{"duplicate group", "robot:\n  name: bot\n  groups:\n    - name: arm\n      joint_count: 6\n    - name: arm\n      joint_count: 7\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadStaticModelFromBytes([]byte(tc.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadStaticModelFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "groups.yaml")
	require.NoError(t, os.WriteFile(path, []byte(groupsYAML), 0o644))

	model, err := LoadStaticModelFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "arm_bot", model.Name())

	_, err = LoadStaticModelFromFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestPlanRequestHasPoseGoal(t *testing.T) {
	assert.False(t, (*PlanRequest)(nil).HasPoseGoal())
	assert.False(t, (&PlanRequest{Group: "arm"}).HasPoseGoal())
	assert.True(t, (&PlanRequest{Group: "arm", PoseGoals: []PoseGoal{{}}}).HasPoseGoal())
}

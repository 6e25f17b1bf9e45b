package selectionscript

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/roboplan/roboplan/internal/planning/motion"
	"github.com/roboplan/roboplan/internal/planning/statespace"
)

func TestHook_RescoresFactory(t *testing.T) {
	p, err := LoadString(`
		function score(factory_type, group, has_pose_goal, base)
			if factory_type == "PoseModel" and has_pose_goal then
				return base * 3
			end
			return base
		end
	`, 0, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer p.Close()

	hook := p.Hook()
	req := &motion.PlanRequest{Group: "arm", PoseGoals: []motion.PoseGoal{{}}}

	assert.Equal(t, 150.0, hook("PoseModel", "arm", req, 50))
	assert.Equal(t, 100.0, hook("JointModel", "arm", req, 100))
	assert.Equal(t, 50.0, hook("PoseModel", "arm", nil, 50), "no pose goal keeps the base score")
}

func TestHook_NoScoreFunctionPassesThrough(t *testing.T) {
	p, err := LoadString(`x = 42`, 0, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, 7.5, p.Hook()("JointModel", "arm", nil, 7.5))
}

func TestLoadString_SyntaxError(t *testing.T) {
	_, err := LoadString(`function score(`, 0, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestHook_RuntimeErrorKeepsBaseScore(t *testing.T) {
	p, err := LoadString(`
		function score(factory_type, group, has_pose_goal, base)
			error("boom")
		end
	`, 0, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, 12.0, p.Hook()("JointModel", "arm", nil, 12))
}

func TestHook_NonNumberReturnKeepsBaseScore(t *testing.T) {
	p, err := LoadString(`
		function score(factory_type, group, has_pose_goal, base)
			return "not a number"
		end
	`, 0, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, 12.0, p.Hook()("JointModel", "arm", nil, 12))
}

func TestHook_InstructionLimitTerminatesRunawayScript(t *testing.T) {
	p, err := LoadString(`
		function score(factory_type, group, has_pose_goal, base)
			while true do end
		end
	`, 1000, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, 5.0, p.Hook()("JointModel", "arm", nil, 5))
}

func TestHook_FreshBudgetPerEvaluation(t *testing.T) {
	p, err := LoadString(`
		function score(factory_type, group, has_pose_goal, base)
			local sum = 0
			for i = 1, 50 do sum = sum + i end
			return base + 1
		end
	`, 500, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer p.Close()

	hook := p.Hook()
	for i := 0; i < 20; i++ {
		assert.Equal(t, 2.0, hook("JointModel", "arm", nil, 1))
	}
}

func TestSandbox_DangerousGlobalsRemoved(t *testing.T) {
	p, err := LoadString(`
		function score(factory_type, group, has_pose_goal, base)
			if dofile == nil and loadfile == nil and load == nil and require == nil then
				return 1
			end
			return 0
		end
	`, 0, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, 1.0, p.Hook()("JointModel", "arm", nil, 99))
}

func TestHook_AfterCloseKeepsBaseScore(t *testing.T) {
	p, err := LoadString(`
		function score(factory_type, group, has_pose_goal, base)
			return 0
		end
	`, 0, zaptest.NewLogger(t))
	require.NoError(t, err)

	hook := p.Hook()
	p.Close()
	assert.Equal(t, 3.0, hook("JointModel", "arm", nil, 3))
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.lua")
	require.NoError(t, os.WriteFile(path, []byte(`
		function score(factory_type, group, has_pose_goal, base)
			return base + 10
		end
	`), 0o644))

	p, err := LoadFile(path, 0, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer p.Close()
	assert.Equal(t, 11.0, p.Hook()("JointModel", "arm", nil, 1))

	_, err = LoadFile(filepath.Join(dir, "missing.lua"), 0, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestPolicyDrivesRegistrySelection(t *testing.T) {
	p, err := LoadString(`
		function score(factory_type, group, has_pose_goal, base)
			if factory_type == "PoseModel" and base > 0 then
				return 1000
			end
			return base
		end
	`, 0, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer p.Close()

	reg := statespace.NewRegistry()
	require.NoError(t, reg.Register(statespace.JointModelFactory{}))
	require.NoError(t, reg.Register(statespace.PoseModelFactory{}))
	reg.SetScoreHook(p.Hook())

	model := &motion.StaticModel{
		ModelName: "bot",
		Groups: map[string]motion.GroupInfo{
			"arm": {Name: "arm", JointCount: 6, HasIKSolver: true, EndEffectorLink: "wrist"},
		},
	}
	req := &motion.PlanRequest{Group: "arm", PoseGoals: []motion.PoseGoal{{}}}

	f, err := reg.SelectForRequest("arm", model, req)
	require.NoError(t, err)
	assert.Equal(t, statespace.PoseModelType, f.Type())
}

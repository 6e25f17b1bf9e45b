package planning

import (
	"github.com/roboplan/roboplan/internal/planning/planner"
	"github.com/roboplan/roboplan/internal/planning/statespace"
)

// defaultBlueprints is the built-in planner set. PRM-family planners retain
// their roadmap across queries and support persistence; the tree-based
// planners are single-shot and rebuild their search structure per solve.
// All instances are planner.Shell values; the search backend attaches
// through the Shell's solve seam.
var defaultBlueprints = []struct {
	id          string
	persistable bool
}{
	{"geometric::PRM", true},
	{"geometric::PRMstar", true},
	{"geometric::LazyPRM", true},
	{"geometric::LazyPRMstar", true},
	{"geometric::RRT", false},
	{"geometric::RRTConnect", false},
	{"geometric::RRTstar", false},
	{"geometric::EST", false},
	{"geometric::KPIECE", false},
}

// RegisterDefaultPlanners registers the built-in planner blueprints with an
// optional solver backend factory. backend may be nil; instances then accept
// lifecycle operations but reject Solve until a backend is attached.
func (m *Manager) RegisterDefaultPlanners(backend planner.SolveFunc) error {
	for _, d := range defaultBlueprints {
		bp := planner.Blueprint{
			ID:          d.id,
			Persistable: d.persistable,
			New: func(space statespace.StateSpace) (planner.Planner, error) {
				return planner.NewShell(space, backend), nil
			},
		}
		if err := m.planners.Register(bp); err != nil {
			return err
		}
	}
	return nil
}

// RegisterDefaultStateSpaces registers the joint and pose model factories.
func (m *Manager) RegisterDefaultStateSpaces() error {
	if err := m.spaces.Register(statespace.JointModelFactory{}); err != nil {
		return err
	}
	return m.spaces.Register(statespace.PoseModelFactory{})
}

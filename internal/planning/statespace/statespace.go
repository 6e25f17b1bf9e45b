// Package statespace defines the search-space abstraction the planners
// operate in, the factories that build spaces for a planning group, and the
// registry that selects the best factory for a request.
package statespace

import (
	"github.com/roboplan/roboplan/internal/planning/motion"
)

// StateSpace is an assembled search-space representation for one planning
// group. The geometry of states is owned by the planning library; this
// subsystem only tracks identity and sizing for diagnostics and cache keys.
type StateSpace interface {
	// Type returns the factory type tag that built this space.
	Type() string
	// Group returns the planning group the space represents.
	Group() string
	// Dimension returns the dimensionality of the space.
	Dimension() int
}

// Factory builds a StateSpace for a planning group and scores its own
// suitability for a request.
type Factory interface {
	// Type returns the unique type tag of spaces this factory builds.
	Type() string
	// CanRepresent scores how well this factory's spaces fit the given
	// group and request. Scores <= 0 mean unsuitable. req may be nil when
	// only the group name is known.
	CanRepresent(group string, model motion.RobotModel, req *motion.PlanRequest) float64
	// NewSpace builds a space for the group.
	NewSpace(group string, model motion.RobotModel, req *motion.PlanRequest) (StateSpace, error)
}

// space is the concrete StateSpace returned by the built-in factories.
type space struct {
	typeTag   string
	group     string
	dimension int
}

func (s *space) Type() string   { return s.typeTag }
func (s *space) Group() string  { return s.group }
func (s *space) Dimension() int { return s.dimension }

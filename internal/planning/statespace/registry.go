package statespace

import (
	"errors"
	"fmt"

	"github.com/roboplan/roboplan/internal/planning/motion"
)

// ErrUnknownType is returned when an explicitly requested factory type tag
// is not registered.
var ErrUnknownType = errors.New("unknown state space type")

// ErrNoSuitable is returned when no registered factory scores above zero for
// a group and request.
var ErrNoSuitable = errors.New("no suitable state space factory")

// ScoreHook optionally adjusts a factory's suitability score. It receives
// the factory type, group, request (may be nil), and the factory's own score,
// and returns the score to use. A nil hook leaves scoring untouched.
type ScoreHook func(factoryType, group string, req *motion.PlanRequest, score float64) float64

// Registry maps factory type tags to factories and selects the best factory
// when none is explicitly named. Registration happens once at startup;
// steady-state reads need no locking.
type Registry struct {
	factories map[string]Factory
	order     []string // registration order, used for tie-breaking
	hook      ScoreHook
}

// NewRegistry creates an empty factory Registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// SetScoreHook installs a selection-policy hook applied to every suitability
// score. Must be called during setup, before concurrent selection begins.
func (r *Registry) SetScoreHook(hook ScoreHook) {
	r.hook = hook
}

// Register adds a factory under its type tag.
//
// Postcondition: Returns an error if the type tag is already registered.
func (r *Registry) Register(f Factory) error {
	tag := f.Type()
	if _, exists := r.factories[tag]; exists {
		return fmt.Errorf("duplicate state space factory type: %q", tag)
	}
	r.factories[tag] = f
	r.order = append(r.order, tag)
	return nil
}

// ByType returns the factory registered under the given type tag.
//
// Postcondition: Returns ErrUnknownType if the tag is not registered.
func (r *Registry) ByType(tag string) (Factory, error) {
	f, ok := r.factories[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, tag)
	}
	return f, nil
}

// Types returns the registered type tags in registration order.
func (r *Registry) Types() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// SelectForGroup picks the best factory when only a group name is known.
//
// Postcondition: Returns ErrNoSuitable if every factory scores <= 0.
func (r *Registry) SelectForGroup(group string, model motion.RobotModel) (Factory, error) {
	return r.selectBest(group, model, nil)
}

// SelectForRequest picks the best factory using the full request, allowing
// goal shape to refine the choice.
//
// Postcondition: Returns ErrNoSuitable if every factory scores <= 0.
func (r *Registry) SelectForRequest(group string, model motion.RobotModel, req *motion.PlanRequest) (Factory, error) {
	return r.selectBest(group, model, req)
}

// selectBest evaluates every factory in registration order and returns the
// highest scorer. Ties break in favour of the first registered factory.
func (r *Registry) selectBest(group string, model motion.RobotModel, req *motion.PlanRequest) (Factory, error) {
	var best Factory
	bestScore := 0.0
	for _, tag := range r.order {
		f := r.factories[tag]
		score := f.CanRepresent(group, model, req)
		if r.hook != nil {
			score = r.hook(tag, group, req, score)
		}
		if score > bestScore {
			best = f
			bestScore = score
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%w: group %q", ErrNoSuitable, group)
	}
	return best, nil
}

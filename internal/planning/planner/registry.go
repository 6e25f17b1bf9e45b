package planner

import (
	"errors"
	"fmt"
)

// ErrUnknownPlanner is returned when a configuration names a planner id that
// is not registered.
var ErrUnknownPlanner = errors.New("unknown planner")

// Registry maps planner ids to blueprints. Registration happens once at
// startup; steady-state reads need no locking.
type Registry struct {
	blueprints map[string]Blueprint
	order      []string
}

// NewRegistry creates an empty blueprint Registry.
func NewRegistry() *Registry {
	return &Registry{blueprints: make(map[string]Blueprint)}
}

// Register adds a blueprint under its planner id.
//
// Precondition: bp.New must not be nil.
// Postcondition: Returns an error if the id is already registered.
func (r *Registry) Register(bp Blueprint) error {
	if bp.New == nil {
		return fmt.Errorf("blueprint %q has nil constructor", bp.ID)
	}
	if _, exists := r.blueprints[bp.ID]; exists {
		return fmt.Errorf("duplicate planner id: %q", bp.ID)
	}
	r.blueprints[bp.ID] = bp
	r.order = append(r.order, bp.ID)
	return nil
}

// Lookup returns the blueprint registered under the given planner id.
//
// Postcondition: Returns ErrUnknownPlanner if the id is not registered.
func (r *Registry) Lookup(id string) (Blueprint, error) {
	bp, ok := r.blueprints[id]
	if !ok {
		return Blueprint{}, fmt.Errorf("%w: %q", ErrUnknownPlanner, id)
	}
	return bp, nil
}

// IDs returns the registered planner ids in registration order.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Package planning resolves motion planning requests to ready-to-use
// planning contexts. It owns the configuration table, the planner and state
// space registries, the context cache, and the multi-query allocator; the
// search algorithms themselves are external.
package planning

import (
	"fmt"
	"strings"

	"github.com/roboplan/roboplan/internal/planning/param"
)

// KeyPlannerType is the configuration parameter naming the planner id a
// configuration constructs, e.g. "geometric::PRM". It is consumed during
// resolution and never reaches the algorithm.
const KeyPlannerType = "type"

// Configuration is one named, user-defined planner setup. Configurations are
// read-only after installation; SetPlannerConfigurations replaces the whole
// table.
type Configuration struct {
	// Name is the configuration name: either a bare group name or the
	// "group[config]" form for a named sub-configuration.
	Name string
	// Group is the planning group the configuration applies to.
	Group string
	// Params are the planner parameters, including reserved lifecycle
	// keys and the planner type.
	Params *param.Set
}

// Validate checks the configuration invariants.
func (c Configuration) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("configuration name must not be empty")
	}
	if c.Group == "" {
		return fmt.Errorf("configuration %q: group must not be empty", c.Name)
	}
	if c.Name != c.Group && !strings.HasPrefix(c.Name, c.Group+"[") {
		return fmt.Errorf("configuration %q: name must be %q or %q", c.Name, c.Group, c.Group+"[...]")
	}
	if strings.Contains(c.Name, "[") && !strings.HasSuffix(c.Name, "]") {
		return fmt.Errorf("configuration %q: unterminated sub-configuration name", c.Name)
	}
	return nil
}

// SubConfigName composes the "group[config]" configuration name.
func SubConfigName(group, config string) string {
	return group + "[" + config + "]"
}

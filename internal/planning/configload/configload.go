// Package configload reads planner configuration tables from YAML files.
//
// A planning file names reusable planner configs and binds them to planning
// groups. Each group yields one configuration under its own name (its default
// parameters) plus one "group[config]" entry per bound planner config.
package configload

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roboplan/roboplan/internal/planning"
	"github.com/roboplan/roboplan/internal/planning/param"
)

// yamlPlanningFile is the top-level YAML structure for planning files.
type yamlPlanningFile struct {
	PlannerConfigs map[string]yaml.Node `yaml:"planner_configs"`
	Groups         []yamlGroup          `yaml:"groups"`
}

// yamlGroup binds planner configs to one planning group.
type yamlGroup struct {
	Name                 string    `yaml:"name"`
	DefaultPlannerConfig string    `yaml:"default_planner_config"`
	PlannerConfigs       []string  `yaml:"planner_configs"`
	Params               yaml.Node `yaml:"params"`
}

// LoadFromFile reads and validates a single planning YAML file.
//
// Precondition: path must point to a valid YAML planning file.
// Postcondition: Returns a validated configuration table or a non-nil error.
func LoadFromFile(path string) (map[string]planning.Configuration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading planning file %s: %w", path, err)
	}
	return LoadFromBytes(data)
}

// LoadFromBytes parses and validates a configuration table from YAML bytes.
//
// Precondition: data must be valid YAML conforming to the planning schema.
// Postcondition: Returns a validated configuration table or a non-nil error.
func LoadFromBytes(data []byte) (map[string]planning.Configuration, error) {
	var file yamlPlanningFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing planning YAML: %w", err)
	}

	shared := make(map[string]*param.Set, len(file.PlannerConfigs))
	for name, node := range file.PlannerConfigs {
		params, err := paramsFromNode(node)
		if err != nil {
			return nil, fmt.Errorf("planner config %q: %w", name, err)
		}
		shared[name] = params
	}

	table := make(map[string]planning.Configuration)
	for _, yg := range file.Groups {
		if yg.Name == "" {
			return nil, fmt.Errorf("planning group with empty name")
		}

		groupParams, err := paramsFromNode(yg.Params)
		if err != nil {
			return nil, fmt.Errorf("group %q params: %w", yg.Name, err)
		}
		if yg.DefaultPlannerConfig != "" {
			defaults, ok := shared[yg.DefaultPlannerConfig]
			if !ok {
				return nil, fmt.Errorf("group %q: unknown default planner config %q", yg.Name, yg.DefaultPlannerConfig)
			}
			groupParams = overlay(defaults, groupParams)
		}

		cfg := planning.Configuration{Name: yg.Name, Group: yg.Name, Params: groupParams}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("group %q: %w", yg.Name, err)
		}
		table[cfg.Name] = cfg

		for _, ref := range yg.PlannerConfigs {
			params, ok := shared[ref]
			if !ok {
				return nil, fmt.Errorf("group %q: unknown planner config %q", yg.Name, ref)
			}
			sub := planning.Configuration{
				Name:   planning.SubConfigName(yg.Name, ref),
				Group:  yg.Name,
				Params: params.Clone(),
			}
			if err := sub.Validate(); err != nil {
				return nil, fmt.Errorf("group %q: %w", yg.Name, err)
			}
			table[sub.Name] = sub
		}
	}

	if len(table) == 0 {
		return nil, fmt.Errorf("planning file defines no groups")
	}

	return table, nil
}

// LoadFromDir loads and merges all YAML files in a directory.
//
// Precondition: dir must be a valid directory path.
// Postcondition: Returns the merged table or the first error encountered.
// A configuration name defined by two files is an error.
func LoadFromDir(dir string) (map[string]planning.Configuration, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading planning directory %s: %w", dir, err)
	}

	merged := make(map[string]planning.Configuration)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}
		table, err := LoadFromFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("loading planning file %s: %w", name, err)
		}
		for cfgName, cfg := range table {
			if _, exists := merged[cfgName]; exists {
				return nil, fmt.Errorf("configuration %q redefined in %s", cfgName, name)
			}
			merged[cfgName] = cfg
		}
	}

	if len(merged) == 0 {
		return nil, fmt.Errorf("no planning files found in %s", dir)
	}

	return merged, nil
}

// paramsFromNode converts a YAML mapping into an ordered parameter set,
// preserving the declaration order of the file. Scalar values keep their
// literal text so numeric and boolean parameters round-trip unchanged.
func paramsFromNode(node yaml.Node) (*param.Set, error) {
	set := param.NewSet()
	if node.Kind == 0 || node.Tag == "!!null" {
		return set, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("params must be a mapping")
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i]
		value := node.Content[i+1]
		if value.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("parameter %q: value must be a scalar", key.Value)
		}
		set.Put(key.Value, value.Value)
	}
	return set, nil
}

// overlay returns base with overrides applied on top. Base ordering wins for
// shared keys; new keys keep the override file's order.
func overlay(base, overrides *param.Set) *param.Set {
	out := base.Clone()
	for _, key := range overrides.Keys() {
		v, _ := overrides.Get(key)
		out.Put(key, v)
	}
	return out
}

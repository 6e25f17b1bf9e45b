package motion

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// yamlGroupsFile is the top-level YAML structure for robot group files.
type yamlGroupsFile struct {
	Robot yamlRobot `yaml:"robot"`
}

// yamlRobot is the YAML representation of a robot model.
type yamlRobot struct {
	Name   string      `yaml:"name"`
	Groups []yamlGroup `yaml:"groups"`
}

// yamlGroup is the YAML representation of a planning group.
type yamlGroup struct {
	Name            string `yaml:"name"`
	JointCount      int    `yaml:"joint_count"`
	HasIKSolver     bool   `yaml:"has_ik_solver"`
	EndEffectorLink string `yaml:"end_effector_link"`
}

// LoadStaticModelFromFile reads and validates a robot group YAML file.
//
// Precondition: path must point to a valid YAML group file.
// Postcondition: Returns a validated StaticModel or a non-nil error.
func LoadStaticModelFromFile(path string) (*StaticModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading groups file %s: %w", path, err)
	}
	return LoadStaticModelFromBytes(data)
}

// LoadStaticModelFromBytes parses and validates a robot model from YAML bytes.
//
// Precondition: data must be valid YAML conforming to the group schema.
// Postcondition: Returns a validated StaticModel or a non-nil error.
func LoadStaticModelFromBytes(data []byte) (*StaticModel, error) {
	var file yamlGroupsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing groups YAML: %w", err)
	}

	if file.Robot.Name == "" {
		return nil, fmt.Errorf("robot name must not be empty")
	}
	if len(file.Robot.Groups) == 0 {
		return nil, fmt.Errorf("robot %q declares no planning groups", file.Robot.Name)
	}

	model := &StaticModel{
		ModelName: file.Robot.Name,
		Groups:    make(map[string]GroupInfo, len(file.Robot.Groups)),
	}
	for _, yg := range file.Robot.Groups {
		if yg.Name == "" {
			return nil, fmt.Errorf("robot %q: group with empty name", file.Robot.Name)
		}
		if yg.JointCount < 1 {
			return nil, fmt.Errorf("group %q: joint_count must be >= 1, got %d", yg.Name, yg.JointCount)
		}
		if _, exists := model.Groups[yg.Name]; exists {
			return nil, fmt.Errorf("group %q declared twice", yg.Name)
		}
		model.Groups[yg.Name] = GroupInfo{
			Name:            yg.Name,
			JointCount:      yg.JointCount,
			HasIKSolver:     yg.HasIKSolver,
			EndEffectorLink: yg.EndEffectorLink,
		}
	}

	return model, nil
}

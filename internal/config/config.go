// Package config provides Viper-based configuration loading for the planner daemon.
package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DatabaseConfig holds PostgreSQL connection settings for the roadmap store.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// StorageConfig selects where multi-query roadmaps are persisted.
type StorageConfig struct {
	// Backend is the roadmap store implementation: "file" or "postgres".
	Backend string `mapstructure:"backend"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// PipelineConfig describes one named planning pipeline with its own planner
// configuration file.
type PipelineConfig struct {
	// ConfigFile is the planner configuration YAML file for this pipeline.
	ConfigFile string `mapstructure:"config_file"`
	// DefaultPlannerID overrides the global default for this pipeline.
	DefaultPlannerID string `mapstructure:"default_planner_id"`
}

// PlanningConfig holds planner resolution settings.
type PlanningConfig struct {
	// ConfigDir is the directory of planner configuration YAML files. It
	// feeds the default pipeline; ignored when Pipelines is set.
	ConfigDir string `mapstructure:"config_dir"`
	// Pipelines optionally declares named pipelines, each resolving
	// against its own configuration file.
	Pipelines map[string]PipelineConfig `mapstructure:"pipelines"`
	// GroupPipelines maps a planning group to the pipelines that may
	// serve it; empty means any pipeline.
	GroupPipelines map[string][]string `mapstructure:"group_pipelines"`
	// DefaultPlannerID is used by configurations without a "type" parameter.
	DefaultPlannerID string `mapstructure:"default_planner_id"`
	// CacheCapacity bounds the planning context cache; 0 uses the built-in default.
	CacheCapacity int `mapstructure:"cache_capacity"`
	// SelectionScript optionally points to a Lua state space selection policy.
	SelectionScript string `mapstructure:"selection_script"`
	// SelectionScriptInstructionLimit caps Lua opcodes per score evaluation;
	// 0 uses the built-in default.
	SelectionScriptInstructionLimit int `mapstructure:"selection_script_instruction_limit"`
	// WarmStartConfigs are configuration names resolved once at startup so
	// multi-query planners load their roadmaps before the first request.
	WarmStartConfigs []string `mapstructure:"warm_start_configs"`
}

// LimitsConfig holds sampling and post-processing bounds.
type LimitsConfig struct {
	MaxGoalSamples           uint    `mapstructure:"max_goal_samples"`
	MaxStateSamplingAttempts uint    `mapstructure:"max_state_sampling_attempts"`
	MaxGoalSamplingAttempts  uint    `mapstructure:"max_goal_sampling_attempts"`
	MaxPlanningThreads       uint    `mapstructure:"max_planning_threads"`
	MaxSolutionSegmentLength float64 `mapstructure:"max_solution_segment_length"`
	MinWaypointCount         uint    `mapstructure:"min_waypoint_count"`
}

// RobotConfig describes the robot model the daemon plans for.
type RobotConfig struct {
	// Name is the robot model name.
	Name string `mapstructure:"name"`
	// GroupsFile is the YAML file declaring the planning groups.
	GroupsFile string `mapstructure:"groups_file"`
}

// Config is the top-level application configuration.
type Config struct {
	Robot    RobotConfig    `mapstructure:"robot"`
	Planning PlanningConfig `mapstructure:"planning"`
	Limits   LimitsConfig   `mapstructure:"limits"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateRobot(c.Robot); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validatePlanning(c.Planning); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateStorage(c.Storage); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Storage.Backend == "postgres" {
		if err := validateDatabase(c.Database); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateRobot(r RobotConfig) error {
	var errs []string
	if r.Name == "" {
		errs = append(errs, "robot.name must not be empty")
	}
	if r.GroupsFile == "" {
		errs = append(errs, "robot.groups_file must not be empty")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validatePlanning(p PlanningConfig) error {
	var errs []string
	if len(p.Pipelines) == 0 && p.ConfigDir == "" {
		errs = append(errs, "planning.config_dir must not be empty when no pipelines are declared")
	}
	for name, pipeline := range p.Pipelines {
		if name == "" {
			errs = append(errs, "planning.pipelines must not contain an empty pipeline name")
		}
		if pipeline.ConfigFile == "" {
			errs = append(errs, fmt.Sprintf("planning.pipelines.%s.config_file must not be empty", name))
		}
	}
	for group, pipelines := range p.GroupPipelines {
		for _, name := range pipelines {
			if _, ok := p.Pipelines[name]; !ok {
				errs = append(errs, fmt.Sprintf("planning.group_pipelines.%s references unknown pipeline %q", group, name))
			}
		}
	}
	if p.CacheCapacity < 0 {
		errs = append(errs, fmt.Sprintf("planning.cache_capacity must be >= 0, got %d", p.CacheCapacity))
	}
	if p.SelectionScriptInstructionLimit < 0 {
		errs = append(errs, fmt.Sprintf("planning.selection_script_instruction_limit must be >= 0, got %d", p.SelectionScriptInstructionLimit))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateStorage(s StorageConfig) error {
	validBackends := map[string]bool{"file": true, "postgres": true}
	if !validBackends[s.Backend] {
		return fmt.Errorf("storage.backend must be one of [file, postgres], got %q", s.Backend)
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

// PipelineNames returns the declared pipeline names in sorted order.
func (c Config) PipelineNames() []string {
	names := make([]string, 0, len(c.Planning.Pipelines))
	for name := range c.Planning.Pipelines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with ROBOPLAN_ prefix
	v.SetEnvPrefix("ROBOPLAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("robot.name", "robot")
	v.SetDefault("robot.groups_file", "configs/groups.yaml")

	v.SetDefault("planning.config_dir", "configs/planning")
	v.SetDefault("planning.default_planner_id", "geometric::RRTConnect")
	v.SetDefault("planning.cache_capacity", 0)
	v.SetDefault("planning.selection_script_instruction_limit", 0)

	v.SetDefault("limits.max_goal_samples", 10)
	v.SetDefault("limits.max_state_sampling_attempts", 4)
	v.SetDefault("limits.max_goal_sampling_attempts", 1000)
	v.SetDefault("limits.max_planning_threads", 4)
	v.SetDefault("limits.max_solution_segment_length", 0.0)
	v.SetDefault("limits.min_waypoint_count", 2)

	v.SetDefault("storage.backend", "file")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "roboplan")
	v.SetDefault("database.password", "roboplan")
	v.SetDefault("database.name", "roboplan")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

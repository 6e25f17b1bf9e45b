package planning

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/roboplan/roboplan/internal/planning/allocator"
	"github.com/roboplan/roboplan/internal/planning/cache"
	"github.com/roboplan/roboplan/internal/planning/motion"
	"github.com/roboplan/roboplan/internal/planning/param"
	"github.com/roboplan/roboplan/internal/planning/planner"
	"github.com/roboplan/roboplan/internal/planning/statespace"
	"github.com/roboplan/roboplan/internal/storage/roadmap"
)

// ErrConfigNotFound is returned when a request names a planning group or
// sub-configuration with no installed configuration.
var ErrConfigNotFound = errors.New("planner configuration not found")

// ErrContextCreation wraps any failure encountered while assembling a
// planning context. The underlying typed cause stays reachable via errors.Is.
var ErrContextCreation = errors.New("planning context creation failed")

// DefaultLimits are the sampling and post-processing bounds used when the
// caller does not override them.
var DefaultLimits = Limits{
	MaxGoalSamples:           10,
	MaxStateSamplingAttempts: 4,
	MaxGoalSamplingAttempts:  1000,
	MaxPlanningThreads:       4,
	MaxSolutionSegmentLength: 0,
	MinWaypointCount:         2,
}

// DefaultPlannerID is used when a configuration does not name a planner type.
const DefaultPlannerID = "geometric::RRTConnect"

// Options configure a Manager.
type Options struct {
	// CacheCapacity bounds the planning context cache; non-positive means
	// the cache package default.
	CacheCapacity int
	// DefaultPlannerID overrides the planner id used by configurations
	// without a "type" parameter.
	DefaultPlannerID string
	// Limits overrides DefaultLimits when non-zero.
	Limits *Limits
}

// Manager is the top-level facade resolving planning requests to contexts.
// Registries are populated during setup and read-only afterwards; the
// configuration table, context cache, and allocator tables are the only
// structures mutated during steady-state operation.
type Manager struct {
	model    motion.RobotModel
	samplers motion.ConstraintSamplerProvider
	logger   *zap.Logger

	planners *planner.Registry
	spaces   *statespace.Registry
	alloc    *allocator.Allocator
	contexts *cache.Cache[*PlanningContext]

	defaultPlannerID string

	mu      sync.RWMutex
	configs map[string]Configuration
	limits  Limits
}

// NewManager creates a Manager for the given robot model, persisting
// multi-query roadmaps through store.
//
// Precondition: model, store, and logger must not be nil. samplers may be
// nil when no constraint sampling capability is available.
func NewManager(model motion.RobotModel, samplers motion.ConstraintSamplerProvider, store roadmap.Store, logger *zap.Logger, opts Options) *Manager {
	if model == nil {
		panic("planning.NewManager: model must not be nil")
	}
	if logger == nil {
		panic("planning.NewManager: logger must not be nil")
	}

	limits := DefaultLimits
	if opts.Limits != nil {
		limits = *opts.Limits
	}
	defaultID := opts.DefaultPlannerID
	if defaultID == "" {
		defaultID = DefaultPlannerID
	}

	return &Manager{
		model:            model,
		samplers:         samplers,
		logger:           logger,
		planners:         planner.NewRegistry(),
		spaces:           statespace.NewRegistry(),
		alloc:            allocator.New(store, logger),
		contexts:         cache.New[*PlanningContext](opts.CacheCapacity),
		defaultPlannerID: defaultID,
		configs:          make(map[string]Configuration),
		limits:           limits,
	}
}

// RobotModel returns the kinematic model contexts are built against.
func (m *Manager) RobotModel() motion.RobotModel { return m.model }

// RegisterPlannerBlueprint registers a constructible planner under its id.
// Must be called during setup, before resolution begins.
func (m *Manager) RegisterPlannerBlueprint(bp planner.Blueprint) error {
	return m.planners.Register(bp)
}

// RegisterStateSpaceFactory registers a state space factory under its type
// tag. Must be called during setup, before resolution begins.
func (m *Manager) RegisterStateSpaceFactory(f statespace.Factory) error {
	return m.spaces.Register(f)
}

// SetSelectionScoreHook installs a selection-policy hook on the state space
// registry. Must be called during setup.
func (m *Manager) SetSelectionScoreHook(hook statespace.ScoreHook) {
	m.spaces.SetScoreHook(hook)
}

// RegisteredPlannerIDs returns the registered planner ids.
func (m *Manager) RegisteredPlannerIDs() []string { return m.planners.IDs() }

// RegisteredStateSpaceTypes returns the registered factory type tags.
func (m *Manager) RegisteredStateSpaceTypes() []string { return m.spaces.Types() }

// SetPlannerConfigurations replaces the entire configuration table.
//
// Postcondition: On success the previous table is fully discarded. On error
// the previous table is left untouched.
func (m *Manager) SetPlannerConfigurations(configs map[string]Configuration) error {
	table := make(map[string]Configuration, len(configs))
	for name, cfg := range configs {
		if cfg.Name == "" {
			cfg.Name = name
		}
		if cfg.Name != name {
			return fmt.Errorf("configuration key %q does not match name %q", name, cfg.Name)
		}
		if cfg.Params == nil {
			cfg.Params = param.NewSet()
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		table[name] = cfg
	}

	m.mu.Lock()
	m.configs = table
	m.mu.Unlock()

	m.logger.Info("planner configurations installed", zap.Int("count", len(table)))
	return nil
}

// PlannerConfigurations returns a copy of the current configuration table.
func (m *Manager) PlannerConfigurations() map[string]Configuration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]Configuration, len(m.configs))
	for name, cfg := range m.configs {
		out[name] = cfg
	}
	return out
}

// ResolveContext resolves a request against a scene snapshot to a planning
// context, reusing a cached context when one is available for the resolved
// configuration and state space type.
//
// Postcondition: On success the returned context is checked out to the
// caller until ReleaseContext. On failure the error wraps ErrContextCreation
// and the typed cause (ErrConfigNotFound, statespace.ErrNoSuitable, ...).
func (m *Manager) ResolveContext(ctx context.Context, scene motion.PlanningScene, req *motion.PlanRequest) (*PlanningContext, error) {
	cfg, err := m.lookupConfiguration(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrContextCreation, err)
	}

	factory, err := m.spaces.SelectForRequest(cfg.Group, m.model, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrContextCreation, err)
	}

	pc, err := m.getOrBuild(ctx, cfg, factory, req)
	if err != nil {
		return nil, err
	}
	pc.Scene = scene
	return pc, nil
}

// ResolveContextByName resolves a context from a configuration name alone,
// optionally pinning the state space factory type. Used when no request is
// available to refine factory selection.
func (m *Manager) ResolveContextByName(ctx context.Context, configName, factoryType string) (*PlanningContext, error) {
	m.mu.RLock()
	cfg, ok := m.configs[configName]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %w: %q", ErrContextCreation, ErrConfigNotFound, configName)
	}

	var factory statespace.Factory
	var err error
	if factoryType != "" {
		factory, err = m.spaces.ByType(factoryType)
	} else {
		factory, err = m.spaces.SelectForGroup(cfg.Group, m.model)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrContextCreation, err)
	}

	return m.getOrBuild(ctx, cfg, factory, nil)
}

// ReleaseContext returns a checked-out context to the cache, making it
// eligible for reuse by a later request with the same key.
func (m *Manager) ReleaseContext(pc *PlanningContext) {
	if pc == nil {
		return
	}
	pc.Scene = nil
	m.contexts.Release(cache.Key{ConfigName: pc.ConfigName, FactoryType: pc.FactoryType}, pc)
}

// Shutdown persists pending multi-query roadmaps and releases all planner
// references. Called exactly once by the owner; later calls are no-ops.
func (m *Manager) Shutdown(ctx context.Context) error {
	return m.alloc.Shutdown(ctx)
}

// getOrBuild resolves the cache key and assembles a context on miss.
func (m *Manager) getOrBuild(ctx context.Context, cfg Configuration, factory statespace.Factory, req *motion.PlanRequest) (*PlanningContext, error) {
	key := cache.Key{ConfigName: cfg.Name, FactoryType: factory.Type()}
	pc, err := m.contexts.GetOrBuild(key, func() (*PlanningContext, error) {
		return m.buildContext(ctx, cfg, factory, req)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrContextCreation, err)
	}
	return pc, nil
}

// buildContext assembles a fresh planning context: state space, planner
// instance via the allocator, sampler capability, and limits.
func (m *Manager) buildContext(ctx context.Context, cfg Configuration, factory statespace.Factory, req *motion.PlanRequest) (*PlanningContext, error) {
	space, err := factory.NewSpace(cfg.Group, m.model, req)
	if err != nil {
		return nil, fmt.Errorf("building state space for %q: %w", cfg.Name, err)
	}

	params := cfg.Params.Clone()
	plannerID := m.defaultPlannerID
	if id, ok := params.Get(KeyPlannerType); ok {
		plannerID = id
		params.Delete(KeyPlannerType)
	}

	bp, err := m.planners.Lookup(plannerID)
	if err != nil {
		return nil, err
	}

	p, err := m.alloc.Allocate(ctx, bp, space, cfg.Name, params)
	if err != nil {
		return nil, err
	}

	var solveLock *sync.Mutex
	if isMultiQuery(cfg.Params) && !bp.ThreadSafe {
		solveLock = m.alloc.InstanceLock(cfg.Name)
	}

	var sampler any
	if m.samplers != nil {
		sampler = m.samplers.SamplerFor(cfg.Group)
	}

	pc := &PlanningContext{
		ID:          uuid.New(),
		ConfigName:  cfg.Name,
		FactoryType: factory.Type(),
		Space:       space,
		Planner:     p,
		RobotModel:  m.model,
		Sampler:     sampler,
		Limits:      m.CurrentLimits(),
		solveLock:   solveLock,
	}

	m.logger.Debug("planning context assembled",
		zap.String("context_id", pc.ID.String()),
		zap.String("config", cfg.Name),
		zap.String("state_space", factory.Type()),
		zap.String("planner_id", plannerID),
	)
	return pc, nil
}

// lookupConfiguration derives the configuration name from the request and
// looks it up exactly: "group[config]" when a sub-configuration is named,
// falling back to the bare group configuration.
func (m *Manager) lookupConfiguration(req *motion.PlanRequest) (Configuration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if req.PlannerID != "" {
		name := req.PlannerID
		if !strings.Contains(name, "[") {
			name = SubConfigName(req.Group, req.PlannerID)
		}
		if cfg, ok := m.configs[name]; ok {
			return cfg, nil
		}
		m.logger.Warn("requested sub-configuration not found; using group defaults",
			zap.String("group", req.Group),
			zap.String("planner_id", req.PlannerID),
		)
	}

	if cfg, ok := m.configs[req.Group]; ok {
		return cfg, nil
	}
	return Configuration{}, fmt.Errorf("%w: group %q", ErrConfigNotFound, req.Group)
}

// isMultiQuery peeks at the reserved multi-query flag without consuming it.
// Unparseable values are treated as false here; the allocator reports them.
func isMultiQuery(cfg *param.Set) bool {
	v, ok := cfg.Get(param.KeyMultiQuery)
	if !ok {
		return false
	}
	return v == "true" || v == "1"
}

// CurrentLimits returns the current sampling and post-processing limits.
func (m *Manager) CurrentLimits() Limits {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.limits
}

// MaxGoalSamples returns the maximum number of goal samples per request.
func (m *Manager) MaxGoalSamples() uint { return m.CurrentLimits().MaxGoalSamples }

// SetMaxGoalSamples sets the maximum number of goal samples per request.
func (m *Manager) SetMaxGoalSamples(v uint) { m.setLimit(func(l *Limits) { l.MaxGoalSamples = v }) }

// MaxStateSamplingAttempts returns the bound on valid-state sampling attempts.
func (m *Manager) MaxStateSamplingAttempts() uint { return m.CurrentLimits().MaxStateSamplingAttempts }

// SetMaxStateSamplingAttempts sets the bound on valid-state sampling attempts.
func (m *Manager) SetMaxStateSamplingAttempts(v uint) {
	m.setLimit(func(l *Limits) { l.MaxStateSamplingAttempts = v })
}

// MaxGoalSamplingAttempts returns the bound on goal sampling attempts.
func (m *Manager) MaxGoalSamplingAttempts() uint { return m.CurrentLimits().MaxGoalSamplingAttempts }

// SetMaxGoalSamplingAttempts sets the bound on goal sampling attempts.
func (m *Manager) SetMaxGoalSamplingAttempts(v uint) {
	m.setLimit(func(l *Limits) { l.MaxGoalSamplingAttempts = v })
}

// MaxPlanningThreads returns the maximum number of simultaneous planning threads.
func (m *Manager) MaxPlanningThreads() uint { return m.CurrentLimits().MaxPlanningThreads }

// SetMaxPlanningThreads sets the maximum number of simultaneous planning threads.
func (m *Manager) SetMaxPlanningThreads(v uint) {
	m.setLimit(func(l *Limits) { l.MaxPlanningThreads = v })
}

// MaxSolutionSegmentLength returns the longest allowed solution segment.
func (m *Manager) MaxSolutionSegmentLength() float64 {
	return m.CurrentLimits().MaxSolutionSegmentLength
}

// SetMaxSolutionSegmentLength sets the longest allowed solution segment.
func (m *Manager) SetMaxSolutionSegmentLength(v float64) {
	m.setLimit(func(l *Limits) { l.MaxSolutionSegmentLength = v })
}

// MinWaypointCount returns the minimum number of points on a solution path.
func (m *Manager) MinWaypointCount() uint { return m.CurrentLimits().MinWaypointCount }

// SetMinWaypointCount sets the minimum number of points on a solution path.
func (m *Manager) SetMinWaypointCount(v uint) {
	m.setLimit(func(l *Limits) { l.MinWaypointCount = v })
}

func (m *Manager) setLimit(apply func(*Limits)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	apply(&m.limits)
}

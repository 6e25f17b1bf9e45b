// Package allocator owns the lifecycle of planning algorithm instances:
// single-shot construction, the table of long-lived multi-query instances,
// and the persistence of their search graphs across process lifetimes.
package allocator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/roboplan/roboplan/internal/planning/param"
	"github.com/roboplan/roboplan/internal/planning/planner"
	"github.com/roboplan/roboplan/internal/planning/statespace"
	"github.com/roboplan/roboplan/internal/storage/roadmap"
)

// ErrPersistenceLoad marks a failed roadmap load. It is logged and never
// surfaced from Allocate: the instance starts cold instead.
var ErrPersistenceLoad = errors.New("roadmap load failed")

// ErrPersistenceStore marks one or more failed roadmap writes at shutdown.
// A failed write never blocks the remaining records.
var ErrPersistenceStore = errors.New("roadmap store failed")

// ErrShutDown is returned by Allocate after Shutdown has run.
var ErrShutDown = errors.New("allocator is shut down")

// Allocator decides single-shot versus multi-query allocation, seeds
// instances from stored roadmaps, and persists pending roadmaps at shutdown.
// All methods are safe for concurrent use.
type Allocator struct {
	store  roadmap.Store
	logger *zap.Logger

	mu       sync.Mutex
	planners map[string]planner.Planner // live multi-query instances
	pending  map[string]string          // instance name -> roadmap path
	locks    map[string]*sync.Mutex     // per-instance solve locks
	creating map[string]*sync.Mutex     // per-name construction locks
	done     bool
}

// New creates an Allocator persisting through the given store.
//
// Precondition: store and logger must not be nil.
func New(store roadmap.Store, logger *zap.Logger) *Allocator {
	if store == nil {
		panic("allocator.New: store must not be nil")
	}
	if logger == nil {
		panic("allocator.New: logger must not be nil")
	}
	return &Allocator{
		store:    store,
		logger:   logger,
		planners: make(map[string]planner.Planner),
		pending:  make(map[string]string),
		locks:    make(map[string]*sync.Mutex),
		creating: make(map[string]*sync.Mutex),
	}
}

// Allocate resolves a planner instance for the given blueprint, space, name,
// and configuration.
//
// Reserved lifecycle keys are stripped from cfg before the remaining
// parameters reach the instance. When multi_query_planning_enabled is false
// or absent, every call constructs a fresh instance that the allocator never
// retains. When it is true, the first call under a name constructs and
// retains the instance (optionally seeded from a stored roadmap); every
// later call under the same name returns it unchanged, ignoring the new
// configuration.
//
// Postcondition: Returns a set-up instance, or an error wrapping
// param.ErrConfigParse (bad reserved value) or a construction failure.
// Roadmap load failures never cause an error.
func (a *Allocator) Allocate(ctx context.Context, bp planner.Blueprint, space statespace.StateSpace, name string, cfg *param.Set) (planner.Planner, error) {
	reserved, rest, err := param.ExtractReserved(cfg)
	if err != nil {
		return nil, fmt.Errorf("allocating planner %q: %w", name, err)
	}

	if !reserved.MultiQuery {
		// Single-shot: never retained, no persistence bookkeeping.
		return a.construct(ctx, bp, space, name, rest, param.Reserved{})
	}

	// Fast path: an existing instance wins over any new configuration.
	if p, ok := a.lookup(name); ok {
		a.logger.Warn("ignoring planner configuration for existing multi-query planner",
			zap.String("name", name),
			zap.Strings("stale_keys", rest.Keys()),
		)
		return p, nil
	}

	// Serialise construction per name so two concurrent misses cannot
	// build competing instances, without holding the table lock across
	// planner setup.
	create := a.creationLock(name)
	create.Lock()
	defer create.Unlock()

	if p, ok := a.lookup(name); ok {
		a.logger.Warn("ignoring planner configuration for existing multi-query planner",
			zap.String("name", name),
			zap.Strings("stale_keys", rest.Keys()),
		)
		return p, nil
	}

	p, err := a.construct(ctx, bp, space, name, rest, reserved)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.done {
		return nil, ErrShutDown
	}
	a.planners[name] = p
	if reserved.StoreData {
		a.pending[name] = reserved.DataPath
	}
	return p, nil
}

// construct builds, optionally seeds, configures, and sets up one instance.
func (a *Allocator) construct(ctx context.Context, bp planner.Blueprint, space statespace.StateSpace, name string, rest *param.Set, reserved param.Reserved) (planner.Planner, error) {
	p, err := bp.New(space)
	if err != nil {
		return nil, fmt.Errorf("constructing planner %q (%s): %w", name, bp.ID, err)
	}

	if reserved.LoadData {
		a.seed(ctx, bp, p, name, reserved.DataPath)
	}

	if name != "" {
		p.SetName(name)
	}
	if err := p.ApplyParams(rest); err != nil {
		return nil, fmt.Errorf("applying parameters to planner %q: %w", name, err)
	}
	p.AttachProblemDefinition(space)
	if err := p.Setup(); err != nil {
		return nil, fmt.Errorf("setting up planner %q: %w", name, err)
	}
	return p, nil
}

// seed attempts to warm-start an instance from a stored roadmap. Failures
// are logged and leave the instance cold; they never abort allocation.
func (a *Allocator) seed(ctx context.Context, bp planner.Blueprint, p planner.Planner, name, path string) {
	if !bp.Persistable {
		a.logger.Warn("planner type does not support stored roadmaps; skipping load",
			zap.String("name", name),
			zap.String("planner_id", bp.ID),
		)
		return
	}
	data, err := a.store.Load(ctx, path)
	if err != nil {
		a.logger.Warn("starting planner with empty roadmap",
			zap.String("name", name),
			zap.String("path", path),
			zap.Error(fmt.Errorf("%w: %v", ErrPersistenceLoad, err)),
		)
		return
	}
	if !p.TrySeedFrom(data) {
		a.logger.Warn("stored roadmap rejected by planner; starting cold",
			zap.String("name", name),
			zap.String("path", path),
		)
		return
	}
	a.logger.Info("planner seeded from stored roadmap",
		zap.String("name", name),
		zap.String("path", path),
		zap.Int("bytes", len(data)),
	)
}

// lookup returns the live multi-query instance under name, if any.
func (a *Allocator) lookup(name string) (planner.Planner, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, ok := a.planners[name]
	return p, ok
}

// creationLock returns the per-name construction lock.
func (a *Allocator) creationLock(name string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	l, ok := a.creating[name]
	if !ok {
		l = &sync.Mutex{}
		a.creating[name] = l
	}
	return l
}

// InstanceLock returns the solve-serialisation lock for the named instance.
// Contexts take it around Solve unless the blueprint is declared ThreadSafe.
func (a *Allocator) InstanceLock(name string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	l, ok := a.locks[name]
	if !ok {
		l = &sync.Mutex{}
		a.locks[name] = l
	}
	return l
}

// InstanceCount returns the number of live multi-query instances.
func (a *Allocator) InstanceCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.planners)
}

// Shutdown persists every pending roadmap using each instance's state at
// this moment, then releases all instance references. A failed write is
// logged and does not prevent the remaining records from being processed.
// Called exactly once by the owner; later calls are no-ops.
//
// Postcondition: Returns an aggregated error wrapping ErrPersistenceStore if
// any write failed, nil otherwise. Allocate fails after Shutdown.
func (a *Allocator) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	if a.done {
		a.mu.Unlock()
		return nil
	}
	a.done = true
	planners := a.planners
	pending := a.pending
	a.planners = make(map[string]planner.Planner)
	a.pending = make(map[string]string)
	a.mu.Unlock()

	var errs []error
	for name, path := range pending {
		p, ok := planners[name]
		if !ok {
			// A pending record without a live instance means the
			// bookkeeping is inconsistent; report rather than drop.
			errs = append(errs, fmt.Errorf("%w: no live instance for %q", ErrPersistenceStore, name))
			continue
		}
		data, err := p.ExtractGraph()
		if err != nil {
			a.logger.Error("extracting roadmap for persistence",
				zap.String("name", name),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("%w: extracting %q: %v", ErrPersistenceStore, name, err))
			continue
		}
		if err := a.store.Save(ctx, path, data); err != nil {
			a.logger.Error("storing roadmap",
				zap.String("name", name),
				zap.String("path", path),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("%w: storing %q to %s: %v", ErrPersistenceStore, name, path, err))
			continue
		}
		a.logger.Info("roadmap stored",
			zap.String("name", name),
			zap.String("path", path),
			zap.Int("bytes", len(data)),
		)
	}
	return errors.Join(errs...)
}

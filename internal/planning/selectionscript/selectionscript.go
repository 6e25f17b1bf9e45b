// Package selectionscript provides a sandboxed GopherLua policy for state
// space selection. Deployments that need site-specific selection rules supply
// a Lua script defining a score function; the policy wraps it as a
// statespace.ScoreHook without recompiling the planner daemon.
package selectionscript

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/roboplan/roboplan/internal/planning/motion"
	"github.com/roboplan/roboplan/internal/planning/statespace"
)

// ScoreFunction is the Lua global the policy dispatches to. It receives
// (factory_type, group, has_pose_goal, base_score) and returns the score to
// use for the factory.
const ScoreFunction = "score"

// DefaultInstructionLimit is the maximum number of Lua opcodes allowed per
// score evaluation when no override is configured.
const DefaultInstructionLimit = 100_000

// countingContext is a context.Context that cancels itself after Done() has
// been called limit times. GopherLua's mainLoopWithContext calls Done() once
// per opcode, making this an exact instruction-count limit.
type countingContext struct {
	context.Context
	cancel    context.CancelFunc
	remaining *atomic.Int64
}

// Done returns the underlying cancellation channel. Each call decrements the
// remaining counter; when it reaches zero the cancel function fires,
// terminating the Lua VM on the next opcode boundary.
func (c *countingContext) Done() <-chan struct{} {
	if c.remaining.Add(-1) <= 0 {
		c.cancel()
	}
	return c.Context.Done()
}

// newCountingContext returns a context that cancels after limit calls to Done().
// Precondition: limit > 0.
func newCountingContext(limit int) context.Context {
	base, cancel := context.WithCancel(context.Background())
	rem := &atomic.Int64{}
	rem.Store(int64(limit))
	return &countingContext{
		Context:   base,
		cancel:    cancel,
		remaining: rem,
	}
}

// Policy owns one sandboxed LState evaluating the score function.
//
// The LState is single-threaded; the mutex serializes concurrent score
// evaluations. Lua runtime errors are logged at Warn level and never
// propagated: a failing script leaves the factory's own score untouched.
type Policy struct {
	mu        sync.Mutex
	state     *lua.LState
	instLimit int
	logger    *zap.Logger
}

// LoadFile compiles the policy script at path into a sandboxed VM.
//
// Precondition: logger must be non-nil. instLimit >= 0; 0 uses
// DefaultInstructionLimit.
// Postcondition: Returns a ready Policy or a non-nil error. The caller owns
// the Policy and must call Close when done.
func LoadFile(path string, instLimit int, logger *zap.Logger) (*Policy, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("selectionscript: reading %q: %w", path, err)
	}
	return LoadString(string(src), instLimit, logger)
}

// LoadString compiles the policy script source into a sandboxed VM.
func LoadString(src string, instLimit int, logger *zap.Logger) (*Policy, error) {
	if instLimit <= 0 {
		instLimit = DefaultInstructionLimit
	}

	L := newSandboxedState(instLimit)
	if err := L.DoString(src); err != nil {
		L.Close()
		return nil, fmt.Errorf("selectionscript: loading policy script: %w", err)
	}

	return &Policy{
		state:     L,
		instLimit: instLimit,
		logger:    logger,
	}, nil
}

// Hook returns the statespace.ScoreHook dispatching to the script's score
// function. If the script does not define one, the hook passes base scores
// through unchanged.
func (p *Policy) Hook() statespace.ScoreHook {
	return func(factoryType, group string, req *motion.PlanRequest, score float64) float64 {
		return p.evaluate(factoryType, group, req, score)
	}
}

// Close releases the Lua VM. The policy must not be used afterwards.
func (p *Policy) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != nil {
		p.state.Close()
		p.state = nil
	}
}

func (p *Policy) evaluate(factoryType, group string, req *motion.PlanRequest, score float64) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	L := p.state
	if L == nil {
		return score
	}

	fn := L.GetGlobal(ScoreFunction)
	if fn == lua.LNil {
		return score
	}

	// Each evaluation gets a fresh opcode budget.
	L.SetContext(newCountingContext(p.instLimit))

	if err := L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, lua.LString(factoryType), lua.LString(group), lua.LBool(req.HasPoseGoal()), lua.LNumber(score)); err != nil {
		p.logger.Warn("selection policy script failed",
			zap.String("factory_type", factoryType),
			zap.String("group", group),
			zap.Error(err),
		)
		return score
	}

	ret := L.Get(-1)
	L.Pop(1)

	n, ok := ret.(lua.LNumber)
	if !ok {
		p.logger.Warn("selection policy returned a non-number",
			zap.String("factory_type", factoryType),
			zap.String("group", group),
			zap.String("returned", ret.Type().String()),
		)
		return score
	}
	return float64(n)
}

// newSandboxedState creates a GopherLua LState with only safe stdlib loaded
// (base, table, string, math) and dangerous globals removed.
func newSandboxedState(instLimit int) *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})

	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	// Strip dangerous globals left by OpenBase.
	for _, name := range []string{"dofile", "loadfile", "load", "collectgarbage", "require"} {
		L.SetGlobal(name, lua.LNil)
	}

	L.SetContext(newCountingContext(instLimit))

	return L
}

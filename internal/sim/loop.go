package sim

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Nishit5799/multiplayerShooting/logging"
)

const (
	// CommandRejectQueueLimit indicates a command was dropped due to per-actor
	// queue throttling.
	CommandRejectQueueLimit = "queue_limit"
	// CommandRejectQueueFull indicates the global command buffer is saturated.
	CommandRejectQueueFull = "queue_full"
)

// LoopConfig tunes the command buffer and tick loop orchestration.
type LoopConfig struct {
	TickRate        int
	CatchupMaxTicks int
	CommandCapacity int
	PerActorLimit   int
	WarningStep     int
}

// LoopHooks observe the loop. Every hook runs on the loop goroutine.
type LoopHooks struct {
	AfterStep      func(LoopStepResult)
	OnCommandDrop  func(reason string, cmd Command)
	OnQueueWarning func(length int)
	OnError        func(err error)
}

// LoopStepResult reports one executed tick.
type LoopStepResult struct {
	TickResult
	Commands     []Command
	Delta        float64
	Duration     time.Duration
	Budget       time.Duration
	ClampedDelta bool
}

// Loop coordinates command ingestion and the fixed-timestep engine runner.
type Loop struct {
	engine *Engine
	buffer *CommandBuffer
	hooks  LoopHooks
	config LoopConfig
	deps   Deps

	queueMu       sync.Mutex
	perActorCount map[string]int
	dropCounts    map[string]uint64
}

// NewLoop wraps the engine with a ring-buffer queue and loop.
func NewLoop(engine *Engine, cfg LoopConfig, hooks LoopHooks) *Loop {
	if engine == nil {
		return nil
	}
	if cfg.TickRate <= 0 {
		cfg.TickRate = 30
	}
	return &Loop{
		engine:        engine,
		buffer:        NewCommandBuffer(cfg.CommandCapacity, engine.deps.Metrics),
		hooks:         hooks,
		config:        cfg,
		deps:          engine.deps,
		perActorCount: make(map[string]int),
		dropCounts:    make(map[string]uint64),
	}
}

// Engine returns the wrapped engine.
func (l *Loop) Engine() *Engine {
	if l == nil {
		return nil
	}
	return l.engine
}

// Pending reports the number of staged commands.
func (l *Loop) Pending() int {
	if l == nil {
		return 0
	}
	return l.buffer.Len()
}

// Enqueue stages a command, enforcing per-actor throttling and capacity
// limits. Join and leave commands bypass the per-actor limit.
func (l *Loop) Enqueue(cmd Command) (bool, string) {
	if l == nil {
		return false, CommandRejectQueueFull
	}
	reason := ""
	var dropCount uint64
	warnAt := 0

	l.queueMu.Lock()
	if cmd.Type == CommandInput && l.config.PerActorLimit > 0 && cmd.ActorID != "" {
		count := l.perActorCount[cmd.ActorID]
		if count >= l.config.PerActorLimit {
			reason = CommandRejectQueueLimit
		} else {
			l.perActorCount[cmd.ActorID] = count + 1
		}
	}
	if reason == "" && !l.buffer.Push(cmd) {
		reason = CommandRejectQueueFull
	}
	if reason != "" {
		dropCount = l.incrementDropLocked(cmd.ActorID)
	} else if step := l.config.WarningStep; step > 0 {
		if length := l.buffer.Len(); length >= step && length%step == 0 {
			warnAt = length
		}
	}
	l.queueMu.Unlock()

	if reason != "" {
		l.reportDrop(reason, cmd, dropCount)
		return false, reason
	}
	if warnAt > 0 && l.hooks.OnQueueWarning != nil {
		l.hooks.OnQueueWarning(warnAt)
	}
	return true, ""
}

// Advance executes a single simulation step using the staged commands.
func (l *Loop) Advance(dt float64) (LoopStepResult, error) {
	if l == nil {
		return LoopStepResult{}, nil
	}
	commands := l.drainCommands()
	applyErr := l.engine.Apply(commands)
	tick, err := l.engine.Step(dt)
	return LoopStepResult{TickResult: tick, Commands: commands, Delta: dt}, errors.Join(applyErr, err)
}

// Run drives the fixed-timestep loop until ctx is cancelled or the match
// fails. A failed match is returned as an error wrapping ErrMatchFailed.
func (l *Loop) Run(ctx context.Context) error {
	if l == nil {
		return nil
	}
	budget := time.Second / time.Duration(l.config.TickRate)
	ticker := time.NewTicker(budget)
	defer ticker.Stop()

	clock := l.deps.Clock
	if clock == nil {
		clock = logging.ClockFunc(time.Now)
	}
	budgetSeconds := budget.Seconds()
	maxDt := budgetSeconds
	if l.config.CatchupMaxTicks > 1 {
		maxDt = budgetSeconds * float64(l.config.CatchupMaxTicks)
	}
	last := clock.Now()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			now := clock.Now()
			dt := now.Sub(last).Seconds()
			clamped := false
			if dt <= 0 {
				dt = budgetSeconds
			} else if dt > maxDt {
				dt = maxDt
				clamped = true
			}
			last = now

			result, err := l.Advance(dt)
			result.Duration = clock.Now().Sub(now)
			result.Budget = budget
			result.ClampedDelta = clamped

			if err != nil {
				if errors.Is(err, ErrMatchFailed) {
					return err
				}
				if l.hooks.OnError != nil {
					l.hooks.OnError(err)
				}
			}
			if l.hooks.AfterStep != nil {
				l.hooks.AfterStep(result)
			}
		}
	}
}

func (l *Loop) drainCommands() []Command {
	l.queueMu.Lock()
	defer l.queueMu.Unlock()
	commands := l.buffer.Drain()
	if len(l.perActorCount) > 0 {
		l.perActorCount = make(map[string]int)
	}
	return commands
}

func (l *Loop) incrementDropLocked(actorID string) uint64 {
	if actorID == "" {
		return 0
	}
	count := l.dropCounts[actorID] + 1
	l.dropCounts[actorID] = count
	return count
}

func (l *Loop) reportDrop(reason string, cmd Command, count uint64) {
	if l.hooks.OnCommandDrop != nil {
		l.hooks.OnCommandDrop(reason, cmd)
	}
	if count > 0 && count&(count-1) == 0 {
		l.deps.logf("[backpressure] dropping command actor=%s type=%s reason=%s count=%d limit=%d",
			cmd.ActorID, cmd.Type, reason, count, l.config.PerActorLimit)
	}
}

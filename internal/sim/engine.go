package sim

import (
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Nishit5799/multiplayerShooting/internal/combat"
	"github.com/Nishit5799/multiplayerShooting/internal/geom"
	"github.com/Nishit5799/multiplayerShooting/internal/movement"
	"github.com/Nishit5799/multiplayerShooting/internal/replication"
	"github.com/Nishit5799/multiplayerShooting/internal/schedule"
	"github.com/Nishit5799/multiplayerShooting/internal/spawn"
	"github.com/Nishit5799/multiplayerShooting/internal/state"
)

// ErrMatchFailed marks a fatal simulation error. Once returned, the engine
// refuses to advance.
var ErrMatchFailed = errors.New("sim: match failed")

const (
	metricTicksTotal   = "sim_ticks_total"
	metricBulletsLive  = "sim_bullets_live"
	metricPlayersLive  = "sim_players_live"
	metricShotsTotal   = "sim_shots_total"
	metricKillsTotal   = "sim_kills_total"
	metricRegenTotal   = "sim_regen_steps_total"
	metricPublishError = "sim_publish_errors_total"
)

// Tuning gathers every gameplay constant.
type Tuning struct {
	Movement         movement.Tuning
	Projectile       combat.ProjectileTuning
	Combat           combat.ResolverTuning
	WinKills         int
	RestartCountdown time.Duration
}

// DefaultTuning returns the arena defaults.
func DefaultTuning() Tuning {
	return Tuning{
		Movement:         movement.DefaultTuning(),
		Projectile:       combat.DefaultProjectileTuning(),
		Combat:           combat.DefaultResolverTuning(),
		WinKills:         5,
		RestartCountdown: 2 * time.Second,
	}
}

// Context is the explicit simulation state handed to every stage of a
// tick.
type Context struct {
	Store     *replication.Store
	Registry  *Registry
	Match     *MatchController
	Scheduler *schedule.Scheduler
	Tick      uint64
	Now       time.Duration
}

// EngineConfig describes one match instance.
type EngineConfig struct {
	MatchID     string
	Tuning      Tuning
	SpawnPoints []spawn.Point
	SpawnPolicy spawn.Policy
	Obstacles   []geom.Box
	Bounds      *geom.Box

	// Store defaults to a lenient host store.
	Store *replication.Store
}

// TickResult reports one advanced tick.
type TickResult struct {
	Tick     uint64
	Now      time.Duration
	Snapshot replication.Snapshot
	Events   []Event
}

// Engine runs the authoritative simulation of one match.
type Engine struct {
	ctx  *Context
	deps Deps
	cfg  EngineConfig

	allocator   *spawn.Allocator
	integrator  *movement.Integrator
	projectiles *combat.Simulator
	resolver    *combat.Resolver

	// failed is read by health checks off the loop goroutine.
	failed atomic.Pointer[failure]
}

type failure struct {
	err error
}

// NewEngine assembles an engine. Spawn points are enumerated once here.
func NewEngine(cfg EngineConfig, deps Deps) *Engine {
	if cfg.Store == nil {
		cfg.Store = replication.NewStore(replication.Config{Role: replication.RoleHost})
	}
	if cfg.Tuning.Movement.Bounds == nil {
		cfg.Tuning.Movement.Bounds = cfg.Bounds
	}
	rng := deps.RNG
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	e := &Engine{deps: deps, cfg: cfg}
	e.allocator = spawn.NewAllocator(rng, cfg.SpawnPolicy)
	e.allocator.Enumerate(cfg.SpawnPoints)

	sched := schedule.New()
	e.ctx = &Context{Store: cfg.Store, Scheduler: sched}
	e.ctx.Registry = NewRegistry(RegistryConfig{Allocator: e.allocator, IsHost: cfg.Store.IsHost})
	e.ctx.Match = NewMatchController(cfg.MatchID, MatchConfig{
		WinKills:    cfg.Tuning.WinKills,
		Countdown:   cfg.Tuning.RestartCountdown,
		Scheduler:   sched,
		CurrentTick: func() uint64 { return e.ctx.Tick },
		OnRestart:   e.resetMatch,
	})

	e.integrator = movement.NewIntegrator(cfg.Tuning.Movement)
	e.projectiles = combat.NewSimulator(cfg.Tuning.Projectile, cfg.Store.IsHost)
	e.resolver = combat.NewResolver(combat.ResolverConfig{
		Tuning:      cfg.Tuning.Combat,
		Scheduler:   sched,
		Lookup:      e.ctx.Registry.Get,
		Reposition:  e.reposition,
		OnDamaged:   e.onDamaged,
		OnKilled:    e.onKilled,
		OnRespawned: e.onRespawned,
		OnRegen:     func(*state.Player, int) { e.deps.add(metricRegenTotal, 1) },
		OnError:     e.fail,
	}, 2*cfg.Tuning.Projectile.Lifetime)
	return e
}

// Context exposes the simulation context.
func (e *Engine) Context() *Context {
	return e.ctx
}

// Match returns the match controller for observer registration.
func (e *Engine) Match() *MatchController {
	return e.ctx.Match
}

// Store returns the replicated store the engine publishes to.
func (e *Engine) Store() *replication.Store {
	return e.ctx.Store
}

// Err reports the fatal error that stopped the engine, if any.
func (e *Engine) Err() error {
	if f := e.failed.Load(); f != nil {
		return f.err
	}
	return nil
}

func (e *Engine) fail(err error) {
	if err == nil || e.failed.Load() != nil {
		return
	}
	if !errors.Is(err, ErrMatchFailed) {
		err = fmt.Errorf("%w: %w", ErrMatchFailed, err)
	}
	if !e.failed.CompareAndSwap(nil, &failure{err: err}) {
		return
	}
	e.deps.logf("[sim] match %s failed at tick %d: %v", e.cfg.MatchID, e.ctx.Tick, err)
}

// Join admits a participant. An empty spawn pool is fatal to the match.
func (e *Engine) Join(id, name, color string) (*state.Player, error) {
	player, err := e.ctx.Registry.Join(id, name, color)
	if err != nil {
		if errors.Is(err, spawn.ErrNoSpawnPoints) {
			e.fail(err)
			return nil, e.Err()
		}
		return nil, err
	}
	e.ctx.Match.Emit(PlayerJoined{Tick: e.ctx.Tick, PlayerID: player.ID, Name: player.Name, Color: player.Color, Position: player.Position})
	return player, nil
}

// Leave removes a participant, cancels every timer it owns, and withdraws
// its replicated key. Unknown ids are ignored.
func (e *Engine) Leave(id, reason string) bool {
	if _, ok := e.ctx.Registry.Leave(id); !ok {
		return false
	}
	e.ctx.Scheduler.CancelEntity(id)
	if err := e.ctx.Store.Delete(state.PlayerKey(id)); err != nil {
		e.deps.logf("[sim] withdraw %s: %v", id, err)
	}
	e.ctx.Match.Emit(PlayerLeft{Tick: e.ctx.Tick, PlayerID: id, Reason: reason})
	return true
}

// SetInput replaces the held input for a participant. Unknown ids are
// ignored.
func (e *Engine) SetInput(id string, input state.Input) bool {
	player, ok := e.ctx.Registry.Get(id)
	if !ok {
		return false
	}
	player.Input = input
	return true
}

// Apply executes staged commands in order.
func (e *Engine) Apply(cmds []Command) error {
	var errs []error
	for _, cmd := range cmds {
		switch cmd.Type {
		case CommandJoin:
			var name, color string
			if cmd.Join != nil {
				name, color = cmd.Join.Name, cmd.Join.Color
			}
			if _, err := e.Join(cmd.ActorID, name, color); err != nil {
				errs = append(errs, err)
			}
		case CommandInput:
			if cmd.Input != nil {
				e.SetInput(cmd.ActorID, cmd.Input.State())
			}
		case CommandLeave:
			reason := ""
			if cmd.Leave != nil {
				reason = cmd.Leave.Reason
			}
			e.Leave(cmd.ActorID, reason)
		default:
			errs = append(errs, fmt.Errorf("sim: unknown command type %q", cmd.Type))
		}
	}
	return errors.Join(errs...)
}

// Step advances the match by dt seconds and publishes the result.
func (e *Engine) Step(dt float64) (TickResult, error) {
	if err := e.Err(); err != nil {
		return TickResult{}, err
	}
	ctx := e.ctx
	ctx.Tick++
	ctx.Now += time.Duration(dt * float64(time.Second))

	ctx.Scheduler.Advance(ctx.Now)
	if err := e.Err(); err != nil {
		return TickResult{}, err
	}

	ctx.Registry.Each(func(p *state.Player) bool {
		e.integrator.Step(p, dt)
		return true
	})
	e.fire(ctx)
	e.advanceProjectiles(ctx, dt)
	ctx.Match.Update(ctx.Now)

	snapshot, err := e.publish(ctx)
	if err != nil {
		e.deps.add(metricPublishError, 1)
	}
	e.deps.add(metricTicksTotal, 1)
	e.deps.store(metricPlayersLive, uint64(ctx.Registry.Len()))
	e.deps.store(metricBulletsLive, uint64(len(e.projectiles.Bullets())))

	return TickResult{
		Tick:     ctx.Tick,
		Now:      ctx.Now,
		Snapshot: snapshot,
		Events:   ctx.Match.Dispatch(),
	}, err
}

func (e *Engine) fire(ctx *Context) {
	ctx.Registry.Each(func(p *state.Player) bool {
		if !p.Input.Fire {
			return true
		}
		bullet, ok := e.projectiles.Fire(p, ctx.Tick, ctx.Now)
		if !ok {
			return true
		}
		e.deps.add(metricShotsTotal, 1)
		ctx.Match.Emit(BulletFired{Tick: ctx.Tick, BulletID: bullet.ID, OwnerID: p.ID, Origin: bullet.Origin, Direction: bullet.Direction})
		return true
	})
}

func (e *Engine) advanceProjectiles(ctx *Context, dt float64) {
	result := e.projectiles.Advance(combat.AdvanceConfig{
		Delta:        dt,
		Tick:         ctx.Tick,
		Now:          ctx.Now,
		VisitTargets: ctx.Registry.Each,
		Obstacles:    e.cfg.Obstacles,
		Bounds:       e.cfg.Bounds,
	})
	for _, collision := range result.Collisions {
		e.resolver.Apply(collision, ctx.Now)
	}
	for _, resolution := range result.Resolutions {
		event := BulletResolved{
			Tick:     ctx.Tick,
			BulletID: resolution.BulletID,
			OwnerID:  resolution.OwnerID,
			Position: resolution.Position,
			Hit:      resolution.Hit,
		}
		if resolution.Hit {
			event.PlayerID = struckPlayer(result.Collisions, resolution.BulletID)
		}
		ctx.Match.Emit(event)
	}
	e.resolver.Prune(ctx.Now)
}

func struckPlayer(collisions []combat.Collision, bulletID string) string {
	for _, c := range collisions {
		if c.BulletID == bulletID {
			return c.PlayerID
		}
	}
	return ""
}

func (e *Engine) publish(ctx *Context) (replication.Snapshot, error) {
	store := ctx.Store
	var errs []error
	set := func(key string, value any) {
		if err := store.Set(key, value); err != nil {
			errs = append(errs, err)
		}
	}

	ctx.Registry.Each(func(p *state.Player) bool {
		set(state.PlayerKey(p.ID), p.Record())
		return true
	})
	bullets := make([]state.BulletRecord, 0, len(e.projectiles.Bullets()))
	for _, bullet := range e.projectiles.Bullets() {
		bullets = append(bullets, bullet.Record())
	}
	set(state.KeyBullets, bullets)
	hits := make([]state.HitRecord, 0, len(e.projectiles.Hits()))
	for _, hit := range e.projectiles.Hits() {
		hits = append(hits, hit.Record())
	}
	set(state.KeyHits, hits)
	set(state.KeyMatch, ctx.Match.State().Record())

	snapshot, err := store.Flush(ctx.Tick)
	if err != nil {
		errs = append(errs, err)
	}
	return snapshot, errors.Join(errs...)
}

func (e *Engine) reposition(p *state.Player) error {
	point, err := e.allocator.Allocate()
	if err != nil {
		return err
	}
	p.Position = point.Position
	p.Velocity = mgl64.Vec3{}
	return nil
}

func (e *Engine) onDamaged(victim *state.Player, c combat.Collision) {
	e.ctx.Match.Emit(PlayerDamaged{
		Tick:      e.ctx.Tick,
		PlayerID:  victim.ID,
		ShooterID: c.OwnerID,
		BulletID:  c.BulletID,
		Amount:    c.Damage,
		Health:    victim.Health,
	})
}

func (e *Engine) onKilled(victim, killer *state.Player, c combat.Collision) {
	e.deps.add(metricKillsTotal, 1)
	event := PlayerKilled{Tick: e.ctx.Tick, VictimID: victim.ID, BulletID: c.BulletID, VictimDeaths: victim.Deaths}
	if killer != nil {
		event.KillerID = killer.ID
		event.KillerKills = killer.Kills
	}
	e.ctx.Match.Emit(event)
	if killer != nil {
		e.ctx.Match.NoteKill(killer, e.ctx.Tick)
	}
}

func (e *Engine) onRespawned(p *state.Player) {
	e.ctx.Match.Emit(PlayerRespawned{Tick: e.ctx.Tick, PlayerID: p.ID, Position: p.Position})
}

// resetMatch reinitializes every player in place for a new epoch.
func (e *Engine) resetMatch(*state.MatchState) {
	ids := e.ctx.Registry.IDs()
	e.resolver.Reset(ids)
	e.projectiles.Reset()
	e.ctx.Registry.Each(func(p *state.Player) bool {
		p.ResetForMatch()
		if err := e.reposition(p); err != nil {
			e.fail(err)
			return false
		}
		return true
	})
}

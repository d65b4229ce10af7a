package combat

import (
	"time"

	"github.com/Nishit5799/multiplayerShooting/internal/schedule"
	"github.com/Nishit5799/multiplayerShooting/internal/state"
)

const (
	KindRespawn schedule.Kind = "respawn"
	KindRegen   schedule.Kind = "regen"
)

// Outcome classifies what a collision did to its target.
type Outcome int

const (
	OutcomeIgnored Outcome = iota
	OutcomeDamaged
	OutcomeKilled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDamaged:
		return "damaged"
	case OutcomeKilled:
		return "killed"
	default:
		return "ignored"
	}
}

// ResolverTuning holds the damage-side timers.
type ResolverTuning struct {
	RespawnDelay  time.Duration
	RegenDelay    time.Duration
	RegenInterval time.Duration
	RegenAmount   int
}

// DefaultResolverTuning returns the arena defaults.
func DefaultResolverTuning() ResolverTuning {
	return ResolverTuning{
		RespawnDelay:  2 * time.Second,
		RegenDelay:    7 * time.Second,
		RegenInterval: time.Second,
		RegenAmount:   10,
	}
}

// ResolverConfig wires the resolver into the simulation. Lookup must only
// return players still present in the match.
type ResolverConfig struct {
	Tuning    ResolverTuning
	Scheduler *schedule.Scheduler
	Lookup    func(id string) (*state.Player, bool)

	// Reposition moves a respawning player to a fresh spawn point. An error
	// aborts the respawn and is passed to OnError.
	Reposition func(p *state.Player) error

	OnDamaged   func(victim *state.Player, c Collision)
	OnKilled    func(victim, killer *state.Player, c Collision)
	OnRespawned func(p *state.Player)
	OnRegen     func(p *state.Player, amount int)
	OnError     func(err error)
}

// Resolver turns collisions into damage, deaths and kill credit, and owns
// the respawn and regeneration timers.
type Resolver struct {
	cfg ResolverConfig

	// applied remembers which bullets already dealt damage, keyed to the
	// time they did.
	applied map[string]time.Duration
	// retain bounds how long applied entries are kept.
	retain time.Duration
}

// NewResolver constructs a resolver. retain should exceed the bullet
// lifetime so a bullet can never outlive its applied entry.
func NewResolver(cfg ResolverConfig, retain time.Duration) *Resolver {
	if cfg.Scheduler == nil {
		cfg.Scheduler = schedule.New()
	}
	return &Resolver{
		cfg:     cfg,
		applied: make(map[string]time.Duration),
		retain:  retain,
	}
}

// Apply resolves one collision at simulation time now. A bullet damages at
// most one player at most once; self hits, geometry hits, and hits on
// missing or dead players are ignored.
func (r *Resolver) Apply(c Collision, now time.Duration) Outcome {
	if r == nil || c.PlayerID == "" || c.BulletID == "" {
		return OutcomeIgnored
	}
	if _, seen := r.applied[c.BulletID]; seen {
		return OutcomeIgnored
	}
	if c.PlayerID == c.OwnerID {
		return OutcomeIgnored
	}
	victim, ok := r.lookup(c.PlayerID)
	if !ok || !victim.Alive() || !victim.Collidable {
		return OutcomeIgnored
	}

	r.applied[c.BulletID] = now
	victim.Health -= c.Damage

	if victim.Health <= 0 {
		r.kill(victim, c)
		return OutcomeKilled
	}

	r.restartRegen(victim)
	if r.cfg.OnDamaged != nil {
		r.cfg.OnDamaged(victim, c)
	}
	return OutcomeDamaged
}

func (r *Resolver) kill(victim *state.Player, c Collision) {
	victim.Health = 0
	victim.Dead = true
	victim.Deaths++
	victim.Collidable = false
	victim.Animation = state.AnimationDeath
	victim.Velocity[0] = 0
	victim.Velocity[2] = 0

	sched := r.cfg.Scheduler
	sched.Cancel(schedule.Key{EntityID: victim.ID, Kind: KindRegen})
	id := victim.ID
	sched.Schedule(schedule.Key{EntityID: id, Kind: KindRespawn}, r.cfg.Tuning.RespawnDelay, func(time.Duration) {
		r.respawn(id)
	})

	var killer *state.Player
	if c.OwnerID != victim.ID {
		if p, ok := r.lookup(c.OwnerID); ok {
			killer = p
			killer.Kills++
		}
	}

	if r.cfg.OnDamaged != nil {
		r.cfg.OnDamaged(victim, c)
	}
	if r.cfg.OnKilled != nil {
		r.cfg.OnKilled(victim, killer, c)
	}
}

func (r *Resolver) respawn(id string) {
	p, ok := r.lookup(id)
	if !ok {
		return
	}
	if r.cfg.Reposition != nil {
		if err := r.cfg.Reposition(p); err != nil {
			if r.cfg.OnError != nil {
				r.cfg.OnError(err)
			}
			return
		}
	}
	p.Health = state.MaxHealth
	p.Dead = false
	p.Collidable = true
	p.Animation = state.AnimationIdle
	r.cfg.Scheduler.Cancel(schedule.Key{EntityID: id, Kind: KindRegen})
	if r.cfg.OnRespawned != nil {
		r.cfg.OnRespawned(p)
	}
}

// NoteHealthChange restarts the regeneration timer for a player whose
// health was changed by anything other than regeneration itself.
func (r *Resolver) NoteHealthChange(p *state.Player) {
	if r == nil || p == nil {
		return
	}
	if !p.Alive() {
		r.cfg.Scheduler.Cancel(schedule.Key{EntityID: p.ID, Kind: KindRegen})
		return
	}
	r.restartRegen(p)
}

func (r *Resolver) restartRegen(p *state.Player) {
	key := schedule.Key{EntityID: p.ID, Kind: KindRegen}
	if p.Health >= state.MaxHealth || r.cfg.Tuning.RegenAmount <= 0 {
		r.cfg.Scheduler.Cancel(key)
		return
	}
	id := p.ID
	r.cfg.Scheduler.Schedule(key, r.cfg.Tuning.RegenDelay, func(time.Duration) {
		r.regenStep(id)
	})
}

// regenStep adds one increment and re-arms itself until health is full.
// The first increment lands one interval after the delay elapses.
func (r *Resolver) regenStep(id string) {
	p, ok := r.lookup(id)
	if !ok || !p.Alive() {
		return
	}
	key := schedule.Key{EntityID: id, Kind: KindRegen}
	next := func(time.Duration) {
		if p, ok := r.lookup(id); ok && p.Alive() {
			gain := r.cfg.Tuning.RegenAmount
			if p.Health+gain > state.MaxHealth {
				gain = state.MaxHealth - p.Health
			}
			p.Health += gain
			if r.cfg.OnRegen != nil && gain > 0 {
				r.cfg.OnRegen(p, gain)
			}
			if p.Health < state.MaxHealth {
				r.regenStep(id)
			}
		}
	}
	r.cfg.Scheduler.Schedule(key, r.cfg.Tuning.RegenInterval, next)
}

// Forget drops every timer owned by the player. It is called when the
// player leaves.
func (r *Resolver) Forget(id string) {
	if r == nil {
		return
	}
	r.cfg.Scheduler.Cancel(schedule.Key{EntityID: id, Kind: KindRespawn})
	r.cfg.Scheduler.Cancel(schedule.Key{EntityID: id, Kind: KindRegen})
}

// Prune discards applied-bullet entries older than the retention window.
func (r *Resolver) Prune(now time.Duration) {
	if r == nil || r.retain <= 0 {
		return
	}
	for id, at := range r.applied {
		if now-at > r.retain {
			delete(r.applied, id)
		}
	}
}

// Reset cancels every combat timer for the listed players and forgets
// applied bullets.
func (r *Resolver) Reset(ids []string) {
	if r == nil {
		return
	}
	for _, id := range ids {
		r.Forget(id)
	}
	r.applied = make(map[string]time.Duration)
}

func (r *Resolver) lookup(id string) (*state.Player, bool) {
	if r.cfg.Lookup == nil || id == "" {
		return nil, false
	}
	p, ok := r.cfg.Lookup(id)
	if !ok || p == nil {
		return nil, false
	}
	return p, true
}

package state

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// MaxHealth is the health every player joins and respawns with.
const MaxHealth = 100

// Animation is the presentation label replicated for each player.
type Animation string

const (
	AnimationIdle     Animation = "idle"
	AnimationRunning  Animation = "running"
	AnimationShooting Animation = "shooting"
	AnimationDeath    Animation = "death"
)

// Input is the decoded per-tick intent of one participant. Move is ignored
// unless Moving is set. Direction, when present, overrides the facing-based
// aim for shots fired this tick.
type Input struct {
	Move      mgl64.Vec2
	Moving    bool
	Fire      bool
	AimUp     bool
	AimDown   bool
	Direction *mgl64.Vec3
}

// Player is the host's authoritative record for one participant.
type Player struct {
	ID    string
	Name  string
	Color string

	Position    mgl64.Vec3
	Velocity    mgl64.Vec3
	Facing      float64
	VerticalAim float64
	Animation   Animation

	Health int
	Dead   bool
	Kills  int
	Deaths int

	// Collidable is cleared while dead so sensors skip the player.
	Collidable bool

	Input    Input
	lastFire time.Duration
	hasFired bool
}

// NewPlayer returns a freshly joined player at full health.
func NewPlayer(id, name, color string) *Player {
	return &Player{
		ID:         id,
		Name:       name,
		Color:      color,
		Animation:  AnimationIdle,
		Health:     MaxHealth,
		Collidable: true,
	}
}

// Alive reports whether the player can act and be targeted.
func (p *Player) Alive() bool {
	return p != nil && !p.Dead && p.Health > 0
}

// CanFire reports whether the per-player cooldown has elapsed at now.
func (p *Player) CanFire(now, interval time.Duration) bool {
	if p == nil {
		return false
	}
	if !p.hasFired {
		return true
	}
	return now-p.lastFire >= interval
}

// MarkFired records a shot at now for cooldown accounting.
func (p *Player) MarkFired(now time.Duration) {
	if p == nil {
		return
	}
	p.lastFire = now
	p.hasFired = true
}

// ResetForMatch reinitializes the player for a new epoch. Cosmetic fields
// and identity are kept.
func (p *Player) ResetForMatch() {
	if p == nil {
		return
	}
	p.Health = MaxHealth
	p.Dead = false
	p.Kills = 0
	p.Deaths = 0
	p.Collidable = true
	p.Velocity = mgl64.Vec3{}
	p.VerticalAim = 0
	p.Animation = AnimationIdle
	p.hasFired = false
	p.lastFire = 0
}

// Record converts the player into its replicated form.
func (p *Player) Record() PlayerRecord {
	return PlayerRecord{
		ID:          p.ID,
		Name:        p.Name,
		Color:       p.Color,
		Position:    p.Position,
		Facing:      p.Facing,
		VerticalAim: p.VerticalAim,
		Health:      p.Health,
		Dead:        p.Dead,
		Kills:       p.Kills,
		Deaths:      p.Deaths,
		Animation:   p.Animation,
	}
}

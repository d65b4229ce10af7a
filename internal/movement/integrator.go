package movement

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Nishit5799/multiplayerShooting/internal/geom"
	"github.com/Nishit5799/multiplayerShooting/internal/state"
)

// velocityEpsilon snaps damped planar velocity to rest.
const velocityEpsilon = 1e-4

// Tuning holds the movement constants. Lerp and damping factors apply per
// tick; speeds and rates are per second.
type Tuning struct {
	RunSpeed         float64
	RotationLerp     float64
	Damping          float64
	AimRate          float64
	AimLimit         float64
	ReplicaSmoothing float64

	// Bounds, when set, clamps authoritative positions to the arena.
	Bounds *geom.Box
}

// DefaultTuning returns the arena defaults.
func DefaultTuning() Tuning {
	return Tuning{
		RunSpeed:         4,
		RotationLerp:     0.1,
		Damping:          0.9,
		AimRate:          1.5,
		AimLimit:         math.Pi / 4,
		ReplicaSmoothing: 0.2,
	}
}

// Integrator advances player movement. The host uses Step for every player
// it simulates; replicas use Follow for every player they display.
type Integrator struct {
	tuning Tuning
}

// NewIntegrator constructs an integrator with the provided tuning.
func NewIntegrator(tuning Tuning) *Integrator {
	return &Integrator{tuning: tuning}
}

// Tuning returns the integrator's constants.
func (i *Integrator) Tuning() Tuning {
	return i.tuning
}

// Step applies one authoritative tick of the player's current input.
// Movement input is interpreted in world space: +Y on the stick is +Z.
func (i *Integrator) Step(p *state.Player, dt float64) {
	if p == nil {
		return
	}
	if p.Dead {
		p.Velocity = mgl64.Vec3{0, p.Velocity.Y(), 0}
		p.Animation = state.AnimationDeath
		return
	}

	input := p.Input
	if input.AimUp != input.AimDown {
		delta := i.tuning.AimRate * dt
		if input.AimDown {
			delta = -delta
		}
		p.VerticalAim = geom.ClampAim(p.VerticalAim+delta, i.tuning.AimLimit)
	}

	move := mgl64.Vec3{input.Move.X(), 0, input.Move.Y()}
	if input.Moving && geom.Finite3(move) && move.Len() > 1e-9 {
		move = move.Normalize()
		target := math.Atan2(move.X(), move.Z())
		p.Facing = geom.LerpAngle(p.Facing, target, i.tuning.RotationLerp)
		p.Velocity[0] = move.X() * i.tuning.RunSpeed
		p.Velocity[2] = move.Z() * i.tuning.RunSpeed
		p.Animation = state.AnimationRunning
	} else {
		p.Velocity[0] = damp(p.Velocity[0], i.tuning.Damping)
		p.Velocity[2] = damp(p.Velocity[2], i.tuning.Damping)
		p.Animation = state.AnimationIdle
	}
	if input.Fire {
		p.Animation = state.AnimationShooting
	}

	next := p.Position.Add(p.Velocity.Mul(dt))
	if !geom.Finite3(next) {
		p.Velocity = mgl64.Vec3{}
		return
	}
	p.Position = next
	if i.tuning.Bounds != nil {
		p.Position = i.tuning.Bounds.Clamp(p.Position)
	}
}

func damp(v, factor float64) float64 {
	v *= factor
	if math.Abs(v) < velocityEpsilon {
		return 0
	}
	return v
}

// View is a replica's local presentation of one remote player.
type View struct {
	ID          string
	Name        string
	Color       string
	Position    mgl64.Vec3
	Facing      float64
	VerticalAim float64
	Animation   state.Animation
	Health      int
	Dead        bool
	Kills       int
	Deaths      int

	initialized bool
}

// Follow moves the view toward the replicated record. Position is
// exponentially smoothed; discrete fields are applied directly.
func (i *Integrator) Follow(v *View, rec state.PlayerRecord) {
	if v == nil {
		return
	}
	if !v.initialized {
		v.Position = rec.Position
		v.initialized = true
	} else {
		t := i.tuning.ReplicaSmoothing
		v.Position = v.Position.Add(rec.Position.Sub(v.Position).Mul(t))
	}
	i.Sync(v, rec)
}

// Sync applies the record's discrete fields without moving the view.
func (i *Integrator) Sync(v *View, rec state.PlayerRecord) {
	if v == nil {
		return
	}
	v.ID = rec.ID
	v.Name = rec.Name
	v.Color = rec.Color
	v.Facing = rec.Facing
	v.VerticalAim = rec.VerticalAim
	v.Animation = rec.Animation
	v.Health = rec.Health
	v.Dead = rec.Dead
	v.Kills = rec.Kills
	v.Deaths = rec.Deaths
}

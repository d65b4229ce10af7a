package combat

import (
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Nishit5799/multiplayerShooting/internal/geom"
	"github.com/Nishit5799/multiplayerShooting/internal/state"
)

// ProjectileTuning holds the weapon and sensor constants.
type ProjectileTuning struct {
	FireInterval time.Duration
	Speed        float64
	Damage       int
	Lifetime     time.Duration
	HitLifetime  time.Duration
	// Mount is the muzzle offset in the shooter's local frame: X right,
	// Y up, Z forward.
	Mount        mgl64.Vec3
	BulletRadius float64

	CapsuleRadius     float64
	CapsuleHalfHeight float64
	CapsuleCenterY    float64
}

// DefaultProjectileTuning returns the arena defaults.
func DefaultProjectileTuning() ProjectileTuning {
	return ProjectileTuning{
		FireInterval:      280 * time.Millisecond,
		Speed:             20,
		Damage:            10,
		Lifetime:          2 * time.Second,
		HitLifetime:       500 * time.Millisecond,
		Mount:             mgl64.Vec3{0, 0.5, 1.2},
		BulletRadius:      0.05,
		CapsuleRadius:     0.3,
		CapsuleHalfHeight: 0.64,
		CapsuleCenterY:    1,
	}
}

// Collision reports the first qualifying intersection of a bullet. PlayerID
// is empty when the bullet struck geometry.
type Collision struct {
	BulletID string
	OwnerID  string
	PlayerID string
	Position mgl64.Vec3
	Damage   int
	Tick     uint64
}

// Resolution reports a bullet leaving play. Hit is false when the bullet
// expired without striking anything.
type Resolution struct {
	BulletID string
	OwnerID  string
	Position mgl64.Vec3
	Hit      bool
}

// AdvanceConfig carries the per-tick inputs of the projectile simulator.
type AdvanceConfig struct {
	Delta float64
	Tick  uint64
	Now   time.Duration

	// VisitTargets yields every player a sensor may strike. Returning false
	// stops the scan.
	VisitTargets func(visit func(p *state.Player) bool)
	Obstacles    []geom.Box
	Bounds       *geom.Box
}

// AdvanceResult reports what happened to bullets during one tick.
type AdvanceResult struct {
	Collisions  []Collision
	Resolutions []Resolution
}

// Simulator owns live bullets and hit markers on the host.
type Simulator struct {
	tuning   ProjectileTuning
	isHost   func() bool
	bullets  []*state.Bullet
	hits     []state.Hit
	counters map[string]uint64
}

// NewSimulator constructs a projectile simulator. isHost gates fire
// requests; nil means always host.
func NewSimulator(tuning ProjectileTuning, isHost func() bool) *Simulator {
	return &Simulator{
		tuning:   tuning,
		isHost:   isHost,
		bullets:  make([]*state.Bullet, 0),
		hits:     make([]state.Hit, 0),
		counters: make(map[string]uint64),
	}
}

// Tuning returns the simulator's constants.
func (s *Simulator) Tuning() ProjectileTuning {
	return s.tuning
}

// Fire spawns a bullet for the shooter when this process is host, the
// shooter is alive, and its cooldown has elapsed. Denied requests are
// silent.
func (s *Simulator) Fire(shooter *state.Player, tick uint64, now time.Duration) (*state.Bullet, bool) {
	if s == nil || shooter == nil {
		return nil, false
	}
	if s.isHost != nil && !s.isHost() {
		return nil, false
	}
	if !shooter.Alive() || !shooter.Collidable {
		return nil, false
	}
	if !shooter.CanFire(now, s.tuning.FireInterval) {
		return nil, false
	}

	origin := shooter.Position.Add(MuzzleOffset(s.tuning.Mount, shooter.Facing, shooter.VerticalAim))
	var aim state.Aim = state.Angular{Yaw: shooter.Facing, Pitch: shooter.VerticalAim}
	if dir := shooter.Input.Direction; dir != nil && geom.Finite3(*dir) && dir.Len() > 1e-9 {
		aim = state.Directional{Vector: *dir}
	}

	s.counters[shooter.ID]++
	bullet := state.NewBullet(shooter.ID, s.counters[shooter.ID], origin, aim, s.tuning.Speed, s.tuning.Damage, tick, now)
	shooter.MarkFired(now)
	s.bullets = append(s.bullets, bullet)
	return bullet, true
}

// MuzzleOffset rotates the weapon mount into the shooter's orientation.
// Yaw turns the mount around +Y; the sine of the vertical aim lifts the
// forward reach.
func MuzzleOffset(mount mgl64.Vec3, yaw, pitch float64) mgl64.Vec3 {
	planar := mgl64.Rotate3DY(yaw).Mul3x1(mgl64.Vec3{mount.X(), 0, mount.Z()})
	return planar.Add(mgl64.Vec3{0, mount.Y() + math.Sin(pitch)*mount.Z(), 0})
}

// Bullets returns the live bullets in spawn order.
func (s *Simulator) Bullets() []*state.Bullet {
	return s.bullets
}

// Hits returns the live hit markers in creation order.
func (s *Simulator) Hits() []state.Hit {
	return s.hits
}

// Advance moves every live bullet, resolves its first qualifying
// intersection, expires bullets past their lifetime or outside the arena,
// and ages out hit markers.
func (s *Simulator) Advance(cfg AdvanceConfig) AdvanceResult {
	result := AdvanceResult{}
	if s == nil {
		return result
	}

	live := s.bullets[:0]
	for _, bullet := range s.bullets {
		if bullet.Inert {
			continue
		}
		from := bullet.Position
		to := from.Add(bullet.Velocity().Mul(cfg.Delta))

		if collision, ok := s.sweep(bullet, from, to, cfg); ok {
			bullet.Position = collision.Position
			bullet.Inert = true
			result.Collisions = append(result.Collisions, collision)
			result.Resolutions = append(result.Resolutions, Resolution{
				BulletID: bullet.ID,
				OwnerID:  bullet.OwnerID,
				Position: collision.Position,
				Hit:      true,
			})
			s.hits = append(s.hits, state.Hit{ID: bullet.ID, Position: collision.Position, CreatedTick: cfg.Tick, CreatedAt: cfg.Now})
			continue
		}

		bullet.Position = to
		expired := s.tuning.Lifetime > 0 && cfg.Now-bullet.SpawnedAt >= s.tuning.Lifetime
		if cfg.Bounds != nil && !cfg.Bounds.Contains(to) {
			expired = true
		}
		if expired {
			bullet.Inert = true
			result.Resolutions = append(result.Resolutions, Resolution{BulletID: bullet.ID, OwnerID: bullet.OwnerID, Position: to})
			continue
		}
		live = append(live, bullet)
	}
	for i := len(live); i < len(s.bullets); i++ {
		s.bullets[i] = nil
	}
	s.bullets = live

	s.expireHits(cfg.Now)
	return result
}

func (s *Simulator) sweep(bullet *state.Bullet, from, to mgl64.Vec3, cfg AdvanceConfig) (Collision, bool) {
	best := math.Inf(1)
	struck := ""

	if cfg.VisitTargets != nil {
		cfg.VisitTargets(func(p *state.Player) bool {
			if p == nil || p.ID == bullet.OwnerID || !p.Collidable || !p.Alive() {
				return true
			}
			capsule := geom.Capsule{
				Base:       p.Position,
				Radius:     s.tuning.CapsuleRadius,
				HalfHeight: s.tuning.CapsuleHalfHeight,
				CenterY:    s.tuning.CapsuleCenterY,
			}
			if t, ok := geom.SweepCapsule(from, to, s.tuning.BulletRadius, capsule); ok && t < best {
				best = t
				struck = p.ID
			}
			return true
		})
	}

	for _, box := range cfg.Obstacles {
		if t, ok := geom.SweepBox(from, to, box); ok && t < best {
			best = t
			struck = ""
		}
	}

	if math.IsInf(best, 1) {
		return Collision{}, false
	}
	return Collision{
		BulletID: bullet.ID,
		OwnerID:  bullet.OwnerID,
		PlayerID: struck,
		Position: from.Add(to.Sub(from).Mul(best)),
		Damage:   bullet.Damage,
		Tick:     cfg.Tick,
	}, true
}

func (s *Simulator) expireHits(now time.Duration) {
	if len(s.hits) == 0 {
		return
	}
	kept := s.hits[:0]
	for _, hit := range s.hits {
		if s.tuning.HitLifetime > 0 && now-hit.CreatedAt >= s.tuning.HitLifetime {
			continue
		}
		kept = append(kept, hit)
	}
	s.hits = kept
}

// Reset drops every bullet and hit marker. Per-owner counters survive so
// bullet ids stay unique across restarts.
func (s *Simulator) Reset() {
	if s == nil {
		return
	}
	s.bullets = s.bullets[:0]
	s.hits = s.hits[:0]
}

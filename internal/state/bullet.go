package state

import (
	"math"
	"strconv"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// Aim selects how a bullet's travel direction was requested. It is
// resolved once at spawn time.
type Aim interface {
	Direction() mgl64.Vec3
	aim()
}

// Directional aims along an explicit vector.
type Directional struct {
	Vector mgl64.Vec3
}

// Direction returns the normalized vector, or +Z when degenerate.
func (d Directional) Direction() mgl64.Vec3 {
	if d.Vector.Len() < 1e-9 {
		return mgl64.Vec3{0, 0, 1}
	}
	return d.Vector.Normalize()
}

func (Directional) aim() {}

// Angular aims with a yaw around +Y (0 faces +Z) and a pitch above the
// horizontal plane.
type Angular struct {
	Yaw   float64
	Pitch float64
}

// Direction converts the angle pair into a unit vector.
func (a Angular) Direction() mgl64.Vec3 {
	cos := math.Cos(a.Pitch)
	return mgl64.Vec3{math.Sin(a.Yaw) * cos, math.Sin(a.Pitch), math.Cos(a.Yaw) * cos}
}

func (Angular) aim() {}

// BulletID composes the identifier for the owner's seq-th shot.
func BulletID(ownerID string, seq uint64) string {
	return ownerID + "-" + strconv.FormatUint(seq, 10)
}

// Bullet is a live projectile owned by the host.
type Bullet struct {
	ID      string
	OwnerID string
	Seq     uint64

	Origin    mgl64.Vec3
	Position  mgl64.Vec3
	Aim       Aim
	Direction mgl64.Vec3
	Speed     float64
	Damage    int

	SpawnTick uint64
	SpawnedAt time.Duration

	// Inert bullets ignore every further intersection.
	Inert bool
}

// NewBullet resolves the aim and returns a bullet ready to advance.
func NewBullet(ownerID string, seq uint64, origin mgl64.Vec3, aim Aim, speed float64, damage int, tick uint64, now time.Duration) *Bullet {
	return &Bullet{
		ID:        BulletID(ownerID, seq),
		OwnerID:   ownerID,
		Seq:       seq,
		Origin:    origin,
		Position:  origin,
		Aim:       aim,
		Direction: aim.Direction(),
		Speed:     speed,
		Damage:    damage,
		SpawnTick: tick,
		SpawnedAt: now,
	}
}

// Velocity returns the bullet's velocity vector.
func (b *Bullet) Velocity() mgl64.Vec3 {
	return b.Direction.Mul(b.Speed)
}

// Record converts the bullet into its replicated form, keeping the aim
// variant it was fired with.
func (b *Bullet) Record() BulletRecord {
	rec := BulletRecord{
		ID:        b.ID,
		OwnerID:   b.OwnerID,
		Position:  b.Position,
		SpawnTick: b.SpawnTick,
	}
	switch aim := b.Aim.(type) {
	case Angular:
		rec.Angle = &AngleRecord{Yaw: aim.Yaw, Pitch: aim.Pitch}
	default:
		dir := b.Direction
		rec.Direction = &dir
	}
	return rec
}

// Hit is a short-lived cosmetic marker left where a bullet resolved.
type Hit struct {
	ID          string
	Position    mgl64.Vec3
	CreatedTick uint64
	CreatedAt   time.Duration
}

// Record converts the hit into its replicated form.
func (h Hit) Record() HitRecord {
	return HitRecord{ID: h.ID, Position: h.Position, CreatedTick: h.CreatedTick}
}

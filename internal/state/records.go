package state

import (
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

// Replicated keys. Every player owns one key; the match-wide lists are
// single keys replaced in full on every publish.
const (
	PlayerKeyPrefix = "player/"
	KeyBullets      = "match/bullets"
	KeyHits         = "match/hits"
	KeyMatch        = "match/state"
)

// PlayerKey returns the replicated key for a player id.
func PlayerKey(id string) string {
	return PlayerKeyPrefix + id
}

// PlayerIDFromKey extracts the player id from a replicated key.
func PlayerIDFromKey(key string) (string, bool) {
	if !strings.HasPrefix(key, PlayerKeyPrefix) {
		return "", false
	}
	return strings.TrimPrefix(key, PlayerKeyPrefix), true
}

// PlayerRecord is the replicated view of a player.
type PlayerRecord struct {
	ID          string     `json:"id" msgpack:"id"`
	Name        string     `json:"name" msgpack:"name"`
	Color       string     `json:"color" msgpack:"color"`
	Position    mgl64.Vec3 `json:"position" msgpack:"position"`
	Facing      float64    `json:"facing" msgpack:"facing"`
	VerticalAim float64    `json:"verticalAim" msgpack:"verticalAim"`
	Health      int        `json:"health" msgpack:"health"`
	Dead        bool       `json:"dead" msgpack:"dead"`
	Kills       int        `json:"kills" msgpack:"kills"`
	Deaths      int        `json:"deaths" msgpack:"deaths"`
	Animation   Animation  `json:"animation" msgpack:"animation"`
}

// AngleRecord carries the legacy yaw/pitch aim of a bullet.
type AngleRecord struct {
	Yaw   float64 `json:"yaw" msgpack:"yaw"`
	Pitch float64 `json:"pitch" msgpack:"pitch"`
}

// BulletRecord is the replicated view of a bullet. Exactly one of
// Direction and Angle is set; Direction wins when both are present.
type BulletRecord struct {
	ID        string       `json:"id" msgpack:"id"`
	OwnerID   string       `json:"ownerId" msgpack:"ownerId"`
	Position  mgl64.Vec3   `json:"position" msgpack:"position"`
	Direction *mgl64.Vec3  `json:"direction,omitempty" msgpack:"direction,omitempty"`
	Angle     *AngleRecord `json:"angle,omitempty" msgpack:"angle,omitempty"`
	SpawnTick uint64       `json:"spawnTick" msgpack:"spawnTick"`
}

// Aim rebuilds the aim variant carried by the record.
func (r BulletRecord) Aim() Aim {
	if r.Direction != nil {
		return Directional{Vector: *r.Direction}
	}
	if r.Angle != nil {
		return Angular{Yaw: r.Angle.Yaw, Pitch: r.Angle.Pitch}
	}
	return Directional{}
}

// HitRecord is the replicated view of a hit marker.
type HitRecord struct {
	ID          string     `json:"id" msgpack:"id"`
	Position    mgl64.Vec3 `json:"position" msgpack:"position"`
	CreatedTick uint64     `json:"createdTick" msgpack:"createdTick"`
}

// MatchRecord is the replicated view of the match state. Winner is empty
// until someone wins; Countdown is the seconds left before restart.
type MatchRecord struct {
	ID        string  `json:"id" msgpack:"id"`
	Epoch     uint64  `json:"epoch" msgpack:"epoch"`
	Winner    string  `json:"winner,omitempty" msgpack:"winner,omitempty"`
	Countdown float64 `json:"countdown,omitempty" msgpack:"countdown,omitempty"`
}

package combat

import (
	"context"

	"github.com/Nishit5799/multiplayerShooting/logging"
)

const (
	// EventBulletFired is emitted when the host accepts a fire request.
	EventBulletFired logging.EventType = "combat.bullet_fired"
	// EventBulletResolved is emitted when a bullet hits something or expires.
	EventBulletResolved logging.EventType = "combat.bullet_resolved"
	// EventPlayerDamaged is emitted when a bullet reduces a player's health.
	EventPlayerDamaged logging.EventType = "combat.player_damaged"
	// EventPlayerKilled is emitted when a player's health reaches zero.
	EventPlayerKilled logging.EventType = "combat.player_killed"
	// EventPlayerRespawned is emitted when a dead player re-enters play.
	EventPlayerRespawned logging.EventType = "combat.player_respawned"
)

type BulletFiredPayload struct {
	BulletID string  `json:"bulletId"`
	Yaw      float64 `json:"yaw"`
	Pitch    float64 `json:"pitch"`
}

// BulletResolvedPayload carries the contact point. Hit is false for bullets
// that expired.
type BulletResolvedPayload struct {
	BulletID string     `json:"bulletId"`
	Hit      bool       `json:"hit"`
	Position [3]float64 `json:"position"`
}

type DamagePayload struct {
	BulletID     string `json:"bulletId"`
	Amount       int    `json:"amount"`
	TargetHealth int    `json:"targetHealth"`
}

type KillPayload struct {
	BulletID     string `json:"bulletId"`
	KillerKills  int    `json:"killerKills"`
	VictimDeaths int    `json:"victimDeaths"`
}

type RespawnPayload struct {
	X float64 `json:"x"`
	Z float64 `json:"z"`
}

// BulletFired publishes a fire event with the shooter as actor.
func BulletFired(ctx context.Context, pub logging.Publisher, tick uint64, shooter logging.EntityRef, payload BulletFiredPayload) {
	publish(ctx, pub, logging.Event{Type: EventBulletFired, Tick: tick, Actor: shooter, Severity: logging.SeverityDebug, Payload: payload})
}

// BulletResolved publishes a resolution event with the bullet as actor.
func BulletResolved(ctx context.Context, pub logging.Publisher, tick uint64, owner logging.EntityRef, payload BulletResolvedPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventBulletResolved,
		Tick:     tick,
		Actor:    logging.EntityRef{ID: payload.BulletID, Kind: logging.EntityKindBullet},
		Targets:  []logging.EntityRef{owner},
		Severity: logging.SeverityDebug,
		Payload:  payload,
	})
}

// Damage publishes a damage event from shooter to target.
func Damage(ctx context.Context, pub logging.Publisher, tick uint64, shooter, target logging.EntityRef, payload DamagePayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventPlayerDamaged,
		Tick:     tick,
		Actor:    shooter,
		Targets:  []logging.EntityRef{target},
		Severity: logging.SeverityInfo,
		Payload:  payload,
	})
}

// Killed publishes a kill event. killer may be empty when the shooter has
// already left the match.
func Killed(ctx context.Context, pub logging.Publisher, tick uint64, killer, victim logging.EntityRef, payload KillPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventPlayerKilled,
		Tick:     tick,
		Actor:    killer,
		Targets:  []logging.EntityRef{victim},
		Severity: logging.SeverityInfo,
		Payload:  payload,
	})
}

// Respawned publishes a respawn event.
func Respawned(ctx context.Context, pub logging.Publisher, tick uint64, player logging.EntityRef, payload RespawnPayload) {
	publish(ctx, pub, logging.Event{Type: EventPlayerRespawned, Tick: tick, Actor: player, Severity: logging.SeverityInfo, Payload: payload})
}

func publish(ctx context.Context, pub logging.Publisher, event logging.Event) {
	if pub == nil {
		return
	}
	event.Category = logging.CategoryCombat
	pub.Publish(ctx, event)
}

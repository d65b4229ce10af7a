package sim

import (
	"context"
	"math"

	"github.com/Nishit5799/multiplayerShooting/logging"
	combatlog "github.com/Nishit5799/multiplayerShooting/logging/combat"
	"github.com/Nishit5799/multiplayerShooting/logging/lifecycle"
	matchlog "github.com/Nishit5799/multiplayerShooting/logging/match"
)

// JournalObserver forwards simulation events to the structured logging
// pipeline.
func JournalObserver(ctx context.Context, pub logging.Publisher, matchID string) Observer {
	return func(event Event) {
		switch ev := event.(type) {
		case PlayerJoined:
			lifecycle.PlayerJoined(ctx, pub, ev.Tick, logging.PlayerRef(ev.PlayerID), lifecycle.PlayerJoinedPayload{
				Name:   ev.Name,
				Color:  ev.Color,
				SpawnX: ev.Position.X(),
				SpawnZ: ev.Position.Z(),
			}, nil)
		case PlayerLeft:
			lifecycle.PlayerLeft(ctx, pub, ev.Tick, logging.PlayerRef(ev.PlayerID), lifecycle.PlayerLeftPayload{Reason: ev.Reason}, nil)
		case BulletFired:
			combatlog.BulletFired(ctx, pub, ev.Tick, logging.PlayerRef(ev.OwnerID), combatlog.BulletFiredPayload{
				BulletID: ev.BulletID,
				Yaw:      math.Atan2(ev.Direction.X(), ev.Direction.Z()),
				Pitch:    math.Asin(math.Max(-1, math.Min(1, ev.Direction.Y()))),
			})
		case BulletResolved:
			combatlog.BulletResolved(ctx, pub, ev.Tick, logging.PlayerRef(ev.OwnerID), combatlog.BulletResolvedPayload{
				BulletID: ev.BulletID,
				Hit:      ev.Hit,
				Position: [3]float64(ev.Position),
			})
		case PlayerDamaged:
			combatlog.Damage(ctx, pub, ev.Tick, logging.PlayerRef(ev.ShooterID), logging.PlayerRef(ev.PlayerID), combatlog.DamagePayload{
				BulletID:     ev.BulletID,
				Amount:       ev.Amount,
				TargetHealth: ev.Health,
			})
		case PlayerKilled:
			killer := logging.EntityRef{Kind: logging.EntityKindPlayer}
			if ev.KillerID != "" {
				killer = logging.PlayerRef(ev.KillerID)
			}
			combatlog.Killed(ctx, pub, ev.Tick, killer, logging.PlayerRef(ev.VictimID), combatlog.KillPayload{
				BulletID:     ev.BulletID,
				KillerKills:  ev.KillerKills,
				VictimDeaths: ev.VictimDeaths,
			})
		case PlayerRespawned:
			combatlog.Respawned(ctx, pub, ev.Tick, logging.PlayerRef(ev.PlayerID), combatlog.RespawnPayload{X: ev.Position.X(), Z: ev.Position.Z()})
		case MatchWon:
			matchlog.Won(ctx, pub, ev.Tick, logging.PlayerRef(ev.WinnerID), matchlog.WonPayload{Winner: ev.Winner, Kills: ev.Kills, Epoch: ev.Epoch})
		case MatchRestarted:
			matchlog.Restarted(ctx, pub, ev.Tick, logging.MatchRef(matchID), matchlog.RestartedPayload{Epoch: ev.Epoch})
		}
	}
}

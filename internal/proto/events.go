package proto

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/Nishit5799/multiplayerShooting/internal/sim"
)

// Event type identifiers carried in snapshots.
const (
	EventJoined    = "joined"
	EventLeft      = "left"
	EventFired     = "fired"
	EventResolved  = "resolved"
	EventDamaged   = "damaged"
	EventKilled    = "killed"
	EventRespawned = "respawned"
	EventWon       = "won"
	EventRestarted = "restarted"
)

// Event is the flattened wire form of a simulation event. PlayerID is the
// subject; OtherID is the counterpart (shooter, killer, or struck player).
type Event struct {
	Type      string      `json:"type" msgpack:"type"`
	Tick      uint64      `json:"tick" msgpack:"tick"`
	PlayerID  string      `json:"playerId,omitempty" msgpack:"playerId,omitempty"`
	OtherID   string      `json:"otherId,omitempty" msgpack:"otherId,omitempty"`
	BulletID  string      `json:"bulletId,omitempty" msgpack:"bulletId,omitempty"`
	Name      string      `json:"name,omitempty" msgpack:"name,omitempty"`
	Color     string      `json:"color,omitempty" msgpack:"color,omitempty"`
	Reason    string      `json:"reason,omitempty" msgpack:"reason,omitempty"`
	Amount    int         `json:"amount,omitempty" msgpack:"amount,omitempty"`
	Health    int         `json:"health,omitempty" msgpack:"health,omitempty"`
	Kills     int         `json:"kills,omitempty" msgpack:"kills,omitempty"`
	Deaths    int         `json:"deaths,omitempty" msgpack:"deaths,omitempty"`
	Epoch     uint64      `json:"epoch,omitempty" msgpack:"epoch,omitempty"`
	Hit       bool        `json:"hit,omitempty" msgpack:"hit,omitempty"`
	Position  *mgl64.Vec3 `json:"position,omitempty" msgpack:"position,omitempty"`
	Direction *mgl64.Vec3 `json:"direction,omitempty" msgpack:"direction,omitempty"`
}

func vec(v mgl64.Vec3) *mgl64.Vec3 {
	return &v
}

func deref(v *mgl64.Vec3) mgl64.Vec3 {
	if v == nil {
		return mgl64.Vec3{}
	}
	return *v
}

// EventFromSim flattens a simulation event. Unknown events report false.
func EventFromSim(event sim.Event) (Event, bool) {
	switch ev := event.(type) {
	case sim.PlayerJoined:
		return Event{Type: EventJoined, Tick: ev.Tick, PlayerID: ev.PlayerID, Name: ev.Name, Color: ev.Color, Position: vec(ev.Position)}, true
	case sim.PlayerLeft:
		return Event{Type: EventLeft, Tick: ev.Tick, PlayerID: ev.PlayerID, Reason: ev.Reason}, true
	case sim.BulletFired:
		return Event{Type: EventFired, Tick: ev.Tick, PlayerID: ev.OwnerID, BulletID: ev.BulletID, Position: vec(ev.Origin), Direction: vec(ev.Direction)}, true
	case sim.BulletResolved:
		return Event{Type: EventResolved, Tick: ev.Tick, PlayerID: ev.OwnerID, OtherID: ev.PlayerID, BulletID: ev.BulletID, Hit: ev.Hit, Position: vec(ev.Position)}, true
	case sim.PlayerDamaged:
		return Event{Type: EventDamaged, Tick: ev.Tick, PlayerID: ev.PlayerID, OtherID: ev.ShooterID, BulletID: ev.BulletID, Amount: ev.Amount, Health: ev.Health}, true
	case sim.PlayerKilled:
		return Event{Type: EventKilled, Tick: ev.Tick, PlayerID: ev.VictimID, OtherID: ev.KillerID, BulletID: ev.BulletID, Kills: ev.KillerKills, Deaths: ev.VictimDeaths}, true
	case sim.PlayerRespawned:
		return Event{Type: EventRespawned, Tick: ev.Tick, PlayerID: ev.PlayerID, Position: vec(ev.Position)}, true
	case sim.MatchWon:
		return Event{Type: EventWon, Tick: ev.Tick, PlayerID: ev.WinnerID, Name: ev.Winner, Kills: ev.Kills, Epoch: ev.Epoch}, true
	case sim.MatchRestarted:
		return Event{Type: EventRestarted, Tick: ev.Tick, Epoch: ev.Epoch}, true
	}
	return Event{}, false
}

// Sim rebuilds the simulation event so replicas can feed the same
// observers as the host.
func (e Event) Sim() (sim.Event, bool) {
	switch e.Type {
	case EventJoined:
		return sim.PlayerJoined{Tick: e.Tick, PlayerID: e.PlayerID, Name: e.Name, Color: e.Color, Position: deref(e.Position)}, true
	case EventLeft:
		return sim.PlayerLeft{Tick: e.Tick, PlayerID: e.PlayerID, Reason: e.Reason}, true
	case EventFired:
		return sim.BulletFired{Tick: e.Tick, BulletID: e.BulletID, OwnerID: e.PlayerID, Origin: deref(e.Position), Direction: deref(e.Direction)}, true
	case EventResolved:
		return sim.BulletResolved{Tick: e.Tick, BulletID: e.BulletID, OwnerID: e.PlayerID, PlayerID: e.OtherID, Position: deref(e.Position), Hit: e.Hit}, true
	case EventDamaged:
		return sim.PlayerDamaged{Tick: e.Tick, PlayerID: e.PlayerID, ShooterID: e.OtherID, BulletID: e.BulletID, Amount: e.Amount, Health: e.Health}, true
	case EventKilled:
		return sim.PlayerKilled{Tick: e.Tick, VictimID: e.PlayerID, KillerID: e.OtherID, BulletID: e.BulletID, KillerKills: e.Kills, VictimDeaths: e.Deaths}, true
	case EventRespawned:
		return sim.PlayerRespawned{Tick: e.Tick, PlayerID: e.PlayerID, Position: deref(e.Position)}, true
	case EventWon:
		return sim.MatchWon{Tick: e.Tick, WinnerID: e.PlayerID, Winner: e.Name, Kills: e.Kills, Epoch: e.Epoch}, true
	case EventRestarted:
		return sim.MatchRestarted{Tick: e.Tick, Epoch: e.Epoch}, true
	}
	return nil, false
}

package sim

import "github.com/go-gl/mathgl/mgl64"

// Event is a typed notification emitted by the simulation. Events raised
// during a tick are delivered to observers after that tick's publish.
type Event interface {
	EventTick() uint64
}

type PlayerJoined struct {
	Tick     uint64
	PlayerID string
	Name     string
	Color    string
	Position mgl64.Vec3
}

type PlayerLeft struct {
	Tick     uint64
	PlayerID string
	Reason   string
}

type BulletFired struct {
	Tick      uint64
	BulletID  string
	OwnerID   string
	Origin    mgl64.Vec3
	Direction mgl64.Vec3
}

// BulletResolved reports a bullet leaving play. PlayerID is set when it
// struck a player; Hit is false when it expired.
type BulletResolved struct {
	Tick     uint64
	BulletID string
	OwnerID  string
	PlayerID string
	Position mgl64.Vec3
	Hit      bool
}

type PlayerDamaged struct {
	Tick      uint64
	PlayerID  string
	ShooterID string
	BulletID  string
	Amount    int
	Health    int
}

// PlayerKilled names the victim and, when still present, the killer.
type PlayerKilled struct {
	Tick         uint64
	VictimID     string
	KillerID     string
	BulletID     string
	KillerKills  int
	VictimDeaths int
}

type PlayerRespawned struct {
	Tick     uint64
	PlayerID string
	Position mgl64.Vec3
}

type MatchWon struct {
	Tick     uint64
	WinnerID string
	Winner   string
	Kills    int
	Epoch    uint64
}

type MatchRestarted struct {
	Tick  uint64
	Epoch uint64
}

func (e PlayerJoined) EventTick() uint64    { return e.Tick }
func (e PlayerLeft) EventTick() uint64      { return e.Tick }
func (e BulletFired) EventTick() uint64     { return e.Tick }
func (e BulletResolved) EventTick() uint64  { return e.Tick }
func (e PlayerDamaged) EventTick() uint64   { return e.Tick }
func (e PlayerKilled) EventTick() uint64    { return e.Tick }
func (e PlayerRespawned) EventTick() uint64 { return e.Tick }
func (e MatchWon) EventTick() uint64        { return e.Tick }
func (e MatchRestarted) EventTick() uint64  { return e.Tick }

// Observer receives dispatched events.
type Observer func(Event)

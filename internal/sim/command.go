package sim

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Nishit5799/multiplayerShooting/internal/state"
)

// CommandType enumerates the supported simulation commands.
type CommandType string

const (
	CommandJoin  CommandType = "Join"
	CommandInput CommandType = "Input"
	CommandLeave CommandType = "Leave"
)

// JoinCommand admits a participant. Empty cosmetic fields receive defaults.
type JoinCommand struct {
	Name  string `json:"name,omitempty"`
	Color string `json:"color,omitempty"`
}

// InputCommand replaces the actor's held input until the next one arrives.
type InputCommand struct {
	Move      mgl64.Vec2  `json:"move"`
	Moving    bool        `json:"moving"`
	Fire      bool        `json:"fire"`
	AimUp     bool        `json:"aimUp"`
	AimDown   bool        `json:"aimDown"`
	Direction *mgl64.Vec3 `json:"direction,omitempty"`
}

// State converts the command into the player's held input.
func (c InputCommand) State() state.Input {
	input := state.Input{
		Move:    c.Move,
		Moving:  c.Moving,
		Fire:    c.Fire,
		AimUp:   c.AimUp,
		AimDown: c.AimDown,
	}
	if c.Direction != nil {
		dir := *c.Direction
		input.Direction = &dir
	}
	return input
}

// LeaveCommand removes a participant.
type LeaveCommand struct {
	Reason string `json:"reason,omitempty"`
}

// Command represents an intent captured for processing on the next tick.
type Command struct {
	OriginTick uint64        `json:"originTick"`
	ActorID    string        `json:"actorId"`
	Type       CommandType   `json:"type"`
	IssuedAt   time.Time     `json:"issuedAt"`
	Join       *JoinCommand  `json:"join,omitempty"`
	Input      *InputCommand `json:"input,omitempty"`
	Leave      *LeaveCommand `json:"leave,omitempty"`
}

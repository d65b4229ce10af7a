package proto

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Nishit5799/multiplayerShooting/internal/geom"
	"github.com/Nishit5799/multiplayerShooting/internal/replication"
	"github.com/Nishit5799/multiplayerShooting/internal/sim"
	"github.com/Nishit5799/multiplayerShooting/internal/state"
)

// ErrNonFinite rejects vectors carrying NaN or infinite components. Binary
// frames can encode them even though JSON cannot.
var ErrNonFinite = errors.New("proto: non-finite vector")

// Version tracks the wire-protocol revision expected by clients.
const Version = 1

// Client message type identifiers.
const (
	TypeJoin  = "join"
	TypeInput = "input"
	TypeLeave = "leave"
)

// Host message type identifiers.
const (
	TypeWelcome       = "welcome"
	TypeSnapshot      = "snapshot"
	TypeCommandReject = "commandReject"
)

// ClientMessage captures an inbound message from a participant. Only the
// fields relevant to Type are read.
type ClientMessage struct {
	Ver     int         `json:"ver,omitempty" msgpack:"ver,omitempty"`
	Type    string      `json:"type" msgpack:"type"`
	Name    string      `json:"name,omitempty" msgpack:"name,omitempty"`
	Color   string      `json:"color,omitempty" msgpack:"color,omitempty"`
	Move    *mgl64.Vec2 `json:"move,omitempty" msgpack:"move,omitempty"`
	Fire    bool        `json:"fire,omitempty" msgpack:"fire,omitempty"`
	AimUp   bool        `json:"aimUp,omitempty" msgpack:"aimUp,omitempty"`
	AimDown bool        `json:"aimDown,omitempty" msgpack:"aimDown,omitempty"`
	Dir     *mgl64.Vec3 `json:"dir,omitempty" msgpack:"dir,omitempty"`
	Reason  string      `json:"reason,omitempty" msgpack:"reason,omitempty"`
}

// DecodeClientMessage converts a raw frame into a structured message.
func DecodeClientMessage(codec Codec, payload []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := codec.Unmarshal(payload, &msg); err != nil {
		return msg, err
	}
	if msg.Ver == 0 {
		msg.Ver = Version
	}
	if msg.Ver != Version {
		return msg, fmt.Errorf("unsupported client protocol version %d", msg.Ver)
	}
	if msg.Move != nil && !geom.Finite2(*msg.Move) {
		return msg, fmt.Errorf("%w: move %v", ErrNonFinite, *msg.Move)
	}
	if msg.Dir != nil && !geom.Finite3(*msg.Dir) {
		return msg, fmt.Errorf("%w: dir %v", ErrNonFinite, *msg.Dir)
	}
	return msg, nil
}

// ClientCommand converts a client message into the simulation command it
// carries. Unknown message types are reported with ok=false.
func ClientCommand(actorID string, msg ClientMessage) (sim.Command, bool) {
	cmd := sim.Command{ActorID: actorID}
	switch msg.Type {
	case TypeJoin:
		cmd.Type = sim.CommandJoin
		cmd.Join = &sim.JoinCommand{Name: strings.TrimSpace(msg.Name), Color: strings.TrimSpace(msg.Color)}
	case TypeInput:
		input := &sim.InputCommand{Fire: msg.Fire, AimUp: msg.AimUp, AimDown: msg.AimDown}
		if msg.Move != nil && geom.Finite2(*msg.Move) {
			input.Move = *msg.Move
			input.Moving = msg.Move.Len() > 0
		}
		if msg.Dir != nil && geom.Finite3(*msg.Dir) && msg.Dir.Len() > 0 {
			dir := msg.Dir.Normalize()
			input.Direction = &dir
		}
		cmd.Type = sim.CommandInput
		cmd.Input = input
	case TypeLeave:
		cmd.Type = sim.CommandLeave
		cmd.Leave = &sim.LeaveCommand{Reason: msg.Reason}
	default:
		return sim.Command{}, false
	}
	return cmd, true
}

// Welcome is the first message a participant receives.
type Welcome struct {
	Ver      int    `json:"ver" msgpack:"ver"`
	Type     string `json:"type" msgpack:"type"`
	PlayerID string `json:"playerId" msgpack:"playerId"`
	MatchID  string `json:"matchId" msgpack:"matchId"`
	TickRate int    `json:"tickRate" msgpack:"tickRate"`
}

// NewWelcome builds the welcome message for a participant.
func NewWelcome(playerID, matchID string, tickRate int) Welcome {
	return Welcome{Ver: Version, Type: TypeWelcome, PlayerID: playerID, MatchID: matchID, TickRate: tickRate}
}

// CommandReject reports a command dropped by intake throttling.
type CommandReject struct {
	Ver    int    `json:"ver" msgpack:"ver"`
	Type   string `json:"type" msgpack:"type"`
	Reason string `json:"reason" msgpack:"reason"`
	Retry  bool   `json:"retry,omitempty" msgpack:"retry,omitempty"`
}

// Snapshot is one published tick of replicated state. Versions holds the
// per-key publish sequence that last changed each value.
type Snapshot struct {
	Ver      int                  `json:"ver" msgpack:"ver"`
	Type     string               `json:"type" msgpack:"type"`
	Seq      uint64               `json:"seq" msgpack:"seq"`
	Tick     uint64               `json:"tick" msgpack:"tick"`
	Players  []state.PlayerRecord `json:"players" msgpack:"players"`
	Bullets  []state.BulletRecord `json:"bullets" msgpack:"bullets"`
	Hits     []state.HitRecord    `json:"hits" msgpack:"hits"`
	Match    *state.MatchRecord   `json:"match,omitempty" msgpack:"match,omitempty"`
	Removed  []string             `json:"removed,omitempty" msgpack:"removed,omitempty"`
	Versions map[string]uint64    `json:"versions,omitempty" msgpack:"versions,omitempty"`
	Events   []Event              `json:"events,omitempty" msgpack:"events,omitempty"`
}

// FromReplicated renders a published store snapshot and the events raised
// in the same tick.
func FromReplicated(snapshot replication.Snapshot, events []sim.Event) Snapshot {
	out := Snapshot{
		Ver:      Version,
		Type:     TypeSnapshot,
		Seq:      snapshot.Seq,
		Tick:     snapshot.Tick,
		Players:  make([]state.PlayerRecord, 0),
		Bullets:  make([]state.BulletRecord, 0),
		Hits:     make([]state.HitRecord, 0),
		Removed:  append([]string(nil), snapshot.Removed...),
		Versions: make(map[string]uint64, len(snapshot.Entries)),
	}
	for _, entry := range snapshot.Entries {
		out.Versions[entry.Key] = entry.Version
		switch value := entry.Value.(type) {
		case state.PlayerRecord:
			out.Players = append(out.Players, value)
		case []state.BulletRecord:
			out.Bullets = append(out.Bullets, value...)
		case []state.HitRecord:
			out.Hits = append(out.Hits, value...)
		case state.MatchRecord:
			match := value
			out.Match = &match
		}
	}
	for _, event := range events {
		if wire, ok := EventFromSim(event); ok {
			out.Events = append(out.Events, wire)
		}
	}
	return out
}

// Replicated rebuilds the store snapshot carried by the message, suitable
// for replication.Store.Apply on a replica.
func (s Snapshot) Replicated() replication.Snapshot {
	entries := make([]replication.Entry, 0, len(s.Players)+3)
	for _, player := range s.Players {
		key := state.PlayerKey(player.ID)
		entries = append(entries, replication.Entry{Key: key, Version: s.Versions[key], Value: player})
	}
	entries = append(entries,
		replication.Entry{Key: state.KeyBullets, Version: s.Versions[state.KeyBullets], Value: append([]state.BulletRecord(nil), s.Bullets...)},
		replication.Entry{Key: state.KeyHits, Version: s.Versions[state.KeyHits], Value: append([]state.HitRecord(nil), s.Hits...)},
	)
	if s.Match != nil {
		entries = append(entries, replication.Entry{Key: state.KeyMatch, Version: s.Versions[state.KeyMatch], Value: *s.Match})
	}
	return replication.Snapshot{
		Seq:     s.Seq,
		Tick:    s.Tick,
		Entries: entries,
		Removed: append([]string(nil), s.Removed...),
	}
}

// Envelope peeks at the type of a host message before full decoding.
type Envelope struct {
	Ver  int    `json:"ver" msgpack:"ver"`
	Type string `json:"type" msgpack:"type"`
}

package match

import (
	"context"

	"github.com/Nishit5799/multiplayerShooting/logging"
)

const (
	// EventWon is emitted once per epoch when a player reaches the kill target.
	EventWon logging.EventType = "match.won"
	// EventRestarted is emitted when a new epoch begins.
	EventRestarted logging.EventType = "match.restarted"
)

type WonPayload struct {
	Winner string `json:"winner"`
	Kills  int    `json:"kills"`
	Epoch  uint64 `json:"epoch"`
}

type RestartedPayload struct {
	Epoch uint64 `json:"epoch"`
}

// Won publishes the win event with the winning player as actor.
func Won(ctx context.Context, pub logging.Publisher, tick uint64, winner logging.EntityRef, payload WonPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventWon,
		Tick:     tick,
		Actor:    winner,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryMatch,
		Payload:  payload,
	})
}

// Restarted publishes the restart event with the match as actor.
func Restarted(ctx context.Context, pub logging.Publisher, tick uint64, match logging.EntityRef, payload RestartedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventRestarted,
		Tick:     tick,
		Actor:    match,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryMatch,
		Payload:  payload,
	})
}

package replication

import (
	"context"

	"github.com/Nishit5799/multiplayerShooting/logging"
)

// EventAuthorityViolation is emitted when a non-host attempts to write
// replicated state.
const EventAuthorityViolation logging.EventType = "replication.authority_violation"

type AuthorityViolationPayload struct {
	Key   string `json:"key"`
	Error string `json:"error"`
}

// AuthorityViolation publishes a warning for a rejected write.
func AuthorityViolation(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload AuthorityViolationPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventAuthorityViolation,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryReplication,
		Payload:  payload,
	})
}

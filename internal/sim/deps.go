package sim

import (
	"math/rand"

	"github.com/Nishit5799/multiplayerShooting/internal/telemetry"
	"github.com/Nishit5799/multiplayerShooting/logging"
)

// Deps carries shared infrastructure dependencies required by the engine.
type Deps struct {
	Logger  telemetry.Logger
	Metrics telemetry.Metrics
	Clock   logging.Clock
	RNG     *rand.Rand
}

func (d Deps) logf(format string, args ...any) {
	if d.Logger != nil {
		d.Logger.Printf(format, args...)
	}
}

func (d Deps) add(key string, delta uint64) {
	if d.Metrics != nil {
		d.Metrics.Add(key, delta)
	}
}

func (d Deps) store(key string, value uint64) {
	if d.Metrics != nil {
		d.Metrics.Store(key, value)
	}
}

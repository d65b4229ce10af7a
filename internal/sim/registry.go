package sim

import (
	"errors"
	"fmt"

	"github.com/elliotchance/orderedmap/v2"

	"github.com/Nishit5799/multiplayerShooting/internal/spawn"
	"github.com/Nishit5799/multiplayerShooting/internal/state"
)

var (
	// ErrInvalidPlayerID rejects joins without an identifier.
	ErrInvalidPlayerID = errors.New("sim: player id is required")
	// ErrDuplicatePlayer rejects a join for an id that is already present.
	ErrDuplicatePlayer = errors.New("sim: player already joined")
)

// DefaultPalette is cycled through for participants that join without a
// colour.
var DefaultPalette = []string{"#e63946", "#457b9d", "#2a9d8f", "#f4a261", "#9b5de5", "#ffbe0b", "#06d6a0", "#ef476f"}

// RegistryConfig wires the registry to spawn allocation.
type RegistryConfig struct {
	Allocator *spawn.Allocator
	// IsHost gates spawn allocation; replicas never place players.
	IsHost  func() bool
	Palette []string
}

// Registry tracks live players in join order. Identifiers are never
// reassigned by the registry.
type Registry struct {
	cfg     RegistryConfig
	players *orderedmap.OrderedMap[string, *state.Player]
	joins   int
}

// NewRegistry constructs an empty registry.
func NewRegistry(cfg RegistryConfig) *Registry {
	if len(cfg.Palette) == 0 {
		cfg.Palette = DefaultPalette
	}
	return &Registry{
		cfg:     cfg,
		players: orderedmap.NewOrderedMap[string, *state.Player](),
	}
}

// Join admits a player at full health. On the host the player is placed at
// a freshly allocated spawn point; an empty spawn pool is returned as
// spawn.ErrNoSpawnPoints and the player is not admitted.
func (r *Registry) Join(id, name, color string) (*state.Player, error) {
	if id == "" {
		return nil, ErrInvalidPlayerID
	}
	if _, exists := r.players.Get(id); exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicatePlayer, id)
	}

	ordinal := r.joins + 1
	if name == "" {
		name = fmt.Sprintf("Player %d", ordinal)
	}
	if color == "" {
		color = r.cfg.Palette[(ordinal-1)%len(r.cfg.Palette)]
	}
	player := state.NewPlayer(id, name, color)

	if r.cfg.IsHost == nil || r.cfg.IsHost() {
		point, err := r.cfg.Allocator.Allocate()
		if err != nil {
			return nil, err
		}
		player.Position = point.Position
	}

	r.joins = ordinal
	r.players.Set(id, player)
	return player, nil
}

// Leave removes the player. It reports false for unknown ids.
func (r *Registry) Leave(id string) (*state.Player, bool) {
	player, ok := r.players.Get(id)
	if !ok {
		return nil, false
	}
	r.players.Delete(id)
	return player, true
}

// Get returns the live player with id.
func (r *Registry) Get(id string) (*state.Player, bool) {
	if r == nil {
		return nil, false
	}
	return r.players.Get(id)
}

// Len reports the number of live players.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return r.players.Len()
}

// Each visits players in join order until visit returns false.
func (r *Registry) Each(visit func(p *state.Player) bool) {
	if r == nil {
		return
	}
	for el := r.players.Front(); el != nil; el = el.Next() {
		if !visit(el.Value) {
			return
		}
	}
}

// IDs returns the live player ids in join order.
func (r *Registry) IDs() []string {
	if r == nil {
		return nil
	}
	return r.players.Keys()
}

package replica

import (
	"context"
	"sort"
	"strings"

	"github.com/sasha-s/go-deadlock"

	"github.com/Nishit5799/multiplayerShooting/internal/movement"
	"github.com/Nishit5799/multiplayerShooting/internal/proto"
	"github.com/Nishit5799/multiplayerShooting/internal/replication"
	"github.com/Nishit5799/multiplayerShooting/internal/sim"
	"github.com/Nishit5799/multiplayerShooting/internal/state"
	"github.com/Nishit5799/multiplayerShooting/logging"
	replicationlog "github.com/Nishit5799/multiplayerShooting/logging/replication"
)

// ViewConfig tunes a replica view.
type ViewConfig struct {
	Movement movement.Tuning
	// Strict panics on any local write to replicated state.
	Strict    bool
	Publisher logging.Publisher
	// LocalID names this participant in violation reports.
	LocalID string
}

// View is a replica's presentation of a match. It ingests host snapshots
// into a replica store and smooths remote players toward their replicated
// positions. It never writes authoritative state.
type View struct {
	deadlock.RWMutex

	cfg        ViewConfig
	store      *replication.Store
	integrator *movement.Integrator
	players    map[string]*movement.View
	observers  []sim.Observer
}

// NewView constructs an empty replica view.
func NewView(cfg ViewConfig) *View {
	v := &View{
		cfg:        cfg,
		integrator: movement.NewIntegrator(cfg.Movement),
		players:    make(map[string]*movement.View),
	}
	policy := replication.AuthorityLenient
	if cfg.Strict {
		policy = replication.AuthorityStrict
	}
	v.store = replication.NewStore(replication.Config{
		Role:        replication.RoleReplica,
		Policy:      policy,
		OnViolation: v.reportViolation,
	})
	return v
}

func (v *View) reportViolation(key string, err error) {
	actor := logging.EntityRef{Kind: logging.EntityKindPlayer}
	if v.cfg.LocalID != "" {
		actor = logging.PlayerRef(v.cfg.LocalID)
	}
	replicationlog.AuthorityViolation(context.Background(), v.cfg.Publisher, v.store.Latest().Tick, actor, replicationlog.AuthorityViolationPayload{
		Key:   key,
		Error: err.Error(),
	})
}

// Store exposes the replica store for versioned reads.
func (v *View) Store() *replication.Store {
	return v.store
}

// Subscribe registers an observer for events carried in snapshots.
func (v *View) Subscribe(fn sim.Observer) {
	if fn == nil {
		return
	}
	v.Lock()
	v.observers = append(v.observers, fn)
	v.Unlock()
}

// Apply ingests a host snapshot. Snapshots that are not newer than the
// current one are ignored and their events are not re-delivered. Players
// already on display only move on Interpolate.
func (v *View) Apply(msg proto.Snapshot) bool {
	if !v.store.Apply(msg.Replicated()) {
		return false
	}

	v.Lock()
	seen := make(map[string]struct{}, len(msg.Players))
	for _, rec := range msg.Players {
		seen[rec.ID] = struct{}{}
		if view, ok := v.players[rec.ID]; ok {
			v.integrator.Sync(view, rec)
			continue
		}
		// First sighting snaps into place; later records are smoothed
		// toward once per Interpolate.
		view := &movement.View{}
		v.integrator.Follow(view, rec)
		v.players[rec.ID] = view
	}
	for id := range v.players {
		if _, ok := seen[id]; !ok {
			delete(v.players, id)
		}
	}
	observers := append([]sim.Observer(nil), v.observers...)
	v.Unlock()

	for _, wire := range msg.Events {
		event, ok := wire.Sim()
		if !ok {
			continue
		}
		for _, fn := range observers {
			fn(event)
		}
	}
	return true
}

// Interpolate advances every remote player one smoothing step toward its
// latest replicated record.
func (v *View) Interpolate() {
	v.Lock()
	defer v.Unlock()
	for _, key := range v.store.Keys(state.PlayerKeyPrefix) {
		id := strings.TrimPrefix(key, state.PlayerKeyPrefix)
		view, ok := v.players[id]
		if !ok {
			continue
		}
		_, rec := replication.LookupAs(v.store, key, state.PlayerRecord{})
		v.integrator.Follow(view, rec)
	}
}

// Players returns copies of the displayed players ordered by id.
func (v *View) Players() []movement.View {
	v.RLock()
	defer v.RUnlock()
	out := make([]movement.View, 0, len(v.players))
	for _, view := range v.players {
		out = append(out, *view)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Player returns the displayed view of one player.
func (v *View) Player(id string) (movement.View, bool) {
	v.RLock()
	defer v.RUnlock()
	view, ok := v.players[id]
	if !ok {
		return movement.View{}, false
	}
	return *view, true
}

// Bullets returns the replicated bullets with their aim variants intact.
func (v *View) Bullets() []state.BulletRecord {
	_, bullets := replication.LookupAs(v.store, state.KeyBullets, []state.BulletRecord(nil))
	return bullets
}

// Match returns the replicated match state and its version.
func (v *View) Match() (uint64, state.MatchRecord) {
	return replication.LookupAs(v.store, state.KeyMatch, state.MatchRecord{})
}

// Write attempts a local write to replicated state. Replicas never hold
// authority, so the write is always rejected and reported.
func (v *View) Write(key string, value any) error {
	return v.store.Set(key, value)
}

package sim

import (
	"time"

	"github.com/Nishit5799/multiplayerShooting/internal/schedule"
	"github.com/Nishit5799/multiplayerShooting/internal/state"
)

// KindRestart schedules the end-of-match countdown.
const KindRestart schedule.Kind = "restart"

// MatchConfig tunes the win condition and wires restart handling.
type MatchConfig struct {
	WinKills  int
	Countdown time.Duration
	Scheduler *schedule.Scheduler
	// CurrentTick stamps events raised from scheduled work.
	CurrentTick func() uint64

	// OnRestart runs when the countdown elapses, after the match state has
	// moved to the next epoch.
	OnRestart func(m *state.MatchState)
}

type observerEntry struct {
	id int
	fn Observer
}

// MatchController owns the match singleton, evaluates the win condition,
// runs the restart countdown, and dispatches simulation events to
// observers.
type MatchController struct {
	cfg   MatchConfig
	state *state.MatchState

	observers    []observerEntry
	nextObserver int
	queue        []Event
}

// NewMatchController constructs a controller for match id.
func NewMatchController(id string, cfg MatchConfig) *MatchController {
	if cfg.Scheduler == nil {
		cfg.Scheduler = schedule.New()
	}
	return &MatchController{cfg: cfg, state: &state.MatchState{ID: id}}
}

// State returns the live match state.
func (m *MatchController) State() *state.MatchState {
	return m.state
}

func (m *MatchController) restartKey() schedule.Key {
	return schedule.Key{EntityID: "match/" + m.state.ID, Kind: KindRestart}
}

// NoteKill evaluates the win condition after killer's kill count grew. The
// first player to reach the threshold wins; later kills in the same epoch
// change nothing. It reports whether this call declared the winner.
func (m *MatchController) NoteKill(killer *state.Player, tick uint64) bool {
	if m == nil || killer == nil || m.state.HasWinner() {
		return false
	}
	if m.cfg.WinKills <= 0 || killer.Kills < m.cfg.WinKills {
		return false
	}
	m.state.Winner = killer.Name
	m.state.WinnerID = killer.ID
	m.state.Countdown = m.cfg.Countdown
	m.cfg.Scheduler.Schedule(m.restartKey(), m.cfg.Countdown, func(time.Duration) {
		m.Restart(m.currentTick())
	})
	m.Emit(MatchWon{Tick: tick, WinnerID: killer.ID, Winner: killer.Name, Kills: killer.Kills, Epoch: m.state.Epoch})
	return true
}

func (m *MatchController) currentTick() uint64 {
	if m.cfg.CurrentTick == nil {
		return 0
	}
	return m.cfg.CurrentTick()
}

// Update refreshes the visible countdown from the pending restart.
func (m *MatchController) Update(now time.Duration) {
	if m == nil || !m.state.HasWinner() {
		return
	}
	due, ok := m.cfg.Scheduler.Pending(m.restartKey())
	if !ok {
		return
	}
	remaining := due - now
	if remaining < 0 {
		remaining = 0
	}
	m.state.Countdown = remaining
}

// Restart begins a new epoch immediately: the winner and countdown are
// cleared and OnRestart reinitializes the players in place.
func (m *MatchController) Restart(tick uint64) {
	if m == nil {
		return
	}
	m.cfg.Scheduler.Cancel(m.restartKey())
	m.state.Epoch++
	m.state.Winner = ""
	m.state.WinnerID = ""
	m.state.Countdown = 0
	if m.cfg.OnRestart != nil {
		m.cfg.OnRestart(m.state)
	}
	m.Emit(MatchRestarted{Tick: tick, Epoch: m.state.Epoch})
}

// Subscribe registers an observer and returns a function that removes it.
func (m *MatchController) Subscribe(fn Observer) func() {
	if m == nil || fn == nil {
		return func() {}
	}
	m.nextObserver++
	id := m.nextObserver
	m.observers = append(m.observers, observerEntry{id: id, fn: fn})
	return func() {
		for i, entry := range m.observers {
			if entry.id == id {
				m.observers = append(m.observers[:i], m.observers[i+1:]...)
				return
			}
		}
	}
}

// Emit queues an event for the next Dispatch.
func (m *MatchController) Emit(event Event) {
	if m == nil || event == nil {
		return
	}
	m.queue = append(m.queue, event)
}

// Dispatch delivers queued events to every observer in emission order and
// returns them.
func (m *MatchController) Dispatch() []Event {
	if m == nil || len(m.queue) == 0 {
		return nil
	}
	events := m.queue
	m.queue = nil
	observers := append([]observerEntry(nil), m.observers...)
	for _, event := range events {
		for _, entry := range observers {
			entry.fn(event)
		}
	}
	return events
}

package state

import "time"

// MatchState is the singleton match record owned by the host.
type MatchState struct {
	ID        string
	Epoch     uint64
	Winner    string
	WinnerID  string
	Countdown time.Duration
}

// HasWinner reports whether a winner has been recorded this epoch.
func (m *MatchState) HasWinner() bool {
	return m != nil && m.WinnerID != ""
}

// Record converts the match state into its replicated form.
func (m *MatchState) Record() MatchRecord {
	return MatchRecord{
		ID:        m.ID,
		Epoch:     m.Epoch,
		Winner:    m.Winner,
		Countdown: m.Countdown.Seconds(),
	}
}

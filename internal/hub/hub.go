package hub

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sasha-s/go-deadlock"

	"github.com/Nishit5799/multiplayerShooting/internal/proto"
	"github.com/Nishit5799/multiplayerShooting/internal/sim"
	"github.com/Nishit5799/multiplayerShooting/internal/telemetry"
)

const (
	// CommandRejectUnknownType marks a client message with no command.
	CommandRejectUnknownType = "unknown_type"
	// CommandRejectClosed marks a message from a session that already left.
	CommandRejectClosed = "session_closed"

	metricSessions       = "hub_sessions"
	metricBroadcastBytes = "hub_broadcast_bytes_total"
	metricSendFailures   = "hub_send_failures_total"
)

// ErrClosed is returned when writing to a closed session.
var ErrClosed = errors.New("hub: session closed")

// Conn is the subset of a websocket connection the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Config wires the hub to the tick loop.
type Config struct {
	Loop     *sim.Loop
	MatchID  string
	TickRate int
	Logger   telemetry.Logger
	Metrics  telemetry.Metrics
	// WriteWait bounds a single frame write. Zero selects 5s.
	WriteWait time.Duration
}

// Hub owns participant sessions, forwards their commands to the tick loop,
// and broadcasts every published snapshot.
type Hub struct {
	mu       deadlock.RWMutex
	cfg      Config
	sessions map[string]*Session
	latest   proto.Snapshot
	// leaves holds departures the command queue could not take yet.
	leaves []sim.Command
}

// Session is one connected participant.
type Session struct {
	ID    string
	codec proto.Codec
	conn  Conn
	wait  time.Duration

	mu     deadlock.Mutex
	closed bool
}

// New constructs a hub.
func New(cfg Config) *Hub {
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = 5 * time.Second
	}
	return &Hub{cfg: cfg, sessions: make(map[string]*Session)}
}

// MatchID reports the match this hub serves.
func (h *Hub) MatchID() string {
	return h.cfg.MatchID
}

// Connect registers a session for id, replacing and closing any existing
// session with the same id, and sends the welcome message. An empty id is
// replaced with a generated one.
func (h *Hub) Connect(id string, conn Conn, codec proto.Codec) (*Session, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if codec == nil {
		codec = proto.JSON
	}
	session := &Session{ID: id, codec: codec, conn: conn, wait: h.cfg.WriteWait}

	h.mu.Lock()
	previous := h.sessions[id]
	h.sessions[id] = session
	count := len(h.sessions)
	h.mu.Unlock()

	if previous != nil {
		previous.Close()
	}
	h.store(metricSessions, uint64(count))

	if err := session.Send(proto.NewWelcome(id, h.cfg.MatchID, h.cfg.TickRate)); err != nil {
		h.Disconnect(session, "welcome failed")
		return nil, err
	}
	return session, nil
}

// Submit converts a client message into a command for the session's player
// and stages it on the loop. A participant can only act for itself.
func (h *Hub) Submit(session *Session, msg proto.ClientMessage) (bool, string) {
	if session == nil || session.isClosed() {
		return false, CommandRejectClosed
	}
	cmd, ok := proto.ClientCommand(session.ID, msg)
	if !ok {
		return false, CommandRejectUnknownType
	}
	cmd.IssuedAt = time.Now()
	return h.cfg.Loop.Enqueue(cmd)
}

// Disconnect removes the session and queues the player's departure. It is
// a no-op for a session that was already replaced or removed.
func (h *Hub) Disconnect(session *Session, reason string) {
	if session == nil {
		return
	}
	h.mu.Lock()
	current, ok := h.sessions[session.ID]
	if ok && current == session {
		delete(h.sessions, session.ID)
	}
	count := len(h.sessions)
	h.mu.Unlock()

	session.Close()
	if !ok || current != session {
		return
	}
	h.store(metricSessions, uint64(count))
	h.enqueueLeave(sim.Command{
		ActorID:  session.ID,
		Type:     sim.CommandLeave,
		IssuedAt: time.Now(),
		Leave:    &sim.LeaveCommand{Reason: reason},
	})
}

func (h *Hub) enqueueLeave(cmd sim.Command) {
	if ok, reason := h.cfg.Loop.Enqueue(cmd); !ok {
		h.logf("[hub] deferring leave for %s: %s", cmd.ActorID, reason)
		h.mu.Lock()
		h.leaves = append(h.leaves, cmd)
		h.mu.Unlock()
	}
}

func (h *Hub) retryLeaves() {
	h.mu.Lock()
	pending := h.leaves
	h.leaves = nil
	h.mu.Unlock()
	for _, cmd := range pending {
		h.enqueueLeave(cmd)
	}
}

// Broadcast publishes a tick to every session. It is installed as the
// loop's AfterStep hook and runs on the loop goroutine.
func (h *Hub) Broadcast(result sim.LoopStepResult) {
	h.retryLeaves()
	snapshot := proto.FromReplicated(result.Snapshot, result.Events)

	h.mu.Lock()
	h.latest = snapshot
	sessions := make([]*Session, 0, len(h.sessions))
	for _, session := range h.sessions {
		sessions = append(sessions, session)
	}
	h.mu.Unlock()

	frames := make(map[string][]byte, 2)
	for _, session := range sessions {
		name := session.codec.Name()
		data, ok := frames[name]
		if !ok {
			var err error
			data, err = session.codec.Marshal(snapshot)
			if err != nil {
				h.logf("[hub] failed to encode snapshot %d as %s: %v", snapshot.Seq, name, err)
				continue
			}
			frames[name] = data
		}
		if err := session.write(data); err != nil {
			h.add(metricSendFailures, 1)
			h.logf("[hub] failed to send snapshot to %s: %v", session.ID, err)
			h.Disconnect(session, "send failed")
			continue
		}
		h.add(metricBroadcastBytes, uint64(len(data)))
	}
}

// Latest returns the most recently broadcast snapshot.
func (h *Hub) Latest() proto.Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest
}

// Sessions lists the connected participant ids.
func (h *Hub) Sessions() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.sessions))
	for id := range h.sessions {
		ids = append(ids, id)
	}
	return ids
}

// CloseAll closes every session without queueing departures.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	sessions := h.sessions
	h.sessions = make(map[string]*Session)
	h.mu.Unlock()
	for _, session := range sessions {
		session.Close()
	}
}

func (h *Hub) logf(format string, args ...any) {
	if h.cfg.Logger != nil {
		h.cfg.Logger.Printf(format, args...)
	}
}

func (h *Hub) add(key string, delta uint64) {
	if h.cfg.Metrics != nil {
		h.cfg.Metrics.Add(key, delta)
	}
}

func (h *Hub) store(key string, value uint64) {
	if h.cfg.Metrics != nil {
		h.cfg.Metrics.Store(key, value)
	}
}

// Codec reports the encoding used for frames sent to this session.
func (s *Session) Codec() proto.Codec {
	return s.codec
}

// Send encodes and writes a message to the session.
func (s *Session) Send(v any) error {
	data, err := s.codec.Marshal(v)
	if err != nil {
		return err
	}
	return s.write(data)
}

func (s *Session) write(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.wait)); err != nil {
		return err
	}
	return s.conn.WriteMessage(s.codec.MessageType(), data)
}

// Close closes the connection once.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.conn.Close()
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

package hub

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gorilla/websocket"

	"github.com/Nishit5799/multiplayerShooting/internal/proto"
	"github.com/Nishit5799/multiplayerShooting/internal/sim"
	"github.com/Nishit5799/multiplayerShooting/internal/spawn"
	"github.com/Nishit5799/multiplayerShooting/internal/state"
)

type fakeConn struct {
	mu       sync.Mutex
	frames   [][]byte
	types    []int
	closed   bool
	writeErr error
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	c.frames = append(c.frames, append([]byte(nil), data...))
	c.types = append(c.types, messageType)
	return nil
}

func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (c *fakeConn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) last(t *testing.T, codec proto.Codec, v any) {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.frames) == 0 {
		t.Fatalf("expected at least one frame")
	}
	if err := codec.Unmarshal(c.frames[len(c.frames)-1], v); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
}

func newTestHub(t *testing.T) (*Hub, *sim.Loop) {
	t.Helper()
	engine := sim.NewEngine(sim.EngineConfig{
		MatchID:     "m1",
		Tuning:      sim.DefaultTuning(),
		SpawnPoints: []spawn.Point{{Name: "spawn_0", Position: mgl64.Vec3{1, 0, 1}}},
	}, sim.Deps{})
	h := New(Config{MatchID: "m1", TickRate: 30})
	loop := sim.NewLoop(engine, sim.LoopConfig{CommandCapacity: 16, PerActorLimit: 4}, sim.LoopHooks{AfterStep: h.Broadcast})
	h.cfg.Loop = loop
	return h, loop
}

func advance(t *testing.T, h *Hub, loop *sim.Loop) {
	t.Helper()
	result, err := loop.Advance(0.1)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	h.Broadcast(result)
}

func TestConnectSendsWelcome(t *testing.T) {
	h, _ := newTestHub(t)
	conn := &fakeConn{}
	session, err := h.Connect("", conn, proto.Msgpack)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if session.ID == "" {
		t.Fatalf("expected generated id")
	}
	var welcome proto.Welcome
	conn.last(t, proto.Msgpack, &welcome)
	if welcome.Type != proto.TypeWelcome || welcome.PlayerID != session.ID || welcome.MatchID != "m1" {
		t.Fatalf("unexpected welcome %+v", welcome)
	}
	if conn.types[0] != websocket.BinaryMessage {
		t.Fatalf("expected binary frame for msgpack, got %d", conn.types[0])
	}
}

func TestJoinBroadcastAndLeave(t *testing.T) {
	h, loop := newTestHub(t)
	conn := &fakeConn{}
	session, err := h.Connect("p1", conn, proto.JSON)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if ok, reason := h.Submit(session, proto.ClientMessage{Type: proto.TypeJoin, Name: "Ann"}); !ok {
		t.Fatalf("expected join to be staged, got %s", reason)
	}
	advance(t, h, loop)

	var snapshot proto.Snapshot
	conn.last(t, proto.JSON, &snapshot)
	if snapshot.Type != proto.TypeSnapshot || len(snapshot.Players) != 1 {
		t.Fatalf("expected one player in snapshot, got %+v", snapshot)
	}
	if player := snapshot.Players[0]; player.ID != "p1" || player.Name != "Ann" || player.Health != state.MaxHealth {
		t.Fatalf("unexpected player %+v", player)
	}
	if len(snapshot.Events) == 0 || snapshot.Events[0].Type != proto.EventJoined {
		t.Fatalf("expected join event, got %+v", snapshot.Events)
	}
	if h.Latest().Seq != snapshot.Seq {
		t.Fatalf("expected latest snapshot to be retained")
	}

	observer := &fakeConn{}
	if _, err := h.Connect("watcher", observer, proto.JSON); err != nil {
		t.Fatalf("connect watcher: %v", err)
	}
	h.Disconnect(session, "closed")
	if !conn.closed {
		t.Fatalf("expected connection to be closed")
	}
	if ok, reason := h.Submit(session, proto.ClientMessage{Type: proto.TypeInput}); ok || reason != CommandRejectClosed {
		t.Fatalf("expected closed session to be rejected, got %v %s", ok, reason)
	}
	advance(t, h, loop)

	snapshot = proto.Snapshot{}
	observer.last(t, proto.JSON, &snapshot)
	if len(snapshot.Players) != 0 || len(snapshot.Removed) != 1 || snapshot.Removed[0] != state.PlayerKey("p1") {
		t.Fatalf("expected p1 to be withdrawn, got %+v", snapshot)
	}
}

func TestReconnectReplacesSession(t *testing.T) {
	h, loop := newTestHub(t)
	first := &fakeConn{}
	old, _ := h.Connect("p1", first, proto.JSON)
	second := &fakeConn{}
	if _, err := h.Connect("p1", second, proto.JSON); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	if !first.closed {
		t.Fatalf("expected replaced connection to close")
	}
	h.Disconnect(old, "stale reader")
	if loop.Pending() != 0 {
		t.Fatalf("expected a stale disconnect not to queue a leave")
	}
	if ids := h.Sessions(); len(ids) != 1 || ids[0] != "p1" {
		t.Fatalf("expected the new session to remain, got %v", ids)
	}
}

func TestFailedWriteDisconnects(t *testing.T) {
	h, loop := newTestHub(t)
	conn := &fakeConn{}
	session, _ := h.Connect("p1", conn, proto.JSON)
	h.Submit(session, proto.ClientMessage{Type: proto.TypeJoin})
	conn.mu.Lock()
	conn.writeErr = errors.New("broken pipe")
	conn.mu.Unlock()

	advance(t, h, loop)
	if len(h.Sessions()) != 0 {
		t.Fatalf("expected session to be dropped after a failed write")
	}
	if loop.Pending() != 1 {
		t.Fatalf("expected leave to be queued, got %d", loop.Pending())
	}
	advance(t, h, loop)
	if loop.Engine().Context().Registry.Len() != 0 {
		t.Fatalf("expected player to leave the match")
	}
}

func TestUnknownMessageRejected(t *testing.T) {
	h, _ := newTestHub(t)
	session, _ := h.Connect("p1", &fakeConn{}, proto.JSON)
	if ok, reason := h.Submit(session, proto.ClientMessage{Type: "dance"}); ok || reason != CommandRejectUnknownType {
		t.Fatalf("expected unknown type rejection, got %v %s", ok, reason)
	}
}

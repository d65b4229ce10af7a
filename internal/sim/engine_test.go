package sim

import (
	"encoding/json"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Nishit5799/multiplayerShooting/internal/combat"
	"github.com/Nishit5799/multiplayerShooting/internal/replication"
	"github.com/Nishit5799/multiplayerShooting/internal/schedule"
	"github.com/Nishit5799/multiplayerShooting/internal/spawn"
	"github.com/Nishit5799/multiplayerShooting/internal/state"
)

// stepDelta is exact in nanoseconds so timers land on tick boundaries.
const stepDelta = 0.1

func sequentialPolicy() spawn.Policy {
	next := 0
	return func(points []spawn.Point, _ *rand.Rand) spawn.Point {
		point := points[next%len(points)]
		next++
		return point
	}
}

type engineFixture struct {
	t      *testing.T
	engine *Engine
	events []Event
}

func newEngineFixture(t *testing.T, points ...spawn.Point) *engineFixture {
	t.Helper()
	if len(points) == 0 {
		points = []spawn.Point{
			{Name: "spawn_0", Position: mgl64.Vec3{0, 0, 0}},
			{Name: "spawn_1", Position: mgl64.Vec3{0, 0, 3}},
		}
	}
	f := &engineFixture{t: t}
	f.engine = NewEngine(EngineConfig{
		MatchID:     "m1",
		Tuning:      DefaultTuning(),
		SpawnPoints: points,
		SpawnPolicy: sequentialPolicy(),
	}, Deps{RNG: rand.New(rand.NewSource(1))})
	f.engine.Match().Subscribe(func(e Event) { f.events = append(f.events, e) })
	return f
}

func (f *engineFixture) join(id, name string) *state.Player {
	f.t.Helper()
	p, err := f.engine.Join(id, name, "")
	if err != nil {
		f.t.Fatalf("join %s: %v", id, err)
	}
	return p
}

func (f *engineFixture) step(n int) TickResult {
	f.t.Helper()
	var result TickResult
	for i := 0; i < n; i++ {
		var err error
		result, err = f.engine.Step(stepDelta)
		if err != nil {
			f.t.Fatalf("step %d: %v", f.engine.Context().Tick, err)
		}
	}
	return result
}

func (f *engineFixture) record(id string) (state.PlayerRecord, bool) {
	entry, ok := f.engine.Store().Latest().Get(state.PlayerKey(id))
	if !ok {
		return state.PlayerRecord{}, false
	}
	rec, ok := entry.Value.(state.PlayerRecord)
	return rec, ok
}

func countEvents[T Event](events []Event) int {
	n := 0
	for _, e := range events {
		if _, ok := e.(T); ok {
			n++
		}
	}
	return n
}

func TestThreeHitsLeaveVictimAlive(t *testing.T) {
	f := newEngineFixture(t)
	shooter := f.join("b", "B")
	f.join("a", "A")
	shooter.Input.Fire = true

	// Shots land on ticks 1, 4 and 7.
	f.step(7)

	victim, ok := f.record("a")
	if !ok {
		t.Fatalf("expected victim record to be published")
	}
	if victim.Health != 70 || victim.Dead {
		t.Fatalf("expected alive victim at 70, got %+v", victim)
	}
	killer, _ := f.record("b")
	if killer.Kills != 0 {
		t.Fatalf("expected no kills, got %d", killer.Kills)
	}
	if got := countEvents[PlayerDamaged](f.events); got != 3 {
		t.Fatalf("expected 3 damage events, got %d", got)
	}
}

func TestTenHitsKillVictimOnce(t *testing.T) {
	f := newEngineFixture(t)
	shooter := f.join("b", "B")
	f.join("a", "A")
	shooter.Input.Fire = true

	f.step(27)
	if rec, _ := f.record("a"); rec.Health != 10 || rec.Dead {
		t.Fatalf("expected victim at 10 after nine hits, got %+v", rec)
	}
	f.step(1)
	shooter.Input.Fire = false

	victim, _ := f.record("a")
	if victim.Health != 0 || !victim.Dead {
		t.Fatalf("expected zero health and dead in the same publish, got %+v", victim)
	}
	if victim.Deaths != 1 || victim.Animation != state.AnimationDeath {
		t.Fatalf("expected one death, got %+v", victim)
	}
	if killer, _ := f.record("b"); killer.Kills != 1 {
		t.Fatalf("expected one kill, got %d", killer.Kills)
	}
	if got := countEvents[PlayerKilled](f.events); got != 1 {
		t.Fatalf("expected one kill event, got %d", got)
	}

	// Bullets already in flight pass through the dead player.
	f.step(5)
	if killer, _ := f.record("b"); killer.Kills != 1 {
		t.Fatalf("expected kill count to stay at 1, got %d", killer.Kills)
	}
}

func TestRespawnRestoresHealthAfterDelay(t *testing.T) {
	f := newEngineFixture(t)
	shooter := f.join("b", "B")
	f.join("a", "A")
	shooter.Input.Fire = true
	f.step(28)
	shooter.Input.Fire = false

	// Death at 2.8s; respawn is due at 4.8s.
	f.step(19)
	if rec, _ := f.record("a"); !rec.Dead {
		t.Fatalf("expected victim still dead before the delay, got %+v", rec)
	}
	f.step(1)
	rec, _ := f.record("a")
	if rec.Dead || rec.Health != state.MaxHealth {
		t.Fatalf("expected respawn at full health, got %+v", rec)
	}
	if rec.Deaths != 1 {
		t.Fatalf("expected deaths to persist across respawn, got %d", rec.Deaths)
	}
	if got := countEvents[PlayerRespawned](f.events); got != 1 {
		t.Fatalf("expected one respawn event, got %d", got)
	}
}

func TestLeaveDuringPendingRespawnLeavesNoWrites(t *testing.T) {
	f := newEngineFixture(t)
	shooter := f.join("b", "B")
	f.join("a", "A")
	shooter.Input.Fire = true
	f.step(28)
	shooter.Input.Fire = false

	if !f.engine.Leave("a", "disconnect") {
		t.Fatalf("expected leave to succeed")
	}
	result := f.step(1)
	if _, ok := f.record("a"); ok {
		t.Fatalf("expected departed player's key to be withdrawn")
	}
	if len(result.Snapshot.Removed) != 1 || result.Snapshot.Removed[0] != state.PlayerKey("a") {
		t.Fatalf("expected removal in snapshot, got %v", result.Snapshot.Removed)
	}
	if _, ok := f.engine.Context().Scheduler.Pending(schedule.Key{EntityID: "a", Kind: combat.KindRespawn}); ok {
		t.Fatalf("expected respawn to be cancelled")
	}

	f.step(40)
	if _, ok := f.record("a"); ok {
		t.Fatalf("expected no writes for a removed player")
	}
	if got := countEvents[PlayerRespawned](f.events); got != 0 {
		t.Fatalf("expected no respawn for a removed player, got %d", got)
	}
	if f.engine.Leave("a", "") {
		t.Fatalf("expected repeated leave to be a no-op")
	}
}

func TestRegenerationThroughEngine(t *testing.T) {
	f := newEngineFixture(t)
	shooter := f.join("b", "B")
	f.join("a", "A")
	shooter.Input.Fire = true
	f.step(1)
	shooter.Input.Fire = false

	// Hit at 0.1s; the first regen step lands at 8.1s.
	f.step(79)
	if rec, _ := f.record("a"); rec.Health != 90 {
		t.Fatalf("expected no regen yet, got %d", rec.Health)
	}
	f.step(1)
	if rec, _ := f.record("a"); rec.Health != state.MaxHealth {
		t.Fatalf("expected regen to restore health, got %d", rec.Health)
	}
}

func TestWinnerIsSetOnceAndMatchRestarts(t *testing.T) {
	points := make([]spawn.Point, 0, 7)
	for i := 0; i < 7; i++ {
		points = append(points, spawn.Point{Name: string(rune('a' + i)), Position: mgl64.Vec3{float64(i) * 10, 0, 0}})
	}
	f := newEngineFixture(t, points...)
	killer := f.join("k", "Killer")
	victims := []string{"v1", "v2", "v3", "v4", "v5", "v6"}
	for _, id := range victims {
		f.join(id, "")
	}

	kill := func(victim string, round int) {
		for i := 0; i < 10; i++ {
			f.engine.resolver.Apply(combat.Collision{
				BulletID: state.BulletID("k", uint64(round*100+i)),
				OwnerID:  "k",
				PlayerID: victim,
				Damage:   10,
			}, f.engine.Context().Now)
		}
	}
	for i, id := range victims[:5] {
		kill(id, i)
	}
	f.step(1)

	match := f.engine.Match().State()
	if match.Winner != "Killer" || killer.Kills != 5 {
		t.Fatalf("expected Killer to win with 5 kills, got winner=%q kills=%d", match.Winner, killer.Kills)
	}
	countdown := match.Countdown
	if countdown <= 0 || countdown > DefaultTuning().RestartCountdown {
		t.Fatalf("expected visible countdown, got %s", countdown)
	}

	kill("v6", 5)
	f.step(1)
	if got := countEvents[MatchWon](f.events); got != 1 {
		t.Fatalf("expected exactly one win event, got %d", got)
	}
	if match.Winner != "Killer" || match.Countdown >= countdown {
		t.Fatalf("expected winner and countdown untouched by later kills, got %+v", match)
	}

	f.step(20)
	if match.Epoch != 1 || match.Winner != "" || match.Countdown != 0 {
		t.Fatalf("expected fresh epoch, got %+v", match)
	}
	if killer.Kills != 0 || killer.Health != state.MaxHealth {
		t.Fatalf("expected killer reset in place, got %+v", killer)
	}
	for _, id := range victims {
		p, _ := f.engine.Context().Registry.Get(id)
		if p.Dead || p.Deaths != 0 || p.Health != state.MaxHealth {
			t.Fatalf("expected %s reset, got %+v", id, p)
		}
	}
	if got := countEvents[MatchRestarted](f.events); got != 1 {
		t.Fatalf("expected one restart event, got %d", got)
	}
	rec := f.engine.Store().Latest()
	entry, ok := rec.Get(state.KeyMatch)
	if !ok || entry.Value.(state.MatchRecord).Epoch != 1 {
		t.Fatalf("expected published epoch 1, got %+v", entry)
	}
}

func TestMissingSpawnPointFailsMatch(t *testing.T) {
	engine := NewEngine(EngineConfig{MatchID: "m", Tuning: DefaultTuning()}, Deps{})
	_, err := engine.Join("a", "", "")
	if !errors.Is(err, ErrMatchFailed) || !errors.Is(err, spawn.ErrNoSpawnPoints) {
		t.Fatalf("expected fatal missing spawn point, got %v", err)
	}
	if _, err := engine.Step(stepDelta); !errors.Is(err, ErrMatchFailed) {
		t.Fatalf("expected engine to refuse to advance, got %v", err)
	}
	if engine.Context().Registry.Len() != 0 {
		t.Fatalf("expected player not to be placed")
	}
}

func TestReplicaEngineCannotPublish(t *testing.T) {
	var rejected []string
	store := replication.NewStore(replication.Config{
		Role:        replication.RoleReplica,
		Policy:      replication.AuthorityLenient,
		OnViolation: func(key string, _ error) { rejected = append(rejected, key) },
	})
	engine := NewEngine(EngineConfig{MatchID: "m", Tuning: DefaultTuning(), Store: store}, Deps{})
	p, err := engine.Join("a", "", "")
	if err != nil {
		t.Fatalf("expected replica join without spawn allocation, got %v", err)
	}
	p.Input.Fire = true

	_, err = engine.Step(stepDelta)
	if !errors.Is(err, replication.ErrAuthorityViolation) {
		t.Fatalf("expected authority violation, got %v", err)
	}
	if len(rejected) == 0 || store.Violations() == 0 {
		t.Fatalf("expected violations to be reported")
	}
	if len(engine.projectiles.Bullets()) != 0 {
		t.Fatalf("expected fire to be denied off-host")
	}
}

func TestApplyCommands(t *testing.T) {
	f := newEngineFixture(t)
	err := f.engine.Apply([]Command{
		{ActorID: "a", Type: CommandJoin, Join: &JoinCommand{Name: "Ann"}},
		{ActorID: "a", Type: CommandInput, Input: &InputCommand{Move: mgl64.Vec2{0, 1}, Moving: true}},
		{ActorID: "ghost", Type: CommandInput, Input: &InputCommand{Fire: true}},
		{ActorID: "a", Type: "Dance"},
	})
	if err == nil {
		t.Fatalf("expected unknown command type to be reported")
	}
	p, ok := f.engine.Context().Registry.Get("a")
	if !ok || p.Name != "Ann" || !p.Input.Moving {
		t.Fatalf("expected join and input to apply, got %+v", p)
	}
	f.step(1)
	if rec, _ := f.record("a"); rec.Position.Z() <= 0 || rec.Animation != state.AnimationRunning {
		t.Fatalf("expected player to run forward, got %+v", rec)
	}
	if err := f.engine.Apply([]Command{{ActorID: "a", Type: CommandLeave}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.engine.Context().Registry.Len() != 0 {
		t.Fatalf("expected leave to apply")
	}
}

func TestFireCooldownIsPerPlayerThroughEngine(t *testing.T) {
	f := newEngineFixture(t)
	a := f.join("a", "A")
	b := f.join("b", "B")
	a.Input.Fire = true
	b.Input.Fire = true

	firedBy := func() map[string]int {
		counts := make(map[string]int)
		for _, e := range f.events {
			if ev, ok := e.(BulletFired); ok {
				counts[ev.OwnerID]++
			}
		}
		return counts
	}

	f.step(1)
	if got := firedBy(); got["a"] != 1 || got["b"] != 1 {
		t.Fatalf("expected both players to fire on the first tick, got %v", got)
	}
	// 200ms later both are still inside their own 280ms window.
	f.step(2)
	if got := firedBy(); got["a"] != 1 || got["b"] != 1 {
		t.Fatalf("expected cooldown to hold each player, got %v", got)
	}
	f.step(1)
	if got := firedBy(); got["a"] != 2 || got["b"] != 2 {
		t.Fatalf("expected both players to fire again after cooldown, got %v", got)
	}
}

func TestNonFiniteInputKeepsStatePublishable(t *testing.T) {
	f := newEngineFixture(t)
	f.join("a", "A")
	nan := mgl64.Vec3{math.NaN(), 0, 1}
	err := f.engine.Apply([]Command{{
		ActorID: "a",
		Type:    CommandInput,
		Input:   &InputCommand{Move: mgl64.Vec2{math.Inf(1), 0}, Moving: true, Fire: true, Direction: &nan},
	}})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	f.step(1)

	rec, _ := f.record("a")
	if rec.Position != (mgl64.Vec3{0, 0, 0}) {
		t.Fatalf("expected player to stay at spawn, got %v", rec.Position)
	}
	if _, err := json.Marshal(f.engine.Store().Latest()); err != nil {
		t.Fatalf("expected snapshot to stay json encodable: %v", err)
	}
}

func TestErrIsSafeToReadWhileFailing(t *testing.T) {
	f := newEngineFixture(t)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 2000; i++ {
			_ = f.engine.Err()
		}
	}()
	f.engine.fail(spawn.ErrNoSpawnPoints)
	<-done

	err := f.engine.Err()
	if !errors.Is(err, ErrMatchFailed) || !errors.Is(err, spawn.ErrNoSpawnPoints) {
		t.Fatalf("expected wrapped spawn failure, got %v", err)
	}
	f.engine.fail(errors.New("later"))
	if !errors.Is(f.engine.Err(), spawn.ErrNoSpawnPoints) {
		t.Fatalf("expected first failure to stick, got %v", f.engine.Err())
	}
}

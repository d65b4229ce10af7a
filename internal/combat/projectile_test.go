package combat

import (
	"math"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Nishit5799/multiplayerShooting/internal/geom"
	"github.com/Nishit5799/multiplayerShooting/internal/state"
)

const tickDelta = 1.0 / 30

func tickTime(tick int) time.Duration {
	return time.Duration(tick) * time.Second / 30
}

func visitAll(players ...*state.Player) func(func(*state.Player) bool) {
	return func(visit func(*state.Player) bool) {
		for _, p := range players {
			if !visit(p) {
				return
			}
		}
	}
}

func TestFireRespectsCooldown(t *testing.T) {
	sim := NewSimulator(DefaultProjectileTuning(), nil)
	shooter := state.NewPlayer("a", "A", "red")

	first, ok := sim.Fire(shooter, 0, 0)
	if !ok || first.ID != "a-1" {
		t.Fatalf("expected first shot a-1, got %+v ok=%v", first, ok)
	}
	if _, ok := sim.Fire(shooter, 3, 100*time.Millisecond); ok {
		t.Fatalf("expected shot inside cooldown to be denied")
	}
	second, ok := sim.Fire(shooter, 9, 280*time.Millisecond)
	if !ok || second.ID != "a-2" {
		t.Fatalf("expected second shot a-2 after cooldown, got %+v ok=%v", second, ok)
	}
	if len(sim.Bullets()) != 2 {
		t.Fatalf("expected 2 live bullets, got %d", len(sim.Bullets()))
	}
}

func TestFireCooldownIsPerPlayer(t *testing.T) {
	sim := NewSimulator(DefaultProjectileTuning(), nil)
	a := state.NewPlayer("a", "A", "red")
	b := state.NewPlayer("b", "B", "blue")

	if _, ok := sim.Fire(a, 1, tickTime(1)); !ok {
		t.Fatalf("expected a's first shot to be accepted")
	}
	if _, ok := sim.Fire(b, 1, tickTime(1)); !ok {
		t.Fatalf("expected b's first shot on the same tick to be accepted")
	}
	if _, ok := sim.Fire(b, 4, tickTime(4)); ok {
		t.Fatalf("expected b's second shot inside its own cooldown to be denied")
	}
	if _, ok := sim.Fire(a, 4, tickTime(4)); ok {
		t.Fatalf("expected a's second shot inside its own cooldown to be denied")
	}
	if len(sim.Bullets()) != 2 {
		t.Fatalf("expected one bullet per shooter, got %d", len(sim.Bullets()))
	}
}

func TestFireDeniedForDeadShooterOrReplica(t *testing.T) {
	dead := state.NewPlayer("a", "A", "red")
	dead.Dead = true
	dead.Health = 0
	if _, ok := NewSimulator(DefaultProjectileTuning(), nil).Fire(dead, 0, 0); ok {
		t.Fatalf("expected dead shooter to be denied")
	}

	replica := NewSimulator(DefaultProjectileTuning(), func() bool { return false })
	if _, ok := replica.Fire(state.NewPlayer("b", "B", "blue"), 0, 0); ok {
		t.Fatalf("expected fire on a replica to be denied")
	}
}

func TestFireUsesExplicitDirection(t *testing.T) {
	sim := NewSimulator(DefaultProjectileTuning(), nil)
	shooter := state.NewPlayer("a", "A", "red")
	shooter.Input.Direction = &mgl64.Vec3{2, 0, 0}

	bullet, ok := sim.Fire(shooter, 0, 0)
	if !ok {
		t.Fatalf("expected shot")
	}
	if !bullet.Direction.ApproxEqual(mgl64.Vec3{1, 0, 0}) {
		t.Fatalf("expected normalized explicit direction, got %v", bullet.Direction)
	}
	if rec := bullet.Record(); rec.Direction == nil || rec.Angle != nil {
		t.Fatalf("expected direction variant in record, got %+v", rec)
	}
}

func TestMuzzleOffsetFollowsYawAndPitch(t *testing.T) {
	mount := mgl64.Vec3{0, 0.5, 1.2}
	if got := MuzzleOffset(mount, 0, 0); !got.ApproxEqual(mgl64.Vec3{0, 0.5, 1.2}) {
		t.Fatalf("unexpected forward offset %v", got)
	}
	if got := MuzzleOffset(mount, math.Pi/2, 0); !got.ApproxEqualThreshold(mgl64.Vec3{1.2, 0.5, 0}, 1e-9) {
		t.Fatalf("unexpected side offset %v", got)
	}
	got := MuzzleOffset(mount, 0, math.Pi/6)
	if math.Abs(got.Y()-(0.5+0.6)) > 1e-9 {
		t.Fatalf("expected pitch to lift muzzle, got %v", got)
	}
}

func TestAdvanceHitsFirstTargetOnce(t *testing.T) {
	sim := NewSimulator(DefaultProjectileTuning(), nil)
	shooter := state.NewPlayer("a", "A", "red")
	near := state.NewPlayer("b", "B", "blue")
	near.Position = mgl64.Vec3{0, 0, 3}
	far := state.NewPlayer("c", "C", "green")
	far.Position = mgl64.Vec3{0, 0, 5}

	if _, ok := sim.Fire(shooter, 0, 0); !ok {
		t.Fatalf("expected shot")
	}

	var collisions []Collision
	for tick := 1; tick <= 20; tick++ {
		result := sim.Advance(AdvanceConfig{
			Delta:        tickDelta,
			Tick:         uint64(tick),
			Now:          tickTime(tick),
			VisitTargets: visitAll(shooter, far, near),
		})
		collisions = append(collisions, result.Collisions...)
	}
	if len(collisions) != 1 {
		t.Fatalf("expected exactly one collision, got %d", len(collisions))
	}
	if collisions[0].PlayerID != "b" || collisions[0].OwnerID != "a" {
		t.Fatalf("expected nearest player to be hit, got %+v", collisions[0])
	}
	if len(sim.Bullets()) != 0 {
		t.Fatalf("expected bullet removed after hit, got %d", len(sim.Bullets()))
	}
}

func TestAdvanceSkipsOwnerAndNonCollidable(t *testing.T) {
	sim := NewSimulator(DefaultProjectileTuning(), nil)
	shooter := state.NewPlayer("a", "A", "red")
	ghost := state.NewPlayer("b", "B", "blue")
	ghost.Position = mgl64.Vec3{0, 0, 3}
	ghost.Collidable = false

	sim.Fire(shooter, 0, 0)
	for tick := 1; tick <= 10; tick++ {
		result := sim.Advance(AdvanceConfig{Delta: tickDelta, Tick: uint64(tick), Now: tickTime(tick), VisitTargets: visitAll(shooter, ghost)})
		if len(result.Collisions) != 0 {
			t.Fatalf("expected no collisions, got %+v", result.Collisions)
		}
	}
}

func TestAdvanceStopsAtObstacle(t *testing.T) {
	sim := NewSimulator(DefaultProjectileTuning(), nil)
	shooter := state.NewPlayer("a", "A", "red")
	target := state.NewPlayer("b", "B", "blue")
	target.Position = mgl64.Vec3{0, 0, 4}
	wall := geom.Box{Min: mgl64.Vec3{-1, 0, 2}, Max: mgl64.Vec3{1, 3, 2.2}}

	sim.Fire(shooter, 0, 0)
	var collisions []Collision
	for tick := 1; tick <= 20; tick++ {
		result := sim.Advance(AdvanceConfig{
			Delta:        tickDelta,
			Tick:         uint64(tick),
			Now:          tickTime(tick),
			VisitTargets: visitAll(target),
			Obstacles:    []geom.Box{wall},
		})
		collisions = append(collisions, result.Collisions...)
	}
	if len(collisions) != 1 || collisions[0].PlayerID != "" {
		t.Fatalf("expected a single geometry collision, got %+v", collisions)
	}
	if math.Abs(collisions[0].Position.Z()-2) > 1e-9 {
		t.Fatalf("expected contact at wall face, got %v", collisions[0].Position)
	}
	if len(sim.Hits()) != 1 {
		t.Fatalf("expected hit marker, got %d", len(sim.Hits()))
	}
}

func TestAdvanceExpiresBulletsAndHits(t *testing.T) {
	sim := NewSimulator(DefaultProjectileTuning(), nil)
	shooter := state.NewPlayer("a", "A", "red")
	sim.Fire(shooter, 0, 0)

	var resolutions []Resolution
	for tick := 1; tick <= 70; tick++ {
		result := sim.Advance(AdvanceConfig{Delta: tickDelta, Tick: uint64(tick), Now: tickTime(tick)})
		resolutions = append(resolutions, result.Resolutions...)
	}
	if len(resolutions) != 1 || resolutions[0].Hit {
		t.Fatalf("expected one expiry resolution, got %+v", resolutions)
	}
	if len(sim.Bullets()) != 0 {
		t.Fatalf("expected no live bullets, got %d", len(sim.Bullets()))
	}

	sim.hits = append(sim.hits, state.Hit{ID: "x", CreatedAt: tickTime(70)})
	sim.Advance(AdvanceConfig{Delta: tickDelta, Tick: 71, Now: tickTime(71)})
	if len(sim.Hits()) != 1 {
		t.Fatalf("expected fresh hit to survive")
	}
	sim.Advance(AdvanceConfig{Delta: tickDelta, Tick: 90, Now: tickTime(90)})
	if len(sim.Hits()) != 0 {
		t.Fatalf("expected hit to expire after its lifetime, got %d", len(sim.Hits()))
	}
}

func TestAdvanceExpiresOutOfBounds(t *testing.T) {
	sim := NewSimulator(DefaultProjectileTuning(), nil)
	shooter := state.NewPlayer("a", "A", "red")
	sim.Fire(shooter, 0, 0)
	bounds := &geom.Box{Min: mgl64.Vec3{-5, -1, -5}, Max: mgl64.Vec3{5, 5, 1.5}}

	result := sim.Advance(AdvanceConfig{Delta: tickDelta, Tick: 1, Now: tickTime(1), Bounds: bounds})
	if len(result.Resolutions) != 1 || result.Resolutions[0].Hit {
		t.Fatalf("expected out-of-bounds expiry, got %+v", result.Resolutions)
	}
}

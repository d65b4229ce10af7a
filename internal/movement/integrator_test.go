package movement

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Nishit5799/multiplayerShooting/internal/geom"
	"github.com/Nishit5799/multiplayerShooting/internal/state"
)

const dt = 1.0 / 30

func TestStepMovesAndTurnsTowardInput(t *testing.T) {
	integrator := NewIntegrator(DefaultTuning())
	p := state.NewPlayer("a", "A", "red")
	p.Input = state.Input{Move: mgl64.Vec2{1, 0}, Moving: true}

	integrator.Step(p, dt)

	if math.Abs(p.Velocity.X()-4) > 1e-9 || p.Velocity.Z() != 0 {
		t.Fatalf("expected run velocity along +X, got %v", p.Velocity)
	}
	if math.Abs(p.Position.X()-4*dt) > 1e-9 {
		t.Fatalf("expected position to advance, got %v", p.Position)
	}
	want := 0.1 * math.Pi / 2
	if math.Abs(p.Facing-want) > 1e-9 {
		t.Fatalf("expected facing %v after one lerp step, got %v", want, p.Facing)
	}
	if p.Animation != state.AnimationRunning {
		t.Fatalf("expected running animation, got %s", p.Animation)
	}
}

func TestStepDampsVelocityWhenIdle(t *testing.T) {
	integrator := NewIntegrator(DefaultTuning())
	p := state.NewPlayer("a", "A", "red")
	p.Velocity = mgl64.Vec3{4, 0, -2}

	integrator.Step(p, dt)
	if math.Abs(p.Velocity.X()-3.6) > 1e-9 || math.Abs(p.Velocity.Z()+1.8) > 1e-9 {
		t.Fatalf("expected multiplicative damping, got %v", p.Velocity)
	}
	for i := 0; i < 500; i++ {
		integrator.Step(p, dt)
	}
	if p.Velocity.X() != 0 || p.Velocity.Z() != 0 {
		t.Fatalf("expected velocity to come to rest, got %v", p.Velocity)
	}
	if p.Animation != state.AnimationIdle {
		t.Fatalf("expected idle animation, got %s", p.Animation)
	}
}

func TestStepFacingCrossesSeamOnShortArc(t *testing.T) {
	integrator := NewIntegrator(DefaultTuning())
	p := state.NewPlayer("a", "A", "red")
	p.Facing = geom.Radians(179)
	// atan2(x, z) of (-sin 1°, -cos 1°) is -179°.
	p.Input = state.Input{Move: mgl64.Vec2{-math.Sin(geom.Radians(1)), -math.Cos(geom.Radians(1))}, Moving: true}

	integrator.Step(p, dt)
	deg := geom.Degrees(p.Facing)
	if !(deg > 179 || deg < -179) {
		t.Fatalf("expected facing to move through 180°, got %.4f°", deg)
	}
}

func TestStepClampsVerticalAim(t *testing.T) {
	integrator := NewIntegrator(DefaultTuning())
	p := state.NewPlayer("a", "A", "red")
	p.Input = state.Input{AimUp: true}
	for i := 0; i < 100; i++ {
		integrator.Step(p, dt)
	}
	if p.VerticalAim != math.Pi/4 {
		t.Fatalf("expected aim clamped to π/4, got %v", p.VerticalAim)
	}
	p.Input = state.Input{AimDown: true}
	for i := 0; i < 200; i++ {
		integrator.Step(p, dt)
	}
	if p.VerticalAim != -math.Pi/4 {
		t.Fatalf("expected aim clamped to -π/4, got %v", p.VerticalAim)
	}
}

func TestStepDeadPlayerDoesNotMove(t *testing.T) {
	integrator := NewIntegrator(DefaultTuning())
	p := state.NewPlayer("a", "A", "red")
	p.Dead = true
	p.Health = 0
	p.Input = state.Input{Move: mgl64.Vec2{1, 0}, Moving: true}
	integrator.Step(p, dt)
	if p.Position != (mgl64.Vec3{}) {
		t.Fatalf("expected dead player to stay put, got %v", p.Position)
	}
	if p.Animation != state.AnimationDeath {
		t.Fatalf("expected death animation, got %s", p.Animation)
	}
}

func TestStepClampsToBounds(t *testing.T) {
	tuning := DefaultTuning()
	tuning.Bounds = &geom.Box{Min: mgl64.Vec3{-1, 0, -1}, Max: mgl64.Vec3{1, 10, 1}}
	integrator := NewIntegrator(tuning)
	p := state.NewPlayer("a", "A", "red")
	p.Input = state.Input{Move: mgl64.Vec2{1, 0}, Moving: true}
	for i := 0; i < 60; i++ {
		integrator.Step(p, dt)
	}
	if p.Position.X() != 1 {
		t.Fatalf("expected position clamped to bound, got %v", p.Position)
	}
}

func TestFollowSmoothsPositionAndAppliesDiscreteFields(t *testing.T) {
	integrator := NewIntegrator(DefaultTuning())
	view := &View{}
	integrator.Follow(view, state.PlayerRecord{ID: "a", Position: mgl64.Vec3{0, 0, 0}})

	rec := state.PlayerRecord{ID: "a", Position: mgl64.Vec3{10, 0, 0}, Facing: 1.5, Animation: state.AnimationRunning}
	integrator.Follow(view, rec)
	if math.Abs(view.Position.X()-2) > 1e-9 {
		t.Fatalf("expected 20%% step toward target, got %v", view.Position)
	}
	if view.Facing != 1.5 || view.Animation != state.AnimationRunning {
		t.Fatalf("expected discrete fields applied directly, got %+v", view)
	}
	for i := 0; i < 100; i++ {
		integrator.Follow(view, rec)
	}
	if math.Abs(view.Position.X()-10) > 1e-6 {
		t.Fatalf("expected convergence to target, got %v", view.Position)
	}
}

func TestStepIgnoresNonFiniteInput(t *testing.T) {
	integrator := NewIntegrator(DefaultTuning())
	p := state.NewPlayer("a", "A", "red")
	p.Position = mgl64.Vec3{1, 0, 1}
	p.Input = state.Input{Move: mgl64.Vec2{math.Inf(1), 0}, Moving: true}

	integrator.Step(p, dt)

	if !geom.Finite3(p.Position) || p.Position != (mgl64.Vec3{1, 0, 1}) {
		t.Fatalf("expected position to stay put, got %v", p.Position)
	}
	if !geom.Finite3(p.Velocity) {
		t.Fatalf("expected finite velocity, got %v", p.Velocity)
	}
}

package sim

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Nishit5799/multiplayerShooting/internal/schedule"
	"github.com/Nishit5799/multiplayerShooting/internal/spawn"
	"github.com/Nishit5799/multiplayerShooting/internal/state"
)

func TestMatchControllerDeclaresWinnerOnce(t *testing.T) {
	sched := schedule.New()
	restarts := 0
	controller := NewMatchController("m", MatchConfig{
		WinKills:  2,
		Countdown: time.Second,
		Scheduler: sched,
		OnRestart: func(*state.MatchState) { restarts++ },
	})
	var seen []Event
	unsubscribe := controller.Subscribe(func(e Event) { seen = append(seen, e) })

	first := state.NewPlayer("a", "Ann", "")
	second := state.NewPlayer("b", "Bob", "")
	first.Kills = 1
	if controller.NoteKill(first, 1) {
		t.Fatalf("expected no winner below the threshold")
	}
	first.Kills = 2
	if !controller.NoteKill(first, 2) {
		t.Fatalf("expected winner at the threshold")
	}
	second.Kills = 3
	if controller.NoteKill(second, 3) {
		t.Fatalf("expected later kills to be ignored")
	}
	if controller.State().Winner != "Ann" || controller.State().WinnerID != "a" {
		t.Fatalf("unexpected winner: %+v", controller.State())
	}

	sched.Advance(400 * time.Millisecond)
	controller.Update(400 * time.Millisecond)
	if controller.State().Countdown != 600*time.Millisecond {
		t.Fatalf("expected 600ms remaining, got %s", controller.State().Countdown)
	}

	if events := controller.Dispatch(); len(events) != 1 || len(seen) != 1 {
		t.Fatalf("expected a single win event, got %d", len(events))
	}
	sched.Advance(time.Second)
	if restarts != 1 || controller.State().Epoch != 1 || controller.State().HasWinner() {
		t.Fatalf("expected restart into epoch 1, got %+v", controller.State())
	}

	unsubscribe()
	events := controller.Dispatch()
	if len(events) != 1 {
		t.Fatalf("expected restart event, got %d", len(events))
	}
	if _, ok := events[0].(MatchRestarted); !ok {
		t.Fatalf("expected MatchRestarted, got %T", events[0])
	}
	if len(seen) != 1 {
		t.Fatalf("expected unsubscribed observer to miss the restart")
	}
}

func TestRegistryJoinDefaultsAndOrder(t *testing.T) {
	allocator := spawn.NewAllocator(rand.New(rand.NewSource(1)), nil)
	allocator.Enumerate([]spawn.Point{{Name: "spawn_0", Position: mgl64.Vec3{1, 0, 1}}})
	registry := NewRegistry(RegistryConfig{Allocator: allocator})

	first, err := registry.Join("a", "", "")
	if err != nil {
		t.Fatalf("join a: %v", err)
	}
	second, err := registry.Join("b", "Bob", "#000000")
	if err != nil {
		t.Fatalf("join b: %v", err)
	}
	if first.Name != "Player 1" || first.Color != DefaultPalette[0] {
		t.Fatalf("expected defaulted name and colour, got %q %q", first.Name, first.Color)
	}
	if second.Name != "Bob" || second.Color != "#000000" {
		t.Fatalf("expected explicit name and colour, got %q %q", second.Name, second.Color)
	}
	if first.Position != (mgl64.Vec3{1, 0, 1}) || first.Health != state.MaxHealth {
		t.Fatalf("expected player at spawn with full health, got %+v", first)
	}
	if _, err := registry.Join("a", "", ""); !errors.Is(err, ErrDuplicatePlayer) {
		t.Fatalf("expected duplicate join to fail, got %v", err)
	}
	if _, err := registry.Join("", "", ""); !errors.Is(err, ErrInvalidPlayerID) {
		t.Fatalf("expected empty id to fail, got %v", err)
	}

	registry.Leave("a")
	third, _ := registry.Join("c", "", "")
	if third.Name != "Player 3" {
		t.Fatalf("expected join ordinal to keep counting, got %q", third.Name)
	}
	if ids := registry.IDs(); len(ids) != 2 || ids[0] != "b" || ids[1] != "c" {
		t.Fatalf("expected join order b,c, got %v", ids)
	}
}

func TestRegistryRejectsJoinWithoutSpawnPoints(t *testing.T) {
	registry := NewRegistry(RegistryConfig{Allocator: spawn.NewAllocator(nil, nil)})
	if _, err := registry.Join("a", "", ""); !errors.Is(err, spawn.ErrNoSpawnPoints) {
		t.Fatalf("expected ErrNoSpawnPoints, got %v", err)
	}
	if registry.Len() != 0 {
		t.Fatalf("expected player not to be admitted")
	}
}

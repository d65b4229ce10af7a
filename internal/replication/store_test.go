package replication

import (
	"errors"
	"testing"
)

type position struct {
	X, Y, Z float64
}

func TestSetIsInvisibleUntilFlush(t *testing.T) {
	store := NewStore(Config{Role: RoleHost})
	if err := store.Set("player/a", position{X: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := store.Get("player/a"); ok {
		t.Fatalf("expected staged write to be invisible before flush")
	}
	version, value := store.Lookup("player/a", "default")
	if version != 0 || value != "default" {
		t.Fatalf("expected default before flush, got %d %v", version, value)
	}

	snap, err := store.Flush(7)
	if err != nil {
		t.Fatalf("flush failed: %v", err)
	}
	if snap.Seq != 1 || snap.Tick != 7 {
		t.Fatalf("unexpected snapshot header %+v", snap)
	}
	version, got := LookupAs(store, "player/a", position{})
	if version != 1 || got.X != 1 {
		t.Fatalf("expected published value at version 1, got %d %+v", version, got)
	}
}

func TestLastWriterWinsWithinTick(t *testing.T) {
	store := NewStore(Config{Role: RoleHost})
	_ = store.Set("match/state", 1)
	_ = store.Set("match/state", 2)
	snap, _ := store.Flush(1)
	entry, ok := snap.Get("match/state")
	if !ok || entry.Value != 2 {
		t.Fatalf("expected last write to win, got %+v", entry)
	}
}

func TestVersionOnlyAdvancesOnChange(t *testing.T) {
	store := NewStore(Config{Role: RoleHost})
	_ = store.Set("player/a", position{X: 1})
	store.Flush(1)
	_ = store.Set("player/a", position{X: 1})
	store.Flush(2)

	entry, _ := store.Get("player/a")
	if entry.Version != 1 {
		t.Fatalf("expected unchanged value to keep version 1, got %d", entry.Version)
	}

	_ = store.Set("player/a", position{X: 2})
	store.Flush(3)
	entry, _ = store.Get("player/a")
	if entry.Version != 3 {
		t.Fatalf("expected changed value to take version 3, got %d", entry.Version)
	}
}

func TestDeletePublishesRemoval(t *testing.T) {
	store := NewStore(Config{Role: RoleHost})
	_ = store.Set("player/a", position{})
	_ = store.Set("player/b", position{})
	store.Flush(1)

	_ = store.Delete("player/a")
	snap, _ := store.Flush(2)
	if len(snap.Removed) != 1 || snap.Removed[0] != "player/a" {
		t.Fatalf("expected removal of player/a, got %v", snap.Removed)
	}
	if keys := store.Keys("player/"); len(keys) != 1 || keys[0] != "player/b" {
		t.Fatalf("unexpected keys %v", keys)
	}
}

func TestReplicaWriteIsRejectedLeniently(t *testing.T) {
	var reported []string
	store := NewStore(Config{
		Role:   RoleReplica,
		Policy: AuthorityLenient,
		OnViolation: func(key string, err error) {
			reported = append(reported, key)
		},
	})
	err := store.Set("player/a", position{})
	if !errors.Is(err, ErrAuthorityViolation) {
		t.Fatalf("expected authority violation, got %v", err)
	}
	if len(reported) != 1 || reported[0] != "player/a" {
		t.Fatalf("expected violation hook, got %v", reported)
	}
	if store.Violations() != 1 {
		t.Fatalf("expected violation count 1, got %d", store.Violations())
	}
	if _, ok := store.Get("player/a"); ok {
		t.Fatalf("expected rejected write to leave store untouched")
	}
}

func TestReplicaWritePanicsWhenStrict(t *testing.T) {
	store := NewStore(Config{Role: RoleReplica, Policy: AuthorityStrict})
	defer func() {
		recovered := recover()
		err, ok := recovered.(error)
		if !ok || !errors.Is(err, ErrAuthorityViolation) {
			t.Fatalf("expected authority violation panic, got %v", recovered)
		}
	}()
	_ = store.Set("player/a", position{})
}

func TestApplyIgnoresStaleSnapshots(t *testing.T) {
	host := NewStore(Config{Role: RoleHost})
	replica := NewStore(Config{Role: RoleReplica})

	_ = host.Set("player/a", position{X: 1})
	first, _ := host.Flush(1)
	_ = host.Set("player/a", position{X: 2})
	second, _ := host.Flush(2)

	if !replica.Apply(second) {
		t.Fatalf("expected newer snapshot to apply")
	}
	if replica.Apply(first) {
		t.Fatalf("expected older snapshot to be ignored")
	}
	_, got := LookupAs(replica, "player/a", position{})
	if got.X != 2 {
		t.Fatalf("expected replica to hold newest value, got %+v", got)
	}
	if replica.Seq() != 2 {
		t.Fatalf("expected replica seq 2, got %d", replica.Seq())
	}
}

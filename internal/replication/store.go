package replication

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/zeebo/xxh3"
)

// ErrAuthorityViolation is reported when a non-host participant attempts to
// mutate authoritative state.
var ErrAuthorityViolation = errors.New("replication: write to authoritative state from non-host")

// Role marks whether this store is the authoritative writer.
type Role int

const (
	RoleReplica Role = iota
	RoleHost
)

func (r Role) String() string {
	if r == RoleHost {
		return "host"
	}
	return "replica"
}

// AuthorityPolicy selects how non-host writes are handled.
type AuthorityPolicy int

const (
	// AuthorityLenient drops the write and reports it through OnViolation.
	AuthorityLenient AuthorityPolicy = iota
	// AuthorityStrict panics on the first violation.
	AuthorityStrict
)

// Entry is one published key. Version is the publish sequence that last
// changed the value; re-publishing an identical value keeps the version.
type Entry struct {
	Key     string
	Version uint64
	Digest  uint64
	Value   any
}

// Snapshot is the full state emitted by one flush.
type Snapshot struct {
	Seq     uint64
	Tick    uint64
	Entries []Entry
	Removed []string
}

// Get returns the entry for key within the snapshot.
func (s Snapshot) Get(key string) (Entry, bool) {
	idx := sort.Search(len(s.Entries), func(i int) bool { return s.Entries[i].Key >= key })
	if idx < len(s.Entries) && s.Entries[idx].Key == key {
		return s.Entries[idx], true
	}
	return Entry{}, false
}

// DigestFunc fingerprints a value so unchanged writes keep their version.
type DigestFunc func(value any) (uint64, error)

// Config tunes a store.
type Config struct {
	Role        Role
	Policy      AuthorityPolicy
	OnViolation func(key string, err error)
	Digest      DigestFunc
}

// Store is a key/value state channel with per-key last-writer-wins
// semantics. The host stages writes with Set and publishes them once per
// tick with Flush; replicas ingest published snapshots with Apply.
type Store struct {
	mu        sync.RWMutex
	role      Role
	policy    AuthorityPolicy
	onViolate func(key string, err error)
	digest    DigestFunc

	published map[string]Entry
	pending   map[string]any
	removed   map[string]struct{}
	seq       uint64
	latest    Snapshot

	violations atomic.Uint64
}

// NewStore constructs a store for the configured role.
func NewStore(cfg Config) *Store {
	digest := cfg.Digest
	if digest == nil {
		digest = MsgpackDigest
	}
	return &Store{
		role:      cfg.Role,
		policy:    cfg.Policy,
		onViolate: cfg.OnViolation,
		digest:    digest,
		published: make(map[string]Entry),
		pending:   make(map[string]any),
		removed:   make(map[string]struct{}),
	}
}

// MsgpackDigest hashes the msgpack encoding of value with xxh3.
func MsgpackDigest(value any) (uint64, error) {
	data, err := msgpack.Marshal(value)
	if err != nil {
		return 0, fmt.Errorf("encode digest: %w", err)
	}
	return xxh3.Hash(data), nil
}

// Role reports the store's role.
func (s *Store) Role() Role {
	if s == nil {
		return RoleReplica
	}
	return s.role
}

// IsHost reports whether the store accepts writes.
func (s *Store) IsHost() bool {
	return s != nil && s.role == RoleHost
}

// Set stages value under key for the next Flush.
func (s *Store) Set(key string, value any) error {
	if s == nil {
		return nil
	}
	if err := s.checkAuthority(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[key] = value
	delete(s.removed, key)
	return nil
}

// Delete stages removal of key for the next Flush.
func (s *Store) Delete(key string) error {
	if s == nil {
		return nil
	}
	if err := s.checkAuthority(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, key)
	if _, ok := s.published[key]; ok {
		s.removed[key] = struct{}{}
	}
	return nil
}

func (s *Store) checkAuthority(key string) error {
	if s.role == RoleHost {
		return nil
	}
	err := fmt.Errorf("%w: key %q", ErrAuthorityViolation, key)
	s.violations.Add(1)
	if s.policy == AuthorityStrict {
		panic(err)
	}
	if s.onViolate != nil {
		s.onViolate(key, err)
	}
	return err
}

// Violations reports how many non-host writes were rejected.
func (s *Store) Violations() uint64 {
	if s == nil {
		return 0
	}
	return s.violations.Load()
}

// Get returns the most recently published entry for key.
func (s *Store) Get(key string) (Entry, bool) {
	if s == nil {
		return Entry{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.published[key]
	return entry, ok
}

// Lookup returns the version and value published under key, or version 0
// and def when absent.
func (s *Store) Lookup(key string, def any) (uint64, any) {
	entry, ok := s.Get(key)
	if !ok {
		return 0, def
	}
	return entry.Version, entry.Value
}

// LookupAs is Lookup with a typed default. A published value of another
// type is treated as absent.
func LookupAs[T any](s *Store, key string, def T) (uint64, T) {
	entry, ok := s.Get(key)
	if !ok {
		return 0, def
	}
	value, ok := entry.Value.(T)
	if !ok {
		return 0, def
	}
	return entry.Version, value
}

// Keys lists published keys with the given prefix in sorted order.
func (s *Store) Keys(prefix string) []string {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.published))
	for key := range s.published {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// Seq reports the sequence of the latest published snapshot.
func (s *Store) Seq() uint64 {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seq
}

// Latest returns the most recently published snapshot.
func (s *Store) Latest() Snapshot {
	if s == nil {
		return Snapshot{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// Flush publishes every staged write as one snapshot. On a replica it
// returns the latest applied snapshot unchanged.
func (s *Store) Flush(tick uint64) (Snapshot, error) {
	if s == nil {
		return Snapshot{}, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.role != RoleHost {
		return s.latest, nil
	}

	s.seq++
	var firstErr error
	for key, value := range s.pending {
		digest, err := s.digest(value)
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("digest %q: %w", key, err)
		}
		prev, ok := s.published[key]
		version := s.seq
		if ok && err == nil && prev.Digest == digest {
			version = prev.Version
		}
		s.published[key] = Entry{Key: key, Version: version, Digest: digest, Value: value}
	}
	removed := make([]string, 0, len(s.removed))
	for key := range s.removed {
		delete(s.published, key)
		removed = append(removed, key)
	}
	sort.Strings(removed)
	s.pending = make(map[string]any)
	s.removed = make(map[string]struct{})

	s.latest = Snapshot{Seq: s.seq, Tick: tick, Entries: s.sortedEntriesLocked(), Removed: removed}
	return s.latest, firstErr
}

// Apply replaces the replica's view with a published snapshot. Snapshots
// that are not newer than the current one are ignored; the return value
// reports whether the snapshot was applied.
func (s *Store) Apply(snapshot Snapshot) bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.role == RoleHost {
		return false
	}
	if snapshot.Seq != 0 && snapshot.Seq <= s.seq {
		return false
	}
	published := make(map[string]Entry, len(snapshot.Entries))
	for _, entry := range snapshot.Entries {
		published[entry.Key] = entry
	}
	s.published = published
	s.seq = snapshot.Seq
	s.latest = Snapshot{Seq: snapshot.Seq, Tick: snapshot.Tick, Entries: s.sortedEntriesLocked(), Removed: append([]string(nil), snapshot.Removed...)}
	return true
}

func (s *Store) sortedEntriesLocked() []Entry {
	entries := make([]Entry, 0, len(s.published))
	for _, entry := range s.published {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries
}

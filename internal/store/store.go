package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/obsidianstack/contexthub/pkg/value"
)

// ErrInvalidArgument marks malformed operation inputs: a negative TTL, or a
// call object whose shape does not match the declared parameters. Layers wrap
// it with fmt.Errorf("%w: ...") and callers test with errors.Is.
var ErrInvalidArgument = errors.New("invalid argument")

// OpenOutcome identifies the branch Open took for an entry.
type OpenOutcome string

const (
	// OutcomeCreated — no entry existed under the key; a fresh one was created.
	OutcomeCreated OpenOutcome = "created"
	// OutcomeFetched — a live entry existed; its data was returned unchanged.
	OutcomeFetched OpenOutcome = "fetched"
	// OutcomeReset — the entry had expired; its data was cleared and the TTL renewed.
	OutcomeReset OpenOutcome = "reset"
)

// UpdateOutcome identifies the branch Update took.
type UpdateOutcome string

const (
	// OutcomeReplaced — the entry existed; its data was overwritten.
	OutcomeReplaced UpdateOutcome = "replaced"
	// OutcomeInserted — no entry existed; one was inserted already expired.
	OutcomeInserted UpdateOutcome = "inserted"
)

// entry is one stored context. data is owned by the store: it is cloned on
// the way in and on the way out, so no caller ever shares the inner value.
type entry struct {
	data      value.Value
	expiresAt time.Time
}

// OpenResult is the result of one Open call.
type OpenResult struct {
	Key     uint64
	Data    value.Value // deep copy; caller-owned
	Outcome OpenOutcome
}

// ContextInfo describes one stored context for the inspection endpoints.
type ContextInfo struct {
	Key       uint64
	Data      value.Value // deep copy
	ExpiresAt time.Time
	Stale     bool
}

// Stats is a point-in-time summary of store contents and operation counters.
type Stats struct {
	Entries int `json:"entries"`
	Live    int `json:"live"`
	Stale   int `json:"stale"`

	Opens     uint64 `json:"opens"`
	Creates   uint64 `json:"creates"`
	Fetches   uint64 `json:"fetches"`
	Resets    uint64 `json:"resets"`
	Updates   uint64 `json:"updates"`
	Replaces  uint64 `json:"replaces"`
	Inserts   uint64 `json:"inserts"`
	Evictions uint64 `json:"evictions"`
}

// Store is a thread-safe context store, keyed by the 64-bit hash of the
// caller's ordered lookup values. A single mutex serialises all access; no
// operation holds it across caller-supplied computation.
//
// Construct one Store at startup and share it; there is no package-level
// instance.
type Store struct {
	mu      sync.Mutex
	entries map[uint64]*entry
	now     func() time.Time // injectable for deterministic tests

	opens, creates, fetches, resets uint64
	updates, replaces, inserts      uint64
	evictions                       uint64
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		entries: make(map[uint64]*entry),
		now:     time.Now,
	}
}

// Open creates-or-fetches the context for the given ordered lookup values.
//
// With no entry under the derived key, a fresh one is created holding an
// empty object and expiring ttl from now. A live entry is returned as-is,
// TTL untouched. An expired entry is reset: data cleared to an empty object,
// TTL renewed. The returned data is always a deep copy; mutating it does
// not affect the store until Update is called.
func (s *Store) Open(keys []value.Value, ttl time.Duration) (OpenResult, error) {
	if ttl < 0 {
		return OpenResult{}, fmt.Errorf("%w: ttl %v is negative", ErrInvalidArgument, ttl)
	}
	key := DeriveKey(keys)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.opens++
	now := s.now()

	e, ok := s.entries[key]
	outcome := OutcomeFetched
	switch {
	case !ok:
		e = &entry{data: value.Object(nil), expiresAt: now.Add(ttl)}
		s.entries[key] = e
		s.creates++
		outcome = OutcomeCreated
	case now.Before(e.expiresAt):
		s.fetches++
	default:
		e.data = value.Object(nil)
		e.expiresAt = now.Add(ttl)
		s.resets++
		outcome = OutcomeReset
	}

	return OpenResult{Key: key, Data: e.data.Clone(), Outcome: outcome}, nil
}

// Update overwrites the data stored under key, leaving the expiry untouched.
// An unknown key never fails: the entry is inserted already expired, so the
// next Open resets it instead of serving data that never had a TTL.
func (s *Store) Update(key uint64, data value.Value) UpdateOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.updates++
	if e, ok := s.entries[key]; ok {
		e.data = data.Clone()
		s.replaces++
		return OutcomeReplaced
	}
	s.entries[key] = &entry{data: data.Clone(), expiresAt: s.now()}
	s.inserts++
	return OutcomeInserted
}

// Get returns a snapshot of the entry stored under key. The stale flag is
// computed against the store clock, the same clock Open and List use.
func (s *Store) Get(key uint64) (ContextInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return ContextInfo{}, false
	}
	return ContextInfo{
		Key:       key,
		Data:      e.data.Clone(),
		ExpiresAt: e.expiresAt,
		Stale:     !s.now().Before(e.expiresAt),
	}, true
}

// List returns a snapshot of all entries, stale included, sorted by key.
func (s *Store) List() []ContextInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	out := make([]ContextInfo, 0, len(s.entries))
	for k, e := range s.entries {
		out = append(out, ContextInfo{
			Key:       k,
			Data:      e.data.Clone(),
			ExpiresAt: e.expiresAt,
			Stale:     !now.Before(e.expiresAt),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Len returns the number of entries currently held, stale included.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Stats returns a point-in-time summary. Live and stale counts are computed
// against the store clock at call time.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	st := Stats{
		Entries:   len(s.entries),
		Opens:     s.opens,
		Creates:   s.creates,
		Fetches:   s.fetches,
		Resets:    s.resets,
		Updates:   s.updates,
		Replaces:  s.replaces,
		Inserts:   s.inserts,
		Evictions: s.evictions,
	}
	for _, e := range s.entries {
		if now.Before(e.expiresAt) {
			st.Live++
		} else {
			st.Stale++
		}
	}
	return st
}

// Evict removes entries whose expiry is at or before now and returns the
// number removed. Open treats a missing entry and an expired one the same
// way, so eviction never changes observable open/update semantics.
func (s *Store) Evict(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for k, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, k)
			removed++
		}
	}
	s.evictions += uint64(removed)
	return removed
}

// Run starts the background sweep, evicting expired entries every interval.
// It blocks until ctx is cancelled.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := s.Evict(now); n > 0 {
				slog.Debug("store: evicted stale contexts", "count", n)
			}
		}
	}
}

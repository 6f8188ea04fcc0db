package cache

import (
	"sort"
	"sync"
	"time"
)

// Entry is a cached value with its bookkeeping.
type Entry struct {
	Value        any
	TTL          time.Duration // <= 0 never expires
	CreatedAt    time.Time
	AccessCount  int64
	LastAccessed time.Time

	seq uint64
}

// IsExpired reports whether the entry has outlived its TTL at now.
func (e *Entry) IsExpired(now time.Time) bool {
	return e.TTL > 0 && now.After(e.CreatedAt.Add(e.TTL))
}

// Store is a bounded, TTL-aware key/entry map with LRU eviction.
//
// Contract:
//   - Concurrency: all methods are serialized behind one mutex.
//   - Size never exceeds the configured max size.
//   - Expired entries are purged lazily by Get, Keys and Size.
type Store struct {
	mu      sync.Mutex
	entries map[string]*Entry
	maxSize int
	seq     uint64
	now     func() time.Time
}

// NewStore creates a Store holding at most maxSize entries.
// A maxSize below 1 is treated as 1.
func NewStore(maxSize int, opts ...Option) *Store {
	if maxSize < 1 {
		maxSize = 1
	}
	o := buildOptions(opts)
	return &Store{
		entries: make(map[string]*Entry),
		maxSize: maxSize,
		now:     o.now,
	}
}

// MaxSize returns the capacity of the store.
func (s *Store) MaxSize() int { return s.maxSize }

// Get returns a copy of the live entry for key and records the access.
// An expired entry is removed and reported as a miss.
func (s *Store) Get(key string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return Entry{}, false
	}
	now := s.now()
	if e.IsExpired(now) {
		delete(s.entries, key)
		return Entry{}, false
	}
	e.AccessCount++
	e.LastAccessed = now
	return *e, true
}

// Set stores value under key. When key is new and the store is full, the
// least recently accessed entry is evicted first and its key returned.
// Ties on LastAccessed go to the earliest insertion.
func (s *Store) Set(key string, value any, ttl time.Duration) (evicted string, didEvict bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[key]; !exists && len(s.entries) >= s.maxSize {
		evicted, didEvict = s.lruKey()
		if didEvict {
			delete(s.entries, evicted)
		}
	}

	now := s.now()
	s.seq++
	s.entries[key] = &Entry{
		Value:        value,
		TTL:          ttl,
		CreatedAt:    now,
		LastAccessed: now,
		seq:          s.seq,
	}
	return evicted, didEvict
}

// lruKey must be called with mu held.
func (s *Store) lruKey() (string, bool) {
	var (
		victim string
		oldest *Entry
	)
	for k, e := range s.entries {
		if oldest == nil ||
			e.LastAccessed.Before(oldest.LastAccessed) ||
			(e.LastAccessed.Equal(oldest.LastAccessed) && e.seq < oldest.seq) {
			victim, oldest = k, e
		}
	}
	return victim, oldest != nil
}

// Delete removes key and reports whether it was present.
func (s *Store) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.entries[key]
	delete(s.entries, key)
	return ok
}

// Clear removes every entry.
func (s *Store) Clear() {
	s.mu.Lock()
	s.entries = make(map[string]*Entry)
	s.mu.Unlock()
}

// Keys returns the sorted keys of all live entries.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeExpired()
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Size returns the number of live entries.
func (s *Store) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeExpired()
	return len(s.entries)
}

func (s *Store) purgeExpired() {
	now := s.now()
	for k, e := range s.entries {
		if e.IsExpired(now) {
			delete(s.entries, k)
		}
	}
}

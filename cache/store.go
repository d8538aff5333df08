package cache

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	expirable "github.com/hashicorp/golang-lru/v2/expirable"
)

// FetchFunc performs the request behind a cache entry. Tags are returned on
// success and on failure so an errored list can still be invalidated.
type FetchFunc func(ctx context.Context) (data any, tags []Tag, err error)

// Listener receives a snapshot of an entry every time it changes.
type Listener func(Entry)

// Invalidation reports the effect of Store.Invalidate.
type Invalidation struct {
	// Stale lists every key marked stale.
	Stale []string
	// Refetch lists the stale keys that have subscribers and no request in
	// flight. The caller is expected to refetch them.
	Refetch []string
}

// StoreStats contains storage-level statistics.
type StoreStats struct {
	Entries       int   `json:"entries"`
	Subscribed    int   `json:"subscribed"`
	Retained      int   `json:"retained"`
	MaxUnused     int   `json:"max_unused"`
	Evictions     int64 `json:"evictions"`
	Invalidations int64 `json:"invalidations"`
}

type record struct {
	key        string
	endpoint   string
	data       any
	err        error
	status     Status
	tags       []Tag
	stale      bool
	fetching   bool
	generation uint64
	floor      uint64 // results begun below this generation are discarded
	updatedAt  time.Time
	fetch      FetchFunc
	listeners  map[uint64]Listener
}

func (r *record) snapshot() Entry {
	var tags []Tag
	if len(r.tags) > 0 {
		tags = make([]Tag, len(r.tags))
		copy(tags, r.tags)
	}
	return Entry{
		Key:         r.key,
		Endpoint:    r.endpoint,
		Data:        r.data,
		Err:         r.err,
		Status:      r.status,
		Tags:        tags,
		Stale:       r.stale,
		Fetching:    r.fetching,
		Subscribers: len(r.listeners),
		UpdatedAt:   r.updatedAt,
	}
}

type notification struct {
	entry     Entry
	listeners []Listener
}

func (n notification) deliver() {
	for _, l := range n.listeners {
		l(n.entry)
	}
}

// settled describes how a finished request landed in the store.
type settled struct {
	present    bool // the entry still exists
	discarded  bool // a reset happened after the request began
	fresh      bool // no invalidation happened while the request was in flight
	subscribed bool
}

// Store is the in-memory map from cache key to entry, with a reverse index
// from tag to keys.
//
// Contract:
//   - Ownership: the Store is the only mutator of entries; Entry values
//     handed out are copies.
//   - Concurrency: safe for concurrent use. Listeners run outside the lock,
//     on the goroutine that caused the change.
//   - Eviction: only entries without subscribers are evicted, after the
//     policy's retention window.
type Store struct {
	mu       sync.Mutex
	entries  map[string]*record
	tagIndex map[Tag]map[string]struct{}
	nextID   uint64

	policy   Policy
	retained *expirable.LRU[string, struct{}]

	evictions     atomic.Int64
	invalidations atomic.Int64
}

// NewStore creates an empty store with the given retention policy.
func NewStore(policy Policy) *Store {
	s := &Store{
		entries:  make(map[string]*record),
		tagIndex: make(map[Tag]map[string]struct{}),
		policy:   policy,
	}
	if policy.Retains() {
		s.retained = expirable.NewLRU[string, struct{}](policy.EffectiveMaxUnused(), func(key string, _ struct{}) {
			s.evictUnused(key)
		}, policy.KeepUnusedFor)
	}
	return s
}

// Policy returns the store's retention policy.
func (s *Store) Policy() Policy {
	return s.policy
}

// Get returns a snapshot of the entry for key.
func (s *Store) Get(key string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.entries[key]
	if !ok {
		return Entry{}, false
	}
	return rec.snapshot(), true
}

// Set stores data for key as a fresh success and reindexes its tags.
//
// An entry nobody subscribes to is handed to retention like any other
// unreferenced entry. Under NoRetentionPolicy that evicts it as soon as Set
// returns, so a later Get misses; subscribe first to keep it.
func (s *Store) Set(key, endpoint string, data any, tags []Tag) {
	s.mu.Lock()
	rec := s.recordLocked(key, endpoint)
	rec.generation++
	rec.data = data
	rec.err = nil
	rec.status = StatusSuccess
	rec.stale = false
	rec.updatedAt = time.Now()
	s.setTagsLocked(rec, tags)
	n := s.notificationLocked(rec)
	unreferenced := len(rec.listeners) == 0
	s.mu.Unlock()

	n.deliver()
	if unreferenced {
		s.retain(key)
	}
}

// Delete removes the entry for key. An entry with subscribers is reset to
// idle instead, so its subscriptions stay attached.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	rec, ok := s.entries[key]
	if !ok {
		s.mu.Unlock()
		return
	}
	if len(rec.listeners) == 0 {
		s.removeLocked(key)
		s.mu.Unlock()
		s.forget(key)
		return
	}
	s.resetLocked(rec)
	n := s.notificationLocked(rec)
	s.mu.Unlock()

	n.deliver()
}

// Invalidate marks every entry whose tags intersect tags as stale. It never
// performs I/O; keys that need a refetch are reported back.
func (s *Store) Invalidate(tags ...Tag) Invalidation {
	var inv Invalidation
	tags = NormalizeTags(tags)
	if len(tags) == 0 {
		return inv
	}

	s.mu.Lock()
	affected := make(map[string]struct{})
	for _, tag := range tags {
		for key := range s.tagIndex[tag] {
			affected[key] = struct{}{}
		}
	}

	keys := make([]string, 0, len(affected))
	for key := range affected {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	notes := make([]notification, 0, len(keys))
	for _, key := range keys {
		rec := s.entries[key]
		rec.generation++
		rec.stale = true
		inv.Stale = append(inv.Stale, key)
		if len(rec.listeners) > 0 {
			if !rec.fetching {
				inv.Refetch = append(inv.Refetch, key)
			}
			notes = append(notes, s.notificationLocked(rec))
		}
	}
	s.mu.Unlock()

	s.invalidations.Add(int64(len(inv.Stale)))
	for _, n := range notes {
		n.deliver()
	}
	return inv
}

// Subscribe attaches listener to the entry for key, creating an idle entry
// if needed. The listener immediately receives the current snapshot. fetch,
// when non-nil, becomes the entry's refetch function.
//
// The returned function drops the subscription; it is safe to call more
// than once and never cancels an in-flight request.
func (s *Store) Subscribe(key, endpoint string, fetch FetchFunc, listener Listener) (unsubscribe func()) {
	s.mu.Lock()
	rec := s.recordLocked(key, endpoint)
	if fetch != nil {
		rec.fetch = fetch
	}
	s.nextID++
	id := s.nextID
	if listener == nil {
		listener = func(Entry) {}
	}
	rec.listeners[id] = listener
	initial := rec.snapshot()
	s.mu.Unlock()

	// Rescue the entry from retention now that it is referenced again.
	s.forget(key)
	listener(initial)

	var once sync.Once
	return func() {
		once.Do(func() { s.unsubscribe(key, id) })
	}
}

func (s *Store) unsubscribe(key string, id uint64) {
	s.mu.Lock()
	rec, ok := s.entries[key]
	if !ok {
		s.mu.Unlock()
		return
	}
	delete(rec.listeners, id)
	unreferenced := len(rec.listeners) == 0 && !rec.fetching
	s.mu.Unlock()

	if unreferenced {
		s.retain(key)
	}
}

// Reset drops every unreferenced entry and returns subscribed entries to
// idle. Results of requests begun before the reset are discarded.
func (s *Store) Reset() {
	s.mu.Lock()
	var dropped []string
	var notes []notification
	for key, rec := range s.entries {
		if len(rec.listeners) == 0 {
			s.removeLocked(key)
			dropped = append(dropped, key)
			continue
		}
		s.resetLocked(rec)
		notes = append(notes, s.notificationLocked(rec))
	}
	s.mu.Unlock()

	for _, key := range dropped {
		s.forget(key)
	}
	for _, n := range notes {
		n.deliver()
	}
}

// Keys returns all cache keys in sorted order.
func (s *Store) Keys() []string {
	s.mu.Lock()
	keys := make([]string, 0, len(s.entries))
	for key := range s.entries {
		keys = append(keys, key)
	}
	s.mu.Unlock()

	sort.Strings(keys)
	return keys
}

// KeysForTag returns the keys currently indexed under tag, sorted.
func (s *Store) KeysForTag(tag Tag) []string {
	s.mu.Lock()
	keys := make([]string, 0, len(s.tagIndex[tag]))
	for key := range s.tagIndex[tag] {
		keys = append(keys, key)
	}
	s.mu.Unlock()

	sort.Strings(keys)
	return keys
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Stats returns a snapshot of store statistics.
func (s *Store) Stats() StoreStats {
	s.mu.Lock()
	stats := StoreStats{Entries: len(s.entries)}
	for _, rec := range s.entries {
		if len(rec.listeners) > 0 {
			stats.Subscribed++
		}
	}
	s.mu.Unlock()

	if s.retained != nil {
		stats.Retained = s.retained.Len()
		stats.MaxUnused = s.policy.EffectiveMaxUnused()
	}
	stats.Evictions = s.evictions.Load()
	stats.Invalidations = s.invalidations.Load()
	return stats
}

// begin marks key as fetching and returns the generation the request
// belongs to.
func (s *Store) begin(key, endpoint string, fetch FetchFunc) uint64 {
	s.mu.Lock()
	rec := s.recordLocked(key, endpoint)
	if fetch != nil {
		rec.fetch = fetch
	}
	rec.status = StatusLoading
	rec.fetching = true
	gen := rec.generation
	n := s.notificationLocked(rec)
	s.mu.Unlock()

	n.deliver()
	return gen
}

func (s *Store) resolve(key string, gen uint64, data any, tags []Tag) settled {
	return s.settle(key, gen, func(rec *record) {
		rec.data = data
		rec.err = nil
		rec.status = StatusSuccess
		s.setTagsLocked(rec, tags)
	})
}

func (s *Store) reject(key string, gen uint64, err error, tags []Tag) settled {
	return s.settle(key, gen, func(rec *record) {
		if !s.policy.KeepStaleOnError {
			rec.data = nil
		}
		rec.err = err
		rec.status = StatusError
		s.setTagsLocked(rec, tags)
	})
}

func (s *Store) settle(key string, gen uint64, apply func(*record)) settled {
	s.mu.Lock()
	rec, ok := s.entries[key]
	if !ok {
		s.mu.Unlock()
		return settled{}
	}
	if gen < rec.floor {
		s.mu.Unlock()
		return settled{present: true, discarded: true}
	}

	apply(rec)
	rec.fetching = false
	rec.stale = rec.generation != gen
	rec.updatedAt = time.Now()

	out := settled{present: true, fresh: !rec.stale, subscribed: len(rec.listeners) > 0}
	n := s.notificationLocked(rec)
	s.mu.Unlock()

	n.deliver()
	if !out.subscribed {
		s.retain(key)
	}
	return out
}

// fetcher returns the refetch function registered for key.
func (s *Store) fetcher(key string) (string, FetchFunc, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.entries[key]
	if !ok || rec.fetch == nil {
		return "", nil, false
	}
	return rec.endpoint, rec.fetch, true
}

// generation returns the current generation of key, or zero.
func (s *Store) generation(key string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.entries[key]; ok {
		return rec.generation
	}
	return 0
}

func (s *Store) recordLocked(key, endpoint string) *record {
	rec, ok := s.entries[key]
	if !ok {
		rec = &record{
			key:       key,
			endpoint:  endpoint,
			status:    StatusIdle,
			listeners: make(map[uint64]Listener),
		}
		s.entries[key] = rec
	}
	if endpoint != "" {
		rec.endpoint = endpoint
	}
	return rec
}

func (s *Store) resetLocked(rec *record) {
	s.setTagsLocked(rec, nil)
	rec.generation++
	rec.floor = rec.generation
	rec.data = nil
	rec.err = nil
	rec.status = StatusIdle
	rec.stale = false
	rec.fetching = false
	rec.updatedAt = time.Now()
}

func (s *Store) removeLocked(key string) {
	if rec, ok := s.entries[key]; ok {
		s.setTagsLocked(rec, nil)
		delete(s.entries, key)
	}
}

// setTagsLocked replaces the tags of rec and rebuilds its index entries.
// Must be called with mu held.
func (s *Store) setTagsLocked(rec *record, tags []Tag) {
	for _, tag := range rec.tags {
		if keys, ok := s.tagIndex[tag]; ok {
			delete(keys, rec.key)
			if len(keys) == 0 {
				delete(s.tagIndex, tag)
			}
		}
	}

	rec.tags = NormalizeTags(tags)
	for _, tag := range rec.tags {
		if s.tagIndex[tag] == nil {
			s.tagIndex[tag] = make(map[string]struct{})
		}
		s.tagIndex[tag][rec.key] = struct{}{}
	}
}

func (s *Store) notificationLocked(rec *record) notification {
	if len(rec.listeners) == 0 {
		return notification{}
	}
	ls := make([]Listener, 0, len(rec.listeners))
	for _, l := range rec.listeners {
		ls = append(ls, l)
	}
	return notification{entry: rec.snapshot(), listeners: ls}
}

// retain schedules an unreferenced entry for eviction. Must not be called
// with mu held: the LRU eviction callback takes mu.
func (s *Store) retain(key string) {
	if s.retained == nil {
		s.evictUnused(key)
		return
	}
	s.retained.Add(key, struct{}{})
}

// forget removes key from retention. Must not be called with mu held.
func (s *Store) forget(key string) {
	if s.retained != nil {
		s.retained.Remove(key)
	}
}

func (s *Store) evictUnused(key string) {
	s.mu.Lock()
	rec, ok := s.entries[key]
	if !ok || len(rec.listeners) > 0 || rec.fetching {
		s.mu.Unlock()
		return
	}
	s.removeLocked(key)
	s.mu.Unlock()

	s.evictions.Add(1)
}

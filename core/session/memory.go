// Package session keeps per-key conversation data in process memory.
//
// Entries live until they are cleared or the process exits. Nothing is
// persisted, so a restart resets every conversation.
package session

import "sync"

// Memory is a concurrency-safe map of sessions with per-key serialization.
type Memory[K comparable, V any] struct {
	mu       sync.RWMutex
	sessions map[K]V

	locksMu sync.Mutex
	locks   map[K]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// NewMemory constructs an empty in-memory store.
func NewMemory[K comparable, V any]() *Memory[K, V] {
	return &Memory[K, V]{
		sessions: make(map[K]V),
		locks:    make(map[K]*keyLock),
	}
}

// Get returns the session for key and whether one exists.
func (m *Memory[K, V]) Get(key K) (V, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.sessions[key]
	return v, ok
}

// Set replaces the session for key.
func (m *Memory[K, V]) Set(key K, v V) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[key] = v
}

// Clear removes the session for key.
func (m *Memory[K, V]) Clear(key K) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, key)
}

// Len reports the number of stored sessions.
func (m *Memory[K, V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Lock blocks until the caller holds exclusive access to key and returns
// the matching unlock function. Locks for different keys never contend.
func (m *Memory[K, V]) Lock(key K) (unlock func()) {
	m.locksMu.Lock()
	l, ok := m.locks[key]
	if !ok {
		l = &keyLock{}
		m.locks[key] = l
	}
	l.refs++
	m.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		m.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, key)
		}
		m.locksMu.Unlock()
	}
}
